package sources

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"tradelog_backend/models"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
)

const (
	forexFactoryBaseURL = "https://www.forexfactory.com/calendar"
	forexFactoryUA      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// Minimum gap between requests to the site, shared across all
	// callers of this source regardless of concurrency.
	scrapeCooldown = 30 * time.Second

	// Exchange-local times on the calendar page are shifted by a fixed
	// 5 hours to approximate UTC. This intentionally ignores DST; the
	// resulting off-by-one-hour window part of the year is accepted.
	exchangeUTCOffset = 5 * time.Hour

	renderTimeout = 45 * time.Second
)

var (
	clockRe    = regexp.MustCompile(`(\d{1,2}):(\d{2})(am|pm)`)
	nonAlnumRe = regexp.MustCompile(`[^a-z0-9]`)
)

var currencyCountry = map[string]string{
	"USD": "US",
	"EUR": "EU",
	"GBP": "GB",
	"JPY": "JP",
	"AUD": "AU",
	"CAD": "CA",
	"CHF": "CH",
	"NZD": "NZ",
	"CNY": "CN",
}

// ForexFactorySource scrapes the Forex Factory week view. It renders the
// page in headless Chromium first (the calendar table is built by
// scripts on some variants) and falls back to a plain GET when no
// browser is available. Lowest priority in the chain: scraping is the
// least reliable upstream.
type ForexFactorySource struct {
	baseURL    string
	httpClient *http.Client

	// cooldown clock, shared by all overlapping triggers
	mu          sync.Mutex
	lastRequest time.Time
}

// NewForexFactorySource creates a Forex Factory scraper source
func NewForexFactorySource() *ForexFactorySource {
	return &ForexFactorySource{
		baseURL: forexFactoryBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (s *ForexFactorySource) Name() string { return "forexfactory" }

// Fetch scrapes the week page for the window's start date
func (s *ForexFactorySource) Fetch(ctx context.Context, window FetchWindow) []models.EconomicEvent {
	if err := s.waitCooldown(ctx); err != nil {
		log.Printf("Forex Factory cooldown wait aborted: %v", err)
		return nil
	}

	url := fmt.Sprintf("%s?week=%s", s.baseURL, window.Start.Format("2006-01-02"))

	html, err := s.renderPage(ctx, url)
	if err != nil {
		log.Printf("Forex Factory browser render failed (%v), trying plain fetch", err)
		html, err = s.fetchPage(ctx, url)
		if err != nil {
			log.Printf("Forex Factory fetch failed: %v", err)
			return nil
		}
	}

	events := parseForexFactoryHTML(html, window.Start.Year(), time.Now().UTC())
	log.Printf("Scraped %d events from Forex Factory", len(events))
	return events
}

// waitCooldown blocks until the shared cooldown has elapsed. The mutex
// is held across the wait so overlapping triggers serialize: the later
// one waits out the remainder left by the earlier request.
func (s *ForexFactorySource) waitCooldown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	remaining := scrapeCooldown - time.Since(s.lastRequest)
	if remaining > 0 {
		log.Printf("Forex Factory rate limit: waiting %v", remaining.Round(time.Second))
		timer := time.NewTimer(remaining)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	s.lastRequest = time.Now()
	return nil
}

// renderPage loads the calendar in headless Chromium and returns the
// rendered document HTML
func (s *ForexFactorySource) renderPage(ctx context.Context, url string) (string, error) {
	browserCtx, cancel := chromedp.NewContext(ctx)
	defer cancel()

	browserCtx, timeoutCancel := context.WithTimeout(browserCtx, renderTimeout)
	defer timeoutCancel()

	var html string
	tasks := chromedp.Tasks{
		chromedp.Navigate(url),
		chromedp.WaitVisible("table.calendar__table", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}
	if err := chromedp.Run(browserCtx, tasks); err != nil {
		return "", fmt.Errorf("chromedp run failed: %w", err)
	}
	return html, nil
}

// fetchPage retrieves the calendar page with a plain HTTP GET
func (s *ForexFactorySource) fetchPage(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", forexFactoryUA)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// parseForexFactoryHTML extracts events from the calendar table. Rows
// share the date of the preceding date row, so the current date is
// carried forward while walking rows in document order.
func parseForexFactoryHTML(html string, year int, fetchedAt time.Time) []models.EconomicEvent {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		log.Printf("Forex Factory HTML parse failed: %v", err)
		return nil
	}

	table := doc.Find("table.calendar__table")
	if table.Length() == 0 {
		log.Println("Calendar table not found in Forex Factory HTML")
		return nil
	}

	var events []models.EconomicEvent
	var currentDate time.Time

	table.Find("tr.calendar__row").Each(func(_ int, row *goquery.Selection) {
		if dateText := strings.TrimSpace(row.Find("td.calendar__date").Text()); dateText != "" {
			if d, ok := parseCalendarDate(dateText, year); ok {
				currentDate = d
			}
		}
		if currentDate.IsZero() {
			return
		}

		ev, ok := parseEventRow(row, currentDate, fetchedAt)
		if !ok {
			return
		}
		events = append(events, ev)
	})

	return events
}

// parseEventRow extracts one event from a calendar table row
func parseEventRow(row *goquery.Selection, eventDate, fetchedAt time.Time) (models.EconomicEvent, bool) {
	timeText := strings.TrimSpace(row.Find("td.calendar__time").Text())
	if timeText == "" || timeText == "All Day" || timeText == "Tentative" {
		return models.EconomicEvent{}, false
	}

	currency := strings.TrimSpace(row.Find("td.calendar__currency").Text())
	if currency == "" {
		currency = "N/A"
	}

	eventName := strings.TrimSpace(row.Find("td.calendar__event").Text())
	if eventName == "" {
		eventName = "Unknown Event"
	}

	actual := strings.TrimSpace(row.Find("td.calendar__actual").Text())
	forecast := strings.TrimSpace(row.Find("td.calendar__forecast").Text())
	previous := strings.TrimSpace(row.Find("td.calendar__previous").Text())

	status := models.EventStatusUpcoming
	if actual != "" {
		status = models.EventStatusReleased
	}

	return models.EconomicEvent{
		UniqueID:     scrapedUniqueID(eventDate, timeText, eventName),
		EventDate:    eventDate,
		EventTimeUTC: convertExchangeTimeToUTC(timeText, eventDate),
		Country:      countryFromCurrency(currency),
		Currency:     currency,
		ImpactLevel:  normalizeImpact(row.Find("td.calendar__impact")),
		EventName:    eventName,
		Actual:       actual,
		Forecast:     forecast,
		Previous:     previous,
		Status:       status,
		FetchedAt:    fetchedAt,
	}, true
}

// normalizeImpact maps the count of active impact icons to an impact
// level: three or more icons is high, two is medium, anything else low.
func normalizeImpact(impactCell *goquery.Selection) string {
	count := impactCell.Find("span.calendar__impact-icon--screen").Length()
	switch {
	case count >= 3:
		return models.ImpactHigh
	case count == 2:
		return models.ImpactMedium
	default:
		return models.ImpactLow
	}
}

// convertExchangeTimeToUTC parses a 12-hour exchange-local time string
// and applies the fixed UTC shift. Unparseable times collapse to
// midnight of the event date.
func convertExchangeTimeToUTC(timeText string, eventDate time.Time) time.Time {
	m := clockRe.FindStringSubmatch(strings.ToLower(strings.TrimSpace(timeText)))
	if m == nil {
		return eventDate
	}

	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	if m[3] == "pm" && hour != 12 {
		hour += 12
	} else if m[3] == "am" && hour == 12 {
		hour = 0
	}

	local := time.Date(eventDate.Year(), eventDate.Month(), eventDate.Day(), hour, minute, 0, 0, time.UTC)
	return local.Add(exchangeUTCOffset)
}

// scrapedUniqueID builds the natural key for a scraped row from the
// date, the raw time string and the truncated event name.
func scrapedUniqueID(eventDate time.Time, timeText, eventName string) string {
	timePart := strings.ToLower(strings.NewReplacer(":", "", " ", "").Replace(timeText))
	namePart := nonAlnumRe.ReplaceAllString(strings.ToLower(eventName), "")
	if len(namePart) > 30 {
		namePart = namePart[:30]
	}
	return fmt.Sprintf("%s_%s_%s", eventDate.Format("20060102"), timePart, namePart)
}

// parseCalendarDate parses the page's "Mon Jan 15" / "Jan 15" date rows
func parseCalendarDate(dateText string, year int) (time.Time, bool) {
	for _, layout := range []string{"Mon Jan 2", "Jan 2"} {
		if d, err := time.Parse(layout, dateText); err == nil {
			return time.Date(year, d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

func countryFromCurrency(currency string) string {
	if country, ok := currencyCountry[currency]; ok {
		return country
	}
	return currency
}
