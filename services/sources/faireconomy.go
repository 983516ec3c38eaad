package sources

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"tradelog_backend/models"
)

const fairEconomyFeedURL = "https://nfs.faireconomy.media/ff_calendar_thisweek.xml"

// FairEconomySource parses the weekly FairEconomy XML feed. The feed
// covers the current week only and never carries actual values, so it
// serves as the fallback when the REST source yields nothing. Feed times
// are GMT.
type FairEconomySource struct {
	feedURL    string
	httpClient *http.Client
}

// NewFairEconomySource creates a FairEconomy feed source
func NewFairEconomySource() *FairEconomySource {
	return &FairEconomySource{
		feedURL: fairEconomyFeedURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (s *FairEconomySource) Name() string { return "faireconomy" }

type weeklyFeed struct {
	XMLName xml.Name    `xml:"weeklyevents"`
	Events  []feedEvent `xml:"event"`
}

type feedEvent struct {
	Title    string `xml:"title"`
	Country  string `xml:"country"`
	Date     string `xml:"date"` // MM-DD-YYYY
	Time     string `xml:"time"` // e.g. 1:30pm
	Impact   string `xml:"impact"`
	Forecast string `xml:"forecast"`
	Previous string `xml:"previous"`
}

// Fetch downloads and parses the weekly feed. The window argument is
// ignored: the feed always describes the current week.
func (s *FairEconomySource) Fetch(ctx context.Context, _ FetchWindow) []models.EconomicEvent {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.feedURL, nil)
	if err != nil {
		log.Printf("FairEconomy request build failed: %v", err)
		return nil
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		log.Printf("FairEconomy fetch failed: %v", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("FairEconomy returned status %d", resp.StatusCode)
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("FairEconomy response read failed: %v", err)
		return nil
	}

	return parseFairEconomyFeed(body, time.Now().UTC())
}

// parseFairEconomyFeed decodes the feed XML into normalized events.
// Rows with an unparseable date/time are logged and skipped.
func parseFairEconomyFeed(data []byte, now time.Time) []models.EconomicEvent {
	var feed weeklyFeed
	if err := xml.Unmarshal(data, &feed); err != nil {
		log.Printf("FairEconomy feed parse failed: %v", err)
		return nil
	}

	var events []models.EconomicEvent
	for _, item := range feed.Events {
		eventTime, err := parseFeedTimestamp(item.Date, item.Time)
		if err != nil {
			log.Printf("Skipping FairEconomy event %q: %v", item.Title, err)
			continue
		}

		title := strings.TrimSpace(item.Title)
		shortTitle := title
		if len(shortTitle) > 10 {
			shortTitle = shortTitle[:10]
		}
		uniqueID := fmt.Sprintf("ff_%s_%s_%s",
			item.Country,
			eventTime.Format("20060102_1504"),
			strings.ReplaceAll(shortTitle, " ", "_"))

		status := models.EventStatusReleased
		if eventTime.After(now) {
			status = models.EventStatusUpcoming
		}

		events = append(events, models.EconomicEvent{
			UniqueID:     uniqueID,
			EventDate:    eventTime.Truncate(24 * time.Hour),
			EventTimeUTC: eventTime,
			Country:      item.Country,
			Currency:     item.Country,
			ImpactLevel:  strings.ToLower(strings.TrimSpace(item.Impact)),
			EventName:    title,
			Actual:       "",
			Forecast:     strings.TrimSpace(item.Forecast),
			Previous:     strings.TrimSpace(item.Previous),
			Status:       status,
			FetchedAt:    now,
		})
	}

	log.Printf("Parsed %d events from FairEconomy feed", len(events))
	return events
}

// parseFeedTimestamp parses the feed's MM-DD-YYYY date plus 12-hour time
func parseFeedTimestamp(dateStr, timeStr string) (time.Time, error) {
	combined := fmt.Sprintf("%s %s", strings.TrimSpace(dateStr), strings.ToUpper(strings.TrimSpace(timeStr)))
	t, err := time.ParseInLocation("01-02-2006 3:04PM", combined, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("unparseable timestamp %q: %w", combined, err)
	}
	return t, nil
}
