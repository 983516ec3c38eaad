package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tradelog_backend/models"
)

const finnhubBaseURL = "https://finnhub.io/api/v1/calendar/economic"

// FinnhubSource queries the Finnhub economic-calendar REST endpoint.
// It is first in the fallback chain because it is the only upstream that
// reports actual values close to real time.
type FinnhubSource struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewFinnhubSource creates a Finnhub source with the given API key
func NewFinnhubSource(apiKey string) *FinnhubSource {
	return &FinnhubSource{
		apiKey:  apiKey,
		baseURL: finnhubBaseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (s *FinnhubSource) Name() string { return "finnhub" }

// finnhubResponse represents the Finnhub API response structure.
// Numeric fields arrive as JSON numbers or null depending on the event.
type finnhubResponse struct {
	EconomicCalendar []finnhubEvent `json:"economicCalendar"`
}

type finnhubEvent struct {
	Event    string      `json:"event"`
	Country  string      `json:"country"`
	Unit     string      `json:"unit"`
	Impact   string      `json:"impact"`
	Actual   interface{} `json:"actual"`
	Forecast interface{} `json:"forecast"`
	Previous interface{} `json:"previous"`
	Time     string      `json:"time"`
}

// Fetch queries the date-range endpoint. Authorization failures (the
// free tier returns 403 for this endpoint) and empty result sets are
// treated as "no data", not errors, so the chain falls through.
func (s *FinnhubSource) Fetch(ctx context.Context, window FetchWindow) []models.EconomicEvent {
	if s.apiKey == "" {
		log.Println("Finnhub API key not configured, skipping")
		return nil
	}

	params := url.Values{}
	params.Set("token", s.apiKey)
	params.Set("from", window.Start.Format("2006-01-02"))
	params.Set("to", window.End.Format("2006-01-02"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		log.Printf("Finnhub request build failed: %v", err)
		return nil
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		log.Printf("Finnhub request failed: %v", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		log.Println("Finnhub economic calendar access restricted (403 Forbidden)")
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		log.Printf("Finnhub returned status %d", resp.StatusCode)
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("Finnhub response read failed: %v", err)
		return nil
	}

	var data finnhubResponse
	if err := json.Unmarshal(body, &data); err != nil {
		log.Printf("Finnhub response parse failed: %v", err)
		return nil
	}

	now := time.Now().UTC()
	var events []models.EconomicEvent
	for _, item := range data.EconomicCalendar {
		ev, err := s.mapEvent(item, now)
		if err != nil {
			log.Printf("Skipping Finnhub event %q: %v", item.Event, err)
			continue
		}
		events = append(events, ev)
	}

	return events
}

// mapEvent converts one provider record into the normalized event shape
func (s *FinnhubSource) mapEvent(item finnhubEvent, fetchedAt time.Time) (models.EconomicEvent, error) {
	eventTime, err := time.Parse("2006-01-02 15:04:05", item.Time)
	if err != nil {
		return models.EconomicEvent{}, fmt.Errorf("unparseable time %q: %w", item.Time, err)
	}

	name := item.Event
	if name == "" {
		name = "Economic Event"
	}

	impact := strings.ToLower(item.Impact)
	switch impact {
	case models.ImpactLow, models.ImpactMedium, models.ImpactHigh:
	default:
		impact = models.ImpactLow
	}

	actual := stringValue(item.Actual)
	status := models.EventStatusUpcoming
	if actual != "" {
		status = models.EventStatusReleased
	}

	uniqueID := fmt.Sprintf("fh_%s_%s_%s",
		item.Country,
		strings.NewReplacer(" ", "_", ":", "").Replace(item.Time),
		strings.ReplaceAll(name, " ", "_"))

	return models.EconomicEvent{
		UniqueID:     uniqueID,
		EventDate:    eventTime.Truncate(24 * time.Hour),
		EventTimeUTC: eventTime,
		Country:      item.Country,
		Currency:     item.Unit,
		ImpactLevel:  impact,
		EventName:    name,
		Actual:       actual,
		Forecast:     stringValue(item.Forecast),
		Previous:     stringValue(item.Previous),
		Status:       status,
		FetchedAt:    fetchedAt,
	}, nil
}

// stringValue renders a provider value that may be a JSON number,
// string or null into the free-form text the event model stores.
func stringValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", val)
	}
}
