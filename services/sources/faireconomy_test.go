package sources

import (
	"testing"
	"time"

	"tradelog_backend/models"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<weeklyevents>
  <event>
    <title>Non-Farm Employment Change</title>
    <country>USD</country>
    <date>03-06-2026</date>
    <time>1:30pm</time>
    <impact>High</impact>
    <forecast>190K</forecast>
    <previous>185K</previous>
  </event>
  <event>
    <title>CPI y/y</title>
    <country>EUR</country>
    <date>03-02-2026</date>
    <time>10:00am</time>
    <impact>Medium</impact>
    <forecast>2.4%</forecast>
    <previous>2.6%</previous>
  </event>
  <event>
    <title>Broken Row</title>
    <country>GBP</country>
    <date>03-04-2026</date>
    <time>not a time</time>
    <impact>Low</impact>
    <forecast></forecast>
    <previous></previous>
  </event>
</weeklyevents>`

func TestParseFairEconomyFeed(t *testing.T) {
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	events := parseFairEconomyFeed([]byte(sampleFeed), now)

	if len(events) != 2 {
		t.Fatalf("expected 2 events (broken row skipped), got %d", len(events))
	}

	nfp := events[0]
	if nfp.UniqueID != "ff_USD_20260306_1330_Non-Farm_E" {
		t.Errorf("unique id = %q", nfp.UniqueID)
	}
	if !nfp.EventTimeUTC.Equal(time.Date(2026, 3, 6, 13, 30, 0, 0, time.UTC)) {
		t.Errorf("event time = %v", nfp.EventTimeUTC)
	}
	if nfp.ImpactLevel != models.ImpactHigh {
		t.Errorf("impact = %q, want high", nfp.ImpactLevel)
	}
	if nfp.Status != models.EventStatusUpcoming {
		t.Errorf("future event status = %q, want upcoming", nfp.Status)
	}
	if nfp.Currency != "USD" || nfp.Country != "USD" {
		t.Errorf("currency/country = %q/%q", nfp.Currency, nfp.Country)
	}
	if nfp.Actual != "" {
		t.Errorf("feed events must have empty actual, got %q", nfp.Actual)
	}
	if nfp.Forecast != "190K" || nfp.Previous != "185K" {
		t.Errorf("forecast/previous = %q/%q", nfp.Forecast, nfp.Previous)
	}

	cpi := events[1]
	if cpi.Status != models.EventStatusReleased {
		t.Errorf("past event status = %q, want released", cpi.Status)
	}
	if cpi.ImpactLevel != models.ImpactMedium {
		t.Errorf("impact = %q, want medium", cpi.ImpactLevel)
	}
}

func TestParseFairEconomyFeedInvalidXML(t *testing.T) {
	if events := parseFairEconomyFeed([]byte("not xml at all"), time.Now()); events != nil {
		t.Fatalf("expected nil for invalid feed, got %v", events)
	}
}

func TestParseFeedTimestamp(t *testing.T) {
	tests := []struct {
		date, clock string
		want        time.Time
		wantErr     bool
	}{
		{"03-06-2026", "1:30pm", time.Date(2026, 3, 6, 13, 30, 0, 0, time.UTC), false},
		{"03-06-2026", "12:00am", time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC), false},
		{"03-06-2026", "11:45PM", time.Date(2026, 3, 6, 23, 45, 0, 0, time.UTC), false},
		{"03-06-2026", "All Day", time.Time{}, true},
	}

	for _, tt := range tests {
		got, err := parseFeedTimestamp(tt.date, tt.clock)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseFeedTimestamp(%q, %q) expected error", tt.date, tt.clock)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseFeedTimestamp(%q, %q) error: %v", tt.date, tt.clock, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("parseFeedTimestamp(%q, %q) = %v, want %v", tt.date, tt.clock, got, tt.want)
		}
	}
}
