package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tradelog_backend/models"
)

func newTestFinnhub(url string) *FinnhubSource {
	s := NewFinnhubSource("test-key")
	s.baseURL = url
	return s
}

func TestFinnhubFetch(t *testing.T) {
	var gotQuery map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"economicCalendar":[
			{"event":"CPI (MoM)","country":"US","unit":"%","impact":"High",
			 "actual":0.4,"forecast":0.3,"previous":"0.2","time":"2026-03-06 13:30:00"},
			{"event":"Trade Balance","country":"JP","unit":"B","impact":"weird",
			 "actual":null,"forecast":null,"previous":null,"time":"2026-03-05 23:50:00"},
			{"event":"Bad Time","country":"GB","unit":"%","impact":"low",
			 "actual":null,"forecast":null,"previous":null,"time":"whenever"}
		]}`))
	}))
	defer server.Close()

	src := newTestFinnhub(server.URL)
	window := FetchWindow{
		Start: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC),
	}
	events := src.Fetch(context.Background(), window)

	if got := gotQuery["token"]; len(got) != 1 || got[0] != "test-key" {
		t.Errorf("token param = %v", got)
	}
	if got := gotQuery["from"]; len(got) != 1 || got[0] != "2026-03-02" {
		t.Errorf("from param = %v", got)
	}

	if len(events) != 2 {
		t.Fatalf("expected 2 events (bad-time record skipped), got %d", len(events))
	}

	cpi := events[0]
	if cpi.EventName != "CPI (MoM)" || cpi.Country != "US" || cpi.Currency != "%" {
		t.Errorf("mapped fields wrong: %+v", cpi)
	}
	if cpi.Actual != "0.4" || cpi.Forecast != "0.3" || cpi.Previous != "0.2" {
		t.Errorf("values = %q/%q/%q", cpi.Actual, cpi.Forecast, cpi.Previous)
	}
	if cpi.ImpactLevel != models.ImpactHigh {
		t.Errorf("impact = %q, want high", cpi.ImpactLevel)
	}
	if cpi.Status != models.EventStatusReleased {
		t.Errorf("status with actual present = %q, want released", cpi.Status)
	}
	if cpi.UniqueID != "fh_US_2026-03-06_133000_CPI_(MoM)" {
		t.Errorf("unique id = %q", cpi.UniqueID)
	}
	if !cpi.EventTimeUTC.Equal(time.Date(2026, 3, 6, 13, 30, 0, 0, time.UTC)) {
		t.Errorf("event time = %v", cpi.EventTimeUTC)
	}

	tb := events[1]
	if tb.ImpactLevel != models.ImpactLow {
		t.Errorf("unknown impact should map to low, got %q", tb.ImpactLevel)
	}
	if tb.Actual != "" || tb.Status != models.EventStatusUpcoming {
		t.Errorf("null actual should leave event upcoming, got %q/%q", tb.Actual, tb.Status)
	}
}

func TestFinnhubFetchForbidden(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	src := newTestFinnhub(server.URL)
	if events := src.Fetch(context.Background(), CurrentWeek(time.Now())); events != nil {
		t.Fatalf("403 must be a no-data signal, got %v", events)
	}
}

func TestFinnhubFetchWithoutKey(t *testing.T) {
	src := NewFinnhubSource("")
	if events := src.Fetch(context.Background(), CurrentWeek(time.Now())); events != nil {
		t.Fatalf("missing key must yield no data, got %v", events)
	}
}

func TestStringValue(t *testing.T) {
	tests := []struct {
		in   interface{}
		want string
	}{
		{nil, ""},
		{"1.2M", "1.2M"},
		{0.4, "0.4"},
		{float64(54), "54"},
		{-0.25, "-0.25"},
	}
	for _, tt := range tests {
		if got := stringValue(tt.in); got != tt.want {
			t.Errorf("stringValue(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
