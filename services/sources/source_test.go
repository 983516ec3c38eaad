package sources

import (
	"context"
	"testing"
	"time"

	"tradelog_backend/models"
)

type stubSource struct {
	name   string
	events []models.EconomicEvent
	calls  int
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Fetch(_ context.Context, _ FetchWindow) []models.EconomicEvent {
	s.calls++
	return s.events
}

func sampleEvent(id string) models.EconomicEvent {
	return models.EconomicEvent{
		UniqueID:     id,
		EventName:    "Test Event",
		EventTimeUTC: time.Date(2026, 3, 2, 13, 30, 0, 0, time.UTC),
		Status:       models.EventStatusUpcoming,
	}
}

func TestFallbackChainStopsAtFirstNonEmpty(t *testing.T) {
	first := &stubSource{name: "first", events: []models.EconomicEvent{sampleEvent("a")}}
	second := &stubSource{name: "second", events: []models.EconomicEvent{sampleEvent("b")}}

	chain := NewFallbackChain(first, second)
	events := chain.Fetch(context.Background(), FetchWindow{})

	if len(events) != 1 || events[0].UniqueID != "a" {
		t.Fatalf("expected first source's events, got %v", events)
	}
	if second.calls != 0 {
		t.Errorf("second source was invoked %d times, want 0", second.calls)
	}
}

func TestFallbackChainFallsThroughOnEmpty(t *testing.T) {
	first := &stubSource{name: "first"}
	second := &stubSource{name: "second", events: []models.EconomicEvent{sampleEvent("b")}}

	chain := NewFallbackChain(first, second)
	events := chain.Fetch(context.Background(), FetchWindow{})

	if first.calls != 1 {
		t.Errorf("first source calls = %d, want 1", first.calls)
	}
	if len(events) != 1 || events[0].UniqueID != "b" {
		t.Fatalf("expected second source's events, got %v", events)
	}
}

func TestFallbackChainAllEmpty(t *testing.T) {
	first := &stubSource{name: "first"}
	second := &stubSource{name: "second"}

	chain := NewFallbackChain(first, second)
	if events := chain.Fetch(context.Background(), FetchWindow{}); len(events) != 0 {
		t.Fatalf("expected no events, got %v", events)
	}
	if first.calls != 1 || second.calls != 1 {
		t.Errorf("both sources should be tried once, got %d and %d", first.calls, second.calls)
	}
}

func TestCurrentWeek(t *testing.T) {
	// A Wednesday
	now := time.Date(2026, 3, 4, 15, 0, 0, 0, time.UTC)
	window := CurrentWeek(now)

	if got := window.Start.Weekday(); got != time.Monday {
		t.Errorf("window start weekday = %v, want Monday", got)
	}
	if got := window.Start.Day(); got != 2 {
		t.Errorf("window start day = %d, want 2", got)
	}
	if got := window.End.Sub(window.Start); got != 6*24*time.Hour {
		t.Errorf("window length = %v, want 6 days", got)
	}
}
