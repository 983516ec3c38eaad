package sources

import (
	"context"
	"log"
	"time"

	"tradelog_backend/models"
)

// FetchWindow is the date range a source is asked to cover. Sources that
// only serve a fixed window (the weekly XML feed, the scraped week view)
// may ignore End.
type FetchWindow struct {
	Start time.Time
	End   time.Time
}

// CurrentWeek returns a Monday-to-Sunday window around now
func CurrentWeek(now time.Time) FetchWindow {
	weekday := int(now.Weekday()+6) % 7 // Monday = 0
	start := now.AddDate(0, 0, -weekday)
	return FetchWindow{
		Start: start,
		End:   start.AddDate(0, 0, 6),
	}
}

// Source is one upstream calendar provider. Fetch never returns an
// error: every failure mode (network, non-2xx, parse failure, empty
// payload) is logged internally and surfaces as an empty slice, which is
// the "no data" sentinel the fallback chain scans for.
type Source interface {
	Name() string
	Fetch(ctx context.Context, window FetchWindow) []models.EconomicEvent
}

// FallbackChain tries sources in fixed priority order and returns the
// first non-empty result. Sources after the first success are not
// invoked. If every source comes back empty the chain returns an empty
// slice and the caller no-ops for the cycle.
type FallbackChain struct {
	sources []Source
}

// NewFallbackChain creates a chain over the given sources, in priority order
func NewFallbackChain(sources ...Source) *FallbackChain {
	return &FallbackChain{sources: sources}
}

// Fetch scans the chain for the first source that yields events
func (c *FallbackChain) Fetch(ctx context.Context, window FetchWindow) []models.EconomicEvent {
	for _, src := range c.sources {
		events := src.Fetch(ctx, window)
		if len(events) > 0 {
			log.Printf("Source %s returned %d events", src.Name(), len(events))
			return events
		}
		log.Printf("Source %s returned no events, falling back", src.Name())
	}
	return nil
}
