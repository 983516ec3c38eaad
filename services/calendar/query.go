package calendar

import (
	"context"
	"fmt"
	"time"

	"tradelog_backend/models"
)

// GetEventsWithFilters returns events matching the filter, enriched
// with the requesting user's annotation data. When timezoneOffset is
// non-zero each event also carries a local time computed as a pure
// fixed-offset shift from UTC.
func (s *Service) GetEventsWithFilters(ctx context.Context, userID string, filter models.EventFilter, timezoneOffset float64) ([]models.EnrichedEvent, error) {
	events, err := s.store.FindEvents(ctx, filter)
	if err != nil {
		return nil, err
	}

	enriched := make([]models.EnrichedEvent, 0, len(events))
	for _, event := range events {
		e, err := s.enrichEvent(ctx, userID, event)
		if err != nil {
			return nil, err
		}
		applyTimezone(&e, timezoneOffset)
		enriched = append(enriched, e)
	}

	return enriched, nil
}

// NextHighImpact returns the earliest upcoming high-impact event for
// the countdown display, or nil when none is scheduled
func (s *Service) NextHighImpact(ctx context.Context, timezoneOffset float64) (*models.EnrichedEvent, error) {
	event, err := s.store.NextHighImpactEvent(ctx, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, nil
	}

	e := models.EnrichedEvent{EconomicEvent: *event}
	applyTimezone(&e, timezoneOffset)
	return &e, nil
}

// enrichEvent attaches the user's mark flag and note/trade-link counts
func (s *Service) enrichEvent(ctx context.Context, userID string, event models.EconomicEvent) (models.EnrichedEvent, error) {
	eventID := event.ID.Hex()

	marked, err := s.store.IsEventMarked(ctx, userID, eventID)
	if err != nil {
		return models.EnrichedEvent{}, fmt.Errorf("failed to load mark for event %s: %w", eventID, err)
	}

	notes, err := s.store.CountEventNotes(ctx, userID, eventID)
	if err != nil {
		return models.EnrichedEvent{}, fmt.Errorf("failed to count notes for event %s: %w", eventID, err)
	}

	links, err := s.store.CountTradeLinks(ctx, userID, eventID)
	if err != nil {
		return models.EnrichedEvent{}, fmt.Errorf("failed to count trade links for event %s: %w", eventID, err)
	}

	return models.EnrichedEvent{
		EconomicEvent:     event,
		IsMarked:          marked,
		NotesCount:        notes,
		LinkedTradesCount: links,
	}, nil
}

// applyTimezone sets the local display time. No calendar or DST lookup:
// event_time_local = event_time_utc + offset hours.
func applyTimezone(event *models.EnrichedEvent, offsetHours float64) {
	if offsetHours == 0 {
		return
	}
	local := event.EventTimeUTC.Add(time.Duration(offsetHours * float64(time.Hour)))
	event.EventTimeLocal = &local
}
