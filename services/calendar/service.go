package calendar

import (
	"context"
	"log"
	"time"

	"tradelog_backend/models"
	"tradelog_backend/services/sources"

	"go.mongodb.org/mongo-driver/bson"
)

// Service owns the calendar ingestion pipeline: fetch through the
// fallback chain, reconcile against the store, then run the status
// rules. The read path (queries, enrichment) lives in query.go.
type Service struct {
	store EventStore
	chain *sources.FallbackChain
}

// NewService creates a calendar service over the given store and
// source chain
func NewService(store EventStore, chain *sources.FallbackChain) *Service {
	return &Service{store: store, chain: chain}
}

// RunPipeline executes one full sync cycle: fetch, sync, status update.
// An all-empty fetch is a no-op that never touches persisted data. This
// is the entrypoint both the scheduler and the manual trigger call.
func (s *Service) RunPipeline(ctx context.Context) (models.SyncResult, error) {
	log.Println("Starting economic calendar sync cycle")

	window := sources.CurrentWeek(time.Now().UTC())
	events := s.chain.Fetch(ctx, window)
	if len(events) == 0 {
		log.Println("No events fetched from any source, skipping sync")
		return models.SyncResult{}, nil
	}

	result := s.SyncEvents(ctx, events)

	// Status rules run after every sync pass, even a partially failed
	// one, as long as the store is reachable.
	if err := s.UpdateEventStatuses(ctx); err != nil {
		log.Printf("Status update failed: %v", err)
		return result, err
	}

	log.Printf("Sync cycle complete: %d created, %d updated, %d skipped of %d",
		result.Created, result.Updated, result.Skipped, result.Total)
	return result, nil
}

// SyncEvents reconciles fetched events against the store. Events are
// matched by unique_id: unknown ones are inserted, known ones receive a
// field-level diff over actual/forecast/previous/status, and unchanged
// ones are skipped without a write, so replaying an identical batch is
// a pure no-op. A failure on one record is logged and does not abort
// the batch.
func (s *Service) SyncEvents(ctx context.Context, events []models.EconomicEvent) models.SyncResult {
	result := models.SyncResult{Total: len(events)}

	for i := range events {
		event := events[i]

		existing, err := s.store.FindEventByUniqueID(ctx, event.UniqueID)
		if err != nil {
			log.Printf("Error syncing event %s: %v", event.UniqueID, err)
			continue
		}

		if existing == nil {
			now := time.Now().UTC()
			event.CreatedAt = now
			event.UpdatedAt = now
			if err := s.store.InsertEvent(ctx, &event); err != nil {
				log.Printf("Error syncing event %s: %v", event.UniqueID, err)
				continue
			}
			result.Created++
			continue
		}

		fields := diffEventFields(existing, &event)
		if len(fields) == 0 {
			result.Skipped++
			continue
		}

		fields["updated_at"] = time.Now().UTC()
		fields["fetched_at"] = event.FetchedAt
		if err := s.store.UpdateEventFields(ctx, event.UniqueID, fields); err != nil {
			log.Printf("Error syncing event %s: %v", event.UniqueID, err)
			continue
		}
		result.Updated++
	}

	return result
}

// diffEventFields computes the field-level update for an already-stored
// event. Only actual, forecast, previous and status are ever compared;
// identity fields set at creation are never rewritten. Two guards apply:
// a populated actual is never blanked by a source that stopped
// reporting it, and a released event never reverts to upcoming.
func diffEventFields(existing, fetched *models.EconomicEvent) bson.M {
	fields := bson.M{}

	if fetched.Actual != existing.Actual {
		if fetched.Actual != "" || existing.Actual == "" {
			fields["actual"] = fetched.Actual
		}
	}
	if fetched.Forecast != existing.Forecast {
		fields["forecast"] = fetched.Forecast
	}
	if fetched.Previous != existing.Previous {
		fields["previous"] = fetched.Previous
	}
	if fetched.Status != existing.Status && existing.Status != models.EventStatusReleased {
		fields["status"] = fetched.Status
	}

	return fields
}

// UpdateEventStatuses applies the two release rules: an event is
// released once its actual value is present, or once its scheduled time
// has passed with no actual ever reported. Neither rule runs in
// reverse.
func (s *Service) UpdateEventStatuses(ctx context.Context) error {
	now := time.Now().UTC()

	released, err := s.store.ReleaseEventsWithActual(ctx, now)
	if err != nil {
		return err
	}
	if released > 0 {
		log.Printf("Updated %d events to released status", released)
	}

	past, err := s.store.ReleasePastEvents(ctx, now)
	if err != nil {
		return err
	}
	if past > 0 {
		log.Printf("Marked %d past events as released", past)
	}

	return nil
}
