package calendar

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"tradelog_backend/models"
	"tradelog_backend/services"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EventStore is the persistence surface the calendar service needs.
// MongoEventStore is the production implementation; tests substitute an
// in-memory fake.
type EventStore interface {
	FindEventByUniqueID(ctx context.Context, uniqueID string) (*models.EconomicEvent, error)
	InsertEvent(ctx context.Context, event *models.EconomicEvent) error
	UpdateEventFields(ctx context.Context, uniqueID string, fields bson.M) error
	ReleaseEventsWithActual(ctx context.Context, now time.Time) (int64, error)
	ReleasePastEvents(ctx context.Context, now time.Time) (int64, error)
	FindEvents(ctx context.Context, filter models.EventFilter) ([]models.EconomicEvent, error)
	NextHighImpactEvent(ctx context.Context, now time.Time) (*models.EconomicEvent, error)
	IsEventMarked(ctx context.Context, userID, eventID string) (bool, error)
	CountEventNotes(ctx context.Context, userID, eventID string) (int64, error)
	CountTradeLinks(ctx context.Context, userID, eventID string) (int64, error)
}

// MongoEventStore persists events and their per-user annotations
type MongoEventStore struct {
	db *mongo.Database
}

// NewMongoEventStore creates an event store over the given database
func NewMongoEventStore(db *mongo.Database) *MongoEventStore {
	return &MongoEventStore{db: db}
}

func (s *MongoEventStore) events() *mongo.Collection {
	return s.db.Collection(services.MongoEventsCollection)
}

// FindEventByUniqueID looks up an event by its natural key. A missing
// event is (nil, nil), not an error.
func (s *MongoEventStore) FindEventByUniqueID(ctx context.Context, uniqueID string) (*models.EconomicEvent, error) {
	var event models.EconomicEvent
	err := s.events().FindOne(ctx, bson.M{"unique_id": uniqueID}).Decode(&event)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up event %s: %w", uniqueID, err)
	}
	return &event, nil
}

// InsertEvent creates a new event document
func (s *MongoEventStore) InsertEvent(ctx context.Context, event *models.EconomicEvent) error {
	res, err := s.events().InsertOne(ctx, event)
	if err != nil {
		return fmt.Errorf("failed to insert event %s: %w", event.UniqueID, err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		event.ID = oid
	}
	return nil
}

// UpdateEventFields applies a field-level $set to the event with the
// given natural key
func (s *MongoEventStore) UpdateEventFields(ctx context.Context, uniqueID string, fields bson.M) error {
	_, err := s.events().UpdateOne(ctx, bson.M{"unique_id": uniqueID}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("failed to update event %s: %w", uniqueID, err)
	}
	return nil
}

// ReleaseEventsWithActual flips upcoming events whose actual value has
// arrived to released
func (s *MongoEventStore) ReleaseEventsWithActual(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.events().UpdateMany(ctx,
		bson.M{
			"status": models.EventStatusUpcoming,
			"actual": bson.M{"$nin": bson.A{nil, ""}},
		},
		bson.M{"$set": bson.M{
			"status":     models.EventStatusReleased,
			"updated_at": now,
		}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to release events with actuals: %w", err)
	}
	return res.ModifiedCount, nil
}

// ReleasePastEvents flips upcoming events whose release time has passed
// without an actual ever being reported
func (s *MongoEventStore) ReleasePastEvents(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.events().UpdateMany(ctx,
		bson.M{
			"status":         models.EventStatusUpcoming,
			"event_time_utc": bson.M{"$lt": now},
			"actual":         bson.M{"$in": bson.A{nil, ""}},
		},
		bson.M{"$set": bson.M{
			"status":     models.EventStatusReleased,
			"updated_at": now,
		}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to release past events: %w", err)
	}
	return res.ModifiedCount, nil
}

// FindEvents returns events matching the filter, ordered by release time
func (s *MongoEventStore) FindEvents(ctx context.Context, filter models.EventFilter) ([]models.EconomicEvent, error) {
	opts := options.Find().SetSort(bson.D{{Key: "event_time_utc", Value: 1}})
	cursor, err := s.events().Find(ctx, buildEventQuery(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer cursor.Close(ctx)

	var events []models.EconomicEvent
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode events: %w", err)
	}
	return events, nil
}

// NextHighImpactEvent returns the earliest upcoming high-impact event at
// or after now, or (nil, nil) when there is none
func (s *MongoEventStore) NextHighImpactEvent(ctx context.Context, now time.Time) (*models.EconomicEvent, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "event_time_utc", Value: 1}})
	var event models.EconomicEvent
	err := s.events().FindOne(ctx, bson.M{
		"impact_level":   models.ImpactHigh,
		"event_time_utc": bson.M{"$gte": now},
		"status":         models.EventStatusUpcoming,
	}, opts).Decode(&event)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find next high-impact event: %w", err)
	}
	return &event, nil
}

// buildEventQuery translates the caller's filter into a Mongo query.
// Callers enforcing access tiers pass pre-narrowed values; nothing here
// decides tiering policy.
func buildEventQuery(f models.EventFilter) bson.M {
	query := bson.M{}

	if f.StartDate != nil || f.EndDate != nil {
		dateRange := bson.M{}
		if f.StartDate != nil {
			dateRange["$gte"] = *f.StartDate
		}
		if f.EndDate != nil {
			dateRange["$lte"] = *f.EndDate
		}
		query["event_date"] = dateRange
	}

	if len(f.Currencies) > 0 {
		query["currency"] = bson.M{"$in": f.Currencies}
	}

	if f.HighImpactOnly {
		query["impact_level"] = models.ImpactHigh
	} else if len(f.Impacts) > 0 {
		query["impact_level"] = bson.M{"$in": f.Impacts}
	}

	if f.Search != "" {
		// Case-insensitive substring match; the search term is literal,
		// not a user-supplied pattern.
		query["event_name"] = primitive.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
	}

	if f.Status != "" {
		query["status"] = f.Status
	}

	return query
}
