package calendar

import (
	"context"
	"fmt"
	"time"

	"tradelog_backend/models"
	"tradelog_backend/services"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Per-user annotation stores: marks, notes, reminders and trade links.
// All of them are keyed by (user_id, event_id[, ...]) and are written by
// direct user action, independent of the sync pipeline.

func (s *MongoEventStore) marks() *mongo.Collection {
	return s.db.Collection(services.MongoMarksCollection)
}

func (s *MongoEventStore) notes() *mongo.Collection {
	return s.db.Collection(services.MongoNotesCollection)
}

func (s *MongoEventStore) reminders() *mongo.Collection {
	return s.db.Collection(services.MongoRemindersCollection)
}

func (s *MongoEventStore) tradeLinks() *mongo.Collection {
	return s.db.Collection(services.MongoTradeLinksCollection)
}

// SetEventMark marks or unmarks an event as important for a user,
// upserting on the (user_id, event_id) pair
func (s *MongoEventStore) SetEventMark(ctx context.Context, userID, eventID string, isMarked bool) (bool, error) {
	now := time.Now().UTC()
	res, err := s.marks().UpdateOne(ctx,
		bson.M{"user_id": userID, "event_id": eventID},
		bson.M{
			"$set":         bson.M{"is_marked": isMarked, "updated_at": now},
			"$setOnInsert": bson.M{"created_at": now},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark event %s: %w", eventID, err)
	}
	return res.ModifiedCount > 0, nil
}

// IsEventMarked reports whether the user has flagged the event
func (s *MongoEventStore) IsEventMarked(ctx context.Context, userID, eventID string) (bool, error) {
	var mark models.EventMark
	err := s.marks().FindOne(ctx, bson.M{"user_id": userID, "event_id": eventID}).Decode(&mark)
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return mark.IsMarked, nil
}

// UpsertEventNote updates the user's note for the event in place if one
// already exists for the pair, otherwise inserts a new note
func (s *MongoEventStore) UpsertEventNote(ctx context.Context, userID, eventID, noteText string) (*models.EventNote, error) {
	now := time.Now().UTC()

	var existing models.EventNote
	err := s.notes().FindOne(ctx, bson.M{"user_id": userID, "event_id": eventID}).Decode(&existing)
	if err == nil {
		_, err = s.notes().UpdateOne(ctx,
			bson.M{"_id": existing.ID},
			bson.M{"$set": bson.M{"note_text": noteText, "updated_at": now}},
		)
		if err != nil {
			return nil, fmt.Errorf("failed to update note: %w", err)
		}
		existing.NoteText = noteText
		existing.UpdatedAt = now
		return &existing, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, fmt.Errorf("failed to look up note: %w", err)
	}

	note := models.EventNote{
		UserID:    userID,
		EventID:   eventID,
		NoteText:  noteText,
		CreatedAt: now,
		UpdatedAt: now,
	}
	res, err := s.notes().InsertOne(ctx, note)
	if err != nil {
		return nil, fmt.Errorf("failed to insert note: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		note.ID = oid
	}
	return &note, nil
}

// ListEventNotes returns the user's notes for an event, newest first
func (s *MongoEventStore) ListEventNotes(ctx context.Context, userID, eventID string) ([]models.EventNote, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.notes().Find(ctx, bson.M{"user_id": userID, "event_id": eventID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer cursor.Close(ctx)

	var notes []models.EventNote
	if err := cursor.All(ctx, &notes); err != nil {
		return nil, fmt.Errorf("failed to decode notes: %w", err)
	}
	return notes, nil
}

// CountEventNotes counts the user's notes for an event
func (s *MongoEventStore) CountEventNotes(ctx context.Context, userID, eventID string) (int64, error) {
	return s.notes().CountDocuments(ctx, bson.M{"user_id": userID, "event_id": eventID})
}

// LinkEventToTrade associates an event with a trade. Creating a link
// that already exists is a no-op returning the existing document.
func (s *MongoEventStore) LinkEventToTrade(ctx context.Context, userID, eventID, tradeID string) (*models.EventTradeLink, error) {
	key := bson.M{"user_id": userID, "event_id": eventID, "trade_id": tradeID}

	var existing models.EventTradeLink
	err := s.tradeLinks().FindOne(ctx, key).Decode(&existing)
	if err == nil {
		return &existing, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, fmt.Errorf("failed to look up trade link: %w", err)
	}

	link := models.EventTradeLink{
		UserID:    userID,
		EventID:   eventID,
		TradeID:   tradeID,
		CreatedAt: time.Now().UTC(),
	}
	res, err := s.tradeLinks().InsertOne(ctx, link)
	if err != nil {
		return nil, fmt.Errorf("failed to insert trade link: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		link.ID = oid
	}
	return &link, nil
}

// CountTradeLinks counts the user's trade links for an event
func (s *MongoEventStore) CountTradeLinks(ctx context.Context, userID, eventID string) (int64, error) {
	return s.tradeLinks().CountDocuments(ctx, bson.M{"user_id": userID, "event_id": eventID})
}

// ListLinkedTrades returns the trade documents linked to an event.
// Trades live in their own collection owned by the trading module, so
// they are returned as raw documents.
func (s *MongoEventStore) ListLinkedTrades(ctx context.Context, userID, eventID string) ([]bson.M, error) {
	cursor, err := s.tradeLinks().Find(ctx, bson.M{"user_id": userID, "event_id": eventID})
	if err != nil {
		return nil, fmt.Errorf("failed to query trade links: %w", err)
	}
	defer cursor.Close(ctx)

	var links []models.EventTradeLink
	if err := cursor.All(ctx, &links); err != nil {
		return nil, fmt.Errorf("failed to decode trade links: %w", err)
	}
	if len(links) == 0 {
		return []bson.M{}, nil
	}

	tradeIDs := make([]string, 0, len(links))
	for _, link := range links {
		tradeIDs = append(tradeIDs, link.TradeID)
	}

	tradeCursor, err := s.db.Collection(services.MongoTradesCollection).
		Find(ctx, bson.M{"trade_no": bson.M{"$in": tradeIDs}})
	if err != nil {
		return nil, fmt.Errorf("failed to query linked trades: %w", err)
	}
	defer tradeCursor.Close(ctx)

	var trades []bson.M
	if err := tradeCursor.All(ctx, &trades); err != nil {
		return nil, fmt.Errorf("failed to decode linked trades: %w", err)
	}
	return trades, nil
}

// CreateReminder schedules a reminder minutes_before the event's
// release time. The reminder time is derived once at creation.
func (s *MongoEventStore) CreateReminder(ctx context.Context, userID, eventID string, minutesBefore int) (*models.EventReminder, error) {
	oid, err := primitive.ObjectIDFromHex(eventID)
	if err != nil {
		return nil, fmt.Errorf("invalid event id %q: %w", eventID, err)
	}

	var event models.EconomicEvent
	if err := s.events().FindOne(ctx, bson.M{"_id": oid}).Decode(&event); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("event %s not found", eventID)
		}
		return nil, fmt.Errorf("failed to load event %s: %w", eventID, err)
	}

	reminder := models.EventReminder{
		UserID:        userID,
		EventID:       eventID,
		EventTime:     event.EventTimeUTC,
		MinutesBefore: minutesBefore,
		ReminderTime:  event.EventTimeUTC.Add(-time.Duration(minutesBefore) * time.Minute),
		IsSent:        false,
		CreatedAt:     time.Now().UTC(),
	}
	res, err := s.reminders().InsertOne(ctx, reminder)
	if err != nil {
		return nil, fmt.Errorf("failed to insert reminder: %w", err)
	}
	if roid, ok := res.InsertedID.(primitive.ObjectID); ok {
		reminder.ID = roid
	}
	return &reminder, nil
}

// ListUserReminders returns the user's pending reminders, soonest first
func (s *MongoEventStore) ListUserReminders(ctx context.Context, userID string) ([]models.EventReminder, error) {
	opts := options.Find().SetSort(bson.D{{Key: "reminder_time", Value: 1}})
	cursor, err := s.reminders().Find(ctx, bson.M{"user_id": userID, "is_sent": false}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query reminders: %w", err)
	}
	defer cursor.Close(ctx)

	var reminders []models.EventReminder
	if err := cursor.All(ctx, &reminders); err != nil {
		return nil, fmt.Errorf("failed to decode reminders: %w", err)
	}
	return reminders, nil
}

// DeleteReminder removes a reminder owned by the user
func (s *MongoEventStore) DeleteReminder(ctx context.Context, reminderID, userID string) (int64, error) {
	oid, err := primitive.ObjectIDFromHex(reminderID)
	if err != nil {
		return 0, fmt.Errorf("invalid reminder id %q: %w", reminderID, err)
	}
	res, err := s.reminders().DeleteOne(ctx, bson.M{"_id": oid, "user_id": userID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete reminder: %w", err)
	}
	return res.DeletedCount, nil
}

// DueReminders returns unsent reminders whose reminder time has passed
func (s *MongoEventStore) DueReminders(ctx context.Context, now time.Time) ([]models.EventReminder, error) {
	opts := options.Find().SetSort(bson.D{{Key: "reminder_time", Value: 1}})
	cursor, err := s.reminders().Find(ctx, bson.M{
		"is_sent":       false,
		"reminder_time": bson.M{"$lte": now},
	}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query due reminders: %w", err)
	}
	defer cursor.Close(ctx)

	var reminders []models.EventReminder
	if err := cursor.All(ctx, &reminders); err != nil {
		return nil, fmt.Errorf("failed to decode due reminders: %w", err)
	}
	return reminders, nil
}

// MarkReminderSent flags a reminder as delivered
func (s *MongoEventStore) MarkReminderSent(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.reminders().UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"is_sent": true}},
	)
	if err != nil {
		return fmt.Errorf("failed to mark reminder sent: %w", err)
	}
	return nil
}
