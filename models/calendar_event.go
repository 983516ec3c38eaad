package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Impact levels for economic events
const (
	ImpactLow    = "low"
	ImpactMedium = "medium"
	ImpactHigh   = "high"
)

// Event lifecycle statuses. Status is monotonic: once an event is
// released it never goes back to upcoming.
const (
	EventStatusUpcoming = "upcoming"
	EventStatusReleased = "released"
)

// EconomicEvent represents one scheduled macroeconomic release.
// UniqueID is the natural key that identifies the same logical event
// across repeated fetch cycles; after creation only Actual, Forecast,
// Previous and Status (plus bookkeeping timestamps) are ever rewritten.
type EconomicEvent struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UniqueID     string             `bson:"unique_id" json:"unique_id"`
	EventDate    time.Time          `bson:"event_date" json:"event_date"`
	EventTimeUTC time.Time          `bson:"event_time_utc" json:"event_time_utc"`
	Country      string             `bson:"country" json:"country"`
	Currency     string             `bson:"currency" json:"currency"`
	ImpactLevel  string             `bson:"impact_level" json:"impact_level"`
	EventName    string             `bson:"event_name" json:"event_name"`
	Actual       string             `bson:"actual" json:"actual"`
	Forecast     string             `bson:"forecast" json:"forecast"`
	Previous     string             `bson:"previous" json:"previous"`
	Status       string             `bson:"status" json:"status"`
	CreatedAt    time.Time          `bson:"created_at,omitempty" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at,omitempty" json:"updated_at"`
	FetchedAt    time.Time          `bson:"fetched_at" json:"fetched_at"`
}

// EnrichedEvent is an EconomicEvent decorated with per-user annotation
// data and an optional timezone-shifted local time for display.
type EnrichedEvent struct {
	EconomicEvent     `bson:",inline"`
	IsMarked          bool       `json:"is_marked"`
	NotesCount        int64      `json:"notes_count"`
	LinkedTradesCount int64      `json:"linked_trades_count"`
	EventTimeLocal    *time.Time `json:"event_time_local,omitempty"`
}

// EventMark flags an event as important for one user
type EventMark struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID    string             `bson:"user_id" json:"user_id"`
	EventID   string             `bson:"event_id" json:"event_id"`
	IsMarked  bool               `bson:"is_marked" json:"is_marked"`
	CreatedAt time.Time          `bson:"created_at,omitempty" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at,omitempty" json:"updated_at"`
}

// EventNote is a free-text note a user attached to an event
type EventNote struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID    string             `bson:"user_id" json:"user_id"`
	EventID   string             `bson:"event_id" json:"event_id"`
	NoteText  string             `bson:"note_text" json:"note_text"`
	CreatedAt time.Time          `bson:"created_at,omitempty" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at,omitempty" json:"updated_at"`
}

// EventReminder schedules a notification relative to an event's release
// time. ReminderTime is derived once at creation: event_time_utc minus
// MinutesBefore.
type EventReminder struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID        string             `bson:"user_id" json:"user_id"`
	EventID       string             `bson:"event_id" json:"event_id"`
	EventTime     time.Time          `bson:"event_time" json:"event_time"`
	MinutesBefore int                `bson:"minutes_before" json:"minutes_before"`
	ReminderTime  time.Time          `bson:"reminder_time" json:"reminder_time"`
	IsSent        bool               `bson:"is_sent" json:"is_sent"`
	CreatedAt     time.Time          `bson:"created_at,omitempty" json:"created_at"`
}

// EventTradeLink associates an event with one of the user's trades.
// Creating the same link twice is a no-op returning the existing link.
type EventTradeLink struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID    string             `bson:"user_id" json:"user_id"`
	EventID   string             `bson:"event_id" json:"event_id"`
	TradeID   string             `bson:"trade_id" json:"trade_id"`
	CreatedAt time.Time          `bson:"created_at,omitempty" json:"created_at"`
}

// EventFilter carries the optional query inputs for the calendar read
// path. Callers that enforce access tiers pass already-narrowed values;
// this subsystem applies them as given.
type EventFilter struct {
	StartDate      *time.Time
	EndDate        *time.Time
	Currencies     []string
	Impacts        []string
	HighImpactOnly bool
	Search         string
	Status         string
}

// SyncResult reports what one sync pass did, for logging and for the
// manual trigger endpoint.
type SyncResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Total   int `json:"total"`
}
