package calendar

import (
	"context"
	"reflect"
	"testing"
	"time"

	"tradelog_backend/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestBuildEventQuery(t *testing.T) {
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		filter models.EventFilter
		want   bson.M
	}{
		{
			name:   "empty filter matches everything",
			filter: models.EventFilter{},
			want:   bson.M{},
		},
		{
			name:   "date range",
			filter: models.EventFilter{StartDate: &start, EndDate: &end},
			want:   bson.M{"event_date": bson.M{"$gte": start, "$lte": end}},
		},
		{
			name:   "currencies",
			filter: models.EventFilter{Currencies: []string{"USD", "EUR"}},
			want:   bson.M{"currency": bson.M{"$in": []string{"USD", "EUR"}}},
		},
		{
			name:   "impact list",
			filter: models.EventFilter{Impacts: []string{"high", "medium"}},
			want:   bson.M{"impact_level": bson.M{"$in": []string{"high", "medium"}}},
		},
		{
			name:   "high impact only overrides impact list",
			filter: models.EventFilter{HighImpactOnly: true, Impacts: []string{"low"}},
			want:   bson.M{"impact_level": models.ImpactHigh},
		},
		{
			name:   "search is literal and case-insensitive",
			filter: models.EventFilter{Search: "CPI (MoM)"},
			want:   bson.M{"event_name": primitive.Regex{Pattern: `CPI \(MoM\)`, Options: "i"}},
		},
		{
			name:   "status",
			filter: models.EventFilter{Status: models.EventStatusUpcoming},
			want:   bson.M{"status": models.EventStatusUpcoming},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildEventQuery(tt.filter)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("buildEventQuery() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEventsWithFiltersEnrichment(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)
	t0 := time.Now().UTC().Add(time.Hour)

	svc.SyncEvents(context.Background(), []models.EconomicEvent{
		fetchedEvent("e1", t0),
		fetchedEvent("e2", t0.Add(time.Hour)),
	})

	markedID := store.events["e1"].ID.Hex()
	store.marks[annotationKey("user-1", markedID)] = true
	store.notes[annotationKey("user-1", markedID)] = 2
	store.links[annotationKey("user-1", markedID)] = 1

	events, err := svc.GetEventsWithFilters(context.Background(), "user-1", models.EventFilter{}, 0)
	if err != nil {
		t.Fatalf("GetEventsWithFilters: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}

	first := events[0]
	if first.UniqueID != "e1" {
		t.Fatalf("events not ordered by time, first = %s", first.UniqueID)
	}
	if !first.IsMarked || first.NotesCount != 2 || first.LinkedTradesCount != 1 {
		t.Errorf("enrichment wrong: marked=%v notes=%d links=%d", first.IsMarked, first.NotesCount, first.LinkedTradesCount)
	}
	if second := events[1]; second.IsMarked || second.NotesCount != 0 || second.LinkedTradesCount != 0 {
		t.Errorf("unannotated event picked up data: %+v", second)
	}

	// annotations belong to the requesting user only
	other, err := svc.GetEventsWithFilters(context.Background(), "user-2", models.EventFilter{}, 0)
	if err != nil {
		t.Fatalf("GetEventsWithFilters: %v", err)
	}
	if other[0].IsMarked || other[0].NotesCount != 0 {
		t.Errorf("another user sees user-1 annotations: %+v", other[0])
	}
}

func TestNextHighImpact(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)
	now := time.Now().UTC()

	later := fetchedEvent("later", now.Add(4*time.Hour))
	sooner := fetchedEvent("sooner", now.Add(time.Hour))
	lowImpact := fetchedEvent("low", now.Add(30*time.Minute))
	lowImpact.ImpactLevel = models.ImpactLow
	released := fetchedEvent("released", now.Add(10*time.Minute))
	released.Status = models.EventStatusReleased
	svc.SyncEvents(context.Background(), []models.EconomicEvent{later, sooner, lowImpact, released})

	next, err := svc.NextHighImpact(context.Background(), 0)
	if err != nil {
		t.Fatalf("NextHighImpact: %v", err)
	}
	if next == nil || next.UniqueID != "sooner" {
		t.Fatalf("next = %+v, want sooner", next)
	}
	if next.EventTimeLocal != nil {
		t.Errorf("offset 0 must not set a local time")
	}

	empty := NewService(newFakeStore(), nil)
	next, err = empty.NextHighImpact(context.Background(), 0)
	if err != nil {
		t.Fatalf("NextHighImpact: %v", err)
	}
	if next != nil {
		t.Errorf("empty store returned %+v, want nil", next)
	}
}

func TestApplyTimezone(t *testing.T) {
	utc := time.Date(2026, 3, 6, 13, 30, 0, 0, time.UTC)
	event := models.EnrichedEvent{EconomicEvent: models.EconomicEvent{EventTimeUTC: utc}}

	applyTimezone(&event, 0)
	if event.EventTimeLocal != nil {
		t.Errorf("offset 0 set local time %v", event.EventTimeLocal)
	}

	applyTimezone(&event, 5.5)
	want := time.Date(2026, 3, 6, 19, 0, 0, 0, time.UTC)
	if event.EventTimeLocal == nil || !event.EventTimeLocal.Equal(want) {
		t.Errorf("local time = %v, want %v", event.EventTimeLocal, want)
	}

	event.EventTimeLocal = nil
	applyTimezone(&event, -7)
	want = time.Date(2026, 3, 6, 6, 30, 0, 0, time.UTC)
	if event.EventTimeLocal == nil || !event.EventTimeLocal.Equal(want) {
		t.Errorf("local time = %v, want %v", event.EventTimeLocal, want)
	}
}
