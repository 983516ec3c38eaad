package controllers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"tradelog_backend/models"
	"tradelog_backend/services/calendar"

	"github.com/gin-gonic/gin"
)

// CalendarController exposes the economic-calendar subsystem over HTTP.
// Authentication and subscription tiering live in front of this
// service; callers arrive with pre-narrowed filter parameters and a
// user_id, and this controller applies them as given.
type CalendarController struct {
	service *calendar.Service
	store   *calendar.MongoEventStore
}

// NewCalendarController creates a new calendar controller
func NewCalendarController(service *calendar.Service, store *calendar.MongoEventStore) *CalendarController {
	return &CalendarController{service: service, store: store}
}

// GetEvents returns filtered, user-enriched calendar events
// GET /api/v1/calendar/events
func (cc *CalendarController) GetEvents(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	filter, err := parseEventFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	timezoneOffset, err := strconv.ParseFloat(c.DefaultQuery("timezone_offset", "0"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid timezone_offset"})
		return
	}

	events, err := cc.service.GetEventsWithFilters(c.Request.Context(), userID, filter, timezoneOffset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch calendar events"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(events),
		"events":  events,
	})
}

// MarkEvent marks or unmarks an event as important
// POST /api/v1/calendar/events/:id/mark
func (cc *CalendarController) MarkEvent(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	var req struct {
		IsMarked bool `json:"is_marked"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	modified, err := cc.store.SetEventMark(c.Request.Context(), userID, c.Param("id"), req.IsMarked)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark event"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"is_marked": req.IsMarked,
		"modified":  modified,
	})
}

// AddNote adds or updates the user's note for an event
// POST /api/v1/calendar/events/:id/notes
func (cc *CalendarController) AddNote(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	var req struct {
		NoteText string `json:"note_text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "note_text is required"})
		return
	}

	note, err := cc.store.UpsertEventNote(c.Request.Context(), userID, c.Param("id"), req.NoteText)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save note"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "note": note})
}

// GetNotes returns the user's notes for an event
// GET /api/v1/calendar/events/:id/notes
func (cc *CalendarController) GetNotes(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	notes, err := cc.store.ListEventNotes(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch notes"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(notes),
		"notes":   notes,
	})
}

// LinkTrade links an event to one of the user's trades
// POST /api/v1/calendar/events/:id/link-trade
func (cc *CalendarController) LinkTrade(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	var req struct {
		TradeID string `json:"trade_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "trade_id is required"})
		return
	}

	link, err := cc.store.LinkEventToTrade(c.Request.Context(), userID, c.Param("id"), req.TradeID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to link trade"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "link": link})
}

// GetLinkedTrades returns the trades linked to an event
// GET /api/v1/calendar/events/:id/linked-trades
func (cc *CalendarController) GetLinkedTrades(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	trades, err := cc.store.ListLinkedTrades(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch linked trades"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(trades),
		"trades":  trades,
	})
}

// CreateReminder creates a reminder for an event
// POST /api/v1/calendar/reminders
func (cc *CalendarController) CreateReminder(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	var req struct {
		EventID       string `json:"event_id" binding:"required"`
		MinutesBefore int    `json:"minutes_before" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "event_id and minutes_before are required"})
		return
	}

	reminder, err := cc.store.CreateReminder(c.Request.Context(), userID, req.EventID, req.MinutesBefore)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create reminder"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "reminder": reminder})
}

// GetReminders returns the user's pending reminders
// GET /api/v1/calendar/reminders
func (cc *CalendarController) GetReminders(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	reminders, err := cc.store.ListUserReminders(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch reminders"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"count":     len(reminders),
		"reminders": reminders,
	})
}

// DeleteReminder deletes one of the user's reminders
// DELETE /api/v1/calendar/reminders/:id
func (cc *CalendarController) DeleteReminder(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	deleted, err := cc.store.DeleteReminder(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to delete reminder"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       deleted > 0,
		"deleted_count": deleted,
	})
}

// NextHighImpact returns the next upcoming high-impact event for the
// countdown timer
// GET /api/v1/calendar/next-high-impact
func (cc *CalendarController) NextHighImpact(c *gin.Context) {
	timezoneOffset, err := strconv.ParseFloat(c.DefaultQuery("timezone_offset", "0"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid timezone_offset"})
		return
	}

	event, err := cc.service.NextHighImpact(c.Request.Context(), timezoneOffset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch next high-impact event"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "event": event})
}

// TriggerSync runs a full sync cycle on demand. This is what an
// external cron (or an operator) calls when the in-process scheduler is
// unavailable.
// GET /api/v1/calendar/cron/sync
func (cc *CalendarController) TriggerSync(c *gin.Context) {
	result, err := cc.service.RunPipeline(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Calendar sync failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Calendar sync triggered successfully",
		"result":  result,
	})
}

// parseEventFilter builds the event filter from optional query
// parameters. Unparseable dates are a caller error, not a crash.
func parseEventFilter(c *gin.Context) (models.EventFilter, error) {
	var filter models.EventFilter

	if raw := c.Query("start_date"); raw != "" {
		t, err := parseDateParam(raw)
		if err != nil {
			return filter, err
		}
		filter.StartDate = &t
	}
	if raw := c.Query("end_date"); raw != "" {
		t, err := parseDateParam(raw)
		if err != nil {
			return filter, err
		}
		filter.EndDate = &t
	}

	if raw := c.Query("currencies"); raw != "" {
		filter.Currencies = splitCSV(raw)
	}
	if raw := c.Query("impacts"); raw != "" {
		filter.Impacts = splitCSV(raw)
	}

	filter.HighImpactOnly = c.Query("high_impact_only") == "true"
	filter.Search = c.Query("search")
	filter.Status = c.Query("status")

	return filter, nil
}

// parseDateParam accepts plain dates and full RFC 3339 timestamps
func parseDateParam(raw string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
