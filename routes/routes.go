package routes

import (
	"tradelog_backend/config"
	"tradelog_backend/controllers"
	"tradelog_backend/services"
	"tradelog_backend/services/calendar"
	"tradelog_backend/services/sources"

	"github.com/gin-gonic/gin"
)

// SetupRoutes sets up all API routes and returns the calendar service
// shared with the scheduler
func SetupRoutes(router *gin.Engine, mongo *services.MongoClient) (*calendar.Service, *calendar.MongoEventStore) {
	store := calendar.NewMongoEventStore(mongo.Database())

	// Sources in priority order: Finnhub has the freshest actuals, the
	// XML feed is the reliable weekly fallback, the scraper is last.
	chain := sources.NewFallbackChain(
		sources.NewFinnhubSource(config.AppConfig.FinnhubAPIKey),
		sources.NewFairEconomySource(),
		sources.NewForexFactorySource(),
	)
	service := calendar.NewService(store, chain)

	calendarController := controllers.NewCalendarController(service, store)

	// API v1 group
	api := router.Group("/api/v1")
	{
		cal := api.Group("/calendar")
		{
			cal.GET("/events", calendarController.GetEvents)
			cal.POST("/events/:id/mark", calendarController.MarkEvent)
			cal.POST("/events/:id/notes", calendarController.AddNote)
			cal.GET("/events/:id/notes", calendarController.GetNotes)
			cal.POST("/events/:id/link-trade", calendarController.LinkTrade)
			cal.GET("/events/:id/linked-trades", calendarController.GetLinkedTrades)
			cal.POST("/reminders", calendarController.CreateReminder)
			cal.GET("/reminders", calendarController.GetReminders)
			cal.DELETE("/reminders/:id", calendarController.DeleteReminder)
			cal.GET("/next-high-impact", calendarController.NextHighImpact)
			cal.GET("/cron/sync", calendarController.TriggerSync)
		}
	}

	return service, store
}
