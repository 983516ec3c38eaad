package scheduler

import (
	"context"
	"log"
	"time"

	"tradelog_backend/services"
	"tradelog_backend/services/calendar"

	"github.com/go-co-op/gocron"
)

// How long after process start the first sync cycle fires. Gives the
// HTTP server time to come up before the scraper can hold a worker.
const initialSyncDelay = 10 * time.Second

// Scheduler manages scheduled jobs
type Scheduler struct {
	cron         *gocron.Scheduler
	mongo        *services.MongoClient
	service      *calendar.Service
	store        *calendar.MongoEventStore
	syncInterval int
	initialTimer *time.Timer
}

// NewScheduler creates a new scheduler instance. syncInterval is the
// calendar sync cadence in minutes.
func NewScheduler(mongo *services.MongoClient, service *calendar.Service, store *calendar.MongoEventStore, syncInterval int) *Scheduler {
	return &Scheduler{
		cron:         gocron.NewScheduler(time.UTC),
		mongo:        mongo,
		service:      service,
		store:        store,
		syncInterval: syncInterval,
	}
}

// Start starts all scheduled jobs. The subsystem still works without
// the scheduler: every job here can also be reached through a manual
// trigger, so a scheduler failure degrades freshness, nothing else.
func (s *Scheduler) Start() {
	log.Println("Starting scheduler...")

	// Full calendar pipeline on a fixed interval
	s.cron.Every(s.syncInterval).Minutes().Do(func() {
		s.runCalendarSync()
	})

	// Sweep due reminders every minute
	s.cron.Every(1).Minute().Do(func() {
		s.sweepDueReminders()
	})

	s.cron.StartAsync()

	// One-shot initial fetch shortly after startup
	s.initialTimer = time.AfterFunc(initialSyncDelay, s.runCalendarSync)

	log.Println("Scheduler started successfully")
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	if s.initialTimer != nil {
		s.initialTimer.Stop()
	}
	s.cron.Stop()
	log.Println("Scheduler stopped")
}

// runCalendarSync executes one fetch/sync/status-update cycle. A store
// outage aborts the cycle; already-committed upserts stay committed and
// the next tick retries.
func (s *Scheduler) runCalendarSync() {
	if !s.mongo.IsConfigured() {
		log.Println("Calendar sync skipped: store not reachable")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if _, err := s.service.RunPipeline(ctx); err != nil {
		log.Printf("Calendar sync cycle failed: %v", err)
	}
}

// sweepDueReminders marks reminders whose time has arrived as sent.
// Delivery itself (push, email) belongs to the notification service;
// this job only advances the is_sent flag so a reminder fires once.
func (s *Scheduler) sweepDueReminders() {
	if !s.mongo.IsConfigured() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	due, err := s.store.DueReminders(ctx, time.Now().UTC())
	if err != nil {
		log.Printf("Error loading due reminders: %v", err)
		return
	}

	for _, reminder := range due {
		log.Printf("Reminder due for user %s, event %s (%d minutes before)",
			reminder.UserID, reminder.EventID, reminder.MinutesBefore)
		if err := s.store.MarkReminderSent(ctx, reminder.ID); err != nil {
			log.Printf("Error marking reminder sent: %v", err)
		}
	}
}
