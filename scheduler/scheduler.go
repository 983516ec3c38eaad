package scheduler

// Package scheduler provides scheduled job management for the tradelog backend.
// It handles:
// - Periodic economic calendar sync (fetch, reconcile, status update)
// - An initial calendar fetch shortly after startup
// - Sweeping due event reminders
//
// The main scheduler is implemented in jobs.go
