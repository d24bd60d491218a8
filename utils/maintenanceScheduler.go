package utils

import (
	"lms/database"
	"lms/services/progress"
	"lms/services/ratelimit"
	"log"

	"github.com/robfig/cron/v3"
)

// InitializeMaintenanceScheduler sets up the periodic maintenance jobs:
// rate-limit bucket pruning every 10 minutes and a nightly progress dedup.
func InitializeMaintenanceScheduler() {
	log.Println("[MAINTENANCE] Initializing maintenance scheduler...")

	c := cron.New()

	// Prune rate-limit buckets every 10 minutes
	c.AddFunc("*/10 * * * *", func() {
		limiter := ratelimit.NewLimiter(database.Database.Db)
		if err := limiter.Sweep(); err != nil {
			log.Printf("[MAINTENANCE] Rate limit sweep failed: %v", err)
		}
	})

	// Reconcile duplicated progress rows nightly at 3 AM
	c.AddFunc("0 3 * * *", func() {
		log.Println("[MAINTENANCE] Running nightly progress dedup...")
		recorder := progress.NewRecorder(database.Database.Db)
		stats, err := recorder.DedupAll()
		if err != nil {
			log.Printf("[MAINTENANCE] Progress dedup failed: %v", err)
			return
		}
		log.Printf("[MAINTENANCE] Progress dedup scanned %d groups, removed %d duplicates, skipped %d orphaned rows",
			stats.GroupsScanned, stats.RowsRemoved, stats.RowsSkipped)
	})

	c.Start()
	log.Println("[MAINTENANCE] Maintenance scheduler started")
}
