package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"stock_recommendation_backend/models"
	"stock_recommendation_backend/services"
	"stock_recommendation_backend/services/cache"
	"stock_recommendation_backend/services/recommend"
)

// History retention window for persisted runs
const historyRetentionDays = 90

// Scheduler manages scheduled recommendation jobs
type Scheduler struct {
	cron    *gocron.Scheduler
	service *services.RecommendationService
}

// NewScheduler creates a new scheduler instance
func NewScheduler(service *services.RecommendationService) *Scheduler {
	return &Scheduler{
		cron:    gocron.NewScheduler(istLocation()),
		service: service,
	}
}

// Start starts all scheduled jobs
func (s *Scheduler) Start() {
	log.Println("Starting scheduler...")

	// Intraday strategies every 15 minutes while the market is open
	s.cron.Every(15).Minutes().Do(func() {
		if !cache.IsMarketOpen(time.Now()) {
			return
		}
		s.runStrategy(models.StrategyShortTerm)
		s.runStrategy(models.StrategySwing)
	})

	// Long-term strategy once daily after market close
	s.cron.Every(1).Day().At("16:00").Do(func() {
		s.runStrategy(models.StrategyLongTerm)
	})

	// Cleanup old history weekly on Sunday at 01:00
	s.cron.Every(1).Week().Sunday().At("01:00").Do(func() {
		s.cleanupHistory()
	})

	s.cron.StartAsync()
	log.Println("Scheduler started successfully")
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("Scheduler stopped")
}

// runStrategy executes one aggregation run, persists it, and logs the
// execution to the cron tracking store. Failures never propagate: the next
// tick simply tries again.
func (s *Scheduler) runStrategy(strategy models.Strategy) {
	log.Printf("Running scheduled aggregation for %s...", strategy)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	startedAt := time.Now()
	params := recommend.Params{Strategy: strategy}

	executionID, batch, err := s.service.GenerateAndPersist(ctx, params)

	run := services.MongoCronRun{
		ExecutionID: executionID,
		Strategy:    strategy.String(),
		StartedAt:   startedAt,
		FinishedAt:  time.Now(),
	}

	if err != nil {
		run.Status = "failed"
		run.Error = err.Error()
		log.Printf("Scheduled aggregation for %s failed: %v", strategy, err)
	} else {
		run.Status = "completed"
		run.BatchSize = batch.TotalCount
		log.Printf("Scheduled aggregation for %s completed: %d candidates", strategy, batch.TotalCount)
	}

	if services.GlobalMongoClient != nil && services.GlobalMongoClient.IsConfigured() {
		if err := services.GlobalMongoClient.LogCronRun(run); err != nil {
			log.Printf("Failed to log cron run %s: %v", executionID, err)
		}
	}
}

// cleanupHistory removes history rows past the retention window
func (s *Scheduler) cleanupHistory() {
	if services.GlobalHistoryService == nil {
		return
	}
	log.Println("Cleaning up old recommendation history...")
	if err := services.GlobalHistoryService.CleanupOlderThan(historyRetentionDays); err != nil {
		log.Printf("History cleanup failed: %v", err)
	}
}

// istLocation returns the exchange timezone used for job times
func istLocation() *time.Location {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		return time.FixedZone("IST", 5*3600+1800)
	}
	return loc
}
