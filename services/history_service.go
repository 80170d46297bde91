package services

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"stock_recommendation_backend/models"
)

// HistoryService persists completed recommendation batches to Postgres.
// Rows are append-only: a new run always inserts, nothing is updated.
type HistoryService struct {
	db *gorm.DB
}

// Global history service instance
var GlobalHistoryService *HistoryService

// InitHistoryService initializes the global history service
func InitHistoryService(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("history service requires a database connection")
	}
	GlobalHistoryService = &HistoryService{db: db}
	return nil
}

// NewHistoryService creates a history service over a database connection
func NewHistoryService(db *gorm.DB) *HistoryService {
	return &HistoryService{db: db}
}

// SaveBatch persists one batch as a run row plus one record per candidate
func (hs *HistoryService) SaveBatch(executionID string, batch *models.RecommendationBatch, topN int, minScore float64) error {
	run := models.RecommendationRun{
		ExecutionID: executionID,
		Strategy:    batch.Strategy.String(),
		TotalCount:  batch.TotalCount,
		TopN:        topN,
		MinScore:    minScore,
		GeneratedAt: batch.GeneratedAt,
	}

	return hs.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&run).Error; err != nil {
			return fmt.Errorf("failed to save recommendation run: %w", err)
		}

		if len(batch.Recommendations) == 0 {
			return nil
		}

		records := make([]models.RecommendationRecord, 0, len(batch.Recommendations))
		for _, rec := range batch.Recommendations {
			records = append(records, models.RecommendationRecord{
				RunID:        run.ID,
				ExecutionID:  executionID,
				Strategy:     batch.Strategy.String(),
				Rank:         rec.Rank,
				Symbol:       rec.Symbol,
				Name:         rec.Name,
				Price:        decimal.NewFromFloat(rec.Price),
				OverallScore: decimal.NewFromFloat(rec.OverallScore),
				BaseScore:    decimal.NewFromFloat(rec.BaseScore),
				Categories:   strings.Join(rec.Categories, ","),
				Appearances:  rec.Appearances,
				GeneratedAt:  batch.GeneratedAt,
			})
		}
		if err := tx.Create(&records).Error; err != nil {
			return fmt.Errorf("failed to save recommendation records: %w", err)
		}
		return nil
	})
}

// RecentRuns returns the latest persisted runs, newest first. Strategy may
// be empty to list across strategies.
func (hs *HistoryService) RecentRuns(strategy string, limit int) ([]models.RecommendationRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := hs.db.Model(&models.RecommendationRun{}).Order("generated_at DESC").Limit(limit)
	if strategy != "" {
		query = query.Where("strategy = ?", strategy)
	}

	var runs []models.RecommendationRun
	if err := query.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to load recommendation runs: %w", err)
	}
	return runs, nil
}

// RecordsForRun returns the persisted candidate rows of one run, rank order
func (hs *HistoryService) RecordsForRun(executionID string) ([]models.RecommendationRecord, error) {
	var records []models.RecommendationRecord
	if err := hs.db.Where("execution_id = ?", executionID).Order("rank ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to load records for run %s: %w", executionID, err)
	}
	return records, nil
}

// CleanupOlderThan removes history older than the retention window
func (hs *HistoryService) CleanupOlderThan(days int) error {
	cutoff := time.Now().AddDate(0, 0, -days)

	if err := hs.db.Where("generated_at < ?", cutoff).Delete(&models.RecommendationRecord{}).Error; err != nil {
		return fmt.Errorf("failed to clean up old records: %w", err)
	}
	if err := hs.db.Where("generated_at < ?", cutoff).Delete(&models.RecommendationRun{}).Error; err != nil {
		return fmt.Errorf("failed to clean up old runs: %w", err)
	}

	log.Printf("History cleanup completed, removed runs older than %s", cutoff.Format("2006-01-02"))
	return nil
}
