package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RecommendationRun represents one completed aggregation run persisted for
// history. Append-only: rows are never updated after creation.
type RecommendationRun struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ExecutionID string    `gorm:"uniqueIndex;not null" json:"execution_id"`
	Strategy    string    `gorm:"index" json:"strategy"`
	TotalCount  int       `json:"total_count"`
	TopN        int       `json:"top_n"`
	MinScore    float64   `json:"min_score"`
	GeneratedAt time.Time `gorm:"index" json:"generated_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// RecommendationRecord is one (run, symbol) row of a persisted batch
type RecommendationRecord struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	RunID        uint            `gorm:"index" json:"run_id"`
	ExecutionID  string          `gorm:"index" json:"execution_id"`
	Strategy     string          `gorm:"index" json:"strategy"`
	Rank         int             `json:"rank"`
	Symbol       string          `gorm:"index" json:"symbol"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `gorm:"type:decimal(15,2)" json:"price"`
	OverallScore decimal.Decimal `gorm:"type:decimal(10,4)" json:"overall_score"`
	BaseScore    decimal.Decimal `gorm:"type:decimal(10,4)" json:"base_score"`
	Categories   string          `json:"categories"` // comma separated
	Appearances  int             `json:"appearances"`
	GeneratedAt  time.Time       `gorm:"index" json:"generated_at"`
	CreatedAt    time.Time       `json:"created_at"`
}

// MigrateRecommendationModels runs database migrations for history models
func MigrateRecommendationModels(db *gorm.DB) error {
	return db.AutoMigrate(
		&RecommendationRun{},
		&RecommendationRecord{},
	)
}
