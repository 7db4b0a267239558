package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionFact is the immutable, enriched row loaded into the ledger. No
// component mutates a fact after load; flags stay on the row for review.
type TransactionFact struct {
	FactID          string           `json:"fact_id"`
	BatchID         string           `json:"batch_id"`
	InstitutionID   string           `json:"institution_id"`
	AccountID       string           `json:"account_id"`
	CategoryID      string           `json:"category_id"`
	TransactionDate time.Time        `json:"transaction_date"`
	ValueDate       *time.Time       `json:"value_date,omitempty"`
	Description     string           `json:"description"`
	ReferenceNumber string           `json:"reference_number,omitempty"`
	Amount          decimal.Decimal  `json:"amount"`
	TransactionType string           `json:"transaction_type"`
	Balance         *decimal.Decimal `json:"balance,omitempty"`
	ConfidenceScore float64          `json:"confidence_score"`
	CategoryLabel   string           `json:"category_label"`
	CategoryScore   float64          `json:"category_score"`
	IsAnomalous     bool             `json:"is_anomalous"`
	AnomalyScore    float64          `json:"anomaly_score"`
	IsDuplicate     bool             `json:"is_duplicate"`
	DuplicateScore  float64          `json:"duplicate_score"`
	MatchedFactID   string           `json:"matched_fact_id,omitempty"`
	DedupeKey       string           `json:"dedupe_key"`
	SourceFile      string           `json:"source_file"`
	SourceRow       int              `json:"source_row"`
	CreatedAt       time.Time        `json:"created_at"`
}

// IngestionBatch groups the facts and rejections produced from one upload.
type IngestionBatch struct {
	BatchID         string     `json:"batch_id"`
	UploadJobID     string     `json:"upload_job_id"`
	Status          string     `json:"status"`
	RecordsInserted int        `json:"records_inserted"`
	RecordsSkipped  int        `json:"records_skipped"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}
