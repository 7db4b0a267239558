package model

import (
	"encoding/json"
	"time"
)

// Upload job lifecycle states. A job advances strictly through the first five
// and terminates in completed or failed.
const (
	JobPending      = "pending"
	JobParsing      = "parsing"
	JobValidating   = "validating"
	JobTransforming = "transforming"
	JobLoading      = "loading"
	JobCompleted    = "completed"
	JobFailed       = "failed"
)

// OutcomeSummary carries the per-file counters reported when a job reaches a
// terminal state. Row-level failures land in RowsRejected, never in Failed.
type OutcomeSummary struct {
	RowsTotal            int `json:"rows_total"`
	RowsLoaded           int `json:"rows_loaded"`
	RowsRejected         int `json:"rows_rejected"`
	RowsSkippedDuplicate int `json:"rows_skipped_duplicate"`
	RowsFlaggedAnomalous int `json:"rows_flagged_anomalous"`
	RowsFlaggedDuplicate int `json:"rows_flagged_duplicate"`
}

// UploadJob is the lifecycle record for one uploaded statement file.
type UploadJob struct {
	JobID          string         `json:"job_id"`
	FileName       string         `json:"file_name"`
	FilePath       string         `json:"file_path"`
	InstitutionKey string         `json:"institution_key"`
	AccountNumber  string         `json:"account_number"`
	Status         string         `json:"status"`
	Summary        OutcomeSummary `json:"summary"`
	ErrorMessage   string         `json:"error_message,omitempty"`
	FailedAtRow    *int           `json:"failed_at_row,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	StartedAt      *time.Time     `json:"started_at,omitempty"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`

	// Surrogates resolved for this run; set during transformation, not persisted.
	InstitutionDimID string `json:"-"`
	AccountDimID     string `json:"-"`
}

func (j *UploadJob) ToJSON() ([]byte, error) {
	return json.Marshal(j)
}

// ErrorLogEntry records one rejected or flagged row. Entries never block the
// batch; they are appended in input row order.
type ErrorLogEntry struct {
	JobID      string    `json:"job_id"`
	RowIndex   int       `json:"row_index"`
	Stage      string    `json:"stage"`
	Reason     string    `json:"reason"`
	RawPayload string    `json:"raw_payload,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// AuditLogEntry is one stage transition or terminal outcome appended to the
// audit trail for an upload job.
type AuditLogEntry struct {
	JobID     string    `json:"job_id"`
	Stage     string    `json:"stage"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}
