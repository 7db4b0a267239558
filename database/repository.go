/*
Copyright 2025 Statledger Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package database

import (
	"context"
	"time"

	"github.com/statledger/statledger/model"
)

// IDataSource defines the interface for data source operations, grouping related functionalities.
type IDataSource interface {
	dimension // Interface for dimension version operations
	fact      // Interface for transaction fact operations
	job       // Interface for upload job and audit operations
}

// dimension defines methods for slowly changing dimension versions.
type dimension interface {
	GetCurrentDimension(ctx context.Context, dimType model.DimensionType, naturalKey string) (*model.DimensionRecord, error) // Retrieves the current version for a natural key, nil when absent
	InsertDimensionVersion(ctx context.Context, record *model.DimensionRecord) (*model.DimensionRecord, error)              // Inserts the first version for a natural key
	RotateDimensionVersion(ctx context.Context, current, next *model.DimensionRecord) (*model.DimensionRecord, error)       // Atomically closes the current version and inserts its successor
}

// fact defines methods for the transaction fact table.
type fact interface {
	FactExistsByDedupeKey(ctx context.Context, dedupeKey string) (bool, error)                                           // Checks whether an identical transaction was already loaded
	RecordFact(ctx context.Context, fact *model.TransactionFact) (*model.TransactionFact, error)                         // Records a new fact row
	GetRecentFacts(ctx context.Context, accountID string, center time.Time, windowDays int) ([]*model.TransactionFact, error) // Retrieves facts within the date window around center
	GetAccountHistory(ctx context.Context, accountID string, limit int) ([]*model.TransactionFact, error)                // Retrieves the account's most recent facts, newest first
}

// job defines methods for upload jobs, ingestion batches, and the audit trail.
type job interface {
	RecordUploadJob(ctx context.Context, uploadJob *model.UploadJob) error              // Records a newly accepted upload
	GetUploadJob(ctx context.Context, jobID string) (*model.UploadJob, error)           // Retrieves an upload job by ID
	UpdateUploadJobStatus(ctx context.Context, jobID, status string) error              // Advances the job's lifecycle state
	FinalizeUploadJob(ctx context.Context, uploadJob *model.UploadJob) error            // Writes the terminal state with its outcome summary
	RecordIngestionBatch(ctx context.Context, batch *model.IngestionBatch) error        // Records a new ingestion batch
	UpdateIngestionBatch(ctx context.Context, batch *model.IngestionBatch) error        // Updates batch counters and completion
	RecordErrorLog(ctx context.Context, entry *model.ErrorLogEntry) error               // Appends a row-level error entry
	GetErrorLogs(ctx context.Context, jobID string) ([]*model.ErrorLogEntry, error)     // Retrieves error entries for a job in row order
	RecordAuditLog(ctx context.Context, entry *model.AuditLogEntry) error               // Appends one audit trail entry
	GetAuditLogs(ctx context.Context, jobID string) ([]*model.AuditLogEntry, error)     // Retrieves the audit trail for a job
}
