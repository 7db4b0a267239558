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
	"database/sql"
	"fmt"

	"go.opentelemetry.io/otel"

	"github.com/statledger/statledger/internal/apierror"
	"github.com/statledger/statledger/model"
)

func (d Datasource) RecordUploadJob(ctx context.Context, uploadJob *model.UploadJob) error {
	ctx, span := otel.Tracer("upload.job").Start(ctx, "Saving upload job to db")
	defer span.End()

	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO upload_jobs (job_id, file_name, file_path, institution_key, account_number, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, uploadJob.JobID, uploadJob.FileName, uploadJob.FilePath, uploadJob.InstitutionKey, uploadJob.AccountNumber, uploadJob.Status, uploadJob.CreatedAt)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record upload job", err)
	}
	return nil
}

func (d Datasource) GetUploadJob(ctx context.Context, jobID string) (*model.UploadJob, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT job_id, file_name, file_path, institution_key, account_number, status,
			rows_total, rows_loaded, rows_rejected, rows_skipped_duplicate,
			rows_flagged_anomalous, rows_flagged_duplicate,
			error_message, failed_at_row, created_at, started_at, completed_at
		FROM upload_jobs
		WHERE job_id = $1
	`, jobID)

	uploadJob := &model.UploadJob{}
	var errorMessage sql.NullString
	err := row.Scan(
		&uploadJob.JobID, &uploadJob.FileName, &uploadJob.FilePath, &uploadJob.InstitutionKey, &uploadJob.AccountNumber, &uploadJob.Status,
		&uploadJob.Summary.RowsTotal, &uploadJob.Summary.RowsLoaded, &uploadJob.Summary.RowsRejected, &uploadJob.Summary.RowsSkippedDuplicate,
		&uploadJob.Summary.RowsFlaggedAnomalous, &uploadJob.Summary.RowsFlaggedDuplicate,
		&errorMessage, &uploadJob.FailedAtRow, &uploadJob.CreatedAt, &uploadJob.StartedAt, &uploadJob.CompletedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Upload job with ID '%s' not found", jobID), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve upload job", err)
	}
	uploadJob.ErrorMessage = errorMessage.String
	return uploadJob, nil
}

func (d Datasource) UpdateUploadJobStatus(ctx context.Context, jobID, status string) error {
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE upload_jobs
		SET status = $2, started_at = COALESCE(started_at, NOW())
		WHERE job_id = $1
	`, jobID, status)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update upload job status", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Upload job with ID '%s' not found", jobID), nil)
	}
	return nil
}

// FinalizeUploadJob writes the terminal state together with the outcome
// summary in one statement.
func (d Datasource) FinalizeUploadJob(ctx context.Context, uploadJob *model.UploadJob) error {
	ctx, span := otel.Tracer("upload.job").Start(ctx, "Finalizing upload job")
	defer span.End()

	var errorMessage sql.NullString
	if uploadJob.ErrorMessage != "" {
		errorMessage = sql.NullString{String: uploadJob.ErrorMessage, Valid: true}
	}
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE upload_jobs
		SET status = $2,
			rows_total = $3, rows_loaded = $4, rows_rejected = $5,
			rows_skipped_duplicate = $6, rows_flagged_anomalous = $7, rows_flagged_duplicate = $8,
			error_message = $9, failed_at_row = $10, completed_at = NOW()
		WHERE job_id = $1
	`, uploadJob.JobID, uploadJob.Status,
		uploadJob.Summary.RowsTotal, uploadJob.Summary.RowsLoaded, uploadJob.Summary.RowsRejected,
		uploadJob.Summary.RowsSkippedDuplicate, uploadJob.Summary.RowsFlaggedAnomalous, uploadJob.Summary.RowsFlaggedDuplicate,
		errorMessage, uploadJob.FailedAtRow)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to finalize upload job", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Upload job with ID '%s' not found", uploadJob.JobID), nil)
	}
	return nil
}

func (d Datasource) RecordIngestionBatch(ctx context.Context, batch *model.IngestionBatch) error {
	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO ingestion_batches (batch_id, upload_job_id, status, started_at)
		VALUES ($1, $2, $3, $4)
	`, batch.BatchID, batch.UploadJobID, batch.Status, batch.StartedAt)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record ingestion batch", err)
	}
	return nil
}

func (d Datasource) UpdateIngestionBatch(ctx context.Context, batch *model.IngestionBatch) error {
	_, err := d.Conn.ExecContext(ctx, `
		UPDATE ingestion_batches
		SET status = $2, records_inserted = $3, records_skipped = $4, completed_at = $5
		WHERE batch_id = $1
	`, batch.BatchID, batch.Status, batch.RecordsInserted, batch.RecordsSkipped, batch.CompletedAt)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update ingestion batch", err)
	}
	return nil
}

func (d Datasource) RecordErrorLog(ctx context.Context, entry *model.ErrorLogEntry) error {
	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO error_logs (job_id, row_index, stage, reason, raw_payload, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, entry.JobID, entry.RowIndex, entry.Stage, entry.Reason, entry.RawPayload, entry.OccurredAt)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record error log entry", err)
	}
	return nil
}

func (d Datasource) GetErrorLogs(ctx context.Context, jobID string) ([]*model.ErrorLogEntry, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT job_id, row_index, stage, reason, raw_payload, occurred_at
		FROM error_logs
		WHERE job_id = $1
		ORDER BY row_index, occurred_at
	`, jobID)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve error logs", err)
	}
	defer rows.Close()

	var entries []*model.ErrorLogEntry
	for rows.Next() {
		entry := &model.ErrorLogEntry{}
		if err := rows.Scan(&entry.JobID, &entry.RowIndex, &entry.Stage, &entry.Reason, &entry.RawPayload, &entry.OccurredAt); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan error log entry", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to iterate error logs", err)
	}
	return entries, nil
}

func (d Datasource) RecordAuditLog(ctx context.Context, entry *model.AuditLogEntry) error {
	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO audit_logs (job_id, stage, detail, created_at)
		VALUES ($1, $2, $3, $4)
	`, entry.JobID, entry.Stage, entry.Detail, entry.CreatedAt)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record audit log entry", err)
	}
	return nil
}

func (d Datasource) GetAuditLogs(ctx context.Context, jobID string) ([]*model.AuditLogEntry, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT job_id, stage, detail, created_at
		FROM audit_logs
		WHERE job_id = $1
		ORDER BY created_at
	`, jobID)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve audit logs", err)
	}
	defer rows.Close()

	var entries []*model.AuditLogEntry
	for rows.Next() {
		entry := &model.AuditLogEntry{}
		if err := rows.Scan(&entry.JobID, &entry.Stage, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan audit log entry", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to iterate audit logs", err)
	}
	return entries, nil
}
