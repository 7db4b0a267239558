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
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/statledger/statledger/internal/apierror"
	"github.com/statledger/statledger/model"
)

func TestRecordUploadJob(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	d := Datasource{Conn: db}

	uploadJob := &model.UploadJob{
		JobID:          "job_1",
		FileName:       "jan.csv",
		FilePath:       "/uploads/jan.csv",
		InstitutionKey: "HDFC",
		AccountNumber:  "12345",
		Status:         model.JobPending,
		CreatedAt:      time.Now(),
	}

	mock.ExpectExec("INSERT INTO upload_jobs").
		WithArgs(uploadJob.JobID, uploadJob.FileName, uploadJob.FilePath, uploadJob.InstitutionKey, uploadJob.AccountNumber, uploadJob.Status, uploadJob.CreatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	assert.NoError(t, d.RecordUploadJob(context.Background(), uploadJob))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateUploadJobStatusNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	d := Datasource{Conn: db}

	mock.ExpectExec("UPDATE upload_jobs").
		WithArgs("missing", model.JobParsing).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = d.UpdateUploadJobStatus(context.Background(), "missing", model.JobParsing)
	assert.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	assert.True(t, ok)
	assert.Equal(t, apierror.ErrNotFound, apiErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFinalizeUploadJob(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	d := Datasource{Conn: db}

	uploadJob := &model.UploadJob{
		JobID:  "job_1",
		Status: model.JobCompleted,
		Summary: model.OutcomeSummary{
			RowsTotal:  10,
			RowsLoaded: 9,
			RowsRejected: 1,
		},
	}

	mock.ExpectExec("UPDATE upload_jobs").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, d.FinalizeUploadJob(context.Background(), uploadJob))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUploadJob(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	d := Datasource{Conn: db}

	created := time.Now()
	rows := sqlmock.NewRows([]string{
		"job_id", "file_name", "file_path", "institution_key", "account_number", "status",
		"rows_total", "rows_loaded", "rows_rejected", "rows_skipped_duplicate",
		"rows_flagged_anomalous", "rows_flagged_duplicate",
		"error_message", "failed_at_row", "created_at", "started_at", "completed_at",
	}).AddRow("job_1", "jan.csv", "/uploads/jan.csv", "HDFC", "12345", model.JobCompleted,
		10, 9, 1, 0, 0, 0, nil, nil, created, created, created)

	mock.ExpectQuery("SELECT job_id, file_name").
		WithArgs("job_1").
		WillReturnRows(rows)

	uploadJob, err := d.GetUploadJob(context.Background(), "job_1")
	assert.NoError(t, err)
	assert.Equal(t, model.JobCompleted, uploadJob.Status)
	assert.Equal(t, 9, uploadJob.Summary.RowsLoaded)
	assert.Empty(t, uploadJob.ErrorMessage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordErrorLogAndAudit(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	d := Datasource{Conn: db}

	entry := &model.ErrorLogEntry{JobID: "job_1", RowIndex: 4, Stage: "extract", Reason: "unparseable date", OccurredAt: time.Now()}
	mock.ExpectExec("INSERT INTO error_logs").
		WithArgs(entry.JobID, entry.RowIndex, entry.Stage, entry.Reason, entry.RawPayload, entry.OccurredAt).
		WillReturnResult(sqlmock.NewResult(1, 1))
	assert.NoError(t, d.RecordErrorLog(context.Background(), entry))

	audit := &model.AuditLogEntry{JobID: "job_1", Stage: model.JobParsing, Detail: "started", CreatedAt: time.Now()}
	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(audit.JobID, audit.Stage, audit.Detail, audit.CreatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))
	assert.NoError(t, d.RecordAuditLog(context.Background(), audit))

	assert.NoError(t, mock.ExpectationsWereMet())
}
