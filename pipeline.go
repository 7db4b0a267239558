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

package statledger

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"github.com/statledger/statledger/config"
	"github.com/statledger/statledger/internal/tabulator"
	"github.com/statledger/statledger/model"
)

const anomalyHistoryLimit = 500

// enrichedRow is a parsed transaction carrying its assessments on the way to
// the fact table.
type enrichedRow struct {
	txn      *model.ParsedTransaction
	category model.CategoryAssignment
	anomaly  model.AnomalyAssessment
}

// CreateUploadJob accepts an uploaded statement file and records its
// lifecycle row. The returned job is in pending state; run it inline with
// RunPipeline or hand it to the workers with EnqueueUploadJob.
func (s *Statledger) CreateUploadJob(ctx context.Context, fileName, filePath, institutionKey, accountNumber string) (*model.UploadJob, error) {
	uploadJob := &model.UploadJob{
		JobID:          model.GenerateUUIDWithSuffix("job"),
		FileName:       fileName,
		FilePath:       filePath,
		InstitutionKey: institutionKey,
		AccountNumber:  accountNumber,
		Status:         model.JobPending,
		CreatedAt:      time.Now(),
	}
	if err := s.datasource.RecordUploadJob(ctx, uploadJob); err != nil {
		return nil, err
	}
	return uploadJob, nil
}

// EnqueueUploadJob schedules a pending job for the worker pool.
func (s *Statledger) EnqueueUploadJob(ctx context.Context, uploadJob *model.UploadJob) error {
	return s.queue.Enqueue(ctx, uploadJob)
}

// RunPipeline executes the full ingestion for one upload job. Row-level
// failures are logged and counted; only structural problems or infrastructure
// errors put the job into failed state.
func (s *Statledger) RunPipeline(ctx context.Context, jobID string) (*model.UploadJob, error) {
	ctx, span := otel.Tracer("ingestion.pipeline").Start(ctx, "Running ingestion pipeline")
	defer span.End()

	uploadJob, err := s.datasource.GetUploadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	rows, mapping, err := s.parseStage(ctx, uploadJob)
	if err != nil {
		return s.failJob(ctx, uploadJob, err, nil)
	}
	uploadJob.Summary.RowsTotal = len(rows)

	parsed, err := s.extractAndValidate(ctx, uploadJob, mapping, rows)
	if err != nil {
		return s.failJob(ctx, uploadJob, err, nil)
	}

	enriched, err := s.transformStage(ctx, uploadJob, parsed)
	if err != nil {
		return s.failJob(ctx, uploadJob, err, nil)
	}

	if err := s.loadStage(ctx, uploadJob, enriched); err != nil {
		return s.failJob(ctx, uploadJob, err, uploadJob.FailedAtRow)
	}

	uploadJob.Status = model.JobCompleted
	if err := s.datasource.FinalizeUploadJob(ctx, uploadJob); err != nil {
		return nil, err
	}
	s.audit(ctx, uploadJob.JobID, model.JobCompleted, fmt.Sprintf("loaded %d of %d rows", uploadJob.Summary.RowsLoaded, uploadJob.Summary.RowsTotal))
	logrus.Infof("upload job %s completed: %d loaded, %d rejected, %d skipped",
		uploadJob.JobID, uploadJob.Summary.RowsLoaded, uploadJob.Summary.RowsRejected, uploadJob.Summary.RowsSkippedDuplicate)
	return uploadJob, nil
}

// parseStage reads the file and resolves its columns. Any error here is
// structural: the whole job fails.
func (s *Statledger) parseStage(ctx context.Context, uploadJob *model.UploadJob) ([]model.RawRow, model.ColumnMapping, error) {
	if err := s.advance(ctx, uploadJob, model.JobParsing); err != nil {
		return nil, model.ColumnMapping{}, err
	}
	headers, rows, err := tabulator.ReadFile(uploadJob.FilePath)
	if err != nil {
		return nil, model.ColumnMapping{}, err
	}
	mapping, err := ResolveColumns(uploadJob.FileName, headers)
	if err != nil {
		return nil, model.ColumnMapping{}, err
	}
	return rows, mapping, nil
}

// extractAndValidate turns raw rows into validated transactions, logging and
// counting each row that cannot make it through.
func (s *Statledger) extractAndValidate(ctx context.Context, uploadJob *model.UploadJob, mapping model.ColumnMapping, rows []model.RawRow) ([]*model.ParsedTransaction, error) {
	cfg, err := config.Fetch()
	dateLayouts := config.DefaultDateFormats()
	defaultValueDate := false
	if err == nil {
		dateLayouts = cfg.Ingestion.DateFormats
		defaultValueDate = cfg.Ingestion.DefaultValueDateToTransactionDate
	}

	extractor := NewExtractor(uploadJob.FileName, mapping, rows, dateLayouts)
	extractor.DefaultValueDate = defaultValueDate

	var parsed []*model.ParsedTransaction
	for _, row := range rows {
		txn, failure := extractor.ExtractRow(row)
		if failure != nil {
			s.rejectRow(ctx, uploadJob, failure.RowIndex, "parse", failure.Err.Error(), failure.RawPayload)
			continue
		}
		parsed = append(parsed, txn)
	}

	if err := s.advance(ctx, uploadJob, model.JobValidating); err != nil {
		return nil, err
	}
	valid := parsed[:0]
	for _, txn := range parsed {
		if err := ValidateTransaction(txn); err != nil {
			s.rejectRow(ctx, uploadJob, txn.SourceRow.RowIndex, "validate", err.Error(), "")
			continue
		}
		valid = append(valid, txn)
	}
	return valid, nil
}

// transformStage resolves the batch's dimensions, retrains the account's
// anomaly profile on pre-batch history, and enriches every row. Dimension
// resolution failures for the whole batch are job-level; a category failure
// rejects only its row.
func (s *Statledger) transformStage(ctx context.Context, uploadJob *model.UploadJob, parsed []*model.ParsedTransaction) ([]*enrichedRow, error) {
	if err := s.advance(ctx, uploadJob, model.JobTransforming); err != nil {
		return nil, err
	}

	institution, err := s.dimensions.Ensure(ctx, model.DimInstitution, uploadJob.InstitutionKey, map[string]string{
		"name": uploadJob.InstitutionKey,
	})
	if err != nil {
		return nil, err
	}
	account, err := s.dimensions.Ensure(ctx, model.DimAccount, accountNaturalKey(uploadJob), map[string]string{
		"institution":    uploadJob.InstitutionKey,
		"account_number": uploadJob.AccountNumber,
	})
	if err != nil {
		return nil, err
	}
	uploadJob.InstitutionDimID = institution.SurrogateID
	uploadJob.AccountDimID = account.SurrogateID

	history, err := s.datasource.GetAccountHistory(ctx, account.SurrogateID, anomalyHistoryLimit)
	if err != nil {
		return nil, err
	}
	s.anomalies.Retrain(account.SurrogateID, history)

	var enriched []*enrichedRow
	for _, txn := range parsed {
		if err := ctx.Err(); err != nil {
			uploadJob.FailedAtRow = intPtr(txn.SourceRow.RowIndex)
			return nil, err
		}
		row := &enrichedRow{
			txn:      txn,
			category: s.categorizer.Categorize(txn.Description),
			anomaly:  s.anomalies.Assess(account.SurrogateID, txn),
		}
		if row.anomaly.IsAnomalous {
			uploadJob.Summary.RowsFlaggedAnomalous++
		}
		enriched = append(enriched, row)
	}
	return enriched, nil
}

// loadStage appends the enriched rows to the fact table under a fresh
// ingestion batch, assessing near-duplicates against the ledger as it goes.
func (s *Statledger) loadStage(ctx context.Context, uploadJob *model.UploadJob, enriched []*enrichedRow) error {
	if err := s.advance(ctx, uploadJob, model.JobLoading); err != nil {
		return err
	}

	batch := &model.IngestionBatch{
		BatchID:     model.GenerateUUIDWithSuffix("batch"),
		UploadJobID: uploadJob.JobID,
		Status:      "open",
		StartedAt:   time.Now(),
	}
	if err := s.datasource.RecordIngestionBatch(ctx, batch); err != nil {
		return err
	}

	for _, row := range enriched {
		if err := ctx.Err(); err != nil {
			uploadJob.FailedAtRow = intPtr(row.txn.SourceRow.RowIndex)
			s.closeBatch(ctx, batch, "aborted")
			return err
		}
		if err := s.loadRow(ctx, uploadJob, batch, row); err != nil {
			s.rejectRow(ctx, uploadJob, row.txn.SourceRow.RowIndex, "load", err.Error(), "")
		}
	}

	return s.closeBatch(ctx, batch, "closed")
}

func (s *Statledger) closeBatch(ctx context.Context, batch *model.IngestionBatch, status string) error {
	now := time.Now()
	batch.Status = status
	batch.CompletedAt = &now
	if err := s.datasource.UpdateIngestionBatch(ctx, batch); err != nil {
		logrus.Errorf("failed to close ingestion batch %s: %v", batch.BatchID, err)
		return err
	}
	return nil
}

func (s *Statledger) loadRow(ctx context.Context, uploadJob *model.UploadJob, batch *model.IngestionBatch, row *enrichedRow) error {
	txn := row.txn

	category, err := s.dimensions.Ensure(ctx, model.DimCategory, row.category.CategoryLabel, map[string]string{
		"label": row.category.CategoryLabel,
	})
	if err != nil {
		return err
	}

	candidates, err := s.recentFacts(ctx, uploadJob.AccountDimID, txn.TransactionDate)
	if err != nil {
		return err
	}
	duplicate := s.duplicates.Assess(txn, candidates)
	if duplicate.IsDuplicate {
		uploadJob.Summary.RowsFlaggedDuplicate++
	}

	fact := &model.TransactionFact{
		BatchID:         batch.BatchID,
		InstitutionID:   uploadJob.InstitutionDimID,
		AccountID:       uploadJob.AccountDimID,
		CategoryID:      category.SurrogateID,
		TransactionDate: txn.TransactionDate,
		ValueDate:       txn.ValueDate,
		Description:     txn.Description,
		ReferenceNumber: txn.ReferenceNumber,
		Amount:          txn.Amount,
		TransactionType: txn.TransactionType,
		Balance:         txn.Balance,
		ConfidenceScore: txn.ConfidenceScore,
		CategoryLabel:   row.category.CategoryLabel,
		CategoryScore:   row.category.Confidence,
		IsAnomalous:     row.anomaly.IsAnomalous,
		AnomalyScore:    row.anomaly.AnomalyScore,
		IsDuplicate:     duplicate.IsDuplicate,
		DuplicateScore:  duplicate.DuplicateScore,
		MatchedFactID:   duplicate.MatchedFactID,
		DedupeKey:       model.DedupeKey(uploadJob.InstitutionKey, uploadJob.AccountNumber, txn.TransactionDate, txn.Amount, txn.Description, txn.TransactionType),
		SourceFile:      uploadJob.FileName,
		SourceRow:       txn.SourceRow.RowIndex,
	}

	_, err = s.loader.Load(ctx, fact)
	if err == ErrDuplicateKeySkip {
		uploadJob.Summary.RowsSkippedDuplicate++
		logrus.Debugf("row %d of %s skipped: already on ledger", txn.SourceRow.RowIndex, uploadJob.FileName)
		return nil
	}
	if err != nil {
		return err
	}
	batch.RecordsInserted++
	uploadJob.Summary.RowsLoaded++
	s.invalidateRecentFacts(ctx, uploadJob.AccountDimID, txn.TransactionDate)
	return nil
}

// advance moves the job to the next lifecycle state and records the
// transition on the audit trail.
func (s *Statledger) advance(ctx context.Context, uploadJob *model.UploadJob, status string) error {
	if err := s.datasource.UpdateUploadJobStatus(ctx, uploadJob.JobID, status); err != nil {
		return err
	}
	uploadJob.Status = status
	s.audit(ctx, uploadJob.JobID, status, "")
	return nil
}

func (s *Statledger) failJob(ctx context.Context, uploadJob *model.UploadJob, cause error, failedAtRow *int) (*model.UploadJob, error) {
	uploadJob.Status = model.JobFailed
	uploadJob.ErrorMessage = cause.Error()
	if failedAtRow != nil {
		uploadJob.FailedAtRow = failedAtRow
	}
	if err := s.datasource.FinalizeUploadJob(ctx, uploadJob); err != nil {
		logrus.Errorf("failed to finalize job %s: %v", uploadJob.JobID, err)
	}
	s.audit(ctx, uploadJob.JobID, model.JobFailed, cause.Error())
	logrus.Errorf("upload job %s failed: %v", uploadJob.JobID, cause)
	return uploadJob, cause
}

// rejectRow records a row-level failure without touching the job state.
func (s *Statledger) rejectRow(ctx context.Context, uploadJob *model.UploadJob, rowIndex int, stage, reason, rawPayload string) {
	uploadJob.Summary.RowsRejected++
	entry := &model.ErrorLogEntry{
		JobID:      uploadJob.JobID,
		RowIndex:   rowIndex,
		Stage:      stage,
		Reason:     reason,
		RawPayload: rawPayload,
		OccurredAt: time.Now(),
	}
	if err := s.datasource.RecordErrorLog(ctx, entry); err != nil {
		logrus.Errorf("failed to record error log for job %s row %d: %v", uploadJob.JobID, rowIndex, err)
	}
}

func (s *Statledger) audit(ctx context.Context, jobID, stage, detail string) {
	entry := &model.AuditLogEntry{JobID: jobID, Stage: stage, Detail: detail, CreatedAt: time.Now()}
	if err := s.datasource.RecordAuditLog(ctx, entry); err != nil {
		logrus.Errorf("failed to record audit entry for job %s: %v", jobID, err)
	}
}

func accountNaturalKey(uploadJob *model.UploadJob) string {
	return fmt.Sprintf("%s:%s", uploadJob.InstitutionKey, uploadJob.AccountNumber)
}

func intPtr(v int) *int {
	return &v
}
