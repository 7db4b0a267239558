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
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"

	"github.com/statledger/statledger/internal/apierror"
	"github.com/statledger/statledger/model"
)

const factColumns = `fact_id, batch_id, institution_id, account_id, category_id,
		transaction_date, value_date, description, reference_number, amount,
		transaction_type, balance, confidence_score, category_label, category_score,
		anomaly_score, is_anomalous, is_duplicate, duplicate_score, matched_fact_id,
		dedupe_key, source_file, source_row, created_at`

func (d Datasource) FactExistsByDedupeKey(ctx context.Context, dedupeKey string) (bool, error) {
	ctx, span := otel.Tracer("fact.loader").Start(ctx, "Checking dedupe key")
	defer span.End()

	var exists bool
	err := d.Conn.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM transaction_facts WHERE dedupe_key = $1)
	`, dedupeKey).Scan(&exists)
	if err != nil {
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to check dedupe key", err)
	}
	return exists, nil
}

func (d Datasource) RecordFact(ctx context.Context, fact *model.TransactionFact) (*model.TransactionFact, error) {
	ctx, span := otel.Tracer("fact.loader").Start(ctx, "Saving transaction fact to db")
	defer span.End()

	var matched sql.NullString
	if fact.MatchedFactID != "" {
		matched = sql.NullString{String: fact.MatchedFactID, Valid: true}
	}
	var balance sql.NullString
	if fact.Balance != nil {
		balance = sql.NullString{String: fact.Balance.StringFixed(2), Valid: true}
	}

	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO transaction_facts (`+factColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24)
	`,
		fact.FactID, fact.BatchID, fact.InstitutionID, fact.AccountID, fact.CategoryID,
		fact.TransactionDate, fact.ValueDate, fact.Description, fact.ReferenceNumber, fact.Amount.StringFixed(2),
		fact.TransactionType, balance, fact.ConfidenceScore, fact.CategoryLabel, fact.CategoryScore,
		fact.AnomalyScore, fact.IsAnomalous, fact.IsDuplicate, fact.DuplicateScore, matched,
		fact.DedupeKey, fact.SourceFile, fact.SourceRow, fact.CreatedAt,
	)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record transaction fact", err)
	}
	return fact, nil
}

// GetRecentFacts returns the account's facts dated within windowDays either
// side of center, for near-duplicate comparison.
func (d Datasource) GetRecentFacts(ctx context.Context, accountID string, center time.Time, windowDays int) ([]*model.TransactionFact, error) {
	window := time.Duration(windowDays) * 24 * time.Hour
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT `+factColumns+`
		FROM transaction_facts
		WHERE account_id = $1 AND transaction_date BETWEEN $2 AND $3
		ORDER BY transaction_date
	`, accountID, center.Add(-window), center.Add(window))
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve facts in date window", err)
	}
	defer rows.Close()
	return scanFacts(rows)
}

// GetAccountHistory returns the account's most recent facts, newest first,
// used as anomaly training history.
func (d Datasource) GetAccountHistory(ctx context.Context, accountID string, limit int) ([]*model.TransactionFact, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT `+factColumns+`
		FROM transaction_facts
		WHERE account_id = $1
		ORDER BY transaction_date DESC, created_at DESC
		LIMIT $2
	`, accountID, limit)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve account history", err)
	}
	defer rows.Close()
	return scanFacts(rows)
}

func scanFacts(rows *sql.Rows) ([]*model.TransactionFact, error) {
	var facts []*model.TransactionFact
	for rows.Next() {
		fact := &model.TransactionFact{}
		var matched sql.NullString
		var balance sql.NullString
		var valueDate sql.NullTime
		var amount string
		err := rows.Scan(
			&fact.FactID, &fact.BatchID, &fact.InstitutionID, &fact.AccountID, &fact.CategoryID,
			&fact.TransactionDate, &valueDate, &fact.Description, &fact.ReferenceNumber, &amount,
			&fact.TransactionType, &balance, &fact.ConfidenceScore, &fact.CategoryLabel, &fact.CategoryScore,
			&fact.AnomalyScore, &fact.IsAnomalous, &fact.IsDuplicate, &fact.DuplicateScore, &matched,
			&fact.DedupeKey, &fact.SourceFile, &fact.SourceRow, &fact.CreatedAt,
		)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan transaction fact", err)
		}
		if err := setFactDecimals(fact, amount, balance); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to parse fact amounts", err)
		}
		if valueDate.Valid {
			fact.ValueDate = &valueDate.Time
		}
		fact.MatchedFactID = matched.String
		facts = append(facts, fact)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to iterate transaction facts", err)
	}
	return facts, nil
}

func setFactDecimals(fact *model.TransactionFact, amount string, balance sql.NullString) error {
	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return err
	}
	fact.Amount = parsed
	if balance.Valid {
		b, err := decimal.NewFromString(balance.String)
		if err != nil {
			return err
		}
		fact.Balance = &b
	}
	return nil
}
