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
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel"

	"github.com/statledger/statledger/internal/apierror"
	"github.com/statledger/statledger/model"
)

// GetCurrentDimension fetches the open version for a natural key. Returns
// (nil, nil) when the key has never been seen.
func (d Datasource) GetCurrentDimension(ctx context.Context, dimType model.DimensionType, naturalKey string) (*model.DimensionRecord, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT surrogate_id, dim_type, natural_key, attributes, valid_from, valid_to, is_current
		FROM dimension_versions
		WHERE dim_type = $1 AND natural_key = $2 AND is_current
	`, dimType, naturalKey)

	record, err := scanDimension(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve current dimension version", err)
	}
	return record, nil
}

// InsertDimensionVersion inserts the first version of a natural key. The
// partial unique index on (dim_type, natural_key) rejects a concurrent first
// insert, surfaced as a conflict for the caller to retry.
func (d Datasource) InsertDimensionVersion(ctx context.Context, record *model.DimensionRecord) (*model.DimensionRecord, error) {
	ctx, span := otel.Tracer("dimension.manager").Start(ctx, "Inserting dimension version")
	defer span.End()

	attributesJSON, err := json.Marshal(record.Attributes)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal dimension attributes", err)
	}

	_, err = d.Conn.ExecContext(ctx, `
		INSERT INTO dimension_versions (surrogate_id, dim_type, natural_key, attributes, valid_from, valid_to, is_current)
		VALUES ($1, $2, $3, $4, $5, NULL, TRUE)
	`, record.SurrogateID, record.Type, record.NaturalKey, attributesJSON, record.ValidFrom)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Failed to insert first version for key '%s'", record.NaturalKey), err)
	}
	record.IsCurrent = true
	return record, nil
}

// RotateDimensionVersion closes the current version and inserts its successor
// in one transaction. The UPDATE names the surrogate ID of the version the
// caller observed; zero rows affected means another writer rotated first and
// the caller must re-read and retry.
func (d Datasource) RotateDimensionVersion(ctx context.Context, current, next *model.DimensionRecord) (*model.DimensionRecord, error) {
	ctx, span := otel.Tracer("dimension.manager").Start(ctx, "Rotating dimension version")
	defer span.End()

	attributesJSON, err := json.Marshal(next.Attributes)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal dimension attributes", err)
	}

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin dimension rotation", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	result, err := tx.ExecContext(ctx, `
		UPDATE dimension_versions
		SET valid_to = $1, is_current = FALSE
		WHERE surrogate_id = $2 AND is_current
	`, next.ValidFrom, current.SurrogateID)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to close current dimension version", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return nil, apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Version '%s' is no longer current", current.SurrogateID), nil)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO dimension_versions (surrogate_id, dim_type, natural_key, attributes, valid_from, valid_to, is_current)
		VALUES ($1, $2, $3, $4, $5, NULL, TRUE)
	`, next.SurrogateID, next.Type, next.NaturalKey, attributesJSON, next.ValidFrom)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to insert successor dimension version", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit dimension rotation", err)
	}
	next.IsCurrent = true
	return next, nil
}

func scanDimension(row *sql.Row) (*model.DimensionRecord, error) {
	record := &model.DimensionRecord{}
	var attributesJSON []byte
	err := row.Scan(&record.SurrogateID, &record.Type, &record.NaturalKey, &attributesJSON, &record.ValidFrom, &record.ValidTo, &record.IsCurrent)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(attributesJSON, &record.Attributes); err != nil {
		return nil, err
	}
	return record, nil
}
