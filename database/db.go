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
	"database/sql"
	"sync"

	"github.com/sirupsen/logrus"

	_ "github.com/lib/pq"

	"github.com/statledger/statledger/cache"
	"github.com/statledger/statledger/config"
)

var instance *Datasource
var once sync.Once

type Datasource struct {
	Conn  *sql.DB
	Cache cache.Cache
}

func NewDataSource(configuration *config.Configuration) (IDataSource, error) {
	return GetDBConnection(configuration)
}

// GetDBConnection provides a global access point to the instance and
// initializes it if it's not already.
func GetDBConnection(configuration *config.Configuration) (*Datasource, error) {
	var err error
	once.Do(func() {
		con, errConn := ConnectDB(configuration.DataSource.Dns)
		if errConn != nil {
			err = errConn
			return
		}
		instance = &Datasource{Conn: con, Cache: nil}
	})
	if err != nil {
		return nil, err
	}
	return instance, nil
}

func ConnectDB(dns string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dns)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		logrus.Errorf("database connection error: %v", err)
		return nil, err
	}
	for _, create := range []func(*sql.DB) error{
		createDimensionVersionTable,
		createUploadJobTable,
		createIngestionBatchTable,
		createTransactionFactTable,
		createErrorLogTable,
		createAuditLogTable,
	} {
		if err := create(db); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// createDimensionVersionTable holds every dimension as a chain of immutable
// versions. At most one row per (dim_type, natural_key) has is_current true.
func createDimensionVersionTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS dimension_versions (
			id SERIAL PRIMARY KEY,
			surrogate_id TEXT NOT NULL UNIQUE,
			dim_type TEXT NOT NULL CHECK (dim_type IN ('institution', 'account', 'category')),
			natural_key TEXT NOT NULL,
			attributes JSONB NOT NULL,
			valid_from TIMESTAMP NOT NULL,
			valid_to TIMESTAMP,
			is_current BOOLEAN NOT NULL DEFAULT TRUE
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_dimension_current
			ON dimension_versions (dim_type, natural_key) WHERE is_current;
	`)
	return err
}

func createTransactionFactTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS transaction_facts (
			id SERIAL PRIMARY KEY,
			fact_id TEXT NOT NULL UNIQUE,
			batch_id TEXT NOT NULL REFERENCES ingestion_batches(batch_id),
			institution_id TEXT NOT NULL REFERENCES dimension_versions(surrogate_id),
			account_id TEXT NOT NULL REFERENCES dimension_versions(surrogate_id),
			category_id TEXT NOT NULL REFERENCES dimension_versions(surrogate_id),
			transaction_date DATE NOT NULL,
			value_date DATE,
			description TEXT,
			reference_number TEXT,
			amount NUMERIC(20,2) NOT NULL,
			transaction_type TEXT NOT NULL CHECK (transaction_type IN ('debit', 'credit')),
			balance NUMERIC(20,2),
			confidence_score DOUBLE PRECISION NOT NULL,
			category_label TEXT,
			category_score DOUBLE PRECISION,
			anomaly_score DOUBLE PRECISION,
			is_anomalous BOOLEAN NOT NULL DEFAULT FALSE,
			is_duplicate BOOLEAN NOT NULL DEFAULT FALSE,
			duplicate_score DOUBLE PRECISION,
			matched_fact_id TEXT,
			dedupe_key TEXT NOT NULL UNIQUE,
			source_file TEXT NOT NULL,
			source_row INT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_facts_account_date
			ON transaction_facts (account_id, transaction_date);
	`)
	return err
}

func createUploadJobTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS upload_jobs (
			id SERIAL PRIMARY KEY,
			job_id TEXT NOT NULL UNIQUE,
			file_name TEXT NOT NULL,
			file_path TEXT NOT NULL,
			institution_key TEXT NOT NULL,
			account_number TEXT NOT NULL,
			status TEXT NOT NULL,
			rows_total INT NOT NULL DEFAULT 0,
			rows_loaded INT NOT NULL DEFAULT 0,
			rows_rejected INT NOT NULL DEFAULT 0,
			rows_skipped_duplicate INT NOT NULL DEFAULT 0,
			rows_flagged_anomalous INT NOT NULL DEFAULT 0,
			rows_flagged_duplicate INT NOT NULL DEFAULT 0,
			error_message TEXT,
			failed_at_row INT,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			started_at TIMESTAMP,
			completed_at TIMESTAMP
		)
	`)
	return err
}

func createIngestionBatchTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS ingestion_batches (
			id SERIAL PRIMARY KEY,
			batch_id TEXT NOT NULL UNIQUE,
			upload_job_id TEXT NOT NULL REFERENCES upload_jobs(job_id),
			status TEXT NOT NULL,
			records_inserted INT NOT NULL DEFAULT 0,
			records_skipped INT NOT NULL DEFAULT 0,
			started_at TIMESTAMP NOT NULL DEFAULT NOW(),
			completed_at TIMESTAMP
		)
	`)
	return err
}

func createErrorLogTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS error_logs (
			id SERIAL PRIMARY KEY,
			job_id TEXT NOT NULL REFERENCES upload_jobs(job_id),
			row_index INT,
			stage TEXT NOT NULL,
			reason TEXT NOT NULL,
			raw_payload TEXT,
			occurred_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	return err
}

func createAuditLogTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS audit_logs (
			id SERIAL PRIMARY KEY,
			job_id TEXT NOT NULL,
			stage TEXT NOT NULL,
			detail TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	return err
}
