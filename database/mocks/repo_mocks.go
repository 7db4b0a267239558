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
package mocks

import (
	"context"
	"time"

	"github.com/statledger/statledger/model"
	"github.com/stretchr/testify/mock"
)

// MockDataSource is a mock implementation of the IDataSource interface
type MockDataSource struct {
	mock.Mock
}

// Dimension methods

func (m *MockDataSource) GetCurrentDimension(ctx context.Context, dimType model.DimensionType, naturalKey string) (*model.DimensionRecord, error) {
	args := m.Called(ctx, dimType, naturalKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DimensionRecord), args.Error(1)
}

func (m *MockDataSource) InsertDimensionVersion(ctx context.Context, record *model.DimensionRecord) (*model.DimensionRecord, error) {
	args := m.Called(ctx, record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DimensionRecord), args.Error(1)
}

func (m *MockDataSource) RotateDimensionVersion(ctx context.Context, current, next *model.DimensionRecord) (*model.DimensionRecord, error) {
	args := m.Called(ctx, current, next)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DimensionRecord), args.Error(1)
}

// Fact methods

func (m *MockDataSource) FactExistsByDedupeKey(ctx context.Context, dedupeKey string) (bool, error) {
	args := m.Called(ctx, dedupeKey)
	return args.Bool(0), args.Error(1)
}

func (m *MockDataSource) RecordFact(ctx context.Context, fact *model.TransactionFact) (*model.TransactionFact, error) {
	args := m.Called(ctx, fact)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TransactionFact), args.Error(1)
}

func (m *MockDataSource) GetRecentFacts(ctx context.Context, accountID string, center time.Time, windowDays int) ([]*model.TransactionFact, error) {
	args := m.Called(ctx, accountID, center, windowDays)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.TransactionFact), args.Error(1)
}

func (m *MockDataSource) GetAccountHistory(ctx context.Context, accountID string, limit int) ([]*model.TransactionFact, error) {
	args := m.Called(ctx, accountID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.TransactionFact), args.Error(1)
}

// Job methods

func (m *MockDataSource) RecordUploadJob(ctx context.Context, uploadJob *model.UploadJob) error {
	args := m.Called(ctx, uploadJob)
	return args.Error(0)
}

func (m *MockDataSource) GetUploadJob(ctx context.Context, jobID string) (*model.UploadJob, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UploadJob), args.Error(1)
}

func (m *MockDataSource) UpdateUploadJobStatus(ctx context.Context, jobID, status string) error {
	args := m.Called(ctx, jobID, status)
	return args.Error(0)
}

func (m *MockDataSource) FinalizeUploadJob(ctx context.Context, uploadJob *model.UploadJob) error {
	args := m.Called(ctx, uploadJob)
	return args.Error(0)
}

func (m *MockDataSource) RecordIngestionBatch(ctx context.Context, batch *model.IngestionBatch) error {
	args := m.Called(ctx, batch)
	return args.Error(0)
}

func (m *MockDataSource) UpdateIngestionBatch(ctx context.Context, batch *model.IngestionBatch) error {
	args := m.Called(ctx, batch)
	return args.Error(0)
}

func (m *MockDataSource) RecordErrorLog(ctx context.Context, entry *model.ErrorLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockDataSource) GetErrorLogs(ctx context.Context, jobID string) ([]*model.ErrorLogEntry, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.ErrorLogEntry), args.Error(1)
}

func (m *MockDataSource) RecordAuditLog(ctx context.Context, entry *model.AuditLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockDataSource) GetAuditLogs(ctx context.Context, jobID string) ([]*model.AuditLogEntry, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.AuditLogEntry), args.Error(1)
}
