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
	"testing"
	"time"

	"github.com/statledger/statledger/database/mocks"
	"github.com/statledger/statledger/internal/apierror"
	"github.com/statledger/statledger/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestEnsureInsertsFirstVersion(t *testing.T) {
	datasource := new(mocks.MockDataSource)
	manager := NewDimensionManager(datasource, nil)

	datasource.On("GetCurrentDimension", mock.Anything, model.DimInstitution, "hdfc").Return(nil, nil)
	datasource.On("InsertDimensionVersion", mock.Anything, mock.MatchedBy(func(record *model.DimensionRecord) bool {
		return record.Type == model.DimInstitution && record.NaturalKey == "hdfc" && record.Attributes["name"] == "hdfc"
	})).Return(&model.DimensionRecord{SurrogateID: "dim_1", NaturalKey: "hdfc"}, nil)

	record, err := manager.Ensure(context.Background(), model.DimInstitution, "hdfc", map[string]string{"name": "hdfc"})
	require.NoError(t, err)
	assert.Equal(t, "dim_1", record.SurrogateID)
	datasource.AssertExpectations(t)
}

func TestEnsureReusesUnchangedVersion(t *testing.T) {
	datasource := new(mocks.MockDataSource)
	manager := NewDimensionManager(datasource, nil)

	current := &model.DimensionRecord{
		SurrogateID: "dim_1",
		Type:        model.DimAccount,
		NaturalKey:  "hdfc:12345",
		Attributes:  map[string]string{"institution": "hdfc", "account_number": "12345"},
		IsCurrent:   true,
	}
	datasource.On("GetCurrentDimension", mock.Anything, model.DimAccount, "hdfc:12345").Return(current, nil)

	record, err := manager.Ensure(context.Background(), model.DimAccount, "hdfc:12345", map[string]string{"institution": "hdfc", "account_number": "12345"})
	require.NoError(t, err)
	assert.Equal(t, "dim_1", record.SurrogateID)
	datasource.AssertNotCalled(t, "InsertDimensionVersion", mock.Anything, mock.Anything)
	datasource.AssertNotCalled(t, "RotateDimensionVersion", mock.Anything, mock.Anything, mock.Anything)
}

func TestEnsureRotatesChangedAttributes(t *testing.T) {
	datasource := new(mocks.MockDataSource)
	manager := NewDimensionManager(datasource, nil)

	current := &model.DimensionRecord{
		SurrogateID: "dim_1",
		Type:        model.DimCategory,
		NaturalKey:  "Dining",
		Attributes:  map[string]string{"label": "Dining Out"},
		IsCurrent:   true,
	}
	datasource.On("GetCurrentDimension", mock.Anything, model.DimCategory, "Dining").Return(current, nil)
	datasource.On("RotateDimensionVersion", mock.Anything, current, mock.MatchedBy(func(next *model.DimensionRecord) bool {
		return next.NaturalKey == "Dining" && next.Attributes["label"] == "Dining"
	})).Return(&model.DimensionRecord{SurrogateID: "dim_2", NaturalKey: "Dining"}, nil)

	record, err := manager.Ensure(context.Background(), model.DimCategory, "Dining", map[string]string{"label": "Dining"})
	require.NoError(t, err)
	assert.Equal(t, "dim_2", record.SurrogateID)
	datasource.AssertExpectations(t)
}

func TestEnsureRetriesConflictThenSucceeds(t *testing.T) {
	datasource := new(mocks.MockDataSource)
	manager := NewDimensionManager(datasource, nil)

	stale := &model.DimensionRecord{SurrogateID: "dim_1", NaturalKey: "hdfc", Attributes: map[string]string{"name": "old"}}
	fresh := &model.DimensionRecord{SurrogateID: "dim_2", NaturalKey: "hdfc", Attributes: map[string]string{"name": "hdfc"}}

	datasource.On("GetCurrentDimension", mock.Anything, model.DimInstitution, "hdfc").Return(stale, nil).Once()
	datasource.On("RotateDimensionVersion", mock.Anything, stale, mock.Anything).
		Return(nil, apierror.NewAPIError(apierror.ErrConflict, "version is no longer current", nil)).Once()
	// The losing writer re-reads and finds the winner already wrote what it
	// wanted.
	datasource.On("GetCurrentDimension", mock.Anything, model.DimInstitution, "hdfc").Return(fresh, nil).Once()

	record, err := manager.Ensure(context.Background(), model.DimInstitution, "hdfc", map[string]string{"name": "hdfc"})
	require.NoError(t, err)
	assert.Equal(t, "dim_2", record.SurrogateID)
	datasource.AssertExpectations(t)
}

func TestEnsureConflictExhaustsRetries(t *testing.T) {
	datasource := new(mocks.MockDataSource)
	manager := NewDimensionManager(datasource, nil)

	stale := &model.DimensionRecord{SurrogateID: "dim_1", NaturalKey: "hdfc", Attributes: map[string]string{"name": "old"}}
	datasource.On("GetCurrentDimension", mock.Anything, model.DimInstitution, "hdfc").Return(stale, nil)
	datasource.On("RotateDimensionVersion", mock.Anything, stale, mock.Anything).
		Return(nil, apierror.NewAPIError(apierror.ErrConflict, "version is no longer current", nil))

	start := time.Now()
	_, err := manager.Ensure(context.Background(), model.DimInstitution, "hdfc", map[string]string{"name": "hdfc"})
	require.Error(t, err)

	var conflict *DimensionConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "hdfc", conflict.NaturalKey)
	assert.Equal(t, dimensionMaxAttempts, conflict.Attempts)
	assert.Less(t, time.Since(start), 30*time.Second)
}

// chainStore retains every version it ever wrote, so the full chain of a
// natural key can be inspected after repeated rotations.
type chainStore struct {
	*memoryStore
	versions []*model.DimensionRecord
}

func (c *chainStore) InsertDimensionVersion(ctx context.Context, record *model.DimensionRecord) (*model.DimensionRecord, error) {
	record, err := c.memoryStore.InsertDimensionVersion(ctx, record)
	if err != nil {
		return nil, err
	}
	c.versions = append(c.versions, record)
	return record, nil
}

func (c *chainStore) RotateDimensionVersion(ctx context.Context, current, next *model.DimensionRecord) (*model.DimensionRecord, error) {
	next, err := c.memoryStore.RotateDimensionVersion(ctx, current, next)
	if err != nil {
		return nil, err
	}
	c.versions = append(c.versions, next)
	return next, nil
}

func TestEnsureChainStaysContiguousAcrossRotations(t *testing.T) {
	store := &chainStore{memoryStore: newMemoryStore()}
	manager := NewDimensionManager(store, nil)
	ctx := context.Background()

	const rotations = 5
	for i := 0; i <= rotations; i++ {
		attributes := map[string]string{"name": fmt.Sprintf("HDFC Bank v%d", i)}
		record, err := manager.Ensure(ctx, model.DimInstitution, "hdfc", attributes)
		require.NoError(t, err)
		assert.True(t, record.IsCurrent)
	}

	require.Len(t, store.versions, rotations+1)

	currentCount := 0
	for _, version := range store.versions {
		if version.IsCurrent {
			currentCount++
		}
	}
	assert.Equal(t, 1, currentCount, "one open version per natural key")
	assert.True(t, store.versions[rotations].IsCurrent)
	assert.Nil(t, store.versions[rotations].ValidTo)

	// Every closed version hands off exactly where its successor opens.
	for i := 0; i < rotations; i++ {
		closed := store.versions[i]
		require.NotNil(t, closed.ValidTo, "version %d must be closed", i)
		assert.Equal(t, *closed.ValidTo, store.versions[i+1].ValidFrom, "version %d must close where version %d opens", i, i+1)
	}
}

func TestEnsurePermanentErrorNotRetried(t *testing.T) {
	datasource := new(mocks.MockDataSource)
	manager := NewDimensionManager(datasource, nil)

	datasource.On("GetCurrentDimension", mock.Anything, model.DimInstitution, "hdfc").
		Return(nil, apierror.NewAPIError(apierror.ErrInternalServer, "connection refused", nil)).Once()

	_, err := manager.Ensure(context.Background(), model.DimInstitution, "hdfc", map[string]string{"name": "hdfc"})
	require.Error(t, err)
	datasource.AssertNumberOfCalls(t, "GetCurrentDimension", 1)
}
