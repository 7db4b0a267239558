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

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/statledger/statledger/database"
	"github.com/statledger/statledger/internal/apierror"
	redlock "github.com/statledger/statledger/internal/lock"
	"github.com/statledger/statledger/model"
)

const (
	dimensionLockTimeout = 30 * time.Second
	dimensionLockWait    = 10 * time.Second
	dimensionMaxAttempts = 3
)

// DimensionManager maintains the version chains of the reference dimensions.
// All writes to one natural key pass through a distributed lock, so two
// concurrent batches cannot both close the same current version.
type DimensionManager struct {
	datasource database.IDataSource
	redis      redis.UniversalClient
}

func NewDimensionManager(datasource database.IDataSource, redisClient redis.UniversalClient) *DimensionManager {
	return &DimensionManager{datasource: datasource, redis: redisClient}
}

// Ensure returns the surrogate for the natural key whose attributes match the
// observed set. An unseen key gets a first version; changed attributes close
// the current version and open a successor stamped with the same instant.
// Unchanged attributes return the existing current version untouched.
func (m *DimensionManager) Ensure(ctx context.Context, dimType model.DimensionType, naturalKey string, attributes map[string]string) (*model.DimensionRecord, error) {
	if m.redis != nil {
		locker := redlock.NewLocker(m.redis, fmt.Sprintf("dimension:%s:%s", dimType, naturalKey), model.GenerateUUIDWithSuffix("lock"))
		if err := locker.WaitLock(ctx, dimensionLockTimeout, dimensionLockWait); err != nil {
			return nil, err
		}
		defer func() {
			if err := locker.Unlock(context.Background()); err != nil {
				logrus.Warnf("failed to release dimension lock for %s: %v", naturalKey, err)
			}
		}()
	}

	var record *model.DimensionRecord
	attempts := 0
	operation := func() error {
		attempts++
		current, err := m.datasource.GetCurrentDimension(ctx, dimType, naturalKey)
		if err != nil {
			return backoff.Permanent(err)
		}
		record, err = m.reconcile(ctx, dimType, naturalKey, attributes, current)
		if err != nil {
			if apierror.IsConflict(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), dimensionMaxAttempts-1), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		if apierror.IsConflict(err) {
			return nil, &DimensionConflictError{NaturalKey: naturalKey, Attempts: attempts}
		}
		return nil, err
	}
	return record, nil
}

func (m *DimensionManager) reconcile(ctx context.Context, dimType model.DimensionType, naturalKey string, attributes map[string]string, current *model.DimensionRecord) (*model.DimensionRecord, error) {
	if current == nil {
		first := &model.DimensionRecord{
			SurrogateID: model.GenerateUUIDWithSuffix("dim"),
			Type:        dimType,
			NaturalKey:  naturalKey,
			Attributes:  attributes,
			ValidFrom:   time.Now(),
		}
		return m.datasource.InsertDimensionVersion(ctx, first)
	}
	if current.AttributesEqual(attributes) {
		return current, nil
	}

	now := time.Now()
	next := &model.DimensionRecord{
		SurrogateID: model.GenerateUUIDWithSuffix("dim"),
		Type:        dimType,
		NaturalKey:  naturalKey,
		Attributes:  attributes,
		ValidFrom:   now,
	}
	logrus.Infof("rotating %s dimension %s: attributes changed", dimType, naturalKey)
	return m.datasource.RotateDimensionVersion(ctx, current, next)
}
