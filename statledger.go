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

	"github.com/redis/go-redis/v9"

	"github.com/statledger/statledger/cache"
	"github.com/statledger/statledger/config"
	"github.com/statledger/statledger/database"
	redis_db "github.com/statledger/statledger/internal/redis-db"
	"github.com/statledger/statledger/model"
)

// Statledger is the main struct for the ingestion service. One instance
// serves many concurrent upload jobs; the dimension manager and anomaly
// scorer are the only state shared between them.
type Statledger struct {
	queue       *Queue
	redis       redis.UniversalClient
	cache       cache.Cache
	datasource  database.IDataSource
	dimensions  *DimensionManager
	anomalies   *AnomalyScorer
	duplicates  *DuplicateResolver
	categorizer *Categorizer
	loader      *FactLoader
}

// NewStatledger initializes the service with the provided datasource. It
// fetches the configuration and wires the Redis client, queue, cache, and
// the pipeline stages.
func NewStatledger(db database.IDataSource) (*Statledger, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	redisClient, err := redis_db.NewRedisClient([]string{fmt.Sprintf("redis://%s", configuration.Redis.Dns)})
	if err != nil {
		return nil, err
	}
	newCache, err := cache.NewCache()
	if err != nil {
		return nil, err
	}
	newQueue := NewQueue(configuration)

	ingestion := configuration.Ingestion
	service := &Statledger{
		queue:       newQueue,
		redis:       redisClient.Client(),
		cache:       newCache,
		datasource:  db,
		dimensions:  NewDimensionManager(db, redisClient.Client()),
		anomalies:   NewAnomalyScorer(ingestion.MinAnomalyHistory, ingestion.ContaminationRate),
		duplicates:  NewDuplicateResolver(ingestion.DuplicateThreshold, ingestion.DuplicateWindowDays),
		categorizer: NewCategorizer(ingestion.CategoryKeywords),
		loader:      NewFactLoader(db),
	}
	return service, nil
}

// GetUploadJob returns the lifecycle record for a job.
func (s *Statledger) GetUploadJob(ctx context.Context, jobID string) (*model.UploadJob, error) {
	return s.datasource.GetUploadJob(ctx, jobID)
}

// GetErrorLogs returns a job's row-level rejections in input row order.
func (s *Statledger) GetErrorLogs(ctx context.Context, jobID string) ([]*model.ErrorLogEntry, error) {
	return s.datasource.GetErrorLogs(ctx, jobID)
}

// GetAuditTrail returns the stage transitions recorded for a job.
func (s *Statledger) GetAuditTrail(ctx context.Context, jobID string) ([]*model.AuditLogEntry, error) {
	return s.datasource.GetAuditLogs(ctx, jobID)
}

// recentFacts fetches the duplicate-comparison window for an account, with a
// short-lived cache in front of the fact table. One statement usually holds
// many rows from the same few days, so the window repeats heavily.
func (s *Statledger) recentFacts(ctx context.Context, accountID string, center time.Time) ([]*model.TransactionFact, error) {
	key := fmt.Sprintf("facts:window:%s:%s", accountID, center.Format("2006-01-02"))
	var cached []*model.TransactionFact
	if s.cache != nil {
		if err := s.cache.Get(ctx, key, &cached); err == nil && cached != nil {
			return cached, nil
		}
	}
	facts, err := s.datasource.GetRecentFacts(ctx, accountID, center, s.duplicates.WindowDays())
	if err != nil {
		return nil, err
	}
	if s.cache != nil && facts != nil {
		_ = s.cache.Set(ctx, key, facts, 30*time.Second)
	}
	return facts, nil
}

// invalidateRecentFacts drops every cached window the new fact falls inside.
// A window cached under an adjacent center date spans this fact too, so the
// whole span goes, not just the fact's own date.
func (s *Statledger) invalidateRecentFacts(ctx context.Context, accountID string, center time.Time) {
	if s.cache == nil {
		return
	}
	window := s.duplicates.WindowDays()
	for offset := -window; offset <= window; offset++ {
		key := fmt.Sprintf("facts:window:%s:%s", accountID, center.AddDate(0, 0, offset).Format("2006-01-02"))
		_ = s.cache.Delete(ctx, key)
	}
}
