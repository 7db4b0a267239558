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
	"encoding/json"
	"log"

	"github.com/hibiken/asynq"

	"github.com/statledger/statledger/config"
	redis_db "github.com/statledger/statledger/internal/redis-db"
	"github.com/statledger/statledger/model"
)

// Queue hands accepted upload jobs to the worker pool.
type Queue struct {
	Client    *asynq.Client
	Inspector *asynq.Inspector
}

// IngestionPayload is the task body for one pipeline run.
type IngestionPayload struct {
	JobID    string `json:"job_id"`
	FileName string `json:"file_name"`
}

// NewQueue initializes a new Queue instance with the provided configuration.
func NewQueue(conf *config.Configuration) *Queue {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns)
	if err != nil {
		log.Fatalf("Error parsing Redis URL: %v", err)
	}

	queueOptions := asynq.RedisClientOpt{Addr: redisOption.Addr, Password: redisOption.Password, DB: redisOption.DB}
	client := asynq.NewClient(queueOptions)
	inspector := asynq.NewInspector(queueOptions)
	return &Queue{
		Client:    client,
		Inspector: inspector,
	}
}

// Enqueue schedules the ingestion run for an accepted upload. The task ID is
// the job ID, so re-enqueueing the same job is a no-op while it is pending.
func (q *Queue) Enqueue(ctx context.Context, uploadJob *model.UploadJob) error {
	cfg, err := config.Fetch()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(IngestionPayload{JobID: uploadJob.JobID, FileName: uploadJob.FileName})
	if err != nil {
		return err
	}
	taskOptions := []asynq.Option{
		asynq.TaskID(uploadJob.JobID),
		asynq.Queue(cfg.Queue.IngestionQueue),
	}
	task := asynq.NewTask(cfg.Queue.IngestionQueue, payload, taskOptions...)
	info, err := q.Client.EnqueueContext(ctx, task)
	if err != nil {
		log.Println(err, info)
		return err
	}
	log.Printf(" [*] Successfully enqueued ingestion job: %s (%s)", uploadJob.JobID, uploadJob.FileName)
	return nil
}
