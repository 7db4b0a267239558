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

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/statledger/statledger"
	"github.com/statledger/statledger/config"
	"github.com/statledger/statledger/internal/notification"
	redis_db "github.com/statledger/statledger/internal/redis-db"
	"github.com/statledger/statledger/model"
)

// processIngestion runs the full pipeline for one queued upload job. A
// structural failure is terminal: the job is already marked failed, so the
// task must not be retried.
func (i *ledgerInstance) processIngestion(ctx context.Context, t *asynq.Task) error {
	ctx, span := otel.Tracer("ingestion.worker").Start(ctx, "Process upload job from queue")
	defer span.End()

	var payload statledger.IngestionPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		logrus.Error(err)
		return err
	}

	uploadJob, err := i.service.RunPipeline(ctx, payload.JobID)
	if err != nil {
		notification.NotifyError(payload.JobID, payload.FileName, err)
		if uploadJob != nil && uploadJob.Status == model.JobFailed {
			return fmt.Errorf("upload job %s failed: %v: %w", payload.JobID, err, asynq.SkipRetry)
		}
		return err
	}

	log.Printf(" [*] Upload job processed %s (%d rows loaded)", uploadJob.JobID, uploadJob.Summary.RowsLoaded)
	return nil
}

func initializeWorkerServer(conf *config.Configuration) (*asynq.Server, error) {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns)
	if err != nil {
		return nil, fmt.Errorf("error parsing Redis URL: %v", err)
	}

	return asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     redisOption.Addr,
			Password: redisOption.Password,
			DB:       redisOption.DB,
		},
		asynq.Config{
			Concurrency: conf.Queue.Concurrency,
			Queues:      map[string]int{conf.Queue.IngestionQueue: 1},
		},
	), nil
}

// workerCommands starts the queue consumers that execute ingestion runs.
func workerCommands(instance *ledgerInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workers",
		Short: "start ingestion workers",
		Run: func(cmd *cobra.Command, args []string) {
			conf, err := config.Fetch()
			if err != nil {
				log.Fatalf("Error fetching config: %v", err)
			}

			server, err := initializeWorkerServer(conf)
			if err != nil {
				log.Fatalf("Error initializing worker server: %v", err)
			}

			mux := asynq.NewServeMux()
			mux.HandleFunc(conf.Queue.IngestionQueue, instance.processIngestion)

			if err := server.Run(mux); err != nil {
				notification.NotifyError("", "", err)
				log.Fatalf("Error running worker server: %v", err)
			}
		},
	}
	return cmd
}
