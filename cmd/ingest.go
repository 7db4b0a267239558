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
	"log"
	"path/filepath"

	"github.com/spf13/cobra"
)

// ingestCommands registers the one-shot ingestion command: accept a file and
// run the pipeline inline instead of going through the worker queue.
func ingestCommands(instance *ledgerInstance) *cobra.Command {
	var institution string
	var account string
	var enqueueOnly bool

	cmd := &cobra.Command{
		Use:   "ingest [file]",
		Short: "ingest one statement file",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			path := args[0]

			uploadJob, err := instance.service.CreateUploadJob(ctx, filepath.Base(path), path, institution, account)
			if err != nil {
				log.Fatalf("Error accepting upload: %v", err)
			}
			log.Printf(" [*] Upload accepted as job %s", uploadJob.JobID)

			if enqueueOnly {
				if err := instance.service.EnqueueUploadJob(ctx, uploadJob); err != nil {
					log.Fatalf("Error enqueueing job: %v", err)
				}
				return
			}

			finished, err := instance.service.RunPipeline(ctx, uploadJob.JobID)
			if err != nil {
				log.Fatalf("Ingestion failed: %v", err)
			}
			summary := finished.Summary
			log.Printf(" [*] Job %s %s: %d total, %d loaded, %d rejected, %d skipped, %d anomalous, %d near-duplicates",
				finished.JobID, finished.Status,
				summary.RowsTotal, summary.RowsLoaded, summary.RowsRejected,
				summary.RowsSkippedDuplicate, summary.RowsFlaggedAnomalous, summary.RowsFlaggedDuplicate)
		},
	}

	cmd.Flags().StringVar(&institution, "institution", "", "institution key the statement belongs to")
	cmd.Flags().StringVar(&account, "account", "", "account number the statement belongs to")
	cmd.Flags().BoolVar(&enqueueOnly, "enqueue", false, "only enqueue the job for the workers")
	_ = cmd.MarkFlagRequired("institution")
	_ = cmd.MarkFlagRequired("account")
	return cmd
}
