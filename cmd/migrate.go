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
	"log"

	"github.com/spf13/cobra"

	"github.com/statledger/statledger/config"
	"github.com/statledger/statledger/database"
)

// migrateCommands ensures the warehouse schema exists. Table creation is
// idempotent, so re-running is safe.
func migrateCommands() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "create or update the warehouse schema",
		Run: func(cmd *cobra.Command, args []string) {
			cnf, err := config.Fetch()
			if err != nil {
				log.Fatalf("Error fetching config: %v", err)
			}
			if _, err := database.ConnectDB(cnf.DataSource.Dns); err != nil {
				log.Fatalf("Error migrating schema: %v", err)
			}
			log.Println(" [*] Schema is up to date")
		},
	}
	return cmd
}
