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
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/statledger/statledger"
	"github.com/statledger/statledger/config"
	"github.com/statledger/statledger/database"
)

// Statledger represents the CLI application, encapsulating the root command.
type Statledger struct {
	cmd *cobra.Command
}

// ledgerInstance holds the running service and its configuration, shared by
// every subcommand.
type ledgerInstance struct {
	service *statledger.Statledger
	cnf     *config.Configuration
}

func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads the configuration and wires the service before any command
// runs.
func preRun(app *ledgerInstance, configFile *string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := config.InitConfig(*configFile); err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		service, err := setupService(cnf)
		if err != nil {
			log.Fatal(err)
		}

		app.service = service
		app.cnf = cnf
		return nil
	}
}

func setupService(cfg *config.Configuration) (*statledger.Statledger, error) {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("error getting datasource: %v", err)
	}
	service, err := statledger.NewStatledger(db)
	if err != nil {
		return nil, fmt.Errorf("error creating statledger: %v", err)
	}
	return service, nil
}

// NewCLI assembles the root command with its subcommands.
func NewCLI() *Statledger {
	var configFile string
	instance := &ledgerInstance{}

	var rootCmd = &cobra.Command{
		Use:   "statledger",
		Short: "Bank statement ingestion warehouse",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./statledger.json", "Configuration file for statledger")
	rootCmd.PersistentPreRunE = preRun(instance, &configFile)

	rootCmd.AddCommand(workerCommands(instance))
	rootCmd.AddCommand(ingestCommands(instance))
	rootCmd.AddCommand(migrateCommands())

	return &Statledger{cmd: rootCmd}
}

func (s *Statledger) executeCLI() {
	if err := s.cmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()
	cli := NewCLI()
	cli.executeCLI()
}
