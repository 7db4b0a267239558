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

package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

var ConfigStore atomic.Value

type DataSourceConfig struct {
	Dns string `json:"dns" envconfig:"STATLEDGER_DATA_SOURCE_DNS"`
}

type RedisConfig struct {
	Dns string `json:"dns" envconfig:"STATLEDGER_REDIS_DNS"`
}

type QueueConfig struct {
	IngestionQueue string `json:"ingestion_queue" envconfig:"STATLEDGER_INGESTION_QUEUE"`
	Concurrency    int    `json:"concurrency" envconfig:"STATLEDGER_QUEUE_CONCURRENCY"`
}

// IngestionConfig carries the recognized tuning options of the pipeline.
// Every value has a default; a missing config file still yields a runnable
// pipeline against local Postgres/Redis.
type IngestionConfig struct {
	// ContaminationRate is the expected fraction of anomalous transactions,
	// used to calibrate the outlier threshold.
	ContaminationRate float64 `json:"contamination_rate" envconfig:"STATLEDGER_CONTAMINATION_RATE"`
	// DuplicateThreshold is the similarity at or above which a row is flagged
	// as a near-duplicate.
	DuplicateThreshold float64 `json:"duplicate_threshold" envconfig:"STATLEDGER_DUPLICATE_THRESHOLD"`
	// DuplicateWindowDays bounds the recent-ledger slice compared against.
	DuplicateWindowDays int `json:"duplicate_window_days" envconfig:"STATLEDGER_DUPLICATE_WINDOW_DAYS"`
	// MinAnomalyHistory is the number of historical transactions an account
	// needs before anomaly scores are produced at all.
	MinAnomalyHistory int `json:"min_anomaly_history" envconfig:"STATLEDGER_MIN_ANOMALY_HISTORY"`
	// DateFormats is the priority-ordered list of Go reference layouts tried
	// when pinning a file's date format.
	DateFormats []string `json:"date_formats"`
	// DefaultValueDateToTransactionDate controls what happens when a statement
	// has no value-date column: false leaves the value date null.
	DefaultValueDateToTransactionDate bool `json:"default_value_date_to_transaction_date" envconfig:"STATLEDGER_DEFAULT_VALUE_DATE"`
	// CategoryKeywords maps category labels to their keyword vocabulary. The
	// table is data: institutions add vocabulary here, never in code.
	CategoryKeywords map[string][]string `json:"category_keywords"`
}

// NotificationConfig points at an optional webhook notified on job-level
// failures. Empty URL disables notification.
type NotificationConfig struct {
	Webhook WebhookConfig `json:"webhook"`
}

type WebhookConfig struct {
	Url     string            `json:"url" envconfig:"STATLEDGER_WEBHOOK_URL"`
	Headers map[string]string `json:"headers"`
}

type Configuration struct {
	ProjectName  string             `json:"project_name" envconfig:"STATLEDGER_PROJECT_NAME"`
	DataSource   DataSourceConfig   `json:"data_source"`
	Redis        RedisConfig        `json:"redis"`
	Queue        QueueConfig        `json:"queue"`
	Ingestion    IngestionConfig    `json:"ingestion"`
	Notification NotificationConfig `json:"notification"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		defer f.Close()
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}
	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("statledger", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called statledger.json with your config")
	}
	return c, nil
}

// DefaultDateFormats is the built-in layout priority: ISO first, then
// day-first, then month-first, then textual months.
func DefaultDateFormats() []string {
	return []string{
		"2006-01-02",
		"02/01/2006",
		"02-01-2006",
		"01/02/2006",
		"02 Jan 2006",
		"2 Jan 2006",
		"Jan 2, 2006",
		"02-Jan-2006",
	}
}

// DefaultCategoryKeywords is the built-in category vocabulary, used when the
// config file does not supply one.
func DefaultCategoryKeywords() map[string][]string {
	return map[string][]string{
		"Salary":         {"salary", "wages", "payroll", "stipend", "remuneration"},
		"Groceries":      {"grocery", "supermarket", "vegetables", "provisions", "mart", "store"},
		"Utilities":      {"electricity", "water", "gas", "internet", "phone", "utility"},
		"Transportation": {"fuel", "petrol", "diesel", "taxi", "uber", "bus", "metro", "parking"},
		"Healthcare":     {"hospital", "doctor", "pharmacy", "medical", "clinic", "health"},
		"Entertainment":  {"movie", "cinema", "games", "subscription", "spotify", "netflix"},
		"Insurance":      {"insurance", "premium", "policy"},
		"Shopping":       {"mall", "shop", "boutique", "apparel", "clothing", "amazon", "flipkart"},
		"Dining":         {"restaurant", "cafe", "zomato", "swiggy", "pizza", "burger"},
		"Education":      {"school", "college", "tuition", "course", "training", "education"},
		"Rent":           {"rent", "landlord", "lease"},
		"Loan":           {"loan", "emi", "mortgage"},
		"Investment":     {"investment", "mutual fund", "stock", "trading", "broker", "sip"},
		"Transfer":       {"transfer", "neft", "rtgs", "imps", "upi"},
		"Withdrawal":     {"atm", "cash withdrawal", "withdrawal"},
	}
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		cnf.ProjectName = "Statledger"
	}

	if cnf.DataSource.Dns == "" {
		log.Println("Error: Data source DNS is empty. It's a required field.")
		return errors.New("data source DNS is required")
	}

	if cnf.Redis.Dns == "" {
		log.Println("Error: Redis DNS is empty. It's a required field.")
		return errors.New("redis DNS is required")
	}

	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)

	if cnf.Queue.IngestionQueue == "" {
		cnf.Queue.IngestionQueue = "new:ingestion"
	}
	if cnf.Queue.Concurrency <= 0 {
		cnf.Queue.Concurrency = 4
	}

	if cnf.Ingestion.ContaminationRate <= 0 || cnf.Ingestion.ContaminationRate >= 1 {
		cnf.Ingestion.ContaminationRate = 0.07
	}
	if cnf.Ingestion.DuplicateThreshold <= 0 || cnf.Ingestion.DuplicateThreshold > 1 {
		cnf.Ingestion.DuplicateThreshold = 0.90
	}
	if cnf.Ingestion.DuplicateWindowDays <= 0 {
		cnf.Ingestion.DuplicateWindowDays = 3
	}
	if cnf.Ingestion.MinAnomalyHistory <= 0 {
		cnf.Ingestion.MinAnomalyHistory = 10
	}
	if len(cnf.Ingestion.DateFormats) == 0 {
		cnf.Ingestion.DateFormats = DefaultDateFormats()
	}
	if len(cnf.Ingestion.CategoryKeywords) == 0 {
		cnf.Ingestion.CategoryKeywords = DefaultCategoryKeywords()
	}

	return nil
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	if err := mockConfig.validateAndAddDefaults(); err != nil {
		log.Printf("mock config missing required fields: %v", err)
	}
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
