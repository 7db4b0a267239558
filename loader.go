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
	"time"

	"github.com/statledger/statledger/database"
	"github.com/statledger/statledger/model"
)

// FactLoader appends enriched rows to the fact table. The dedupe key check
// makes re-uploading the same file a no-op rather than a double load.
type FactLoader struct {
	datasource database.IDataSource
}

func NewFactLoader(datasource database.IDataSource) *FactLoader {
	return &FactLoader{datasource: datasource}
}

// Load persists one enriched transaction. Returns ErrDuplicateKeySkip when an
// identical transaction is already on the ledger; the caller counts it as
// skipped, not failed.
func (l *FactLoader) Load(ctx context.Context, fact *model.TransactionFact) (*model.TransactionFact, error) {
	exists, err := l.datasource.FactExistsByDedupeKey(ctx, fact.DedupeKey)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateKeySkip
	}
	if fact.FactID == "" {
		fact.FactID = model.GenerateUUIDWithSuffix("fact")
	}
	if fact.CreatedAt.IsZero() {
		fact.CreatedAt = time.Now()
	}
	return l.datasource.RecordFact(ctx, fact)
}
