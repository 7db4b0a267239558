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
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"

	"github.com/statledger/statledger/model"
)

// maxFutureDays tolerates value-dated entries a few days ahead of upload.
const maxFutureDays = 7

// ValidateTransaction checks a parsed transaction before it is enriched and
// loaded. A failure rejects the row, never the batch.
func ValidateTransaction(txn *model.ParsedTransaction) error {
	return validation.ValidateStruct(txn,
		validation.Field(&txn.TransactionDate, validation.Required, validation.By(notFarFuture)),
		validation.Field(&txn.TransactionType, validation.Required, validation.In(model.TypeDebit, model.TypeCredit)),
		validation.Field(&txn.Amount, validation.By(nonZeroAmount)),
		validation.Field(&txn.ConfidenceScore, validation.Min(0.0), validation.Max(1.0)),
	)
}

func notFarFuture(value interface{}) error {
	date, ok := value.(time.Time)
	if !ok {
		return errors.New("must be a date")
	}
	if date.After(time.Now().AddDate(0, 0, maxFutureDays)) {
		return errors.New("transaction date is too far in the future")
	}
	return nil
}

func nonZeroAmount(value interface{}) error {
	amount, ok := value.(decimal.Decimal)
	if !ok {
		return errors.New("must be a decimal amount")
	}
	if amount.IsZero() {
		return errors.New("amount must be non-zero")
	}
	return nil
}
