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
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/statledger/statledger/model"
	"github.com/stretchr/testify/assert"
)

func validTxn() *model.ParsedTransaction {
	return &model.ParsedTransaction{
		TransactionDate: time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC),
		Description:     "SALARY CREDIT",
		Amount:          decimal.NewFromInt(50000),
		TransactionType: model.TypeCredit,
		ConfidenceScore: 0.9,
	}
}

func TestValidateTransaction(t *testing.T) {
	assert.NoError(t, ValidateTransaction(validTxn()))
}

func TestValidateRejectsZeroAmount(t *testing.T) {
	txn := validTxn()
	txn.Amount = decimal.Zero
	assert.Error(t, ValidateTransaction(txn))
}

func TestValidateRejectsUnknownType(t *testing.T) {
	txn := validTxn()
	txn.TransactionType = "reversal"
	assert.Error(t, ValidateTransaction(txn))
}

func TestValidateRejectsFarFutureDate(t *testing.T) {
	txn := validTxn()
	txn.TransactionDate = time.Now().AddDate(0, 0, maxFutureDays+2)
	assert.Error(t, ValidateTransaction(txn))

	// Value-dated entries a couple of days ahead are routine.
	txn.TransactionDate = time.Now().AddDate(0, 0, 2)
	assert.NoError(t, ValidateTransaction(txn))
}

func TestValidateConfidenceBounds(t *testing.T) {
	txn := validTxn()
	txn.ConfidenceScore = 1.2
	assert.Error(t, ValidateTransaction(txn))

	txn.ConfidenceScore = -0.1
	assert.Error(t, ValidateTransaction(txn))
}
