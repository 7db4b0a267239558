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

	"github.com/statledger/statledger/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveColumnsBankExport(t *testing.T) {
	headers := []string{"Date", "Narration", "Chq./Ref.No.", "Value Dt", "Withdrawal Amt.", "Deposit Amt.", "Closing Balance"}

	mapping, err := ResolveColumns("file_1", headers)
	require.NoError(t, err)

	assert.Equal(t, "Date", mapping.Header(model.RoleDate))
	assert.Equal(t, "Narration", mapping.Header(model.RoleDescription))
	assert.Equal(t, "Chq./Ref.No.", mapping.Header(model.RoleReference))
	assert.Equal(t, "Value Dt", mapping.Header(model.RoleValueDate))
	assert.Equal(t, "Withdrawal Amt.", mapping.Header(model.RoleDebit))
	assert.Equal(t, "Deposit Amt.", mapping.Header(model.RoleCredit))
	assert.Equal(t, "Closing Balance", mapping.Header(model.RoleBalance))

	assert.Equal(t, 1.0, mapping.Confidence(model.RoleDebit))
	assert.Equal(t, 1.0, mapping.Confidence(model.RoleBalance))
}

func TestResolveColumnsOrderIndependent(t *testing.T) {
	forward := []string{"Date", "Narration", "Withdrawal Amt.", "Deposit Amt.", "Closing Balance"}
	reversed := []string{"Closing Balance", "Deposit Amt.", "Withdrawal Amt.", "Narration", "Date"}

	first, err := ResolveColumns("file_1", forward)
	require.NoError(t, err)
	second, err := ResolveColumns("file_1", reversed)
	require.NoError(t, err)

	for _, role := range []model.Role{model.RoleDate, model.RoleDescription, model.RoleDebit, model.RoleCredit, model.RoleBalance} {
		assert.Equal(t, first.Header(role), second.Header(role), "role %s drifted with column order", role)
		assert.Equal(t, first.Confidence(role), second.Confidence(role))
	}
}

func TestResolveColumnsSingleAmountColumn(t *testing.T) {
	mapping, err := ResolveColumns("file_1", []string{"Transaction Date", "Details", "Amount", "Balance"})
	require.NoError(t, err)

	// A lone signed amount column has to serve both directions.
	assert.Equal(t, "Amount", mapping.Header(model.RoleAmount))
	assert.Equal(t, "Amount", mapping.Header(model.RoleDebit))
	assert.Equal(t, "Amount", mapping.Header(model.RoleCredit))
}

func TestResolveColumnsRoleTieStable(t *testing.T) {
	// "dr cr" token-matches the debit and the credit vocabularies with the
	// same score and term length; the winner must not drift between runs.
	headers := []string{"Date", "dr cr", "Amount"}

	for i := 0; i < 25; i++ {
		mapping, err := ResolveColumns("file_1", headers)
		require.NoError(t, err)
		assert.Equal(t, "dr cr", mapping.Header(model.RoleDebit))
		assert.Empty(t, mapping.Header(model.RoleCredit))
	}
}

func TestResolveColumnsValueDatePromotion(t *testing.T) {
	mapping, err := ResolveColumns("file_1", []string{"Value Date", "Particulars", "Amount"})
	require.NoError(t, err)

	assert.Equal(t, "Value Date", mapping.Header(model.RoleDate))
	assert.InDelta(t, 0.9, mapping.Confidence(model.RoleDate), 0.0001)
}

func TestResolveColumnsMissingDate(t *testing.T) {
	_, err := ResolveColumns("file_1", []string{"Particulars", "Amount", "Balance"})
	require.Error(t, err)

	var structural *StructuralParseError
	require.ErrorAs(t, err, &structural)
	assert.Equal(t, "file_1", structural.FileID)
	assert.Contains(t, structural.Reason, "date")
}

func TestResolveColumnsMissingAmount(t *testing.T) {
	_, err := ResolveColumns("file_1", []string{"Date", "Narration", "Balance"})
	require.Error(t, err)

	var structural *StructuralParseError
	require.ErrorAs(t, err, &structural)
}

func TestResolveColumnsDebitWithoutCredit(t *testing.T) {
	// A debit column alone cannot represent deposits.
	_, err := ResolveColumns("file_1", []string{"Date", "Narration", "Withdrawal Amt."})
	require.Error(t, err)
}

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "chq ref no", normalizeHeader("Chq./Ref.No."))
	assert.Equal(t, "withdrawal amt", normalizeHeader("  Withdrawal Amt. "))
	assert.Equal(t, "", normalizeHeader("***"))
}

func TestScoreAgainstTermTiers(t *testing.T) {
	assert.Equal(t, 1.0, scoreAgainstTerm("date", "date"))
	assert.Equal(t, 0.9, scoreAgainstTerm("transaction posting date", "posting date"))
	assert.Greater(t, scoreAgainstTerm("dates", "date"), 0.5)
	assert.Equal(t, 0.0, scoreAgainstTerm("narration", "balance"))
}
