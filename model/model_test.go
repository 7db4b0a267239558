package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestDedupeKeyDeterministic(t *testing.T) {
	date := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
	amount := decimal.NewFromFloat(50000.00)

	key1 := DedupeKey("hdfc", "1234567890", date, amount, "SALARY CREDIT", TypeCredit)
	key2 := DedupeKey("hdfc", "1234567890", date, amount, "SALARY CREDIT", TypeCredit)
	assert.Equal(t, key1, key2)
	assert.Len(t, key1, 64)
}

func TestDedupeKeyNormalizesDescription(t *testing.T) {
	date := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
	amount := decimal.NewFromFloat(120.50)

	key1 := DedupeKey("hdfc", "1234567890", date, amount, "  Salary   CREDIT ", TypeCredit)
	key2 := DedupeKey("hdfc", "1234567890", date, amount, "salary credit", TypeCredit)
	assert.Equal(t, key1, key2)
}

func TestDedupeKeySensitivity(t *testing.T) {
	date := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
	base := DedupeKey("hdfc", "1234567890", date, decimal.NewFromInt(100), "atm withdrawal", TypeDebit)

	assert.NotEqual(t, base, DedupeKey("hdfc", "1234567890", date, decimal.NewFromInt(101), "atm withdrawal", TypeDebit))
	assert.NotEqual(t, base, DedupeKey("hdfc", "0987654321", date, decimal.NewFromInt(100), "atm withdrawal", TypeDebit))
	assert.NotEqual(t, base, DedupeKey("sbi", "1234567890", date, decimal.NewFromInt(100), "atm withdrawal", TypeDebit))
	assert.NotEqual(t, base, DedupeKey("hdfc", "1234567890", date.AddDate(0, 0, 1), decimal.NewFromInt(100), "atm withdrawal", TypeDebit))
}

func TestAttributesEqual(t *testing.T) {
	record := &DimensionRecord{
		Attributes: map[string]string{"account_name": "Salary Account", "currency": "INR"},
	}

	assert.True(t, record.AttributesEqual(map[string]string{"account_name": "Salary Account", "currency": "INR"}))
	assert.False(t, record.AttributesEqual(map[string]string{"account_name": "Salary Account", "currency": "USD"}))
	assert.False(t, record.AttributesEqual(map[string]string{"account_name": "Salary Account"}))
}

func TestGenerateUUIDWithSuffix(t *testing.T) {
	id := GenerateUUIDWithSuffix("job")
	assert.Contains(t, id, "job_")
	assert.NotEqual(t, id, GenerateUUIDWithSuffix("job"))
}
