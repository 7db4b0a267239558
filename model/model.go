package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GenerateUUIDWithSuffix generates a UUID prefixed with a module name, giving
// identifiers context (job_..., batch_..., fact_...).
func GenerateUUIDWithSuffix(module string) string {
	id := uuid.New()
	return fmt.Sprintf("%s_%s", module, id.String())
}

// NormalizeDescription lowercases a description, collapses runs of whitespace
// and truncates to 50 characters so cosmetic restatements of the same
// narration fingerprint identically.
func NormalizeDescription(description string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(description)), " ")
	if len(normalized) > 50 {
		normalized = normalized[:50]
	}
	return normalized
}

// DedupeKey builds the deterministic fingerprint of a transaction used for
// exact re-submission detection. Two uploads of the same statement line always
// produce the same key regardless of header order or description casing.
func DedupeKey(institutionKey, accountNumber string, date time.Time, amount decimal.Decimal, description, transactionType string) string {
	raw := fmt.Sprintf("%s|%s|%s|%s|%s|%s",
		institutionKey,
		accountNumber,
		date.Format("2006-01-02"),
		amount.StringFixed(2),
		NormalizeDescription(description),
		transactionType,
	)
	hash := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(hash[:])
}
