package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Role names a canonical statement column resolved from an arbitrary header.
type Role string

const (
	RoleDate        Role = "date"
	RoleValueDate   Role = "value_date"
	RoleDescription Role = "description"
	RoleReference   Role = "reference"
	RoleDebit       Role = "debit"
	RoleCredit      Role = "credit"
	RoleAmount      Role = "amount"
	RoleBalance     Role = "balance"
)

const (
	TypeDebit  = "debit"
	TypeCredit = "credit"
)

// RawRow is one statement line as produced by the tabulation collaborator:
// the original header strings in file order, and the cell under each header.
type RawRow struct {
	Index   int               `json:"index"`
	Headers []string          `json:"headers"`
	Cells   map[string]string `json:"cells"`
}

// Cell returns the trimmed value under the given original header.
func (r RawRow) Cell(header string) string {
	return r.Cells[header]
}

// RoleMatch binds a canonical role to the originating header string.
type RoleMatch struct {
	Header     string  `json:"header"`
	Confidence float64 `json:"confidence"`
}

// ColumnMapping maps canonical roles to the header row of one file. It is
// built once per upload and reused for every data row.
type ColumnMapping struct {
	Roles map[Role]RoleMatch `json:"roles"`
}

// Match returns the resolved match for a role and whether the role was mapped.
func (m ColumnMapping) Match(role Role) (RoleMatch, bool) {
	match, ok := m.Roles[role]
	return match, ok
}

// Header returns the originating header for a role, or "" when unmapped.
func (m ColumnMapping) Header(role Role) string {
	return m.Roles[role].Header
}

// Confidence returns the match confidence for a role, 0 when unmapped.
func (m ColumnMapping) Confidence(role Role) float64 {
	return m.Roles[role].Confidence
}

// SourceRow identifies the statement line a transaction was extracted from.
type SourceRow struct {
	FileID   string `json:"file_id"`
	RowIndex int    `json:"row_index"`
}

// ParsedTransaction is the normalized output of the extractor. Immutable once
// emitted; enrichment attaches assessments rather than mutating it.
type ParsedTransaction struct {
	TransactionDate time.Time        `json:"transaction_date"`
	ValueDate       *time.Time       `json:"value_date,omitempty"`
	Description     string           `json:"description"`
	ReferenceNumber string           `json:"reference_number,omitempty"`
	Amount          decimal.Decimal  `json:"amount"`
	TransactionType string           `json:"transaction_type"`
	Balance         *decimal.Decimal `json:"balance,omitempty"`
	SourceRow       SourceRow        `json:"source_row"`
	ConfidenceScore float64          `json:"confidence_score"`
}

// CategoryAssignment is the categorizer's verdict for one transaction.
type CategoryAssignment struct {
	CategoryLabel string  `json:"category_label"`
	Confidence    float64 `json:"confidence"`
}

// AnomalyAssessment is the anomaly scorer's verdict for one transaction.
type AnomalyAssessment struct {
	IsAnomalous  bool    `json:"is_anomalous"`
	AnomalyScore float64 `json:"anomaly_score"`
}

// DuplicateAssessment is the near-duplicate resolver's verdict. MatchedFactID
// is set only when the similarity crossed the configured threshold.
type DuplicateAssessment struct {
	IsDuplicate    bool    `json:"is_duplicate"`
	DuplicateScore float64 `json:"duplicate_score"`
	MatchedFactID  string  `json:"matched_fact_id,omitempty"`
}

func (t *ParsedTransaction) ToJSON() ([]byte, error) {
	return json.Marshal(t)
}
