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
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/statledger/statledger/model"
)

// dateSampleSize bounds how many date cells are inspected when pinning the
// file's date layout.
const dateSampleSize = 50

// Extractor walks data rows with a resolved column mapping and emits parsed
// transactions. One extractor instance serves one file.
type Extractor struct {
	fileID     string
	mapping    model.ColumnMapping
	dateLayout string

	// DefaultValueDate copies the transaction date into the value date when
	// the statement has no value-date column.
	DefaultValueDate bool
}

// RowFailure is a single row the extractor could not turn into a transaction.
type RowFailure struct {
	RowIndex   int
	Err        error
	RawPayload string
}

// NewExtractor pins the file's date layout from a sample of rows and returns
// an extractor bound to the mapping. Pinning once per file avoids the per-row
// day/month ambiguity of formats like 05/01/2025.
func NewExtractor(fileID string, mapping model.ColumnMapping, rows []model.RawRow, dateLayouts []string) *Extractor {
	layout := inferDateLayout(mapping.Header(model.RoleDate), rows, dateLayouts)
	logrus.Debugf("pinned date layout %q for file %s", layout, fileID)
	return &Extractor{fileID: fileID, mapping: mapping, dateLayout: layout}
}

// inferDateLayout returns the first layout in priority order that parses every
// sampled date cell. When no layout parses them all, the layout with the most
// successes wins and the stragglers surface as row-level failures.
func inferDateLayout(dateHeader string, rows []model.RawRow, layouts []string) string {
	samples := make([]string, 0, dateSampleSize)
	for _, row := range rows {
		cell := strings.TrimSpace(row.Cell(dateHeader))
		if cell == "" {
			continue
		}
		samples = append(samples, cell)
		if len(samples) == dateSampleSize {
			break
		}
	}
	if len(layouts) == 0 {
		layouts = []string{"2006-01-02"}
	}
	if len(samples) == 0 {
		return layouts[0]
	}

	bestLayout := layouts[0]
	bestCount := -1
	for _, layout := range layouts {
		count := 0
		for _, sample := range samples {
			if _, err := time.Parse(layout, sample); err == nil {
				count++
			}
		}
		if count == len(samples) {
			return layout
		}
		if count > bestCount {
			bestCount = count
			bestLayout = layout
		}
	}
	return bestLayout
}

// ExtractRow parses one data row into a transaction. Failures carry enough of
// the raw row to be replayed from the error log.
func (e *Extractor) ExtractRow(row model.RawRow) (*model.ParsedTransaction, *RowFailure) {
	txnDate, err := e.parseDate(row)
	if err != nil {
		return nil, e.failure(row, err)
	}

	amount, txnType, err := e.parseAmount(row)
	if err != nil {
		return nil, e.failure(row, err)
	}

	txn := &model.ParsedTransaction{
		TransactionDate: txnDate,
		Description:     strings.TrimSpace(row.Cell(e.mapping.Header(model.RoleDescription))),
		ReferenceNumber: strings.TrimSpace(row.Cell(e.mapping.Header(model.RoleReference))),
		Amount:          amount,
		TransactionType: txnType,
		SourceRow:       model.SourceRow{FileID: e.fileID, RowIndex: row.Index},
	}

	conversions, failedConversions := e.parseOptional(row, txn, txnDate)
	txn.ConfidenceScore = e.confidence(row, conversions, failedConversions)
	return txn, nil
}

func (e *Extractor) failure(row model.RawRow, err error) *RowFailure {
	payload, marshalErr := rawPayload(row)
	if marshalErr != nil {
		payload = ""
	}
	return &RowFailure{RowIndex: row.Index, Err: err, RawPayload: payload}
}

func rawPayload(row model.RawRow) (string, error) {
	parts := make([]string, 0, len(row.Headers))
	for _, h := range row.Headers {
		parts = append(parts, fmt.Sprintf("%s=%s", h, row.Cells[h]))
	}
	return strings.Join(parts, "; "), nil
}

func (e *Extractor) parseDate(row model.RawRow) (time.Time, error) {
	cell := strings.TrimSpace(row.Cell(e.mapping.Header(model.RoleDate)))
	if cell == "" {
		return time.Time{}, &RowParseError{RowIndex: row.Index, Field: "date", Reason: "empty cell"}
	}
	parsed, err := time.Parse(e.dateLayout, cell)
	if err != nil {
		return time.Time{}, &RowParseError{RowIndex: row.Index, Field: "date", Reason: fmt.Sprintf("%q does not match layout %q", cell, e.dateLayout)}
	}
	return parsed, nil
}

// parseAmount derives the signed amount and direction. Separate debit/credit
// columns decide by which cell is populated; a unified amount column decides
// by sign.
func (e *Extractor) parseAmount(row model.RawRow) (decimal.Decimal, string, error) {
	debitHeader := e.mapping.Header(model.RoleDebit)
	creditHeader := e.mapping.Header(model.RoleCredit)

	if debitHeader != "" && creditHeader != "" && debitHeader != creditHeader {
		debitCell := strings.TrimSpace(row.Cell(debitHeader))
		creditCell := strings.TrimSpace(row.Cell(creditHeader))
		if debitCell == "" && creditCell == "" {
			return decimal.Zero, "", &RowParseError{RowIndex: row.Index, Field: "amount", Reason: "both debit and credit cells empty"}
		}
		if creditCell != "" {
			credit, err := parseMoney(creditCell)
			if err == nil && credit.IsPositive() {
				return credit, model.TypeCredit, nil
			}
		}
		if debitCell != "" {
			debit, err := parseMoney(debitCell)
			if err != nil {
				return decimal.Zero, "", &RowParseError{RowIndex: row.Index, Field: "amount", Reason: err.Error()}
			}
			return debit.Abs(), model.TypeDebit, nil
		}
		return decimal.Zero, "", &RowParseError{RowIndex: row.Index, Field: "amount", Reason: "credit cell unparsable"}
	}

	amountHeader := e.mapping.Header(model.RoleAmount)
	if amountHeader == "" {
		amountHeader = debitHeader // single-column fallback wired by the resolver
	}
	cell := strings.TrimSpace(row.Cell(amountHeader))
	if cell == "" {
		return decimal.Zero, "", &RowParseError{RowIndex: row.Index, Field: "amount", Reason: "empty cell"}
	}
	amount, err := parseMoney(cell)
	if err != nil {
		return decimal.Zero, "", &RowParseError{RowIndex: row.Index, Field: "amount", Reason: err.Error()}
	}
	if amount.IsNegative() {
		return amount.Abs(), model.TypeDebit, nil
	}
	return amount, model.TypeCredit, nil
}

// parseMoney strips currency symbols and thousands separators before parsing.
// Parenthesized values are treated as negatives, as several institutions
// print withdrawals that way.
func parseMoney(cell string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(cell)
	negative := false
	if strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")") {
		negative = true
		cleaned = cleaned[1 : len(cleaned)-1]
	}
	var b strings.Builder
	for _, r := range cleaned {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-', r == '+':
			b.WriteRune(r)
		case r == ',', r == ' ', r == ' ', r == '₹', r == '$', r == '€', r == '£':
			// separators and currency markers
		default:
			return decimal.Zero, fmt.Errorf("unexpected character %q in amount %q", r, cell)
		}
	}
	if b.Len() == 0 {
		return decimal.Zero, fmt.Errorf("no digits in amount %q", cell)
	}
	amount, err := decimal.NewFromString(b.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", cell)
	}
	if negative {
		amount = amount.Neg()
	}
	return amount, nil
}

// parseOptional fills value date and balance when present. Optional fields
// never reject a row; a failed conversion only lowers confidence.
func (e *Extractor) parseOptional(row model.RawRow, txn *model.ParsedTransaction, txnDate time.Time) (attempted, failed int) {
	if header := e.mapping.Header(model.RoleValueDate); header != "" {
		if cell := strings.TrimSpace(row.Cell(header)); cell != "" {
			attempted++
			if parsed, err := time.Parse(e.dateLayout, cell); err == nil {
				txn.ValueDate = &parsed
			} else {
				failed++
			}
		}
	} else if e.DefaultValueDate {
		txn.ValueDate = &txnDate
	}

	if header := e.mapping.Header(model.RoleBalance); header != "" {
		if cell := strings.TrimSpace(row.Cell(header)); cell != "" {
			attempted++
			if balance, err := parseMoney(cell); err == nil {
				txn.Balance = &balance
			} else {
				failed++
			}
		}
	}
	return attempted, failed
}

// confidence combines the mapping confidence of the roles in play, how many
// optional roles were present, and whether every present field converted.
func (e *Extractor) confidence(row model.RawRow, attemptedConversions, failedConversions int) float64 {
	var mappingSum float64
	var mappedCount int
	for _, match := range e.mapping.Roles {
		mappingSum += match.Confidence
		mappedCount++
	}
	mappingConfidence := 0.0
	if mappedCount > 0 {
		mappingConfidence = mappingSum / float64(mappedCount)
	}

	present := 0
	for _, role := range optionalRoles {
		header := e.mapping.Header(role)
		if header != "" && strings.TrimSpace(row.Cell(header)) != "" {
			present++
		}
	}
	optionalPresence := float64(present) / float64(len(optionalRoles))

	conversion := 1.0
	if attemptedConversions > 0 {
		conversion = float64(attemptedConversions-failedConversions) / float64(attemptedConversions)
	}

	score := 0.5*mappingConfidence + 0.3*optionalPresence + 0.2*conversion
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
