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

	"github.com/statledger/statledger/model"
	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// minRoleScore is the floor under which a header is left unmapped.
const minRoleScore = 0.5

// roleVocabularies is the closed vocabulary per canonical role. Matching is
// fuzzy, so the lists only need representative spellings, not every variant
// an institution ships.
var roleVocabularies = map[model.Role][]string{
	model.RoleDate:        {"date", "txn date", "transaction date", "posting date", "dt"},
	model.RoleValueDate:   {"value date", "value dt", "val date"},
	model.RoleDescription: {"narration", "description", "particulars", "remarks", "details"},
	model.RoleReference:   {"reference", "ref no", "chq ref no", "cheque no", "chq no", "ref"},
	model.RoleDebit:       {"debit", "withdrawal", "withdrawal amt", "debit amount", "dr"},
	model.RoleCredit:      {"credit", "deposit", "deposit amt", "credit amount", "cr"},
	model.RoleAmount:      {"amount", "amt", "transaction amount", "txn amount"},
	model.RoleBalance:     {"balance", "bal", "closing balance", "closing bal", "running balance"},
}

// roleOrder fixes the order headers are scored against the roles. An exact
// score tie between two roles resolves to the earlier role here instead of
// drifting with map iteration.
var roleOrder = []model.Role{
	model.RoleDate,
	model.RoleValueDate,
	model.RoleDescription,
	model.RoleReference,
	model.RoleDebit,
	model.RoleCredit,
	model.RoleAmount,
	model.RoleBalance,
}

// normalizeHeader lowercases a header and replaces punctuation with spaces so
// "Chq./Ref.No." and "chq ref no" compare equal.
func normalizeHeader(header string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(header) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// scoreAgainstTerm scores a normalized header against one vocabulary term.
// Exact match beats token containment beats substring beats edit-distance
// similarity; anything below the fuzzy floor scores zero.
func scoreAgainstTerm(header, term string) float64 {
	if header == term {
		return 1.0
	}

	headerTokens := strings.Fields(header)
	termTokens := strings.Fields(term)
	if containsAllTokens(headerTokens, termTokens) {
		return 0.9
	}

	if strings.Contains(header, term) && len(term) > 2 {
		return 0.6 + 0.3*float64(len(term))/float64(len(header))
	}

	distance := levenshtein.DistanceForStrings([]rune(header), []rune(term), levenshtein.DefaultOptions)
	longest := len(header)
	if len(term) > longest {
		longest = len(term)
	}
	if longest == 0 {
		return 0
	}
	similarity := 1.0 - float64(distance)/float64(longest)
	if similarity >= 0.75 {
		return similarity * 0.8
	}
	return 0
}

func containsAllTokens(haystack, needles []string) bool {
	if len(needles) == 0 {
		return false
	}
	set := make(map[string]bool, len(haystack))
	for _, t := range haystack {
		set[t] = true
	}
	for _, t := range needles {
		if !set[t] {
			return false
		}
	}
	return true
}

type roleCandidate struct {
	header      string
	columnIndex int
	score       float64
	matchedTerm string
}

// better reports whether c should replace best for a role: higher score wins,
// ties go to the longer matched vocabulary term (more specific), then to the
// earlier column for determinism.
func (c roleCandidate) better(best roleCandidate) bool {
	if c.score != best.score {
		return c.score > best.score
	}
	if len(c.matchedTerm) != len(best.matchedTerm) {
		return len(c.matchedTerm) > len(best.matchedTerm)
	}
	return c.columnIndex < best.columnIndex
}

// ResolveColumns maps an arbitrary header row to canonical roles. Each header
// is scored against every role's vocabulary and assigned to its best role;
// each role keeps only its best header. Resolution fails fast when the file
// lacks a date column or any way to read amounts.
func ResolveColumns(fileID string, headers []string) (model.ColumnMapping, error) {
	assigned := make(map[model.Role]roleCandidate)

	for i, original := range headers {
		header := normalizeHeader(original)
		if header == "" {
			continue
		}

		var bestRole model.Role
		best := roleCandidate{}
		for _, role := range roleOrder {
			for _, term := range roleVocabularies[role] {
				candidate := roleCandidate{header: original, columnIndex: i, score: scoreAgainstTerm(header, term), matchedTerm: term}
				if candidate.score >= minRoleScore && (bestRole == "" || candidate.better(best)) {
					bestRole = role
					best = candidate
				}
			}
		}
		if bestRole == "" {
			continue
		}
		if held, ok := assigned[bestRole]; !ok || best.better(held) {
			assigned[bestRole] = best
		}
	}

	mapping := model.ColumnMapping{Roles: make(map[model.Role]model.RoleMatch, len(assigned))}
	for role, candidate := range assigned {
		mapping.Roles[role] = model.RoleMatch{Header: candidate.header, Confidence: candidate.score}
	}

	// A lone value-date column still dates the transactions.
	if _, ok := mapping.Roles[model.RoleDate]; !ok {
		if valueDate, ok := mapping.Roles[model.RoleValueDate]; ok {
			mapping.Roles[model.RoleDate] = model.RoleMatch{Header: valueDate.Header, Confidence: valueDate.Confidence * 0.9}
		}
	}

	// A single signed amount column serves both directions; sign decides at
	// extraction time.
	_, hasDebit := mapping.Roles[model.RoleDebit]
	_, hasCredit := mapping.Roles[model.RoleCredit]
	amount, hasAmount := mapping.Roles[model.RoleAmount]
	if !hasDebit && !hasCredit && hasAmount {
		mapping.Roles[model.RoleDebit] = amount
		mapping.Roles[model.RoleCredit] = amount
	}

	if err := checkStructure(fileID, mapping); err != nil {
		return model.ColumnMapping{}, err
	}
	return mapping, nil
}

func checkStructure(fileID string, mapping model.ColumnMapping) error {
	if _, ok := mapping.Roles[model.RoleDate]; !ok {
		return &StructuralParseError{FileID: fileID, Reason: "no date column recognized"}
	}
	_, hasDebit := mapping.Roles[model.RoleDebit]
	_, hasCredit := mapping.Roles[model.RoleCredit]
	_, hasAmount := mapping.Roles[model.RoleAmount]
	if !hasAmount && !(hasDebit && hasCredit) {
		return &StructuralParseError{FileID: fileID, Reason: fmt.Sprintf("no amount or debit/credit columns recognized (debit=%t credit=%t)", hasDebit, hasCredit)}
	}
	return nil
}

// optionalRoles are the roles that degrade confidence instead of aborting.
var optionalRoles = []model.Role{model.RoleValueDate, model.RoleDescription, model.RoleReference, model.RoleBalance}
