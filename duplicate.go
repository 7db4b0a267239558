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
	"math"
	"strings"

	"github.com/statledger/statledger/model"
)

// DuplicateResolver flags near-duplicates of already loaded facts: same
// account, dates within the configured window, weighted similarity at or
// above the threshold. Flagged rows still load; review is a human decision.
type DuplicateResolver struct {
	threshold  float64
	windowDays int
}

func NewDuplicateResolver(threshold float64, windowDays int) *DuplicateResolver {
	if threshold <= 0 || threshold > 1 {
		threshold = 0.90
	}
	if windowDays <= 0 {
		windowDays = 3
	}
	return &DuplicateResolver{threshold: threshold, windowDays: windowDays}
}

// WindowDays is the half-width of the date window candidates are fetched for.
func (r *DuplicateResolver) WindowDays() int {
	return r.windowDays
}

// Assess compares a parsed transaction against candidate facts from the same
// account and returns the best-scoring match. Candidates outside the date
// window are ignored regardless of how they were fetched.
func (r *DuplicateResolver) Assess(txn *model.ParsedTransaction, candidates []*model.TransactionFact) model.DuplicateAssessment {
	best := model.DuplicateAssessment{}
	for _, candidate := range candidates {
		days := math.Abs(txn.TransactionDate.Sub(candidate.TransactionDate).Hours() / 24)
		if days > float64(r.windowDays) {
			continue
		}
		score := r.similarity(txn, candidate, days)
		if score > best.DuplicateScore {
			best.DuplicateScore = score
			best.MatchedFactID = candidate.FactID
		}
	}
	best.IsDuplicate = best.DuplicateScore >= r.threshold
	if !best.IsDuplicate {
		best.MatchedFactID = ""
	}
	return best
}

// similarity blends amount closeness, date proximity, and description
// overlap. When both sides carry a reference number it joins the blend and
// distinguishes recurring transactions that are otherwise identical.
func (r *DuplicateResolver) similarity(txn *model.ParsedTransaction, candidate *model.TransactionFact, days float64) float64 {
	amount := amountCloseness(txn.Amount.InexactFloat64(), candidate.Amount.InexactFloat64())
	date := 1 - math.Min(1, days/float64(r.windowDays))
	description := tokenOverlap(txn.Description, candidate.Description)

	if txn.ReferenceNumber != "" && candidate.ReferenceNumber != "" {
		reference := 0.0
		if strings.EqualFold(strings.TrimSpace(txn.ReferenceNumber), strings.TrimSpace(candidate.ReferenceNumber)) {
			reference = 1.0
		}
		return 0.35*amount + 0.25*date + 0.25*description + 0.15*reference
	}
	return 0.4*amount + 0.3*date + 0.3*description
}

func amountCloseness(a, b float64) float64 {
	larger := math.Max(math.Abs(a), math.Abs(b))
	if larger == 0 {
		return 1
	}
	relative := math.Abs(a-b) / larger
	return math.Max(0, 1-relative*10)
}

// tokenOverlap is the Jaccard index over normalized description tokens.
func tokenOverlap(a, b string) float64 {
	tokensA := descriptionTokens(a)
	tokensB := descriptionTokens(b)
	if len(tokensA) == 0 && len(tokensB) == 0 {
		return 1
	}
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}
	intersection := 0
	for token := range tokensA {
		if _, ok := tokensB[token]; ok {
			intersection++
		}
	}
	union := len(tokensA) + len(tokensB) - intersection
	return float64(intersection) / float64(union)
}

func descriptionTokens(s string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, field := range strings.Fields(strings.ToLower(s)) {
		field = strings.Trim(field, ".,;:()[]-_/")
		if field != "" {
			tokens[field] = struct{}{}
		}
	}
	return tokens
}
