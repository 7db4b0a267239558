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
	"sort"
	"strings"

	"github.com/statledger/statledger/model"
)

// FallbackCategory is assigned when no keyword matches at all.
const FallbackCategory = "Other"

// fallbackConfidence reflects that the floor assignment carries no evidence.
const fallbackConfidence = 0.2

// Categorizer assigns category labels from description text using the
// configured keyword table. It holds no mutable state: the same description
// always yields the same assignment.
type Categorizer struct {
	categories []string            // sorted labels, deterministic iteration
	keywords   map[string][]string // label -> lowercase keywords
}

// NewCategorizer builds a categorizer from a label -> keyword table. Keywords
// are matched case-insensitively on word boundaries.
func NewCategorizer(table map[string][]string) *Categorizer {
	c := &Categorizer{keywords: make(map[string][]string, len(table))}
	for label, words := range table {
		if len(words) == 0 {
			continue
		}
		lowered := make([]string, 0, len(words))
		for _, w := range words {
			w = strings.ToLower(strings.TrimSpace(w))
			if w != "" {
				lowered = append(lowered, w)
			}
		}
		if len(lowered) == 0 {
			continue
		}
		c.keywords[label] = lowered
		c.categories = append(c.categories, label)
	}
	sort.Strings(c.categories)
	return c
}

// Categorize scores every category by keyword occurrences in the description,
// normalized by the category's keyword-set size, and returns the winner. With
// no evidence it falls back to the floor category.
func (c *Categorizer) Categorize(description string) model.CategoryAssignment {
	tokens := tokenize(description)
	if len(tokens) == 0 {
		return model.CategoryAssignment{CategoryLabel: FallbackCategory, Confidence: fallbackConfidence}
	}
	text := strings.Join(tokens, " ")
	tokenSet := make(map[string]int, len(tokens))
	for _, t := range tokens {
		tokenSet[t]++
	}

	bestLabel := FallbackCategory
	bestScore := 0.0
	for _, label := range c.categories {
		words := c.keywords[label]
		matches := 0
		for _, keyword := range words {
			matches += countKeyword(text, tokenSet, keyword)
		}
		score := float64(matches) / float64(len(words))
		if score > bestScore {
			bestScore = score
			bestLabel = label
		}
	}

	if bestScore == 0 {
		return model.CategoryAssignment{CategoryLabel: FallbackCategory, Confidence: fallbackConfidence}
	}

	confidence := bestScore + 0.2
	if confidence > 1 {
		confidence = 1
	}
	return model.CategoryAssignment{CategoryLabel: bestLabel, Confidence: confidence}
}

// countKeyword counts word-boundary occurrences. Single-word keywords count
// token hits; multi-word keywords count phrase hits in the normalized text.
func countKeyword(text string, tokenSet map[string]int, keyword string) int {
	if !strings.Contains(keyword, " ") {
		return tokenSet[keyword]
	}
	return strings.Count(" "+text+" ", " "+keyword+" ")
}

// tokenize lowercases and splits on anything that is not a letter or digit.
func tokenize(text string) []string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Fields(b.String())
}
