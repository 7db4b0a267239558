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

	"github.com/statledger/statledger/config"
	"github.com/stretchr/testify/assert"
)

func TestCategorizeKeywordMatch(t *testing.T) {
	categorizer := NewCategorizer(config.DefaultCategoryKeywords())

	assignment := categorizer.Categorize("SALARY CREDIT JAN 2025")
	assert.Equal(t, "Salary", assignment.CategoryLabel)
	assert.Greater(t, assignment.Confidence, fallbackConfidence)

	assignment = categorizer.Categorize("UPI/NEFT transfer to landlord")
	assert.NotEqual(t, FallbackCategory, assignment.CategoryLabel)
}

func TestCategorizeFallback(t *testing.T) {
	categorizer := NewCategorizer(config.DefaultCategoryKeywords())

	assignment := categorizer.Categorize("XYZZY 9282 QQ")
	assert.Equal(t, FallbackCategory, assignment.CategoryLabel)
	assert.Equal(t, fallbackConfidence, assignment.Confidence)

	assignment = categorizer.Categorize("   ")
	assert.Equal(t, FallbackCategory, assignment.CategoryLabel)
}

func TestCategorizeDeterministic(t *testing.T) {
	categorizer := NewCategorizer(config.DefaultCategoryKeywords())

	first := categorizer.Categorize("ATM CASH WITHDRAWAL BRANCH 42")
	for i := 0; i < 10; i++ {
		again := categorizer.Categorize("ATM CASH WITHDRAWAL BRANCH 42")
		assert.Equal(t, first, again)
	}
}

func TestCategorizeMultiWordKeyword(t *testing.T) {
	categorizer := NewCategorizer(map[string][]string{
		"Investment": {"mutual fund"},
		"Utilities":  {"fund"},
	})

	assignment := categorizer.Categorize("MUTUAL FUND SIP 01/2025")
	assert.Equal(t, "Investment", assignment.CategoryLabel)
}

func TestCategorizeCaseInsensitive(t *testing.T) {
	categorizer := NewCategorizer(config.DefaultCategoryKeywords())

	lower := categorizer.Categorize("payment to zomato order 81article")
	upper := categorizer.Categorize("PAYMENT TO ZOMATO ORDER 81ARTICLE")
	assert.Equal(t, "Dining", lower.CategoryLabel)
	assert.Equal(t, lower, upper)
}
