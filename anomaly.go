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
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/statledger/statledger/model"
)

const (
	forestTrees     = 100
	forestSubsample = 256
	forestSeed      = 42
)

// featureCount: log amount, direction flag, day of week, day of month,
// ratio to the account's mean amount.
const featureCount = 5

// AnomalyScorer keeps one statistical profile per account, retrained per
// ingestion batch from the account's pre-batch history. Profiles are
// process-wide state: created on first sufficient history, retrained per
// batch, never deleted.
type AnomalyScorer struct {
	mu            sync.Mutex
	minHistory    int
	contamination float64
	profiles      map[string]*accountProfile
}

// accountProfile is an immutable training snapshot. Scoring only reads it;
// Retrain swaps the whole pointer.
type accountProfile struct {
	mean       [featureCount]float64
	std        [featureCount]float64
	meanAmount float64
	forest     *isolationForest
	threshold  float64
	history    int
}

// NewAnomalyScorer creates a scorer with the configured minimum history and
// expected contamination rate.
func NewAnomalyScorer(minHistory int, contamination float64) *AnomalyScorer {
	if minHistory <= 0 {
		minHistory = 10
	}
	if contamination <= 0 || contamination >= 1 {
		contamination = 0.07
	}
	return &AnomalyScorer{
		minHistory:    minHistory,
		contamination: contamination,
		profiles:      make(map[string]*accountProfile),
	}
}

// Retrain rebuilds the account's profile from its historical facts. Called
// once per ingestion batch per account, before any row of the batch is
// scored, so a transaction cannot suppress detection of itself.
func (s *AnomalyScorer) Retrain(accountID string, history []*model.TransactionFact) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(history) <= s.minHistory {
		s.profiles[accountID] = &accountProfile{history: len(history)}
		return
	}

	meanAmount := 0.0
	for _, fact := range history {
		meanAmount += fact.Amount.InexactFloat64()
	}
	meanAmount /= float64(len(history))
	if meanAmount == 0 {
		meanAmount = 1
	}

	vectors := make([][featureCount]float64, len(history))
	for i, fact := range history {
		vectors[i] = transactionFeatures(fact.Amount, fact.TransactionType, fact.TransactionDate, meanAmount)
	}

	profile := &accountProfile{meanAmount: meanAmount, history: len(history)}
	profile.mean, profile.std = featureStats(vectors)
	standardized := make([][]float64, len(vectors))
	for i, v := range vectors {
		standardized[i] = profile.standardize(v)
	}

	profile.forest = trainIsolationForest(standardized, forestTrees, forestSubsample, rand.New(rand.NewSource(forestSeed)))

	scores := make([]float64, len(standardized))
	for i, v := range standardized {
		scores[i] = profile.forest.score(v)
	}
	profile.threshold = contaminationThreshold(scores, s.contamination)

	s.profiles[accountID] = profile
	logrus.Debugf("retrained anomaly profile for account %s on %d transactions (threshold %.3f)", accountID, len(history), profile.threshold)
}

// Assess scores one parsed transaction against the account's pre-batch
// profile. An account without sufficient history cannot be assessed and must
// not be false-flagged.
func (s *AnomalyScorer) Assess(accountID string, txn *model.ParsedTransaction) model.AnomalyAssessment {
	s.mu.Lock()
	profile := s.profiles[accountID]
	s.mu.Unlock()

	if profile == nil || profile.forest == nil {
		return model.AnomalyAssessment{IsAnomalous: false, AnomalyScore: 0}
	}

	vector := transactionFeatures(txn.Amount, txn.TransactionType, txn.TransactionDate, profile.meanAmount)
	score := profile.forest.score(profile.standardize(vector))
	return model.AnomalyAssessment{
		IsAnomalous:  score >= profile.threshold,
		AnomalyScore: score,
	}
}

// HasProfile reports whether the account has a trained profile.
func (s *AnomalyScorer) HasProfile(accountID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile, ok := s.profiles[accountID]
	return ok && profile.forest != nil
}

func transactionFeatures(amount decimal.Decimal, transactionType string, date time.Time, meanAmount float64) [featureCount]float64 {
	value := amount.InexactFloat64()
	direction := 0.0
	if transactionType == model.TypeCredit {
		direction = 1.0
	}
	return [featureCount]float64{
		math.Log10(math.Abs(value) + 1),
		direction,
		float64(date.Weekday()) / 7.0,
		float64(date.Day()) / 31.0,
		value / meanAmount,
	}
}

func featureStats(vectors [][featureCount]float64) (mean, std [featureCount]float64) {
	n := float64(len(vectors))
	for _, v := range vectors {
		for j, x := range v {
			mean[j] += x
		}
	}
	for j := range mean {
		mean[j] /= n
	}
	for _, v := range vectors {
		for j, x := range v {
			d := x - mean[j]
			std[j] += d * d
		}
	}
	for j := range std {
		std[j] = math.Sqrt(std[j] / n)
		if std[j] == 0 {
			std[j] = 1
		}
	}
	return mean, std
}

func (p *accountProfile) standardize(v [featureCount]float64) []float64 {
	out := make([]float64, featureCount)
	for j, x := range v {
		out[j] = (x - p.mean[j]) / p.std[j]
	}
	return out
}

// contaminationThreshold returns the (1-contamination) quantile of the
// training scores, floored at 0.5 so a perfectly homogeneous history does
// not flag every future transaction.
func contaminationThreshold(scores []float64, contamination float64) float64 {
	sorted := make([]float64, len(scores))
	copy(sorted, scores)
	sort.Float64s(sorted)
	idx := int(math.Ceil((1-contamination)*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	threshold := sorted[idx]
	if threshold < 0.5 {
		threshold = 0.5
	}
	return threshold
}

// isolationForest is an ensemble of randomized partitioning trees. A point
// isolated in few splits is an outlier; its anomaly score approaches 1.
type isolationForest struct {
	trees     []*isoNode
	subsample int
}

type isoNode struct {
	left, right *isoNode
	splitDim    int
	splitValue  float64
	size        int
}

func trainIsolationForest(data [][]float64, trees, subsample int, rng *rand.Rand) *isolationForest {
	if subsample > len(data) {
		subsample = len(data)
	}
	maxDepth := int(math.Ceil(math.Log2(float64(subsample))))
	forest := &isolationForest{subsample: subsample}
	for t := 0; t < trees; t++ {
		sample := make([][]float64, subsample)
		for i := range sample {
			sample[i] = data[rng.Intn(len(data))]
		}
		forest.trees = append(forest.trees, buildIsoTree(sample, 0, maxDepth, rng))
	}
	return forest
}

func buildIsoTree(data [][]float64, depth, maxDepth int, rng *rand.Rand) *isoNode {
	if len(data) <= 1 || depth >= maxDepth {
		return &isoNode{size: len(data)}
	}
	dim := rng.Intn(len(data[0]))
	lo, hi := data[0][dim], data[0][dim]
	for _, v := range data[1:] {
		if v[dim] < lo {
			lo = v[dim]
		}
		if v[dim] > hi {
			hi = v[dim]
		}
	}
	if lo == hi {
		return &isoNode{size: len(data)}
	}
	split := lo + rng.Float64()*(hi-lo)
	var left, right [][]float64
	for _, v := range data {
		if v[dim] < split {
			left = append(left, v)
		} else {
			right = append(right, v)
		}
	}
	return &isoNode{
		splitDim:   dim,
		splitValue: split,
		size:       len(data),
		left:       buildIsoTree(left, depth+1, maxDepth, rng),
		right:      buildIsoTree(right, depth+1, maxDepth, rng),
	}
}

func (f *isolationForest) score(v []float64) float64 {
	total := 0.0
	for _, tree := range f.trees {
		total += pathLength(tree, v, 0)
	}
	avg := total / float64(len(f.trees))
	return math.Pow(2, -avg/averagePathLength(f.subsample))
}

func pathLength(node *isoNode, v []float64, depth float64) float64 {
	if node.left == nil {
		if node.size > 1 {
			return depth + averagePathLength(node.size)
		}
		return depth
	}
	if v[node.splitDim] < node.splitValue {
		return pathLength(node.left, v, depth+1)
	}
	return pathLength(node.right, v, depth+1)
}

// averagePathLength is c(n), the expected path length of an unsuccessful
// search in a binary search tree of n points.
func averagePathLength(n int) float64 {
	if n <= 1 {
		return 0
	}
	h := math.Log(float64(n-1)) + 0.5772156649
	return 2*h - 2*float64(n-1)/float64(n)
}
