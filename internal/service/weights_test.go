package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveWeightsClampAboveHundred(t *testing.T) {
	upserts, removals := resolveWeights([]WeightEntry{{TargetID: "po1", Weight: "150"}}, nil)
	assert.Equal(t, map[string]int{"po1": 100}, upserts)
	assert.Empty(t, removals)
}

func TestResolveWeightsNegativeRemovesExisting(t *testing.T) {
	upserts, removals := resolveWeights(
		[]WeightEntry{{TargetID: "po1", Weight: "-5"}},
		map[string]bool{"po1": true})
	assert.Empty(t, upserts)
	assert.Equal(t, []string{"po1"}, removals)
}

func TestResolveWeightsZeroRemovesExisting(t *testing.T) {
	upserts, removals := resolveWeights(
		[]WeightEntry{{TargetID: "po1", Weight: "0"}},
		map[string]bool{"po1": true})
	assert.Empty(t, upserts)
	assert.Equal(t, []string{"po1"}, removals)
}

func TestResolveWeightsNonNumericSkipsRow(t *testing.T) {
	upserts, removals := resolveWeights(
		[]WeightEntry{{TargetID: "po1", Weight: "abc"}, {TargetID: "po2", Weight: "40"}},
		map[string]bool{"po1": true})
	assert.Equal(t, map[string]int{"po2": 40}, upserts)
	assert.Empty(t, removals, "unparsable text must leave the existing link untouched")
}

func TestResolveWeightsBlankRemovesOnlyExisting(t *testing.T) {
	upserts, removals := resolveWeights(
		[]WeightEntry{{TargetID: "po1", Weight: ""}, {TargetID: "po2", Weight: "  "}},
		map[string]bool{"po1": true})
	assert.Empty(t, upserts)
	assert.Equal(t, []string{"po1"}, removals)
}

func TestResolveWeightsIdempotent(t *testing.T) {
	entries := []WeightEntry{
		{TargetID: "po1", Weight: "30"},
		{TargetID: "po2", Weight: "120"},
		{TargetID: "po3", Weight: "-1"},
	}
	existing := map[string]bool{"po3": true}

	first, firstRemovals := resolveWeights(entries, existing)
	second, secondRemovals := resolveWeights(entries, existing)
	assert.Equal(t, first, second)
	assert.Equal(t, firstRemovals, secondRemovals)
	assert.Equal(t, map[string]int{"po1": 30, "po2": 100}, first)
}

func TestResolveWeightsLastRowWins(t *testing.T) {
	upserts, _ := resolveWeights([]WeightEntry{
		{TargetID: "po1", Weight: "20"},
		{TargetID: "po1", Weight: "55"},
	}, nil)
	assert.Equal(t, map[string]int{"po1": 55}, upserts)
}
