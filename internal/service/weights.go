package service

import (
	"math"
	"strconv"
	"strings"
)

// WeightEntry is one submitted row of a mapping batch: the target outcome ID
// and the weight text exactly as the user entered it.
type WeightEntry struct {
	TargetID string `json:"target_id" validate:"required"`
	Weight   string `json:"weight"`
}

// resolveWeights turns a submitted mapping batch into upserts and removals.
// Per row: blank weight removes an existing link and otherwise does nothing,
// non-numeric text skips the row, values at or below zero remove the link,
// values above 100 are clamped to 100, anything else is stored as entered.
// Re-submitting the same batch yields the same outcome.
func resolveWeights(entries []WeightEntry, existing map[string]bool) (map[string]int, []string) {
	upserts := make(map[string]int)
	removalSet := make(map[string]bool)

	for _, entry := range entries {
		if entry.TargetID == "" {
			continue
		}
		raw := strings.TrimSpace(entry.Weight)
		if raw == "" {
			delete(upserts, entry.TargetID)
			if existing[entry.TargetID] {
				removalSet[entry.TargetID] = true
			}
			continue
		}
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		if value <= 0 {
			delete(upserts, entry.TargetID)
			if existing[entry.TargetID] {
				removalSet[entry.TargetID] = true
			}
			continue
		}
		if value > 100 {
			value = 100
		}
		delete(removalSet, entry.TargetID)
		upserts[entry.TargetID] = int(math.Round(value))
	}

	removals := make([]string, 0, len(removalSet))
	for id := range removalSet {
		removals = append(removals, id)
	}
	return upserts, removals
}
