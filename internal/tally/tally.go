// Package tally aggregates persisted vote counts into election results:
// per-option percentages and the winner set, with ties reported as ties.
// It is read-only over whatever counts the storage layer hands it.
package tally

import (
	"math"
	"sort"
)

// OptionCount is a raw per-option count as read from storage.
type OptionCount struct {
	OptionID   int64
	OptionText string
	// Order is the option's display order within the election; it breaks
	// sorting ties so equal counts keep their original ordering.
	Order int
	Count int64
}

// OptionResult is a tallied option.
type OptionResult struct {
	OptionID   int64   `json:"option_id"`
	OptionText string  `json:"option_text"`
	Count      int64   `json:"count"`
	Percent    float64 `json:"percent"`
	Winner     bool    `json:"winner"`
}

// Result is the full tally for one election.
type Result struct {
	ElectionID int64          `json:"election_id"`
	TotalVotes int64          `json:"total_votes"`
	Options    []OptionResult `json:"options"`
	// Winners holds the ids of every option tied for the maximum count.
	// Empty when no votes were cast.
	Winners []int64 `json:"winners"`
	Tie     bool    `json:"tie"`
}

// Compute tallies raw counts into a Result. Percentages are rounded to one
// decimal and defined as 0 when no votes were cast. Options are returned
// sorted by descending count, stable on the original option order.
func Compute(electionID int64, counts []OptionCount) Result {
	var total int64
	for _, c := range counts {
		total += c.Count
	}

	sorted := make([]OptionCount, len(counts))
	copy(sorted, counts)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Count != sorted[j].Count {
			return sorted[i].Count > sorted[j].Count
		}
		return sorted[i].Order < sorted[j].Order
	})

	var max int64
	for _, c := range sorted {
		if c.Count > max {
			max = c.Count
		}
	}

	result := Result{ElectionID: electionID, TotalVotes: total}
	for _, c := range sorted {
		winner := total > 0 && c.Count == max
		result.Options = append(result.Options, OptionResult{
			OptionID:   c.OptionID,
			OptionText: c.OptionText,
			Count:      c.Count,
			Percent:    percent(c.Count, total),
			Winner:     winner,
		})
		if winner {
			result.Winners = append(result.Winners, c.OptionID)
		}
	}
	result.Tie = len(result.Winners) > 1

	return result
}

// percent returns count/total as a percentage rounded to one decimal,
// and 0 when total is 0.
func percent(count, total int64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(count)/float64(total)*1000) / 10
}
