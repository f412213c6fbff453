// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package rounds

import "github.com/danielhkuo/deliberating-room/models"

// FibonacciDeck is the card deck offered to voters
var FibonacciDeck = []float64{1, 2, 3, 5, 8, 13, 21}

// ComputeResult aggregates vote values into average, mode and count.
// Mode holds every value tied for the highest frequency, in the order each
// value first appears in values. No rounding happens here.
func ComputeResult(values []float64) models.RoundResult {
	if len(values) == 0 {
		return models.RoundResult{
			Average:    0,
			Mode:       []float64{},
			TotalVotes: 0,
		}
	}

	counts := make(map[float64]int, len(values))
	order := make([]float64, 0, len(values))
	sum := 0.0
	maxCount := 0

	for _, v := range values {
		sum += v
		if counts[v] == 0 {
			order = append(order, v)
		}
		counts[v]++
		if counts[v] > maxCount {
			maxCount = counts[v]
		}
	}

	mode := make([]float64, 0, len(order))
	for _, v := range order {
		if counts[v] == maxCount {
			mode = append(mode, v)
		}
	}

	return models.RoundResult{
		Average:    sum / float64(len(values)),
		Mode:       mode,
		TotalVotes: len(values),
	}
}
