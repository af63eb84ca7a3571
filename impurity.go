package entree

import (
	"fmt"
	"math"

	"github.com/quadrivio/entree/dataset"
	"github.com/quadrivio/entree/value"
)

// entropyForCounts returns the entropy, in nats, of the distribution
// given as per-level counts. Levels with no rows contribute nothing and
// an empty distribution has zero entropy.
func entropyForCounts(counts []int) float64 {
	total := 0
	for _, count := range counts {
		total += count
	}
	if total <= 0 {
		return 0.0
	}
	entropy := 0.0
	for _, count := range counts {
		if count > 0 {
			p := float64(count) / float64(total)
			entropy -= p * math.Log(p)
		}
	}
	return entropy
}

// entropyForSplit returns the entropy of the binary split that sends
// lessOrEqualCounts to one side and the remainder of totalCounts to the
// other, each side's entropy weighted by its share of the rows. A NaN
// result reports an error.
func entropyForSplit(lessOrEqualCounts, totalCounts []int) (float64, error) {
	lessOrEqualTotal := 0
	for _, count := range lessOrEqualCounts {
		lessOrEqualTotal += count
	}
	total := 0
	for _, count := range totalCounts {
		total += count
	}
	greaterOrNotTotal := total - lessOrEqualTotal

	lessOrEqualEntropy := 0.0
	if lessOrEqualTotal > 0 {
		for _, count := range lessOrEqualCounts {
			if count > 0 {
				p := float64(count) / float64(lessOrEqualTotal)
				lessOrEqualEntropy -= p * math.Log(p)
			}
		}
	}

	greaterOrNotEntropy := 0.0
	if greaterOrNotTotal > 0 {
		for i, totalCount := range totalCounts {
			count := totalCount - lessOrEqualCounts[i]
			if count > 0 {
				p := float64(count) / float64(greaterOrNotTotal)
				greaterOrNotEntropy -= p * math.Log(p)
			}
		}
	}

	entropy := 0.0
	if total > 0 {
		entropy = lessOrEqualEntropy*float64(lessOrEqualTotal)/float64(total) +
			greaterOrNotEntropy*float64(greaterOrNotTotal)/float64(total)
	}
	if math.IsNaN(entropy) {
		return 0, fmt.Errorf("split entropy is NaN")
	}
	return entropy, nil
}

// stDev returns the sample standard deviation from sufficient
// statistics: zero for fewer than two values, and zero when cancellation
// drives the variance negative.
func stDev(count int, sum, sum2 float64) float64 {
	if count <= 1 {
		return 0.0
	}
	sd2 := (sum2 - sum*sum/float64(count)) / float64(count-1)
	if sd2 > 0 {
		return math.Sqrt(sd2)
	}
	return 0.0
}

// sdForSplit returns the weighted standard deviation of the binary split
// whose less-or-equal side holds the given statistics within the totals.
// When either side has fewer than two rows the deviation of the unsplit
// totals is used instead. A NaN result reports an error.
func sdForSplit(lessOrEqualSum, lessOrEqualSum2 float64, lessOrEqualCount int, totalSum, totalSum2 float64, totalCount int) (float64, error) {
	greaterOrNotCount := totalCount - lessOrEqualCount
	greaterOrNotSum := totalSum - lessOrEqualSum
	greaterOrNotSum2 := totalSum2 - lessOrEqualSum2

	var sd float64
	if lessOrEqualCount > 1 && greaterOrNotCount > 1 {
		sd = stDev(lessOrEqualCount, lessOrEqualSum, lessOrEqualSum2)*float64(lessOrEqualCount)/float64(totalCount) +
			stDev(greaterOrNotCount, greaterOrNotSum, greaterOrNotSum2)*float64(greaterOrNotCount)/float64(totalCount)
	} else {
		sd = stDev(totalCount, totalSum, totalSum2)
	}
	if math.IsNaN(sd) {
		return 0, fmt.Errorf("split standard deviation is NaN")
	}
	return sd, nil
}

// targetCounts tallies the selected rows of a categorical column per
// level, indexed from the category map's begin index so the synthetic NA
// level lands in the first slot when it is in use.
func targetCounts(column []value.Value, rows *dataset.Selection, categories *value.CategoryMap) []int {
	counts := make([]int, categories.Count())
	beginIndex := categories.BeginIndex()
	for _, row := range rows.Indexes() {
		counts[column[row].Index-beginIndex]++
	}
	return counts
}
