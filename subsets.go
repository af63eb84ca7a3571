package entree

import (
	"sort"

	"github.com/quadrivio/entree/value"
)

/*
columnSubsets builds the ordered list of column subsets the training
driver grows one tree from each. The columns are divided into
consecutive groups, combinations of groups are enumerated in a fixed
order, and each combination contributes the columnsPerSubset least-used
columns it covers, ties resolving to the lower column index. The group
size starts at columnsPerSubset and shrinks while the number of
combinations stays within maxSubsets, so small column counts enumerate
exhaustively and large ones coarsen instead of exploding.
*/
func columnSubsets(columnCount, columnsPerSubset, maxSubsets int) [][]int {
	groupSize := columnsPerSubset
	fullGroups := columnCount / groupSize
	shortGroup := columnCount - fullGroups*groupSize
	kChoose := 1
	splitShortGroup := shortGroup != 0

	if groupSize > 1 {
		nextGroupSize := groupSize
		for {
			nextGroupSize--
			nextFullGroups := columnCount / nextGroupSize
			nextShortGroup := columnCount - nextFullGroups*nextGroupSize
			nextKChoose := (columnsPerSubset + nextGroupSize - 1) / nextGroupSize
			nextSplitShort := nextShortGroup != 0 &&
				(nextKChoose-1)*nextGroupSize+nextShortGroup < columnsPerSubset

			var comboCount float64
			switch {
			case nextSplitShort:
				comboCount = 2 * choose(nextFullGroups, nextKChoose)
			case nextShortGroup != 0:
				comboCount = choose(nextFullGroups+1, nextKChoose)
			default:
				comboCount = choose(nextFullGroups, nextKChoose)
			}

			if comboCount <= float64(maxSubsets) {
				groupSize = nextGroupSize
				fullGroups = nextFullGroups
				shortGroup = nextShortGroup
				kChoose = nextKChoose
				splitShortGroup = nextSplitShort
			}
			if groupSize == 1 || comboCount >= float64(maxSubsets) {
				break
			}
		}
	}

	var combinations [][]int
	count := 0
	switch {
	case splitShortGroup:
		// The short group would leave combinations containing it short of
		// columns, so enumerate the full groups twice, once plain and once
		// with the short group appended.
		combinations = appendCombinations(combinations, fullGroups, kChoose, value.NoIndex, &count, maxSubsets)
		combinations = appendCombinations(combinations, fullGroups, kChoose, fullGroups, &count, maxSubsets)
	case shortGroup != 0:
		combinations = appendCombinations(combinations, fullGroups+1, kChoose, value.NoIndex, &count, maxSubsets)
	default:
		combinations = appendCombinations(combinations, fullGroups, kChoose, value.NoIndex, &count, maxSubsets)
	}

	// Spread the columns across trees: each combination takes the columns
	// it has used least so far, so repeated groups do not pin the same
	// columns every time.
	usageCounts := make([]int, columnCount)
	subsets := make([][]int, 0, len(combinations))
	for _, combination := range combinations {
		available := make([]int, 0, len(combination)*groupSize)
		for _, group := range combination {
			for col := group * groupSize; col < (group+1)*groupSize && col < columnCount; col++ {
				available = append(available, col)
			}
		}
		sort.Slice(available, func(i, j int) bool {
			if usageCounts[available[i]] != usageCounts[available[j]] {
				return usageCounts[available[i]] < usageCounts[available[j]]
			}
			return available[i] < available[j]
		})
		subset := make([]int, columnsPerSubset)
		for i := range subset {
			subset[i] = available[i]
			usageCounts[available[i]]++
		}
		subsets = append(subsets, subset)
	}
	return subsets
}

// choose returns the binomial coefficient n over k as a float, so counts
// too large for an int merely saturate the comparison against the subset
// limit instead of overflowing.
func choose(n, k int) float64 {
	if n-k > k {
		k = n - k
	}
	result := 1.0
	for i := n; i > k; i-- {
		result *= float64(i)
	}
	for i := 2; i <= n-k; i++ {
		result /= float64(i)
	}
	return result
}

/*
appendCombinations lists the size-k combinations of the integers 0
through n-1, ordered by their largest member, appending the extra index
to each one when extra is not NoIndex. The running count accumulates
across calls and cuts the listing off once it reaches limit; a limit of
NoIndex means no cutoff.
*/
func appendCombinations(combinations [][]int, n, k, extra int, count *int, limit int) [][]int {
	var next [][]int
	switch {
	case n == 0:
	case k == 0:
		if limit == value.NoIndex || *count < limit {
			next = append(next, []int{})
			*count++
		}
	case n == k:
		combination := make([]int, k)
		for i := range combination {
			combination[i] = i
		}
		if limit == value.NoIndex || *count < limit {
			next = append(next, combination)
			*count++
		}
	default:
		if limit == value.NoIndex || *count < limit {
			next = appendCombinations(next, n-1, k, value.NoIndex, count, limit)
		}
		if limit == value.NoIndex || *count < limit {
			next = appendCombinations(next, n-1, k-1, n-1, count, limit)
		}
	}
	if extra != value.NoIndex {
		for i := range next {
			next[i] = append(next[i], extra)
		}
	}
	return append(combinations, next...)
}
