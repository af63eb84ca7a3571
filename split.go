package entree

import (
	"fmt"

	"github.com/quadrivio/entree/dataset"
	"github.com/quadrivio/entree/value"
)

// splitCandidate pairs a candidate split value with the impurity measure
// of the partition it induces. An NA value means the column offers no
// split.
type splitCandidate struct {
	value   value.Value
	measure float64
}

/*
bestNumericSplit takes a numeric column index, the target column index,
a dataset, the selection of rows reaching a node and the per-column
sorted row tables, and returns the threshold halfway between adjacent
distinct values of the column whose less-or-equal partition scores the
lowest impurity, along with that impurity. Rows outside the selection
are ignored. An NA in the split column reports an error, since
imputation has already replaced missing values by the time splits are
searched.
*/
func bestNumericSplit(col, targetColumn int, ds *dataset.Dataset, selectRows *dataset.Selection, tables [][]int) (splitCandidate, error) {
	best := splitCandidate{value: value.NA()}
	column := ds.Columns[col]
	target := ds.Columns[targetColumn]
	sorted := tables[col]

	switch ds.Types[targetColumn] {
	case value.Numeric:
		totalSum := 0.0
		totalSum2 := 0.0
		totalCount := 0
		for _, row := range selectRows.Indexes() {
			y := target[row].Float
			totalSum += y
			totalSum2 += y * y
			totalCount++
		}
		if totalCount < 2 {
			return best, nil
		}

		// Walk the rows from the largest column value down, moving one
		// row at a time from the less-or-equal side to the other side,
		// and score the boundary wherever the column value changes.
		first := true
		previousValue := 0.0
		lessOrEqualSum := totalSum
		lessOrEqualSum2 := totalSum2
		lessOrEqualCount := totalCount
		for index := len(sorted) - 1; index >= 0; index-- {
			row := sorted[index]
			if !selectRows.Selected(row) {
				continue
			}
			if column[row].NA {
				return best, fmt.Errorf("splitting on column %q: encountered unimputed value", ds.Names[col])
			}
			currentValue := column[row].Float
			currentMeasure, err := sdForSplit(lessOrEqualSum, lessOrEqualSum2, lessOrEqualCount, totalSum, totalSum2, totalCount)
			if err != nil {
				return best, fmt.Errorf("splitting on column %q: %v", ds.Names[col], err)
			}
			if first {
				first = false
			} else if currentValue < previousValue {
				if best.value.NA || currentMeasure < best.measure {
					best.measure = currentMeasure
					best.value = value.Number(0.5 * (currentValue + previousValue))
				}
			}
			y := target[row].Float
			lessOrEqualSum -= y
			lessOrEqualSum2 -= y * y
			lessOrEqualCount--
			previousValue = currentValue
		}

	case value.Categorical:
		categories := ds.Categories[targetColumn]
		totalCounts := targetCounts(target, selectRows, categories)
		if selectRows.Count() < 2 {
			return best, nil
		}
		beginIndex := categories.BeginIndex()

		first := true
		previousValue := 0.0
		lessOrEqualCounts := make([]int, len(totalCounts))
		copy(lessOrEqualCounts, totalCounts)
		for index := len(sorted) - 1; index >= 0; index-- {
			row := sorted[index]
			if !selectRows.Selected(row) {
				continue
			}
			if column[row].NA {
				return best, fmt.Errorf("splitting on column %q: encountered unimputed value", ds.Names[col])
			}
			currentValue := column[row].Float
			if first {
				first = false
			} else if currentValue < previousValue {
				currentMeasure, err := entropyForSplit(lessOrEqualCounts, totalCounts)
				if err != nil {
					return best, fmt.Errorf("splitting on column %q: %v", ds.Names[col], err)
				}
				if best.value.NA || currentMeasure < best.measure {
					best.measure = currentMeasure
					best.value = value.Number(0.5 * (currentValue + previousValue))
				}
			}
			lessOrEqualCounts[target[row].Index-beginIndex]--
			previousValue = currentValue
		}
	}
	return best, nil
}

/*
bestCategoricalSplit is the categorical-column counterpart of
bestNumericSplit. Each level of the column is a candidate split, sending
the rows holding that level to the less-or-equal side and every other
row to the other side; the level with the lowest impurity wins, and
levels tied on impurity resolve to the one whose name sorts earlier.
*/
func bestCategoricalSplit(col, targetColumn int, ds *dataset.Dataset, selectRows *dataset.Selection, tables [][]int) (splitCandidate, error) {
	best := splitCandidate{value: value.NA()}
	bestName := ""
	column := ds.Columns[col]
	target := ds.Columns[targetColumn]
	categories := ds.Categories[col]

	switch ds.Types[targetColumn] {
	case value.Numeric:
		categoryCount := categories.Count()
		if categoryCount <= 1 {
			return best, nil
		}
		beginIndex := categories.BeginIndex()
		endIndex := categories.EndIndex()

		totalSum := 0.0
		totalSum2 := 0.0
		totalCount := 0
		levelSum := make([]float64, categoryCount)
		levelSum2 := make([]float64, categoryCount)
		levelCount := make([]int, categoryCount)
		for _, row := range selectRows.Indexes() {
			y := target[row].Float
			totalSum += y
			totalSum2 += y * y
			totalCount++
			if column[row].NA {
				return best, fmt.Errorf("splitting on column %q: encountered unimputed value", ds.Names[col])
			}
			countsIndex := column[row].Index - beginIndex
			levelSum[countsIndex] += y
			levelSum2[countsIndex] += y * y
			levelCount[countsIndex]++
		}
		if totalCount < 2 {
			return best, nil
		}

		for categoryIndex := beginIndex; categoryIndex < endIndex; categoryIndex++ {
			countsIndex := categoryIndex - beginIndex
			if levelCount[countsIndex] < 1 {
				continue
			}
			measure, err := sdForSplit(levelSum[countsIndex], levelSum2[countsIndex], levelCount[countsIndex], totalSum, totalSum2, totalCount)
			if err != nil {
				return best, fmt.Errorf("splitting on column %q: %v", ds.Names[col], err)
			}
			switch {
			case best.value.NA || measure < best.measure:
				best.measure = measure
				best.value = value.Level(categoryIndex)
				bestName = categories.Name(categoryIndex)
			case measure == best.measure:
				if nextName := categories.Name(categoryIndex); nextName < bestName {
					best.value = value.Level(categoryIndex)
					bestName = nextName
				}
			}
		}

	case value.Categorical:
		targetCategories := ds.Categories[targetColumn]
		totalCounts := targetCounts(target, selectRows, targetCategories)
		if selectRows.Count() < 1 {
			return best, nil
		}
		targetBegin := targetCategories.BeginIndex()
		sorted := tables[col]

		// The sorted table groups rows by level; score each group as its
		// last row passes, with one extra pass at the end for the final
		// group.
		first := true
		previousCategory := 0
		currentCategory := 0
		categoryRows := 0
		currentCounts := make([]int, len(totalCounts))
		for index := 0; index <= len(sorted); index++ {
			evaluate := false
			currentMeasure := 0.0
			if index == len(sorted) {
				measure, err := entropyForSplit(currentCounts, totalCounts)
				if err != nil {
					return best, fmt.Errorf("splitting on column %q: %v", ds.Names[col], err)
				}
				currentMeasure = measure
				evaluate = categoryRows > 0
			} else {
				row := sorted[index]
				if selectRows.Selected(row) {
					if column[row].NA {
						return best, fmt.Errorf("splitting on column %q: encountered unimputed value", ds.Names[col])
					}
					currentCategory = column[row].Index
					if first {
						first = false
					} else if currentCategory != previousCategory {
						measure, err := entropyForSplit(currentCounts, totalCounts)
						if err != nil {
							return best, fmt.Errorf("splitting on column %q: %v", ds.Names[col], err)
						}
						currentMeasure = measure
						evaluate = true
						categoryRows = 0
						for i := range currentCounts {
							currentCounts[i] = 0
						}
					}
					currentCounts[target[row].Index-targetBegin]++
					categoryRows++
				}
			}
			if evaluate {
				switch {
				case best.value.NA || currentMeasure < best.measure:
					best.measure = currentMeasure
					best.value = value.Level(previousCategory)
					bestName = categories.Name(previousCategory)
				case currentMeasure == best.measure:
					if nextName := categories.Name(previousCategory); nextName < bestName {
						best.value = value.Level(previousCategory)
						bestName = nextName
					}
				}
			}
			previousCategory = currentCategory
		}
	}
	return best, nil
}
