package dataset

import (
	"github.com/quadrivio/entree/value"
)

/*
Mean takes a numeric column and a row selection and returns the
arithmetic mean of the selected values that are not NA, or NA when there
are none.
*/
func Mean(column []value.Value, rows *Selection) value.Value {
	sum := 0.0
	count := 0
	for _, row := range rows.Indexes() {
		if !column[row].NA {
			sum += column[row].Float
			count++
		}
	}
	if count == 0 {
		return value.NA()
	}
	return value.Number(sum / float64(count))
}

/*
Median takes a numeric column, a row selection and the column's sorted
row-index table, which must cover at least the selected rows, and
returns the median of the selected values that are not NA, or NA when
there are none. For even counts the upper middle value is returned.
*/
func Median(column []value.Value, rows *Selection, sorted []int) value.Value {
	valueRows := make([]int, 0, rows.Count())
	for _, row := range sorted {
		if rows.Selected(row) && !column[row].NA {
			valueRows = append(valueRows, row)
		}
	}
	if len(valueRows) == 0 {
		return value.NA()
	}
	return column[valueRows[len(valueRows)/2]]
}

/*
Mode takes a categorical column, a row selection and the column's
category map and returns the level appearing most often among the
selected rows, or NA when no level appears at all. Levels tied on count
resolve to the level whose name sorts earlier.
*/
func Mode(column []value.Value, rows *Selection, categories *value.CategoryMap) value.Value {
	categoryCount := categories.Count()
	if len(column) == 0 || categoryCount == 0 {
		return value.NA()
	}
	beginIndex := categories.BeginIndex()
	endIndex := categories.EndIndex()

	counts := make([]int, categoryCount)
	for _, row := range rows.Indexes() {
		if column[row].NA {
			continue
		}
		categoryIndex := column[row].Index
		if categoryIndex-beginIndex < categoryCount {
			counts[categoryIndex-beginIndex]++
		}
	}

	mode := value.NA()
	selectedCount := 0
	selectedName := ""
	for categoryIndex := beginIndex; categoryIndex < endIndex; categoryIndex++ {
		nextName := categories.Name(categoryIndex)
		nextCount := counts[categoryIndex-beginIndex]
		pickThis := false
		switch {
		case nextCount == 0:
		case mode.NA:
			pickThis = true
		case nextCount > selectedCount:
			pickThis = true
		case nextCount == selectedCount && nextName < selectedName:
			pickThis = true
		}
		if pickThis {
			mode = value.Level(categoryIndex)
			selectedCount = nextCount
			selectedName = nextName
		}
	}
	return mode
}
