package dataset

import (
	"fmt"
	"strings"

	"github.com/quadrivio/entree/value"
)

/*
ImputeOption selects how the missing values of a column are replaced
before training.
*/
type ImputeOption int

const (
	// ImputeNone leaves NA values in place.
	ImputeNone ImputeOption = iota
	// ImputeDefault stands for the type's default option until resolved:
	// ImputeToCategory for categorical columns, ImputeToMedian for
	// numeric ones.
	ImputeDefault
	// ImputeToCategory turns NA into a synthetic level of the column's
	// category map.
	ImputeToCategory
	// ImputeToMode replaces NA with the most frequent level.
	ImputeToMode
	// ImputeToMean replaces NA with the mean of the present values.
	ImputeToMean
	// ImputeToMedian replaces NA with the median of the present values.
	ImputeToMedian
)

func (o ImputeOption) String() string {
	switch o {
	case ImputeNone:
		return "none"
	case ImputeDefault:
		return "default"
	case ImputeToCategory:
		return "category"
	case ImputeToMode:
		return "mode"
	case ImputeToMean:
		return "mean"
	case ImputeToMedian:
		return "median"
	}
	return fmt.Sprintf("unknown impute option %d", int(o))
}

/*
ParseImputeOption takes the name of an impute option and the type of the
column it is meant for and returns the option it identifies. Names are
matched case-insensitively by prefix against the options valid for the
column type: "category", "mode", "default" and "none" for categorical
columns, "mean", "median", "default" and "none" for numeric ones.
*/
func ParseImputeOption(s string, t value.Type) (ImputeOption, error) {
	name := strings.ToLower(s)
	switch t {
	case value.Categorical:
		switch {
		case strings.HasPrefix(name, "c"):
			return ImputeToCategory, nil
		case strings.HasPrefix(name, "mo"):
			return ImputeToMode, nil
		case strings.HasPrefix(name, "d"):
			return ImputeDefault, nil
		case strings.HasPrefix(name, "no"):
			return ImputeNone, nil
		}
	case value.Numeric:
		switch {
		case strings.HasPrefix(name, "mea"):
			return ImputeToMean, nil
		case strings.HasPrefix(name, "med"):
			return ImputeToMedian, nil
		case strings.HasPrefix(name, "d"):
			return ImputeDefault, nil
		case strings.HasPrefix(name, "no"):
			return ImputeNone, nil
		}
	}
	return 0, fmt.Errorf("invalid impute option %q for %v column", s, t)
}

/*
DefaultImputeOption returns the concrete option ImputeDefault resolves
to for a column type.
*/
func DefaultImputeOption(t value.Type) ImputeOption {
	if t == value.Categorical {
		return ImputeToCategory
	}
	return ImputeToMedian
}

/*
Impute replaces the NA values of the selected rows of every selected
column of the dataset according to the column's impute option, and
returns the replacement value used for each column, NA for columns that
were not processed or not imputed. Sorted-index tables of columns whose
values changed are rebuilt. ImputeDefault options must have been
resolved with DefaultImputeOption beforehand.
*/
func Impute(ds *Dataset, options []ImputeOption, selectRows, selectColumns *Selection, tables [][]int) ([]value.Value, error) {
	numCols := ds.NumCols()
	if numCols != len(options) {
		return nil, fmt.Errorf("imputing values: %d columns but %d impute options", numCols, len(options))
	}
	if numCols != len(tables) {
		return nil, fmt.Errorf("imputing values: %d columns but %d sorted-index tables", numCols, len(tables))
	}

	imputed := make([]value.Value, numCols)
	for col := range imputed {
		imputed[col] = value.NA()
	}

	for _, col := range selectColumns.Indexes() {
		if options[col] == ImputeToCategory {
			ds.Categories[col].SetUseNACategory(true)
		}
		if options[col] == ImputeDefault {
			return nil, fmt.Errorf("imputing values: unresolved default option for column %d", col)
		}
		if options[col] == ImputeNone {
			continue
		}

		v, err := imputedValue(ds, col, options[col], selectRows, tables[col])
		if err != nil {
			return nil, err
		}
		imputed[col] = v

		changed := false
		for _, row := range selectRows.Indexes() {
			if ds.Columns[col][row].NA {
				ds.Columns[col][row] = v
				changed = true
			}
		}
		if changed {
			tables[col] = SortColumn(ds.Columns[col], ds.Types[col])
		}
	}
	return imputed, nil
}

func imputedValue(ds *Dataset, col int, option ImputeOption, selectRows *Selection, sorted []int) (value.Value, error) {
	switch ds.Types[col] {
	case value.Categorical:
		switch option {
		case ImputeToCategory:
			return value.Level(value.NoIndex), nil
		case ImputeToMode:
			return Mode(ds.Columns[col], selectRows, ds.Categories[col]), nil
		case ImputeToMean, ImputeToMedian:
			return value.NA(), fmt.Errorf("imputing values: option %v invalid for categorical column %d", option, col)
		}
	case value.Numeric:
		switch option {
		case ImputeToMean:
			return Mean(ds.Columns[col], selectRows), nil
		case ImputeToMedian:
			return Median(ds.Columns[col], selectRows, sorted), nil
		case ImputeToCategory, ImputeToMode:
			return value.NA(), fmt.Errorf("imputing values: option %v invalid for numeric column %d", option, col)
		}
	}
	return value.NA(), fmt.Errorf("imputing values: unsupported option %v for column %d", option, col)
}
