/*
Package entree trains ensembles of binary decision trees over datasets
mixing numeric and categorical columns, and applies them to predict a
target column.

Training repeatedly splits the rows reaching a leaf on the attribute
column whose best binary split leaves the least impurity, measured by
entropy for categorical targets and by standard deviation for numeric
ones. Each tree draws from its own subset of the usable columns, so
ensembles of many trees vote from different views of the data. Missing
values are replaced before training according to per-column impute
options, and prediction follows a trained per-node branch for values
still missing at prediction time.

Trained ensembles serialize to a line-oriented text format through the
model package and can be kept under a name in a model.Store.
*/
package entree

import (
	"context"
	"fmt"
	"math"

	"github.com/quadrivio/entree/dataset"
	"github.com/quadrivio/entree/model"
	"github.com/quadrivio/entree/value"
)

// Logger receives progress lines during training.
type Logger interface {
	Logf(format string, args ...interface{})
}

/*
TrainOptions collects the knobs controlling ensemble growth. The zero
value trains nothing useful; start from DefaultTrainOptions and adjust.
*/
type TrainOptions struct {
	// ColumnsPerTree is the number of attribute columns each tree draws
	// from. Zero or negative selects a default: the square root of the
	// number of usable columns for categorical targets, a third of them
	// for numeric targets, both rounded up.
	ColumnsPerTree int
	// MaxDepth bounds how deep trees may grow, counting the root as
	// depth one.
	MaxDepth int
	// MinDepth discards trees that finish shallower than it.
	MinDepth int
	// Prune enables pessimistic-error pruning after each tree grows.
	Prune bool
	// MinImprovement is the fraction of a leaf's standard deviation a
	// split must remove for the leaf to be split. It only applies to
	// numeric targets.
	MinImprovement float64
	// MinLeafCount is the minimum number of training rows each side of a
	// split must keep; splits leaving less are rolled back.
	MinLeafCount int
	// MaxSplitsPerNumericAttribute caps how many times the path from the
	// root may split on the same numeric column; -1 lifts the cap.
	MaxSplitsPerNumericAttribute int
	// MaxTrees bounds the number of column subsets, and with it the
	// number of trees.
	MaxTrees int
	// MaxNodes stops further splitting once a tree has created that many
	// nodes; zero or negative lifts the bound.
	MaxNodes int
	// Logger, when not nil, receives progress lines.
	Logger Logger
}

/*
DefaultTrainOptions returns the options used when the caller has no
opinion: automatic columns per tree, depth up to 500, at least 4 rows
per leaf, up to 1000 trees, unlimited nodes and splits, no pruning.
*/
func DefaultTrainOptions() TrainOptions {
	return TrainOptions{
		ColumnsPerTree:               -1,
		MaxDepth:                     500,
		MinDepth:                     1,
		MinLeafCount:                 4,
		MaxSplitsPerNumericAttribute: -1,
		MaxTrees:                     1000,
		MaxNodes:                     -1,
	}
}

/*
Train takes a context, a dataset, the index of the target column, a
selection of the attribute columns trees may draw from, a selection of
the training rows and one impute option per column, and returns the
trained ensemble. Attribute columns with no variation across the
training rows are dropped, default impute options are resolved per
column type, and one tree is grown per column subset; the context is
checked between trees so long trainings can be cancelled.

The dataset is modified in place: missing values among the training
rows are replaced according to the impute options, and category maps
gain the synthetic NA level where the options call for it.
*/
func Train(ctx context.Context, ds *dataset.Dataset, targetColumn int, availableColumns, selectRows *dataset.Selection, imputeOptions []dataset.ImputeOption, opts TrainOptions) (*model.Ensemble, error) {
	numCols := ds.NumCols()
	numRows := ds.NumRows()
	if targetColumn < 0 || targetColumn >= numCols {
		return nil, fmt.Errorf("training: target column %d out of range", targetColumn)
	}
	if availableColumns.Size() != numCols {
		return nil, fmt.Errorf("training: available-column selection covers %d columns, dataset has %d", availableColumns.Size(), numCols)
	}
	if availableColumns.Selected(targetColumn) {
		return nil, fmt.Errorf("training: target column %q among the available columns", ds.Names[targetColumn])
	}
	if selectRows.Size() != numRows {
		return nil, fmt.Errorf("training: row selection covers %d rows, dataset has %d", selectRows.Size(), numRows)
	}
	if len(imputeOptions) != numCols {
		return nil, fmt.Errorf("training: %d columns but %d impute options", numCols, len(imputeOptions))
	}
	target := ds.Columns[targetColumn]
	for _, row := range selectRows.Indexes() {
		if target[row].NA {
			return nil, fmt.Errorf("training: NA value in target column %q at row %d", ds.Names[targetColumn], row)
		}
	}

	if opts.Logger != nil {
		opts.Logger.Logf("training over %d rows, %d available columns, target %q",
			selectRows.Count(), availableColumns.Count(), ds.Names[targetColumn])
	}

	resolved := make([]dataset.ImputeOption, numCols)
	for col, option := range imputeOptions {
		if option == dataset.ImputeDefault {
			option = dataset.DefaultImputeOption(ds.Types[col])
		}
		resolved[col] = option
	}

	selectColumns := dataset.NewSelection(numCols, false)
	for _, col := range availableColumns.Indexes() {
		if columnVaries(ds, col, selectRows) {
			selectColumns.Select(col)
		}
	}
	numSelected := selectColumns.Count()

	columnsPerTree := opts.ColumnsPerTree
	if columnsPerTree <= 0 {
		if ds.Types[targetColumn] == value.Categorical {
			columnsPerTree = int(math.Ceil(math.Sqrt(float64(numSelected))))
		} else {
			columnsPerTree = int(math.Ceil(float64(numSelected) / 3.0))
		}
	}
	if columnsPerTree > numSelected {
		columnsPerTree = numSelected
	}
	if columnsPerTree < 1 {
		return nil, fmt.Errorf("training: no useful columns")
	}

	tables := dataset.SortedTables(ds, selectColumns)
	imputed, err := dataset.Impute(ds, resolved, selectRows, selectColumns, tables)
	if err != nil {
		return nil, fmt.Errorf("training: %v", err)
	}

	subsets := columnSubsets(numSelected, columnsPerTree, opts.MaxTrees)
	if opts.Logger != nil {
		opts.Logger.Logf("%d column subsets of %d columns", len(subsets), columnsPerTree)
	}

	builder := &treeBuilder{
		ds:            ds,
		targetColumn:  targetColumn,
		selectColumns: selectColumns.Indexes(),
		selectRows:    selectRows,
		tables:        tables,
		imputed:       imputed,
		opts:          opts,
	}

	ensemble := &model.Ensemble{
		Types:         ds.Types,
		Categories:    ds.Categories,
		TargetColumn:  targetColumn,
		SelectColumns: selectColumns.Indexes(),
		ImputeOptions: resolved,
		ColNames:      ds.Names,
	}
	for subsetIndex, subset := range subsets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tree, depthUsed, err := builder.growTree(subset)
		if err != nil {
			return nil, fmt.Errorf("training tree %d: %v", subsetIndex, err)
		}
		if depthUsed < opts.MinDepth {
			if opts.Logger != nil {
				opts.Logger.Logf("tree %d: depth %d under minimum %d, discarded", subsetIndex, depthUsed, opts.MinDepth)
			}
			continue
		}
		ensemble.Trees = append(ensemble.Trees, tree)
		if opts.Logger != nil {
			opts.Logger.Logf("tree %d: %d nodes, depth %d", subsetIndex, tree.NumNodes(), depthUsed)
		}
	}
	if opts.Logger != nil {
		opts.Logger.Logf("trained %d trees", len(ensemble.Trees))
	}
	return ensemble, nil
}

// columnVaries reports whether the column takes at least two distinct
// non-NA values among the selected rows.
func columnVaries(ds *dataset.Dataset, col int, rows *dataset.Selection) bool {
	column := ds.Columns[col]
	categorical := ds.Types[col] == value.Categorical
	first := true
	var firstValue value.Value
	for _, row := range rows.Indexes() {
		next := column[row]
		switch {
		case next.NA:
		case first:
			firstValue = next
			first = false
		case categorical:
			if firstValue.Index != next.Index {
				return true
			}
		default:
			if firstValue.Float != next.Float {
				return true
			}
		}
	}
	return false
}
