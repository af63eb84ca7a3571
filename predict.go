package entree

import (
	"fmt"

	"github.com/quadrivio/entree/dataset"
	"github.com/quadrivio/entree/model"
	"github.com/quadrivio/entree/value"
)

/*
Predict takes an ensemble, a dataset laid out with the same columns the
ensemble was trained on and a selection of rows, and returns one
prediction of the target column per dataset row. Rows outside the
selection predict NA. Each tree routes a row from its root to a leaf,
comparing the row's value against each split and falling back to the
trained NA branch when the value is missing. Categorical predictions
take the level most trees voted for, ties resolving to the level whose
name sorts earlier; numeric predictions average the per-tree leaf
values.
*/
func Predict(e *model.Ensemble, ds *dataset.Dataset, selectRows *dataset.Selection) ([]value.Value, error) {
	if ds.NumCols() != e.NumCols() {
		return nil, fmt.Errorf("predicting: dataset has %d columns, model has %d", ds.NumCols(), e.NumCols())
	}

	numRows := ds.NumRows()
	predictions := make([]value.Value, numRows)
	for row := range predictions {
		predictions[row] = value.NA()
	}

	switch e.Types[e.TargetColumn] {
	case value.Categorical:
		categories := e.Categories[e.TargetColumn]
		beginIndex := categories.BeginIndex()
		endIndex := categories.EndIndex()
		votes := make([][]int, numRows)
		for _, row := range selectRows.Indexes() {
			votes[row] = make([]int, categories.Count())
		}
		for treeIndex, tree := range e.Trees {
			for _, row := range selectRows.Indexes() {
				leaf, err := routeRow(e, tree, treeIndex, ds, row)
				if err != nil {
					return nil, err
				}
				votesIndex := leaf.Index - beginIndex
				if votesIndex < 0 || votesIndex >= len(votes[row]) {
					return nil, fmt.Errorf("predicting: model tree %d: leaf level %d out of range", treeIndex, leaf.Index)
				}
				votes[row][votesIndex]++
			}
		}
		for _, row := range selectRows.Indexes() {
			maxCount := 0
			for categoryIndex := beginIndex; categoryIndex < endIndex; categoryIndex++ {
				nextCount := votes[row][categoryIndex-beginIndex]
				switch {
				case maxCount < nextCount:
					predictions[row] = value.Level(categoryIndex)
					maxCount = nextCount
				case nextCount > 0 && maxCount == nextCount:
					if categories.Name(categoryIndex) < categories.Name(predictions[row].Index) {
						predictions[row] = value.Level(categoryIndex)
					}
				}
			}
		}

	case value.Numeric:
		for _, row := range selectRows.Indexes() {
			predictions[row] = value.Number(0)
		}
		for treeIndex, tree := range e.Trees {
			for _, row := range selectRows.Indexes() {
				leaf, err := routeRow(e, tree, treeIndex, ds, row)
				if err != nil {
					return nil, err
				}
				predictions[row] = value.Number(predictions[row].Float + leaf.Float)
			}
		}
		numTrees := float64(len(e.Trees))
		for _, row := range selectRows.Indexes() {
			predictions[row] = value.Number(predictions[row].Float / numTrees)
		}
	}
	return predictions, nil
}

// routeRow follows one row from a tree's root to a leaf and returns the
// leaf's payload. Indexes that fall outside the tree or the trained
// columns report the model as corrupt.
func routeRow(e *model.Ensemble, tree *model.CompactTree, treeIndex int, ds *dataset.Dataset, row int) (value.Value, error) {
	numNodes := tree.NumNodes()
	node := 0
	for step := 0; step <= numNodes; step++ {
		if node < 0 || node >= numNodes {
			return value.Value{}, fmt.Errorf("predicting: model tree %d: node %d out of range", treeIndex, node)
		}
		if tree.LessOrEqualIndex[node] == value.NoIndex {
			return tree.Value[node], nil
		}
		splitColIndex := tree.SplitColIndex[node]
		if splitColIndex < 0 || splitColIndex >= len(e.SelectColumns) {
			return value.Value{}, fmt.Errorf("predicting: model tree %d: split column %d out of range at node %d", treeIndex, splitColIndex, node)
		}
		col := e.SelectColumns[splitColIndex]
		v := ds.Columns[col][row]

		var lessOrEqual bool
		switch {
		case v.NA:
			lessOrEqual = tree.ToLessOrEqualIfNA[node]
		case e.Types[col] == value.Categorical:
			lessOrEqual = v.Index == tree.Value[node].Index
		default:
			lessOrEqual = v.Float <= tree.Value[node].Float
		}
		if lessOrEqual {
			node = tree.LessOrEqualIndex[node]
		} else {
			node = tree.GreaterOrNotIndex[node]
		}
	}
	return value.Value{}, fmt.Errorf("predicting: model tree %d: no leaf reached after %d steps", treeIndex, numNodes)
}
