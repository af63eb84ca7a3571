package entree

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quadrivio/entree/dataset"
	"github.com/quadrivio/entree/model"
	"github.com/quadrivio/entree/value"
)

// handEnsemble wraps hand-built trees with the column description of ds,
// predicting the last column from all the others.
func handEnsemble(ds *dataset.Dataset, trees ...*model.CompactTree) *model.Ensemble {
	targetColumn := ds.NumCols() - 1
	selectColumns := make([]int, 0, targetColumn)
	for col := 0; col < targetColumn; col++ {
		selectColumns = append(selectColumns, col)
	}
	return &model.Ensemble{
		Trees:         trees,
		Types:         ds.Types,
		Categories:    ds.Categories,
		TargetColumn:  targetColumn,
		SelectColumns: selectColumns,
		ImputeOptions: defaultImputeOptions(ds),
		ColNames:      ds.Names,
	}
}

func leafTree(v value.Value) *model.CompactTree {
	return &model.CompactTree{
		SplitColIndex:     []int{value.NoIndex},
		LessOrEqualIndex:  []int{value.NoIndex},
		GreaterOrNotIndex: []int{value.NoIndex},
		ToLessOrEqualIfNA: []bool{false},
		Value:             []value.Value{v},
	}
}

func numericSplitTree(threshold float64, toLessOrEqualIfNA bool, lessOrEqual, greaterOrNot value.Value) *model.CompactTree {
	return &model.CompactTree{
		SplitColIndex:     []int{0, value.NoIndex, value.NoIndex},
		LessOrEqualIndex:  []int{1, value.NoIndex, value.NoIndex},
		GreaterOrNotIndex: []int{2, value.NoIndex, value.NoIndex},
		ToLessOrEqualIfNA: []bool{toLessOrEqualIfNA, false, false},
		Value:             []value.Value{value.Number(threshold), lessOrEqual, greaterOrNot},
	}
}

func TestPredictBreaksVoteTiesByName(t *testing.T) {
	// F enters the category map first, but E sorts first by name.
	ds := parseDataset(t, "x,y\n1,F\n2,E\n")
	e := handEnsemble(ds,
		leafTree(value.Level(levelIndex(t, ds.Categories[1], "F"))),
		leafTree(value.Level(levelIndex(t, ds.Categories[1], "E"))),
	)

	predictions, err := Predict(e, ds, dataset.NewSelection(ds.NumRows(), true))
	require.NoError(t, err)
	for _, prediction := range predictions {
		require.False(t, prediction.NA)
		assert.Equal(t, levelIndex(t, ds.Categories[1], "E"), prediction.Index)
	}
}

func TestPredictAveragesNumericTrees(t *testing.T) {
	ds := parseDataset(t, "x,y\n1,4\n2,5\n")
	e := handEnsemble(ds, leafTree(value.Number(10)), leafTree(value.Number(20)))

	predictions, err := Predict(e, ds, dataset.NewSelection(ds.NumRows(), true))
	require.NoError(t, err)
	for _, prediction := range predictions {
		assert.Equal(t, 15.0, prediction.Float)
	}
}

func TestPredictRoutesMissingValuesToTheTrainedSide(t *testing.T) {
	ds := parseDataset(t, "x,y\nNA,E\n1,E\n2,F\n")
	e := levelIndex(t, ds.Categories[1], "E")
	f := levelIndex(t, ds.Categories[1], "F")
	rows := dataset.NewSelection(ds.NumRows(), true)

	ensemble := handEnsemble(ds, numericSplitTree(1.5, true, value.Level(e), value.Level(f)))
	predictions, err := Predict(ensemble, ds, rows)
	require.NoError(t, err)
	assert.Equal(t, e, predictions[0].Index)
	assert.Equal(t, e, predictions[1].Index)
	assert.Equal(t, f, predictions[2].Index)

	ensemble = handEnsemble(ds, numericSplitTree(1.5, false, value.Level(e), value.Level(f)))
	predictions, err = Predict(ensemble, ds, rows)
	require.NoError(t, err)
	assert.Equal(t, f, predictions[0].Index)
}

func TestPredictLeavesUnselectedRowsNA(t *testing.T) {
	ds := parseDataset(t, "x,y\n1,4\n2,5\n")
	e := handEnsemble(ds, leafTree(value.Number(10)))
	selectRows := dataset.NewSelection(ds.NumRows(), false)
	selectRows.Select(1)

	predictions, err := Predict(e, ds, selectRows)
	require.NoError(t, err)
	assert.True(t, predictions[0].NA)
	require.False(t, predictions[1].NA)
	assert.Equal(t, 10.0, predictions[1].Float)
}

func TestPredictWithoutTrees(t *testing.T) {
	ds := parseDataset(t, "x,y\n1,E\n2,F\n")
	predictions, err := Predict(handEnsemble(ds), ds, dataset.NewSelection(ds.NumRows(), true))
	require.NoError(t, err)
	assert.True(t, predictions[0].NA)

	ds = parseDataset(t, "x,y\n1,4\n2,5\n")
	predictions, err = Predict(handEnsemble(ds), ds, dataset.NewSelection(ds.NumRows(), true))
	require.NoError(t, err)
	assert.True(t, math.IsNaN(predictions[0].Float))
}

func TestPredictReportsCorruptModels(t *testing.T) {
	ds := parseDataset(t, "x,y\n1,4\n2,5\n")
	rows := dataset.NewSelection(ds.NumRows(), true)

	t.Run("column count mismatch", func(t *testing.T) {
		wide := parseDataset(t, "x,z,y\n1,1,4\n")
		_, err := Predict(handEnsemble(ds, leafTree(value.Number(10))), wide, dataset.NewSelection(1, true))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "columns")
	})

	t.Run("split column out of range", func(t *testing.T) {
		tree := numericSplitTree(1.5, false, value.Number(1), value.Number(2))
		tree.SplitColIndex[0] = 5
		_, err := Predict(handEnsemble(ds, tree), ds, rows)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "split column 5 out of range")
	})

	t.Run("child index out of range", func(t *testing.T) {
		tree := numericSplitTree(1.5, false, value.Number(1), value.Number(2))
		tree.LessOrEqualIndex[0] = 7
		_, err := Predict(handEnsemble(ds, tree), ds, rows)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "node 7 out of range")
	})

	t.Run("cycle never reaches a leaf", func(t *testing.T) {
		tree := &model.CompactTree{
			SplitColIndex:     []int{0},
			LessOrEqualIndex:  []int{0},
			GreaterOrNotIndex: []int{0},
			ToLessOrEqualIfNA: []bool{false},
			Value:             []value.Value{value.Number(1.5)},
		}
		_, err := Predict(handEnsemble(ds, tree), ds, rows)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no leaf reached")
	})
}
