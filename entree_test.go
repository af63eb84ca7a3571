package entree

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quadrivio/entree/dataset"
	"github.com/quadrivio/entree/dataset/csv"
	"github.com/quadrivio/entree/model"
	"github.com/quadrivio/entree/value"
)

func parseDataset(t *testing.T, text string) *dataset.Dataset {
	t.Helper()
	table, err := csv.Read(strings.NewReader(text))
	require.NoError(t, err)
	types := dataset.InferTypes(table, "NA")
	ds, err := dataset.FromTable(table, types, "NA")
	require.NoError(t, err)
	return ds
}

// defaultImputeOptions returns one unresolved default option per column.
func defaultImputeOptions(ds *dataset.Dataset) []dataset.ImputeOption {
	options := make([]dataset.ImputeOption, ds.NumCols())
	for col := range options {
		options[col] = dataset.ImputeDefault
	}
	return options
}

// trainSelections returns the usual column and row selections: every
// column but the target available, every row selected.
func trainSelections(ds *dataset.Dataset, targetColumn int) (*dataset.Selection, *dataset.Selection) {
	availableColumns := dataset.NewSelection(ds.NumCols(), true)
	availableColumns.Unselect(targetColumn)
	selectRows := dataset.NewSelection(ds.NumRows(), true)
	return availableColumns, selectRows
}

func countMatches(target, predictions []value.Value, rows *dataset.Selection) int {
	matched := 0
	for _, row := range rows.Indexes() {
		if !predictions[row].NA && predictions[row].Index == target[row].Index {
			matched++
		}
	}
	return matched
}

func TestTrainIrisPredictsEveryTrainingRow(t *testing.T) {
	ds := parseDataset(t, irisCSV)
	require.Equal(t, 5, ds.NumCols())
	require.Equal(t, 150, ds.NumRows())
	targetColumn := 4
	require.Equal(t, value.Categorical, ds.Types[targetColumn])

	availableColumns, selectRows := trainSelections(ds, targetColumn)

	opts := DefaultTrainOptions()
	opts.ColumnsPerTree = 4
	opts.MaxDepth = 100
	opts.MinDepth = 0
	opts.Prune = true
	opts.MinLeafCount = 1
	opts.MaxTrees = 1
	opts.MaxNodes = 100

	e, err := Train(context.Background(), ds, targetColumn, availableColumns, selectRows, defaultImputeOptions(ds), opts)
	require.NoError(t, err)
	require.Len(t, e.Trees, 1)

	predictions, err := Predict(e, ds, selectRows)
	require.NoError(t, err)
	assert.Equal(t, 150, countMatches(ds.Columns[targetColumn], predictions, selectRows))
}

func TestTrainAllCategoricalPredictsEveryTrainingRow(t *testing.T) {
	const data = `C0,C1,C2,C3,C4,C5
A,C,F,G,I,X
B,C,E,G,J,X
B,D,E,G,J,X
B,D,F,G,J,Y
B,D,F,H,K,Y
`
	ds := parseDataset(t, data)
	targetColumn := 5
	availableColumns, selectRows := trainSelections(ds, targetColumn)

	opts := DefaultTrainOptions()
	opts.ColumnsPerTree = 5
	opts.MaxDepth = 100
	opts.MinDepth = 0
	opts.MinLeafCount = 1
	opts.MaxTrees = 1
	opts.MaxNodes = 100

	e, err := Train(context.Background(), ds, targetColumn, availableColumns, selectRows, defaultImputeOptions(ds), opts)
	require.NoError(t, err)
	require.Len(t, e.Trees, 1)

	predictions, err := Predict(e, ds, selectRows)
	require.NoError(t, err)
	assert.Equal(t, 5, countMatches(ds.Columns[targetColumn], predictions, selectRows))
}

func TestTrainRecoversNumericThresholdRule(t *testing.T) {
	// The label depends on x through a single threshold, so one tree
	// over the one usable column recovers it exactly.
	var sb strings.Builder
	sb.WriteString("x,y\n")
	for i := 1; i <= 20; i++ {
		label := "low"
		if i > 10 {
			label = "high"
		}
		fmt.Fprintf(&sb, "%d,%s\n", i, label)
	}
	ds := parseDataset(t, sb.String())
	targetColumn := 1
	availableColumns, selectRows := trainSelections(ds, targetColumn)

	opts := DefaultTrainOptions()
	opts.ColumnsPerTree = 1
	opts.MinDepth = 0
	opts.MinLeafCount = 1
	opts.MaxTrees = 1

	e, err := Train(context.Background(), ds, targetColumn, availableColumns, selectRows, defaultImputeOptions(ds), opts)
	require.NoError(t, err)
	require.Len(t, e.Trees, 1)

	tree := e.Trees[0]
	require.Equal(t, 3, tree.NumNodes())
	assert.Equal(t, 10.5, tree.Value[0].Float)

	predictions, err := Predict(e, ds, selectRows)
	require.NoError(t, err)
	assert.Equal(t, 20, countMatches(ds.Columns[targetColumn], predictions, selectRows))
}

func TestTrainDeterministic(t *testing.T) {
	var outputs [2]string
	for attempt := range outputs {
		ds := parseDataset(t, irisCSV)
		targetColumn := 4
		availableColumns, selectRows := trainSelections(ds, targetColumn)

		opts := DefaultTrainOptions()
		opts.ColumnsPerTree = 2
		opts.MaxTrees = 6
		opts.MinLeafCount = 2

		e, err := Train(context.Background(), ds, targetColumn, availableColumns, selectRows, defaultImputeOptions(ds), opts)
		require.NoError(t, err)

		var buf bytes.Buffer
		require.NoError(t, model.Write(&buf, e))
		outputs[attempt] = buf.String()
	}
	assert.Equal(t, outputs[0], outputs[1])
}

func TestTrainEveryTreeDrawsFromItsOwnSubset(t *testing.T) {
	ds := parseDataset(t, irisCSV)
	targetColumn := 4
	availableColumns, selectRows := trainSelections(ds, targetColumn)

	opts := DefaultTrainOptions()
	opts.ColumnsPerTree = 2
	opts.MaxTrees = 6
	opts.MinLeafCount = 2
	opts.MinDepth = 0

	e, err := Train(context.Background(), ds, targetColumn, availableColumns, selectRows, defaultImputeOptions(ds), opts)
	require.NoError(t, err)
	// Four columns in pairs enumerate six group combinations.
	assert.Len(t, e.Trees, 6)

	used := make(map[int]bool)
	for _, tree := range e.Trees {
		for node := 0; node < tree.NumNodes(); node++ {
			if tree.LessOrEqualIndex[node] != value.NoIndex {
				splitColIndex := tree.SplitColIndex[node]
				require.GreaterOrEqual(t, splitColIndex, 0)
				require.Less(t, splitColIndex, len(e.SelectColumns))
				used[e.SelectColumns[splitColIndex]] = true
			}
		}
	}
	// Petal measurements split iris in every subset pairing them with a
	// sepal column, so more than one column must appear across trees.
	assert.Greater(t, len(used), 1)
}

func TestTrainValidatesInputs(t *testing.T) {
	const data = `x,y
1,a
2,b
3,a
4,b
`
	t.Run("target among available columns", func(t *testing.T) {
		ds := parseDataset(t, data)
		availableColumns := dataset.NewSelection(ds.NumCols(), true)
		selectRows := dataset.NewSelection(ds.NumRows(), true)
		_, err := Train(context.Background(), ds, 1, availableColumns, selectRows, defaultImputeOptions(ds), DefaultTrainOptions())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "available")
	})

	t.Run("target column out of range", func(t *testing.T) {
		ds := parseDataset(t, data)
		availableColumns, selectRows := trainSelections(ds, 1)
		_, err := Train(context.Background(), ds, 7, availableColumns, selectRows, defaultImputeOptions(ds), DefaultTrainOptions())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "out of range")
	})

	t.Run("NA in target column", func(t *testing.T) {
		ds := parseDataset(t, "x,y\n1,a\n2,NA\n3,a\n")
		availableColumns, selectRows := trainSelections(ds, 1)
		_, err := Train(context.Background(), ds, 1, availableColumns, selectRows, defaultImputeOptions(ds), DefaultTrainOptions())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "NA value in target column")
	})

	t.Run("impute option count", func(t *testing.T) {
		ds := parseDataset(t, data)
		availableColumns, selectRows := trainSelections(ds, 1)
		_, err := Train(context.Background(), ds, 1, availableColumns, selectRows, nil, DefaultTrainOptions())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "impute options")
	})

	t.Run("no useful columns", func(t *testing.T) {
		ds := parseDataset(t, "x,y\n1,a\n1,b\n1,a\n1,b\n")
		availableColumns, selectRows := trainSelections(ds, 1)
		_, err := Train(context.Background(), ds, 1, availableColumns, selectRows, defaultImputeOptions(ds), DefaultTrainOptions())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no useful columns")
	})
}

func TestTrainStopsWhenContextCancelled(t *testing.T) {
	ds := parseDataset(t, irisCSV)
	targetColumn := 4
	availableColumns, selectRows := trainSelections(ds, targetColumn)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Train(ctx, ds, targetColumn, availableColumns, selectRows, defaultImputeOptions(ds), DefaultTrainOptions())
	require.Equal(t, context.Canceled, err)
}

func TestTrainImputesMissingValuesBeforeSplitting(t *testing.T) {
	// The NA in x imputes to the median of the selected rows, so
	// training succeeds and the model records the NA branch direction.
	const data = `x,y
1,low
2,low
3,low
NA,high
8,high
9,high
10,high
`
	ds := parseDataset(t, data)
	targetColumn := 1
	availableColumns, selectRows := trainSelections(ds, targetColumn)

	opts := DefaultTrainOptions()
	opts.ColumnsPerTree = 1
	opts.MinDepth = 0
	opts.MinLeafCount = 1
	opts.MaxTrees = 1

	e, err := Train(context.Background(), ds, targetColumn, availableColumns, selectRows, defaultImputeOptions(ds), opts)
	require.NoError(t, err)
	require.Len(t, e.Trees, 1)
	assert.Equal(t, dataset.ImputeToMedian, e.ImputeOptions[0])

	// The imputed cell no longer reads NA.
	assert.False(t, ds.Columns[0][3].NA)

	predictions, err := Predict(e, ds, selectRows)
	require.NoError(t, err)
	assert.Equal(t, 7, countMatches(ds.Columns[targetColumn], predictions, selectRows))
}

const irisCSV = `sepalLength,sepalWidth,petalLength,petalWidth,species
5.1,3.5,1.4,0.2,setosa
4.9,3.0,1.4,0.2,setosa
4.7,3.2,1.3,0.2,setosa
4.6,3.1,1.5,0.2,setosa
5.0,3.6,1.4,0.2,setosa
5.4,3.9,1.7,0.4,setosa
4.6,3.4,1.4,0.3,setosa
5.0,3.4,1.5,0.2,setosa
4.4,2.9,1.4,0.2,setosa
4.9,3.1,1.5,0.1,setosa
5.4,3.7,1.5,0.2,setosa
4.8,3.4,1.6,0.2,setosa
4.8,3.0,1.4,0.1,setosa
4.3,3.0,1.1,0.1,setosa
5.8,4.0,1.2,0.2,setosa
5.7,4.4,1.5,0.4,setosa
5.4,3.9,1.3,0.4,setosa
5.1,3.5,1.4,0.3,setosa
5.7,3.8,1.7,0.3,setosa
5.1,3.8,1.5,0.3,setosa
5.4,3.4,1.7,0.2,setosa
5.1,3.7,1.5,0.4,setosa
4.6,3.6,1.0,0.2,setosa
5.1,3.3,1.7,0.5,setosa
4.8,3.4,1.9,0.2,setosa
5.0,3.0,1.6,0.2,setosa
5.0,3.4,1.6,0.4,setosa
5.2,3.5,1.5,0.2,setosa
5.2,3.4,1.4,0.2,setosa
4.7,3.2,1.6,0.2,setosa
4.8,3.1,1.6,0.2,setosa
5.4,3.4,1.5,0.4,setosa
5.2,4.1,1.5,0.1,setosa
5.5,4.2,1.4,0.2,setosa
4.9,3.1,1.5,0.1,setosa
5.0,3.2,1.2,0.2,setosa
5.5,3.5,1.3,0.2,setosa
4.9,3.1,1.5,0.1,setosa
4.4,3.0,1.3,0.2,setosa
5.1,3.4,1.5,0.2,setosa
5.0,3.5,1.3,0.3,setosa
4.5,2.3,1.3,0.3,setosa
4.4,3.2,1.3,0.2,setosa
5.0,3.5,1.6,0.6,setosa
5.1,3.8,1.9,0.4,setosa
4.8,3.0,1.4,0.3,setosa
5.1,3.8,1.6,0.2,setosa
4.6,3.2,1.4,0.2,setosa
5.3,3.7,1.5,0.2,setosa
5.0,3.3,1.4,0.2,setosa
7.0,3.2,4.7,1.4,versicolor
6.4,3.2,4.5,1.5,versicolor
6.9,3.1,4.9,1.5,versicolor
5.5,2.3,4.0,1.3,versicolor
6.5,2.8,4.6,1.5,versicolor
5.7,2.8,4.5,1.3,versicolor
6.3,3.3,4.7,1.6,versicolor
4.9,2.4,3.3,1.0,versicolor
6.6,2.9,4.6,1.3,versicolor
5.2,2.7,3.9,1.4,versicolor
5.0,2.0,3.5,1.0,versicolor
5.9,3.0,4.2,1.5,versicolor
6.0,2.2,4.0,1.0,versicolor
6.1,2.9,4.7,1.4,versicolor
5.6,2.9,3.6,1.3,versicolor
6.7,3.1,4.4,1.4,versicolor
5.6,3.0,4.5,1.5,versicolor
5.8,2.7,4.1,1.0,versicolor
6.2,2.2,4.5,1.5,versicolor
5.6,2.5,3.9,1.1,versicolor
5.9,3.2,4.8,1.8,versicolor
6.1,2.8,4.0,1.3,versicolor
6.3,2.5,4.9,1.5,versicolor
6.1,2.8,4.7,1.2,versicolor
6.4,2.9,4.3,1.3,versicolor
6.6,3.0,4.4,1.4,versicolor
6.8,2.8,4.8,1.4,versicolor
6.7,3.0,5.0,1.7,versicolor
6.0,2.9,4.5,1.5,versicolor
5.7,2.6,3.5,1.0,versicolor
5.5,2.4,3.8,1.1,versicolor
5.5,2.4,3.7,1.0,versicolor
5.8,2.7,3.9,1.2,versicolor
6.0,2.7,5.1,1.6,versicolor
5.4,3.0,4.5,1.5,versicolor
6.0,3.4,4.5,1.6,versicolor
6.7,3.1,4.7,1.5,versicolor
6.3,2.3,4.4,1.3,versicolor
5.6,3.0,4.1,1.3,versicolor
5.5,2.5,4.0,1.3,versicolor
5.5,2.6,4.4,1.2,versicolor
6.1,3.0,4.6,1.4,versicolor
5.8,2.6,4.0,1.2,versicolor
5.0,2.3,3.3,1.0,versicolor
5.6,2.7,4.2,1.3,versicolor
5.7,3.0,4.2,1.2,versicolor
5.7,2.9,4.2,1.3,versicolor
6.2,2.9,4.3,1.3,versicolor
5.1,2.5,3.0,1.1,versicolor
5.7,2.8,4.1,1.3,versicolor
6.3,3.3,6.0,2.5,virginica
5.8,2.7,5.1,1.9,virginica
7.1,3.0,5.9,2.1,virginica
6.3,2.9,5.6,1.8,virginica
6.5,3.0,5.8,2.2,virginica
7.6,3.0,6.6,2.1,virginica
4.9,2.5,4.5,1.7,virginica
7.3,2.9,6.3,1.8,virginica
6.7,2.5,5.8,1.8,virginica
7.2,3.6,6.1,2.5,virginica
6.5,3.2,5.1,2.0,virginica
6.4,2.7,5.3,1.9,virginica
6.8,3.0,5.5,2.1,virginica
5.7,2.5,5.0,2.0,virginica
5.8,2.8,5.1,2.4,virginica
6.4,3.2,5.3,2.3,virginica
6.5,3.0,5.5,1.8,virginica
7.7,3.8,6.7,2.2,virginica
7.7,2.6,6.9,2.3,virginica
6.0,2.2,5.0,1.5,virginica
6.9,3.2,5.7,2.3,virginica
5.6,2.8,4.9,2.0,virginica
7.7,2.8,6.7,2.0,virginica
6.3,2.7,4.9,1.8,virginica
6.7,3.3,5.7,2.1,virginica
7.2,3.2,6.0,1.8,virginica
6.2,2.8,4.8,1.8,virginica
6.1,3.0,4.9,1.8,virginica
6.4,2.8,5.6,2.1,virginica
7.2,3.0,5.8,1.6,virginica
7.4,2.8,6.1,1.9,virginica
7.9,3.8,6.4,2.0,virginica
6.4,2.8,5.6,2.2,virginica
6.3,2.8,5.1,1.5,virginica
6.1,2.6,5.6,1.4,virginica
7.7,3.0,6.1,2.3,virginica
6.3,3.4,5.6,2.4,virginica
6.4,3.1,5.5,1.8,virginica
6.0,3.0,4.8,1.8,virginica
6.9,3.1,5.4,2.1,virginica
6.7,3.1,5.6,2.4,virginica
6.9,3.1,5.1,2.3,virginica
5.8,2.7,5.1,1.9,virginica
6.8,3.2,5.9,2.3,virginica
6.7,3.3,5.7,2.5,virginica
6.7,3.0,5.2,2.3,virginica
6.3,2.5,5.0,1.9,virginica
6.5,3.0,5.2,2.0,virginica
6.2,3.4,5.4,2.3,virginica
5.9,3.0,5.1,1.8,virginica
`
