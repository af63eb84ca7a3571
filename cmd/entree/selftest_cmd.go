package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/quadrivio/entree"
	"github.com/quadrivio/entree/dataset"
	"github.com/quadrivio/entree/dataset/csv"
	"github.com/quadrivio/entree/model"
	"github.com/quadrivio/entree/value"
	"github.com/spf13/cobra"
)

// categoricalCSV splits on every column along some root-to-leaf path,
// so a single tree drawing from all five attribute columns can tell
// the X rows from the Y rows exactly.
const categoricalCSV = `C0,C1,C2,C3,C4,C5
A,C,F,G,I,X
B,C,E,G,J,X
B,D,E,G,J,X
B,D,F,G,J,Y
B,D,F,H,K,Y
`

// numericCSV is a step function of x, so a single split at x 4.5
// predicts y exactly.
const numericCSV = `x,y
1,10
2,10
3,10
4,10
5,20
6,20
7,20
8,20
`

type selftestCmdConfig struct {
	*rootCmdConfig
	ctx        context.Context
	cancelFunc context.CancelFunc
}

func selftestCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &selftestCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "selftest",
		Short: "Run the built-in training and prediction checks",
		Long:  `Train on small built-in tables and check that the models predict them back exactly, covering the categorical path, the numeric path and the model encoding`,
		Run: func(cmd *cobra.Command, args []string) {
			failed := false
			config.Logf("Checking the categorical path...")
			if err := config.categoricalCheck(); err != nil {
				fmt.Fprintf(os.Stderr, "categorical check: %v\n", err)
				failed = true
			}
			config.Logf("Checking the numeric path and the model encoding...")
			if err := config.numericCheck(); err != nil {
				fmt.Fprintf(os.Stderr, "numeric check: %v\n", err)
				failed = true
			}
			if failed {
				fmt.Println("Tests failed")
				os.Exit(1)
			}
			fmt.Println("Tests OK")
		},
	}
	return cmd
}

/*
categoricalCheck trains a single unpruned tree on the categorical
table and checks the in-sample predictions reproduce the target column
exactly.
*/
func (scc *selftestCmdConfig) categoricalCheck() error {
	ds, err := selftestDataset(categoricalCSV)
	if err != nil {
		return err
	}
	opts := selftestOptions(scc.rootCmdConfig)
	opts.ColumnsPerTree = 5
	predictions, err := trainAndPredict(scc.Context(), ds, opts)
	if err != nil {
		return err
	}
	targetColumn := ds.NumCols() - 1
	for row, got := range predictions {
		want := ds.Columns[targetColumn][row]
		if got != want {
			return fmt.Errorf("row %d: predicted %s, want %s",
				row, ds.Categories[targetColumn].Name(got.Index), ds.Categories[targetColumn].Name(want.Index))
		}
	}
	return nil
}

/*
numericCheck trains a single tree on the numeric table, rewrites the
model through its encoding, and checks the encoding is stable and the
reread model predicts the target column exactly.
*/
func (scc *selftestCmdConfig) numericCheck() error {
	ds, err := selftestDataset(numericCSV)
	if err != nil {
		return err
	}
	opts := selftestOptions(scc.rootCmdConfig)
	opts.ColumnsPerTree = 1
	targetColumn := ds.NumCols() - 1
	availableColumns := dataset.NewSelection(ds.NumCols(), true)
	availableColumns.Unselect(targetColumn)
	selectRows := dataset.NewSelection(ds.NumRows(), true)
	e, err := entree.Train(scc.Context(), ds, targetColumn, availableColumns, selectRows, selftestImputeOptions(ds), opts)
	if err != nil {
		return err
	}

	var first bytes.Buffer
	if err := model.Write(&first, e); err != nil {
		return err
	}
	reread, err := model.Read(bytes.NewReader(first.Bytes()))
	if err != nil {
		return err
	}
	var second bytes.Buffer
	if err := model.Write(&second, reread); err != nil {
		return err
	}
	if !bytes.Equal(first.Bytes(), second.Bytes()) {
		return fmt.Errorf("model encoding changed after a read and write round trip")
	}

	predictions, err := entree.Predict(reread, ds, selectRows)
	if err != nil {
		return err
	}
	for row, got := range predictions {
		want := ds.Columns[targetColumn][row]
		if got != want {
			return fmt.Errorf("row %d: predicted %g, want %g", row, got.Float, want.Float)
		}
	}
	return nil
}

// selftestDataset parses one of the built-in CSV tables.
func selftestDataset(data string) (*dataset.Dataset, error) {
	t, err := csv.Read(strings.NewReader(data))
	if err != nil {
		return nil, err
	}
	if err := t.Check(); err != nil {
		return nil, err
	}
	return dataset.FromTable(t, dataset.InferTypes(t, naString), naString)
}

// selftestOptions grows a single tree with no floor on leaf size or
// tree depth, so the smallest table can be fit exactly.
func selftestOptions(rootConfig *rootCmdConfig) entree.TrainOptions {
	opts := entree.DefaultTrainOptions()
	opts.MaxDepth = 100
	opts.MinDepth = 0
	opts.MinLeafCount = 1
	opts.MaxTrees = 1
	opts.MaxNodes = 100
	opts.Logger = rootConfig
	return opts
}

func selftestImputeOptions(ds *dataset.Dataset) []dataset.ImputeOption {
	options := make([]dataset.ImputeOption, ds.NumCols())
	for col := range options {
		options[col] = dataset.ImputeDefault
	}
	options[ds.NumCols()-1] = dataset.ImputeNone
	return options
}

func trainAndPredict(ctx context.Context, ds *dataset.Dataset, opts entree.TrainOptions) ([]value.Value, error) {
	targetColumn := ds.NumCols() - 1
	availableColumns := dataset.NewSelection(ds.NumCols(), true)
	availableColumns.Unselect(targetColumn)
	selectRows := dataset.NewSelection(ds.NumRows(), true)
	e, err := entree.Train(ctx, ds, targetColumn, availableColumns, selectRows, selftestImputeOptions(ds), opts)
	if err != nil {
		return nil, err
	}
	return entree.Predict(e, ds, selectRows)
}

func (scc *selftestCmdConfig) Context() context.Context {
	scc.setContextAndCancelFunc()
	return scc.ctx
}

func (scc *selftestCmdConfig) setContextAndCancelFunc() {
	if scc.ctx == nil {
		scc.ctx, scc.cancelFunc = context.WithCancel(context.Background())
	}
}
