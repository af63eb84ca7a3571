package main

import (
	"context"
	"fmt"
	"os"

	"github.com/quadrivio/entree"
	"github.com/quadrivio/entree/dataset"
	"github.com/quadrivio/entree/dataset/csv"
	"github.com/quadrivio/entree/model"
	"github.com/quadrivio/entree/value"
	"github.com/spf13/cobra"
)

type predictCmdConfig struct {
	*rootCmdConfig
	attributesInput string
	modelInput      string
	output          string
	ctx             context.Context
	cancelFunc      context.CancelFunc
}

func predictCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &predictCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict the target column for new attribute rows",
		Long:  `Apply a trained model to a table with the same attribute columns it was trained on, and write the predicted target column`,
		Run: func(cmd *cobra.Command, args []string) {
			err := config.Validate()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			config.Context()
			e, err := config.loadModel()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}
			ds, err := config.attributesDataset(e)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(3)
			}
			n := e.NumCols()
			target := make([]value.Value, ds.NumRows())
			for row := range target {
				target[row] = value.NA()
			}
			ds.Names = append(ds.Names, e.ColNames[n-1])
			ds.Types = append(ds.Types, e.Types[n-1])
			ds.Columns = append(ds.Columns, target)
			ds.Categories = append(ds.Categories, e.Categories[n-1])
			selectRows := dataset.NewSelection(ds.NumRows(), true)
			config.Logf("Predicting %s for %d rows...", e.ColNames[n-1], ds.NumRows())
			predictions, err := entree.Predict(e, ds, selectRows)
			if err != nil {
				fmt.Fprintf(os.Stderr, "predicting: %v\n", err)
				os.Exit(4)
			}
			err = config.writePredictions(e, predictions)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(5)
			}
			config.Logf("Done")
		},
	}
	cmd.PersistentFlags().StringVarP(&(config.attributesInput), "attributes", "a", "", "path to a CSV (default) or SQLite3 (.db) file, or a PostgreSQL or MongoDB connection URL, with the attribute columns the model was trained on (defaults to STDIN, interpreted as CSV)")
	cmd.PersistentFlags().StringVarP(&(config.modelInput), "model", "m", "", "path to a file, or redis://host:port/db#name URL, the model will be read from (required)")
	cmd.PersistentFlags().StringVarP(&(config.output), "output", "o", "", "path to a CSV (default) or SQLite3 (.db) file, or a PostgreSQL or MongoDB connection URL, the predicted column will be written to (defaults to STDOUT, written as CSV)")
	return cmd
}

func (pcc *predictCmdConfig) Validate() error {
	if pcc.modelInput == "" {
		return fmt.Errorf("required model flag was not set")
	}
	return nil
}

func (pcc *predictCmdConfig) loadModel() (*model.Ensemble, error) {
	if isStoreLocation(pcc.modelInput) {
		store, name, err := modelStoreFor(pcc.modelInput)
		if err != nil {
			return nil, err
		}
		defer store.Close(pcc.Context())
		pcc.Logf("Reading model %s from %s...", name, pcc.modelInput)
		e, err := store.Get(pcc.Context(), name)
		if err != nil {
			return nil, err
		}
		if e == nil {
			return nil, fmt.Errorf("model %q not found at %s", name, pcc.modelInput)
		}
		return e, nil
	}
	if pcc.modelInput == "" {
		pcc.Logf("Reading model from STDIN...")
	} else {
		pcc.Logf("Reading model from %s...", pcc.modelInput)
	}
	return model.ReadFile(pcc.modelInput)
}

/*
attributesDataset reads the attribute table against the model's column
layout: same attribute columns in the same order, categorical cells
mapped through the model's category maps so unknown levels become NA.
*/
func (pcc *predictCmdConfig) attributesDataset(e *model.Ensemble) (*dataset.Dataset, error) {
	n := e.NumCols()
	attrNames := e.ColNames[:n-1]
	attrTypes := e.Types[:n-1]
	attrCategories := e.Categories[:n-1]
	if isTableLocation(pcc.attributesInput) {
		source, err := openTableSource(pcc.Context(), pcc.attributesInput, attrNames, attrTypes, false, pcc.rootCmdConfig)
		if err != nil {
			return nil, err
		}
		pcc.Logf("Reading attributes from %s...", pcc.attributesInput)
		return source.Read(pcc.Context(), attrCategories)
	}
	if pcc.attributesInput == "" {
		pcc.Logf("Reading attributes from STDIN...")
	} else {
		pcc.Logf("Reading attributes from %s...", pcc.attributesInput)
	}
	t, err := csv.ReadFile(pcc.attributesInput)
	if err != nil {
		return nil, err
	}
	if err := t.Check(); err != nil {
		return nil, fmt.Errorf("attributes: %v", err)
	}
	if len(t.ColNames) != len(attrNames) {
		return nil, fmt.Errorf("attributes have %d columns, the model was trained on %d", len(t.ColNames), len(attrNames))
	}
	for col, name := range t.ColNames {
		if name != attrNames[col] {
			return nil, fmt.Errorf("attribute column %d is named %q, the model was trained with %q", col, name, attrNames[col])
		}
	}
	return dataset.FromTableWithCategories(t, attrTypes, naString, attrCategories)
}

func (pcc *predictCmdConfig) writePredictions(e *model.Ensemble, predictions []value.Value) error {
	n := e.NumCols()
	outDs := &dataset.Dataset{
		Names:      []string{e.ColNames[n-1]},
		Types:      []value.Type{e.Types[n-1]},
		Columns:    [][]value.Value{predictions},
		Categories: []*value.CategoryMap{e.Categories[n-1]},
	}
	if isTableLocation(pcc.output) {
		source, err := openTableSource(pcc.Context(), pcc.output, outDs.Names, outDs.Types, true, pcc.rootCmdConfig)
		if err != nil {
			return err
		}
		rows, err := source.Write(pcc.Context(), outDs)
		if err != nil {
			return err
		}
		pcc.Logf("Wrote %d rows to %s...", rows, pcc.output)
		return nil
	}
	if pcc.output == "" {
		pcc.Logf("Writing predictions to STDOUT...")
	} else {
		pcc.Logf("Writing predictions to %s...", pcc.output)
	}
	return csv.WriteFile(pcc.output, dataset.ToTable(outDs, naString))
}

func (pcc *predictCmdConfig) Context() context.Context {
	pcc.setContextAndCancelFunc()
	return pcc.ctx
}

func (pcc *predictCmdConfig) setContextAndCancelFunc() {
	if pcc.ctx == nil {
		pcc.ctx, pcc.cancelFunc = context.WithCancel(context.Background())
	}
}
