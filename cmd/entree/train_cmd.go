package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/quadrivio/entree"
	"github.com/quadrivio/entree/dataset"
	"github.com/quadrivio/entree/dataset/csv"
	"github.com/quadrivio/entree/dataset/metadata"
	"github.com/quadrivio/entree/model"
	"github.com/quadrivio/entree/value"
	"github.com/spf13/cobra"
)

type trainCmdConfig struct {
	*rootCmdConfig
	attributesInput string
	responseInput   string
	modelOutput     string
	typesInput      string
	imputeInput     string

	columnsPerTree               int
	maxDepth                     int
	minLeafCount                 int
	maxSplitsPerNumericAttribute int
	maxTrees                     int
	doPrune                      int
	minDepth                     int
	maxNodes                     int
	minImprovement               float64

	types      *metadata.Types
	imputes    *metadata.Imputes
	ctx        context.Context
	cancelFunc context.CancelFunc
}

func trainCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &trainCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a model from attribute and response tables",
		Long:  `Train an ensemble of decision trees on a table of attribute columns and a response column, and keep the model for later predictions`,
		Run: func(cmd *cobra.Command, args []string) {
			err := config.Validate()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			config.Context()
			if config.typesInput != "" {
				config.Logf("Reading column types from metadata at %s...", config.typesInput)
				config.types, err = metadata.ReadTypesFile(config.typesInput)
				if err != nil {
					fmt.Fprintln(os.Stderr, err)
					os.Exit(2)
				}
			}
			if config.imputeInput != "" {
				config.Logf("Reading impute options from metadata at %s...", config.imputeInput)
				config.imputes, err = metadata.ReadImputesFile(config.imputeInput)
				if err != nil {
					fmt.Fprintln(os.Stderr, err)
					os.Exit(3)
				}
			}
			ds, err := config.attributesDataset()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(4)
			}
			err = config.appendResponse(ds)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(5)
			}
			imputeOptions, err := config.imputeOptions(ds)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(6)
			}
			targetColumn := ds.NumCols() - 1
			availableColumns := dataset.NewSelection(ds.NumCols(), true)
			availableColumns.Unselect(targetColumn)
			selectRows := dataset.NewSelection(ds.NumRows(), true)
			config.Logf("Training on %d rows to predict %s...", ds.NumRows(), ds.Names[targetColumn])
			e, err := entree.Train(config.Context(), ds, targetColumn, availableColumns, selectRows, imputeOptions, config.trainOptions())
			if err != nil {
				fmt.Fprintf(os.Stderr, "training the model: %v\n", err)
				os.Exit(7)
			}
			err = config.writeModel(e)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(8)
			}
			config.Logf("Done")
		},
	}
	cmd.PersistentFlags().StringVarP(&(config.attributesInput), "attributes", "a", "", "path to a CSV (default) or SQLite3 (.db) file, or a PostgreSQL or MongoDB connection URL, with the attribute columns (defaults to STDIN, interpreted as CSV)")
	cmd.PersistentFlags().StringVarP(&(config.responseInput), "response", "r", "", "path to a CSV file whose first column holds the response to predict (required)")
	cmd.PersistentFlags().StringVarP(&(config.modelOutput), "model", "m", "", "path to a file, or redis://host:port/db#name URL, the trained model will be written to (required)")
	cmd.PersistentFlags().StringVarP(&(config.typesInput), "types", "y", "", "path to a YML document or single-line CSV file declaring the column types (defaults to deducing them from the cells)")
	cmd.PersistentFlags().StringVarP(&(config.imputeInput), "impute", "i", "", "path to a YML document or single-line CSV file declaring per-column impute options (defaults to the per-type default option)")
	cmd.PersistentFlags().IntVarP(&(config.columnsPerTree), "columns-per-tree", "c", -1, "number of attribute columns each tree draws from (-1 picks a default from the target type)")
	cmd.PersistentFlags().IntVarP(&(config.maxDepth), "max-depth", "d", 500, "deepest tree allowed, counting the root as depth 1")
	cmd.PersistentFlags().IntVarP(&(config.minLeafCount), "min-leaf-count", "l", 4, "minimum number of training rows each side of a split must keep")
	cmd.PersistentFlags().IntVarP(&(config.maxSplitsPerNumericAttribute), "max-splits-per-numeric-attribute", "s", -1, "most splits on the same numeric column along a path from the root (-1 lifts the cap)")
	cmd.PersistentFlags().IntVarP(&(config.maxTrees), "max-trees", "t", 1000, "most trees the ensemble may grow")
	cmd.PersistentFlags().IntVarP(&(config.doPrune), "prune", "u", 0, "prune each tree after growing it (1) or keep it as grown (0)")
	cmd.PersistentFlags().IntVarP(&(config.minDepth), "min-depth", "e", 1, "discard trees that finish shallower than this depth")
	cmd.PersistentFlags().IntVarP(&(config.maxNodes), "max-nodes", "n", -1, "stop splitting once a tree has created this many nodes (-1 lifts the bound)")
	cmd.PersistentFlags().Float64Var(&(config.minImprovement), "min-improvement", 0.0, "fraction of a leaf's standard deviation a split must remove to be kept (numeric targets)")
	return cmd
}

func (tcc *trainCmdConfig) Validate() error {
	if tcc.responseInput == "" {
		return fmt.Errorf("required response flag was not set")
	}
	if tcc.modelOutput == "" {
		return fmt.Errorf("required model flag was not set")
	}
	if tcc.doPrune != 0 && tcc.doPrune != 1 {
		return fmt.Errorf("prune flag takes 0 or 1, got %d", tcc.doPrune)
	}
	return nil
}

/*
attributesDataset reads the attribute table. CSV inputs take their
column names from the header and their types from the metadata or,
where not declared, from the cells; database inputs need metadata
listing every column in order.
*/
func (tcc *trainCmdConfig) attributesDataset() (*dataset.Dataset, error) {
	if isTableLocation(tcc.attributesInput) {
		names, types, err := tcc.declaredColumns()
		if err != nil {
			return nil, err
		}
		source, err := openTableSource(tcc.Context(), tcc.attributesInput, names, types, false, tcc.rootCmdConfig)
		if err != nil {
			return nil, err
		}
		tcc.Logf("Reading attributes from %s...", tcc.attributesInput)
		return source.Read(tcc.Context(), nil)
	}
	if tcc.attributesInput == "" {
		tcc.Logf("Reading attributes from STDIN...")
	} else {
		tcc.Logf("Reading attributes from %s...", tcc.attributesInput)
	}
	t, err := csv.ReadFile(tcc.attributesInput)
	if err != nil {
		return nil, err
	}
	if err := t.Check(); err != nil {
		return nil, fmt.Errorf("attributes: %v", err)
	}
	types, err := tcc.attributeTypes(t)
	if err != nil {
		return nil, err
	}
	return dataset.FromTable(t, types, naString)
}

// declaredColumns resolves the column layout of inputs that carry no
// header of their own.
func (tcc *trainCmdConfig) declaredColumns() ([]string, []value.Type, error) {
	if tcc.types == nil || len(tcc.types.Names) == 0 {
		return nil, nil, fmt.Errorf("reading attributes from %s needs metadata listing the columns in order under names", tcc.attributesInput)
	}
	types := make([]value.Type, len(tcc.types.Names))
	for k, name := range tcc.types.Names {
		types[k] = tcc.types.ByName[name]
	}
	return tcc.types.Names, types, nil
}

// attributeTypes resolves the type of each attribute column of a CSV
// input.
func (tcc *trainCmdConfig) attributeTypes(t *dataset.Table) ([]value.Type, error) {
	if tcc.types == nil {
		return dataset.InferTypes(t, naString), nil
	}
	if tcc.types.Positional != nil {
		if len(tcc.types.Positional) != len(t.ColNames) && len(tcc.types.Positional) != len(t.ColNames)+1 {
			return nil, fmt.Errorf("metadata declares %d types for %d attribute columns", len(tcc.types.Positional), len(t.ColNames))
		}
		return tcc.types.Positional[:len(t.ColNames)], nil
	}
	types := dataset.InferTypes(t, naString)
	for col, name := range t.ColNames {
		if declared, ok := tcc.types.ByName[name]; ok {
			types[col] = declared
		}
	}
	return types, nil
}

/*
appendResponse reads the response CSV and adds its first column to the
dataset as the target column. The response type follows the metadata
where it declares one, a positional extra entry or the response's own
column name, and the response cells otherwise.
*/
func (tcc *trainCmdConfig) appendResponse(ds *dataset.Dataset) error {
	tcc.Logf("Reading response from %s...", tcc.responseInput)
	t, err := csv.ReadFile(tcc.responseInput)
	if err != nil {
		return err
	}
	if err := t.Check(); err != nil {
		return fmt.Errorf("response: %v", err)
	}
	if len(t.ColNames) == 0 {
		return fmt.Errorf("response table at %s has no columns", tcc.responseInput)
	}
	if len(t.Cells) == 0 {
		return fmt.Errorf("response table at %s has no rows", tcc.responseInput)
	}
	yTable := &dataset.Table{ColNames: t.ColNames[:1]}
	for row := range t.Cells {
		yTable.Cells = append(yTable.Cells, t.Cells[row][:1])
		yTable.Quoted = append(yTable.Quoted, t.Quoted[row][:1])
	}
	yType, err := tcc.responseType(yTable, ds.NumCols())
	if err != nil {
		return err
	}
	yDs, err := dataset.FromTable(yTable, []value.Type{yType}, naString)
	if err != nil {
		return err
	}
	if yDs.NumRows() != ds.NumRows() {
		return fmt.Errorf("attributes and response row counts differ: %d and %d", ds.NumRows(), yDs.NumRows())
	}
	if err := tcc.checkColumnNames(append(append([]string(nil), ds.Names...), yDs.Names[0])); err != nil {
		return err
	}
	ds.Names = append(ds.Names, yDs.Names[0])
	ds.Types = append(ds.Types, yDs.Types[0])
	ds.Columns = append(ds.Columns, yDs.Columns[0])
	ds.Categories = append(ds.Categories, yDs.Categories[0])
	return nil
}

func (tcc *trainCmdConfig) responseType(t *dataset.Table, numAttributes int) (value.Type, error) {
	if tcc.types != nil {
		if tcc.types.Positional != nil {
			if len(tcc.types.Positional) == numAttributes+1 {
				return tcc.types.Positional[numAttributes], nil
			}
		} else if declared, ok := tcc.types.ByName[t.ColNames[0]]; ok {
			return declared, nil
		}
	}
	return dataset.InferTypes(t, naString)[0], nil
}

// checkColumnNames rejects metadata entries naming columns the data
// does not have.
func (tcc *trainCmdConfig) checkColumnNames(colNames []string) error {
	known := make(map[string]bool, len(colNames))
	for _, name := range colNames {
		known[name] = true
	}
	unknown := map[string]bool{}
	if tcc.types != nil {
		for name := range tcc.types.ByName {
			if !known[name] {
				unknown[name] = true
			}
		}
	}
	if tcc.imputes != nil {
		for name := range tcc.imputes.ByName {
			if !known[name] {
				unknown[name] = true
			}
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	names := make([]string, 0, len(unknown))
	for name := range unknown {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Errorf("metadata declares unknown columns: %s", strings.Join(names, ", "))
}

/*
imputeOptions resolves one impute option per dataset column. Attribute
columns not covered by the impute metadata fall back to their type's
default option; the target column is never imputed.
*/
func (tcc *trainCmdConfig) imputeOptions(ds *dataset.Dataset) ([]dataset.ImputeOption, error) {
	targetColumn := ds.NumCols() - 1
	options := make([]dataset.ImputeOption, ds.NumCols())
	for col := range options {
		options[col] = dataset.ImputeDefault
	}
	options[targetColumn] = dataset.ImputeNone
	if tcc.imputes == nil {
		return options, nil
	}
	if tcc.imputes.Positional != nil {
		if len(tcc.imputes.Positional) != targetColumn {
			return nil, fmt.Errorf("metadata declares %d impute options for %d attribute columns", len(tcc.imputes.Positional), targetColumn)
		}
		for col, name := range tcc.imputes.Positional {
			option, err := dataset.ParseImputeOption(name, ds.Types[col])
			if err != nil {
				return nil, fmt.Errorf("column %s: %v", ds.Names[col], err)
			}
			options[col] = option
		}
		return options, nil
	}
	if _, ok := tcc.imputes.ByName[ds.Names[targetColumn]]; ok {
		return nil, fmt.Errorf("the target column %s takes no impute option", ds.Names[targetColumn])
	}
	for col := 0; col < targetColumn; col++ {
		name, ok := tcc.imputes.ByName[ds.Names[col]]
		if !ok {
			continue
		}
		option, err := dataset.ParseImputeOption(name, ds.Types[col])
		if err != nil {
			return nil, fmt.Errorf("column %s: %v", ds.Names[col], err)
		}
		options[col] = option
	}
	return options, nil
}

func (tcc *trainCmdConfig) trainOptions() entree.TrainOptions {
	opts := entree.DefaultTrainOptions()
	opts.ColumnsPerTree = tcc.columnsPerTree
	opts.MaxDepth = tcc.maxDepth
	opts.MinDepth = tcc.minDepth
	opts.Prune = tcc.doPrune != 0
	opts.MinImprovement = tcc.minImprovement
	opts.MinLeafCount = tcc.minLeafCount
	opts.MaxSplitsPerNumericAttribute = tcc.maxSplitsPerNumericAttribute
	opts.MaxTrees = tcc.maxTrees
	opts.MaxNodes = tcc.maxNodes
	opts.Logger = tcc.rootCmdConfig
	return opts
}

func (tcc *trainCmdConfig) writeModel(e *model.Ensemble) error {
	if isStoreLocation(tcc.modelOutput) {
		store, name, err := modelStoreFor(tcc.modelOutput)
		if err != nil {
			return err
		}
		defer store.Close(tcc.Context())
		tcc.Logf("Storing model %s at %s...", name, tcc.modelOutput)
		return store.Put(tcc.Context(), name, e)
	}
	tcc.Logf("Writing model to %s...", tcc.modelOutput)
	return model.WriteFile(tcc.modelOutput, e)
}

func (tcc *trainCmdConfig) Context() context.Context {
	tcc.setContextAndCancelFunc()
	return tcc.ctx
}

func (tcc *trainCmdConfig) setContextAndCancelFunc() {
	if tcc.ctx == nil {
		tcc.ctx, tcc.cancelFunc = context.WithCancel(context.Background())
	}
}
