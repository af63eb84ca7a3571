/*
Package model holds trained tree ensembles and their plain-text
serialization.

A serialized model is a sequence of named sections, each a small CSV
table whose header line is the section name and whose rows hold one
value each, terminated by a blank line. Sections appear in a fixed
order: valueTypes, useNaCategory, one categories.k section per column,
targetColumn, selectColumns, imputeOptions, numTrees, five sections per
tree (splitColIndex.t, lessOrEqualIndex.t, greaterOrNotIndex.t,
toLessOrEqualIfNA.t, value.t) and a final colNames section. Node values
are written as integers for categorical columns and in %.17e form for
numeric ones, so that they round-trip exactly.
*/
package model

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/quadrivio/entree/dataset"
	"github.com/quadrivio/entree/dataset/csv"
	"github.com/quadrivio/entree/value"
)

/*
Ensemble is a trained model: the compact trees that vote on or average
a prediction, plus the description of the columns they were trained
against. TargetColumn is the predicted column; SelectColumns lists, in
order, the dataset columns the trees' split column indexes refer to.
*/
type Ensemble struct {
	Trees         []*CompactTree
	Types         []value.Type
	Categories    []*value.CategoryMap
	TargetColumn  int
	SelectColumns []int
	ImputeOptions []dataset.ImputeOption
	ColNames      []string
}

// NumCols returns the number of columns of the dataset the ensemble
// was trained on, including the target column.
func (e *Ensemble) NumCols() int {
	return len(e.Types)
}

/*
Write dumps the ensemble to the writer in the plain-text model format.
*/
func Write(writer io.Writer, e *Ensemble) error {
	w := bufio.NewWriter(writer)

	w.WriteString("valueTypes\n")
	for _, t := range e.Types {
		writeQuotedLine(w, t.String())
	}
	w.WriteByte('\n')

	w.WriteString("useNaCategory\n")
	for _, m := range e.Categories {
		writeBoolLine(w, m.UseNACategory())
	}
	w.WriteByte('\n')

	for col, m := range e.Categories {
		fmt.Fprintf(w, "categories.%d\n", col)
		for _, name := range m.Names() {
			writeQuotedLine(w, name)
		}
		w.WriteByte('\n')
	}

	w.WriteString("targetColumn\n")
	fmt.Fprintf(w, "%d\n", e.TargetColumn)
	w.WriteByte('\n')

	w.WriteString("selectColumns\n")
	for _, col := range e.SelectColumns {
		fmt.Fprintf(w, "%d\n", col)
	}
	w.WriteByte('\n')

	w.WriteString("imputeOptions\n")
	for _, o := range e.ImputeOptions {
		writeQuotedLine(w, o.String())
	}
	w.WriteByte('\n')

	w.WriteString("numTrees\n")
	fmt.Fprintf(w, "%d\n", len(e.Trees))
	w.WriteByte('\n')

	for t, tree := range e.Trees {
		fmt.Fprintf(w, "splitColIndex.%d\n", t)
		for _, v := range tree.SplitColIndex {
			fmt.Fprintf(w, "%d\n", v)
		}
		w.WriteByte('\n')

		fmt.Fprintf(w, "lessOrEqualIndex.%d\n", t)
		for _, v := range tree.LessOrEqualIndex {
			fmt.Fprintf(w, "%d\n", v)
		}
		w.WriteByte('\n')

		fmt.Fprintf(w, "greaterOrNotIndex.%d\n", t)
		for _, v := range tree.GreaterOrNotIndex {
			fmt.Fprintf(w, "%d\n", v)
		}
		w.WriteByte('\n')

		fmt.Fprintf(w, "toLessOrEqualIfNA.%d\n", t)
		for _, v := range tree.ToLessOrEqualIfNA {
			writeBoolLine(w, v)
		}
		w.WriteByte('\n')

		fmt.Fprintf(w, "value.%d\n", t)
		for k, v := range tree.Value {
			col, err := e.nodeValueColumn(tree.SplitColIndex[k], k, t)
			if err != nil {
				return err
			}
			switch e.Types[col] {
			case value.Categorical:
				fmt.Fprintf(w, "%d\n", v.Index)
			case value.Numeric:
				fmt.Fprintf(w, "%.17e\n", v.Float)
			}
		}
		w.WriteByte('\n')
	}

	w.WriteString("colNames\n")
	for _, name := range e.ColNames {
		writeQuotedLine(w, name)
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("writing model: %v", err)
	}
	return nil
}

/*
Read parses the plain-text model format from the reader and returns the
ensemble it holds. The sections are expected in the order Write emits
them; a missing or misnamed section, a section whose length contradicts
another, or a value that does not parse make Read fail with an error
describing the first offence.
*/
func Read(reader io.Reader) (*Ensemble, error) {
	s := csv.NewScanner(reader)
	e := &Ensemble{}

	rows, err := section(s, "valueTypes")
	if err != nil {
		return nil, err
	}
	e.Types = make([]value.Type, len(rows))
	for i, cell := range rows {
		if e.Types[i], err = value.ParseType(cell); err != nil {
			return nil, fmt.Errorf("reading model: %v", err)
		}
	}
	numCols := len(e.Types)

	rows, err = section(s, "useNaCategory")
	if err != nil {
		return nil, err
	}
	if len(rows) != numCols {
		return nil, fmt.Errorf("reading model: %d value types but %d useNaCategory entries", numCols, len(rows))
	}
	e.Categories = make([]*value.CategoryMap, numCols)
	for col, cell := range rows {
		flag, err := parseBool(cell)
		if err != nil {
			return nil, fmt.Errorf("reading model: useNaCategory entry %d: %v", col, err)
		}
		e.Categories[col] = value.NewCategoryMap()
		e.Categories[col].SetUseNACategory(flag)
	}

	for col := 0; col < numCols; col++ {
		rows, err = section(s, fmt.Sprintf("categories.%d", col))
		if err != nil {
			return nil, err
		}
		for _, name := range rows {
			if _, err := e.Categories[col].Insert(name); err != nil {
				return nil, fmt.Errorf("reading model: categories.%d: %v", col, err)
			}
		}
	}

	rows, err = section(s, "targetColumn")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("reading model: empty targetColumn section")
	}
	if e.TargetColumn, err = strconv.Atoi(rows[0]); err != nil {
		return nil, fmt.Errorf("reading model: targetColumn: %v", err)
	}
	if e.TargetColumn < 0 || e.TargetColumn >= numCols {
		return nil, fmt.Errorf("reading model: target column %d out of range", e.TargetColumn)
	}

	rows, err = section(s, "selectColumns")
	if err != nil {
		return nil, err
	}
	e.SelectColumns = make([]int, len(rows))
	for i, cell := range rows {
		col, err := strconv.Atoi(cell)
		if err != nil {
			return nil, fmt.Errorf("reading model: selectColumns entry %d: %v", i, err)
		}
		if col < 0 || col >= numCols {
			return nil, fmt.Errorf("reading model: selected column %d out of range", col)
		}
		e.SelectColumns[i] = col
	}

	rows, err = section(s, "imputeOptions")
	if err != nil {
		return nil, err
	}
	if len(rows) != numCols {
		return nil, fmt.Errorf("reading model: %d value types but %d impute options", numCols, len(rows))
	}
	e.ImputeOptions = make([]dataset.ImputeOption, numCols)
	for col, cell := range rows {
		if e.ImputeOptions[col], err = dataset.ParseImputeOption(cell, e.Types[col]); err != nil {
			return nil, fmt.Errorf("reading model: %v", err)
		}
	}

	rows, err = section(s, "numTrees")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("reading model: empty numTrees section")
	}
	numTrees, err := strconv.Atoi(rows[0])
	if err != nil || numTrees < 0 {
		return nil, fmt.Errorf("reading model: invalid tree count %q", rows[0])
	}

	e.Trees = make([]*CompactTree, numTrees)
	for t := 0; t < numTrees; t++ {
		tree := &CompactTree{}

		rows, err = section(s, fmt.Sprintf("splitColIndex.%d", t))
		if err != nil {
			return nil, err
		}
		tree.SplitColIndex, err = parseInts(rows)
		if err != nil {
			return nil, fmt.Errorf("reading model: splitColIndex.%d: %v", t, err)
		}
		numNodes := len(tree.SplitColIndex)

		rows, err = treeSection(s, "lessOrEqualIndex", t, numNodes)
		if err != nil {
			return nil, err
		}
		tree.LessOrEqualIndex, err = parseInts(rows)
		if err != nil {
			return nil, fmt.Errorf("reading model: lessOrEqualIndex.%d: %v", t, err)
		}

		rows, err = treeSection(s, "greaterOrNotIndex", t, numNodes)
		if err != nil {
			return nil, err
		}
		tree.GreaterOrNotIndex, err = parseInts(rows)
		if err != nil {
			return nil, fmt.Errorf("reading model: greaterOrNotIndex.%d: %v", t, err)
		}

		rows, err = treeSection(s, "toLessOrEqualIfNA", t, numNodes)
		if err != nil {
			return nil, err
		}
		tree.ToLessOrEqualIfNA = make([]bool, numNodes)
		for k, cell := range rows {
			if tree.ToLessOrEqualIfNA[k], err = parseBool(cell); err != nil {
				return nil, fmt.Errorf("reading model: toLessOrEqualIfNA.%d entry %d: %v", t, k, err)
			}
		}

		rows, err = treeSection(s, "value", t, numNodes)
		if err != nil {
			return nil, err
		}
		tree.Value = make([]value.Value, numNodes)
		for k, cell := range rows {
			col, err := e.nodeValueColumn(tree.SplitColIndex[k], k, t)
			if err != nil {
				return nil, err
			}
			switch e.Types[col] {
			case value.Categorical:
				index, err := strconv.Atoi(cell)
				if err != nil {
					return nil, fmt.Errorf("reading model: value.%d entry %d: %v", t, k, err)
				}
				tree.Value[k] = value.Level(index)
			case value.Numeric:
				f, err := strconv.ParseFloat(cell, 64)
				if err != nil {
					return nil, fmt.Errorf("reading model: value.%d entry %d: %v", t, k, err)
				}
				tree.Value[k] = value.Number(f)
			}
		}

		e.Trees[t] = tree
	}

	rows, err = section(s, "colNames")
	if err != nil {
		return nil, err
	}
	if len(rows) != numCols {
		return nil, fmt.Errorf("reading model: %d value types but %d column names", numCols, len(rows))
	}
	e.ColNames = rows

	return e, nil
}

/*
WriteFile takes a filepath and an ensemble, creates the file the
filepath points to and uses Write to dump the ensemble to it. An empty
filepath writes to os.Stdout.
*/
func WriteFile(filepath string, e *Ensemble) error {
	var f *os.File
	var err error
	if filepath == "" {
		f = os.Stdout
	} else {
		f, err = os.Create(filepath)
		if err != nil {
			return fmt.Errorf("writing model file: %v", err)
		}
		defer f.Close()
	}
	if err = Write(f, e); err != nil {
		return fmt.Errorf("writing model file %s: %v", filepath, err)
	}
	return nil
}

/*
ReadFile takes a filepath, opens the file it points to and uses Read to
return the ensemble read from it. An empty filepath reads from
os.Stdin.
*/
func ReadFile(filepath string) (*Ensemble, error) {
	var f *os.File
	var err error
	if filepath == "" {
		f = os.Stdin
	} else {
		f, err = os.Open(filepath)
		if err != nil {
			return nil, fmt.Errorf("reading model file: %v", err)
		}
	}
	defer f.Close()
	e, err := Read(f)
	if err != nil {
		err = fmt.Errorf("reading model file %s: %v", filepath, err)
	}
	return e, err
}

// nodeValueColumn returns the dataset column whose type governs the
// value payload of a node: the split column for internal nodes, the
// target column for leaves.
func (e *Ensemble) nodeValueColumn(splitColIndex, node, tree int) (int, error) {
	if splitColIndex == value.NoIndex {
		return e.TargetColumn, nil
	}
	if splitColIndex < 0 || splitColIndex >= len(e.SelectColumns) {
		return 0, fmt.Errorf("model tree %d: unknown split column index %d at node %d", tree, splitColIndex, node)
	}
	return e.SelectColumns[splitColIndex], nil
}

func section(s *csv.Scanner, name string) ([]string, error) {
	t, err := s.Next()
	if err != nil {
		return nil, fmt.Errorf("reading model: %v", err)
	}
	if len(t.ColNames) == 0 || t.ColNames[0] != name {
		got := ""
		if len(t.ColNames) > 0 {
			got = t.ColNames[0]
		}
		return nil, fmt.Errorf("reading model: expected section %q, got %q", name, got)
	}
	cells := make([]string, len(t.Cells))
	for i, row := range t.Cells {
		if len(row) == 0 {
			return nil, fmt.Errorf("reading model: empty row %d in section %q", i, name)
		}
		cells[i] = row[0]
	}
	return cells, nil
}

func treeSection(s *csv.Scanner, name string, tree, numNodes int) ([]string, error) {
	rows, err := section(s, fmt.Sprintf("%s.%d", name, tree))
	if err != nil {
		return nil, err
	}
	if len(rows) != numNodes {
		return nil, fmt.Errorf("reading model: section %s.%d has %d entries, want %d", name, tree, len(rows), numNodes)
	}
	return rows, nil
}

func parseInts(cells []string) ([]int, error) {
	ints := make([]int, len(cells))
	var err error
	for i, cell := range cells {
		if ints[i], err = strconv.Atoi(cell); err != nil {
			return nil, err
		}
	}
	return ints, nil
}

func parseBool(cell string) (bool, error) {
	v, err := strconv.Atoi(cell)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

func writeQuotedLine(w *bufio.Writer, s string) {
	w.WriteByte('"')
	w.WriteString(strings.Replace(s, `"`, `""`, -1))
	w.WriteByte('"')
	w.WriteByte('\n')
}

func writeBoolLine(w *bufio.Writer, v bool) {
	if v {
		w.WriteString("1\n")
	} else {
		w.WriteString("0\n")
	}
}
