package entree

import (
	"github.com/quadrivio/entree/dataset"
	"github.com/quadrivio/entree/model"
	"github.com/quadrivio/entree/value"
)

// treeNode is a node of a tree under construction. Leaves carry a
// prediction in leafValue; nodes that have been split carry the split in
// splitValue and splitColIndex, which indexes the trained columns rather
// than the dataset. The leaf counts and residual sum of squares are kept
// on every node so splits can be rolled back and subtrees pruned.
type treeNode struct {
	parent       *treeNode
	lessOrEqual  *treeNode
	greaterOrNot *treeNode

	splitColIndex     int
	splitValue        value.Value
	leafValue         value.Value
	toLessOrEqualIfNA bool
	rows              *dataset.Selection

	leafLessOrEqualCount  int
	leafGreaterOrNotCount int
	branchCorrectCount    int
	branchSum2            float64
}

// treeBuilder grows one tree at a time over a fixed dataset. The sorted
// tables, imputed values and column selection are shared across trees;
// subset, nodesCreated and maxDepthUsed reset with each tree.
type treeBuilder struct {
	ds            *dataset.Dataset
	targetColumn  int
	selectColumns []int
	selectRows    *dataset.Selection
	tables        [][]int
	imputed       []value.Value
	opts          TrainOptions

	subset       []int
	nodesCreated int
	maxDepthUsed int
}

func (b *treeBuilder) targetType() value.Type {
	return b.ds.Types[b.targetColumn]
}

/*
growTree builds one tree from the columns named by subset, which indexes
the builder's selectColumns. It returns the tree in compact form along
with the depth it reached, counting a lone root as depth one.
*/
func (b *treeBuilder) growTree(subset []int) (*model.CompactTree, int, error) {
	target := b.ds.Columns[b.targetColumn]
	root := &treeNode{
		splitColIndex: value.NoIndex,
		splitValue:    value.NA(),
		rows:          b.selectRows,
	}
	if b.targetType() == value.Categorical {
		root.leafValue = dataset.Mode(target, b.selectRows, b.ds.Categories[b.targetColumn])
		for _, row := range b.selectRows.Indexes() {
			if target[row].Index == root.leafValue.Index {
				root.leafLessOrEqualCount++
				root.branchCorrectCount++
			} else {
				root.leafGreaterOrNotCount++
			}
		}
	} else {
		root.leafValue = dataset.Mean(target, b.selectRows)
		for _, row := range b.selectRows.Indexes() {
			delta := target[row].Float - root.leafValue.Float
			root.branchSum2 += delta * delta
			if target[row].Float <= root.leafValue.Float {
				root.leafLessOrEqualCount++
			} else {
				root.leafGreaterOrNotCount++
			}
		}
	}

	b.subset = subset
	b.nodesCreated = 0
	b.maxDepthUsed = 1
	if err := b.improveSubtree(root, 1); err != nil {
		return nil, 0, err
	}
	if b.opts.Prune {
		pruneTree(root, b.targetType())
	}
	return compactTree(root), b.maxDepthUsed, nil
}

// improveSubtree splits the leaf at node when doing so lowers impurity
// enough, then recurses into the new children. Depth counts the root as
// one; splitting stops at the depth and node caps.
func (b *treeBuilder) improveSubtree(node *treeNode, depth int) error {
	if depth >= b.opts.MaxDepth || (b.opts.MaxNodes > 0 && b.nodesCreated >= b.opts.MaxNodes) {
		return nil
	}
	improved, err := b.improveLeaf(node)
	if err != nil {
		return err
	}
	if !improved {
		return nil
	}
	if depth+1 > b.maxDepthUsed {
		b.maxDepthUsed = depth + 1
	}
	if err := b.improveSubtree(node.lessOrEqual, depth+1); err != nil {
		return err
	}
	return b.improveSubtree(node.greaterOrNot, depth+1)
}

// improveLeaf splits node unless its rows already predict perfectly.
func (b *treeBuilder) improveLeaf(node *treeNode) (bool, error) {
	if b.targetType() == value.Categorical {
		if node.branchCorrectCount == node.leafLessOrEqualCount+node.leafGreaterOrNotCount {
			return false, nil
		}
	} else if node.branchSum2 == 0.0 {
		return false, nil
	}
	return b.improveImperfectLeaf(node)
}

// columnSplit is the best split one subset column offers for a node,
// along with the leaf values its two sides would predict.
type columnSplit struct {
	found        bool
	split        value.Value
	measure      float64
	lessOrEqual  value.Value
	greaterOrNot value.Value
}

/*
improveImperfectLeaf searches every column of the current subset for its
best split of the node's rows, takes the column with the lowest
impurity, and turns the node into a split when the impurity improves on
the unsplit node by at least the configured fraction and both sides
retain the minimum leaf count. It reports whether the node was split.
*/
func (b *treeBuilder) improveImperfectLeaf(node *treeNode) (bool, error) {
	target := b.ds.Columns[b.targetColumn]
	targetType := b.targetType()

	candidates := make([]columnSplit, len(b.subset))
	for siIndex, selectIndex := range b.subset {
		col := b.selectColumns[selectIndex]

		var candidate splitCandidate
		var err error
		if b.ds.Types[col] == value.Categorical {
			candidate, err = bestCategoricalSplit(col, b.targetColumn, b.ds, node.rows, b.tables)
		} else if b.numericSplitAllowed(node, col) {
			candidate, err = bestNumericSplit(col, b.targetColumn, b.ds, node.rows, b.tables)
		} else {
			continue
		}
		if err != nil {
			return false, err
		}
		if candidate.value.NA {
			continue
		}

		lessRows := dataset.NewSelection(node.rows.Size(), false)
		greaterRows := dataset.NewSelection(node.rows.Size(), false)
		column := b.ds.Columns[col]
		for _, row := range node.rows.Indexes() {
			if sendsLessOrEqual(column[row], candidate.value, b.ds.Types[col]) {
				lessRows.Select(row)
			} else {
				greaterRows.Select(row)
			}
		}

		split := columnSplit{found: true, split: candidate.value, measure: candidate.measure}
		if targetType == value.Categorical {
			categories := b.ds.Categories[b.targetColumn]
			split.lessOrEqual = dataset.Mode(target, lessRows, categories)
			split.greaterOrNot = dataset.Mode(target, greaterRows, categories)
		} else {
			split.lessOrEqual = dataset.Mean(target, lessRows)
			split.greaterOrNot = dataset.Mean(target, greaterRows)
		}
		candidates[siIndex] = split
	}

	bestSiIndex := value.NoIndex
	bestColMeasure := 0.0
	for siIndex, candidate := range candidates {
		if !candidate.found {
			continue
		}
		if bestSiIndex == value.NoIndex || candidate.measure < bestColMeasure {
			bestSiIndex = siIndex
			bestColMeasure = candidate.measure
		}
	}
	if bestSiIndex == value.NoIndex {
		return false, nil
	}
	best := candidates[bestSiIndex]
	bestCol := b.selectColumns[b.subset[bestSiIndex]]

	improved := false
	if targetType == value.Categorical {
		leafMeasure := entropyForCounts(targetCounts(target, node.rows, b.ds.Categories[b.targetColumn]))
		improved = bestColMeasure < leafMeasure
	} else {
		leafSum := 0.0
		leafSum2 := 0.0
		leafCount := 0
		for _, row := range node.rows.Indexes() {
			y := target[row].Float
			leafSum += y
			leafSum2 += y * y
			leafCount++
		}
		if leafCount > 0 {
			leafMeasure := stDev(leafCount, leafSum, leafSum2)
			// A categorical split peels off one level at a time, so its
			// improvement counts toward the threshold multiplied by the
			// number of levels.
			factor := 1.0
			if b.ds.Types[bestCol] == value.Categorical {
				factor = float64(b.ds.Categories[bestCol].Count())
			}
			improved = (leafMeasure-bestColMeasure)*factor >= b.opts.MinImprovement*leafMeasure
		}
	}
	if !improved {
		return false, nil
	}
	b.nodesCreated += 2

	lessChild := &treeNode{
		parent:        node,
		splitColIndex: value.NoIndex,
		splitValue:    value.NA(),
		leafValue:     best.lessOrEqual,
		rows:          dataset.NewSelection(node.rows.Size(), false),
	}
	greaterChild := &treeNode{
		parent:        node,
		splitColIndex: value.NoIndex,
		splitValue:    value.NA(),
		leafValue:     best.greaterOrNot,
		rows:          dataset.NewSelection(node.rows.Size(), false),
	}

	column := b.ds.Columns[bestCol]
	for _, row := range node.rows.Indexes() {
		child := greaterChild
		if sendsLessOrEqual(column[row], best.split, b.ds.Types[bestCol]) {
			child = lessChild
		}
		child.rows.Select(row)
		if targetType == value.Categorical {
			if target[row].Index == child.leafValue.Index {
				child.branchCorrectCount++
				child.leafLessOrEqualCount++
			} else {
				child.leafGreaterOrNotCount++
			}
		} else {
			delta := target[row].Float - child.leafValue.Float
			child.branchSum2 += delta * delta
			if target[row].Float <= child.leafValue.Float {
				child.leafLessOrEqualCount++
			} else {
				child.leafGreaterOrNotCount++
			}
		}
	}

	if lessChild.leafLessOrEqualCount+lessChild.leafGreaterOrNotCount < b.opts.MinLeafCount ||
		greaterChild.leafLessOrEqualCount+greaterChild.leafGreaterOrNotCount < b.opts.MinLeafCount {
		return false, nil
	}

	node.splitValue = best.split
	node.splitColIndex = b.subset[bestSiIndex]
	node.lessOrEqual = lessChild
	node.greaterOrNot = greaterChild

	imputedValue := b.imputed[bestCol]
	switch {
	case imputedValue.NA:
		node.toLessOrEqualIfNA = false
	case b.ds.Types[bestCol] == value.Categorical:
		node.toLessOrEqualIfNA = imputedValue.Index == best.split.Index
	default:
		node.toLessOrEqualIfNA = imputedValue.Float <= best.split.Float
	}
	return true, nil
}

// numericSplitAllowed reports whether the path from node to the root has
// split on the numeric column col fewer than the configured maximum
// number of times. A maximum of -1 lifts the limit.
func (b *treeBuilder) numericSplitAllowed(node *treeNode, col int) bool {
	if b.opts.MaxSplitsPerNumericAttribute == -1 {
		return true
	}
	splitCount := 0
	for ancestor := node.parent; ancestor != nil; ancestor = ancestor.parent {
		if ancestor.splitColIndex != value.NoIndex && b.selectColumns[ancestor.splitColIndex] == col {
			splitCount++
		}
	}
	return splitCount < b.opts.MaxSplitsPerNumericAttribute
}

// sendsLessOrEqual reports which side of a split a value falls on:
// equality to the split level for categorical columns, less-or-equal for
// numeric ones.
func sendsLessOrEqual(v, split value.Value, t value.Type) bool {
	if t == value.Categorical {
		return v.Index == split.Index
	}
	return v.Float <= split.Float
}

/*
compactTree flattens a finished tree into the parallel arrays of its
compact form, numbering nodes in preorder with each node followed by its
entire less-or-equal subtree.
*/
func compactTree(root *treeNode) *model.CompactTree {
	numNodes := countTreeNodes(root)
	tree := &model.CompactTree{
		SplitColIndex:     make([]int, numNodes),
		LessOrEqualIndex:  make([]int, numNodes),
		GreaterOrNotIndex: make([]int, numNodes),
		ToLessOrEqualIfNA: make([]bool, numNodes),
		Value:             make([]value.Value, numNodes),
	}
	next := 0
	fillCompactTree(tree, root, &next)
	return tree
}

func fillCompactTree(tree *model.CompactTree, node *treeNode, next *int) int {
	index := *next
	*next = index + 1
	if node.lessOrEqual != nil {
		tree.SplitColIndex[index] = node.splitColIndex
		tree.ToLessOrEqualIfNA[index] = node.toLessOrEqualIfNA
		tree.Value[index] = node.splitValue
		tree.LessOrEqualIndex[index] = fillCompactTree(tree, node.lessOrEqual, next)
		tree.GreaterOrNotIndex[index] = fillCompactTree(tree, node.greaterOrNot, next)
	} else {
		tree.SplitColIndex[index] = value.NoIndex
		tree.LessOrEqualIndex[index] = value.NoIndex
		tree.GreaterOrNotIndex[index] = value.NoIndex
		tree.Value[index] = node.leafValue
	}
	return index
}

func countTreeNodes(node *treeNode) int {
	count := 1
	if node.lessOrEqual != nil {
		count += countTreeNodes(node.lessOrEqual)
		count += countTreeNodes(node.greaterOrNot)
	}
	return count
}
