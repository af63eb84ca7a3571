package model

import (
	"github.com/quadrivio/entree/value"
)

/*
CompactTree is the packed form of a trained decision tree: parallel
slices with one entry per node, linked by child indexes, with node 0
as the root.

A node whose LessOrEqualIndex entry is value.NoIndex is a leaf, and its
Value entry holds the predicted target value. Any other node splits the
rows on the column its SplitColIndex entry points to within the
ensemble's selected columns: rows less than or equal to the node's
Value entry (or naming the same category) continue at LessOrEqualIndex,
the rest at GreaterOrNotIndex, and rows with an NA continue at
LessOrEqualIndex when the ToLessOrEqualIfNA entry is set.
*/
type CompactTree struct {
	SplitColIndex     []int
	LessOrEqualIndex  []int
	GreaterOrNotIndex []int
	ToLessOrEqualIfNA []bool
	Value             []value.Value
}

// NumNodes returns the number of nodes of the tree.
func (t *CompactTree) NumNodes() int {
	return len(t.SplitColIndex)
}
