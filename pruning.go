package entree

import (
	"math"
	"sort"

	"github.com/quadrivio/entree/value"
)

/*
pruneTree replaces subtrees whose pessimistic error estimate is no
better than predicting their root's single leaf value, testing the
deepest split nodes first so surviving splits are judged against already
pruned children. Categorical subtrees whose leaves all predict the same
level are replaced outright.
*/
func pruneTree(root *treeNode, targetType value.Type) {
	if targetType == value.Categorical {
		updateBranchCorrectCounts(root)
	} else {
		updateBranchSums(root)
	}

	nodes := branchNodes(root, 0, nil)
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].depth > nodes[j].depth
	})

	for _, entry := range nodes {
		node := entry.node
		var replace bool
		if targetType == value.Categorical {
			replace = replaceableCategoricalSubtree(node)
		} else {
			replace = replaceableNumericSubtree(node)
		}
		if replace {
			node.lessOrEqual = nil
			node.greaterOrNot = nil
			node.splitColIndex = value.NoIndex
		}
	}
}

// updateBranchCorrectCounts rewrites the correct count of every split
// node as the sum over the leaves below it, post-order.
func updateBranchCorrectCounts(node *treeNode) int {
	if node.lessOrEqual == nil {
		return node.branchCorrectCount
	}
	node.branchCorrectCount = updateBranchCorrectCounts(node.lessOrEqual) +
		updateBranchCorrectCounts(node.greaterOrNot)
	return node.branchCorrectCount
}

// updateBranchSums rewrites the residual sum of squares of every split
// node as the sum over the leaves below it, post-order.
func updateBranchSums(node *treeNode) float64 {
	if node.lessOrEqual == nil {
		return node.branchSum2
	}
	node.branchSum2 = updateBranchSums(node.lessOrEqual) +
		updateBranchSums(node.greaterOrNot)
	return node.branchSum2
}

// depthNode records how deep a split node sits, the root at zero.
type depthNode struct {
	depth int
	node  *treeNode
}

func branchNodes(node *treeNode, depth int, nodes []depthNode) []depthNode {
	if node.lessOrEqual == nil {
		return nodes
	}
	nodes = append(nodes, depthNode{depth: depth, node: node})
	nodes = branchNodes(node.lessOrEqual, depth+1, nodes)
	return branchNodes(node.greaterOrNot, depth+1, nodes)
}

// replaceableCategoricalSubtree reports whether node should become a
// leaf: either its own pessimistic error estimate beats the weighted
// estimate of its children, or every leaf below it predicts the same
// level anyway.
func replaceableCategoricalSubtree(node *treeNode) bool {
	nodeCount := node.leafLessOrEqualCount + node.leafGreaterOrNotCount
	nodeEstimate := pessimisticErrorEstimate(node.leafLessOrEqualCount, nodeCount)

	childrenEstimate := 0.0
	lessCount := node.lessOrEqual.leafLessOrEqualCount + node.lessOrEqual.leafGreaterOrNotCount
	if lessCount > 0 {
		childrenEstimate += pessimisticErrorEstimate(node.lessOrEqual.branchCorrectCount, lessCount) *
			float64(lessCount) / float64(nodeCount)
	}
	greaterCount := node.greaterOrNot.leafLessOrEqualCount + node.greaterOrNot.leafGreaterOrNotCount
	if greaterCount > 0 {
		childrenEstimate += pessimisticErrorEstimate(node.greaterOrNot.branchCorrectCount, greaterCount) *
			float64(greaterCount) / float64(nodeCount)
	}

	return nodeEstimate < childrenEstimate || sameLevelForAllLeaves(node) != value.NoIndex
}

// replaceableNumericSubtree reports whether node should become a leaf,
// comparing inflated root-mean-square error estimates. A NaN estimate
// from an empty or single-row side fails the comparison and keeps the
// subtree.
func replaceableNumericSubtree(node *treeNode) bool {
	nodeCount := node.leafLessOrEqualCount + node.leafGreaterOrNotCount
	lessCount := node.lessOrEqual.leafLessOrEqualCount + node.lessOrEqual.leafGreaterOrNotCount
	greaterCount := node.greaterOrNot.leafLessOrEqualCount + node.greaterOrNot.leafGreaterOrNotCount

	nodeEstimate := errorEstimateRMS(node.branchSum2, nodeCount)
	childrenEstimate := errorEstimateRMS(node.lessOrEqual.branchSum2, lessCount)*float64(lessCount)/float64(nodeCount) +
		errorEstimateRMS(node.greaterOrNot.branchSum2, greaterCount)*float64(greaterCount)/float64(nodeCount)

	return nodeEstimate < childrenEstimate
}

// pessimisticErrorEstimate returns an upper confidence bound, at z =
// 0.69, on the true error rate of a leaf that classifies correct of
// total rows correctly.
func pessimisticErrorEstimate(correct, total int) float64 {
	const z = 0.69
	n := float64(total)
	f := (n - float64(correct)) / n
	return (f + z*z/(2*n) + z*math.Sqrt(f/n-f*f/n+z*z/(4*n*n))) / (1 + z*z/n)
}

// errorEstimateRMS returns the root-mean-square error of a leaf holding
// count rows with residual sum of squares sum2, inflated by
// (count+1)/(count-1) so small leaves score worse.
func errorEstimateRMS(sum2 float64, count int) float64 {
	n := float64(count)
	return math.Sqrt(sum2/n) * (n + 1) / (n - 1)
}

// sameLevelForAllLeaves returns the level every leaf below node
// predicts, or NoIndex when they disagree.
func sameLevelForAllLeaves(node *treeNode) int {
	if node.lessOrEqual == nil {
		return node.leafValue.Index
	}
	lessLevel := sameLevelForAllLeaves(node.lessOrEqual)
	if lessLevel == value.NoIndex {
		return value.NoIndex
	}
	greaterLevel := sameLevelForAllLeaves(node.greaterOrNot)
	if greaterLevel != lessLevel {
		return value.NoIndex
	}
	return lessLevel
}
