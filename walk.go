package elmtest

import "iter"

// WalkTree yields root and then every descendant in depth-first pre-order:
// each child subtree is finished before its next sibling starts. The
// sequence can be ranged over any number of times and never mutates the
// tree.
func WalkTree[T any](root T, children func(T) []T) iter.Seq[T] {
	return func(yield func(T) bool) {
		walkTree(root, children, yield)
	}
}

func walkTree[T any](node T, children func(T) []T, yield func(T) bool) bool {
	if !yield(node) {
		return false
	}

	for _, child := range children(node) {
		if !walkTree(child, children, yield) {
			return false
		}
	}

	return true
}

// Walk yields every declaration reachable from node, node first.
func Walk(node Info) iter.Seq[Info] {
	return WalkTree(node, Children)
}
