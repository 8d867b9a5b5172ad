package syntax

import "fmt"

// Node is the language-agnostic tree representation every grammar output is
// normalized into. Children are exclusively owned by their parent; the tree
// is a strict rooted forest with no sharing.
type Node struct {
	Kind      string
	StartByte uint
	EndByte   uint
	StartRow  uint
	StartCol  uint
	IsError   bool
	Children  []*Node
}

// ChildCount returns the number of (named) children.
func (n *Node) ChildCount() int {
	return len(n.Children)
}

// Text returns the source slice covered by the node's span.
func (n *Node) Text(source []byte) string {
	if n == nil || n.StartByte > n.EndByte || n.EndByte > uint(len(source)) {
		return ""
	}
	return string(source[n.StartByte:n.EndByte])
}

// Span renders the byte span as "[start,end)".
func (n *Node) Span() string {
	return fmt.Sprintf("[%d,%d)", n.StartByte, n.EndByte)
}

// Walk calls fn for the node and every descendant in depth-first preorder.
// Returning false from fn stops the descent below that node.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, child := range n.Children {
		child.Walk(fn)
	}
}

// HasErrorNode reports whether the node or any descendant is an error node.
func (n *Node) HasErrorNode() bool {
	found := false
	n.Walk(func(node *Node) bool {
		if node.IsError {
			found = true
			return false
		}
		return true
	})
	return found
}
