package syntax

import (
	sitter "github.com/tree-sitter/go-tree-sitter"

	"treecheck/internal/core/errors"
)

// Normalize parses source with the given grammar and converts the native
// tree-sitter tree into the common Node shape. Byte spans are copied
// exactly; trees containing recoverable syntax errors are still returned,
// with IsError set on the offending subtrees.
func Normalize(language *sitter.Language, source []byte) (*Node, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(language); err != nil {
		return nil, errors.Wrap(err, errors.CodeAdapterFailure, "set language")
	}

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, errors.New(errors.CodeParseError, "grammar rejected input")
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, errors.New(errors.CodeParseError, "parse produced no root node")
	}

	return convert(root), nil
}

// convert maps a native node to a Node, keeping only named children. An
// anonymous child that is itself an error or a missing token taints the
// parent, so error recovery is never hidden by the named-only view.
func convert(n *sitter.Node) *Node {
	pos := n.StartPosition()
	out := &Node{
		Kind:      n.Kind(),
		StartByte: n.StartByte(),
		EndByte:   n.EndByte(),
		StartRow:  pos.Row,
		StartCol:  pos.Column,
		IsError:   n.IsError() || n.IsMissing(),
	}

	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		if child == nil {
			continue
		}
		if !child.IsNamed() {
			if child.IsError() || child.IsMissing() {
				out.IsError = true
			}
			continue
		}
		out.Children = append(out.Children, convert(child))
	}

	return out
}
