package pattern

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"treecheck/internal/core/errors"
)

// Suffix is appended to a fixture's file name to locate its expectation
// sibling, e.g. simple-c.c -> simple-c.c.expect.toml.
const Suffix = ".expect.toml"

// File is one decoded expectation document. A nil Root means the fixture
// is parse-only: its verdict depends solely on the absence of error nodes.
type File struct {
	ExpectError bool  `toml:"expect_error"`
	Root        *Node `toml:"root"`
}

// Node is a tree-shaped predicate mirroring the normalized syntax tree.
// An empty Kind matches any node kind.
type Node struct {
	Kind        string  `toml:"kind"`
	MinChildren *int    `toml:"min_children"`
	MaxChildren *int    `toml:"max_children"`
	Unordered   bool    `toml:"unordered"`
	Anywhere    bool    `toml:"anywhere"`
	Children    []*Node `toml:"children"`
}

// PathFor returns the expectation sibling path for a fixture path.
func PathFor(fixturePath string) string {
	return fixturePath + Suffix
}

// Load reads and validates an expectation file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if _, err := toml.Decode(string(data), &f); err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "decode expectation file")
	}

	if err := validate(&f); err != nil {
		return nil, err
	}
	return &f, nil
}

func validate(f *File) error {
	if f.Root == nil {
		return nil
	}
	return validateNode(f.Root, "root")
}

func validateNode(n *Node, at string) error {
	if n.MinChildren != nil && *n.MinChildren < 0 {
		return errors.New(errors.CodeValidationError,
			fmt.Sprintf("%s: min_children must not be negative", at))
	}
	if n.MaxChildren != nil && *n.MaxChildren < 0 {
		return errors.New(errors.CodeValidationError,
			fmt.Sprintf("%s: max_children must not be negative", at))
	}
	if n.MinChildren != nil && n.MaxChildren != nil && *n.MinChildren > *n.MaxChildren {
		return errors.New(errors.CodeValidationError,
			fmt.Sprintf("%s: min_children %d exceeds max_children %d", at, *n.MinChildren, *n.MaxChildren))
	}
	if n.Unordered && n.Anywhere {
		return errors.New(errors.CodeValidationError,
			fmt.Sprintf("%s: unordered and anywhere are mutually exclusive", at))
	}
	for i, child := range n.Children {
		if err := validateNode(child, fmt.Sprintf("%s.children[%d]", at, i)); err != nil {
			return err
		}
	}
	return nil
}
