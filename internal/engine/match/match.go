package match

import (
	"fmt"
	"sort"

	"treecheck/internal/engine/pattern"
	"treecheck/internal/engine/syntax"
)

const DefaultMaxMismatches = 100

// Matcher compares normalized trees against expectation patterns. It holds
// no per-fixture state and is safe to share across workers.
type Matcher struct {
	maxMismatches int
}

func NewMatcher(maxMismatches int) *Matcher {
	if maxMismatches <= 0 {
		maxMismatches = DefaultMaxMismatches
	}
	return &Matcher{maxMismatches: maxMismatches}
}

// Match compares root against the expectation. A nil expectation makes the
// fixture parse-only: the verdict depends solely on the absence of error
// nodes.
func (m *Matcher) Match(root *syntax.Node, expect *pattern.File) Verdict {
	c := &collector{cap: m.maxMismatches}

	expectError := expect != nil && expect.ExpectError
	if !expectError {
		m.scanErrorNodes(root, nil, c)
	}

	if expect != nil && expect.Root != nil {
		m.structural(root, expect.Root, nil, c)
	}

	return c.verdict()
}

// scanErrorNodes records one parse_error mismatch per error subtree root.
// Children of an error node are recovery artifacts and are not descended
// into.
func (m *Matcher) scanErrorNodes(node *syntax.Node, path []int, c *collector) {
	if node == nil {
		return
	}
	if node.IsError {
		c.add(Mismatch{
			Kind:      MismatchParseError,
			Path:      clonePath(path),
			Expected:  "well-formed syntax",
			Actual:    fmt.Sprintf("error node %q at %s", node.Kind, node.Span()),
			StartByte: node.StartByte,
			EndByte:   node.EndByte,
			Row:       node.StartRow,
			Column:    node.StartCol,
		})
		return
	}
	for i, child := range node.Children {
		m.scanErrorNodes(child, append(path, i), c)
	}
}

func (m *Matcher) structural(node *syntax.Node, pat *pattern.Node, path []int, c *collector) {
	// Wrong kind: no point comparing children of a wrong-kind node.
	if pat.Kind != "" && pat.Kind != node.Kind {
		c.add(Mismatch{
			Kind:      MismatchKindMismatch,
			Path:      clonePath(path),
			Expected:  fmt.Sprintf("kind '%s'", pat.Kind),
			Actual:    fmt.Sprintf("'%s'", node.Kind),
			StartByte: node.StartByte,
			EndByte:   node.EndByte,
			Row:       node.StartRow,
			Column:    node.StartCol,
		})
		return
	}

	n := node.ChildCount()
	if pat.MinChildren != nil && n < *pat.MinChildren {
		c.add(m.childCountMismatch(node, path, fmt.Sprintf("at least %d children", *pat.MinChildren), n))
	}
	if pat.MaxChildren != nil && n > *pat.MaxChildren {
		c.add(m.childCountMismatch(node, path, fmt.Sprintf("at most %d children", *pat.MaxChildren), n))
	}

	if pat.Unordered {
		m.multiset(node, pat, path, c)
		return
	}

	positional := make([]*pattern.Node, 0, len(pat.Children))
	for _, child := range pat.Children {
		if child.Anywhere {
			m.descendant(node, child, path, c)
			continue
		}
		positional = append(positional, child)
	}

	// Pairwise descent up to the shorter side; absent children are still
	// surfaced individually so the report names what is missing.
	for i, pc := range positional {
		if i < n {
			m.structural(node.Children[i], pc, append(path, i), c)
			continue
		}
		c.add(Mismatch{
			Kind:     MismatchMissingChild,
			Path:     append(clonePath(path), i),
			Expected: describePattern(pc),
			Actual:   "absent",
		})
	}
}

// multiset degrades matching to a by-kind count comparison; discrepancies
// are reported as aggregates at the parent, not per position. Pattern
// children with an empty kind act as wildcards and only contribute to the
// total-count check.
func (m *Matcher) multiset(node *syntax.Node, pat *pattern.Node, path []int, c *collector) {
	expected := make(map[string]int)
	for _, child := range pat.Children {
		if child.Kind != "" {
			expected[child.Kind]++
		}
	}

	actual := make(map[string]int)
	for _, child := range node.Children {
		actual[child.Kind]++
	}

	kinds := make([]string, 0, len(expected))
	for kind := range expected {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	for _, kind := range kinds {
		want := expected[kind]
		got := actual[kind]
		if got >= want {
			continue
		}
		c.add(Mismatch{
			Kind:      MismatchMultiset,
			Path:      clonePath(path),
			Expected:  fmt.Sprintf("%d children of kind '%s'", want, kind),
			Actual:    fmt.Sprintf("%d", got),
			StartByte: node.StartByte,
			EndByte:   node.EndByte,
			Row:       node.StartRow,
			Column:    node.StartCol,
		})
	}

	if len(node.Children) < len(pat.Children) {
		c.add(Mismatch{
			Kind:      MismatchMultiset,
			Path:      clonePath(path),
			Expected:  fmt.Sprintf("%d children", len(pat.Children)),
			Actual:    fmt.Sprintf("%d", len(node.Children)),
			StartByte: node.StartByte,
			EndByte:   node.EndByte,
			Row:       node.StartRow,
			Column:    node.StartCol,
		})
	}
}

// descendant satisfies an "anywhere" pattern if a matching subtree exists
// at any depth beneath node. Breadth-first, first match wins; only
// existence matters.
func (m *Matcher) descendant(node *syntax.Node, pat *pattern.Node, path []int, c *collector) {
	probe := *pat
	probe.Anywhere = false

	queue := append([]*syntax.Node(nil), node.Children...)
	for len(queue) > 0 {
		candidate := queue[0]
		queue = queue[1:]

		scratch := &collector{cap: m.maxMismatches}
		m.structural(candidate, &probe, nil, scratch)
		if scratch.verdict().Pass() {
			return
		}
		queue = append(queue, candidate.Children...)
	}

	c.add(Mismatch{
		Kind:      MismatchMissingDescendant,
		Path:      clonePath(path),
		Expected:  fmt.Sprintf("descendant matching %s", describePattern(pat)),
		Actual:    "no matching descendant",
		StartByte: node.StartByte,
		EndByte:   node.EndByte,
		Row:       node.StartRow,
		Column:    node.StartCol,
	})
}

func (m *Matcher) childCountMismatch(node *syntax.Node, path []int, expected string, actual int) Mismatch {
	return Mismatch{
		Kind:      MismatchChildCount,
		Path:      clonePath(path),
		Expected:  expected,
		Actual:    fmt.Sprintf("%d children", actual),
		StartByte: node.StartByte,
		EndByte:   node.EndByte,
		Row:       node.StartRow,
		Column:    node.StartCol,
	}
}

func describePattern(p *pattern.Node) string {
	if p.Kind != "" {
		return fmt.Sprintf("kind '%s'", p.Kind)
	}
	return "any kind"
}

func clonePath(path []int) []int {
	return append([]int(nil), path...)
}

// collector accumulates mismatches up to a cap; overflow is counted, never
// silently dropped.
type collector struct {
	cap        int
	mismatches []Mismatch
	omitted    int
}

func (c *collector) add(m Mismatch) {
	if len(c.mismatches) >= c.cap {
		c.omitted++
		return
	}
	c.mismatches = append(c.mismatches, m)
}

func (c *collector) verdict() Verdict {
	return Verdict{Mismatches: c.mismatches, Omitted: c.omitted}
}
