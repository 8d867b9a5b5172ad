package match

import (
	"fmt"
	"strings"
)

type MismatchKind string

const (
	MismatchKindMismatch      MismatchKind = "kind_mismatch"
	MismatchChildCount        MismatchKind = "child_count"
	MismatchMissingChild      MismatchKind = "missing_child"
	MismatchMultiset          MismatchKind = "multiset_mismatch"
	MismatchMissingDescendant MismatchKind = "missing_descendant"
	MismatchParseError        MismatchKind = "parse_error"

	// Infrastructure failures recorded by the runner, not the matcher.
	MismatchUnknownLanguage MismatchKind = "unknown_language"
	MismatchAdapterFailure  MismatchKind = "adapter_failure"
	MismatchTimeout         MismatchKind = "timeout"
)

// Mismatch is a single point of divergence between the actual tree and the
// expectation. Path holds child indices from the root; Expected and Actual
// are human-readable descriptions of both sides.
type Mismatch struct {
	Kind      MismatchKind `json:"kind"`
	Path      []int        `json:"path"`
	Expected  string       `json:"expected"`
	Actual    string       `json:"actual"`
	StartByte uint         `json:"start_byte"`
	EndByte   uint         `json:"end_byte"`
	Row       uint         `json:"row"`
	Column    uint         `json:"column"`
}

// String renders the mismatch with a dotted child-index path, e.g.
// "root.children[2].children[0]: expected kind 'struct_specifier', got
// 'union_specifier'".
func (m Mismatch) String() string {
	return fmt.Sprintf("%s: expected %s, got %s", PathString(m.Path), m.Expected, m.Actual)
}

// Verdict is the outcome for a single fixture. Pass iff no mismatches were
// recorded. Omitted counts mismatches dropped by the enumeration cap; it is
// always surfaced, never silent.
type Verdict struct {
	Mismatches []Mismatch `json:"mismatches,omitempty"`
	Omitted    int        `json:"omitted,omitempty"`
}

func (v Verdict) Pass() bool {
	return len(v.Mismatches) == 0 && v.Omitted == 0
}

// MismatchCount returns the total number of divergences, including omitted
// ones.
func (v Verdict) MismatchCount() int {
	return len(v.Mismatches) + v.Omitted
}

// FailVerdict builds a single-mismatch verdict at the tree root. Used for
// per-fixture infrastructure failures (unknown language, adapter failure,
// timeout) that the runner folds into the report.
func FailVerdict(kind MismatchKind, expected, actual string) Verdict {
	return Verdict{Mismatches: []Mismatch{{
		Kind:     kind,
		Expected: expected,
		Actual:   actual,
	}}}
}

// PathString renders a child-index path rooted at "root".
func PathString(path []int) string {
	var b strings.Builder
	b.WriteString("root")
	for _, idx := range path {
		fmt.Fprintf(&b, ".children[%d]", idx)
	}
	return b.String()
}
