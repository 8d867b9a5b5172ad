package syntax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"treecheck/internal/engine/grammar"
)

func mustGrammar(t *testing.T, tag string) *grammar.Loader {
	t.Helper()
	loader, err := grammar.NewLoader(nil)
	require.NoError(t, err)
	_, err = loader.Resolve(tag)
	require.NoError(t, err)
	return loader
}

func TestNormalize_SimpleC(t *testing.T) {
	loader := mustGrammar(t, "c")
	lang, err := loader.Resolve("c")
	require.NoError(t, err)

	source := []byte("int add(int a, int b) {\n    return a + b;\n}\n")
	root, err := Normalize(lang, source)
	require.NoError(t, err)

	assert.Equal(t, "translation_unit", root.Kind)
	require.Equal(t, 1, root.ChildCount())
	assert.Equal(t, "function_definition", root.Children[0].Kind)
	assert.False(t, root.HasErrorNode())

	// Spans are preserved exactly: root covers the whole input.
	assert.Equal(t, uint(0), root.StartByte)
	assert.Equal(t, uint(len(source)), root.EndByte)
}

func TestNormalize_TopLevelDefinitions(t *testing.T) {
	loader := mustGrammar(t, "c")
	lang, err := loader.Resolve("c")
	require.NoError(t, err)

	source := []byte(`
struct Point { int x; int y; };
union Data { int i; float f; };
enum Status { STATUS_OK, STATUS_ERROR };
int add(int a, int b) { return a + b; }
`)
	root, err := Normalize(lang, source)
	require.NoError(t, err)

	kinds := make([]string, 0, root.ChildCount())
	for _, child := range root.Children {
		kinds = append(kinds, child.Kind)
	}
	assert.Contains(t, kinds, "struct_specifier")
	assert.Contains(t, kinds, "union_specifier")
	assert.Contains(t, kinds, "enum_specifier")
	assert.Contains(t, kinds, "function_definition")
}

func TestNormalize_ChildSpanInvariant(t *testing.T) {
	loader := mustGrammar(t, "cpp")
	lang, err := loader.Resolve("cpp")
	require.NoError(t, err)

	source := []byte(`
namespace geometry {
class Point {
public:
    int x;
    int y;
};
}
template<typename T>
T add(T a, T b) { return a + b; }
`)
	root, err := Normalize(lang, source)
	require.NoError(t, err)

	var check func(n *Node)
	check = func(n *Node) {
		var prevStart uint
		for i, child := range n.Children {
			assert.GreaterOrEqual(t, child.StartByte, n.StartByte, "child starts before parent")
			assert.LessOrEqual(t, child.EndByte, n.EndByte, "child ends after parent")
			if i > 0 {
				assert.Greater(t, child.StartByte, prevStart, "children not strictly ordered")
			}
			prevStart = child.StartByte
			check(child)
		}
	}
	check(root)

	found := false
	root.Walk(func(n *Node) bool {
		if n.Kind == "namespace_definition" {
			found = true
		}
		return true
	})
	assert.True(t, found, "expected a namespace_definition node")
}

func TestNormalize_ErrorRecoveryTree(t *testing.T) {
	loader := mustGrammar(t, "c")
	lang, err := loader.Resolve("c")
	require.NoError(t, err)

	// Unterminated struct: the grammar recovers but marks the damage.
	root, err := Normalize(lang, []byte("struct Point { int x;"))
	require.NoError(t, err)
	assert.True(t, root.HasErrorNode())
}

func TestNode_Text(t *testing.T) {
	loader := mustGrammar(t, "c")
	lang, err := loader.Resolve("c")
	require.NoError(t, err)

	source := []byte("int main(void) { return 0; }")
	root, err := Normalize(lang, source)
	require.NoError(t, err)

	require.Equal(t, 1, root.ChildCount())
	assert.Equal(t, string(source), root.Children[0].Text(source))
	assert.Equal(t, "[0,28)", root.Children[0].Span())
}
