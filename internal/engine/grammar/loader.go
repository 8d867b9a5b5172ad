package grammar

import (
	"fmt"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_c "github.com/tree-sitter/tree-sitter-c/bindings/go"
	tree_sitter_cpp "github.com/tree-sitter/tree-sitter-cpp/bindings/go"
	tree_sitter_css "github.com/tree-sitter/tree-sitter-css/bindings/go"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_html "github.com/tree-sitter/tree-sitter-html/bindings/go"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"treecheck/internal/core/errors"
	"treecheck/internal/shared/util"
)

// Loader holds the compiled grammar for every enabled language. It is
// populated once at startup and read-only afterwards, so it is shared
// across workers without locking.
type Loader struct {
	languages  map[string]*sitter.Language
	registry   map[string]LanguageSpec
	extensions map[string]string
}

func NewLoader(registry map[string]LanguageSpec) (*Loader, error) {
	if registry == nil {
		var err error
		registry, err = BuildLanguageRegistry(nil)
		if err != nil {
			return nil, err
		}
	}

	l := &Loader{
		languages:  make(map[string]*sitter.Language),
		registry:   cloneLanguageRegistry(registry),
		extensions: make(map[string]string),
	}

	for _, langID := range util.SortedStringKeys(l.registry) {
		spec := l.registry[langID]
		if !spec.Enabled {
			continue
		}
		switch langID {
		case "c":
			l.languages["c"] = sitter.NewLanguage(tree_sitter_c.Language())
		case "cpp":
			l.languages["cpp"] = sitter.NewLanguage(tree_sitter_cpp.Language())
		case "css":
			l.languages["css"] = sitter.NewLanguage(tree_sitter_css.Language())
		case "go":
			l.languages["go"] = sitter.NewLanguage(tree_sitter_go.Language())
		case "html":
			l.languages["html"] = sitter.NewLanguage(tree_sitter_html.Language())
		case "java":
			l.languages["java"] = sitter.NewLanguage(tree_sitter_java.Language())
		case "javascript":
			l.languages["javascript"] = sitter.NewLanguage(tree_sitter_javascript.Language())
		case "python":
			l.languages["python"] = sitter.NewLanguage(tree_sitter_python.Language())
		case "rust":
			l.languages["rust"] = sitter.NewLanguage(tree_sitter_rust.Language())
		case "tsx":
			l.languages["tsx"] = sitter.NewLanguage(tree_sitter_typescript.LanguageTSX())
		case "typescript":
			l.languages["typescript"] = sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript())
		default:
			return nil, fmt.Errorf("language %q is enabled but no grammar binding is compiled in", langID)
		}
		for _, ext := range spec.Extensions {
			l.extensions[strings.ToLower(ext)] = langID
		}
	}

	return l, nil
}

// Resolve returns the compiled grammar for a language tag.
func (l *Loader) Resolve(languageTag string) (*sitter.Language, error) {
	lang, ok := l.languages[languageTag]
	if !ok {
		return nil, errors.New(errors.CodeUnknownLanguage,
			fmt.Sprintf("no grammar registered for language: %s", languageTag))
	}
	return lang, nil
}

// LanguageForExtension maps a file extension (with leading dot) to a
// language tag. The second result is false for unmapped extensions.
func (l *Loader) LanguageForExtension(ext string) (string, bool) {
	lang, ok := l.extensions[strings.ToLower(ext)]
	return lang, ok
}

func (l *Loader) LanguageRegistry() map[string]LanguageSpec {
	return cloneLanguageRegistry(l.registry)
}

func (l *Loader) SupportedExtensions() []string {
	return util.SortedStringKeys(l.extensions)
}

func (l *Loader) SupportedLanguages() []string {
	return util.SortedStringKeys(l.languages)
}
