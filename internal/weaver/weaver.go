// Package weaver extracts import-like references from file content using
// per-language pattern rules, producing candidate dependency-graph edges.
//
// Extraction is heuristic and line-based: multi-line or aliased imports are
// missed, which is accepted. Adding support for a new language means adding a
// matcher, not subclassing anything.
package weaver

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Language tags understood by the weaver.
const (
	LangPython     = "python"
	LangJavaScript = "js"
	LangTypeScript = "ts"
	LangTSX        = "tsx"
)

// languageMatchers holds one extraction rule per language. The Python rule is
// anchored at the start of a line; the JavaScript-family rule searches
// anywhere in it.
var languageMatchers = map[string]*regexp.Regexp{
	LangPython:     regexp.MustCompile(`^\s*(?:from|import)\s+([\w.]+)`),
	LangJavaScript: regexp.MustCompile(`(?:import\s+.*?from\s+['"]|require\(['"])([./\w\-_]+)['"]`),
}

func init() {
	// The TypeScript family shares the JavaScript rule.
	languageMatchers[LangTypeScript] = languageMatchers[LangJavaScript]
	languageMatchers[LangTSX] = languageMatchers[LangJavaScript]
}

// Weaver builds candidate graph edges from source content.
type Weaver struct{}

// New creates a Weaver.
func New() *Weaver {
	return &Weaver{}
}

// Extract returns the deduplicated, order-preserving list of module names
// referenced by content. Unknown languages yield an empty list, not an error.
func (w *Weaver) Extract(content, language string) []string {
	pattern, ok := languageMatchers[language]
	if !ok {
		return nil
	}

	var deps []string
	seen := make(map[string]struct{})

	for _, line := range strings.Split(content, "\n") {
		groups := pattern.FindStringSubmatch(line)
		if groups == nil {
			continue
		}

		dep := normalize(groups[1])
		if dep == "" {
			continue
		}
		if _, dup := seen[dep]; dup {
			continue
		}
		seen[dep] = struct{}{}
		deps = append(deps, dep)
	}

	return deps
}

// normalize reduces a raw captured path to a bare module name: the last
// dot segment, then the last slash segment.
func normalize(raw string) string {
	if i := strings.LastIndex(raw, "."); i >= 0 {
		raw = raw[i+1:]
	}
	if i := strings.LastIndex(raw, "/"); i >= 0 {
		raw = raw[i+1:]
	}
	return raw
}

// LanguageForPath maps a file path to a language tag by extension, or ""
// when the weaver has no rule for it.
func LanguageForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".py":
		return LangPython
	case ".js", ".jsx", ".mjs":
		return LangJavaScript
	case ".ts":
		return LangTypeScript
	case ".tsx":
		return LangTSX
	default:
		return ""
	}
}
