package extractor

import (
	"strings"
	"unicode/utf8"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// namedFieldCandidates are the parent fields spec.md §4.2 names as
// scope-forming when their value isn't the captured node itself.
var namedFieldCandidates = []string{"receiver", "object", "operand", "trait", "namespace", "scope"}

// primaryNameFields identify a node's own name child, used to tell a
// definition's own declarator apart from an enclosing scope's name.
var primaryNameFields = []string{"name", "identifier", "declarator"}

var scopeKeywords = []string{
	"class", "function", "method", "namespace", "module",
	"interface", "struct", "enum", "object", "trait", "impl",
}

func kindHasScopeKeyword(kind string) bool {
	for _, kw := range scopeKeywords {
		if strings.Contains(kind, kw) {
			return true
		}
	}
	return false
}

func sameNode(a, b *sitter.Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Kind() == b.Kind()
}

// assembleFQN walks the ancestor chain of node, collecting enclosing scope
// names per the three rules of spec.md §4.2, and returns the dot-joined
// FQN ending in capturedName.
func assembleFQN(node *sitter.Node, capturedName string, src []byte) string {
	var scopes []string

	child := node
	parent := node.Parent()
	for parent != nil {
		if name, ok := scopeName(parent, child, src); ok {
			scopes = append(scopes, name)
		}
		child = parent
		parent = parent.Parent()
	}

	// scopes were collected innermost-first; FQN orders outermost-first.
	for i, j := 0, len(scopes)-1; i < j; i, j = i+1, j-1 {
		scopes[i], scopes[j] = scopes[j], scopes[i]
	}

	scopes = append(scopes, capturedName)
	return strings.Join(dedupAdjacent(scopes), ".")
}

func dedupAdjacent(segs []string) []string {
	out := segs[:0:0]
	for i, s := range segs {
		if i > 0 && s == out[len(out)-1] {
			continue
		}
		out = append(out, s)
	}
	return out
}

// scopeName decides whether parent contributes a scope segment given that
// child is the node we arrived from (either the original capture or an
// intermediate ancestor), and if so returns the cleaned scope text.
func scopeName(parent, child *sitter.Node, src []byte) (string, bool) {
	// Rule 1: named-field rule.
	for _, f := range namedFieldCandidates {
		fn := parent.ChildByFieldName(f)
		if fn != nil && !sameNode(fn, child) {
			if s := scopeText(fn, src); s != "" {
				return s, true
			}
		}
	}

	if !kindHasScopeKeyword(parent.Kind()) {
		return "", false
	}

	// Rule 2: scope-keyword rule — parent is a scope-forming node kind.
	// If child IS the parent's own primary-name child, this parent is the
	// definition site itself, not an enclosing scope: contributes nothing.
	for _, f := range primaryNameFields {
		fn := parent.ChildByFieldName(f)
		if fn != nil && sameNode(fn, child) {
			return "", false
		}
	}
	for _, f := range primaryNameFields {
		fn := parent.ChildByFieldName(f)
		if fn != nil && !sameNode(fn, child) {
			if s := scopeText(fn, src); s != "" {
				return s, true
			}
		}
	}

	// Rule 3: fallback — scan direct children for an identifier-like node.
	for i := uint(0); i < parent.ChildCount(); i++ {
		c := parent.Child(i)
		if c == nil || sameNode(c, child) {
			continue
		}
		if strings.Contains(c.Kind(), "identifier") {
			if s := scopeText(c, src); s != "" {
				return s, true
			}
		}
	}

	return "", false
}

// scopeText resolves a scope-contributing node to its display text. Named
// fields sometimes point at a compound node (a Go receiver's
// parameter_list, a Rust impl's type) rather than a bare identifier, so we
// drill to the last identifier-like leaf in its subtree — which, for a Go
// `(ts *TestStruct)` receiver, lands on the type name rather than the
// receiver variable.
func scopeText(n *sitter.Node, src []byte) string {
	leaf := findNameLeaf(n)
	if leaf == nil {
		leaf = n
	}
	txt := leaf.Utf8Text(src)
	if txt == "" {
		return ""
	}
	txt = strings.TrimSpace(txt)
	txt = strings.TrimPrefix(txt, "*")
	txt = strings.Trim(txt, "()")
	if txt == "self" || txt == "this" || txt == "Self" {
		return ""
	}
	if !utf8.ValidString(txt) {
		return ""
	}
	return txt
}

func findNameLeaf(n *sitter.Node) *sitter.Node {
	switch n.Kind() {
	case "identifier", "type_identifier", "field_identifier", "property_identifier":
		return n
	}
	var last *sitter.Node
	for i := uint(0); i < n.ChildCount(); i++ {
		c := n.Child(i)
		if c == nil {
			continue
		}
		if found := findNameLeaf(c); found != nil {
			last = found
		}
	}
	return last
}
