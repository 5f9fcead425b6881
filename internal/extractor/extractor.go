// Package extractor runs a grammar-driven query engine over a parse tree
// and assembles fully-qualified symbol names by walking enclosing scopes,
// per spec.md §4.2.
package extractor

import (
	"strconv"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/73ai/gossiphs/internal/apperr"
	"github.com/73ai/gossiphs/internal/rule"
)

// Extract parses src with lang and runs r's export/import/dep queries in
// order, returning the surviving symbols for path. Parse failure or query
// failure yields an empty slice and an *apperr.Error tagged
// KindExtraction; no panic escapes.
func Extract(r *rule.LanguageRule, lang *sitter.Language, path string, src []byte) ([]Symbol, error) {
	parser := sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(lang); err != nil {
		return nil, apperr.NewFile(apperr.KindExtraction, "set language", path, err)
	}

	tree := parser.Parse(src, nil)
	if tree == nil {
		return nil, apperr.NewFile(apperr.KindExtraction, "parse failed", path, nil)
	}
	defer tree.Close()

	root := tree.RootNode()

	defs, err := runCaptureQuery(r.ExportGrammar, lang, root, src, path, r, DEF)
	if err != nil {
		return nil, err
	}
	refsAll, err := runCaptureQuery(r.ImportGrammar, lang, root, src, path, r, REF)
	if err != nil {
		return nil, err
	}

	taken := make(map[string]struct{}, len(defs))
	for _, d := range defs {
		taken[occurrenceKey(d)] = struct{}{}
	}
	var refs []Symbol
	for _, ref := range refsAll {
		if _, dup := taken[occurrenceKey(ref)]; dup {
			continue
		}
		refs = append(refs, ref)
	}

	var imports []Symbol
	if strings.TrimSpace(r.DepGrammar) != "" {
		imports, err = runDepQuery(r.DepGrammar, lang, root, src, path)
		if err != nil {
			return nil, err
		}
	}

	out := make([]Symbol, 0, len(defs)+len(refs)+len(imports))
	out = append(out, defs...)
	out = append(out, refs...)
	out = append(out, imports...)

	if r.NamespaceFilterLevel > 0 && strings.TrimSpace(r.NamespaceGrammar) != "" {
		namespaces, err := runRangeQuery(r.NamespaceGrammar, lang, root, src)
		if err != nil {
			return nil, err
		}
		out = filterByNamespaceDepth(out, namespaces, r.NamespaceFilterLevel)
	}

	return out, nil
}

// occurrenceKey identifies a node occurrence by file/name/position,
// independent of DEF/REF kind: a capture at a definition's own node is
// never also counted as a reference to it.
func occurrenceKey(s Symbol) string {
	return s.File + "\x00" + s.Name + "\x00" + strconv.FormatUint(uint64(s.Range.StartByte), 10)
}

func compile(lang *sitter.Language, src string, path string) (*sitter.Query, error) {
	q, qerr := sitter.NewQuery(lang, src)
	if qerr != nil {
		return nil, apperr.NewFile(apperr.KindExtraction, "compile query: "+qerr.Message, path, nil)
	}
	return q, nil
}

// runCaptureQuery runs query, turning each capture into a Symbol of kind
// with FQN assembled by walking ancestors of the captured node.
func runCaptureQuery(querySrc string, lang *sitter.Language, root *sitter.Node, src []byte, path string, r *rule.LanguageRule, kind Kind) ([]Symbol, error) {
	if strings.TrimSpace(querySrc) == "" {
		return nil, nil
	}
	q, err := compile(lang, querySrc, path)
	if err != nil {
		return nil, err
	}
	defer q.Close()

	cursor := sitter.NewQueryCursor()
	defer cursor.Close()

	var out []Symbol
	matches := cursor.Matches(q, root, src)
	for m := matches.Next(); m != nil; m = matches.Next() {
		for _, c := range m.Captures {
			node := c.Node
			name := node.Utf8Text(src)
			if !r.Allowed(name) {
				continue
			}
			fqn := assembleFQN(&node, name, src)
			out = append(out, Symbol{
				ID:    NewID(path, fqn, kind, node.StartByte()),
				File:  path,
				Name:  fqn,
				Kind:  kind,
				Range: rangeOf(&node),
			})
		}
	}
	return out, nil
}

// runDepQuery runs the dep grammar, emitting IMPORT symbols with quotes
// and angle brackets stripped from the captured path text.
func runDepQuery(querySrc string, lang *sitter.Language, root *sitter.Node, src []byte, path string) ([]Symbol, error) {
	q, err := compile(lang, querySrc, path)
	if err != nil {
		return nil, err
	}
	defer q.Close()

	cursor := sitter.NewQueryCursor()
	defer cursor.Close()

	var out []Symbol
	matches := cursor.Matches(q, root, src)
	for m := matches.Next(); m != nil; m = matches.Next() {
		for _, c := range m.Captures {
			node := c.Node
			text := stripImportDelimiters(node.Utf8Text(src))
			if text == "" {
				continue
			}
			out = append(out, Symbol{
				ID:    NewID(path, text, IMPORT, node.StartByte()),
				File:  path,
				Name:  text,
				Kind:  IMPORT,
				Range: rangeOf(&node),
			})
		}
	}
	return out, nil
}

func stripImportDelimiters(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'`)
	s = strings.TrimPrefix(s, "<")
	s = strings.TrimSuffix(s, ">")
	return s
}

// namespaceRange is a scope-forming node's byte span and start line, used
// by the post-extraction NAMESPACE pass.
type namespaceRange struct {
	startByte, endByte uint
	startRow           uint
}

func runRangeQuery(querySrc string, lang *sitter.Language, root *sitter.Node, src []byte) ([]namespaceRange, error) {
	q, qerr := sitter.NewQuery(lang, querySrc)
	if qerr != nil {
		return nil, apperr.New(apperr.KindExtraction, "compile namespace_grammar: "+qerr.Message, nil)
	}
	defer q.Close()

	cursor := sitter.NewQueryCursor()
	defer cursor.Close()

	var out []namespaceRange
	matches := cursor.Matches(q, root, src)
	for m := matches.Next(); m != nil; m = matches.Next() {
		for _, c := range m.Captures {
			node := c.Node
			out = append(out, namespaceRange{
				startByte: node.StartByte(),
				endByte:   node.EndByte(),
				startRow:  node.StartPosition().Row,
			})
		}
	}
	return out, nil
}

// filterByNamespaceDepth drops DEF symbols nested in >= level scope-forming
// ranges, then removes the NAMESPACE markers themselves (there are none in
// the output slice — namespace ranges are never appended as Symbols here,
// matching spec.md's "NAMESPACE symbols never appear in the final graph").
func filterByNamespaceDepth(symbols []Symbol, namespaces []namespaceRange, level int) []Symbol {
	out := make([]Symbol, 0, len(symbols))
	for _, s := range symbols {
		if s.Kind != DEF {
			out = append(out, s)
			continue
		}
		depth := 0
		for _, ns := range namespaces {
			if ns.startByte <= s.Range.StartByte && s.Range.StartByte < ns.endByte {
				depth++
			}
		}
		if depth >= level {
			continue
		}
		out = append(out, s)
	}
	return out
}

func rangeOf(n *sitter.Node) Range {
	start, end := n.StartPosition(), n.EndPosition()
	return Range{
		StartByte: n.StartByte(),
		EndByte:   n.EndByte(),
		StartRow:  start.Row,
		StartCol:  start.Column,
		EndRow:    end.Row,
		EndCol:    end.Column,
	}
}
