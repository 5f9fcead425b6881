// Package rule holds the per-language grammar rules the extractor runs
// against a parse tree: which queries capture definitions, references,
// dependency strings and scope-forming nodes, plus the filters that trim
// noise out of a capture set.
package rule

import (
	"fmt"
	"regexp"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_c "github.com/tree-sitter/tree-sitter-c/bindings/go"
	tree_sitter_cpp "github.com/tree-sitter/tree-sitter-cpp/bindings/go"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// LanguageRule is the per-language declarative grammar: four tree-query
// patterns, a nesting filter level and two name filters, per spec.md §4.1.
type LanguageRule struct {
	Name string

	// ExportGrammar captures definition occurrences.
	ExportGrammar string
	// ImportGrammar captures reference occurrences (identifier-like nodes).
	ImportGrammar string
	// DepGrammar captures explicit import paths; may be empty.
	DepGrammar string
	// NamespaceGrammar captures scope-forming nodes (function/class/method bodies).
	NamespaceGrammar string

	// NamespaceFilterLevel: N>0 drops DEFs nested in >=N scope-forming nodes.
	NamespaceFilterLevel int

	Blacklist    map[string]struct{}
	ExcludeRegex *regexp.Regexp
}

func (r *LanguageRule) blacklisted(name string) bool {
	_, ok := r.Blacklist[name]
	return ok
}

// Allowed reports whether a captured name survives the blacklist and the
// exclude regex.
func (r *LanguageRule) Allowed(name string) bool {
	if name == "" {
		return false
	}
	if r.blacklisted(name) {
		return false
	}
	if r.ExcludeRegex != nil && r.ExcludeRegex.MatchString(name) {
		return false
	}
	return true
}

func newBlacklist(names ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(names))
	for _, n := range names {
		m[n] = struct{}{}
	}
	return m
}

// Registry resolves a file extension to a LanguageRule plus its compiled
// tree-sitter grammar.
type Registry struct {
	byExt map[string]entry
}

type entry struct {
	rule *LanguageRule
	lang *sitter.Language
}

// NewRegistry builds the registry for every grammar available in this
// module: go, python, javascript, typescript, rust, c, cpp, java. The
// closed extension set from spec.md §4.1 also names kt, swift, cs;
// these have no grammar wired here (no example in the retrieved
// pack vendors them) and ForExtension reports ok=false for them, which
// the resolver treats identically to an unknown extension.
func NewRegistry() (*Registry, error) {
	reg := &Registry{byExt: make(map[string]entry)}

	langs := []struct {
		exts []string
		lang *sitter.Language
		rule *LanguageRule
	}{
		{[]string{"go"}, sitter.NewLanguage(tree_sitter_go.Language()), goRule()},
		{[]string{"py", "pyi", "pyx"}, sitter.NewLanguage(tree_sitter_python.Language()), pythonRule()},
		{[]string{"js", "jsx"}, sitter.NewLanguage(tree_sitter_javascript.Language()), javascriptRule()},
		{[]string{"ts", "tsx"}, sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()), typescriptRule()},
		{[]string{"rs"}, sitter.NewLanguage(tree_sitter_rust.Language()), rustRule()},
		{[]string{"c", "h"}, sitter.NewLanguage(tree_sitter_c.Language()), cRule()},
		{[]string{"cpp", "hpp", "cc", "cxx"}, sitter.NewLanguage(tree_sitter_cpp.Language()), cppRule()},
		{[]string{"java"}, sitter.NewLanguage(tree_sitter_java.Language()), javaRule()},
	}

	for _, l := range langs {
		for _, ext := range l.exts {
			q := l.rule
			if _, err := sitter.NewQuery(l.lang, q.ExportGrammar); err != nil {
				return nil, fmt.Errorf("rule %s: compile export_grammar: %w", q.Name, err)
			}
			reg.byExt[ext] = entry{rule: q, lang: l.lang}
		}
	}

	return reg, nil
}

// ForExtension resolves a lowercase, dot-free extension (e.g. "go", "tsx")
// to its rule and compiled grammar. ok is false for unsupported or
// unrecognized extensions.
func (r *Registry) ForExtension(ext string) (*LanguageRule, *sitter.Language, bool) {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	e, ok := r.byExt[ext]
	if !ok {
		return nil, nil, false
	}
	return e.rule, e.lang, true
}

func goRule() *LanguageRule {
	return &LanguageRule{
		Name: "go",
		ExportGrammar: `
(function_declaration name: (identifier) @export)
(method_declaration name: (field_identifier) @export)
(type_spec name: (type_identifier) @export)
(const_spec name: (identifier) @export)
(var_spec name: (identifier) @export)
`,
		ImportGrammar: `
(call_expression function: (identifier) @ref)
(call_expression function: (selector_expression field: (field_identifier) @ref))
(selector_expression field: (field_identifier) @ref)
(short_var_declaration left: (expression_list (identifier) @ref))
`,
		DepGrammar: `(import_spec path: (interpreted_string_literal) @dep)`,
		NamespaceGrammar: `
(function_declaration body: (block) @namespace)
(method_declaration body: (block) @namespace)
`,
		NamespaceFilterLevel: 0,
		Blacklist:            newBlacklist("_"),
	}
}

func pythonRule() *LanguageRule {
	return &LanguageRule{
		Name: "python",
		ExportGrammar: `
(function_definition name: (identifier) @export)
(class_definition name: (identifier) @export)
`,
		ImportGrammar: `
(call function: (identifier) @ref)
(call function: (attribute attribute: (identifier) @ref))
(attribute attribute: (identifier) @ref)
`,
		DepGrammar: `
(import_statement name: (dotted_name) @dep)
(import_from_statement module_name: (dotted_name) @dep)
`,
		NamespaceGrammar: `
(function_definition body: (block) @namespace)
(class_definition body: (block) @namespace)
`,
		NamespaceFilterLevel: 0,
		Blacklist:            newBlacklist("self", "cls"),
	}
}

func javascriptRule() *LanguageRule {
	return &LanguageRule{
		Name: "javascript",
		ExportGrammar: `
(function_declaration name: (identifier) @export)
(class_declaration name: (identifier) @export)
(method_definition name: (property_identifier) @export)
(variable_declarator name: (identifier) @export)
`,
		ImportGrammar: `
(call_expression function: (identifier) @ref)
(call_expression function: (member_expression property: (property_identifier) @ref))
(member_expression property: (property_identifier) @ref)
`,
		DepGrammar:       `(import_statement source: (string) @dep)`,
		NamespaceGrammar: `(function_declaration body: (statement_block) @namespace) (method_definition body: (statement_block) @namespace) (class_declaration body: (class_body) @namespace)`,
		Blacklist:        newBlacklist("this"),
	}
}

func typescriptRule() *LanguageRule {
	r := javascriptRule()
	r.Name = "typescript"
	r.ExportGrammar += `
(interface_declaration name: (type_identifier) @export)
(type_alias_declaration name: (type_identifier) @export)
`
	r.NamespaceGrammar += ` (interface_declaration body: (interface_body) @namespace)`
	return r
}

func rustRule() *LanguageRule {
	return &LanguageRule{
		Name: "rust",
		ExportGrammar: `
(function_item name: (identifier) @export)
(struct_item name: (type_identifier) @export)
(enum_item name: (type_identifier) @export)
(trait_item name: (type_identifier) @export)
(impl_item type: (type_identifier) @export)
(mod_item name: (identifier) @export)
`,
		ImportGrammar: `
(call_expression function: (identifier) @ref)
(call_expression function: (field_expression field: (field_identifier) @ref))
(field_expression field: (field_identifier) @ref)
(scoped_identifier name: (identifier) @ref)
`,
		DepGrammar:       `(use_declaration argument: (_) @dep)`,
		NamespaceGrammar: `(function_item body: (block) @namespace) (impl_item body: (declaration_list) @namespace) (trait_item body: (declaration_list) @namespace) (mod_item body: (declaration_list) @namespace)`,
		Blacklist:        newBlacklist("self", "Self"),
	}
}

func cRule() *LanguageRule {
	return &LanguageRule{
		Name: "c",
		ExportGrammar: `
(function_definition declarator: (function_declarator declarator: (identifier) @export))
(struct_specifier name: (type_identifier) @export)
(enum_specifier name: (type_identifier) @export)
`,
		ImportGrammar:    `(call_expression function: (identifier) @ref)`,
		DepGrammar:       `(preproc_include path: (_) @dep)`,
		NamespaceGrammar: `(function_definition body: (compound_statement) @namespace)`,
		Blacklist:        newBlacklist(),
	}
}

func cppRule() *LanguageRule {
	r := cRule()
	r.Name = "cpp"
	r.ExportGrammar += `
(class_specifier name: (type_identifier) @export)
(function_definition declarator: (function_declarator declarator: (field_identifier) @export))
`
	r.ImportGrammar += ` (call_expression function: (field_expression field: (field_identifier) @ref))`
	r.NamespaceGrammar += ` (class_specifier body: (field_declaration_list) @namespace) (namespace_definition body: (declaration_list) @namespace)`
	r.Blacklist = newBlacklist("this")
	return r
}

func javaRule() *LanguageRule {
	return &LanguageRule{
		Name: "java",
		ExportGrammar: `
(class_declaration name: (identifier) @export)
(interface_declaration name: (identifier) @export)
(method_declaration name: (identifier) @export)
(enum_declaration name: (identifier) @export)
`,
		ImportGrammar: `
(method_invocation name: (identifier) @ref)
(field_access field: (identifier) @ref)
`,
		DepGrammar:       `(import_declaration (scoped_identifier) @dep)`,
		NamespaceGrammar: `(class_declaration body: (class_body) @namespace) (method_declaration body: (block) @namespace) (interface_declaration body: (interface_body) @namespace)`,
		NamespaceFilterLevel: 0,
		Blacklist:            newBlacklist("this", "super"),
	}
}
