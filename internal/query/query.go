// Package query implements the stateless read methods of spec.md §4.5 over
// an assembled *symbolgraph.Graph, plus the file_metadata and
// file_min_links/file_max_links additions and the LDJSON relation index
// writer described in SPEC_FULL.md §3.
package query

import (
	"sort"

	"github.com/73ai/gossiphs/internal/extractor"
	"github.com/73ai/gossiphs/internal/history"
	"github.com/73ai/gossiphs/internal/symbolgraph"
)

// Service answers read queries against a built, read-only graph. History
// is optional: when nil, FileMetadata reports zero commits/issues.
type Service struct {
	graph   *symbolgraph.Graph
	history *history.RelationGraph
}

// New returns a Service over g. hist may be nil if commit/issue metadata
// is not needed.
func New(g *symbolgraph.Graph, hist *history.RelationGraph) *Service {
	return &Service{graph: g, history: hist}
}

// Files returns every file in the graph, sorted lexicographically.
func (s *Service) Files() []string {
	files := s.graph.Files()
	sort.Strings(files)
	return files
}

// SymbolWeight pairs a neighbor symbol with the contributed edge weight.
type SymbolWeight struct {
	Symbol extractor.Symbol
	Weight int
}

// RelatedFileContext is one entry of RelatedFiles's result.
type RelatedFileContext struct {
	Name           string
	Score          int
	Defs           []extractor.Symbol
	Refs           []extractor.Symbol
	RelatedSymbols []SymbolWeight
}

type relatedFileAccumulator struct {
	score          int
	defs           map[string]extractor.Symbol
	refs           map[string]extractor.Symbol
	relatedSymbols []SymbolWeight
}

// RelatedFiles is the headline query of spec.md §4.5. For every DEF in f,
// each (REF, weight) neighbor contributes max(weight/|defs_in_f|, 1) to its
// file (incoming-link attenuation by local def count). For every REF in f,
// each (DEF, weight) neighbor contributes weight directly (outgoing links,
// unattenuated). f itself never appears in the result. Entries are sorted
// by score descending, then name ascending for a deterministic tie-break.
func (s *Service) RelatedFiles(f string) []RelatedFileContext {
	acc := make(map[string]*relatedFileAccumulator)
	get := func(file string) *relatedFileAccumulator {
		a, ok := acc[file]
		if !ok {
			a = &relatedFileAccumulator{
				defs: make(map[string]extractor.Symbol),
				refs: make(map[string]extractor.Symbol),
			}
			acc[file] = a
		}
		return a
	}

	defsInF := s.graph.ListDefinitions(f)
	localDefCount := len(defsInF)
	if localDefCount == 0 {
		localDefCount = 1
	}

	for _, d := range defsInF {
		for neighbor, weight := range s.graph.ListReferencesByDefinition(d.ID) {
			if neighbor.Kind != extractor.REF || neighbor.File == f {
				continue
			}
			contrib := weight / localDefCount
			if contrib < 1 {
				contrib = 1
			}
			a := get(neighbor.File)
			a.score += contrib
			a.defs[d.ID] = d
			a.relatedSymbols = append(a.relatedSymbols, SymbolWeight{Symbol: neighbor, Weight: contrib})
		}
	}

	for _, r := range s.graph.ListReferences(f) {
		for neighbor, weight := range s.graph.ListDefinitionsByReference(r.ID) {
			if neighbor.Kind != extractor.DEF || neighbor.File == f {
				continue
			}
			a := get(neighbor.File)
			a.score += weight
			a.refs[r.ID] = r
			a.relatedSymbols = append(a.relatedSymbols, SymbolWeight{Symbol: neighbor, Weight: weight})
		}
	}

	out := make([]RelatedFileContext, 0, len(acc))
	for file, a := range acc {
		out = append(out, RelatedFileContext{
			Name:           file,
			Score:          a.score,
			Defs:           mapValues(a.defs),
			Refs:           mapValues(a.refs),
			RelatedSymbols: a.relatedSymbols,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func mapValues(m map[string]extractor.Symbol) []extractor.Symbol {
	out := make([]extractor.Symbol, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SymbolByID looks up a symbol directly by its stable id, for the HTTP
// server's id-addressed /symbol/metadata route.
func (s *Service) SymbolByID(id string) (extractor.Symbol, bool) {
	return s.graph.Symbol(id)
}

// SymbolAt finds the symbol in path whose range starts at startByte, for
// the HTTP server's /symbol/relation route (which addresses a symbol by
// file+offset rather than by id). Returns ok=false if none matches.
func (s *Service) SymbolAt(path string, startByte uint) (extractor.Symbol, bool) {
	for _, sym := range s.graph.ListSymbols(path) {
		if sym.Range.StartByte == startByte {
			return sym, true
		}
	}
	return extractor.Symbol{}, false
}

// RelatedSymbols dispatches on s.Kind: DEF returns REF and IMPORT
// neighbors, REF returns DEF and IMPORT neighbors, anything else returns
// empty.
func (s *Service) RelatedSymbols(sym extractor.Symbol) []SymbolWeight {
	var neighbors map[extractor.Symbol]int
	var wantKind extractor.Kind
	switch sym.Kind {
	case extractor.DEF:
		neighbors = s.graph.ListReferencesByDefinition(sym.ID)
		wantKind = extractor.REF
	case extractor.REF:
		neighbors = s.graph.ListDefinitionsByReference(sym.ID)
		wantKind = extractor.DEF
	default:
		return nil
	}

	out := make([]SymbolWeight, 0, len(neighbors))
	for n, w := range neighbors {
		if n.Kind != wantKind && n.Kind != extractor.IMPORT {
			continue
		}
		out = append(out, SymbolWeight{Symbol: n, Weight: w})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol.ID < out[j].Symbol.ID })
	return out
}

// PairsBetweenFiles delegates to the graph's definitions(a) x references(b)
// cross product, per spec.md §4.3.
func (s *Service) PairsBetweenFiles(a, b string) []symbolgraph.SymbolPair {
	return s.graph.PairsBetweenFiles(a, b)
}

// FileMetadata is the supplemented file_metadata(f) query of SPEC_FULL.md
// §3: def/ref counts from the graph, commit/issue counts from the history
// collector (zero when no history.RelationGraph was supplied).
type FileMetadata struct {
	Path     string
	Commits  int
	Issues   []string
	DefCount int
	RefCount int
}

// FileMetadata returns f's metadata. Query APIs never fail; an unknown
// path returns a FileMetadata carrying only Path, with zero counts and no
// issues.
func (s *Service) FileMetadata(f string) FileMetadata {
	meta := FileMetadata{
		Path:     f,
		DefCount: len(s.graph.ListDefinitions(f)),
		RefCount: len(s.graph.ListReferences(f)),
	}
	if s.history != nil {
		meta.Commits = len(s.history.FileRelatedCommits(f))
		meta.Issues = s.history.FileRelatedIssues(f)
	}
	return meta
}

// FilterByLinkCount applies SPEC_FULL.md §3's file_min_links/file_max_links
// post-filter: entries whose related-file count falls outside
// [min, max] are dropped from the listing entirely. 0 disables a bound.
// RelatedFiles does not call it, and neither does any command in
// cmd/gossiphs.
func FilterByLinkCount(entries []RelatedFileContext, min, max int) []RelatedFileContext {
	if min <= 0 && max <= 0 {
		return entries
	}
	count := len(entries)
	if min > 0 && count < min {
		return nil
	}
	if max > 0 && count > max {
		return nil
	}
	return entries
}
