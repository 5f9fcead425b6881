// Package symbolgraph implements the undirected weighted multigraph of
// spec.md §4.3: File and Symbol nodes, with dual path/id indices and
// neighbor queries filtered by kind.
//
// No third-party graph library is wired in here — nothing in the
// retrieved example pack models an undirected weighted multigraph with
// this dual-index arena shape (the original Rust implementation uses
// petgraph::UnGraph, for which the pack has no Go equivalent). This is
// the one component of the module built on the standard library alone.
package symbolgraph

import (
	"github.com/73ai/gossiphs/internal/extractor"
)

type nodeKind int

const (
	nodeFile nodeKind = iota
	nodeSymbol
)

type node struct {
	kind nodeKind
	path string           // valid when kind == nodeFile
	sym  extractor.Symbol // valid when kind == nodeSymbol
}

// Graph is an arena-backed undirected weighted multigraph over File and
// Symbol nodes. All mutation happens during build; once constructed it is
// read-only, per spec.md §3's lifecycle invariant.
type Graph struct {
	nodes       []node
	fileMapping map[string]int
	symMapping  map[string]int
	adjacency   []map[int]int // node idx -> (neighbor idx -> weight)
}

// New returns an empty graph ready for construction.
func New() *Graph {
	return &Graph{
		fileMapping: make(map[string]int),
		symMapping:  make(map[string]int),
	}
}

func (g *Graph) addNode(n node) int {
	idx := len(g.nodes)
	g.nodes = append(g.nodes, n)
	g.adjacency = append(g.adjacency, make(map[int]int))
	return idx
}

// AddFile adds a File node if absent. Idempotent.
func (g *Graph) AddFile(path string) {
	if _, ok := g.fileMapping[path]; ok {
		return
	}
	idx := g.addNode(node{kind: nodeFile, path: path})
	g.fileMapping[path] = idx
}

// AddSymbol adds a Symbol node if absent, keyed by sym.ID. Idempotent.
func (g *Graph) AddSymbol(sym extractor.Symbol) {
	if _, ok := g.symMapping[sym.ID]; ok {
		return
	}
	idx := g.addNode(node{kind: nodeSymbol, sym: sym})
	g.symMapping[sym.ID] = idx
}

func (g *Graph) link(a, b int) {
	if a == b {
		return
	}
	if _, ok := g.adjacency[a][b]; ok {
		return
	}
	g.adjacency[a][b] = 0
	g.adjacency[b][a] = 0
}

// LinkFileToSymbol links a File node to a Symbol node. Both must already
// exist; idempotent; weight is conventionally 0 and never enhanced.
func (g *Graph) LinkFileToSymbol(path string, symID string) {
	a, ok := g.fileMapping[path]
	if !ok {
		return
	}
	b, ok := g.symMapping[symID]
	if !ok {
		return
	}
	g.link(a, b)
}

// LinkSymbolToSymbol links two Symbol nodes. Both must already exist;
// idempotent.
func (g *Graph) LinkSymbolToSymbol(aID, bID string) {
	a, ok := g.symMapping[aID]
	if !ok {
		return
	}
	b, ok := g.symMapping[bID]
	if !ok {
		return
	}
	g.link(a, b)
}

// EnhanceSymbolToSymbol adds delta to the weight of the existing edge
// (aID, bID). If no such edge exists, this is a no-op — callers must
// LinkSymbolToSymbol first.
func (g *Graph) EnhanceSymbolToSymbol(aID, bID string, delta int) {
	a, ok := g.symMapping[aID]
	if !ok {
		return
	}
	b, ok := g.symMapping[bID]
	if !ok {
		return
	}
	if _, ok := g.adjacency[a][b]; !ok {
		return
	}
	g.adjacency[a][b] += delta
	g.adjacency[b][a] += delta
}

// Symbol looks up a Symbol node by its id, for the query layer's
// id-addressed lookups (e.g. the HTTP server's /symbol/metadata route).
func (g *Graph) Symbol(id string) (extractor.Symbol, bool) {
	idx, ok := g.symMapping[id]
	if !ok {
		return extractor.Symbol{}, false
	}
	return g.nodes[idx].sym, true
}

// HasFile reports whether path has a File node.
func (g *Graph) HasFile(path string) bool {
	_, ok := g.fileMapping[path]
	return ok
}

// Files returns every File node's path.
func (g *Graph) Files() []string {
	out := make([]string, 0, len(g.fileMapping))
	for p := range g.fileMapping {
		out = append(out, p)
	}
	return out
}

// ListSymbols returns every Symbol neighbor of the File node at path.
func (g *Graph) ListSymbols(path string) []extractor.Symbol {
	idx, ok := g.fileMapping[path]
	if !ok {
		return nil
	}
	var out []extractor.Symbol
	for n := range g.adjacency[idx] {
		if g.nodes[n].kind == nodeSymbol {
			out = append(out, g.nodes[n].sym)
		}
	}
	return out
}

func (g *Graph) listByKind(path string, kind extractor.Kind) []extractor.Symbol {
	var out []extractor.Symbol
	for _, s := range g.ListSymbols(path) {
		if s.Kind == kind {
			out = append(out, s)
		}
	}
	return out
}

// ListDefinitions returns DEF symbols linked to the File node at path.
func (g *Graph) ListDefinitions(path string) []extractor.Symbol {
	return g.listByKind(path, extractor.DEF)
}

// ListReferences returns REF symbols linked to the File node at path.
func (g *Graph) ListReferences(path string) []extractor.Symbol {
	return g.listByKind(path, extractor.REF)
}

// ListReferencesByDefinition returns every Symbol neighbor of defID
// (regardless of kind) with its edge weight; callers filter by kind.
func (g *Graph) ListReferencesByDefinition(defID string) map[extractor.Symbol]int {
	return g.neighborsOf(defID)
}

// ListDefinitionsByReference is symmetric to ListReferencesByDefinition.
func (g *Graph) ListDefinitionsByReference(refID string) map[extractor.Symbol]int {
	return g.neighborsOf(refID)
}

func (g *Graph) neighborsOf(symID string) map[extractor.Symbol]int {
	idx, ok := g.symMapping[symID]
	if !ok {
		return nil
	}
	out := make(map[extractor.Symbol]int)
	for n, w := range g.adjacency[idx] {
		if g.nodes[n].kind == nodeSymbol {
			out[g.nodes[n].sym] = w
		}
	}
	return out
}

// PairsBetweenFiles returns the cross product of definitions(src) and
// references(dst) restricted to pairs with a direct edge.
func (g *Graph) PairsBetweenFiles(src, dst string) []SymbolPair {
	defs := g.ListDefinitions(src)
	if len(defs) == 0 {
		return nil
	}
	refIdx, ok := g.fileMapping[dst]
	if !ok {
		return nil
	}
	refsByID := make(map[string]extractor.Symbol)
	for n := range g.adjacency[refIdx] {
		if g.nodes[n].kind == nodeSymbol && g.nodes[n].sym.Kind == extractor.REF {
			refsByID[g.nodes[n].sym.ID] = g.nodes[n].sym
		}
	}

	var out []SymbolPair
	for _, d := range defs {
		dIdx := g.symMapping[d.ID]
		for rID, r := range refsByID {
			rIdx, ok := g.symMapping[rID]
			if !ok {
				continue
			}
			if w, ok := g.adjacency[dIdx][rIdx]; ok {
				out = append(out, SymbolPair{Def: d, Ref: r, Weight: w})
			}
		}
	}
	return out
}

// SymbolPair is a (definition, reference) pair joined by a direct edge.
type SymbolPair struct {
	Def    extractor.Symbol
	Ref    extractor.Symbol
	Weight int
}
