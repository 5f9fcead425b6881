package query

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/73ai/gossiphs/internal/extractor"
	"github.com/73ai/gossiphs/internal/symbolgraph"
)

func buildTwoFileGraph() *symbolgraph.Graph {
	g := symbolgraph.New()
	g.AddFile("a.py")
	g.AddFile("b.py")
	def := sym("a.py", "foo", extractor.DEF, 0)
	ref := sym("b.py", "foo", extractor.REF, 0)
	g.AddSymbol(def)
	g.AddSymbol(ref)
	g.LinkFileToSymbol("a.py", def.ID)
	g.LinkFileToSymbol("b.py", ref.ID)
	g.LinkSymbolToSymbol(def.ID, ref.ID)
	g.EnhanceSymbolToSymbol(def.ID, ref.ID, 9)
	return g
}

func TestListAllRelations_FileIDsAreLexicographicAndDense(t *testing.T) {
	g := buildTwoFileGraph()
	s := New(g, nil)
	idx := s.ListAllRelations()

	require.Len(t, idx.FileNodes, 2)
	assert.Equal(t, "a.py", idx.FileNodes[0].Path)
	assert.Equal(t, 0, idx.FileNodes[0].ID)
	assert.Equal(t, "b.py", idx.FileNodes[1].Path)
	assert.Equal(t, 1, idx.FileNodes[1].ID)

	require.Len(t, idx.FileRelations, 1)
	rel := idx.FileRelations[0]
	assert.Equal(t, 0, rel.Src)
	assert.Equal(t, 1, rel.Dst)
	require.Len(t, rel.SymbolIDs, 1)

	require.Len(t, idx.SymbolNodes, 1)
	assert.Equal(t, "foo", idx.SymbolNodes[0].Symbol.Name)
	assert.Equal(t, extractor.DEF, idx.SymbolNodes[0].Symbol.Kind)
	assert.True(t, idx.SymbolNodes[0].ID > rel.ID)
	assert.True(t, rel.ID >= len(idx.FileNodes))
}

func TestListAllRelations_IsDeterministic(t *testing.T) {
	g := buildTwoFileGraph()
	s := New(g, nil)
	a := s.ListAllRelations()
	b := s.ListAllRelations()
	assert.Equal(t, a, b)
}

func TestWriteRelations_EmitsFileNodesThenRelationsThenSymbols(t *testing.T) {
	g := buildTwoFileGraph()
	s := New(g, nil)
	idx := s.ListAllRelations()

	var buf bytes.Buffer
	require.NoError(t, WriteRelations(&buf, idx))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4) // 2 FileNodes + 1 FileRelation + 1 SymbolNode

	assert.Contains(t, lines[0], `"kind":"FileNode"`)
	assert.Contains(t, lines[1], `"kind":"FileNode"`)
	assert.Contains(t, lines[2], `"kind":"FileRelation"`)
	assert.Contains(t, lines[3], `"kind":"SymbolNode"`)
}

func TestListAllRelations_NoRelationsYieldsNoSymbolNodes(t *testing.T) {
	g := symbolgraph.New()
	g.AddFile("a.py")
	s := New(g, nil)
	idx := s.ListAllRelations()

	assert.Len(t, idx.FileNodes, 1)
	assert.Empty(t, idx.FileRelations)
	assert.Empty(t, idx.SymbolNodes)
}
