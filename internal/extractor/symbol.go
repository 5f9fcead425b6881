package extractor

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Kind tags a Symbol occurrence.
type Kind string

const (
	DEF       Kind = "DEF"
	REF       Kind = "REF"
	NAMESPACE Kind = "NAMESPACE"
	IMPORT    Kind = "IMPORT"
)

// Range is a byte span plus start/end row/column, 0-indexed as tree-sitter
// reports them.
type Range struct {
	StartByte, EndByte             uint
	StartRow, StartCol, EndRow, EndCol uint
}

// Symbol is an occurrence of a named entity in a source file.
type Symbol struct {
	ID    string `json:"id"`
	File  string `json:"file"`
	Name  string `json:"name"`
	Kind  Kind   `json:"kind"`
	Range Range  `json:"range"`
}

// NewID derives the deterministic id from (file, name, kind, start_byte).
// Identical source bytes always produce the same id across runs.
func NewID(file, name string, kind Kind, startByte uint) string {
	h := xxhash.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00%d", file, name, kind, startByte)
	return fmt.Sprintf("%016x", h.Sum64())
}
