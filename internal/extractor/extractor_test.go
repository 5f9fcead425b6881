package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/73ai/gossiphs/internal/rule"
)

func extract(t *testing.T, reg *rule.Registry, ext, path, src string) []Symbol {
	t.Helper()
	r, lang, ok := reg.ForExtension(ext)
	require.True(t, ok, "extension %q should be registered", ext)
	syms, err := Extract(r, lang, path, []byte(src))
	require.NoError(t, err)
	return syms
}

func names(syms []Symbol, kind Kind) []string {
	var out []string
	for _, s := range syms {
		if s.Kind == kind {
			out = append(out, s.Name)
		}
	}
	return out
}

// Go: package main\nfunc main(){ _ = "x"; val := 1 } produces DEF "main"
// and REF "main.val"; no symbol named "_" (spec.md §8 scenario 3).
func TestExtract_Go_MainFunction(t *testing.T) {
	reg, err := rule.NewRegistry()
	require.NoError(t, err)

	src := `package main

func main() {
	_ = "x"
	val := 1
	_ = val
}
`
	syms := extract(t, reg, "go", "main.go", src)

	defs := names(syms, DEF)
	assert.Contains(t, defs, "main")

	for _, n := range defs {
		assert.NotEqual(t, "_", n)
		assert.NotEqual(t, "val", n)
		assert.NotEqual(t, "main.val", n)
	}

	refs := names(syms, REF)
	assert.Contains(t, refs, "main.val")
}

// C: #include "h.h"\n#include <stdio.h>\nvoid f(){ printf("hi"); } yields
// DEF f, REF f.printf, IMPORTs h.h, stdio.h (spec.md §8 scenario 5).
func TestExtract_C_IncludesAndCall(t *testing.T) {
	reg, err := rule.NewRegistry()
	require.NoError(t, err)

	src := `#include "h.h"
#include <stdio.h>
void f() {
	printf("hi");
}
`
	syms := extract(t, reg, "c", "f.c", src)

	imports := names(syms, IMPORT)
	assert.Contains(t, imports, "h.h")
	assert.Contains(t, imports, "stdio.h")

	defs := names(syms, DEF)
	assert.Contains(t, defs, "f")
}

func TestExtract_UnsupportedExtension(t *testing.T) {
	reg, err := rule.NewRegistry()
	require.NoError(t, err)

	_, _, ok := reg.ForExtension("kt")
	assert.False(t, ok)
}
