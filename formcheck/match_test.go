package formcheck

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wasmkit/formcheck/wasm"
)

func Test_matcher_match_numericRequiresExactCode(t *testing.T) {
	m := newMatcher()
	assert.True(t, m.match(wasm.ValI32, wasm.ValI32))
	assert.False(t, m.match(wasm.ValI32, wasm.ValI64))
}

func Test_matcher_match_refVsNonRefNeverMatches(t *testing.T) {
	m := newMatcher()
	assert.False(t, m.match(wasm.ValI32, wasm.RefNull(wasm.FuncRef)))
	assert.False(t, m.match(wasm.RefNull(wasm.FuncRef), wasm.ValI32))
}

func Test_matcher_match_nonNullableRejectsNullable(t *testing.T) {
	m := newMatcher()
	assert.False(t, m.match(wasm.RefNonNull(wasm.FuncRef), wasm.RefNull(wasm.FuncRef)))
	assert.True(t, m.match(wasm.RefNull(wasm.FuncRef), wasm.RefNonNull(wasm.FuncRef)))
}

func Test_matcher_match_funcRefAcceptsConcreteTypeIndex(t *testing.T) {
	m := newMatcher()
	m.setTypes([]wasm.FunctionType{{}}, 0)
	assert.True(t, m.match(wasm.RefNull(wasm.FuncRef), wasm.RefNullTypeIndex(0)))
	assert.False(t, m.match(wasm.RefNullTypeIndex(0), wasm.RefNull(wasm.FuncRef)))
}

func Test_matcher_match_typeIndexInvariantSubtyping(t *testing.T) {
	m := newMatcher()
	types := []wasm.FunctionType{
		{Params: []wasm.ValType{wasm.ValI32}, Results: []wasm.ValType{wasm.ValI64}},
		{Params: []wasm.ValType{wasm.ValI32}, Results: []wasm.ValType{wasm.ValF64}},
	}
	m.setTypes(types, 0)
	assert.True(t, m.match(wasm.RefNullTypeIndex(0), wasm.RefNullTypeIndex(0)))
	assert.False(t, m.match(wasm.RefNullTypeIndex(0), wasm.RefNullTypeIndex(1)))
}

func Test_matcher_matchTypeIndices_selfReferentialDoesNotHang(t *testing.T) {
	m := newMatcher()
	// Type 0 takes a reference to itself as its only parameter: a
	// pathological but structurally valid module shape.
	types := []wasm.FunctionType{
		{Params: []wasm.ValType{wasm.RefNullTypeIndex(0)}},
	}
	m.setTypes(types, 0)
	assert.True(t, m.matchTypeIndices(0, 0))
}

func Test_matcher_matchTypeIndices_honorsConfiguredMaxDepth(t *testing.T) {
	// Types 0 and 1 only match by recursing once more into types 2 and 3,
	// which are themselves trivially equal. A maxDepth of 1 is one level
	// too shallow to reach that second comparison.
	types := []wasm.FunctionType{
		{Results: []wasm.ValType{wasm.RefNullTypeIndex(2)}},
		{Results: []wasm.ValType{wasm.RefNullTypeIndex(3)}},
		{},
		{},
	}

	unbounded := newMatcher()
	unbounded.setTypes(types, 0)
	assert.True(t, unbounded.matchTypeIndices(0, 1))

	bounded := newMatcher()
	bounded.setTypes(types, 1)
	assert.False(t, bounded.matchTypeIndices(0, 1))
}

func Test_matcher_setTypes_purgesCache(t *testing.T) {
	m := newMatcher()
	m.setTypes([]wasm.FunctionType{{}, {Results: []wasm.ValType{wasm.ValI32}}}, 0)
	assert.False(t, m.match(wasm.RefNullTypeIndex(0), wasm.RefNullTypeIndex(1)))

	// Replacing the type table with one where 0 and 1 now agree must not
	// return a stale cached "false" from before setTypes ran.
	m.setTypes([]wasm.FunctionType{{Results: []wasm.ValType{wasm.ValI32}}, {Results: []wasm.ValType{wasm.ValI32}}}, 0)
	assert.True(t, m.match(wasm.RefNullTypeIndex(0), wasm.RefNullTypeIndex(1)))
}
