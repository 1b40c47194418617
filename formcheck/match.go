package formcheck

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/wasmkit/formcheck/wasm"
)

// typeIndexPair is the cache key for the recursive branch of match: two
// concrete function-type indices being compared for reference-type
// assignability.
type typeIndexPair struct {
	exp, got uint32
}

// defaultMatchCacheSize bounds the memoization table for recursive
// TypeIndex x TypeIndex comparisons. It is sized generously relative to
// realistic module type-section sizes; a Checker's matcher cache grows no
// further than this regardless of how many times match is called during a single
// validation run.
const defaultMatchCacheSize = 4096

// matcher evaluates the type-match relation against a fixed module type
// table. It memoizes the recursive TypeIndex comparisons in a bounded LRU,
// since a function body with many calls through a handful of recursive or
// mutually-referential function types would otherwise re-walk the same
// comparison on every call site.
type matcher struct {
	types    []wasm.FunctionType
	cache    *lru.Cache[typeIndexPair, bool]
	depth    int
	maxDepth int
}

func newMatcher() *matcher {
	cache, _ := lru.New[typeIndexPair, bool](defaultMatchCacheSize)
	return &matcher{cache: cache}
}

// setTypes installs the module's type table and resets the recursion
// counter. maxDepth bounds matchTypeIndices' recursion; zero or negative
// defaults to len(types), matching Config.WithRecursionDepthLimit's doc.
func (m *matcher) setTypes(types []wasm.FunctionType, maxDepth int) {
	m.types = types
	if maxDepth <= 0 {
		maxDepth = len(types)
	}
	m.maxDepth = maxDepth
	m.cache.Purge()
}

// match defines assignability from got to exp: every instruction that
// compares a value on the stack against an expected type calls this, either
// directly or via valueStack.popExpect.
func (m *matcher) match(exp, got wasm.ValType) bool {
	if !exp.IsRefType() && !got.IsRefType() {
		return exp.Code == got.Code
	}
	if !exp.IsRefType() || !got.IsRefType() {
		return false
	}
	// Nullable matching: a non-nullable expectation rejects a nullable value.
	if !exp.Nullable && got.Nullable {
		return false
	}
	if exp.HeapCode == got.HeapCode && exp.HeapCode != wasm.TypeIndexHeapType {
		return true
	}
	if exp.HeapCode == wasm.FuncRef && got.HeapCode == wasm.TypeIndexHeapType {
		return true
	}
	if exp.HeapCode == wasm.TypeIndexHeapType && got.HeapCode == wasm.TypeIndexHeapType {
		return m.matchTypeIndices(exp.TypeIdx, got.TypeIdx)
	}
	return false
}

// matchTypeIndices implements the function-type-vs-function-type leg of
// match. Subtyping here is invariant: both parameter and result lists are
// compared with match itself, not swapped for contra/covariance (see the
// open question recorded in DESIGN.md). Recursion is bounded defensively by
// depth, capped at maxDepth, since a well-formed module's type graph cannot
// cycle but nothing downstream of module loading re-verifies that.
func (m *matcher) matchTypeIndices(exp, got uint32) bool {
	if exp == got {
		return true
	}
	key := typeIndexPair{exp: exp, got: got}
	if cached, ok := m.cache.Get(key); ok {
		return cached
	}
	if m.depth >= m.maxDepth {
		// Pathological self-referential type graph; treat as a mismatch
		// rather than recursing forever.
		return false
	}
	m.depth++
	result := m.matchVec(m.types[exp].Params, m.types[got].Params) &&
		m.matchVec(m.types[exp].Results, m.types[got].Results)
	m.depth--
	m.cache.Add(key, result)
	return result
}

// matchVec is match_vec: same length, and pointwise match. Arity mismatches
// never degrade gracefully to a softer check.
func (m *matcher) matchVec(exp, got []wasm.ValType) bool {
	if len(exp) != len(got) {
		return false
	}
	for i := range exp {
		if !m.match(exp[i], got[i]) {
			return false
		}
	}
	return true
}
