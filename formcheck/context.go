package formcheck

import "github.com/wasmkit/formcheck/wasm"

// Context accumulates a module's declarations in the order the module
// exposes them: types, then functions, tables, memories, globals, data and
// element segments, and declared function references. It is populated once
// via the Add* methods before any call to Checker.Validate and is read-only
// for the remainder of every validation run; the same Context is reused
// across all of a module's function bodies.
type Context struct {
	Types []wasm.FunctionType
	// Funcs maps function index -> index into Types.
	Funcs []uint32
	// Tables holds each table's element (reference) type.
	Tables []wasm.ValType
	Mems   uint32
	Globals []wasm.GlobalType
	// Datas is a count: data segments carry no type information the
	// checker needs beyond "this index exists".
	Datas uint32
	// Elems holds each element segment's declared reference type.
	Elems []wasm.ValType
	// Refs is the set of function indices that appear as a ref.func
	// immediate anywhere in the module (code, global initializers, or
	// element segment entries), per the declared-references rule that
	// gates which functions ref.func may name.
	Refs map[uint32]struct{}

	NumImportFuncs   uint32
	NumImportGlobals uint32
}

// NewContext returns an empty module context ready for the Add* calls.
func NewContext() *Context {
	return &Context{Refs: make(map[uint32]struct{})}
}

// Reset clears every module-declaration vector, for reuse across modules.
// Checker.Reset calls this when told to also clear global state; see
// Checker.Reset's cleanModule parameter.
func (c *Context) Reset() {
	c.Types = nil
	c.Funcs = nil
	c.Tables = nil
	c.Mems = 0
	c.Globals = nil
	c.Datas = 0
	c.Elems = nil
	c.Refs = make(map[uint32]struct{})
	c.NumImportFuncs = 0
	c.NumImportGlobals = 0
}

// AddType appends a function type to the module's type table.
func (c *Context) AddType(t wasm.FunctionType) {
	c.Types = append(c.Types, t)
}

// AddFunc declares a function with the given type index. isImport
// increments NumImportGlobals's function counterpart, NumImportFuncs,
// keeping the import/local split the checker needs for nothing in this
// package directly, but that embedding engines typically want alongside it.
func (c *Context) AddFunc(typeIdx uint32, isImport bool) {
	if int(typeIdx) < len(c.Types) {
		c.Funcs = append(c.Funcs, typeIdx)
	}
	if isImport {
		c.NumImportFuncs++
	}
}

// AddTable declares a table with the given element type.
func (c *Context) AddTable(elem wasm.ValType) {
	c.Tables = append(c.Tables, elem)
}

// AddMemory declares a memory. Its limits are irrelevant to form checking,
// only its existence and position are.
func (c *Context) AddMemory() {
	c.Mems++
}

// AddGlobal declares a global with the given type and mutability.
func (c *Context) AddGlobal(g wasm.GlobalType, isImport bool) {
	c.Globals = append(c.Globals, g)
	if isImport {
		c.NumImportGlobals++
	}
}

// AddData records the existence of one more data segment.
func (c *Context) AddData() {
	c.Datas++
}

// AddElem declares an element segment with the given reference type.
func (c *Context) AddElem(elem wasm.ValType) {
	c.Elems = append(c.Elems, elem)
}

// AddRef records that funcIdx is a declared function reference: it may
// appear as a ref.func immediate. Idempotent, matching the original
// std::set<uint32_t>-backed semantics.
func (c *Context) AddRef(funcIdx uint32) {
	c.Refs[funcIdx] = struct{}{}
}

// hasRef reports whether funcIdx was declared via AddRef.
func (c *Context) hasRef(funcIdx uint32) bool {
	_, ok := c.Refs[funcIdx]
	return ok
}

// ValidateValType checks a ValType immediate is well-formed with respect to
// this context: the only case that can fail is a reference type whose heap
// type names an out-of-range function-type index.
func (c *Context) ValidateValType(v wasm.ValType) *wasm.CheckError {
	if v.IsRefType() && v.HeapCode == wasm.TypeIndexHeapType {
		if int(v.TypeIdx) >= len(c.Types) {
			return wasm.NewIndexErr(wasm.ErrInvalidFuncTypeIdx, wasm.CategoryFunctionType, v.TypeIdx, uint32(len(c.Types)))
		}
	}
	return nil
}
