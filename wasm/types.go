// Package wasm holds the value and type model shared by the form checker and
// its callers: value types, reference/heap types, function signatures and
// the other module-level declarations the checker consults but never mutates
// module-loading itself is out of scope here, see the formcheck package.
package wasm

import "fmt"

// ValueTypeCode identifies the basic shape of a ValType: a number, a vector,
// or a reference. It intentionally does not encode nullability or heap type;
// those live on ValType itself.
type ValueTypeCode byte

const (
	I32 ValueTypeCode = iota
	I64
	F32
	F64
	V128
	Ref
)

func (c ValueTypeCode) String() string {
	switch c {
	case I32:
		return "i32"
	case I64:
		return "i64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	case V128:
		return "v128"
	case Ref:
		return "ref"
	default:
		return "unknown"
	}
}

// HeapTypeCode is either one of the abstract heap type codes below, or
// TypeIndexHeapType to signal that a concrete function-type index is stored
// alongside the ValType.
type HeapTypeCode byte

const (
	FuncRef HeapTypeCode = iota
	ExternRef
	// TypeIndexHeapType marks a ValType whose heap type is a concrete
	// function type, addressed via ValType.TypeIndex.
	TypeIndexHeapType
)

func (c HeapTypeCode) String() string {
	switch c {
	case FuncRef:
		return "func"
	case ExternRef:
		return "extern"
	case TypeIndexHeapType:
		return "typeidx"
	default:
		return "unknown"
	}
}

// ValType is a WebAssembly value type. Numeric and vector types only use
// Code; reference types additionally carry Nullable and the heap type
// (HeapCode, plus TypeIdx when HeapCode == TypeIndexHeapType).
//
// ValType is a plain value so it can be compared with ==, copied freely, and
// used as a map key.
type ValType struct {
	Code     ValueTypeCode
	Nullable bool
	HeapCode HeapTypeCode
	TypeIdx  uint32
}

// Numeric value type constructors. These are the common case and are used
// pervasively by the dispatcher's stack-transformation tables.
var (
	ValI32  = ValType{Code: I32}
	ValI64  = ValType{Code: I64}
	ValF32  = ValType{Code: F32}
	ValF64  = ValType{Code: F64}
	ValV128 = ValType{Code: V128}
)

// RefNull returns the nullable reference type for the given abstract heap
// type (FuncRef or ExternRef).
func RefNull(heap HeapTypeCode) ValType {
	return ValType{Code: Ref, Nullable: true, HeapCode: heap}
}

// RefNonNull returns the non-nullable reference type for the given abstract
// heap type.
func RefNonNull(heap HeapTypeCode) ValType {
	return ValType{Code: Ref, Nullable: false, HeapCode: heap}
}

// RefNullTypeIndex returns the nullable reference type pointing at the
// module's typeIdx'th function type.
func RefNullTypeIndex(typeIdx uint32) ValType {
	return ValType{Code: Ref, Nullable: true, HeapCode: TypeIndexHeapType, TypeIdx: typeIdx}
}

// RefTypeIndex returns the non-nullable reference type pointing at the
// module's typeIdx'th function type.
func RefTypeIndex(typeIdx uint32) ValType {
	return ValType{Code: Ref, Nullable: false, HeapCode: TypeIndexHeapType, TypeIdx: typeIdx}
}

// IsRefType reports whether v is a reference type (as opposed to numeric or
// vector).
func (v ValType) IsRefType() bool { return v.Code == Ref }

// IsNumType reports whether v is a scalar numeric type: i32, i64, f32, or
// f64. Notably, v128 is not a "number" for the purposes of select/select_t
// validation, matching the grounding runtime's isNumType predicate.
func (v ValType) IsNumType() bool {
	switch v.Code {
	case I32, I64, F32, F64:
		return true
	default:
		return false
	}
}

// IsDefaultable reports whether v has a canonical zero value: every numeric
// and vector type, plus nullable references. Non-nullable references are
// not defaultable and require explicit initialization before first read.
func (v ValType) IsDefaultable() bool {
	if v.Code == Ref {
		return v.Nullable
	}
	return true
}

// AsNonNull returns the non-nullable form of v, preserving its heap type. It
// is only meaningful for reference types.
func (v ValType) AsNonNull() ValType {
	v.Nullable = false
	return v
}

// AsNullable returns the nullable form of v, preserving its heap type. It is
// only meaningful for reference types.
func (v ValType) AsNullable() ValType {
	v.Nullable = true
	return v
}

func (v ValType) String() string {
	if !v.IsRefType() {
		return v.Code.String()
	}
	suffix := "null "
	if !v.Nullable {
		suffix = ""
	}
	if v.HeapCode == TypeIndexHeapType {
		return fmt.Sprintf("(ref %s%d)", suffix, v.TypeIdx)
	}
	return fmt.Sprintf("(ref %s%s)", suffix, v.HeapCode)
}

// FunctionType is a WebAssembly function signature: an ordered list of
// parameter types and an ordered list of result types.
type FunctionType struct {
	Params  []ValType
	Results []ValType
}

func (t FunctionType) String() string {
	return fmt.Sprintf("%v -> %v", t.Params, t.Results)
}

// Mutability is a global's declared mutability.
type Mutability byte

const (
	Const Mutability = iota
	Var
)

// GlobalType is a global variable's declared value type and mutability.
type GlobalType struct {
	ValType    ValType
	Mutability Mutability
}
