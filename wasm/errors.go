package wasm

import "fmt"

// ErrCode is a closed enumeration of the ways a function body can fail form
// checking. It is a distinct type (not a plain string) so that callers can
// switch on it exhaustively.
type ErrCode string

const (
	ErrInvalidFuncTypeIdx ErrCode = "invalid_func_type_index"
	ErrInvalidFuncIdx     ErrCode = "invalid_func_index"
	ErrInvalidTableIdx    ErrCode = "invalid_table_index"
	ErrInvalidMemoryIdx   ErrCode = "invalid_memory_index"
	ErrInvalidGlobalIdx   ErrCode = "invalid_global_index"
	ErrInvalidLocalIdx    ErrCode = "invalid_local_index"
	ErrInvalidLabelIdx    ErrCode = "invalid_label_index"
	ErrInvalidElemIdx     ErrCode = "invalid_elem_index"
	ErrInvalidDataIdx     ErrCode = "invalid_data_index"
	ErrInvalidRefIdx      ErrCode = "invalid_ref_index"
	ErrInvalidLaneIdx     ErrCode = "invalid_lane_index"
	ErrInvalidAlignment   ErrCode = "invalid_alignment"
	ErrInvalidResultArity ErrCode = "invalid_result_arity"
	ErrInvalidUninitLocal ErrCode = "invalid_uninit_local"
	ErrInvalidBrRefType   ErrCode = "invalid_br_ref_type"
	ErrImmutableGlobal    ErrCode = "immutable_global"
	ErrTypeCheckFailed    ErrCode = "type_check_failed"
)

// IndexCategory names which module-context vector an out-of-range index
// error refers to, for structured diagnostics.
type IndexCategory string

const (
	CategoryFunctionType IndexCategory = "function_type"
	CategoryFunction      IndexCategory = "function"
	CategoryTable         IndexCategory = "table"
	CategoryMemory        IndexCategory = "memory"
	CategoryGlobal        IndexCategory = "global"
	CategoryLocal         IndexCategory = "local"
	CategoryLabel         IndexCategory = "label"
	CategoryElement       IndexCategory = "element"
	CategoryData          IndexCategory = "data"
	CategoryLane          IndexCategory = "lane"
)

// IndexContext is the structured payload for an out-of-range index error.
type IndexContext struct {
	Category IndexCategory
	Index    uint32
	Bound    uint32
}

// MismatchContext is the structured payload for a type-check failure: the
// types expected at a stack position versus what was actually found there.
type MismatchContext struct {
	Expected []ValType
	Got      []ValType
}

// CheckError is returned by every failing Checker operation. It carries
// enough structure for a caller to render a precise diagnostic, or to branch
// on Code with errors.Is/errors.As.
type CheckError struct {
	Code   ErrCode
	Opcode Opcode
	Offset uint32

	Index    *IndexContext
	Mismatch *MismatchContext
	Detail   string

	cause error
}

func (e *CheckError) Error() string {
	msg := string(e.Code)
	if e.Detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Detail)
	}
	if e.Index != nil {
		msg = fmt.Sprintf("%s (%s index %d, bound %d)", msg, e.Index.Category, e.Index.Index, e.Index.Bound)
	}
	if e.Mismatch != nil {
		msg = fmt.Sprintf("%s (expected %v, got %v)", msg, e.Mismatch.Expected, e.Mismatch.Got)
	}
	return fmt.Sprintf("%s at offset 0x%x (opcode 0x%x)", msg, e.Offset, e.Op())
}

// Op returns the opcode as a plain numeric value, split out mostly so
// Error's format string reads cleanly above.
func (e *CheckError) Op() Opcode { return e.Opcode }

func (e *CheckError) Unwrap() error { return e.cause }

// WithInstr returns a copy of e with its opcode/offset set, used by the
// dispatcher's top-level wrapper so every leaf constructor can omit them.
func (e *CheckError) WithInstr(op Opcode, offset uint32) *CheckError {
	cp := *e
	cp.Opcode = op
	cp.Offset = offset
	return &cp
}

func newErr(code ErrCode, detail string) *CheckError {
	return &CheckError{Code: code, Detail: detail}
}

// NewIndexErr builds a CheckError for an out-of-range module index.
func NewIndexErr(code ErrCode, category IndexCategory, index, bound uint32) *CheckError {
	return &CheckError{Code: code, Index: &IndexContext{Category: category, Index: index, Bound: bound}}
}

// NewMismatchErr builds a CheckError for a type-stack mismatch.
func NewMismatchErr(expected, got []ValType) *CheckError {
	return &CheckError{Code: ErrTypeCheckFailed, Mismatch: &MismatchContext{Expected: expected, Got: got}}
}

// NewErr builds a bare CheckError carrying only a code and free-text detail,
// for the cases (stack underflow, control-stack underflow, ...) that have no
// richer structured payload in the original design.
func NewErr(code ErrCode, detail string) *CheckError {
	return newErr(code, detail)
}
