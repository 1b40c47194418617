package wasm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_CheckError_WithInstr(t *testing.T) {
	base := NewIndexErr(ErrInvalidLocalIdx, CategoryLocal, 4, 2)
	wrapped := base.WithInstr(OpLocalGet, 0x10)

	assert.Equal(t, OpLocalGet, wrapped.Op())
	assert.Equal(t, uint32(0x10), wrapped.Offset)
	// The original error is untouched; WithInstr copies.
	assert.Equal(t, Opcode(0), base.Opcode)
}

func Test_CheckError_Error_includesContext(t *testing.T) {
	// 0x6a is i32.add; it has no named constant since the numeric opcodes
	// are a data table in the formcheck package, not an enum here.
	err := NewMismatchErr([]ValType{ValI32}, []ValType{ValF64}).WithInstr(Opcode(0x6a), 3)
	msg := err.Error()
	assert.Contains(t, msg, string(ErrTypeCheckFailed))
	assert.Contains(t, msg, "expected")
	assert.Contains(t, msg, "offset 0x3")
}

func Test_CheckError_Unwrap_nilByDefault(t *testing.T) {
	err := NewErr(ErrTypeCheckFailed, "underflow")
	require.Nil(t, err.Unwrap())
}
