package wasm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_ValType_IsNumType(t *testing.T) {
	assert.True(t, ValI32.IsNumType())
	assert.True(t, ValI64.IsNumType())
	assert.True(t, ValF32.IsNumType())
	assert.True(t, ValF64.IsNumType())
	assert.False(t, ValV128.IsNumType())
	assert.False(t, RefNull(FuncRef).IsNumType())
}

func Test_ValType_IsDefaultable(t *testing.T) {
	assert.True(t, ValI32.IsDefaultable())
	assert.True(t, ValV128.IsDefaultable())
	assert.True(t, RefNull(FuncRef).IsDefaultable())
	assert.False(t, RefNonNull(FuncRef).IsDefaultable())
}

func Test_ValType_AsNonNull_AsNullable(t *testing.T) {
	ref := RefNull(ExternRef)
	assert.False(t, ref.AsNonNull().Nullable)
	assert.True(t, ref.AsNonNull().AsNullable().Nullable)
	assert.Equal(t, ExternRef, ref.AsNonNull().HeapCode)
}

func Test_ValType_TypeIndex_constructors(t *testing.T) {
	nullable := RefNullTypeIndex(3)
	assert.True(t, nullable.Nullable)
	assert.Equal(t, TypeIndexHeapType, nullable.HeapCode)
	assert.Equal(t, uint32(3), nullable.TypeIdx)

	nonNull := RefTypeIndex(3)
	assert.False(t, nonNull.Nullable)
}

func Test_ValType_String(t *testing.T) {
	assert.Equal(t, "i32", ValI32.String())
	assert.Equal(t, "(ref func)", RefNonNull(FuncRef).String())
	assert.Equal(t, "(ref null func)", RefNull(FuncRef).String())
	assert.Equal(t, "(ref 5)", RefTypeIndex(5).String())
}

func Test_FunctionType_String(t *testing.T) {
	ft := FunctionType{Params: []ValType{ValI32, ValI64}, Results: []ValType{ValF32}}
	assert.Equal(t, "[i32 i64] -> [f32]", ft.String())
}
