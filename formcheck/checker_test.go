package formcheck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wasmkit/formcheck/wasm"
)

const opI32Add = wasm.Opcode(0x6a)

func Test_Validate_simpleAddFunction(t *testing.T) {
	ctx := NewContext()
	c := NewChecker(ctx, nil)

	instrs := []wasm.Instruction{
		{Op: wasm.OpLocalGet, TargetIndex: 0},
		{Op: wasm.OpLocalGet, TargetIndex: 1},
		{Op: opI32Add},
		{Op: wasm.OpEnd},
	}

	err := c.Validate(instrs, []wasm.ValType{wasm.ValI32, wasm.ValI32}, nil, []wasm.ValType{wasm.ValI32})
	require.Nil(t, err)
}

func Test_Validate_branchTypeMismatch(t *testing.T) {
	ctx := NewContext()
	c := NewChecker(ctx, nil)

	instrs := []wasm.Instruction{
		{Op: wasm.OpBlock, Block: wasm.BlockType{Kind: wasm.BlockTypeValue, ValType: wasm.ValI32}},
		{Op: wasm.OpI64Const},
		{Op: wasm.OpBr, Branch: wasm.BranchLabel{TargetIndex: 0}},
		{Op: wasm.OpEnd},
		{Op: wasm.OpEnd},
	}

	err := c.Validate(instrs, nil, nil, nil)
	require.NotNil(t, err)
	assert.Equal(t, wasm.ErrTypeCheckFailed, err.Code)
	assert.Equal(t, wasm.OpBr, err.Op())
}

func Test_Validate_uninitializedNonDefaultableLocal(t *testing.T) {
	ctx := NewContext()
	c := NewChecker(ctx, nil)

	declared := []wasm.ValType{wasm.RefNonNull(wasm.FuncRef)}
	instrs := []wasm.Instruction{
		{Op: wasm.OpLocalGet, TargetIndex: 0},
		{Op: wasm.OpDrop},
		{Op: wasm.OpEnd},
	}

	err := c.Validate(instrs, nil, declared, nil)
	require.NotNil(t, err)
	assert.Equal(t, wasm.ErrInvalidUninitLocal, err.Code)
}

func Test_Validate_defaultableLocalIsImmediatelyInitialized(t *testing.T) {
	ctx := NewContext()
	c := NewChecker(ctx, nil)

	declared := []wasm.ValType{wasm.ValI32}
	instrs := []wasm.Instruction{
		{Op: wasm.OpLocalGet, TargetIndex: 0},
		{Op: wasm.OpDrop},
		{Op: wasm.OpEnd},
	}

	err := c.Validate(instrs, nil, declared, nil)
	require.Nil(t, err)
}

func Test_Validate_immutableGlobalSet(t *testing.T) {
	ctx := NewContext()
	ctx.AddGlobal(wasm.GlobalType{ValType: wasm.ValI32, Mutability: wasm.Const}, false)
	c := NewChecker(ctx, nil)

	instrs := []wasm.Instruction{
		{Op: wasm.OpI32Const},
		{Op: wasm.OpGlobalSet, TargetIndex: 0},
		{Op: wasm.OpEnd},
	}

	err := c.Validate(instrs, nil, nil, nil)
	require.NotNil(t, err)
	assert.Equal(t, wasm.ErrImmutableGlobal, err.Code)
}

func Test_Validate_mutableGlobalSet_ok(t *testing.T) {
	ctx := NewContext()
	ctx.AddGlobal(wasm.GlobalType{ValType: wasm.ValI32, Mutability: wasm.Var}, false)
	c := NewChecker(ctx, nil)

	instrs := []wasm.Instruction{
		{Op: wasm.OpI32Const},
		{Op: wasm.OpGlobalSet, TargetIndex: 0},
		{Op: wasm.OpEnd},
	}

	err := c.Validate(instrs, nil, nil, nil)
	require.Nil(t, err)
}

func Test_Validate_callUnknownFunction(t *testing.T) {
	ctx := NewContext()
	c := NewChecker(ctx, nil)

	instrs := []wasm.Instruction{
		{Op: wasm.OpCall, TargetIndex: 0},
		{Op: wasm.OpEnd},
	}

	err := c.Validate(instrs, nil, nil, nil)
	require.NotNil(t, err)
	assert.Equal(t, wasm.ErrInvalidFuncIdx, err.Code)
}

func Test_Validate_call_ok(t *testing.T) {
	ctx := NewContext()
	ctx.AddType(wasm.FunctionType{Params: []wasm.ValType{wasm.ValI32}, Results: []wasm.ValType{wasm.ValI64}})
	ctx.AddFunc(0, false)
	c := NewChecker(ctx, nil)

	instrs := []wasm.Instruction{
		{Op: wasm.OpI32Const},
		{Op: wasm.OpCall, TargetIndex: 0},
		{Op: wasm.OpDrop},
		{Op: wasm.OpEnd},
	}

	err := c.Validate(instrs, nil, nil, nil)
	require.Nil(t, err)
}

func Test_Validate_selectOperandMismatch(t *testing.T) {
	ctx := NewContext()
	c := NewChecker(ctx, nil)

	instrs := []wasm.Instruction{
		{Op: wasm.OpI32Const},
		{Op: wasm.OpF32Const},
		{Op: wasm.OpI32Const},
		{Op: wasm.OpSelect},
		{Op: wasm.OpDrop},
		{Op: wasm.OpEnd},
	}

	err := c.Validate(instrs, nil, nil, nil)
	require.NotNil(t, err)
	assert.Equal(t, wasm.ErrTypeCheckFailed, err.Code)
}

func Test_Validate_unreachableAllowsPolymorphicStack(t *testing.T) {
	ctx := NewContext()
	c := NewChecker(ctx, nil)

	// Unreachable code may claim to produce any type the enclosing block
	// expects; here a block result of i32 is "produced" purely by going
	// unreachable first.
	instrs := []wasm.Instruction{
		{Op: wasm.OpBlock, Block: wasm.BlockType{Kind: wasm.BlockTypeValue, ValType: wasm.ValI32}},
		{Op: wasm.OpUnreachable},
		{Op: wasm.OpEnd},
		{Op: wasm.OpDrop},
		{Op: wasm.OpEnd},
	}

	err := c.Validate(instrs, nil, nil, nil)
	require.Nil(t, err)
}

func Test_Validate_memoryAccessWithoutMemory(t *testing.T) {
	ctx := NewContext()
	c := NewChecker(ctx, nil)

	instrs := []wasm.Instruction{
		{Op: wasm.OpI32Const},
		{Op: wasm.OpI32Load, MemoryAlign: 2},
		{Op: wasm.OpDrop},
		{Op: wasm.OpEnd},
	}

	err := c.Validate(instrs, nil, nil, nil)
	require.NotNil(t, err)
	assert.Equal(t, wasm.ErrInvalidMemoryIdx, err.Code)
}

func Test_Validate_memoryAccessAlignmentTooWide(t *testing.T) {
	ctx := NewContext()
	ctx.AddMemory()
	c := NewChecker(ctx, nil)

	instrs := []wasm.Instruction{
		{Op: wasm.OpI32Const},
		{Op: wasm.OpI32Load8U, MemoryAlign: 1}, // natural alignment for 8-bit is 0
		{Op: wasm.OpDrop},
		{Op: wasm.OpEnd},
	}

	err := c.Validate(instrs, nil, nil, nil)
	require.NotNil(t, err)
	assert.Equal(t, wasm.ErrInvalidAlignment, err.Code)
}

func Test_Validate_refFuncRequiresDeclaration(t *testing.T) {
	ctx := NewContext()
	ctx.AddType(wasm.FunctionType{})
	ctx.AddFunc(0, false)
	c := NewChecker(ctx, nil)

	instrs := []wasm.Instruction{
		{Op: wasm.OpRefFunc, TargetIndex: 0},
		{Op: wasm.OpDrop},
		{Op: wasm.OpEnd},
	}

	err := c.Validate(instrs, nil, nil, nil)
	require.NotNil(t, err)
	assert.Equal(t, wasm.ErrInvalidRefIdx, err.Code)
}

func Test_Validate_refFunc_ok(t *testing.T) {
	ctx := NewContext()
	ctx.AddType(wasm.FunctionType{})
	ctx.AddFunc(0, false)
	ctx.AddRef(0)
	c := NewChecker(ctx, nil)

	instrs := []wasm.Instruction{
		{Op: wasm.OpRefFunc, TargetIndex: 0},
		{Op: wasm.OpDrop},
		{Op: wasm.OpEnd},
	}

	err := c.Validate(instrs, nil, nil, nil)
	require.Nil(t, err)
}

func Test_Validate_loopBranchesToStart(t *testing.T) {
	ctx := NewContext()
	c := NewChecker(ctx, nil)

	// loop (param i32) (result i32): br 0 re-supplies the loop's param
	// type, not its result type.
	instrs := []wasm.Instruction{
		{Op: wasm.OpI32Const},
		{Op: wasm.OpLoop, Block: wasm.BlockType{Kind: wasm.BlockTypeIndex, TypeIdx: 0}},
		{Op: wasm.OpBr, Branch: wasm.BranchLabel{TargetIndex: 0}},
		{Op: wasm.OpEnd},
		{Op: wasm.OpDrop},
		{Op: wasm.OpEnd},
	}

	ctx.AddType(wasm.FunctionType{Params: []wasm.ValType{wasm.ValI32}, Results: []wasm.ValType{wasm.ValI32}})
	err := c.Validate(instrs, nil, nil, nil)
	require.Nil(t, err)
}

func Test_Validate_br_writesStackEraseFixup(t *testing.T) {
	ctx := NewContext()
	c := NewChecker(ctx, nil)

	// block (result i32) { i32.const; br 0 } end
	instrs := []wasm.Instruction{
		{Op: wasm.OpBlock, Block: wasm.BlockType{Kind: wasm.BlockTypeValue, ValType: wasm.ValI32}, JumpEnd: 3},
		{Op: wasm.OpI32Const},
		{Op: wasm.OpBr, Branch: wasm.BranchLabel{TargetIndex: 0}},
		{Op: wasm.OpEnd},
		{Op: wasm.OpEnd},
	}

	err := c.Validate(instrs, nil, nil, []wasm.ValType{wasm.ValI32})
	require.Nil(t, err)

	br := instrs[2].Branch
	assert.Equal(t, uint32(1), br.StackEraseBegin)
	assert.Equal(t, uint32(1), br.StackEraseEnd)
	assert.Equal(t, int32(1), br.PCOffset)
}

func Test_Validate_localGet_writesStackOffset(t *testing.T) {
	ctx := NewContext()
	c := NewChecker(ctx, nil)

	instrs := []wasm.Instruction{
		{Op: wasm.OpLocalGet, TargetIndex: 0},
		{Op: wasm.OpDrop},
		{Op: wasm.OpEnd},
	}

	err := c.Validate(instrs, []wasm.ValType{wasm.ValI32, wasm.ValI32}, nil, nil)
	require.Nil(t, err)
	assert.Equal(t, uint32(2), instrs[0].StackOffset)
}

func Test_Validate_ifWithoutElseRequiresMatchingResult(t *testing.T) {
	ctx := NewContext()
	c := NewChecker(ctx, nil)

	// if (result i32) { i32.const } end -- no else, so the fall-through
	// (empty) path can't supply the declared i32 result.
	instrs := []wasm.Instruction{
		{Op: wasm.OpI32Const},
		{Op: wasm.OpIf, Block: wasm.BlockType{Kind: wasm.BlockTypeValue, ValType: wasm.ValI32}, JumpEnd: 2, JumpElse: 2},
		{Op: wasm.OpI32Const},
		{Op: wasm.OpEnd},
		{Op: wasm.OpDrop},
		{Op: wasm.OpEnd},
	}

	err := c.Validate(instrs, nil, nil, nil)
	require.NotNil(t, err)
	assert.Equal(t, wasm.ErrTypeCheckFailed, err.Code)
}

func Test_Validate_repeatedLocalSetInNestedBlockPreservesOuterInit(t *testing.T) {
	ctx := NewContext()
	c := NewChecker(ctx, nil)

	// param 0 is a non-nullable funcref, already initialized on entry. A
	// nested block reads and re-sets it to itself; ending the block must not
	// roll the local back to uninitialized, since it was never freshly
	// initialized inside the block in the first place.
	instrs := []wasm.Instruction{
		{Op: wasm.OpBlock, Block: wasm.BlockType{Kind: wasm.BlockTypeEmpty}, JumpEnd: 3},
		{Op: wasm.OpLocalGet, TargetIndex: 0},
		{Op: wasm.OpLocalSet, TargetIndex: 0},
		{Op: wasm.OpEnd},
		{Op: wasm.OpLocalGet, TargetIndex: 0},
		{Op: wasm.OpDrop},
		{Op: wasm.OpEnd},
	}

	err := c.Validate(instrs, []wasm.ValType{wasm.RefNonNull(wasm.FuncRef)}, nil, nil)
	require.Nil(t, err)
}

func Test_Validate_shuffleRejectsLaneIndexOutOfRange(t *testing.T) {
	ctx := NewContext()
	c := NewChecker(ctx, nil)

	shuffle := wasm.Instruction{Op: wasm.OpV128Shuffle}
	shuffle.ShuffleLanes[0] = 32 // valid lanes are 0-31

	instrs := []wasm.Instruction{
		{Op: wasm.OpV128Const},
		{Op: wasm.OpV128Const},
		shuffle,
		{Op: wasm.OpDrop},
		{Op: wasm.OpEnd},
	}

	err := c.Validate(instrs, nil, nil, nil)
	require.NotNil(t, err)
	assert.Equal(t, wasm.ErrInvalidLaneIdx, err.Code)
}

func Test_Validate_refAsNonNull_afterUnreachablePushesUnknown(t *testing.T) {
	ctx := NewContext()
	c := NewChecker(ctx, nil)

	// The popped reference is the Unknown sentinel, so the pushed result
	// must be Unknown too; otherwise the function's declared externref
	// result wouldn't match a concrete funcref the old code substituted.
	instrs := []wasm.Instruction{
		{Op: wasm.OpUnreachable},
		{Op: wasm.OpRefAsNonNull},
		{Op: wasm.OpEnd},
	}

	err := c.Validate(instrs, nil, nil, []wasm.ValType{wasm.RefNull(wasm.ExternRef)})
	require.Nil(t, err)
}

func Test_Validate_brOnNull_afterUnreachableShortCircuits(t *testing.T) {
	ctx := NewContext()
	c := NewChecker(ctx, nil)

	// Popping the Unknown sentinel must short-circuit br_on_null entirely:
	// no label check, no fixup, no pushes. Running the reachable path here
	// would push the branch target's types onto a frame that declares none,
	// leaving a leftover value at the function's own End.
	instrs := []wasm.Instruction{
		{Op: wasm.OpUnreachable},
		{Op: wasm.OpBrOnNull, Branch: wasm.BranchLabel{TargetIndex: 0}},
		{Op: wasm.OpEnd},
	}

	err := c.Validate(instrs, nil, nil, nil)
	require.Nil(t, err)
}

func Test_Validate_refNullRejectsOutOfRangeTypeIndex(t *testing.T) {
	ctx := NewContext()
	c := NewChecker(ctx, nil)

	instrs := []wasm.Instruction{
		{Op: wasm.OpRefNull, ValTypeImm: wasm.RefNullTypeIndex(0)},
		{Op: wasm.OpDrop},
		{Op: wasm.OpEnd},
	}

	err := c.Validate(instrs, nil, nil, nil)
	require.NotNil(t, err)
	assert.Equal(t, wasm.ErrInvalidFuncTypeIdx, err.Code)
}

func Test_Validate_valueStackHeightLimitRejectsDeepFunction(t *testing.T) {
	ctx := NewContext()
	cfg := NewConfig().WithMaxValueStackHeight(2)
	c := NewChecker(ctx, cfg)

	instrs := []wasm.Instruction{
		{Op: wasm.OpI32Const},
		{Op: wasm.OpI32Const},
		{Op: wasm.OpI32Const},
		{Op: wasm.OpDrop},
		{Op: wasm.OpDrop},
		{Op: wasm.OpDrop},
		{Op: wasm.OpEnd},
	}

	err := c.Validate(instrs, nil, nil, nil)
	require.NotNil(t, err)
	assert.Equal(t, wasm.ErrTypeCheckFailed, err.Code)
}

func Test_Validate_configuredRecursionDepthLimitAppliesDuringValidate(t *testing.T) {
	// Type 0 and type 1 are both nullary calls whose *result* is a reference
	// to another type index (2 and 3 respectively); types 2 and 3 are
	// themselves identical (nullary, no results). Matching type 0 against
	// type 1 is therefore only possible by recursing one level deeper into
	// types 2 and 3, which a depth limit of 1 is too shallow to reach.
	types := []wasm.FunctionType{
		{Results: []wasm.ValType{wasm.RefNullTypeIndex(2)}},
		{Results: []wasm.ValType{wasm.RefNullTypeIndex(3)}},
		{},
		{},
	}

	run := func(limit int) *wasm.CheckError {
		ctx := NewContext()
		for _, ft := range types {
			ctx.AddType(ft)
		}
		cfg := NewConfig().WithRecursionDepthLimit(limit)
		c := NewChecker(ctx, cfg)

		instrs := []wasm.Instruction{
			{Op: wasm.OpLocalGet, TargetIndex: 0},
			{Op: wasm.OpCallRef, TargetIndex: 1},
			{Op: wasm.OpDrop},
			{Op: wasm.OpEnd},
		}
		return c.Validate(instrs, []wasm.ValType{wasm.RefNullTypeIndex(0)}, nil, nil)
	}

	require.Nil(t, run(0))
	require.NotNil(t, run(1))
}

func Test_Checker_Reset_clearsPerFunctionState(t *testing.T) {
	ctx := NewContext()
	c := NewChecker(ctx, nil)

	ok := []wasm.Instruction{{Op: wasm.OpI32Const}, {Op: wasm.OpDrop}, {Op: wasm.OpEnd}}
	require.Nil(t, c.Validate(ok, nil, nil, nil))

	c.Reset(false)
	assert.Equal(t, 0, c.vals.len())
	assert.Equal(t, 0, c.ctrl.len())
}
