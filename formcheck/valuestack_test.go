package formcheck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wasmkit/formcheck/wasm"
)

func newTestValueStack() (*valueStack, *ctrlStack) {
	ctrl := newCtrlStack()
	m := newMatcher()
	vals := newValueStack(ctrl, m)
	locals := newLocalEnv()
	ctrl.vals = vals
	ctrl.locals = locals
	ctrl.pushCtrl(nil, nil, 0, wasm.OpBlock)
	return vals, ctrl
}

func Test_valueStack_pushPop(t *testing.T) {
	vals, _ := newTestValueStack()
	vals.push(Known(wasm.ValI32))
	got, err := vals.pop()
	require.Nil(t, err)
	assert.Equal(t, wasm.ValI32, got.Type)
	assert.False(t, got.Unknown)
}

func Test_valueStack_pop_underflowWhenReachable(t *testing.T) {
	vals, _ := newTestValueStack()
	_, err := vals.pop()
	require.NotNil(t, err)
	assert.Equal(t, wasm.ErrTypeCheckFailed, err.Code)
}

func Test_valueStack_pop_unknownWhenUnreachable(t *testing.T) {
	vals, ctrl := newTestValueStack()
	ctrl.unreachable()
	got, err := vals.pop()
	require.Nil(t, err)
	assert.True(t, got.Unknown)
}

func Test_valueStack_popExpect_unknownSatisfiesAnyType(t *testing.T) {
	vals, ctrl := newTestValueStack()
	ctrl.unreachable()
	got, err := vals.popExpect(wasm.ValF64)
	require.Nil(t, err)
	assert.Equal(t, wasm.ValF64, got.Type)
}

func Test_valueStack_popMany_orderIsBottomUp(t *testing.T) {
	vals, _ := newTestValueStack()
	vals.pushValTypes([]wasm.ValType{wasm.ValI32, wasm.ValI64})
	err := vals.popMany([]wasm.ValType{wasm.ValI32, wasm.ValI64})
	require.Nil(t, err)
	assert.Equal(t, 0, vals.len())
}

func Test_valueStack_truncateTo(t *testing.T) {
	vals, _ := newTestValueStack()
	vals.pushValTypes([]wasm.ValType{wasm.ValI32, wasm.ValI64, wasm.ValF32})
	vals.truncateTo(1)
	assert.Equal(t, 1, vals.len())
}

func Test_localEnv_rollbackUndoesInitSinceHeight(t *testing.T) {
	e := newLocalEnv()
	e.add(wasm.RefNonNull(wasm.FuncRef), false) // not defaultable
	e.add(wasm.RefNonNull(wasm.FuncRef), false)

	height := uint32(len(e.inits))
	e.markInit(0)
	e.markInit(1)

	slot0, _ := e.get(0)
	slot1, _ := e.get(1)
	assert.True(t, slot0.IsInit)
	assert.True(t, slot1.IsInit)

	e.rollback(height)

	slot0, _ = e.get(0)
	slot1, _ = e.get(1)
	assert.False(t, slot0.IsInit)
	assert.False(t, slot1.IsInit)
}

func Test_localEnv_get_outOfRange(t *testing.T) {
	e := newLocalEnv()
	e.add(wasm.ValI32, true)
	_, err := e.get(5)
	require.NotNil(t, err)
	assert.Equal(t, wasm.ErrInvalidLocalIdx, err.Code)
}

func Test_Features_SetAndIsEnabled(t *testing.T) {
	f := FeaturesMVP
	assert.False(t, f.IsEnabled(FeatureSIMD))

	f = f.Set(FeatureSIMD, true)
	assert.True(t, f.IsEnabled(FeatureSIMD))
	assert.False(t, f.IsEnabled(FeatureTailCall))

	f = f.Set(FeatureSIMD, false)
	assert.False(t, f.IsEnabled(FeatureSIMD))
}

func Test_Config_WithChaining_doesNotMutateBase(t *testing.T) {
	base := NewConfig()
	derived := base.WithFeatures(FeaturesAll).WithMaxValueStackHeight(128)

	assert.Equal(t, FeaturesMVP, base.enabledFeatures)
	assert.Equal(t, FeaturesAll, derived.enabledFeatures)
	assert.Equal(t, uint32(128), derived.maxValueStackHeight)
	assert.NotEqual(t, base.maxValueStackHeight, derived.maxValueStackHeight)
}

func Test_Config_WithLogger_nilBecomesNoop(t *testing.T) {
	cfg := NewConfig().WithLogger(nil)
	_, isNoop := cfg.logger.(noopLogger)
	assert.True(t, isNoop)
}
