package formcheck

import "github.com/wasmkit/formcheck/wasm"

// memAccess describes one load or store opcode's stack effect and natural
// alignment, keyed by opcode the same way numericOps keys straight-line
// arithmetic: the dispatch table is the data, not a thicket of per-opcode
// functions.
type memAccess struct {
	valType     wasm.ValType
	naturalBits uint32 // log2 of the natural alignment in bytes
	isStore     bool
}

var memoryOps = map[wasm.Opcode]memAccess{
	wasm.OpI32Load:    {wasm.ValI32, 2, false},
	wasm.OpI64Load:    {wasm.ValI64, 3, false},
	wasm.OpF32Load:    {wasm.ValF32, 2, false},
	wasm.OpF64Load:    {wasm.ValF64, 3, false},
	wasm.OpI32Load8S:  {wasm.ValI32, 0, false},
	wasm.OpI32Load8U:  {wasm.ValI32, 0, false},
	wasm.OpI32Load16S: {wasm.ValI32, 1, false},
	wasm.OpI32Load16U: {wasm.ValI32, 1, false},
	wasm.OpI64Load8S:  {wasm.ValI64, 0, false},
	wasm.OpI64Load8U:  {wasm.ValI64, 0, false},
	wasm.OpI64Load16S: {wasm.ValI64, 1, false},
	wasm.OpI64Load16U: {wasm.ValI64, 1, false},
	wasm.OpI64Load32S: {wasm.ValI64, 2, false},
	wasm.OpI64Load32U: {wasm.ValI64, 2, false},
	wasm.OpI32Store:   {wasm.ValI32, 2, true},
	wasm.OpI64Store:   {wasm.ValI64, 3, true},
	wasm.OpF32Store:   {wasm.ValF32, 2, true},
	wasm.OpF64Store:   {wasm.ValF64, 3, true},
	wasm.OpI32Store8:  {wasm.ValI32, 0, true},
	wasm.OpI32Store16: {wasm.ValI32, 1, true},
	wasm.OpI64Store8:  {wasm.ValI64, 0, true},
	wasm.OpI64Store16: {wasm.ValI64, 1, true},
	wasm.OpI64Store32: {wasm.ValI64, 2, true},
}

func isMemoryOp(op wasm.Opcode) bool {
	_, ok := memoryOps[op]
	return ok
}

// checkMemoryAccess validates a load or store: a memory must exist, the
// declared alignment must not exceed the access's natural alignment (wider
// alignment than the value's own width is meaningless and rejected rather
// than silently clamped), and the value operand (for stores) or result (for
// loads) follows the memAccess table.
func (c *Checker) checkMemoryAccess(instr *wasm.Instruction) *wasm.CheckError {
	access := memoryOps[instr.Op]
	if c.ctx.Mems == 0 {
		return wasm.NewIndexErr(wasm.ErrInvalidMemoryIdx, wasm.CategoryMemory, 0, 0)
	}
	if instr.MemoryAlign > access.naturalBits {
		return wasm.NewErr(wasm.ErrInvalidAlignment, "alignment exceeds the access's natural width")
	}
	if access.isStore {
		if _, err := c.vals.popExpect(access.valType); err != nil {
			return err
		}
		_, err := c.vals.popExpect(wasm.ValI32)
		return err
	}
	if _, err := c.vals.popExpect(wasm.ValI32); err != nil {
		return err
	}
	c.vals.push(Known(access.valType))
	return nil
}

// checkMemoryMisc handles memory.size, memory.grow, memory.init,
// data.drop, memory.copy, and memory.fill.
func (c *Checker) checkMemoryMisc(instr *wasm.Instruction) *wasm.CheckError {
	if c.ctx.Mems == 0 && instr.Op != wasm.OpDataDrop {
		return wasm.NewIndexErr(wasm.ErrInvalidMemoryIdx, wasm.CategoryMemory, 0, 0)
	}
	switch instr.Op {
	case wasm.OpMemorySize:
		c.vals.push(Known(wasm.ValI32))
		return nil
	case wasm.OpMemoryGrow:
		if _, err := c.vals.popExpect(wasm.ValI32); err != nil {
			return err
		}
		c.vals.push(Known(wasm.ValI32))
		return nil
	case wasm.OpMemoryInit:
		if int(instr.TargetIndex) >= int(c.ctx.Datas) {
			return wasm.NewIndexErr(wasm.ErrInvalidDataIdx, wasm.CategoryData, instr.TargetIndex, c.ctx.Datas)
		}
		return c.vals.popMany([]wasm.ValType{wasm.ValI32, wasm.ValI32, wasm.ValI32})
	case wasm.OpDataDrop:
		if int(instr.TargetIndex) >= int(c.ctx.Datas) {
			return wasm.NewIndexErr(wasm.ErrInvalidDataIdx, wasm.CategoryData, instr.TargetIndex, c.ctx.Datas)
		}
		return nil
	case wasm.OpMemoryCopy:
		if instr.SourceIndex >= c.ctx.Mems {
			return wasm.NewIndexErr(wasm.ErrInvalidMemoryIdx, wasm.CategoryMemory, instr.SourceIndex, c.ctx.Mems)
		}
		return c.vals.popMany([]wasm.ValType{wasm.ValI32, wasm.ValI32, wasm.ValI32})
	case wasm.OpMemoryFill:
		return c.vals.popMany([]wasm.ValType{wasm.ValI32, wasm.ValI32, wasm.ValI32})
	default:
		return wasm.NewErr(wasm.ErrTypeCheckFailed, "unreachable memory opcode")
	}
}
