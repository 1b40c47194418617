package formcheck

import "github.com/wasmkit/formcheck/wasm"

// isAtomicOp reports whether op belongs to the 0xFE-prefixed atomics page.
func isAtomicOp(op wasm.Opcode) bool {
	return op >= 0xFE00 && op <= 0xFEFF
}

// atomicAccess mirrors memAccess for the atomic memory instructions: the
// natural alignment for an atomic access is always exactly its width, never
// looser, since unaligned atomics are not representable in hardware.
type atomicAccess struct {
	valType     wasm.ValType
	naturalBits uint32
	isStore     bool
	isRMW       bool
}

var atomicOps = map[wasm.Opcode]atomicAccess{
	wasm.OpI32AtomicLoad:    {i32, 2, false, false},
	wasm.OpI64AtomicLoad:    {i64, 3, false, false},
	wasm.OpI32AtomicLoad8U:  {i32, 0, false, false},
	wasm.OpI32AtomicLoad16U: {i32, 1, false, false},
	wasm.OpI64AtomicLoad8U:  {i64, 0, false, false},
	wasm.OpI64AtomicLoad16U: {i64, 1, false, false},
	wasm.OpI64AtomicLoad32U: {i64, 2, false, false},
	wasm.OpI32AtomicStore:   {i32, 2, true, false},
	wasm.OpI64AtomicStore:   {i64, 3, true, false},
	wasm.OpI32AtomicStore8:  {i32, 0, true, false},
	wasm.OpI32AtomicStore16: {i32, 1, true, false},
	wasm.OpI64AtomicStore8:  {i64, 0, true, false},
	wasm.OpI64AtomicStore16: {i64, 1, true, false},
	wasm.OpI64AtomicStore32: {i64, 2, true, false},
	wasm.OpI32AtomicRmwAdd:  {i32, 2, false, true},
	wasm.OpI64AtomicRmwAdd:  {i64, 3, false, true},
}

// checkAtomic validates memory.atomic.notify/wait, atomic.fence, and the
// atomic load/store/read-modify-write family from atomicOps. Every atomic
// memory access requires alignment to equal (not merely not-exceed) its
// natural width.
func (c *Checker) checkAtomic(instr *wasm.Instruction) *wasm.CheckError {
	switch instr.Op {
	case wasm.OpAtomicFence:
		return nil
	case wasm.OpMemoryAtomicNotify:
		if c.ctx.Mems == 0 {
			return wasm.NewIndexErr(wasm.ErrInvalidMemoryIdx, wasm.CategoryMemory, 0, 0)
		}
		if instr.MemoryAlign != 2 {
			return wasm.NewErr(wasm.ErrInvalidAlignment, "atomic access requires exactly its natural alignment")
		}
		if err := c.vals.popMany([]wasm.ValType{wasm.ValI32, wasm.ValI32}); err != nil {
			return err
		}
		c.vals.push(Known(wasm.ValI32))
		return nil
	case wasm.OpMemoryAtomicWait32:
		if c.ctx.Mems != 0 && instr.MemoryAlign != 2 {
			return wasm.NewErr(wasm.ErrInvalidAlignment, "atomic access requires exactly its natural alignment")
		}
		return c.checkAtomicWait(wasm.ValI32)
	case wasm.OpMemoryAtomicWait64:
		if c.ctx.Mems != 0 && instr.MemoryAlign != 3 {
			return wasm.NewErr(wasm.ErrInvalidAlignment, "atomic access requires exactly its natural alignment")
		}
		return c.checkAtomicWait(wasm.ValI64)
	}

	access, ok := atomicOps[instr.Op]
	if !ok {
		return wasm.NewErr(wasm.ErrTypeCheckFailed, "unrecognized atomic opcode")
	}
	if c.ctx.Mems == 0 {
		return wasm.NewIndexErr(wasm.ErrInvalidMemoryIdx, wasm.CategoryMemory, 0, 0)
	}
	if instr.MemoryAlign != access.naturalBits {
		return wasm.NewErr(wasm.ErrInvalidAlignment, "atomic access requires exactly its natural alignment")
	}
	switch {
	case access.isStore:
		if _, err := c.vals.popExpect(access.valType); err != nil {
			return err
		}
		_, err := c.vals.popExpect(wasm.ValI32)
		return err
	case access.isRMW:
		if err := c.vals.popMany([]wasm.ValType{wasm.ValI32, access.valType}); err != nil {
			return err
		}
		c.vals.push(Known(access.valType))
		return nil
	default:
		if _, err := c.vals.popExpect(wasm.ValI32); err != nil {
			return err
		}
		c.vals.push(Known(access.valType))
		return nil
	}
}

func (c *Checker) checkAtomicWait(expected wasm.ValType) *wasm.CheckError {
	if c.ctx.Mems == 0 {
		return wasm.NewIndexErr(wasm.ErrInvalidMemoryIdx, wasm.CategoryMemory, 0, 0)
	}
	if err := c.vals.popMany([]wasm.ValType{wasm.ValI32, expected, wasm.ValI64}); err != nil {
		return err
	}
	c.vals.push(Known(wasm.ValI32))
	return nil
}
