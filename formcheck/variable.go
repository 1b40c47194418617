package formcheck

import "github.com/wasmkit/formcheck/wasm"

// checkLocalInstr handles local.get, local.set, and local.tee. get requires
// the slot to already be initialized; set and tee mark it initialized as a
// side effect of writing it, the same way an assignment makes a variable
// live in a dataflow analysis.
func (c *Checker) checkLocalInstr(instr *wasm.Instruction) *wasm.CheckError {
	slot, err := c.locals.get(instr.TargetIndex)
	if err != nil {
		return err
	}
	instr.StackOffset = uint32(c.vals.len()) + (uint32(c.locals.len()) - instr.TargetIndex)
	switch instr.Op {
	case wasm.OpLocalGet:
		if !slot.IsInit {
			return wasm.NewIndexErr(wasm.ErrInvalidUninitLocal, wasm.CategoryLocal, instr.TargetIndex, uint32(c.locals.len()))
		}
		c.vals.push(Known(slot.Type))
		return nil
	case wasm.OpLocalSet:
		if _, err := c.vals.popExpect(slot.Type); err != nil {
			return err
		}
		c.locals.markInit(instr.TargetIndex)
		return nil
	case wasm.OpLocalTee:
		got, err := c.vals.popExpect(slot.Type)
		if err != nil {
			return err
		}
		c.locals.markInit(instr.TargetIndex)
		c.vals.push(got)
		return nil
	default:
		return wasm.NewErr(wasm.ErrTypeCheckFailed, "unreachable local opcode")
	}
}

// checkGlobalInstr handles global.get and global.set. set additionally
// requires the global to have been declared mutable.
func (c *Checker) checkGlobalInstr(instr *wasm.Instruction) *wasm.CheckError {
	idx := instr.TargetIndex
	if int(idx) >= len(c.ctx.Globals) {
		return wasm.NewIndexErr(wasm.ErrInvalidGlobalIdx, wasm.CategoryGlobal, idx, uint32(len(c.ctx.Globals)))
	}
	g := c.ctx.Globals[idx]
	switch instr.Op {
	case wasm.OpGlobalGet:
		c.vals.push(Known(g.ValType))
		return nil
	case wasm.OpGlobalSet:
		if g.Mutability != wasm.Var {
			return wasm.NewIndexErr(wasm.ErrImmutableGlobal, wasm.CategoryGlobal, idx, uint32(len(c.ctx.Globals)))
		}
		_, err := c.vals.popExpect(g.ValType)
		return err
	default:
		return wasm.NewErr(wasm.ErrTypeCheckFailed, "unreachable global opcode")
	}
}
