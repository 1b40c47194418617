package formcheck

import "github.com/wasmkit/formcheck/wasm"

// checkRefInstr handles the four reference-producing/consuming instructions
// that don't fit the parametric/variable/table families: ref.null,
// ref.is_null, ref.func, and ref.as_non_null.
func (c *Checker) checkRefInstr(instr *wasm.Instruction) *wasm.CheckError {
	switch instr.Op {
	case wasm.OpRefNull:
		if err := c.ctx.ValidateValType(instr.ValTypeImm); err != nil {
			return err
		}
		c.vals.push(Known(instr.ValTypeImm))
		return nil
	case wasm.OpRefIsNull:
		if _, err := c.popRefType(); err != nil {
			return err
		}
		c.vals.push(Known(wasm.ValI32))
		return nil
	case wasm.OpRefFunc:
		return c.checkRefFunc(instr)
	case wasm.OpRefAsNonNull:
		ref, err := c.popRefType()
		if err != nil {
			return err
		}
		if ref.Unknown {
			c.vals.push(UnknownVType)
			return nil
		}
		c.vals.push(Known(ref.Type.AsNonNull()))
		return nil
	default:
		return wasm.NewErr(wasm.ErrTypeCheckFailed, "unreachable reference opcode")
	}
}

// checkRefFunc validates that the named function index exists and was
// declared as a reference somewhere in the module (an import, export,
// global initializer, or element segment) before this body may name it:
// ref.func may only close over functions the module has already committed
// to exposing as first-class values.
func (c *Checker) checkRefFunc(instr *wasm.Instruction) *wasm.CheckError {
	idx := instr.TargetIndex
	if int(idx) >= len(c.ctx.Funcs) {
		return wasm.NewIndexErr(wasm.ErrInvalidFuncIdx, wasm.CategoryFunction, idx, uint32(len(c.ctx.Funcs)))
	}
	if !c.ctx.hasRef(idx) {
		return wasm.NewIndexErr(wasm.ErrInvalidRefIdx, wasm.CategoryFunction, idx, uint32(len(c.ctx.Funcs)))
	}
	typeIdx := c.ctx.Funcs[idx]
	c.vals.push(Known(wasm.RefTypeIndex(typeIdx)))
	return nil
}
