package formcheck

import "github.com/wasmkit/formcheck/wasm"

// checkSelect validates the untyped select: it requires its two value
// operands to be the same numeric or vector type (never reference types,
// which is exactly why select_t exists for those) and its condition to be
// i32.
func (c *Checker) checkSelect(instr *wasm.Instruction) *wasm.CheckError {
	if _, err := c.vals.popExpect(wasm.ValI32); err != nil {
		return err
	}
	b, err := c.vals.pop()
	if err != nil {
		return err
	}
	a, err := c.vals.pop()
	if err != nil {
		return err
	}
	result, mismatchErr := c.selectResult(a, b)
	if mismatchErr != nil {
		return mismatchErr
	}
	if result.Type.IsRefType() {
		return wasm.NewErr(wasm.ErrTypeCheckFailed, "select operands must not be reference types; use select with a type immediate")
	}
	c.vals.push(result)
	return nil
}

// checkSelectT validates the annotated select_t: the type immediate fixes
// the operand type up front (including reference types), so there is no
// inference to do beyond popping the condition and two matching operands.
func (c *Checker) checkSelectT(instr *wasm.Instruction) *wasm.CheckError {
	if len(instr.ValTypeList) != 1 {
		return wasm.NewErr(wasm.ErrInvalidResultArity, "select_t requires exactly one annotated type")
	}
	t := instr.ValTypeList[0]
	if err := c.ctx.ValidateValType(t); err != nil {
		return err
	}
	if _, err := c.vals.popExpect(wasm.ValI32); err != nil {
		return err
	}
	if _, err := c.vals.popExpect(t); err != nil {
		return err
	}
	if _, err := c.vals.popExpect(t); err != nil {
		return err
	}
	c.vals.push(Known(t))
	return nil
}

// selectResult reconciles select's two value operands, tolerating the
// Unknown sentinel on either or both sides the same way popExpect does.
func (c *Checker) selectResult(a, b VType) (VType, *wasm.CheckError) {
	switch {
	case a.Unknown && b.Unknown:
		return UnknownVType, nil
	case a.Unknown:
		return b, nil
	case b.Unknown:
		return a, nil
	case c.matcher.match(a.Type, b.Type):
		return a, nil
	case c.matcher.match(b.Type, a.Type):
		return b, nil
	default:
		return VType{}, wasm.NewMismatchErr([]wasm.ValType{a.Type}, []wasm.ValType{b.Type})
	}
}
