package formcheck

import "github.com/wasmkit/formcheck/wasm"

// resolveTable validates a table index and returns its element type.
func (c *Checker) resolveTable(idx uint32) (wasm.ValType, *wasm.CheckError) {
	if int(idx) >= len(c.ctx.Tables) {
		return wasm.ValType{}, wasm.NewIndexErr(wasm.ErrInvalidTableIdx, wasm.CategoryTable, idx, uint32(len(c.ctx.Tables)))
	}
	return c.ctx.Tables[idx], nil
}

// checkTableGetSet handles table.get and table.set, both indexed by an i32
// and operating on the table's declared element (reference) type.
func (c *Checker) checkTableGetSet(instr *wasm.Instruction) *wasm.CheckError {
	elem, err := c.resolveTable(instr.TargetIndex)
	if err != nil {
		return err
	}
	switch instr.Op {
	case wasm.OpTableGet:
		if _, err := c.vals.popExpect(wasm.ValI32); err != nil {
			return err
		}
		c.vals.push(Known(elem))
		return nil
	case wasm.OpTableSet:
		if _, err := c.vals.popExpect(elem); err != nil {
			return err
		}
		_, err := c.vals.popExpect(wasm.ValI32)
		return err
	default:
		return wasm.NewErr(wasm.ErrTypeCheckFailed, "unreachable table opcode")
	}
}

// checkTableMisc handles the bulk-table instructions: init, copy, grow,
// size, fill, and elem.drop.
func (c *Checker) checkTableMisc(instr *wasm.Instruction) *wasm.CheckError {
	switch instr.Op {
	case wasm.OpTableInit:
		elem, err := c.resolveTable(instr.TargetIndex)
		if err != nil {
			return err
		}
		if int(instr.SourceIndex) >= len(c.ctx.Elems) {
			return wasm.NewIndexErr(wasm.ErrInvalidElemIdx, wasm.CategoryElement, instr.SourceIndex, uint32(len(c.ctx.Elems)))
		}
		if !c.matcher.match(elem, c.ctx.Elems[instr.SourceIndex]) {
			return wasm.NewMismatchErr([]wasm.ValType{elem}, []wasm.ValType{c.ctx.Elems[instr.SourceIndex]})
		}
		return c.vals.popMany([]wasm.ValType{wasm.ValI32, wasm.ValI32, wasm.ValI32})

	case wasm.OpTableCopy:
		dst, err := c.resolveTable(instr.TargetIndex)
		if err != nil {
			return err
		}
		src, err := c.resolveTable(instr.SourceIndex)
		if err != nil {
			return err
		}
		if !c.matcher.match(dst, src) {
			return wasm.NewMismatchErr([]wasm.ValType{dst}, []wasm.ValType{src})
		}
		return c.vals.popMany([]wasm.ValType{wasm.ValI32, wasm.ValI32, wasm.ValI32})

	case wasm.OpTableGrow:
		elem, err := c.resolveTable(instr.TargetIndex)
		if err != nil {
			return err
		}
		if err := c.vals.popMany([]wasm.ValType{elem, wasm.ValI32}); err != nil {
			return err
		}
		c.vals.push(Known(wasm.ValI32))
		return nil

	case wasm.OpTableSize:
		if _, err := c.resolveTable(instr.TargetIndex); err != nil {
			return err
		}
		c.vals.push(Known(wasm.ValI32))
		return nil

	case wasm.OpTableFill:
		elem, err := c.resolveTable(instr.TargetIndex)
		if err != nil {
			return err
		}
		return c.vals.popMany([]wasm.ValType{wasm.ValI32, elem, wasm.ValI32})

	case wasm.OpElemDrop:
		if int(instr.TargetIndex) >= len(c.ctx.Elems) {
			return wasm.NewIndexErr(wasm.ErrInvalidElemIdx, wasm.CategoryElement, instr.TargetIndex, uint32(len(c.ctx.Elems)))
		}
		return nil

	default:
		return wasm.NewErr(wasm.ErrTypeCheckFailed, "unreachable table opcode")
	}
}
