package formcheck

import "github.com/wasmkit/formcheck/wasm"

// isSIMDOp reports whether op belongs to the 0xFD-prefixed vector page. The
// prefix is flattened into the opcode's own value by the loader (see
// wasm.Opcode's doc comment), so this is a plain range check.
func isSIMDOp(op wasm.Opcode) bool {
	return op >= 0xFD00 && op <= 0xFDFF
}

// laneExtractReplace describes one extract_lane/replace_lane pair's scalar
// type and lane count, used to bound-check the lane immediate.
type laneShape struct {
	scalar    wasm.ValType
	laneCount uint32
	isReplace bool
}

var simdLaneOps = map[wasm.Opcode]laneShape{
	wasm.OpI8x16ExtractLaneS: {i32, 16, false},
	wasm.OpI8x16ExtractLaneU: {i32, 16, false},
	wasm.OpI8x16ReplaceLane:  {i32, 16, true},
	wasm.OpI16x8ExtractLaneS: {i32, 8, false},
	wasm.OpI16x8ExtractLaneU: {i32, 8, false},
	wasm.OpI16x8ReplaceLane:  {i32, 8, true},
	wasm.OpI32x4ExtractLane:  {i32, 4, false},
	wasm.OpI32x4ReplaceLane:  {i32, 4, true},
	wasm.OpI64x2ExtractLane:  {i64, 2, false},
	wasm.OpI64x2ReplaceLane:  {i64, 2, true},
	wasm.OpF32x4ExtractLane:  {f32, 4, false},
	wasm.OpF32x4ReplaceLane:  {f32, 4, true},
	wasm.OpF64x2ExtractLane:  {f64, 2, false},
	wasm.OpF64x2ReplaceLane:  {f64, 2, true},
}

var simdLoadStoreLaneOps = map[wasm.Opcode]struct {
	naturalBits uint32
	laneCount   uint32
	isStore     bool
}{
	wasm.OpV128Load8Lane:   {0, 16, false},
	wasm.OpV128Load16Lane:  {1, 8, false},
	wasm.OpV128Load32Lane:  {2, 4, false},
	wasm.OpV128Load64Lane:  {3, 2, false},
	wasm.OpV128Store8Lane:  {0, 16, true},
	wasm.OpV128Store16Lane: {1, 8, true},
	wasm.OpV128Store32Lane: {2, 4, true},
	wasm.OpV128Store64Lane: {3, 2, true},
}

var simdSplatOps = map[wasm.Opcode]wasm.ValType{
	wasm.OpI8x16Splat: i32,
	wasm.OpI16x8Splat: i32,
	wasm.OpI32x4Splat: i32,
	wasm.OpI64x2Splat: i64,
	wasm.OpF32x4Splat: f32,
	wasm.OpF64x2Splat: f64,
}

var simdTestOps = map[wasm.Opcode]bool{
	wasm.OpV128AnyTrue:  true,
	wasm.OpI8x16AllTrue: true,
	wasm.OpI8x16Bitmask: true,
	wasm.OpI16x8AllTrue: true,
	wasm.OpI16x8Bitmask: true,
	wasm.OpI32x4AllTrue: true,
	wasm.OpI32x4Bitmask: true,
	wasm.OpI64x2AllTrue: true,
	wasm.OpI64x2Bitmask: true,
}

// checkSIMD dispatches the vector instruction page. Most of it (the
// roughly two hundred lane-wise arithmetic opcodes: add/sub/mul/min/max/abs
// per lane shape) reduces to the same v128-in-v128-out or v128-in-v128-out
// shape and falls through to the generic case at the bottom; the
// instructions whose arity or operand types differ from that default each
// get their own table above.
func (c *Checker) checkSIMD(instr *wasm.Instruction) *wasm.CheckError {
	switch instr.Op {
	case wasm.OpV128Load:
		if c.ctx.Mems == 0 {
			return wasm.NewIndexErr(wasm.ErrInvalidMemoryIdx, wasm.CategoryMemory, 0, 0)
		}
		if instr.MemoryAlign > 4 {
			return wasm.NewErr(wasm.ErrInvalidAlignment, "alignment exceeds v128's natural width")
		}
		if _, err := c.vals.popExpect(wasm.ValI32); err != nil {
			return err
		}
		c.vals.push(Known(wasm.ValV128))
		return nil

	case wasm.OpV128Store:
		if c.ctx.Mems == 0 {
			return wasm.NewIndexErr(wasm.ErrInvalidMemoryIdx, wasm.CategoryMemory, 0, 0)
		}
		if instr.MemoryAlign > 4 {
			return wasm.NewErr(wasm.ErrInvalidAlignment, "alignment exceeds v128's natural width")
		}
		if _, err := c.vals.popExpect(wasm.ValV128); err != nil {
			return err
		}
		_, err := c.vals.popExpect(wasm.ValI32)
		return err

	case wasm.OpV128Const:
		c.vals.push(Known(wasm.ValV128))
		return nil

	case wasm.OpV128Shuffle:
		for _, lane := range instr.ShuffleLanes {
			if uint32(lane) >= 32 {
				return wasm.NewIndexErr(wasm.ErrInvalidLaneIdx, wasm.CategoryLane, uint32(lane), 32)
			}
		}
		if err := c.vals.popMany([]wasm.ValType{wasm.ValV128, wasm.ValV128}); err != nil {
			return err
		}
		c.vals.push(Known(wasm.ValV128))
		return nil
	}

	if shape, ok := simdLaneOps[instr.Op]; ok {
		if instr.MemoryLane >= shape.laneCount {
			return wasm.NewIndexErr(wasm.ErrInvalidLaneIdx, wasm.CategoryLane, instr.MemoryLane, shape.laneCount)
		}
		if shape.isReplace {
			if _, err := c.vals.popExpect(shape.scalar); err != nil {
				return err
			}
			if _, err := c.vals.popExpect(wasm.ValV128); err != nil {
				return err
			}
			c.vals.push(Known(wasm.ValV128))
			return nil
		}
		if _, err := c.vals.popExpect(wasm.ValV128); err != nil {
			return err
		}
		c.vals.push(Known(shape.scalar))
		return nil
	}

	if ls, ok := simdLoadStoreLaneOps[instr.Op]; ok {
		if c.ctx.Mems == 0 {
			return wasm.NewIndexErr(wasm.ErrInvalidMemoryIdx, wasm.CategoryMemory, 0, 0)
		}
		if instr.MemoryAlign > ls.naturalBits {
			return wasm.NewErr(wasm.ErrInvalidAlignment, "alignment exceeds the lane access's natural width")
		}
		if instr.MemoryLane >= ls.laneCount {
			return wasm.NewIndexErr(wasm.ErrInvalidLaneIdx, wasm.CategoryLane, instr.MemoryLane, ls.laneCount)
		}
		if ls.isStore {
			if _, err := c.vals.popExpect(wasm.ValV128); err != nil {
				return err
			}
			_, err := c.vals.popExpect(wasm.ValI32)
			return err
		}
		if _, err := c.vals.popExpect(wasm.ValV128); err != nil {
			return err
		}
		if _, err := c.vals.popExpect(wasm.ValI32); err != nil {
			return err
		}
		c.vals.push(Known(wasm.ValV128))
		return nil
	}

	if scalar, ok := simdSplatOps[instr.Op]; ok {
		if _, err := c.vals.popExpect(scalar); err != nil {
			return err
		}
		c.vals.push(Known(wasm.ValV128))
		return nil
	}

	if simdTestOps[instr.Op] {
		if _, err := c.vals.popExpect(wasm.ValV128); err != nil {
			return err
		}
		c.vals.push(Known(wasm.ValI32))
		return nil
	}

	// Generic lane-wise vector op: v128 in, v128 out, or v128,v128 in with
	// v128 out. Both shapes are safe to try in order since the second pop
	// reuses the unreachable-polymorphism path when the first already
	// exhausted the stack.
	saved := append([]VType(nil), c.vals.entries...)
	if err := c.vals.popMany([]wasm.ValType{wasm.ValV128, wasm.ValV128}); err == nil {
		c.vals.push(Known(wasm.ValV128))
		return nil
	}
	c.vals.entries = saved
	if _, err := c.vals.popExpect(wasm.ValV128); err != nil {
		return err
	}
	c.vals.push(Known(wasm.ValV128))
	return nil
}
