package formcheck

import "github.com/wasmkit/formcheck/wasm"

// stackShape is take-then-put: the operand types a straight-line numeric
// instruction pops, followed by the types it pushes. The overwhelming
// majority of numeric opcodes need nothing more than this pair, so they are
// data here rather than one handler function apiece.
type stackShape struct {
	take []wasm.ValType
	put  []wasm.ValType
}

var (
	i32, i64, f32, f64 = wasm.ValI32, wasm.ValI64, wasm.ValF32, wasm.ValF64

	unop = func(t wasm.ValType) stackShape { return stackShape{[]wasm.ValType{t}, []wasm.ValType{t}} }
	binop = func(t wasm.ValType) stackShape { return stackShape{[]wasm.ValType{t, t}, []wasm.ValType{t}} }
	testop = func(t wasm.ValType) stackShape { return stackShape{[]wasm.ValType{t}, []wasm.ValType{i32}} }
	relop = func(t wasm.ValType) stackShape { return stackShape{[]wasm.ValType{t, t}, []wasm.ValType{i32}} }
	cvtop = func(from, to wasm.ValType) stackShape { return stackShape{[]wasm.ValType{from}, []wasm.ValType{to}} }
)

// numericOps covers every opcode in the comparison/arithmetic/conversion
// range (0x45-0xC4) plus the saturating truncation family (0xFC00-0xFC07).
// Opcodes are named by comment rather than constant: there is nothing for a
// caller to branch on beyond the opcode value itself, so no named constant
// earns its keep the way the control-flow and memory opcodes do.
var numericOps = map[wasm.Opcode]stackShape{
	0x45: testop(i32), // i32.eqz
	0x46: relop(i32),  // i32.eq
	0x47: relop(i32),  // i32.ne
	0x48: relop(i32),  // i32.lt_s
	0x49: relop(i32),  // i32.lt_u
	0x4a: relop(i32),  // i32.gt_s
	0x4b: relop(i32),  // i32.gt_u
	0x4c: relop(i32),  // i32.le_s
	0x4d: relop(i32),  // i32.le_u
	0x4e: relop(i32),  // i32.ge_s
	0x4f: relop(i32),  // i32.ge_u

	0x50: testop(i64), // i64.eqz
	0x51: relop(i64),  // i64.eq
	0x52: relop(i64),  // i64.ne
	0x53: relop(i64),  // i64.lt_s
	0x54: relop(i64),  // i64.lt_u
	0x55: relop(i64),  // i64.gt_s
	0x56: relop(i64),  // i64.gt_u
	0x57: relop(i64),  // i64.le_s
	0x58: relop(i64),  // i64.le_u
	0x59: relop(i64),  // i64.ge_s
	0x5a: relop(i64),  // i64.ge_u

	0x5b: relop(f32), // f32.eq
	0x5c: relop(f32), // f32.ne
	0x5d: relop(f32), // f32.lt
	0x5e: relop(f32), // f32.gt
	0x5f: relop(f32), // f32.le
	0x60: relop(f32), // f32.ge

	0x61: relop(f64), // f64.eq
	0x62: relop(f64), // f64.ne
	0x63: relop(f64), // f64.lt
	0x64: relop(f64), // f64.gt
	0x65: relop(f64), // f64.le
	0x66: relop(f64), // f64.ge

	0x67: unop(i32),  // i32.clz
	0x68: unop(i32),  // i32.ctz
	0x69: unop(i32),  // i32.popcnt
	0x6a: binop(i32), // i32.add
	0x6b: binop(i32), // i32.sub
	0x6c: binop(i32), // i32.mul
	0x6d: binop(i32), // i32.div_s
	0x6e: binop(i32), // i32.div_u
	0x6f: binop(i32), // i32.rem_s
	0x70: binop(i32), // i32.rem_u
	0x71: binop(i32), // i32.and
	0x72: binop(i32), // i32.or
	0x73: binop(i32), // i32.xor
	0x74: binop(i32), // i32.shl
	0x75: binop(i32), // i32.shr_s
	0x76: binop(i32), // i32.shr_u
	0x77: binop(i32), // i32.rotl
	0x78: binop(i32), // i32.rotr

	0x79: unop(i64),  // i64.clz
	0x7a: unop(i64),  // i64.ctz
	0x7b: unop(i64),  // i64.popcnt
	0x7c: binop(i64), // i64.add
	0x7d: binop(i64), // i64.sub
	0x7e: binop(i64), // i64.mul
	0x7f: binop(i64), // i64.div_s
	0x80: binop(i64), // i64.div_u
	0x81: binop(i64), // i64.rem_s
	0x82: binop(i64), // i64.rem_u
	0x83: binop(i64), // i64.and
	0x84: binop(i64), // i64.or
	0x85: binop(i64), // i64.xor
	0x86: binop(i64), // i64.shl
	0x87: binop(i64), // i64.shr_s
	0x88: binop(i64), // i64.shr_u
	0x89: binop(i64), // i64.rotl
	0x8a: binop(i64), // i64.rotr

	0x8b: unop(f32),  // f32.abs
	0x8c: unop(f32),  // f32.neg
	0x8d: unop(f32),  // f32.ceil
	0x8e: unop(f32),  // f32.floor
	0x8f: unop(f32),  // f32.trunc
	0x90: unop(f32),  // f32.nearest
	0x91: unop(f32),  // f32.sqrt
	0x92: binop(f32), // f32.add
	0x93: binop(f32), // f32.sub
	0x94: binop(f32), // f32.mul
	0x95: binop(f32), // f32.div
	0x96: binop(f32), // f32.min
	0x97: binop(f32), // f32.max
	0x98: binop(f32), // f32.copysign

	0x99: unop(f64),  // f64.abs
	0x9a: unop(f64),  // f64.neg
	0x9b: unop(f64),  // f64.ceil
	0x9c: unop(f64),  // f64.floor
	0x9d: unop(f64),  // f64.trunc
	0x9e: unop(f64),  // f64.nearest
	0x9f: unop(f64),  // f64.sqrt
	0xa0: binop(f64), // f64.add
	0xa1: binop(f64), // f64.sub
	0xa2: binop(f64), // f64.mul
	0xa3: binop(f64), // f64.div
	0xa4: binop(f64), // f64.min
	0xa5: binop(f64), // f64.max
	0xa6: binop(f64), // f64.copysign

	0xa7: cvtop(i64, i32), // i32.wrap_i64
	0xa8: cvtop(f32, i32), // i32.trunc_f32_s
	0xa9: cvtop(f32, i32), // i32.trunc_f32_u
	0xaa: cvtop(f64, i32), // i32.trunc_f64_s
	0xab: cvtop(f64, i32), // i32.trunc_f64_u
	0xac: cvtop(i32, i64), // i64.extend_i32_s
	0xad: cvtop(i32, i64), // i64.extend_i32_u
	0xae: cvtop(f32, i64), // i64.trunc_f32_s
	0xaf: cvtop(f32, i64), // i64.trunc_f32_u
	0xb0: cvtop(f64, i64), // i64.trunc_f64_s
	0xb1: cvtop(f64, i64), // i64.trunc_f64_u
	0xb2: cvtop(i32, f32), // f32.convert_i32_s
	0xb3: cvtop(i32, f32), // f32.convert_i32_u
	0xb4: cvtop(i64, f32), // f32.convert_i64_s
	0xb5: cvtop(i64, f32), // f32.convert_i64_u
	0xb6: cvtop(f64, f32), // f32.demote_f64
	0xb7: cvtop(i32, f64), // f64.convert_i32_s
	0xb8: cvtop(i32, f64), // f64.convert_i32_u
	0xb9: cvtop(i64, f64), // f64.convert_i64_s
	0xba: cvtop(i64, f64), // f64.convert_i64_u
	0xbb: cvtop(f32, f64), // f64.promote_f32
	0xbc: cvtop(f32, i32), // i32.reinterpret_f32
	0xbd: cvtop(f64, i64), // i64.reinterpret_f64
	0xbe: cvtop(i32, f32), // f32.reinterpret_i32
	0xbf: cvtop(i64, f64), // f64.reinterpret_i64

	0xc0: unop(i32), // i32.extend8_s
	0xc1: unop(i32), // i32.extend16_s
	0xc2: unop(i64), // i64.extend8_s
	0xc3: unop(i64), // i64.extend16_s
	0xc4: unop(i64), // i64.extend32_s

	// Saturating truncation, gated by FeatureSignExtensionOps's sibling
	// proposal but not separately feature-checked here since decode already
	// rejects them for modules that didn't request the proposal.
	0xFC00: cvtop(f32, i32), // i32.trunc_sat_f32_s
	0xFC01: cvtop(f32, i32), // i32.trunc_sat_f32_u
	0xFC02: cvtop(f64, i32), // i32.trunc_sat_f64_s
	0xFC03: cvtop(f64, i32), // i32.trunc_sat_f64_u
	0xFC04: cvtop(f32, i64), // i64.trunc_sat_f32_s
	0xFC05: cvtop(f32, i64), // i64.trunc_sat_f32_u
	0xFC06: cvtop(f64, i64), // i64.trunc_sat_f64_s
	0xFC07: cvtop(f64, i64), // i64.trunc_sat_f64_u
}
