package wasm

// Opcode identifies a single WebAssembly instruction. Values follow the
// upstream WebAssembly binary encoding so that a decoder can hand this
// package its bytes directly; multi-byte encodings (the 0xFC/0xFD/0xFE
// prefixed pages) are flattened into their own contiguous ranges here since
// the prefix byte itself carries no checking-relevant information once
// decoded.
type Opcode uint16

const (
	OpUnreachable Opcode = 0x00
	OpNop         Opcode = 0x01
	OpBlock       Opcode = 0x02
	OpLoop        Opcode = 0x03
	OpIf          Opcode = 0x04
	OpElse        Opcode = 0x05
	OpEnd         Opcode = 0x0B
	OpBr          Opcode = 0x0C
	OpBrIf        Opcode = 0x0D
	OpBrTable     Opcode = 0x0E
	OpReturn      Opcode = 0x0F
	OpCall        Opcode = 0x10
	OpCallIndirect Opcode = 0x11

	OpReturnCall         Opcode = 0x12
	OpReturnCallIndirect Opcode = 0x13
	OpCallRef            Opcode = 0x14
	OpReturnCallRef       Opcode = 0x15

	OpBrOnNull    Opcode = 0xD5
	OpBrOnNonNull Opcode = 0xD6

	OpDrop     Opcode = 0x1A
	OpSelect   Opcode = 0x1B
	OpSelectT  Opcode = 0x1C

	OpLocalGet  Opcode = 0x20
	OpLocalSet  Opcode = 0x21
	OpLocalTee  Opcode = 0x22
	OpGlobalGet Opcode = 0x23
	OpGlobalSet Opcode = 0x24

	OpTableGet  Opcode = 0x25
	OpTableSet  Opcode = 0x26

	OpRefNull     Opcode = 0xD0
	OpRefIsNull   Opcode = 0xD1
	OpRefFunc     Opcode = 0xD2
	OpRefAsNonNull Opcode = 0xD4

	OpI32Load    Opcode = 0x28
	OpI64Load    Opcode = 0x29
	OpF32Load    Opcode = 0x2A
	OpF64Load    Opcode = 0x2B
	OpI32Load8S  Opcode = 0x2C
	OpI32Load8U  Opcode = 0x2D
	OpI32Load16S Opcode = 0x2E
	OpI32Load16U Opcode = 0x2F
	OpI64Load8S  Opcode = 0x30
	OpI64Load8U  Opcode = 0x31
	OpI64Load16S Opcode = 0x32
	OpI64Load16U Opcode = 0x33
	OpI64Load32S Opcode = 0x34
	OpI64Load32U Opcode = 0x35
	OpI32Store   Opcode = 0x36
	OpI64Store   Opcode = 0x37
	OpF32Store   Opcode = 0x38
	OpF64Store   Opcode = 0x39
	OpI32Store8  Opcode = 0x3A
	OpI32Store16 Opcode = 0x3B
	OpI64Store8  Opcode = 0x3C
	OpI64Store16 Opcode = 0x3D
	OpI64Store32 Opcode = 0x3E
	OpMemorySize Opcode = 0x3F
	OpMemoryGrow Opcode = 0x40

	OpI32Const Opcode = 0x41
	OpI64Const Opcode = 0x42
	OpF32Const Opcode = 0x43
	OpF64Const Opcode = 0x44

	// Numeric ops 0x45-0xC4 and the saturating truncations 0xFC00-0xFC07 are
	// handled by a data table (numericOps) rather than individual constants;
	// see formcheck/numeric.go.

	OpMemoryInit Opcode = 0xFC08
	OpDataDrop   Opcode = 0xFC09
	OpMemoryCopy Opcode = 0xFC0A
	OpMemoryFill Opcode = 0xFC0B
	OpTableInit  Opcode = 0xFC0C
	OpElemDrop   Opcode = 0xFC0D
	OpTableCopy  Opcode = 0xFC0E
	OpTableGrow  Opcode = 0xFC0F
	OpTableSize  Opcode = 0xFC10
	OpTableFill  Opcode = 0xFC11

	OpV128Load   Opcode = 0xFD00
	OpV128Store  Opcode = 0xFD0B
	OpV128Const  Opcode = 0xFD0C
	OpV128Shuffle Opcode = 0xFD0D

	OpV128Load8Lane  Opcode = 0xFD54
	OpV128Load16Lane Opcode = 0xFD55
	OpV128Load32Lane Opcode = 0xFD56
	OpV128Load64Lane Opcode = 0xFD57
	OpV128Store8Lane  Opcode = 0xFD58
	OpV128Store16Lane Opcode = 0xFD59
	OpV128Store32Lane Opcode = 0xFD5A
	OpV128Store64Lane Opcode = 0xFD5B

	OpI8x16ExtractLaneS Opcode = 0xFD15
	OpI8x16ExtractLaneU Opcode = 0xFD16
	OpI8x16ReplaceLane  Opcode = 0xFD17
	OpI16x8ExtractLaneS Opcode = 0xFD18
	OpI16x8ExtractLaneU Opcode = 0xFD19
	OpI16x8ReplaceLane  Opcode = 0xFD1A
	OpI32x4ExtractLane  Opcode = 0xFD1B
	OpI32x4ReplaceLane  Opcode = 0xFD1C
	OpI64x2ExtractLane  Opcode = 0xFD1D
	OpI64x2ReplaceLane  Opcode = 0xFD1E
	OpF32x4ExtractLane  Opcode = 0xFD1F
	OpF32x4ReplaceLane  Opcode = 0xFD20
	OpF64x2ExtractLane  Opcode = 0xFD21
	OpF64x2ReplaceLane  Opcode = 0xFD22

	OpI8x16Splat Opcode = 0xFD0F
	OpI16x8Splat Opcode = 0xFD10
	OpI32x4Splat Opcode = 0xFD11
	OpI64x2Splat Opcode = 0xFD12
	OpF32x4Splat Opcode = 0xFD13
	OpF64x2Splat Opcode = 0xFD14

	OpV128AnyTrue    Opcode = 0xFD53
	OpI8x16AllTrue   Opcode = 0xFD63
	OpI8x16Bitmask   Opcode = 0xFD64
	OpI16x8AllTrue   Opcode = 0xFD83
	OpI16x8Bitmask   Opcode = 0xFD84
	OpI32x4AllTrue   Opcode = 0xFDA3
	OpI32x4Bitmask   Opcode = 0xFDA4
	OpI64x2AllTrue   Opcode = 0xFDC3
	OpI64x2Bitmask   Opcode = 0xFDC4

	OpMemoryAtomicNotify   Opcode = 0xFE00
	OpMemoryAtomicWait32   Opcode = 0xFE01
	OpMemoryAtomicWait64   Opcode = 0xFE02
	OpAtomicFence          Opcode = 0xFE03

	OpI32AtomicLoad    Opcode = 0xFE10
	OpI64AtomicLoad    Opcode = 0xFE11
	OpI32AtomicLoad8U  Opcode = 0xFE12
	OpI32AtomicLoad16U Opcode = 0xFE13
	OpI64AtomicLoad8U  Opcode = 0xFE14
	OpI64AtomicLoad16U Opcode = 0xFE15
	OpI64AtomicLoad32U Opcode = 0xFE16
	OpI32AtomicStore    Opcode = 0xFE17
	OpI64AtomicStore    Opcode = 0xFE18
	OpI32AtomicStore8   Opcode = 0xFE19
	OpI32AtomicStore16  Opcode = 0xFE1A
	OpI64AtomicStore8   Opcode = 0xFE1B
	OpI64AtomicStore16  Opcode = 0xFE1C
	OpI64AtomicStore32  Opcode = 0xFE1D

	OpI32AtomicRmwAdd Opcode = 0xFE1E
	OpI64AtomicRmwAdd Opcode = 0xFE1F
)

// BlockTypeKind distinguishes the three ways a block/loop/if's type may be
// encoded.
type BlockTypeKind byte

const (
	BlockTypeEmpty BlockTypeKind = iota
	BlockTypeValue
	BlockTypeIndex
)

// BlockType is the decoded immediate of block/loop/if, before resolution
// against the module's type table.
type BlockType struct {
	Kind     BlockTypeKind
	ValType  ValType
	TypeIdx  uint32
}

// BranchLabel is one entry of a br_table's label list, or the single target
// of br/br_if/br_on_null/br_on_non_null. TargetIndex is the relative label
// depth as encoded in the binary; the three Stack* fields are written by the
// checker as its fixup output for the execution engine.
type BranchLabel struct {
	TargetIndex uint32

	StackEraseBegin uint32
	StackEraseEnd   uint32
	PCOffset        int32
}

// Instruction is a single decoded WebAssembly instruction together with
// whatever immediates its opcode requires. Decoding (leb128, section
// layout, proposal gating) happens upstream; this package only ever reads
// immediates that are already present, and writes back the branch fixups
// (Branch, Labels) and StackOffset the form checker computes.
type Instruction struct {
	Op     Opcode
	Offset uint32

	Block BlockType

	// Branch is used by br, br_if, br_on_null, br_on_non_null.
	Branch BranchLabel
	// Labels is used by br_table: all but the last entry are the jump
	// table, the last is the default target.
	Labels []BranchLabel

	TargetIndex uint32 // call/call_indirect/call_ref/local.*/global.*/table.*/ref.func/etc.
	SourceIndex uint32 // call_indirect's table operand, table.{init,copy}'s second index, memory.copy's source memory

	MemoryAlign uint32
	MemoryLane  uint32

	// ShuffleLanes is v128.shuffle's 16-byte immediate: each entry selects
	// one byte, 0-31, from the two popped v128 operands laid end to end.
	ShuffleLanes [16]byte

	ValTypeImm  ValType   // ref.null
	ValTypeList []ValType // select_t's full annotated list, for arity checking

	// StackOffset is written by local.get/set/tee for the engine's slot
	// addressing; see Checker.checkLocalInstr.
	StackOffset uint32

	// JumpEnd/JumpElse are the forward distances (in instruction count,
	// like Branch.PCOffset) from a block/if instruction to its matching
	// end/else, precomputed by the loader.
	JumpEnd  int32
	JumpElse int32
}
