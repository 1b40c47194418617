package formcheck

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/wasmkit/formcheck/wasm"
)

// Fixture is the JSON shape the cmd/formcheck CLI loads module and
// function-body data from. It exists because this
// package deliberately stops short of decoding the WebAssembly binary
// format (see SPEC_FULL.md §10.5); a fixture is how a caller hands the
// checker already-decoded data without writing a decoder of their own.
type Fixture struct {
	Types   []FixtureFuncType `json:"types"`
	Funcs   []FixtureFuncDecl  `json:"funcs"`
	Tables  []string           `json:"tables"`
	Mems    uint32             `json:"mems"`
	Globals []FixtureGlobal    `json:"globals"`
	Datas   uint32             `json:"datas"`
	Elems   []string           `json:"elems"`
	Refs    []uint32           `json:"refs"`

	Bodies []FixtureBody `json:"bodies"`
}

type FixtureFuncType struct {
	Params  []string `json:"params"`
	Results []string `json:"results"`
}

type FixtureFuncDecl struct {
	TypeIndex uint32 `json:"type_index"`
	IsImport  bool   `json:"is_import"`
}

type FixtureGlobal struct {
	ValType  string `json:"val_type"`
	Mutable  bool   `json:"mutable"`
	IsImport bool   `json:"is_import"`
}

// FixtureBody is one function body to validate: its own params/locals are
// listed explicitly rather than re-derived from Funcs[FuncIndex].TypeIndex,
// since a fixture can also describe bodies in isolation from a full
// module.
type FixtureBody struct {
	FuncIndex uint32            `json:"func_index"`
	Params    []string          `json:"params"`
	Locals    []string          `json:"locals"`
	Results   []string          `json:"results"`
	Body      []FixtureInstr    `json:"body"`
}

type FixtureInstr struct {
	Op     uint16 `json:"op"`
	Offset uint32 `json:"offset"`

	BlockKind string `json:"block_kind,omitempty"` // "empty", "value", "index"
	BlockVal  string `json:"block_val,omitempty"`
	BlockType uint32 `json:"block_type,omitempty"`

	// JumpEnd/JumpElse are the forward distances, in instruction count, from
	// a block/loop/if to its matching end/else. A fixture stands in for a
	// decoder that would otherwise precompute these from the binary's
	// structured control encoding, so it must supply them itself.
	JumpEnd  int32 `json:"jump_end,omitempty"`
	JumpElse int32 `json:"jump_else,omitempty"`

	Branch      *uint32  `json:"branch,omitempty"`
	Labels      []uint32 `json:"labels,omitempty"`
	TargetIndex uint32   `json:"target_index,omitempty"`
	SourceIndex uint32   `json:"source_index,omitempty"`

	MemoryAlign uint32 `json:"memory_align,omitempty"`
	MemoryLane  uint32 `json:"memory_lane,omitempty"`

	// ShuffleLanes is v128.shuffle's 16-entry lane-selection immediate. A
	// fixture author supplies all 16 or none; a partial list is an error
	// since the binary encoding has no shorthand for it.
	ShuffleLanes []uint32 `json:"shuffle_lanes,omitempty"`

	ValTypeImm  string   `json:"val_type_imm,omitempty"`
	ValTypeList []string `json:"val_type_list,omitempty"`
}

// DecodeFixture parses raw JSON into a Fixture.
func DecodeFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	return &f, nil
}

// BuildContext populates a fresh Context from the fixture's module-level
// declarations.
func (f *Fixture) BuildContext() (*Context, error) {
	ctx := NewContext()
	for _, t := range f.Types {
		params, err := parseValTypes(t.Params)
		if err != nil {
			return nil, err
		}
		results, err := parseValTypes(t.Results)
		if err != nil {
			return nil, err
		}
		ctx.AddType(wasm.FunctionType{Params: params, Results: results})
	}
	for _, fn := range f.Funcs {
		ctx.AddFunc(fn.TypeIndex, fn.IsImport)
	}
	for _, t := range f.Tables {
		elem, err := parseValType(t)
		if err != nil {
			return nil, err
		}
		ctx.AddTable(elem)
	}
	for i := uint32(0); i < f.Mems; i++ {
		ctx.AddMemory()
	}
	for _, g := range f.Globals {
		vt, err := parseValType(g.ValType)
		if err != nil {
			return nil, err
		}
		mut := wasm.Const
		if g.Mutable {
			mut = wasm.Var
		}
		ctx.AddGlobal(wasm.GlobalType{ValType: vt, Mutability: mut}, g.IsImport)
	}
	for i := uint32(0); i < f.Datas; i++ {
		ctx.AddData()
	}
	for _, e := range f.Elems {
		elem, err := parseValType(e)
		if err != nil {
			return nil, err
		}
		ctx.AddElem(elem)
	}
	for _, r := range f.Refs {
		ctx.AddRef(r)
	}
	return ctx, nil
}

// Instructions decodes one FixtureBody's instruction list into
// wasm.Instruction values ready for Checker.Validate.
func (b *FixtureBody) Instructions() ([]wasm.Instruction, error) {
	out := make([]wasm.Instruction, len(b.Body))
	for i, fi := range b.Body {
		instr, err := fi.toInstruction()
		if err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
		out[i] = instr
	}
	return out, nil
}

func (fi FixtureInstr) toInstruction() (wasm.Instruction, error) {
	instr := wasm.Instruction{
		Op:          wasm.Opcode(fi.Op),
		Offset:      fi.Offset,
		TargetIndex: fi.TargetIndex,
		SourceIndex: fi.SourceIndex,
		MemoryAlign: fi.MemoryAlign,
		MemoryLane:  fi.MemoryLane,
		JumpEnd:     fi.JumpEnd,
		JumpElse:    fi.JumpElse,
	}

	if len(fi.ShuffleLanes) > 0 {
		if len(fi.ShuffleLanes) != 16 {
			return instr, fmt.Errorf("shuffle_lanes must have exactly 16 entries, got %d", len(fi.ShuffleLanes))
		}
		for i, lane := range fi.ShuffleLanes {
			instr.ShuffleLanes[i] = byte(lane)
		}
	}

	switch fi.BlockKind {
	case "", "empty":
		instr.Block = wasm.BlockType{Kind: wasm.BlockTypeEmpty}
	case "value":
		vt, err := parseValType(fi.BlockVal)
		if err != nil {
			return instr, err
		}
		instr.Block = wasm.BlockType{Kind: wasm.BlockTypeValue, ValType: vt}
	case "index":
		instr.Block = wasm.BlockType{Kind: wasm.BlockTypeIndex, TypeIdx: fi.BlockType}
	default:
		return instr, fmt.Errorf("unknown block_kind %q", fi.BlockKind)
	}

	if fi.Branch != nil {
		instr.Branch = wasm.BranchLabel{TargetIndex: *fi.Branch}
	}
	for _, l := range fi.Labels {
		instr.Labels = append(instr.Labels, wasm.BranchLabel{TargetIndex: l})
	}

	if fi.ValTypeImm != "" {
		vt, err := parseValType(fi.ValTypeImm)
		if err != nil {
			return instr, err
		}
		instr.ValTypeImm = vt
	}
	if len(fi.ValTypeList) > 0 {
		vts, err := parseValTypes(fi.ValTypeList)
		if err != nil {
			return instr, err
		}
		instr.ValTypeList = vts
	}
	return instr, nil
}

// ParseValTypes parses a list of fixture value-type strings, exported for
// callers (such as cmd/formcheck) that need to turn a FixtureBody's raw
// Params/Locals/Results into wasm.ValType slices themselves.
func ParseValTypes(ss []string) ([]wasm.ValType, error) {
	return parseValTypes(ss)
}

func parseValTypes(ss []string) ([]wasm.ValType, error) {
	out := make([]wasm.ValType, len(ss))
	for i, s := range ss {
		vt, err := parseValType(s)
		if err != nil {
			return nil, err
		}
		out[i] = vt
	}
	return out, nil
}

// parseValType accepts the primitive type names, "funcref"/"externref" and
// their non-nullable "(ref func)"/"(ref extern)" forms, and "(ref N)" /
// "(ref null N)" for a concrete function-type index.
func parseValType(s string) (wasm.ValType, error) {
	switch s {
	case "i32":
		return wasm.ValI32, nil
	case "i64":
		return wasm.ValI64, nil
	case "f32":
		return wasm.ValF32, nil
	case "f64":
		return wasm.ValF64, nil
	case "v128":
		return wasm.ValV128, nil
	case "funcref":
		return wasm.RefNull(wasm.FuncRef), nil
	case "externref":
		return wasm.RefNull(wasm.ExternRef), nil
	}
	if strings.HasPrefix(s, "(ref") && strings.HasSuffix(s, ")") {
		inner := strings.TrimSuffix(strings.TrimPrefix(s, "(ref"), ")")
		inner = strings.TrimSpace(inner)
		nullable := false
		if strings.HasPrefix(inner, "null") {
			nullable = true
			inner = strings.TrimSpace(strings.TrimPrefix(inner, "null"))
		}
		switch inner {
		case "func":
			if nullable {
				return wasm.RefNull(wasm.FuncRef), nil
			}
			return wasm.RefNonNull(wasm.FuncRef), nil
		case "extern":
			if nullable {
				return wasm.RefNull(wasm.ExternRef), nil
			}
			return wasm.RefNonNull(wasm.ExternRef), nil
		default:
			idx, err := strconv.ParseUint(inner, 10, 32)
			if err != nil {
				return wasm.ValType{}, fmt.Errorf("invalid reference heap type %q", s)
			}
			if nullable {
				return wasm.RefNullTypeIndex(uint32(idx)), nil
			}
			return wasm.RefTypeIndex(uint32(idx)), nil
		}
	}
	return wasm.ValType{}, fmt.Errorf("unrecognized value type %q", s)
}
