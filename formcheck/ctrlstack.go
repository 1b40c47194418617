package formcheck

import "github.com/wasmkit/formcheck/wasm"

// CtrlFrame records one level of block/loop/if/else nesting.
type CtrlFrame struct {
	StartTypes []wasm.ValType
	EndTypes   []wasm.ValType

	// JumpInstrIndex is the index, within the function body, of the
	// instruction a branch to this label lands on: the loop header for
	// Loop frames, the matching End for Block/If/Else frames.
	JumpInstrIndex uint32

	ValueHeight uint32
	InitHeight  uint32

	Opcode wasm.Opcode

	IsUnreachable bool
}

// LabelTypes returns the types a branch to this frame consumes: a loop's
// parameters (branching to a loop re-enters at the top, so it needs to be
// re-supplied the loop's inputs) or a block/if's results (branching out of
// a block produces that block's outputs).
func (f *CtrlFrame) LabelTypes() []wasm.ValType {
	if f.Opcode == wasm.OpLoop {
		return f.StartTypes
	}
	return f.EndTypes
}

// ctrlStack is the checker's stack of control frames. It owns the value
// stack's height reference and the locals environment's init journal, since
// popping a frame has to roll both back.
type ctrlStack struct {
	frames []CtrlFrame
	vals   *valueStack
	locals *localEnv
}

func newCtrlStack() *ctrlStack {
	return &ctrlStack{}
}

func (c *ctrlStack) len() int { return len(c.frames) }

func (c *ctrlStack) top() *CtrlFrame {
	return &c.frames[len(c.frames)-1]
}

// at returns the frame `depth` levels from the top (0 == top), the
// resolution a br/br_if/br_table label index undergoes.
func (c *ctrlStack) at(depth uint32) *CtrlFrame {
	return &c.frames[len(c.frames)-1-int(depth)]
}

// checkDepth resolves a label index to an absolute frame index (from the
// bottom), failing if it names a frame that doesn't exist.
func (c *ctrlStack) checkDepth(n uint32) (uint32, *wasm.CheckError) {
	if int(n) >= len(c.frames) {
		return 0, wasm.NewIndexErr(wasm.ErrInvalidLabelIdx, wasm.CategoryLabel, n, uint32(len(c.frames)))
	}
	return uint32(len(c.frames)) - 1 - n, nil
}

// frameAtAbs returns the frame at the given absolute (from-the-bottom)
// index, the form checkDepth's result is consumed in.
func (c *ctrlStack) frameAtAbs(idx uint32) *CtrlFrame {
	return &c.frames[idx]
}

// pushCtrl opens a new control frame, recording the current value-stack and
// local-init heights as its rollback points, then re-pushes the frame's
// start types (its parameters) onto the value stack.
func (c *ctrlStack) pushCtrl(start, end []wasm.ValType, jumpInstrIndex uint32, opcode wasm.Opcode) {
	c.frames = append(c.frames, CtrlFrame{
		StartTypes:     start,
		EndTypes:       end,
		JumpInstrIndex: jumpInstrIndex,
		ValueHeight:    uint32(c.vals.len()),
		InitHeight:     uint32(len(c.locals.inits)),
		Opcode:         opcode,
	})
	c.vals.pushValTypes(start)
}

// popCtrl closes the top control frame: it requires the value stack to hold
// exactly the frame's result types above its entry height, rolls back any
// local initializations performed inside the frame, and returns the popped
// frame so callers (Else, End) can reuse its types and jump target.
func (c *ctrlStack) popCtrl() (CtrlFrame, *wasm.CheckError) {
	if len(c.frames) == 0 {
		return CtrlFrame{}, wasm.NewErr(wasm.ErrTypeCheckFailed, "control stack underflow")
	}
	top := c.top()
	if err := c.vals.popMany(top.EndTypes); err != nil {
		return CtrlFrame{}, err
	}
	if uint32(c.vals.len()) != top.ValueHeight {
		return CtrlFrame{}, wasm.NewErr(wasm.ErrTypeCheckFailed, "value stack underflow: leftover values at end of block")
	}
	c.locals.rollback(top.InitHeight)

	head := *top
	c.frames = c.frames[:len(c.frames)-1]
	return head, nil
}

// unreachable drops every value above the current frame's entry height and
// marks the frame unreachable: subsequent pops in this frame are
// automatically satisfied with Unknown until the matching Else/End.
func (c *ctrlStack) unreachable() {
	c.vals.truncateTo(c.top().ValueHeight)
	c.top().IsUnreachable = true
}
