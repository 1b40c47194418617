package formcheck

import "github.com/wasmkit/formcheck/wasm"

// checkBlockLike handles block, loop, and if. All three resolve a BlockType
// into params/results, pop the params off the operand stack (if is further
// preceded by popping its condition), then push a new control frame whose
// start types are the block's params and end types are its results.
func (c *Checker) checkBlockLike(instr *wasm.Instruction) *wasm.CheckError {
	params, results, err := c.resolveBlockType(instr.Block)
	if err != nil {
		return err
	}
	if instr.Op == wasm.OpIf {
		if _, err := c.vals.popExpect(wasm.ValI32); err != nil {
			return err
		}
	}
	if err := c.vals.popMany(params); err != nil {
		return err
	}

	// A branch to this frame's label lands on the loop's own header (a loop
	// re-enters at the top) or on the matching End (block/if branch out).
	jumpTarget := c.curIndex
	if instr.Op != wasm.OpLoop {
		jumpTarget = c.curIndex + uint32(instr.JumpEnd)
	}
	c.ctrl.pushCtrl(params, results, jumpTarget, instr.Op)

	if instr.Op == wasm.OpIf && instr.JumpElse == instr.JumpEnd {
		// No else branch: the condition's false path falls straight through
		// to End, so whatever the params already supply on the stack must by
		// itself satisfy the block's declared results.
		if !c.matcher.matchVec(results, params) {
			return wasm.NewMismatchErr(results, params)
		}
	}
	return nil
}

// checkElse closes the If frame's then-branch and opens an Else frame with
// the same params/results, so the else-branch is checked against the same
// signature as the then-branch it is paired with.
func (c *Checker) checkElse(instr *wasm.Instruction) *wasm.CheckError {
	if c.ctrl.len() == 0 || c.ctrl.top().Opcode != wasm.OpIf {
		return wasm.NewErr(wasm.ErrTypeCheckFailed, "else without matching if")
	}
	frame, err := c.ctrl.popCtrl()
	if err != nil {
		return err
	}
	c.ctrl.pushCtrl(frame.StartTypes, frame.EndTypes, frame.JumpInstrIndex, wasm.OpElse)
	return nil
}

// checkEnd closes the top control frame and pushes its result types back
// onto the operand stack for the enclosing scope to consume.
func (c *Checker) checkEnd(instr *wasm.Instruction) *wasm.CheckError {
	frame, err := c.ctrl.popCtrl()
	if err != nil {
		return err
	}
	c.vals.pushValTypes(frame.EndTypes)
	return nil
}

// checkBr validates a branch to a relative label depth: the operand stack
// must hold that label's LabelTypes above the target frame's entry height,
// after which the current frame becomes unreachable (anything textually
// following an unconditional branch is dead code until the next Else/End).
func (c *Checker) checkBr(instr *wasm.Instruction) *wasm.CheckError {
	depth, err := c.ctrl.checkDepth(instr.Branch.TargetIndex)
	if err != nil {
		return err
	}
	frame := c.ctrl.frameAtAbs(depth)
	heightBase := uint32(c.vals.len())
	if err := c.checkBranchTarget(instr.Branch.TargetIndex); err != nil {
		return err
	}
	c.writeFixup(&instr.Branch, frame, heightBase)
	c.ctrl.unreachable()
	return nil
}

// checkBrIf is like checkBr but conditional: it pops an i32 condition first,
// and consumes/re-supplies the label's types rather than going unreachable,
// since control may fall through.
func (c *Checker) checkBrIf(instr *wasm.Instruction) *wasm.CheckError {
	if _, err := c.vals.popExpect(wasm.ValI32); err != nil {
		return err
	}
	depth, err := c.ctrl.checkDepth(instr.Branch.TargetIndex)
	if err != nil {
		return err
	}
	frame := c.ctrl.frameAtAbs(depth)
	heightBase := uint32(c.vals.len())
	if err := c.vals.popMany(frame.LabelTypes()); err != nil {
		return err
	}
	c.vals.pushValTypes(frame.LabelTypes())
	c.writeFixup(&instr.Branch, frame, heightBase)
	return nil
}

// checkBrTable validates every label in the jump table plus the trailing
// default target against a common arity, per the WebAssembly rule that all
// of a br_table's targets must agree on how many values they carry (their
// individual value *types* may still differ via subtyping, consistent with
// checkBranchTarget's per-label check).
func (c *Checker) checkBrTable(instr *wasm.Instruction) *wasm.CheckError {
	if _, err := c.vals.popExpect(wasm.ValI32); err != nil {
		return err
	}
	if len(instr.Labels) == 0 {
		return wasm.NewErr(wasm.ErrInvalidResultArity, "br_table requires a default label")
	}
	heightBase := uint32(c.vals.len())

	lastIdx := len(instr.Labels) - 1
	defaultDepth, err := c.ctrl.checkDepth(instr.Labels[lastIdx].TargetIndex)
	if err != nil {
		return err
	}
	defaultFrame := c.ctrl.frameAtAbs(defaultDepth)
	arity := len(defaultFrame.LabelTypes())

	for i := 0; i < lastIdx; i++ {
		depth, err := c.ctrl.checkDepth(instr.Labels[i].TargetIndex)
		if err != nil {
			return err
		}
		if len(c.ctrl.frameAtAbs(depth).LabelTypes()) != arity {
			return wasm.NewErr(wasm.ErrInvalidResultArity, "br_table labels disagree on arity")
		}
	}

	if err := c.checkBranchTarget(instr.Labels[lastIdx].TargetIndex); err != nil {
		return err
	}
	c.writeFixup(&instr.Labels[lastIdx], defaultFrame, heightBase)

	for i := 0; i < lastIdx; i++ {
		if err := c.checkBranchTarget(instr.Labels[i].TargetIndex); err != nil {
			return err
		}
		depth, err := c.ctrl.checkDepth(instr.Labels[i].TargetIndex)
		if err != nil {
			return err
		}
		c.writeFixup(&instr.Labels[i], c.ctrl.frameAtAbs(depth), heightBase)
	}
	c.ctrl.unreachable()
	return nil
}

// checkBranchTarget resolves targetIdx to a frame and verifies the operand
// stack currently holds that frame's label types, without mutating the
// stack (branch validation is non-destructive so br_table can check every
// target against the same snapshot).
func (c *Checker) checkBranchTarget(targetIdx uint32) *wasm.CheckError {
	depth, err := c.ctrl.checkDepth(targetIdx)
	if err != nil {
		return err
	}
	frame := c.ctrl.frameAtAbs(depth)
	types := frame.LabelTypes()

	saved := append([]VType(nil), c.vals.entries...)
	popErr := c.vals.popMany(types)
	c.vals.entries = saved
	return popErr
}

// writeFixup computes and writes the fixup triple the execution engine needs
// at this branch site: how many operand-stack slots sit above the target
// frame's entry height (the label's arity included), the arity itself, and
// how far to jump. heightBase
// is the operand-stack height at the specific point in the caller's own pop
// sequence the measurement is taken at; it differs by opcode depending on
// what else the branch already consumed (a condition, a reference), so each
// caller computes it at the matching point rather than this helper
// re-deriving it.
func (c *Checker) writeFixup(label *wasm.BranchLabel, frame *CtrlFrame, heightBase uint32) {
	arity := uint32(len(frame.LabelTypes()))
	label.StackEraseBegin = heightBase - frame.ValueHeight
	label.StackEraseEnd = arity
	label.PCOffset = int32(frame.JumpInstrIndex) - int32(c.curIndex)
}

// checkBrOnNull pops a nullable reference; on a non-null value it is
// re-pushed in non-nullable form and control falls through, otherwise it
// branches (after the reference is dropped, since it is known null). A
// reference popped off an unreachable frame short-circuits: validation
// succeeds immediately with no label check, no fixup, and no pushes, since
// the instruction can never actually execute.
func (c *Checker) checkBrOnNull(instr *wasm.Instruction) *wasm.CheckError {
	ref, err := c.popRefType()
	if err != nil {
		return err
	}
	if ref.Unknown {
		return nil
	}
	heightBase := uint32(c.vals.len())
	if err := c.checkBranchTarget(instr.Branch.TargetIndex); err != nil {
		return err
	}
	depth, err := c.ctrl.checkDepth(instr.Branch.TargetIndex)
	if err != nil {
		return err
	}
	frame := c.ctrl.frameAtAbs(depth)
	if err := c.vals.popMany(frame.LabelTypes()); err != nil {
		return err
	}
	c.vals.pushValTypes(frame.LabelTypes())
	c.vals.push(Known(ref.Type.AsNonNull()))
	c.writeFixup(&instr.Branch, frame, heightBase)
	return nil
}

// checkBrOnNonNull is br_on_null's complement: it branches when the
// reference is non-null (carrying the label's types plus the now
// non-nullable reference), and falls through to nothing when null. Unlike
// br_on_null, an unreachable reference here does not short-circuit: the
// ground-truth checker pops it against the label's own expected type, which
// already treats an unreachable value as automatically satisfying any
// expectation, so the match below is simply skipped instead.
func (c *Checker) checkBrOnNonNull(instr *wasm.Instruction) *wasm.CheckError {
	heightBase := uint32(c.vals.len())
	ref, err := c.popRefType()
	if err != nil {
		return err
	}
	depth, err := c.ctrl.checkDepth(instr.Branch.TargetIndex)
	if err != nil {
		return err
	}
	frame := c.ctrl.frameAtAbs(depth)
	labelTypes := frame.LabelTypes()
	if len(labelTypes) == 0 {
		return wasm.NewErr(wasm.ErrInvalidBrRefType, "br_on_non_null target has no reference result")
	}
	expectRef := labelTypes[len(labelTypes)-1]
	if !expectRef.IsRefType() || expectRef.Nullable {
		return wasm.NewErr(wasm.ErrInvalidBrRefType, "br_on_non_null target's last result is not a non-nullable reference type")
	}
	if !ref.Unknown && !c.matcher.match(expectRef, ref.Type.AsNonNull()) {
		return wasm.NewMismatchErr([]wasm.ValType{expectRef}, []wasm.ValType{ref.Type})
	}
	rest := labelTypes[:len(labelTypes)-1]
	if err := c.vals.popMany(rest); err != nil {
		return err
	}
	c.vals.pushValTypes(rest)
	c.writeFixup(&instr.Branch, frame, heightBase)
	return nil
}

// popRefType pops a value expected to be a reference type (any heap type),
// used by ref.is_null/ref.as_non_null/br_on_null/br_on_non_null which accept
// either FuncRef or ExternRef families without committing to one ahead of
// time. The Unknown sentinel is reported back rather than papered over with
// a placeholder concrete type, so callers on an unreachable frame can take
// the polymorphic path the ground-truth checker takes instead of running
// the reachable-path logic against a fabricated value.
func (c *Checker) popRefType() (VType, *wasm.CheckError) {
	got, err := c.vals.pop()
	if err != nil {
		return VType{}, err
	}
	if got.Unknown {
		return got, nil
	}
	if !got.Type.IsRefType() {
		return VType{}, wasm.NewMismatchErr([]wasm.ValType{wasm.RefNull(wasm.FuncRef)}, []wasm.ValType{got.Type})
	}
	return got, nil
}

// checkReturn validates the operand stack against the enclosing function's
// declared result types, then goes unreachable exactly like an unconditional
// branch to the outermost frame.
func (c *Checker) checkReturn(instr *wasm.Instruction) *wasm.CheckError {
	if err := c.vals.popMany(c.returnTypes); err != nil {
		return err
	}
	c.ctrl.unreachable()
	return nil
}

// checkCall validates a direct call: the function index must name a
// declared function, and its type's params/results drive a stackTrans.
func (c *Checker) checkCall(instr *wasm.Instruction) *wasm.CheckError {
	ft, err := c.resolveFunc(instr.TargetIndex)
	if err != nil {
		return err
	}
	return c.vals.stackTrans(ft.Params, ft.Results)
}

// checkCallIndirect validates an indirect call: the table operand must be a
// funcref-family table, an i32 index is popped off the top, then the named
// function type drives the stackTrans exactly like a direct call.
func (c *Checker) checkCallIndirect(instr *wasm.Instruction) *wasm.CheckError {
	if int(instr.SourceIndex) >= len(c.ctx.Tables) {
		return wasm.NewIndexErr(wasm.ErrInvalidTableIdx, wasm.CategoryTable, instr.SourceIndex, uint32(len(c.ctx.Tables)))
	}
	if table := c.ctx.Tables[instr.SourceIndex]; !c.matcher.match(wasm.RefNull(wasm.FuncRef), table) {
		return wasm.NewMismatchErr([]wasm.ValType{wasm.RefNull(wasm.FuncRef)}, []wasm.ValType{table})
	}
	if int(instr.TargetIndex) >= len(c.ctx.Types) {
		return wasm.NewIndexErr(wasm.ErrInvalidFuncTypeIdx, wasm.CategoryFunctionType, instr.TargetIndex, uint32(len(c.ctx.Types)))
	}
	if _, err := c.vals.popExpect(wasm.ValI32); err != nil {
		return err
	}
	ft := c.ctx.Types[instr.TargetIndex]
	return c.vals.stackTrans(ft.Params, ft.Results)
}

// checkCallRef validates a call through a typed function reference: the
// type index names the callee signature directly and a matching reference
// value (nullable, since calling a null funcref traps at runtime rather
// than failing validation) is popped ahead of the arguments.
func (c *Checker) checkCallRef(instr *wasm.Instruction) *wasm.CheckError {
	if int(instr.TargetIndex) >= len(c.ctx.Types) {
		return wasm.NewIndexErr(wasm.ErrInvalidFuncTypeIdx, wasm.CategoryFunctionType, instr.TargetIndex, uint32(len(c.ctx.Types)))
	}
	ft := c.ctx.Types[instr.TargetIndex]
	if _, err := c.vals.popExpect(wasm.RefNullTypeIndex(instr.TargetIndex)); err != nil {
		return err
	}
	if err := c.vals.popMany(ft.Params); err != nil {
		return err
	}
	c.vals.pushValTypes(ft.Results)
	return nil
}

// checkReturnCall and friends validate a tail call: like their non-tail
// counterparts, but the callee's result types must match (under the
// type-match relation, position by position and with equal arity) the
// enclosing function's declared results (a tail call cannot change what the
// caller's caller ultimately receives), and they end the frame unreachable.
func (c *Checker) checkReturnCall(instr *wasm.Instruction) *wasm.CheckError {
	ft, err := c.resolveFunc(instr.TargetIndex)
	if err != nil {
		return err
	}
	if err := c.checkTailResults(ft.Results); err != nil {
		return err
	}
	if err := c.vals.popMany(ft.Params); err != nil {
		return err
	}
	c.ctrl.unreachable()
	return nil
}

func (c *Checker) checkReturnCallIndirect(instr *wasm.Instruction) *wasm.CheckError {
	if int(instr.SourceIndex) >= len(c.ctx.Tables) {
		return wasm.NewIndexErr(wasm.ErrInvalidTableIdx, wasm.CategoryTable, instr.SourceIndex, uint32(len(c.ctx.Tables)))
	}
	if table := c.ctx.Tables[instr.SourceIndex]; !c.matcher.match(wasm.RefNull(wasm.FuncRef), table) {
		return wasm.NewMismatchErr([]wasm.ValType{wasm.RefNull(wasm.FuncRef)}, []wasm.ValType{table})
	}
	if int(instr.TargetIndex) >= len(c.ctx.Types) {
		return wasm.NewIndexErr(wasm.ErrInvalidFuncTypeIdx, wasm.CategoryFunctionType, instr.TargetIndex, uint32(len(c.ctx.Types)))
	}
	ft := c.ctx.Types[instr.TargetIndex]
	if err := c.checkTailResults(ft.Results); err != nil {
		return err
	}
	if _, err := c.vals.popExpect(wasm.ValI32); err != nil {
		return err
	}
	if err := c.vals.popMany(ft.Params); err != nil {
		return err
	}
	c.ctrl.unreachable()
	return nil
}

func (c *Checker) checkReturnCallRef(instr *wasm.Instruction) *wasm.CheckError {
	if int(instr.TargetIndex) >= len(c.ctx.Types) {
		return wasm.NewIndexErr(wasm.ErrInvalidFuncTypeIdx, wasm.CategoryFunctionType, instr.TargetIndex, uint32(len(c.ctx.Types)))
	}
	ft := c.ctx.Types[instr.TargetIndex]
	if err := c.checkTailResults(ft.Results); err != nil {
		return err
	}
	if _, err := c.vals.popExpect(wasm.RefNullTypeIndex(instr.TargetIndex)); err != nil {
		return err
	}
	if err := c.vals.popMany(ft.Params); err != nil {
		return err
	}
	c.ctrl.unreachable()
	return nil
}

func (c *Checker) checkTailResults(calleeResults []wasm.ValType) *wasm.CheckError {
	if len(calleeResults) != len(c.returnTypes) {
		return wasm.NewMismatchErr(c.returnTypes, calleeResults)
	}
	for i := range calleeResults {
		if !c.matcher.match(c.returnTypes[i], calleeResults[i]) {
			return wasm.NewMismatchErr(c.returnTypes, calleeResults)
		}
	}
	return nil
}

// resolveFunc validates a function index and returns its signature.
func (c *Checker) resolveFunc(idx uint32) (wasm.FunctionType, *wasm.CheckError) {
	if int(idx) >= len(c.ctx.Funcs) {
		return wasm.FunctionType{}, wasm.NewIndexErr(wasm.ErrInvalidFuncIdx, wasm.CategoryFunction, idx, uint32(len(c.ctx.Funcs)))
	}
	typeIdx := c.ctx.Funcs[idx]
	return c.ctx.Types[typeIdx], nil
}
