package formcheck

import "github.com/wasmkit/formcheck/wasm"

// Checker validates one function body at a time against a shared module
// Context. It owns the three collaborating pieces of validator state (the
// abstract value stack, the control-frame stack, and the locals
// environment) plus the type matcher, wiring them together the way the
// grounding runtime's checker wires a ValTypeStack, a list of CtrlFrame, and
// local initialization state into one object. A Checker is not safe for
// concurrent use; see Pool for sharing across goroutines.
type Checker struct {
	cfg    *Config
	ctx    *Context
	logger Logger

	vals    *valueStack
	ctrl    *ctrlStack
	locals  *localEnv
	matcher *matcher

	returnTypes []wasm.ValType

	// curIndex is the position within the current function body's
	// instruction slice of the instruction step is dispatching. Branch
	// handlers need it to compute PCOffset against a target frame's
	// JumpInstrIndex.
	curIndex uint32
}

// NewChecker builds a Checker bound to ctx. ctx may be populated before or
// after construction; StartFunction (which Validate calls first) re-reads
// ctx.Types into the matcher every time a function body's validation begins,
// and Checker.Reset does the same.
func NewChecker(ctx *Context, cfg *Config) *Checker {
	if cfg == nil {
		cfg = NewConfig()
	}
	c := &Checker{
		cfg:     cfg,
		ctx:     ctx,
		logger:  cfg.logger,
		locals:  newLocalEnv(),
		matcher: newMatcher(),
	}
	c.ctrl = newCtrlStack()
	c.vals = newValueStack(c.ctrl, c.matcher)
	c.ctrl.vals = c.vals
	c.ctrl.locals = c.locals
	return c
}

// Reset prepares the Checker for a new function body. When cleanModule is
// true the Context itself is cleared (the caller is about to repopulate it
// for an unrelated module); otherwise the Context's declarations are left
// alone and only per-function state (locals, stacks) is cleared, which is
// the common case of validating successive functions of the same module.
func (c *Checker) Reset(cleanModule bool) {
	c.locals.reset()
	c.ctrl.frames = nil
	c.vals.entries = nil
	c.returnTypes = nil
	if cleanModule {
		c.ctx.Reset()
	}
	c.matcher.setTypes(c.ctx.Types, c.cfg.recursionDepthLimit)
}

// StartFunction seeds the locals environment for one function body: params
// first (always initialized), then declared locals (initialized only if
// defaultable), and, when bodyLen is non-zero, opens the function's implicit
// outermost control frame with no start types and the function's result
// types as its end types. bodyLen is the instruction count of the body about
// to be validated; it gives the outermost frame a real jump target (the
// body's last instruction) so a branch to the maximum depth still gets a
// usable PCOffset fixup. An empty body opens no frame.
func (c *Checker) StartFunction(params, declaredLocals, results []wasm.ValType, bodyLen uint32) {
	c.locals.reset()
	c.vals.entries = nil
	c.ctrl.frames = nil
	c.returnTypes = results
	c.matcher.setTypes(c.ctx.Types, c.cfg.recursionDepthLimit)

	for _, p := range params {
		c.locals.add(p, true)
	}
	for _, l := range declaredLocals {
		c.locals.add(l, false)
	}
	if bodyLen > 0 {
		c.ctrl.pushCtrl(nil, results, bodyLen-1, wasm.OpBlock)
	}
}

// resolveBlockType expands a decoded BlockType against the Context's type
// table into explicit parameter and result lists.
func (c *Checker) resolveBlockType(bt wasm.BlockType) (params, results []wasm.ValType, err *wasm.CheckError) {
	switch bt.Kind {
	case wasm.BlockTypeEmpty:
		return nil, nil, nil
	case wasm.BlockTypeValue:
		if err := c.ctx.ValidateValType(bt.ValType); err != nil {
			return nil, nil, err
		}
		return nil, []wasm.ValType{bt.ValType}, nil
	case wasm.BlockTypeIndex:
		if int(bt.TypeIdx) >= len(c.ctx.Types) {
			return nil, nil, wasm.NewIndexErr(wasm.ErrInvalidFuncTypeIdx, wasm.CategoryFunctionType, bt.TypeIdx, uint32(len(c.ctx.Types)))
		}
		ft := c.ctx.Types[bt.TypeIdx]
		return ft.Params, ft.Results, nil
	default:
		return nil, nil, wasm.NewErr(wasm.ErrTypeCheckFailed, "unknown block type kind")
	}
}

// Validate type-checks every instruction of one function body in order,
// given the already-decoded params/locals/results for that function. It
// returns the first CheckError encountered, with its Opcode and Offset
// filled in from the failing instruction, or nil if the whole body checks
// out and ends with a balanced, fully-drained control stack.
func (c *Checker) Validate(instrs []wasm.Instruction, params, declaredLocals, results []wasm.ValType) *wasm.CheckError {
	c.StartFunction(params, declaredLocals, results, uint32(len(instrs)))

	for i := range instrs {
		c.curIndex = uint32(i)
		instr := &instrs[i]
		if err := c.step(instr); err != nil {
			wrapped := err.WithInstr(instr.Op, instr.Offset)
			c.logger.RejectedInstruction(wrapped)
			return wrapped
		}
		if uint32(c.vals.len()) > c.cfg.maxValueStackHeight {
			err := wasm.NewErr(wasm.ErrTypeCheckFailed, "value stack exceeded the configured height limit").WithInstr(instr.Op, instr.Offset)
			c.logger.RejectedInstruction(err)
			return err
		}
	}

	if c.ctrl.len() != 0 {
		err := wasm.NewErr(wasm.ErrTypeCheckFailed, "function body ended with unclosed control frames")
		c.logger.RejectedInstruction(err)
		return err
	}
	return nil
}

// step dispatches a single instruction to the handler family for its
// opcode range. Every handler returns a bare, unwrapped *wasm.CheckError;
// Validate attaches the failing instruction's Op/Offset uniformly so no
// individual handler has to.
func (c *Checker) step(instr *wasm.Instruction) *wasm.CheckError {
	switch instr.Op {
	case wasm.OpUnreachable:
		c.ctrl.unreachable()
		return nil
	case wasm.OpNop:
		return nil
	case wasm.OpBlock, wasm.OpLoop, wasm.OpIf:
		return c.checkBlockLike(instr)
	case wasm.OpElse:
		return c.checkElse(instr)
	case wasm.OpEnd:
		return c.checkEnd(instr)
	case wasm.OpBr:
		return c.checkBr(instr)
	case wasm.OpBrIf:
		return c.checkBrIf(instr)
	case wasm.OpBrTable:
		return c.checkBrTable(instr)
	case wasm.OpBrOnNull:
		return c.checkBrOnNull(instr)
	case wasm.OpBrOnNonNull:
		return c.checkBrOnNonNull(instr)
	case wasm.OpReturn:
		return c.checkReturn(instr)
	case wasm.OpCall:
		return c.checkCall(instr)
	case wasm.OpCallIndirect:
		return c.checkCallIndirect(instr)
	case wasm.OpCallRef:
		return c.checkCallRef(instr)
	case wasm.OpReturnCall:
		return c.checkReturnCall(instr)
	case wasm.OpReturnCallIndirect:
		return c.checkReturnCallIndirect(instr)
	case wasm.OpReturnCallRef:
		return c.checkReturnCallRef(instr)

	case wasm.OpRefNull, wasm.OpRefIsNull, wasm.OpRefFunc, wasm.OpRefAsNonNull:
		return c.checkRefInstr(instr)

	case wasm.OpDrop:
		return c.vals.popAny()
	case wasm.OpSelect:
		return c.checkSelect(instr)
	case wasm.OpSelectT:
		return c.checkSelectT(instr)

	case wasm.OpLocalGet, wasm.OpLocalSet, wasm.OpLocalTee:
		return c.checkLocalInstr(instr)
	case wasm.OpGlobalGet, wasm.OpGlobalSet:
		return c.checkGlobalInstr(instr)

	case wasm.OpTableGet, wasm.OpTableSet:
		return c.checkTableGetSet(instr)
	case wasm.OpTableInit, wasm.OpTableCopy, wasm.OpTableGrow, wasm.OpTableSize, wasm.OpTableFill, wasm.OpElemDrop:
		return c.checkTableMisc(instr)

	case wasm.OpMemorySize, wasm.OpMemoryGrow, wasm.OpMemoryInit, wasm.OpDataDrop, wasm.OpMemoryCopy, wasm.OpMemoryFill:
		return c.checkMemoryMisc(instr)

	case wasm.OpI32Const:
		c.vals.push(Known(wasm.ValI32))
		return nil
	case wasm.OpI64Const:
		c.vals.push(Known(wasm.ValI64))
		return nil
	case wasm.OpF32Const:
		c.vals.push(Known(wasm.ValF32))
		return nil
	case wasm.OpF64Const:
		c.vals.push(Known(wasm.ValF64))
		return nil

	default:
		if isMemoryOp(instr.Op) {
			return c.checkMemoryAccess(instr)
		}
		if isAtomicOp(instr.Op) {
			return c.checkAtomic(instr)
		}
		if isSIMDOp(instr.Op) {
			return c.checkSIMD(instr)
		}
		if op, ok := numericOps[instr.Op]; ok {
			return c.vals.stackTrans(op.take, op.put)
		}
		return wasm.NewErr(wasm.ErrTypeCheckFailed, "unrecognized opcode")
	}
}
