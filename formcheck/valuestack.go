package formcheck

import (
	"github.com/wasmkit/formcheck/wasm"
)

// VType is one entry of the abstract value stack: either a concrete value
// type, or the Unknown sentinel that only appears above an unreachable
// control frame. Unknown matches any expected type on pop.
type VType struct {
	Type    wasm.ValType
	Unknown bool
}

// Known wraps a concrete value type as a stack entry.
func Known(v wasm.ValType) VType { return VType{Type: v} }

// UnknownVType is the polymorphic sentinel produced by unreachable code.
var UnknownVType = VType{Unknown: true}

func (v VType) String() string {
	if v.Unknown {
		return "unknown"
	}
	return v.Type.String()
}

// valueStack is the checker's abstract operand stack. Its pop methods are
// aware of the enclosing control frame's unreachable flag: once a frame goes
// unreachable, pops below its entry height yield Unknown instead of
// underflowing, matching the WebAssembly spec's "polymorphic stack" rule.
type valueStack struct {
	entries []VType
	ctrl    *ctrlStack // back-reference for height/unreachable queries
	matcher *matcher
}

func newValueStack(ctrl *ctrlStack, m *matcher) *valueStack {
	return &valueStack{ctrl: ctrl, matcher: m}
}

func (s *valueStack) push(v VType) {
	s.entries = append(s.entries, v)
}

func (s *valueStack) pushMany(vs []VType) {
	s.entries = append(s.entries, vs...)
}

func (s *valueStack) pushValTypes(vs []wasm.ValType) {
	for _, v := range vs {
		s.push(Known(v))
	}
}

func (s *valueStack) len() int { return len(s.entries) }

// pop removes and returns the top of the stack, honoring unreachable-frame
// polymorphism: if the stack has drained back to the current frame's entry
// height and that frame is unreachable, it returns Unknown without
// mutating the stack; if the frame is reachable, that is a genuine
// underflow.
func (s *valueStack) pop() (VType, *wasm.CheckError) {
	height := s.ctrl.top().ValueHeight
	if len(s.entries) == int(height) {
		if s.ctrl.top().IsUnreachable {
			return UnknownVType, nil
		}
		return VType{}, wasm.NewErr(wasm.ErrTypeCheckFailed, "value stack underflow")
	}
	top := s.entries[len(s.entries)-1]
	s.entries = s.entries[:len(s.entries)-1]
	return top, nil
}

// popExpect pops one value and checks it against the expected type,
// treating Unknown as automatically satisfying any expectation.
func (s *valueStack) popExpect(expect wasm.ValType) (VType, *wasm.CheckError) {
	got, err := s.pop()
	if err != nil {
		return VType{}, err
	}
	if got.Unknown {
		return Known(expect), nil
	}
	if !s.matcher.match(expect, got.Type) {
		return VType{}, wasm.NewMismatchErr([]wasm.ValType{expect}, []wasm.ValType{got.Type})
	}
	return got, nil
}

// popMany pops len(expect) values in reverse order, i.e. it requires the
// stack's top len(expect) entries (read top-down) to match expect read
// bottom-up. This is what makes popMany the mirror image of pushValTypes.
func (s *valueStack) popMany(expect []wasm.ValType) *wasm.CheckError {
	for i := len(expect) - 1; i >= 0; i-- {
		if _, err := s.popExpect(expect[i]); err != nil {
			return err
		}
	}
	return nil
}

// stackTrans pops `take` then pushes `put`, the shape of almost every
// straight-line instruction (arithmetic, loads, stores, conversions).
func (s *valueStack) stackTrans(take, put []wasm.ValType) *wasm.CheckError {
	if err := s.popMany(take); err != nil {
		return err
	}
	s.pushValTypes(put)
	return nil
}

// popAny discards the top of the stack without checking its type, used by
// drop.
func (s *valueStack) popAny() *wasm.CheckError {
	_, err := s.pop()
	return err
}

// truncateTo resets the stack back to exactly height entries, used when a
// frame goes unreachable: all stack growth above the frame's entry height
// is discarded.
func (s *valueStack) truncateTo(height uint32) {
	if int(height) < len(s.entries) {
		s.entries = s.entries[:height]
	}
}
