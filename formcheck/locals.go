package formcheck

import "github.com/wasmkit/formcheck/wasm"

// localSlot is one function local (including parameters, which are locals
// 0..len(params)-1): its declared type and whether it currently holds a
// value the validator has proven initialized.
type localSlot struct {
	Type   wasm.ValType
	IsInit bool
}

// localEnv is the indexed table of a function's locals plus the journal of
// indices initialized since some earlier point, used to roll back
// local.set/local.tee's effects when a control frame that performed them is
// popped without having branched or returned out.
type localEnv struct {
	slots []localSlot
	inits []uint32
}

func newLocalEnv() *localEnv {
	return &localEnv{}
}

func (e *localEnv) reset() {
	e.slots = nil
	e.inits = nil
}

func (e *localEnv) len() int { return len(e.slots) }

// add appends a new local. Parameters and explicitly-initialized locals
// pass initialized=true; function-local declarations pass false and rely on
// defaultability: a numeric, vector, or nullable-reference local is
// considered initialized immediately since it has a canonical zero value.
func (e *localEnv) add(t wasm.ValType, initialized bool) {
	e.slots = append(e.slots, localSlot{Type: t})
	if initialized || t.IsDefaultable() {
		e.markInit(uint32(len(e.slots) - 1))
	}
}

// markInit records idx as initialized. It is a no-op when the slot is
// already initialized, so a repeated local.set/local.tee inside a nested
// block does not journal a second entry above the enclosing block's
// InitHeight: rollback would otherwise clear IsInit for that duplicate entry
// and de-initialize a local the outer scope legitimately set.
func (e *localEnv) markInit(idx uint32) {
	if e.slots[idx].IsInit {
		return
	}
	e.slots[idx].IsInit = true
	e.inits = append(e.inits, idx)
}

// get validates a local index is in range and returns its slot.
func (e *localEnv) get(idx uint32) (*localSlot, *wasm.CheckError) {
	if int(idx) >= len(e.slots) {
		return nil, wasm.NewIndexErr(wasm.ErrInvalidLocalIdx, wasm.CategoryLocal, idx, uint32(len(e.slots)))
	}
	return &e.slots[idx], nil
}

// rollback clears IsInit for every local journaled since height, and
// truncates the journal itself back to height. This undoes local.set's
// effects when the control frame that performed them is popped: a local
// initialized only inside a block is uninitialized again once that block's
// scope ends (unless control left via branch/return, in which case the
// checker never reaches this rollback for that path — unreachable() already
// short-circuited further pops/pushes in the frame).
func (e *localEnv) rollback(height uint32) {
	for i := height; i < uint32(len(e.inits)); i++ {
		e.slots[e.inits[i]].IsInit = false
	}
	e.inits = e.inits[:height]
}
