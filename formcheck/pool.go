package formcheck

import "sync"

// Pool recycles Checker workspaces across concurrent validation calls,
// the way a busy engine amortizes a goroutine-local scratch buffer instead
// of allocating one per request. Every Checker in the pool is bound to the
// Context passed to NewPool; callers share a Pool per module, not across modules, since
// Checker.Reset(false) assumes the Context is already correctly populated.
type Pool struct {
	cfg *Config
	pool sync.Pool
}

// NewPool returns a Pool that hands out Checkers bound to ctx, built with
// cfg (nil uses NewConfig's defaults).
func NewPool(ctx *Context, cfg *Config) *Pool {
	if cfg == nil {
		cfg = NewConfig()
	}
	p := &Pool{cfg: cfg}
	p.pool.New = func() any {
		return NewChecker(ctx, cfg)
	}
	return p
}

// Get returns a Checker ready for StartFunction/Validate. Its per-function
// state is already cleared; the Context it reads is whatever the pool was
// constructed with, so callers must have finished populating it first.
func (p *Pool) Get() *Checker {
	c := p.pool.Get().(*Checker)
	c.Reset(false)
	return c
}

// Put returns a Checker to the pool for reuse.
func (p *Pool) Put(c *Checker) {
	p.pool.Put(c)
}
