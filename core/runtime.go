package core

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru"

	"github.com/renlabs/go-ren/log"
	"github.com/renlabs/go-ren/params"
)

// Runtime is one single-threaded cooperative interpreter instance. All
// mutable state lives here rather than in process globals: pools, the level
// stack, the signal word, manuals and guards, the symbol table, ballast and
// ticks. The runtime is not re-entrant from another thread; only the signal
// requests may arrive from outside.
type Runtime struct {
	cfg Config
	log log.Logger

	pools    *poolSet
	manuals  *manualsStack
	guards   *guardStack
	symbols  *symbolTable
	useCache *lru.Cache

	allStubs []*Stub
	roots    []*Stub // root tables: the user context and anything adopted

	top *Level // bottom sentinel when idle

	sigs     atomic.Uint32
	ballast  int64
	dose     uint64
	doseLeft uint64

	totalTicks uint64

	ds []Cell // data stack; levels save and restore their base

	fs    failureState
	throw *ThrowState

	lastResult Cell
	inSweep    bool

	// count of uninterruptible levels on the stack; signals stay pending
	// while nonzero
	uninterruptible int

	debugHook func(*Level)

	user *Stub // terminal context evaluation defaults to

	stats Stats
}

// Init brings up a runtime instance: pools, tables, the sentinel level and
// the user context with the core natives bound.
func Init(cfg Config) (*Runtime, error) {
	if cfg.Ballast == 0 {
		cfg.Ballast = params.DefaultBallast
	}
	if cfg.PoolClassBytes == nil {
		cfg.PoolClassBytes = params.PoolClassBytes
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Root()
	}
	rt := &Runtime{
		cfg:     cfg,
		log:     cfg.Logger,
		manuals: newManualsStack(),
		guards:  newGuardStack(),
		ballast: cfg.Ballast,
		dose:    params.TickDose,
	}
	rt.doseLeft = rt.dose
	rt.pools = newPoolSet(rt, cfg.PoolClassBytes)
	rt.symbols = newSymbolTable(rt)
	cache, err := lru.New(params.UseCacheSize)
	if err != nil {
		return nil, err
	}
	rt.useCache = cache

	// Bottom sentinel level; it never executes code.
	rt.top = &Level{rt: rt, state: stateStepping}
	rt.top.spare.poison()
	rt.top.feed = &Feed{rt: rt}

	if err := rt.bootUserContext(); err != nil {
		return nil, err
	}
	rt.log.Debug("runtime initialized", "ballast", cfg.Ballast, "classes", len(cfg.PoolClassBytes))
	return rt, nil
}

// Shutdown tears the instance down. Everything is Go-heap backed, so this
// is bookkeeping: assert balance and drop the tables.
func (rt *Runtime) Shutdown() {
	if debugChecks {
		if rt.levelDepth() != 0 {
			panic(diverge("shutdown with levels on the stack"))
		}
		if rt.guards.size() != 0 {
			panic(diverge("shutdown with guards outstanding"))
		}
	}
	rt.allStubs = nil
	rt.roots = nil
	rt.useCache.Purge()
	rt.log.Debug("runtime shut down", "stubs", rt.stats.StubsAllocated, "recycles", rt.stats.Recycles)
}

// LastResult is the most recent value a trampoline run produced.
func (rt *Runtime) LastResult() Cell { return rt.lastResult }

// Intern returns the symbol stub for the spelling.
func (rt *Runtime) Intern(spelling string) (*Stub, error) {
	return rt.symbols.Intern(spelling)
}

// UserContext is the terminal context evaluation defaults to.
func (rt *Runtime) UserContext() *Stub { return rt.user }

// NewBlock assembles a managed array from cells; the host-facing way to
// build code without the out-of-scope lexer.
func (rt *Runtime) NewBlock(vals ...Cell) *Stub {
	a := rt.newBlockArray(vals...)
	rt.manage(a)
	return a
}

// Bind attaches a virtual binding of ctx over the user context to every
// word in the block, returning the chain used.
func (rt *Runtime) Bind(arr *Stub, ctx *Stub) *Stub {
	chain := rt.MakeUse(ctx, rt.user, UseAllWords)
	rt.bindBlock(arr, chain)
	return chain
}

// DoBlock evaluates an array under the given specifier (the user context
// when nil) and returns the last value.
func (rt *Runtime) DoBlock(arr *Stub, specifier *Stub) (Cell, error) {
	if specifier == nil {
		specifier = rt.user
	}
	var out Cell
	out.setStale()
	feed := rt.NewArrayFeed(arr, 0, specifier)
	l := rt.PushLevel(&out, feed)
	return rt.Trampoline(l)
}

// DoVariadic evaluates host-supplied cell pointers, the C va_list-style
// feed. Entries may be instruction-wrapped pre-evaluated values.
func (rt *Runtime) DoVariadic(vals []*Cell) (Cell, error) {
	var out Cell
	out.setStale()
	feed := rt.NewVariadicFeed(vals, rt.user)
	l := rt.PushLevel(&out, feed)
	return rt.Trampoline(l)
}

// InvokeAction runs an action directly with path-style refinements; the
// feed supplies its arguments.
func (rt *Runtime) InvokeAction(details *Stub, refines []string, feed *Feed) (Cell, error) {
	syms := make([]*Stub, 0, len(refines))
	for _, r := range refines {
		sym, err := rt.Intern(r)
		if err != nil {
			return Cell{}, err
		}
		syms = append(syms, sym)
	}
	var out Cell
	out.setStale()
	l := rt.pushActionLevel(&out, feed, details, nil)
	l.requested = syms
	for _, sym := range syms {
		var w Cell
		InitWord(&w, sym)
		rt.ds = append(rt.ds, w)
	}
	return rt.Trampoline(l)
}

// SetUserVar assigns into the user context, interning the name.
func (rt *Runtime) SetUserVar(name string, v *Cell) error {
	sym, err := rt.Intern(name)
	if err != nil {
		return err
	}
	return rt.setVar(rt.user, sym, v)
}

// adoptRoot pins a stub into the GC root set.
func (rt *Runtime) adoptRoot(s *Stub) {
	s.flags |= stubFlagRoot
	rt.roots = append(rt.roots, s)
}
