package core

import (
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/exp/slices"
	"golang.org/x/text/cases"
)

// symbolTable is the process-wide (per-Runtime) interning map from canonical
// UTF-8 bytes to symbol stubs. Case variants of one spelling chain off the
// canonical entry through the link slot, so identity compare plus one ring
// walk implements case-insensitive equality.
type symbolTable struct {
	rt      *Runtime
	folder  cases.Caser
	byFold  map[uint64][]*Stub // folded hash -> canonical symbols
}

func newSymbolTable(rt *Runtime) *symbolTable {
	return &symbolTable{
		rt:     rt,
		folder: cases.Fold(),
		byFold: make(map[uint64][]*Stub),
	}
}

func symbolText(sym *Stub) string {
	sym.assertFlavor(FlavorSymbol)
	return string(sym.byteData())
}

// canon follows the synonym ring to the canonical (first interned) variant.
func canon(sym *Stub) *Stub {
	sym.assertFlavor(FlavorSymbol)
	best := sym
	for cur := sym.link; cur != nil && cur != sym; cur = cur.link {
		if cur.info < best.info {
			best = cur
		}
	}
	return best
}

// sameSymbol is case-sensitive identity; sameSpelling folds case by testing
// ring membership.
func sameSymbol(a, b *Stub) bool { return a == b }

func sameSpelling(a, b *Stub) bool {
	if a == b {
		return true
	}
	for cur := a.link; cur != nil && cur != a; cur = cur.link {
		if cur == b {
			return true
		}
	}
	return false
}

// Intern returns the unique symbol stub for the exact spelling, creating it
// if needed and linking it into the synonym ring of its case-folded family.
// Symbols are born managed, auto-locked and permanently rooted by the table.
func (t *symbolTable) Intern(spelling string) (*Stub, error) {
	if !utf8.ValidString(spelling) {
		return nil, failf(ErrKindTypeMismatch, "symbol spelling is not valid UTF-8")
	}
	folded := t.folder.String(spelling)
	h := xxhash.Sum64String(folded)

	family := t.byFold[h]
	var ringHead *Stub
	for _, sym := range family {
		if t.folder.String(symbolText(sym)) != folded {
			continue // hash collision across families
		}
		ringHead = sym
		for cur := sym; ; {
			if symbolText(cur) == spelling {
				return cur, nil
			}
			cur = cur.link
			if cur == nil || cur == sym {
				break
			}
		}
		break
	}

	sym := t.rt.makeStub(FlavorSymbol, StubFlagManaged|StubFlagAutoLocked|StubFlagFixedSize, len(spelling))
	copy(sym.bytes, spelling)
	sym.used = len(spelling)
	sym.hash = h
	t.rt.terminate(sym)

	if ringHead == nil {
		sym.link = sym // ring of one
		sym.info = 0   // canonical rank
		t.byFold[h] = append(t.byFold[h], sym)
	} else {
		// Splice behind the head; rank orders interning time.
		sym.info = ringHead.info + ringLen(ringHead)
		sym.link = ringHead.link
		ringHead.link = sym
	}
	return sym, nil
}

func ringLen(sym *Stub) int {
	n := 1
	for cur := sym.link; cur != nil && cur != sym; cur = cur.link {
		n++
	}
	return n
}

// synonyms lists the ring in interning order; used by diagnostics and tests.
func synonyms(sym *Stub) []*Stub {
	out := []*Stub{sym}
	for cur := sym.link; cur != nil && cur != sym; cur = cur.link {
		out = append(out, cur)
	}
	slices.SortFunc(out, func(a, b *Stub) int { return a.info - b.info })
	return out
}

// markRoots traces every interned symbol; the table is part of the GC root
// set.
func (t *symbolTable) markRoots(gc *gcState) {
	for _, family := range t.byFold {
		for _, sym := range family {
			gc.markStub(sym)
		}
	}
}
