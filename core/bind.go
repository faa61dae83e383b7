package core

// Virtual binding. A specifier is a singly-linked chain of Use/Let patches
// whose link slots point at the next patch, terminating in a VarList or nil.
// Earlier patches shadow later ones. A Use over a context captures the
// context's length at creation, so caches keyed on chain position stay valid
// when the context grows afterward.

// UseMode selects which word classes a patch affects.
type UseMode uint8

const (
	UseAllWords UseMode = iota
	UseSetWordsOnly
)

type useCacheKey struct {
	parent *Stub
	target *Stub
	mode   UseMode
}

// MakeUse pushes a patch over defs onto parent and returns the new chain
// head. An empty context adds nothing; double-wrapping the same binding is
// detected and the chain returned unchanged. New patches are born managed;
// they are shared through a dedup table keyed on (parent, target, mode).
func (rt *Runtime) MakeUse(defs *Stub, parent *Stub, mode UseMode) *Stub {
	defs.assertFlavor(FlavorVarList)
	if varListLen(defs) == 0 {
		return parent
	}
	if parent != nil && parent.flavor == FlavorUse {
		if parent.cell.node == defs || (parent.cell.heart.isWordlike() && bindingTarget(parent) == defs) {
			return parent
		}
	}
	key := useCacheKey{parent: parent, target: defs, mode: mode}
	if cached, ok := rt.useCache.Get(key); ok {
		return cached.(*Stub)
	}

	use := rt.makeStub(FlavorUse, StubFlagManaged, 1)
	if mode == UseSetWordsOnly {
		use.flags |= StubFlagSetWordsOnly
	}
	use.link = parent
	if defs.modmap != nil {
		// Module reference: the cell points at the module directly and the
		// captured size bounds hash lookups.
		initFrame(&use.cell, defs, nil)
	} else {
		// Ordinary context: keep a word bound to the context, frozen at the
		// current length. The bound index freezes what later expansion may
		// not disturb.
		InitWord(&use.cell, keySymbol(defs, 1))
		use.cell.binding = defs
		use.cell.index = 1
	}
	use.info = varListLen(defs)
	use.used = 1
	// misc and bonus stay unused on patches; tests probe that asking for a
	// meta answers nil.
	rt.useCache.Add(key, use)
	return use
}

// MakeLet creates a single-binding patch holding the variable's value slot
// inline.
func (rt *Runtime) MakeLet(sym *Stub, parent *Stub, initial *Cell) *Stub {
	sym.assertFlavor(FlavorSymbol)
	let := rt.makeStub(FlavorLet, StubFlagManaged, 1)
	let.link = parent
	let.misc = sym
	if initial != nil {
		let.cell = *initial
	} else {
		InitBlank(&let.cell)
	}
	let.used = 1
	return let
}

// letVar is the Let's single value slot.
func letVar(let *Stub) *Cell {
	let.assertFlavor(FlavorLet)
	return &let.cell
}

func letSymbol(let *Stub) *Stub {
	let.assertFlavor(FlavorLet)
	return let.misc
}

// bindingTarget is the context a Use patch resolves into.
func bindingTarget(use *Stub) *Stub {
	use.assertFlavor(FlavorUse)
	if use.cell.heart == HeartFrame {
		return use.cell.node
	}
	return use.cell.binding
}

// capturedLen bounds lookups to the context size seen at patch creation.
func capturedLen(use *Stub) int {
	use.assertFlavor(FlavorUse)
	return use.info
}

// lookupResult points at a resolved variable. The holder pins what the cell
// pointer lives inside, for staleness discipline at call sites.
type lookupResult struct {
	cell   *Cell
	holder *Stub
	index  int // variable index within holder, 0 for Lets
}

// lookup resolves a word against a specifier chain. Earlier patches shadow
// later ones unconditionally; the terminal context (or nil) decides last.
// Set-word-only patches skip non-set-words.
func (rt *Runtime) lookup(word *Cell, specifier *Stub) (lookupResult, *Error) {
	word.assertHeart(HeartWord, HeartSetWord, HeartGetWord)
	sym := word.Symbol()

	cur := specifier
	for cur != nil {
		if !cur.isLive() || cur.IsInaccessible() {
			return lookupResult{}, failf(ErrKindAccessViolation, "binding chain node is inaccessible")
		}
		switch cur.flavor {
		case FlavorLet:
			if cur.flags&StubFlagSetWordsOnly != 0 && word.heart != HeartSetWord {
				break
			}
			if sameSpelling(letSymbol(cur), sym) {
				return lookupResult{cell: letVar(cur), holder: cur}, nil
			}
		case FlavorUse:
			if cur.flags&StubFlagSetWordsOnly != 0 && word.heart != HeartSetWord {
				break
			}
			target := bindingTarget(cur)
			if idx := rt.findKey(target, sym, capturedLen(cur)); idx != 0 {
				return lookupResult{cell: varAt(target, idx), holder: target, index: idx}, nil
			}
		case FlavorVarList:
			// Terminal context.
			if idx := rt.findKey(cur, sym, 0); idx != 0 {
				return lookupResult{cell: varAt(cur, idx), holder: cur, index: idx}, nil
			}
			return lookupResult{}, failf(ErrKindUnbound, "%s is not bound in this context", symbolText(sym))
		case FlavorDetails:
			// Relative binding: resolvable only against a matching running
			// level's frame.
			if lvl := rt.levelForPhase(cur); lvl != nil {
				if idx := rt.findFrameKey(lvl, sym); idx != 0 {
					return lookupResult{cell: lvl.argSlot(idx), holder: lvl.varlist, index: idx}, nil
				}
			}
		default:
			panic(diverge("invalid flavor in binding chain"))
		}
		if cur.flavor == FlavorVarList {
			break
		}
		cur = cur.link
	}
	return lookupResult{}, failf(ErrKindUnbound, "%s is unbound", symbolText(sym))
}

// chainTerminal follows patch links to the ending context, nil for an
// unterminated chain.
func chainTerminal(specifier *Stub) *Stub {
	cur := specifier
	for cur != nil && cur.flavor.isPatchFlavor() {
		cur = cur.link
	}
	if cur != nil && cur.flavor == FlavorVarList {
		return cur
	}
	return nil
}

// lookupForSet resolves a set-word, creating the variable in the chain's
// terminal context when it does not exist yet and the context is writable.
func (rt *Runtime) lookupForSet(word *Cell, specifier *Stub) (lookupResult, *Error) {
	res, err := rt.lookup(word, specifier)
	if err == nil {
		return res, nil
	}
	if err.Kind != ErrKindUnbound {
		return lookupResult{}, err
	}
	terminal := chainTerminal(specifier)
	if terminal == nil {
		return lookupResult{}, err
	}
	if werr := terminal.ensureWritable(); werr != nil {
		return lookupResult{}, asError(werr)
	}
	idx, aerr := rt.appendKey(terminal, word.Symbol())
	if aerr != nil {
		return lookupResult{}, asError(aerr)
	}
	return lookupResult{cell: varAt(terminal, idx), holder: terminal, index: idx}, nil
}

// bindBlock walks an array, attaching the chain as the binding of every
// wordlike cell (and recursing into nested arrays sharing the chain). This
// is what surface BIND does under the hood.
func (rt *Runtime) bindBlock(arr *Stub, specifier *Stub) {
	n := arrayLen(arr)
	for i := 0; i < n; i++ {
		c := arr.cellAt(i)
		switch {
		case c.heart.isWordlike():
			c.binding = specifier
		case c.heart == HeartBlock || c.heart == HeartGroup:
			rt.bindBlock(c.node, specifier)
			c.binding = specifier
		}
	}
}
