package core

import "github.com/cespare/xxhash/v2"

// A VarList is the array behind objects, modules and reified frames. Slot 0
// is the archetype cell; slots 1..n are the variables, paired positionally
// with the symbols of the keylist hung on the link slot. The misc slot holds
// the optional meta object.

// moduleHashThreshold is the key count past which a varlist maintains the
// hash side-structure. The hash does not preserve insertion order, so
// resolution through it is "latest binding wins".
const moduleHashThreshold = 8

type moduleMap struct {
	buckets map[uint64][]int // folded symbol hash -> key indices, append order
}

// newVarList builds a context with the given key symbols. Vars start blank.
func (rt *Runtime) newVarList(flags StubFlag, keys ...*Stub) *Stub {
	keylist := rt.makeStub(FlavorKeyList, StubFlagManaged|StubFlagFixedSize, len(keys))
	for i, sym := range keys {
		if keylist.isDynamic() {
			InitWord(&keylist.cells[i], sym)
		} else {
			InitWord(&keylist.cell, sym)
		}
	}
	keylist.used = len(keys)
	rt.terminate(keylist)

	vl := rt.makeStub(FlavorVarList, flags, len(keys)+1)
	vl.link = keylist
	vl.used = len(keys) + 1
	for i := 1; i <= len(keys); i++ {
		InitBlank(vl.cellAt(i))
	}
	initFrame(vl.cellAt(0), vl, nil)
	rt.terminate(vl)
	if len(keys) >= moduleHashThreshold {
		rt.rebuildModuleMap(vl)
	}
	return vl
}

func keyListOf(vl *Stub) *Stub {
	vl.assertFlavor(FlavorVarList)
	return vl.link
}

// varListLen is the variable count, excluding the archetype.
func varListLen(vl *Stub) int {
	vl.assertFlavor(FlavorVarList)
	return vl.used - 1
}

// keySymbol returns the n'th key (1-based, like the vars).
func keySymbol(vl *Stub, n int) *Stub {
	keylist := keyListOf(vl)
	return keylist.cellAt(n - 1).Symbol()
}

// varAt returns the n'th variable cell (1-based). The pointer is stale after
// any operation that can expand the varlist.
func varAt(vl *Stub, n int) *Cell {
	vl.assertFlavor(FlavorVarList)
	if debugChecks && (n < 1 || n >= vl.used) {
		panic(diverge("context index out of range"))
	}
	return vl.cellAt(n)
}

func (rt *Runtime) rebuildModuleMap(vl *Stub) {
	m := &moduleMap{buckets: make(map[uint64][]int)}
	n := varListLen(vl)
	for i := 1; i <= n; i++ {
		h := foldedHash(rt, keySymbol(vl, i))
		m.buckets[h] = append(m.buckets[h], i)
	}
	vl.modmap = m
}

func foldedHash(rt *Runtime, sym *Stub) uint64 {
	if sym.hash != 0 {
		return sym.hash
	}
	return xxhash.Sum64String(rt.symbols.folder.String(symbolText(sym)))
}

// findKey resolves a symbol to a variable index within the first `limit`
// keys (0 means no bound). Linear for small contexts; hashed for modules,
// where the latest matching binding wins.
func (rt *Runtime) findKey(vl *Stub, sym *Stub, limit int) int {
	n := varListLen(vl)
	if limit > 0 && limit < n {
		n = limit
	}
	if vl.modmap != nil {
		candidates := vl.modmap.buckets[foldedHash(rt, sym)]
		for i := len(candidates) - 1; i >= 0; i-- {
			idx := candidates[i]
			if idx <= n && sameSpelling(keySymbol(vl, idx), sym) {
				return idx
			}
		}
		return 0
	}
	for i := 1; i <= n; i++ {
		if sameSpelling(keySymbol(vl, i), sym) {
			return i
		}
	}
	return 0
}

// appendKey extends a context with a new variable, keeping the hash current.
// Existing var cell pointers go stale.
func (rt *Runtime) appendKey(vl *Stub, sym *Stub) (int, error) {
	keylist := keyListOf(vl)
	// Keylists of growable contexts are fixed-size by construction; swap in
	// a grown copy rather than mutating one that other frames may share.
	grown := rt.makeStub(FlavorKeyList, StubFlagManaged, keylist.used+1)
	for i := 0; i < keylist.used; i++ {
		*grown.cellAt(i) = *keylist.cellAt(i)
	}
	grown.used = keylist.used
	InitWord(grown.cellAt(keylist.used), sym)
	grown.used++
	grown.flags |= StubFlagFixedSize
	rt.terminate(grown)
	vl.link = grown

	if err := rt.expand(vl, 1); err != nil {
		return 0, err
	}
	idx := vl.used - 1
	InitBlank(vl.cellAt(idx))
	initFrame(vl.cellAt(0), vl, vl.cellAt(0).node2)
	if vl.modmap != nil || varListLen(vl) >= moduleHashThreshold {
		rt.rebuildModuleMap(vl)
	}
	return idx, nil
}

// setVar assigns by symbol, appending when absent ("latest wins" for
// modules).
func (rt *Runtime) setVar(vl *Stub, sym *Stub, v *Cell) error {
	if err := vl.ensureWritable(); err != nil {
		return err
	}
	idx := rt.findKey(vl, sym, 0)
	if idx == 0 {
		var err error
		if idx, err = rt.appendKey(vl, sym); err != nil {
			return err
		}
	}
	*varAt(vl, idx) = *v
	return nil
}

// metaOf returns the meta object hung on misc, nil when absent. Patches do
// not carry metas; asking for one answers nil rather than a defect.
func metaOf(s *Stub) *Stub {
	if s.flavor.isPatchFlavor() {
		return nil
	}
	s.assertFlavor(FlavorVarList)
	return s.misc
}

func setMeta(s *Stub, meta *Stub) {
	s.assertFlavor(FlavorVarList)
	s.misc = meta
}
