package core

import "github.com/renlabs/go-ren/params"

// makeStub allocates a stub of the given flavor with room for capacity
// elements. Small cell capacities use inline content; everything else gets a
// dynamic buffer from the pools. By default the stub is unmanaged and pushed
// on the manuals stack; StubFlagManaged in flags skips the push.
func (rt *Runtime) makeStub(flavor Flavor, flags StubFlag, capacity int) *Stub {
	s := rt.pools.allocStub()
	rt.trackStub(s)
	s.flavor = flavor
	s.flags |= flags

	wide := flavorTable[flavor].wide
	if wide == 0 && capacity <= params.InlineCells {
		// Inline content. An empty array is a poisoned inline cell; a
		// one-element array is an ordinary cell.
		s.cell.poison()
	} else {
		s.flags |= stubFlagDynamic
		if wide == 0 {
			s.cells = rt.pools.allocCells(capacity, flags&StubFlagPowerOfTwo != 0)
			if rt.cfg.PoisonTails {
				for i := range s.cells {
					s.cells[i].poison()
				}
			}
		} else {
			// Byte series reserve one slot past the requested capacity so a
			// terminator always fits and a binary can alias as a string.
			s.bytes = rt.pools.allocBytes(capacity+1, flags&StubFlagPowerOfTwo != 0)
		}
	}
	if rt.cfg.TrackOrigins {
		s.origin = callOrigin()
	}
	if s.flags&StubFlagManaged == 0 {
		rt.manuals.push(s)
	}
	return s
}

// newArray makes a cell-bearing stub and terminates it.
func (rt *Runtime) newArray(capacity int) *Stub {
	a := rt.makeStub(FlavorArray, 0, capacity)
	rt.terminate(a)
	return a
}

func (rt *Runtime) newBinary(capacity int) *Stub {
	b := rt.makeStub(FlavorBinary, 0, capacity)
	rt.terminate(b)
	return b
}

// terminate maintains the debug poison cell (arrays) or the reserved NUL
// byte (byte series) just past the used region.
func (rt *Runtime) terminate(s *Stub) {
	if s.flavor.isArrayFlavor() {
		if !s.isDynamic() {
			if s.used == 0 {
				s.cell.poison()
			}
			return
		}
		if rt.cfg.PoisonTails && s.bias+s.used < len(s.cells) {
			s.cells[s.bias+s.used].poison()
		}
		return
	}
	if s.bias+s.used < len(s.bytes) {
		s.bytes[s.bias+s.used] = 0
	}
}

// expand grows the used region by delta elements, reallocating when rest is
// insufficient. The buffer may move: every cell pointer into the stub is
// invalid afterward and access must go back through indices.
func (rt *Runtime) expand(s *Stub, delta int) error {
	if err := s.ensureWritable(); err != nil {
		return err
	}
	if s.flags&StubFlagFixedSize != 0 {
		return failf(ErrKindAccessViolation, "fixed-size series cannot expand")
	}
	need := s.used + delta

	if !s.isDynamic() {
		if s.flavor.isArrayFlavor() && need <= params.InlineCells {
			s.used = need
			rt.terminate(s)
			return nil
		}
		// Promote inline content to a dynamic buffer.
		inline := s.cell
		hadUsed := s.used
		s.flags |= stubFlagDynamic
		if s.flavor.isArrayFlavor() {
			s.cells = rt.pools.allocCells(need+1, s.flags&StubFlagPowerOfTwo != 0)
			if hadUsed > 0 {
				s.cells[0] = inline
			}
		} else {
			s.bytes = rt.pools.allocBytes(need+1, s.flags&StubFlagPowerOfTwo != 0)
		}
		s.used = need
		rt.terminate(s)
		return nil
	}

	if s.flavor.isArrayFlavor() {
		if need+1 > len(s.cells)-s.bias {
			grown := rt.pools.allocCells(s.bias+need+1, s.flags&StubFlagPowerOfTwo != 0)
			copy(grown, s.cells[s.bias:s.bias+s.used])
			rt.pools.freeCells(s.cells)
			s.cells = grown
			s.bias = 0 // growth folds the bias back into rest
		}
	} else {
		if need+1 > len(s.bytes)-s.bias {
			grown := rt.pools.allocBytes(s.bias+need+1, s.flags&StubFlagPowerOfTwo != 0)
			copy(grown, s.bytes[s.bias:s.bias+s.used])
			rt.pools.freeBytes(s.bytes)
			s.bytes = grown
			s.bias = 0
		}
	}
	s.used = need
	rt.terminate(s)
	return nil
}

// trimHead consumes n leading elements into the bias so left-trims do not
// move memory.
func (rt *Runtime) trimHead(s *Stub, n int) error {
	if err := s.ensureWritable(); err != nil {
		return err
	}
	if n > s.used {
		return failf(ErrKindAccessViolation, "trim past end of series")
	}
	if !s.isDynamic() {
		s.used -= n
		rt.terminate(s)
		return nil
	}
	s.bias += n
	s.used -= n
	return nil
}

// decay frees the contents but keeps the identity: outstanding references
// observe the inaccessible bit instead of dangling.
func (rt *Runtime) decay(s *Stub) {
	if s.IsInaccessible() {
		return
	}
	rt.releaseContent(s)
	s.flags |= StubFlagInaccessible
}

func (rt *Runtime) releaseContent(s *Stub) {
	if s.isDynamic() {
		if s.cells != nil {
			rt.pools.freeCells(s.cells)
			s.cells = nil
		}
		if s.bytes != nil {
			rt.pools.freeBytes(s.bytes)
			s.bytes = nil
		}
	}
	s.cell.poison()
	s.used = 0
	s.bias = 0
	s.bookmarks = nil
	s.modmap = nil
}

// kill releases the buffer and frees the stub. Managed stubs may only die in
// the sweep; killing an unmanaged one untracks it from the manuals stack.
func (rt *Runtime) kill(s *Stub) {
	if s.IsManaged() {
		if debugChecks && !rt.inSweep {
			panic(diverge("managed stub killed outside GC"))
		}
	} else {
		rt.manuals.untrack(s)
	}
	rt.releaseContent(s)
	rt.pools.freeStub(s)
}
