package core

import (
	"math/bits"

	"github.com/renlabs/go-ren/params"
)

// poolSet is the size-classed allocator behind all stub and buffer memory.
// Byte buffers and cell buffers get separate class free lists; requests
// beyond the largest class fall through to the general allocator (the Go
// heap here, standing in for the large-object path). Every allocation debits
// the ballast; crossing zero raises the recycle signal but never collects
// inline.
type poolSet struct {
	rt *Runtime

	classBytes []int   // ascending class widths in bytes
	classMap   []uint8 // request size -> class id, precomputed up to the max

	stubFree  []*Stub
	byteFree  [][][]byte // per class
	cellFree  [][][]Cell // per class, widths in cells
	classCell []int
}

func newPoolSet(rt *Runtime, classBytes []int) *poolSet {
	p := &poolSet{rt: rt, classBytes: classBytes}
	maxClass := classBytes[len(classBytes)-1]
	p.classMap = make([]uint8, maxClass+1)
	class := 0
	for size := 0; size <= maxClass; size++ {
		if size > classBytes[class] {
			class++
		}
		p.classMap[size] = uint8(class)
	}
	p.byteFree = make([][][]byte, len(classBytes))
	// Cell classes round down so a returned buffer maps back to the class
	// it came from.
	p.classCell = make([]int, len(classBytes))
	for i, w := range classBytes {
		p.classCell[i] = w / cellBytes
	}
	p.cellFree = make([][][]Cell, len(classBytes))
	return p
}

// cellBytes approximates the footprint of one Cell for ballast accounting
// and byte<->cell class conversion.
const cellBytes = 48

func (p *poolSet) debit(n int) {
	p.rt.stats.BytesAllocated += uint64(n)
	p.rt.ballast -= int64(n)
	if p.rt.ballast <= 0 {
		p.rt.requestSignal(SigRecycle)
		p.rt.ballast = p.rt.cfg.Ballast
		p.rt.stats.BallastRefills++
	}
}

// allocStub hands out a zeroed stub record from the stub pool, refilling in
// batches.
func (p *poolSet) allocStub() *Stub {
	if len(p.stubFree) == 0 {
		batch := make([]Stub, params.StubPoolBatch)
		for i := range batch {
			p.stubFree = append(p.stubFree, &batch[i])
		}
		p.rt.stats.PoolGrows++
	}
	s := p.stubFree[len(p.stubFree)-1]
	p.stubFree = p.stubFree[:len(p.stubFree)-1]
	*s = Stub{flags: stubFlagNode}
	p.debit(params.StubWords * 8)
	p.rt.stats.StubsAllocated++
	return s
}

func (p *poolSet) freeStub(s *Stub) {
	// Clear the leader to the free marker so stale probes cannot mistake
	// the record for a live node.
	*s = Stub{flavor: FlavorFree}
	p.stubFree = append(p.stubFree, s)
	p.rt.stats.StubsFreed++
}

// allocBytes returns a buffer whose capacity is the full class width, so the
// caller's actual capacity never wastes the rounding.
func (p *poolSet) allocBytes(capacity int, powerOfTwo bool) []byte {
	if capacity >= len(p.classMap) {
		if powerOfTwo {
			capacity = 1 << bits.Len(uint(capacity-1))
		}
		p.debit(capacity)
		return make([]byte, capacity)
	}
	class := p.classMap[capacity]
	width := p.classBytes[class]
	free := p.byteFree[class]
	if n := len(free); n > 0 {
		buf := free[n-1]
		p.byteFree[class] = free[:n-1]
		clear(buf)
		p.debit(width)
		return buf
	}
	p.debit(width)
	return make([]byte, width)
}

func (p *poolSet) freeBytes(buf []byte) {
	if p.rt.cfg.PoisonTails {
		for i := range buf {
			buf[i] = 0xDB
		}
	}
	if cap(buf) >= len(p.classMap) {
		return // large object, dropped to the general allocator
	}
	buf = buf[:cap(buf)]
	class := p.classMap[len(buf)]
	if p.classBytes[class] == len(buf) {
		p.byteFree[class] = append(p.byteFree[class], buf)
	}
}

// allocCells is the cell-width twin of allocBytes.
func (p *poolSet) allocCells(capacity int, powerOfTwo bool) []Cell {
	want := capacity * cellBytes
	if want >= len(p.classMap) {
		if powerOfTwo {
			capacity = 1 << bits.Len(uint(capacity-1))
		}
		p.debit(capacity * cellBytes)
		return make([]Cell, capacity)
	}
	class := p.classMap[want]
	width := p.classCell[class]
	free := p.cellFree[class]
	if n := len(free); n > 0 {
		buf := free[n-1]
		p.cellFree[class] = free[:n-1]
		clear(buf)
		p.debit(width * cellBytes)
		return buf
	}
	p.debit(width * cellBytes)
	return make([]Cell, width)
}

func (p *poolSet) freeCells(buf []Cell) {
	if p.rt.cfg.PoisonTails {
		for i := range buf {
			buf[i].poison()
		}
	}
	buf = buf[:cap(buf)]
	want := len(buf) * cellBytes
	if want >= len(p.classMap) {
		return
	}
	class := p.classMap[want]
	if p.classCell[class] == len(buf) {
		p.cellFree[class] = append(p.cellFree[class], buf)
	}
}
