package core

import (
	"github.com/emirpasic/gods/lists/arraylist"
	"github.com/emirpasic/gods/stacks/arraystack"
)

// manualsStack tracks unmanaged stubs. A stub leaves the stack by being
// managed or killed; whatever remains above a catch point is freed on
// failure unwind, so allocations cannot leak when an operation fails
// mid-flight.
type manualsStack struct {
	list *arraylist.List
}

func newManualsStack() *manualsStack {
	return &manualsStack{list: arraylist.New()}
}

func (m *manualsStack) push(s *Stub) {
	m.list.Add(s)
}

// untrack removes the stub, searching linearly from the top; the typical
// victim is at or near it.
func (m *manualsStack) untrack(s *Stub) {
	for i := m.list.Size() - 1; i >= 0; i-- {
		v, _ := m.list.Get(i)
		if v.(*Stub) == s {
			m.list.Remove(i)
			return
		}
	}
	if debugChecks {
		panic(diverge("unmanaged stub missing from manuals stack"))
	}
}

func (m *manualsStack) size() int { return m.list.Size() }

// truncate frees every stub pushed after the given watermark; the failure
// unwind path.
func (m *manualsStack) truncate(rt *Runtime, mark int) {
	for m.list.Size() > mark {
		v, _ := m.list.Get(m.list.Size() - 1)
		m.list.Remove(m.list.Size() - 1)
		s := v.(*Stub)
		rt.releaseContent(s)
		rt.pools.freeStub(s)
	}
}

func (m *manualsStack) each(fn func(*Stub)) {
	it := m.list.Iterator()
	for it.Next() {
		fn(it.Value().(*Stub))
	}
}

// manage flips the stub to GC ownership and removes it from the manuals
// stack.
func (rt *Runtime) manage(s *Stub) {
	if s.IsManaged() {
		return
	}
	rt.manuals.untrack(s)
	s.flags |= StubFlagManaged
}

// guardStack protects nodes across calls that can trigger a recycle. Pushes
// and drops must balance LIFO.
type guardStack struct {
	stack *arraystack.Stack
}

func newGuardStack() *guardStack {
	return &guardStack{stack: arraystack.New()}
}

func (g *guardStack) size() int { return g.stack.Size() }

func (g *guardStack) each(fn func(*Stub)) {
	it := g.stack.Iterator()
	for it.Next() {
		fn(it.Value().(*Stub))
	}
}

// PushGuard protects the stub until the matching DropGuard.
func (rt *Runtime) PushGuard(s *Stub) {
	rt.guards.stack.Push(s)
}

// DropGuard releases the most recent guard, which must be for this stub.
func (rt *Runtime) DropGuard(s *Stub) {
	top, ok := rt.guards.stack.Pop()
	if !ok {
		panic(diverge("guard stack underflow"))
	}
	if top.(*Stub) != s {
		panic(diverge("guards dropped out of order"))
	}
}
