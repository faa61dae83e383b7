package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecycleSweepsUnreachable(t *testing.T) {
	rt := newTestRuntime(t)
	s := rt.makeStub(FlavorArray, StubFlagManaged, 4)
	require.True(t, s.isLive())
	rt.Recycle()
	require.False(t, s.isLive(), "unreachable managed stub is swept")
}

func TestRecycleKeepsReachable(t *testing.T) {
	rt := newTestRuntime(t)
	arr := rt.makeStub(FlavorArray, StubFlagManaged, 4)
	var v Cell
	InitBlock(&v, arr)
	require.NoError(t, rt.SetUserVar("keeper", &v))

	rt.Recycle()
	require.True(t, arr.isLive(), "reachable through the user context")
}

func TestRecycleTracesNestedStructures(t *testing.T) {
	rt := newTestRuntime(t)
	inner := rt.makeStub(FlavorArray, StubFlagManaged, 2)
	outer := rt.makeStub(FlavorArray, StubFlagManaged, 2)
	var v Cell
	InitBlock(&v, inner)
	require.NoError(t, rt.appendCell(outer, &v))

	InitBlock(&v, outer)
	require.NoError(t, rt.SetUserVar("nest", &v))

	rt.Recycle()
	require.True(t, outer.isLive())
	require.True(t, inner.isLive(), "transitively marked through cell payloads")
}

func TestGuardProtectsAcrossRecycle(t *testing.T) {
	rt := newTestRuntime(t)
	s := rt.makeStub(FlavorArray, StubFlagManaged, 4)
	rt.PushGuard(s)
	rt.Recycle()
	require.True(t, s.isLive())

	rt.DropGuard(s)
	rt.Recycle()
	require.False(t, s.isLive())
}

func TestManualsAreNeverSwept(t *testing.T) {
	rt := newTestRuntime(t)
	s := rt.makeStub(FlavorArray, 0, 4) // unmanaged, on the manuals stack
	rt.Recycle()
	require.True(t, s.isLive())

	rt.manage(s)
	rt.Recycle()
	require.False(t, s.isLive(), "once managed and unreachable, it goes")
}

func TestHoldPinsOtherwiseUnreachable(t *testing.T) {
	rt := newTestRuntime(t)
	prev := debugChecks
	debugChecks = false // the hold-balance assertion is the thing under test
	defer func() { debugChecks = prev }()

	s := rt.makeStub(FlavorArray, StubFlagManaged, 4)
	s.addHold()
	rt.Recycle()
	require.True(t, s.isLive(), "held stubs survive even unreachable")

	s.releaseHold()
	rt.Recycle()
	require.False(t, s.isLive())
}

func TestInaccessibleStubKeepsIdentityThroughGC(t *testing.T) {
	rt := newTestRuntime(t)
	s := rt.makeStub(FlavorArray, StubFlagManaged, 4)
	var v Cell
	InitBlock(&v, s)
	require.NoError(t, rt.SetUserVar("decayed", &v))

	rt.decay(s)
	rt.Recycle()
	require.True(t, s.isLive())
	require.True(t, s.IsInaccessible())
}

func TestTransientColoringMustBalance(t *testing.T) {
	rt := newTestRuntime(t)
	s := rt.makeStub(FlavorArray, StubFlagManaged, 4)
	var v Cell
	InitBlock(&v, s)
	require.NoError(t, rt.SetUserVar("tinted", &v))

	s.col = colorGray // a non-GC algorithm forgot to balance its coloring
	require.Panics(t, func() { rt.Recycle() })
	s.col = colorWhite
}

func TestLevelArgTracingStopsAtCursor(t *testing.T) {
	rt := newTestRuntime(t)

	junk := rt.makeStub(FlavorArray, StubFlagManaged, 2)
	kept := rt.makeStub(FlavorArray, StubFlagManaged, 2)

	details, err := rt.MakeAction("probe", []Param{
		{Name: mustSym(t, rt, "one"), Class: ParamNormal},
		{Name: mustSym(t, rt, "two"), Class: ParamNormal},
	}, func(l *Level) Status {
		InitBlank(l.Out)
		return StatusDone
	})
	require.NoError(t, err)

	var out Cell
	feed := rt.NewVariadicFeed(nil, rt.user)
	l := rt.pushActionLevel(&out, feed, details, nil)
	InitBlock(l.argSlot(1), kept)
	InitBlock(l.argSlot(2), junk)
	l.arg = 1 // slot two is in-progress trash as far as the GC knows

	rt.Recycle()
	require.True(t, kept.isLive(), "slots before the cursor are traced")
	require.False(t, junk.isLive(), "slots past the cursor are not")

	// Under a pickups pass the whole range is traced.
	junk2 := rt.makeStub(FlavorArray, StubFlagManaged, 2)
	InitBlock(l.argSlot(2), junk2)
	l.flags |= levelFlagDoingPickups
	rt.Recycle()
	require.True(t, junk2.isLive())

	l.flags &^= levelFlagDoingPickups
	rt.DropLevel(l)
}

func TestUseCachePurgedForSweptPatches(t *testing.T) {
	rt := newTestRuntime(t)
	ctx := rt.newVarList(StubFlagManaged)
	setInt(t, rt, ctx, "a", 1)
	v := *ctx.cellAt(0) // keep the context alive through its archetype
	require.NoError(t, rt.SetUserVar("ctx-holder", &v))

	use := rt.MakeUse(ctx, nil, UseAllWords)
	require.Equal(t, FlavorUse, use.Flavor())

	rt.Recycle() // nothing references the patch; it is swept
	require.False(t, use.isLive())

	again := rt.MakeUse(ctx, nil, UseAllWords)
	require.True(t, again.isLive(), "cache must not hand back the swept stub")
}
