package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// refProbe builds an action [/r x /s y] whose dispatcher records the refine
// sentinel and value of every slot.
type refProbe struct {
	states [5]RefineState
	vals   [5]Cell
	ran    bool
}

func makeRefProbe(t *testing.T, rt *Runtime) (*Stub, *refProbe) {
	t.Helper()
	probe := &refProbe{}
	details, err := rt.MakeAction("f", []Param{
		{Name: mustSym(t, rt, "r"), Class: ParamRefinement},
		{Name: mustSym(t, rt, "x"), Class: ParamNormal},
		{Name: mustSym(t, rt, "s"), Class: ParamRefinement},
		{Name: mustSym(t, rt, "y"), Class: ParamNormal},
	}, func(l *Level) Status {
		probe.ran = true
		for i := 1; i <= 4; i++ {
			probe.states[i] = l.RefineStateOf(i)
			probe.vals[i] = *l.Arg(i)
		}
		InitBlank(l.Out)
		return StatusDone
	})
	require.NoError(t, err)
	return details, probe
}

func feedOf(t *testing.T, rt *Runtime, vals ...any) *Feed {
	t.Helper()
	cells := rt.testCells(t, vals...)
	ptrs := make([]*Cell, len(cells))
	for i := range cells {
		ptrs[i] = &cells[i]
	}
	return rt.NewVariadicFeed(ptrs, rt.user)
}

// Revocation: F/r _ leaves r revoked, x none, s unused, y unused.
func TestRefinementRevocation(t *testing.T) {
	rt := newTestRuntime(t)
	details, probe := makeRefProbe(t, rt)

	_, err := rt.InvokeAction(details, []string{"r"}, feedOf(t, rt, "_"))
	require.NoError(t, err)
	require.True(t, probe.ran)

	require.Equal(t, refineRevoked, probe.states[1], "r")
	require.Equal(t, refineRevoked, probe.states[2], "x consumed the revoking none")
	require.Equal(t, refineUnused, probe.states[3], "s")
	require.Equal(t, refineUnused, probe.states[4], "y")
	require.True(t, probe.vals[1].IsNulled(), "revoked refinement reads as none")
	require.True(t, probe.vals[2].IsNulled())
}

func TestRefinementActiveTakesValue(t *testing.T) {
	rt := newTestRuntime(t)
	details, probe := makeRefProbe(t, rt)

	_, err := rt.InvokeAction(details, []string{"r"}, feedOf(t, rt, 7))
	require.NoError(t, err)

	require.Equal(t, refineActive, probe.states[1])
	require.Equal(t, refineActive, probe.states[2])
	require.True(t, probe.vals[1].Logic())
	require.Equal(t, int64(7), probe.vals[2].Integer())
	require.Equal(t, refineUnused, probe.states[3])
}

func TestRefinementsOutOfOrderUsePickups(t *testing.T) {
	rt := newTestRuntime(t)
	details, probe := makeRefProbe(t, rt)

	// F/s/r: the callsite supplies y first (path order), then x.
	_, err := rt.InvokeAction(details, []string{"s", "r"}, feedOf(t, rt, 11, 22))
	require.NoError(t, err)

	require.Equal(t, refineActive, probe.states[1])
	require.Equal(t, refineActive, probe.states[3])
	require.Equal(t, int64(11), probe.vals[4].Integer(), "y takes the first expression")
	require.Equal(t, int64(22), probe.vals[2].Integer(), "x is picked up second")
}

func TestUnknownRefinementFails(t *testing.T) {
	rt := newTestRuntime(t)
	details, _ := makeRefProbe(t, rt)
	_, err := rt.InvokeAction(details, []string{"bogus"}, feedOf(t, rt))
	require.Error(t, err)
	var e *Error
	require.ErrorAs(t, err, &e)
	require.Equal(t, ErrKindTypeMismatch, e.Kind)
}

func TestMissingArgumentFails(t *testing.T) {
	rt := newTestRuntime(t)
	details, _ := makeRefProbe(t, rt)
	_, err := rt.InvokeAction(details, []string{"r"}, feedOf(t, rt))
	require.Error(t, err)
}

func TestRevokedRefinementArgumentMustBeNone(t *testing.T) {
	rt := newTestRuntime(t)
	probeRan := false
	details, err := rt.MakeAction("g", []Param{
		{Name: mustSym(t, rt, "r"), Class: ParamRefinement},
		{Name: mustSym(t, rt, "x1"), Class: ParamNormal},
		{Name: mustSym(t, rt, "x2"), Class: ParamNormal},
	}, func(l *Level) Status {
		probeRan = true
		InitBlank(l.Out)
		return StatusDone
	})
	require.NoError(t, err)

	// First arg none revokes; a non-none second arg is then a mismatch.
	_, cerr := rt.InvokeAction(details, []string{"r"}, feedOf(t, rt, "_", 5))
	require.Error(t, cerr)
	var e *Error
	require.ErrorAs(t, cerr, &e)
	require.Equal(t, ErrKindTypeMismatch, e.Kind)
	require.False(t, probeRan)

	// Both none is fine.
	_, cerr = rt.InvokeAction(details, []string{"r"}, feedOf(t, rt, "_", "_"))
	require.NoError(t, cerr)
	require.True(t, probeRan)
}

// A specialization supplying a value to a revoked refinement's argument is
// a type mismatch rather than a silent override.
func TestSpecializationAgainstRevokedRefinement(t *testing.T) {
	rt := newTestRuntime(t)
	details, err := rt.MakeAction("h", []Param{
		{Name: mustSym(t, rt, "r"), Class: ParamRefinement},
		{Name: mustSym(t, rt, "x1"), Class: ParamNormal},
		{Name: mustSym(t, rt, "x2"), Class: ParamNormal},
	}, func(l *Level) Status {
		InitBlank(l.Out)
		return StatusDone
	})
	require.NoError(t, err)

	// Exemplar pins x2 to a non-none value.
	exemplar := rt.newVarList(StubFlagManaged,
		mustSym(t, rt, "r"), mustSym(t, rt, "x1"), mustSym(t, rt, "x2"))
	var pinned Cell
	InitInteger(&pinned, 5)
	*varAt(exemplar, 3) = pinned
	details.link = exemplar

	_, cerr := rt.InvokeAction(details, []string{"r"}, feedOf(t, rt, "_"))
	require.Error(t, cerr)
	var e *Error
	require.ErrorAs(t, cerr, &e)
	require.Equal(t, ErrKindTypeMismatch, e.Kind)
}

func TestSpecializationFillsWithoutConsuming(t *testing.T) {
	rt := newTestRuntime(t)
	var got [3]Cell
	details, err := rt.MakeAction("spec", []Param{
		{Name: mustSym(t, rt, "a"), Class: ParamNormal},
		{Name: mustSym(t, rt, "b"), Class: ParamNormal},
	}, func(l *Level) Status {
		got[1] = *l.Arg(1)
		got[2] = *l.Arg(2)
		InitBlank(l.Out)
		return StatusDone
	})
	require.NoError(t, err)

	exemplar := rt.newVarList(StubFlagManaged, mustSym(t, rt, "a"), mustSym(t, rt, "b"))
	var pin Cell
	InitInteger(&pin, 100)
	*varAt(exemplar, 1) = pin
	details.link = exemplar

	_, cerr := rt.InvokeAction(details, nil, feedOf(t, rt, 9))
	require.NoError(t, cerr)
	require.Equal(t, int64(100), got[1].Integer(), "a came from the exemplar")
	require.Equal(t, int64(9), got[2].Integer(), "b came from the callsite")
}

func TestArgumentTypeCheck(t *testing.T) {
	rt := newTestRuntime(t)
	_, err := rt.testDo(t, 1, "+", true)
	require.Error(t, err)
	var e *Error
	require.ErrorAs(t, err, &e)
	require.Equal(t, ErrKindTypeMismatch, e.Kind)
}

func TestLookbackArgTypeCheck(t *testing.T) {
	rt := newTestRuntime(t)
	_, err := rt.testDo(t, true, "+", 1)
	require.Error(t, err)
}

func TestFrameReification(t *testing.T) {
	rt := newTestRuntime(t)
	var frame *Stub
	details, err := rt.MakeAction("reify", []Param{
		{Name: mustSym(t, rt, "v"), Class: ParamNormal},
	}, func(l *Level) Status {
		frame = l.rt.reifyVarList(l)
		*l.Out = *l.Arg(1)
		return StatusDone
	})
	require.NoError(t, err)

	var val Cell
	InitAction(&val, details)
	require.NoError(t, rt.SetUserVar("reify", &val))

	res, derr := rt.testDo(t, "reify", 8)
	require.NoError(t, derr)
	require.Equal(t, int64(8), res.Integer())
	require.NotNil(t, frame)
	require.Equal(t, FlavorVarList, frame.Flavor())
	require.Equal(t, int64(8), varAt(frame, 1).Integer())
	require.Equal(t, 0, frame.info, "frame marked not-running after drop")
}
