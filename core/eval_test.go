package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEvalLiteralsAndAssignment(t *testing.T) {
	rt := newTestRuntime(t)
	for _, tc := range []struct {
		name string
		code []any
		want int64
	}{
		{"literal", []any{7}, 7},
		{"last value wins", []any{1, 2, 3}, 3},
		{"assignment result", []any{"n:", 5}, 5},
		{"assignment then read", []any{"n:", 5, "n"}, 5},
		{"infix add", []any{1, "+", 2}, 3},
		{"left to right chain", []any{1, "+", 2, "+", 3}, 6},
		{"tight ops chain left to right", []any{2, "+", 3, "*", 4}, 20}, // (2 + 3) * 4, left to right
	} {
		t.Run(tc.name, func(t *testing.T) {
			res, err := rt.testDo(t, tc.code...)
			require.NoError(t, err)
			require.Equal(t, int64(tc.want), res.Integer())
		})
	}
}

func TestEvalGroup(t *testing.T) {
	rt := newTestRuntime(t)
	inner := rt.testBlock(t, 1, "+", 2)
	var grp Cell
	InitGroup(&grp, inner)
	res, err := rt.DoBlock(rt.NewBlock(grp), nil)
	require.NoError(t, err)
	require.Equal(t, int64(3), res.Integer())
}

func TestEvalGetWordFetchesWithoutInvoking(t *testing.T) {
	rt := newTestRuntime(t)
	res, err := rt.testDo(t, ":block?")
	require.NoError(t, err)
	require.Equal(t, HeartAction, res.Heart())
}

func TestUnboundWordFails(t *testing.T) {
	rt := newTestRuntime(t)
	_, err := rt.testDo(t, "no-such-thing")
	require.Error(t, err)
	var e *Error
	require.ErrorAs(t, err, &e)
	require.Equal(t, ErrKindUnbound, e.Kind)
}

func TestIfBranches(t *testing.T) {
	rt := newTestRuntime(t)
	branch := rt.testBlock(t, 1)

	res, err := rt.DoBlock(rt.NewBlock(rt.testCells(t, "if", true, branch)...), nil)
	require.NoError(t, err)
	require.Equal(t, int64(1), res.Integer())

	res, err = rt.DoBlock(rt.NewBlock(rt.testCells(t, "if", false, branch)...), nil)
	require.NoError(t, err)
	require.True(t, res.IsNulled())
}

// The deferred-infix scenario: AND tails bind to the full left expression,
// not to a partial argument of IF.
func TestDeferredInfixSeesFullLeftExpression(t *testing.T) {
	rt := newTestRuntime(t)

	blk := rt.testBlock(t, 1)
	var blkCell Cell
	InitBlock(&blkCell, blk)
	require.NoError(t, rt.SetUserVar("x", &blkCell))
	var yes Cell
	InitLogic(&yes, true)
	require.NoError(t, rt.SetUserVar("y", &yes))

	branch := rt.testBlock(t, 1)

	// if block? x and y [1] -> (block? x) and y
	res, err := rt.DoBlock(rt.NewBlock(rt.testCells(t, "if", "block?", "x", "and", "y", branch)...), nil)
	require.NoError(t, err)
	require.Equal(t, int64(1), res.Integer())

	// if x and y [1] -> x and y
	res, err = rt.DoBlock(rt.NewBlock(rt.testCells(t, "if", "x", "and", "y", branch)...), nil)
	require.NoError(t, err)
	require.Equal(t, int64(1), res.Integer())
}

func TestDeferredInfixAppliesToCallResult(t *testing.T) {
	rt := newTestRuntime(t)
	var n Cell
	InitInteger(&n, 3)
	require.NoError(t, rt.SetUserVar("x", &n))

	// block? x and true: block? sees only x, AND applies to its result.
	res, err := rt.testDo(t, "block?", "x", "and", true)
	require.NoError(t, err)
	require.Equal(t, HeartLogic, res.Heart())
	require.False(t, res.Logic(), "block? 3 is false, so false and true is false")
}

func TestTightInfixGrabsArgument(t *testing.T) {
	rt := newTestRuntime(t)
	// block? 1 + 2 -> block? (1 + 2): tight ops run inside the argument.
	res, err := rt.testDo(t, "block?", 1, "+", 2)
	require.NoError(t, err)
	require.False(t, res.Logic())
}

func TestInfixWithoutLeftArgumentFails(t *testing.T) {
	rt := newTestRuntime(t)
	_, err := rt.testDo(t, "+", 1, 2)
	require.Error(t, err)
	var e *Error
	require.ErrorAs(t, err, &e)
	require.Equal(t, ErrKindTypeMismatch, e.Kind)
}

// Re-evaluation through the spare cell: eval consumes its argument and the
// surrounding step treats it as the next value.
func TestEvalNative(t *testing.T) {
	rt := newTestRuntime(t)
	blk := rt.testBlock(t, 1, "+", 2)
	var blkCell Cell
	InitBlock(&blkCell, blk)
	require.NoError(t, rt.SetUserVar("code", &blkCell))

	res, err := rt.testDo(t, "eval", "code")
	require.NoError(t, err)
	require.Equal(t, int64(3), res.Integer())
}

func TestEitherTakesTheRightBranch(t *testing.T) {
	rt := newTestRuntime(t)
	yesBranch := rt.testBlock(t, 1)
	noBranch := rt.testBlock(t, 2)
	res, err := rt.DoBlock(rt.NewBlock(rt.testCells(t, "either", false, yesBranch, noBranch)...), nil)
	require.NoError(t, err)
	require.Equal(t, int64(2), res.Integer())
}

func TestVariadicFeedWithInstruction(t *testing.T) {
	rt := newTestRuntime(t)

	// Splice a pre-evaluated value between live tokens.
	var pre Cell
	InitInteger(&pre, 40)
	wrapped := rt.makeInstruction(&pre)

	plus := rt.testCells(t, "+")
	two := rt.testCells(t, 2)
	res, err := rt.DoVariadic([]*Cell{wrapped, &plus[0], &two[0]})
	require.NoError(t, err)
	require.Equal(t, int64(42), res.Integer())
}

func TestThrowEscalatesToFailure(t *testing.T) {
	rt := newTestRuntime(t)
	_, err := rt.testDo(t, "break")
	require.Error(t, err)
	var e *Error
	require.ErrorAs(t, err, &e)
	require.Equal(t, ErrKindThrow, e.Kind)
}

func TestDivergenceRecoveredAtTop(t *testing.T) {
	rt := newTestRuntime(t)
	bomb, err := rt.MakeAction("bomb", nil, func(l *Level) Status {
		panic(diverge("deliberate"))
	})
	require.NoError(t, err)
	var val Cell
	InitAction(&val, bomb)
	require.NoError(t, rt.SetUserVar("bomb", &val))

	_, derr := rt.testDo(t, "bomb")
	require.Error(t, derr)
	require.True(t, rt.fs.divergent)
	require.Equal(t, 0, rt.levelDepth(), "stack fully unwound")
}
