package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestRuntime(t *testing.T) *Runtime {
	t.Helper()
	cfg := DefaultConfig()
	rt, err := Init(cfg)
	require.NoError(t, err)
	return rt
}

// cells builds a Cell slice from a compact description for feed assembly:
// int64 -> integer, bool -> logic, string -> word ("name:" set-word,
// ":name" get-word, "_" blank), *Stub array -> block, Cell passthrough.
func (rt *Runtime) testCells(t *testing.T, vals ...any) []Cell {
	t.Helper()
	out := make([]Cell, len(vals))
	for i, v := range vals {
		c := &out[i]
		switch tv := v.(type) {
		case int:
			InitInteger(c, int64(tv))
		case int64:
			InitInteger(c, tv)
		case bool:
			InitLogic(c, tv)
		case string:
			if tv == "_" {
				InitBlank(c)
				continue
			}
			if n := len(tv); n > 1 && tv[n-1] == ':' {
				sym, err := rt.Intern(tv[:n-1])
				require.NoError(t, err)
				InitSetWord(c, sym)
				continue
			}
			if tv[0] == ':' {
				sym, err := rt.Intern(tv[1:])
				require.NoError(t, err)
				InitGetWord(c, sym)
				continue
			}
			sym, err := rt.Intern(tv)
			require.NoError(t, err)
			InitWord(c, sym)
		case *Stub:
			InitBlock(c, tv)
		case Cell:
			*c = tv
		default:
			t.Fatalf("testCells: unhandled %T", v)
		}
	}
	return out
}

func (rt *Runtime) testBlock(t *testing.T, vals ...any) *Stub {
	t.Helper()
	return rt.NewBlock(rt.testCells(t, vals...)...)
}

func (rt *Runtime) testDo(t *testing.T, vals ...any) (Cell, error) {
	t.Helper()
	return rt.DoBlock(rt.testBlock(t, vals...), nil)
}

func mustSym(t *testing.T, rt *Runtime, s string) *Stub {
	t.Helper()
	sym, err := rt.Intern(s)
	require.NoError(t, err)
	return sym
}
