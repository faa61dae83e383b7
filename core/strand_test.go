package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStringCountsBytesAndCodepoints(t *testing.T) {
	rt := newTestRuntime(t)
	for _, tc := range []struct {
		text   string
		bytes  int
		points int
	}{
		{"", 0, 0},
		{"hello", 5, 5},
		{"héllo", 6, 5},
		{"日本語", 9, 3},
	} {
		s, err := rt.newString(tc.text)
		require.NoError(t, err)
		require.Equal(t, tc.bytes, s.Used(), "%q bytes", tc.text)
		require.Equal(t, tc.points, stringLen(s), "%q codepoints", tc.text)
	}
}

func TestAppendTextUpdatesBothCounts(t *testing.T) {
	rt := newTestRuntime(t)
	s, err := rt.newString("ab")
	require.NoError(t, err)
	require.NoError(t, rt.appendText(s, "ç"))
	require.Equal(t, 4, s.Used())
	require.Equal(t, 3, stringLen(s))
}

func TestRuneAtUsesBookmarks(t *testing.T) {
	rt := newTestRuntime(t)
	// Long enough to cross several bookmark intervals, with multibyte
	// content so byte offsets diverge from codepoint indices.
	text := strings.Repeat("aé", 200)
	s, err := rt.newString(text)
	require.NoError(t, err)
	require.NotEmpty(t, s.bookmarks)

	runes := []rune(text)
	for _, idx := range []int{0, 1, 63, 64, 65, 199, 255, 399} {
		r, err := rt.runeAt(s, idx)
		require.NoError(t, err)
		require.Equal(t, runes[idx], r, "index %d", idx)
	}
	_, err = rt.runeAt(s, 400)
	require.Error(t, err)
}

func TestInvalidUTF8Rejected(t *testing.T) {
	rt := newTestRuntime(t)
	_, err := rt.newString(string([]byte{0xff, 0xfe}))
	require.Error(t, err)

	b := rt.newBinary(4)
	require.NoError(t, rt.appendBytes(b, []byte{0xff, 0x01}))
	_, err = rt.aliasAsString(b)
	require.Error(t, err)
	var e *Error
	require.ErrorAs(t, err, &e)
	require.Equal(t, ErrKindTypeMismatch, e.Kind)
}

// Binary -> String -> Binary round trip is byte-identical, and the reserved
// tail byte terminates the aliased string.
func TestBinaryStringAliasRoundTrip(t *testing.T) {
	rt := newTestRuntime(t)
	payload := []byte("héllo wörld")
	b := rt.newBinary(len(payload))
	require.NoError(t, rt.appendBytes(b, payload))

	s, err := rt.aliasAsString(b)
	require.NoError(t, err)
	require.Equal(t, FlavorString, s.Flavor())
	require.Equal(t, 11, stringLen(s))
	require.Equal(t, byte(0), s.bytes[s.bias+s.used], "NUL terminator in reserved tail")

	back := rt.aliasAsBinary(s)
	require.Equal(t, FlavorBinary, back.Flavor())
	require.Equal(t, payload, back.byteData())
	require.Same(t, b, back, "aliasing re-types in place")
}
