package core

import (
	"unicode/utf8"

	"golang.org/x/exp/slices"
)

// String stubs hold UTF-8 bytes with the byte count in used and the
// codepoint count cached in the info slot. Bookmarks map byte offsets to
// codepoint indices so random access does not rescan from the head.

const bookmarkInterval = 64 // codepoints between bookmarks

// newString interns nothing; it makes a mutable UTF-8 series from the given
// text.
func (rt *Runtime) newString(text string) (*Stub, error) {
	if !utf8.ValidString(text) {
		return nil, failf(ErrKindTypeMismatch, "invalid UTF-8 in string content")
	}
	s := rt.makeStub(FlavorString, 0, len(text))
	copy(s.bytes, text)
	s.used = len(text)
	s.info = utf8.RuneCountInString(text)
	rt.terminate(s)
	rt.rebuildBookmarks(s)
	return s, nil
}

// stringLen is the codepoint count; Used is the byte count. A symbol's info
// slot holds its synonym rank, so its count comes from the bytes.
func stringLen(s *Stub) int {
	s.assertFlavor(FlavorString, FlavorSymbol)
	if s.flavor == FlavorSymbol {
		return utf8.RuneCount(s.byteData())
	}
	return s.info
}

// appendText grows the string, keeping byte and codepoint counts in step as
// one observable update.
func (rt *Runtime) appendText(s *Stub, text string) error {
	s.assertFlavor(FlavorString)
	if !utf8.ValidString(text) {
		return failf(ErrKindTypeMismatch, "invalid UTF-8 appended to string")
	}
	at := s.used
	if err := rt.expand(s, len(text)); err != nil {
		return err
	}
	copy(s.bytes[s.bias+at:], text)
	s.info += utf8.RuneCountInString(text)
	rt.terminate(s)
	rt.rebuildBookmarks(s)
	return nil
}

// runeAt resolves a codepoint index to a rune, walking from the nearest
// bookmark at or before it.
func (rt *Runtime) runeAt(s *Stub, cpIndex int) (rune, error) {
	s.assertFlavor(FlavorString, FlavorSymbol)
	if n := stringLen(s); cpIndex < 0 || cpIndex >= n {
		return 0, failf(ErrKindAccessViolation, "codepoint index %d out of range %d", cpIndex, n)
	}
	byteOff, cp := 0, 0
	if n, ok := slices.BinarySearchFunc(s.bookmarks, cpIndex, func(b bookmark, target int) int {
		return b.cpIndex - target
	}); !ok && n > 0 {
		byteOff, cp = s.bookmarks[n-1].byteOff, s.bookmarks[n-1].cpIndex
	} else if ok {
		byteOff, cp = s.bookmarks[n].byteOff, s.bookmarks[n].cpIndex
	}
	data := s.byteData()
	for cp < cpIndex {
		_, size := utf8.DecodeRune(data[byteOff:])
		byteOff += size
		cp++
	}
	r, _ := utf8.DecodeRune(data[byteOff:])
	return r, nil
}

func (rt *Runtime) rebuildBookmarks(s *Stub) {
	s.bookmarks = s.bookmarks[:0]
	data := s.byteData()
	byteOff, cp := 0, 0
	for byteOff < len(data) {
		if cp != 0 && cp%bookmarkInterval == 0 {
			s.bookmarks = append(s.bookmarks, bookmark{byteOff: byteOff, cpIndex: cp})
		}
		_, size := utf8.DecodeRune(data[byteOff:])
		byteOff += size
		cp++
	}
}

// aliasAsString re-types a binary in place as a string, legal only when the
// content is valid UTF-8. The reserved tail byte past used already supplies
// the terminator.
func (rt *Runtime) aliasAsString(b *Stub) (*Stub, error) {
	b.assertFlavor(FlavorBinary)
	if !utf8.Valid(b.byteData()) {
		return nil, failf(ErrKindTypeMismatch, "binary is not valid UTF-8")
	}
	b.flavor = FlavorString
	b.info = utf8.RuneCount(b.byteData())
	rt.terminate(b)
	rt.rebuildBookmarks(b)
	return b, nil
}

// aliasAsBinary is the reverse view; the bytes are identical.
func (rt *Runtime) aliasAsBinary(s *Stub) *Stub {
	s.assertFlavor(FlavorString)
	s.flavor = FlavorBinary
	s.info = 0
	s.bookmarks = nil
	return s
}

// appendBytes extends a binary.
func (rt *Runtime) appendBytes(b *Stub, data []byte) error {
	b.assertFlavor(FlavorBinary)
	at := b.used
	if err := rt.expand(b, len(data)); err != nil {
		return err
	}
	copy(b.bytes[b.bias+at:], data)
	rt.terminate(b)
	return nil
}
