package term

import "unicode/utf8"

// The legacy console draws popup borders with code points 1..6 under the
// CP932 and CP949 locales. Remap them to the double-line box drawing
// characters they stand for.
var boxDrawing = [7]rune{
	1: '╔', // BOX DRAWINGS DOUBLE DOWN AND RIGHT
	2: '╗', // BOX DRAWINGS DOUBLE DOWN AND LEFT
	3: '╚', // BOX DRAWINGS DOUBLE UP AND RIGHT
	4: '╝', // BOX DRAWINGS DOUBLE UP AND LEFT
	5: '║', // BOX DRAWINGS DOUBLE VERTICAL
	6: '═', // BOX DRAWINGS DOUBLE HORIZONTAL
}

// appendGlyph appends the UTF-8 bytes for one cell's visible content and
// reports whether the emission counts toward the row's significant length.
// Trailing cells of a double-width pair emit nothing (the leading cell
// already carried the glyph), and a plain space never extends the
// significant length.
func appendGlyph(dst []byte, c Cell) ([]byte, bool) {
	if c.Wide == WideTrailing {
		return dst, false
	}
	r := c.Rune
	if r >= 1 && r <= 6 {
		r = boxDrawing[r]
	}
	if !utf8.ValidRune(r) {
		return append(dst, '?'), true
	}
	if r == ' ' {
		return append(dst, ' '), false
	}
	return utf8.AppendRune(dst, r), true
}
