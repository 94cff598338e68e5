package term

import "strconv"

// SGR parameter bases (Select Graphic Rendition).
const (
	sgrFore   = 30
	sgrBack   = 40
	sgrBright = 60 // offset from the 3x/4x range to the 9x/10x range
)

// appendColor appends the SGR fragment selecting the given fore/back pair.
//
// The terminal's palette is unknown: it is typically light-gray-on-black
// (mintty, putty, xterm, Konsole) or black-on-white (JediTerm, rxvt), and the
// default fore/back colors frequently match none of the 16 palette entries.
// Forcing explicit colors for the common default combinations looks wrong on
// half of those terminals, so the fragment starts from a full reset and then
// applies the smallest set of parameters that stays legible under either
// scheme:
//
//   - black background: rely on the terminal defaults where possible. A
//     light-gray foreground is the console default and maps to the terminal
//     default. Bright white becomes bold, which is visually distinct under
//     both schemes, where a literal white would vanish on black-on-white
//     terminals. Dark gray gets an explicit 90 with a 37 fallback for
//     terminals that ignore the 9x range.
//   - white background: invert (SGR 7) instead of a literal white background.
//     Black and light-gray foregrounds then map to the terminal's own
//     background color and need no explicit parameter; anything else is
//     carried as a background color, which the inversion swaps back into the
//     foreground role.
//   - anything else: set both channels explicitly.
//
// Identical effective colors additionally get SGR 8 (conceal) as a best
// effort; terminals without conceal still show contrasting text.
func appendColor(dst []byte, fore, back Color) []byte {
	dst = append(dst, "\x1b[0"...)
	switch back {
	case Black:
		switch fore {
		case LightGray:
			// Terminal default, nothing to add.
		case White:
			dst = append(dst, ";1"...)
		case DarkGray:
			dst = append(dst, ";37;90"...)
		default:
			dst = appendChannel(dst, sgrFore, fore)
		}
	case White:
		dst = append(dst, ";7"...)
		if fore != LightGray && fore != Black {
			dst = appendChannel(dst, sgrBack, fore)
		}
	default:
		dst = appendChannel(dst, sgrFore, fore)
		dst = appendChannel(dst, sgrBack, back)
	}
	if fore == back {
		dst = append(dst, ";8"...)
	}
	return append(dst, 'm')
}

// appendChannel appends the explicit color parameter for one channel. Bright
// colors emit the non-bright code first: terminals without 9x/10x support
// quietly ignore the bright parameter and keep the fallback, the rest
// override it.
func appendChannel(dst []byte, base int, c Color) []byte {
	dst = append(dst, ';')
	if c&Bright != 0 {
		plain := int(c &^ Bright)
		dst = strconv.AppendInt(dst, int64(base+plain), 10)
		dst = append(dst, ';')
		dst = strconv.AppendInt(dst, int64(base+sgrBright+plain), 10)
		return dst
	}
	return strconv.AppendInt(dst, int64(base+int(c)), 10)
}
