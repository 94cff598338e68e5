package term

// Color is a 4-bit console color: three additive RGB bits plus a bright bit.
// The zero value is black.
type Color uint8

const (
	Red    Color = 1 << 0
	Green  Color = 1 << 1
	Blue   Color = 1 << 2
	Bright Color = 1 << 3
)

// The grayscale points of the palette get special treatment by the color
// mapper, so they have names.
const (
	Black     Color = 0
	DarkGray  Color = Black | Bright
	LightGray Color = Red | Green | Blue
	White     Color = LightGray | Bright
)

// String returns a short human-readable name for the color.
func (c Color) String() string {
	names := [...]string{
		"black", "red", "green", "yellow",
		"blue", "magenta", "cyan", "lightgray",
		"darkgray", "brightred", "brightgreen", "brightyellow",
		"brightblue", "brightmagenta", "brightcyan", "white",
	}
	return names[c&0x0F]
}

// WideRole describes a cell's part in a double-width glyph pair.
type WideRole uint8

const (
	// WideNone marks an ordinary single-column cell.
	WideNone WideRole = iota
	// WideLeading marks the first cell of a double-width pair; it carries
	// the glyph.
	WideLeading
	// WideTrailing marks the second cell of a double-width pair; it
	// produces no output of its own.
	WideTrailing
)

// Cell is one character-grid position.
type Cell struct {
	Rune rune
	Fore Color
	Back Color
	Wide WideRole
}

// colorUnset is the sentinel for "no color has been sent on this row yet".
const colorUnset = -1

// pair packs a fore/back combination into a single comparable value.
func pair(fore, back Color) int {
	return int(fore) | int(back)<<4
}
