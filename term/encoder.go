// Package term encodes character-grid rows into a minimal stream of ANSI
// escape sequences for an arbitrary downstream terminal.
//
// The encoder is stateful: it tracks where it believes the remote cursor is
// and reconciles belief with the desired state using relative movement only,
// so it never needs to query the terminal. One encoder instance is paired
// with exactly one byte sink for its whole life and is not safe for
// concurrent use; the owner serializes redraw cycles
// (Reset → RenderRow… → Finish).
package term

import "io"

// Escape fragments that never carry parameters.
const (
	seqEraseLine  = "\x1b[2K"
	seqHideCursor = "\x1b[?25l"
	seqShowCursor = "\x1b[?25h"
	seqClearHome  = "\x1b[0m\x1b[1;1H\x1b[2J"
)

// Encoder converts grid rows into terminal output on a byte sink.
//
// Writes are fire-and-forget: the sink is assumed reliable and
// order-preserving, and write errors are discarded. In bypass mode no escape
// sequences are emitted at all, only raw text; that mode is for consumers
// that are themselves consoles doing their own rendering.
type Encoder struct {
	out    io.Writer
	bypass bool

	believedRow  int
	cursorHidden bool
	cursorCol    int
	cursorRow    int
	lastColor    int

	line    []byte // per-row scratch buffer, reused across calls
	scratch [32]byte
}

// NewEncoder returns an encoder writing to out. Call Reset before the first
// RenderRow.
func NewEncoder(out io.Writer) *Encoder {
	return &Encoder{out: out, lastColor: colorUnset, line: make([]byte, 0, 256)}
}

// SetBypass switches bypass mode on or off. Toggling emits nothing by
// itself; all subsequent emissions honor the new setting.
func (e *Encoder) SetBypass(on bool) {
	e.bypass = on
}

// Bypass reports whether bypass mode is active.
func (e *Encoder) Bypass() bool {
	return e.bypass
}

// Reset re-establishes a known belief state at session start or on a full
// redraw. If clearFirst is set (and not in bypass mode) it first resets all
// styling, homes the cursor and clears the display, giving a blank canvas.
func (e *Encoder) Reset(clearFirst bool, startRow int) {
	if clearFirst && !e.bypass {
		e.write([]byte(seqClearHome))
	}
	e.believedRow = startRow
	e.cursorHidden = false
	e.cursorCol, e.cursorRow = 0, startRow
	e.lastColor = colorUnset
}

// RenderRow emits one changed row: hide the cursor, reposition, erase the
// line, then the cells left to right with color changes interleaved. The
// erase fragment and cell content are buffered and flushed as a single
// write; trailing blank cells in the default color (and any styling
// fragments with nothing visible after them) are not transmitted.
func (e *Encoder) RenderRow(row int, cells []Cell) {
	e.hideCursor()
	e.moveToRow(row)

	e.line = e.line[:0]
	if !e.bypass {
		e.line = append(e.line, seqEraseLine...)
	}
	significant := len(e.line)

	// Each row is erased and redrawn, so color state never carries over
	// from the previous row.
	e.lastColor = colorUnset

	for _, cell := range cells {
		if p := pair(cell.Fore, cell.Back); p != e.lastColor {
			if !e.bypass {
				e.line = appendColor(e.line, cell.Fore, cell.Back)
			}
			e.lastColor = p
		}
		var visible bool
		e.line, visible = appendGlyph(e.line, cell)
		if visible {
			significant = len(e.line)
		}
	}
	e.write(e.line[:significant])
}

// Finish repositions the cursor to the caller's desired coordinates and
// reveals it, ending a redraw cycle. A changed target forces a hide first so
// the move is not visible; an unchanged target with a visible cursor emits
// nothing.
func (e *Encoder) Finish(col, row int) {
	if col != e.cursorCol || row != e.cursorRow {
		e.hideCursor()
	}
	if e.cursorHidden {
		e.moveToRow(row)
		if !e.bypass {
			buf := append(e.scratch[:0], "\x1b["...)
			buf = appendUint(buf, col+1)
			buf = append(buf, 'G')
			buf = append(buf, seqShowCursor...)
			e.write(buf)
		}
		e.cursorHidden = false
	}
	e.cursorCol, e.cursorRow = col, row
}

// hideCursor is idempotent. Hiding before any repositioning keeps the whole
// redraw visually atomic: moving a visible cursor through intermediate rows
// flickers.
func (e *Encoder) hideCursor() {
	if e.cursorHidden {
		return
	}
	if !e.bypass {
		e.write([]byte(seqHideCursor))
	}
	e.cursorHidden = true
}

// moveToRow reconciles the believed row with the target. Upward movement is
// a carriage return plus cursor-up; downward movement is one CR/LF per row.
// CNL/CPL are avoided on purpose: Konsole rejects CPL outright, and CNL does
// nothing when the cursor already sits on the last line, which would
// desynchronize the believed row from reality.
func (e *Encoder) moveToRow(row int) {
	switch {
	case row < e.believedRow:
		if !e.bypass {
			buf := append(e.scratch[:0], "\r\x1b["...)
			buf = appendUint(buf, e.believedRow-row)
			buf = append(buf, 'A')
			e.write(buf)
		}
		e.believedRow = row
	case row > e.believedRow:
		for row > e.believedRow {
			if !e.bypass {
				e.write([]byte("\r\n"))
			}
			e.believedRow++
		}
	default:
		// Column tracking is not maintained between rows; a bare CR
		// pins the column to zero.
		e.write([]byte{'\r'})
	}
}

func (e *Encoder) write(p []byte) {
	if len(p) == 0 {
		return
	}
	_, _ = e.out.Write(p)
}

func appendUint(dst []byte, n int) []byte {
	if n < 0 {
		n = 0
	}
	if n < 10 {
		return append(dst, byte('0'+n))
	}
	var tmp [20]byte
	i := len(tmp)
	for n > 0 {
		i--
		tmp[i] = byte('0' + n%10)
		n /= 10
	}
	return append(dst, tmp[i:]...)
}
