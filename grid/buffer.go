// Package grid maintains a console-style screen buffer: a fixed-size grid of
// cells with per-row change tracking. It is the cell source for the term
// encoder — an interpreter fills the grid from a child's output stream, and
// Flush pushes the rows that changed through an encoder.
package grid

import (
	"github.com/mattn/go-runewidth"

	"termrelay/term"
)

// Buffer is a width×height grid of cells plus a cursor. Rows touched since
// the last TakeDirty are flagged so redraws only transmit what changed.
// Buffer is not safe for concurrent use; the owning session serializes
// writes and flushes.
type Buffer struct {
	width, height int
	rows          [][]term.Cell
	dirty         []bool
	curX, curY    int
	cursorVisible bool
	scrollback    func([]term.Cell)
}

// Option configures a Buffer.
type Option func(*Buffer)

// WithScrollback sets a hook invoked with each row evicted off the top of
// the grid by scrolling. The callback borrows the slice; it must copy
// anything it keeps.
func WithScrollback(fn func([]term.Cell)) Option {
	return func(b *Buffer) { b.scrollback = fn }
}

// NewBuffer returns a cleared buffer of the given dimensions.
func NewBuffer(width, height int, opts ...Option) *Buffer {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	b := &Buffer{width: width, height: height, cursorVisible: true}
	for _, opt := range opts {
		opt(b)
	}
	b.rows = make([][]term.Cell, height)
	for y := range b.rows {
		b.rows[y] = blankRow(width)
	}
	b.dirty = make([]bool, height)
	return b
}

func blankRow(width int) []term.Cell {
	row := make([]term.Cell, width)
	for x := range row {
		row[x] = term.Cell{Rune: ' ', Fore: term.LightGray, Back: term.Black}
	}
	return row
}

// Size returns the grid dimensions.
func (b *Buffer) Size() (width, height int) {
	return b.width, b.height
}

// Cursor returns the current cursor position.
func (b *Buffer) Cursor() (col, row int) {
	return b.curX, b.curY
}

// CursorVisible reports whether the hosted application wants the cursor
// shown.
func (b *Buffer) CursorVisible() bool {
	return b.cursorVisible
}

// Row returns the cells of row y. The slice is owned by the buffer.
func (b *Buffer) Row(y int) []term.Cell {
	if y < 0 || y >= b.height {
		return nil
	}
	return b.rows[y]
}

// SetCell stores a cell and marks its row changed. Out-of-range coordinates
// are ignored.
func (b *Buffer) SetCell(x, y int, c term.Cell) {
	if x < 0 || x >= b.width || y < 0 || y >= b.height {
		return
	}
	b.rows[y][x] = c
	b.dirty[y] = true
}

// WriteString stores s starting at (x, y) with the given colors, assigning
// leading/trailing roles to double-width runes, and returns the column after
// the last cell written. Zero-width runes are dropped. Writing stops at the
// right edge.
func (b *Buffer) WriteString(x, y int, s string, fore, back term.Color) int {
	if y < 0 || y >= b.height {
		return x
	}
	for _, r := range s {
		w := runewidth.RuneWidth(r)
		if w == 0 {
			continue
		}
		if x+w > b.width {
			break
		}
		if w == 2 {
			b.SetCell(x, y, term.Cell{Rune: r, Fore: fore, Back: back, Wide: term.WideLeading})
			b.SetCell(x+1, y, term.Cell{Rune: r, Fore: fore, Back: back, Wide: term.WideTrailing})
		} else {
			b.SetCell(x, y, term.Cell{Rune: r, Fore: fore, Back: back})
		}
		x += w
	}
	return x
}

// Resize grows or shrinks the grid, preserving the overlapping content and
// clamping the cursor.
func (b *Buffer) Resize(width, height int) {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	if width == b.width && height == b.height {
		return
	}

	rows := make([][]term.Cell, height)
	for y := range rows {
		rows[y] = blankRow(width)
	}
	copyRows := min(b.height, height)
	copyCols := min(b.width, width)
	for y := 0; y < copyRows; y++ {
		copy(rows[y][:copyCols], b.rows[y][:copyCols])
	}

	b.rows = rows
	b.width, b.height = width, height
	b.dirty = make([]bool, height)
	b.MarkAllDirty()
	b.setCursor(b.curX, b.curY)
}

// Clear blanks the whole grid.
func (b *Buffer) Clear() {
	for y := range b.rows {
		b.clearRow(y, 0, b.width-1)
	}
}

func (b *Buffer) clearRow(y, from, to int) {
	if y < 0 || y >= b.height {
		return
	}
	row := b.rows[y]
	for x := from; x <= to && x < b.width; x++ {
		if x < 0 {
			continue
		}
		row[x] = term.Cell{Rune: ' ', Fore: term.LightGray, Back: term.Black}
	}
	b.dirty[y] = true
}

// MarkAllDirty flags every row for retransmission.
func (b *Buffer) MarkAllDirty() {
	for y := range b.dirty {
		b.dirty[y] = true
	}
}

// TakeDirty returns the indexes of rows changed since the previous call, in
// ascending order, and clears the flags. The caller renders the returned
// rows through however many encoders are attached.
func (b *Buffer) TakeDirty() []int {
	var rows []int
	for y, d := range b.dirty {
		if d {
			rows = append(rows, y)
			b.dirty[y] = false
		}
	}
	return rows
}

// Flush renders all changed rows through the encoder and parks the cursor,
// completing one redraw cycle for a single attached sink.
func (b *Buffer) Flush(e *term.Encoder) {
	for _, y := range b.TakeDirty() {
		e.RenderRow(y, b.rows[y])
	}
	e.Finish(b.curX, b.curY)
}

// Redraw clears the remote display and retransmits the full grid.
func (b *Buffer) Redraw(e *term.Encoder) {
	e.Reset(true, 0)
	for y := 0; y < b.height; y++ {
		e.RenderRow(y, b.rows[y])
		b.dirty[y] = false
	}
	e.Finish(b.curX, b.curY)
}

// scrollUp shifts the grid up one row, handing the evicted top row to the
// scrollback hook.
func (b *Buffer) scrollUp() {
	if b.scrollback != nil {
		b.scrollback(b.rows[0])
	}
	top := b.rows[0]
	copy(b.rows, b.rows[1:])
	for x := range top {
		top[x] = term.Cell{Rune: ' ', Fore: term.LightGray, Back: term.Black}
	}
	b.rows[b.height-1] = top
	b.MarkAllDirty()
}

func (b *Buffer) setCursor(x, y int) {
	if x < 0 {
		x = 0
	}
	if x >= b.width {
		x = b.width - 1
	}
	if y < 0 {
		y = 0
	}
	if y >= b.height {
		y = b.height - 1
	}
	b.curX, b.curY = x, y
}
