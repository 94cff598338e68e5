package grid

import (
	"unicode/utf8"

	"github.com/mattn/go-runewidth"

	"termrelay/term"
)

type state int

const (
	stateGround state = iota
	stateEscape
	stateCSI
	stateOSC
	stateCharset
)

// pen is the interpreter's current drawing attributes, kept in console
// terms: intensity folds into the bright bit and reverse swaps the channels
// at placement time.
type pen struct {
	fore, back term.Color
	bold       bool
	reverse    bool
}

func defaultPen() pen {
	return pen{fore: term.LightGray, back: term.Black}
}

func (p pen) cell(r rune, wide term.WideRole) term.Cell {
	fore, back := p.fore, p.back
	if p.bold {
		fore |= term.Bright
	}
	if p.reverse {
		fore, back = back, fore
	}
	return term.Cell{Rune: r, Fore: fore, Back: back, Wide: wide}
}

// Interpreter applies a VT100/ANSI byte stream to a Buffer. It understands
// the sequences interactive programs commonly emit — cursor movement,
// SGR styling, erase in line/display, character deletion — and quietly
// ignores the rest. Extended colors are quantized into the 4-bit model.
type Interpreter struct {
	buf *Buffer
	pen pen

	state        state
	params       []int
	currentParam int
	private      bool
	oscBuffer    []byte
	pending      []byte // partial UTF-8 sequence from the previous Parse

	savedX, savedY int
	wrapNext       bool

	// TitleChanged is invoked when the application sets the window title
	// via OSC 0/2.
	TitleChanged func(string)
}

// NewInterpreter returns an interpreter writing into buf.
func NewInterpreter(buf *Buffer) *Interpreter {
	return &Interpreter{
		buf:       buf,
		pen:       defaultPen(),
		params:    make([]int, 0, 16),
		oscBuffer: make([]byte, 0, 128),
	}
}

// Parse processes a chunk of output from the hosted process. Chunks may
// split escape sequences and UTF-8 runes at arbitrary boundaries.
func (in *Interpreter) Parse(data []byte) {
	for _, b := range data {
		switch in.state {
		case stateGround:
			in.parseGround(b)
		case stateEscape:
			in.parseEscape(b)
		case stateCSI:
			in.parseCSI(b)
		case stateOSC:
			if b == 0x07 {
				in.handleOSC()
				in.state = stateGround
			} else {
				in.oscBuffer = append(in.oscBuffer, b)
			}
		case stateCharset:
			in.state = stateGround
		}
	}
}

func (in *Interpreter) parseGround(b byte) {
	switch b {
	case 0x1b:
		in.pending = in.pending[:0]
		in.state = stateEscape
	case '\n':
		in.wrapNext = false
		in.lineFeed()
	case '\r':
		in.wrapNext = false
		in.buf.curX = 0
	case '\b':
		in.wrapNext = false
		if in.buf.curX > 0 {
			in.buf.curX--
		}
	case '\t':
		in.wrapNext = false
		next := (in.buf.curX/8 + 1) * 8
		if next >= in.buf.width {
			next = in.buf.width - 1
		}
		in.buf.curX = next
	case 0x07:
		// Bell; nothing to render.
	default:
		if b < 0x20 {
			return
		}
		in.pending = append(in.pending, b)
		if utf8.FullRune(in.pending) {
			r, _ := utf8.DecodeRune(in.pending)
			in.pending = in.pending[:0]
			in.place(r)
		}
	}
}

func (in *Interpreter) parseEscape(b byte) {
	switch b {
	case '[':
		in.state = stateCSI
		in.params = in.params[:0]
		in.currentParam = 0
		in.private = false
	case ']':
		in.state = stateOSC
		in.oscBuffer = in.oscBuffer[:0]
	case '(', ')':
		in.state = stateCharset
	case 'M': // Reverse Index
		if in.buf.curY > 0 {
			in.buf.curY--
		}
		in.state = stateGround
	case 'c': // RIS, full reset
		in.pen = defaultPen()
		in.buf.Clear()
		in.buf.setCursor(0, 0)
		in.state = stateGround
	default:
		in.state = stateGround
	}
}

func (in *Interpreter) parseCSI(b byte) {
	switch {
	case b >= '0' && b <= '9':
		in.currentParam = in.currentParam*10 + int(b-'0')
	case b == ';':
		in.params = append(in.params, in.currentParam)
		in.currentParam = 0
	case b == '?':
		in.private = true
	case b >= '@' && b <= '~':
		in.params = append(in.params, in.currentParam)
		in.dispatchCSI(b)
		in.state = stateGround
	}
}

func (in *Interpreter) dispatchCSI(command byte) {
	buf := in.buf
	param := func(i, def int) int {
		if i < len(in.params) && in.params[i] != 0 {
			return in.params[i]
		}
		return def
	}

	if in.private {
		if command == 'h' || command == 'l' {
			for _, mode := range in.params {
				if mode == 25 {
					buf.cursorVisible = command == 'h'
				}
			}
		}
		return
	}

	switch command {
	case 'A':
		in.wrapNext = false
		buf.setCursor(buf.curX, buf.curY-param(0, 1))
	case 'B':
		in.wrapNext = false
		buf.setCursor(buf.curX, buf.curY+param(0, 1))
	case 'C':
		buf.setCursor(buf.curX+param(0, 1), buf.curY)
	case 'D':
		buf.setCursor(buf.curX-param(0, 1), buf.curY)
	case 'H', 'f':
		in.wrapNext = false
		buf.setCursor(param(1, 1)-1, param(0, 1)-1)
	case 'G':
		buf.setCursor(param(0, 1)-1, buf.curY)
	case 'd':
		buf.setCursor(buf.curX, param(0, 1)-1)
	case 'J':
		in.eraseDisplay(param(0, 0))
	case 'K':
		in.eraseLine(param(0, 0))
	case 'P':
		in.deleteCharacters(param(0, 1))
	case 'X':
		in.eraseCharacters(param(0, 1))
	case 'm':
		in.applySGR()
	case 's':
		in.savedX, in.savedY = buf.curX, buf.curY
	case 'u':
		buf.setCursor(in.savedX, in.savedY)
	}
}

func (in *Interpreter) applySGR() {
	params := in.params
	if len(params) == 0 {
		params = []int{0}
	}
	for i := 0; i < len(params); i++ {
		p := params[i]
		switch {
		case p == 0:
			in.pen = defaultPen()
		case p == 1:
			in.pen.bold = true
		case p == 22:
			in.pen.bold = false
		case p == 7:
			in.pen.reverse = true
		case p == 27:
			in.pen.reverse = false
		case p >= 30 && p <= 37:
			in.pen.fore = standardColor(p - 30)
		case p == 39:
			in.pen.fore = term.LightGray
		case p >= 40 && p <= 47:
			in.pen.back = standardColor(p - 40)
		case p == 49:
			in.pen.back = term.Black
		case p >= 90 && p <= 97:
			in.pen.fore = standardColor(p-90) | term.Bright
		case p >= 100 && p <= 107:
			in.pen.back = standardColor(p-100) | term.Bright
		case p == 38 || p == 48:
			color, consumed := extendedColor(params[i+1:])
			if consumed == 0 {
				return // malformed, drop the rest
			}
			if p == 38 {
				in.pen.fore = color
			} else {
				in.pen.back = color
			}
			i += consumed
		}
	}
}

func (in *Interpreter) place(r rune) {
	buf := in.buf
	w := runewidth.RuneWidth(r)
	if w == 0 {
		return
	}

	if in.wrapNext || (w == 2 && buf.curX == buf.width-1) {
		buf.curX = 0
		in.lineFeed()
		in.wrapNext = false
	}

	if w == 2 {
		buf.SetCell(buf.curX, buf.curY, in.pen.cell(r, term.WideLeading))
		buf.SetCell(buf.curX+1, buf.curY, in.pen.cell(r, term.WideTrailing))
	} else {
		buf.SetCell(buf.curX, buf.curY, in.pen.cell(r, term.WideNone))
	}

	if buf.curX+w >= buf.width {
		buf.curX = buf.width - 1
		in.wrapNext = true
	} else {
		buf.curX += w
	}
}

func (in *Interpreter) lineFeed() {
	if in.buf.curY == in.buf.height-1 {
		in.buf.scrollUp()
	} else {
		in.buf.curY++
	}
}

func (in *Interpreter) eraseDisplay(mode int) {
	buf := in.buf
	switch mode {
	case 0:
		in.eraseLine(0)
		for y := buf.curY + 1; y < buf.height; y++ {
			buf.clearRow(y, 0, buf.width-1)
		}
	case 1:
		in.eraseLine(1)
		for y := 0; y < buf.curY; y++ {
			buf.clearRow(y, 0, buf.width-1)
		}
	case 2, 3:
		buf.Clear()
	}
}

func (in *Interpreter) eraseLine(mode int) {
	buf := in.buf
	switch mode {
	case 0:
		buf.clearRow(buf.curY, buf.curX, buf.width-1)
	case 1:
		buf.clearRow(buf.curY, 0, buf.curX)
	case 2:
		buf.clearRow(buf.curY, 0, buf.width-1)
	}
}

func (in *Interpreter) eraseCharacters(n int) {
	for i := 0; i < n; i++ {
		in.buf.SetCell(in.buf.curX+i, in.buf.curY, in.pen.cell(' ', term.WideNone))
	}
}

func (in *Interpreter) deleteCharacters(n int) {
	buf := in.buf
	if buf.curY < 0 || buf.curY >= buf.height {
		return
	}
	row := buf.rows[buf.curY]
	if n > buf.width-buf.curX {
		n = buf.width - buf.curX
	}
	copy(row[buf.curX:], row[buf.curX+n:])
	for x := buf.width - n; x < buf.width; x++ {
		row[x] = in.pen.cell(' ', term.WideNone)
	}
	buf.dirty[buf.curY] = true
}

func (in *Interpreter) handleOSC() {
	// ESC ] 0 ; <title> BEL and ESC ] 2 ; <title> BEL set the window title.
	if len(in.oscBuffer) < 2 || in.oscBuffer[1] != ';' {
		return
	}
	if c := in.oscBuffer[0]; c != '0' && c != '2' {
		return
	}
	if in.TitleChanged != nil {
		in.TitleChanged(string(in.oscBuffer[2:]))
	}
}
