package grid

import (
	"testing"

	"termrelay/term"
)

func parseInto(t *testing.T, w, h int, input string) (*Buffer, *Interpreter) {
	t.Helper()
	b := NewBuffer(w, h)
	in := NewInterpreter(b)
	in.Parse([]byte(input))
	return b, in
}

func TestInterpreterPlacesStyledText(t *testing.T) {
	b, _ := parseInto(t, 10, 2, "\x1b[31mAB")
	row := b.Row(0)
	if row[0].Rune != 'A' || row[0].Fore != term.Red || row[0].Back != term.Black {
		t.Fatalf("cell 0 = %+v", row[0])
	}
	if row[1].Rune != 'B' || row[1].Fore != term.Red {
		t.Fatalf("cell 1 = %+v", row[1])
	}
}

func TestInterpreterBoldFoldsIntoBright(t *testing.T) {
	b, _ := parseInto(t, 10, 2, "\x1b[1;32mX")
	if got := b.Row(0)[0].Fore; got != term.Green|term.Bright {
		t.Fatalf("fore = %v, want bright green", got)
	}
}

func TestInterpreterReverseSwapsChannels(t *testing.T) {
	b, _ := parseInto(t, 10, 2, "\x1b[7mX")
	cell := b.Row(0)[0]
	if cell.Fore != term.Black || cell.Back != term.LightGray {
		t.Fatalf("reversed cell = %+v", cell)
	}
}

func TestInterpreterCursorAddressing(t *testing.T) {
	b, _ := parseInto(t, 10, 5, "\x1b[2;3HZ")
	if b.Row(1)[2].Rune != 'Z' {
		t.Fatalf("expected Z at (2,1), row = %+v", b.Row(1)[:4])
	}
	col, rowIdx := b.Cursor()
	if col != 3 || rowIdx != 1 {
		t.Fatalf("cursor = (%d,%d), want (3,1)", col, rowIdx)
	}
}

func TestInterpreterEraseLine(t *testing.T) {
	b := NewBuffer(6, 2)
	in := NewInterpreter(b)
	in.Parse([]byte("abcdef\r\x1b[2C\x1b[K"))
	row := b.Row(0)
	if row[0].Rune != 'a' || row[1].Rune != 'b' {
		t.Fatalf("leading cells clobbered: %+v", row[:2])
	}
	for x := 2; x < 6; x++ {
		if row[x].Rune != ' ' {
			t.Fatalf("cell %d = %q, want space", x, row[x].Rune)
		}
	}
}

func TestInterpreter256ColorQuantized(t *testing.T) {
	b, _ := parseInto(t, 10, 2, "\x1b[38;5;12mX")
	if got := b.Row(0)[0].Fore; got != term.Blue|term.Bright {
		t.Fatalf("fore = %v, want bright blue", got)
	}
}

func TestInterpreterRGBQuantized(t *testing.T) {
	b, _ := parseInto(t, 10, 2, "\x1b[38;2;255;0;0mX\x1b[48;2;0;0;0mY")
	if got := b.Row(0)[0].Fore; got != term.Red|term.Bright {
		t.Fatalf("fore = %v, want bright red", got)
	}
	if got := b.Row(0)[1].Back; got != term.Black {
		t.Fatalf("back = %v, want black", got)
	}
}

func TestInterpreterCursorVisibility(t *testing.T) {
	b, _ := parseInto(t, 10, 2, "\x1b[?25l")
	if b.CursorVisible() {
		t.Fatal("cursor should be hidden after DECTCEM reset")
	}
	_, in := parseInto(t, 10, 2, "")
	in.Parse([]byte("\x1b[?25l\x1b[?25h"))
	if !in.buf.CursorVisible() {
		t.Fatal("cursor should be visible again after DECTCEM set")
	}
}

func TestInterpreterSplitUTF8(t *testing.T) {
	b := NewBuffer(10, 2)
	in := NewInterpreter(b)
	raw := []byte("漢")
	in.Parse(raw[:1])
	in.Parse(raw[1:])
	row := b.Row(0)
	if row[0].Rune != '漢' || row[0].Wide != term.WideLeading {
		t.Fatalf("cell 0 = %+v", row[0])
	}
	if row[1].Wide != term.WideTrailing {
		t.Fatalf("cell 1 = %+v", row[1])
	}
}

func TestInterpreterTitleChange(t *testing.T) {
	b := NewBuffer(10, 2)
	in := NewInterpreter(b)
	var title string
	in.TitleChanged = func(s string) { title = s }
	in.Parse([]byte("\x1b]0;hello\x07"))
	if title != "hello" {
		t.Fatalf("title = %q, want %q", title, "hello")
	}
}

func TestQuantizeGrayRamp(t *testing.T) {
	tests := []struct {
		level int
		want  term.Color
	}{
		{0, term.Black},
		{100, term.DarkGray},
		{170, term.LightGray},
		{255, term.White},
	}
	for _, tt := range tests {
		if got := quantizeGray(tt.level); got != tt.want {
			t.Fatalf("quantizeGray(%d) = %v, want %v", tt.level, got, tt.want)
		}
	}
}
