package server

import (
	"errors"
	"log"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/creack/pty"

	"termrelay/grid"
	"termrelay/history"
	"termrelay/term"
)

var (
	ErrSessionClosed = errors.New("server: session closed")
)

// coalesceWindow bounds how long a flush waits for more child output
// before rendering, so bursts become one redraw instead of many.
const coalesceWindow = 15 * time.Millisecond

// Session owns one child process on a PTY and the screen state derived
// from its output. Any number of connections may attach; each gets its
// own encoder so cursor and color state stay per-client.
type Session struct {
	name string
	id   [16]byte

	ptmx *os.File
	cmd  *exec.Cmd

	mu     sync.Mutex
	buf    *grid.Buffer
	interp *grid.Interpreter
	conns  map[*connection]struct{}
	title  string
	closed bool

	console  bool
	hist     *history.Store
	histSeq  int64
	observer FlushObserver

	notify chan struct{}
	done   chan struct{}
}

// newSession starts shell on a fresh PTY at the given size.
func newSession(name string, id [16]byte, shell string, cols, rows int, opts Options) (*Session, error) {
	if cols <= 0 {
		cols = 80
	}
	if rows <= 0 {
		rows = 24
	}

	s := &Session{
		name:     name,
		id:       id,
		conns:    make(map[*connection]struct{}),
		console:  opts.Console,
		hist:     opts.History,
		observer: opts.Observer,
		notify:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	if s.observer == nil {
		s.observer = nopObserver{}
	}

	s.buf = grid.NewBuffer(cols, rows, grid.WithScrollback(s.recordLine))
	s.interp = grid.NewInterpreter(s.buf)
	s.interp.TitleChanged = func(title string) {
		s.mu.Lock()
		s.title = title
		s.mu.Unlock()
	}

	cmd := exec.Command(shell)
	cmd.Env = append(os.Environ(), "TERM=xterm-256color")
	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Cols: uint16(cols), Rows: uint16(rows)})
	if err != nil {
		return nil, err
	}
	s.ptmx = ptmx
	s.cmd = cmd

	go s.readLoop()
	go s.flushLoop()
	return s, nil
}

func (s *Session) ID() [16]byte { return s.id }

func (s *Session) Name() string { return s.name }

func (s *Session) Title() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.title
}

// readLoop feeds child output through the interpreter and schedules a
// flush. It owns the PTY read side; the session closes when it exits.
func (s *Session) readLoop() {
	buf := make([]byte, 32*1024)
	for {
		n, err := s.ptmx.Read(buf)
		if n > 0 {
			s.mu.Lock()
			s.interp.Parse(buf[:n])
			s.mu.Unlock()
			select {
			case s.notify <- struct{}{}:
			default:
			}
		}
		if err != nil {
			s.Close()
			return
		}
	}
}

// flushLoop waits for output, lets the coalesce window elapse, then
// renders the dirty rows to every attached connection.
func (s *Session) flushLoop() {
	timer := time.NewTimer(coalesceWindow)
	if !timer.Stop() {
		<-timer.C
	}
	for {
		select {
		case <-s.done:
			return
		case <-s.notify:
		}

		timer.Reset(coalesceWindow)
		select {
		case <-s.done:
			timer.Stop()
			return
		case <-timer.C:
		}

		select {
		case <-s.notify:
		default:
		}

		s.flush()
	}
}

func (s *Session) flush() {
	start := time.Now()

	s.mu.Lock()
	rows := s.buf.TakeDirty()
	curX, curY := s.buf.Cursor()
	visible := s.buf.CursorVisible()
	for c := range s.conns {
		for _, r := range rows {
			c.enc.RenderRow(r, s.buf.Row(r))
		}
		if visible {
			c.enc.Finish(curX, curY)
		}
	}
	s.mu.Unlock()

	s.observer.ObserveFlush(s, len(rows), time.Since(start))
}

// Attach registers a network connection and sends it a full redraw.
func (s *Session) Attach(c *connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	c.enc.SetBypass(s.console)
	s.conns[c] = struct{}{}
	s.redrawLocked(c)
	return nil
}

// Detach removes the connection. The session keeps running.
func (s *Session) Detach(c *connection) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
}

func (s *Session) redrawLocked(c *connection) {
	c.enc.Reset(true, 0)
	_, height := s.buf.Size()
	for y := 0; y < height; y++ {
		c.enc.RenderRow(y, s.buf.Row(y))
	}
	if s.buf.CursorVisible() {
		curX, curY := s.buf.Cursor()
		c.enc.Finish(curX, curY)
	}
}

// WriteInput forwards client keystrokes to the child.
func (s *Session) WriteInput(data []byte) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrSessionClosed
	}
	_, err := s.ptmx.Write(data)
	return err
}

// Resize changes the PTY and screen size and forces a full redraw on
// every attached connection.
func (s *Session) Resize(cols, rows int) error {
	if cols <= 0 || rows <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if err := pty.Setsize(s.ptmx, &pty.Winsize{Cols: uint16(cols), Rows: uint16(rows)}); err != nil {
		return err
	}
	s.buf.Resize(cols, rows)
	for c := range s.conns {
		s.redrawLocked(c)
	}
	return nil
}

// AttachedConns reports how many connections are attached.
func (s *Session) AttachedConns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Close terminates the child and releases the PTY. Safe to call twice.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	close(s.done)
	_ = s.ptmx.Close()
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	go func() {
		if err := s.cmd.Wait(); err != nil {
			var exit *exec.ExitError
			if !errors.As(err, &exit) {
				log.Printf("server: session %q wait: %v", s.name, err)
			}
		}
	}()
}

// recordLine receives rows evicted into scrollback and queues them for
// the history store. Runs under the session lock via the interpreter.
func (s *Session) recordLine(cells []term.Cell) {
	if s.hist == nil {
		return
	}
	text := lineText(cells)
	if text == "" {
		return
	}
	s.histSeq++
	s.hist.Append(history.Line{
		Session: s.name,
		Seq:     s.histSeq,
		Text:    text,
	})
}

// lineText flattens a cell row to plain text, dropping wide trailing
// halves and trailing whitespace.
func lineText(cells []term.Cell) string {
	var sb strings.Builder
	for _, c := range cells {
		if c.Wide == term.WideTrailing {
			continue
		}
		sb.WriteRune(c.Rune)
	}
	return strings.TrimRight(sb.String(), " ")
}
