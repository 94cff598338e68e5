package server

import (
	"bytes"
	"net"
	"testing"
	"time"

	"termrelay/protocol"
	"termrelay/term"
)

func TestLineText(t *testing.T) {
	cells := []term.Cell{
		{Rune: '漢', Wide: term.WideLeading},
		{Rune: ' ', Wide: term.WideTrailing},
		{Rune: 'o'},
		{Rune: 'k'},
		{Rune: ' '},
		{Rune: ' '},
	}
	if got := lineText(cells); got != "漢ok" {
		t.Errorf("expected %q, got %q", "漢ok", got)
	}
}

func TestLineTextBlank(t *testing.T) {
	cells := []term.Cell{{Rune: ' '}, {Rune: ' '}}
	if got := lineText(cells); got != "" {
		t.Errorf("expected empty text, got %q", got)
	}
}

func TestSessionAttachSendsRedraw(t *testing.T) {
	mgr := testManager()
	defer mgr.CloseAll()

	session, _, err := mgr.Attach("redraw", 20, 4)
	if err != nil {
		t.Fatalf("attach failed: %v", err)
	}

	serverSide, clientSide := net.Pipe()
	defer serverSide.Close()
	defer clientSide.Close()

	c := newConnection(serverSide, session)
	attachErr := make(chan error, 1)
	go func() {
		attachErr <- session.Attach(c)
	}()

	// The first frame of a fresh attach is the clear and home reset.
	_ = clientSide.SetReadDeadline(time.Now().Add(2 * time.Second))
	header, payload, err := protocol.ReadMessage(clientSide)
	if err != nil {
		t.Fatalf("failed to read redraw frame: %v", err)
	}
	if header.Type != protocol.MsgOutput {
		t.Fatalf("expected MsgOutput, got %v", header.Type)
	}
	if !bytes.Equal(payload, []byte("\x1b[0m\x1b[1;1H\x1b[2J")) {
		t.Errorf("unexpected first frame: %q", payload)
	}

	// Drain the rest of the redraw so Attach can finish.
	go func() {
		for {
			_ = clientSide.SetReadDeadline(time.Now().Add(2 * time.Second))
			if _, _, err := protocol.ReadMessage(clientSide); err != nil {
				return
			}
		}
	}()

	if err := <-attachErr; err != nil {
		t.Fatalf("attach returned error: %v", err)
	}
	if session.AttachedConns() != 1 {
		t.Errorf("expected 1 attached connection, got %d", session.AttachedConns())
	}

	session.Detach(c)
	if session.AttachedConns() != 0 {
		t.Errorf("expected 0 attached connections, got %d", session.AttachedConns())
	}
}

func TestSessionAttachAfterClose(t *testing.T) {
	mgr := testManager()
	session, _, err := mgr.Attach("closed", 20, 4)
	if err != nil {
		t.Fatalf("attach failed: %v", err)
	}
	mgr.CloseAll()

	serverSide, clientSide := net.Pipe()
	defer serverSide.Close()
	defer clientSide.Close()

	c := newConnection(serverSide, session)
	if err := session.Attach(c); err != ErrSessionClosed {
		t.Errorf("expected ErrSessionClosed, got %v", err)
	}
}

func TestSessionInputEchoes(t *testing.T) {
	mgr := testManager()
	defer mgr.CloseAll()

	session, _, err := mgr.Attach("echo", 40, 6)
	if err != nil {
		t.Fatalf("attach failed: %v", err)
	}

	serverSide, clientSide := net.Pipe()
	defer serverSide.Close()
	defer clientSide.Close()

	c := newConnection(serverSide, session)

	frames := make(chan []byte, 64)
	go func() {
		for {
			_ = clientSide.SetReadDeadline(time.Now().Add(5 * time.Second))
			header, payload, err := protocol.ReadMessage(clientSide)
			if err != nil {
				close(frames)
				return
			}
			if header.Type == protocol.MsgOutput {
				frames <- payload
			}
		}
	}()

	if err := session.Attach(c); err != nil {
		t.Fatalf("attach failed: %v", err)
	}
	if err := session.WriteInput([]byte("hello\r")); err != nil {
		t.Fatalf("write input failed: %v", err)
	}

	// cat echoes the line back; the flush loop should render it.
	deadline := time.After(5 * time.Second)
	var seen bytes.Buffer
	for {
		select {
		case frame, ok := <-frames:
			if !ok {
				t.Fatalf("connection closed before echo, saw %q", seen.Bytes())
			}
			seen.Write(frame)
			if bytes.Contains(seen.Bytes(), []byte("hello")) {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for echo, saw %q", seen.Bytes())
		}
	}
}
