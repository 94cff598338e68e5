// Copyright © 2026 Termrelay contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: cmd/termrelay/main.go
// Summary: Attach client for the termrelay server.
// Usage: Run `termrelay [session]` to attach; Ctrl-] detaches.
// Notes: Starts the server automatically when the socket is missing.

package main

import (
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"os/signal"
	"sync"
	"syscall"
	"time"

	xterm "golang.org/x/term"

	"termrelay/config"
	"termrelay/protocol"
)

const detachKey = 0x1d // Ctrl-]

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	socketPath := flag.String("socket", "", "Unix socket path (overrides config)")
	noSpawn := flag.Bool("no-spawn", false, "Do not start a server when none is running")
	flag.Parse()

	sessionName := flag.Arg(0)
	if sessionName == "" {
		sessionName = "default"
	}

	cfgPath, _ := config.Path()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *socketPath != "" {
		cfg.SocketPath = *socketPath
	}

	conn, err := connect(cfg.SocketPath, !*noSpawn)
	if err != nil {
		return err
	}
	defer conn.Close()

	stdinFd := int(os.Stdin.Fd())
	cols, rows := 80, 24
	if xterm.IsTerminal(stdinFd) {
		if w, h, err := xterm.GetSize(stdinFd); err == nil {
			cols, rows = w, h
		}
	}

	client := &client{conn: conn}
	if err := client.handshake(sessionName, cols, rows); err != nil {
		return fmt.Errorf("handshake: %w", err)
	}

	var restore func()
	if xterm.IsTerminal(stdinFd) {
		oldState, err := xterm.MakeRaw(stdinFd)
		if err != nil {
			return fmt.Errorf("raw mode: %w", err)
		}
		restore = func() { _ = xterm.Restore(stdinFd, oldState) }
		defer restore()
	}

	done := make(chan error, 2)
	go client.readLoop(done)
	go client.inputLoop(done)

	winch := make(chan os.Signal, 1)
	signal.Notify(winch, syscall.SIGWINCH)
	defer signal.Stop(winch)

	for {
		select {
		case err := <-done:
			if restore != nil {
				restore()
			}
			fmt.Println()
			if err != nil && err != io.EOF {
				return err
			}
			fmt.Println("detached")
			return nil
		case <-winch:
			if w, h, err := xterm.GetSize(stdinFd); err == nil {
				client.sendResize(w, h)
			}
		}
	}
}

// connect dials the server socket, optionally starting a server when
// nothing is listening yet.
func connect(socketPath string, spawn bool) (net.Conn, error) {
	conn, err := net.Dial("unix", socketPath)
	if err == nil {
		return conn, nil
	}
	if !spawn {
		return nil, fmt.Errorf("dial %s: %w", socketPath, err)
	}

	exe, err := exec.LookPath("termrelay-server")
	if err != nil {
		return nil, fmt.Errorf("no server running and termrelay-server not found in PATH")
	}
	cmd := exec.Command(exe, "-socket", socketPath)
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start server: %w", err)
	}
	_ = cmd.Process.Release()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		conn, err = net.Dial("unix", socketPath)
		if err == nil {
			return conn, nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return nil, fmt.Errorf("server did not come up on %s", socketPath)
}

type client struct {
	conn    net.Conn
	writeMu sync.Mutex
	seq     uint64
}

func (c *client) handshake(session string, cols, rows int) error {
	payload, err := protocol.EncodeHello(protocol.Hello{
		ClientName:  "termrelay",
		SessionName: session,
		Cols:        uint16(cols),
		Rows:        uint16(rows),
	})
	if err != nil {
		return err
	}
	if err := c.writeMessage(protocol.MsgHello, payload); err != nil {
		return err
	}

	hdr, payload, err := protocol.ReadMessage(c.conn)
	if err != nil {
		return err
	}
	if hdr.Type == protocol.MsgError {
		if ef, err := protocol.DecodeErrorFrame(payload); err == nil {
			return fmt.Errorf("server refused: %s", ef.Message)
		}
		return fmt.Errorf("server refused the connection")
	}
	if hdr.Type != protocol.MsgWelcome {
		return fmt.Errorf("unexpected reply type %v", hdr.Type)
	}
	if _, err := protocol.DecodeWelcome(payload); err != nil {
		return err
	}
	return nil
}

// readLoop copies server output frames to the local terminal.
func (c *client) readLoop(done chan<- error) {
	for {
		hdr, payload, err := protocol.ReadMessage(c.conn)
		if err != nil {
			done <- err
			return
		}
		switch hdr.Type {
		case protocol.MsgOutput:
			if _, err := os.Stdout.Write(payload); err != nil {
				done <- err
				return
			}
		case protocol.MsgPong:
			// Keepalive reply, nothing to do.
		case protocol.MsgError:
			if ef, err := protocol.DecodeErrorFrame(payload); err == nil {
				done <- fmt.Errorf("server error: %s", ef.Message)
				return
			}
		}
	}
}

// inputLoop forwards keystrokes until the detach key is pressed.
func (c *client) inputLoop(done chan<- error) {
	buf := make([]byte, 4096)
	for {
		n, err := os.Stdin.Read(buf)
		if n > 0 {
			data := buf[:n]
			for i, b := range data {
				if b == detachKey {
					if i > 0 {
						if err := c.writeMessage(protocol.MsgInput, data[:i]); err != nil {
							done <- err
							return
						}
					}
					_ = c.writeMessage(protocol.MsgDetach, nil)
					done <- nil
					return
				}
			}
			if err := c.writeMessage(protocol.MsgInput, data); err != nil {
				done <- err
				return
			}
		}
		if err != nil {
			done <- err
			return
		}
	}
}

func (c *client) sendResize(cols, rows int) {
	payload, err := protocol.EncodeResize(protocol.Resize{
		Cols: uint16(cols),
		Rows: uint16(rows),
	})
	if err != nil {
		return
	}
	_ = c.writeMessage(protocol.MsgResize, payload)
}

func (c *client) writeMessage(msgType protocol.MessageType, payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.seq++
	header := protocol.Header{
		Version:  protocol.Version,
		Type:     msgType,
		Flags:    protocol.FlagChecksum,
		Sequence: c.seq,
	}
	return protocol.WriteMessage(c.conn, header, payload)
}
