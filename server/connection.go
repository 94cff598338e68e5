package server

import (
	"io"
	"net"
	"sync"
	"time"

	"termrelay/protocol"
	"termrelay/term"
)

type connection struct {
	conn    net.Conn
	session *Session
	enc     *term.Encoder

	writeMu sync.Mutex
	seq     uint64
}

func newConnection(conn net.Conn, session *Session) *connection {
	c := &connection{conn: conn, session: session}
	c.enc = term.NewEncoder(outputWriter{c})
	return c
}

// serve reads client messages until the peer detaches or errors out.
// Output flows the other way, pushed by the session's flush loop.
func (c *connection) serve() error {
	defer c.session.Detach(c)
	for {
		_ = c.conn.SetReadDeadline(time.Now().Add(20 * time.Millisecond))
		header, payload, err := protocol.ReadMessage(c.conn)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			if err == io.EOF {
				return nil
			}
			return err
		}

		switch header.Type {
		case protocol.MsgInput:
			if err := c.session.WriteInput(payload); err != nil {
				return err
			}
		case protocol.MsgResize:
			size, err := protocol.DecodeResize(payload)
			if err != nil {
				return err
			}
			if err := c.session.Resize(int(size.Cols), int(size.Rows)); err != nil {
				return err
			}
		case protocol.MsgPing:
			ping, err := protocol.DecodePing(payload)
			if err != nil {
				return err
			}
			pongPayload, err := protocol.EncodePong(protocol.Pong{Timestamp: ping.Timestamp})
			if err != nil {
				return err
			}
			if err := c.writeMessage(protocol.MsgPong, pongPayload); err != nil {
				return err
			}
		case protocol.MsgDetach:
			return nil
		default:
			// Unknown messages are ignored.
		}
	}
}

func (c *connection) writeMessage(msgType protocol.MessageType, payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.seq++
	header := protocol.Header{
		Version:   protocol.Version,
		Type:      msgType,
		Flags:     protocol.FlagChecksum,
		SessionID: c.session.ID(),
		Sequence:  c.seq,
	}
	return protocol.WriteMessage(c.conn, header, payload)
}

// outputWriter frames encoder output into MsgOutput messages. The
// encoder treats the connection as a plain terminal byte stream.
type outputWriter struct {
	c *connection
}

func (w outputWriter) Write(p []byte) (int, error) {
	if err := w.c.writeMessage(protocol.MsgOutput, p); err != nil {
		return 0, err
	}
	return len(p), nil
}
