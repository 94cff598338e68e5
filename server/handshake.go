package server

import (
	"errors"
	"io"

	"termrelay/protocol"
)

var (
	errUnexpectedMessage = errors.New("server: unexpected message type")
)

const serverName = "termrelay-server"

// handleHandshake performs the initial client/server negotiation: the
// client sends Hello with a session name and its terminal size, the
// server answers Welcome with the session ID.
func handleHandshake(rw io.ReadWriter, mgr *Manager) (*Session, error) {
	hdr, payload, err := protocol.ReadMessage(rw)
	if err != nil {
		return nil, err
	}
	if hdr.Type != protocol.MsgHello {
		return nil, errUnexpectedMessage
	}
	hello, err := protocol.DecodeHello(payload)
	if err != nil {
		return nil, err
	}

	name := hello.SessionName
	if name == "" {
		name = "default"
	}

	session, _, err := mgr.Attach(name, int(hello.Cols), int(hello.Rows))
	if err != nil {
		writeErrorFrame(rw, err.Error())
		return nil, err
	}

	welcomePayload, err := protocol.EncodeWelcome(protocol.Welcome{
		SessionID:  session.ID(),
		ServerName: serverName,
	})
	if err != nil {
		return nil, err
	}
	welcomeHeader := protocol.Header{
		Version:   protocol.Version,
		Type:      protocol.MsgWelcome,
		Flags:     protocol.FlagChecksum,
		SessionID: session.ID(),
	}
	if err := protocol.WriteMessage(rw, welcomeHeader, welcomePayload); err != nil {
		return nil, err
	}

	return session, nil
}

// writeErrorFrame tells the peer why the handshake failed. Best effort;
// the connection is closing anyway.
func writeErrorFrame(w io.Writer, message string) {
	payload, err := protocol.EncodeErrorFrame(protocol.ErrorFrame{Code: 1, Message: message})
	if err != nil {
		return
	}
	header := protocol.Header{
		Version: protocol.Version,
		Type:    protocol.MsgError,
		Flags:   protocol.FlagChecksum,
	}
	_ = protocol.WriteMessage(w, header, payload)
}
