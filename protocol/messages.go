package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
)

var (
	errStringTooLong = errors.New("protocol: string exceeds 64KB limit")
	errPayloadShort  = errors.New("protocol: payload too short")
)

// Hello initiates the handshake from client to server. SessionName selects
// (or creates) the named session; Cols/Rows describe the client terminal.
type Hello struct {
	ClientName  string
	SessionName string
	Cols        uint16
	Rows        uint16
}

// Welcome is returned by the server acknowledging the handshake.
type Welcome struct {
	SessionID  [16]byte
	ServerName string
}

// Resize tells the server the client terminal changed dimensions.
type Resize struct {
	Cols uint16
	Rows uint16
}

// Ping/Pong keep the connection alive.
type Ping struct {
	Timestamp int64
}

type Pong struct {
	Timestamp int64
}

// ErrorFrame communicates protocol-level errors before disconnecting.
type ErrorFrame struct {
	Code    uint16
	Message string
}

// Output and Input frames carry raw bytes and need no codec: the payload is
// the data.

func encodeString(buf *bytes.Buffer, value string) error {
	if len(value) > 0xFFFF {
		return errStringTooLong
	}
	if err := binary.Write(buf, binary.LittleEndian, uint16(len(value))); err != nil {
		return err
	}
	if len(value) > 0 {
		if _, err := buf.WriteString(value); err != nil {
			return err
		}
	}
	return nil
}

func decodeString(b []byte) (string, []byte, error) {
	if len(b) < 2 {
		return "", nil, errPayloadShort
	}
	length := binary.LittleEndian.Uint16(b[:2])
	b = b[2:]
	if len(b) < int(length) {
		return "", nil, errPayloadShort
	}
	return string(b[:length]), b[length:], nil
}

func EncodeHello(h Hello) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, 8+len(h.ClientName)+len(h.SessionName)))
	if err := encodeString(buf, h.ClientName); err != nil {
		return nil, err
	}
	if err := encodeString(buf, h.SessionName); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, h.Cols); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, h.Rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func DecodeHello(b []byte) (Hello, error) {
	var h Hello
	name, rest, err := decodeString(b)
	if err != nil {
		return h, err
	}
	h.ClientName = name
	session, rest, err := decodeString(rest)
	if err != nil {
		return h, err
	}
	h.SessionName = session
	if len(rest) < 4 {
		return h, errPayloadShort
	}
	h.Cols = binary.LittleEndian.Uint16(rest[:2])
	h.Rows = binary.LittleEndian.Uint16(rest[2:4])
	return h, nil
}

func EncodeWelcome(w Welcome) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, 18+len(w.ServerName)))
	buf.Write(w.SessionID[:])
	if err := encodeString(buf, w.ServerName); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func DecodeWelcome(b []byte) (Welcome, error) {
	var w Welcome
	if len(b) < 16 {
		return w, errPayloadShort
	}
	copy(w.SessionID[:], b[:16])
	name, _, err := decodeString(b[16:])
	if err != nil {
		return w, err
	}
	w.ServerName = name
	return w, nil
}

func EncodeResize(r Resize) ([]byte, error) {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint16(buf[0:2], r.Cols)
	binary.LittleEndian.PutUint16(buf[2:4], r.Rows)
	return buf, nil
}

func DecodeResize(b []byte) (Resize, error) {
	var r Resize
	if len(b) < 4 {
		return r, errPayloadShort
	}
	r.Cols = binary.LittleEndian.Uint16(b[0:2])
	r.Rows = binary.LittleEndian.Uint16(b[2:4])
	return r, nil
}

func EncodePing(p Ping) ([]byte, error) {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(p.Timestamp))
	return buf, nil
}

func DecodePing(b []byte) (Ping, error) {
	var p Ping
	if len(b) < 8 {
		return p, errPayloadShort
	}
	p.Timestamp = int64(binary.LittleEndian.Uint64(b[:8]))
	return p, nil
}

func EncodePong(p Pong) ([]byte, error) {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(p.Timestamp))
	return buf, nil
}

func DecodePong(b []byte) (Pong, error) {
	var p Pong
	if len(b) < 8 {
		return p, errPayloadShort
	}
	p.Timestamp = int64(binary.LittleEndian.Uint64(b[:8]))
	return p, nil
}

func EncodeErrorFrame(e ErrorFrame) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, 4+len(e.Message)))
	if err := binary.Write(buf, binary.LittleEndian, e.Code); err != nil {
		return nil, err
	}
	if err := encodeString(buf, e.Message); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func DecodeErrorFrame(b []byte) (ErrorFrame, error) {
	var e ErrorFrame
	if len(b) < 2 {
		return e, errPayloadShort
	}
	e.Code = binary.LittleEndian.Uint16(b[:2])
	msg, _, err := decodeString(b[2:])
	if err != nil {
		return e, err
	}
	e.Message = msg
	return e, nil
}
