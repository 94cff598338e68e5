package protocol

import (
	"bytes"
	"errors"
	"testing"
)

func TestMessageRoundTrip(t *testing.T) {
	var id [16]byte
	copy(id[:], []byte("relay-session-01"))
	hdr := Header{
		Version:   Version,
		Type:      MsgOutput,
		Flags:     FlagChecksum,
		SessionID: id,
		Sequence:  42,
	}
	payload := []byte("\x1b[2K\x1b[0;1mhello")

	var buf bytes.Buffer
	if err := WriteMessage(&buf, hdr, payload); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	got, gotPayload, err := ReadMessage(&buf)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if got.Type != MsgOutput || got.Sequence != 42 || got.SessionID != id {
		t.Fatalf("header mismatch: %+v", got)
	}
	if !bytes.Equal(gotPayload, payload) {
		t.Fatalf("payload mismatch: %q", gotPayload)
	}
}

func TestMessageChecksumDetectsCorruption(t *testing.T) {
	var buf bytes.Buffer
	hdr := Header{Version: Version, Type: MsgInput, Flags: FlagChecksum}
	if err := WriteMessage(&buf, hdr, []byte("keys")); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	raw := buf.Bytes()
	raw[len(raw)-1] ^= 0xFF

	if _, _, err := ReadMessage(bytes.NewReader(raw)); !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("expected checksum mismatch, got %v", err)
	}
}

func TestMessageRejectsBadMagic(t *testing.T) {
	raw := make([]byte, headerSize)
	if _, _, err := ReadMessage(bytes.NewReader(raw)); !errors.Is(err, ErrInvalidMagic) {
		t.Fatalf("expected invalid magic, got %v", err)
	}
}

func TestMessageTruncatedPayload(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMessage(&buf, Header{Version: Version, Type: MsgOutput}, []byte("abcdef")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	raw := buf.Bytes()

	if _, _, err := ReadMessage(bytes.NewReader(raw[:len(raw)-3])); !errors.Is(err, ErrShortPayload) {
		t.Fatalf("expected short payload, got %v", err)
	}
}

func TestHelloRoundTrip(t *testing.T) {
	in := Hello{ClientName: "attach", SessionName: "work", Cols: 120, Rows: 40}
	payload, err := EncodeHello(in)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	out, err := DecodeHello(payload)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if out != in {
		t.Fatalf("round trip mismatch: %+v != %+v", out, in)
	}
}

func TestHelloShortPayload(t *testing.T) {
	if _, err := DecodeHello([]byte{0x01}); err == nil {
		t.Fatal("expected error for truncated hello")
	}
}

func TestErrorFrameRoundTrip(t *testing.T) {
	in := ErrorFrame{Code: 7, Message: "session busy"}
	payload, err := EncodeErrorFrame(in)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	out, err := DecodeErrorFrame(payload)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if out != in {
		t.Fatalf("round trip mismatch: %+v != %+v", out, in)
	}
}
