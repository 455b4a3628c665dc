package protocol

import (
	"bytes"
	"testing"
)

func TestCommandBytes(t *testing.T) {
	cmd := NewCommand(ListJumpTo, 0x5000, 0xA000, 0, 0x1234)
	b := cmd.Bytes()

	expected := []byte{
		0x01, 0x80, // opcode
		0x00, 0x50,
		0x00, 0xA0,
		0x00, 0x00,
		0x34, 0x12,
		0x00, 0x00,
	}
	if !bytes.Equal(b, expected) {
		t.Errorf("Command.Bytes() = % X, expected % X", b, expected)
	}

	if back := ParseCommand(b); back != cmd {
		t.Errorf("ParseCommand round trip mismatch: %+v != %+v", back, cmd)
	}
}

func TestParseReply(t *testing.T) {
	r := ParseReply([]byte{0x01, 0x00, 0x02, 0x00, 0x03, 0x00, 0x24, 0x00})
	if r[0] != 1 || r[1] != 2 || r[2] != 3 || r[3] != 0x24 {
		t.Errorf("ParseReply = %v", r)
	}
	if !r.Busy() || !r.Ready() {
		t.Errorf("status 0x24 should be busy and ready")
	}

	if got := ParseReply([]byte{0x01}); got != ErrorReply {
		t.Errorf("short reply should parse as ErrorReply, got %v", got)
	}
}

func TestCommandName(t *testing.T) {
	if got := CommandName(ListJumpTo); got != "ListJumpTo" {
		t.Errorf("CommandName(ListJumpTo) = %q", got)
	}
	if got := CommandName(GetVersion); got != "GetVersion" {
		t.Errorf("CommandName(GetVersion) = %q", got)
	}
	if got := CommandName(0x7777); got != "Unknown" {
		t.Errorf("CommandName(0x7777) = %q", got)
	}
}

func TestIsListCommand(t *testing.T) {
	if !IsListCommand(ListEndOfList) {
		t.Errorf("ListEndOfList should be a list command")
	}
	if IsListCommand(WritePort) {
		t.Errorf("WritePort is a realtime command")
	}
}
