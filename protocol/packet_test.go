package protocol

import (
	"bytes"
	"testing"
)

func TestNewPacketIsNopFilled(t *testing.T) {
	p := NewPacket()
	if !p.Empty() {
		t.Fatalf("fresh packet should be empty")
	}
	data := p.Bytes()
	if len(data) != PacketSize {
		t.Fatalf("packet size = %d, expected 0x%X", len(data), PacketSize)
	}
	for i := 0; i < PacketSize; i += CommandSize {
		if !bytes.Equal(data[i:i+CommandSize], NopWord[:]) {
			t.Fatalf("slot %d not NOP padded: % X", i/CommandSize, data[i:i+CommandSize])
		}
	}
}

func TestPacketAppend(t *testing.T) {
	p := NewPacket()
	for i := 0; i < PacketWords; i++ {
		if !p.Append(NewCommand(ListDelayTime, uint16(i))) {
			t.Fatalf("append %d rejected before packet was full", i)
		}
	}
	if !p.Full() {
		t.Fatalf("packet should be full after %d appends", PacketWords)
	}
	if p.Append(NewCommand(ListDelayTime, 0)) {
		t.Fatalf("append to full packet should be rejected")
	}

	words := p.Words()
	if len(words) != PacketWords {
		t.Fatalf("Words() = %d entries, expected %d", len(words), PacketWords)
	}
	for i, w := range words {
		if w.Op != ListDelayTime || w.V1 != uint16(i) {
			t.Fatalf("slot %d = %+v", i, w)
		}
	}
}

func TestPacketPadding(t *testing.T) {
	p := NewPacket()
	p.Append(NewCommand(ListReadyMark))
	if p.Len() != CommandSize {
		t.Fatalf("Len() = %d, expected %d", p.Len(), CommandSize)
	}
	// Everything past the written word stays NOP.
	data := p.Bytes()
	for i := CommandSize; i < PacketSize; i += CommandSize {
		if !bytes.Equal(data[i:i+CommandSize], NopWord[:]) {
			t.Fatalf("slot %d lost its padding", i/CommandSize)
		}
	}
}
