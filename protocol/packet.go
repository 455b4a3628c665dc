package protocol

// NopWord is the padding word that fills unused list packet slots. It is
// an EndOfList opcode with all-zero parameters.
var NopWord = [CommandSize]byte{0x02, 0x80, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}

// Packet accumulates list command words into one fixed 0xC00-byte transfer
// buffer. A fresh packet is entirely NOP-filled; words are written front to
// back and the packet is always transmitted at full size.
type Packet struct {
	buf [PacketSize]byte
	pos int
}

// NewPacket returns a NOP-filled packet with no user words.
func NewPacket() *Packet {
	p := &Packet{}
	for i := 0; i < PacketSize; i += CommandSize {
		copy(p.buf[i:], NopWord[:])
	}
	return p
}

// Append writes the command word at the current position and advances.
// Appending to a full packet is a no-op returning false; the caller is
// expected to flush first.
func (p *Packet) Append(c Command) bool {
	if p.pos >= PacketSize {
		return false
	}
	copy(p.buf[p.pos:], c.Bytes())
	p.pos += CommandSize
	return true
}

// Len returns the byte offset of the next free slot, always a multiple of
// the command size.
func (p *Packet) Len() int {
	return p.pos
}

// Full reports whether all 256 slots hold user words.
func (p *Packet) Full() bool {
	return p.pos >= PacketSize
}

// Empty reports whether no user words have been written.
func (p *Packet) Empty() bool {
	return p.pos == 0
}

// Bytes returns the full 0xC00-byte transfer buffer, including NOP padding.
func (p *Packet) Bytes() []byte {
	return p.buf[:]
}

// Words decodes every slot of the packet, padding included.
func (p *Packet) Words() []Command {
	words := make([]Command, 0, PacketWords)
	for i := 0; i < PacketSize; i += CommandSize {
		words = append(words, ParseCommand(p.buf[i:i+CommandSize]))
	}
	return words
}
