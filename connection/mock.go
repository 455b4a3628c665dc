package connection

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/meerk40t/galvoplotter/protocol"
)

// Mock is an in-memory Connection that records every write. It stands in
// for the board in tests and in --mock runs: realtime commands are
// answered with a ready/not-busy status so polling loops terminate
// immediately.
type Mock struct {
	mu       sync.Mutex
	open     map[int]bool
	sent     [][]byte
	log      *logrus.Entry
	shutdown bool

	// OpenErr, when set, makes every Open attempt fail with this error.
	OpenErr error
	// WriteErr, when set, makes every Write fail with this error.
	WriteErr error
	// Status is word 3 of replies to status queries.
	Status uint16
	// InputBits is word 1 of ReadPort replies, the input GPIO mask.
	InputBits uint16
}

// NewMock creates a mock transport answering ready and not busy.
func NewMock(log *logrus.Entry) *Mock {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Mock{
		open:   make(map[int]bool),
		log:    log,
		Status: protocol.StatusReady,
	}
}

func (m *Mock) Open(index int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.OpenErr != nil {
		return -1, m.OpenErr
	}
	m.open[index] = true
	m.log.WithField("index", index).Debug("mock open")
	return index, nil
}

func (m *Mock) Close(index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.open, index)
	return nil
}

func (m *Mock) IsOpen(index int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open[index]
}

func (m *Mock) Write(index int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	m.sent = append(m.sent, buf)
	return nil
}

func (m *Mock) Read(index int) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	reply := protocol.Reply{0, 0, 0, m.Status}
	b := make([]byte, protocol.ReplySize)
	for i, w := range reply {
		b[2*i] = byte(w)
		b[2*i+1] = byte(w >> 8)
	}
	return b, nil
}

func (m *Mock) ReadPort(index int) ([4]uint16, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return [4]uint16{0, m.InputBits, 0, m.Status}, nil
}

func (m *Mock) IsShutdown() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shutdown
}

// SetShutdown flips the transport's shutdown flag, terminating polls that
// honor it.
func (m *Mock) SetShutdown(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdown = v
}

// Sent returns a copy of every raw write in order.
func (m *Mock) Sent() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.sent))
	copy(out, m.sent)
	return out
}

// Commands decodes the 12-byte realtime writes, skipping list packets.
func (m *Mock) Commands() []protocol.Command {
	var cmds []protocol.Command
	for _, w := range m.Sent() {
		if len(w) == protocol.CommandSize {
			cmds = append(cmds, protocol.ParseCommand(w))
		}
	}
	return cmds
}

// Packets returns the 0xC00-byte list packet writes in order.
func (m *Mock) Packets() [][]byte {
	var packets [][]byte
	for _, w := range m.Sent() {
		if len(w) == protocol.PacketSize {
			packets = append(packets, w)
		}
	}
	return packets
}

// ListWords decodes the words of every list packet sent, in order, with
// the trailing run of EndOfList words trimmed. The explicit terminator is
// byte-identical to the NOP padding, so it is trimmed along with it.
func (m *Mock) ListWords() []protocol.Command {
	nop := protocol.NewCommand(protocol.ListEndOfList)
	var words []protocol.Command
	for _, p := range m.Packets() {
		end := len(p)
		for end >= protocol.CommandSize {
			if protocol.ParseCommand(p[end-protocol.CommandSize:end]) != nop {
				break
			}
			end -= protocol.CommandSize
		}
		for i := 0; i < end; i += protocol.CommandSize {
			words = append(words, protocol.ParseCommand(p[i:i+protocol.CommandSize]))
		}
	}
	return words
}

// Clear drops the recorded traffic.
func (m *Mock) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = nil
}
