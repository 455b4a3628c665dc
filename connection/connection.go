// Package connection provides the byte-level transports used to reach an
// LMC controller board. The controller core consumes the Connection
// capability interface; implementations cover real USB hardware and an
// in-memory mock that records traffic for tests.
package connection

import "errors"

var (
	// ErrRefused indicates the transport is currently unavailable. The
	// job spooler waits and retries on this error.
	ErrRefused = errors.New("connection refused")

	// ErrUnreachable indicates the transport aborted and will not come
	// back without outside intervention. The job spooler worker exits on
	// this error.
	ErrUnreachable = errors.New("connection aborted")
)

// Connection is the byte-level transport to an LMC board, addressed by
// machine index so multi-board hosts can select a device.
type Connection interface {
	// Open claims the device at the given machine index. A negative
	// return value or an error means the open failed.
	Open(index int) (int, error)

	// Close releases the device.
	Close(index int) error

	// IsOpen reports whether the device is currently claimed.
	IsOpen(index int) bool

	// Write sends raw bytes: either a 12-byte realtime command or a full
	// 0xC00-byte list packet.
	Write(index int, data []byte) error

	// Read returns the 8-byte reply to the last realtime command.
	Read(index int) ([]byte, error)

	// ReadPort queries the board's input GPIO state. Word 1 of the
	// returned values is the 16-bit input mask.
	ReadPort(index int) ([4]uint16, error)

	// IsShutdown reports whether the transport has shut down and no
	// further traffic should be attempted.
	IsShutdown() bool
}
