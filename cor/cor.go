// Package cor decodes LMC galvo correction (.cor) files. Two on-disk
// formats exist: the "LMC1COR_1.0" layout storing float64 offsets and a
// legacy layout storing int32 offsets. Both decode to the same 65×65 grid
// of unsigned 16-bit (dx, dy) pairs the controller's correction table
// upload consumes.
package cor

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"unicode/utf16"
)

// GridSize is the correction table edge length; tables are always
// GridSize×GridSize cells in row-major order.
const GridSize = 65

// Float-format label, stored as UTF-16 in the first 0x16 bytes.
const floatLabel = "LMC1COR_1.0"

// Entry is one correction cell. Negative file offsets are folded into
// the upper half of the uint16 range (-v becomes v+0x8000).
type Entry struct {
	DX uint16
	DY uint16
}

// Table is a full 65×65 correction grid in row-major order.
type Table []Entry

// ReadFile decodes a .cor file in either format.
func ReadFile(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

// Read decodes a .cor stream in either format.
func Read(r io.Reader) (Table, error) {
	label := make([]byte, 0x16)
	if _, err := io.ReadFull(r, label); err != nil {
		return nil, fmt.Errorf("cor label: %w", err)
	}
	if decodeLabel(label) == floatLabel {
		if err := skip(r, 0x1FA); err != nil {
			return nil, fmt.Errorf("cor header: %w", err)
		}
		return readFloatTable(r)
	}
	if err := skip(r, 0xE); err != nil {
		return nil, fmt.Errorf("cor header: %w", err)
	}
	return readIntTable(r)
}

// Scale extracts the scale factor stored in a .cor file header.
func Scale(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	label := make([]byte, 0x16)
	if _, err := io.ReadFull(f, label); err != nil {
		return 0, fmt.Errorf("cor label: %w", err)
	}
	if decodeLabel(label) == floatLabel {
		if err := skip(f, 2); err != nil {
			return 0, err
		}
		buf := make([]byte, 0x1F8)
		if _, err := io.ReadFull(f, buf); err != nil {
			return 0, fmt.Errorf("cor scale block: %w", err)
		}
		bits := binary.LittleEndian.Uint64(buf[43*8:])
		return math.Float64frombits(bits), nil
	}
	if err := skip(f, 6); err != nil {
		return 0, err
	}
	buf := make([]byte, 8)
	if _, err := io.ReadFull(f, buf); err != nil {
		return 0, fmt.Errorf("cor scale: %w", err)
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(buf)), nil
}

// readFloatTable decodes the table of files labeled LMC1COR_1.0: one
// little-endian float64 per axis per cell.
func readFloatTable(r io.Reader) (Table, error) {
	table := make(Table, 0, GridSize*GridSize)
	buf := make([]byte, 16)
	for i := 0; i < GridSize*GridSize; i++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("cor cell %d: %w", i, err)
		}
		dx := int(math.Round(math.Float64frombits(binary.LittleEndian.Uint64(buf[0:]))))
		dy := int(math.Round(math.Float64frombits(binary.LittleEndian.Uint64(buf[8:]))))
		table = append(table, Entry{fold(dx), fold(dy)})
	}
	return table, nil
}

// readIntTable decodes the legacy table: one little-endian int32 per axis
// per cell.
func readIntTable(r io.Reader) (Table, error) {
	table := make(Table, 0, GridSize*GridSize)
	buf := make([]byte, 8)
	for i := 0; i < GridSize*GridSize; i++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("cor cell %d: %w", i, err)
		}
		dx := int(int32(binary.LittleEndian.Uint32(buf[0:])))
		dy := int(int32(binary.LittleEndian.Uint32(buf[4:])))
		table = append(table, Entry{fold(dx), fold(dy)})
	}
	return table, nil
}

func fold(v int) uint16 {
	if v < 0 {
		v = -v + 0x8000
	}
	return uint16(v & 0xFFFF)
}

func decodeLabel(b []byte) string {
	words := make([]uint16, len(b)/2)
	for i := range words {
		words[i] = binary.LittleEndian.Uint16(b[2*i:])
	}
	return string(utf16.Decode(words))
}

func skip(r io.Reader, n int64) error {
	_, err := io.CopyN(io.Discard, r, n)
	return err
}
