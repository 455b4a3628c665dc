package galvo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meerk40t/galvoplotter/cor"
	"github.com/meerk40t/galvoplotter/protocol"
)

func TestWriteCorrectionTable(t *testing.T) {
	c, mock := newTestController(nil)

	// Force the lazy connect first so only the explicit upload is
	// inspected afterwards.
	_, err := c.GetVersion()
	require.NoError(t, err)
	mock.Clear()

	table := make(cor.Table, cor.GridSize*cor.GridSize)
	for i := range table {
		table[i] = cor.Entry{DX: uint16(i & 0xFFFF), DY: 2}
	}
	require.NoError(t, c.WriteCorrectionTable(table))

	cmds := mock.Commands()
	var corLines []protocol.Command
	tableFlags := 0
	for _, cmd := range cmds {
		switch cmd.Op {
		case protocol.WriteCorLine:
			corLines = append(corLines, cmd)
		case protocol.WriteCorTable:
			tableFlags++
			assert.Equal(t, uint16(1), cmd.V1)
		}
	}
	assert.Equal(t, 1, tableFlags)
	require.Len(t, corLines, cor.GridSize*cor.GridSize)
	// Only the first line carries the first-cell flag.
	assert.Equal(t, uint16(0), corLines[0].V3)
	for _, line := range corLines[1:] {
		assert.Equal(t, uint16(1), line.V3)
	}
}

func TestBlankCorrectionOnInit(t *testing.T) {
	c, mock := newTestController(nil)

	_, err := c.GetVersion()
	require.NoError(t, err)

	blank := 0
	for _, cmd := range mock.Commands() {
		if cmd.Op == protocol.WriteCorTable {
			blank++
			assert.Equal(t, uint16(0), cmd.V1, "no cor file configured, blank table expected")
		}
	}
	assert.Equal(t, 1, blank)
}

func TestShortCorrectionTableFallsBack(t *testing.T) {
	c, mock := newTestController(nil)

	_, err := c.GetVersion()
	require.NoError(t, err)
	mock.Clear()

	require.NoError(t, c.WriteCorrectionTable(make(cor.Table, 10)))
	cmds := mock.Commands()
	require.Len(t, cmds, 1)
	assert.Equal(t, uint16(protocol.WriteCorTable), cmds[0].Op)
	assert.Equal(t, uint16(0), cmds[0].V1)
}
