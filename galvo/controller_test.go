package galvo

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meerk40t/galvoplotter/connection"
	"github.com/meerk40t/galvoplotter/protocol"
)

// newTestController builds a controller on a recording mock with poll
// intervals shrunk so waits resolve immediately.
func newTestController(cfg *Config) (*Controller, *connection.Mock) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	quiet := logrus.New()
	quiet.SetLevel(logrus.ErrorLevel)
	mock := connection.NewMock(logrus.NewEntry(quiet))
	c := NewControllerWithConnection(cfg, mock)
	c.SetLogger(logrus.NewEntry(quiet))
	c.retryDelay = time.Millisecond
	c.pollInterval = time.Millisecond
	c.pausePoll = time.Millisecond
	c.inputPoll = time.Millisecond
	return c, mock
}

func countListOps(words []protocol.Command, op uint16) int {
	n := 0
	for _, w := range words {
		if w.Op == op {
			n++
		}
	}
	return n
}

func TestMarkSquare(t *testing.T) {
	c, mock := newTestController(nil)

	err := c.Marking(func(c *Controller) error {
		require.NoError(t, c.Goto(0x5000, 0x5000))
		require.NoError(t, c.Mark(0x5000, 0xA000))
		require.NoError(t, c.Mark(0xA000, 0xA000))
		require.NoError(t, c.Mark(0x5000, 0xA000))
		return c.Mark(0x5000, 0x5000)
	})
	require.NoError(t, err)

	words := mock.ListWords()
	assert.Equal(t, 1, countListOps(words, protocol.ListJumpTo), "one jump expected")
	assert.Equal(t, 4, countListOps(words, protocol.ListMarkTo), "four marks expected")

	// Distances are recomputed per segment.
	var marks []protocol.Command
	for _, w := range words {
		if w.Op == protocol.ListMarkTo {
			marks = append(marks, w)
		}
	}
	assert.Equal(t, uint16(0x5000), marks[0].V4, "first mark distance")
	assert.Equal(t, uint16(0x5000), marks[1].V4, "second mark distance")
}

func TestMarkElidesRedundantMove(t *testing.T) {
	c, mock := newTestController(nil)

	err := c.Marking(func(c *Controller) error {
		require.NoError(t, c.Goto(0x5000, 0x5000))
		require.NoError(t, c.Mark(0x5000, 0xA000))
		// Equal endpoint: must be a no-op.
		return c.Mark(0x5000, 0xA000)
	})
	require.NoError(t, err)

	assert.Equal(t, 1, countListOps(mock.ListWords(), protocol.ListMarkTo))
}

func TestPlotDropsOutOfRange(t *testing.T) {
	c, mock := newTestController(nil)

	err := c.Marking(func(c *Controller) error {
		require.NoError(t, c.Mark(-1, 0x5000))
		require.NoError(t, c.Mark(0x5000, 0x10000))
		require.NoError(t, c.Goto(0x10000, 0))
		return c.Dark(0, -5)
	})
	require.NoError(t, err)

	words := mock.ListWords()
	assert.Equal(t, 0, countListOps(words, protocol.ListMarkTo))
	assert.Equal(t, 0, countListOps(words, protocol.ListJumpTo))
}

func TestPacketBoundary(t *testing.T) {
	c, mock := newTestController(nil)

	// 257 words force one full-packet flush plus one explicit flush.
	for i := 0; i < protocol.PacketWords+1; i++ {
		require.NoError(t, c.ListDelayTime(1))
	}
	require.NoError(t, c.listEnd())

	packets := mock.Packets()
	require.Len(t, packets, 2)
	assert.Equal(t, 2, c.ListPackets())
	assert.False(t, c.IsListExecuting(), "two packets must not trigger execution")

	endOfList := 0
	for _, cmd := range mock.Commands() {
		if cmd.Op == protocol.SetEndOfList {
			endOfList++
		}
	}
	assert.Equal(t, 2, endOfList, "SetEndOfList must follow each packet")

	// Every packet is exactly 0xC00 bytes with 12-byte aligned content.
	for _, p := range packets {
		assert.Len(t, p, protocol.PacketSize)
	}
	// The second packet holds one user word and 255 NOPs.
	second := packets[1]
	assert.Equal(t, uint16(protocol.ListDelayTime), protocol.ParseCommand(second[:12]).Op)
	for i := protocol.CommandSize; i < protocol.PacketSize; i += protocol.CommandSize {
		assert.Equal(t, protocol.NopWord[:], second[i:i+protocol.CommandSize])
	}
}

func TestExecuteAfterThirdPacket(t *testing.T) {
	c, mock := newTestController(nil)

	for i := 0; i < 3*protocol.PacketWords; i++ {
		require.NoError(t, c.ListDelayTime(1))
	}
	require.NoError(t, c.listEnd())

	require.Equal(t, 3, c.ListPackets())
	assert.True(t, c.IsListExecuting())
	execute := 0
	for _, cmd := range mock.Commands() {
		if cmd.Op == protocol.ExecuteList {
			execute++
		}
	}
	assert.Equal(t, 1, execute)
}

func TestParameterCacheElision(t *testing.T) {
	c, mock := newTestController(nil)

	require.NoError(t, c.SetMarkSpeed(250))
	require.NoError(t, c.SetMarkSpeed(250))
	require.NoError(t, c.SetDelayOn(50))
	require.NoError(t, c.SetDelayOn(50))
	require.NoError(t, c.SetTravelSpeed(500))
	require.NoError(t, c.SetTravelSpeed(500))
	require.NoError(t, c.listEnd())

	words := mock.ListWords()
	assert.Equal(t, 1, countListOps(words, protocol.ListMarkSpeed))
	assert.Equal(t, 1, countListOps(words, protocol.ListLaserOnDelay))
	assert.Equal(t, 1, countListOps(words, protocol.ListJumpSpeed))

	// A changed value emits again.
	mock.Clear()
	require.NoError(t, c.SetMarkSpeed(300))
	require.NoError(t, c.listEnd())
	assert.Equal(t, 1, countListOps(mock.ListWords(), protocol.ListMarkSpeed))
}

func TestCacheInvalidatedByModeTransition(t *testing.T) {
	c, mock := newTestController(nil)

	require.NoError(t, c.MarkingConfiguration())
	require.NoError(t, c.InitialConfiguration())
	mock.Clear()
	// A second marking pass resends every parameter despite unchanged
	// values.
	require.NoError(t, c.MarkingConfiguration())
	require.NoError(t, c.listEnd())

	words := mock.ListWords()
	assert.Equal(t, 1, countListOps(words, protocol.ListMarkSpeed))
	assert.Equal(t, 1, countListOps(words, protocol.ListQSwitchPeriod))
	assert.Equal(t, 1, countListOps(words, protocol.ListMarkCurrent))
}

func TestModeTransitionIdempotent(t *testing.T) {
	c, mock := newTestController(nil)

	require.NoError(t, c.MarkingConfiguration())
	require.NoError(t, c.MarkingConfiguration())

	mo := 0
	for _, cmd := range mock.Commands() {
		if cmd.Op == protocol.FiberSetMo && cmd.V1 == 1 {
			mo++
		}
	}
	assert.Equal(t, 1, mo, "MO open must be issued once")

	require.NoError(t, c.listEnd())
	assert.Equal(t, 1, countListOps(mock.ListWords(), protocol.ListReadyMark))
}

func TestDwellChunking(t *testing.T) {
	c, mock := newTestController(nil)

	require.NoError(t, c.Dwell(1500, false))
	require.NoError(t, c.listEnd())

	total := 0
	for _, w := range mock.ListWords() {
		if w.Op == protocol.ListLaserOnPoint {
			assert.LessOrEqual(t, int(w.V1), 60000)
			total += int(w.V1)
		}
	}
	assert.Equal(t, 150000, total, "dwell words must sum to ms*100")
}

func TestDwellAppendsEndDelay(t *testing.T) {
	c, mock := newTestController(nil)

	require.NoError(t, c.Dwell(10, true))
	require.NoError(t, c.listEnd())

	words := mock.ListWords()
	require.Equal(t, 1, countListOps(words, protocol.ListDelayTime))
	for _, w := range words {
		if w.Op == protocol.ListDelayTime {
			assert.Equal(t, uint16(30), w.V1, "configured end delay / 10")
		}
	}
}

func TestWaitChunking(t *testing.T) {
	c, mock := newTestController(nil)

	require.NoError(t, c.Wait(500))
	require.NoError(t, c.listEnd())

	words := mock.ListWords()
	require.Equal(t, 1, countListOps(words, protocol.ListDelayTime), "500ms fits one chunk")
	assert.Equal(t, uint16(50000), words[0].V1)

	mock.Clear()
	require.NoError(t, c.Wait(1500))
	require.NoError(t, c.listEnd())
	total := 0
	for _, w := range mock.ListWords() {
		if w.Op == protocol.ListDelayTime {
			assert.LessOrEqual(t, int(w.V1), 60000)
			total += int(w.V1)
		}
	}
	assert.Equal(t, 150000, total, "wait words must sum to ms*100")
}

func TestSignedDelayEncoding(t *testing.T) {
	c, mock := newTestController(nil)

	require.NoError(t, c.ListLaserOnDelay(-5))
	require.NoError(t, c.ListLaserOnDelay(5))
	require.NoError(t, c.listEnd())

	words := mock.ListWords()
	require.Equal(t, 2, len(words))
	assert.Equal(t, protocol.NewCommand(protocol.ListLaserOnDelay, 5, 0x8000), words[0])
	assert.Equal(t, protocol.NewCommand(protocol.ListLaserOnDelay, 5, 0x0000), words[1])
}

func TestDistanceClamp(t *testing.T) {
	cfg := DefaultConfig()
	cfg.X, cfg.Y = 0, 0
	c, mock := newTestController(cfg)

	require.NoError(t, c.ListJump(0xFFFF, 0xFFFF))
	require.NoError(t, c.listEnd())

	words := mock.ListWords()
	require.Equal(t, 1, countListOps(words, protocol.ListJumpTo))
	assert.Equal(t, uint16(0xFFFF), words[0].V4, "diagonal distance must clamp")
}

func TestGridWait(t *testing.T) {
	c, mock := newTestController(nil)

	cells := 0
	err := c.Lighting(func(c *Controller) error {
		for x := 0x1000; x < 0x4000; x += 0x1000 {
			for y := 0x1000; y < 0x4000; y += 0x1000 {
				cells++
				if err := c.Dark(x, y); err != nil {
					return err
				}
				if c.LightOn() {
					if err := c.ListWritePort(); err != nil {
						return err
					}
				}
				if err := c.Wait(500); err != nil {
					return err
				}
			}
		}
		return nil
	})
	require.NoError(t, err)

	words := mock.ListWords()
	assert.Equal(t, cells, countListOps(words, protocol.ListJumpTo), "one jump per cell")
	delays := 0
	for _, w := range words {
		if w.Op == protocol.ListDelayTime && w.V1 == 50000 {
			delays++
		}
	}
	assert.Equal(t, cells, delays, "one 50000-unit delay per cell")
}

func TestGotoAppliesJumpDelay(t *testing.T) {
	c, mock := newTestController(nil)

	require.NoError(t, c.MarkingConfiguration())
	mock.Clear()

	long, short := 200.0, 8.0
	require.NoError(t, c.GotoWith(0x9000, 0x8000, JumpOptions{
		Long: &long, Short: &short, DistanceLimit: 0x100,
	}))
	require.NoError(t, c.listEnd())

	words := mock.ListWords()
	require.Equal(t, 1, countListOps(words, protocol.ListJumpDelay))
	for _, w := range words {
		if w.Op == protocol.ListJumpDelay {
			assert.Equal(t, uint16(200), w.V1, "long delay expected over the limit")
		}
	}
}

func TestSetXY(t *testing.T) {
	c, mock := newTestController(nil)

	require.NoError(t, c.SetXY(0x9000, 0x8000))
	found := false
	for _, cmd := range mock.Commands() {
		if cmd.Op == protocol.GotoXY {
			found = true
			assert.Equal(t, uint16(0x9000), cmd.V1)
			assert.Equal(t, uint16(0x8000), cmd.V2)
			assert.Equal(t, uint16(0x1000), cmd.V4)
		}
	}
	assert.True(t, found, "GotoXY must be sent")
	x, y := c.LastXY()
	assert.Equal(t, 0x9000, x)
	assert.Equal(t, 0x8000, y)
}

func TestPortOps(t *testing.T) {
	c, _ := newTestController(nil)

	assert.False(t, c.IsPort(3))
	c.PortOn(3)
	assert.True(t, c.IsPort(3))
	c.PortOff(3)
	assert.False(t, c.IsPort(3))

	c.PortSet(0x00FF, 0x0055)
	assert.Equal(t, uint16(0x0055), c.PortBits())

	assert.True(t, c.LightOn(), "first on changes state")
	assert.False(t, c.LightOn(), "second on is redundant")
	assert.True(t, c.LightOff())
	assert.False(t, c.LightOff())
}

func TestInitLaserSequence(t *testing.T) {
	c, mock := newTestController(nil)

	// Any send lazily connects and runs the bring-up sequence.
	_, err := c.GetVersion()
	require.NoError(t, err)

	cmds := mock.Commands()
	require.NotEmpty(t, cmds)
	ops := make([]uint16, 0, len(cmds))
	for _, cmd := range cmds {
		ops = append(ops, cmd.Op)
	}
	// Bring-up prefix: identity, reset, blank correction table, enable.
	prefix := []uint16{
		protocol.GetSerialNo,
		protocol.GetVersion,
		protocol.Reset,
		protocol.WriteCorTable,
		protocol.EnableLaser,
		protocol.SetControlMode,
		protocol.SetLaserMode,
		protocol.SetDelayMode,
		protocol.SetTiming,
		protocol.SetStandby,
		protocol.SetFirstPulseKiller,
		protocol.SetPwmHalfPeriod,
		protocol.SetPwmPulseWidth,
		protocol.FiberSetMo,
		protocol.SetFpkParam2,
		protocol.SetFlyRes,
		protocol.EnableZ,
		protocol.WriteAnalogPort1,
		protocol.EnableZ,
	}
	require.GreaterOrEqual(t, len(ops), len(prefix))
	assert.Equal(t, prefix, ops[:len(prefix)])
}

func TestStateReporting(t *testing.T) {
	c, _ := newTestController(nil)

	state, detail := c.State()
	assert.Equal(t, "idle", state)
	assert.Equal(t, "idle", detail)

	require.NoError(t, c.MarkingConfiguration())
	state, detail = c.State()
	assert.Equal(t, "busy", state)
	assert.Equal(t, "marking", detail)

	require.NoError(t, c.InitialConfiguration())
	state, _ = c.State()
	assert.Equal(t, "idle", state)
}
