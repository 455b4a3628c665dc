package galvo

import (
	"time"

	"github.com/meerk40t/galvoplotter/protocol"
)

// List building. Words accumulate into a 0xC00-byte packet that flushes
// when full or at an explicit end. The listMu lock serializes all of it;
// the *Locked helpers assume the lock is held so nested callers (the move
// commands, abort) stay atomic. Mode transitions take the lock once per
// list call and are not atomic as a whole.

func (c *Controller) listWrite(op uint16, values ...uint16) error {
	c.listMu.Lock()
	defer c.listMu.Unlock()
	return c.listWriteLocked(protocol.NewCommand(op, values...))
}

func (c *Controller) listWriteLocked(cmd protocol.Command) error {
	if c.activeList != nil && c.activeList.Full() {
		if err := c.listEndLocked(); err != nil {
			return err
		}
	}
	if c.activeList == nil {
		c.activeList = protocol.NewPacket()
	}
	c.activeList.Append(cmd)
	return nil
}

// listEnd flushes the active packet if it holds any user words.
func (c *Controller) listEnd() error {
	c.listMu.Lock()
	defer c.listMu.Unlock()
	return c.listEndLocked()
}

func (c *Controller) listEndLocked() error {
	if c.activeList == nil || c.activeList.Empty() {
		return nil
	}
	if err := c.WaitReady(); err != nil {
		return err
	}
	for c.paused.Load() {
		time.Sleep(c.pausePoll)
	}
	if _, err := c.send(c.activeList.Bytes(), false); err != nil {
		return err
	}
	if _, err := c.SetEndOfList(0); err != nil {
		return err
	}
	c.listPackets++
	c.activeList = nil
	if c.listPackets > 2 && !c.listExecuting {
		if _, err := c.ExecuteList(); err != nil {
			return err
		}
		c.listExecuting = true
	}
	return nil
}

func (c *Controller) listNewLocked() {
	c.activeList = protocol.NewPacket()
}

func endOfListWord() protocol.Command {
	return protocol.NewCommand(protocol.ListEndOfList)
}

// ListPackets returns how many packets were flushed for the current list
// program.
func (c *Controller) ListPackets() int {
	c.listMu.Lock()
	defer c.listMu.Unlock()
	return c.listPackets
}

// IsListExecuting reports whether an ExecuteList has been issued for the
// current list program.
func (c *Controller) IsListExecuting() bool {
	c.listMu.Lock()
	defer c.listMu.Unlock()
	return c.listExecuting
}

//
// Raw list commands
//

// ListJump appends a laser-off move. The distance parameter is derived
// from the current pen position and clamped to uint16.
func (c *Controller) ListJump(x, y int) error {
	return c.ListJumpAngle(x, y, 0)
}

// ListJumpAngle appends a laser-off move with an explicit angle word.
func (c *Controller) ListJumpAngle(x, y int, angle uint16) error {
	c.listMu.Lock()
	defer c.listMu.Unlock()
	distance := protocol.Distance(c.lastX, c.lastY, x, y)
	cmd := protocol.NewCommand(protocol.ListJumpTo, uint16(x), uint16(y), angle, distance)
	if err := c.listWriteLocked(cmd); err != nil {
		return err
	}
	c.lastX = x
	c.lastY = y
	return nil
}

// ListMark appends a laser-on move at the current mark speed.
func (c *Controller) ListMark(x, y int) error {
	return c.ListMarkAngle(x, y, 0)
}

// ListMarkAngle appends a laser-on move with an explicit angle word.
func (c *Controller) ListMarkAngle(x, y int, angle uint16) error {
	c.listMu.Lock()
	defer c.listMu.Unlock()
	distance := protocol.Distance(c.lastX, c.lastY, x, y)
	cmd := protocol.NewCommand(protocol.ListMarkTo, uint16(x), uint16(y), angle, distance)
	if err := c.listWriteLocked(cmd); err != nil {
		return err
	}
	c.lastX = x
	c.lastY = y
	return nil
}

// ListEndOfList appends the list program terminator.
func (c *Controller) ListEndOfList() error {
	return c.listWrite(protocol.ListEndOfList)
}

// ListLaserOnPoint fires the laser in place for dwellTime 10µs units.
func (c *Controller) ListLaserOnPoint(dwellTime uint16) error {
	return c.listWrite(protocol.ListLaserOnPoint, dwellTime)
}

// ListDelayTime appends a delay in 10µs units.
func (c *Controller) ListDelayTime(delay uint16) error {
	return c.listWrite(protocol.ListDelayTime, delay)
}

// ListJumpSpeed sets the laser-off travel speed in galvo units/ms.
func (c *Controller) ListJumpSpeed(speed uint16) error {
	return c.listWrite(protocol.ListJumpSpeed, speed)
}

// ListLaserOnDelay sets the laser-on delay in microseconds.
func (c *Controller) ListLaserOnDelay(delay float64) error {
	magnitude, sign := protocol.SignedDelay(delay)
	return c.listWrite(protocol.ListLaserOnDelay, magnitude, sign)
}

// ListLaserOffDelay sets the laser-off delay in microseconds.
func (c *Controller) ListLaserOffDelay(delay float64) error {
	magnitude, sign := protocol.SignedDelay(delay)
	return c.listWrite(protocol.ListLaserOffDelay, magnitude, sign)
}

// ListMarkFrequency sets the CO2 source's mark period word.
func (c *Controller) ListMarkFrequency(period uint16) error {
	return c.listWrite(protocol.ListMarkFreq, period)
}

// ListMarkPowerRatio sets the CO2 source's power ratio word.
func (c *Controller) ListMarkPowerRatio(ratio uint16) error {
	return c.listWrite(protocol.ListMarkPowerRatio, ratio)
}

// ListMarkSpeed sets the marking speed in galvo units/ms.
func (c *Controller) ListMarkSpeed(speed uint16) error {
	return c.listWrite(protocol.ListMarkSpeed, speed)
}

// ListJumpDelay sets the jump settle delay in microseconds.
func (c *Controller) ListJumpDelay(delay float64) error {
	magnitude, sign := protocol.SignedDelay(delay)
	return c.listWrite(protocol.ListJumpDelay, magnitude, sign)
}

// ListPolygonDelay sets the polygon corner delay in microseconds.
func (c *Controller) ListPolygonDelay(delay float64) error {
	magnitude, sign := protocol.SignedDelay(delay)
	return c.listWrite(protocol.ListPolygonDelay, magnitude, sign)
}

// ListWritePort latches the output GPIO mask from within the list.
func (c *Controller) ListWritePort() error {
	return c.listWrite(protocol.ListWritePort, c.PortBits())
}

// ListMarkCurrent sets the fiber source's mark current (power ratio).
func (c *Controller) ListMarkCurrent(current uint16) error {
	return c.listWrite(protocol.ListMarkCurrent, current)
}

// ListFlyEnable toggles on-the-fly control within the list.
func (c *Controller) ListFlyEnable(enabled uint16) error {
	return c.listWrite(protocol.ListFlyEnable, enabled)
}

// ListQSwitchPeriod sets the fiber source's Q-switch period, the inverse
// of the pulse frequency.
func (c *Controller) ListQSwitchPeriod(period uint16) error {
	return c.listWrite(protocol.ListQSwitchPeriod, period)
}

// ListFlyDelay sets the on-the-fly delay in microseconds.
func (c *Controller) ListFlyDelay(delay float64) error {
	magnitude, sign := protocol.SignedDelay(delay)
	return c.listWrite(protocol.ListFlyDelay, magnitude, sign)
}

// ListSetCo2FPK sets the CO2 source's first-pulse-killer length.
func (c *Controller) ListSetCo2FPK(fpk uint16) error {
	return c.listWrite(protocol.ListSetCo2FPK, fpk)
}

// ListFlyWaitInput makes on-the-fly execution wait for input.
func (c *Controller) ListFlyWaitInput() error {
	return c.listWrite(protocol.ListFlyWaitInput)
}

// ListFiberOpenMO gates motion operations; without MO open the fiber
// source does not fire while moving.
func (c *Controller) ListFiberOpenMO(openMO uint16) error {
	return c.listWrite(protocol.ListFiberOpenMO, openMO)
}

// ListWaitForInput stalls list execution until the masked input matches.
func (c *Controller) ListWaitForInput(mask, level uint16) error {
	return c.listWrite(protocol.ListWaitForInput, mask, level)
}

func (c *Controller) ListChangeMarkCount(count uint16) error {
	return c.listWrite(protocol.ListChangeMarkCount, count)
}

func (c *Controller) ListSetWeldPowerWave(wave uint16) error {
	return c.listWrite(protocol.ListSetWeldPowerWave, wave)
}

func (c *Controller) ListEnableWeldPowerWave(enabled uint16) error {
	return c.listWrite(protocol.ListEnableWeldPowerWave, enabled)
}

// ListFiberYLPMPulseWidth sets the fiber YLPM source pulse width.
func (c *Controller) ListFiberYLPMPulseWidth(width uint16) error {
	return c.listWrite(protocol.ListFiberYLPMPulseWidth, width)
}

func (c *Controller) ListFlyEncoderCount(count uint16) error {
	return c.listWrite(protocol.ListFlyEncoderCount, count)
}

func (c *Controller) ListSetDaZWord(word uint16) error {
	return c.listWrite(protocol.ListSetDaZWord, word)
}

func (c *Controller) ListJptSetParam(param uint16) error {
	return c.listWrite(protocol.ListJptSetParam, param)
}

// ListReady opens a new command list. Seen at the start of every list
// program.
func (c *Controller) ListReady() error {
	return c.listWrite(protocol.ListReadyMark)
}
