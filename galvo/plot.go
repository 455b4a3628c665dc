package galvo

import (
	"math"
	"time"

	"github.com/meerk40t/galvoplotter/protocol"
)

// Plot shortcuts. All coordinates are galvo units; moves to the current
// position and moves outside [0, 0xFFFF] are silently dropped.

const maxDwellChunk = 60000 // 10µs units per list word

// JumpOptions tunes the jump-delay selection of Goto/Light/Dark. Nil
// delay fields fall back to the configured short/long jump delays; a
// zero DistanceLimit disables the long/short split.
type JumpOptions struct {
	Long          *float64
	Short         *float64
	DistanceLimit float64
}

func (c *Controller) dropMove(x, y int) bool {
	lastX, lastY := c.LastXY()
	if x == lastX && y == lastY {
		return true
	}
	return x > 0xFFFF || x < 0 || y > 0xFFFF || y < 0
}

// Mark performs a laser-on move to (x, y).
func (c *Controller) Mark(x, y int) error {
	if c.dropMove(x, y) {
		return nil
	}
	return c.ListMark(x, y)
}

// Goto performs a laser-off move to (x, y) using the configured jump
// delays.
func (c *Controller) Goto(x, y int) error {
	return c.GotoWith(x, y, JumpOptions{})
}

// GotoWith performs a laser-off move with explicit jump-delay options.
func (c *Controller) GotoWith(x, y int, opt JumpOptions) error {
	if c.dropMove(x, y) {
		return nil
	}
	if c.cfg.GotoSpeed != nil {
		if err := c.SetTravelSpeed(*c.cfg.GotoSpeed); err != nil {
			return err
		}
	}
	if err := c.applyJumpDelay(x, y, opt); err != nil {
		return err
	}
	return c.ListJump(x, y)
}

// Light performs a move with the guide light on.
func (c *Controller) Light(x, y int) error {
	return c.LightWith(x, y, JumpOptions{})
}

// LightWith performs a guide-light move with explicit jump-delay options.
func (c *Controller) LightWith(x, y int, opt JumpOptions) error {
	if c.dropMove(x, y) {
		return nil
	}
	if c.LightOn() {
		if err := c.ListWritePort(); err != nil {
			return err
		}
	}
	if c.cfg.LightSpeed != nil {
		if err := c.SetTravelSpeed(*c.cfg.LightSpeed); err != nil {
			return err
		}
	}
	if err := c.applyJumpDelay(x, y, opt); err != nil {
		return err
	}
	return c.ListJump(x, y)
}

// Dark performs a move with the guide light off.
func (c *Controller) Dark(x, y int) error {
	return c.DarkWith(x, y, JumpOptions{})
}

// DarkWith performs a light-off move with explicit jump-delay options.
func (c *Controller) DarkWith(x, y int, opt JumpOptions) error {
	if c.dropMove(x, y) {
		return nil
	}
	if c.LightOff() {
		if err := c.ListWritePort(); err != nil {
			return err
		}
	}
	if c.cfg.DarkSpeed != nil {
		if err := c.SetTravelSpeed(*c.cfg.DarkSpeed); err != nil {
			return err
		}
	}
	if err := c.applyJumpDelay(x, y, opt); err != nil {
		return err
	}
	return c.ListJump(x, y)
}

func (c *Controller) applyJumpDelay(x, y int, opt JumpOptions) error {
	long := c.cfg.DelayJumpLong
	if opt.Long != nil {
		long = *opt.Long
	}
	short := c.cfg.DelayJumpShort
	if opt.Short != nil {
		short = *opt.Short
	}
	lastX, lastY := c.LastXY()
	distance := float64(protocol.Distance(lastX, lastY, x, y))
	delay := short
	if opt.DistanceLimit > 0 && distance > opt.DistanceLimit {
		delay = long
	}
	if delay != 0 {
		return c.SetDelayJump(delay)
	}
	return nil
}

// Dwell fires the laser in place for the given milliseconds, split into
// words of at most 60000 10µs units. When delayEnd is set the configured
// end delay is appended.
func (c *Controller) Dwell(ms float64, delayEnd bool) error {
	dwellTime := ms * 100 // ms to 10µs units
	for dwellTime > 0 {
		d := math.Min(dwellTime, maxDwellChunk)
		if err := c.ListLaserOnPoint(uint16(d)); err != nil {
			return err
		}
		dwellTime -= d
	}
	if delayEnd {
		return c.ListDelayTime(uint16(c.cfg.DelayEnd / 10.0))
	}
	return nil
}

// Wait appends a list delay of the given milliseconds, split into words
// of at most 60000 10µs units.
func (c *Controller) Wait(ms float64) error {
	delay := ms * 100 // ms to 10µs units
	for delay > 0 {
		d := math.Min(delay, maxDwellChunk)
		if err := c.ListDelayTime(uint16(d)); err != nil {
			return err
		}
		delay -= d
	}
	return nil
}

// WaitForInput drops to the initial configuration, polls the board's
// input port until the masked bits match the expected value for the
// configured number of consecutive passes, then resumes marking.
func (c *Controller) WaitForInput(mask, value uint16) error {
	if err := c.InitialConfiguration(); err != nil {
		return err
	}
	c.waitForInputProtocol(mask, value)
	return c.MarkingConfiguration()
}

func (c *Controller) waitForInputProtocol(mask, value uint16) {
	required := c.cfg.InputPassesRequired
	passes := 0
	for c.conn != nil && !c.conn.IsShutdown() && !c.aborting.Load() {
		reply, err := c.conn.ReadPort(c.cfg.MachineIndex)
		if err != nil {
			time.Sleep(c.inputPoll)
			continue
		}
		input := reply[1]
		if input&mask == value&mask {
			passes++
			if passes >= required {
				return
			}
		} else {
			passes = 0
			time.Sleep(c.inputPoll)
		}
	}
}

// SetXY positions the pen immediately via a realtime GotoXY.
func (c *Controller) SetXY(x, y int) error {
	lastX, lastY := c.LastXY()
	distance := protocol.Distance(lastX, lastY, x, y)
	_, err := c.GotoXY(x, y, 0, distance)
	return err
}
