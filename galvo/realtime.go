package galvo

import (
	"github.com/meerk40t/galvoplotter/protocol"
)

// Realtime commands. Each is a one-shot 12-byte command answered (unless
// noted) with an 8-byte reply, delivered out-of-band of any list packet
// under assembly.

func (c *Controller) DisableLaser() (protocol.Reply, error) {
	return c.command(protocol.DisableLaser)
}

func (c *Controller) EnableLaser() (protocol.Reply, error) {
	return c.command(protocol.EnableLaser)
}

// ExecuteList starts execution of the queued list packets.
func (c *Controller) ExecuteList() (protocol.Reply, error) {
	return c.command(protocol.ExecuteList)
}

func (c *Controller) SetPwmPulseWidth(width uint16) (protocol.Reply, error) {
	return c.command(protocol.SetPwmPulseWidth, width)
}

func (c *Controller) GetVersion() (protocol.Reply, error) {
	return c.command(protocol.GetVersion)
}

func (c *Controller) GetSerialNumber() (protocol.Reply, error) {
	return c.command(protocol.GetSerialNo)
}

func (c *Controller) GetListStatus() (protocol.Reply, error) {
	return c.command(protocol.GetListStatus)
}

func (c *Controller) GetPositionXY() (protocol.Reply, error) {
	return c.command(protocol.GetPositionXY)
}

// GotoXY moves the pen immediately, outside any list program.
func (c *Controller) GotoXY(x, y int, angle, distance uint16) (protocol.Reply, error) {
	c.listMu.Lock()
	c.lastX = x
	c.lastY = y
	c.listMu.Unlock()
	return c.command(protocol.GotoXY, uint16(x), uint16(y), angle, distance)
}

func (c *Controller) LaserSignalOff() (protocol.Reply, error) {
	return c.command(protocol.LaserSignalOff)
}

func (c *Controller) LaserSignalOn() (protocol.Reply, error) {
	return c.command(protocol.LaserSignalOn)
}

// WriteCorLineEntry uploads one correction table cell. The board sends no
// reply for correction lines.
func (c *Controller) WriteCorLineEntry(dx, dy, nonFirst uint16) error {
	return c.commandNoRead(protocol.WriteCorLine, dx, dy, nonFirst)
}

func (c *Controller) ResetList() (protocol.Reply, error) {
	return c.command(protocol.ResetList)
}

func (c *Controller) RestartList() (protocol.Reply, error) {
	return c.command(protocol.RestartList)
}

// WriteCorTableFlag announces whether a correction table follows.
func (c *Controller) WriteCorTableFlag(hasTable bool) (protocol.Reply, error) {
	v := uint16(0)
	if hasTable {
		v = 1
	}
	return c.command(protocol.WriteCorTable, v)
}

func (c *Controller) SetControlMode(mode uint16) (protocol.Reply, error) {
	return c.command(protocol.SetControlMode, mode)
}

func (c *Controller) SetDelayMode(mode uint16) (protocol.Reply, error) {
	return c.command(protocol.SetDelayMode, mode)
}

func (c *Controller) SetMaxPolyDelay(delay float64) (protocol.Reply, error) {
	magnitude, sign := protocol.SignedDelay(delay)
	return c.command(protocol.SetMaxPolyDelay, magnitude, sign)
}

func (c *Controller) SetEndOfList(end uint16) (protocol.Reply, error) {
	return c.command(protocol.SetEndOfList, end)
}

func (c *Controller) SetFirstPulseKiller(fpk uint16) (protocol.Reply, error) {
	return c.command(protocol.SetFirstPulseKiller, fpk)
}

func (c *Controller) SetLaserMode(mode uint16) (protocol.Reply, error) {
	return c.command(protocol.SetLaserMode, mode)
}

func (c *Controller) SetTiming(timing uint16) (protocol.Reply, error) {
	return c.command(protocol.SetTiming, timing)
}

func (c *Controller) SetStandby(param1, param2 uint16) (protocol.Reply, error) {
	return c.command(protocol.SetStandby, param1, param2)
}

func (c *Controller) SetPwmHalfPeriod(halfPeriod uint16) (protocol.Reply, error) {
	return c.command(protocol.SetPwmHalfPeriod, halfPeriod)
}

func (c *Controller) StopExecute() (protocol.Reply, error) {
	return c.command(protocol.StopExecute)
}

func (c *Controller) StopList() (protocol.Reply, error) {
	return c.command(protocol.StopList)
}

// WritePort transmits the current output GPIO mask.
func (c *Controller) WritePort() (protocol.Reply, error) {
	return c.command(protocol.WritePort, c.PortBits())
}

func (c *Controller) WriteAnalogPort1(value uint16) (protocol.Reply, error) {
	return c.command(protocol.WriteAnalogPort1, value)
}

func (c *Controller) WriteAnalogPort2(value uint16) (protocol.Reply, error) {
	return c.command(protocol.WriteAnalogPort2, value)
}

func (c *Controller) WriteAnalogPortX(value uint16) (protocol.Reply, error) {
	return c.command(protocol.WriteAnalogPortX, value)
}

func (c *Controller) ReadPort() (protocol.Reply, error) {
	return c.command(protocol.ReadPort)
}

func (c *Controller) SetAxisMotionParam(param uint16) (protocol.Reply, error) {
	return c.command(protocol.SetAxisMotionParam, param)
}

func (c *Controller) SetAxisOriginParam(param uint16) (protocol.Reply, error) {
	return c.command(protocol.SetAxisOriginParam, param)
}

func (c *Controller) AxisGoOrigin() (protocol.Reply, error) {
	return c.command(protocol.AxisGoOrigin)
}

func (c *Controller) MoveAxisTo() (protocol.Reply, error) {
	return c.command(protocol.MoveAxisTo)
}

func (c *Controller) GetAxisPos() (protocol.Reply, error) {
	return c.command(protocol.GetAxisPos)
}

func (c *Controller) GetFlyWaitCount() (protocol.Reply, error) {
	return c.command(protocol.GetFlyWaitCount)
}

func (c *Controller) GetMarkCount() (protocol.Reply, error) {
	return c.command(protocol.GetMarkCount)
}

func (c *Controller) SetFpkParam2(maxVoltage, minVoltage, t1, t2 uint16) (protocol.Reply, error) {
	return c.command(protocol.SetFpkParam2, maxVoltage, minVoltage, t1, t2)
}

// SetFiberMo opens (1) or closes (0) the fiber source's MO gate.
func (c *Controller) SetFiberMo(mo uint16) (protocol.Reply, error) {
	return c.command(protocol.FiberSetMo, mo)
}

func (c *Controller) GetFiberStMoAp() (protocol.Reply, error) {
	return c.command(protocol.FiberGetStMOAP)
}

func (c *Controller) EnableZ() (protocol.Reply, error) {
	return c.command(protocol.EnableZ)
}

func (c *Controller) DisableZ() (protocol.Reply, error) {
	return c.command(protocol.DisableZ)
}

func (c *Controller) SetZData(zData uint16) (protocol.Reply, error) {
	return c.command(protocol.SetZData, zData)
}

func (c *Controller) SetSPISimmerCurrent(current uint16) (protocol.Reply, error) {
	return c.command(protocol.SetSPISimmerCurrent, current)
}

func (c *Controller) SetFpkParam(param uint16) (protocol.Reply, error) {
	return c.command(protocol.SetFpkParam, param)
}

func (c *Controller) Reset() (protocol.Reply, error) {
	return c.command(protocol.Reset)
}

// GetMarkTime queries the elapsed list execution time. The board only
// answers the query with payload 3.
func (c *Controller) GetMarkTime() (protocol.Reply, error) {
	return c.command(protocol.GetMarkTime, 3)
}

func (c *Controller) GetUserData() (protocol.Reply, error) {
	return c.command(protocol.GetUserData)
}

func (c *Controller) GetFlySpeed() (protocol.Reply, error) {
	return c.command(protocol.GetFlySpeed)
}

func (c *Controller) FiberPulseWidth() (protocol.Reply, error) {
	return c.command(protocol.FiberPulseWidth)
}

func (c *Controller) GetFiberConfigExtend() (protocol.Reply, error) {
	return c.command(protocol.FiberGetConfigExtend)
}

func (c *Controller) InputPort(port uint16) (protocol.Reply, error) {
	return c.command(protocol.InputPort, port)
}

func (c *Controller) ClearLockInputPort() (protocol.Reply, error) {
	return c.command(protocol.InputPort, protocol.LockInputClear)
}

func (c *Controller) EnableLockInputPort() (protocol.Reply, error) {
	return c.command(protocol.InputPort, protocol.LockInputEnable)
}

func (c *Controller) DisableLockInputPort() (protocol.Reply, error) {
	return c.command(protocol.InputPort, protocol.LockInputDisable)
}

func (c *Controller) GetInputPort() (protocol.Reply, error) {
	return c.command(protocol.InputPort)
}

func (c *Controller) SetFlyRes(res1, res2, res3, res4 uint16) (protocol.Reply, error) {
	return c.command(protocol.SetFlyRes, res1, res2, res3, res4)
}
