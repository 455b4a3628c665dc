package galvo

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/meerk40t/galvoplotter/connection"
	"github.com/meerk40t/galvoplotter/protocol"
)

// Laser configurations. The mode machine moves the board between these;
// each transition emits a fixed command sequence (see modes.go).
type Configuration string

const (
	ConfigurationInitial  Configuration = "initial"
	ConfigurationMarking  Configuration = "marking"
	ConfigurationLighting Configuration = "lighting"
)

const (
	connectAttempts = 10
	connectInterval = 300 * time.Millisecond
	statusInterval  = 10 * time.Millisecond
	pauseInterval   = 300 * time.Millisecond
	inputInterval   = 50 * time.Millisecond
)

// Controller owns the connection to one LMC board and sequences queued
// list data and realtime commands to it. Jobs run on a single spooler
// goroutine; every public method is safe to call from any goroutine.
type Controller struct {
	cfg *Config
	log *logrus.Entry

	conn connection.Connection

	// List building state. listMu is the list-build lock: it serializes
	// packet assembly, the parameter cache and the pen position so that
	// nested helpers stay atomic.
	listMu        sync.Mutex
	activeList    *protocol.Packet
	listExecuting bool
	listPackets   int
	lastX         int
	lastY         int
	cache         paramCache

	// GPIO output mask and active configuration.
	stateMu       sync.Mutex
	portBits      uint16
	configuration Configuration

	paused   atomic.Bool
	sending  atomic.Bool
	aborting atomic.Bool

	// Spooler state, guarded by spoolMu/cond.
	spoolMu      sync.Mutex
	cond         *sync.Cond
	queue        []*Job
	current      *Job
	shutdownFlag bool
	workerDone   chan struct{}

	// Connection state
	isConnecting   atomic.Bool
	abortOpen      atomic.Bool
	disableConnect atomic.Bool

	// Poll intervals, overridable in tests.
	retryDelay   time.Duration
	pollInterval time.Duration
	pausePoll    time.Duration
	inputPoll    time.Duration
}

// NewController creates a controller for the given configuration. The
// transport is constructed lazily on first use: a USB connection, or a
// mock when cfg.Mock is set.
func NewController(cfg *Config) *Controller {
	return NewControllerWithConnection(cfg, nil)
}

// NewControllerWithConnection creates a controller bound to an explicit
// transport. Tests use this with a connection.Mock to capture traffic.
func NewControllerWithConnection(cfg *Config, conn connection.Connection) *Controller {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := &Controller{
		cfg:           cfg,
		log:           logrus.WithField("component", "galvo"),
		conn:          conn,
		lastX:         cfg.X,
		lastY:         cfg.Y,
		configuration: ConfigurationInitial,
		retryDelay:    connectInterval,
		pollInterval:  statusInterval,
		pausePoll:     pauseInterval,
		inputPoll:     inputInterval,
	}
	c.cond = sync.NewCond(&c.spoolMu)
	c.sending.Store(true)
	return c
}

// Config returns the controller's configuration. Mutating it between
// jobs changes the defaults the next Set() draws from.
func (c *Controller) Config() *Config {
	return c.cfg
}

// SetLogger replaces the controller's log entry.
func (c *Controller) SetLogger(log *logrus.Entry) {
	if log != nil {
		c.log = log
	}
}

// LastXY returns the most recently emitted pen destination.
func (c *Controller) LastXY() (int, int) {
	c.listMu.Lock()
	defer c.listMu.Unlock()
	return c.lastX, c.lastY
}

// State reports a coarse machine state pair (state, detail).
func (c *Controller) State() (string, string) {
	if c.CurrentConfiguration() == ConfigurationInitial {
		return "idle", "idle"
	}
	if c.paused.Load() {
		return "hold", "paused"
	}
	if c.CurrentConfiguration() == ConfigurationLighting {
		return "busy", "lighting"
	}
	return "busy", "marking"
}

// CurrentConfiguration returns the active laser configuration.
func (c *Controller) CurrentConfiguration() Configuration {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.configuration
}

func (c *Controller) setConfiguration(cfg Configuration) {
	c.stateMu.Lock()
	c.configuration = cfg
	c.stateMu.Unlock()
}

// Paused reports whether list execution is paused.
func (c *Controller) Paused() bool {
	return c.paused.Load()
}

//
// Connection handling
//

// IsConnected reports whether the transport currently holds the board.
func (c *Controller) IsConnected() bool {
	if c.conn == nil {
		return false
	}
	return c.conn.IsOpen(c.cfg.MachineIndex)
}

// IsConnecting reports whether a connect loop is in flight.
func (c *Controller) IsConnecting() bool {
	if c.conn == nil {
		return false
	}
	return c.isConnecting.Load()
}

// IsConnectionAllowed reports whether implicit connects may be attempted.
// Cleared only by an explicit Disconnect after exhausted retries latched
// connects off.
func (c *Controller) IsConnectionAllowed() bool {
	return !c.disableConnect.Load()
}

// AbortConnect interrupts an in-flight connect loop.
func (c *Controller) AbortConnect() {
	c.abortOpen.Store(true)
	c.log.Info("connect attempts aborted")
}

// Disconnect closes the transport and clears the connect-disable latch so
// that an explicit reconnect may be attempted.
func (c *Controller) Disconnect() {
	if c.conn != nil {
		if err := c.conn.Close(c.cfg.MachineIndex); err != nil {
			c.log.WithError(err).Debug("close failed")
		}
	}
	c.conn = nil
	c.disableConnect.Store(false)
}

// connectIfNeeded lazily opens the transport, retrying up to the attempt
// limit. Exhausting the retries latches automatic connects off until
// Disconnect is called.
func (c *Controller) connectIfNeeded() error {
	if c.disableConnect.Load() {
		c.AbortConnect()
		c.conn = nil
		return fmt.Errorf("LMC was unreachable, explicit connect required: %w", connection.ErrRefused)
	}
	if c.conn == nil {
		if c.cfg.Mock {
			c.conn = connection.NewMock(c.log)
		} else {
			c.conn = connection.NewUSB(c.log)
		}
	}
	if c.conn.IsOpen(c.cfg.MachineIndex) {
		return nil
	}
	c.isConnecting.Store(true)
	c.abortOpen.Store(false)
	count := 0
	for !c.conn.IsOpen(c.cfg.MachineIndex) {
		index, err := c.conn.Open(c.cfg.MachineIndex)
		if err == nil && index < 0 {
			err = connection.ErrRefused
		}
		if err == nil {
			err = c.initLaser()
		}
		if err == nil {
			break
		}
		if errors.Is(err, connection.ErrUnreachable) {
			c.isConnecting.Store(false)
			return err
		}
		c.log.WithError(err).Debug("connect attempt failed")
		time.Sleep(c.retryDelay)
		count++
		if !c.sending.Load() || c.abortOpen.Load() {
			c.isConnecting.Store(false)
			c.abortOpen.Store(false)
			return nil
		}
		if c.conn.IsOpen(c.cfg.MachineIndex) {
			c.conn.Close(c.cfg.MachineIndex)
		}
		if count >= connectAttempts {
			c.isConnecting.Store(false)
			c.disableConnect.Store(true)
			c.log.Error("could not connect to the LMC controller")
			c.log.Error("automatic connections disabled")
			return fmt.Errorf("could not connect to the LMC controller: %w", connection.ErrRefused)
		}
	}
	c.isConnecting.Store(false)
	c.abortOpen.Store(false)
	return nil
}

// send transmits raw bytes, optionally reading the 8-byte reply. I/O
// failures degrade to the error reply; only connect-level errors
// propagate so jobs can distinguish refused from unreachable transports.
func (c *Controller) send(data []byte, read bool) (protocol.Reply, error) {
	if !c.sending.Load() {
		return protocol.ErrorReply, nil
	}
	if err := c.connectIfNeeded(); err != nil {
		return protocol.ErrorReply, err
	}
	if err := c.conn.Write(c.cfg.MachineIndex, data); err != nil {
		if errors.Is(err, connection.ErrUnreachable) {
			return protocol.ErrorReply, err
		}
		c.log.WithError(err).Debug("write failed")
		return protocol.ErrorReply, nil
	}
	if !read {
		return protocol.Reply{}, nil
	}
	raw, err := c.conn.Read(c.cfg.MachineIndex)
	if err != nil {
		if errors.Is(err, connection.ErrUnreachable) {
			return protocol.ErrorReply, err
		}
		c.log.WithError(err).Debug("read failed")
		return protocol.ErrorReply, nil
	}
	return protocol.ParseReply(raw), nil
}

// command sends one realtime command word and reads its reply.
func (c *Controller) command(op uint16, values ...uint16) (protocol.Reply, error) {
	return c.send(protocol.NewCommand(op, values...).Bytes(), true)
}

// commandNoRead sends one realtime command word without reading a reply.
func (c *Controller) commandNoRead(op uint16, values ...uint16) error {
	_, err := c.send(protocol.NewCommand(op, values...).Bytes(), false)
	return err
}

//
// Status polling
//

// Status returns the status word from a GetVersion query.
func (c *Controller) Status() (uint16, error) {
	reply, err := c.GetVersion()
	return reply.Status(), err
}

// IsBusy reports the BUSY status flag.
func (c *Controller) IsBusy() (bool, error) {
	status, err := c.Status()
	return status&protocol.StatusBusy != 0, err
}

// IsReady reports the READY status flag.
func (c *Controller) IsReady() (bool, error) {
	status, err := c.Status()
	return status&protocol.StatusReady != 0, err
}

// IsReadyAndNotBusy reports READY with BUSY clear.
func (c *Controller) IsReadyAndNotBusy() (bool, error) {
	status, err := c.Status()
	return status&protocol.StatusReady != 0 && status&protocol.StatusBusy == 0, err
}

// WaitReady polls until the controller reports READY.
func (c *Controller) WaitReady() error {
	for {
		ready, err := c.IsReady()
		if err != nil {
			return err
		}
		if ready {
			return nil
		}
		time.Sleep(c.pollInterval)
		if !c.sending.Load() {
			return nil
		}
	}
}

// WaitFinished polls until the controller reports READY with BUSY clear.
func (c *Controller) WaitFinished() error {
	for {
		done, err := c.IsReadyAndNotBusy()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		time.Sleep(c.pollInterval)
		if !c.sending.Load() {
			return nil
		}
	}
}

// WaitIdle polls until the BUSY flag clears.
func (c *Controller) WaitIdle() error {
	for {
		busy, err := c.IsBusy()
		if err != nil {
			return err
		}
		if !busy {
			return nil
		}
		time.Sleep(c.pollInterval)
		if !c.sending.Load() {
			return nil
		}
	}
}

//
// Board initialization
//

// initLaser runs the fixed bring-up sequence the board requires after an
// open: identity queries, reset, correction table, laser and timing
// modes, first-pulse-killer and fly parameters.
func (c *Controller) initLaser() error {
	c.log.Info("initializing laser")
	serial, err := c.GetSerialNumber()
	if err != nil {
		return err
	}
	c.log.WithField("serial", serial).Info("serial number")
	version, err := c.GetVersion()
	if err != nil {
		return err
	}
	c.log.WithField("version", version).Info("version")

	steps := []func() error{
		func() error { _, err := c.Reset(); return err },
		func() error { return c.writeCorrectionFile(c.cfg.CorFile) },
		func() error { _, err := c.EnableLaser(); return err },
		func() error { _, err := c.SetControlMode(c.cfg.ControlMode); return err },
		func() error { _, err := c.SetLaserMode(c.cfg.LaserMode); return err },
		func() error { _, err := c.SetDelayMode(c.cfg.DelayMode); return err },
		func() error { _, err := c.SetTiming(c.cfg.TimingMode); return err },
		func() error { _, err := c.SetStandby(c.cfg.StandbyParam1, c.cfg.StandbyParam2); return err },
		func() error { _, err := c.SetFirstPulseKiller(c.cfg.FirstPulseKiller); return err },
		func() error { _, err := c.SetPwmHalfPeriod(c.cfg.PwmHalfPeriod); return err },
		func() error { _, err := c.SetPwmPulseWidth(c.cfg.PwmPulseWidth); return err },
		func() error { _, err := c.SetFiberMo(0); return err },
		func() error {
			_, err := c.SetFpkParam2(c.cfg.FpkMaxVoltage, c.cfg.FpkMinVoltage, c.cfg.FpkT1, c.cfg.FpkT2)
			return err
		},
		func() error {
			_, err := c.SetFlyRes(c.cfg.FlyResolution1, c.cfg.FlyResolution2, c.cfg.FlyResolution3, c.cfg.FlyResolution4)
			return err
		},
		func() error { _, err := c.EnableZ(); return err },
		func() error { _, err := c.WriteAnalogPort1(0x7FF); return err },
		func() error { _, err := c.EnableZ(); return err },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	time.Sleep(50 * time.Millisecond)
	c.log.Info("laser ready")
	return nil
}
