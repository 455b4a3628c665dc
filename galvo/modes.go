package galvo

// Mode machine. The controller is always in one of three configurations;
// each transition emits a fixed interleaving of realtime and list
// commands. All transitions are idempotent.

// InitialConfiguration closes out the running list program and returns
// the board to its idle state.
func (c *Controller) InitialConfiguration() error {
	if c.CurrentConfiguration() == ConfigurationInitial {
		return nil
	}
	// Ensure at least one terminator, then flush.
	if err := c.ListEndOfList(); err != nil {
		return err
	}
	if err := c.listEnd(); err != nil {
		return err
	}
	c.listMu.Lock()
	executing, packets := c.listExecuting, c.listPackets
	if !executing && packets > 0 {
		// The list was queued but never ran.
		if _, err := c.ExecuteList(); err != nil {
			c.listMu.Unlock()
			return err
		}
	}
	c.listExecuting = false
	c.listPackets = 0
	c.listMu.Unlock()
	if err := c.WaitIdle(); err != nil {
		return err
	}
	if _, err := c.SetFiberMo(0); err != nil {
		return err
	}
	c.PortOff(c.cfg.LaserPin)
	if _, err := c.WritePort(); err != nil {
		return err
	}
	markTime, err := c.GetMarkTime()
	if err != nil {
		return err
	}
	c.log.WithField("mark_time", markTime).Info("list execution finished")
	c.setConfiguration(ConfigurationInitial)
	return nil
}

// MarkingConfiguration arms the laser for marking: MO open, laser pin
// set, and a fresh list program primed with the current parameters.
func (c *Controller) MarkingConfiguration() error {
	switch c.CurrentConfiguration() {
	case ConfigurationMarking:
		return nil
	case ConfigurationLighting:
		c.setConfiguration(ConfigurationMarking)
		c.LightOff()
		c.PortOn(c.cfg.LaserPin)
		if _, err := c.WritePort(); err != nil {
			return err
		}
		if _, err := c.SetFiberMo(1); err != nil {
			return err
		}
	default:
		c.setConfiguration(ConfigurationMarking)
		if _, err := c.ResetList(); err != nil {
			return err
		}
		c.PortOn(c.cfg.LaserPin)
		if _, err := c.WritePort(); err != nil {
			return err
		}
		if _, err := c.SetFiberMo(1); err != nil {
			return err
		}
		c.invalidateCache()
		if err := c.ListReady(); err != nil {
			return err
		}
		if c.cfg.DelayOpenMO > 0 {
			if err := c.ListDelayTime(uint16(c.cfg.DelayOpenMO * 100)); err != nil {
				return err
			}
		}
		if err := c.ListWritePort(); err != nil {
			return err
		}
	}
	return c.Set()
}

// LightingConfiguration switches to the low-power guide beam: MO closed,
// laser pin clear, light pin set.
func (c *Controller) LightingConfiguration() error {
	switch c.CurrentConfiguration() {
	case ConfigurationLighting:
		return nil
	case ConfigurationMarking:
		if _, err := c.SetFiberMo(0); err != nil {
			return err
		}
		c.PortOff(c.cfg.LaserPin)
		c.PortOn(c.cfg.LightPin)
		if _, err := c.WritePort(); err != nil {
			return err
		}
	default:
		c.invalidateCache()
		if _, err := c.ResetList(); err != nil {
			return err
		}
		if err := c.ListReady(); err != nil {
			return err
		}
		c.PortOff(c.cfg.LaserPin)
		c.PortOn(c.cfg.LightPin)
		if err := c.ListWritePort(); err != nil {
			return err
		}
	}
	c.setConfiguration(ConfigurationLighting)
	return nil
}

// Marking runs fn in the marking configuration and restores the initial
// configuration on every exit path.
func (c *Controller) Marking(fn func(*Controller) error) (err error) {
	if err = c.MarkingConfiguration(); err != nil {
		return err
	}
	defer func() {
		if rerr := c.InitialConfiguration(); rerr != nil && err == nil {
			err = rerr
		}
	}()
	return fn(c)
}

// Lighting runs fn in the lighting configuration and restores the initial
// configuration on every exit path.
func (c *Controller) Lighting(fn func(*Controller) error) (err error) {
	if err = c.LightingConfiguration(); err != nil {
		return err
	}
	defer func() {
		if rerr := c.InitialConfiguration(); rerr != nil && err == nil {
			err = rerr
		}
	}()
	return fn(c)
}
