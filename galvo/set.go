package galvo

import "github.com/meerk40t/galvoplotter/protocol"

// Parameter cache. Every setter transmits only when the requested value
// differs from the last value actually sent; mode transitions invalidate
// the cache so the next set() resends everything.

type paramCache struct {
	travelSpeed *float64
	markSpeed   *float64
	power       *float64
	frequency   *float64
	pulseWidth  *float64
	fpk         *float64
	delayJump   *float64
	delayOn     *float64
	delayOff    *float64
	delayPoly   *float64
	delayEnd    *float64
}

func cacheHit(slot *float64, v float64) bool {
	return slot != nil && *slot == v
}

func cacheValue(v float64) *float64 {
	return &v
}

func (c *Controller) invalidateCache() {
	c.listMu.Lock()
	c.cache = paramCache{}
	c.listMu.Unlock()
}

// Params carries optional overrides for Set. Nil fields fall back to the
// controller configuration.
type Params struct {
	MarkSpeed    *float64
	TravelSpeed  *float64
	Power        *float64
	Frequency    *float64
	PulseWidth   *float64
	FPK          *float64
	DelayOn      *float64
	DelayOff     *float64
	DelayPolygon *float64
}

func fallback(v *float64, def float64) float64 {
	if v != nil {
		return *v
	}
	return def
}

// Set emits the laser parameter words from the controller configuration,
// through the cache.
func (c *Controller) Set() error {
	return c.SetParams(Params{})
}

// SetParams emits the laser parameter words, overriding configuration
// defaults with any non-nil fields.
func (c *Controller) SetParams(p Params) error {
	markSpeed := fallback(p.MarkSpeed, c.cfg.MarkSpeed)
	travelSpeed := fallback(p.TravelSpeed, c.cfg.TravelSpeed)
	power := fallback(p.Power, c.cfg.Power)
	frequency := fallback(p.Frequency, c.cfg.Frequency)
	fpk := fallback(p.FPK, c.cfg.FPK)
	delayOn := fallback(p.DelayOn, c.cfg.DelayLaserOn)
	delayOff := fallback(p.DelayOff, c.cfg.DelayLaserOff)
	delayPolygon := fallback(p.DelayPolygon, c.cfg.DelayPolygon)

	pulseWidth := p.PulseWidth
	if pulseWidth == nil {
		pulseWidth = c.cfg.PulseWidth
	}
	if pulseWidth != nil {
		if err := c.SetPulseWidth(*pulseWidth); err != nil {
			return err
		}
	}
	if err := c.SetTravelSpeed(travelSpeed); err != nil {
		return err
	}
	if err := c.setPowerForFrequency(power, frequency); err != nil {
		return err
	}
	if err := c.SetFrequency(frequency); err != nil {
		return err
	}
	if err := c.setFPKForFrequency(fpk, frequency); err != nil {
		return err
	}
	if err := c.SetMarkSpeed(markSpeed); err != nil {
		return err
	}
	if err := c.SetDelayOn(delayOn); err != nil {
		return err
	}
	if err := c.SetDelayOff(delayOff); err != nil {
		return err
	}
	return c.SetDelayPolygon(delayPolygon)
}

// SetTravelSpeed sets the laser-off travel speed in mm/s. A zero speed is
// ignored.
func (c *Controller) SetTravelSpeed(speed float64) error {
	if cacheHit(c.cache.travelSpeed, speed) || speed == 0 {
		return nil
	}
	if err := c.ListJumpSpeed(protocol.SpeedToGalvo(speed, c.cfg.GalvosPerMM)); err != nil {
		return err
	}
	c.cache.travelSpeed = cacheValue(speed)
	return nil
}

// SetMarkSpeed sets the marking speed in mm/s.
func (c *Controller) SetMarkSpeed(speed float64) error {
	if cacheHit(c.cache.markSpeed, speed) {
		return nil
	}
	c.cache.markSpeed = cacheValue(speed)
	return c.ListMarkSpeed(protocol.SpeedToGalvo(speed, c.cfg.GalvosPerMM))
}

// SetDelayOn sets the laser-on delay in microseconds.
func (c *Controller) SetDelayOn(delay float64) error {
	if cacheHit(c.cache.delayOn, delay) {
		return nil
	}
	c.cache.delayOn = cacheValue(delay)
	return c.ListLaserOnDelay(delay)
}

// SetDelayOff sets the laser-off delay in microseconds.
func (c *Controller) SetDelayOff(delay float64) error {
	if cacheHit(c.cache.delayOff, delay) {
		return nil
	}
	c.cache.delayOff = cacheValue(delay)
	return c.ListLaserOffDelay(delay)
}

// SetDelayPolygon sets the polygon corner delay in microseconds.
func (c *Controller) SetDelayPolygon(delay float64) error {
	if cacheHit(c.cache.delayPoly, delay) {
		return nil
	}
	c.cache.delayPoly = cacheValue(delay)
	return c.ListPolygonDelay(delay)
}

// SetDelayJump sets the jump settle delay in microseconds.
func (c *Controller) SetDelayJump(delay float64) error {
	if cacheHit(c.cache.delayJump, delay) {
		return nil
	}
	c.cache.delayJump = cacheValue(delay)
	return c.ListJumpDelay(delay)
}

// SetPower sets the laser power in percent.
func (c *Controller) SetPower(power float64) error {
	return c.setPowerForFrequency(power, c.effectiveFrequency())
}

func (c *Controller) setPowerForFrequency(power, frequency float64) error {
	if cacheHit(c.cache.power, power) {
		return nil
	}
	c.cache.power = cacheValue(power)
	if c.cfg.Source == SourceCO2 {
		return c.ListMarkPowerRatio(protocol.PercentOfCO2Period(power, frequency))
	}
	return c.ListMarkCurrent(protocol.PowerToRatio(power))
}

// SetFrequency sets the pulse frequency in kHz.
func (c *Controller) SetFrequency(frequency float64) error {
	if cacheHit(c.cache.frequency, frequency) {
		return nil
	}
	c.cache.frequency = cacheValue(frequency)
	if c.cfg.Source == SourceCO2 {
		return c.ListMarkFrequency(protocol.FreqToCO2Period(frequency))
	}
	return c.ListQSwitchPeriod(protocol.FreqToQSwitchPeriod(frequency))
}

// SetFPK sets the CO2 first-pulse-killer length in percent of the pulse
// period. No-op on fiber sources.
func (c *Controller) SetFPK(fpk float64) error {
	return c.setFPKForFrequency(fpk, c.effectiveFrequency())
}

func (c *Controller) setFPKForFrequency(fpk, frequency float64) error {
	if c.cfg.Source != SourceCO2 {
		return nil
	}
	if cacheHit(c.cache.fpk, fpk) {
		return nil
	}
	c.cache.fpk = cacheValue(fpk)
	return c.ListSetCo2FPK(protocol.PercentOfCO2Period(fpk, frequency))
}

// SetPulseWidth sets the fiber YLPM pulse width. No-op on CO2 sources.
func (c *Controller) SetPulseWidth(pulseWidth float64) error {
	if c.cfg.Source == SourceCO2 {
		return nil
	}
	if cacheHit(c.cache.pulseWidth, pulseWidth) {
		return nil
	}
	c.cache.pulseWidth = cacheValue(pulseWidth)
	return c.ListFiberYLPMPulseWidth(uint16(pulseWidth))
}

func (c *Controller) effectiveFrequency() float64 {
	if c.cache.frequency != nil {
		return *c.cache.frequency
	}
	return c.cfg.Frequency
}
