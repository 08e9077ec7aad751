package buzzer

import "context"

// Pattern starts playing pulses as a sequence of bursts with delay ms of
// silence between them, looping forever when repeat is set. Whatever burst
// or pattern was playing before is stopped unconditionally and burst 0
// starts on the next Update call. An empty list or a disabled pin leaves
// all state untouched.
//
// The slice is not copied, it must stay valid until the pattern ends.
func (c *Controller) Pattern(pulses []Pulse, repeat bool, delay uint16) {
	if c.cfg.Pin == DisabledPin || len(pulses) == 0 {
		return
	}
	c.pattern = pattern{
		pulses: pulses,
		active: true,
		repeat: repeat,
		delay:  delay,
	}
	c.startBurst(pulses[0])
}

// IsPatternActive reports whether a pattern is playing, waiting between
// bursts included.
func (c *Controller) IsPatternActive() bool {
	return c.pattern.active
}

// StopPattern abandons the pattern and its current burst together.
func (c *Controller) StopPattern() {
	c.pattern.active = false
	c.pulse.active = false
}

// PatternBlocking plays a pattern synchronously, pumping Update until both
// the pattern and its burst deactivate. With repeat set it only returns on
// ctx cancellation; cancelling stops the pattern and returns the context
// error.
func (c *Controller) PatternBlocking(ctx context.Context, pulses []Pulse, repeat bool, delay uint16) error {
	c.Pattern(pulses, repeat, delay)
	for c.pattern.active || c.pulse.active {
		if err := ctx.Err(); err != nil {
			c.StopPattern()
			return err
		}
		c.Update()
	}
	return nil
}

// startBurst loads one burst definition into the runtime pulse record.
func (c *Controller) startBurst(p Pulse) {
	c.pulse = Pulse{
		Count:     p.Count,
		Frequency: p.Frequency,
		Duration:  p.Duration,
		Interval:  p.Interval,
		active:    true,
	}
}

// advancePattern moves the pattern to its next burst, wrapping to burst 0
// when repeating, deactivating when done. Reports whether a burst was
// started.
func (c *Controller) advancePattern() bool {
	if !c.pattern.active || len(c.pattern.pulses) == 0 {
		c.pattern.active = false
		return false
	}

	c.pattern.current++
	if c.pattern.current >= len(c.pattern.pulses) {
		if !c.pattern.repeat {
			c.pattern.active = false
			return false
		}
		c.pattern.current = 0
	}
	c.startBurst(c.pattern.pulses[c.pattern.current])
	return true
}

// tickPattern checks the inter-burst delay. The finished burst's final beep
// was still sounding when the wait started, so expiry is measured from that
// mark as tail+delay, all unsigned math so clock wraparound is harmless.
func (c *Controller) tickPattern(now uint32) {
	if c.pattern.waiting {
		if now-c.pattern.doneAt >= uint32(c.pattern.tail)+uint32(c.pattern.delay) {
			c.pattern.waiting = false
			c.advancePattern()
		}
		return
	}

	// active but neither bursting nor waiting should not happen, some
	// outside call tore the burst away; advance instead of hanging forever
	if !c.pulse.active {
		c.advancePattern()
	}
}
