package buzzer

import "context"

// Pulse starts a burst of count beeps at freq, each durr ms long with
// interval ms of silence in between. The first beep sounds on the next
// Update call. Any burst already playing is replaced. count 0 or a disabled
// pin leaves all state untouched.
func (c *Controller) Pulse(count uint8, freq, durr, interval uint16) {
	if c.cfg.Pin == DisabledPin || count == 0 {
		return
	}
	c.pulse = Pulse{
		Count:     count,
		Frequency: freq,
		Duration:  durr,
		Interval:  interval,
		active:    true,
	}
}

// IsPulseActive reports whether a burst is playing.
func (c *Controller) IsPulseActive() bool {
	return c.pulse.active
}

// StopPulse abandons the current burst. A beep already sounding is not cut
// short, the channel releases it on its own.
func (c *Controller) StopPulse() {
	c.pulse.active = false
}

// PulseBlocking plays a burst synchronously, pumping Update until the burst
// deactivates. Cancelling ctx stops the burst and returns the context error.
func (c *Controller) PulseBlocking(ctx context.Context, count uint8, freq, durr, interval uint16) error {
	c.Pulse(count, freq, durr, interval)
	for c.pulse.active {
		if err := ctx.Err(); err != nil {
			c.StopPulse()
			return err
		}
		c.Update()
	}
	return nil
}

// tickPulse advances the active burst by one tick and reports whether a beep
// was emitted. A Duration of 0 still counts as an emitted beep, the cycle
// then degenerates to the interval alone.
func (c *Controller) tickPulse(now uint32) bool {
	if c.pulse.Count > 0 {
		if c.pulse.last == 0 || now-c.pulse.last >= uint32(c.pulse.Interval)+uint32(c.pulse.Duration) {
			c.out.Tone(c.cfg.Pin, c.pulse.Frequency, c.pulse.Duration)
			c.pulse.last = now
			c.pulse.Count--
			return true
		}
		return false
	}

	c.pulse.active = false
	if c.pattern.active {
		// the final beep is still sounding for Duration ms, the pattern
		// waits that out on top of its own inter-burst delay
		c.pattern.doneAt = now
		c.pattern.tail = c.pulse.Duration
		c.pattern.waiting = true
	}
	return false
}
