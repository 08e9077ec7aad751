package buzzer

// Update is the per-tick entry point, call it on every iteration of the
// control loop. It advances whatever is playing and reports whether a new
// tone started sounding during this exact call. The order is fixed and is
// the priority order: an active burst always runs first and nothing else
// runs that tick; then pattern bookkeeping; the melody only moves when
// neither a burst nor a pattern holds the channel.
func (c *Controller) Update() bool {
	if c.pulse.active && c.cfg.Pin != DisabledPin {
		return c.tickPulse(c.now())
	}

	if c.pattern.active {
		c.tickPattern(c.now())
	}

	if c.melody.active && c.cfg.Pin != DisabledPin && !c.pulse.active && !c.pattern.active {
		return c.tickMelody(c.now())
	}
	return false
}
