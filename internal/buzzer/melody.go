package buzzer

import (
	"context"
	"time"
)

// Melody starts playing tones in order, looping forever when repeat is set.
// A melody already playing is stopped (and the channel silenced) first.
// Melodies run at lower priority than bursts and patterns: playback pauses
// while either is active and resumes from the exact same tone and phase
// afterwards. An empty list or a disabled pin leaves all state untouched.
//
// The slice is not copied, it must stay valid until the melody ends.
func (c *Controller) Melody(tones []Tone, repeat bool) {
	if c.cfg.Pin == DisabledPin || len(tones) == 0 {
		return
	}
	c.StopMelody()
	c.melody = melody{
		tones:  tones,
		active: true,
		repeat: repeat,
	}
}

// IsMelodyActive reports whether a melody is playing, paused by a burst or
// pattern included.
func (c *Controller) IsMelodyActive() bool {
	return c.melody.active
}

// StopMelody abandons the melody and silences the channel immediately.
func (c *Controller) StopMelody() {
	c.melody.active = false
	if c.cfg.Pin != DisabledPin {
		c.out.NoTone(c.cfg.Pin)
	}
}

// MelodyBlocking plays tones synchronously, pumping Update with a 1ms sleep
// per iteration until the melody deactivates. Cancelling ctx stops the
// melody and returns the context error.
func (c *Controller) MelodyBlocking(ctx context.Context, tones []Tone) error {
	c.Melody(tones, false)
	for c.melody.active {
		if err := ctx.Err(); err != nil {
			c.StopMelody()
			return err
		}
		c.Update()
		time.Sleep(time.Millisecond)
	}
	return nil
}

// tickMelody advances the melody by one tick and reports whether a tone
// started sounding. Each tone runs through three phases: start (emit unless
// it is a frequency-0 rest), sounding until Duration elapsed, then resting
// until Duration+Rest elapsed.
func (c *Controller) tickMelody(now uint32) bool {
	if c.melody.current >= len(c.melody.tones) {
		if c.melody.repeat {
			c.melody.current = 0
			c.melody.toneStart = 0
			c.melody.playingTone = false
		} else {
			c.melody.active = false
		}
		return false
	}

	t := &c.melody.tones[c.melody.current]
	switch {
	case c.melody.toneStart == 0:
		c.melody.toneStart = now
		c.melody.playingTone = true
		if t.Frequency > 0 {
			c.out.Tone(c.cfg.Pin, t.Frequency, t.Duration)
			return true
		}

	case c.melody.playingTone:
		if now-c.melody.toneStart >= uint32(t.Duration) {
			c.melody.playingTone = false
			c.out.NoTone(c.cfg.Pin)
		}

	default: // resting
		if now-c.melody.toneStart >= uint32(t.Duration)+uint32(t.Rest) {
			c.melody.current++
			c.melody.toneStart = 0
		}
	}
	return false
}
