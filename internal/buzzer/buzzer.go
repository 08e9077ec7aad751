// buzzer schedules beeps, pulse bursts, burst patterns and melodies on a
// piezzo buzzer without blocking the caller. Nothing here sleeps: the caller
// runs its own loop and calls Controller.Update on every iteration, the
// controller advances whatever is playing based on a millisecond clock.
package buzzer

import (
	"time"

	"github.com/juju/loggo"
)

var logger = loggo.GetLogger("buzzer.core")

// DisabledPin is the sentinel pin meaning "no buzzer attached".
// With it set every playback request is a no-op.
const DisabledPin uint8 = 255

// Default ack/err tone parameters, overridable through Config.
const (
	DefaultAckFrequency uint16 = 800
	DefaultAckDuration  uint16 = 30
	DefaultErrFrequency uint16 = 1000
	DefaultErrDuration  uint16 = 300
	DefaultRest         uint16 = 50
)

// Flag adjusts the behavior of Setup and SetConfig.
type Flag uint8

const (
	FlagNone   Flag = 0x00
	FlagBeep   Flag = 0x01 // play a short ack pulse burst after setup
	FlagForce  Flag = 0x08 // re-initialize even if the pin is unchanged
	FlagSilent Flag = 0x80 // suppress config logging
)

// Output emits tones on a physical channel. Tone is fire-and-forget: the
// channel stops on its own durr milliseconds later without further calls.
// NoTone forces immediate silence. Implementations live in internal/tone.
type Output interface {
	Tone(pin uint8, freq, durr uint16)
	NoTone(pin uint8)
}

// Tone is a single melody step: play Frequency for Duration, then stay
// silent for Rest. Frequency 0 makes the whole step a timed rest.
type Tone struct {
	Frequency uint16
	Duration  uint16
	Rest      uint16
}

// Pulse describes one burst: Count beeps of Frequency/Duration separated by
// Interval. The same struct doubles as the runtime record of the burst that
// is currently playing; the unexported fields only matter there.
type Pulse struct {
	Count     uint8
	Frequency uint16
	Duration  uint16
	Interval  uint16

	last   uint32 // tick of the last emission, 0 = not started yet
	active bool
}

// Config is the process-wide buzzer configuration. It is replaced wholesale
// by SetConfig, never patched field by field.
type Config struct {
	Pin uint8
	Ack Tone
	Err Tone
}

// DefaultConfig returns the disabled-pin configuration with the stock ack
// and err tones.
func DefaultConfig() Config {
	return Config{
		Pin: DisabledPin,
		Ack: Tone{Frequency: DefaultAckFrequency, Duration: DefaultAckDuration, Rest: DefaultRest},
		Err: Tone{Frequency: DefaultErrFrequency, Duration: DefaultErrDuration, Rest: DefaultRest},
	}
}

type pattern struct {
	pulses  []Pulse
	current int
	active  bool
	repeat  bool
	delay   uint16 // silence between bursts
	doneAt  uint32 // tick the finished burst was observed complete
	tail    uint16 // duration of the burst's final beep, still sounding at doneAt
	waiting bool   // waiting out tail+delay before advancing
}

type melody struct {
	tones       []Tone
	current     int
	active      bool
	repeat      bool
	toneStart   uint32 // tick the current tone started, 0 = not started yet
	playingTone bool   // true while sounding, false while resting
}

// Controller owns the single buzzer channel and the three playback records
// (one burst, one pattern, one melody). It is strictly single-threaded:
// every method, Update included, must be called from the same goroutine.
//
// Pattern and melody playback keep referencing the slices handed to them,
// the caller must keep those alive and unchanged until playback ends.
type Controller struct {
	out Output
	now func() uint32

	cfg     Config
	pulse   Pulse
	pattern pattern
	melody  melody
}

// New returns an inert controller on out with the disabled-pin default
// config. Call Setup or SetConfig to attach a pin.
func New(out Output) *Controller {
	return &Controller{
		out: out,
		now: millis(),
		cfg: DefaultConfig(),
	}
}

// NewWithClock is New with a caller-supplied millisecond clock, so tests can
// step time by hand. The clock must be monotonic modulo uint32 wraparound and
// must never return 0, 0 is the "not started yet" sentinel in the runtime
// records.
func NewWithClock(out Output, now func() uint32) *Controller {
	c := New(out)
	c.now = now
	return c
}

// millis returns a monotonic millisecond clock starting at 1.
func millis() func() uint32 {
	start := time.Now()
	return func() uint32 {
		return uint32(time.Since(start)/time.Millisecond) + 1
	}
}

// Setup installs cfg. Setting up DisabledPin while a pin is attached tears
// everything down: the channel is silenced, all three players and the config
// are reset, and Setup reports false. Re-setup with an unchanged pin is a
// no-op unless FlagForce is set.
func (c *Controller) Setup(cfg Config, flags Flag) bool {
	if cfg.Pin == DisabledPin && c.cfg.Pin != DisabledPin {
		c.out.NoTone(c.cfg.Pin)
		c.cfg = DefaultConfig()
		c.pulse = Pulse{}
		c.pattern = pattern{}
		c.melody = melody{}
		return false
	}

	if cfg.Pin == c.cfg.Pin && flags&FlagForce == 0 {
		if flags&FlagSilent == 0 {
			logger.Debugf("buzzer pin already initialized")
		}
		return true
	}

	c.cfg = cfg
	if flags&FlagSilent == 0 {
		c.LogConfig("")
	}
	if flags&FlagBeep != 0 {
		c.Pulse(3, c.cfg.Ack.Frequency, c.cfg.Ack.Duration, c.cfg.Ack.Rest)
		for c.pulse.active {
			c.Update()
		}
	}
	return true
}

// SetupPin is Setup with just a pin and the stock tones.
func (c *Controller) SetupPin(pin uint8, flags Flag) bool {
	cfg := DefaultConfig()
	cfg.Pin = pin
	return c.Setup(cfg, flags)
}

// GetConfig returns the current configuration.
func (c *Controller) GetConfig() Config {
	return c.cfg
}

// SetConfig replaces the configuration wholesale and returns it.
func (c *Controller) SetConfig(cfg Config, flags Flag) Config {
	c.cfg = cfg
	if flags&FlagSilent == 0 {
		c.LogConfig("")
	}
	return c.cfg
}

// LogConfig logs the current configuration, prefixed with message if given.
func (c *Controller) LogConfig(message string) {
	if message != "" {
		message += " "
	}
	logger.Infof("%spin: %d  ack: %dHz/%dms/%dms  err: %dHz/%dms/%dms",
		message, c.cfg.Pin,
		c.cfg.Ack.Frequency, c.cfg.Ack.Duration, c.cfg.Ack.Rest,
		c.cfg.Err.Frequency, c.cfg.Err.Duration, c.cfg.Err.Rest,
	)
}

// Beep emits a single fire-and-forget tone, bypassing all playback state.
func (c *Controller) Beep(freq, durr uint16) {
	if c.cfg.Pin == DisabledPin {
		return
	}
	c.out.Tone(c.cfg.Pin, freq, durr)
}

// SuccessBeep plays the configured ack tone.
func (c *Controller) SuccessBeep() {
	c.Beep(c.cfg.Ack.Frequency, c.cfg.Ack.Duration)
}

// FailBeep starts a short err-tone pulse burst.
func (c *Controller) FailBeep() {
	c.Pulse(3, c.cfg.Err.Frequency, c.cfg.Err.Duration, c.cfg.Err.Rest)
}
