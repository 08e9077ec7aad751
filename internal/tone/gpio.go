package tone

import (
	"strconv"
	"sync"
	"time"

	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/host"
)

// GPIO drives the buzzer through a periph.io pin's hardware PWM, for boards
// where the pwmchip sysfs interface is not usable. Safe for concurrent use.
type GPIO struct {
	mu     sync.Mutex
	pins   map[uint8]gpio.PinIO
	timers map[uint8]*time.Timer
}

func NewGPIO() (*GPIO, error) {
	if _, err := host.Init(); err != nil {
		return nil, err
	}

	return &GPIO{
		pins:   map[uint8]gpio.PinIO{},
		timers: map[uint8]*time.Timer{},
	}, nil
}

func (g *GPIO) Tone(pin uint8, freq, durr uint16) {
	if freq == 0 {
		g.NoTone(pin)
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	p := g.pin(pin)
	if p == nil {
		return
	}

	if err := p.PWM(gpio.DutyHalf, physic.Frequency(freq)*physic.Hertz); err != nil {
		logger.Warningf("%v: pwm failed: %v", p, err)
		return
	}

	if t := g.timers[pin]; t != nil {
		t.Stop()
	}
	g.timers[pin] = time.AfterFunc(time.Duration(durr)*time.Millisecond, func() {
		g.NoTone(pin)
	})
}

func (g *GPIO) NoTone(pin uint8) {
	g.mu.Lock()
	defer g.mu.Unlock()

	p := g.pin(pin)
	if p == nil {
		return
	}
	if t := g.timers[pin]; t != nil {
		t.Stop()
	}
	if err := p.Out(gpio.Low); err != nil {
		logger.Warningf("%v: silencing failed: %v", p, err)
	}
}

func (g *GPIO) pin(pin uint8) gpio.PinIO {
	if p, ok := g.pins[pin]; ok {
		return p
	}

	p := gpioreg.ByName(strconv.Itoa(int(pin)))
	if p == nil {
		logger.Warningf("no gpio pin %d", pin)
		return nil
	}
	g.pins[pin] = p
	return p
}
