// tone implements the output channels the buzzer controller plays through.
// Tone calls are fire-and-forget: the channel silences itself once the
// requested duration has passed, NoTone cuts it short.
// more info: blog.oddbit.com/post/2017-09-26-some-notes-on-pwm-on-the-raspberry-pi
package tone

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/juju/loggo"
)

var logger = loggo.GetLogger("buzzer.tone")

const pwmBase = "/sys/class/pwm/pwmchip0"

// PWM drives a piezzo buzzer through the Linux pwm sysfs driver. The pin
// number selects the pwm channel (pwm0, pwm1, ...). Safe for concurrent use.
type PWM struct {
	mu       sync.Mutex
	exported map[uint8]bool
	timers   map[uint8]*time.Timer
	lastBeep time.Time
	once     sync.Once
}

func NewPWM() *PWM {
	return &PWM{
		exported: map[uint8]bool{},
		timers:   map[uint8]*time.Timer{},
	}
}

// Tone emits freq Hz for durr milliseconds: a 50% duty cycle at the tone's
// period, disabled again by a timer at the modeled end time.
func (p *PWM) Tone(pin uint8, freq, durr uint16) {
	if freq == 0 {
		p.NoTone(pin)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.once.Do(func() {
		go p.denoiseLoop()
	})

	if err := p.ensureExported(pin); err != nil {
		logger.Warningf("pwm%d export failed: %v", pin, err)
		return
	}

	period := uint32(1e9) / uint32(freq) // ns
	if err := p.configure(pin, period); err != nil {
		logger.Warningf("pwm%d configure failed: %v", pin, err)
		return
	}
	p.enable(pin)
	p.lastBeep = time.Now()

	if t := p.timers[pin]; t != nil {
		t.Stop()
	}
	p.timers[pin] = time.AfterFunc(time.Duration(durr)*time.Millisecond, func() {
		p.mu.Lock()
		p.disable(pin)
		p.mu.Unlock()
	})
}

// NoTone silences the channel immediately.
func (p *PWM) NoTone(pin uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if t := p.timers[pin]; t != nil {
		t.Stop()
	}
	p.disable(pin)
}

func (p *PWM) port(pin uint8) string {
	return pwmBase + "/pwm" + strconv.Itoa(int(pin))
}

func (p *PWM) ensureExported(pin uint8) error {
	if p.exported[pin] {
		return nil
	}

	// already exported by a previous run?
	if _, err := os.Stat(p.port(pin)); err != nil {
		if err := write(pwmBase+"/export", strconv.Itoa(int(pin))); err != nil {
			return err
		}
	}
	p.exported[pin] = true

	if err := write(p.port(pin)+"/polarity", "normal"); err != nil {
		return err
	}

	return nil
}

func (p *PWM) configure(pin uint8, period uint32) error {
	// period must always be larger than duty_cycle, write order matters
	// when shrinking it
	port := p.port(pin)
	duty := strconv.FormatUint(uint64(period/2), 10)
	if err := write(port+"/duty_cycle", "0"); err != nil {
		return err
	}
	if err := write(port+"/period", strconv.FormatUint(uint64(period), 10)); err != nil {
		return err
	}
	return write(port+"/duty_cycle", duty)
}

func (p *PWM) unexport(pin uint8) {
	_ = write(pwmBase+"/unexport", strconv.Itoa(int(pin)))
	p.exported[pin] = false
}

func (p *PWM) enable(pin uint8) {
	if !p.exported[pin] {
		return
	}
	if err := write(p.port(pin)+"/enable", "1"); err != nil {
		p.unexport(pin)
	}
}

func (p *PWM) disable(pin uint8) {
	if !p.exported[pin] {
		return
	}
	if err := write(p.port(pin)+"/enable", "0"); err != nil {
		p.unexport(pin)
	}
}

// denoiseLoop silences any noise on the buzzer while idle.
// Depending on CPU usage seemingly, the transistor controlling the
// piezo buzzer drifts into it's active region because the noise on the
// pwm output becomes so big. This causes the components to heat up
// unnecessarily. The problem can be sidestepped by momentarily switching
// the output on.
func (p *PWM) denoiseLoop() {
	t := time.NewTicker(5 * time.Minute)
	for {
		now := <-t.C

		p.mu.Lock()
		if p.lastBeep.Add(5 * time.Minute).After(now) {
			p.mu.Unlock()
			continue
		}

		for pin, ok := range p.exported {
			if !ok {
				continue
			}
			p.enable(pin)
			time.Sleep(10 * time.Millisecond)
			p.disable(pin)
		}
		p.lastBeep = time.Now()
		p.mu.Unlock()
	}
}

func write(path, value string) error {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	defer f.Close()

	n, err := f.WriteString(value)
	if err != nil {
		return err
	}

	if n < len(value) {
		return fmt.Errorf("%v: %v", path, io.ErrShortWrite)
	}

	return nil
}
