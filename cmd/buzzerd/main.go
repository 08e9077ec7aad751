package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"time"

	"code.sztanpet.net/zvpsz/async-buzzer/internal/buzzer"
	"code.sztanpet.net/zvpsz/async-buzzer/internal/config"
	"code.sztanpet.net/zvpsz/async-buzzer/internal/display"
	"code.sztanpet.net/zvpsz/async-buzzer/internal/logwriter"
	"code.sztanpet.net/zvpsz/async-buzzer/internal/storage"
	"code.sztanpet.net/zvpsz/async-buzzer/internal/telegram"
	"code.sztanpet.net/zvpsz/async-buzzer/internal/tone"
	"github.com/juju/loggo"
	"golang.org/x/sync/errgroup"
)

// buzzerd owns the device's buzzer: it runs the scheduler tick loop and
// plays whatever lands in the STATE_PATH/queue directory. Dropping a
// "# play" file there starts a melody, a "# pattern" file a pulse pattern.
// Every accepted request is recorded to the playback-event log.

var logger = loggo.GetLogger("buzzerd")

// silence between a queued pattern's bursts
const patternDelay = 300

type request struct {
	kind   string
	path   string
	tones  []buzzer.Tone
	pulses []buzzer.Pulse
}

type app struct {
	ctx     context.Context
	exit    context.CancelFunc
	cfg     *config.Config
	screen  *display.Screen
	storage *storage.Storage
	bot     *telegram.Bot
	ctrl    *buzzer.Controller

	requests chan request

	// playback keeps referencing these, they live here so nothing else
	// mutates them while the controller plays
	tones  []buzzer.Tone
	pulses []buzzer.Pulse
}

func main() {
	cfg := config.Get()
	ctx, exit := context.WithCancel(context.Background())
	a := &app{
		ctx:      ctx,
		exit:     exit,
		cfg:      cfg,
		requests: make(chan request, 4),
	}

	// logging sends messages to telegram, so it depends on it
	a.setupTelegram()
	a.setupLogging()
	a.handleSignals()
	a.setupStorage()
	a.setupScreen()
	a.setupBuzzer()

	// we got here successfully, beep
	a.ctrl.SuccessBeep()
	a.showIdle()

	// from here on the tick loop is the only goroutine touching the
	// controller, everything else goes through a.requests
	g, _ := errgroup.WithContext(ctx)
	g.Go(a.tickLoop)
	g.Go(a.watchQueue)

	// canceling the context is the normal way to exit
	<-ctx.Done()
	_ = g.Wait()
	time.Sleep(250 * time.Millisecond)
	os.Exit(0)
}

func (a *app) handleSignals() {
	c := make(chan os.Signal, 1)
	signal.Notify(c)
	go func(c chan os.Signal) {
		s := <-c
		// exit unconditionally on any signal
		logger.Warningf("Got signal: %s, exiting cleanly", s)
		a.exit()
	}(c)
}

func (a *app) setupLogging() {
	err := logwriter.Setup(a.bot, a.cfg)
	if err != nil {
		panic("logwriter setup failed, impossible")
	}
}

func (a *app) setupTelegram() {
	if a.cfg.TelegramToken == "" {
		return
	}

	bot, err := telegram.New(a.ctx, a.cfg)
	if err != nil {
		return
	}
	a.bot = bot

	go func() {
		// the channel doubles as remote control for log verbosity:
		// "logging <loggo specification>"
		err := bot.HandleUpdates(func(msg string) {
			if !strings.HasPrefix(msg, "logging ") {
				return
			}
			spec := strings.TrimPrefix(msg, "logging ")
			if err := loggo.ConfigureLoggers(spec); err != nil {
				logger.Warningf("bad logging specification %q: %v", spec, err)
				return
			}
			logger.Infof("logging specification set to %q", spec)
		}, true)
		if err != nil {
			logger.Warningf("telegram updates failed: %v", err)
		}
	}()
}

func (a *app) setupStorage() {
	if a.cfg.DatabaseDSN == "" {
		logger.Infof("no DATABASE_DSN, event log disabled")
		return
	}

	storage, err := storage.New(a.ctx, a.cfg)
	if err != nil {
		logger.Criticalf("failed to initialize storage: %v", err)
		os.Exit(1)
	}
	a.storage = storage
}

func (a *app) setupScreen() {
	screen, err := display.NewScreen()
	if err != nil {
		// no screen is fine, it logged already
		return
	}
	a.screen = screen
	go screen.HandleScreenSaver()
}

func (a *app) setupBuzzer() {
	var out buzzer.Output
	switch a.cfg.Output {
	case "pwm":
		out = tone.NewPWM()
	case "gpio":
		g, err := tone.NewGPIO()
		if err != nil {
			logger.Criticalf("gpio output init failed: %v", err)
			os.Exit(1)
		}
		out = g
	default:
		out = tone.Null{}
	}

	a.ctrl = buzzer.New(out)
	a.ctrl.Setup(a.cfg.Buzzer, buzzer.FlagNone)
}

// tickLoop is the single goroutine that touches the controller: it pumps
// Update once a millisecond and applies queued playback requests in
// between ticks.
func (a *app) tickLoop() error {
	t := time.NewTicker(time.Millisecond)
	defer t.Stop()

	playing := false
	for {
		select {
		case <-a.ctx.Done():
			return nil

		case r := <-a.requests:
			a.play(r)
			playing = true

		case <-t.C:
			a.ctrl.Update()

			active := a.ctrl.IsPulseActive() || a.ctrl.IsPatternActive() || a.ctrl.IsMelodyActive()
			if playing && !active {
				playing = false
				a.showIdle()
			}
		}
	}
}

func (a *app) play(r request) {
	switch r.kind {
	case "melody":
		a.tones = r.tones
		a.ctrl.Melody(a.tones, false)
		a.record(storage.Event{Kind: "melody", Count: uint16(len(r.tones))})
	case "pattern":
		a.pulses = r.pulses
		a.ctrl.Pattern(a.pulses, false, patternDelay)
		a.record(storage.Event{Kind: "pattern", Count: uint16(len(r.pulses))})
	}

	if a.screen != nil {
		_ = a.screen.NowPlaying(a.ctrl.GetConfig().Pin, r.kind+" "+r.path)
	}
}

func (a *app) record(e storage.Event) {
	if a.storage == nil {
		return
	}
	a.storage.Insert(e)
}

func (a *app) showIdle() {
	if a.screen == nil {
		return
	}
	_ = a.screen.NowPlaying(a.ctrl.GetConfig().Pin, "idle")
}
