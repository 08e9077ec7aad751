package buzzer

import (
	"context"
	"testing"
)

func TestMelodyPlaysTonesAndRests(t *testing.T) {
	c, rec, clk := newTestController()

	tones := []Tone{
		{Frequency: 440, Duration: 100, Rest: 50},
		{Frequency: 0, Duration: 50, Rest: 0}, // a pure rest
		{Frequency: 660, Duration: 200, Rest: 0},
	}
	c.Melody(tones, false)
	silencesAtStart := len(rec.silences) // Melody silences the channel up front
	step(c, clk, 500)

	if c.IsMelodyActive() {
		t.Fatal("non-repeating melody should deactivate after its last tone")
	}

	// the zero-frequency tone occupies its duration without emitting
	if len(rec.tones) != 2 {
		t.Fatalf("got %d emissions, want 2 (rest must not emit): %+v", len(rec.tones), rec.tones)
	}
	if e := rec.tones[0]; e.freq != 440 || e.durr != 100 || e.at != 1 {
		t.Errorf("first tone was %+v, want 440Hz/100ms at tick 1", e)
	}
	if e := rec.tones[1]; e.freq != 660 || e.durr != 200 {
		t.Errorf("second tone was %+v, want 660Hz/200ms", e)
	}

	// 440 sounds for 100ms, rests 50ms, the pure rest takes 50ms more,
	// then 660 starts: at least 200ms after the first emission
	if gap := rec.tones[1].at - rec.tones[0].at; gap < 200 || gap > 210 {
		t.Errorf("second tone started %dms after the first, want about 203", gap)
	}

	// each sounding tone is explicitly silenced at the end of its duration
	if len(rec.silences)-silencesAtStart < 2 {
		t.Errorf("got %d silences during playback, want >= 2", len(rec.silences)-silencesAtStart)
	}
}

func TestMelodyRepeatRewinds(t *testing.T) {
	c, rec, clk := newTestController()

	c.Melody([]Tone{{Frequency: 440, Duration: 10, Rest: 10}}, true)
	step(c, clk, 300)

	if !c.IsMelodyActive() {
		t.Fatal("repeating melody must stay active")
	}
	if len(rec.tones) < 5 {
		t.Errorf("repeating melody only emitted %d tones in 300 ticks", len(rec.tones))
	}

	before := len(rec.silences)
	c.StopMelody()
	if c.IsMelodyActive() {
		t.Error("StopMelody should deactivate the melody")
	}
	if len(rec.silences) == before {
		t.Error("StopMelody must silence the channel")
	}
}

func TestMelodyRestartLeavesOneMelody(t *testing.T) {
	c, rec, clk := newTestController()

	c.Melody([]Tone{{Frequency: 100, Duration: 1000, Rest: 0}}, false)
	step(c, clk, 10)
	c.Melody([]Tone{{Frequency: 200, Duration: 10, Rest: 0}}, false)
	step(c, clk, 50)

	if c.IsMelodyActive() {
		t.Error("replacement melody should have finished")
	}
	// one emission each: the old melody's tone and the new one's
	if len(rec.tones) != 2 || rec.tones[1].freq != 200 {
		t.Errorf("unexpected emissions %+v", rec.tones)
	}
}

func TestMelodySuspendedByPulse(t *testing.T) {
	c, rec, clk := newTestController()

	tones := []Tone{
		{Frequency: 440, Duration: 100, Rest: 0},
		{Frequency: 660, Duration: 100, Rest: 0},
	}
	c.Melody(tones, false)
	step(c, clk, 120) // into the second tone

	if c.melody.current != 1 {
		t.Fatalf("melody at tone %d, want 1", c.melody.current)
	}
	cur, start, phase := c.melody.current, c.melody.toneStart, c.melody.playingTone

	c.Pulse(3, 1000, 10, 10)
	melodyTones := len(rec.tones)
	for c.IsPulseActive() {
		c.Update()
		clk.now++
		if c.melody.current != cur || c.melody.toneStart != start || c.melody.playingTone != phase {
			t.Fatal("melody state changed while suspended")
		}
	}
	if !c.IsMelodyActive() {
		t.Fatal("suspension must not stop the melody")
	}
	for _, e := range rec.tones[melodyTones:] {
		if e.freq != 1000 {
			t.Errorf("melody emitted while suspended: %+v", e)
		}
	}

	// melody resumes from where it was, not from tone 0
	step(c, clk, 300)
	if c.IsMelodyActive() {
		t.Error("melody should have finished after resuming")
	}
	for _, e := range rec.tones {
		if e.freq == 440 && e.at > 100 {
			t.Errorf("melody restarted from tone 0 after suspension: %+v", e)
		}
	}
}

func TestMelodyInvalidRequests(t *testing.T) {
	c, _, _ := newTestController()

	c.Melody(nil, false)
	if c.IsMelodyActive() {
		t.Error("nil tone list must be rejected")
	}
	c.Melody([]Tone{}, true)
	if c.IsMelodyActive() {
		t.Error("empty tone list must be rejected")
	}
}

func TestMelodyBlocking(t *testing.T) {
	clk := &testClock{now: 1}
	rec := &recorder{clk: clk}
	c := NewWithClock(rec, func() uint32 {
		clk.now += 5
		return clk.now
	})
	c.SetupPin(testPin, FlagSilent)

	tones := []Tone{{Frequency: 440, Duration: 20, Rest: 10}}
	if err := c.MelodyBlocking(context.Background(), tones); err != nil {
		t.Fatalf("MelodyBlocking: %v", err)
	}
	if c.IsMelodyActive() {
		t.Error("melody still active after MelodyBlocking returned")
	}
	if len(rec.tones) != 1 {
		t.Errorf("got %d emissions, want 1", len(rec.tones))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.MelodyBlocking(ctx, tones); err != context.Canceled {
		t.Fatalf("got %v, want context.Canceled", err)
	}
	if c.IsMelodyActive() {
		t.Error("cancelled melody should be stopped")
	}
}
