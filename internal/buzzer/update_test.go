package buzzer

import "testing"

func TestUpdateIdleReportsNothing(t *testing.T) {
	c, rec, clk := newTestController()

	if n := step(c, clk, 100); n != 0 {
		t.Errorf("idle Update reported %d emissions", n)
	}
	if len(rec.tones) != 0 || len(rec.silences) != 0 {
		t.Error("idle Update touched the channel")
	}
}

func TestUpdateReportsEmissionTicksOnly(t *testing.T) {
	c, _, clk := newTestController()

	c.Pulse(2, 440, 10, 10)

	var reported []uint32
	for i := 0; i < 60; i++ {
		if c.Update() {
			reported = append(reported, clk.now)
		}
		clk.now++
	}
	if len(reported) != 2 || reported[0] != 1 || reported[1] != 21 {
		t.Errorf("emissions reported at %v, want [1 21]", reported)
	}
}

func TestUpdateReportsMelodyEmissions(t *testing.T) {
	c, _, clk := newTestController()

	c.Melody([]Tone{
		{Frequency: 440, Duration: 10, Rest: 10},
		{Frequency: 0, Duration: 10, Rest: 0},
	}, false)

	if !c.Update() {
		t.Error("melody tone start should be reported as an emission")
	}
	clk.now++
	if c.Update() {
		t.Error("a sounding-phase tick is not an emission")
	}

	// run into the zero-frequency tone: starting it is not an emission
	total := step(c, clk, 100)
	if total != 0 {
		t.Errorf("%d emissions reported after the only tone, want 0", total)
	}
}

// A burst always wins the tick: while one is active the melody must not be
// advanced at all, whatever its state.
func TestUpdatePriorityPulseOverMelody(t *testing.T) {
	c, rec, clk := newTestController()

	c.Melody([]Tone{{Frequency: 440, Duration: 500, Rest: 0}}, false)
	c.Pulse(2, 1000, 10, 10)
	step(c, clk, 21) // both beeps, burst still winding down

	for _, e := range rec.tones {
		if e.freq != 1000 {
			t.Errorf("melody emitted %+v while a burst held the channel", e)
		}
	}
	if c.melody.toneStart != 0 {
		t.Error("melody advanced while a burst held the channel")
	}

	// burst gone: the melody takes the channel
	step(c, clk, 5)
	if c.melody.toneStart == 0 {
		t.Error("melody did not start after the burst finished")
	}
}

func TestUpdatePatternHoldsOffMelody(t *testing.T) {
	c, _, clk := newTestController()

	c.Melody([]Tone{{Frequency: 440, Duration: 10, Rest: 0}}, false)
	c.Pattern([]Pulse{{Count: 1, Frequency: 100, Duration: 10}}, false, 20)

	// while the pattern waits out its inter-burst delay no burst is
	// active, the melody still must not run
	for i := 0; i < 200 && c.IsPatternActive(); i++ {
		c.Update()
		clk.now++
		if c.IsPatternActive() && c.melody.toneStart != 0 {
			t.Fatal("melody ran while the pattern was waiting")
		}
	}
	if c.IsPatternActive() {
		t.Fatal("pattern never finished")
	}

	// with the pattern gone the melody finally starts
	step(c, clk, 5)
	if c.melody.toneStart == 0 {
		t.Error("melody did not resume after the pattern finished")
	}
}

func TestUpdateDisabledChannelDoesNothing(t *testing.T) {
	out := &recorder{clk: &testClock{now: 1}}
	c := NewWithClock(out, out.clk.millis)

	// never set up: every request no-ops, Update stays quiet
	c.Beep(440, 10)
	c.Pulse(3, 440, 10, 10)
	c.Pattern([]Pulse{{Count: 1, Frequency: 440, Duration: 10}}, false, 10)
	c.Melody([]Tone{{Frequency: 440, Duration: 10, Rest: 0}}, false)

	if n := step(c, out.clk, 50); n != 0 {
		t.Errorf("disabled controller reported %d emissions", n)
	}
	if len(out.tones) != 0 {
		t.Errorf("disabled controller emitted %d tones", len(out.tones))
	}
}
