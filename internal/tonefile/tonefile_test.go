package tonefile

import (
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"code.sztanpet.net/zvpsz/async-buzzer/internal/buzzer"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := ioutil.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadTones(t *testing.T) {
	dir, err := ioutil.TempDir("", "tonefile")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	path := writeFile(t, dir, "melody", `# play
# a comment line

440,100,50
 0 , 50 , 0
660,200,0
`)

	tones, err := LoadTones(path)
	if err != nil {
		t.Fatal(err)
	}

	want := []buzzer.Tone{
		{Frequency: 440, Duration: 100, Rest: 50},
		{Frequency: 0, Duration: 50, Rest: 0},
		{Frequency: 660, Duration: 200, Rest: 0},
	}
	if len(tones) != len(want) {
		t.Fatalf("got %d tones, want %d", len(tones), len(want))
	}
	for i := range want {
		if tones[i] != want[i] {
			t.Errorf("tone %d = %+v, want %+v", i, tones[i], want[i])
		}
	}
}

func TestLoadTonesBadTag(t *testing.T) {
	dir, err := ioutil.TempDir("", "tonefile")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	cases := []struct {
		name    string
		content string
	}{
		{"wrong tag", "# pattern\n440,100,50\n"},
		{"no tag", "440,100,50\n"},
		{"empty file", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeFile(t, dir, "bad", tc.content)
			tones, err := LoadTones(path)
			if err == nil {
				t.Fatal("want an error for an invalid first line")
			}
			if len(tones) != 0 {
				t.Errorf("invalid file still produced %d tones", len(tones))
			}
		})
	}
}

func TestLoadTonesSkipsMalformedLines(t *testing.T) {
	dir, err := ioutil.TempDir("", "tonefile")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	path := writeFile(t, dir, "melody", `# play
440,100
440,100,50,0
not,numbers,here
70000,1,1
880,10,10
`)

	tones, err := LoadTones(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(tones) != 1 || tones[0].Frequency != 880 {
		t.Errorf("got %+v, want just the 880Hz line", tones)
	}
}

func TestLoadTonesTruncatesAtCeiling(t *testing.T) {
	dir, err := ioutil.TempDir("", "tonefile")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	content := ToneTag + "\n"
	for i := 0; i < MaxMelodyTones+10; i++ {
		content += fmt.Sprintf("%d,10,10\n", 100+i)
	}
	path := writeFile(t, dir, "melody", content)

	tones, err := LoadTones(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(tones) != MaxMelodyTones {
		t.Errorf("got %d tones, want the %d ceiling", len(tones), MaxMelodyTones)
	}
}

func TestLoadPattern(t *testing.T) {
	dir, err := ioutil.TempDir("", "tonefile")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	path := writeFile(t, dir, "pattern", `# pattern
3,800,30,50
1,1000,300,0
999,1,1,1
`)

	pulses, err := LoadPattern(path)
	if err != nil {
		t.Fatal(err)
	}
	// the 999-count line is out of range and skipped
	want := []buzzer.Pulse{
		{Count: 3, Frequency: 800, Duration: 30, Interval: 50},
		{Count: 1, Frequency: 1000, Duration: 300, Interval: 0},
	}
	if len(pulses) != len(want) {
		t.Fatalf("got %d pulses, want %d", len(pulses), len(want))
	}
	for i := range want {
		if pulses[i] != want[i] {
			t.Errorf("pulse %d = %+v, want %+v", i, pulses[i], want[i])
		}
	}
}

type countingOutput struct {
	tones int
}

func (c *countingOutput) Tone(pin uint8, freq, durr uint16) { c.tones++ }
func (c *countingOutput) NoTone(pin uint8)                  {}

func TestPlayFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "tonefile")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	// zero durations so the test does not sleep
	path := writeFile(t, dir, "melody", `# play
440,0,0
660,0,0
`)

	out := &countingOutput{}
	c := buzzer.New(out)
	c.SetupPin(1, buzzer.FlagSilent)

	if err := PlayFile(context.Background(), c, path); err != nil {
		t.Fatal(err)
	}
	if out.tones != 2 {
		t.Errorf("got %d emissions, want 2", out.tones)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := LoadTones("/nonexistent/melody"); err == nil {
		t.Error("want an error for a missing tone file")
	}
	if _, err := LoadPattern("/nonexistent/pattern"); err == nil {
		t.Error("want an error for a missing pattern file")
	}
}
