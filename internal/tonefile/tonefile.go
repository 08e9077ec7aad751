// tonefile loads melodies and pulse patterns from line-oriented text files.
//
// Both formats share the same shape: an exact tag on the first line,
// comment lines starting with #, blank lines ignored, and data lines of
// comma separated numeric columns.
//
//	# play                        # pattern
//	440,100,50                    3,800,30,50
//	0,50,0      (a rest)          1,1000,300,0
//	660,200,0
//
// Tone columns are frequency,duration,rest; pulse columns are
// count,frequency,duration,interval. A wrong tag fails the whole load,
// malformed data lines are skipped, and records beyond the per-format
// ceiling are silently dropped.
package tonefile

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"code.sztanpet.net/zvpsz/async-buzzer/internal/buzzer"
	"github.com/juju/loggo"
)

var logger = loggo.GetLogger("buzzer.tonefile")

// First-line tags of the two formats.
const (
	ToneTag    = "# play"
	PatternTag = "# pattern"
)

// Record ceilings, matching the small fixed buffers of the device builds.
const (
	MaxMelodyTones   = 30
	MaxPatternPulses = 20
)

// LoadTones loads a melody from a "# play" file.
func LoadTones(path string) ([]buzzer.Tone, error) {
	var tones []buzzer.Tone
	err := processLines(path, ToneTag, func(fields []string, linenum int) {
		if len(tones) >= MaxMelodyTones {
			return
		}
		if len(fields) != 3 {
			logger.Debugf("%v:%d: want 3 columns, got %d, skipping", path, linenum, len(fields))
			return
		}
		freq, ok1 := column(fields[0])
		durr, ok2 := column(fields[1])
		rest, ok3 := column(fields[2])
		if !ok1 || !ok2 || !ok3 {
			logger.Debugf("%v:%d: malformed line, skipping", path, linenum)
			return
		}
		tones = append(tones, buzzer.Tone{Frequency: freq, Duration: durr, Rest: rest})
	})
	if err != nil {
		return nil, err
	}

	logger.Infof("loaded %d tones from %v", len(tones), path)
	return tones, nil
}

// LoadPattern loads a burst list from a "# pattern" file.
func LoadPattern(path string) ([]buzzer.Pulse, error) {
	var pulses []buzzer.Pulse
	err := processLines(path, PatternTag, func(fields []string, linenum int) {
		if len(pulses) >= MaxPatternPulses {
			return
		}
		if len(fields) != 4 {
			logger.Debugf("%v:%d: want 4 columns, got %d, skipping", path, linenum, len(fields))
			return
		}
		count, ok1 := column(fields[0])
		freq, ok2 := column(fields[1])
		durr, ok3 := column(fields[2])
		interval, ok4 := column(fields[3])
		if !ok1 || !ok2 || !ok3 || !ok4 || count > 255 {
			logger.Debugf("%v:%d: malformed line, skipping", path, linenum)
			return
		}
		pulses = append(pulses, buzzer.Pulse{
			Count:     uint8(count),
			Frequency: freq,
			Duration:  durr,
			Interval:  interval,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Infof("loaded %d pulses from %v", len(pulses), path)
	return pulses, nil
}

// PlayFile streams a "# play" file straight to the buzzer, blocking for each
// tone's duration and rest. Playback state is untouched, tones go out as
// plain beeps. Cancelling ctx stops between tones.
func PlayFile(ctx context.Context, c *buzzer.Controller, path string) error {
	played := 0
	err := processLines(path, ToneTag, func(fields []string, linenum int) {
		if ctx.Err() != nil || len(fields) != 3 {
			return
		}
		freq, ok1 := column(fields[0])
		durr, ok2 := column(fields[1])
		rest, ok3 := column(fields[2])
		if !ok1 || !ok2 || !ok3 {
			return
		}

		logger.Debugf("playing %dHz for %dms/%dms", freq, durr, rest)
		c.Beep(freq, durr)
		select {
		case <-ctx.Done():
		case <-time.After(time.Duration(uint32(durr)+uint32(rest)) * time.Millisecond):
		}
		played++
	})
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	logger.Infof("play finished, %d tones from %v", played, path)
	return nil
}

// processLines feeds the comma-split columns of every data line to fn after
// checking the first-line tag.
func processLines(path, tag string, fn func(fields []string, linenum int)) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	s := bufio.NewScanner(f)
	linenum := 0
	for s.Scan() {
		linenum++
		line := strings.TrimSpace(s.Text())

		if linenum == 1 {
			if line != tag {
				return fmt.Errorf("%v: first line is %q, want %q", path, line, tag)
			}
			continue
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fn(strings.Split(line, ","), linenum)
	}

	return s.Err()
}

func column(s string) (uint16, bool) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 16)
	if err != nil {
		return 0, false
	}
	return uint16(v), true
}
