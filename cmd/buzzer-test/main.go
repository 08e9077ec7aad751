package main

import (
	"fmt"
	"time"

	"code.sztanpet.net/zvpsz/async-buzzer/internal/buzzer"
	"code.sztanpet.net/zvpsz/async-buzzer/internal/tone"
)

// hardware smoke test: an endless round of beep, burst and melody on pwm0,
// listen and make sure all three sound right
func main() {
	c := buzzer.New(tone.NewPWM())
	c.SetupPin(0, buzzer.FlagNone)

	melody := []buzzer.Tone{
		{Frequency: 523, Duration: 100, Rest: 30},
		{Frequency: 659, Duration: 100, Rest: 30},
		{Frequency: 784, Duration: 200, Rest: 0},
	}

	for {
		fmt.Println("beep")
		c.SuccessBeep()
		<-time.After(500 * time.Millisecond)

		fmt.Println("burst")
		c.Pulse(3, 2068, 150, 100)
		for c.IsPulseActive() {
			c.Update()
			<-time.After(time.Millisecond)
		}
		<-time.After(500 * time.Millisecond)

		fmt.Println("melody")
		c.Melody(melody, false)
		for c.IsMelodyActive() {
			c.Update()
			<-time.After(time.Millisecond)
		}
		<-time.After(500 * time.Millisecond)
	}
}
