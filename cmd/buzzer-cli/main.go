// buzzer-cli plays sounds from the command line, straight on the local
// buzzer. Handy for trying out tone and pattern files before dropping them
// into buzzerd's queue.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"code.sztanpet.net/zvpsz/async-buzzer/internal/buzzer"
	"code.sztanpet.net/zvpsz/async-buzzer/internal/tone"
	"code.sztanpet.net/zvpsz/async-buzzer/internal/tonefile"
	"github.com/spf13/cobra"
)

var (
	pin    uint8
	output string

	count    uint8
	freq     uint16
	durr     uint16
	interval uint16

	repeat bool
	delay  uint16
	direct bool
)

func main() {
	root := &cobra.Command{
		Use:          "buzzer-cli",
		Short:        "play beeps, pulses, patterns and melodies on the buzzer",
		SilenceUsage: true,
	}
	root.PersistentFlags().Uint8Var(&pin, "pin", buzzer.DisabledPin, "buzzer pin / pwm channel")
	root.PersistentFlags().StringVar(&output, "output", "pwm", "output driver: pwm, gpio or null")

	beepCmd := &cobra.Command{
		Use:   "beep",
		Short: "a single beep",
		RunE:  runBeep,
	}

	pulseCmd := &cobra.Command{
		Use:   "pulse",
		Short: "a burst of beeps",
		RunE:  runPulse,
	}
	pulseCmd.Flags().Uint8Var(&count, "count", 3, "beeps in the burst")

	patternCmd := &cobra.Command{
		Use:   "pattern <file>",
		Short: "play a '# pattern' file",
		Args:  cobra.ExactArgs(1),
		RunE:  runPattern,
	}
	patternCmd.Flags().BoolVar(&repeat, "repeat", false, "loop until interrupted")
	patternCmd.Flags().Uint16Var(&delay, "delay", 300, "ms between bursts")

	playCmd := &cobra.Command{
		Use:   "play <file>",
		Short: "play a '# play' file as a melody",
		Args:  cobra.ExactArgs(1),
		RunE:  runPlay,
	}
	playCmd.Flags().BoolVar(&direct, "direct", false, "stream tones directly instead of scheduling a melody")

	for _, c := range []*cobra.Command{beepCmd, pulseCmd} {
		c.Flags().Uint16Var(&freq, "freq", buzzer.DefaultAckFrequency, "frequency in Hz")
		c.Flags().Uint16Var(&durr, "durr", buzzer.DefaultAckDuration, "duration in ms")
	}
	pulseCmd.Flags().Uint16Var(&interval, "interval", buzzer.DefaultRest, "ms between beeps")

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "show the effective buzzer config",
		RunE:  runConfig,
	}

	root.AddCommand(beepCmd, pulseCmd, patternCmd, playCmd, configCmd)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func controller() (*buzzer.Controller, error) {
	if pin == buzzer.DisabledPin && output != "null" {
		return nil, fmt.Errorf("no --pin given")
	}

	var out buzzer.Output
	switch output {
	case "pwm":
		out = tone.NewPWM()
	case "gpio":
		g, err := tone.NewGPIO()
		if err != nil {
			return nil, err
		}
		out = g
	case "null":
		out = tone.Null{}
	default:
		return nil, fmt.Errorf("unknown output %q", output)
	}

	c := buzzer.New(out)
	c.SetupPin(pin, buzzer.FlagSilent)
	return c, nil
}

// interruptable returns a context cancelled by ctrl+c, so looping playback
// can be stopped cleanly.
func interruptable() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func runConfig(cmd *cobra.Command, args []string) error {
	c := buzzer.New(tone.Null{})
	c.SetupPin(pin, buzzer.FlagSilent)

	cfg := c.GetConfig()
	fmt.Printf("pin: %v\n", cfg.Pin)
	fmt.Printf("ack: %vHz for %vms\n", cfg.Ack.Frequency, cfg.Ack.Duration)
	fmt.Printf("err: %vHz for %vms\n", cfg.Err.Frequency, cfg.Err.Duration)
	return nil
}

func runBeep(cmd *cobra.Command, args []string) error {
	c, err := controller()
	if err != nil {
		return err
	}
	ctx, cancel := interruptable()
	defer cancel()

	// a 1-beep burst so we stay alive until the tone is done
	return c.PulseBlocking(ctx, 1, freq, durr, 0)
}

func runPulse(cmd *cobra.Command, args []string) error {
	c, err := controller()
	if err != nil {
		return err
	}
	ctx, cancel := interruptable()
	defer cancel()

	return c.PulseBlocking(ctx, count, freq, durr, interval)
}

func runPattern(cmd *cobra.Command, args []string) error {
	c, err := controller()
	if err != nil {
		return err
	}

	pulses, err := tonefile.LoadPattern(args[0])
	if err != nil {
		return err
	}
	if len(pulses) == 0 {
		return fmt.Errorf("%v: no pulses", args[0])
	}

	ctx, cancel := interruptable()
	defer cancel()
	return c.PatternBlocking(ctx, pulses, repeat, delay)
}

func runPlay(cmd *cobra.Command, args []string) error {
	c, err := controller()
	if err != nil {
		return err
	}
	ctx, cancel := interruptable()
	defer cancel()

	if direct {
		return tonefile.PlayFile(ctx, c, args[0])
	}

	tones, err := tonefile.LoadTones(args[0])
	if err != nil {
		return err
	}
	if len(tones) == 0 {
		return fmt.Errorf("%v: no tones", args[0])
	}
	return c.MelodyBlocking(ctx, tones)
}
