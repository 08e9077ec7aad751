package config

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"math"
	"os"
	"strconv"

	"code.sztanpet.net/zvpsz/async-buzzer/internal/buzzer"
	"github.com/juju/loggo"
)

var logger = loggo.GetLogger("buzzer.config")

type Config struct {
	StatePath         string
	Buzzer            buzzer.Config
	Output            string // pwm, gpio or null
	DatabaseDSN       string
	TelegramToken     string
	TelegramChannelID int64
	MachineID         string
}

// Get assembles the configuration from the environment. STATE_PATH is
// required. BUZZER_PIN defaults to disabled, the ack/err tones to the stock
// ones; DATABASE_DSN and TELEGRAM_TOKEN/TELEGRAM_CHANNELID are optional,
// leaving them empty disables the event log and the telegram sink.
func Get() *Config {
	StatePath := os.Getenv("STATE_PATH")
	if StatePath == "" {
		logger.Criticalf("Empty STATE_PATH env var!")
		os.Exit(1)
	}

	bc := buzzer.DefaultConfig()
	bc.Pin = uint8(intVar("BUZZER_PIN", int64(buzzer.DisabledPin), math.MaxUint8))
	bc.Ack.Frequency = uint16(intVar("BUZZER_ACK_FREQ", int64(bc.Ack.Frequency), math.MaxUint16))
	bc.Ack.Duration = uint16(intVar("BUZZER_ACK_DURATION", int64(bc.Ack.Duration), math.MaxUint16))
	bc.Err.Frequency = uint16(intVar("BUZZER_ERR_FREQ", int64(bc.Err.Frequency), math.MaxUint16))
	bc.Err.Duration = uint16(intVar("BUZZER_ERR_DURATION", int64(bc.Err.Duration), math.MaxUint16))
	interval := intVar("BUZZER_PULSE_INTERVAL", int64(buzzer.DefaultRest), math.MaxUint16)
	bc.Ack.Rest = uint16(interval)
	bc.Err.Rest = uint16(interval)

	Output := os.Getenv("BUZZER_OUTPUT")
	switch Output {
	case "":
		Output = "pwm"
	case "pwm", "gpio", "null":
	default:
		logger.Criticalf("Unknown BUZZER_OUTPUT %q, want pwm, gpio or null!", Output)
		os.Exit(1)
	}

	cfg := &Config{
		StatePath:     StatePath,
		Buzzer:        bc,
		Output:        Output,
		DatabaseDSN:   os.Getenv("DATABASE_DSN"),
		TelegramToken: os.Getenv("TELEGRAM_TOKEN"),
		MachineID:     machineID(),
	}

	if cid := os.Getenv("TELEGRAM_CHANNELID"); cid != "" {
		TelegramChannelID, err := strconv.ParseInt(cid, 10, 64)
		if err != nil {
			logger.Criticalf("Failed parsing TELEGRAM_CHANNELID env var!")
			os.Exit(1)
		}
		cfg.TelegramChannelID = TelegramChannelID
	}

	return cfg
}

func intVar(name string, def, max int64) int64 {
	v := os.Getenv(name)
	if v == "" {
		return def
	}

	n, err := parseIntVar(v, max)
	if err != nil {
		logger.Criticalf("Failed parsing %v env var: %v!", name, err)
		os.Exit(1)
	}

	return n
}

func parseIntVar(v string, max int64) (int64, error) {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, err
	}
	if n < 0 || n > max {
		return 0, fmt.Errorf("%v out of range 0-%v", n, max)
	}

	return n, nil
}

func machineID() string {
	mid, err := ioutil.ReadFile("/etc/machine-id")
	if err != nil {
		logger.Warningf("failed reading /etc/machine-id: %v", err)
		return ""
	}

	return string(bytes.TrimSpace(mid))
}
