package logwriter

import (
	"io/ioutil"
	"os"
	"testing"

	"code.sztanpet.net/zvpsz/async-buzzer/internal/config"
	"github.com/juju/loggo"
)

func TestSetupAfterDefaultWriterRemoved(t *testing.T) {
	defer loggo.ResetWriters()

	dir, err := ioutil.TempDir("", "logwriter")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	cfg := &config.Config{StatePath: dir}

	_, _ = loggo.RemoveWriter("default")
	if err := Setup(nil, cfg); err != nil {
		t.Fatalf("Setup() with default writer gone: %v", err)
	}

	// and again while our writer is registered
	if err := Setup(nil, cfg); err != nil {
		t.Fatalf("Setup() twice in a row: %v", err)
	}
}
