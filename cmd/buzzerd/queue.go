package main

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"time"

	"code.sztanpet.net/zvpsz/async-buzzer/internal/tonefile"
	"github.com/fsnotify/fsnotify"
)

// watchQueue turns STATE_PATH/queue into a drop box: every file created
// there is loaded as a melody or pattern depending on its first-line tag,
// handed to the tick loop and then removed. Files already present at
// startup are played first, in name order.
func (a *app) watchQueue() error {
	dir := filepath.Join(a.cfg.StatePath, "queue")
	if err := os.MkdirAll(dir, 0700); err != nil {
		logger.Criticalf("could not create queue dir: %v", err)
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Criticalf("fsnotify init failed: %v", err)
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		logger.Criticalf("could not watch %v: %v", dir, err)
		return err
	}

	a.drainQueue(dir)

	for {
		select {
		case <-a.ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create == 0 {
				continue
			}
			// give the writer a moment to finish the file
			time.Sleep(50 * time.Millisecond)
			a.enqueueFile(ev.Name)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warningf("queue watch error: %v", err)
		}
	}
}

func (a *app) drainQueue(dir string) {
	files, err := ioutil.ReadDir(dir)
	if err != nil {
		logger.Warningf("could not list queue dir: %v", err)
		return
	}
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		a.enqueueFile(filepath.Join(dir, f.Name()))
	}
}

func (a *app) enqueueFile(path string) {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return // editor temp files and the like
	}

	r, ok := loadRequest(path)

	// consumed either way, a bad file would otherwise replay on every
	// restart
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warningf("could not remove queue file %v: %v", path, err)
	}
	if !ok {
		return
	}

	select {
	case <-a.ctx.Done():
	case a.requests <- r:
		logger.Infof("queued %v %v", r.kind, base)
	}
}

func loadRequest(path string) (request, bool) {
	if tones, err := tonefile.LoadTones(path); err == nil && len(tones) > 0 {
		return request{kind: "melody", path: filepath.Base(path), tones: tones}, true
	}

	pulses, err := tonefile.LoadPattern(path)
	if err != nil || len(pulses) == 0 {
		logger.Warningf("queue file %v is neither a tone nor a pattern file: %v", path, err)
		return request{}, false
	}
	return request{kind: "pattern", path: filepath.Base(path), pulses: pulses}, true
}
