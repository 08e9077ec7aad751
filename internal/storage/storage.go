package storage

import (
	"context"
	"crypto/sha1"
	"database/sql"
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"code.sztanpet.net/zvpsz/async-buzzer/internal/config"
	"code.sztanpet.net/zvpsz/async-buzzer/internal/file"
	"github.com/go-sql-driver/mysql"
	"github.com/juju/loggo"
)

// Storage persists playback Events to disk before inserting them into a
// database, so fleet telemetry survives the network being down.
type Storage struct {
	ctx       context.Context
	path      string
	machineID string
	db        *sql.DB
	insert    chan inData

	stmtMu sync.RWMutex
	inStmt *sql.Stmt

	bufMu sync.Mutex
	inBuf map[[20]byte]Event
}

type inData struct {
	path string
	data Event
}

// Event records one accepted playback request.
type Event struct {
	Kind      string // beep, pulse, pattern, melody or file
	Frequency uint16
	Duration  uint16
	Count     uint16 // beeps in a burst, bursts in a pattern, tones in a melody
	CreatedAt time.Time
}

var logger = loggo.GetLogger("buzzer.storage")
var pathProcessDurr = 1 * time.Minute

// New expects cfg.DatabaseDSN to be set; events spool under
// STATE_PATH/events until inserted.
func New(ctx context.Context, cfg *config.Config) (*Storage, error) {
	path := filepath.Join(cfg.StatePath, "events")
	// Open doesn't open a connection to validate the DSN!
	db, err := sql.Open("mysql", cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	db.SetConnMaxLifetime(30 * time.Second)
	db.SetMaxIdleConns(3)
	db.SetMaxOpenConns(3)

	err = os.MkdirAll(path, 0700)
	if err != nil {
		return nil, err
	}

	s := &Storage{
		ctx:       ctx,
		path:      path,
		machineID: cfg.MachineID,
		db:        db,
		inBuf:     map[[20]byte]Event{},
		insert:    make(chan inData, 1),
	}

	go s.consumeData()

	return s, nil
}

// TestConnection can be used to test whether the provided DSN actually works
// and to make sure the connection to the database is alive
func (s *Storage) TestConnection() error {
	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()

	return s.db.PingContext(ctx)
}

func (s *Storage) pathForEvent(data Event) string {
	return filepath.Join(s.path, strconv.FormatInt(data.CreatedAt.UnixNano(), 10))
}

// Insert persists the Event to disk for resilience and tries to insert it
// into the DB.
func (s *Storage) Insert(data Event) {
	if data.CreatedAt.IsZero() {
		data.CreatedAt = time.Now()
	}

	// persist data to disk first
	// assumption: UnixNano() gives a safely unique and nicely sortable filename
	dp := s.pathForEvent(data)
	_ = file.Serialize(dp, &data)

	// buffer the event in memory too, in case persisting failed and the
	// insert channel would block; memory is cheap next to losing data
	s.bufMu.Lock()
	ix := sha1.Sum([]byte(dp))
	s.inBuf[ix] = data
	s.bufMu.Unlock()

	// try to send the data up to the DB asap, on success the serialized
	// file will be deleted
	select {
	case <-s.ctx.Done():
	case s.insert <- inData{path: dp, data: data}:
	default:
	}
}

// consumeData listens on the Storage.insert channel for things to insert.
// If successful, it removes the persisted data file. It regularly re-feeds
// any leftover buffered or persisted events.
func (s *Storage) consumeData() {
	t := time.NewTicker(pathProcessDurr)
	var cancel context.CancelFunc
	defer func() {
		if cancel != nil {
			cancel()
		}
	}()

	for {
		select {
		case <-s.ctx.Done():
			logger.Infof("consumeData: context cancelled, exiting")
			return

		case in := <-s.insert:
			err := s.dbInsert(in.data)
			if err != nil {
				// processBuf and processPath will retry the insert later
				continue
			}

			if err := os.Remove(in.path); err != nil && !os.IsNotExist(err) {
				// harmless, there is a unique index on created_at so the
				// re-insert is a no-op and the remove gets retried
				logger.Errorf("Failed to remove path: %v error was: %v", in.path, err)
			}

			s.bufMu.Lock()
			delete(s.inBuf, sha1.Sum([]byte(in.path)))
			s.bufMu.Unlock()

		case <-t.C:
			if cancel != nil {
				cancel()
			}
			var ctx context.Context
			ctx, cancel = context.WithCancel(s.ctx)
			go func() {
				s.processBuf(ctx)
				s.processPath(ctx)
			}()
		}
	}
}

func (s *Storage) processBuf(ctx context.Context) {
	s.bufMu.Lock()
	now := time.Now()
	var toInsert []inData
	for _, data := range s.inBuf {
		if diff := now.Sub(data.CreatedAt); diff < time.Second {
			continue
		}

		toInsert = append(toInsert, inData{
			path: s.pathForEvent(data),
			data: data,
		})
	}
	s.bufMu.Unlock()

	if len(toInsert) == 0 {
		return
	}

	logger.Tracef("number of events buffered: %v", len(toInsert))
	for _, in := range toInsert {
		select {
		case <-ctx.Done():
			return
		case s.insert <- in:
		}
	}
}

// processPath retries inserting the events persisted under Storage.path.
func (s *Storage) processPath(ctx context.Context) {
	files, err := ioutil.ReadDir(s.path)
	if err != nil {
		logger.Errorf("listing s.path failed (%v), skipping processing", err)
		return
	}

	logger.Tracef("number of files to insert: %v", len(files))
	for _, f := range files {
		id := inData{
			path: filepath.Join(s.path, f.Name()),
		}

		err := file.Unserialize(id.path, &id.data)
		if err != nil {
			logger.Errorf("failed unserializing %v, error was: %v", id.path, err)
			continue
		}

		select {
		case <-ctx.Done():
			return
		case s.insert <- id:
		}
	}
}

func (s *Storage) dbInsert(row Event) error {
	err := s.ensureStatement()
	if err != nil {
		return err
	}

	s.stmtMu.RLock()
	defer s.stmtMu.RUnlock()

	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()
	// the result is irrelevant, only the error matters
	_, err = s.inStmt.ExecContext(
		ctx,
		s.machineID,
		row.Kind,
		row.Frequency,
		row.Duration,
		row.Count,
		row.CreatedAt.UnixNano(),
	)

	if err != nil {
		me, ok := err.(*mysql.MySQLError)
		if !ok {
			return err
		}

		// ignore duplicate-key errors, the event was already inserted
		// error codes from:
		// https://dev.mysql.com/doc/refman/5.7/en/server-error-reference.html
		switch me.Number {
		case 1062, 1586:
			return nil
		}

		return err
	}

	return nil
}

func (s *Storage) ensureStatement() error {
	// take read lock first to check if inStmt is nil or not
	// and if it is, take a write lock to set it
	s.stmtMu.RLock()
	if s.inStmt != nil {
		s.stmtMu.RUnlock()
		return nil
	}
	s.stmtMu.RUnlock()

	// db.Stmt is safe to use concurrently, but it is not safe
	// for us to modify the pointer pointing to it concurrently
	s.stmtMu.Lock()
	defer s.stmtMu.Unlock()

	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()
	stmt, err := s.db.PrepareContext(ctx, `
		INSERT INTO playback_events (machine_id, kind, frequency, duration, count, created_at, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, NOW())
	`)
	if err != nil {
		return err
	}
	s.inStmt = stmt

	return nil
}
