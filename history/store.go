// Package history persists completed terminal lines to a SQLite
// database so detached sessions can be reviewed later.
package history

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// StoreConfig controls batching behavior for the async writer.
type StoreConfig struct {
	DBPath        string
	BatchSize     int
	BatchTimeout  time.Duration
	ChannelBuffer int
}

// DefaultStoreConfig returns sensible defaults for a store at dbPath.
func DefaultStoreConfig(dbPath string) StoreConfig {
	return StoreConfig{
		DBPath:        dbPath,
		BatchSize:     100,
		BatchTimeout:  2 * time.Second,
		ChannelBuffer: 1000,
	}
}

// Line is one recorded terminal line.
type Line struct {
	Session   string
	Seq       int64
	Timestamp time.Time
	Text      string
}

const storeSchema = `
CREATE TABLE IF NOT EXISTS lines (
    session TEXT NOT NULL,
    seq     INTEGER NOT NULL,
    ts      INTEGER NOT NULL,
    text    TEXT NOT NULL,
    PRIMARY KEY (session, seq)
);

CREATE INDEX IF NOT EXISTS idx_lines_session_ts ON lines(session, ts);
`

// Store is a SQLite-backed line recorder with an asynchronous batch
// writer. Append never blocks on disk; Flush forces queued lines out.
type Store struct {
	config StoreConfig
	db     *sql.DB

	batchChan chan Line
	stopCh    chan struct{}
	doneCh    chan struct{}
	flushCh   chan chan struct{}

	mu sync.RWMutex
}

// NewStore opens (creating if needed) the database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	return NewStoreWithConfig(DefaultStoreConfig(dbPath))
}

// NewStoreWithConfig opens a store with custom batching configuration.
func NewStoreWithConfig(config StoreConfig) (*Store, error) {
	dir := filepath.Dir(config.DBPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	dsn := config.DBPath +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_pragma=temp_store(MEMORY)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := db.Exec(storeSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	s := &Store{
		config:    config,
		db:        db,
		batchChan: make(chan Line, config.ChannelBuffer),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
		flushCh:   make(chan chan struct{}),
	}

	go s.batchWriter()

	return s, nil
}

// Append queues a line for recording. Empty text is skipped. If the
// queue is full the line is dropped rather than stalling the session.
func (s *Store) Append(line Line) {
	if line.Text == "" {
		return
	}
	if line.Timestamp.IsZero() {
		line.Timestamp = time.Now()
	}
	select {
	case s.batchChan <- line:
	default:
		log.Printf("[HISTORY] Queue full, dropping line %d of session %q", line.Seq, line.Session)
	}
}

// Flush blocks until every queued line has been written.
func (s *Store) Flush() {
	done := make(chan struct{})
	select {
	case s.flushCh <- done:
		<-done
	case <-s.doneCh:
	}
}

// Close flushes pending lines and closes the database.
func (s *Store) Close() error {
	close(s.stopCh)
	<-s.doneCh
	return s.db.Close()
}

// Tail returns up to limit of the most recent lines for a session, in
// ascending sequence order.
func (s *Store) Tail(session string, limit int) ([]Line, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT seq, ts, text FROM (
		    SELECT seq, ts, text FROM lines WHERE session = ? ORDER BY seq DESC LIMIT ?
		 ) ORDER BY seq ASC`, session, limit)
	if err != nil {
		return nil, fmt.Errorf("tail query failed: %w", err)
	}
	defer rows.Close()

	var out []Line
	for rows.Next() {
		var l Line
		var ts int64
		if err := rows.Scan(&l.Seq, &ts, &l.Text); err != nil {
			return nil, fmt.Errorf("tail scan failed: %w", err)
		}
		l.Session = session
		l.Timestamp = time.Unix(0, ts)
		out = append(out, l)
	}
	return out, rows.Err()
}

// Prune deletes lines older than cutoff across all sessions.
func (s *Store) Prune(cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("DELETE FROM lines WHERE ts < ?", cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("prune failed: %w", err)
	}
	return res.RowsAffected()
}

// batchWriter runs in a background goroutine, batching lines and
// flushing them periodically or when a batch fills.
func (s *Store) batchWriter() {
	defer close(s.doneCh)

	batch := make([]Line, 0, s.config.BatchSize)
	timer := time.NewTimer(s.config.BatchTimeout)
	defer timer.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		s.flushBatch(batch)
		batch = batch[:0]
	}

	for {
		select {
		case line := <-s.batchChan:
			batch = append(batch, line)
			if len(batch) >= s.config.BatchSize {
				flush()
				timer.Reset(s.config.BatchTimeout)
			}

		case <-timer.C:
			flush()
			timer.Reset(s.config.BatchTimeout)

		case done := <-s.flushCh:
			draining := true
			for draining {
				select {
				case line := <-s.batchChan:
					batch = append(batch, line)
				default:
					draining = false
				}
			}
			flush()
			close(done)

		case <-s.stopCh:
			for {
				select {
				case line := <-s.batchChan:
					batch = append(batch, line)
				default:
					flush()
					return
				}
			}
		}
	}
}

// flushBatch writes one batch inside a single transaction.
func (s *Store) flushBatch(batch []Line) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		log.Printf("[HISTORY] Failed to begin transaction: %v", err)
		return
	}

	stmt, err := tx.Prepare("INSERT OR REPLACE INTO lines (session, seq, ts, text) VALUES (?, ?, ?, ?)")
	if err != nil {
		log.Printf("[HISTORY] Failed to prepare statement: %v", err)
		tx.Rollback()
		return
	}
	defer stmt.Close()

	for _, l := range batch {
		if _, err := stmt.Exec(l.Session, l.Seq, l.Timestamp.UnixNano(), l.Text); err != nil {
			log.Printf("[HISTORY] Failed to insert line %d: %v", l.Seq, err)
			tx.Rollback()
			return
		}
	}

	if err := tx.Commit(); err != nil {
		log.Printf("[HISTORY] Failed to commit batch: %v", err)
	}
}
