// Copyright © 2025 Termcore contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: vt/search_index.go
// Summary: Optional SQLite FTS5 index over scrollback lines, for
// substring search across histories too large to regex-scan every time.

package vt

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// ScrollbackIndexConfig configures the scrollback index.
type ScrollbackIndexConfig struct {
	// DBPath is the SQLite database file.
	DBPath string
	// BatchSize is how many lines accumulate before a write. Default 100.
	BatchSize int
	// BatchTimeout flushes a partial batch after this long. Default 5s.
	BatchTimeout time.Duration
	// QueueDepth is the async indexing queue size. Default 1000.
	QueueDepth int
}

// DefaultScrollbackIndexConfig returns the defaults for dbPath.
func DefaultScrollbackIndexConfig(dbPath string) ScrollbackIndexConfig {
	return ScrollbackIndexConfig{
		DBPath:       dbPath,
		BatchSize:    100,
		BatchTimeout: 5 * time.Second,
		QueueDepth:   1000,
	}
}

// IndexedLine is one search hit from the scrollback index.
type IndexedLine struct {
	Line      int64
	Timestamp time.Time
	Text      string
}

type pendingLine struct {
	line int64
	when time.Time
	text string
}

// ScrollbackIndex maintains a trigram FTS5 index of scrollback lines.
// Lines are queued and written in batches off the emulation thread; the
// emulation never blocks on the database.
type ScrollbackIndex struct {
	config ScrollbackIndexConfig
	db     *sql.DB

	queue   chan pendingLine
	stopCh  chan struct{}
	doneCh  chan struct{}
	flushCh chan chan struct{}

	mu sync.RWMutex
}

const scrollbackIndexSchema = `
CREATE TABLE IF NOT EXISTS scrollback (
    line INTEGER PRIMARY KEY,
    stamp INTEGER NOT NULL,
    text TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_scrollback_stamp ON scrollback(stamp);

CREATE VIRTUAL TABLE IF NOT EXISTS scrollback_fts USING fts5(
    text,
    content='scrollback',
    content_rowid='line',
    tokenize='trigram'
);

CREATE TRIGGER IF NOT EXISTS scrollback_ai AFTER INSERT ON scrollback BEGIN
    INSERT INTO scrollback_fts(rowid, text) VALUES (new.line, new.text);
END;
CREATE TRIGGER IF NOT EXISTS scrollback_au AFTER UPDATE ON scrollback BEGIN
    INSERT INTO scrollback_fts(scrollback_fts, rowid, text) VALUES ('delete', old.line, old.text);
    INSERT INTO scrollback_fts(rowid, text) VALUES (new.line, new.text);
END;
CREATE TRIGGER IF NOT EXISTS scrollback_ad AFTER DELETE ON scrollback BEGIN
    INSERT INTO scrollback_fts(scrollback_fts, rowid, text) VALUES ('delete', old.line, old.text);
END;
`

// NewScrollbackIndex opens (creating if needed) the index at dbPath.
func NewScrollbackIndex(dbPath string) (*ScrollbackIndex, error) {
	return NewScrollbackIndexWithConfig(DefaultScrollbackIndexConfig(dbPath))
}

// NewScrollbackIndexWithConfig opens an index with explicit tuning.
func NewScrollbackIndexWithConfig(config ScrollbackIndexConfig) (*ScrollbackIndex, error) {
	if err := os.MkdirAll(filepath.Dir(config.DBPath), 0o755); err != nil {
		return nil, fmt.Errorf("create index directory: %w", err)
	}

	dsn := config.DBPath +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_pragma=temp_store(MEMORY)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open index database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to index database: %w", err)
	}
	if _, err := db.Exec(scrollbackIndexSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index schema: %w", err)
	}

	idx := &ScrollbackIndex{
		config:  config,
		db:      db,
		queue:   make(chan pendingLine, config.QueueDepth),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
		flushCh: make(chan chan struct{}),
	}
	go idx.writer()
	return idx, nil
}

// IndexLine queues the text of an absolute scrollback line for indexing.
// When the queue is full the line is dropped rather than blocking the
// emulation.
func (idx *ScrollbackIndex) IndexLine(line int64, text string) {
	if text == "" {
		return
	}
	select {
	case idx.queue <- pendingLine{line: line, when: time.Now(), text: text}:
	default:
	}
}

// IndexHistory decodes every line currently held in scrollback and
// queues it, starting the line numbering at base.
func (idx *ScrollbackIndex) IndexHistory(scroll HistoryScroll, base int64) {
	for i := 0; i < scroll.GetLines(); i++ {
		length := scroll.GetLineLen(i)
		if length == 0 {
			continue
		}
		var b strings.Builder
		dec := NewPlainTextDecoder()
		dec.Begin(&b)
		dec.DecodeLine(scroll.GetCells(i, 0, length), LineDefault)
		dec.End()
		idx.IndexLine(base+int64(i), b.String())
	}
}

func (idx *ScrollbackIndex) writer() {
	defer close(idx.doneCh)

	batch := make([]pendingLine, 0, idx.config.BatchSize)
	timer := time.NewTimer(idx.config.BatchTimeout)
	defer timer.Stop()

	flush := func() {
		if len(batch) > 0 {
			idx.writeBatch(batch)
			batch = batch[:0]
		}
	}

	for {
		select {
		case entry := <-idx.queue:
			batch = append(batch, entry)
			if len(batch) >= idx.config.BatchSize {
				flush()
				timer.Reset(idx.config.BatchTimeout)
			}
		case <-timer.C:
			flush()
			timer.Reset(idx.config.BatchTimeout)
		case done := <-idx.flushCh:
			for {
				select {
				case entry := <-idx.queue:
					batch = append(batch, entry)
					continue
				default:
				}
				break
			}
			flush()
			close(done)
		case <-idx.stopCh:
			for {
				select {
				case entry := <-idx.queue:
					batch = append(batch, entry)
				default:
					flush()
					return
				}
			}
		}
	}
}

func (idx *ScrollbackIndex) writeBatch(batch []pendingLine) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	tx, err := idx.db.Begin()
	if err != nil {
		log.Printf("[vt] scrollback index begin failed: %v", err)
		return
	}
	stmt, err := tx.Prepare("INSERT OR REPLACE INTO scrollback (line, stamp, text) VALUES (?, ?, ?)")
	if err != nil {
		log.Printf("[vt] scrollback index prepare failed: %v", err)
		tx.Rollback()
		return
	}
	defer stmt.Close()

	for _, e := range batch {
		if _, err := stmt.Exec(e.line, e.when.UnixNano(), e.text); err != nil {
			log.Printf("[vt] scrollback index insert failed for line %d: %v", e.line, err)
			tx.Rollback()
			return
		}
	}
	if err := tx.Commit(); err != nil {
		log.Printf("[vt] scrollback index commit failed: %v", err)
	}
}

// Search returns up to limit lines containing query as a substring,
// newest first. Queries shorter than the trigram minimum fall back to a
// LIKE scan.
func (idx *ScrollbackIndex) Search(query string, limit int) ([]IndexedLine, error) {
	if query == "" {
		return nil, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var rows *sql.Rows
	var err error
	if len(query) < 3 {
		pattern := "%" + strings.ReplaceAll(strings.ReplaceAll(query, "%", `\%`), "_", `\_`) + "%"
		rows, err = idx.db.Query(`
			SELECT line, stamp, text FROM scrollback
			WHERE text LIKE ? ESCAPE '\'
			ORDER BY stamp DESC LIMIT ?`, pattern, limit)
	} else {
		quoted := `"` + strings.ReplaceAll(query, `"`, `""`) + `"`
		rows, err = idx.db.Query(`
			SELECT s.line, s.stamp, s.text
			FROM scrollback_fts JOIN scrollback s ON s.line = scrollback_fts.rowid
			WHERE scrollback_fts MATCH ?
			ORDER BY s.stamp DESC LIMIT ?`, quoted, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("scrollback search: %w", err)
	}
	defer rows.Close()

	var results []IndexedLine
	for rows.Next() {
		var r IndexedLine
		var stamp int64
		if err := rows.Scan(&r.Line, &stamp, &r.Text); err != nil {
			continue
		}
		r.Timestamp = time.Unix(0, stamp)
		results = append(results, r)
	}
	return results, rows.Err()
}

// DeleteLine removes a line, keeping the index consistent with a
// cleared scrollback.
func (idx *ScrollbackIndex) DeleteLine(line int64) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	_, err := idx.db.Exec("DELETE FROM scrollback WHERE line = ?", line)
	return err
}

// Flush blocks until queued lines are written.
func (idx *ScrollbackIndex) Flush() {
	done := make(chan struct{})
	select {
	case idx.flushCh <- done:
		<-done
	case <-idx.stopCh:
	}
}

// Close flushes and closes the database.
func (idx *ScrollbackIndex) Close() error {
	close(idx.stopCh)
	<-idx.doneCh
	return idx.db.Close()
}
