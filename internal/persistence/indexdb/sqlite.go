package indexdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/RedstoneFuture/missilewars-sub001/internal/protocol"
)

// SQLiteIndex is a queryable read model of placements. Writes are queued to
// a single writer goroutine and dropped when the queue is full; the JSONL
// placement log remains the source of truth.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropPlacement atomic.Uint64
	dropCleanup   atomic.Uint64
}

type reqKind int

const (
	reqPlacement reqKind = iota + 1
	reqCleanup
	reqFlush
)

type req struct {
	kind reqKind

	placement protocol.PlacementEvent
	cleanup   protocol.CleanupEvent
	done      chan struct{}
}

type Stats struct {
	QueueDepth         int
	QueueCapacity      int
	DropPlacementTotal uint64
	DropCleanupTotal   uint64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	return openSQLite(path, 65536)
}

func openSQLite(path string, queue int) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection for the writer goroutine, one for readers (WAL).
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{db: db, ch: make(chan req, queue)}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS placements (
			id TEXT PRIMARY KEY,
			tick INTEGER NOT NULL,
			arena TEXT NOT NULL,
			world TEXT NOT NULL,
			structure TEXT NOT NULL,
			display_name TEXT NOT NULL,
			player_id TEXT NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			z INTEGER NOT NULL,
			rotation INTEGER NOT NULL,
			facing TEXT NOT NULL,
			color TEXT NOT NULL,
			engine TEXT NOT NULL,
			placed INTEGER NOT NULL,
			skipped INTEGER NOT NULL,
			code TEXT NOT NULL,
			message TEXT NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_placements_tick ON placements(tick);`,
		`CREATE INDEX IF NOT EXISTS idx_placements_arena_tick ON placements(arena, tick);`,
		`CREATE TABLE IF NOT EXISTS cleanups (
			placement_id TEXT PRIMARY KEY,
			tick INTEGER NOT NULL,
			world TEXT NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			z INTEGER NOT NULL,
			outcome TEXT NOT NULL,
			cleared INTEGER NOT NULL
		);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) RecordPlacement(ev protocol.PlacementEvent) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqPlacement, placement: ev}:
	default:
		s.dropPlacement.Add(1)
	}
}

func (s *SQLiteIndex) RecordCleanup(ev protocol.CleanupEvent) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqCleanup, cleanup: ev}:
	default:
		s.dropCleanup.Add(1)
	}
}

// Flush blocks until every queued write is committed or ctx ends.
func (s *SQLiteIndex) Flush(ctx context.Context) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	done := make(chan struct{})
	select {
	case s.ch <- req{kind: reqFlush, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SQLiteIndex) Stats() Stats {
	return Stats{
		QueueDepth:         len(s.ch),
		QueueCapacity:      cap(s.ch),
		DropPlacementTotal: s.dropPlacement.Load(),
		DropCleanupTotal:   s.dropCleanup.Load(),
	}
}

// PlacementRow is a placement joined with its cleanup, if any.
type PlacementRow struct {
	protocol.PlacementEvent
	RecordedAt     string `json:"recorded_at"`
	CleanupOutcome string `json:"cleanup_outcome,omitempty"`
	Cleared        int    `json:"cleared"`
}

// RecentPlacements returns up to limit placements, newest first. An empty
// arena matches every arena.
func (s *SQLiteIndex) RecentPlacements(ctx context.Context, arena string, limit int) ([]PlacementRow, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id,p.tick,p.arena,p.world,p.structure,p.display_name,p.player_id,
		       p.x,p.y,p.z,p.rotation,p.facing,p.color,p.engine,p.placed,p.skipped,
		       p.code,p.message,p.recorded_at,
		       COALESCE(c.outcome,''),COALESCE(c.cleared,0)
		FROM placements p LEFT JOIN cleanups c ON c.placement_id = p.id
		WHERE (?1 = '' OR p.arena = ?1)
		ORDER BY p.tick DESC, p.recorded_at DESC
		LIMIT ?2`, arena, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PlacementRow
	for rows.Next() {
		var r PlacementRow
		var tick int64
		if err := rows.Scan(
			&r.PlacementID, &tick, &r.Arena, &r.World, &r.Structure, &r.DisplayName, &r.PlayerID,
			&r.Origin[0], &r.Origin[1], &r.Origin[2], &r.Rotation, &r.Facing, &r.Color, &r.Engine,
			&r.Placed, &r.Skipped, &r.Code, &r.Message, &r.RecordedAt,
			&r.CleanupOutcome, &r.Cleared,
		); err != nil {
			return nil, err
		}
		r.Type = protocol.TypePlacement
		r.Tick = uint64(tick)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertPlacement, _ := s.db.Prepare(`INSERT OR REPLACE INTO placements(id,tick,arena,world,structure,display_name,player_id,x,y,z,rotation,facing,color,engine,placed,skipped,code,message,recorded_at) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	insertCleanup, _ := s.db.Prepare(`INSERT OR REPLACE INTO cleanups(placement_id,tick,world,x,y,z,outcome,cleared) VALUES(?,?,?,?,?,?,?,?)`)
	defer func() {
		if insertPlacement != nil {
			_ = insertPlacement.Close()
		}
		if insertCleanup != nil {
			_ = insertCleanup.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	for r := range s.ch {
		if r.kind == reqFlush {
			commit()
			close(r.done)
			continue
		}
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqPlacement:
			p := r.placement
			if insertPlacement != nil {
				if _, err := tx.Stmt(insertPlacement).Exec(
					p.PlacementID,
					int64(p.Tick),
					p.Arena,
					p.World,
					p.Structure,
					p.DisplayName,
					p.PlayerID,
					p.Origin[0], p.Origin[1], p.Origin[2],
					p.Rotation,
					p.Facing,
					p.Color,
					p.Engine,
					p.Placed,
					p.Skipped,
					p.Code,
					p.Message,
					time.Now().UTC().Format(time.RFC3339Nano),
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}

		case reqCleanup:
			c := r.cleanup
			if insertCleanup != nil {
				if _, err := tx.Stmt(insertCleanup).Exec(
					c.PlacementID,
					int64(c.Tick),
					c.World,
					c.Anchor[0], c.Anchor[1], c.Anchor[2],
					c.Outcome,
					c.Cleared,
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}
		}
		flushIfNeeded()
	}

	commit()
}
