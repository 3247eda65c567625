package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"overburnt.game/internal/sim/catalogs"
	"overburnt.game/internal/sim/runtime"
	"overburnt.game/internal/sim/tuning"
)

// SQLiteIndex is a write-behind read-model of sessions and finished level attempts.
// Writes never block the simulation; they are dropped when the writer falls behind.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropAttempt atomic.Uint64
	dropSession atomic.Uint64
}

type reqKind int

const (
	reqAttempt reqKind = iota + 1
	reqSession
)

type req struct {
	kind reqKind

	attempt runtime.Attempt
	session sessionRow
	at      string
}

type sessionRow struct {
	ID         string
	PlayerName string
	Seed       int64
	StartLevel int
}

type Stats struct {
	QueueDepth       int
	QueueCapacity    int
	DropAttemptTotal uint64
	DropSessionTotal uint64
}

type AttemptRow struct {
	SessionID  string
	LevelIndex int
	LevelID    string
	Result     string
	Revenue    int
	Fatigue    float64
	Tick       uint64
	Seed       int64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
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
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 4096),
	}
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
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			player_name TEXT NOT NULL,
			seed INTEGER NOT NULL,
			start_level INTEGER NOT NULL,
			started_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS attempts (
			session_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			level_index INTEGER NOT NULL,
			level_id TEXT NOT NULL,
			result TEXT NOT NULL,
			revenue INTEGER NOT NULL,
			fatigue REAL NOT NULL,
			seed INTEGER NOT NULL,
			recorded_at TEXT NOT NULL,
			PRIMARY KEY (session_id, tick)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_level_result ON attempts(level_id, result);`,
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

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:       len(s.ch),
		QueueCapacity:    cap(s.ch),
		DropAttemptTotal: s.dropAttempt.Load(),
		DropSessionTotal: s.dropSession.Load(),
	}
}

func now() string { return time.Now().UTC().Format(time.RFC3339Nano) }

// RecordAttempt implements runtime.AttemptSink.
func (s *SQLiteIndex) RecordAttempt(a runtime.Attempt) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqAttempt, attempt: a, at: now()}:
	default:
		s.dropAttempt.Add(1)
	}
}

func (s *SQLiteIndex) RecordSession(id, playerName string, seed int64, startLevel int) {
	if s == nil || s.closed.Load() || id == "" {
		return
	}
	r := sessionRow{ID: id, PlayerName: playerName, Seed: seed, StartLevel: startLevel}
	select {
	case s.ch <- req{kind: reqSession, session: r, at: now()}:
	default:
		s.dropSession.Add(1)
	}
}

// UpsertCatalogs stores the raw config documents a server run was started with.
func (s *SQLiteIndex) UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning, levelsDigest string) error {
	if s == nil {
		return nil
	}
	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	read := func(name, file, digest string) {
		if configDir == "" {
			return
		}
		b, err := os.ReadFile(filepath.Join(configDir, file))
		if err != nil {
			return
		}
		rows = append(rows, kv{name: name, digest: digest, json: b})
	}
	read("items_defs", "items.json", cats.Items.DefsDigest)
	read("recipes", "recipes.json", cats.Recipes.Digest)
	if b, _ := json.Marshal(cats.Items.Palette); len(b) > 0 {
		rows = append(rows, kv{name: "items_palette", digest: cats.Items.PaletteDigest, json: b})
	}
	if b, _ := json.Marshal(tune); len(b) > 0 {
		rows = append(rows, kv{name: "tuning", digest: tune.Digest(), json: b})
	}
	if b, err := os.ReadFile(filepath.Join(configDir, "levels.yaml")); err == nil && configDir != "" {
		if doc, err := json.Marshal(string(b)); err == nil {
			rows = append(rows, kv{name: "levels", digest: levelsDigest, json: doc})
		}
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	at := now()
	for _, r := range rows {
		if r.name == "" || r.digest == "" || len(r.json) == 0 {
			continue
		}
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), at); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Attempts lists the recorded attempts of a session in tick order.
func (s *SQLiteIndex) Attempts(ctx context.Context, sessionID string) ([]AttemptRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id,level_index,level_id,result,revenue,fatigue,tick,seed FROM attempts WHERE session_id=? ORDER BY tick`,
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AttemptRow
	for rows.Next() {
		var (
			r    AttemptRow
			tick int64
		)
		if err := rows.Scan(&r.SessionID, &r.LevelIndex, &r.LevelID, &r.Result, &r.Revenue, &r.Fatigue, &tick, &r.Seed); err != nil {
			return nil, err
		}
		r.Tick = uint64(tick)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertAttempt, _ := s.db.Prepare(`INSERT OR REPLACE INTO attempts(session_id,tick,level_index,level_id,result,revenue,fatigue,seed,recorded_at) VALUES(?,?,?,?,?,?,?,?,?)`)
	insertSession, _ := s.db.Prepare(`INSERT OR REPLACE INTO sessions(session_id,player_name,seed,start_level,started_at) VALUES(?,?,?,?,?)`)
	defer func() {
		if insertAttempt != nil {
			_ = insertAttempt.Close()
		}
		if insertSession != nil {
			_ = insertSession.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 256
		commitMaxWait = time.Second
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

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqAttempt:
			a := r.attempt
			if insertAttempt != nil {
				if _, err := tx.Stmt(insertAttempt).Exec(
					a.SessionID, int64(a.Tick), a.LevelIndex, a.LevelID, a.Result, a.Revenue, a.Fatigue, a.Seed, r.at,
				); err == nil {
					opCount++
				}
			}
		case reqSession:
			row := r.session
			if insertSession != nil {
				if _, err := tx.Stmt(insertSession).Exec(row.ID, row.PlayerName, row.Seed, row.StartLevel, r.at); err == nil {
					opCount++
				}
			}
		}
		// An idle queue commits right away so the read-model trails the game by at most one request.
		if len(s.ch) == 0 || opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}
	commit()
}

type SessionRow struct {
	ID         string
	PlayerName string
	Seed       int64
	StartLevel int
	StartedAt  string
	Attempts   int
}

// Sessions lists the most recent sessions first, with their attempt counts.
func (s *SQLiteIndex) Sessions(ctx context.Context, limit int) ([]SessionRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.session_id, s.player_name, s.seed, s.start_level, s.started_at, COUNT(a.tick)
		FROM sessions s LEFT JOIN attempts a ON a.session_id = s.session_id
		GROUP BY s.session_id
		ORDER BY s.started_at DESC, s.session_id
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionRow
	for rows.Next() {
		var r SessionRow
		if err := rows.Scan(&r.ID, &r.PlayerName, &r.Seed, &r.StartLevel, &r.StartedAt, &r.Attempts); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type LevelResultRow struct {
	LevelID    string
	Result     string
	Count      int
	AvgRevenue float64
}

// LevelResults aggregates attempts per level and result, for balancing the revenue thresholds.
func (s *SQLiteIndex) LevelResults(ctx context.Context) ([]LevelResultRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT level_id, result, COUNT(*), AVG(revenue)
		FROM attempts
		GROUP BY level_id, result
		ORDER BY MIN(level_index), level_id, result`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LevelResultRow
	for rows.Next() {
		var r LevelResultRow
		if err := rows.Scan(&r.LevelID, &r.Result, &r.Count, &r.AvgRevenue); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
