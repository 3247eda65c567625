package indexdb

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"overburnt.game/internal/sim/catalogs"
	"overburnt.game/internal/sim/runtime"
	"overburnt.game/internal/sim/tuning"
)

func TestSQLiteIndex_RecordAttempt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	idx.RecordSession("S1", "p1", 42, 0)
	idx.RecordAttempt(runtime.Attempt{SessionID: "S1", LevelIndex: 0, LevelID: "L1", Result: "WON_GOOD", Revenue: 25, Fatigue: 12.5, Tick: 1200, Seed: 42})
	idx.RecordAttempt(runtime.Attempt{SessionID: "S1", LevelIndex: 1, LevelID: "L2", Result: "LOST_EXHAUSTION", Revenue: 3, Fatigue: 100, Tick: 900, Seed: 42})
	idx.RecordAttempt(runtime.Attempt{SessionID: "S2", LevelIndex: 0, LevelID: "L1", Result: "WON_GREAT", Revenue: 31, Tick: 1500, Seed: 7})
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	idx, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer idx.Close()

	got, err := idx.Attempts(context.Background(), "S1")
	if err != nil {
		t.Fatalf("Attempts: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("attempts: got %d want 2", len(got))
	}
	if got[0].Tick != 900 || got[0].Result != "LOST_EXHAUSTION" || got[0].Fatigue != 100 {
		t.Fatalf("first row mismatch: %+v", got[0])
	}
	if got[1].LevelID != "L1" || got[1].Revenue != 25 || got[1].Seed != 42 {
		t.Fatalf("second row mismatch: %+v", got[1])
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	defer db.Close()
	var name string
	var seed int64
	if err := db.QueryRow(`SELECT player_name,seed FROM sessions WHERE session_id='S1'`).Scan(&name, &seed); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if name != "p1" || seed != 42 {
		t.Fatalf("session row mismatch: name=%q seed=%d", name, seed)
	}
}

func TestSQLiteIndex_QueueDropStats(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan req, 1)}
	s.ch <- req{kind: reqAttempt}

	s.RecordAttempt(runtime.Attempt{SessionID: "S1"})
	s.RecordSession("S1", "p1", 1, 0)
	s.RecordSession("", "ignored", 1, 0)

	st := s.Stats()
	if st.DropAttemptTotal != 1 {
		t.Fatalf("DropAttemptTotal=%d want=1", st.DropAttemptTotal)
	}
	if st.DropSessionTotal != 1 {
		t.Fatalf("DropSessionTotal=%d want=1", st.DropSessionTotal)
	}
	if st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Fatalf("queue stats mismatch: depth=%d cap=%d", st.QueueDepth, st.QueueCapacity)
	}
}

func TestSQLiteIndex_UpsertCatalogs(t *testing.T) {
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	path := filepath.Join(t.TempDir(), "index.db")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer idx.Close()

	if err := idx.UpsertCatalogs("../../../configs", cats, tuning.Defaults(), "levels-digest"); err != nil {
		t.Fatalf("UpsertCatalogs: %v", err)
	}
	var n int
	if err := idx.db.QueryRow(`SELECT COUNT(*) FROM catalogs`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 5 {
		t.Fatalf("catalog rows: got %d want 5", n)
	}
	var digest string
	if err := idx.db.QueryRow(`SELECT digest FROM catalogs WHERE name='items_defs'`).Scan(&digest); err != nil {
		t.Fatalf("items digest: %v", err)
	}
	if digest != cats.Items.DefsDigest {
		t.Fatalf("items digest: got %s want %s", digest, cats.Items.DefsDigest)
	}
}

func TestSQLiteIndex_SessionsAndLevelResults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	idx.RecordSession("S1", "p1", 42, 0)
	idx.RecordSession("S2", "p2", 7, 1)
	idx.RecordAttempt(runtime.Attempt{SessionID: "S1", LevelIndex: 0, LevelID: "L1", Result: "WON_GOOD", Revenue: 20, Tick: 100})
	idx.RecordAttempt(runtime.Attempt{SessionID: "S1", LevelIndex: 0, LevelID: "L1", Result: "WON_GOOD", Revenue: 30, Tick: 200})
	idx.RecordAttempt(runtime.Attempt{SessionID: "S1", LevelIndex: 1, LevelID: "L2", Result: "LOST_EARNINGS", Revenue: 4, Tick: 300})
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	idx, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer idx.Close()
	ctx := context.Background()

	sessions, err := idx.Sessions(ctx, 10)
	if err != nil {
		t.Fatalf("Sessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("sessions: got %d want 2", len(sessions))
	}
	byID := map[string]SessionRow{}
	for _, s := range sessions {
		byID[s.ID] = s
	}
	if byID["S1"].Attempts != 3 || byID["S2"].Attempts != 0 {
		t.Fatalf("attempt counts: %+v", byID)
	}
	if byID["S2"].StartLevel != 1 || byID["S2"].PlayerName != "p2" {
		t.Fatalf("S2 row mismatch: %+v", byID["S2"])
	}

	results, err := idx.LevelResults(ctx)
	if err != nil {
		t.Fatalf("LevelResults: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("level results: got %d want 2", len(results))
	}
	if r := results[0]; r.LevelID != "L1" || r.Result != "WON_GOOD" || r.Count != 2 || r.AvgRevenue != 25 {
		t.Fatalf("L1 row mismatch: %+v", r)
	}
	if r := results[1]; r.LevelID != "L2" || r.Count != 1 {
		t.Fatalf("L2 row mismatch: %+v", r)
	}
}
