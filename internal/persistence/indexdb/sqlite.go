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

	"github.com/WirelessLan/AAFDynamicPositioner/internal/host"
	"github.com/WirelessLan/AAFDynamicPositioner/internal/positioner"
)

// SQLiteIndex is a queryable read model of the command journal. The journal files stay the
// source of truth; entries are dropped when the writer falls behind.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropEntries atomic.Uint64
}

type reqKind int

const (
	reqEntry reqKind = iota + 1
	reqFlush
)

type req struct {
	kind  reqKind
	entry positioner.Entry
	done  chan struct{}
}

type Stats struct {
	DropEntryTotal uint64 `json:"drop_entry_total"`
	QueueDepth     int    `json:"queue_depth"`
	QueueCapacity  int    `json:"queue_capacity"`
}

type CommandRow struct {
	Seq    uint64 `json:"seq"`
	Time   string `json:"time"`
	Kind   string `json:"kind"`
	Digest string `json:"digest"`
	Raw    string `json:"raw"`
}

type SceneRow struct {
	SceneID    uint32 `json:"scene_id"`
	StartedSeq uint64 `json:"started_seq"`
	EndedSeq   uint64 `json:"ended_seq,omitempty"`
	Profile    string `json:"profile,omitempty"`
	Actors     int    `json:"actors"`
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
		"PRAGMA foreign_keys=ON;",
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
		`CREATE TABLE IF NOT EXISTS commands (
			seq INTEGER PRIMARY KEY,
			time TEXT NOT NULL,
			kind TEXT NOT NULL,
			digest TEXT NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS commands_kind ON commands(kind, seq);`,
		`CREATE TABLE IF NOT EXISTS scenes (
			scene_id INTEGER PRIMARY KEY,
			started_seq INTEGER NOT NULL,
			ended_seq INTEGER,
			profile TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE TABLE IF NOT EXISTS scene_actors (
			scene_id INTEGER NOT NULL,
			actor_id INTEGER NOT NULL,
			slot INTEGER NOT NULL,
			PRIMARY KEY (scene_id, actor_id)
		);`,
		`INSERT OR IGNORE INTO meta(key,value) VALUES('schema_version','1');`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
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

// WriteEntry queues e for indexing. It never blocks the caller.
func (s *SQLiteIndex) WriteEntry(e positioner.Entry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqEntry, entry: e}:
	default:
		s.dropEntries.Add(1)
	}
	return nil
}

// Flush waits until every entry queued before it is committed.
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
	if s == nil {
		return Stats{}
	}
	return Stats{
		DropEntryTotal: s.dropEntries.Load(),
		QueueDepth:     len(s.ch),
		QueueCapacity:  cap(s.ch),
	}
}

// Commands returns the most recent entries, newest first. An empty kind matches all.
func (s *SQLiteIndex) Commands(ctx context.Context, kind string, limit int) ([]CommandRow, error) {
	if limit <= 0 {
		limit = 50
	}
	if err := s.Flush(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq,time,kind,digest,raw_json FROM commands WHERE (?1 = '' OR kind = ?1) ORDER BY seq DESC LIMIT ?2`,
		kind, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CommandRow
	for rows.Next() {
		var r CommandRow
		if err := rows.Scan(&r.Seq, &r.Time, &r.Kind, &r.Digest, &r.Raw); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Scenes lists indexed scenes in id order. When open is set, ended scenes are left out.
func (s *SQLiteIndex) Scenes(ctx context.Context, open bool) ([]SceneRow, error) {
	if err := s.Flush(ctx); err != nil {
		return nil, err
	}
	onlyOpen := 0
	if open {
		onlyOpen = 1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.scene_id, s.started_seq, COALESCE(s.ended_seq, 0), s.profile,
			(SELECT COUNT(*) FROM scene_actors a WHERE a.scene_id = s.scene_id)
		FROM scenes s
		WHERE (?1 = 0 OR s.ended_seq IS NULL)
		ORDER BY s.scene_id`, onlyOpen)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SceneRow
	for rows.Next() {
		var r SceneRow
		if err := rows.Scan(&r.SceneID, &r.StartedSeq, &r.EndedSeq, &r.Profile, &r.Actors); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertCommand, _ := s.db.Prepare(`INSERT OR REPLACE INTO commands(seq,time,kind,digest,raw_json) VALUES(?,?,?,?,?)`)
	insertScene, _ := s.db.Prepare(`INSERT OR REPLACE INTO scenes(scene_id,started_seq,ended_seq,profile) VALUES(?,?,NULL,'')`)
	deleteActors, _ := s.db.Prepare(`DELETE FROM scene_actors WHERE scene_id=?`)
	insertActor, _ := s.db.Prepare(`INSERT OR REPLACE INTO scene_actors(scene_id,actor_id,slot) VALUES(?,?,?)`)
	updateProfile, _ := s.db.Prepare(`UPDATE scenes SET profile=? WHERE scene_id=?`)
	endScene, _ := s.db.Prepare(`UPDATE scenes SET ended_seq=? WHERE scene_id=? AND ended_seq IS NULL`)
	clearScenes, _ := s.db.Prepare(`UPDATE scenes SET ended_seq=? WHERE ended_seq IS NULL`)
	defer func() {
		for _, st := range []*sql.Stmt{insertCommand, insertScene, deleteActors, insertActor, updateProfile, endScene, clearScenes} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = 2 * time.Second

		// Scene membership as seen by the index, used to resolve PHASE_CHANGE and SCENE_END
		// which only name actors.
		sceneOf = map[host.ActorID]positioner.SceneID{}
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
	exec := func(st *sql.Stmt, args ...any) bool {
		if st == nil {
			return true
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			rollback()
			return false
		}
		opCount++
		return true
	}
	sceneFor := func(actors []host.ActorID) (positioner.SceneID, bool) {
		for _, a := range actors {
			if id, ok := sceneOf[a]; ok {
				return id, true
			}
		}
		return 0, false
	}

	ticker := time.NewTicker(commitMaxWait / 4)
	defer ticker.Stop()

	for {
		var r req
		select {
		case <-ticker.C:
			flushIfNeeded()
			continue
		case rr, ok := <-s.ch:
			if !ok {
				commit()
				return
			}
			r = rr
		}
		if r.kind == reqFlush {
			commit()
			close(r.done)
			continue
		}
		begin()
		if tx == nil {
			continue
		}
		e := r.entry
		raw, _ := json.Marshal(e)
		if !exec(insertCommand, int64(e.Seq), e.Time, string(e.Command.Kind), e.Digest, string(raw)) {
			continue
		}

		switch e.Command.Kind {
		case positioner.KindSceneStart:
			id := e.Result.Scene
			if id == 0 {
				break
			}
			if !exec(insertScene, int64(id), int64(e.Seq)) || !exec(deleteActors, int64(id)) {
				continue
			}
			for slot, a := range e.Command.Actors {
				if _, taken := sceneOf[a]; taken || a == 0 {
					continue
				}
				sceneOf[a] = id
				if !exec(insertActor, int64(id), int64(a), slot) {
					break
				}
			}
		case positioner.KindPhaseChange:
			if id, ok := sceneFor(e.Command.Actors); ok {
				exec(updateProfile, e.Command.Profile, int64(id))
			}
		case positioner.KindSceneEnd:
			if id, ok := sceneFor(e.Command.Actors); ok {
				if exec(endScene, int64(e.Seq), int64(id)) {
					for a, sid := range sceneOf {
						if sid == id {
							delete(sceneOf, a)
						}
					}
				}
			}
		case positioner.KindReset:
			if exec(clearScenes, int64(e.Seq)) {
				clear(sceneOf)
			}
		}
		flushIfNeeded()
	}
}
