package indexdb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/WirelessLan/AAFDynamicPositioner/internal/host"
	"github.com/WirelessLan/AAFDynamicPositioner/internal/positioner"
)

func entry(seq uint64, cmd positioner.Command, res positioner.Result) positioner.Entry {
	return positioner.Entry{
		Seq:     seq,
		Time:    "2026-01-02T03:04:05Z",
		Command: cmd,
		Result:  res,
		Digest:  "d",
	}
}

func TestSQLiteIndex_CommandsAndScenes(t *testing.T) {
	idx, err := OpenSQLite(filepath.Join(t.TempDir(), "index", "journal.sqlite"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer idx.Close()

	entries := []positioner.Entry{
		entry(1, positioner.Command{Kind: positioner.KindSetEnabled, Enabled: true}, positioner.Result{Enabled: true}),
		entry(2, positioner.Command{Kind: positioner.KindSceneStart, Actors: []host.ActorID{0x14, 0x20, 0x14}}, positioner.Result{Scene: 1}),
		entry(3, positioner.Command{Kind: positioner.KindSceneStart, Actors: []host.ActorID{0x30}}, positioner.Result{Scene: 2}),
		entry(4, positioner.Command{Kind: positioner.KindPhaseChange, Profile: "bed", Actors: []host.ActorID{0x20}}, positioner.Result{}),
		entry(5, positioner.Command{Kind: positioner.KindSceneEnd, Actors: []host.ActorID{0x30}}, positioner.Result{}),
	}
	for _, e := range entries {
		if err := idx.WriteEntry(e); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	ctx := context.Background()
	cmds, err := idx.Commands(ctx, "", 10)
	if err != nil {
		t.Fatalf("commands: %v", err)
	}
	if len(cmds) != 5 || cmds[0].Seq != 5 || cmds[4].Seq != 1 {
		t.Fatalf("commands=%+v", cmds)
	}
	starts, err := idx.Commands(ctx, string(positioner.KindSceneStart), 10)
	if err != nil {
		t.Fatalf("commands by kind: %v", err)
	}
	if len(starts) != 2 {
		t.Fatalf("scene starts=%d want 2", len(starts))
	}

	scenes, err := idx.Scenes(ctx, false)
	if err != nil {
		t.Fatalf("scenes: %v", err)
	}
	if len(scenes) != 2 {
		t.Fatalf("scenes=%+v", scenes)
	}
	if scenes[0].SceneID != 1 || scenes[0].Profile != "bed" || scenes[0].Actors != 2 || scenes[0].EndedSeq != 0 {
		t.Fatalf("scene 1=%+v", scenes[0])
	}
	if scenes[1].SceneID != 2 || scenes[1].EndedSeq != 5 {
		t.Fatalf("scene 2=%+v", scenes[1])
	}

	open, err := idx.Scenes(ctx, true)
	if err != nil {
		t.Fatalf("open scenes: %v", err)
	}
	if len(open) != 1 || open[0].SceneID != 1 {
		t.Fatalf("open scenes=%+v", open)
	}
}

func TestSQLiteIndex_ResetEndsOpenScenes(t *testing.T) {
	idx, err := OpenSQLite(filepath.Join(t.TempDir(), "journal.sqlite"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer idx.Close()

	_ = idx.WriteEntry(entry(1, positioner.Command{Kind: positioner.KindSceneStart, Actors: []host.ActorID{1, 2}}, positioner.Result{Scene: 1}))
	_ = idx.WriteEntry(entry(2, positioner.Command{Kind: positioner.KindReset}, positioner.Result{}))
	_ = idx.WriteEntry(entry(3, positioner.Command{Kind: positioner.KindSceneStart, Actors: []host.ActorID{1}}, positioner.Result{Scene: 1}))

	open, err := idx.Scenes(context.Background(), true)
	if err != nil {
		t.Fatalf("scenes: %v", err)
	}
	// Scene ids restart after a reset, so the row is replaced by the new scene.
	if len(open) != 1 || open[0].StartedSeq != 3 || open[0].Actors != 1 {
		t.Fatalf("open scenes=%+v", open)
	}
}

func TestSQLiteIndex_QueueDropStats(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan req, 1)}
	s.ch <- req{kind: reqEntry}

	_ = s.WriteEntry(positioner.Entry{Seq: 2})
	_ = s.WriteEntry(positioner.Entry{Seq: 3})

	st := s.Stats()
	if st.DropEntryTotal != 2 {
		t.Fatalf("DropEntryTotal=%d want=2", st.DropEntryTotal)
	}
	if st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Fatalf("queue stats mismatch: depth=%d cap=%d", st.QueueDepth, st.QueueCapacity)
	}
}

func TestSQLiteIndex_NilAndClosedAreNoops(t *testing.T) {
	var s *SQLiteIndex
	if err := s.WriteEntry(positioner.Entry{}); err != nil {
		t.Fatalf("nil write: %v", err)
	}
	idx, err := OpenSQLite(filepath.Join(t.TempDir(), "journal.sqlite"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := idx.WriteEntry(positioner.Entry{Seq: 1}); err != nil {
		t.Fatalf("closed write: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}
