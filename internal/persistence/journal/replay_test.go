package journal

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/WirelessLan/AAFDynamicPositioner/internal/geom"
	"github.com/WirelessLan/AAFDynamicPositioner/internal/host"
	"github.com/WirelessLan/AAFDynamicPositioner/internal/offsets"
	"github.com/WirelessLan/AAFDynamicPositioner/internal/positioner"
)

func replayRegistry(t *testing.T) *positioner.Registry {
	t.Helper()
	quiet := log.New(io.Discard, "", 0)
	mem := host.NewMemory()
	mem.SetAutoCreate(true)
	settings := positioner.DefaultSettings()
	settings.NPCMode = positioner.Absolute
	return positioner.New(positioner.Options{
		Host:     mem,
		Store:    offsets.NewStore(t.TempDir(), quiet),
		Settings: settings,
		Logger:   quiet,
	})
}

func TestReplayMatchesRecordedRun(t *testing.T) {
	dir := t.TempDir()
	reg := replayRegistry(t)
	rt := positioner.NewRuntime(reg, log.New(io.Discard, "", 0))
	w := NewWriter(dir)
	rt.AddSink(w)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go func() { _ = rt.Run(ctx) }()

	cmds := []positioner.Command{
		{Kind: positioner.KindSetEnabled, Enabled: true},
		{Kind: positioner.KindSceneStart, Actors: []host.ActorID{0x20, 0x30}},
		{Kind: positioner.KindPhaseChange, Profile: "bed", Actors: []host.ActorID{0x30, 0x20}},
		{Kind: positioner.KindAdvance},
		{Kind: positioner.KindSetOffset, Axis: geom.AxisX, Value: 4},
		{Kind: positioner.KindCanMove},
		{Kind: positioner.KindAdvance},
		{Kind: positioner.KindSetOffset, Axis: geom.AxisZ, Value: -1},
		{Kind: positioner.KindSceneStart, Actors: []host.ActorID{0x40}},
		{Kind: positioner.KindSceneEnd, Actors: []host.ActorID{0x20}},
	}
	for _, c := range cmds {
		if _, err := rt.Do(ctx, c); err != nil {
			t.Fatalf("%s: %v", c.Kind, err)
		}
	}
	rt.Stop()
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	st, err := Replay(dir, replayRegistry(t), ReplayOptions{})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	// CAN_MOVE is a query and is not journaled.
	if st.Applied != len(cmds)-1 || st.Checked != st.Applied || st.LastSeq != uint64(len(cmds)-1) {
		t.Fatalf("stats=%+v", st)
	}

	st, err = Replay(dir, replayRegistry(t), ReplayOptions{FromSeq: 3, ToSeq: 4})
	if err != nil {
		t.Fatalf("windowed replay: %v", err)
	}
	if st.Checked != 2 || st.Applied != len(cmds)-1 {
		t.Fatalf("windowed stats=%+v", st)
	}
}

func TestReplayDetectsDivergenceAndRestarts(t *testing.T) {
	probe := replayRegistry(t)
	probe.SetEnabled(true)
	enabled := probe.Digest()
	probe.Reset()
	fresh := probe.Digest()

	dir := t.TempDir()
	w := NewWriter(dir)
	entries := []positioner.Entry{
		{Seq: 1, Command: positioner.Command{Kind: positioner.KindSetEnabled, Enabled: true}, Digest: enabled},
		{Seq: 2, Command: positioner.Command{Kind: positioner.KindReset}, Digest: fresh},
		{Seq: 1, Command: positioner.Command{Kind: positioner.KindSetEnabled, Enabled: true}, Digest: enabled},
	}
	for _, e := range entries {
		if err := w.WriteEntry(e); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	st, err := Replay(dir, replayRegistry(t), ReplayOptions{})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if st.Restarts != 1 || st.Checked != 3 {
		t.Fatalf("stats=%+v", st)
	}

	bad := t.TempDir()
	w = NewWriter(bad)
	_ = w.WriteEntry(positioner.Entry{Seq: 1, Command: positioner.Command{Kind: positioner.KindSetEnabled, Enabled: true}, Digest: fresh})
	_ = w.Close()
	if _, err := Replay(bad, replayRegistry(t), ReplayOptions{}); !errors.Is(err, ErrDigestMismatch) {
		t.Fatalf("want digest mismatch, got %v", err)
	}

	gap := t.TempDir()
	w = NewWriter(gap)
	_ = w.WriteEntry(positioner.Entry{Seq: 1, Command: positioner.Command{Kind: positioner.KindSetEnabled, Enabled: true}, Digest: enabled})
	_ = w.WriteEntry(positioner.Entry{Seq: 3, Command: positioner.Command{Kind: positioner.KindReset}, Digest: fresh})
	_ = w.Close()
	if _, err := Replay(gap, replayRegistry(t), ReplayOptions{}); err == nil {
		t.Fatalf("sequence gap not reported")
	}
}
