package bridge

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/WirelessLan/AAFDynamicPositioner/internal/geom"
	"github.com/WirelessLan/AAFDynamicPositioner/internal/host"
	"github.com/WirelessLan/AAFDynamicPositioner/internal/positioner"
)

func newBridge(t *testing.T) (*Bridge, *positioner.Registry, *host.Memory) {
	t.Helper()
	quiet := log.New(io.Discard, "", 0)
	mem := host.NewMemory()
	for _, id := range []host.ActorID{0x14, 0x20, 0x30} {
		mem.PutActor(host.Actor{ID: id})
		mem.IssuePath(id, geom.Vec3{})
	}
	mem.SetProtagonist(0x14)
	reg := positioner.New(positioner.Options{Host: mem, Settings: positioner.DefaultSettings(), Logger: quiet})
	b := New(Options{
		Commander: positioner.Sync(reg),
		Indicator: Indicator{Plugin: "AAFDynamicPositioner.esp", Movable: 0x810, Immovable: 0x811},
		Logger:    quiet,
	})
	return b, reg, mem
}

func call(t *testing.T, b *Bridge, name string, args ...any) any {
	t.Helper()
	v, err := b.Call(context.Background(), name, args)
	if err != nil {
		t.Fatalf("%s: %v", name, err)
	}
	return v
}

func TestBridge_SceneLifecycle(t *testing.T) {
	b, reg, _ := newBridge(t)

	if got := call(t, b, "IsEnabled"); got != false {
		t.Fatalf("IsEnabled=%v", got)
	}
	call(t, b, "SetEnabled", true)
	if !reg.Enabled() {
		t.Fatalf("SetEnabled did not enable")
	}

	id := call(t, b, "SceneInit", []any{float64(0x20), float64(0x30)})
	if id != int64(1) {
		t.Fatalf("SceneInit=%v want 1", id)
	}
	call(t, b, "AnimationChange", "bed", []any{float64(0x30), float64(0x20)})
	sc, ok := reg.Scene(1)
	if !ok || sc.Profile != "bed" {
		t.Fatalf("scene after phase change=%+v ok=%v", sc, ok)
	}

	if got := call(t, b, "GetSelectedActor"); got != nil {
		t.Fatalf("GetSelectedActor before selection=%v", got)
	}
	if got := call(t, b, "CanMove"); got != int64(positioner.NoSelection) {
		t.Fatalf("CanMove=%v", got)
	}
	if got := call(t, b, "ChangeSelectedActor"); got != int64(0x30) {
		t.Fatalf("ChangeSelectedActor=%v want 0x30", got)
	}
	if got := call(t, b, "AAFDynamicPositioner.GetSelectedActor"); got != int64(0x30) {
		t.Fatalf("GetSelectedActor=%v", got)
	}

	call(t, b, "SceneEnd", []any{float64(0x20)})
	if len(reg.SceneIDs()) != 0 {
		t.Fatalf("scene not ended")
	}
	if got := call(t, b, "SceneInit", []any{}); got != nil {
		t.Fatalf("empty SceneInit=%v", got)
	}
}

func TestBridge_HighlightIndicator(t *testing.T) {
	b, _, _ := newBridge(t)
	if got := call(t, b, "GetHighlightIndicator", true); got != "AAFDynamicPositioner.esp" {
		t.Fatalf("plugin=%v", got)
	}
	if err := b.DoString(`
		function indicatorString()
			local p, id = AAFDynamicPositioner.GetHighlightIndicator(false)
			return p .. "|" .. string.format("%08X", id)
		end
	`); err != nil {
		t.Fatalf("lua: %v", err)
	}
	if got := call(t, b, "indicatorString"); got != "AAFDynamicPositioner.esp|00000811" {
		t.Fatalf("indicator=%v", got)
	}
}

func TestBridge_ScriptFunctionsAndErrors(t *testing.T) {
	b, reg, _ := newBridge(t)
	dir := t.TempDir()
	script := filepath.Join(dir, "hooks.lua")
	src := `
function StartPair(a, b)
  AAFDynamicPositioner.SetEnabled(true)
  return AAFDynamicPositioner.SceneInit({a, b})
end
`
	if err := os.WriteFile(script, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := b.LoadScript(script); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := call(t, b, "StartPair", float64(0x20), float64(0x30)); got != int64(1) {
		t.Fatalf("StartPair=%v", got)
	}
	if !reg.Enabled() || len(reg.SceneIDs()) != 1 {
		t.Fatalf("script did not drive the registry")
	}

	if _, err := b.Call(context.Background(), "Nope", nil); !errors.Is(err, ErrUnknownFunction) {
		t.Fatalf("unknown function err=%v", err)
	}
	if _, err := b.Call(context.Background(), "SceneEnd", []any{"x"}); err == nil {
		t.Fatalf("SceneEnd with a string should fail")
	}
	if err := b.LoadScript(filepath.Join(dir, "missing.lua")); err == nil {
		t.Fatalf("missing script should fail")
	}
}
