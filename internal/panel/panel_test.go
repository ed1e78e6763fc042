package panel

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/WirelessLan/AAFDynamicPositioner/internal/geom"
	"github.com/WirelessLan/AAFDynamicPositioner/internal/host"
	"github.com/WirelessLan/AAFDynamicPositioner/internal/i18n"
	"github.com/WirelessLan/AAFDynamicPositioner/internal/offsets"
	"github.com/WirelessLan/AAFDynamicPositioner/internal/positioner"
	"github.com/WirelessLan/AAFDynamicPositioner/internal/protocol"
)

type recSink struct {
	mu  sync.Mutex
	out []any
}

func (s *recSink) Send(v any) bool {
	s.mu.Lock()
	s.out = append(s.out, v)
	s.mu.Unlock()
	return true
}

func (s *recSink) take() []any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.out
	s.out = nil
	return out
}

func quiet() *log.Logger { return log.New(io.Discard, "", 0) }

func newPanel(t *testing.T) (*Panel, *recSink, *MemoryControls, *Layers) {
	t.Helper()
	controls := NewMemoryControls([]bool{true, true, true, true, true, true, true, true, true, false, true})
	layers := NewLayers(3)
	p := New(NewGate(controls, layers, quiet()), nil, quiet())
	s := &recSink{}
	p.Attach(s)
	return p, s, controls, layers
}

func TestPanelOpenUpdateClose(t *testing.T) {
	p, s, controls, layers := newPanel(t)

	p.Update(geom.Vec3{1, 1, 1})
	if got := s.take(); len(got) != 0 {
		t.Fatalf("update on a closed panel sent %v", got)
	}

	p.Open(geom.Vec3{1, 2, 3})
	p.Open(geom.Vec3{1, 2, 3})
	got := s.take()
	if len(got) != 1 || got[0] != offsetMsg(protocol.TypeOpen, geom.Vec3{1, 2, 3}) {
		t.Fatalf("open sent %v", got)
	}
	if !controls.Blocked() {
		t.Fatalf("player controls not blocked")
	}
	h := controls.MenuHandlers()
	for i := 0; i < reservedHandlers; i++ {
		if !h[i] {
			t.Fatalf("reserved handler %d disabled", i)
		}
	}
	for i := reservedHandlers; i < len(h); i++ {
		if h[i] {
			t.Fatalf("handler %d still enabled", i)
		}
	}
	ly, _ := layers.Get(0)
	if ly.State != LayerInUse || ly.Name != LayerName || ly.UserDisabled != UserMenu|UserFighting || ly.OtherDisabled != OtherPOVChange {
		t.Fatalf("layer=%+v", ly)
	}

	p.Update(geom.Vec3{0, 0, 9})
	if got := s.take(); len(got) != 1 || got[0] != offsetMsg(protocol.TypeUpdate, geom.Vec3{0, 0, 9}) {
		t.Fatalf("update sent %v", got)
	}

	p.Close()
	p.Close()
	if got := s.take(); len(got) != 1 || got[0] != (protocol.CloseMsg{Type: protocol.TypeClose}) {
		t.Fatalf("close sent %v", got)
	}
	if controls.Blocked() {
		t.Fatalf("player controls still blocked")
	}
	want := []bool{true, true, true, true, true, true, true, true, true, false, true}
	h = controls.MenuHandlers()
	for i := range want {
		if h[i] != want[i] {
			t.Fatalf("handler %d=%v want %v", i, h[i], want[i])
		}
	}
	if ly, _ := layers.Get(0); ly != (Layer{Index: 0, State: LayerFree}) {
		t.Fatalf("layer not restored: %+v", ly)
	}
}

func TestPanelInitAndInput(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "Menu_en.txt"), []byte("$X\tX axis\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cat := i18n.NewCatalog(i18n.NewLoader(dir, "Menu", "en", quiet()))
	if err := cat.Reload("en"); err != nil {
		t.Fatalf("reload: %v", err)
	}
	p := New(nil, cat, quiet())
	s := &recSink{}
	p.Attach(s)

	p.Open(geom.Vec3{4, 5, 6})
	s.take()

	p.Input(protocol.InputMsg{Type: protocol.TypeInput, Device: protocol.DeviceKeyboard, Code: 0x57, Down: true})
	if got := s.take(); len(got) != 0 {
		t.Fatalf("keys forwarded before INIT: %v", got)
	}

	p.Init()
	got := s.take()
	if len(got) != 2 {
		t.Fatalf("init sent %v", got)
	}
	data, ok := got[0].(protocol.InitDataMsg)
	if !ok || data.Language != "en" || data.Localizations["$X"] != "X axis" {
		t.Fatalf("init data=%+v", got[0])
	}
	if got[1] != offsetMsg(protocol.TypeUpdate, geom.Vec3{4, 5, 6}) {
		t.Fatalf("init offset=%+v", got[1])
	}

	p.Input(protocol.InputMsg{Type: protocol.TypeInput, Device: protocol.DeviceKeyboard, Code: 0x57, Down: true})
	p.Input(protocol.InputMsg{Type: protocol.TypeInput, Device: protocol.DeviceGamepad, Code: 0x2000, Down: false})
	p.Input(protocol.InputMsg{Type: protocol.TypeInput, Device: protocol.DeviceKeyboard, Code: 400, Down: true})
	got = s.take()
	want := []any{
		protocol.KeyMsg{Type: protocol.TypeKey, Code: KeyUp, Down: true},
		protocol.KeyMsg{Type: protocol.TypeKey, Code: KeyTab, Down: false},
	}
	if len(got) != len(want) {
		t.Fatalf("keys=%v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("key %d=%+v want %+v", i, got[i], want[i])
		}
	}
}

func TestDetachClosesPanel(t *testing.T) {
	p, s, controls, _ := newPanel(t)
	p.Open(geom.Vec3{})
	p.Detach(&recSink{})
	if !p.IsOpen() {
		t.Fatalf("detaching a stale sink closed the panel")
	}
	p.Detach(s)
	if p.IsOpen() || controls.Blocked() {
		t.Fatalf("panel still open after detach")
	}
}

func TestGateWithoutFreeLayer(t *testing.T) {
	layers := NewLayers(1)
	if _, ok := layers.Acquire("other", UserMovement, 0); !ok {
		t.Fatalf("first acquire failed")
	}
	g := NewGate(nil, layers, quiet())
	g.Acquire()
	if !g.Held() || g.Layer() != -1 {
		t.Fatalf("held=%v layer=%d", g.Held(), g.Layer())
	}
	g.Release()
	if ly, _ := layers.Get(0); ly.State != LayerInUse || ly.Name != "other" {
		t.Fatalf("foreign layer touched: %+v", ly)
	}
}

func TestLayersConcurrentAcquire(t *testing.T) {
	const n = 16
	layers := NewLayers(n)
	var wg sync.WaitGroup
	got := make(chan int, 2*n)
	for i := 0; i < 2*n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if idx, ok := layers.Acquire(LayerName, UserMenu, 0); ok {
				got <- idx
			}
		}()
	}
	wg.Wait()
	close(got)
	seen := map[int]bool{}
	for idx := range got {
		if seen[idx] {
			t.Fatalf("layer %d handed out twice", idx)
		}
		seen[idx] = true
	}
	if len(seen) != n {
		t.Fatalf("acquired %d layers, want %d", len(seen), n)
	}
}

func TestKeyTranslation(t *testing.T) {
	cases := []struct {
		device string
		code   uint32
		want   uint32
		ok     bool
	}{
		{protocol.DeviceKeyboard, 0x57, KeyUp, true},
		{protocol.DeviceKeyboard, 0x53, KeyDown, true},
		{protocol.DeviceKeyboard, 0x41, KeyLeft, true},
		{protocol.DeviceKeyboard, 0x44, KeyRight, true},
		{protocol.DeviceKeyboard, 0x45, KeyEnter, true},
		{protocol.DeviceKeyboard, 0x20, 0x20, true},
		{protocol.DeviceKeyboard, 300, 0, false},
		{protocol.DeviceMouse, 0, 256, true},
		{protocol.DeviceMouse, 9, 265, true},
		{protocol.DeviceGamepad, 0x0001, KeyUp, true},
		{protocol.DeviceGamepad, 0x0008, KeyRight, true},
		{protocol.DeviceGamepad, 0x1000, KeyEnter, true},
		{protocol.DeviceGamepad, 0x2000, KeyTab, true},
		{protocol.DeviceGamepad, 0x0010, GamepadStart, true},
		{protocol.DeviceGamepad, 0x9, GamepadLT, true},
		{protocol.DeviceGamepad, 0xA, 281, true},
		{protocol.DeviceGamepad, 0x0400, 0, false},
	}
	for _, tc := range cases {
		k, ok := ButtonEvent(tc.device, tc.code, true)
		if ok != tc.ok || (ok && k.Code != tc.want) {
			t.Fatalf("%s %#x: got %#x,%v want %#x,%v", tc.device, tc.code, k.Code, ok, tc.want, tc.ok)
		}
	}
}

func TestThumbstickEvents(t *testing.T) {
	eq := func(a, b []KeyEvent) bool {
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if a[i] != b[i] {
				return false
			}
		}
		return true
	}
	if got := ThumbstickEvents(DirNone, DirUp); !eq(got, []KeyEvent{{KeyUp, true}}) {
		t.Fatalf("press: %v", got)
	}
	if got := ThumbstickEvents(DirLeft, DirNone); !eq(got, []KeyEvent{{KeyLeft, false}}) {
		t.Fatalf("release: %v", got)
	}
	all := []KeyEvent{{KeyLeft, false}, {KeyUp, false}, {KeyRight, false}, {KeyDown, false}}
	if got := ThumbstickEvents(DirNone, DirNone); !eq(got, all) {
		t.Fatalf("neutral: %v", got)
	}
}

func TestDispatch(t *testing.T) {
	h := host.NewMemory()
	h.PutActor(host.Actor{ID: 0xA, RefScale: 0.9})
	h.IssuePath(0xA, geom.Vec3{})
	store := offsets.NewStore(t.TempDir(), quiet())
	p, s, _, _ := newPanel(t)
	reg := positioner.New(positioner.Options{Host: h, Store: store, Panel: p, Settings: positioner.DefaultSettings(), Logger: quiet()})
	reg.SceneStart([]host.ActorID{0xA}, 0)
	reg.PhaseChange("bed", []host.ActorID{0xA})
	reg.SetEnabled(true)
	reg.Advance()
	reg.ShowPanel()
	s.take()

	c := positioner.Sync(reg)
	ctx := context.Background()
	if e := p.Dispatch(ctx, c, protocol.TypeSetPosition, []byte(`{"type":"SET_POSITION","axis":"y","value":3}`)); e != nil {
		t.Fatalf("set position: %+v", e)
	}
	if a, _ := reg.Actor(0xA); a.Offset != (geom.Vec3{0, 3, 0}) {
		t.Fatalf("offset=%v", a.Offset)
	}
	if e := p.Dispatch(ctx, c, protocol.TypeUpdateSettings, []byte(`{"type":"UPDATE_SETTINGS","name":"bNope","value":1}`)); e == nil || e.Code != protocol.ErrUnknownSetting {
		t.Fatalf("bad setting: %+v", e)
	}
	if e := p.Dispatch(ctx, c, protocol.TypeUpdateSettings, []byte(`{"type":"UPDATE_SETTINGS","name":"iNPCPositionerType","value":1}`)); e != nil {
		t.Fatalf("update settings: %+v", e)
	}
	if reg.Settings().NPCMode != positioner.Absolute {
		t.Fatalf("settings=%+v", reg.Settings())
	}
	if e := p.Dispatch(ctx, c, protocol.TypeClearPosition, []byte(`{"type":"CLEAR_POSITION"}`)); e != nil {
		t.Fatalf("clear: %+v", e)
	}
	if a, _ := reg.Actor(0xA); a.Offset != (geom.Vec3{}) {
		t.Fatalf("offset after clear=%v", a.Offset)
	}
	if e := p.Dispatch(ctx, c, protocol.TypeThrow, []byte(`{"type":"THROW","message":"boom"}`)); e != nil {
		t.Fatalf("throw: %+v", e)
	}
	if p.IsOpen() {
		t.Fatalf("throw should close the panel")
	}
}
