package panel

import (
	"log"
	"sync"
)

// LayerName labels the input-enable layer held while the panel is open.
const LayerName = "AAF Dynamic Positioner Menu Input Layer"

// reservedHandlers menu handlers at the front of the host's list are never touched.
const reservedHandlers = 8

// Controls is the host's player-control and menu-handler switchboard.
type Controls interface {
	BlockPlayerControls(block bool)
	MenuHandlers() []bool
	SetMenuHandler(i int, enabled bool)
}

// GateObserver is implemented by Controls that mirror a remote host. GateChanged runs after
// Acquire or Release has finished, with the layer that was claimed or given back.
type GateObserver interface {
	GateChanged(held bool, layer Layer)
}

// Gate takes input away from the game while the panel is open and gives it back on close.
type Gate struct {
	mu       sync.Mutex
	controls Controls
	layers   *Layers
	log      *log.Logger

	held  bool
	layer int
	saved map[int]bool
}

func NewGate(controls Controls, layers *Layers, logger *log.Logger) *Gate {
	if logger == nil {
		logger = log.Default()
	}
	return &Gate{controls: controls, layers: layers, log: logger, layer: -1}
}

// Acquire blocks player controls, disables the non-reserved menu handlers and claims an
// input-enable layer with menu, fighting and POV change events off. Calling it again while
// held does nothing.
func (g *Gate) Acquire() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held {
		return
	}
	g.held = true

	if g.controls != nil {
		g.controls.BlockPlayerControls(true)
		g.saved = map[int]bool{}
		handlers := g.controls.MenuHandlers()
		for i := reservedHandlers; i < len(handlers); i++ {
			g.saved[i] = handlers[i]
			g.controls.SetMenuHandler(i, false)
		}
	}

	g.layer = -1
	if g.layers != nil {
		idx, ok := g.layers.Acquire(LayerName, UserMenu|UserFighting, OtherPOVChange)
		if !ok {
			g.log.Printf("no free input-enable layer")
		}
		g.layer = idx
	}
	g.notifyLocked(g.layer)
}

// Release undoes Acquire. Menu handlers get back the state they had before.
func (g *Gate) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.held {
		return
	}
	g.held = false

	if g.controls != nil {
		g.controls.BlockPlayerControls(false)
		n := len(g.controls.MenuHandlers())
		for i, enabled := range g.saved {
			if i < n {
				g.controls.SetMenuHandler(i, enabled)
			}
		}
	}
	g.saved = nil

	released := g.layer
	if g.layer >= 0 && g.layers != nil {
		g.layers.Release(g.layer)
	}
	g.layer = -1
	g.notifyLocked(released)
}

func (g *Gate) notifyLocked(idx int) {
	obs, ok := g.controls.(GateObserver)
	if !ok {
		return
	}
	ly := Layer{Index: -1}
	if idx >= 0 && g.layers != nil {
		if got, ok := g.layers.Get(idx); ok {
			ly = got
		}
	}
	obs.GateChanged(g.held, ly)
}

func (g *Gate) Held() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.held
}

// Layer is the index of the held input-enable layer, or -1.
func (g *Gate) Layer() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.layer
}

// MemoryControls is an in-process Controls.
type MemoryControls struct {
	mu       sync.Mutex
	blocked  bool
	handlers []bool
}

func NewMemoryControls(handlers []bool) *MemoryControls {
	return &MemoryControls{handlers: append([]bool(nil), handlers...)}
}

func (m *MemoryControls) BlockPlayerControls(block bool) {
	m.mu.Lock()
	m.blocked = block
	m.mu.Unlock()
}

func (m *MemoryControls) Blocked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.blocked
}

func (m *MemoryControls) MenuHandlers() []bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]bool(nil), m.handlers...)
}

func (m *MemoryControls) SetMenuHandler(i int, enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i >= 0 && i < len(m.handlers) {
		m.handlers[i] = enabled
	}
}

func (m *MemoryControls) SetMenuHandlers(handlers []bool) {
	m.mu.Lock()
	m.handlers = append([]bool(nil), handlers...)
	m.mu.Unlock()
}
