// Package panel is the server side of the operator panel: open/update/close state pushed to
// the connected panel, the input gate that holds game input while it is open, and the
// translation of raw host input into panel navigation keys.
package panel

import (
	"log"
	"sync"

	"github.com/WirelessLan/AAFDynamicPositioner/internal/geom"
	"github.com/WirelessLan/AAFDynamicPositioner/internal/i18n"
	"github.com/WirelessLan/AAFDynamicPositioner/internal/protocol"
)

// Sink delivers messages to the connected panel. Send reports false when the message was
// dropped.
type Sink interface {
	Send(v any) bool
}

type Panel struct {
	mu     sync.Mutex
	open   bool
	ready  bool
	offset geom.Vec3
	sink   Sink

	gate *Gate
	cat  *i18n.Catalog
	log  *log.Logger
}

func New(gate *Gate, cat *i18n.Catalog, logger *log.Logger) *Panel {
	if logger == nil {
		logger = log.Default()
	}
	return &Panel{gate: gate, cat: cat, log: logger}
}

// Attach makes s the panel connection, replacing any previous one.
func (p *Panel) Attach(s Sink) {
	p.mu.Lock()
	p.sink = s
	p.mu.Unlock()
}

// Detach drops s if it is still the panel connection. An open panel is closed.
func (p *Panel) Detach(s Sink) {
	p.mu.Lock()
	if p.sink != s {
		p.mu.Unlock()
		return
	}
	p.sink = nil
	p.mu.Unlock()
	p.Close()
}

func (p *Panel) sendLocked(v any) {
	if p.sink == nil {
		return
	}
	if !p.sink.Send(v) {
		p.log.Printf("panel message dropped")
	}
}

func offsetMsg(typ string, o geom.Vec3) protocol.OffsetMsg {
	return protocol.OffsetMsg{Type: typ, Offset: [3]float64{o.X(), o.Y(), o.Z()}}
}

func (p *Panel) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.open
}

func (p *Panel) Offset() geom.Vec3 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.offset
}

// Open shows the panel with offset. Key events are held back until the panel sends INIT.
func (p *Panel) Open(offset geom.Vec3) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.offset = offset
	if p.open {
		return
	}
	p.open = true
	p.ready = false
	if p.gate != nil {
		p.gate.Acquire()
	}
	p.sendLocked(offsetMsg(protocol.TypeOpen, offset))
}

func (p *Panel) Update(offset geom.Vec3) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.open {
		return
	}
	p.offset = offset
	p.sendLocked(offsetMsg(protocol.TypeUpdate, offset))
}

func (p *Panel) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.open {
		return
	}
	p.open = false
	p.ready = false
	if p.gate != nil {
		p.gate.Release()
	}
	p.sendLocked(protocol.CloseMsg{Type: protocol.TypeClose})
}

// Init answers the panel's INIT: the language and localized strings, then the current offset.
func (p *Panel) Init() {
	var tab i18n.Table
	if p.cat != nil {
		tab = p.cat.Current()
	}
	if tab.Strings == nil {
		tab.Strings = map[string]string{}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ready = true
	p.sendLocked(protocol.InitDataMsg{
		Type:          protocol.TypeInitData,
		Language:      tab.Language,
		Localizations: tab.Strings,
	})
	p.sendLocked(offsetMsg(protocol.TypeUpdate, p.offset))
}

// Input forwards a raw host input event to the panel as navigation keys. Events are dropped
// unless the panel is open and initialized.
func (p *Panel) Input(ev protocol.InputMsg) {
	var keys []KeyEvent
	if ev.Device == protocol.DeviceThumbstick {
		keys = ThumbstickEvents(direction(ev.Prev), direction(ev.Curr))
	} else if k, ok := ButtonEvent(ev.Device, ev.Code, ev.Down); ok {
		keys = []KeyEvent{k}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.open || !p.ready {
		return
	}
	for _, k := range keys {
		p.sendLocked(protocol.KeyMsg{Type: protocol.TypeKey, Code: k.Code, Down: k.Down})
	}
}

func direction(s string) Direction {
	switch Direction(s) {
	case DirUp, DirDown, DirLeft, DirRight:
		return Direction(s)
	}
	return DirNone
}
