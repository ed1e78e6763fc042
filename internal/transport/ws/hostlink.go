package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"

	"github.com/WirelessLan/AAFDynamicPositioner/internal/geom"
	"github.com/WirelessLan/AAFDynamicPositioner/internal/host"
	"github.com/WirelessLan/AAFDynamicPositioner/internal/i18n"
	"github.com/WirelessLan/AAFDynamicPositioner/internal/panel"
	"github.com/WirelessLan/AAFDynamicPositioner/internal/positioner"
	"github.com/WirelessLan/AAFDynamicPositioner/internal/protocol"
)

// Caller runs a scripting-bridge function by name.
type Caller interface {
	Call(ctx context.Context, name string, args []any) (any, error)
}

type HostOptions struct {
	Memory    *host.Memory
	Controls  *panel.MemoryControls
	Layers    *panel.Layers
	Commander positioner.Commander
	Panel     *panel.Panel
	Catalog   *i18n.Catalog
	Calls     Caller
	Logger    *log.Logger
}

// HostLink mirrors the connected host into a host.Memory and sends the writes the registry
// makes through it back to the host. It is also the gate's panel.Controls.
type HostLink struct {
	mem      *host.Memory
	controls *panel.MemoryControls
	layers   *panel.Layers
	cmd      positioner.Commander
	panel    *panel.Panel
	cat      *i18n.Catalog
	calls    Caller
	log      *log.Logger

	mu    sync.Mutex
	out   *outbox
	paths map[host.PathID]host.ActorID
}

func NewHostLink(opts HostOptions) *HostLink {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Controls == nil {
		opts.Controls = panel.NewMemoryControls(nil)
	}
	h := &HostLink{
		mem:      opts.Memory,
		controls: opts.Controls,
		layers:   opts.Layers,
		cmd:      opts.Commander,
		panel:    opts.Panel,
		cat:      opts.Catalog,
		calls:    opts.Calls,
		log:      opts.Logger,
		paths:    map[host.PathID]host.ActorID{},
	}
	h.mem.SetHooks(host.Hooks{
		Goal:     h.onGoal,
		Move:     h.onMove,
		RefScale: h.onRefScale,
	})
	return h
}

// SetCommander and SetCaller complete wiring that has to happen after construction.
func (h *HostLink) SetCommander(c positioner.Commander) { h.cmd = c }
func (h *HostLink) SetCaller(c Caller)                  { h.calls = c }
func (h *HostLink) SetPanel(p *panel.Panel)             { h.panel = p }

func (h *HostLink) attach(o *outbox) {
	h.mu.Lock()
	h.out = o
	h.mu.Unlock()
}

func (h *HostLink) detach(o *outbox) {
	h.mu.Lock()
	if h.out == o {
		h.out = nil
	}
	h.mu.Unlock()
}

func (h *HostLink) send(v any) {
	h.mu.Lock()
	o := h.out
	h.mu.Unlock()
	if o == nil {
		return
	}
	if !o.Send(v) {
		h.log.Printf("host message dropped")
	}
}

func (h *HostLink) onGoal(path host.PathID, pos geom.Vec3) {
	h.mu.Lock()
	id := h.paths[path]
	h.mu.Unlock()
	h.send(protocol.SetGoalMsg{
		Type: protocol.TypeSetGoal,
		ID:   uint32(id),
		Path: uint64(path),
		Pos:  [3]float64{pos.X(), pos.Y(), pos.Z()},
	})
}

func (h *HostLink) onMove(id host.ActorID, axis geom.Axis, value float64) {
	h.send(protocol.ModPosMsg{Type: protocol.TypeModPos, ID: uint32(id), Axis: string(axis), Value: value})
}

func (h *HostLink) onRefScale(id host.ActorID, scale float64) {
	h.send(protocol.SetRefScaleMsg{Type: protocol.TypeSetRefScale, ID: uint32(id), Scale: scale})
}

func (h *HostLink) BlockPlayerControls(block bool) { h.controls.BlockPlayerControls(block) }
func (h *HostLink) MenuHandlers() []bool           { return h.controls.MenuHandlers() }
func (h *HostLink) SetMenuHandler(i int, on bool)  { h.controls.SetMenuHandler(i, on) }

// GateChanged pushes the whole control state in one message once the gate has settled.
func (h *HostLink) GateChanged(held bool, layer panel.Layer) {
	h.send(protocol.ControlsMsg{
		Type:           protocol.TypeControls,
		BlockPlayer:    held,
		MenuHandlers:   h.controls.MenuHandlers(),
		Layer:          layer.Index,
		UserEventsOff:  layer.UserDisabled,
		OtherEventsOff: layer.OtherDisabled,
	})
}

func actorIDs(ids []uint32) []host.ActorID {
	out := make([]host.ActorID, len(ids))
	for i, id := range ids {
		out[i] = host.ActorID(id)
	}
	return out
}

// hello applies a validated HOST_HELLO.
func (h *HostLink) hello(m protocol.HostHelloMsg) {
	h.mem.SetProtagonist(host.ActorID(m.Protagonist))
	h.controls.SetMenuHandlers(m.MenuHandlers)
	if h.layers != nil {
		h.layers.Resize(m.InputLayers)
	}
	h.reloadCatalog(m.Language)
}

func (h *HostLink) reloadCatalog(lang string) {
	if h.cat == nil {
		return
	}
	if err := h.cat.Reload(lang); err != nil {
		h.log.Printf("translations: %v", err)
	}
}

// Handle runs one validated host message. A non-nil return is sent back as ERROR.
func (h *HostLink) Handle(ctx context.Context, typ string, raw []byte) *protocol.ErrorMsg {
	switch typ {
	case protocol.TypeActor:
		var m protocol.ActorMsg
		if err := json.Unmarshal(raw, &m); err != nil {
			return errMsg(protocol.ErrProtoBadRequest, err)
		}
		id := host.ActorID(m.Actor.ID)
		a := host.Actor{
			ID:         id,
			BaseScale:  m.Actor.BaseScale,
			RefScale:   m.Actor.RefScale,
			NodeScales: m.Actor.NodeScales,
			Angle:      m.Actor.Angle,
			Pos:        geom.Vec3(m.Actor.Pos),
		}
		if prev, ok := h.mem.Actor(id); ok {
			a.Path = prev.Path
		}
		h.mem.PutActor(a)

	case protocol.TypeActorRemove:
		var m protocol.ActorRemoveMsg
		if err := json.Unmarshal(raw, &m); err != nil {
			return errMsg(protocol.ErrProtoBadRequest, err)
		}
		id := host.ActorID(m.ID)
		h.mem.DropPath(id)
		h.mem.RemoveActor(id)
		h.forgetPaths(id)

	case protocol.TypePath:
		var m protocol.PathMsg
		if err := json.Unmarshal(raw, &m); err != nil {
			return errMsg(protocol.ErrProtoBadRequest, err)
		}
		id := host.ActorID(m.ID)
		h.forgetPaths(id)
		if m.Drop {
			h.mem.DropPath(id)
			return nil
		}
		path := h.mem.IssuePath(id, geom.Vec3(m.Goal))
		if path == 0 {
			e := protocol.NewError(protocol.ErrBadRequest, "unknown actor")
			return &e
		}
		h.mu.Lock()
		h.paths[path] = id
		h.mu.Unlock()

	case protocol.TypeSceneStart, protocol.TypePhaseChange, protocol.TypeSceneEnd:
		var m protocol.SceneMsg
		if err := json.Unmarshal(raw, &m); err != nil {
			return errMsg(protocol.ErrProtoBadRequest, err)
		}
		cmd := positioner.Command{Actors: actorIDs(m.Actors)}
		switch typ {
		case protocol.TypeSceneStart:
			cmd.Kind = positioner.KindSceneStart
			cmd.StandIn = host.ActorID(m.StandIn)
		case protocol.TypePhaseChange:
			cmd.Kind = positioner.KindPhaseChange
			cmd.Profile = m.Profile
		default:
			cmd.Kind = positioner.KindSceneEnd
		}
		return h.do(ctx, cmd)

	case protocol.TypeGameLoaded:
		var m protocol.LifecycleMsg
		_ = json.Unmarshal(raw, &m)
		h.reloadCatalog(m.Language)

	case protocol.TypeNewGame, protocol.TypePreLoadGame:
		if h.panel != nil {
			h.panel.Close()
		}
		return h.do(ctx, positioner.Command{Kind: positioner.KindReset})

	case protocol.TypeInput:
		var m protocol.InputMsg
		if err := json.Unmarshal(raw, &m); err != nil {
			return errMsg(protocol.ErrProtoBadRequest, err)
		}
		if h.panel != nil {
			h.panel.Input(m)
		}

	case protocol.TypeCall:
		var m protocol.CallMsg
		if err := json.Unmarshal(raw, &m); err != nil {
			return errMsg(protocol.ErrProtoBadRequest, err)
		}
		res := protocol.CallResultMsg{Type: protocol.TypeCallResult, ID: m.ID}
		if h.calls == nil {
			res.Error = protocol.ErrUnknownCall
		} else if v, err := h.calls.Call(ctx, m.Function, m.Args); err != nil {
			res.Error = err.Error()
		} else {
			res.Result = v
		}
		h.send(res)

	case protocol.TypeHostHello:
		var m protocol.HostHelloMsg
		if err := json.Unmarshal(raw, &m); err != nil {
			return errMsg(protocol.ErrProtoBadRequest, err)
		}
		h.hello(m)

	default:
		e := protocol.NewError(protocol.ErrProtoBadRequest, "unexpected message type "+typ)
		return &e
	}
	return nil
}

func (h *HostLink) forgetPaths(id host.ActorID) {
	h.mu.Lock()
	for p, owner := range h.paths {
		if owner == id {
			delete(h.paths, p)
		}
	}
	h.mu.Unlock()
}

func (h *HostLink) do(ctx context.Context, cmd positioner.Command) *protocol.ErrorMsg {
	if h.cmd == nil {
		e := protocol.NewError(protocol.ErrInternal, "no runtime")
		return &e
	}
	if _, err := h.cmd.Do(ctx, cmd); err != nil {
		if errors.Is(err, positioner.ErrStopped) {
			return errMsg(protocol.ErrStopped, err)
		}
		return errMsg(protocol.ErrBadRequest, err)
	}
	return nil
}

func errMsg(code string, err error) *protocol.ErrorMsg {
	e := protocol.NewError(code, err.Error())
	return &e
}
