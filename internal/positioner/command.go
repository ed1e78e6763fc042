package positioner

import (
	"context"
	"fmt"
	"sync"

	"github.com/WirelessLan/AAFDynamicPositioner/internal/geom"
	"github.com/WirelessLan/AAFDynamicPositioner/internal/host"
)

type Kind string

const (
	KindSetEnabled    Kind = "SET_ENABLED"
	KindIsEnabled     Kind = "IS_ENABLED"
	KindSceneStart    Kind = "SCENE_START"
	KindPhaseChange   Kind = "PHASE_CHANGE"
	KindSceneEnd      Kind = "SCENE_END"
	KindCanMove       Kind = "CAN_MOVE"
	KindAdvance       Kind = "ADVANCE"
	KindCurrent       Kind = "CURRENT"
	KindSetOffset     Kind = "SET_OFFSET"
	KindClearOffset   Kind = "CLEAR_OFFSET"
	KindShowPanel     Kind = "SHOW_PANEL"
	KindUpdateSetting Kind = "UPDATE_SETTING"
	KindReset         Kind = "RESET"
	KindState         Kind = "STATE"
)

// Mutates reports whether commands of this kind can change registry state. Only those are
// journaled.
func (k Kind) Mutates() bool {
	switch k {
	case KindIsEnabled, KindCanMove, KindCurrent, KindState, KindShowPanel:
		return false
	}
	return true
}

// Command is one registry operation. Fields not used by Kind are left zero.
type Command struct {
	Kind    Kind           `json:"kind"`
	Enabled bool           `json:"enabled,omitempty"`
	Actors  []host.ActorID `json:"actors,omitempty"`
	StandIn host.ActorID   `json:"stand_in,omitempty"`
	Profile string         `json:"profile,omitempty"`
	Axis    geom.Axis      `json:"axis,omitempty"`
	Setting string         `json:"setting,omitempty"`
	Value   float64        `json:"value,omitempty"`
}

type Result struct {
	Enabled bool         `json:"enabled,omitempty"`
	Scene   SceneID      `json:"scene,omitempty"`
	Actor   host.ActorID `json:"actor,omitempty"`
	CanMove CanMove      `json:"can_move"`
	State   *State       `json:"state,omitempty"`
}

// Apply runs one command against the registry.
func (r *Registry) Apply(cmd Command) (Result, error) {
	var res Result
	switch cmd.Kind {
	case KindSetEnabled:
		r.SetEnabled(cmd.Enabled)
		res.Enabled = r.enabled
	case KindIsEnabled:
		res.Enabled = r.enabled
	case KindSceneStart:
		id, _ := r.SceneStart(cmd.Actors, cmd.StandIn)
		res.Scene = id
	case KindPhaseChange:
		r.PhaseChange(cmd.Profile, cmd.Actors)
	case KindSceneEnd:
		r.SceneEnd(cmd.Actors)
	case KindCanMove:
		res.CanMove = r.CanMove()
	case KindAdvance:
		res.Actor = r.Advance()
	case KindCurrent:
		res.Actor = r.Current()
	case KindSetOffset:
		if cmd.Axis.Index() < 0 {
			return res, fmt.Errorf("bad axis %q", cmd.Axis)
		}
		r.SetOffset(cmd.Axis, cmd.Value)
	case KindClearOffset:
		r.ClearOffset()
	case KindShowPanel:
		r.ShowPanel()
	case KindUpdateSetting:
		if err := r.UpdateSetting(cmd.Setting, cmd.Value); err != nil {
			return res, err
		}
	case KindReset:
		r.Reset()
	case KindState:
		st := r.State()
		res.State = &st
	default:
		return res, fmt.Errorf("unknown command %q", cmd.Kind)
	}
	return res, nil
}

// Commander is anything that can run registry commands.
type Commander interface {
	Do(ctx context.Context, cmd Command) (Result, error)
}

type syncCommander struct {
	mu  sync.Mutex
	reg *Registry
}

// Sync runs commands directly on reg under a mutex, for callers that do not run a Runtime.
func Sync(reg *Registry) Commander {
	return &syncCommander{reg: reg}
}

func (s *syncCommander) Do(ctx context.Context, cmd Command) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reg.Apply(cmd)
}
