package host

import (
	"sort"
	"sync"

	"github.com/WirelessLan/AAFDynamicPositioner/internal/geom"
)

// Actor is the state Memory keeps for one actor.
type Actor struct {
	ID ActorID `json:"id"`

	BaseScale  float64   `json:"base_scale"`
	RefScale   float64   `json:"ref_scale"`
	NodeScales []float64 `json:"node_scales,omitempty"`

	Angle float64   `json:"angle"`
	Pos   geom.Vec3 `json:"pos"`
	Path  PathID    `json:"path,omitempty"`
}

// Hooks observe writes made through the Host interface. Any field may be nil.
type Hooks struct {
	Goal     func(path PathID, pos geom.Vec3)
	Move     func(id ActorID, axis geom.Axis, value float64)
	RefScale func(id ActorID, scale float64)
}

// Memory is an in-process Host. It backs tests and replay, and mirrors a remote host's
// state for the websocket transport. Safe for concurrent use.
type Memory struct {
	mu sync.Mutex

	protagonist ActorID
	actors      map[ActorID]*Actor
	goals       map[PathID]geom.Vec3
	nextPath    PathID
	autoCreate  bool
	hooks       Hooks
}

func NewMemory() *Memory {
	return &Memory{
		actors: map[ActorID]*Actor{},
		goals:  map[PathID]geom.Vec3{},
	}
}

// SetAutoCreate makes lookups of unknown actors create a natural-scale actor with a fresh
// render-position handle. Replay uses it to stand in for a host it cannot observe.
func (m *Memory) SetAutoCreate(on bool) {
	m.mu.Lock()
	m.autoCreate = on
	m.mu.Unlock()
}

func (m *Memory) SetHooks(h Hooks) {
	m.mu.Lock()
	m.hooks = h
	m.mu.Unlock()
}

func (m *Memory) SetProtagonist(id ActorID) {
	m.mu.Lock()
	m.protagonist = id
	m.mu.Unlock()
}

// PutActor inserts or replaces an actor. Zero BaseScale/RefScale are treated as 1.
// A non-zero Path registers that handle with the actor's position as its goal unless the
// handle is already known.
func (m *Memory) PutActor(a Actor) {
	if a.BaseScale == 0 {
		a.BaseScale = 1
	}
	if a.RefScale == 0 {
		a.RefScale = 1
	}
	a.NodeScales = append([]float64(nil), a.NodeScales...)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.actors[a.ID] = &a
	if a.Path != 0 {
		if _, ok := m.goals[a.Path]; !ok {
			m.goals[a.Path] = a.Pos
		}
		if a.Path > m.nextPath {
			m.nextPath = a.Path
		}
	}
}

func (m *Memory) RemoveActor(id ActorID) {
	m.mu.Lock()
	delete(m.actors, id)
	m.mu.Unlock()
}

// Actor returns a copy of the actor's state.
func (m *Memory) Actor(id ActorID) (Actor, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.actors[id]
	if !ok {
		return Actor{}, false
	}
	out := *a
	out.NodeScales = append([]float64(nil), a.NodeScales...)
	return out, true
}

// Actors returns all actor ids in ascending order.
func (m *Memory) Actors() []ActorID {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ActorID, 0, len(m.actors))
	for id := range m.actors {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IssuePath gives the actor a new render-position handle whose goal is goal, replacing any
// previous handle. This is what the host does when a scene enters a new phase.
func (m *Memory) IssuePath(id ActorID, goal geom.Vec3) PathID {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.lookupLocked(id)
	if a == nil {
		return 0
	}
	return m.issueLocked(a, goal)
}

func (m *Memory) DropPath(id ActorID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.actors[id]; ok {
		delete(m.goals, a.Path)
		a.Path = 0
	}
}

func (m *Memory) SetAngle(id ActorID, theta float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a := m.lookupLocked(id); a != nil {
		a.Angle = theta
	}
}

func (m *Memory) SetNodeScales(id ActorID, chain ...float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a := m.lookupLocked(id); a != nil {
		a.NodeScales = append([]float64(nil), chain...)
	}
}

func (m *Memory) Protagonist() ActorID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.protagonist
}

func (m *Memory) ActualScale(id ActorID) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.lookupLocked(id)
	if a == nil {
		return 0
	}
	return EffectiveScale(a.BaseScale*a.RefScale, a.NodeScales...)
}

func (m *Memory) RefScale(id ActorID) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.lookupLocked(id)
	if a == nil {
		return 0
	}
	return a.RefScale
}

func (m *Memory) SetRefScale(id ActorID, scale float64) {
	m.mu.Lock()
	a := m.lookupLocked(id)
	if a == nil {
		m.mu.Unlock()
		return
	}
	a.RefScale = scale
	hook := m.hooks.RefScale
	m.mu.Unlock()

	if hook != nil {
		hook(id, scale)
	}
}

func (m *Memory) Angle(id ActorID) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a := m.lookupLocked(id); a != nil {
		return a.Angle
	}
	return 0
}

func (m *Memory) Path(id ActorID) (PathID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.lookupLocked(id)
	if a == nil || a.Path == 0 {
		return 0, false
	}
	return a.Path, true
}

func (m *Memory) GoalPos(path PathID) (geom.Vec3, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.goals[path]
	return v, ok
}

func (m *Memory) SetGoalPos(path PathID, pos geom.Vec3) bool {
	m.mu.Lock()
	if _, ok := m.goals[path]; !ok {
		m.mu.Unlock()
		return false
	}
	m.goals[path] = pos
	hook := m.hooks.Goal
	m.mu.Unlock()

	if hook != nil {
		hook(path, pos)
	}
	return true
}

func (m *Memory) MovePos(id ActorID, axis geom.Axis, value float64) {
	m.mu.Lock()
	a := m.lookupLocked(id)
	if a == nil {
		m.mu.Unlock()
		return
	}
	a.Pos = geom.WithAxis(a.Pos, axis, value)
	hook := m.hooks.Move
	m.mu.Unlock()

	if hook != nil {
		hook(id, axis, value)
	}
}

func (m *Memory) lookupLocked(id ActorID) *Actor {
	if id == 0 {
		return nil
	}
	if a, ok := m.actors[id]; ok {
		return a
	}
	if !m.autoCreate {
		return nil
	}
	a := &Actor{ID: id, BaseScale: 1, RefScale: 1}
	m.actors[id] = a
	m.issueLocked(a, geom.Vec3{})
	return a
}

func (m *Memory) issueLocked(a *Actor, goal geom.Vec3) PathID {
	if a.Path != 0 {
		delete(m.goals, a.Path)
	}
	m.nextPath++
	a.Path = m.nextPath
	m.goals[a.Path] = goal
	return a.Path
}
