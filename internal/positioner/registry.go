// Package positioner tracks the actors taking part in concurrent scenes and applies
// per-slot position offsets to them.
//
// A Registry is owned by one goroutine. Runtime wraps it for use from anywhere else.
package positioner

import (
	"log"
	"math"
	"sort"

	"github.com/WirelessLan/AAFDynamicPositioner/internal/geom"
	"github.com/WirelessLan/AAFDynamicPositioner/internal/host"
	"github.com/WirelessLan/AAFDynamicPositioner/internal/offsets"
)

type Options struct {
	Host     host.Host
	Store    OffsetStore
	Panel    Panel
	Settings Settings
	Logger   *log.Logger
}

type Registry struct {
	host  host.Host
	store OffsetStore
	panel Panel
	log   *log.Logger

	settings Settings

	enabled   bool
	selected  host.ActorID
	nextScene SceneID
	actors    map[host.ActorID]*ActorRecord
	scenes    map[SceneID]*SceneRecord
}

func New(opts Options) *Registry {
	r := &Registry{
		host:     opts.Host,
		store:    opts.Store,
		panel:    opts.Panel,
		log:      opts.Logger,
		settings: opts.Settings,
	}
	if r.panel == nil {
		r.panel = noPanel{}
	}
	if r.log == nil {
		r.log = log.Default()
	}
	r.clear()
	return r
}

func (r *Registry) clear() {
	r.enabled = false
	r.selected = 0
	r.nextScene = 1
	r.actors = map[host.ActorID]*ActorRecord{}
	r.scenes = map[SceneID]*SceneRecord{}
}

// Reset forgets every scene and disables the feature. The scene counter starts over.
func (r *Registry) Reset() {
	r.clear()
}

func (r *Registry) Enabled() bool { return r.enabled }

// SetEnabled toggles the feature. Disabling drops the selection.
func (r *Registry) SetEnabled(on bool) {
	r.enabled = on
	if !on {
		r.selected = 0
	}
}

func (r *Registry) Settings() Settings { return r.settings }

func (r *Registry) UpdateSetting(name string, value float64) error {
	s := r.settings
	if err := s.Set(name, value); err != nil {
		return err
	}
	r.settings = s
	r.log.Printf("setting %s = %v", name, value)
	return nil
}

// Actor returns a copy of the record for id.
func (r *Registry) Actor(id host.ActorID) (ActorRecord, bool) {
	a := r.actors[id]
	if a == nil {
		return ActorRecord{}, false
	}
	return *a, true
}

// Scene returns a copy of the record for id.
func (r *Registry) Scene(id SceneID) (SceneRecord, bool) {
	sc := r.scenes[id]
	if sc == nil {
		return SceneRecord{}, false
	}
	out := *sc
	out.Actors = append([]host.ActorID(nil), sc.Actors...)
	return out, true
}

// SceneIDs lists live scenes in ascending order.
func (r *Registry) SceneIDs() []SceneID {
	ids := make([]SceneID, 0, len(r.scenes))
	for id := range r.scenes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// SceneStart registers a new scene. The protagonist is represented by standIn and is left
// out when standIn is 0. Actors already in a scene are skipped. Each kept actor's slot is its
// index in actors, so skipped entries leave gaps. It returns false when no actor could be
// registered, in which case no scene id is consumed.
func (r *Registry) SceneStart(actors []host.ActorID, standIn host.ActorID) (SceneID, bool) {
	if len(actors) == 0 {
		return 0, false
	}
	prot := r.host.Protagonist()

	var members []*ActorRecord
	seen := map[host.ActorID]bool{}
	for i, id := range actors {
		if id == 0 || seen[id] {
			continue
		}
		if _, taken := r.actors[id]; taken {
			r.log.Printf("scene start: actor %08X already in a scene, skipped", uint32(id))
			continue
		}
		handle := id
		if prot != 0 && id == prot {
			if standIn == 0 {
				r.log.Printf("scene start: no stand-in for protagonist %08X, skipped", uint32(id))
				continue
			}
			handle = standIn
			if r.settings.SyncStandInScale {
				r.syncScale(standIn, prot)
			}
		}
		seen[id] = true
		members = append(members, &ActorRecord{ID: id, Handle: handle, Slot: uint32(i)})
	}
	if len(members) == 0 {
		return 0, false
	}

	sc := &SceneRecord{ID: r.nextScene}
	r.nextScene++
	for _, a := range members {
		a.Scene = sc.ID
		r.actors[a.ID] = a
		sc.Actors = append(sc.Actors, a.ID)
	}
	r.scenes[sc.ID] = sc
	return sc.ID, true
}

// syncScale sets the stand-in's reference scale so its rendered scale matches target's,
// rounded to two decimals.
func (r *Registry) syncScale(standIn, target host.ActorID) {
	want := r.host.ActualScale(target)
	have := r.host.ActualScale(standIn)
	if want == have {
		return
	}
	ref := r.host.RefScale(standIn)
	if ref == 0 || have == 0 {
		return
	}
	base := have / ref
	r.host.SetRefScale(standIn, math.Round(want/base*100)/100)
}

// resolveScene finds the scene of the first registered actor in actors.
func (r *Registry) resolveScene(actors []host.ActorID) *SceneRecord {
	for _, id := range actors {
		if a := r.actors[id]; a != nil {
			return r.scenes[a.Scene]
		}
	}
	return nil
}

// PhaseChange re-slots a scene for a new animation phase, loads the offsets stored for
// profile and reapplies them. Listed actors take slot = position in actors; members that are
// not listed keep their offsets and follow with the next slots.
func (r *Registry) PhaseChange(profile string, actors []host.ActorID) {
	sc := r.resolveScene(actors)
	if sc == nil {
		return
	}

	fallback := make([]offsets.Record, 0, len(sc.Actors))
	for _, id := range sc.Actors {
		a := r.actors[id]
		fallback = append(fallback, offsets.Record{Slot: a.Slot, Offset: a.Offset})
	}

	sc.Profile = profile
	loaded := r.loadProfile(sc)

	slots := map[host.ActorID]uint32{}
	var order []host.ActorID
	for i, id := range actors {
		a := r.actors[id]
		if a == nil || a.Scene != sc.ID {
			continue
		}
		if _, dup := slots[id]; dup {
			continue
		}
		slots[id] = uint32(i)
		order = append(order, id)
	}
	next := uint32(len(actors))
	for _, id := range sc.Actors {
		if _, ok := slots[id]; ok {
			continue
		}
		slots[id] = next
		next++
		order = append(order, id)
	}
	sc.Actors = order

	for _, id := range order {
		a := r.actors[id]
		listed := slots[id] < uint32(len(actors))
		a.Slot = slots[id]
		if !listed {
			continue
		}
		if len(loaded) > 0 {
			a.Offset, _ = offsets.Find(loaded, a.Slot)
		} else {
			a.Offset, _ = offsets.Find(fallback, a.Slot)
		}
		if r.panel.IsOpen() && id == r.selected {
			r.panel.Update(a.Offset)
		}
		if !r.recapturePhase(a) {
			continue
		}
		r.apply(a)
	}
}

func (r *Registry) loadProfile(sc *SceneRecord) []offsets.Record {
	if r.store == nil || sc.Profile == "" {
		return nil
	}
	recs, err := r.store.Load(sc.Profile, r.usePlayerVariant(sc))
	if err != nil {
		r.log.Printf("load profile %q: %v", sc.Profile, err)
		return nil
	}
	return recs
}

// recapturePhase refreshes the captured original position at a phase transition. A handle
// that survived the transition gets its original goal back before the offset is reapplied.
// It reports false when the actor has neither a capture nor a live handle.
func (r *Registry) recapturePhase(a *ActorRecord) bool {
	path, live := r.host.Path(a.Handle)
	if !a.capture.valid && !live {
		return false
	}
	if a.capture.valid && live && a.capture.path == path {
		r.host.SetGoalPos(path, a.capture.original)
		return true
	}
	r.capture(a, path, live)
	return true
}

func (r *Registry) capture(a *ActorRecord, path host.PathID, live bool) {
	a.capture = capture{}
	if !live {
		return
	}
	if goal, ok := r.host.GoalPos(path); ok {
		a.capture = capture{path: path, original: goal, valid: true}
	}
}

// SceneEnd tears down the scene of the first registered actor in actors.
func (r *Registry) SceneEnd(actors []host.ActorID) {
	sc := r.resolveScene(actors)
	if sc == nil {
		return
	}
	for _, id := range sc.Actors {
		if id == r.selected {
			if r.panel.IsOpen() {
				r.panel.Close()
			}
			r.selected = 0
		}
		delete(r.actors, id)
	}
	delete(r.scenes, sc.ID)
}

func (r *Registry) protagonistRecord() *ActorRecord {
	prot := r.host.Protagonist()
	if prot == 0 {
		return nil
	}
	return r.actors[prot]
}

func (r *Registry) sceneHasProtagonist(id SceneID) bool {
	p := r.protagonistRecord()
	return p != nil && p.Scene == id
}

func (r *Registry) usePlayerVariant(sc *SceneRecord) bool {
	return r.settings.SeparatePlayerOffset && r.sceneHasProtagonist(sc.ID)
}

func (r *Registry) modeFor(a *ActorRecord) Mode {
	if r.sceneHasProtagonist(a.Scene) {
		return r.settings.PlayerMode
	}
	return r.settings.NPCMode
}

func (r *Registry) selectedRecord() *ActorRecord {
	if r.selected == 0 {
		return nil
	}
	return r.actors[r.selected]
}

// CanMove reports whether the selected actor may be moved.
func (r *Registry) CanMove() CanMove {
	if !r.enabled {
		return NoDisabled
	}
	a := r.selectedRecord()
	if a == nil {
		return NoSelection
	}
	if r.modeFor(a) == Relative && geom.IsNaturalScale(r.host.ActualScale(a.Handle)) {
		return NoScale
	}
	return Yes
}

// liveSelection returns the selected record when the feature is on and the actor still has
// a render-position handle, recapturing if the handle changed since the last capture.
func (r *Registry) liveSelection() *ActorRecord {
	if !r.enabled {
		return nil
	}
	a := r.selectedRecord()
	if a == nil {
		return nil
	}
	path, live := r.host.Path(a.Handle)
	if !live {
		return nil
	}
	if !a.capture.valid || a.capture.path != path {
		r.capture(a, path, true)
	}
	return a
}

// SetOffset changes one axis of the selected actor's offset, reapplies it and saves the
// scene's profile.
func (r *Registry) SetOffset(axis geom.Axis, value float64) {
	if axis.Index() < 0 {
		return
	}
	a := r.liveSelection()
	if a == nil {
		return
	}
	a.Offset = geom.WithAxis(a.Offset, axis, value)
	r.apply(a)
	r.persist(a.Scene)
}

// ClearOffset zeroes the selected actor's offset, reapplies it and saves the scene's profile.
func (r *Registry) ClearOffset() {
	a := r.liveSelection()
	if a == nil {
		return
	}
	a.Offset = geom.Vec3{}
	r.apply(a)
	r.persist(a.Scene)
}

// ShowPanel opens the operator panel on the selected actor.
func (r *Registry) ShowPanel() {
	a := r.liveSelection()
	if a == nil || r.panel.IsOpen() {
		return
	}
	r.panel.Open(a.Offset)
}

func (r *Registry) persist(id SceneID) {
	sc := r.scenes[id]
	if sc == nil || r.store == nil {
		return
	}
	if sc.Profile == "" {
		r.log.Printf("scene %d has no position profile yet, offsets not saved", sc.ID)
		return
	}
	lookup := func(id host.ActorID) (offsets.Record, bool) {
		a := r.actors[id]
		if a == nil {
			return offsets.Record{}, false
		}
		return offsets.Record{Slot: a.Slot, Offset: a.Offset}, true
	}
	if err := r.store.Save(sc.Profile, r.usePlayerVariant(sc), sc.Actors, lookup); err != nil {
		r.log.Printf("save profile %q: %v", sc.Profile, err)
	}
}
