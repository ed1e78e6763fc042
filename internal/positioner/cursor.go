package positioner

import "github.com/WirelessLan/AAFDynamicPositioner/internal/host"

// Advance moves the selection to the next actor, walking scenes in ascending id order and
// each scene's actors in slot order, and wrapping at the end. Without a selection it starts
// at the protagonist's scene, or the lowest scene when the protagonist is not in one.
// It returns the live handle of the new selection, or 0.
func (r *Registry) Advance() host.ActorID {
	if !r.enabled {
		return 0
	}
	cur := r.selectedRecord()
	if cur == nil {
		r.selected = 0
		if p := r.protagonistRecord(); p != nil {
			if sc := r.scenes[p.Scene]; sc != nil && len(sc.Actors) > 0 {
				return r.selectActor(sc.Actors[0])
			}
		}
		for _, id := range r.SceneIDs() {
			if sc := r.scenes[id]; len(sc.Actors) > 0 {
				return r.selectActor(sc.Actors[0])
			}
		}
		return 0
	}

	sc := r.scenes[cur.Scene]
	pos := -1
	if sc != nil {
		for i, id := range sc.Actors {
			if id == cur.ID {
				pos = i
				break
			}
		}
	}
	if pos < 0 {
		r.selected = 0
		return 0
	}
	if pos+1 < len(sc.Actors) {
		return r.selectActor(sc.Actors[pos+1])
	}

	ids := r.SceneIDs()
	for _, id := range ids {
		if id > sc.ID && len(r.scenes[id].Actors) > 0 {
			return r.selectActor(r.scenes[id].Actors[0])
		}
	}
	for _, id := range ids {
		if len(r.scenes[id].Actors) > 0 {
			return r.selectActor(r.scenes[id].Actors[0])
		}
	}
	r.selected = 0
	return 0
}

func (r *Registry) selectActor(id host.ActorID) host.ActorID {
	a := r.actors[id]
	if a == nil {
		r.selected = 0
		return 0
	}
	r.selected = id
	return a.Handle
}

// Current returns the live handle of the selected actor (the stand-in for the protagonist),
// or 0.
func (r *Registry) Current() host.ActorID {
	if a := r.selectedRecord(); a != nil {
		return a.Handle
	}
	return 0
}

// Selected returns the registry key of the selected actor, or 0.
func (r *Registry) Selected() host.ActorID {
	if r.selectedRecord() == nil {
		return 0
	}
	return r.selected
}
