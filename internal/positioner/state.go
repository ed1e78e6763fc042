package positioner

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"

	"github.com/WirelessLan/AAFDynamicPositioner/internal/geom"
	"github.com/WirelessLan/AAFDynamicPositioner/internal/host"
)

type ActorState struct {
	ID       host.ActorID `json:"id"`
	Handle   host.ActorID `json:"handle"`
	Slot     uint32       `json:"slot"`
	Offset   geom.Vec3    `json:"offset"`
	Captured bool         `json:"captured"`
}

type SceneState struct {
	ID      SceneID      `json:"id"`
	Profile string       `json:"profile,omitempty"`
	Actors  []ActorState `json:"actors"`
}

// State is a read-only copy of the registry.
type State struct {
	Enabled   bool         `json:"enabled"`
	Selected  host.ActorID `json:"selected,omitempty"`
	NextScene SceneID      `json:"next_scene"`
	Settings  Settings     `json:"settings"`
	Scenes    []SceneState `json:"scenes"`
	Digest    string       `json:"digest"`
}

func (r *Registry) State() State {
	st := State{
		Enabled:   r.enabled,
		Selected:  r.Selected(),
		NextScene: r.nextScene,
		Settings:  r.settings,
		Digest:    r.Digest(),
	}
	for _, id := range r.SceneIDs() {
		sc := r.scenes[id]
		ss := SceneState{ID: sc.ID, Profile: sc.Profile}
		for _, aid := range sc.Actors {
			a := r.actors[aid]
			ss.Actors = append(ss.Actors, ActorState{
				ID:       a.ID,
				Handle:   a.Handle,
				Slot:     a.Slot,
				Offset:   a.Offset,
				Captured: a.capture.valid,
			})
		}
		st.Scenes = append(st.Scenes, ss)
	}
	return st
}

// Digest hashes the enabled flag, selection, scene counter and every scene's members with
// their slots and offsets, in scene id order. Handles are host-session state and are left out.
func (r *Registry) Digest() string {
	h := sha256.New()
	var buf [8]byte
	u64 := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}
	if r.enabled {
		u64(1)
	} else {
		u64(0)
	}
	u64(uint64(r.Selected()))
	u64(uint64(r.nextScene))
	for _, id := range r.SceneIDs() {
		sc := r.scenes[id]
		u64(uint64(sc.ID))
		u64(uint64(len(sc.Profile)))
		h.Write([]byte(sc.Profile))
		u64(uint64(len(sc.Actors)))
		for _, aid := range sc.Actors {
			a := r.actors[aid]
			u64(uint64(a.ID))
			u64(uint64(a.Slot))
			for _, c := range a.Offset {
				u64(math.Float64bits(c))
			}
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}
