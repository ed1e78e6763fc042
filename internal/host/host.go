// Package host describes the parts of the live simulation the positioner talks to.
//
// Actors and render-position handles are opaque identifiers. They are resolved through
// Host on every call and never cached as references: the host may invalidate and reissue
// a handle at any animation phase transition.
package host

import (
	"github.com/WirelessLan/AAFDynamicPositioner/internal/geom"
)

// ActorID is the host's stable identifier for an actor. Zero means none.
type ActorID uint32

// PathID identifies one render-position handle (the structure holding an actor's goal
// position while it is driven by a scene). Zero means none.
type PathID uint64

type Host interface {
	// Protagonist returns the player-controlled actor, or 0.
	Protagonist() ActorID

	// ActualScale is the effective rendered scale: the reference scale composed with the
	// skeleton's root and intermediate node scale factors. 0 for unknown actors.
	ActualScale(id ActorID) float64
	// RefScale is the per-reference scale multiplier (1.0 = natural).
	RefScale(id ActorID) float64
	SetRefScale(id ActorID, scale float64)

	// Angle is the facing angle about the vertical axis, in radians.
	Angle(id ActorID) float64

	// Path returns the actor's current render-position handle.
	Path(id ActorID) (PathID, bool)
	GoalPos(path PathID) (geom.Vec3, bool)
	SetGoalPos(path PathID, pos geom.Vec3) bool

	// MovePos writes the actor's position one axis at a time.
	MovePos(id ActorID, axis geom.Axis, value float64)
}

// EffectiveScale composes a reference scale with the scale factors found walking from the
// skeleton's center-of-mass node up to (but excluding) its root.
func EffectiveScale(refScaled float64, chain ...float64) float64 {
	s := refScaled
	for _, f := range chain {
		s *= f
	}
	return s
}
