package positioner

import (
	"github.com/WirelessLan/AAFDynamicPositioner/internal/geom"
	"github.com/WirelessLan/AAFDynamicPositioner/internal/host"
)

// Target computes where an actor at original should be drawn. The second result is false
// when nothing should be written (relative mode at natural scale).
func Target(mode Mode, original, offset geom.Vec3, theta, scale float64) (geom.Vec3, bool) {
	rotated := geom.RotateYaw(offset, theta)
	switch mode {
	case Absolute:
		return original.Add(rotated), true
	case Relative:
		if geom.IsNaturalScale(scale) {
			return geom.Vec3{}, false
		}
		return original.Add(rotated.Mul(1 - scale)), true
	}
	return geom.Vec3{}, false
}

// apply writes the actor's offset position to its captured handle. Repeated calls with the
// same state write the same values.
func (r *Registry) apply(a *ActorRecord) {
	if !a.capture.valid {
		return
	}
	path, live := r.host.Path(a.Handle)
	if !live || path != a.capture.path {
		return
	}
	pos, ok := Target(r.modeFor(a), a.capture.original, a.Offset,
		r.host.Angle(a.Handle), r.host.ActualScale(a.Handle))
	if !ok {
		return
	}
	if !r.host.SetGoalPos(path, pos) {
		return
	}
	movePos(r.host, a.Handle, pos)
}

func movePos(h host.Host, id host.ActorID, pos geom.Vec3) {
	h.MovePos(id, geom.AxisX, pos.X())
	h.MovePos(id, geom.AxisY, pos.Y())
	h.MovePos(id, geom.AxisZ, pos.Z())
}
