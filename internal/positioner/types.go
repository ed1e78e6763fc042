package positioner

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/WirelessLan/AAFDynamicPositioner/internal/geom"
	"github.com/WirelessLan/AAFDynamicPositioner/internal/host"
	"github.com/WirelessLan/AAFDynamicPositioner/internal/offsets"
)

// SceneID numbers scenes from 1. Ids are never reused between resets; Reset starts the
// counter over at 1.
type SceneID uint64

// Mode selects how an offset is applied.
type Mode uint32

const (
	// Relative scales the offset by (1 - scale) and does nothing at natural scale.
	Relative Mode = 0
	// Absolute applies the offset at full magnitude.
	Absolute Mode = 1
)

func (m Mode) String() string {
	switch m {
	case Relative:
		return "relative"
	case Absolute:
		return "absolute"
	}
	return "mode(" + strconv.FormatUint(uint64(m), 10) + ")"
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "relative", "scale", "0":
		return Relative, nil
	case "absolute", "1":
		return Absolute, nil
	}
	return 0, fmt.Errorf("unknown positioning mode %q", s)
}

// CanMove is the answer to "may the operator move the selected actor right now".
type CanMove uint32

const (
	Yes CanMove = iota
	NoSelection
	NoScale
	NoDisabled
)

func (c CanMove) String() string {
	switch c {
	case Yes:
		return "YES"
	case NoSelection:
		return "NO_SELECTION"
	case NoScale:
		return "NO_SCALE"
	case NoDisabled:
		return "NO_DISABLED"
	}
	return "CAN_MOVE(" + strconv.FormatUint(uint64(c), 10) + ")"
}

// Setting names match the keys of the settings INI.
const (
	SettingSeparatePlayerOffset = "bSeparatePlayerOffset"
	SettingSyncStandInScale     = "bUnifyAAFDoppelgangerScale"
	SettingPlayerMode           = "iPlayerPositionerType"
	SettingNPCMode              = "iNPCPositionerType"
)

type Settings struct {
	SeparatePlayerOffset bool `json:"separate_player_offset"`
	SyncStandInScale     bool `json:"sync_stand_in_scale"`
	PlayerMode           Mode `json:"player_mode"`
	NPCMode              Mode `json:"npc_mode"`
}

func DefaultSettings() Settings {
	return Settings{
		SeparatePlayerOffset: false,
		SyncStandInScale:     true,
		PlayerMode:           Relative,
		NPCMode:              Relative,
	}
}

// Set changes one setting by its INI key. Booleans take any non-zero value as true.
func (s *Settings) Set(name string, value float64) error {
	switch name {
	case SettingSeparatePlayerOffset:
		s.SeparatePlayerOffset = value != 0
	case SettingSyncStandInScale:
		s.SyncStandInScale = value != 0
	case SettingPlayerMode, SettingNPCMode:
		m := Mode(value)
		if float64(m) != value || (m != Relative && m != Absolute) {
			return fmt.Errorf("%s: invalid mode %v", name, value)
		}
		if name == SettingPlayerMode {
			s.PlayerMode = m
		} else {
			s.NPCMode = m
		}
	default:
		return fmt.Errorf("unknown setting %q", name)
	}
	return nil
}

// Panel is the operator panel as seen from the registry.
type Panel interface {
	IsOpen() bool
	Open(offset geom.Vec3)
	Update(offset geom.Vec3)
	Close()
}

// OffsetStore persists per-slot offsets by profile name.
type OffsetStore interface {
	Load(profile string, player bool) ([]offsets.Record, error)
	Save(profile string, player bool, ids []host.ActorID, lookup offsets.Lookup) error
}

type capture struct {
	path     host.PathID
	original geom.Vec3
	valid    bool
}

// ActorRecord is the registry's view of one actor taking part in a scene.
type ActorRecord struct {
	ID     host.ActorID
	Handle host.ActorID
	Scene  SceneID
	Slot   uint32
	Offset geom.Vec3

	capture capture
}

type SceneRecord struct {
	ID      SceneID
	Profile string
	Actors  []host.ActorID
}

type noPanel struct{}

func (noPanel) IsOpen() bool     { return false }
func (noPanel) Open(geom.Vec3)   {}
func (noPanel) Update(geom.Vec3) {}
func (noPanel) Close()           {}
