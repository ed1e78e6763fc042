package panel

import "sync"

// User event flags of an input-enable layer.
const (
	UserMovement uint32 = 1 << iota
	UserLooking
	UserActivate
	UserMenu
	UserConsole
	UserPOVChange
	UserFighting
	UserSneaking
	UserMainFourMenu
	UserWheelZoom
	UserJumping
)

// Other event flags of an input-enable layer.
const (
	OtherJournalTabs uint32 = 1 << iota
	OtherActivation
	OtherFastTravel
	OtherPOVChange
	OtherVATS
	OtherFavorites
	OtherPipboyLight
	OtherZKey
	OtherRunning
)

type LayerState uint32

const (
	LayerUnused LayerState = 0
	LayerFree   LayerState = 1
	LayerInUse  LayerState = 2
)

type Layer struct {
	Index         int        `json:"index"`
	State         LayerState `json:"state"`
	Name          string     `json:"name,omitempty"`
	UserDisabled  uint32     `json:"user_disabled,omitempty"`
	OtherDisabled uint32     `json:"other_disabled,omitempty"`
}

// Layers is the host's table of input-enable layers. Every read-modify-write holds the
// table lock for its whole duration.
type Layers struct {
	mu     sync.Mutex
	layers []Layer
}

func NewLayers(n int) *Layers {
	l := &Layers{}
	l.Resize(n)
	return l
}

// Resize grows or shrinks the table. New layers start free.
func (l *Layers) Resize(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n < len(l.layers) {
		l.layers = l.layers[:n]
		return
	}
	for i := len(l.layers); i < n; i++ {
		l.layers = append(l.layers, Layer{Index: i, State: LayerFree})
	}
}

// Acquire claims the first free layer, names it and disables the given events on it.
func (l *Layers) Acquire(name string, user, other uint32) (int, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.layers {
		if l.layers[i].State != LayerFree {
			continue
		}
		ly := &l.layers[i]
		ly.State = LayerInUse
		ly.Name = name
		ly.UserDisabled |= user
		ly.OtherDisabled |= other
		return ly.Index, true
	}
	return -1, false
}

// Release re-enables every event on layer i and returns it to the free pool.
func (l *Layers) Release(i int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i < 0 || i >= len(l.layers) {
		return false
	}
	ly := &l.layers[i]
	ly.UserDisabled = 0
	ly.OtherDisabled = 0
	ly.State = LayerFree
	ly.Name = ""
	return true
}

func (l *Layers) Get(i int) (Layer, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i < 0 || i >= len(l.layers) {
		return Layer{}, false
	}
	return l.layers[i], true
}

func (l *Layers) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.layers)
}

// Set overwrites a layer's state, as reported by the host.
func (l *Layers) Set(ly Layer) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ly.Index < 0 || ly.Index >= len(l.layers) {
		return false
	}
	l.layers[ly.Index] = ly
	return true
}
