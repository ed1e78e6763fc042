// Package bridge exposes the positioner to scripts. A Lua global table AAFDynamicPositioner
// carries the callable-by-name surface; host CALL messages and operator scripts both go
// through it.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"sync"

	"github.com/Shopify/go-lua"

	"github.com/WirelessLan/AAFDynamicPositioner/internal/host"
	"github.com/WirelessLan/AAFDynamicPositioner/internal/positioner"
)

const TableName = "AAFDynamicPositioner"

var ErrUnknownFunction = errors.New("unknown function")

// Indicator identifies the two highlight effects the host applies to the selected actor.
type Indicator struct {
	Plugin    string
	Movable   uint32
	Immovable uint32
}

type Options struct {
	Commander positioner.Commander
	Indicator Indicator
	Logger    *log.Logger
}

// Bridge owns one Lua state. Calls are serialized; a Lua state is single-threaded.
type Bridge struct {
	mu  sync.Mutex
	l   *lua.State
	ctx context.Context

	cmd       positioner.Commander
	indicator Indicator
	log       *log.Logger
}

func New(opts Options) *Bridge {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	b := &Bridge{
		l:         lua.NewState(),
		ctx:       context.Background(),
		cmd:       opts.Commander,
		indicator: opts.Indicator,
		log:       opts.Logger,
	}
	lua.OpenLibraries(b.l)
	b.l.NewTable()
	lua.SetFunctions(b.l, b.functions(), 0)
	b.l.SetGlobal(TableName)
	return b
}

func (b *Bridge) functions() []lua.RegistryFunction {
	return []lua.RegistryFunction{
		{Name: "IsEnabled", Function: b.isEnabled},
		{Name: "SetEnabled", Function: b.setEnabled},
		{Name: "SceneInit", Function: b.sceneInit},
		{Name: "AnimationChange", Function: b.animationChange},
		{Name: "SceneEnd", Function: b.sceneEnd},
		{Name: "CanMove", Function: b.canMove},
		{Name: "ChangeSelectedActor", Function: b.changeSelectedActor},
		{Name: "GetSelectedActor", Function: b.getSelectedActor},
		{Name: "GetHighlightIndicator", Function: b.getHighlightIndicator},
		{Name: "ShowPanel", Function: b.showPanel},
	}
}

// run executes cmd for a Lua function, raising a Lua error on failure.
func (b *Bridge) run(l *lua.State, cmd positioner.Command) positioner.Result {
	res, err := b.cmd.Do(b.ctx, cmd)
	if err != nil {
		lua.Errorf(l, "%s: %s", cmd.Kind, err.Error())
	}
	return res
}

func (b *Bridge) isEnabled(l *lua.State) int {
	res := b.run(l, positioner.Command{Kind: positioner.KindIsEnabled})
	l.PushBoolean(res.Enabled)
	return 1
}

func (b *Bridge) setEnabled(l *lua.State) int {
	lua.CheckAny(l, 1)
	b.run(l, positioner.Command{Kind: positioner.KindSetEnabled, Enabled: l.ToBoolean(1)})
	return 0
}

func (b *Bridge) sceneInit(l *lua.State) int {
	actors := checkActors(l, 1)
	standIn := host.ActorID(lua.OptInteger(l, 2, 0))
	res := b.run(l, positioner.Command{Kind: positioner.KindSceneStart, Actors: actors, StandIn: standIn})
	if res.Scene == 0 {
		l.PushNil()
		return 1
	}
	l.PushInteger(int(res.Scene))
	return 1
}

func (b *Bridge) animationChange(l *lua.State) int {
	profile := lua.CheckString(l, 1)
	actors := checkActors(l, 2)
	b.run(l, positioner.Command{Kind: positioner.KindPhaseChange, Profile: profile, Actors: actors})
	return 0
}

func (b *Bridge) sceneEnd(l *lua.State) int {
	actors := checkActors(l, 1)
	b.run(l, positioner.Command{Kind: positioner.KindSceneEnd, Actors: actors})
	return 0
}

func (b *Bridge) canMove(l *lua.State) int {
	res := b.run(l, positioner.Command{Kind: positioner.KindCanMove})
	l.PushInteger(int(res.CanMove))
	return 1
}

func pushActor(l *lua.State, id host.ActorID) {
	if id == 0 {
		l.PushNil()
		return
	}
	l.PushInteger(int(id))
}

func (b *Bridge) changeSelectedActor(l *lua.State) int {
	pushActor(l, b.run(l, positioner.Command{Kind: positioner.KindAdvance}).Actor)
	return 1
}

func (b *Bridge) getSelectedActor(l *lua.State) int {
	pushActor(l, b.run(l, positioner.Command{Kind: positioner.KindCurrent}).Actor)
	return 1
}

// getHighlightIndicator returns the plugin name and form id of the effect for a movable or
// immovable selection, or nil when none is configured.
func (b *Bridge) getHighlightIndicator(l *lua.State) int {
	movable := l.ToBoolean(1)
	id := b.indicator.Immovable
	if movable {
		id = b.indicator.Movable
	}
	if b.indicator.Plugin == "" || id == 0 {
		l.PushNil()
		return 1
	}
	l.PushString(b.indicator.Plugin)
	l.PushInteger(int(id))
	return 2
}

func (b *Bridge) showPanel(l *lua.State) int {
	b.run(l, positioner.Command{Kind: positioner.KindShowPanel})
	return 0
}

// checkActors reads an array of actor ids at index.
func checkActors(l *lua.State, index int) []host.ActorID {
	lua.CheckType(l, index, lua.TypeTable)
	n := l.RawLength(index)
	out := make([]host.ActorID, 0, n)
	for i := 1; i <= n; i++ {
		l.RawGetInt(index, i)
		v, ok := l.ToInteger(-1)
		l.Pop(1)
		if !ok || v < 0 {
			lua.ArgumentError(l, index, "actor ids must be non-negative integers")
		}
		out = append(out, host.ActorID(v))
	}
	return out
}

// LoadScript runs a Lua file in the bridge's state. Functions it defines become callable.
func (b *Bridge) LoadScript(path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := lua.DoFile(b.l, path); err != nil {
		return fmt.Errorf("lua %s: %w", path, err)
	}
	return nil
}

func (b *Bridge) DoString(src string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return lua.DoString(b.l, src)
}

// Call runs a function by name with JSON-shaped arguments and returns its first result.
// Names resolve in the AAFDynamicPositioner table first, then as globals; a dotted name
// may also spell out the table.
func (b *Bridge) Call(ctx context.Context, name string, args []any) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	l := b.l
	top := l.Top()
	defer l.SetTop(top)

	if !b.pushFunction(name) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}
	for _, a := range args {
		pushValue(l, a)
	}

	b.ctx = ctx
	err := l.ProtectedCall(len(args), 1, 0)
	b.ctx = context.Background()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return toGo(l, -1), nil
}

func (b *Bridge) pushFunction(name string) bool {
	l := b.l
	short := strings.TrimPrefix(name, TableName+".")
	l.Global(TableName)
	l.Field(-1, short)
	l.Remove(-2)
	if l.IsFunction(-1) {
		return true
	}
	l.Pop(1)
	if strings.Contains(short, ".") {
		return false
	}
	l.Global(short)
	if l.IsFunction(-1) {
		return true
	}
	l.Pop(1)
	return false
}

func pushValue(l *lua.State, v any) {
	switch x := v.(type) {
	case nil:
		l.PushNil()
	case bool:
		l.PushBoolean(x)
	case string:
		l.PushString(x)
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
			l.PushInteger(int(x))
		} else {
			l.PushNumber(x)
		}
	case int:
		l.PushInteger(x)
	case uint32:
		l.PushInteger(int(x))
	case []any:
		l.CreateTable(len(x), 0)
		for i, e := range x {
			pushValue(l, e)
			l.RawSetInt(-2, i+1)
		}
	case map[string]any:
		l.CreateTable(0, len(x))
		for k, e := range x {
			pushValue(l, e)
			l.SetField(-2, k)
		}
	default:
		l.PushString(fmt.Sprint(x))
	}
}

func toGo(l *lua.State, index int) any {
	switch l.TypeOf(index) {
	case lua.TypeBoolean:
		return l.ToBoolean(index)
	case lua.TypeNumber:
		f, _ := l.ToNumber(index)
		if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return int64(f)
		}
		return f
	case lua.TypeString:
		s, _ := l.ToString(index)
		return s
	case lua.TypeTable:
		index = l.AbsIndex(index)
		if n := l.RawLength(index); n > 0 {
			out := make([]any, 0, n)
			for i := 1; i <= n; i++ {
				l.RawGetInt(index, i)
				out = append(out, toGo(l, -1))
				l.Pop(1)
			}
			return out
		}
		out := map[string]any{}
		l.PushNil()
		for l.Next(index) {
			if l.TypeOf(-2) == lua.TypeString {
				k, _ := l.ToString(-2)
				out[k] = toGo(l, -1)
			}
			l.Pop(1)
		}
		return out
	}
	return nil
}
