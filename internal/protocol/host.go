package protocol

// HOST_HELLO (host -> server)
type HostHelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Protagonist     uint32 `json:"protagonist,omitempty"`
	Language        string `json:"language,omitempty"`
	MenuHandlers    []bool `json:"menu_handlers,omitempty"`
	InputLayers     int    `json:"input_layers,omitempty"`
}

type ActorState struct {
	ID         uint32     `json:"id"`
	BaseScale  float64    `json:"base_scale,omitempty"`
	RefScale   float64    `json:"ref_scale,omitempty"`
	NodeScales []float64  `json:"node_scales,omitempty"`
	Angle      float64    `json:"angle"`
	Pos        [3]float64 `json:"pos"`
}

// ACTOR (host -> server): upsert of an actor's state.
type ActorMsg struct {
	Type  string     `json:"type"`
	Actor ActorState `json:"actor"`
}

// ACTOR_REMOVE (host -> server)
type ActorRemoveMsg struct {
	Type string `json:"type"`
	ID   uint32 `json:"id"`
}

// PATH (host -> server): the actor got a new render-position handle, or lost it.
type PathMsg struct {
	Type string     `json:"type"`
	ID   uint32     `json:"id"`
	Goal [3]float64 `json:"goal"`
	Drop bool       `json:"drop,omitempty"`
}

// SCENE_START / PHASE_CHANGE / SCENE_END (host -> server)
type SceneMsg struct {
	Type    string   `json:"type"`
	Actors  []uint32 `json:"actors"`
	StandIn uint32   `json:"stand_in,omitempty"`
	Profile string   `json:"profile,omitempty"`
}

// GAME_LOADED / NEW_GAME / PRE_LOAD_GAME (host -> server)
type LifecycleMsg struct {
	Type     string `json:"type"`
	Language string `json:"language,omitempty"`
}

// INPUT (host -> server): a raw device event while the panel is open.
type InputMsg struct {
	Type   string `json:"type"`
	Device string `json:"device"`
	Code   uint32 `json:"code,omitempty"`
	Down   bool   `json:"down,omitempty"`
	Prev   string `json:"prev,omitempty"`
	Curr   string `json:"curr,omitempty"`
}

// Input devices.
const (
	DeviceKeyboard   = "keyboard"
	DeviceMouse      = "mouse"
	DeviceGamepad    = "gamepad"
	DeviceThumbstick = "thumbstick"
)

// CALL (host -> server): a scripting-bridge function call by name.
type CallMsg struct {
	Type     string `json:"type"`
	ID       string `json:"id"`
	Function string `json:"function"`
	Args     []any  `json:"args,omitempty"`
}

// CALL_RESULT (server -> host)
type CallResultMsg struct {
	Type   string `json:"type"`
	ID     string `json:"id"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// SET_GOAL (server -> host)
type SetGoalMsg struct {
	Type string     `json:"type"`
	ID   uint32     `json:"id"`
	Path uint64     `json:"path"`
	Pos  [3]float64 `json:"pos"`
}

// MOD_POS (server -> host)
type ModPosMsg struct {
	Type  string  `json:"type"`
	ID    uint32  `json:"id"`
	Axis  string  `json:"axis"`
	Value float64 `json:"value"`
}

// SET_REF_SCALE (server -> host)
type SetRefScaleMsg struct {
	Type  string  `json:"type"`
	ID    uint32  `json:"id"`
	Scale float64 `json:"scale"`
}

// CONTROLS (server -> host): player control block and menu handler state to enforce.
type ControlsMsg struct {
	Type           string `json:"type"`
	BlockPlayer    bool   `json:"block_player"`
	MenuHandlers   []bool `json:"menu_handlers,omitempty"`
	Layer          int    `json:"layer"`
	UserEventsOff  uint32 `json:"user_events_off,omitempty"`
	OtherEventsOff uint32 `json:"other_events_off,omitempty"`
}
