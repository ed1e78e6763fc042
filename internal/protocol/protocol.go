package protocol

import "encoding/json"

const Version = "1.0"

// Operator panel message types.
const (
	// panel -> server
	TypeInit           = "INIT"
	TypeSetPosition    = "SET_POSITION"
	TypeClearPosition  = "CLEAR_POSITION"
	TypeClose          = "CLOSE"
	TypeThrow          = "THROW"
	TypeUpdateSettings = "UPDATE_SETTINGS"

	// server -> panel
	TypeOpen     = "OPEN"
	TypeUpdate   = "UPDATE"
	TypeInitData = "INIT_DATA"
	TypeKey      = "KEY"
)

// Host message types.
const (
	// host -> server
	TypeHostHello   = "HOST_HELLO"
	TypeActor       = "ACTOR"
	TypeActorRemove = "ACTOR_REMOVE"
	TypePath        = "PATH"
	TypeSceneStart  = "SCENE_START"
	TypePhaseChange = "PHASE_CHANGE"
	TypeSceneEnd    = "SCENE_END"
	TypeGameLoaded  = "GAME_LOADED"
	TypeNewGame     = "NEW_GAME"
	TypePreLoadGame = "PRE_LOAD_GAME"
	TypeInput       = "INPUT"
	TypeCall        = "CALL"

	// server -> host
	TypeSetGoal     = "SET_GOAL"
	TypeModPos      = "MOD_POS"
	TypeSetRefScale = "SET_REF_SCALE"
	TypeControls    = "CONTROLS"
	TypeCallResult  = "CALL_RESULT"
)

const TypeError = "ERROR"

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}

// ErrorMsg is sent on either endpoint when an inbound message is rejected.
type ErrorMsg struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewError(code, msg string) ErrorMsg {
	return ErrorMsg{Type: TypeError, Code: code, Message: msg}
}
