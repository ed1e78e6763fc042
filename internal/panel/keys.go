package panel

import "github.com/WirelessLan/AAFDynamicPositioner/internal/protocol"

// Key codes sent to the panel. The first 256 are keyboard codes, then 8 mouse buttons,
// the two wheel directions and 16 gamepad buttons.
const (
	NumKeyboardKeys   = 256
	MouseButtonOffset = NumKeyboardKeys
	NumMouseButtons   = 8
	MouseWheelOffset  = MouseButtonOffset + NumMouseButtons
	GamepadOffset     = MouseWheelOffset + 2
	NumGamepadButtons = 16
	MaxKeyCodes       = GamepadOffset + NumGamepadButtons
)

const (
	GamepadDPadUp = GamepadOffset + iota
	GamepadDPadDown
	GamepadDPadLeft
	GamepadDPadRight
	GamepadStart
	GamepadBack
	GamepadLeftThumb
	GamepadRightThumb
	GamepadLeftShoulder
	GamepadRightShoulder
	GamepadA
	GamepadB
	GamepadX
	GamepadY
	GamepadLT
	GamepadRT
)

// Keys the panel understands.
const (
	KeyTab   uint32 = 0x09
	KeyEnter uint32 = 0x0D
	KeyLeft  uint32 = 0x25
	KeyUp    uint32 = 0x26
	KeyRight uint32 = 0x27
	KeyDown  uint32 = 0x28
)

var gamepadMasks = map[uint32]uint32{
	0x0001: GamepadDPadUp,
	0x0002: GamepadDPadDown,
	0x0004: GamepadDPadLeft,
	0x0008: GamepadDPadRight,
	0x0010: GamepadStart,
	0x0020: GamepadBack,
	0x0040: GamepadLeftThumb,
	0x0080: GamepadRightThumb,
	0x0100: GamepadLeftShoulder,
	0x0200: GamepadRightShoulder,
	0x1000: GamepadA,
	0x2000: GamepadB,
	0x4000: GamepadX,
	0x8000: GamepadY,
	0x9:    GamepadLT,
	0xA:    GamepadRT,
}

// GamepadKeyCode maps an XInput button mask to a key code. Unknown masks give MaxKeyCodes.
func GamepadKeyCode(mask uint32) uint32 {
	if c, ok := gamepadMasks[mask]; ok {
		return c
	}
	return MaxKeyCodes
}

func MouseKeyCode(button uint32) uint32 {
	return MouseButtonOffset + button
}

func ValidKeyCode(code uint32) bool {
	return code < MaxKeyCodes
}

// MenuKey turns movement and confirm bindings into the navigation keys the panel reads.
func MenuKey(code uint32) uint32 {
	switch code {
	case GamepadDPadUp, 0x57: // W
		return KeyUp
	case GamepadDPadDown, 0x53: // S
		return KeyDown
	case GamepadDPadLeft, 0x41: // A
		return KeyLeft
	case GamepadDPadRight, 0x44: // D
		return KeyRight
	case GamepadA, 0x45: // E
		return KeyEnter
	case GamepadB:
		return KeyTab
	}
	return code
}

// Direction is a thumbstick direction.
type Direction string

const (
	DirNone  Direction = "none"
	DirUp    Direction = "up"
	DirDown  Direction = "down"
	DirLeft  Direction = "left"
	DirRight Direction = "right"
)

func (d Direction) key() (uint32, bool) {
	switch d {
	case DirUp:
		return KeyUp, true
	case DirDown:
		return KeyDown, true
	case DirLeft:
		return KeyLeft, true
	case DirRight:
		return KeyRight, true
	}
	return 0, false
}

// KeyEvent is one key press or release for the panel.
type KeyEvent struct {
	Code uint32
	Down bool
}

// ButtonEvent translates a button press from device into a panel key event.
func ButtonEvent(device string, code uint32, down bool) (KeyEvent, bool) {
	switch device {
	case protocol.DeviceMouse:
		code = MouseKeyCode(code)
	case protocol.DeviceGamepad:
		code = GamepadKeyCode(code)
	}
	if !ValidKeyCode(code) {
		return KeyEvent{}, false
	}
	return KeyEvent{Code: MenuKey(code), Down: down}, true
}

// ThumbstickEvents turns a left thumbstick move into arrow key events: the new direction is
// pressed and the previous one released. Returning to neutral from neutral releases all four.
func ThumbstickEvents(prev, curr Direction) []KeyEvent {
	if k, ok := curr.key(); ok {
		return []KeyEvent{{Code: k, Down: true}}
	}
	pk, ok := prev.key()
	if !ok {
		return []KeyEvent{
			{Code: KeyLeft}, {Code: KeyUp}, {Code: KeyRight}, {Code: KeyDown},
		}
	}
	return []KeyEvent{{Code: pk}}
}
