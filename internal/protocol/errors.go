package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrProtoSchema     = "E_PROTO_SCHEMA"

	// Command layer.
	ErrBadRequest     = "E_BAD_REQUEST"
	ErrUnknownSetting = "E_UNKNOWN_SETTING"
	ErrUnknownCall    = "E_UNKNOWN_CALL"
	ErrNoHost         = "E_NO_HOST"
	ErrStopped        = "E_STOPPED"
	ErrInternal       = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrProtoSchema:     {},
	ErrBadRequest:      {},
	ErrUnknownSetting:  {},
	ErrUnknownCall:     {},
	ErrNoHost:          {},
	ErrStopped:         {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
