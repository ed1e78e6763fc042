package protocol

// SET_POSITION (panel -> server)
type SetPositionMsg struct {
	Type  string  `json:"type"`
	Axis  string  `json:"axis"`
	Value float64 `json:"value"`
}

// THROW (panel -> server): the panel script hit an error it cannot recover from.
type ThrowMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// UPDATE_SETTINGS (panel -> server)
type UpdateSettingsMsg struct {
	Type  string  `json:"type"`
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// OPEN / UPDATE (server -> panel)
type OffsetMsg struct {
	Type   string     `json:"type"`
	Offset [3]float64 `json:"offset"`
}

// CLOSE (server -> panel)
type CloseMsg struct {
	Type string `json:"type"`
}

// INIT_DATA (server -> panel)
type InitDataMsg struct {
	Type          string            `json:"type"`
	Language      string            `json:"language"`
	Localizations map[string]string `json:"localizations"`
}

// KEY (server -> panel): a translated host input event.
type KeyMsg struct {
	Type string `json:"type"`
	Code uint32 `json:"code"`
	Down bool   `json:"down"`
}
