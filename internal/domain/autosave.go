package domain

// InputMode selects which kind of content the user is typing.
type InputMode string

const (
	ModeURL  InputMode = "url"
	ModeText InputMode = "text"
)

// AutosaveState is the visible status badge of one autosave controller.
type AutosaveState string

const (
	AutosaveIdle    AutosaveState = "idle"
	AutosaveTyping  AutosaveState = "typing"
	AutosaveSaving  AutosaveState = "saving"
	AutosaveSaved   AutosaveState = "saved"
	AutosaveError   AutosaveState = "error"
	AutosaveInvalid AutosaveState = "invalid"
)

// AutosaveStatus is a point-in-time view of an autosave controller.
type AutosaveStatus struct {
	Mode      InputMode
	State     AutosaveState
	Value     string
	LastSaved string
	Err       string
}
