package wifi

// State is the lifecycle of the Wi-Fi session.
type State int

const (
	StateDisabled State = iota
	StateDisabling
	StateEnabling
	StateEnabled
)

func (s State) String() string {
	switch s {
	case StateDisabled:
		return "disabled"
	case StateDisabling:
		return "disabling"
	case StateEnabling:
		return "enabling"
	case StateEnabled:
		return "enabled"
	default:
		return "unknown"
	}
}

// IsOn reports whether the session is enabled or on its way there.
func (s State) IsOn() bool {
	return s == StateEnabling || s == StateEnabled
}
