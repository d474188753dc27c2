package subscriber

// State is the connection state of a subscriber.
type State int

const (
	// StateClosed is the state before Connect and after the subscriber stops.
	StateClosed State = iota
	StateConnecting
	StateOpen
	StateReconnecting

	// StateDegraded is never stored. State reports it in place of StateOpen
	// when no frame has arrived within the staleness threshold.
	StateDegraded
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateReconnecting:
		return "reconnecting"
	case StateDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name. Unrecognized names decode to
// StateClosed.
func (s *State) UnmarshalText(text []byte) error {
	for st := StateClosed; st <= StateDegraded; st++ {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	*s = StateClosed
	return nil
}
