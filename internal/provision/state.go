package provision

import "fmt"

// State is how far a run got.
type State int

const (
	StateInit State = iota
	StateServerInfoFetched
	StateIdentityReady
	StateConfigRendered
	StateRegistrationAttempted
	StateDone
)

var stateNames = map[State]string{
	StateInit:                  "INIT",
	StateServerInfoFetched:     "SERVER_INFO_FETCHED",
	StateIdentityReady:         "IDENTITY_READY",
	StateConfigRendered:        "CONFIG_RENDERED",
	StateRegistrationAttempted: "REGISTRATION_ATTEMPTED",
	StateDone:                  "DONE",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// MarshalText renders the state name in JSON reports.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name, so saved JSON reports can be read back.
func (s *State) UnmarshalText(text []byte) error {
	for state, name := range stateNames {
		if name == string(text) {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", text)
}
