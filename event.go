package streamingrtsp

import (
	"fmt"
)

// Event is a state change of a Session. Err is set only if the change
// was caused by a failure; a requested stop ends with a nil Err.
type Event struct {
	URL   string
	State State
	Err   error
}

func (ev Event) String() string {
	if ev.Err == nil {
		return fmt.Sprintf("%s: %s", ev.URL, ev.State)
	}
	return fmt.Sprintf("%s: %s: %v", ev.URL, ev.State, ev.Err)
}
