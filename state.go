package streamingrtsp

import (
	"fmt"
)

type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateStreaming
	StateStopping
	StateStopped
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown_state_%d", int32(s))
	}
}

// HasWorker reports whether a session in this state owns a live worker
// (or is about to get one).
func (s State) HasWorker() bool {
	switch s {
	case StateConnecting, StateStreaming, StateStopping:
		return true
	default:
		return false
	}
}
