package streamingrtsp

import (
	"fmt"
)

type ErrInvalidTarget struct {
	URL    string
	Reason string
}

func (e ErrInvalidTarget) Error() string {
	return fmt.Sprintf("invalid stream target '%s': %s", e.URL, e.Reason)
}

type ErrAlreadyStreaming struct {
	URL   string
	State State
}

func (e ErrAlreadyStreaming) Error() string {
	return fmt.Sprintf("the session is already %s '%s'", e.State, e.URL)
}

type ErrConnectionFailed struct {
	URL string
	Err error
}

func (e ErrConnectionFailed) Error() string {
	return fmt.Sprintf("unable to connect to '%s': %v", e.URL, e.Err)
}

func (e ErrConnectionFailed) Unwrap() error {
	return e.Err
}

type ErrDecode struct {
	Err error
}

func (e ErrDecode) Error() string {
	return fmt.Sprintf("unable to decode: %v", e.Err)
}

func (e ErrDecode) Unwrap() error {
	return e.Err
}
