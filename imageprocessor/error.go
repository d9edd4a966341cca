package imageprocessor

import (
	"fmt"
)

// ErrFilter is a failure of a single step. It is reported, never
// propagated out of the Pipeline.
type ErrFilter struct {
	Step string
	Err  error
}

func (e ErrFilter) Error() string {
	return fmt.Sprintf("filter %s failed: %v", e.Step, e.Err)
}

func (e ErrFilter) Unwrap() error {
	return e.Err
}

type ErrPanic struct {
	Value any
}

func (e ErrPanic) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}
