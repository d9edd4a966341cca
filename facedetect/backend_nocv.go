//go:build !with_cv
// +build !with_cv

package facedetect

import (
	"context"
)

// ONNXBackend requires the "with_cv" build tag.
type ONNXBackend struct{ unavailableBackend }

func NewONNXBackend(modelPath string) (*ONNXBackend, error) {
	return nil, ErrNoOpenCV
}

// HaarBackend requires the "with_cv" build tag.
type HaarBackend struct{ unavailableBackend }

func NewHaarBackend(cascadePath string) (*HaarBackend, error) {
	return nil, ErrNoOpenCV
}

type unavailableBackend struct{}

var _ Backend = unavailableBackend{}

func (unavailableBackend) String() string {
	return "unavailable"
}

func (unavailableBackend) Infer(context.Context, Input) (Tensor, error) {
	return Tensor{}, ErrNoOpenCV
}

func (unavailableBackend) Close() error {
	return nil
}
