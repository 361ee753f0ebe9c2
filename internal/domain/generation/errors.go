package generation

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUploadTooLarge  = errors.New("upload too large")
)

func InvalidArgument(msg string) error {
	if msg == "" {
		return ErrInvalidArgument
	}
	return fmt.Errorf("%w: %s", ErrInvalidArgument, msg)
}

// ProviderError wraps a failed provider call. Its message is the cause's, unchanged.
type ProviderError struct {
	Err error
}

func (e *ProviderError) Error() string {
	if e == nil || e.Err == nil {
		return "provider error"
	}
	return e.Err.Error()
}

func (e *ProviderError) Unwrap() error { return e.Err }

// StagingError wraps a failure writing or reading a staged upload.
type StagingError struct {
	Op  string
	Err error
}

func (e *StagingError) Error() string {
	if e == nil || e.Err == nil {
		return "staging error"
	}
	if e.Op == "" {
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *StagingError) Unwrap() error { return e.Err }
