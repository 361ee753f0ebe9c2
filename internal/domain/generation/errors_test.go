package generation

import (
	"errors"
	"io"
	"testing"
)

func TestInvalidArgument(t *testing.T) {
	t.Parallel()

	err := InvalidArgument("prompt is required")
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if err.Error() != "invalid argument: prompt is required" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
	if InvalidArgument("") != ErrInvalidArgument {
		t.Fatalf("empty message should return the sentinel")
	}
}

func TestProviderError_MessageVerbatim(t *testing.T) {
	t.Parallel()

	cause := errors.New("dial tcp: connection refused")
	var err error = &ProviderError{Err: cause}
	if err.Error() != "dial tcp: connection refused" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to reach the cause")
	}
	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected errors.As to match *ProviderError")
	}
}

func TestStagingError(t *testing.T) {
	t.Parallel()

	err := &StagingError{Op: "read staged file", Err: io.ErrUnexpectedEOF}
	if err.Error() != "read staged file: unexpected EOF" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected errors.Is to reach the cause")
	}
	if (&StagingError{Err: io.EOF}).Error() != "EOF" {
		t.Fatalf("op-less staging error should print the cause")
	}
}
