package router

import (
	"errors"
	"fmt"

	"github.com/BatmanBruc/convert-menu-bot/types"
)

// Kind tags why an upload was not converted.
type Kind string

const (
	KindNoActiveSession    Kind = "no_active_session"
	KindUnsupportedInput   Kind = "unsupported_input"
	KindConversionFailure  Kind = "conversion_failure"
	KindFeatureUnavailable Kind = "feature_unavailable"
)

var (
	ErrNoActiveSession    = errors.New("no active session")
	ErrUnsupportedInput   = errors.New("unsupported input")
	ErrConversionFailure  = errors.New("conversion failure")
	ErrFeatureUnavailable = errors.New("feature unavailable")

	// ErrUploadTooLarge is wrapped in an UnsupportedInput failure. Downloaders return it
	// when the body exceeds the limit they were given.
	ErrUploadTooLarge = errors.New("upload exceeds size limit")
)

func (k Kind) sentinel() error {
	switch k {
	case KindNoActiveSession:
		return ErrNoActiveSession
	case KindUnsupportedInput:
		return ErrUnsupportedInput
	case KindConversionFailure:
		return ErrConversionFailure
	case KindFeatureUnavailable:
		return ErrFeatureUnavailable
	default:
		return nil
	}
}

// Failure is the typed error returned by HandleUpload. errors.Is matches it against the sentinel of its Kind.
type Failure struct {
	Kind Kind
	Mode types.Mode
	Err  error
}

func newFailure(kind Kind, mode types.Mode, err error) *Failure {
	return &Failure{Kind: kind, Mode: mode, Err: err}
}

func (f *Failure) Error() string {
	msg := string(f.Kind)
	if f.Mode != types.ModeNone {
		msg = fmt.Sprintf("%s (%s)", msg, f.Mode)
	}
	if f.Err != nil {
		msg += ": " + f.Err.Error()
	}
	return msg
}

func (f *Failure) Unwrap() error {
	return f.Err
}

func (f *Failure) Is(target error) bool {
	s := f.Kind.sentinel()
	return s != nil && target == s
}

// KindOf extracts the failure kind from err.
func KindOf(err error) (Kind, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind, true
	}
	return "", false
}
