package domain

import (
	"errors"
	"fmt"
)

// ErrPermissionDenied is returned by providers when the user has denied
// location access. Providers wrap it so errors.Is matches.
var ErrPermissionDenied = errors.New("location permission denied")

// Failure messages delivered to the failure handler.
const (
	MsgServiceDisabled        = "location service not enabled"
	MsgPermissionInsufficient = "insufficient location permission"
	MsgAddressUnavailable     = "failed to obtain address information"
)

// FailureKind classifies a failed locate or resolve attempt.
type FailureKind int

const (
	ServiceDisabled FailureKind = iota + 1
	PermissionInsufficient
	PermissionDenied
	ProviderError
	GeocodeTransportError
	GeocodeEmptyResult
	GeocodeIncompletePlace
)

var failureKindNames = map[FailureKind]string{
	ServiceDisabled:        "service_disabled",
	PermissionInsufficient: "permission_insufficient",
	PermissionDenied:       "permission_denied",
	ProviderError:          "provider_error",
	GeocodeTransportError:  "geocode_transport_error",
	GeocodeEmptyResult:     "geocode_empty_result",
	GeocodeIncompletePlace: "geocode_incomplete_place",
}

func (k FailureKind) String() string {
	if name, ok := failureKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("FailureKind(%d)", int(k))
}

// Failure is the error type handed to failure handlers. Err is the
// underlying provider or geocoder error, if any; Message is the
// human-readable text, if any. At least one of them is set.
type Failure struct {
	Kind    FailureKind
	Err     error
	Message string
}

func (f *Failure) Error() string {
	switch {
	case f.Err != nil && f.Message != "":
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Message, f.Err)
	case f.Err != nil:
		return fmt.Sprintf("%s: %v", f.Kind, f.Err)
	default:
		return fmt.Sprintf("%s: %s", f.Kind, f.Message)
	}
}

func (f *Failure) Unwrap() error { return f.Err }

// Is matches another *Failure by kind, so errors.Is(err, &Failure{Kind: k})
// works for callers that only care about the category.
func (f *Failure) Is(target error) bool {
	t, ok := target.(*Failure)
	return ok && t.Kind == f.Kind && t.Err == nil && t.Message == ""
}

// NewFailure builds a Failure with a message and no underlying error.
func NewFailure(kind FailureKind, message string) *Failure {
	return &Failure{Kind: kind, Message: message}
}

// WrapFailure builds a Failure around an underlying error with no message.
func WrapFailure(kind FailureKind, err error) *Failure {
	return &Failure{Kind: kind, Err: err}
}

// KindOf returns the FailureKind carried by err, or 0 if err is not a Failure.
func KindOf(err error) FailureKind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return 0
}
