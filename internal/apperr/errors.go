// Package apperr defines the error values shared across glance packages.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")
	ErrInvalid  = errors.New("invalid argument")
	ErrBusy     = errors.New("already running")
	ErrTimeout  = errors.New("timed out")
)

// Reason codes carried by Rejection.
const (
	CodeUnsupportedPlatform = "unsupported_platform"
	CodePinUnsupported      = "pin_unsupported"
)

// Rejection reports that the host cannot perform a requested capability.
// Code is stable and meant to be shown to (or branched on by) the runtime.
type Rejection struct {
	Code    string
	Message string
}

func (r *Rejection) Error() string {
	if r.Message == "" {
		return fmt.Sprintf("rejected: %s", r.Code)
	}
	return fmt.Sprintf("rejected: %s: %s", r.Code, r.Message)
}

// Reject builds a Rejection with a formatted message.
func Reject(code, format string, args ...any) error {
	return &Rejection{Code: code, Message: fmt.Sprintf(format, args...)}
}

// RejectionCode returns the reason code if err wraps a Rejection.
func RejectionCode(err error) (string, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r.Code, true
	}
	return "", false
}
