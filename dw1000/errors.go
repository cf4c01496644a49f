package dw1000

import (
	"errors"
	"fmt"
)

// Error kinds returned by register operations. Match with errors.Is.
var (
	ErrInvalidRegister    = errors.New("invalid register")
	ErrLengthExceeded     = errors.New("length exceeds register size")
	ErrBusError           = errors.New("bus error")
	ErrVerificationFailed = errors.New("verification failed")
	ErrEmptyBuffer        = errors.New("empty buffer")
)

// Phase identifies the step of a bus transaction that failed.
type Phase string

const (
	PhaseValidate Phase = "validate"
	PhaseSelect   Phase = "select"
	PhaseHeader   Phase = "header"
	PhaseData     Phase = "data"
	PhaseDeselect Phase = "deselect"
)

// RegisterError describes a failed register operation.
type RegisterError struct {
	Op      string // "read" or "write"
	Address uint8
	Phase   Phase
	Err     error // one of the Err* kinds
	Cause   error // transport error, if any
}

func (e *RegisterError) Error() string {
	msg := fmt.Sprintf("%s register %s (0x%02X): %s: %v", e.Op, RegisterName(e.Address), e.Address, e.Phase, e.Err)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap exposes both the error kind and the underlying transport error.
func (e *RegisterError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

// Kind reduces err to one of the package error kinds, or nil if it
// carries none of them.
func Kind(err error) error {
	for _, kind := range []error{
		ErrInvalidRegister,
		ErrLengthExceeded,
		ErrEmptyBuffer,
		ErrVerificationFailed,
		ErrBusError,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
