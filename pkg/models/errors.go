package models

import "errors"

// ErrContractViolation is the root of every caller-misuse error. Handlers
// map it to a 4xx response.
var ErrContractViolation = errors.New("contract violation")

var (
	ErrInvalidState        = wrap("operation not allowed in current session state")
	ErrSessionBusy         = wrap("a measurement session is already in progress")
	ErrUnknownFrequency    = wrap("frequency is not part of the plan")
	ErrWrongKind           = wrap("measurement kind does not match the active phase")
	ErrInvalidKind         = wrap("measurement kind must be baseline or hat")
	ErrInvalidHatType      = wrap("hat type must be classic or hybrid")
	ErrInvalidPlan         = wrap("invalid frequency plan")
	ErrFrequencyOutOfRange = wrap("frequency outside supported range (1 MHz to 6 GHz)")
)

var (
	ErrNotFound            = errors.New("not found")
	ErrDuplicateContestant = errors.New("a contestant with that name already exists")
)

type contractError struct {
	msg string
}

func wrap(msg string) error {
	return &contractError{msg: msg}
}

func (e *contractError) Error() string {
	return e.msg
}

func (e *contractError) Unwrap() error {
	return ErrContractViolation
}
