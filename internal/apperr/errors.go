// Package apperr defines the sentinel error kinds shared across the module.
// Commands translate these into user messages at the boundary; the core
// packages return them wrapped, never formatted text.
package apperr

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrAmbiguous       = errors.New("ambiguous reference")
	ErrInvalidRef      = errors.New("invalid reference syntax")
	ErrHeaderNotFound  = errors.New("header not found")
	ErrAlreadyOwned    = errors.New("task already owned")
	ErrNotOwned        = errors.New("task not owned")
	ErrDuplicateID     = errors.New("duplicate task id")
	ErrMalformedLedger = errors.New("malformed ledger")
	ErrAlreadyExists   = errors.New("already exists")
)
