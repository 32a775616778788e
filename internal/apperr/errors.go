// Package apperr holds sentinel errors shared across packages.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrLocked        = errors.New("note is locked")
	ErrVaultLocked   = errors.New("vault is locked")
	ErrWrongPassword = errors.New("wrong vault password")
	ErrClosed        = errors.New("editor closed")
)
