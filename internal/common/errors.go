// Package common defines shared constants and sentinel errors used across
// the store, service and transport layers. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// ErrStoreUnavailable wraps any failure talking to the token store backend.
	ErrStoreUnavailable = errors.New("token store unavailable")

	// ErrConfiguration means key material or settings are absent or unusable.
	ErrConfiguration = errors.New("configuration error")
)
