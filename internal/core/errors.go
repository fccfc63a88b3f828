// Package core defines sentinel errors.
package core

import "errors"

var (
	// Capture errors
	ErrCaptureFailed    = errors.New("netmon: capture source failed")
	ErrInterfaceMissing = errors.New("netmon: network interface not found")

	// Control channel errors
	ErrQueueEmpty          = errors.New("netmon: control queue empty")
	ErrControlDisconnected = errors.New("netmon: control channel disconnected")

	// Filter configuration errors
	ErrConfigMalformed = errors.New("netmon: malformed filter configuration")
	ErrInvalidPattern  = errors.New("netmon: invalid filter pattern")

	// Configuration errors
	ErrConfigInvalid = errors.New("netmon: invalid configuration")
)
