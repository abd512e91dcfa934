package integration

import "errors"

// Sentinel errors for the integration package.
var (
	// ErrAlreadyActive is returned by Activate on an active manager.
	ErrAlreadyActive = errors.New("integration manager is already active")

	// ErrNotActive is returned when an operation requires an active manager.
	ErrNotActive = errors.New("integration manager is not active")

	// ErrWorkspaceNotSet is returned when workspace root is required but not set.
	ErrWorkspaceNotSet = errors.New("workspace root not set")

	// ErrProviderRegistered is returned when a task type already has a provider.
	ErrProviderRegistered = errors.New("task provider already registered")

	// ErrInvalidTaskType is returned when registering under an empty task type.
	ErrInvalidTaskType = errors.New("invalid task type")
)
