package registry

import "errors"

// Domain-specific errors for registry operations.
var (
	// ErrNameTaken is returned when the name already belongs to another recipient.
	ErrNameTaken = errors.New("registry: name already taken")

	// ErrAlreadyRegistered is returned when the recipient already holds a different name.
	ErrAlreadyRegistered = errors.New("registry: recipient already registered")

	// ErrNotRegistered is returned when unregistering a recipient with no entry.
	ErrNotRegistered = errors.New("registry: recipient not registered")

	// ErrInvalidName is returned for empty, oversized or non-printable names.
	ErrInvalidName = errors.New("registry: invalid name")

	// ErrInvalidRecipient is returned for an unknown kind or empty platform ID.
	ErrInvalidRecipient = errors.New("registry: invalid recipient")

	// ErrPersistFailed is returned when a mutation could not be written to the store.
	// The in-memory registry is left unchanged.
	ErrPersistFailed = errors.New("registry: persist failed")

	// ErrCorruptFile is returned when the registry file cannot be parsed or
	// violates the uniqueness rules.
	ErrCorruptFile = errors.New("registry: corrupt registry file")
)
