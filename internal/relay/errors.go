package relay

import "errors"

var (
	// ErrInvalidPayload is returned when a payload is not a valid notification.
	ErrInvalidPayload = errors.New("relay: invalid payload")

	// ErrUnknownTarget is returned when target_id is not registered.
	ErrUnknownTarget = errors.New("relay: target not registered")

	// ErrDeliveryFailed is returned when Discord rejected or timed out a send.
	ErrDeliveryFailed = errors.New("relay: delivery failed")
)
