package pkg

import "errors"

// Descriptor and packet errors.
var (
	// ErrDescriptorTooShort indicates the descriptor data is too short.
	ErrDescriptorTooShort = errors.New("descriptor too short")

	// ErrDescriptorTypeMismatch indicates the descriptor type does not match expected.
	ErrDescriptorTypeMismatch = errors.New("descriptor type mismatch")

	// ErrDescriptorSubtypeMismatch indicates a class-specific descriptor
	// subtype does not match expected.
	ErrDescriptorSubtypeMismatch = errors.New("descriptor subtype mismatch")

	// ErrSetupPacketTooShort indicates the setup packet data is too short.
	ErrSetupPacketTooShort = errors.New("setup packet too short")

	// ErrPacketTooShort indicates a USB-MIDI event packet shorter than 4 bytes.
	ErrPacketTooShort = errors.New("event packet too short")

	// ErrBufferTooSmall indicates the provided buffer is too small.
	ErrBufferTooSmall = errors.New("buffer too small")
)

// HAL errors.
var (
	// ErrNotConfigured indicates the HAL has not been initialized.
	ErrNotConfigured = errors.New("device not configured")

	// ErrAlreadyRunning indicates the HAL is already initialized.
	ErrAlreadyRunning = errors.New("already running")

	// ErrInvalidEndpoint indicates an invalid endpoint address.
	ErrInvalidEndpoint = errors.New("invalid endpoint")

	// ErrCancelled indicates the operation was cancelled by Close or Stop.
	ErrCancelled = errors.New("operation cancelled")

	// ErrNotSupported indicates an unsupported operation or feature.
	ErrNotSupported = errors.New("not supported")

	// ErrNoDevice indicates no device was found on the bus.
	ErrNoDevice = errors.New("device not present")

	// ErrProtocol indicates a malformed or unexpected transport message.
	ErrProtocol = errors.New("protocol error")

	// ErrReset indicates the host reset the port.
	ErrReset = errors.New("port reset")

	// ErrStall indicates the device rejected a request.
	ErrStall = errors.New("endpoint stalled")
)
