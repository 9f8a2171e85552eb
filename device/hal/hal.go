package hal

import (
	"context"
)

// MaxPacketSize is the full-speed bulk endpoint packet size used by both
// MIDIStreaming endpoints.
const MaxPacketSize = 64

// Endpoint address helpers.
const (
	DirectionOut = 0x00 // Host to device
	DirectionIn  = 0x80 // Device to host
)

// EndpointNumber returns the endpoint number (0-15) of address.
func EndpointNumber(address uint8) uint8 {
	return address & 0x0F
}

// IsIn returns true if address names an IN endpoint (device to host).
func IsIn(address uint8) bool {
	return address&DirectionIn != 0
}

// SetupPacket represents a USB SETUP packet.
type SetupPacket struct {
	RequestType uint8  // Request characteristics
	Request     uint8  // Specific request
	Value       uint16 // Request-specific value
	Index       uint16 // Request-specific index
	Length      uint16 // Number of bytes to transfer
}

// SetupPacketSize is the size of a USB SETUP packet in bytes.
const SetupPacketSize = 8

// Request type fields.
const (
	RequestTypeMask     = 0x60
	RequestTypeStandard = 0x00
	RequestTypeClass    = 0x20
	RequestTypeVendor   = 0x40
)

// Standard requests used by the class driver.
const (
	RequestGetDescriptor = 0x06
)

// ParseSetupPacket parses raw bytes into a SetupPacket.
// Returns false if data is too short.
func ParseSetupPacket(data []byte, out *SetupPacket) bool {
	if len(data) < SetupPacketSize {
		return false
	}
	out.RequestType = data[0]
	out.Request = data[1]
	out.Value = uint16(data[2]) | uint16(data[3])<<8
	out.Index = uint16(data[4]) | uint16(data[5])<<8
	out.Length = uint16(data[6]) | uint16(data[7])<<8
	return true
}

// MarshalTo writes the setup packet to buf.
// Returns the number of bytes written (8), or 0 if buf is too small.
func (s *SetupPacket) MarshalTo(buf []byte) int {
	if len(buf) < SetupPacketSize {
		return 0
	}
	buf[0] = s.RequestType
	buf[1] = s.Request
	buf[2] = byte(s.Value)
	buf[3] = byte(s.Value >> 8)
	buf[4] = byte(s.Index)
	buf[5] = byte(s.Index >> 8)
	buf[6] = byte(s.Length)
	buf[7] = byte(s.Length >> 8)
	return SetupPacketSize
}

// IsClass returns true for class-specific requests.
func (s *SetupPacket) IsClass() bool {
	return s.RequestType&RequestTypeMask == RequestTypeClass
}

// DescriptorType returns the descriptor type of a GET_DESCRIPTOR request.
func (s *SetupPacket) DescriptorType() uint8 {
	return uint8(s.Value >> 8)
}

// DescriptorIndex returns the descriptor index of a GET_DESCRIPTOR request.
func (s *SetupPacket) DescriptorIndex() uint8 {
	return uint8(s.Value)
}

// Transport is the byte-level endpoint interface the class driver uses.
//
// Recv and Ready must not block. Send and SendControl never return errors;
// a failed or refused transfer reports zero bytes.
type Transport interface {
	// Recv returns the next byte received on the OUT endpoint at address.
	// ok is false when no byte is currently available.
	Recv(address uint8) (b byte, ok bool)

	// Send queues data on the IN endpoint at address.
	// Returns the number of bytes accepted.
	Send(address uint8, data []byte) int

	// Flush releases any queued IN data at address to the host.
	Flush(address uint8)

	// Ready returns true if the IN endpoint at address can accept data.
	Ready(address uint8) bool

	// SendControl answers the pending control IN transfer with data.
	// Returns the number of bytes sent.
	SendControl(data []byte) int
}

// DeviceHAL is a Transport with an explicit lifecycle.
//
// All methods should be safe for concurrent use.
type DeviceHAL interface {
	Transport

	// Init prepares the controller. The context can cancel initialization.
	Init(ctx context.Context) error

	// Start attaches to the bus. After Start returns the device is visible
	// to the host.
	Start() error

	// Stop detaches from the bus and releases resources.
	Stop() error

	// ReadSetup blocks until a SETUP packet arrives on the control pipe or
	// the context is cancelled.
	ReadSetup(ctx context.Context, out *SetupPacket) error

	// Stall rejects the pending control request.
	Stall() error

	// Ack completes the pending control request with no data stage.
	Ack() error

	// Reset requests a full device reset.
	Reset() error

	// IsConnected returns true if the device is attached to a host.
	IsConnected() bool

	// WaitConnect blocks until the device connects or the context is cancelled.
	WaitConnect(ctx context.Context) error
}
