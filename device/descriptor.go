package device

import (
	"encoding/binary"

	"github.com/ardnew/usbmidi/pkg"
)

// USB descriptor types (USB 2.0 Spec Table 9-5, Audio 1.0 Appendix A.4).
const (
	DescriptorTypeConfiguration = 0x02
	DescriptorTypeInterface     = 0x04
	DescriptorTypeEndpoint      = 0x05
	DescriptorTypeCSInterface   = 0x24 // Class-specific interface
	DescriptorTypeCSEndpoint    = 0x25 // Class-specific endpoint
)

// USB class codes used by MIDI devices.
const (
	ClassAudio = 0x01 // Audio class
)

// Audio subclass codes (Audio 1.0 Appendix A.2).
const (
	SubclassAudioControl  = 0x01
	SubclassAudioStream   = 0x02
	SubclassMIDIStreaming = 0x03
)

// Endpoint transfer types (USB 2.0 Spec Table 9-13).
const (
	EndpointTypeControl     = 0x00
	EndpointTypeIsochronous = 0x01
	EndpointTypeBulk        = 0x02
	EndpointTypeInterrupt   = 0x03
)

// Endpoint directions.
const (
	EndpointDirectionOut = 0x00 // Host to device
	EndpointDirectionIn  = 0x80 // Device to host
)

// ConfigurationDescriptor represents a USB configuration descriptor (9 bytes).
// It heads the block returned for GET_DESCRIPTOR(configuration); the
// interface descriptors of every function follow it.
type ConfigurationDescriptor struct {
	Length             uint8  // Size of this descriptor (9)
	DescriptorType     uint8  // Configuration descriptor type (0x02)
	TotalLength        uint16 // Size of the header plus all interface data
	NumInterfaces      uint8  // Number of interfaces
	ConfigurationValue uint8  // Value for SET_CONFIGURATION
	ConfigurationIndex uint8  // Index of string descriptor
	Attributes         uint8  // Configuration attributes
	MaxPower           uint8  // Maximum power consumption (2mA units)
}

// Configuration attribute bits.
const (
	ConfigAttrBusPowered   = 0x80 // Required by USB 2.0
	ConfigAttrSelfPowered  = 0x40
	ConfigAttrRemoteWakeup = 0x20
)

// ConfigurationDescriptorSize is the size of a configuration descriptor in bytes.
const ConfigurationDescriptorSize = 9

// DefaultConfiguration describes configuration 1, bus powered, drawing 100 mA.
// TotalLength and NumInterfaces are filled in when the block is built.
var DefaultConfiguration = ConfigurationDescriptor{
	ConfigurationValue: 1,
	Attributes:         ConfigAttrBusPowered,
	MaxPower:           50,
}

// MarshalTo serializes the configuration descriptor to buf.
// Returns the number of bytes written (always 9 if buf is large enough).
func (c *ConfigurationDescriptor) MarshalTo(buf []byte) int {
	if len(buf) < ConfigurationDescriptorSize {
		return 0
	}
	buf[0] = ConfigurationDescriptorSize
	buf[1] = DescriptorTypeConfiguration
	binary.LittleEndian.PutUint16(buf[2:4], c.TotalLength)
	buf[4] = c.NumInterfaces
	buf[5] = c.ConfigurationValue
	buf[6] = c.ConfigurationIndex
	buf[7] = c.Attributes
	buf[8] = c.MaxPower
	return ConfigurationDescriptorSize
}

// ParseConfigurationDescriptor parses a configuration descriptor from bytes into out.
// Returns an error if the data is too short or the descriptor type is wrong.
func ParseConfigurationDescriptor(data []byte, out *ConfigurationDescriptor) error {
	if len(data) < ConfigurationDescriptorSize {
		return pkg.ErrDescriptorTooShort
	}
	if data[1] != DescriptorTypeConfiguration {
		return pkg.ErrDescriptorTypeMismatch
	}
	out.Length = data[0]
	out.DescriptorType = data[1]
	out.TotalLength = binary.LittleEndian.Uint16(data[2:4])
	out.NumInterfaces = data[4]
	out.ConfigurationValue = data[5]
	out.ConfigurationIndex = data[6]
	out.Attributes = data[7]
	out.MaxPower = data[8]
	return nil
}

// InterfaceDescriptor represents a USB interface descriptor (9 bytes).
type InterfaceDescriptor struct {
	Length            uint8 // Size of this descriptor (9)
	DescriptorType    uint8 // Interface descriptor type (0x04)
	InterfaceNumber   uint8 // Interface number
	AlternateSetting  uint8 // Alternate setting number
	NumEndpoints      uint8 // Number of endpoints (excluding EP0)
	InterfaceClass    uint8 // Class code
	InterfaceSubClass uint8 // Subclass code
	InterfaceProtocol uint8 // Protocol code
	InterfaceIndex    uint8 // Index of string descriptor
}

// InterfaceDescriptorSize is the size of an interface descriptor in bytes.
const InterfaceDescriptorSize = 9

// MarshalTo serializes the interface descriptor to buf.
// Returns the number of bytes written (always 9 if buf is large enough).
func (i *InterfaceDescriptor) MarshalTo(buf []byte) int {
	if len(buf) < InterfaceDescriptorSize {
		return 0
	}
	buf[0] = InterfaceDescriptorSize
	buf[1] = DescriptorTypeInterface
	buf[2] = i.InterfaceNumber
	buf[3] = i.AlternateSetting
	buf[4] = i.NumEndpoints
	buf[5] = i.InterfaceClass
	buf[6] = i.InterfaceSubClass
	buf[7] = i.InterfaceProtocol
	buf[8] = i.InterfaceIndex
	return InterfaceDescriptorSize
}

// ParseInterfaceDescriptor parses an interface descriptor from bytes into out.
// Returns an error if the data is too short or the descriptor type is wrong.
func ParseInterfaceDescriptor(data []byte, out *InterfaceDescriptor) error {
	if len(data) < InterfaceDescriptorSize {
		return pkg.ErrDescriptorTooShort
	}
	if data[1] != DescriptorTypeInterface {
		return pkg.ErrDescriptorTypeMismatch
	}
	out.Length = data[0]
	out.DescriptorType = data[1]
	out.InterfaceNumber = data[2]
	out.AlternateSetting = data[3]
	out.NumEndpoints = data[4]
	out.InterfaceClass = data[5]
	out.InterfaceSubClass = data[6]
	out.InterfaceProtocol = data[7]
	out.InterfaceIndex = data[8]
	return nil
}

// AudioEndpointDescriptor is the 9-byte standard endpoint descriptor used by
// Audio class interfaces, which appends bRefresh and bSynchAddress to the
// 7-byte USB 2.0 layout (Audio 1.0 Table 4-17).
type AudioEndpointDescriptor struct {
	Length          uint8  // Size of this descriptor (9)
	DescriptorType  uint8  // Endpoint descriptor type (0x05)
	EndpointAddress uint8  // Endpoint address (including direction)
	Attributes      uint8  // Transfer type
	MaxPacketSize   uint16 // Maximum packet size
	Interval        uint8  // Polling interval, ignored for bulk
	Refresh         uint8  // Always 0 for MIDIStreaming
	SynchAddress    uint8  // Always 0 for MIDIStreaming
}

// AudioEndpointDescriptorSize is the size of an audio endpoint descriptor in bytes.
const AudioEndpointDescriptorSize = 9

// Direction returns EndpointDirectionIn or EndpointDirectionOut.
func (e *AudioEndpointDescriptor) Direction() uint8 {
	return e.EndpointAddress & EndpointDirectionIn
}

// TransferType returns the endpoint transfer type.
func (e *AudioEndpointDescriptor) TransferType() uint8 {
	return e.Attributes & 0x03
}

// MarshalTo serializes the endpoint descriptor to buf.
// Returns the number of bytes written (always 9 if buf is large enough).
func (e *AudioEndpointDescriptor) MarshalTo(buf []byte) int {
	if len(buf) < AudioEndpointDescriptorSize {
		return 0
	}
	buf[0] = AudioEndpointDescriptorSize
	buf[1] = DescriptorTypeEndpoint
	buf[2] = e.EndpointAddress
	buf[3] = e.Attributes
	binary.LittleEndian.PutUint16(buf[4:6], e.MaxPacketSize)
	buf[6] = e.Interval
	buf[7] = e.Refresh
	buf[8] = e.SynchAddress
	return AudioEndpointDescriptorSize
}

// ParseAudioEndpointDescriptor parses an audio endpoint descriptor from bytes
// into out. Returns an error if the data is too short or the descriptor type
// is wrong.
func ParseAudioEndpointDescriptor(data []byte, out *AudioEndpointDescriptor) error {
	if len(data) < AudioEndpointDescriptorSize {
		return pkg.ErrDescriptorTooShort
	}
	if data[1] != DescriptorTypeEndpoint {
		return pkg.ErrDescriptorTypeMismatch
	}
	out.Length = data[0]
	out.DescriptorType = data[1]
	out.EndpointAddress = data[2]
	out.Attributes = data[3]
	out.MaxPacketSize = binary.LittleEndian.Uint16(data[4:6])
	out.Interval = data[6]
	out.Refresh = data[7]
	out.SynchAddress = data[8]
	return nil
}
