package midi

import (
	"encoding/binary"

	"github.com/ardnew/usbmidi/device"
	"github.com/ardnew/usbmidi/pkg"
)

// ACHeaderDescriptor is the class-specific Audio Control interface header
// for a single streaming interface (Audio 1.0 Table 4-2).
type ACHeaderDescriptor struct {
	ADCVersion      uint16 // bcdADC
	TotalLength     uint16 // Class-specific AC descriptors, header included
	InCollection    uint8  // Number of streaming interfaces (1)
	StreamInterface uint8  // baInterfaceNr(1)
}

// ACHeaderDescriptorSize is the size of an AC header with one interface.
const ACHeaderDescriptorSize = 9

// MarshalTo serializes the AC header to buf.
// Returns the number of bytes written, or 0 if buf is too small.
func (h *ACHeaderDescriptor) MarshalTo(buf []byte) int {
	if len(buf) < ACHeaderDescriptorSize {
		return 0
	}
	buf[0] = ACHeaderDescriptorSize
	buf[1] = device.DescriptorTypeCSInterface
	buf[2] = SubtypeHeader
	binary.LittleEndian.PutUint16(buf[3:5], h.ADCVersion)
	binary.LittleEndian.PutUint16(buf[5:7], h.TotalLength)
	buf[7] = h.InCollection
	buf[8] = h.StreamInterface
	return ACHeaderDescriptorSize
}

// ParseACHeaderDescriptor parses an AC header from data into out.
func ParseACHeaderDescriptor(data []byte, out *ACHeaderDescriptor) error {
	if err := checkClassDescriptor(data, ACHeaderDescriptorSize, device.DescriptorTypeCSInterface, SubtypeHeader); err != nil {
		return err
	}
	out.ADCVersion = binary.LittleEndian.Uint16(data[3:5])
	out.TotalLength = binary.LittleEndian.Uint16(data[5:7])
	out.InCollection = data[7]
	out.StreamInterface = data[8]
	return nil
}

// MSHeaderDescriptor is the class-specific MIDIStreaming interface header
// (USB-MIDI 1.0 Table 6-2).
type MSHeaderDescriptor struct {
	MSCVersion  uint16 // bcdMSC
	TotalLength uint16 // Header, jacks, and endpoint descriptors
}

// MSHeaderDescriptorSize is the size of an MS header.
const MSHeaderDescriptorSize = 7

// MarshalTo serializes the MS header to buf.
// Returns the number of bytes written, or 0 if buf is too small.
func (h *MSHeaderDescriptor) MarshalTo(buf []byte) int {
	if len(buf) < MSHeaderDescriptorSize {
		return 0
	}
	buf[0] = MSHeaderDescriptorSize
	buf[1] = device.DescriptorTypeCSInterface
	buf[2] = SubtypeHeader
	binary.LittleEndian.PutUint16(buf[3:5], h.MSCVersion)
	binary.LittleEndian.PutUint16(buf[5:7], h.TotalLength)
	return MSHeaderDescriptorSize
}

// ParseMSHeaderDescriptor parses an MS header from data into out.
func ParseMSHeaderDescriptor(data []byte, out *MSHeaderDescriptor) error {
	if err := checkClassDescriptor(data, MSHeaderDescriptorSize, device.DescriptorTypeCSInterface, SubtypeHeader); err != nil {
		return err
	}
	out.MSCVersion = binary.LittleEndian.Uint16(data[3:5])
	out.TotalLength = binary.LittleEndian.Uint16(data[5:7])
	return nil
}

// InJackDescriptor declares a MIDI IN jack (USB-MIDI 1.0 Table 6-3).
type InJackDescriptor struct {
	JackType uint8 // JackEmbedded or JackExternal
	JackID   uint8
	JackName uint8 // iJack string index
}

// InJackDescriptorSize is the size of a MIDI IN jack descriptor.
const InJackDescriptorSize = 6

// MarshalTo serializes the jack descriptor to buf.
// Returns the number of bytes written, or 0 if buf is too small.
func (j *InJackDescriptor) MarshalTo(buf []byte) int {
	if len(buf) < InJackDescriptorSize {
		return 0
	}
	buf[0] = InJackDescriptorSize
	buf[1] = device.DescriptorTypeCSInterface
	buf[2] = SubtypeMIDIInJack
	buf[3] = j.JackType
	buf[4] = j.JackID
	buf[5] = j.JackName
	return InJackDescriptorSize
}

// ParseInJackDescriptor parses a MIDI IN jack descriptor from data into out.
func ParseInJackDescriptor(data []byte, out *InJackDescriptor) error {
	if err := checkClassDescriptor(data, InJackDescriptorSize, device.DescriptorTypeCSInterface, SubtypeMIDIInJack); err != nil {
		return err
	}
	out.JackType = data[3]
	out.JackID = data[4]
	out.JackName = data[5]
	return nil
}

// OutJackDescriptor declares a MIDI OUT jack with one input pin
// (USB-MIDI 1.0 Table 6-4).
type OutJackDescriptor struct {
	JackType  uint8 // JackEmbedded or JackExternal
	JackID    uint8
	SourceID  uint8 // baSourceID(1): jack feeding this one
	SourcePin uint8 // baSourcePin(1)
	JackName  uint8 // iJack string index
}

// OutJackDescriptorSize is the size of a MIDI OUT jack descriptor with one
// input pin.
const OutJackDescriptorSize = 9

// MarshalTo serializes the jack descriptor to buf.
// Returns the number of bytes written, or 0 if buf is too small.
func (j *OutJackDescriptor) MarshalTo(buf []byte) int {
	if len(buf) < OutJackDescriptorSize {
		return 0
	}
	buf[0] = OutJackDescriptorSize
	buf[1] = device.DescriptorTypeCSInterface
	buf[2] = SubtypeMIDIOutJack
	buf[3] = j.JackType
	buf[4] = j.JackID
	buf[5] = 1 // bNrInputPins
	buf[6] = j.SourceID
	buf[7] = j.SourcePin
	buf[8] = j.JackName
	return OutJackDescriptorSize
}

// ParseOutJackDescriptor parses a single-pin MIDI OUT jack descriptor from
// data into out.
func ParseOutJackDescriptor(data []byte, out *OutJackDescriptor) error {
	if err := checkClassDescriptor(data, OutJackDescriptorSize, device.DescriptorTypeCSInterface, SubtypeMIDIOutJack); err != nil {
		return err
	}
	if data[5] != 1 {
		return pkg.ErrNotSupported
	}
	out.JackType = data[3]
	out.JackID = data[4]
	out.SourceID = data[6]
	out.SourcePin = data[7]
	out.JackName = data[8]
	return nil
}

// MSEndpointDescriptor binds a bulk endpoint to one embedded jack
// (USB-MIDI 1.0 Table 6-7).
type MSEndpointDescriptor struct {
	AssocJackID uint8 // baAssocJackID(1)
}

// MSEndpointDescriptorSize is the size of a class-specific MS endpoint
// descriptor with one jack.
const MSEndpointDescriptorSize = 5

// MarshalTo serializes the endpoint descriptor to buf.
// Returns the number of bytes written, or 0 if buf is too small.
func (e *MSEndpointDescriptor) MarshalTo(buf []byte) int {
	if len(buf) < MSEndpointDescriptorSize {
		return 0
	}
	buf[0] = MSEndpointDescriptorSize
	buf[1] = device.DescriptorTypeCSEndpoint
	buf[2] = SubtypeMSGeneral
	buf[3] = 1 // bNumEmbMIDIJack
	buf[4] = e.AssocJackID
	return MSEndpointDescriptorSize
}

// ParseMSEndpointDescriptor parses a single-jack MS endpoint descriptor from
// data into out.
func ParseMSEndpointDescriptor(data []byte, out *MSEndpointDescriptor) error {
	if err := checkClassDescriptor(data, MSEndpointDescriptorSize, device.DescriptorTypeCSEndpoint, SubtypeMSGeneral); err != nil {
		return err
	}
	if data[3] != 1 {
		return pkg.ErrNotSupported
	}
	out.AssocJackID = data[4]
	return nil
}

func checkClassDescriptor(data []byte, size int, descType, subtype uint8) error {
	if len(data) < size || int(data[0]) < size {
		return pkg.ErrDescriptorTooShort
	}
	if data[1] != descType {
		return pkg.ErrDescriptorTypeMismatch
	}
	if data[2] != subtype {
		return pkg.ErrDescriptorSubtypeMismatch
	}
	return nil
}

// MSTotalLength is wTotalLength of the MIDIStreaming header: the header,
// four jacks, and two endpoints with their class-specific descriptors.
const MSTotalLength = MSHeaderDescriptorSize +
	2*InJackDescriptorSize + 2*OutJackDescriptorSize +
	2*(device.AudioEndpointDescriptorSize+MSEndpointDescriptorSize)

// DescriptorsSize is the size of the full interface block.
const DescriptorsSize = device.InterfaceDescriptorSize + ACHeaderDescriptorSize +
	device.InterfaceDescriptorSize + MSTotalLength

// Descriptors is the interface block a MIDI function contributes to the
// configuration descriptor, in wire order.
type Descriptors struct {
	Control         device.InterfaceDescriptor
	ControlHeader   ACHeaderDescriptor
	Streaming       device.InterfaceDescriptor
	StreamingHeader MSHeaderDescriptor
	EmbeddedIn      InJackDescriptor
	EmbeddedOut     OutJackDescriptor
	ExternalIn      InJackDescriptor
	ExternalOut     OutJackDescriptor
	Out             device.AudioEndpointDescriptor
	OutJack         MSEndpointDescriptor
	In              device.AudioEndpointDescriptor
	InJack          MSEndpointDescriptor
}

// NewDescriptors builds the interface block for a function whose Audio
// Control interface is iface and whose MIDIStreaming interface is iface+1.
//
// Jacks are wired so that host data on the OUT endpoint enters the embedded
// IN jack and leaves through the external OUT jack, and data from the
// external IN jack reaches the host through the embedded OUT jack and the IN
// endpoint.
func NewDescriptors(iface uint8, config Config) Descriptors {
	maxPacket := config.MaxPacketSize
	if maxPacket == 0 {
		maxPacket = DefaultConfig.MaxPacketSize
	}
	return Descriptors{
		Control: device.InterfaceDescriptor{
			InterfaceNumber:   iface,
			InterfaceClass:    device.ClassAudio,
			InterfaceSubClass: device.SubclassAudioControl,
		},
		ControlHeader: ACHeaderDescriptor{
			ADCVersion:      ADCVersion,
			TotalLength:     ACHeaderDescriptorSize,
			InCollection:    1,
			StreamInterface: iface + 1,
		},
		Streaming: device.InterfaceDescriptor{
			InterfaceNumber:   iface + 1,
			NumEndpoints:      2,
			InterfaceClass:    device.ClassAudio,
			InterfaceSubClass: device.SubclassMIDIStreaming,
		},
		StreamingHeader: MSHeaderDescriptor{
			MSCVersion:  MSCVersion,
			TotalLength: MSTotalLength,
		},
		EmbeddedIn: InJackDescriptor{JackType: JackEmbedded, JackID: JackEmbeddedIn},
		EmbeddedOut: OutJackDescriptor{
			JackType:  JackEmbedded,
			JackID:    JackEmbeddedOut,
			SourceID:  JackExternalIn,
			SourcePin: 1,
		},
		ExternalIn: InJackDescriptor{JackType: JackExternal, JackID: JackExternalIn},
		ExternalOut: OutJackDescriptor{
			JackType:  JackExternal,
			JackID:    JackExternalOut,
			SourceID:  JackEmbeddedIn,
			SourcePin: 1,
		},
		Out: device.AudioEndpointDescriptor{
			EndpointAddress: config.OutEndpoint &^ device.EndpointDirectionIn,
			Attributes:      device.EndpointTypeBulk,
			MaxPacketSize:   maxPacket,
		},
		OutJack: MSEndpointDescriptor{AssocJackID: JackEmbeddedIn},
		In: device.AudioEndpointDescriptor{
			EndpointAddress: config.InEndpoint | device.EndpointDirectionIn,
			Attributes:      device.EndpointTypeBulk,
			MaxPacketSize:   maxPacket,
		},
		InJack: MSEndpointDescriptor{AssocJackID: JackEmbeddedOut},
	}
}

// MarshalTo serializes the whole block to buf in wire order.
// Returns the number of bytes written (DescriptorsSize), or 0 if buf is too
// small.
func (d *Descriptors) MarshalTo(buf []byte) int {
	if len(buf) < DescriptorsSize {
		return 0
	}
	n := d.Control.MarshalTo(buf)
	n += d.ControlHeader.MarshalTo(buf[n:])
	n += d.Streaming.MarshalTo(buf[n:])
	n += d.StreamingHeader.MarshalTo(buf[n:])
	n += d.EmbeddedIn.MarshalTo(buf[n:])
	n += d.EmbeddedOut.MarshalTo(buf[n:])
	n += d.ExternalIn.MarshalTo(buf[n:])
	n += d.ExternalOut.MarshalTo(buf[n:])
	n += d.Out.MarshalTo(buf[n:])
	n += d.OutJack.MarshalTo(buf[n:])
	n += d.In.MarshalTo(buf[n:])
	n += d.InJack.MarshalTo(buf[n:])
	return n
}

// ParseDescriptors parses a block produced by [Descriptors.MarshalTo].
// The block must be in the same order; descriptor lengths are taken from
// each bLength field.
func ParseDescriptors(data []byte, out *Descriptors) error {
	steps := []func([]byte) error{
		func(b []byte) error { return device.ParseInterfaceDescriptor(b, &out.Control) },
		func(b []byte) error { return ParseACHeaderDescriptor(b, &out.ControlHeader) },
		func(b []byte) error { return device.ParseInterfaceDescriptor(b, &out.Streaming) },
		func(b []byte) error { return ParseMSHeaderDescriptor(b, &out.StreamingHeader) },
		func(b []byte) error { return ParseInJackDescriptor(b, &out.EmbeddedIn) },
		func(b []byte) error { return ParseOutJackDescriptor(b, &out.EmbeddedOut) },
		func(b []byte) error { return ParseInJackDescriptor(b, &out.ExternalIn) },
		func(b []byte) error { return ParseOutJackDescriptor(b, &out.ExternalOut) },
		func(b []byte) error { return device.ParseAudioEndpointDescriptor(b, &out.Out) },
		func(b []byte) error { return ParseMSEndpointDescriptor(b, &out.OutJack) },
		func(b []byte) error { return device.ParseAudioEndpointDescriptor(b, &out.In) },
		func(b []byte) error { return ParseMSEndpointDescriptor(b, &out.InJack) },
	}
	for _, parse := range steps {
		if len(data) < 2 || int(data[0]) < 2 || int(data[0]) > len(data) {
			return pkg.ErrDescriptorTooShort
		}
		if err := parse(data[:data[0]]); err != nil {
			return err
		}
		data = data[data[0]:]
	}
	return nil
}
