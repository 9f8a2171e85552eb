package midi

import (
	"fmt"

	"github.com/ardnew/usbmidi/pkg"
)

// Event is one 4-byte USB-MIDI event packet.
//
// Type carries the cable number in its upper nibble and the Code Index
// Number in its lower nibble. M1..M3 hold the MIDI bytes; bytes past the
// payload length of the CIN are zero.
type Event struct {
	Type uint8 // Cable number and Code Index Number
	M1   uint8 // Status byte, or first SysEx byte
	M2   uint8 // First data byte, or second SysEx byte
	M3   uint8 // Second data byte, or third SysEx byte
}

// EventNone is the "no event" result. It is never sent for real data.
var EventNone = Event{}

// CIN returns the Code Index Number.
func (e Event) CIN() uint8 {
	return e.Type & 0x0F
}

// Cable returns the virtual cable number.
func (e Event) Cable() uint8 {
	return e.Type >> 4
}

// IsNone returns true if e is EventNone.
func (e Event) IsNone() bool {
	return e == EventNone
}

// MarshalTo writes the 4 wire bytes of e to buf.
// Returns the number of bytes written (4), or 0 if buf is too small.
func (e Event) MarshalTo(buf []byte) int {
	if len(buf) < EventSize {
		return 0
	}
	buf[0] = e.Type
	buf[1] = e.M1
	buf[2] = e.M2
	buf[3] = e.M3
	return EventSize
}

// Bytes returns the wire representation of e.
func (e Event) Bytes() [EventSize]byte {
	return [EventSize]byte{e.Type, e.M1, e.M2, e.M3}
}

// ParseEvent parses a 4-byte wire packet into out.
func ParseEvent(data []byte, out *Event) error {
	if len(data) < EventSize {
		return pkg.ErrPacketTooShort
	}
	out.Type = data[0]
	out.M1 = data[1]
	out.M2 = data[2]
	out.M3 = data[3]
	return nil
}

// PayloadLen returns the number of MIDI bytes a packet with the given CIN
// carries (USB-MIDI 1.0 Table 4-1). Reserved CINs carry none.
func PayloadLen(cin uint8) int {
	switch cin & 0x0F {
	case CINSysExEnd1, CINSingleByte:
		return 1
	case CINSysCommon2, CINSysExEnd2, CINProgramChange, CINChannelPressure:
		return 2
	case CINSysCommon3, CINSysExStart, CINSysExEnd3,
		CINNoteOff, CINNoteOn, CINPolyPressure, CINControlChange, CINPitchBend:
		return 3
	default:
		return 0
	}
}

// AppendPayload appends the MIDI bytes carried by e to dst.
func (e Event) AppendPayload(dst []byte) []byte {
	n := PayloadLen(e.CIN())
	if n == 0 {
		return dst
	}
	dst = append(dst, e.M1)
	if n > 1 {
		dst = append(dst, e.M2)
	}
	if n > 2 {
		dst = append(dst, e.M3)
	}
	return dst
}

// IsSysEx returns true if e carries a SysEx start, continue, or end packet.
// CINSysExEnd1 is shared with single-byte System Common messages and is
// reported as SysEx.
func (e Event) IsSysEx() bool {
	cin := e.CIN()
	return cin >= CINSysExStart && cin <= CINSysExEnd3
}

// String returns the wire bytes in hex.
func (e Event) String() string {
	return fmt.Sprintf("%02X %02X %02X %02X", e.Type, e.M1, e.M2, e.M3)
}
