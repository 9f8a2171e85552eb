package midi

import "github.com/ardnew/usbmidi/pkg"

// ChannelMessage is a decoded channel voice message.
type ChannelMessage struct {
	Kind    uint8 // Status upper nibble: StatusNoteOff through StatusPitchBend
	Channel uint8 // Channel number, 0-15
	Data1   uint8 // First data byte
	Data2   uint8 // Second data byte, zero for one-byte messages
}

// dataLen returns the number of data bytes that follow a channel voice
// status byte, or 0 if kind is not a channel voice status.
func dataLen(kind uint8) int {
	switch kind & 0xF0 {
	case StatusProgramChange, StatusChannelPressure:
		return 1
	case StatusNoteOff, StatusNoteOn, StatusPolyPressure, StatusControlChange, StatusPitchBend:
		return 2
	default:
		return 0
	}
}

// Encode builds the cable 0 event packet for m.
//
// The CIN equals the status nibble, data bytes are masked to 7 bits, and the
// unused byte of one-byte messages is zero. Encode returns EventNone if Kind
// is not a channel voice status.
func Encode(m ChannelMessage) Event {
	kind := m.Kind & 0xF0
	n := dataLen(kind)
	if n == 0 {
		pkg.LogDebug(pkg.ComponentCodec, "not a channel voice status", "kind", m.Kind)
		return EventNone
	}
	e := Event{
		Type: kind >> 4,
		M1:   kind | m.Channel&0x0F,
		M2:   m.Data1 & 0x7F,
	}
	if n == 2 {
		e.M3 = m.Data2 & 0x7F
	}
	return e
}

// Decode extracts the channel voice message carried by e.
// Returns false if e is not a well-formed channel voice packet, which
// includes a status byte that disagrees with the CIN.
func Decode(e Event) (ChannelMessage, bool) {
	cin := e.CIN()
	if cin < CINNoteOff || cin > CINPitchBend || e.M1>>4 != cin {
		return ChannelMessage{}, false
	}
	m := ChannelMessage{
		Kind:    e.M1 & 0xF0,
		Channel: e.M1 & 0x0F,
		Data1:   e.M2,
	}
	if dataLen(m.Kind) == 2 {
		m.Data2 = e.M3
	}
	return m, true
}

// NoteOn returns a note-on event.
func NoteOn(pitch, velocity, channel uint8) Event {
	return Encode(ChannelMessage{Kind: StatusNoteOn, Channel: channel, Data1: pitch, Data2: velocity})
}

// NoteOff returns a note-off event.
func NoteOff(pitch, velocity, channel uint8) Event {
	return Encode(ChannelMessage{Kind: StatusNoteOff, Channel: channel, Data1: pitch, Data2: velocity})
}

// ControlChange returns a control change event.
func ControlChange(control, value, channel uint8) Event {
	return Encode(ChannelMessage{Kind: StatusControlChange, Channel: channel, Data1: control, Data2: value})
}

// PolyPressure returns a polyphonic key pressure event.
func PolyPressure(pitch, pressure, channel uint8) Event {
	return Encode(ChannelMessage{Kind: StatusPolyPressure, Channel: channel, Data1: pitch, Data2: pressure})
}

// ProgramChange returns a program change event.
func ProgramChange(program, channel uint8) Event {
	return Encode(ChannelMessage{Kind: StatusProgramChange, Channel: channel, Data1: program})
}

// AfterTouch returns a channel pressure event.
func AfterTouch(pressure, channel uint8) Event {
	return Encode(ChannelMessage{Kind: StatusChannelPressure, Channel: channel, Data1: pressure})
}

// PitchBend returns a pitch bend event for a 14-bit value (0 to MaxPitchBend,
// PitchBendCenter is no bend). The low 7 bits go in the first data byte and
// the high 7 bits in the second. Values above MaxPitchBend are clamped.
func PitchBend(value uint16, channel uint8) Event {
	if value > MaxPitchBend {
		value = MaxPitchBend
	}
	return Encode(ChannelMessage{
		Kind:    StatusPitchBend,
		Channel: channel,
		Data1:   uint8(value & 0x7F),
		Data2:   uint8(value >> 7),
	})
}

// PitchBendValue returns the 14-bit value carried by a pitch bend event.
func PitchBendValue(e Event) uint16 {
	return uint16(e.M2&0x7F) | uint16(e.M3&0x7F)<<7
}
