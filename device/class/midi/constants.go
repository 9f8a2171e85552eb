package midi

// Code Index Numbers (USB-MIDI 1.0 Table 4-1).
const (
	CINMisc            = 0x0 // Reserved for future extension
	CINCableEvent      = 0x1 // Reserved for future cable events
	CINSysCommon2      = 0x2 // Two-byte System Common message
	CINSysCommon3      = 0x3 // Three-byte System Common message
	CINSysExStart      = 0x4 // SysEx starts or continues
	CINSysExEnd1       = 0x5 // SysEx ends with one byte, or single-byte System Common
	CINSysExEnd2       = 0x6 // SysEx ends with two bytes
	CINSysExEnd3       = 0x7 // SysEx ends with three bytes
	CINNoteOff         = 0x8
	CINNoteOn          = 0x9
	CINPolyPressure    = 0xA
	CINControlChange   = 0xB
	CINProgramChange   = 0xC
	CINChannelPressure = 0xD
	CINPitchBend       = 0xE
	CINSingleByte      = 0xF
)

// MIDI channel voice status bytes (upper nibble; the lower nibble is the channel).
const (
	StatusNoteOff         = 0x80
	StatusNoteOn          = 0x90
	StatusPolyPressure    = 0xA0
	StatusControlChange   = 0xB0
	StatusProgramChange   = 0xC0
	StatusChannelPressure = 0xD0
	StatusPitchBend       = 0xE0
)

// SysEx framing bytes.
const (
	SysExStart = 0xF0
	SysExEnd   = 0xF7
)

// EventSize is the size of a USB-MIDI event packet in bytes.
const EventSize = 4

// RingSize is the receive ring capacity in bytes. One slot is always kept
// empty, so at most RingSize-1 bytes and (RingSize-1)/4 events are queued.
const RingSize = 128

// MaxPitchBend is the largest 14-bit pitch bend value. Center is 0x2000.
const (
	MaxPitchBend    = 0x3FFF
	PitchBendCenter = 0x2000
)

// ResetEvent is the reserved packet that requests a device reset when it
// reaches the head of the receive queue: a three-byte SysEx end carrying
// F0 01 F7 on cable 0.
var ResetEvent = Event{Type: CINSysExEnd3, M1: SysExStart, M2: 0x01, M3: SysExEnd}

// MIDIStreaming class-specific descriptor subtypes (USB-MIDI 1.0 Appendix A).
const (
	SubtypeHeader      = 0x01 // MS_HEADER / AC HEADER
	SubtypeMIDIInJack  = 0x02 // MIDI_IN_JACK
	SubtypeMIDIOutJack = 0x03 // MIDI_OUT_JACK
	SubtypeMSGeneral   = 0x01 // MS_GENERAL (class-specific endpoint)
)

// Jack types.
const (
	JackEmbedded = 0x01
	JackExternal = 0x02
)

// Jack IDs as wired by [NewDescriptors].
const (
	JackEmbeddedIn  = 0x01 // Fed by the bulk OUT endpoint
	JackEmbeddedOut = 0x02 // Feeds the bulk IN endpoint
	JackExternalIn  = 0x03
	JackExternalOut = 0x04
)

// Class specification release numbers (BCD).
const (
	ADCVersion = 0x0100 // Audio Device Class 1.0
	MSCVersion = 0x0100 // MIDIStreaming 1.0
)
