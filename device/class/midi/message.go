package midi

import (
	gomidi "gitlab.com/gomidi/midi/v2"

	"github.com/ardnew/usbmidi/pkg"
)

// System message status bytes that fit in one packet.
const (
	statusTimeCode     = 0xF1
	statusSongPosition = 0xF2
	statusSongSelect   = 0xF3
	statusTuneRequest  = 0xF6
	statusRealtime     = 0xF8
)

// Message returns the MIDI bytes carried by e as a gomidi message.
// SysEx packets yield their raw fragment, not a complete SysEx message.
func (e Event) Message() gomidi.Message {
	return gomidi.Message(e.AppendPayload(nil))
}

// EventFromMessage returns the cable 0 packet carrying msg. It handles
// channel voice, System Common, and System Real-Time messages; SysEx needs
// multiple packets and is handled by [AppendMessage].
func EventFromMessage(msg gomidi.Message) (Event, bool) {
	if len(msg) == 0 {
		return EventNone, false
	}
	status := msg[0]
	switch {
	case status >= StatusNoteOff && status < SysExStart:
		n := dataLen(status)
		if len(msg) < 1+n {
			pkg.LogDebug(pkg.ComponentCodec, "truncated channel message",
				"status", status,
				"bytes", len(msg))
			return EventNone, false
		}
		m := ChannelMessage{Kind: status & 0xF0, Channel: status & 0x0F, Data1: msg[1]}
		if n == 2 {
			m.Data2 = msg[2]
		}
		return Encode(m), true

	case status == statusTimeCode || status == statusSongSelect:
		if len(msg) < 2 {
			return EventNone, false
		}
		return Event{Type: CINSysCommon2, M1: status, M2: msg[1]}, true

	case status == statusSongPosition:
		if len(msg) < 3 {
			return EventNone, false
		}
		return Event{Type: CINSysCommon3, M1: status, M2: msg[1], M3: msg[2]}, true

	case status == statusTuneRequest:
		return Event{Type: CINSysExEnd1, M1: status}, true

	case status >= statusRealtime:
		return Event{Type: CINSingleByte, M1: status}, true

	default:
		return EventNone, false
	}
}

// AppendMessage appends the packets carrying msg to dst. SysEx messages are
// framed with [AppendSysEx]; everything else uses [EventFromMessage].
// Returns false, with dst unchanged, if msg cannot be carried.
func AppendMessage(dst []Event, msg gomidi.Message) ([]Event, bool) {
	if len(msg) > 0 && msg[0] == SysExStart {
		return AppendSysEx(dst, msg), true
	}
	e, ok := EventFromMessage(msg)
	if !ok {
		return dst, false
	}
	return append(dst, e), true
}

// Send transmits msg, flushing after each packet. Returns the total bytes
// accepted by the transport, or 0 if msg cannot be carried.
func (m *MIDI) Send(msg gomidi.Message) int {
	if len(msg) > 0 && msg[0] == SysExStart {
		return m.SendSysEx(msg)
	}
	e, ok := EventFromMessage(msg)
	if !ok {
		pkg.LogDebug(pkg.ComponentTransmit, "unsupported message", "bytes", len(msg))
		return 0
	}
	return m.send(e)
}
