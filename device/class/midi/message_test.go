package midi

import (
	"bytes"
	"testing"

	gomidi "gitlab.com/gomidi/midi/v2"
)

func TestEventFromMessage(t *testing.T) {
	tests := []struct {
		name string
		msg  gomidi.Message
		want Event
		ok   bool
	}{
		{"note on", gomidi.NoteOn(0, 60, 100), Event{CINNoteOn, 0x90, 0x3C, 0x64}, true},
		{"note off", gomidi.NoteOff(3, 60), Event{CINNoteOff, 0x83, 0x3C, 0x00}, true},
		{"control change", gomidi.ControlChange(1, 7, 127), Event{CINControlChange, 0xB1, 0x07, 0x7F}, true},
		{"program change", gomidi.ProgramChange(2, 5), Event{CINProgramChange, 0xC2, 0x05, 0x00}, true},
		{"pitch bend center", gomidi.Pitchbend(0, 0), Event{CINPitchBend, 0xE0, 0x00, 0x40}, true},
		{"time code", gomidi.Message{0xF1, 0x23}, Event{CINSysCommon2, 0xF1, 0x23, 0x00}, true},
		{"song position", gomidi.Message{0xF2, 0x01, 0x02}, Event{CINSysCommon3, 0xF2, 0x01, 0x02}, true},
		{"tune request", gomidi.Message{0xF6}, Event{CINSysExEnd1, 0xF6, 0x00, 0x00}, true},
		{"clock", gomidi.Message{0xF8}, Event{CINSingleByte, 0xF8, 0x00, 0x00}, true},
		{"empty", gomidi.Message{}, EventNone, false},
		{"truncated", gomidi.Message{0x90, 0x3C}, EventNone, false},
		{"data byte", gomidi.Message{0x3C}, EventNone, false},
		{"sysex", gomidi.Message{0xF0, 0x01, 0xF7}, EventNone, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := EventFromMessage(tt.msg)
			if ok != tt.ok || got != tt.want {
				t.Errorf("EventFromMessage(% X) = %v, %v; want %v, %v", []byte(tt.msg), got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestEvent_Message(t *testing.T) {
	e := NoteOn(60, 100, 0)
	msg := e.Message()

	var channel, key, velocity uint8
	if !msg.GetNoteOn(&channel, &key, &velocity) {
		t.Fatalf("Message() = % X, not a note-on", []byte(msg))
	}
	if channel != 0 || key != 60 || velocity != 100 {
		t.Errorf("note-on = %d %d %d, want 0 60 100", channel, key, velocity)
	}

	if got := ProgramChange(9, 1).Message(); !bytes.Equal(got, []byte{0xC1, 0x09}) {
		t.Errorf("program change Message() = % X", []byte(got))
	}
}

func TestAppendMessage(t *testing.T) {
	sysex := gomidi.Message{0xF0, 0x43, 0x10, 0x4C, 0xF7}
	packets, ok := AppendMessage(nil, sysex)
	if !ok {
		t.Fatal("AppendMessage rejected SysEx")
	}
	if len(packets) != SysExPacketCount(len(sysex)) {
		t.Fatalf("packets = %d, want %d", len(packets), SysExPacketCount(len(sysex)))
	}
	if got := AppendSysExPayload(nil, packets); !bytes.Equal(got, sysex) {
		t.Errorf("reassembled = % X, want % X", got, []byte(sysex))
	}

	packets, ok = AppendMessage(packets, gomidi.NoteOn(0, 1, 2))
	if !ok || len(packets) != 3 || packets[2] != NoteOn(1, 2, 0) {
		t.Errorf("appended note-on: ok=%v packets=%v", ok, packets)
	}

	before := len(packets)
	packets, ok = AppendMessage(packets, gomidi.Message{0x42})
	if ok || len(packets) != before {
		t.Errorf("invalid message appended: ok=%v len=%d", ok, len(packets))
	}
}

func TestMIDI_Send(t *testing.T) {
	m, ft := newTestMIDI()

	if n := m.Send(gomidi.ControlChange(1, 7, 127)); n != EventSize {
		t.Errorf("Send(cc) = %d, want %d", n, EventSize)
	}
	if n := m.Send(gomidi.Message{0xF0, 0x7D, 0xF7}); n != EventSize {
		t.Errorf("Send(sysex) = %d, want %d", n, EventSize)
	}
	if n := m.Send(gomidi.Message{0x01}); n != 0 {
		t.Errorf("Send(invalid) = %d, want 0", n)
	}

	want := []byte{
		0x0B, 0xB1, 0x07, 0x7F,
		0x07, 0xF0, 0x7D, 0xF7,
	}
	if !bytes.Equal(ft.tx, want) {
		t.Errorf("wire bytes = % X, want % X", ft.tx, want)
	}
}
