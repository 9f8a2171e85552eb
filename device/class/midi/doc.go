// Package midi implements the USB-MIDI 1.0 class function for the usbmidi
// device stack.
//
// A MIDI function exposes one Audio Control interface and one MIDIStreaming
// interface with a bulk OUT and a bulk IN endpoint. Both endpoints carry
// 4-byte event packets:
//
//	byte 0  cable number (high nibble) | Code Index Number (low nibble)
//	byte 1  MIDI status byte, or first SysEx byte
//	byte 2  first data byte, or second SysEx byte
//	byte 3  second data byte, or third SysEx byte
//
// Unused trailing bytes are always zero.
//
// # Architecture
//
//   - [Encode], [Decode], and the message constructors map channel voice
//     messages to and from packets
//   - [AppendSysEx] frames a SysEx stream into start/continue/end packets
//   - [Ring] is a lock-free single-producer/single-consumer byte ring
//   - [Queue] reads the ring as whole events
//   - [MIDI] ties a queue, a handler table, and a [hal.Transport] together
//   - [Descriptors] is the class descriptor block sent at enumeration
//
// # Receive Path
//
// [MIDI.Ingest] copies whatever the OUT endpoint holds into the ring and may
// run from an interrupt or poll goroutine. [MIDI.Dispatch] drains complete
// events, calls the registered handler for note-on, note-off, and control
// change, and echoes every event back on the IN endpoint. [MIDI.Service]
// does both and is meant to be called once per loop iteration.
//
// When the ring is full, incoming bytes are dropped without error.
//
// # Remote Reset
//
// The packet 07 F0 01 F7 ([ResetEvent]) calls [Config.Reset] as soon as it
// is inspected by Peek, Read, or Dispatch. Hosts use it to reboot the device
// into its bootloader.
//
// # Usage
//
//	m := midi.New(hal, midi.Config{
//	    OutEndpoint: 0x02,
//	    InEndpoint:  0x83,
//	    Reset:       func() { hal.Reset() },
//	})
//	m.SetOnNoteOn(func(channel, pitch, velocity uint8) {
//	    // channel is 1-16
//	})
//
//	for {
//	    m.Service()
//	    if m.Ready() {
//	        m.SendControlChange(7, 127, 0) // channel 0-15
//	    }
//	}
//
// Messages built with [gitlab.com/gomidi/midi/v2] can be sent directly with
// [MIDI.Send], and [Event.Message] converts a packet back.
package midi
