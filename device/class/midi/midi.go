package midi

import (
	"sync"

	"github.com/ardnew/usbmidi/device/hal"
	"github.com/ardnew/usbmidi/pkg"
)

// Handler receives a dispatched channel voice event. channel is numbered
// 1-16; data1 and data2 are the message data bytes.
type Handler func(channel, data1, data2 uint8)

// EventHandler receives every dispatched event category.
type EventHandler interface {
	NoteOn(channel, pitch, velocity uint8)
	NoteOff(channel, pitch, velocity uint8)
	ControlChange(channel, control, value uint8)
}

// Config holds the endpoint wiring and reset hook of a MIDI function.
type Config struct {
	OutEndpoint   uint8  // Bulk OUT endpoint address (host to device)
	InEndpoint    uint8  // Bulk IN endpoint address (device to host)
	MaxPacketSize uint16 // Max packet size declared for both endpoints
	Reset         func() // Called when ResetEvent is inspected; may be nil
}

// DefaultConfig uses endpoint 2 OUT and endpoint 3 IN with 64-byte packets.
var DefaultConfig = Config{
	OutEndpoint:   0x02,
	InEndpoint:    0x83,
	MaxPacketSize: hal.MaxPacketSize,
}

// MIDI is a USB-MIDI class function with one bulk OUT and one bulk IN
// endpoint. It owns the receive queue and the handler table and talks to
// the controller through a [hal.Transport].
//
// Ingest may run concurrently with the consuming methods (Available, Peek,
// Read, Dispatch). Each side must itself be driven from a single goroutine.
type MIDI struct {
	transport hal.Transport
	config    Config
	queue     Queue

	onNoteOn        Handler
	onNoteOff       Handler
	onControlChange Handler
	mutex           sync.RWMutex
}

// New creates a MIDI function on transport.
func New(transport hal.Transport, config Config) *MIDI {
	if config.MaxPacketSize == 0 {
		config.MaxPacketSize = hal.MaxPacketSize
	}
	m := &MIDI{
		transport: transport,
		config:    config,
	}
	m.queue.reset = config.Reset
	return m
}

// Config returns the configuration the function was created with.
func (m *MIDI) Config() Config {
	return m.config
}

// SetOnNoteOn sets the note-on handler. A nil handler disables dispatch.
func (m *MIDI) SetOnNoteOn(h Handler) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.onNoteOn = h
}

// SetOnNoteOff sets the note-off handler.
func (m *MIDI) SetOnNoteOff(h Handler) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.onNoteOff = h
}

// SetOnControlChange sets the control change handler.
func (m *MIDI) SetOnControlChange(h Handler) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.onControlChange = h
}

// SetHandler routes all event categories to h.
func (m *MIDI) SetHandler(h EventHandler) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.onNoteOn = h.NoteOn
	m.onNoteOff = h.NoteOff
	m.onControlChange = h.ControlChange
}

// Ingest moves all bytes the OUT endpoint currently holds into the receive
// queue. Bytes that do not fit are dropped. Returns the number stored.
func (m *MIDI) Ingest() int {
	return m.queue.Ingest(m.transport, m.config.OutEndpoint)
}

// Available returns the number of complete events queued.
func (m *MIDI) Available() int {
	return m.queue.Available()
}

// Peek returns the next queued event without consuming it, or EventNone.
func (m *MIDI) Peek() Event {
	return m.queue.Peek()
}

// Read consumes the next queued event, or returns EventNone.
func (m *MIDI) Read() Event {
	return m.queue.Read()
}

// Service runs one ingest and dispatch pass. Call it once per application
// loop iteration. Returns the number of events dispatched.
func (m *MIDI) Service() int {
	m.Ingest()
	return m.Dispatch()
}

// Dispatch drains every queued event. Note-on, note-off, and control change
// events go to their handler if one is set. Every drained event, recognized
// or not, is echoed to the IN endpoint and flushed.
// Returns the number of events drained.
func (m *MIDI) Dispatch() int {
	n := 0
	for m.queue.Available() > 0 {
		e := m.queue.Read()
		m.route(e)
		m.Write(e)
		m.Flush()
		n++
	}
	return n
}

// route invokes the handler registered for e, if any.
func (m *MIDI) route(e Event) {
	msg, ok := Decode(e)
	if !ok {
		return
	}

	m.mutex.RLock()
	var h Handler
	switch e.CIN() {
	case CINNoteOn:
		h = m.onNoteOn
	case CINNoteOff:
		h = m.onNoteOff
	case CINControlChange:
		h = m.onControlChange
	}
	m.mutex.RUnlock()

	if h != nil {
		// status - (base - 1) numbers channels from 1
		h(e.M1-(msg.Kind-1), msg.Data1, msg.Data2)
	}
}

// Ready returns true if the IN endpoint can accept an event.
func (m *MIDI) Ready() bool {
	return m.transport.Ready(m.config.InEndpoint)
}

// Write sends one event to the IN endpoint. Returns the number of bytes the
// transport accepted, or 0 if the endpoint is not ready.
func (m *MIDI) Write(e Event) int {
	if !m.transport.Ready(m.config.InEndpoint) {
		return 0
	}
	var buf [EventSize]byte
	e.MarshalTo(buf[:])
	n := m.transport.Send(m.config.InEndpoint, buf[:])
	if n <= 0 {
		return 0
	}
	return n
}

// Flush releases queued IN data to the host.
func (m *MIDI) Flush() {
	m.transport.Flush(m.config.InEndpoint)
}

// send writes e and flushes.
func (m *MIDI) send(e Event) int {
	n := m.Write(e)
	m.Flush()
	return n
}

// SendNoteOn sends a note-on. channel is 0-15.
func (m *MIDI) SendNoteOn(pitch, velocity, channel uint8) int {
	return m.send(NoteOn(pitch, velocity, channel))
}

// SendNoteOff sends a note-off. channel is 0-15.
func (m *MIDI) SendNoteOff(pitch, velocity, channel uint8) int {
	return m.send(NoteOff(pitch, velocity, channel))
}

// SendControlChange sends a control change. channel is 0-15.
func (m *MIDI) SendControlChange(control, value, channel uint8) int {
	return m.send(ControlChange(control, value, channel))
}

// SendPolyPressure sends a polyphonic key pressure. channel is 0-15.
func (m *MIDI) SendPolyPressure(pitch, pressure, channel uint8) int {
	return m.send(PolyPressure(pitch, pressure, channel))
}

// SendProgramChange sends a program change. channel is 0-15.
func (m *MIDI) SendProgramChange(program, channel uint8) int {
	return m.send(ProgramChange(program, channel))
}

// SendAfterTouch sends a channel pressure. channel is 0-15.
func (m *MIDI) SendAfterTouch(pressure, channel uint8) int {
	return m.send(AfterTouch(pressure, channel))
}

// SendPitchBend sends a 14-bit pitch bend. channel is 0-15.
func (m *MIDI) SendPitchBend(value uint16, channel uint8) int {
	return m.send(PitchBend(value, channel))
}

// SendSysEx frames data into SysEx packets and sends each one, flushing
// after every packet. data is sent verbatim, so it should include the F0 and
// F7 markers. Returns the total bytes accepted by the transport.
func (m *MIDI) SendSysEx(data []byte) int {
	total := 0
	for len(data) > 0 {
		e, n := nextSysEx(data)
		total += m.send(e)
		data = data[n:]
	}
	return total
}

// HandleSetup processes class-specific SETUP requests. MIDIStreaming 1.0
// defines no mandatory requests for bulk jacks, so none are claimed and the
// stack should stall them.
func (m *MIDI) HandleSetup(setup *hal.SetupPacket) bool {
	if setup.IsClass() {
		pkg.LogDebug(pkg.ComponentDevice, "class request not handled",
			"request", setup.Request,
			"value", setup.Value,
			"index", setup.Index)
	}
	return false
}

// MarshalInterfaces writes the Audio Control and MIDIStreaming interface
// block into buf for the configuration descriptor. The block uses interface
// numbers *iface and *iface+1, and *iface is advanced past both.
// Returns the number of bytes written, or 0 if buf is too small, in which
// case *iface is unchanged.
func (m *MIDI) MarshalInterfaces(buf []byte, iface *uint8) int {
	desc := NewDescriptors(*iface, m.config)
	n := desc.MarshalTo(buf)
	if n == 0 {
		return 0
	}
	*iface += 2

	pkg.LogDebug(pkg.ComponentDescriptor, "interface descriptors built",
		"control", desc.Control.InterfaceNumber,
		"streaming", desc.Streaming.InterfaceNumber,
		"bytes", n)
	return n
}
