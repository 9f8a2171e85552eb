package device

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ardnew/usbmidi/device/hal"
	"github.com/ardnew/usbmidi/pkg"
)

type setupResult struct {
	setup hal.SetupPacket
	err   error
}

// fakeHAL replays queued SETUP results and records control replies.
type fakeHAL struct {
	setups chan setupResult

	mutex  sync.Mutex
	stalls int
	acks   int
	sent   []byte
}

func newFakeHAL() *fakeHAL {
	return &fakeHAL{setups: make(chan setupResult, 8)}
}

func (f *fakeHAL) Recv(uint8) (byte, bool) { return 0, false }
func (f *fakeHAL) Send(_ uint8, d []byte) int { return len(d) }
func (f *fakeHAL) Flush(uint8) {}
func (f *fakeHAL) Ready(uint8) bool { return true }
func (f *fakeHAL) Init(context.Context) error { return nil }
func (f *fakeHAL) Start() error { return nil }
func (f *fakeHAL) Stop() error { return nil }
func (f *fakeHAL) Reset() error { return nil }
func (f *fakeHAL) IsConnected() bool { return true }
func (f *fakeHAL) WaitConnect(context.Context) error { return nil }

func (f *fakeHAL) SendControl(data []byte) int {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.sent = append(f.sent, data...)
	return len(data)
}

func (f *fakeHAL) ReadSetup(ctx context.Context, out *hal.SetupPacket) error {
	select {
	case r := <-f.setups:
		*out = r.setup
		return r.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeHAL) Stall() error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.stalls++
	return nil
}

func (f *fakeHAL) Ack() error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.acks++
	return nil
}

func (f *fakeHAL) counts() (stalls, acks int) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.stalls, f.acks
}

// fakeFunction reports two interfaces and accepts class requests with
// request code 0x01.
type fakeFunction struct {
	refuse bool
}

func (f *fakeFunction) MarshalInterfaces(buf []byte, iface *uint8) int {
	if f.refuse || len(buf) < 2*InterfaceDescriptorSize {
		return 0
	}
	n := 0
	for i := uint8(0); i < 2; i++ {
		desc := InterfaceDescriptor{InterfaceNumber: *iface + i, InterfaceClass: ClassAudio}
		n += desc.MarshalTo(buf[n:])
	}
	*iface += 2
	return n
}

func (f *fakeFunction) HandleSetup(setup *hal.SetupPacket) bool {
	return setup.Request == 0x01
}

// fakeConfigurationSize is the header plus the two interfaces of fakeFunction.
const fakeConfigurationSize = ConfigurationDescriptorSize + 2*InterfaceDescriptorSize

func getConfigRequest(length uint16) hal.SetupPacket {
	return hal.SetupPacket{
		RequestType: hal.DirectionIn,
		Request:     hal.RequestGetDescriptor,
		Value:       uint16(DescriptorTypeConfiguration) << 8,
		Length:      length,
	}
}

var (
	getConfig = getConfigRequest(255)
	getDevice = hal.SetupPacket{
		RequestType: hal.DirectionIn,
		Request:     hal.RequestGetDescriptor,
		Value:       0x0100,
		Length:      18,
	}
	classOut = hal.SetupPacket{RequestType: 0x21, Request: 0x01}
	classIn  = hal.SetupPacket{RequestType: 0xA1, Request: 0x01}
	classBad = hal.SetupPacket{RequestType: 0x21, Request: 0x0A}
)

func TestStack_HandleSetup(t *testing.T) {
	getSecondConfig := getConfig
	getSecondConfig.Value |= 1

	tests := []struct {
		name       string
		setup      hal.SetupPacket
		wantErr    bool
		wantAcks   int
		wantSent   int
		configured bool
	}{
		{"configuration descriptor", getConfig, false, 0, fakeConfigurationSize, true},
		{"configuration header only", getConfigRequest(9), false, 0, 9, false},
		{"configuration exact length", getConfigRequest(fakeConfigurationSize), false, 0, fakeConfigurationSize, true},
		{"configuration zero length", getConfigRequest(0), false, 0, 0, false},
		{"second configuration", getSecondConfig, true, 0, 0, false},
		{"device descriptor", getDevice, true, 0, 0, false},
		{"class out handled", classOut, false, 1, 0, false},
		{"class in handled", classIn, false, 0, 0, false},
		{"class unhandled", classBad, true, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newFakeHAL()
			s := NewStack(h, &fakeFunction{})

			configured := false
			s.SetOnConfigured(func(n uint8) {
				configured = true
				if n != 2 {
					t.Errorf("configured interfaces = %d, want 2", n)
				}
			})

			err := s.HandleSetup(&tt.setup)
			if (err != nil) != tt.wantErr {
				t.Fatalf("HandleSetup() error = %v, wantErr %v", err, tt.wantErr)
			}
			if _, acks := h.counts(); acks != tt.wantAcks {
				t.Errorf("acks = %d, want %d", acks, tt.wantAcks)
			}
			if len(h.sent) != tt.wantSent {
				t.Errorf("sent %d bytes, want %d", len(h.sent), tt.wantSent)
			}
			if configured != tt.configured {
				t.Errorf("configured = %v, want %v", configured, tt.configured)
			}
		})
	}
}

func TestStack_ConfigurationHeader(t *testing.T) {
	h := newFakeHAL()
	s := NewStack(h, &fakeFunction{})

	setup := getConfigRequest(ConfigurationDescriptorSize)
	if err := s.HandleSetup(&setup); err != nil {
		t.Fatalf("HandleSetup() error = %v", err)
	}
	want := []byte{0x09, 0x02, fakeConfigurationSize, 0x00, 0x02, 0x01, 0x00, 0x80, 0x32}
	if !bytes.Equal(h.sent, want) {
		t.Errorf("header = % X, want % X", h.sent, want)
	}

	h.sent = nil
	cfg := DefaultConfiguration
	cfg.Attributes |= ConfigAttrRemoteWakeup
	cfg.MaxPower = 250
	s.SetConfiguration(cfg)

	setup = getConfigRequest(255)
	if err := s.HandleSetup(&setup); err != nil {
		t.Fatalf("HandleSetup() error = %v", err)
	}
	var parsed ConfigurationDescriptor
	if err := ParseConfigurationDescriptor(h.sent, &parsed); err != nil {
		t.Fatalf("ParseConfigurationDescriptor() error = %v", err)
	}
	if int(parsed.TotalLength) != len(h.sent) {
		t.Errorf("TotalLength = %d, reply is %d bytes", parsed.TotalLength, len(h.sent))
	}
	if parsed.NumInterfaces != 2 || parsed.Attributes != 0xA0 || parsed.MaxPower != 250 {
		t.Errorf("header = %+v", parsed)
	}
	var iface InterfaceDescriptor
	if err := ParseInterfaceDescriptor(h.sent[ConfigurationDescriptorSize:], &iface); err != nil {
		t.Errorf("first interface: %v", err)
	}
}

func TestStack_HandleSetupNothingMarshalled(t *testing.T) {
	h := newFakeHAL()
	s := NewStack(h, &fakeFunction{refuse: true})

	if err := s.HandleSetup(&getConfig); !errors.Is(err, pkg.ErrBufferTooSmall) {
		t.Errorf("HandleSetup() error = %v, want ErrBufferTooSmall", err)
	}
	if len(h.sent) != 0 {
		t.Errorf("sent % X", h.sent)
	}
}

func TestStack_ControlLoop(t *testing.T) {
	h := newFakeHAL()
	s := NewStack(h, &fakeFunction{})

	configured := make(chan uint8, 1)
	s.SetOnConfigured(func(n uint8) { configured <- n })

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := s.Start(context.Background()); !errors.Is(err, pkg.ErrAlreadyRunning) {
		t.Errorf("second Start() error = %v, want ErrAlreadyRunning", err)
	}
	if !s.IsRunning() {
		t.Error("IsRunning() = false after Start")
	}

	h.setups <- setupResult{err: pkg.ErrReset}
	h.setups <- setupResult{setup: getDevice}
	h.setups <- setupResult{setup: classOut}
	h.setups <- setupResult{setup: getConfig}

	select {
	case n := <-configured:
		if n != 2 {
			t.Errorf("configured interfaces = %d, want 2", n)
		}
	case <-time.After(time.Second):
		t.Fatal("configuration descriptor request was not served")
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if s.IsRunning() {
		t.Error("IsRunning() = true after Stop")
	}

	stalls, acks := h.counts()
	if stalls != 1 {
		t.Errorf("stalls = %d, want 1", stalls)
	}
	if acks != 1 {
		t.Errorf("acks = %d, want 1", acks)
	}
}

func TestStack_ControlLoopNotSupported(t *testing.T) {
	h := newFakeHAL()
	s := NewStack(h, &fakeFunction{})

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	h.setups <- setupResult{err: pkg.ErrNotSupported}

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop() did not return")
	}
}

func TestStack_StopNotRunning(t *testing.T) {
	s := NewStack(newFakeHAL(), &fakeFunction{})
	if err := s.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}
