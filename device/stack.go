package device

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ardnew/usbmidi/device/hal"
	"github.com/ardnew/usbmidi/pkg"
)

// Function is a USB function whose control requests a Stack serves.
type Function interface {
	// MarshalInterfaces writes the function's interface descriptors into
	// buf, numbering interfaces from *iface and advancing it past them.
	// Returns the number of bytes written, or 0 if buf is too small.
	MarshalInterfaces(buf []byte, iface *uint8) int

	// HandleSetup processes a class request. Returns false if the request
	// was not handled and should be stalled.
	HandleSetup(setup *hal.SetupPacket) bool
}

// maxConfigurationSize bounds the configuration descriptor block.
const maxConfigurationSize = 256

// Stack serves the control pipe of a single-function device.
type Stack struct {
	hal      hal.DeviceHAL
	function Function
	config   ConfigurationDescriptor

	mutex        sync.RWMutex
	running      bool
	cancel       context.CancelFunc
	done         chan struct{}
	onConfigured func(interfaces uint8)

	setupBuf    hal.SetupPacket
	responseBuf [maxConfigurationSize]byte
}

// NewStack creates a control stack for function on h.
func NewStack(h hal.DeviceHAL, function Function) *Stack {
	return &Stack{
		hal:      h,
		function: function,
		config:   DefaultConfiguration,
	}
}

// SetConfiguration replaces the configuration header attributes.
// TotalLength and NumInterfaces are computed for each reply.
func (s *Stack) SetConfiguration(config ConfigurationDescriptor) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.config = config
}

// SetOnConfigured sets a callback invoked each time the host fetches the
// complete configuration descriptor. interfaces is the number of interfaces
// reported.
func (s *Stack) SetOnConfigured(cb func(interfaces uint8)) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.onConfigured = cb
}

// Start runs the control loop until ctx is done or Stop is called.
func (s *Stack) Start(ctx context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.running {
		return pkg.ErrAlreadyRunning
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.running = true

	go s.controlLoop(ctx, s.done)

	pkg.LogInfo(pkg.ComponentDevice, "control stack started")
	return nil
}

// Stop ends the control loop and waits for it to return.
func (s *Stack) Stop() error {
	s.mutex.Lock()
	if !s.running {
		s.mutex.Unlock()
		return nil
	}
	s.cancel()
	done := s.done
	s.running = false
	s.mutex.Unlock()

	<-done
	pkg.LogInfo(pkg.ComponentDevice, "control stack stopped")
	return nil
}

// IsRunning reports whether the control loop is active.
func (s *Stack) IsRunning() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.running
}

func (s *Stack) controlLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		err := s.hal.ReadSetup(ctx, &s.setupBuf)
		switch {
		case err == nil:
		case ctx.Err() != nil:
			return
		case errors.Is(err, pkg.ErrReset):
			pkg.LogDebug(pkg.ComponentDevice, "port reset")
			continue
		case errors.Is(err, pkg.ErrNotSupported):
			pkg.LogDebug(pkg.ComponentDevice, "HAL has no control pipe")
			return
		case errors.Is(err, pkg.ErrCancelled):
			return
		default:
			pkg.LogWarn(pkg.ComponentDevice, "error reading setup", "error", err)
			continue
		}

		if err := s.HandleSetup(&s.setupBuf); err != nil {
			pkg.LogDebug(pkg.ComponentDevice, "setup stalled",
				"error", err,
				"reqType", s.setupBuf.RequestType,
				"req", s.setupBuf.Request)
			s.hal.Stall()
		}
	}
}

// HandleSetup processes one SETUP request. Configuration descriptor
// requests are answered with the configuration header followed by the
// function's interfaces, truncated to the request length. Class requests go
// to the function. Returns an error if the request should be stalled.
func (s *Stack) HandleSetup(setup *hal.SetupPacket) error {
	if setup.RequestType&hal.RequestTypeMask == hal.RequestTypeStandard &&
		setup.Request == hal.RequestGetDescriptor &&
		setup.DescriptorType() == DescriptorTypeConfiguration {
		return s.getConfiguration(setup)
	}

	if setup.IsClass() {
		if !s.function.HandleSetup(setup) {
			return pkg.ErrNotSupported
		}
		if !hal.IsIn(setup.RequestType) {
			return s.hal.Ack()
		}
		return nil
	}

	return pkg.ErrNotSupported
}

// getConfiguration answers GET_DESCRIPTOR(configuration). Only
// configuration index 0 exists.
func (s *Stack) getConfiguration(setup *hal.SetupPacket) error {
	if setup.DescriptorIndex() != 0 {
		return fmt.Errorf("configuration %d: %w", setup.DescriptorIndex(), pkg.ErrNotSupported)
	}

	var iface uint8
	n := s.function.MarshalInterfaces(s.responseBuf[ConfigurationDescriptorSize:], &iface)
	if n == 0 {
		return fmt.Errorf("marshal interfaces: %w", pkg.ErrBufferTooSmall)
	}
	total := ConfigurationDescriptorSize + n

	s.mutex.RLock()
	config := s.config
	cb := s.onConfigured
	s.mutex.RUnlock()

	config.TotalLength = uint16(total)
	config.NumInterfaces = iface
	config.MarshalTo(s.responseBuf[:])

	reply := total
	if reply > int(setup.Length) {
		reply = int(setup.Length)
	}
	if sent := s.hal.SendControl(s.responseBuf[:reply]); sent < reply {
		return fmt.Errorf("configuration descriptor sent %d of %d bytes: %w", sent, reply, pkg.ErrBufferTooSmall)
	}

	pkg.LogDebug(pkg.ComponentDevice, "configuration descriptor sent",
		"length", setup.Length,
		"bytes", reply,
		"total", total)

	if reply == total && cb != nil {
		cb(iface)
	}
	return nil
}
