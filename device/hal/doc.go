// Package hal defines the hardware abstraction boundary between the USB-MIDI
// class driver and a USB device controller.
//
// The class driver never touches controller registers. It needs five byte-level
// operations on its two bulk endpoints and the control pipe, captured by
// [Transport]:
//
//   - Recv pulls one byte from an OUT endpoint FIFO without blocking
//   - Send queues bytes on an IN endpoint and reports how many were accepted
//   - Flush releases queued IN bytes to the host
//   - Ready reports whether an IN endpoint can accept data right now
//   - SendControl answers a control IN transfer (descriptor replies)
//
// [DeviceHAL] adds the lifecycle a simulated or bridged controller needs:
// initialization, attach/detach, SETUP reception, and a reset request.
//
// # Implementing a HAL
//
//  1. Create a type that implements all [Transport] methods
//  2. Make Recv and Ready non-blocking; they may be called from an interrupt
//  3. Buffer IN data until Flush, or until a full max-size packet is queued
//  4. Implement [DeviceHAL] if the platform needs explicit start/stop
//
// Two implementations ship with this module:
//
//   - [github.com/ardnew/usbmidi/device/hal/fifo] uses named pipes
//   - [github.com/ardnew/usbmidi/device/hal/serial] tunnels endpoints over a UART
package hal
