// Package device holds the standard USB descriptor types shared by
// usbmidi class drivers and a control stack that serves one class function
// over a [hal.DeviceHAL].
//
// Descriptors serialize with MarshalTo into caller-provided buffers and parse
// with ParseX functions that fill an output struct, so building and
// validating a descriptor block never allocates:
//
//	var buf [device.InterfaceDescriptorSize]byte
//	iface := device.InterfaceDescriptor{
//	    InterfaceNumber:   1,
//	    NumEndpoints:      2,
//	    InterfaceClass:    device.ClassAudio,
//	    InterfaceSubClass: device.SubclassMIDIStreaming,
//	}
//	n := iface.MarshalTo(buf[:])
//
// A Stack answers configuration descriptor requests with the function's
// interface block and passes class requests to the function. Anything else
// is stalled:
//
//	m := midi.New(h, midi.DefaultConfig)
//	stack := device.NewStack(h, m)
//	if err := stack.Start(ctx); err != nil {
//	    return err
//	}
//	defer stack.Stop()
//
// Class-specific descriptors live with their class driver, for example
// [github.com/ardnew/usbmidi/device/class/midi].
package device
