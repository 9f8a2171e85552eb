package midi

// nextSysEx frames the leading bytes of data into one packet and reports how
// many bytes it consumed. While more than three bytes remain the packet is a
// start/continue packet; the final one to three bytes select the end CIN.
// data must not be empty.
func nextSysEx(data []byte) (Event, int) {
	switch len(data) {
	case 1:
		return Event{Type: CINSysExEnd1, M1: data[0]}, 1
	case 2:
		return Event{Type: CINSysExEnd2, M1: data[0], M2: data[1]}, 2
	case 3:
		return Event{Type: CINSysExEnd3, M1: data[0], M2: data[1], M3: data[2]}, 3
	default:
		return Event{Type: CINSysExStart, M1: data[0], M2: data[1], M3: data[2]}, 3
	}
}

// SysExPacketCount returns the number of packets AppendSysEx emits for n bytes.
func SysExPacketCount(n int) int {
	return (n + 2) / 3
}

// AppendSysEx frames data into event packets and appends them to dst.
// The bytes are carried verbatim; callers include the F0/F7 markers.
// Empty data appends nothing.
func AppendSysEx(dst []Event, data []byte) []Event {
	for len(data) > 0 {
		e, n := nextSysEx(data)
		dst = append(dst, e)
		data = data[n:]
	}
	return dst
}

// AppendSysExPayload appends the SysEx bytes carried by packets to dst in
// packet order. Packets that are not SysEx are skipped. No reassembly state
// is kept across calls.
func AppendSysExPayload(dst []byte, packets []Event) []byte {
	for _, e := range packets {
		if e.IsSysEx() {
			dst = e.AppendPayload(dst)
		}
	}
	return dst
}
