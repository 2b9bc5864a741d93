// Package ntp implements the background NTP time-authority engine: the
// wire-level client (C1), per-server health tracking (C2), and the
// selection/outlier-filter strategy (C3) described by the system this
// repository serves.
package ntp

import (
	"encoding/binary"
	"errors"
)

// ntpEpochOffsetSeconds is the number of seconds between the NTP epoch
// (1900-01-01) and the Unix epoch (1970-01-01).
const ntpEpochOffsetSeconds = 2208988800

// packet is the 48-byte NTPv4 client/server packet as laid out in RFC 5905
// §7.3. Field widths and ordering mirror the wire format exactly; this
// struct is read and written with binary.BigEndian, matching how every
// other NTP client in the retrieval pack packs it.
type packet struct {
	Settings       uint8
	Stratum        uint8
	Poll           int8
	Precision      int8
	RootDelay      uint32
	RootDispersion uint32
	ReferenceID    uint32
	RefTimeSec     uint32
	RefTimeFrac    uint32
	OrigTimeSec    uint32
	OrigTimeFrac   uint32
	RecvTimeSec    uint32
	RecvTimeFrac   uint32
	TransTimeSec   uint32
	TransTimeFrac  uint32
}

const packetSize = 48

// settingsByte packs LI (2 bits), VN (3 bits), and Mode (3 bits) into a
// single byte, per RFC 5905 figure 8.
func settingsByte(leap, version, mode uint8) uint8 {
	return (leap << 6) | (version << 3) | mode
}

func packetMode(settings uint8) uint8 {
	return settings & 0x07
}

// clientRequest builds a client-mode (mode 3) NTPv4 request with the given
// 64-bit value stamped into the transmit timestamp field. Per the protocol
// this repository speaks, that value is a random nonce rather than a
// wall-clock reading: the client never consults its own clock to build a
// request, only to measure elapsed monotonic time around the round trip.
func clientRequest(nonce uint64) packet {
	return packet{
		Settings:      settingsByte(0, 4, 3),
		TransTimeSec:  uint32(nonce >> 32),
		TransTimeFrac: uint32(nonce),
	}
}

func marshalPacket(p packet) ([]byte, error) {
	buf := make([]byte, packetSize)
	w := newFixedWriter(buf)
	fields := []any{
		p.Settings, p.Stratum, p.Poll, p.Precision,
		p.RootDelay, p.RootDispersion, p.ReferenceID,
		p.RefTimeSec, p.RefTimeFrac,
		p.OrigTimeSec, p.OrigTimeFrac,
		p.RecvTimeSec, p.RecvTimeFrac,
		p.TransTimeSec, p.TransTimeFrac,
	}
	for _, f := range fields {
		if err := w.put(f); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func unmarshalPacket(b []byte) (packet, error) {
	if len(b) != packetSize {
		return packet{}, errProtocol
	}
	var p packet
	r := newFixedReader(b)
	fields := []any{
		&p.Settings, &p.Stratum, &p.Poll, &p.Precision,
		&p.RootDelay, &p.RootDispersion, &p.ReferenceID,
		&p.RefTimeSec, &p.RefTimeFrac,
		&p.OrigTimeSec, &p.OrigTimeFrac,
		&p.RecvTimeSec, &p.RecvTimeFrac,
		&p.TransTimeSec, &p.TransTimeFrac,
	}
	for _, f := range fields {
		if err := r.get(f); err != nil {
			return packet{}, errProtocol
		}
	}
	return p, nil
}

// fixedWriter/fixedReader are tiny helpers over a fixed-size byte slice so
// marshalPacket/unmarshalPacket read exactly like the struct-at-a-time
// binary.Write/binary.Read calls used elsewhere in the retrieval pack,
// without pulling in reflection-based encoding for a 48-byte format whose
// every field is fixed-width.
type fixedWriter struct {
	buf []byte
	off int
}

func newFixedWriter(buf []byte) *fixedWriter { return &fixedWriter{buf: buf} }

func (w *fixedWriter) put(v any) error {
	switch x := v.(type) {
	case uint8:
		w.buf[w.off] = x
		w.off++
	case int8:
		w.buf[w.off] = uint8(x)
		w.off++
	case uint32:
		binary.BigEndian.PutUint32(w.buf[w.off:], x)
		w.off += 4
	default:
		return errors.New("ntp: unsupported field type")
	}
	return nil
}

type fixedReader struct {
	buf []byte
	off int
}

func newFixedReader(buf []byte) *fixedReader { return &fixedReader{buf: buf} }

func (r *fixedReader) get(v any) error {
	switch x := v.(type) {
	case *uint8:
		*x = r.buf[r.off]
		r.off++
	case *int8:
		*x = int8(r.buf[r.off])
		r.off++
	case *uint32:
		*x = binary.BigEndian.Uint32(r.buf[r.off:])
		r.off += 4
	default:
		return errors.New("ntp: unsupported field type")
	}
	return nil
}

// ntpTimestampToUnixMs converts a 64-bit NTP fixed-point timestamp (32-bit
// seconds since 1900, 32-bit fraction) to integer milliseconds since the
// Unix epoch.
func ntpTimestampToUnixMs(sec, frac uint32) int64 {
	secs := int64(sec) - ntpEpochOffsetSeconds
	fracMs := int64(frac) * 1000 / (1 << 32)
	return secs*1000 + fracMs
}
