package ntp

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"net"
	"time"
)

// Sample is one successful query result, matching the server's reported
// clock to the instant the reply was measured against this process's
// monotonic clock.
type Sample struct {
	ServerKey     string
	TSend         time.Time
	TRecv         time.Time
	OffsetMs      int64
	RTTMs         int64
	ServerEpochMs int64
}

// Query sends one client-mode NTPv4 request to server and parses the
// reply, returning a Sample on success.
//
// The request's transmit timestamp is a random 64-bit nonce rather than a
// reading of the local wall clock: this client never trusts, and never
// needs, its own idea of wall-clock time. Only monotonic elapsed time
// around the round trip and the server's own timestamps feed the offset
// and RTT calculation.
func Query(server string, timeout time.Duration) (Sample, error) {
	var nonceBuf [8]byte
	if _, err := rand.Read(nonceBuf[:]); err != nil {
		return Sample{}, fmt.Errorf("%w: generating nonce: %v", ErrNetwork, err)
	}
	nonce := binary.BigEndian.Uint64(nonceBuf[:])

	req, err := marshalPacket(clientRequest(nonce))
	if err != nil {
		return Sample{}, fmt.Errorf("%w: %v", ErrProtocol, err)
	}

	conn, err := net.DialTimeout("udp", server, timeout)
	if err != nil {
		return Sample{}, fmt.Errorf("%w: dialing %s: %v", ErrNetwork, server, err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return Sample{}, fmt.Errorf("%w: setting deadline: %v", ErrNetwork, err)
	}

	tSend := time.Now()
	if _, err := conn.Write(req); err != nil {
		return Sample{}, fmt.Errorf("%w: sending to %s: %v", ErrNetwork, server, err)
	}

	resp := make([]byte, packetSize)
	n, err := conn.Read(resp)
	tRecv := time.Now()
	if err != nil {
		return Sample{}, fmt.Errorf("%w: reading from %s: %v", ErrNetwork, server, err)
	}

	p, err := unmarshalPacket(resp[:n])
	if err != nil {
		return Sample{}, err
	}

	if packetMode(p.Settings) != 4 {
		return Sample{}, fmt.Errorf("%w: mode %d is not server mode", ErrProtocol, packetMode(p.Settings))
	}
	if p.Stratum < 1 || p.Stratum > 15 {
		return Sample{}, fmt.Errorf("%w: stratum %d out of range", ErrProtocol, p.Stratum)
	}

	origin := (uint64(p.OrigTimeSec) << 32) | uint64(p.OrigTimeFrac)
	if origin != nonce {
		return Sample{}, ErrMismatch
	}
	if p.TransTimeSec == 0 && p.TransTimeFrac == 0 {
		return Sample{}, ErrKoD
	}

	t2 := ntpTimestampToUnixMs(p.RecvTimeSec, p.RecvTimeFrac)
	t3 := ntpTimestampToUnixMs(p.TransTimeSec, p.TransTimeFrac)

	localElapsedMs := tRecv.Sub(tSend).Milliseconds()
	serverProcessingMs := t3 - t2
	rttMs := localElapsedMs - serverProcessingMs
	if rttMs < 0 {
		return Sample{}, fmt.Errorf("%w: negative round-trip time", ErrProtocol)
	}
	offsetMs := (t2 + (t3 - rttMs)) / 2
	serverEpochMs := t3 + rttMs/2

	return Sample{
		ServerKey:     server,
		TSend:         tSend,
		TRecv:         tRecv,
		OffsetMs:      offsetMs,
		RTTMs:         rttMs,
		ServerEpochMs: serverEpochMs,
	}, nil
}
