package ntp

import "errors"

// Error taxonomy for a single query. Every one of these is a query-level
// failure: it is recorded against the offending server's stats and never
// surfaces past the sync loop to an HTTP client.
var (
	// ErrNetwork covers socket, DNS, and timeout failures.
	ErrNetwork = errors.New("ntp: network error")
	// ErrProtocol covers a malformed or internally inconsistent reply.
	ErrProtocol = errors.New("ntp: malformed reply")
	// ErrMismatch covers a reply whose originate timestamp does not echo
	// back the nonce this client sent.
	ErrMismatch = errors.New("ntp: originate timestamp mismatch")
	// ErrKoD covers a Kiss-of-Death rejection (RFC 5905 §7.4): the server
	// replied with a zero transmit timestamp, rejecting the query.
	ErrKoD = errors.New("ntp: kiss of death")
)

// errProtocol is an internal alias kept unexported so packet parsing
// doesn't need to import this file's exported surface.
var errProtocol = ErrProtocol
