package ntp

import "time"

// failureThreshold is the number of consecutive failures after which a
// server is marked down. Fixed, not configurable: the data model this
// package implements states the threshold as a literal invariant.
const failureThreshold = 3

// ServerStat is the rolling health record for one configured server.
type ServerStat struct {
	LastRTTMs           int64
	LastOffsetMs        int64
	LastSuccessAt       time.Time
	LastFailureAt       time.Time
	ConsecutiveFailures uint32
	Up                  bool
}

func (s ServerStat) recordSuccess(rttMs, offsetMs int64, at time.Time) ServerStat {
	s.LastRTTMs = rttMs
	s.LastOffsetMs = offsetMs
	s.LastSuccessAt = at
	s.ConsecutiveFailures = 0
	s.Up = true
	return s
}

func (s ServerStat) recordFailure(at time.Time) ServerStat {
	s.LastFailureAt = at
	s.ConsecutiveFailures++
	if s.ConsecutiveFailures >= failureThreshold {
		s.Up = false
	}
	return s
}

// Stats is a fixed-membership mapping from server key to ServerStat. The
// set of keys is established at construction from the configured server
// list and never grows or shrinks afterward.
type Stats struct {
	cells map[string]*statCell
}

// NewStats builds a Stats table with one entry per server. Every entry
// starts up, with no failures recorded.
func NewStats(servers []string) *Stats {
	cells := make(map[string]*statCell, len(servers))
	for _, s := range servers {
		cells[s] = newStatCell(ServerStat{Up: true})
	}
	return &Stats{cells: cells}
}

// RecordSuccess updates the stat entry for server after a successful
// query at the given instant.
func (s *Stats) RecordSuccess(server string, rttMs, offsetMs int64, at time.Time) {
	cell, ok := s.cells[server]
	if !ok {
		return
	}
	cell.Update(func(st ServerStat) ServerStat { return st.recordSuccess(rttMs, offsetMs, at) })
}

// RecordFailure updates the stat entry for server after a failed query at
// the given instant.
func (s *Stats) RecordFailure(server string, at time.Time) {
	cell, ok := s.cells[server]
	if !ok {
		return
	}
	cell.Update(func(st ServerStat) ServerStat { return st.recordFailure(at) })
}

// Get returns a copy of the current stat for server.
func (s *Stats) Get(server string) (ServerStat, bool) {
	cell, ok := s.cells[server]
	if !ok {
		return ServerStat{}, false
	}
	return cell.Get(), true
}

// StatEntry pairs a server key with its stat, for snapshotting.
type StatEntry struct {
	Server string
	Stat   ServerStat
}

// Snapshot returns every server's current stat, for metrics export.
func (s *Stats) Snapshot() []StatEntry {
	out := make([]StatEntry, 0, len(s.cells))
	for server, cell := range s.cells {
		out = append(out, StatEntry{Server: server, Stat: cell.Get()})
	}
	return out
}

// OldestSuccess returns the server whose LastSuccessAt is oldest (servers
// that have never succeeded count as oldest of all), breaking ties with
// the tiebreak function supplied by the caller (the probe loop uses this
// to randomize ties rather than always picking the same server).
func (s *Stats) OldestSuccess(tiebreak func(candidates []string) string) string {
	var oldest time.Time
	var candidates []string
	first := true
	for server, cell := range s.cells {
		st := cell.Get()
		switch {
		case first:
			oldest = st.LastSuccessAt
			candidates = []string{server}
			first = false
		case st.LastSuccessAt.Before(oldest):
			oldest = st.LastSuccessAt
			candidates = []string{server}
		case st.LastSuccessAt.Equal(oldest):
			candidates = append(candidates, server)
		}
	}
	if len(candidates) == 0 {
		return ""
	}
	if len(candidates) == 1 {
		return candidates[0]
	}
	return tiebreak(candidates)
}
