package game

import (
	"math/rand/v2"
	"time"

	"github.com/poembox/poembox/wire"
)

// Snapshot is the persisted form of a match: the full state plus the wall
// clock at the moment it was taken, so a successor can shift every stored
// absolute deadline by the time spent down.
type Snapshot struct {
	State   *State `json:"state"`
	SavedAt int64  `json:"savedAt"` // unix ms
}

// Encode renders the snapshot as an opaque transport-safe blob.
func (s *Snapshot) Encode() (string, error) {
	return wire.Encode(s)
}

// DecodeSnapshot parses a persisted snapshot blob.
func DecodeSnapshot(data string) (*Snapshot, error) {
	snap, err := wire.Decode[Snapshot](data)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// Restore rebuilds a match on a successor instance. Deadlines move forward
// by the downtime delta, every previously connected player gets a fresh
// reconnection grace window starting now, and the presence mapping is
// cleared because nobody has reconnected yet. Notifying those players that
// the successor is up is the runtime's job.
func Restore(snap *Snapshot, now time.Time, reconnectGrace time.Duration, logf func(format string, args ...any)) *Match {
	if logf == nil {
		logf = func(string, ...any) {}
	}

	st := snap.State
	delta := now.UnixMilli() - snap.SavedAt

	if st.WaitReconnectUntil == nil {
		st.WaitReconnectUntil = make(map[string]int64)
	}
	if st.NextStepAt != 0 {
		st.NextStepAt += delta
	}
	for id := range st.WaitReconnectUntil {
		st.WaitReconnectUntil[id] += delta
	}

	until := now.Add(reconnectGrace).UnixMilli()
	for id := range st.Presences {
		st.WaitReconnectUntil[id] = until
	}
	st.Presences = make(map[string]bool)
	st.Terminating = false

	// Maps may arrive nil from an older or hand-edited blob.
	if st.Kicked == nil {
		st.Kicked = make(map[string]bool)
	}
	if st.Ready == nil {
		st.Ready = make(map[string]bool)
	}
	if st.Results == nil {
		st.Results = make(map[string][]Line)
	}
	if st.PlayerToResult == nil {
		st.PlayerToResult = make(map[string][]string)
	}

	return &Match{
		state:          st,
		rng:            rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		reconnectGrace: reconnectGrace,
		logf:           logf,
	}
}

// PreviouslyConnected lists the userIds that were connected when the
// snapshot was taken, i.e. the players the runtime should invite back.
func (s *Snapshot) PreviouslyConnected() []string {
	out := make([]string, 0, len(s.State.Presences))
	for _, id := range s.State.JoinOrder {
		if s.State.Presences[id] {
			out = append(out, id)
		}
	}
	return out
}
