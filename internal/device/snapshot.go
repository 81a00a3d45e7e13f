package device

import (
	"sort"
	"sync"

	"github.com/muurk/cgd1/internal/protocol"
)

// snapshot assembles the alarm table from fragments. A fragment with base
// 0 starts a new snapshot; once all slots are present the table is stored
// as the current one and assembly starts over empty.
type snapshot struct {
	mu      sync.Mutex
	pending map[int]protocol.Alarm
	table   []protocol.Alarm
}

func newSnapshot() *snapshot {
	return &snapshot{pending: make(map[int]protocol.Alarm)}
}

// add merges a fragment and returns the slots received so far, ordered by
// slot, and whether they form a complete table.
func (s *snapshot) add(frag protocol.AlarmFragment) ([]protocol.Alarm, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if frag.Base == 0 {
		s.pending = make(map[int]protocol.Alarm)
	}
	for i, rec := range frag.Records {
		slot := frag.Base + i
		if slot >= protocol.AlarmSlots {
			break
		}
		a, err := protocol.DecodeAlarm(slot, rec[:])
		if err != nil {
			continue
		}
		s.pending[slot] = a
	}

	alarms := make([]protocol.Alarm, 0, len(s.pending))
	for _, a := range s.pending {
		alarms = append(alarms, a.Clone())
	}
	sort.Slice(alarms, func(i, j int) bool { return alarms[i].Slot < alarms[j].Slot })

	if len(s.pending) < protocol.AlarmSlots {
		return alarms, false
	}
	s.table = cloneAlarms(alarms)
	s.pending = make(map[int]protocol.Alarm)
	return alarms, true
}

// clear drops both the table and any partial snapshot, ahead of a fresh read
func (s *snapshot) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = make(map[int]protocol.Alarm)
	s.table = nil
}

// discardPending drops a partially received snapshot
func (s *snapshot) discardPending() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = make(map[int]protocol.Alarm)
}

// current returns a copy of the last complete table, or nil
func (s *snapshot) current() []protocol.Alarm {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.table == nil {
		return nil
	}
	return cloneAlarms(s.table)
}

func cloneAlarms(in []protocol.Alarm) []protocol.Alarm {
	out := make([]protocol.Alarm, len(in))
	for i, a := range in {
		out[i] = a.Clone()
	}
	return out
}
