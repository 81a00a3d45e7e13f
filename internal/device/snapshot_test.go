package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/cgd1/internal/protocol"
)

func fragment(base, count int) protocol.AlarmFragment {
	frag := protocol.AlarmFragment{Base: base}
	for i := 0; i < count; i++ {
		frag.Records = append(frag.Records, protocol.EmptyAlarmRecord)
	}
	return frag
}

func TestSnapshot_TwoFragments(t *testing.T) {
	s := newSnapshot()

	first := fragment(0, 10)
	first.Records[3] = [5]byte{1, 7, 30, byte(protocol.Weekdays), 0}

	alarms, complete := s.add(first)
	assert.False(t, complete)
	require.Len(t, alarms, 10)
	assert.True(t, alarms[3].IsConfigured())
	assert.Nil(t, s.current())

	alarms, complete = s.add(fragment(10, 6))
	assert.True(t, complete)
	require.Len(t, alarms, protocol.AlarmSlots)
	for i, a := range alarms {
		assert.Equal(t, i, a.Slot)
	}
	assert.Len(t, s.current(), protocol.AlarmSlots)
}

func TestSnapshot_BaseZeroRestarts(t *testing.T) {
	s := newSnapshot()

	// A stray tail fragment is kept until a new snapshot starts
	alarms, complete := s.add(fragment(10, 6))
	assert.False(t, complete)
	assert.Len(t, alarms, 6)

	alarms, complete = s.add(fragment(0, 10))
	assert.False(t, complete)
	assert.Len(t, alarms, 10, "base 0 discards earlier slots")

	_, complete = s.add(fragment(10, 6))
	assert.True(t, complete)
}

func TestSnapshot_PartialIsSortedBySlot(t *testing.T) {
	s := newSnapshot()
	s.add(fragment(0, 2))
	alarms, _ := s.add(fragment(5, 3))

	slots := make([]int, len(alarms))
	for i, a := range alarms {
		slots[i] = a.Slot
	}
	assert.Equal(t, []int{0, 1, 5, 6, 7}, slots)
}

func TestSnapshot_ClearAndDiscard(t *testing.T) {
	s := newSnapshot()
	s.add(fragment(0, 10))
	s.add(fragment(10, 6))
	require.NotNil(t, s.current())

	s.add(fragment(0, 4))
	s.discardPending()
	assert.NotNil(t, s.current(), "a complete table survives discarding a partial one")

	s.clear()
	assert.Nil(t, s.current())
}

func TestSnapshot_CurrentIsACopy(t *testing.T) {
	s := newSnapshot()
	first := fragment(0, 10)
	first.Records[0] = [5]byte{1, 6, 0, 0, 0}
	s.add(first)
	s.add(fragment(10, 6))

	got := s.current()
	*got[0].Hour = 23
	assert.Equal(t, 6, *s.current()[0].Hour)
}

func TestSnapshot_CompleteStartsOver(t *testing.T) {
	s := newSnapshot()
	s.add(fragment(0, 10))
	_, complete := s.add(fragment(10, 6))
	require.True(t, complete)

	// A lone tail fragment must not complete against the previous slots
	alarms, complete := s.add(fragment(10, 6))
	assert.False(t, complete)
	assert.Len(t, alarms, 6)
	assert.Len(t, s.current(), protocol.AlarmSlots, "the stored table is kept")
}
