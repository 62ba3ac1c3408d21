package activision

import (
	"testing"

	"github.com/QEStudios/ModRecover/parser/bytecode"
	"github.com/QEStudios/ModRecover/tracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitHoldsForWaitRows(t *testing.T) {
	m := newMachine(3, 1)

	cells, stop, err := m.Decode([]byte{5, 3, 0xFF}, tracker.DefaultRows, 0)
	require.NoError(t, err)
	assert.Equal(t, bytecode.StopEndTrack, stop)
	require.Len(t, cells, tracker.DefaultRows)
	assert.Equal(t, tracker.Cell{Note: 5}, cells[0])
	// Held rows stay empty; the note is not retriggered.
	for row := 1; row < tracker.DefaultRows; row++ {
		assert.True(t, cells[row].Empty(), "row %d", row)
	}

	cells, _, err = m.Decode([]byte{5, 3, 7, 1, 0xFF}, tracker.DefaultRows, 0)
	require.NoError(t, err)
	assert.Equal(t, tracker.Cell{Note: 5}, cells[0])
	assert.True(t, cells[2].Empty())
	assert.Equal(t, tracker.Cell{Note: 7}, cells[3])
}

func TestOpcodeAvailability(t *testing.T) {
	tests := []struct {
		version int
		op      byte
		known   bool
	}{
		{1, opPortamento, false},
		{2, opPortamento, true},
		{2, opVolume, false},
		{3, opVolume, true},
		{4, opRepeatEffect, false},
		{5, opRepeatEffect, true},
		{5, opEndSong, true},
	}
	for _, tt := range tests {
		_, ok := newMachine(tt.version, 1).Ops[tt.op]
		assert.Equal(t, tt.known, ok, "track v%d opcode 0x%02X", tt.version, tt.op)
	}
}
