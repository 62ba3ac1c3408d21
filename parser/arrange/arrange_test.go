package arrange

import (
	"testing"

	"github.com/QEStudios/ModRecover/parser/bytecode"
	"github.com/QEStudios/ModRecover/parser/format"
	"github.com/QEStudios/ModRecover/parser/poslist"
	"github.com/QEStudios/ModRecover/tracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var machine = &bytecode.Machine{
	NoteLimit:   0x80,
	NoteCount:   84,
	RowsPerWait: 1,
	Ops: map[byte]bytecode.Op{
		0xFE: {Name: "end song", Run: func(*bytecode.State, []byte) bytecode.Action { return bytecode.EndSong }},
		0xFF: {Name: "end track", Run: func(*bytecode.State, []byte) bytecode.Action { return bytecode.EndTrack }},
	},
}

func TestBuild(t *testing.T) {
	tracks := map[int][]byte{
		10: {1, 1, 0xFF},
		20: {2, 2, 3, 1, 0xFF},
		30: {4, 1, 0x90}, // unknown opcode after one row
	}
	source := func(e poslist.Entry) []byte {
		return tracks[e.Offset]
	}
	lists := [][]poslist.Entry{
		{{Offset: 10}, {Offset: 20, Transpose: 12}, {Offset: 30}},
		{{Offset: 20}},
		{{Offset: -1}},
		nil,
	}

	var warn format.Warnings
	arr := Build(lists, machine, source, &warn)

	assert.Equal(t, []int{0, 1, 2}, arr.Positions)
	require.Len(t, arr.Patterns, 3)
	assert.False(t, arr.EndSong)

	p0 := arr.Patterns[0]
	assert.Equal(t, tracker.DefaultRows, p0.Rows)
	require.Len(t, p0.Channels, 4)
	assert.Equal(t, uint8(1), p0.Channels[0][0].Note)
	assert.Equal(t, uint8(2), p0.Channels[1][0].Note)
	assert.Equal(t, uint8(3), p0.Channels[1][2].Note)
	assert.True(t, p0.Channels[2][0].Empty())
	assert.True(t, p0.Channels[3][0].Empty())

	p1 := arr.Patterns[1]
	assert.Equal(t, uint8(14), p1.Channels[0][0].Note)
	assert.True(t, p1.Channels[1][0].Empty())

	p2 := arr.Patterns[2]
	assert.Equal(t, uint8(4), p2.Channels[0][0].Note)

	require.Len(t, warn, 1)
	assert.Equal(t, 30, warn[0].Offset)

	for _, p := range arr.Patterns {
		for _, ch := range p.Channels {
			assert.Len(t, ch, tracker.DefaultRows)
		}
	}
}

func TestBuildStopsAtEndSong(t *testing.T) {
	tracks := map[int][]byte{
		1: {1, 1, 0xFF},
		2: {2, 1, 0xFE},
	}
	lists := [][]poslist.Entry{
		{{Offset: 1}, {Offset: 2}, {Offset: 1}, {Offset: 1}},
	}
	var warn format.Warnings
	arr := Build(lists, machine, func(e poslist.Entry) []byte { return tracks[e.Offset] }, &warn)

	assert.Equal(t, []int{0, 1}, arr.Positions)
	assert.True(t, arr.EndSong)
	assert.Empty(t, warn)
}

func TestBuildDecodesSharedTrackOnce(t *testing.T) {
	calls := 0
	track := []byte{5, 1, 0x90}
	lists := [][]poslist.Entry{
		{{Offset: 7}, {Offset: 7}, {Offset: 7, Transpose: 1}},
	}
	var warn format.Warnings
	arr := Build(lists, machine, func(poslist.Entry) []byte {
		calls++
		return track
	}, &warn)

	require.Len(t, arr.Patterns, 3)
	// One warning per distinct (track, transpose) pair.
	assert.Len(t, warn, 2)
	assert.Equal(t, 3, calls)
	assert.Equal(t, uint8(6), arr.Patterns[2].Channels[0][0].Note)
}

func TestBuildEmpty(t *testing.T) {
	var warn format.Warnings
	arr := Build(make([][]poslist.Entry, 4), machine, func(poslist.Entry) []byte { return nil }, &warn)
	assert.Empty(t, arr.Positions)
	assert.Empty(t, arr.Patterns)
}

func TestMaxInstrument(t *testing.T) {
	p := tracker.NewPattern(2, 4)
	p.Channels[1][3].Instrument = 9
	q := tracker.NewPattern(2, 4)
	q.Channels[0][0].Instrument = 3

	assert.Equal(t, 9, Arrangement{Patterns: []tracker.Pattern{p, q}}.MaxInstrument())
	assert.Equal(t, 0, Arrangement{}.MaxInstrument())
}
