package poslist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testEncoding: 00-7F track, 80-BF transpose, C0-EF repeat, F0-FD skip, FE loop, FF end.
var testEncoding = Encoding{
	Name: "test",
	Classify: func(b byte) Class {
		switch {
		case b < 0x80:
			return Track
		case b < 0xC0:
			return Transpose
		case b < 0xF0:
			return Repeat
		case b < 0xFE:
			return Skip
		default:
			return End
		}
	},
	Loop: 0xFE,
}

func TestDecode(t *testing.T) {
	data := []byte{
		0xAA, 0x00, // garbage before the list
		0x01,
		0x80, 0xFE, // transpose -2
		0x02,
		0xC0, 0x03, // repeat 3
		0x03,
		0xF0, // skip
		0x04,
		0xFE,
	}

	list := Decode(data, 2, testEncoding)
	require.Len(t, list.Entries, 4)
	assert.True(t, list.Loops)
	assert.False(t, list.Truncated)

	assert.Equal(t, Entry{Track: 1, Offset: -1, Transpose: 0, Repeat: 0, Source: 2}, list.Entries[0])
	assert.Equal(t, Entry{Track: 2, Offset: -1, Transpose: -2, Repeat: 0, Source: 5}, list.Entries[1])
	assert.Equal(t, Entry{Track: 3, Offset: -1, Transpose: -2, Repeat: 3, Source: 8}, list.Entries[2])
	// Repeat applies to one position only, transpose sticks.
	assert.Equal(t, Entry{Track: 4, Offset: -1, Transpose: -2, Repeat: 0, Source: 10}, list.Entries[3])
}

func TestDecodeEndWithoutLoop(t *testing.T) {
	list := Decode([]byte{0x05, 0xFF, 0x06}, 0, testEncoding)
	require.Len(t, list.Entries, 1)
	assert.False(t, list.Loops)
	assert.False(t, list.Truncated)
}

func TestDecodeTruncated(t *testing.T) {
	tests := []struct {
		name  string
		data  []byte
		off   int
		count int
	}{
		{"no end marker", []byte{0x01, 0x02}, 0, 2},
		{"transpose without argument", []byte{0x01, 0x80}, 0, 1},
		{"repeat without argument", []byte{0xC0}, 0, 0},
		{"offset past end", []byte{0x01}, 5, 0},
		{"negative offset", []byte{0x01}, -1, 0},
		{"empty", nil, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list := Decode(tt.data, tt.off, testEncoding)
			assert.Len(t, list.Entries, tt.count)
			assert.True(t, list.Truncated)
			assert.False(t, list.Loops)
		})
	}
}

func TestCountAndResolveAgree(t *testing.T) {
	lists := [][]byte{
		{0x01, 0x02, 0x03, 0xFF},
		{0x80, 0x0C, 0x10, 0xC0, 0x02, 0x11, 0xF5, 0xF6, 0x12, 0xFE},
		{0xF0, 0xF0, 0xFF},
		{0x01, 0x80},
		{0x7F, 0xBF, 0x7F, 0x00},
	}
	for _, data := range lists {
		n := Count(data, 0, testEncoding)
		list := Decode(data, 0, testEncoding)
		require.Equal(t, len(list.Entries), n, "% X", data)

		for i := 0; i < n; i++ {
			e, ok := Resolve(data, 0, testEncoding, i)
			require.True(t, ok, "% X position %d", data, i)
			assert.Equal(t, list.Entries[i], e)
		}
		_, ok := Resolve(data, 0, testEncoding, n)
		assert.False(t, ok)
		_, ok = Resolve(data, 0, testEncoding, -1)
		assert.False(t, ok)
	}
}

func TestExpand(t *testing.T) {
	entries := []Entry{
		{Track: 1, Repeat: 0},
		{Track: 2, Repeat: 3},
		{Track: 3, Repeat: 1},
	}
	tracks := func(es []Entry) []int {
		out := make([]int, len(es))
		for i, e := range es {
			out[i] = e.Track
		}
		return out
	}

	got, capped := Expand(entries, MaxPositions)
	assert.False(t, capped)
	assert.Equal(t, []int{1, 2, 2, 2, 3}, tracks(got))

	got, capped = Expand(entries, 3)
	assert.True(t, capped)
	assert.Equal(t, []int{1, 2, 2}, tracks(got))

	got, capped = Expand(entries, 5)
	assert.False(t, capped, "exactly reaching the limit drops nothing")
	assert.Len(t, got, 5)

	got, capped = Expand(nil, MaxPositions)
	assert.Empty(t, got)
	assert.False(t, capped)
}

func TestExpandBoundsRepeatBlowUp(t *testing.T) {
	// Every three bytes repeat the next track 255 times.
	var list []byte
	for i := 0; i < 1000; i++ {
		list = append(list, 0xC0, 0xFF, 0x00)
	}
	list = append(list, 0xFF)

	l := Decode(list, 0, testEncoding)
	require.Len(t, l.Entries, 1000)
	got, capped := Expand(l.Entries, MaxPositions)
	assert.True(t, capped)
	assert.Len(t, got, MaxPositions)
}
