// Package arrange turns per-channel position lists into the pattern grid of a
// tracker.Song. Position n of the song is built from position n of every
// channel, so channels with different list lengths still line up.
package arrange

import (
	"github.com/QEStudios/ModRecover/parser/bytecode"
	"github.com/QEStudios/ModRecover/parser/format"
	"github.com/QEStudios/ModRecover/parser/poslist"
	"github.com/QEStudios/ModRecover/tracker"
)

// TrackFunc returns the bytecode of the track an entry refers to, or nil
// when the entry's track is absent.
type TrackFunc func(e poslist.Entry) []byte

// Arrangement is the assembled order list and patterns.
type Arrangement struct {
	Positions []int
	Patterns  []tracker.Pattern

	// EndSong is set when a track played the end-of-song opcode. Patterns
	// stop at the position where that happened.
	EndSong bool
}

type trackKey struct {
	offset    int
	transpose int8
}

type decoded struct {
	cells []tracker.Cell
	stop  bytecode.Stop
}

// Build decodes the tracks of every channel into DefaultRows-row patterns.
// Each list must already be expanded by repeat count. A track shared by
// several positions with the same transpose is decoded once. Decode problems
// inside a track become warnings and the rows decoded so far are kept.
func Build(lists [][]poslist.Entry, m *bytecode.Machine, track TrackFunc, warn *format.Warnings) Arrangement {
	positions := 0
	for _, l := range lists {
		positions = max(positions, len(l))
	}

	cache := make(map[trackKey]decoded)
	var arr Arrangement
	for pos := 0; pos < positions; pos++ {
		pattern := tracker.NewPattern(len(lists), tracker.DefaultRows)
		endSong := false
		for ch, list := range lists {
			if pos >= len(list) {
				continue
			}
			e := list[pos]
			data := track(e)
			if data == nil {
				continue
			}

			key := trackKey{offset: e.Offset, transpose: e.Transpose}
			d, ok := cache[key]
			if !ok {
				cells, stop, err := m.Decode(data, tracker.DefaultRows, e.Transpose)
				if err != nil {
					warn.Addf(e.Offset, "track %d (channel %d, position %d): %v", e.Track, ch, pos, err)
				}
				d = decoded{cells: cells, stop: stop}
				cache[key] = d
			}
			copy(pattern.Channels[ch], d.cells)
			if d.stop == bytecode.StopEndSong {
				endSong = true
			}
		}

		arr.Positions = append(arr.Positions, pos)
		arr.Patterns = append(arr.Patterns, pattern)
		if endSong {
			arr.EndSong = true
			break
		}
	}
	return arr
}

// MaxInstrument returns the highest instrument number any cell uses, 0 when none does.
func (a Arrangement) MaxInstrument() int {
	highest := 0
	for _, p := range a.Patterns {
		for _, column := range p.Channels {
			for _, c := range column {
				highest = max(highest, int(c.Instrument))
			}
		}
	}
	return highest
}
