package ronklaren

import (
	"github.com/QEStudios/ModRecover/parser/bytecode"
	"github.com/QEStudios/ModRecover/tracker"
)

// NoteCount is the size of the player's period table.
const NoteCount = 72

// Track opcodes.
const (
	opArpeggio   = 0x80
	opPortamento = 0x81
	opInstrument = 0x82
	opEndSong    = 0x83
	opEnvelope   = 0x84
	opEndTrack   = 0xFF
)

// The wait byte counts quarter rows and the player starts the next note two
// ticks early, so a note with wait w lasts 4w-2 rows.
const (
	rowsPerWait = 4
	rowOffset   = 2
)

// newMachine builds the instruction set. arpeggio maps an arpeggio table
// index to a tracker arpeggio parameter.
func newMachine(arpeggio func(index uint8) uint8) *bytecode.Machine {
	ops := map[byte]bytecode.Op{
		opArpeggio: {Name: "arpeggio", Args: 1, Run: func(s *bytecode.State, a []byte) bytecode.Action {
			if p := arpeggio(a[0]); p != 0 {
				s.SetEffect(tracker.EffectArpeggio, p)
			}
			return bytecode.Continue
		}},
		// target note, speed, delay
		opPortamento: {Name: "portamento", Args: 3, Run: func(s *bytecode.State, a []byte) bytecode.Action {
			s.SetEffect(tracker.EffectPortamento, a[1])
			return bytecode.Continue
		}},
		opInstrument: {Name: "set instrument", Args: 1, Run: func(s *bytecode.State, a []byte) bytecode.Action {
			s.SetInstrument(a[0])
			return bytecode.Continue
		}},
		opEndSong: {Name: "end of song", Run: func(*bytecode.State, []byte) bytecode.Action {
			return bytecode.EndSong
		}},
		// Envelope overrides have no tracker equivalent.
		opEnvelope: {Name: "envelope", Args: 1, Run: func(*bytecode.State, []byte) bytecode.Action {
			return bytecode.Continue
		}},
		opEndTrack: {Name: "end of track", Run: func(*bytecode.State, []byte) bytecode.Action {
			return bytecode.EndTrack
		}},
	}
	return &bytecode.Machine{
		NoteLimit:   0x80,
		NoteCount:   NoteCount,
		RowsPerWait: rowsPerWait,
		RowOffset:   rowOffset,
		Ops:         ops,
	}
}
