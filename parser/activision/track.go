package activision

import (
	"github.com/QEStudios/ModRecover/parser/bytecode"
	"github.com/QEStudios/ModRecover/tracker"
)

// NoteCount is the size of the player's period table.
const NoteCount = 84

// Track opcodes.
const (
	opInstrument   = 0x80
	opPortamento   = 0x81
	opArpeggio     = 0x82
	opVibrato      = 0x83
	opVolume       = 0x84
	opRepeatEffect = 0x85
	opEndSong      = 0xFE
	opEndTrack     = 0xFF
)

// A note with wait w lasts w rows.
const (
	rowsPerWait = 1
	rowOffset   = 0
)

func nibble(v uint8) uint8 {
	return min(v, 0x0F)
}

// newMachine builds the instruction set for the track and vibrato versions
// found in the player code.
func newMachine(trackVersion, vibratoVersion int) *bytecode.Machine {
	ops := map[byte]bytecode.Op{
		opInstrument: {Name: "set instrument", Args: 1, Run: func(s *bytecode.State, a []byte) bytecode.Action {
			s.SetInstrument(a[0])
			return bytecode.Continue
		}},
		opEndTrack: {Name: "end of track", Run: func(*bytecode.State, []byte) bytecode.Action {
			return bytecode.EndTrack
		}},
	}

	if trackVersion >= 2 {
		portaArgs := 1
		if trackVersion >= 4 {
			portaArgs = 2 // speed, target note
		}
		ops[opPortamento] = bytecode.Op{Name: "portamento", Args: portaArgs, Run: func(s *bytecode.State, a []byte) bytecode.Action {
			s.SetEffect(tracker.EffectPortamento, a[0])
			return bytecode.Continue
		}}
		ops[opArpeggio] = bytecode.Op{Name: "arpeggio", Args: 1, Run: func(s *bytecode.State, a []byte) bytecode.Action {
			if a[0] != 0 {
				s.SetEffect(tracker.EffectArpeggio, a[0])
			}
			return bytecode.Continue
		}}

		if vibratoVersion == 2 {
			ops[opVibrato] = bytecode.Op{Name: "vibrato", Args: 2, Run: func(s *bytecode.State, a []byte) bytecode.Action {
				s.SetEffect(tracker.EffectVibrato, nibble(a[0])<<4|nibble(a[1]))
				return bytecode.Continue
			}}
		} else {
			ops[opVibrato] = bytecode.Op{Name: "vibrato", Args: 1, Run: func(s *bytecode.State, a []byte) bytecode.Action {
				s.SetEffect(tracker.EffectVibrato, a[0])
				return bytecode.Continue
			}}
		}
	}

	if trackVersion >= 3 {
		ops[opVolume] = bytecode.Op{Name: "volume", Args: 1, Run: func(s *bytecode.State, a []byte) bytecode.Action {
			s.SetEffect(tracker.EffectVolume, min(a[0], 64))
			return bytecode.Continue
		}}
	}

	if trackVersion >= 5 {
		ops[opRepeatEffect] = bytecode.Op{Name: "repeat effect", Run: func(s *bytecode.State, _ []byte) bytecode.Action {
			s.RepeatEffect()
			return bytecode.Continue
		}}
		ops[opEndSong] = bytecode.Op{Name: "end of song", Run: func(*bytecode.State, []byte) bytecode.Action {
			return bytecode.EndSong
		}}
	}

	return &bytecode.Machine{
		NoteLimit:   0x80,
		NoteCount:   NoteCount,
		RowsPerWait: rowsPerWait,
		RowOffset:   rowOffset,
		Ops:         ops,
	}
}
