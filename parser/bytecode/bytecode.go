// Package bytecode interprets per-channel track instruction streams.
//
// A stream is a sequence of notes and control opcodes. A note byte is always
// followed by a wait byte: zero keeps decoding the same row, anything else
// emits the row and holds it for a format-specific number of rows. Control
// opcodes change the channel state (instrument, pending effect) or end the
// track. Each player format supplies its own opcode table.
package bytecode

import (
	"fmt"

	"github.com/QEStudios/ModRecover/parser/format"
	"github.com/QEStudios/ModRecover/tracker"
)

// Action tells the machine what to do after an opcode.
type Action int

const (
	Continue Action = iota
	EndTrack
	EndSong
)

// Stop is why decoding of a track stopped.
type Stop int

const (
	StopRows        Stop = iota // The requested row count was reached.
	StopEndTrack                // End-of-track opcode.
	StopEndSong                 // End-of-song opcode.
	StopTruncated               // The stream ran out before an end opcode.
	StopUnsupported             // Unknown opcode.
)

// State is the channel state carried from one instruction to the next.
type State struct {
	Instrument uint8 // 1-based; 0 means none selected yet.

	effect, param uint8
	hasEffect     bool

	lastEffect, lastParam uint8
	hasLast               bool
}

// SetInstrument selects the 0-based instrument n for following notes.
func (s *State) SetInstrument(n uint8) {
	if n == 0xFF {
		s.Instrument = 0
		return
	}
	s.Instrument = n + 1
}

// SetEffect makes effect/param pending for the next emitted row.
func (s *State) SetEffect(effect, param uint8) {
	s.effect, s.param, s.hasEffect = effect, param, true
	s.lastEffect, s.lastParam, s.hasLast = effect, param, true
}

// RepeatEffect makes the most recent effect pending again.
func (s *State) RepeatEffect() {
	if s.hasLast {
		s.effect, s.param, s.hasEffect = s.lastEffect, s.lastParam, true
	}
}

func (s *State) takeEffect(c *tracker.Cell) {
	if s.hasEffect {
		c.Effect, c.Param = s.effect, s.param
		s.hasEffect = false
	}
}

// Op is one control opcode.
type Op struct {
	Name string
	Args int // Trailing argument bytes.
	Run  func(s *State, args []byte) Action
}

// Machine is one format's instruction set.
type Machine struct {
	// Bytes below NoteLimit are notes; 0 is a rest.
	NoteLimit byte
	// Largest note index; transposed notes are clamped to 1..NoteCount.
	NoteCount int

	// A note with wait w occupies max(1, w*RowsPerWait-RowOffset) rows.
	RowsPerWait int
	RowOffset   int

	Ops map[byte]Op
}

// Span returns the rows occupied by a note with the given non-zero wait.
func (m *Machine) Span(wait byte) int {
	return max(1, int(wait)*m.RowsPerWait-m.RowOffset)
}

// Note applies transpose to a note byte, clamping to the note table.
func (m *Machine) Note(b byte, transpose int8) uint8 {
	if b == 0 {
		return 0
	}
	n := int(b) + int(transpose)
	return uint8(min(max(n, 1), m.NoteCount))
}

// Decode produces exactly rows cells for one channel. Decoding stops early
// at an end opcode, at the end of the stream or at an unknown opcode; the
// remaining rows are empty. The returned error, if any, wraps
// format.ErrUnsupportedOpcode or format.ErrTruncatedData and the cells are
// still valid.
func (m *Machine) Decode(track []byte, rows int, transpose int8) ([]tracker.Cell, Stop, error) {
	rows = max(rows, 0)
	var (
		st      State
		cells   = make([]tracker.Cell, 0, rows)
		pending tracker.Cell
		dirty   bool // pending holds a note that has not been emitted
		pos     int
		stop    = StopRows
		err     error
	)

	emit := func(span int) {
		cell := pending
		st.takeEffect(&cell)
		cells = append(cells, cell)
		for i := 1; i < span && len(cells) < rows; i++ {
			cells = append(cells, tracker.Cell{})
		}
		pending, dirty = tracker.Cell{}, false
	}

loop:
	for len(cells) < rows {
		if pos >= len(track) {
			stop = StopTruncated
			err = fmt.Errorf("%w: track ended at byte %d without an end opcode", format.ErrTruncatedData, pos)
			break
		}
		b := track[pos]

		if b < m.NoteLimit {
			if pos+1 >= len(track) {
				stop = StopTruncated
				err = fmt.Errorf("%w: note at byte %d has no wait byte", format.ErrTruncatedData, pos)
				break
			}
			wait := track[pos+1]
			pos += 2

			pending = tracker.Cell{Note: m.Note(b, transpose)}
			if pending.Note != 0 {
				pending.Instrument = st.Instrument
			}
			dirty = true
			if wait > 0 {
				emit(m.Span(wait))
			}
			continue
		}

		op, ok := m.Ops[b]
		if !ok {
			stop = StopUnsupported
			err = fmt.Errorf("%w: 0x%02X at byte %d", format.ErrUnsupportedOpcode, b, pos)
			break
		}
		if pos+1+op.Args > len(track) {
			stop = StopTruncated
			err = fmt.Errorf("%w: %s at byte %d needs %d argument bytes", format.ErrTruncatedData, op.Name, pos, op.Args)
			break
		}
		args := track[pos+1 : pos+1+op.Args]
		pos += 1 + op.Args

		switch op.Run(&st, args) {
		case EndTrack:
			stop = StopEndTrack
			break loop
		case EndSong:
			stop = StopEndSong
			break loop
		}
	}

	// A note decoded with a zero wait still sounds on its row.
	if dirty && len(cells) < rows {
		emit(1)
	}
	return tracker.FitRows(cells, rows), stop, err
}
