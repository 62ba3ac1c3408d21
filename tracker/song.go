// Package tracker is the format-neutral output of the module decoders: a
// four-channel pattern grid plus sample-based instruments.
package tracker

import (
	"fmt"
	"math"
	"strings"
)

// DefaultRows is the row count of every pattern produced by the decoders.
const DefaultRows = 64

// DefaultTempo is the tempo (BPM) of a 50 Hz vertical-blank driven player.
const DefaultTempo = 125

const (
	minTempo = 32
	maxTempo = 255
	minSpeed = 1
	maxSpeed = 31
)

// Effect numbers follow the ProTracker command set.
const (
	EffectArpeggio   uint8 = 0x0
	EffectPortamento uint8 = 0x3 // Tone portamento towards the note.
	EffectVibrato    uint8 = 0x4
	EffectVolume     uint8 = 0xC
)

// A Cell is one (row, channel) event.
type Cell struct {
	Note       uint8 // 0 is a rest, otherwise a 1-based note index.
	Instrument uint8 // 0 is "no instrument".
	Effect     uint8
	Param      uint8
}

// Empty reports whether the cell carries nothing at all.
func (c Cell) Empty() bool {
	return c == Cell{}
}

var noteNames = [12]string{"C-", "C#", "D-", "D#", "E-", "F-", "F#", "G-", "G#", "A-", "A#", "B-"}

func (c Cell) String() string {
	var b strings.Builder
	if c.Note == 0 {
		b.WriteString("---")
	} else {
		n := int(c.Note) - 1
		fmt.Fprintf(&b, "%s%d", noteNames[n%12], n/12+1)
	}
	if c.Instrument == 0 {
		b.WriteString(" ..")
	} else {
		fmt.Fprintf(&b, " %02X", c.Instrument)
	}
	if c.Effect == 0 && c.Param == 0 {
		b.WriteString(" ...")
	} else {
		fmt.Fprintf(&b, " %X%02X", c.Effect, c.Param)
	}
	return b.String()
}

// A Pattern is a Rows x channel grid. Channels[ch] always has exactly Rows cells.
type Pattern struct {
	Rows     int
	Channels [][]Cell
}

// NewPattern returns an all-empty pattern.
func NewPattern(channels, rows int) Pattern {
	p := Pattern{Rows: rows, Channels: make([][]Cell, channels)}
	for ch := range p.Channels {
		p.Channels[ch] = make([]Cell, rows)
	}
	return p
}

// FitRows pads cells with empty cells or truncates it to exactly rows entries.
func FitRows(cells []Cell, rows int) []Cell {
	if rows < 0 {
		rows = 0
	}
	if len(cells) >= rows {
		return cells[:rows:rows]
	}
	out := make([]Cell, rows)
	copy(out, cells)
	return out
}

// Song is the terminal output of a decode.
type Song struct {
	Name   string // Display name, derived from the file name.
	Format string // Name of the decoder that produced the song.

	Channels int
	Tempo    int // Initial tempo in BPM.
	Speed    int // Initial ticks per row.

	Positions   []int // Pattern index per song position.
	Patterns    []Pattern
	Instruments []Instrument // Instrument number n is Instruments[n-1].

	Restart int  // Position the song restarts from when it loops.
	Loops   bool // Playback returns to Restart after the last position instead of stopping.
}

// ClampTempo limits a tempo to the range a tracker can display.
func ClampTempo(tempo int) int {
	return min(max(tempo, minTempo), maxTempo)
}

// ClampSpeed limits a speed to the range a tracker can display.
func ClampSpeed(speed int) int {
	return min(max(speed, minSpeed), maxSpeed)
}

// TempoFromTimer converts a hardware timer reload value into a tempo: the
// timer fires clock/timer times per second and a tracker's tempo is that
// rate scaled by 2.5. clock must already include the 2.5 factor.
func TempoFromTimer(clock float64, timer uint16) int {
	if timer == 0 {
		return DefaultTempo
	}
	return ClampTempo(int(math.Round(clock / float64(timer))))
}

// formatPattern renders a pattern as a table with one column per channel.
func formatPattern(p Pattern, indent int) string {
	const cellWidth = 10 // "C-3 01 C40"
	var b strings.Builder

	separator := func() {
		b.WriteString(strings.Repeat(" ", indent))
		b.WriteString("+----")
		for range p.Channels {
			b.WriteString("+")
			b.WriteString(strings.Repeat("-", cellWidth+2))
		}
		b.WriteString("+\n")
	}

	separator()
	b.WriteString(strings.Repeat(" ", indent))
	b.WriteString("| Row")
	for ch := range p.Channels {
		fmt.Fprintf(&b, "| %-*s ", cellWidth, fmt.Sprintf("Channel %d", ch))
	}
	b.WriteString("|\n")
	separator()

	for row := 0; row < p.Rows; row++ {
		b.WriteString(strings.Repeat(" ", indent))
		fmt.Fprintf(&b, "| %02X ", row)
		for _, column := range p.Channels {
			cell := Cell{}
			if row < len(column) {
				cell = column[row]
			}
			fmt.Fprintf(&b, "| %-*s ", cellWidth, cell.String())
		}
		b.WriteString("|\n")
	}
	separator()
	return b.String()
}

// Summary renders the song header and instrument list without patterns.
func (s *Song) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s song:\n", s.Format)
	fmt.Fprintf(&b, "- Name: %s\n", s.Name)
	fmt.Fprintf(&b, "- Channels: %d\n", s.Channels)
	fmt.Fprintf(&b, "- Tempo: %d, speed: %d\n", s.Tempo, s.Speed)
	fmt.Fprintf(&b, "- Positions: %d", len(s.Positions))
	if s.Loops {
		fmt.Fprintf(&b, " (restarts at %d)", s.Restart)
	}
	b.WriteString("\n")

	b.WriteString("- Instruments:\n")
	for _, inst := range s.Instruments {
		fmt.Fprintf(&b, "  %02X %-22s vol %2d  ", inst.ID, inst.Name, inst.Volume)
		if inst.Sample.Silent() {
			b.WriteString("(no sample)\n")
			continue
		}
		fmt.Fprintf(&b, "%6d bytes", inst.Sample.Len())
		if inst.Sample.Looped() {
			fmt.Fprintf(&b, ", loop %d..%d", inst.Sample.LoopStart, inst.Sample.LoopEnd)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Pretty-print
func (s *Song) String() string {
	var b strings.Builder
	b.WriteString(s.Summary())
	b.WriteString("- Patterns:\n")
	for i, p := range s.Patterns {
		fmt.Fprintf(&b, "\n  - Pattern #%d:\n", i)
		b.WriteString(formatPattern(p, 4))
	}
	return b.String()
}
