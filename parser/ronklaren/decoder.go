// Package ronklaren recovers songs from Ron Klaren modules: Amiga
// executables whose player code references the song tables through
// PC-relative addressing and whose tables hold code-relative pointers.
package ronklaren

import (
	"fmt"
	"log"

	"github.com/QEStudios/ModRecover/parser/arrange"
	"github.com/QEStudios/ModRecover/parser/format"
	"github.com/QEStudios/ModRecover/parser/poslist"
	"github.com/QEStudios/ModRecover/parser/reader"
	"github.com/QEStudios/ModRecover/tracker"
)

// FormatName is the name reported for songs decoded by this package.
const FormatName = "Ron Klaren"

// The player runs from a CIA timer. The PAL CIA clock of 709379 Hz times the
// 2.5 ticks-per-beat factor of a tracker tempo.
const ciaTempoClock = 1773447

const defaultSpeed = 6

// Position list bytes.
const (
	positionTranspose = 0xC0 // C0-EF: transpose, followed by a signed byte.
	positionRepeat    = 0xF0 // F0-FB: repeat, followed by a count.
	positionSkip      = 0xFC // FC-FD: ignored.
	positionLoop      = 0xFE
	positionEnd       = 0xFF
)

func classifyPosition(b byte) poslist.Class {
	switch {
	case b < positionTranspose:
		return poslist.Track
	case b < positionRepeat:
		return poslist.Transpose
	case b < positionSkip:
		return poslist.Repeat
	case b < positionLoop:
		return poslist.Skip
	default:
		return poslist.End
	}
}

// PositionEncoding is the position list encoding of the player.
var PositionEncoding = poslist.Encoding{
	Name:     FormatName,
	Classify: classifyPosition,
	Loop:     positionLoop,
}

// Decoder implements format.Decoder for Ron Klaren modules.
type Decoder struct {
	logger *log.Logger
}

// NewDecoder creates a decoder that reports progress to logger.
func NewDecoder(logger *log.Logger) *Decoder {
	if logger == nil {
		logger = log.Default()
	}
	return &Decoder{logger: logger}
}

func (d *Decoder) Name() string {
	return FormatName
}

// Decode recovers sub-song subsong of the module in data.
func (d *Decoder) Decode(data []byte, filename string, subsong uint8) (*format.Result, error) {
	layout, err := ResolveLayout(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", FormatName, err)
	}
	d.logger.Printf("%s player found: init at 0x%x, play at 0x%x, timer %d",
		FormatName, layout.InitEntry, layout.PlayEntry, layout.Timer)
	defer format.DumpOnPanic(d.logger, FormatName, layout)

	r := reader.New(data)
	subSongs, err := loadSubSongs(r, layout)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", FormatName, err)
	}
	if int(subsong) >= len(subSongs) {
		return nil, fmt.Errorf("%s: %w", FormatName, mismatchf("sub-song %d requested, module has %d", subsong, len(subSongs)))
	}
	sub := subSongs[subsong]

	var warn format.Warnings
	tracks := loadTrackPointers(r, layout)
	if n := layout.TrackCount(); len(tracks) < n {
		warn.Addf(layout.TrackTable, "only %d of %d track pointers readable", len(tracks), n)
	}

	lists := make([][]poslist.Entry, channels)
	loops := false
	for ch, off := range sub.Lists {
		list := poslist.Decode(data, off, PositionEncoding)
		if list.Truncated {
			warn.Addf(off, "position list of channel %d has no end marker", ch)
		}
		loops = loops || list.Loops
		for i := range list.Entries {
			e := &list.Entries[i]
			e.Offset = trackOffset(tracks, e.Track, len(data))
			if e.Offset < 0 {
				warn.Addf(e.Source, "channel %d refers to missing track %d", ch, e.Track)
			}
		}
		expanded, capped := poslist.Expand(list.Entries, poslist.MaxPositions)
		if capped {
			warn.Addf(off, "position list of channel %d repeats past %d positions, the rest is dropped", ch, poslist.MaxPositions)
		}
		lists[ch] = expanded
	}

	arpeggios := make(map[uint8]uint8)
	machine := newMachine(func(index uint8) uint8 {
		if p, ok := arpeggios[index]; ok {
			return p
		}
		a, err := readArpeggio(r, layout, int(index))
		if err != nil {
			warn.Addf(-1, "%v", err)
		}
		arpeggios[index] = a.Param()
		return arpeggios[index]
	})
	arr := arrange.Build(lists, machine, func(e poslist.Entry) []byte {
		if e.Offset < 0 {
			return nil
		}
		return data[e.Offset:]
	}, &warn)

	instruments := loadInstruments(r, layout)
	if n := layout.InstrumentCount(); len(instruments) < n {
		warn.Addf(layout.Instruments, "only %d of %d instruments readable", len(instruments), n)
	}
	if n := arr.MaxInstrument(); n > len(instruments) {
		warn.Addf(-1, "tracks use instrument %d but only %d instruments are loaded", n, len(instruments))
	}

	song := &tracker.Song{
		Name:      format.SongName(filename),
		Format:    FormatName,
		Channels:  channels,
		Tempo:     tracker.TempoFromTimer(ciaTempoClock, layout.Timer),
		Speed:     defaultSpeed,
		Positions: arr.Positions,
		Patterns:  arr.Patterns,
		Loops:     loops && !arr.EndSong,
	}
	for i, inst := range instruments {
		song.Instruments = append(song.Instruments, instrument(r, layout, i+1, inst, &warn))
	}

	return &format.Result{
		Format:   FormatName,
		Song:     song,
		SubSongs: len(subSongs),
		Warnings: warn,
	}, nil
}

// trackOffset returns the start of track n, or -1 when there is no such
// track or its pointer leaves the file.
func trackOffset(tracks []int, n, size int) int {
	if n < 0 || n >= len(tracks) {
		return -1
	}
	off := tracks[n]
	if off < CodeBase || off >= size {
		return -1
	}
	return off
}
