// Package activision recovers songs from Activision-Pro modules. The modules
// carry no header: the player code at the start of the file is scanned for
// known instruction sequences, and the PC-relative operands of those
// instructions locate every table the song is made of.
package activision

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
const FormatName = "Activision Pro"

// Position list bytes.
const (
	positionTranspose = 0x80 // 80-BF: transpose, followed by a signed byte.
	positionRepeat    = 0xC0 // C0-FD: repeat, followed by a count.
	positionLoop      = 0xFE
	positionEnd       = 0xFF
)

func classifyPosition(b byte) poslist.Class {
	switch {
	case b < positionTranspose:
		return poslist.Track
	case b < positionRepeat:
		return poslist.Transpose
	case b < positionLoop:
		return poslist.Repeat
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

// Decoder implements format.Decoder for Activision-Pro modules.
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

// Decode recovers sub-song subsong of the module in data. Errors from the
// layout scan mean data is not an Activision-Pro module; anything wrong
// below the layout level is reported in Result.Warnings instead.
func (d *Decoder) Decode(data []byte, filename string, subsong uint8) (*format.Result, error) {
	layout, err := ResolveLayout(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", FormatName, err)
	}
	d.logger.Printf("%s player found: track v%d, vibrato v%d, speed v%d, instrument v%d",
		FormatName, layout.TrackVersion, layout.VibratoVersion, layout.SpeedVersion, layout.InstrumentVersion)
	defer format.DumpOnPanic(d.logger, FormatName, layout)

	r := reader.New(data)
	subSongs := loadSubSongs(r, layout)
	if int(subsong) >= len(subSongs) {
		return nil, fmt.Errorf("%s: %w", FormatName, mismatchf("sub-song %d requested, module has %d", subsong, len(subSongs)))
	}
	sub := subSongs[subsong]

	var warn format.Warnings
	trackOffsets := loadTrackOffsets(r, layout)
	if n := layout.TrackCount(); len(trackOffsets) < n {
		warn.Addf(layout.TrackOffsets, "only %d of %d track offsets readable", len(trackOffsets), n)
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
			list.Entries[i].Offset = trackOffset(layout, trackOffsets, list.Entries[i].Track)
			if list.Entries[i].Offset < 0 {
				warn.Addf(list.Entries[i].Source, "channel %d refers to missing track %d", ch, list.Entries[i].Track)
			}
		}
		expanded, capped := poslist.Expand(list.Entries, poslist.MaxPositions)
		if capped {
			warn.Addf(off, "position list of channel %d repeats past %d positions, the rest is dropped", ch, poslist.MaxPositions)
		}
		lists[ch] = expanded
	}

	machine := newMachine(layout.TrackVersion, layout.VibratoVersion)
	arr := arrange.Build(lists, machine, func(e poslist.Entry) []byte {
		if e.Offset < 0 {
			return nil
		}
		return data[e.Offset:layout.Instruments]
	}, &warn)

	instruments := loadInstruments(r, layout)
	if n := layout.InstrumentCount(); len(instruments) < n {
		warn.Addf(layout.Instruments, "only %d of %d instruments readable", len(instruments), n)
	}
	if n := arr.MaxInstrument(); n > len(instruments) {
		warn.Addf(-1, "tracks use instrument %d but only %d instruments are loaded", n, len(instruments))
	}
	samples := sampleSource{r: r, layout: layout, starts: loadSampleStarts(r, layout)}

	song := &tracker.Song{
		Name:      format.SongName(filename),
		Format:    FormatName,
		Channels:  channels,
		Tempo:     tracker.DefaultTempo,
		Speed:     speed(layout, sub),
		Positions: arr.Positions,
		Patterns:  arr.Patterns,
		Loops:     loops && !arr.EndSong,
	}
	for i, inst := range instruments {
		song.Instruments = append(song.Instruments, samples.instrument(i+1, inst, &warn))
	}

	return &format.Result{
		Format:   FormatName,
		Song:     song,
		SubSongs: len(subSongs),
		Warnings: warn,
	}, nil
}

// trackOffset returns the start of track n, or -1 when the track table has
// no such entry or the entry points outside the track region.
func trackOffset(l Layout, offsets []int, n int) int {
	if n < 0 || n >= len(offsets) {
		return -1
	}
	off := offsets[n]
	if off < l.Tracks || off >= l.Instruments {
		return -1
	}
	return off
}

// speed returns the initial speed of sub. Players with speed variation add
// half of the first channel's variation.
func speed(l Layout, sub SubSong) int {
	s := int(sub.Speed)
	if l.SpeedVersion == 2 {
		s = (2*s + int(sub.SpeedVariation[0])) / 2
	}
	return tracker.ClampSpeed(s)
}
