package ronklaren

import (
	"fmt"

	"github.com/QEStudios/ModRecover/parser/format"
	"github.com/QEStudios/ModRecover/parser/reader"
	"golang.org/x/crypto/cryptobyte"
)

const channels = 4

// SubSong holds the absolute offsets of the four position lists.
type SubSong struct {
	Lists [channels]int
}

// Instrument is one 32-byte instrument record.
type Instrument struct {
	SampleRecord int // Absolute offset of the sample record.
	Volume       uint8
	VibratoDelay uint8
	VibratoSpeed uint8
	VibratoDepth uint8
	Attack       uint8
	Decay        uint8
	Sustain      uint8
	Release      uint8
	Arpeggio     uint8 // Index into the arpeggio table.
}

// SampleRecord describes one sample. Lengths are in words.
type SampleRecord struct {
	PCM        int // Absolute offset of the sample data.
	Length     uint16
	LoopStart  uint16
	LoopLength uint16
}

// readPointer reads a code-relative u32 as an absolute offset.
func readPointer(rec *cryptobyte.String, out *int) bool {
	var v uint32
	if !rec.ReadUint32(&v) {
		return false
	}
	*out = CodeBase + int(v)
	return true
}

func readSubSong(rec *cryptobyte.String) (SubSong, bool) {
	var s SubSong
	for ch := range s.Lists {
		if !readPointer(rec, &s.Lists[ch]) {
			return SubSong{}, false
		}
	}
	return s, true
}

// loadSubSongs reads the sub-song table. The table has no count; the
// position lists follow it directly, so it ends where the first list of
// sub-song 0 starts.
func loadSubSongs(r reader.Reader, l Layout) ([]SubSong, error) {
	rec, err := r.Record(l.SubSongs, subSongSize)
	if err != nil {
		return nil, fmt.Errorf("%w: first sub-song: %w", format.ErrStructureMismatch, err)
	}
	first, _ := readSubSong(&rec)
	end := first.Lists[0]
	for _, p := range first.Lists[1:] {
		end = min(end, p)
	}
	count := (end - l.SubSongs) / subSongSize
	if count < 1 {
		return nil, mismatchf("position list 0x%x overlaps sub-song table 0x%x", end, l.SubSongs)
	}
	return reader.Records(r, l.SubSongs, count, subSongSize, readSubSong), nil
}

// loadTrackPointers returns the absolute start of every track.
func loadTrackPointers(r reader.Reader, l Layout) []int {
	return reader.Records(r, l.TrackTable, l.TrackCount(), trackPointerSize, func(rec *cryptobyte.String) (int, bool) {
		var p int
		ok := readPointer(rec, &p)
		return p, ok
	})
}

func loadInstruments(r reader.Reader, l Layout) []Instrument {
	return reader.Records(r, l.Instruments, l.InstrumentCount(), instrumentSize, func(rec *cryptobyte.String) (Instrument, bool) {
		var inst Instrument
		ok := readPointer(rec, &inst.SampleRecord) &&
			rec.ReadUint8(&inst.Volume) &&
			rec.ReadUint8(&inst.VibratoDelay) &&
			rec.ReadUint8(&inst.VibratoSpeed) &&
			rec.ReadUint8(&inst.VibratoDepth) &&
			rec.ReadUint8(&inst.Attack) &&
			rec.ReadUint8(&inst.Decay) &&
			rec.ReadUint8(&inst.Sustain) &&
			rec.ReadUint8(&inst.Release) &&
			rec.ReadUint8(&inst.Arpeggio)
		return inst, ok
	})
}

// readSampleRecord reads the sample record at off, which must be one of the
// records of the sample table.
func readSampleRecord(r reader.Reader, l Layout, off int) (SampleRecord, error) {
	if off < l.SampleTable || off+sampleRecordSize > l.Arpeggios || (off-l.SampleTable)%sampleRecordSize != 0 {
		return SampleRecord{}, fmt.Errorf("%w: 0x%x is not a sample record", format.ErrTruncatedData, off)
	}
	rec, err := r.Record(off, sampleRecordSize)
	if err != nil {
		return SampleRecord{}, err
	}
	var s SampleRecord
	readPointer(&rec, &s.PCM)
	rec.ReadUint16(&s.Length)
	rec.ReadUint16(&s.LoopStart)
	rec.ReadUint16(&s.LoopLength)
	return s, nil
}

// Arpeggio is one arpeggio table entry: semitone offsets stepped through
// once per tick.
type Arpeggio [arpeggioSize]int8

// readArpeggio reads entry n of the arpeggio table.
func readArpeggio(r reader.Reader, l Layout, n int) (Arpeggio, error) {
	var a Arpeggio
	b, err := r.Bytes(l.Arpeggios+n*arpeggioSize, arpeggioSize)
	if err != nil {
		return a, fmt.Errorf("arpeggio %d: %w", n, err)
	}
	for i, v := range b {
		a[i] = int8(v)
	}
	return a, nil
}

// Param approximates the entry with a two-note tracker arpeggio: the first
// two distinct positive offsets, limited to one nibble each.
func (a Arpeggio) Param() uint8 {
	var notes []uint8
	for _, v := range a {
		if v <= 0 {
			continue
		}
		n := uint8(min(int(v), 0x0F))
		if len(notes) == 1 && notes[0] == n {
			continue
		}
		notes = append(notes, n)
		if len(notes) == 2 {
			break
		}
	}
	switch len(notes) {
	case 0:
		return 0
	case 1:
		return notes[0] << 4
	default:
		return notes[0]<<4 | notes[1]
	}
}
