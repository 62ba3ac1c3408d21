package activision

import (
	"github.com/QEStudios/ModRecover/parser/reader"
	"golang.org/x/crypto/cryptobyte"
)

const channels = 4

// SubSong is one arrangement of the module.
type SubSong struct {
	Lists          [channels]int  // Absolute offsets of the per-channel position lists.
	SpeedVariation [channels]int8 // Per-channel speed variation.
	Speed          uint8
}

// Instrument is one instrument record. Fields absent from the record's
// version keep their zero value.
type Instrument struct {
	SampleNumber int
	Volume       uint8
	FineTune     int8
	Arpeggio     [4]uint8
	VibratoDelay uint8
	VibratoSpeed uint8
	VibratoDepth uint8
	Attack       uint8
	Decay        uint8
	Sustain      uint8
	Release      uint8
}

// SampleInfo describes one sample. All fields are in words.
type SampleInfo struct {
	Length     uint16
	LoopStart  uint16
	LoopLength uint16
}

func loadSubSongs(r reader.Reader, l Layout) []SubSong {
	return reader.Records(r, l.SubSongs, l.SubSongCount(), subSongSize, func(rec *cryptobyte.String) (SubSong, bool) {
		var s SubSong
		for ch := range s.Lists {
			var rel uint16
			if !rec.ReadUint16(&rel) {
				return SubSong{}, false
			}
			s.Lists[ch] = l.PositionLists + int(rel)
		}
		var variation []byte
		if !rec.ReadBytes(&variation, channels) || !rec.ReadUint8(&s.Speed) {
			return SubSong{}, false
		}
		for ch, v := range variation {
			s.SpeedVariation[ch] = int8(v)
		}
		return s, true
	})
}

// decodeInstrument reads one record with the field layout of version v.
func decodeInstrument(rec *cryptobyte.String, v InstrumentVersion) (Instrument, bool) {
	var (
		inst   Instrument
		sample uint8
		fine   uint8
		arp    []byte
		ok     bool
	)
	vibrato := func() bool {
		return rec.ReadUint8(&inst.VibratoDelay) &&
			rec.ReadUint8(&inst.VibratoSpeed) &&
			rec.ReadUint8(&inst.VibratoDepth)
	}
	switch v {
	case InstrumentV1:
		ok = rec.ReadUint8(&sample) &&
			rec.ReadUint8(&inst.Volume) &&
			vibrato() &&
			rec.ReadUint8(&fine)
		inst.SampleNumber = int(sample)
	case InstrumentV2:
		ok = rec.ReadUint8(&sample) &&
			rec.ReadUint8(&inst.Volume) &&
			rec.ReadUint8(&fine) &&
			rec.Skip(1) &&
			rec.ReadBytes(&arp, len(inst.Arpeggio)) &&
			vibrato()
		inst.SampleNumber = int(sample)
	case InstrumentV3:
		var wide uint16
		ok = rec.ReadUint16(&wide) &&
			rec.ReadUint8(&inst.Volume) &&
			rec.ReadUint8(&fine) &&
			rec.ReadUint8(&inst.Attack) &&
			rec.ReadUint8(&inst.Decay) &&
			rec.ReadUint8(&inst.Sustain) &&
			rec.ReadUint8(&inst.Release) &&
			vibrato() &&
			rec.ReadBytes(&arp, len(inst.Arpeggio))
		inst.SampleNumber = int(wide)
	}
	if !ok {
		return Instrument{}, false
	}
	inst.FineTune = int8(fine)
	copy(inst.Arpeggio[:], arp)
	return inst, true
}

func loadInstruments(r reader.Reader, l Layout) []Instrument {
	return reader.Records(r, l.Instruments, l.InstrumentCount(), l.InstrumentVersion.RecordSize(), func(rec *cryptobyte.String) (Instrument, bool) {
		return decodeInstrument(rec, l.InstrumentVersion)
	})
}

// loadSampleStarts returns absolute sample start offsets.
func loadSampleStarts(r reader.Reader, l Layout) []int {
	return reader.Records(r, l.SampleStarts, l.SampleCount(), sampleStartSize, func(rec *cryptobyte.String) (int, bool) {
		var rel uint32
		if !rec.ReadUint32(&rel) {
			return 0, false
		}
		return l.SampleData + int(rel), true
	})
}

func readSampleInfo(r reader.Reader, off int) (SampleInfo, error) {
	rec, err := r.Record(off, sampleInfoSize)
	if err != nil {
		return SampleInfo{}, err
	}
	var info SampleInfo
	rec.ReadUint16(&info.Length)
	rec.ReadUint16(&info.LoopStart)
	rec.ReadUint16(&info.LoopLength)
	return info, nil
}

// loadTrackOffsets returns the absolute start of every track.
func loadTrackOffsets(r reader.Reader, l Layout) []int {
	return reader.Records(r, l.TrackOffsets, l.TrackCount(), trackOffsetSize, func(rec *cryptobyte.String) (int, bool) {
		var rel uint16
		if !rec.ReadUint16(&rel) {
			return 0, false
		}
		return l.Tracks + int(rel), true
	})
}
