package activision

import (
	"fmt"

	"github.com/QEStudios/ModRecover/internal/m68ktest"
)

// moduleOptions selects the player variant of a synthetic module.
type moduleOptions struct {
	instrumentVersion InstrumentVersion // 0 emits an unknown instruction.
	trackVersion      int
	vibratoVersion    int
	speedVersion      int
	embedded          bool
	list0             []byte // Position list of channel 0 in sub-song 0; nil for the default.
}

func defaultOptions() moduleOptions {
	return moduleOptions{
		instrumentVersion: InstrumentV2,
		trackVersion:      3,
		vibratoVersion:    1,
		speedVersion:      1,
		embedded:          true,
	}
}

var trackVersionCode = map[int]string{
	1: "4A 00 6B 00 00 10",
	2: "0C 00 00 80 65 00 00 10",
	3: "0C 00 00 80 65 08",
	4: "0C 00 00 80 64 04",
	5: "0C 00 00 7F 63 00 00 10",
}

var instrumentVersionCode = map[InstrumentVersion]string{
	InstrumentV1: "E7 48",
	InstrumentV2: "C0 FC 00 0C",
	InstrumentV3: "E9 48",
}

// Track bytecode shared by every variant: only set instrument and end of track.
var (
	track0 = []byte{0x80, 0x00, 12, 4, 14, 4, 0xFF}
	track1 = []byte{0x80, 0x01, 24, 2, 0, 2, 0xFF}
)

// Sample 0 is 8 bytes looping over its second half; sample 1 is 4 bytes without a loop.
var (
	sample0 = []byte{0x00, 0x10, 0x20, 0x30, 0x40, 0x30, 0x20, 0x10}
	sample1 = []byte{0x80, 0xC0, 0x00, 0x40}
)

func buildModule(o moduleOptions) (*m68ktest.Builder, []byte) {
	b := m68ktest.New()

	// Init routine.
	b.Label("init").Hex("48 E7 FC FE").
		Hex("72 00").
		Hex("E9 41 70 00 41 FA").Disp("subsongs").
		Hex("D0 C1").
		Hex("4B FA").Disp("positions").
		Hex("10 29 00 0C")
	if o.speedVersion == 2 {
		b.Hex("D0 29 00 08")
	} else {
		b.Hex("1B 40 00 20")
	}
	b.Hex("4C DF 7F 3F 4E 75")

	// Play routine.
	b.Label("play").Hex("48 E7 FF FE").
		Hex("D0 40 43 FA").Disp("trackoffsets").
		Hex("45 FA").Disp("tracks").
		Hex("D4 F1 00 00").
		Hex("10 1A").
		Hex(trackVersionCode[o.trackVersion]).
		Hex("4A 2B 00 08")
	if o.vibratoVersion == 2 {
		b.Hex("66 00 00 08")
	} else {
		b.Hex("67 00 00 08")
	}
	b.Hex("47 FA").Disp("instruments")
	if code, ok := instrumentVersionCode[o.instrumentVersion]; ok {
		b.Hex(code)
	} else {
		b.Hex("4E 71")
	}
	b.Hex("E5 48 49 FA").Disp("samplestarts").
		Hex("22 34 00 00 41 FA").Disp("sampledata")
	if o.embedded {
		b.Hex("D1 C1 30 18")
	} else {
		b.Hex("D1 C1 4D FA").Disp("sampleinfo")
	}
	b.Hex("4C DF 7F FF 4E 75")

	// Sub-songs: 0 plays the song, 1 is silent.
	b.Label("subsongs")
	for ch := 0; ch < channels; ch++ {
		b.Rel16(fmt.Sprintf("list%d", ch), "positions")
	}
	b.Bytes(4, 0, 0, 0).Bytes(6).Zero(3)
	for ch := 0; ch < channels; ch++ {
		b.Rel16("list3", "positions")
	}
	b.Zero(4).Bytes(3).Zero(3)

	list0 := o.list0
	if list0 == nil {
		list0 = []byte{0x00, 0x80, 0x02, 0x01, 0xC0, 0x02, 0x00, 0xFE}
	}
	b.Label("positions").
		Label("list0").Bytes(list0...).
		Label("list1").Bytes(0x01, 0xFF).
		Label("list2").Bytes(0x00, 0x01, 0xFF).
		Label("list3").Bytes(0xFF).
		Align()

	b.Label("trackoffsets").
		Rel16("track0", "tracks").
		Rel16("track1", "tracks")
	b.Label("tracks").
		Label("track0").Bytes(track0...).
		Label("track1").Bytes(track1...).
		Align()

	b.Label("instruments")
	writeInstrument(b, o.instrumentVersion, 0, 64)
	writeInstrument(b, o.instrumentVersion, 1, 40)

	b.Label("samplestarts").
		Rel32("sample0", "sampledata").
		Rel32("sample1", "sampledata")

	if !o.embedded {
		b.Label("sampleinfo").
			Word(uint16(len(sample0)/2)).Word(2).Word(2).
			Word(uint16(len(sample1)/2)).Word(0).Word(1)
	}
	b.Label("sampledata")
	if o.embedded {
		b.Label("sample0").Word(uint16(len(sample0) / 2)).Word(2).Word(2).Bytes(sample0...)
		b.Label("sample1").Word(uint16(len(sample1) / 2)).Word(0).Word(1).Bytes(sample1...)
	} else {
		b.Label("sample0").Bytes(sample0...)
		b.Label("sample1").Bytes(sample1...)
	}
	return b, b.Build()
}

func writeInstrument(b *m68ktest.Builder, v InstrumentVersion, sample, volume byte) {
	switch v {
	case InstrumentV1:
		b.Bytes(sample, volume, 1, 2, 3, 0xFF).Zero(2)
	case InstrumentV2:
		b.Bytes(sample, volume, 0xFF, 0).Bytes(0, 3, 7, 0).Bytes(1, 2, 3).Zero(1)
	case InstrumentV3:
		b.Word(uint16(sample)).Bytes(volume, 0xFF).Bytes(10, 20, 30, 40).Bytes(1, 2, 3).Bytes(0, 4, 7, 0).Zero(1)
	default:
		b.Zero(12)
	}
}
