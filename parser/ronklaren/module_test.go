package ronklaren

import (
	"github.com/QEStudios/ModRecover/internal/m68ktest"
)

const (
	testTimer = 14187 // 125 BPM
)

var (
	track0 = []byte{0x82, 0x00, 16, 2, 18, 1, 0xFF}
	track1 = []byte{0x82, 0x01, 32, 1, 0, 1, 0xFF}
	// Arpeggio, portamento and an envelope override, no instrument.
	track2 = []byte{0x80, 0x00, 20, 1, 0x81, 0x30, 0x05, 0x00, 22, 1, 0x84, 0x01, 24, 1, 0xFF}
)

var (
	pcm0 = []byte{0x00, 0x10, 0x20, 0x30, 0x40, 0x30, 0x20, 0x10}
	pcm1 = []byte{0x80, 0xC0, 0x00, 0x40}
)

// buildModule assembles a hunk executable with a jump table, an init routine
// that programs the CIA timer and a play routine that loads every table.
func buildModule() (*m68ktest.Builder, []byte) {
	return buildModuleWithList([]byte{0x00, 0xC0, 0x03, 0xFC, 0x01, 0xF0, 0x02, 0x00, 0xFE})
}

// buildModuleWithList is buildModule with list0 as channel 0's position list
// in sub-song 0.
func buildModuleWithList(list0 []byte) (*m68ktest.Builder, []byte) {
	b := m68ktest.New()
	b.Long(hunkHeader).Zero(CodeBase - 4)

	b.Hex("60 00").Disp("init").
		Hex("60 00").Disp("play")

	b.Label("init").Hex("48 E7 FF FE").
		Hex("13 FC 00").Bytes(testTimer&0xFF).Hex("00 BF D4 00").
		Hex("13 FC 00").Bytes(testTimer>>8).Hex("00 BF D5 00").
		Hex("70 00 E9 40 41 FA").Disp("subsongs").
		Hex("4C DF 7F FF 4E 75")

	b.Label("play").Hex("48 E7 FF FE").
		Hex("D0 40 D0 40 45 FA").Disp("tracktable").
		Hex("EB 41 47 FA").Disp("instruments").
		Hex("C2 FC 00 0C 49 FA").Disp("sampletable").
		Hex("E9 42 4D FA").Disp("arpeggios").
		Hex("4C DF 7F FF 4E 75")

	b.Label("subsongs")
	for _, l := range []string{"list0", "list1", "list2", "empty"} {
		b.Ptr32(l, CodeBase)
	}
	for i := 0; i < channels; i++ {
		b.Ptr32("empty", CodeBase)
	}

	b.Label("list0").Bytes(list0...).
		Label("list1").Bytes(0x01, 0xFF).
		Label("list2").Bytes(0x02, 0xFF).
		Label("empty").Bytes(0xFF)

	b.Label("track0").Bytes(track0...).
		Label("track1").Bytes(track1...).
		Label("track2").Bytes(track2...).
		Align()

	b.Label("tracktable").
		Ptr32("track0", CodeBase).
		Ptr32("track1", CodeBase).
		Ptr32("track2", CodeBase)

	b.Label("instruments")
	b.Ptr32("sample0", CodeBase).Bytes(64, 1, 2, 3, 4, 5, 6, 7, 0).Zero(19)
	b.Ptr32("sample1", CodeBase).Bytes(40, 0, 0, 0, 0, 0, 0, 0, 1).Zero(19)

	b.Label("sampletable").
		Label("sample0").Ptr32("pcm0", CodeBase).Word(uint16(len(pcm0) / 2)).Word(2).Word(2).Zero(2).
		Label("sample1").Ptr32("pcm1", CodeBase).Word(uint16(len(pcm1) / 2)).Word(0).Word(1).Zero(2)

	b.Label("arpeggios").
		Bytes(0, 4, 7, 0).Zero(12).
		Zero(16)

	b.Label("pcm0").Bytes(pcm0...).
		Label("pcm1").Bytes(pcm1...)
	return b, b.Build()
}
