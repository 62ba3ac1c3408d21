package activision

import (
	"fmt"

	"github.com/QEStudios/ModRecover/parser/format"
	"github.com/QEStudios/ModRecover/parser/scan"
)

// SearchLimit bounds every scan. The player code always sits at the start of the file.
const SearchLimit = 0x1000

// InstrumentVersion selects one of the three instrument record layouts.
type InstrumentVersion int

const (
	InstrumentV1 InstrumentVersion = iota + 1 // 8-byte records.
	InstrumentV2                              // 12-byte records.
	InstrumentV3                              // 16-byte records with ADSR.
)

// RecordSize returns the instrument record size in bytes.
func (v InstrumentVersion) RecordSize() int {
	switch v {
	case InstrumentV1:
		return 8
	case InstrumentV2:
		return 12
	case InstrumentV3:
		return 16
	default:
		return 0
	}
}

const (
	subSongSize     = 16
	trackOffsetSize = 2
	sampleStartSize = 4
	sampleInfoSize  = 6
)

// Layout is the set of absolute offsets recovered from the player code.
type Layout struct {
	InitEntry int
	PlayEntry int

	SubSongs      int // Sub-song records.
	PositionLists int // Base of the sub-song position-list offsets.
	TrackOffsets  int // u16 offsets relative to Tracks.
	Tracks        int // Start of the track bytecode region, which ends at Instruments.
	Instruments   int
	SampleStarts  int // u32 offsets relative to SampleData.
	SampleInfo    int // Separate sample info table; 0 when EmbeddedSampleInfo.
	SampleData    int

	InstrumentVersion  InstrumentVersion
	TrackVersion       int // 1-5; selects the available track opcodes.
	VibratoVersion     int // 1-2; width of the vibrato opcode argument.
	SpeedVersion       int // 1-2; whether speed variation is applied.
	EmbeddedSampleInfo bool
}

func (l Layout) SubSongCount() int {
	return (l.PositionLists - l.SubSongs) / subSongSize
}

func (l Layout) TrackCount() int {
	return (l.Tracks - l.TrackOffsets) / trackOffsetSize
}

func (l Layout) InstrumentCount() int {
	return (l.SampleStarts - l.Instruments) / l.InstrumentVersion.RecordSize()
}

func (l Layout) SampleCount() int {
	end := l.SampleData
	if !l.EmbeddedSampleInfo {
		end = l.SampleInfo
	}
	return (end - l.SampleStarts) / sampleStartSize
}

var (
	initSpec = scan.Spec{
		Name: "init routine",
		Sig:  scan.MustParse("48 E7 FC FE"), // movem.l d0-d5/a0-a6,-(sp)
	}
	subSongSpec = scan.Spec{
		Name:  "sub-song table",
		Sig:   scan.MustParse("E9 41 70 00 41 FA ?? ??"), // lsl.w #4,d1; moveq #0,d0; lea x(pc),a0
		Disp:  []int{6},
		Abort: []scan.Signature{scan.RTS},
	}
	positionSpec = scan.Spec{
		Name:  "position lists",
		Sig:   scan.MustParse("4B FA ?? ??"), // lea x(pc),a5
		Disp:  []int{2},
		Abort: []scan.Signature{scan.RTS},
	}
	speedAnchor = scan.Spec{
		Name:  "speed setup",
		Sig:   scan.MustParse("10 29 00 0C"), // move.b 12(a1),d0
		Abort: []scan.Signature{scan.RTS},
	}
	speedVersions = []scan.Candidate[int]{
		{Value: 1, Spec: scan.Spec{Name: "speed v1", Sig: scan.MustParse("1B 40")}}, // move.b d0,x(a5)
		{Value: 2, Spec: scan.Spec{Name: "speed v2", Sig: scan.MustParse("D0 29")}}, // add.b x(a1),d0
	}
	playSpec = scan.Spec{
		Name: "play routine",
		Sig:  scan.MustParse("48 E7 FF FE"), // movem.l d0-d7/a0-a6,-(sp)
	}
	trackOffsetSpec = scan.Spec{
		Name:  "track offsets",
		Sig:   scan.MustParse("D0 40 43 FA ?? ??"), // add.w d0,d0; lea x(pc),a1
		Disp:  []int{4},
		Abort: []scan.Signature{scan.RTS},
	}
	trackDataSpec = scan.Spec{
		Name:  "track data",
		Sig:   scan.MustParse("45 FA ?? ??"), // lea x(pc),a2
		Disp:  []int{2},
		Abort: []scan.Signature{scan.RTS},
	}
	trackFetch = scan.Spec{
		Name:  "track fetch",
		Sig:   scan.MustParse("10 1A"), // move.b (a2)+,d0
		Abort: []scan.Signature{scan.RTS},
	}
	trackVersions = []scan.Candidate[int]{
		{Value: 1, Spec: scan.Spec{Name: "track v1", Sig: scan.MustParse("4A 00 6B 00")}},
		{Value: 2, Spec: scan.Spec{Name: "track v2", Sig: scan.MustParse("0C 00 00 80 65 00")}},
		{Value: 3, Spec: scan.Spec{Name: "track v3", Sig: scan.MustParse("0C 00 00 80 65 08")}},
		{Value: 4, Spec: scan.Spec{Name: "track v4", Sig: scan.MustParse("0C 00 00 80 64 04")}},
		{Value: 5, Spec: scan.Spec{Name: "track v5", Sig: scan.MustParse("0C 00 00 7F 63 00")}},
	}
	vibratoAnchor = scan.Spec{
		Name:  "vibrato test",
		Sig:   scan.MustParse("4A 2B 00 08"), // tst.b 8(a3)
		Abort: []scan.Signature{scan.RTS},
	}
	vibratoVersions = []scan.Candidate[int]{
		{Value: 1, Spec: scan.Spec{Name: "vibrato v1", Sig: scan.MustParse("67 00")}},
		{Value: 2, Spec: scan.Spec{Name: "vibrato v2", Sig: scan.MustParse("66 00")}},
	}
	instrumentSpec = scan.Spec{
		Name:  "instrument table",
		Sig:   scan.MustParse("47 FA ?? ??"), // lea x(pc),a3
		Disp:  []int{2},
		Abort: []scan.Signature{scan.RTS},
	}
	instrumentVersions = []scan.Candidate[InstrumentVersion]{
		{Value: InstrumentV1, Spec: scan.Spec{Name: "instrument v1", Sig: scan.MustParse("E7 48")}},       // lsl.w #3,d0
		{Value: InstrumentV2, Spec: scan.Spec{Name: "instrument v2", Sig: scan.MustParse("C0 FC 00 0C")}}, // mulu.w #12,d0
		{Value: InstrumentV3, Spec: scan.Spec{Name: "instrument v3", Sig: scan.MustParse("E9 48")}},       // lsl.w #4,d0
	}
	sampleStartSpec = scan.Spec{
		Name:  "sample start offsets",
		Sig:   scan.MustParse("E5 48 49 FA ?? ??"), // lsl.w #2,d0; lea x(pc),a4
		Disp:  []int{4},
		Abort: []scan.Signature{scan.RTS},
	}
	sampleDataSpec = scan.Spec{
		Name:  "sample data",
		Sig:   scan.MustParse("22 34 00 00 41 FA ?? ??"), // move.l (a4,d0.w),d1; lea x(pc),a0
		Disp:  []int{6},
		Abort: []scan.Signature{scan.RTS},
	}
	sampleInfoVersions = []scan.Candidate[bool]{
		// adda.l d1,a0; move.w (a0)+,d0
		{Value: true, Spec: scan.Spec{Name: "embedded sample info", Sig: scan.MustParse("D1 C1 30 18")}},
		// adda.l d1,a0; lea x(pc),a6
		{Value: false, Spec: scan.Spec{Name: "sample info table", Sig: scan.MustParse("D1 C1 4D FA ?? ??"), Disp: []int{4}}},
	}
)

// ResolveLayout scans the player code in data and returns the module layout.
// Every failure wraps format.ErrPatternNotFound or format.ErrStructureMismatch.
func ResolveLayout(data []byte) (Layout, error) {
	c := scan.NewChain(data, 0, SearchLimit)
	var l Layout

	l.InitEntry = c.Find(initSpec).Pos
	l.SubSongs = c.Find(subSongSpec).Target(0)
	l.PositionLists = c.Find(positionSpec).Target(0)
	c.Find(speedAnchor)
	l.SpeedVersion, _ = scan.Select(c, "speed variation", speedVersions)

	l.PlayEntry = c.Find(playSpec).Pos
	l.TrackOffsets = c.Find(trackOffsetSpec).Target(0)
	l.Tracks = c.Find(trackDataSpec).Target(0)
	c.Find(trackFetch)
	l.TrackVersion, _ = scan.Select(c, "track parser", trackVersions)
	c.Find(vibratoAnchor)
	l.VibratoVersion, _ = scan.Select(c, "vibrato", vibratoVersions)

	l.Instruments = c.Find(instrumentSpec).Target(0)
	l.InstrumentVersion, _ = scan.Select(c, "instrument record", instrumentVersions)
	l.SampleStarts = c.Find(sampleStartSpec).Target(0)
	l.SampleData = c.Find(sampleDataSpec).Target(0)
	embedded, m := scan.Select(c, "sample info", sampleInfoVersions)
	l.EmbeddedSampleInfo = embedded
	if !embedded {
		l.SampleInfo = m.Target(0)
	}

	if err := c.Err(); err != nil {
		return Layout{}, err
	}
	if err := l.validate(len(data)); err != nil {
		return Layout{}, err
	}
	return l, nil
}

func mismatchf(msg string, args ...any) error {
	return fmt.Errorf("%w: %s", format.ErrStructureMismatch, fmt.Sprintf(msg, args...))
}

// validate applies the sanity bounds to a freshly scanned layout.
func (l Layout) validate(size int) error {
	offsets := []struct {
		name string
		off  int
	}{
		{"sub-song table", l.SubSongs},
		{"position lists", l.PositionLists},
		{"track offsets", l.TrackOffsets},
		{"track data", l.Tracks},
		{"instrument table", l.Instruments},
		{"sample start offsets", l.SampleStarts},
		{"sample data", l.SampleData},
	}
	if !l.EmbeddedSampleInfo {
		offsets = append(offsets, struct {
			name string
			off  int
		}{"sample info table", l.SampleInfo})
	}
	for _, o := range offsets {
		if o.off < 0 || o.off > size {
			return mismatchf("%s offset 0x%x outside file of %d bytes", o.name, o.off, size)
		}
	}

	switch {
	case l.SubSongs >= l.PositionLists:
		return mismatchf("sub-song table 0x%x does not precede position lists 0x%x", l.SubSongs, l.PositionLists)
	case l.SubSongCount() < 1:
		return mismatchf("sub-song table holds no complete record")
	case l.TrackOffsets >= l.Tracks:
		return mismatchf("track offsets 0x%x do not precede track data 0x%x", l.TrackOffsets, l.Tracks)
	case (l.Tracks-l.TrackOffsets)%trackOffsetSize != 0:
		return mismatchf("track offset table has odd length %d", l.Tracks-l.TrackOffsets)
	case l.Tracks >= l.Instruments:
		return mismatchf("track data 0x%x does not precede instruments 0x%x", l.Tracks, l.Instruments)
	case l.Instruments >= l.SampleStarts:
		return mismatchf("instruments 0x%x do not precede sample start offsets 0x%x", l.Instruments, l.SampleStarts)
	}

	if l.EmbeddedSampleInfo {
		if l.SampleStarts >= l.SampleData {
			return mismatchf("sample start offsets 0x%x do not precede sample data 0x%x", l.SampleStarts, l.SampleData)
		}
	} else if l.SampleStarts >= l.SampleInfo || l.SampleInfo >= l.SampleData {
		return mismatchf("sample tables out of order: starts 0x%x, info 0x%x, data 0x%x", l.SampleStarts, l.SampleInfo, l.SampleData)
	}
	return nil
}
