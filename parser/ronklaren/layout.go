package ronklaren

import (
	"fmt"

	"github.com/QEStudios/ModRecover/parser/format"
	"github.com/QEStudios/ModRecover/parser/reader"
	"github.com/QEStudios/ModRecover/parser/scan"
)

// Ron-Klaren modules are AmigaOS executables with a single code hunk.
const (
	hunkHeader = 0x000003F3

	// CodeBase is the file offset of the first code byte. Pointers inside
	// the song tables are relative to it.
	CodeBase = 0x20

	// SearchWindow bounds every scan, counted from CodeBase.
	SearchWindow = 0x800
)

const (
	subSongSize      = 16
	trackPointerSize = 4
	instrumentSize   = 32
	sampleRecordSize = 12
	arpeggioSize     = 16
)

// Layout is the set of absolute offsets recovered from the player code.
type Layout struct {
	InitEntry int
	PlayEntry int
	Timer     uint16 // CIA timer reload value set by the init routine.

	SubSongs    int
	TrackTable  int // u32 code-relative track pointers.
	Instruments int
	SampleTable int
	Arpeggios   int
}

func (l Layout) TrackCount() int {
	return (l.Instruments - l.TrackTable) / trackPointerSize
}

func (l Layout) InstrumentCount() int {
	return (l.SampleTable - l.Instruments) / instrumentSize
}

func (l Layout) SampleCount() int {
	return (l.Arpeggios - l.SampleTable) / sampleRecordSize
}

var (
	jumpTableSpec = scan.Spec{
		Name: "jump table",
		Sig:  scan.MustParse("60 00 ?? ?? 60 00 ?? ??"), // bra.w init; bra.w play
		Disp: []int{2, 6},
	}
	timerSpec = scan.Spec{
		Name:  "CIA timer setup",
		Sig:   scan.MustParse("13 FC 00 ?? 00 BF D4 00 13 FC 00 ?? 00 BF D5 00"), // move.b #lo,$bfd400; move.b #hi,$bfd500
		Abort: []scan.Signature{scan.RTS},
	}
	subSongSpec = scan.Spec{
		Name:  "sub-song table",
		Sig:   scan.MustParse("E9 40 41 FA ?? ??"), // lsl.w #4,d0; lea x(pc),a0
		Disp:  []int{4},
		Abort: []scan.Signature{scan.RTS},
	}
	trackTableSpec = scan.Spec{
		Name:  "track table",
		Sig:   scan.MustParse("D0 40 D0 40 45 FA ?? ??"), // add.w d0,d0 (x2); lea x(pc),a2
		Disp:  []int{6},
		Abort: []scan.Signature{scan.RTS},
	}
	instrumentSpec = scan.Spec{
		Name:  "instrument table",
		Sig:   scan.MustParse("EB 41 47 FA ?? ??"), // asl.w #5,d1; lea x(pc),a3
		Disp:  []int{4},
		Abort: []scan.Signature{scan.RTS},
	}
	sampleTableSpec = scan.Spec{
		Name:  "sample table",
		Sig:   scan.MustParse("C2 FC 00 0C 49 FA ?? ??"), // mulu.w #12,d1; lea x(pc),a4
		Disp:  []int{6},
		Abort: []scan.Signature{scan.RTS},
	}
	arpeggioSpec = scan.Spec{
		Name:  "arpeggio table",
		Sig:   scan.MustParse("E9 42 4D FA ?? ??"), // lsl.w #4,d2; lea x(pc),a6
		Disp:  []int{4},
		Abort: []scan.Signature{scan.RTS},
	}
)

// ResolveLayout checks the executable header, follows the jump table at the
// start of the code into the init and play routines and scans both for the
// table references. Every failure wraps format.ErrPatternNotFound or
// format.ErrStructureMismatch.
func ResolveLayout(data []byte) (Layout, error) {
	magic, err := reader.New(data).U32BE(0)
	if err != nil || magic != hunkHeader {
		return Layout{}, fmt.Errorf("%w: no executable hunk header", format.ErrPatternNotFound)
	}

	c := scan.NewChain(data, CodeBase, CodeBase+SearchWindow)
	var l Layout

	jump := c.At(jumpTableSpec)
	l.InitEntry, l.PlayEntry = jump.Target(0), jump.Target(1)

	c.Seek(l.InitEntry)
	timer := c.Find(timerSpec)
	if c.Err() == nil {
		l.Timer = uint16(data[timer.Pos+11])<<8 | uint16(data[timer.Pos+3])
	}
	l.SubSongs = c.Find(subSongSpec).Target(0)

	c.Seek(l.PlayEntry)
	l.TrackTable = c.Find(trackTableSpec).Target(0)
	l.Instruments = c.Find(instrumentSpec).Target(0)
	l.SampleTable = c.Find(sampleTableSpec).Target(0)
	l.Arpeggios = c.Find(arpeggioSpec).Target(0)

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

func (l Layout) validate(size int) error {
	switch {
	case l.Timer == 0:
		return mismatchf("CIA timer value is zero")
	case l.SubSongs < CodeBase:
		return mismatchf("sub-song table 0x%x lies before the code", l.SubSongs)
	case l.SubSongs >= l.TrackTable:
		return mismatchf("sub-song table 0x%x does not precede track table 0x%x", l.SubSongs, l.TrackTable)
	case l.TrackTable >= l.Instruments:
		return mismatchf("track table 0x%x does not precede instruments 0x%x", l.TrackTable, l.Instruments)
	case l.Instruments >= l.SampleTable:
		return mismatchf("instruments 0x%x do not precede sample table 0x%x", l.Instruments, l.SampleTable)
	case l.SampleTable >= l.Arpeggios:
		return mismatchf("sample table 0x%x does not precede arpeggios 0x%x", l.SampleTable, l.Arpeggios)
	case l.Arpeggios > size:
		return mismatchf("arpeggio table 0x%x outside file of %d bytes", l.Arpeggios, size)
	}
	return nil
}
