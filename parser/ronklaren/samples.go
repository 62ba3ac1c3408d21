package ronklaren

import (
	"fmt"

	"github.com/QEStudios/ModRecover/parser/format"
	"github.com/QEStudios/ModRecover/parser/reader"
	"github.com/QEStudios/ModRecover/tracker"
)

// instrument builds output instrument id (1-based) from inst. Missing
// sample data gives a silent instrument and a warning.
func instrument(r reader.Reader, l Layout, id int, inst Instrument, warn *format.Warnings) tracker.Instrument {
	name := fmt.Sprintf("Instrument %d", id)
	volume := int(inst.Volume)
	silent := func() tracker.Instrument {
		return tracker.NewSamplerInstrument(id, name, nil, volume, tracker.AmigaSampleRate, 0, 0)
	}

	rec, err := readSampleRecord(r, l, inst.SampleRecord)
	if err != nil {
		warn.Addf(inst.SampleRecord, "instrument %d: %v", id, err)
		return silent()
	}
	length := int(rec.Length) * 2
	if length == 0 {
		return silent()
	}
	pcm, err := r.Bytes(rec.PCM, length)
	if err != nil {
		warn.Addf(rec.PCM, "instrument %d: sample data: %v", id, err)
		return silent()
	}

	var loopStart, loopEnd int
	if rec.LoopLength > 1 {
		loopStart = int(rec.LoopStart) * 2
		loopEnd = (int(rec.LoopStart) + int(rec.LoopLength)) * 2
	}
	return tracker.NewSamplerInstrument(id, name, pcm, volume, tracker.AmigaSampleRate, loopStart, loopEnd)
}
