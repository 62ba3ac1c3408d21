package activision

import (
	"fmt"

	"github.com/QEStudios/ModRecover/parser/format"
	"github.com/QEStudios/ModRecover/parser/reader"
	"github.com/QEStudios/ModRecover/tracker"
)

// sampleSource resolves instruments to PCM data.
type sampleSource struct {
	r      reader.Reader
	layout Layout
	starts []int
}

// locate returns the sample info and the absolute offset of the PCM bytes of sample n.
func (s sampleSource) locate(n int) (SampleInfo, int, error) {
	if n < 0 || n >= len(s.starts) {
		return SampleInfo{}, 0, fmt.Errorf("%w: sample %d not in table of %d", format.ErrTruncatedData, n, len(s.starts))
	}
	start := s.starts[n]
	if s.layout.EmbeddedSampleInfo {
		info, err := readSampleInfo(s.r, start)
		if err != nil {
			return SampleInfo{}, 0, err
		}
		return info, start + sampleInfoSize, nil
	}
	info, err := readSampleInfo(s.r, s.layout.SampleInfo+n*sampleInfoSize)
	if err != nil {
		return SampleInfo{}, 0, err
	}
	return info, start, nil
}

// instrument builds the output instrument id (1-based) from inst. Missing or
// truncated sample data gives a silent instrument and a warning.
func (s sampleSource) instrument(id int, inst Instrument, warn *format.Warnings) tracker.Instrument {
	name := fmt.Sprintf("Instrument %d", id)
	volume := int(inst.Volume)

	info, pcmOff, err := s.locate(inst.SampleNumber)
	if err != nil {
		warn.Addf(-1, "instrument %d: %v", id, err)
		return tracker.NewSamplerInstrument(id, name, nil, volume, tracker.AmigaSampleRate, 0, 0)
	}
	length := int(info.Length) * 2
	if length == 0 {
		return tracker.NewSamplerInstrument(id, name, nil, volume, tracker.AmigaSampleRate, 0, 0)
	}
	pcm, err := s.r.Bytes(pcmOff, length)
	if err != nil {
		warn.Addf(pcmOff, "instrument %d: sample %d: %v", id, inst.SampleNumber, err)
		return tracker.NewSamplerInstrument(id, name, nil, volume, tracker.AmigaSampleRate, 0, 0)
	}

	var loopStart, loopEnd int
	if info.LoopLength > 1 {
		loopStart = int(info.LoopStart) * 2
		loopEnd = (int(info.LoopStart) + int(info.LoopLength)) * 2
	}
	return tracker.NewSamplerInstrument(id, name, pcm, volume, tracker.AmigaSampleRate, loopStart, loopEnd)
}
