package tracker

// AmigaSampleRate is the playback rate of a sample at the middle C of a PAL Amiga.
const AmigaSampleRate = 8287

const maxVolume = 64

// Sample is signed 8-bit PCM with an optional loop. The zero value is the
// silent placeholder used when a module's sample data is missing.
type Sample struct {
	PCM       []int8
	LoopStart int // In bytes.
	LoopEnd   int // In bytes, exclusive. Equal to LoopStart when the sample does not loop.
}

// Len returns the sample length in bytes.
func (s Sample) Len() int {
	return len(s.PCM)
}

// Silent reports whether s is the placeholder with no audio.
func (s Sample) Silent() bool {
	return len(s.PCM) == 0
}

func (s Sample) Looped() bool {
	return s.LoopEnd > s.LoopStart
}

// Instrument is a playback-ready sampled instrument.
type Instrument struct {
	ID         int // 1-based instrument number as referenced by Cell.Instrument.
	Name       string
	Volume     int // 0-64.
	SampleRate int
	Sample     Sample
}

// NewSamplerInstrument builds an instrument from raw signed 8-bit PCM.
// The volume is clamped to 0-64 and the loop is dropped unless it lies
// inside the sample. pcm is copied.
func NewSamplerInstrument(id int, name string, pcm []byte, volume, sampleRate, loopStart, loopEnd int) Instrument {
	inst := Instrument{
		ID:         id,
		Name:       name,
		Volume:     min(max(volume, 0), maxVolume),
		SampleRate: sampleRate,
	}
	if len(pcm) == 0 {
		return inst
	}

	inst.Sample.PCM = make([]int8, len(pcm))
	for i, v := range pcm {
		inst.Sample.PCM[i] = int8(v)
	}
	if loopStart >= 0 && loopEnd > loopStart && loopEnd <= len(pcm) {
		inst.Sample.LoopStart = loopStart
		inst.Sample.LoopEnd = loopEnd
	}
	return inst
}
