package tracker

import (
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	wavBitDepth    = 16
	wavChannels    = 1
	wavFormatPCM   = 1
	int8ToInt16Mul = 256
)

// WriteWAV writes the instrument's sample as a mono 16-bit WAV file.
// Silent placeholder samples cannot be exported.
func (i *Instrument) WriteWAV(w io.WriteSeeker) error {
	if i.Sample.Silent() {
		return fmt.Errorf("instrument %d has no sample data", i.ID)
	}
	rate := i.SampleRate
	if rate <= 0 {
		rate = AmigaSampleRate
	}

	data := make([]int, len(i.Sample.PCM))
	for n, v := range i.Sample.PCM {
		// Widen to 16 bits; 8-bit WAV is unsigned and would need rebiasing.
		data[n] = int(v) * int8ToInt16Mul
	}

	enc := wav.NewEncoder(w, rate, wavBitDepth, wavChannels, wavFormatPCM)
	buf := &audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{SampleRate: rate, NumChannels: wavChannels},
		SourceBitDepth: wavBitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("error writing samples of instrument %d: %w", i.ID, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("error finishing WAV of instrument %d: %w", i.ID, err)
	}
	return nil
}
