package parser

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"testing"

	"github.com/QEStudios/ModRecover/parser/format"
	"github.com/QEStudios/ModRecover/tracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDecoder struct {
	name string
	fn   func(data []byte) (*format.Result, error)
}

func (f fakeDecoder) Name() string { return f.name }

func (f fakeDecoder) Decode(data []byte, _ string, _ uint8) (*format.Result, error) {
	return f.fn(data)
}

func rejecting(name string) fakeDecoder {
	return fakeDecoder{name: name, fn: func([]byte) (*format.Result, error) {
		return nil, fmt.Errorf("%s: %w", name, format.ErrPatternNotFound)
	}}
}

func TestFormats(t *testing.T) {
	p := NewParser(nil)
	assert.Equal(t, []string{"Activision Pro", "Ron Klaren"}, p.Formats())
}

func TestDecodeGarbage(t *testing.T) {
	var out bytes.Buffer
	_, err := Decode(bytes.Repeat([]byte{0xAB}, 2048), "noise.bin", log.New(&out, "", 0))
	require.Error(t, err)
	assert.True(t, errors.Is(err, format.ErrNotRecognized))
	assert.True(t, errors.Is(err, format.ErrPatternNotFound))
	assert.Contains(t, err.Error(), "Activision Pro")
	assert.Contains(t, err.Error(), "Ron Klaren")
}

func TestParseFirstAcceptingDecoderWins(t *testing.T) {
	var out bytes.Buffer
	song := &tracker.Song{Name: "ok"}
	p := &Parser{
		logger: log.New(&out, "", 0),
		decoders: []format.Decoder{
			rejecting("first"),
			fakeDecoder{name: "second", fn: func([]byte) (*format.Result, error) {
				return &format.Result{
					Format:   "second",
					Song:     song,
					Warnings: []format.Warning{{Offset: 0x10, Message: "sample missing"}},
				}, nil
			}},
			fakeDecoder{name: "third", fn: func([]byte) (*format.Result, error) {
				t.Fatal("decoders after the accepting one must not run")
				return nil, nil
			}},
		},
	}

	res, err := p.Parse([]byte{1}, "a", 0)
	require.NoError(t, err)
	assert.Same(t, song, res.Song)
	assert.Contains(t, out.String(), "offset 0x00010: sample missing")
}

func TestParseRecoversPanics(t *testing.T) {
	var out bytes.Buffer
	p := &Parser{
		logger: log.New(&out, "", 0),
		decoders: []format.Decoder{
			fakeDecoder{name: "broken", fn: func(data []byte) (*format.Result, error) {
				_ = data[100]
				return nil, nil
			}},
			rejecting("other"),
		},
	}

	_, err := p.Parse([]byte{1, 2, 3}, "short.bin", 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, format.ErrNotRecognized))
	assert.True(t, errors.Is(err, format.ErrStructureMismatch))
	assert.Contains(t, out.String(), "broken decoder panicked on short.bin")
}

func TestParseReturnsHardErrors(t *testing.T) {
	hard := errors.New("disk on fire")
	p := &Parser{
		logger: log.Default(),
		decoders: []format.Decoder{
			fakeDecoder{name: "hard", fn: func([]byte) (*format.Result, error) { return nil, hard }},
			rejecting("other"),
		},
	}
	_, err := p.Parse(nil, "", 0)
	assert.Same(t, hard, err)
}

func TestParseNilResult(t *testing.T) {
	p := &Parser{
		logger:   log.Default(),
		decoders: []format.Decoder{fakeDecoder{name: "nil", fn: func([]byte) (*format.Result, error) { return nil, nil }}},
	}
	_, err := p.Parse(nil, "", 0)
	assert.True(t, errors.Is(err, format.ErrNotRecognized))
}

func TestDump(t *testing.T) {
	res := &format.Result{Format: "Test", Song: &tracker.Song{Name: "dumped"}}
	out := Dump(res)
	assert.Contains(t, out, "dumped")
	assert.Contains(t, out, "Test")
}
