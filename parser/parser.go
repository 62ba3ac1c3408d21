// Package parser tries every known headerless module decoder on a buffer.
package parser

import (
	"errors"
	"fmt"
	"log"

	"github.com/QEStudios/ModRecover/parser/activision"
	"github.com/QEStudios/ModRecover/parser/format"
	"github.com/QEStudios/ModRecover/parser/ronklaren"
	"github.com/davecgh/go-spew/spew"
)

// Parser tries a list of decoders in order.
type Parser struct {
	logger   *log.Logger
	decoders []format.Decoder
}

// NewParser creates a parser with every built-in decoder.
func NewParser(logger *log.Logger) *Parser {
	if logger == nil {
		logger = log.Default()
	}
	return &Parser{
		logger: logger,
		decoders: []format.Decoder{
			activision.NewDecoder(logger),
			ronklaren.NewDecoder(logger),
		},
	}
}

// Formats returns the names of the registered decoders.
func (p *Parser) Formats() []string {
	names := make([]string, len(p.decoders))
	for i, d := range p.decoders {
		names[i] = d.Name()
	}
	return names
}

// Parse returns the result of the first decoder that accepts data. When none
// does, the error wraps format.ErrNotRecognized together with every
// decoder's reason. A decoder error that is not a rejection is returned
// as is.
func (p *Parser) Parse(data []byte, filename string, subsong uint8) (*format.Result, error) {
	var reasons []error
	for _, d := range p.decoders {
		res, err := p.try(d, data, filename, subsong)
		if err == nil {
			p.logWarnings(res)
			return res, nil
		}
		if !format.IsRejection(err) {
			return nil, err
		}
		reasons = append(reasons, err)
	}
	return nil, fmt.Errorf("%w: %w", format.ErrNotRecognized, errors.Join(reasons...))
}

// try runs one decoder. A panic inside it means the buffer broke an
// assumption the layout checks did not catch, which is a structure mismatch.
func (p *Parser) try(d format.Decoder, data []byte, filename string, subsong uint8) (res *format.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Printf("%s decoder panicked on %s: %v", d.Name(), filename, r)
			res, err = nil, fmt.Errorf("%s: %w: internal error: %v", d.Name(), format.ErrStructureMismatch, r)
		}
	}()
	res, err = d.Decode(data, filename, subsong)
	if err == nil && res == nil {
		return nil, fmt.Errorf("%s: %w: decoder returned no result", d.Name(), format.ErrStructureMismatch)
	}
	return res, err
}

func (p *Parser) logWarnings(res *format.Result) {
	if len(res.Warnings) == 0 {
		return
	}
	p.logger.Println("Warnings produced while parsing file:")
	for _, w := range res.Warnings {
		p.logger.Println(w)
	}
}

// Decode is a shortcut for NewParser(logger).Parse with sub-song 0.
func Decode(data []byte, filename string, logger *log.Logger) (*format.Result, error) {
	return NewParser(logger).Parse(data, filename, 0)
}

// Dump writes a detailed dump of the result for debugging.
func Dump(res *format.Result) string {
	cfg := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, DisableCapacities: true, MaxDepth: 6}
	return cfg.Sdump(res)
}
