// Package format holds the pieces shared by every headerless module decoder:
// the error taxonomy, non-fatal warnings and the Decoder contract.
package format

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/QEStudios/ModRecover/tracker"
	"github.com/davecgh/go-spew/spew"
)

var (
	// ErrPatternNotFound means a required machine-code signature is absent from the search window.
	ErrPatternNotFound = errors.New("pattern not found")
	// ErrStructureMismatch means a resolved value failed a sanity bound.
	ErrStructureMismatch = errors.New("structure mismatch")
	// ErrUnsupportedOpcode means a track contains an instruction the decoder does not know.
	ErrUnsupportedOpcode = errors.New("unsupported opcode")
	// ErrTruncatedData means a read ran past the end of the buffer.
	ErrTruncatedData = errors.New("truncated data")
	// ErrNotRecognized is returned when no decoder accepts a buffer.
	ErrNotRecognized = errors.New("format not recognized")
)

// IsRejection reports whether err means "this buffer is not this format".
// Any layout-level failure counts, including the internal errors a caller recovers from.
func IsRejection(err error) bool {
	return errors.Is(err, ErrPatternNotFound) ||
		errors.Is(err, ErrStructureMismatch) ||
		errors.Is(err, ErrNotRecognized)
}

// Warning is a non-fatal problem found while decoding, such as a missing
// sample or a track with an unknown instruction.
type Warning struct {
	Offset  int // Absolute file offset of the affected entity, or -1 when unknown.
	Message string
}

func (w Warning) String() string {
	if w.Offset < 0 {
		return w.Message
	}
	return fmt.Sprintf("offset 0x%05x: %s", w.Offset, w.Message)
}

// Result is what a successful decode hands to the caller.
type Result struct {
	Format   string
	Song     *tracker.Song
	SubSongs int // Number of sub-songs discovered in the module.
	Warnings []Warning
}

// Decoder recognizes and decodes one format.
//
// Decode must never panic on malformed input and must return an error for
// which IsRejection is true when the buffer is not in its format.
type Decoder interface {
	Name() string
	Decode(data []byte, filename string, subsong uint8) (*Result, error)
}

// Warnings collects Warning values during a decode.
type Warnings []Warning

// Addf appends a formatted warning.
func (w *Warnings) Addf(offset int, format string, args ...any) {
	*w = append(*w, Warning{Offset: offset, Message: fmt.Sprintf(format, args...)})
}

// SongName derives a display name from a file name. The file name is
// advisory only; an empty one gives "Unnamed".
func SongName(filename string) string {
	base := filepath.Base(filename)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if filename == "" || name == "" || name == "." || name == string(filepath.Separator) {
		return "Unnamed"
	}
	return name
}

// DumpOnPanic is deferred by a decoder once its layout is known. A panic
// below it is logged together with a dump of state and keeps unwinding.
func DumpOnPanic(logger *log.Logger, name string, state any) {
	if r := recover(); r != nil {
		logger.Printf("%s: internal error: %v\n%s", name, r, spew.Sdump(state))
		panic(r)
	}
}
