// Package poslist decodes the sentinel-terminated per-channel position lists
// used by headerless players.
//
// A list is a byte stream. Every byte belongs to one Class: track bytes
// advance one position, transpose and repeat markers carry one trailing
// byte of metadata without advancing, skip markers carry nothing, and end
// markers terminate the list.
package poslist

// Class is the role of one byte in a position list.
type Class int

const (
	Track     Class = iota // Literal track number; advances one position.
	Transpose              // One trailing signed byte; sticky for following positions.
	Repeat                 // One trailing byte; repeat count of the next position only.
	Skip                   // No trailing byte, no position.
	End                    // Terminates the list.
)

// Encoding describes one player's position-list byte classes.
type Encoding struct {
	Name     string
	Classify func(b byte) Class

	// Loop is the End byte that means "loop back to the start" rather than "stop".
	Loop byte
}

// Entry is one real position of a channel.
type Entry struct {
	Track     int  // Track number as stored in the list.
	Offset    int  // Absolute offset of the track's bytecode, filled in by the caller; -1 until then.
	Transpose int8 // Semitones added to every note of the track.
	Repeat    int  // How many times the position plays; 0 and 1 both mean once.
	Source    int  // Offset of the track byte inside the list.
}

// List is a decoded position list.
type List struct {
	Entries []Entry
	Loops   bool // Terminated by the loop marker.

	// Truncated is set when the buffer ended before an end marker.
	Truncated bool
}

// walker steps through one list. The same state machine backs Decode, Count
// and Resolve so the three always agree.
type walker struct {
	data      []byte
	pos       int
	enc       Encoding
	transpose int8
	repeat    int
	done      bool
	loops     bool
	truncated bool
}

func (w *walker) next() (Entry, bool) {
	for !w.done {
		if w.pos < 0 || w.pos >= len(w.data) {
			w.done, w.truncated = true, true
			break
		}
		b := w.data[w.pos]
		class := w.enc.Classify(b)
		switch class {
		case Track:
			e := Entry{
				Track:     int(b),
				Offset:    -1,
				Transpose: w.transpose,
				Repeat:    w.repeat,
				Source:    w.pos,
			}
			w.repeat = 0
			w.pos++
			return e, true
		case Transpose, Repeat:
			if w.pos+1 >= len(w.data) {
				w.done, w.truncated = true, true
				break
			}
			arg := w.data[w.pos+1]
			if class == Transpose {
				w.transpose = int8(arg)
			} else {
				w.repeat = int(arg)
			}
			w.pos += 2
		case Skip:
			w.pos++
		case End:
			w.loops = b == w.enc.Loop
			w.done = true
		}
	}
	return Entry{}, false
}

// Decode reads the whole list starting at off.
func Decode(data []byte, off int, enc Encoding) List {
	w := walker{data: data, pos: off, enc: enc}
	var list List
	for {
		e, ok := w.next()
		if !ok {
			break
		}
		list.Entries = append(list.Entries, e)
	}
	list.Loops = w.loops
	list.Truncated = w.truncated
	return list
}

// Count returns how many real positions the list at off holds.
func Count(data []byte, off int, enc Encoding) int {
	w := walker{data: data, pos: off, enc: enc}
	n := 0
	for {
		if _, ok := w.next(); !ok {
			return n
		}
		n++
	}
}

// Resolve walks the list at off until its n-th real position.
func Resolve(data []byte, off int, enc Encoding, n int) (Entry, bool) {
	if n < 0 {
		return Entry{}, false
	}
	w := walker{data: data, pos: off, enc: enc}
	for i := 0; ; i++ {
		e, ok := w.next()
		if !ok {
			return Entry{}, false
		}
		if i == n {
			return e, true
		}
	}
}

// MaxPositions bounds the expanded length of one channel's list.
const MaxPositions = 1000

// Expand repeats every entry by its repeat count, stopping after limit
// positions. capped reports whether entries were dropped at the limit.
func Expand(entries []Entry, limit int) (out []Entry, capped bool) {
	out = make([]Entry, 0, min(len(entries), max(limit, 0)))
	for _, e := range entries {
		for r := 0; r < max(1, e.Repeat); r++ {
			if len(out) >= limit {
				return out, true
			}
			out = append(out, e)
		}
	}
	return out, false
}
