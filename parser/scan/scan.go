// Package scan finds 68000 instruction signatures inside player code and
// resolves the PC-relative displacements they carry into file offsets.
//
// Find and MatchAt are stateless: they take the position to start from and
// return the position just past the match. Chain threads that cursor through
// a sequence of dependent scans.
package scan

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/QEStudios/ModRecover/parser/format"
	"golang.org/x/crypto/cryptobyte"
)

// Step is the scan alignment. 68000 instructions always start on a word boundary.
const Step = 2

// wildcard marks a signature byte that matches anything.
const wildcard = -1

// RTS is the 68000 return-from-subroutine opcode. Scans inside one routine
// use it as an abort signature.
var RTS = MustParse("4E 75")

// A Signature is a byte sequence where some positions are wildcards.
type Signature []int16

// Parse reads a signature written as space separated hex bytes, with "??"
// standing for a wildcard byte.
func Parse(s string) (Signature, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty signature")
	}
	sig := make(Signature, 0, len(fields))
	for i, f := range fields {
		if f == "??" {
			sig = append(sig, wildcard)
			continue
		}
		v, err := strconv.ParseUint(f, 16, 8)
		if err != nil {
			return nil, fmt.Errorf("token %d (%q) in signature is not a hex byte: %w", i+1, f, err)
		}
		sig = append(sig, int16(v))
	}
	return sig, nil
}

// MustParse is Parse for package-level signature tables. It panics on a malformed literal.
func MustParse(s string) Signature {
	sig, err := Parse(s)
	if err != nil {
		panic(fmt.Sprintf("scan: %v", err))
	}
	return sig
}

// matchAt reports whether sig matches data at pos.
func (sig Signature) matchAt(data []byte, pos int) bool {
	if pos < 0 || pos > len(data) || len(sig) > len(data)-pos {
		return false
	}
	for i, want := range sig {
		if want != wildcard && data[pos+i] != byte(want) {
			return false
		}
	}
	return true
}

func (sig Signature) String() string {
	parts := make([]string, len(sig))
	for i, b := range sig {
		if b == wildcard {
			parts[i] = "??"
		} else {
			parts[i] = fmt.Sprintf("%02X", b)
		}
	}
	return strings.Join(parts, " ")
}

// Spec describes one instruction sequence to look for.
type Spec struct {
	Name string
	Sig  Signature

	// Offsets inside Sig of signed 16-bit PC-relative displacement fields.
	Disp []int

	// Signatures that end the search with ErrStructureMismatch when they show
	// up before Sig does, such as the RTS closing the routine being searched.
	Abort []Signature
}

// Match is a successful scan.
type Match struct {
	Pos int // Start of the matched signature.
	End int // First byte after the signature; the cursor for the next scan.

	// Targets holds the absolute offsets resolved from each of Spec.Disp, in order.
	Targets []int
}

// Resolve turns a displacement field into an absolute offset. The base is the
// address of the byte immediately following the field.
func Resolve(field int, disp int16) int {
	return field + 2 + int(disp)
}

func (s Spec) resolve(data []byte, pos int) (Match, error) {
	m := Match{Pos: pos, End: pos + len(s.Sig)}
	for _, d := range s.Disp {
		field := pos + d
		if d < 0 || d+2 > len(s.Sig) {
			return Match{}, fmt.Errorf("%s: displacement slot %d outside signature", s.Name, d)
		}
		var disp uint16
		raw := cryptobyte.String(data[field : field+2])
		raw.ReadUint16(&disp)
		m.Targets = append(m.Targets, Resolve(field, int16(disp)))
	}
	return m, nil
}

// Find looks for spec at from, from+Step, ... as long as the whole signature
// fits below limit (clamped to the buffer length).
func Find(data []byte, from, limit int, spec Spec) (Match, error) {
	if limit > len(data) {
		limit = len(data)
	}
	if from < 0 {
		from = 0
	}
	for pos := from; pos+len(spec.Sig) <= limit; pos += Step {
		if spec.Sig.matchAt(data, pos) {
			return spec.resolve(data, pos)
		}
		for _, abort := range spec.Abort {
			if abort.matchAt(data, pos) && pos+len(abort) <= limit {
				return Match{}, fmt.Errorf("%w: %s: hit %s at offset 0x%x before the pattern", format.ErrStructureMismatch, spec.Name, abort, pos)
			}
		}
	}
	return Match{}, fmt.Errorf("%w: %s (%s) in 0x%x..0x%x", format.ErrPatternNotFound, spec.Name, spec.Sig, from, limit)
}

// MatchAt matches spec anchored at pos.
func MatchAt(data []byte, pos int, spec Spec) (Match, error) {
	if !spec.Sig.matchAt(data, pos) {
		return Match{}, fmt.Errorf("%w: %s (%s) at offset 0x%x", format.ErrPatternNotFound, spec.Name, spec.Sig, pos)
	}
	return spec.resolve(data, pos)
}

// Candidate is one of several mutually exclusive code variants.
type Candidate[V any] struct {
	Value V
	Spec  Spec
}

// Discriminate checks every candidate anchored at pos. Exactly one must
// match; none or several is a structure mismatch, never a guess.
func Discriminate[V any](data []byte, pos int, name string, candidates []Candidate[V]) (V, Match, error) {
	var (
		zero    V
		found   *Candidate[V]
		matched Match
		count   int
	)
	for i := range candidates {
		m, err := MatchAt(data, pos, candidates[i].Spec)
		if err != nil {
			continue
		}
		count++
		found = &candidates[i]
		matched = m
	}
	switch count {
	case 0:
		return zero, Match{}, fmt.Errorf("%w: %s: no known variant at offset 0x%x", format.ErrStructureMismatch, name, pos)
	case 1:
		return found.Value, matched, nil
	default:
		return zero, Match{}, fmt.Errorf("%w: %s: %d variants match at offset 0x%x", format.ErrStructureMismatch, name, count, pos)
	}
}

// Target returns the i-th resolved displacement, or -1 when the match has none.
func (m Match) Target(i int) int {
	if i < 0 || i >= len(m.Targets) {
		return -1
	}
	return m.Targets[i]
}

// Chain runs a sequence of dependent scans, each starting where the previous
// one ended. The first failure sticks: every later step returns a zero Match
// and Err reports the failing step.
type Chain struct {
	data   []byte
	limit  int
	cursor int
	err    error
}

// NewChain starts a chain at from. No scan looks at or beyond limit.
func NewChain(data []byte, from, limit int) *Chain {
	return &Chain{data: data, limit: min(limit, len(data)), cursor: from}
}

// Err returns the error of the first failed step.
func (c *Chain) Err() error {
	return c.err
}

// Cursor returns the position the next step starts from.
func (c *Chain) Cursor() int {
	return c.cursor
}

// Seek moves the cursor, for example to a routine entry resolved by an earlier step.
func (c *Chain) Seek(pos int) {
	if c.err != nil {
		return
	}
	if pos < 0 || pos >= c.limit {
		c.err = fmt.Errorf("%w: seek to 0x%x outside search window 0x%x", format.ErrStructureMismatch, pos, c.limit)
		return
	}
	c.cursor = pos
}

// Find searches forward from the cursor.
func (c *Chain) Find(spec Spec) Match {
	if c.err != nil {
		return Match{}
	}
	m, err := Find(c.data, c.cursor, c.limit, spec)
	return c.advance(m, err)
}

// At matches spec anchored at the cursor.
func (c *Chain) At(spec Spec) Match {
	if c.err != nil {
		return Match{}
	}
	m, err := MatchAt(c.data, c.cursor, spec)
	if err == nil && m.End > c.limit {
		err = fmt.Errorf("%w: %s runs past search window 0x%x", format.ErrPatternNotFound, spec.Name, c.limit)
	}
	return c.advance(m, err)
}

func (c *Chain) advance(m Match, err error) Match {
	if err != nil {
		c.err = err
		return Match{}
	}
	c.cursor = m.End
	return m
}

// Select runs Discriminate at the chain's cursor.
func Select[V any](c *Chain, name string, candidates []Candidate[V]) (V, Match) {
	var zero V
	if c.err != nil {
		return zero, Match{}
	}
	v, m, err := Discriminate(c.data, c.cursor, name, candidates)
	if err != nil {
		c.err = err
		return zero, Match{}
	}
	c.cursor = m.End
	return v, m
}
