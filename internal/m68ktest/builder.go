// Package m68ktest assembles synthetic player binaries for decoder tests:
// raw 68000 code bytes, PC-relative displacement fields and data tables,
// all addressed through labels that are patched when the image is built.
package m68ktest

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/cryptobyte"
)

type fixupKind int

const (
	fixDisp16 fixupKind = iota // target - (field + 2)
	fixRel16                   // target - base label
	fixRel32                   // target - base label
	fixPtr32                   // target - origin constant
)

type fixup struct {
	at     int
	kind   fixupKind
	target string
	base   string
	origin int
}

// Builder accumulates an image. Methods return the builder for chaining.
type Builder struct {
	buf    []byte
	labels map[string]int
	fixups []fixup
}

func New() *Builder {
	return &Builder{labels: make(map[string]int)}
}

// Len is the current image size, which is also the offset of the next byte.
func (b *Builder) Len() int {
	return len(b.buf)
}

// Hex emits bytes written as space separated hex pairs.
func (b *Builder) Hex(s string) *Builder {
	for _, f := range strings.Fields(s) {
		v, err := strconv.ParseUint(f, 16, 8)
		if err != nil {
			panic(fmt.Sprintf("m68ktest: bad hex byte %q", f))
		}
		b.buf = append(b.buf, byte(v))
	}
	return b
}

// emit appends whatever add writes.
func (b *Builder) emit(add func(*cryptobyte.Builder)) *Builder {
	cb := cryptobyte.NewBuilder(b.buf)
	add(cb)
	b.buf = cb.BytesOrPanic()
	return b
}

func (b *Builder) Bytes(v ...byte) *Builder {
	return b.emit(func(cb *cryptobyte.Builder) { cb.AddBytes(v) })
}

func (b *Builder) Word(v uint16) *Builder {
	return b.emit(func(cb *cryptobyte.Builder) { cb.AddUint16(v) })
}

func (b *Builder) Long(v uint32) *Builder {
	return b.emit(func(cb *cryptobyte.Builder) { cb.AddUint32(v) })
}

// Zero emits n zero bytes.
func (b *Builder) Zero(n int) *Builder {
	b.buf = append(b.buf, make([]byte, n)...)
	return b
}

// Align pads with a zero byte to an even offset.
func (b *Builder) Align() *Builder {
	if len(b.buf)%2 != 0 {
		b.buf = append(b.buf, 0)
	}
	return b
}

// Label names the current offset.
func (b *Builder) Label(name string) *Builder {
	if _, ok := b.labels[name]; ok {
		panic(fmt.Sprintf("m68ktest: label %q defined twice", name))
	}
	b.labels[name] = len(b.buf)
	return b
}

// Disp emits a 16-bit PC-relative displacement field pointing at target.
func (b *Builder) Disp(target string) *Builder {
	b.fixups = append(b.fixups, fixup{at: len(b.buf), kind: fixDisp16, target: target})
	return b.Word(0)
}

// Rel16 emits target - base as a 16-bit word.
func (b *Builder) Rel16(target, base string) *Builder {
	b.fixups = append(b.fixups, fixup{at: len(b.buf), kind: fixRel16, target: target, base: base})
	return b.Word(0)
}

// Rel32 emits target - base as a 32-bit long.
func (b *Builder) Rel32(target, base string) *Builder {
	b.fixups = append(b.fixups, fixup{at: len(b.buf), kind: fixRel32, target: target, base: base})
	return b.Long(0)
}

// Ptr32 emits target - origin as a 32-bit long, for pointers relative to a
// fixed load address.
func (b *Builder) Ptr32(target string, origin int) *Builder {
	b.fixups = append(b.fixups, fixup{at: len(b.buf), kind: fixPtr32, target: target, origin: origin})
	return b.Long(0)
}

// Offset returns the offset of a label. It panics on unknown labels.
func (b *Builder) Offset(name string) int {
	off, ok := b.labels[name]
	if !ok {
		panic(fmt.Sprintf("m68ktest: unknown label %q", name))
	}
	return off
}

// Build patches every fixup and returns a copy of the image.
func (b *Builder) Build() []byte {
	out := make([]byte, len(b.buf))
	copy(out, b.buf)
	for _, f := range b.fixups {
		target := b.Offset(f.target)
		// Patch the reserved field in place.
		field := cryptobyte.NewFixedBuilder(out[f.at:f.at:len(out)])
		switch f.kind {
		case fixDisp16:
			field.AddUint16(uint16(int16(target - (f.at + 2))))
		case fixRel16:
			field.AddUint16(uint16(target - b.Offset(f.base)))
		case fixRel32:
			field.AddUint32(uint32(target - b.Offset(f.base)))
		case fixPtr32:
			field.AddUint32(uint32(target - f.origin))
		}
		field.BytesOrPanic()
	}
	return out
}
