package hasher

import (
	"cmp"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// PreHashSize es el tamaño del primer bloque (4KB). Casi todos los archivos
// distintos divergen aquí.
const PreHashSize = 4 * 1024

// MaxBlockSize limita el crecimiento de los bloques (cada bloque dobla al anterior).
const MaxBlockSize = 1024 * 1024

// hashPool para reutilizar el estado del digest
var hashPool = sync.Pool{
	New: func() any {
		return xxhash.New()
	},
}

// ReadError es un fallo de E/S sobre un archivo concreto durante la comparación.
type ReadError struct {
	Path   string
	Offset int64
	Err    error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("leyendo %s (offset %d): %v", e.Path, e.Offset, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

type Option func(*Hasher)

// WithFirstBlock fija el tamaño del primer bloque.
func WithFirstBlock(n int64) Option {
	return func(h *Hasher) { h.firstBlock = n }
}

// WithMaxBlock fija el tamaño máximo de bloque.
func WithMaxBlock(n int64) Option {
	return func(h *Hasher) { h.maxBlock = n }
}

// Hasher compara archivos por bloques, de forma incremental y reanudable.
// No guarda estado por archivo: ese estado vive en cada Progress y es el
// llamador quien lo protege.
type Hasher struct {
	fs         afero.Fs
	firstBlock int64
	maxBlock   int64
	bufferPool sync.Pool
	bytesRead  atomic.Int64
}

func New(fs afero.Fs, opts ...Option) *Hasher {
	h := &Hasher{
		fs:         fs,
		firstBlock: PreHashSize,
		maxBlock:   MaxBlockSize,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.firstBlock <= 0 {
		h.firstBlock = PreHashSize
	}
	if h.maxBlock < h.firstBlock {
		h.maxBlock = h.firstBlock
	}

	size := h.maxBlock
	h.bufferPool.New = func() any {
		b := make([]byte, size)
		return &b
	}
	return h
}

// BytesRead devuelve el total de bytes leídos de disco por este Hasher.
func (h *Hasher) BytesRead() int64 {
	return h.bytesRead.Load()
}

// blockLen: el bloque i mide firstBlock<<i, con tope en maxBlock.
// Solo depende de i, así dos archivos del mismo tamaño comparten fronteras.
func (h *Hasher) blockLen(i int) int64 {
	n := h.firstBlock
	for j := 0; j < i && n < h.maxBlock; j++ {
		n <<= 1
	}
	return min(n, h.maxBlock)
}

// Compare recorre los bloques de a y b a la par hasta size. Los bloques ya
// calculados en un Progress se reutilizan; solo se lee de disco lo que falta.
// El primer bloque distinto decide el orden comparando sus digests.
func (h *Hasher) Compare(a, b *Progress, size int64, pathA, pathB string) (int, error) {
	fa := &lazyFile{fs: h.fs, path: pathA}
	defer fa.Close()
	fb := &lazyFile{fs: h.fs, path: pathB}
	defer fb.Close()

	var offset int64
	for i := 0; offset < size; i++ {
		n := min(h.blockLen(i), size-offset)

		da, err := h.block(a, i, offset, n, fa)
		if err != nil {
			return 0, err
		}
		db, err := h.block(b, i, offset, n, fb)
		if err != nil {
			return 0, err
		}
		if da != db {
			return cmp.Compare(da, db), nil
		}
		offset += n
	}
	return 0, nil
}

// block devuelve el digest del bloque i, leyéndolo si el Progress aún no lo tiene.
func (h *Hasher) block(p *Progress, i int, offset, n int64, f *lazyFile) (uint64, error) {
	if i < len(p.blocks) {
		return p.blocks[i], nil
	}
	if i != len(p.blocks) || p.consumed != offset {
		return 0, errors.Errorf("progreso inconsistente en %s: bloque %d, consumido %d, offset %d",
			f.path, i, p.consumed, offset)
	}

	bufPtr := h.bufferPool.Get().(*[]byte)
	defer h.bufferPool.Put(bufPtr)
	buf := (*bufPtr)[:n]

	read, err := f.ReadAt(buf, offset)
	if int64(read) < n {
		if err == nil || err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return 0, &ReadError{Path: f.path, Offset: offset, Err: errors.WithStack(err)}
	}
	h.bytesRead.Add(n)

	d := hashPool.Get().(*xxhash.Digest)
	d.Reset()
	_, _ = d.Write(buf)
	sum := d.Sum64()
	hashPool.Put(d)

	p.advance(sum, buf)
	return sum, nil
}

// lazyFile abre el archivo solo si de verdad hay que leer.
type lazyFile struct {
	fs   afero.Fs
	path string
	f    afero.File
}

func (l *lazyFile) ReadAt(buf []byte, off int64) (int, error) {
	if l.f == nil {
		f, err := l.fs.Open(l.path)
		if err != nil {
			return 0, err
		}
		l.f = f
	}
	return l.f.ReadAt(buf, off)
}

func (l *lazyFile) Close() {
	if l.f != nil {
		_ = l.f.Close()
		l.f = nil
	}
}
