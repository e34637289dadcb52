// Package content decide si dos archivos tienen el mismo contenido, leyendo
// lo mínimo posible y reutilizando lo ya leído entre comparaciones.
package content

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/soyunomas/duplink/internal/hasher"
	"github.com/soyunomas/duplink/internal/logger"
	"github.com/soyunomas/duplink/internal/metadata"
)

// ErrIncomparable: no se pudo establecer el orden porque falló la lectura.
var ErrIncomparable = errors.New("contenido no comparable")

// CompareError envuelve el fallo de E/S de una comparación concreta.
type CompareError struct {
	PathA, PathB string
	Err          error
}

func (e *CompareError) Error() string {
	return fmt.Sprintf("comparando %s con %s: %v", e.PathA, e.PathB, e.Err)
}

func (e *CompareError) Unwrap() error {
	return e.Err
}

func (e *CompareError) Is(target error) bool {
	return target == ErrIncomparable
}

// nextID da a cada candidato una identidad estable para ordenar sus locks.
var nextID atomic.Uint64

// Engine construye candidatos que comparten filesystem, hasher y política de symlinks.
type Engine struct {
	fs     afero.Fs
	hasher *hasher.Hasher
	policy metadata.LinkPolicy
	log    zerolog.Logger
}

func NewEngine(fs afero.Fs, h *hasher.Hasher, policy metadata.LinkPolicy) *Engine {
	return &Engine{
		fs:     fs,
		hasher: h,
		policy: policy,
		log:    logger.Component("content"),
	}
}

// FileContent es un archivo candidato: ruta, metadata congelada al construirlo
// y el progreso incremental del hash, protegido por mu.
// Si el archivo cambia después de construirlo, las comparaciones quedan obsoletas.
type FileContent struct {
	path   string
	meta   metadata.Metadata
	id     uint64
	engine *Engine

	mu       sync.Mutex
	progress *hasher.Progress
}

// FromPath hace stat de path y construye el candidato.
func (e *Engine) FromPath(path string) (*FileContent, error) {
	m, err := metadata.FromPath(e.fs, path, e.policy)
	if err != nil {
		return nil, err
	}
	return e.New(path, m), nil
}

// New construye el candidato con una metadata ya obtenida por el llamador.
func (e *Engine) New(path string, meta metadata.Metadata) *FileContent {
	return &FileContent{
		path:     path,
		meta:     meta,
		id:       nextID.Add(1),
		engine:   e,
		progress: hasher.NewProgress(),
	}
}

func (f *FileContent) Path() string {
	return f.path
}

func (f *FileContent) Metadata() metadata.Metadata {
	return f.meta
}

// Consumed devuelve cuántos bytes del archivo se han leído ya.
func (f *FileContent) Consumed() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.progress.Consumed()
}

// Digest devuelve el hash del archivo completo, si ya se leyó entero.
func (f *FileContent) Digest() (uint64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.progress.Consumed() != f.meta.Size {
		return 0, false
	}
	return f.progress.Sum64(), true
}

// Compare devuelve -1, 0 o +1. Un error (siempre ErrIncomparable) indica que
// alguna lectura falló y no hay respuesta.
func (f *FileContent) Compare(other *FileContent) (int, error) {
	// Distinto tamaño o dispositivo: distintos sin leer nada.
	if c := metadata.Compare(f.meta, other.meta); c != 0 {
		return c, nil
	}

	if f == other {
		return 0, nil
	}

	if f.meta.Kind == metadata.KindSymlink {
		return f.compareLinks(other)
	}

	// Orden canónico de locks: compare(A, B) y compare(B, A) en paralelo no
	// pueden bloquearse mutuamente.
	first, second := f, other
	if second.id < first.id {
		first, second = second, first
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()

	c, err := f.engine.hasher.Compare(f.progress, other.progress, f.meta.Size, f.path, other.path)
	if err != nil {
		return 0, &CompareError{PathA: f.path, PathB: other.path, Err: err}
	}
	return c, nil
}

// compareLinks compara el destino de dos symlinks (solo con NoFollow).
func (f *FileContent) compareLinks(other *FileContent) (int, error) {
	lr, ok := f.engine.fs.(afero.LinkReader)
	if !ok {
		return 0, &CompareError{PathA: f.path, PathB: other.path, Err: afero.ErrNoReadlink}
	}
	ta, err := lr.ReadlinkIfPossible(f.path)
	if err != nil {
		return 0, &CompareError{PathA: f.path, PathB: other.path, Err: &hasher.ReadError{Path: f.path, Err: err}}
	}
	tb, err := lr.ReadlinkIfPossible(other.path)
	if err != nil {
		return 0, &CompareError{PathA: f.path, PathB: other.path, Err: &hasher.ReadError{Path: other.path, Err: err}}
	}
	return cmp.Compare(ta, tb), nil
}

// Equal nunca falla: si no se pudo comparar, no son iguales.
func (f *FileContent) Equal(other *FileContent) bool {
	c, err := f.Compare(other)
	if err != nil {
		f.engine.log.Debug().Err(err).
			Str("a", f.path).
			Str("b", other.path).
			Msg("comparación fallida, se consideran distintos")
		return false
	}
	return c == 0
}

// Cmp es el orden total para quien no puede tolerar un fallo.
// Hace panic con el *CompareError si una lectura falla; usar Sort cuando
// el error deba tratarse.
func (f *FileContent) Cmp(other *FileContent) int {
	c, err := f.Compare(other)
	if err != nil {
		panic(err)
	}
	return c
}

// Sort ordena files según su contenido. Devuelve el primer error de
// comparación; en ese caso el orden resultante no es fiable.
func Sort(files []*FileContent) error {
	var firstErr error
	slices.SortStableFunc(files, func(a, b *FileContent) int {
		c, err := a.Compare(b)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		return c
	})
	return firstErr
}
