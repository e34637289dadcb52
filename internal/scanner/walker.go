package scanner

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/soyunomas/duplink/internal/entities"
	"github.com/soyunomas/duplink/internal/logger"
	"github.com/soyunomas/duplink/internal/metadata"
)

// Config define las reglas para el escaneo.
type Config struct {
	MinSize  int64               // Tamaño mínimo en bytes para considerar
	Excludes []string            // Lista de carpetas a ignorar
	Policy   metadata.LinkPolicy // Follow: los symlinks a archivos cuentan con la metadata del destino
}

// Entry es un archivo candidato con la metadata del stat hecho durante el recorrido.
// Link indica que Path es un symlink seguido: Meta es la del destino.
type Entry struct {
	Path string
	Meta metadata.Metadata
	Link bool
}

// FileInfo convierte la entrada al formato de reporte.
func (e Entry) FileInfo() *entities.FileInfo {
	return &entities.FileInfo{
		Path:     e.Path,
		Size:     e.Meta.Size,
		ModTime:  e.Meta.ModTime,
		DeviceID: e.Meta.Dev,
		Inode:    e.Meta.Inode,
		IsLink:   e.Link,
	}
}

// Result agrupa lo encontrado y los errores por entrada que se saltaron.
type Result struct {
	Entries []Entry
	Skipped error
}

// FileScanner encapsula la lógica de recorrido del sistema de archivos.
type FileScanner struct {
	fs         afero.Fs
	cfg        Config
	excludeMap map[string]struct{} // Optimización O(1)
	log        zerolog.Logger
}

// New crea una nueva instancia del escáner con configuración.
func New(fs afero.Fs, cfg Config) *FileScanner {
	exMap := make(map[string]struct{}, len(cfg.Excludes))
	for _, e := range cfg.Excludes {
		exMap[e] = struct{}{}
	}

	return &FileScanner{
		fs:         fs,
		cfg:        cfg,
		excludeMap: exMap,
		log:        logger.Component("scanner"),
	}
}

// Scan recorre cada raíz en paralelo. Una raíz inexistente es un error; los
// fallos en entradas concretas (permisos, carreras) se acumulan en Skipped.
func (s *FileScanner) Scan(ctx context.Context, roots ...string) (*Result, error) {
	var (
		mu      sync.Mutex
		seen    = make(map[string]struct{})
		res     = &Result{}
		skipped error
	)

	absRoots := make([]string, 0, len(roots))
	for _, root := range roots {
		// Absolutas: "." y "$PWD" deben dar las mismas rutas.
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, errors.Wrapf(err, "raíz %s", root)
		}
		root = abs
		if _, err := s.fs.Stat(root); err != nil {
			return nil, errors.Wrapf(err, "raíz %s", root)
		}
		absRoots = append(absRoots, root)
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, root := range absRoots {
		root := root
		g.Go(func() error {
			s.log.Info().Str("root", root).Msg("🔍 Escaneando")
			return afero.Walk(s.fs, root, func(path string, info os.FileInfo, err error) error {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}

				// 1. Manejo de errores de acceso (permisos, etc)
				if err != nil {
					s.log.Debug().Err(err).Str("path", path).Msg("entrada ignorada")
					mu.Lock()
					multierr.AppendInto(&skipped, err)
					mu.Unlock()
					return nil
				}

				// 2. Directorios excluidos
				if info.IsDir() {
					if _, ok := s.excludeMap[info.Name()]; ok && path != root {
						return filepath.SkipDir
					}
					return nil
				}

				entry, ok, err := s.entry(path, info)
				if err != nil {
					mu.Lock()
					multierr.AppendInto(&skipped, err)
					mu.Unlock()
					return nil
				}
				if !ok {
					return nil
				}

				mu.Lock()
				defer mu.Unlock()
				if _, dup := seen[path]; dup {
					return nil
				}
				seen[path] = struct{}{}
				res.Entries = append(res.Entries, entry)
				return nil
			})
		})
	}

	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "fallo en scanner")
	}

	slices.SortFunc(res.Entries, func(a, b Entry) int {
		return strings.Compare(a.Path, b.Path)
	})
	res.Skipped = skipped
	return res, nil
}

// entry decide si info es candidato. ok=false significa que se descarta sin error.
func (s *FileScanner) entry(path string, info os.FileInfo) (Entry, bool, error) {
	link := info.Mode()&os.ModeSymlink != 0
	if link {
		if s.cfg.Policy != metadata.Follow {
			return Entry{}, false, nil
		}
		target, err := s.fs.Stat(path)
		if err != nil {
			s.log.Debug().Err(err).Str("path", path).Msg("symlink roto")
			return Entry{}, false, errors.Wrapf(err, "stat %s", path)
		}
		info = target
	}

	if !info.Mode().IsRegular() {
		return Entry{}, false, nil
	}

	// Filtro de Tamaño
	if info.Size() < s.cfg.MinSize {
		return Entry{}, false, nil
	}

	return Entry{Path: path, Meta: metadata.FromFileInfo(info), Link: link}, true, nil
}
