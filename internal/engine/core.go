package engine

import (
	"cmp"
	"context"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"go.uber.org/multierr"

	"github.com/soyunomas/duplink/internal/content"
	"github.com/soyunomas/duplink/internal/entities"
	"github.com/soyunomas/duplink/internal/hasher"
	"github.com/soyunomas/duplink/internal/logger"
	"github.com/soyunomas/duplink/internal/metadata"
	"github.com/soyunomas/duplink/internal/scanner"
)

// Definimos las estrategias de conservación disponibles
type KeepStrategy int

const (
	KeepShortestPath KeepStrategy = iota // Default
	KeepLongestPath
	KeepOldest
	KeepNewest
)

var strategyNames = map[KeepStrategy]string{
	KeepShortestPath: "shortest",
	KeepLongestPath:  "longest",
	KeepOldest:       "oldest",
	KeepNewest:       "newest",
}

func (s KeepStrategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return "unknown"
}

// ParseStrategy acepta shortest, longest, oldest o newest.
func ParseStrategy(name string) (KeepStrategy, error) {
	for s, n := range strategyNames {
		if strings.EqualFold(n, name) {
			return s, nil
		}
	}
	return 0, errors.Errorf("estrategia desconocida: %s", name)
}

type Options struct {
	MinSize        int64
	Excludes       []string
	Strategy       KeepStrategy
	Workers        int
	FollowSymlinks bool
	FirstBlock     int64 // 0: valor por defecto del hasher
	MaxBlock       int64 // 0: valor por defecto del hasher
}

// Group es un conjunto de archivos idénticos; Paths[0] es el Keeper.
type Group struct {
	*entities.FileSet
	Size int64
	Hash uint64
}

type Stats struct {
	TotalFilesScanned int64
	Candidates        int64
	Groups            []*Group
	Files             map[string]*entities.FileInfo
	Skipped           error    // entradas que el scanner no pudo leer
	Excluded          []string // candidatos descartados por errores de lectura al comparar
	BytesRead         int64
	Duration          time.Duration
}

type Runner struct {
	fs   afero.Fs
	opts Options
	log  zerolog.Logger
}

func New(fs afero.Fs, opts Options) *Runner {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	return &Runner{fs: fs, opts: opts, log: logger.Component("engine")}
}

func (r *Runner) Run(ctx context.Context, roots ...string) (*Stats, error) {
	start := time.Now()
	policy := metadata.ParseLinkPolicy(r.opts.FollowSymlinks)

	// --- PASO 1: SCANNER ---
	sc := scanner.New(r.fs, scanner.Config{
		MinSize:  r.opts.MinSize,
		Excludes: r.opts.Excludes,
		Policy:   policy,
	})
	res, err := sc.Scan(ctx, roots...)
	if err != nil {
		return nil, err
	}
	if res.Skipped != nil {
		r.log.Warn().Int("count", len(multierr.Errors(res.Skipped))).Msg("entradas ignoradas durante el escaneo")
	}

	// --- PASO 2: AGRUPAR POR METADATA ---
	// Mismo dispositivo, tamaño y tipo. Un grupo de uno no se lee nunca.
	var hopts []hasher.Option
	if r.opts.FirstBlock > 0 {
		hopts = append(hopts, hasher.WithFirstBlock(r.opts.FirstBlock))
	}
	if r.opts.MaxBlock > 0 {
		hopts = append(hopts, hasher.WithMaxBlock(r.opts.MaxBlock))
	}
	h := hasher.New(r.fs, hopts...)
	eng := content.NewEngine(r.fs, h, policy)

	files := make(map[string]*entities.FileInfo, len(res.Entries))
	buckets := make(map[metadata.Key][]*content.FileContent)
	for _, e := range res.Entries {
		files[e.Path] = e.FileInfo()
		k := e.Meta.Key()
		buckets[k] = append(buckets[k], eng.New(e.Path, e.Meta))
	}

	var work [][]*content.FileContent
	var candidates int64
	for _, b := range buckets {
		if len(b) > 1 {
			work = append(work, b)
			candidates += int64(len(b))
		}
	}
	r.log.Info().
		Int("files", len(res.Entries)).
		Int64("candidates", candidates).
		Int("buckets", len(work)).
		Msg("candidatos por tamaño")

	// --- PASO 3: COMPARAR CONTENIDO ---
	groups, excluded, err := r.compareBuckets(ctx, work)
	if err != nil {
		return nil, err
	}

	// --- PASO 4: ORDENAR Y FINALIZAR ---
	sortGroups(groups, files, r.opts.Strategy)
	slices.SortFunc(groups, func(a, b *Group) int {
		if c := cmp.Compare(b.Size, a.Size); c != 0 {
			return c
		}
		return strings.Compare(a.Paths[0], b.Paths[0])
	})
	slices.Sort(excluded)

	stats := &Stats{
		TotalFilesScanned: int64(len(res.Entries)),
		Candidates:        candidates,
		Groups:            groups,
		Files:             files,
		Skipped:           res.Skipped,
		Excluded:          excluded,
		BytesRead:         h.BytesRead(),
		Duration:          time.Since(start),
	}
	r.log.Info().
		Int("groups", len(groups)).
		Int64("bytes_read", stats.BytesRead).
		Dur("duration", stats.Duration).
		Msg("comparación terminada")
	return stats, nil
}

// compareBuckets reparte los grupos por tamaño en un pool de goroutines.
func (r *Runner) compareBuckets(ctx context.Context, work [][]*content.FileContent) ([]*Group, []string, error) {
	pool, err := ants.NewPool(r.opts.Workers)
	if err != nil {
		return nil, nil, errors.Wrap(err, "creando pool de workers")
	}
	defer pool.Release()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		groups   []*Group
		excluded []string
	)

	var submitErr error
	for _, bucket := range work {
		bucket := bucket
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			gs, bad := r.groupBucket(bucket)
			mu.Lock()
			groups = append(groups, gs...)
			excluded = append(excluded, bad...)
			mu.Unlock()
		})
		if err != nil {
			wg.Done()
			submitErr = errors.Wrap(err, "enviando tarea al pool")
			break
		}
	}
	wg.Wait()

	if submitErr != nil {
		return nil, nil, submitErr
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return groups, excluded, nil
}

// groupBucket ordena un grupo de candidatos con la misma metadata y junta
// las rachas de iguales. Si una lectura falla, el archivo culpable se
// excluye y se vuelve a ordenar.
func (r *Runner) groupBucket(files []*content.FileContent) ([]*Group, []string) {
	var excluded []string

	for len(files) > 1 {
		err := content.Sort(files)
		if err == nil {
			break
		}

		var re *hasher.ReadError
		n := len(files)
		if errors.As(err, &re) {
			files = slices.DeleteFunc(files, func(f *content.FileContent) bool {
				return f.Path() == re.Path
			})
		}
		if len(files) == n {
			// El error no señala a ningún candidato: se descarta el grupo entero.
			r.log.Error().Err(err).Msg("grupo descartado")
			for _, f := range files {
				excluded = append(excluded, f.Path())
			}
			return nil, excluded
		}

		r.log.Warn().Err(err).Str("path", re.Path).Msg("excluido por error de lectura")
		excluded = append(excluded, re.Path)
	}
	if len(files) < 2 {
		return nil, excluded
	}

	var groups []*Group
	run := []*content.FileContent{files[0]}
	flush := func() {
		if len(run) < 2 {
			return
		}
		set := entities.NewFileSet(run[0].Path())
		for _, f := range run[1:] {
			set.Push(f.Path())
		}
		hash, _ := run[0].Digest()
		groups = append(groups, &Group{FileSet: set, Size: run[0].Metadata().Size, Hash: hash})
	}

	for _, f := range files[1:] {
		if f.Equal(run[0]) {
			run = append(run, f)
			continue
		}
		flush()
		run = []*content.FileContent{f}
	}
	flush()

	return groups, excluded
}
