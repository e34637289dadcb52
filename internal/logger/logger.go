package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"
)

var (
	mu      sync.RWMutex
	global  *zerolog.Logger
	logFile *os.File // abierto por Init, cerrado por Close o por el siguiente Init
)

// ParseLevel acepta "trace", "debug", "info", "warn", "error". Cualquier otra
// cosa se trata como info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Init configura el logger global.
// file: ruta de log adicional; vacío para escribir solo en stderr.
// Si un Init anterior abrió un archivo, se cierra al reemplazarlo.
func Init(level string, file string) error {
	var out io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}

	var f *os.File
	if file != "" {
		var err error
		f, err = os.OpenFile(file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		out = zerolog.MultiLevelWriter(out, f)
	}

	l := zerolog.New(out).Level(ParseLevel(level)).With().Timestamp().Logger()

	mu.Lock()
	prev := logFile
	global, logFile = &l, f
	mu.Unlock()

	return closeFile(prev)
}

// Close vuelca y cierra el archivo de log, si lo hay. Después Get descarta todo.
func Close() error {
	mu.Lock()
	f := logFile
	logFile = nil
	if f != nil {
		nop := zerolog.New(io.Discard)
		global = &nop
	}
	mu.Unlock()

	return closeFile(f)
}

func closeFile(f *os.File) error {
	if f == nil {
		return nil
	}
	return multierr.Combine(f.Sync(), f.Close())
}

// Set reemplaza el logger global (útil en tests).
func Set(l zerolog.Logger) {
	mu.Lock()
	global = &l
	mu.Unlock()
}

// Get devuelve el logger global. Sin Init, descarta todo.
func Get() *zerolog.Logger {
	mu.RLock()
	l := global
	mu.RUnlock()
	if l != nil {
		return l
	}

	mu.Lock()
	defer mu.Unlock()
	if global == nil {
		nop := zerolog.New(io.Discard)
		global = &nop
	}
	return global
}

// Component devuelve un logger hijo con el campo component.
func Component(name string) zerolog.Logger {
	return Get().With().Str("component", name).Logger()
}
