package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"trace": zerolog.TraceLevel,
		"DEBUG": zerolog.DebugLevel,
		"info":  zerolog.InfoLevel,
		"warn":  zerolog.WarnLevel,
		"error": zerolog.ErrorLevel,
		"bogus": zerolog.InfoLevel,
		"":      zerolog.InfoLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestGet_DefaultsToDiscard(t *testing.T) {
	mu.Lock()
	global = nil
	mu.Unlock()

	l := Get()
	require.NotNil(t, l)
	assert.Same(t, l, Get())
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	Set(zerolog.New(&buf))
	t.Cleanup(func() { Set(zerolog.Nop()) })

	l := Component("content")
	l.Info().Msg("hola")

	assert.Contains(t, buf.String(), `"component":"content"`)
	assert.Contains(t, buf.String(), `"message":"hola"`)
}

func TestInit_WithFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "duplink.log")

	require.NoError(t, Init("debug", logFile))
	t.Cleanup(func() { _ = Close() })
	Get().Info().Str("path", "/tmp/a").Msg("escrito")

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "escrito")
	assert.Equal(t, zerolog.DebugLevel, Get().GetLevel())
}

func TestInit_BadFile(t *testing.T) {
	err := Init("info", filepath.Join(t.TempDir(), "missing", "dir", "x.log"))
	assert.Error(t, err)
}

func TestInit_ReplacesAndClosesFile(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.log")
	second := filepath.Join(dir, "second.log")

	require.NoError(t, Init("info", first))
	mu.RLock()
	prev := logFile
	mu.RUnlock()
	require.NotNil(t, prev)

	require.NoError(t, Init("info", second))
	// El archivo del primer Init ya está cerrado.
	_, err := prev.Write([]byte("x"))
	assert.ErrorIs(t, err, os.ErrClosed)

	Get().Info().Msg("segundo")
	require.NoError(t, Close())
	require.NoError(t, Close())

	data, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Contains(t, string(data), "segundo")

	// Tras Close no se escribe en el archivo cerrado.
	Get().Info().Msg("descartado")
	data, err = os.ReadFile(second)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "descartado")
}
