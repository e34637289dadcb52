// Package testutil contiene ayudas para tests que necesitan observar la E/S.
package testutil

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spf13/afero"
)

// CountingFs envuelve un afero.Fs y cuenta aperturas y bytes leídos por ruta.
type CountingFs struct {
	afero.Fs

	mu    sync.Mutex
	reads map[string]int64
	opens map[string]int
}

func NewCountingFs(base afero.Fs) *CountingFs {
	return &CountingFs{
		Fs:    base,
		reads: make(map[string]int64),
		opens: make(map[string]int),
	}
}

func (c *CountingFs) Open(name string) (afero.File, error) {
	f, err := c.Fs.Open(name)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.opens[name]++
	c.mu.Unlock()
	return &countingFile{File: f, fs: c, name: name}, nil
}

// LstatIfPossible delega en el Fs base para no perder la semántica de symlinks.
func (c *CountingFs) LstatIfPossible(name string) (os.FileInfo, bool, error) {
	if l, ok := c.Fs.(afero.Lstater); ok {
		return l.LstatIfPossible(name)
	}
	fi, err := c.Fs.Stat(name)
	return fi, false, err
}

func (c *CountingFs) ReadlinkIfPossible(name string) (string, error) {
	if l, ok := c.Fs.(afero.LinkReader); ok {
		return l.ReadlinkIfPossible(name)
	}
	return "", &os.PathError{Op: "readlink", Path: name, Err: afero.ErrNoReadlink}
}

func (c *CountingFs) BytesRead(name string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads[name]
}

func (c *CountingFs) TotalBytesRead() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var total int64
	for _, n := range c.reads {
		total += n
	}
	return total
}

func (c *CountingFs) Opens(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opens[name]
}

func (c *CountingFs) add(name string, n int) {
	c.mu.Lock()
	c.reads[name] += int64(n)
	c.mu.Unlock()
}

type countingFile struct {
	afero.File
	fs   *CountingFs
	name string
}

func (f *countingFile) Read(p []byte) (int, error) {
	n, err := f.File.Read(p)
	f.fs.add(f.name, n)
	return n, err
}

func (f *countingFile) ReadAt(p []byte, off int64) (int, error) {
	n, err := f.File.ReadAt(p, off)
	f.fs.add(f.name, n)
	return n, err
}

// WriteFile crea dir/name con data en el disco real y devuelve la ruta.
func WriteFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
	return path
}

// Pattern devuelve n bytes deterministas a partir de seed.
func Pattern(n int, seed byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*31) + seed
	}
	return b
}
