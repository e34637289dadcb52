package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyunomas/duplink/internal/metadata"
)

func paths(res *Result) []string {
	var out []string
	for _, e := range res.Entries {
		out = append(out, e.Path)
	}
	return out
}

func memTree(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, data := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(data), 0644))
	}
	return fs
}

func TestScan_FiltersAndExcludes(t *testing.T) {
	fs := memTree(t, map[string]string{
		"/root/a.txt":              "0123456789",
		"/root/tiny.txt":           "01",
		"/root/sub/b.txt":          "0123456789",
		"/root/.git/objects/x":     "0123456789",
		"/root/node_modules/y.js":  "0123456789",
		"/root/sub/.hidden/c.conf": "0123456789",
	})

	s := New(fs, Config{MinSize: 5, Excludes: []string{".git", "node_modules"}})
	res, err := s.Scan(context.Background(), "/root")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"/root/a.txt",
		"/root/sub/.hidden/c.conf",
		"/root/sub/b.txt",
	}, paths(res))
	assert.NoError(t, res.Skipped)

	for _, e := range res.Entries {
		assert.Equal(t, int64(10), e.Meta.Size)
		assert.Equal(t, metadata.KindRegular, e.Meta.Kind)
	}
}

func TestScan_OverlappingRoots(t *testing.T) {
	fs := memTree(t, map[string]string{
		"/data/a":       "aaaa",
		"/data/inner/b": "bbbb",
		"/other/c":      "cccc",
	})

	s := New(fs, Config{})
	res, err := s.Scan(context.Background(), "/data", "/data/inner/", "/other")
	require.NoError(t, err)

	assert.Equal(t, []string{"/data/a", "/data/inner/b", "/other/c"}, paths(res))
}

func TestScan_MissingRoot(t *testing.T) {
	s := New(afero.NewMemMapFs(), Config{})
	_, err := s.Scan(context.Background(), "/non/existent/directory")
	assert.Error(t, err)
}

func TestScan_Cancelled(t *testing.T) {
	fs := memTree(t, map[string]string{"/r/a": "a"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(fs, Config{}).Scan(ctx, "/r")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScan_Symlinks(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "file.txt")
	require.NoError(t, os.WriteFile(target, []byte("test content"), 0644))
	if err := os.Symlink(target, filepath.Join(dir, "link.txt")); err != nil {
		t.Skipf("Skipping symlink test: %v", err)
	}
	if err := os.Symlink(filepath.Join(dir, "missing"), filepath.Join(dir, "broken.txt")); err != nil {
		t.Skipf("Skipping symlink test: %v", err)
	}

	osfs := afero.NewOsFs()

	res, err := New(osfs, Config{Policy: metadata.NoFollow}).Scan(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, []string{target}, paths(res))

	res, err = New(osfs, Config{Policy: metadata.Follow}).Scan(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, []string{target, filepath.Join(dir, "link.txt")}, paths(res))
	assert.Error(t, res.Skipped, "el symlink roto se acumula como error")

	for _, e := range res.Entries {
		assert.Equal(t, int64(len("test content")), e.Meta.Size)
	}
	assert.False(t, res.Entries[0].Link)
	assert.True(t, res.Entries[1].Link)
	assert.True(t, res.Entries[1].FileInfo().IsLink)
}

func TestScan_RelativeAndAbsoluteRoot(t *testing.T) {
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	file := filepath.Join(dir, "sub", "a.bin")
	require.NoError(t, os.MkdirAll(filepath.Dir(file), 0755))
	require.NoError(t, os.WriteFile(file, []byte("contenido"), 0644))
	chdir(t, dir)

	res, err := New(afero.NewOsFs(), Config{}).Scan(context.Background(), ".", dir, "sub")
	require.NoError(t, err)

	assert.Equal(t, []string{file}, paths(res))
}

func TestEntry_FileInfo(t *testing.T) {
	e := Entry{Path: "/x", Meta: metadata.Metadata{Dev: 3, Size: 9, Inode: 11}}
	fi := e.FileInfo()
	assert.Equal(t, "/x", fi.Path)
	assert.Equal(t, int64(9), fi.Size)
	assert.Equal(t, uint64(3), fi.DeviceID)
	assert.Equal(t, uint64(11), fi.Inode)
}

// chdir changes the working directory for the duration of the test,
// restoring it on cleanup (equivalent of testing.T.Chdir, Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}
