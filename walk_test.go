package arcstream

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func TestAppendDir(t *testing.T) {
	t.Parallel()

	dir := createTestTree(t, map[string]string{
		"a.txt":         "content of a",
		"b.txt":         "content of b",
		"sub/c.txt":     "content of c",
		"sub/deep/d.go": "package main",
	})

	enc := newMemEncoder()
	p, err := New(io.Discard, enc.factory())
	require.NoError(t, err)

	require.NoError(t, p.AppendDir(dir))
	require.NoError(t, p.Finalize())
	require.NoError(t, p.Wait(waitCtx(t)))

	got := enc.appended()
	sort.Strings(got)
	assert.Equal(t, []string{
		"a.txt", "b.txt", "sub/", "sub/c.txt", "sub/deep/", "sub/deep/d.go",
	}, got)
	assert.Equal(t, []byte("content of c"), enc.contents["sub/c.txt"])

	s := p.Stats()
	assert.Equal(t, int64(6), s.EntriesTotal)
	assert.Equal(t, int64(6), s.EntriesProcessed)
}

func TestAppendDirPrefix(t *testing.T) {
	t.Parallel()

	dir := createTestTree(t, map[string]string{"a.txt": "aa"})

	enc := newMemEncoder()
	p, err := New(io.Discard, enc.factory())
	require.NoError(t, err)

	require.NoError(t, p.AppendDir(dir, DirWithPrefix("vendor/pkg")))
	require.NoError(t, p.Finalize())
	require.NoError(t, p.Wait(waitCtx(t)))

	assert.Equal(t, []string{"vendor/pkg/a.txt"}, enc.appended())
}

func TestAppendDirEntryFunc(t *testing.T) {
	t.Parallel()

	dir := createTestTree(t, map[string]string{
		"keep.txt":   "k",
		"skip.txt":   "s",
		"rename.txt": "r",
	})

	enc := newMemEncoder()
	p, err := New(io.Discard, enc.factory())
	require.NoError(t, err)

	require.NoError(t, p.AppendDir(dir, DirWithEntryFunc(func(e *Entry) bool {
		switch e.Name {
		case "skip.txt":
			return false
		case "rename.txt":
			e.Name = "renamed.txt"
		}
		return true
	})))
	require.NoError(t, p.Finalize())
	require.NoError(t, p.Wait(waitCtx(t)))

	got := enc.appended()
	sort.Strings(got)
	assert.Equal(t, []string{"keep.txt", "renamed.txt"}, got)
	assert.Equal(t, int64(2), p.Stats().EntriesTotal)
}

func TestAppendDirOverrides(t *testing.T) {
	t.Parallel()

	dir := createTestTree(t, map[string]string{"a.txt": "aa"})
	stamp := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)

	enc := newMemEncoder()
	p, err := New(io.Discard, enc.factory())
	require.NoError(t, err)

	require.NoError(t, p.AppendDir(dir, DirWithMode(0o600), DirWithModTime(stamp)))
	require.NoError(t, p.Finalize())
	require.NoError(t, p.Wait(waitCtx(t)))

	require.Len(t, enc.headers, 1)
	assert.Equal(t, fs.FileMode(0o600), enc.headers[0].Mode)
	assert.Equal(t, stamp, enc.headers[0].ModTime)
}

func TestAppendDirSymlink(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("symlink creation requires privileges on windows")
	}

	dir := createTestTree(t, map[string]string{"real.txt": "data"})
	require.NoError(t, os.Symlink("real.txt", filepath.Join(dir, "link.txt")))

	enc := newMemEncoder()
	p, err := New(io.Discard, enc.factory())
	require.NoError(t, err)

	require.NoError(t, p.AppendDir(dir))
	require.NoError(t, p.Finalize())
	require.NoError(t, p.Wait(waitCtx(t)))

	var link *Header
	for _, hdr := range enc.headers {
		if hdr.Type == TypeSymlink {
			link = hdr
		}
	}
	require.NotNil(t, link)
	assert.Equal(t, "link.txt", link.Name)
	assert.Equal(t, "real.txt", link.Linkname)
}

func TestAppendDirMissing(t *testing.T) {
	t.Parallel()

	var events []error
	done := make(chan struct{})
	enc := newMemEncoder()
	p, err := New(io.Discard, enc.factory(), WithOnError(func(err error) {
		events = append(events, err)
		close(done)
	}))
	require.NoError(t, err)

	require.NoError(t, p.AppendDir(filepath.Join(t.TempDir(), "nope")))
	<-done
	require.NoError(t, p.Finalize())
	require.NoError(t, p.Wait(waitCtx(t)))

	assert.Empty(t, enc.appended())
	require.Len(t, events, 1)
}

func TestAppendGlob(t *testing.T) {
	t.Parallel()

	dir := createTestTree(t, map[string]string{
		"a.txt":     "aa",
		"b.log":     "bb",
		"sub/c.txt": "cc",
		"sub/d.md":  "dd",
	})

	enc := newMemEncoder()
	p, err := New(io.Discard, enc.factory())
	require.NoError(t, err)

	require.NoError(t, p.AppendGlob("**/*.txt", GlobWithRoot(dir)))
	require.NoError(t, p.Finalize())
	require.NoError(t, p.Wait(waitCtx(t)))

	got := enc.appended()
	sort.Strings(got)
	assert.Equal(t, []string{"a.txt", "sub/c.txt"}, got)
}

func TestAppendGlobPrefix(t *testing.T) {
	t.Parallel()

	dir := createTestTree(t, map[string]string{"a.txt": "aa"})

	enc := newMemEncoder()
	p, err := New(io.Discard, enc.factory())
	require.NoError(t, err)

	require.NoError(t, p.AppendGlob("*.txt", GlobWithRoot(dir), GlobWithPrefix("data")))
	require.NoError(t, p.Finalize())
	require.NoError(t, p.Wait(waitCtx(t)))

	assert.Equal(t, []string{"data/a.txt"}, enc.appended())
}

func TestTraversalBackpressure(t *testing.T) {
	t.Parallel()

	const n = 30
	files := make(map[string]string, n)
	for i := range n {
		files[fmt.Sprintf("f%02d.txt", i)] = "x"
	}
	dir := createTestTree(t, files)

	enc := newMemEncoder()
	enc.started = make(chan struct{})
	enc.gate = make(chan struct{})

	p, err := New(io.Discard, enc.factory())
	require.NoError(t, err)
	require.NoError(t, p.AppendDir(dir))

	// While the encoder holds an entry, the traversal is paused: nothing
	// else may be queued behind it.
	for range n {
		<-enc.started
		assert.Equal(t, 0, p.appendQ.depth())
		enc.gate <- struct{}{}
	}

	require.NoError(t, p.Finalize())
	require.NoError(t, p.Wait(waitCtx(t)))
	assert.Equal(t, int64(n), p.Stats().EntriesProcessed)
}

func TestAbortDuringWalk(t *testing.T) {
	t.Parallel()

	files := make(map[string]string, 50)
	for i := range 50 {
		files[fmt.Sprintf("f%02d.txt", i)] = "x"
	}
	dir := createTestTree(t, files)

	enc := newMemEncoder()
	enc.started = make(chan struct{})
	enc.gate = make(chan struct{})

	p, err := New(io.Discard, enc.factory())
	require.NoError(t, err)
	require.NoError(t, p.AppendDir(dir))

	// Let a few entries through, then abort mid-walk.
	for range 3 {
		<-enc.started
		enc.gate <- struct{}{}
	}
	<-enc.started
	require.NoError(t, p.Abort())
	enc.gate <- struct{}{}

	require.ErrorIs(t, p.Wait(waitCtx(t)), ErrAborted)
	assert.Less(t, len(enc.appended()), 50)
}
