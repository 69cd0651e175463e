package arcstream

import (
	"io/fs"
	"time"
)

// EntryFunc inspects and optionally mutates a traversal entry before it
// is queued. Returning false skips the entry.
type EntryFunc func(*Entry) bool

// walkConfig holds per-traversal configuration shared by AppendDir and
// AppendGlob.
type walkConfig struct {
	root    string
	prefix  string
	entryFn EntryFunc
	mode    *fs.FileMode
	modTime time.Time
}

// DirOption configures an AppendDir traversal.
type DirOption func(*walkConfig)

// DirWithPrefix places all entries from the traversal under a path
// prefix inside the archive.
func DirWithPrefix(prefix string) DirOption {
	return func(cfg *walkConfig) {
		cfg.prefix = prefix
	}
}

// DirWithEntryFunc sets a transform applied to each matched entry. The
// function may rename the entry or veto it by returning false.
func DirWithEntryFunc(fn EntryFunc) DirOption {
	return func(cfg *walkConfig) {
		cfg.entryFn = fn
	}
}

// DirWithMode overrides the permission bits of every entry from the
// traversal.
func DirWithMode(mode fs.FileMode) DirOption {
	return func(cfg *walkConfig) {
		cfg.mode = &mode
	}
}

// DirWithModTime overrides the timestamp of every entry from the
// traversal.
func DirWithModTime(t time.Time) DirOption {
	return func(cfg *walkConfig) {
		cfg.modTime = t
	}
}

// GlobOption configures an AppendGlob traversal.
type GlobOption func(*walkConfig)

// GlobWithRoot sets the directory the pattern is matched under.
// Defaults to the current directory.
func GlobWithRoot(root string) GlobOption {
	return func(cfg *walkConfig) {
		cfg.root = root
	}
}

// GlobWithPrefix places all matched entries under a path prefix inside
// the archive.
func GlobWithPrefix(prefix string) GlobOption {
	return func(cfg *walkConfig) {
		cfg.prefix = prefix
	}
}

// GlobWithEntryFunc sets a transform applied to each matched entry. The
// function may rename the entry or veto it by returning false.
func GlobWithEntryFunc(fn EntryFunc) GlobOption {
	return func(cfg *walkConfig) {
		cfg.entryFn = fn
	}
}

// GlobWithMode overrides the permission bits of every matched entry.
func GlobWithMode(mode fs.FileMode) GlobOption {
	return func(cfg *walkConfig) {
		cfg.mode = &mode
	}
}

// GlobWithModTime overrides the timestamp of every matched entry.
func GlobWithModTime(t time.Time) GlobOption {
	return func(cfg *walkConfig) {
		cfg.modTime = t
	}
}
