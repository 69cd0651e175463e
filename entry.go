package arcstream

import (
	"io/fs"
	"strings"
	"time"

	"github.com/meigma/arcstream/internal/pathutil"
	"github.com/meigma/arcstream/internal/platform"
)

// EntryType identifies the kind of archive entry.
type EntryType uint8

const (
	// TypeFile is a regular file entry.
	TypeFile EntryType = iota

	// TypeDir is a directory entry. Directory names always carry a
	// trailing slash.
	TypeDir

	// TypeSymlink is a symbolic link entry.
	TypeSymlink
)

// String returns the string representation of the entry type.
func (t EntryType) String() string {
	switch t {
	case TypeFile:
		return "file"
	case TypeDir:
		return "directory"
	case TypeSymlink:
		return "symlink"
	default:
		return "unknown"
	}
}

// Default modes applied when neither the caller nor filesystem stats
// supply one.
const (
	DefaultDirMode  fs.FileMode = 0o755
	DefaultFileMode fs.FileMode = 0o644
)

// Entry is the loosely-specified metadata supplied with an append
// operation. Zero-value fields are resolved during normalization.
type Entry struct {
	// Name is the archive path of the entry. For AppendFile it defaults
	// to the source path. A name ending in "/" forces a directory entry.
	Name string

	// Prefix is an optional path segment merged in front of Name with a
	// single separator.
	Prefix string

	// Mode overrides the entry permission bits. Nil derives the mode
	// from filesystem stats when available, else a type-based default.
	Mode *fs.FileMode

	// ModTime overrides the entry timestamp. The zero value derives the
	// timestamp from filesystem stats when available, else the current
	// time.
	ModTime time.Time
}

// Header is the canonical entry descriptor handed to the encoder. Every
// Header reaching an encoder has a non-empty sanitized Name and a
// resolved Type.
type Header struct {
	// Name is the slash-separated, traversal-safe archive path.
	// Directory names end with exactly one trailing slash.
	Name string

	// Type is the resolved entry kind.
	Type EntryType

	// Mode holds the permission bits, masked to the platform's valid range.
	Mode fs.FileMode

	// ModTime is the entry timestamp.
	ModTime time.Time

	// Linkname is the link target, set only for TypeSymlink.
	Linkname string

	// Size is the byte size of the entry content, or -1 when unknown
	// (stream sources without stats).
	Size int64

	// UID and GID identify the file owner when known from stats.
	UID int
	GID int

	// SourcePath is the origin filesystem path, empty for programmatic
	// entries.
	SourcePath string
}

// normalize converts loose entry metadata plus optional stat info into a
// canonical Header. It is a pure transformation; the caller validates
// Name non-emptiness afterward.
func normalize(e Entry, typ EntryType, info fs.FileInfo, linkname, sourcePath string, now time.Time) *Header {
	raw := pathutil.JoinPrefix(e.Prefix, e.Name)
	trailing := strings.HasSuffix(raw, "/")
	name := pathutil.SanitizeName(raw)

	if typ != TypeSymlink && (trailing || typ == TypeDir) {
		typ = TypeDir
		if name != "" {
			name += "/"
		}
	}

	var mode fs.FileMode
	switch {
	case e.Mode != nil:
		mode = platform.MaskMode(*e.Mode)
	case info != nil:
		mode = platform.StatMode(info, typ == TypeDir)
	case typ == TypeDir:
		mode = DefaultDirMode
	default:
		mode = DefaultFileMode
	}

	mt := e.ModTime
	if mt.IsZero() {
		if info != nil {
			mt = info.ModTime()
		} else {
			mt = now
		}
	}

	hdr := &Header{
		Name:       name,
		Type:       typ,
		Mode:       mode,
		ModTime:    mt,
		Linkname:   linkname,
		Size:       -1,
		SourcePath: sourcePath,
	}
	if typ != TypeFile {
		hdr.Size = 0
	} else if info != nil {
		hdr.Size = info.Size()
	}
	if info != nil {
		hdr.UID, hdr.GID = platform.FileOwner(info)
	}
	return hdr
}
