package arcstream

import (
	"bytes"
	"io"
)

// source supplies an entry's bytes. Open is called at most once, inside
// the encoder's consumption window; the returned closer releases any
// underlying resource when that window exits.
type source interface {
	Open() (io.ReadCloser, error)
}

// bufferSource serves bytes from memory. A nil buffer is the empty source
// used for directories and symlinks.
type bufferSource []byte

func (b bufferSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b)), nil
}

// readerSource wraps a caller-supplied stream. Single use.
type readerSource struct {
	r io.Reader
}

func (s *readerSource) Open() (io.ReadCloser, error) {
	if s.r == nil {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}
	if rc, ok := s.r.(io.ReadCloser); ok {
		return rc, nil
	}
	return io.NopCloser(s.r), nil
}

// openSource defers resource acquisition until the entry is consumed,
// bounding open file descriptors to the single in-flight entry.
type openSource func() (io.ReadCloser, error)

func (f openSource) Open() (io.ReadCloser, error) {
	return f()
}
