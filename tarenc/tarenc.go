// Package tarenc provides a POSIX tar encoder for arcstream pipelines,
// with optional zstd compression of the output stream.
package tarenc

import (
	"archive/tar"
	"fmt"
	"io"
	"io/fs"

	"github.com/klauspost/compress/zstd"

	"github.com/meigma/arcstream"
)

// Encoder writes entries as a tar stream. It implements
// [arcstream.Encoder] and [arcstream.Finalizer], and accepts files,
// directories, and symlinks.
type Encoder struct {
	tw *tar.Writer
	zw *zstd.Encoder
}

// Option configures an Encoder.
type Option func(*config)

type config struct {
	compress bool
}

// WithZstd compresses the tar stream with zstd.
func WithZstd() Option {
	return func(cfg *config) {
		cfg.compress = true
	}
}

// New creates an Encoder writing to w.
func New(w io.Writer, opts ...Option) (*Encoder, error) {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	var zw *zstd.Encoder
	if cfg.compress {
		var err error
		zw, err = zstd.NewWriter(w, zstd.WithEncoderConcurrency(1), zstd.WithLowerEncoderMem(true))
		if err != nil {
			return nil, fmt.Errorf("create zstd encoder: %w", err)
		}
		w = zw
	}
	return &Encoder{tw: tar.NewWriter(w), zw: zw}, nil
}

// Factory adapts New to the [arcstream.EncoderFactory] shape.
func Factory(opts ...Option) arcstream.EncoderFactory {
	return func(w io.Writer) (arcstream.Encoder, error) {
		return New(w, opts...)
	}
}

// Append writes one entry to the tar stream.
//
// Tar headers carry the content size up front, so stream sources of
// unknown size are buffered in memory before the header is written.
func (e *Encoder) Append(hdr *arcstream.Header, src io.Reader) error {
	th := &tar.Header{
		Name:    hdr.Name,
		Mode:    tarMode(hdr.Mode),
		ModTime: hdr.ModTime,
		Uid:     hdr.UID,
		Gid:     hdr.GID,
	}

	switch hdr.Type {
	case arcstream.TypeDir:
		th.Typeflag = tar.TypeDir
		return e.tw.WriteHeader(th)
	case arcstream.TypeSymlink:
		th.Typeflag = tar.TypeSymlink
		th.Linkname = hdr.Linkname
		return e.tw.WriteHeader(th)
	default:
		th.Typeflag = tar.TypeReg
	}

	if hdr.Size >= 0 {
		th.Size = hdr.Size
		if err := e.tw.WriteHeader(th); err != nil {
			return err
		}
		n, err := io.Copy(e.tw, io.LimitReader(src, hdr.Size))
		if err != nil {
			return err
		}
		if n < hdr.Size {
			return fmt.Errorf("tarenc: %s: short source: %d of %d bytes", hdr.Name, n, hdr.Size)
		}
		return nil
	}

	data, err := io.ReadAll(src)
	if err != nil {
		return err
	}
	th.Size = int64(len(data))
	if err := e.tw.WriteHeader(th); err != nil {
		return err
	}
	_, err = e.tw.Write(data)
	return err
}

// Finalize writes the tar trailer and flushes the compressor.
func (e *Encoder) Finalize() error {
	if err := e.tw.Close(); err != nil {
		return err
	}
	if e.zw != nil {
		return e.zw.Close()
	}
	return nil
}

// tarMode converts fs.FileMode permission and setuid/setgid/sticky bits
// to the numeric form tar headers use.
func tarMode(m fs.FileMode) int64 {
	mode := int64(m & fs.ModePerm)
	if m&fs.ModeSetuid != 0 {
		mode |= 0o4000
	}
	if m&fs.ModeSetgid != 0 {
		mode |= 0o2000
	}
	if m&fs.ModeSticky != 0 {
		mode |= 0o1000
	}
	return mode
}
