package arcstream

import "io"

// Encoder serializes entries into a container byte format. Implementations
// write their output to the writer supplied by the pipeline at
// construction time.
//
// Append is never called concurrently and never called again before the
// previous call has returned; the pipeline serializes all hand-offs.
type Encoder interface {
	// Append writes one entry. src supplies the entry content; for
	// directories and symlinks it reads as empty. The returned error
	// fails only this entry, not the pipeline.
	Append(hdr *Header, src io.Reader) error
}

// EncoderFactory constructs an encoder over the pipeline's output writer.
type EncoderFactory func(w io.Writer) (Encoder, error)

// Finalizer is implemented by encoders that flush and close their
// container when no further entries will arrive. Encoders implementing
// neither Finalizer nor io.Closer are rejected by New with ErrNoFinalize.
type Finalizer interface {
	Finalize() error
}

// Capabilities reports which entry kinds an encoder accepts beyond
// regular files. Encoders that do not implement it are assumed to accept
// directories and symlinks.
type Capabilities interface {
	SupportsDirectories() bool
	SupportsSymlinks() bool
}
