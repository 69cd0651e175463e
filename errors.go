package arcstream

import "errors"

// Sentinel errors for pipeline misuse. These are returned synchronously
// from the public operations and also forwarded to the error callback so
// callers that only watch notifications still observe them.
var (
	// ErrAborted is returned when an operation is attempted after Abort,
	// and is the terminal result of an aborted pipeline.
	ErrAborted = errors.New("arcstream: aborted")

	// ErrFinalizeRequested is returned when an entry is appended, or
	// Finalize is called again, after finalize was already requested.
	ErrFinalizeRequested = errors.New("arcstream: finalize already requested")

	// ErrNoFinalize is returned by New when the encoder implements
	// neither Finalizer nor io.Closer.
	ErrNoFinalize = errors.New("arcstream: encoder has no finalize method")

	// ErrNameRequired is returned when an entry has an empty name after
	// normalization.
	ErrNameRequired = errors.New("arcstream: entry name required")

	// ErrPathRequired is returned when a source path or glob pattern is empty.
	ErrPathRequired = errors.New("arcstream: source path required")

	// ErrTargetRequired is returned when a symlink entry has no target.
	ErrTargetRequired = errors.New("arcstream: symlink target required")
)

// Per-entry errors surfaced through the error callback when the encoder
// cannot represent an entry kind. The entry is dropped; the pipeline
// continues.
var (
	// ErrDirectoryUnsupported indicates the encoder does not accept
	// directory entries.
	ErrDirectoryUnsupported = errors.New("arcstream: directories not supported by encoder")

	// ErrSymlinkUnsupported indicates the encoder does not accept
	// symlink entries.
	ErrSymlinkUnsupported = errors.New("arcstream: symlinks not supported by encoder")

	// ErrEntryUnsupported indicates a source that is neither a regular
	// file, directory, nor symlink (FIFO, socket, device).
	ErrEntryUnsupported = errors.New("arcstream: entry kind not supported")
)
