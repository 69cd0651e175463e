// Package arcstream provides a streaming entry-ingestion pipeline for
// archive encoders.
//
// A [Pipeline] collects heterogeneous inputs (in-memory buffers, byte
// streams, filesystem files, directory trees, glob matches, and synthetic
// symlinks), resolves each into a normalized [Header] plus a byte source,
// and hands them strictly one at a time to a pluggable [Encoder]. The
// encoder's output flows through the pipeline into the caller's writer;
// [Pipeline.BytesWritten] tracks the cumulative output size.
//
// The pipeline does not implement any container format. Encoders own the
// binary layout, compression, and checksums; the tarenc subpackage
// provides a tar encoder with optional zstd compression.
//
// # Quick Start
//
// Archive a directory tree into a tar stream:
//
//	f, err := os.Create("out.tar")
//	if err != nil {
//	    return err
//	}
//	p, err := arcstream.New(f, tarenc.Factory())
//	if err != nil {
//	    return err
//	}
//	p.Append([]byte("hello\n"), arcstream.Entry{Name: "hello.txt"})
//	p.AppendDir("./src", arcstream.DirWithPrefix("src"))
//	p.Finalize()
//	err = p.Wait(ctx)
//
// # Ordering
//
// Entries appended from buffers, streams, and symlinks, along with
// traversal matches, reach the encoder in submission order. Entries
// appended by path ([Pipeline.AppendFile]) pass through a concurrent stat
// resolution stage first and join the encoder queue in stat-completion
// order, which may differ from submission order.
//
// # Backpressure
//
// Directory and glob traversals submit one entry at a time and do not
// advance until the encoder has consumed it, so a slow encoder naturally
// stalls the walk and bounds in-flight filesystem entries.
//
// # Failure Model
//
// Per-entry problems (a failed stat, an entry the encoder rejects) never
// fail the pipeline; they are reported through the error callback and the
// logger while remaining entries continue. Only structural misuse and
// encoder finalization failures reject the result of [Pipeline.Wait].
package arcstream
