package arcstream

import "sync/atomic"

// Stats is a point-in-time snapshot of the pipeline counters.
//
// Filesystem byte totals are advisory: sizes are discovered
// asynchronously and may still be growing while already-discovered
// entries are being processed.
type Stats struct {
	// EntriesTotal is the number of entries submitted, minus entries
	// dropped by resolution failures.
	EntriesTotal int64

	// EntriesProcessed is the number of entries the encoder has accepted.
	EntriesProcessed int64

	// FSBytesTotal is the expected content byte count across entries
	// whose size is known.
	FSBytesTotal uint64

	// FSBytesProcessed is the content byte count of processed entries.
	FSBytesProcessed uint64
}

// ProgressEvent is emitted after each entry the encoder accepts.
type ProgressEvent struct {
	// Name is the archive path of the entry just processed.
	Name string

	// EntriesTotal and EntriesProcessed mirror Stats.
	EntriesTotal     int64
	EntriesProcessed int64

	// BytesTotal and BytesProcessed mirror the filesystem byte counters.
	BytesTotal     uint64
	BytesProcessed uint64
}

// ProgressFunc receives progress updates. Implementations must be safe
// for concurrent calls.
type ProgressFunc func(ProgressEvent)

// counters holds the process-wide-per-instance counters. All fields are
// monotonically non-decreasing except entriesTotal, which resolution
// failures decrement.
type counters struct {
	entriesTotal atomic.Int64
	entriesDone  atomic.Int64
	bytesTotal   atomic.Uint64
	bytesDone    atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		EntriesTotal:     c.entriesTotal.Load(),
		EntriesProcessed: c.entriesDone.Load(),
		FSBytesTotal:     c.bytesTotal.Load(),
		FSBytesProcessed: c.bytesDone.Load(),
	}
}
