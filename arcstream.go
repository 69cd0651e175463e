package arcstream

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// DefaultStatConcurrency bounds concurrent filesystem stat calls in the
// resolution stage.
const DefaultStatConcurrency = 4

// lifecycle states. aborted and finalized are terminal.
type state uint8

const (
	stateActive state = iota
	stateFinalizeRequested
	stateFinalizing
	stateFinalized
	stateAborted
)

// Pipeline feeds entries into an archive encoder, one at a time, and
// exposes the encoder's output as a single continuous byte stream into
// the destination writer.
//
// All methods are safe for concurrent use.
type Pipeline struct {
	cfg      config
	enc      Encoder
	finalize func() error
	out      *outputWriter

	supportsDir     bool
	supportsSymlink bool

	// statQ resolves entries appended without known stats; appendQ hands
	// entries to the encoder strictly one at a time.
	statQ   *workQueue
	appendQ *workQueue
	statSem *semaphore.Weighted

	// pending counts in-flight traversals; finalize waits for zero.
	pending atomic.Int64

	cnt counters

	mu   sync.Mutex
	st   state
	err  error
	done chan struct{}
	once sync.Once
}

// New creates a Pipeline writing encoder output to dst. The encoder is
// constructed by newEnc over the pipeline's counting pass-through writer.
//
// New fails with ErrNoFinalize if the encoder implements neither
// [Finalizer] nor [io.Closer].
func New(dst io.Writer, newEnc EncoderFactory, opts ...Option) (*Pipeline, error) {
	cfg := config{statConcurrency: DefaultStatConcurrency}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}

	out := &outputWriter{w: dst}
	enc, err := newEnc(out)
	if err != nil {
		return nil, fmt.Errorf("create encoder: %w", err)
	}

	var finalize func() error
	switch e := enc.(type) {
	case Finalizer:
		finalize = e.Finalize
	case io.Closer:
		finalize = e.Close
	default:
		return nil, ErrNoFinalize
	}

	p := &Pipeline{
		cfg:             cfg,
		enc:             enc,
		finalize:        finalize,
		out:             out,
		supportsDir:     true,
		supportsSymlink: true,
		statQ:           newWorkQueue(),
		appendQ:         newWorkQueue(),
		statSem:         semaphore.NewWeighted(cfg.statConcurrency),
		done:            make(chan struct{}),
	}
	if c, ok := enc.(Capabilities); ok {
		p.supportsDir = c.SupportsDirectories()
		p.supportsSymlink = c.SupportsSymlinks()
	}

	go p.runAppendQueue()
	go p.runStatQueue()
	return p, nil
}

// Append adds an in-memory buffer as an entry. A name ending in "/"
// produces a directory entry and the buffer is ignored.
func (p *Pipeline) Append(data []byte, e Entry) error {
	return p.appendSource(bufferSource(data), int64(len(data)), e)
}

// AppendReader adds a byte stream as an entry. The reader is consumed
// when the entry reaches the encoder; if it implements io.Closer it is
// closed afterward.
func (p *Pipeline) AppendReader(r io.Reader, e Entry) error {
	return p.appendSource(&readerSource{r: r}, -1, e)
}

func (p *Pipeline) appendSource(src source, size int64, e Entry) error {
	if err := p.appendable(); err != nil {
		return p.fail(err)
	}
	hdr := normalize(e, TypeFile, nil, "", "", time.Now())
	if hdr.Name == "" {
		return p.fail(ErrNameRequired)
	}
	if hdr.Type == TypeDir {
		if !p.supportsDir {
			return p.fail(fmt.Errorf("%w: %s", ErrDirectoryUnsupported, hdr.Name))
		}
		src, size = bufferSource(nil), 0
	}
	hdr.Size = size
	return p.enqueue(&task{hdr: hdr, src: src})
}

// AppendFile adds a filesystem entry by path. The entry's stats are
// resolved on a bounded-concurrency queue, so entries appended this way
// reach the encoder in stat-completion order, not call order. Symlinks
// are preserved, not followed.
//
// e.Name defaults to the source path.
func (p *Pipeline) AppendFile(path string, e Entry) error {
	if path == "" {
		return p.fail(ErrPathRequired)
	}
	if err := p.appendable(); err != nil {
		return p.fail(err)
	}
	if e.Name == "" {
		e.Name = filepath.ToSlash(path)
	}
	p.cnt.entriesTotal.Add(1)
	if !p.statQ.push(&task{path: path, entry: e}) {
		p.cnt.entriesTotal.Add(-1)
		return p.fail(p.closedErr())
	}
	return nil
}

// AppendSymlink adds a synthetic symlink entry pointing at target. A zero
// mode uses DefaultFileMode.
func (p *Pipeline) AppendSymlink(name, target string, mode fs.FileMode) error {
	if name == "" {
		return p.fail(ErrNameRequired)
	}
	if target == "" {
		return p.fail(ErrTargetRequired)
	}
	if err := p.appendable(); err != nil {
		return p.fail(err)
	}
	if !p.supportsSymlink {
		return p.fail(fmt.Errorf("%w: %s", ErrSymlinkUnsupported, name))
	}
	e := Entry{Name: name}
	if mode != 0 {
		e.Mode = &mode
	}
	hdr := normalize(e, TypeSymlink, nil, target, "", time.Now())
	if hdr.Name == "" {
		return p.fail(ErrNameRequired)
	}
	return p.enqueue(&task{hdr: hdr, src: bufferSource(nil)})
}

// enqueue accounts for and queues a fully-resolved task.
func (p *Pipeline) enqueue(t *task) error {
	p.cnt.entriesTotal.Add(1)
	if t.hdr.Size > 0 {
		p.cnt.bytesTotal.Add(uint64(t.hdr.Size))
	}
	if !p.appendQ.push(t) {
		p.cnt.entriesTotal.Add(-1)
		return p.fail(p.closedErr())
	}
	return nil
}

// closedErr maps a failed queue push to the lifecycle error that caused
// the queue to close.
func (p *Pipeline) closedErr() error {
	if p.aborted() {
		return ErrAborted
	}
	return ErrFinalizeRequested
}

// Finalize requests finalization: once both queues drain and no traversal
// is pending, the encoder is told to flush and close the archive.
// Finalize itself does not block; use Wait for the completion signal.
func (p *Pipeline) Finalize() error {
	p.mu.Lock()
	switch p.st {
	case stateAborted:
		p.mu.Unlock()
		return p.fail(ErrAborted)
	case stateActive:
	default:
		p.mu.Unlock()
		return p.fail(ErrFinalizeRequested)
	}
	p.st = stateFinalizeRequested
	p.mu.Unlock()

	p.maybeFinalize()
	return nil
}

// Abort cancels all queued-but-not-started work, detaches the encoder's
// output from the destination, and settles the pipeline with ErrAborted.
// Entries already handed to the encoder are not waited for; delivery of
// bytes the encoder has buffered is best-effort. Abort is idempotent and
// a no-op once the pipeline has finalized.
func (p *Pipeline) Abort() error {
	p.mu.Lock()
	if p.st == stateAborted || p.st == stateFinalized {
		p.mu.Unlock()
		return nil
	}
	p.st = stateAborted
	p.mu.Unlock()

	p.release(p.statQ.kill()...)
	p.release(p.appendQ.kill()...)
	p.out.detach()
	p.finish(ErrAborted)
	return nil
}

// Wait blocks until the pipeline has finalized or aborted. It returns nil
// on successful finalization, ErrAborted after Abort, or the encoder's
// finalization error.
func (p *Pipeline) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.done:
		return p.err
	}
}

// BytesWritten returns the cumulative number of encoder output bytes
// forwarded to the destination writer.
func (p *Pipeline) BytesWritten() uint64 {
	return p.out.n.Load()
}

// Stats returns a snapshot of the entry and byte counters.
func (p *Pipeline) Stats() Stats {
	return p.cnt.snapshot()
}

func (p *Pipeline) appendable() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch p.st {
	case stateActive:
		return nil
	case stateAborted:
		return ErrAborted
	default:
		return ErrFinalizeRequested
	}
}

func (p *Pipeline) aborted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.st == stateAborted
}

// fail reports a configuration error both ways: through the error
// callback and as the return value of the public operation.
func (p *Pipeline) fail(err error) error {
	p.emitError(err)
	return err
}

func (p *Pipeline) emitError(err error) {
	p.cfg.logger.Error("pipeline error", "error", err)
	if p.cfg.onError != nil {
		p.cfg.onError(err)
	}
}

func (p *Pipeline) emitProgress(name string) {
	if p.cfg.progress == nil {
		return
	}
	s := p.cnt.snapshot()
	p.cfg.progress(ProgressEvent{
		Name:             name,
		EntriesTotal:     s.EntriesTotal,
		EntriesProcessed: s.EntriesProcessed,
		BytesTotal:       s.FSBytesTotal,
		BytesProcessed:   s.FSBytesProcessed,
	})
}

// release closes the resume hooks of tasks leaving the pipeline,
// unblocking any traversal waiting on them.
func (p *Pipeline) release(tasks ...*task) {
	for _, t := range tasks {
		if t != nil && t.done != nil {
			close(t.done)
		}
	}
}

// runAppendQueue is the strictly-sequential hand-off to the encoder: the
// queue does not advance until the previous entry's Append has returned.
func (p *Pipeline) runAppendQueue() {
	for {
		t, ok := p.appendQ.pop()
		if !ok {
			return
		}
		p.processAppend(t)
		p.appendQ.finish()
		p.release(t)
		p.maybeFinalize()
	}
}

func (p *Pipeline) processAppend(t *task) {
	if p.aborted() {
		return
	}
	rc, err := t.src.Open()
	if err != nil {
		p.cnt.entriesTotal.Add(-1)
		p.emitError(fmt.Errorf("open %s: %w", t.hdr.Name, err))
		return
	}
	err = p.enc.Append(t.hdr, rc)
	if cerr := rc.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		p.emitError(fmt.Errorf("append %s: %w", t.hdr.Name, err))
		return
	}
	p.cnt.entriesDone.Add(1)
	if t.hdr.Size > 0 {
		p.cnt.bytesDone.Add(uint64(t.hdr.Size))
	}
	p.cfg.logger.Debug("entry appended", "name", t.hdr.Name, "type", t.hdr.Type, "size", t.hdr.Size)
	if p.cfg.onEntry != nil {
		p.cfg.onEntry(t.hdr)
	}
	p.emitProgress(t.hdr.Name)
}

// runStatQueue dispatches stat resolution tasks to semaphore-gated
// goroutines. Completion order across tasks is unspecified.
func (p *Pipeline) runStatQueue() {
	ctx := context.Background()
	for {
		t, ok := p.statQ.pop()
		if !ok {
			return
		}
		if err := p.statSem.Acquire(ctx, 1); err != nil {
			p.statQ.finish()
			return
		}
		go func(t *task) {
			defer p.statSem.Release(1)
			p.resolveStat(t)
			p.statQ.finish()
			p.maybeFinalize()
		}(t)
	}
}

// resolveStat performs the symlink-preserving stat lookup for one task
// and, on success, routes the resolved task to the append queue.
func (p *Pipeline) resolveStat(t *task) {
	if p.aborted() {
		p.release(t)
		return
	}
	info, err := os.Lstat(t.path)
	if err != nil {
		p.cnt.entriesTotal.Add(-1)
		p.cfg.logger.Warn("stat failed, entry dropped", "path", t.path, "error", err)
		p.release(t)
		return
	}

	typ, linkname, err := p.resolveKind(info, func() (string, error) {
		return readLink(t.path)
	})
	if err != nil {
		p.cnt.entriesTotal.Add(-1)
		p.emitError(fmt.Errorf("%w: %s", err, t.path))
		p.release(t)
		return
	}

	hdr := normalize(t.entry, typ, info, linkname, t.path, time.Now())
	if hdr.Name == "" {
		p.cnt.entriesTotal.Add(-1)
		p.emitError(fmt.Errorf("%w: %s", ErrNameRequired, t.path))
		p.release(t)
		return
	}

	t.hdr = hdr
	if typ == TypeFile {
		path := t.path
		t.src = openSource(func() (io.ReadCloser, error) {
			return os.Open(path)
		})
		if hdr.Size > 0 {
			p.cnt.bytesTotal.Add(uint64(hdr.Size))
		}
	} else {
		t.src = bufferSource(nil)
	}
	if !p.appendQ.push(t) {
		p.release(t)
	}
}

// resolveKind classifies stat info into an entry type, honoring the
// encoder's capabilities. readlink is only invoked for symlinks.
func (p *Pipeline) resolveKind(info fs.FileInfo, readlink func() (string, error)) (EntryType, string, error) {
	mode := info.Mode()
	switch {
	case mode.IsRegular():
		return TypeFile, "", nil
	case mode.IsDir():
		if !p.supportsDir {
			return 0, "", ErrDirectoryUnsupported
		}
		return TypeDir, "", nil
	case mode&fs.ModeSymlink != 0:
		if !p.supportsSymlink {
			return 0, "", ErrSymlinkUnsupported
		}
		target, err := readlink()
		if err != nil {
			return 0, "", err
		}
		return TypeSymlink, target, nil
	default:
		return 0, "", ErrEntryUnsupported
	}
}

// maybeFinalize re-evaluates the finalize gate. It runs after every
// queue-drain and traversal-end event and transitions
// finalize-requested → finalizing → finalized exactly once.
func (p *Pipeline) maybeFinalize() {
	p.mu.Lock()
	if p.st != stateFinalizeRequested || p.pending.Load() != 0 || !p.statQ.idle() || !p.appendQ.idle() {
		p.mu.Unlock()
		return
	}
	p.st = stateFinalizing
	p.mu.Unlock()

	err := p.finalize()

	p.mu.Lock()
	if p.st == stateFinalizing {
		p.st = stateFinalized
	}
	p.mu.Unlock()
	p.finish(err)
}

// finish settles the completion signal and shuts down the queue workers.
func (p *Pipeline) finish(err error) {
	p.once.Do(func() {
		p.err = err
		p.release(p.statQ.kill()...)
		p.release(p.appendQ.kill()...)
		close(p.done)
	})
}

// traversalDone marks one traversal finished and re-checks the finalize
// gate.
func (p *Pipeline) traversalDone() {
	p.pending.Add(-1)
	p.maybeFinalize()
}

// readLink resolves a symlink target, expressing absolute targets
// relative to the link's own directory.
func readLink(path string) (string, error) {
	target, err := os.Readlink(path)
	if err != nil {
		return "", err
	}
	return relativeLink(filepath.Dir(path), target), nil
}

func relativeLink(linkDir, target string) string {
	if !filepath.IsAbs(target) {
		return filepath.ToSlash(target)
	}
	rel, err := filepath.Rel(linkDir, target)
	if err != nil {
		return filepath.ToSlash(target)
	}
	return filepath.ToSlash(rel)
}
