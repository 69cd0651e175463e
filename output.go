package arcstream

import (
	"io"
	"sync"
	"sync/atomic"
)

// outputWriter forwards encoder output to the destination while counting
// forwarded bytes. After detach, writes succeed but are discarded, so an
// aborted pipeline's encoder can keep flushing without reaching the
// caller's writer.
type outputWriter struct {
	mu       sync.Mutex
	w        io.Writer
	n        atomic.Uint64
	detached bool
}

// Write implements io.Writer.
func (o *outputWriter) Write(p []byte) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.detached {
		return len(p), nil
	}
	n, err := o.w.Write(p)
	if n > 0 {
		o.n.Add(uint64(n)) //nolint:gosec // n is non-negative by io.Writer contract
	}
	return n, err
}

func (o *outputWriter) detach() {
	o.mu.Lock()
	o.detached = true
	o.mu.Unlock()
}
