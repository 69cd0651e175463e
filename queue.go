package arcstream

import "sync"

// task is the unit of work on either queue. Stat-resolution tasks carry
// path and entry; once resolved (or for direct appends) hdr and src are
// set. done, when non-nil, is closed after the task leaves the pipeline
// and is the resume hook for paused traversals.
type task struct {
	path  string
	entry Entry

	hdr *Header
	src source

	done chan struct{}
}

// workQueue is an unbounded FIFO feeding one or more workers. idle
// reports whether no task is queued or being worked on, which gates
// finalization.
type workQueue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending []*task
	active  int
	closed  bool
}

func newWorkQueue() *workQueue {
	q := &workQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// push enqueues a task. It reports false once the queue is closed.
func (q *workQueue) push(t *task) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.pending = append(q.pending, t)
	q.cond.Signal()
	return true
}

// pop blocks until a task is available or the queue is closed with no
// pending work. The caller must pair every successful pop with finish.
func (q *workQueue) pop() (*task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.pending) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.pending) == 0 {
		return nil, false
	}
	t := q.pending[0]
	q.pending = q.pending[1:]
	q.active++
	return t, true
}

func (q *workQueue) finish() {
	q.mu.Lock()
	q.active--
	q.mu.Unlock()
}

func (q *workQueue) idle() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending) == 0 && q.active == 0
}

func (q *workQueue) depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// kill closes the queue and drops queued-but-not-started tasks, returning
// them so their resume hooks can be released. In-flight tasks are not
// interrupted. Idempotent.
func (q *workQueue) kill() []*task {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed && q.pending == nil {
		return nil
	}
	q.closed = true
	dropped := q.pending
	q.pending = nil
	q.cond.Broadcast()
	return dropped
}
