package arcstream

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkQueueOrder(t *testing.T) {
	t.Parallel()

	q := newWorkQueue()
	a := &task{path: "a"}
	b := &task{path: "b"}
	require.True(t, q.push(a))
	require.True(t, q.push(b))
	assert.False(t, q.idle())

	got, ok := q.pop()
	require.True(t, ok)
	assert.Same(t, a, got)
	got, ok = q.pop()
	require.True(t, ok)
	assert.Same(t, b, got)

	// Both popped but not finished: not idle.
	assert.False(t, q.idle())
	q.finish()
	q.finish()
	assert.True(t, q.idle())
}

func TestWorkQueueKill(t *testing.T) {
	t.Parallel()

	q := newWorkQueue()
	require.True(t, q.push(&task{path: "a"}))
	require.True(t, q.push(&task{path: "b"}))

	dropped := q.kill()
	assert.Len(t, dropped, 2)
	assert.False(t, q.push(&task{path: "c"}))

	_, ok := q.pop()
	assert.False(t, ok)

	// Idempotent.
	assert.Empty(t, q.kill())
}

func TestWorkQueuePopBlocks(t *testing.T) {
	t.Parallel()

	q := newWorkQueue()
	var wg sync.WaitGroup
	wg.Add(1)
	var got *task
	go func() {
		defer wg.Done()
		got, _ = q.pop()
	}()

	time.Sleep(10 * time.Millisecond)
	want := &task{path: "a"}
	require.True(t, q.push(want))
	wg.Wait()
	assert.Same(t, want, got)
}
