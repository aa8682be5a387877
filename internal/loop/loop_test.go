package loop

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoop_PostDoesNotRunSynchronously(t *testing.T) {
	l := New()

	ran := false
	l.Post(func() { ran = true })

	assert.False(t, ran, "task must wait for a later turn")
	assert.Equal(t, 1, l.Pending())

	assert.Equal(t, 1, l.RunPending())
	assert.True(t, ran)
}

func TestLoop_FIFO(t *testing.T) {
	l := New()

	var order []string
	for _, s := range []string{"A", "B", "C"} {
		l.Post(func() { order = append(order, s) })
	}
	l.RunPending()

	assert.Equal(t, []string{"A", "B", "C"}, order)
}

func TestLoop_RunPendingRunsNestedPosts(t *testing.T) {
	l := New()

	var order []int
	l.Post(func() {
		order = append(order, 1)
		l.Post(func() { order = append(order, 3) })
	})
	l.Post(func() { order = append(order, 2) })

	assert.Equal(t, 3, l.RunPending())
	assert.Equal(t, []int{1, 2, 3}, order)
	assert.Equal(t, 0, l.Pending())
}

func TestLoop_RunStopsOnCancel(t *testing.T) {
	l := New()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	var wg sync.WaitGroup
	wg.Add(1)
	l.Post(func() { wg.Done() })
	wg.Wait()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	assert.False(t, l.Post(func() {}), "post after shutdown should fail")
}

func TestLoop_RunStopsOnStop(t *testing.T) {
	l := New()

	done := make(chan error, 1)
	go func() { done <- l.Run(context.Background()) }()

	l.Stop()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}
}
