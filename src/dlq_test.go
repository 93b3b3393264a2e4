package vdl2

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestFrameQueueOrder(t *testing.T) {
	var q = NewFrameQueue(nil)

	for i := range 5 {
		q.Push(&QueuedFrame{Index: i}) //nolint:exhaustruct
	}
	assert.Equal(t, 5, q.Len())

	for i := range 5 {
		var f, err = q.Pop(context.Background())
		require.NoError(t, err)
		assert.Equal(t, i, f.Index)
	}
	assert.Zero(t, q.Len())
}

func TestFrameQueuePopWaits(t *testing.T) {
	var q = NewFrameQueue(nil)

	var got = make(chan *QueuedFrame)
	go func() {
		var f, _ = q.Pop(context.Background())
		got <- f
	}()

	select {
	case <-got:
		t.Fatal("Pop returned from an empty queue")
	case <-time.After(20 * time.Millisecond):
	}

	q.Push(&QueuedFrame{Index: 7}) //nolint:exhaustruct

	select {
	case f := <-got:
		assert.Equal(t, 7, f.Index)
	case <-time.After(5 * time.Second):
		t.Fatal("Pop never woke up")
	}
}

func TestFrameQueuePopCancelled(t *testing.T) {
	var q = NewFrameQueue(nil)

	var ctx, cancel = context.WithCancel(context.Background())
	cancel()

	var f, err = q.Pop(ctx)
	assert.Nil(t, f)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFrameQueueDrainsBeforeCancel(t *testing.T) {
	var q = NewFrameQueue(nil)
	q.Push(&QueuedFrame{Index: 1}) //nolint:exhaustruct

	var ctx, cancel = context.WithCancel(context.Background())
	cancel()

	var f, err = q.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, f.Index)
}

func TestFrameQueueManyProducers(t *testing.T) {
	var reg = prometheus.NewRegistry()
	var stats = NewStatistics(reg)
	var q = NewFrameQueue(stats)

	const producers = 8
	const each = 50

	var wg sync.WaitGroup
	for p := range producers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range each {
				q.Push(&QueuedFrame{Freq: uint32(p), Index: i}) //nolint:exhaustruct
			}
		}()
	}

	// Per producer order is kept.
	var next = map[uint32]int{}
	for range producers * each {
		var f, err = q.Pop(context.Background())
		require.NoError(t, err)
		assert.Equal(t, next[f.Freq], f.Index)
		next[f.Freq]++
	}

	wg.Wait()
	assert.Zero(t, q.Len())
	assert.InDelta(t, 0, testutil.ToFloat64(stats.QueueLength), 0)
}
