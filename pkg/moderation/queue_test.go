package moderation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPrefix = "test:moderation"

func newTestQueue(t *testing.T, maxAttempts int) (*RedisQueue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisQueue(client, testPrefix, maxAttempts), mr
}

func TestQueueEnqueueDequeueAck(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue(t, 3)

	require.NoError(t, q.Enqueue(ctx, Job{Kind: KindPost, ContentID: "a"}))
	require.NoError(t, q.Enqueue(ctx, Job{Kind: KindComment, ContentID: "b"}))

	d, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, Job{Kind: KindPost, ContentID: "a"}, d.Job, "first in, first out")

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, QueueStats{Pending: 1, Processing: 1}, stats)

	require.NoError(t, q.Ack(ctx, d))
	stats, err = q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, QueueStats{Pending: 1}, stats)
}

func TestQueueRejectsUnknownKind(t *testing.T) {
	q, _ := newTestQueue(t, 3)
	err := q.Enqueue(context.Background(), Job{Kind: "video", ContentID: "a"})
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestQueueRetryThenDeadLetter(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue(t, 2)

	require.NoError(t, q.Enqueue(ctx, Job{Kind: KindPost, ContentID: "a"}))

	d, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	dead, err := q.Retry(ctx, d)
	require.NoError(t, err)
	assert.False(t, dead)

	d, err = q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, d.Job.Attempts)

	dead, err = q.Retry(ctx, d)
	require.NoError(t, err)
	assert.True(t, dead)

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, QueueStats{Dead: 1}, stats)
}

func TestQueueMalformedPayloadIsBuried(t *testing.T) {
	ctx := context.Background()
	q, mr := newTestQueue(t, 3)

	_, err := mr.Lpush(testPrefix+":pending", "{not json")
	require.NoError(t, err)

	d, err := q.Dequeue(ctx, time.Second)
	assert.Nil(t, d)
	assert.ErrorIs(t, err, ErrMalformedJob)

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, QueueStats{Dead: 1}, stats)
}

func TestQueueRecover(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue(t, 3)

	for _, id := range []string{"a", "b"} {
		require.NoError(t, q.Enqueue(ctx, Job{Kind: KindPost, ContentID: id}))
		_, err := q.Dequeue(ctx, time.Second)
		require.NoError(t, err)
	}

	n, err := q.Recover(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, QueueStats{Pending: 2}, stats)

	d, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "a", d.Job.ContentID)
}

type runnerFunc func(ctx context.Context, job Job) error

func (f runnerFunc) Run(ctx context.Context, job Job) error { return f(ctx, job) }

func TestWorkerProcess(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue(t, 2)
	metrics := NewMetrics(prometheus.NewRegistry(), "test")

	failing := runnerFunc(func(context.Context, Job) error { return errors.New("db down") })
	w := NewWorker(q, failing, WorkerConfig{Workers: 1}, nil, metrics)

	require.NoError(t, q.Enqueue(ctx, Job{Kind: KindSalary, ContentID: "s1"}))
	for i := 0; i < 2; i++ {
		d, err := q.Dequeue(ctx, time.Second)
		require.NoError(t, err)
		require.NotNil(t, d)
		w.Process(ctx, d)
	}

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, QueueStats{Dead: 1}, stats)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.DeadLetters.WithLabelValues("salary")))
}

func TestWorkerBuriesUnknownKind(t *testing.T) {
	ctx := context.Background()
	q, mr := newTestQueue(t, 5)
	metrics := NewMetrics(prometheus.NewRegistry(), "test")

	runner := runnerFunc(func(_ context.Context, job Job) error {
		_, err := newRecord(job.Kind)
		return err
	})
	w := NewWorker(q, runner, WorkerConfig{Workers: 1}, nil, metrics)

	_, err := mr.Lpush(testPrefix+":pending", `{"kind":"video","contentId":"v1"}`)
	require.NoError(t, err)

	d, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	w.Process(ctx, d)

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, QueueStats{Dead: 1}, stats)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.DeadLetters.WithLabelValues("video")))
}

func TestWorkerRunDrainsQueue(t *testing.T) {
	q, _ := newTestQueue(t, 3)

	var mu sync.Mutex
	seen := map[string]bool{}
	done := make(chan struct{})
	runner := runnerFunc(func(_ context.Context, job Job) error {
		mu.Lock()
		defer mu.Unlock()
		seen[job.ContentID] = true
		if len(seen) == 3 {
			close(done)
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, q.Enqueue(ctx, Job{Kind: KindPost, ContentID: id}))
	}

	w := NewWorker(q, runner, WorkerConfig{Workers: 2, PollTimeout: time.Second, TaskTimeout: time.Second}, nil, nil)
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("workers did not drain the queue")
	}
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("workers did not stop")
	}
}
