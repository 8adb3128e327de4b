package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lab-production-engine/internal/entity"
	"lab-production-engine/internal/worker"
)

// chanQueue hands out ids from a channel and records acks.
type chanQueue struct {
	ids chan string

	mu    sync.Mutex
	acked []string
}

func newChanQueue(ids ...string) *chanQueue {
	q := &chanQueue{ids: make(chan string, len(ids))}
	for _, id := range ids {
		q.ids <- id
	}
	return q
}

func (q *chanQueue) Enqueue(ctx context.Context, runID string, priority int) error {
	q.ids <- runID
	return nil
}

func (q *chanQueue) ClaimBlocking(ctx context.Context, timeout time.Duration) (string, error) {
	select {
	case id := <-q.ids:
		return id, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (q *chanQueue) Ack(ctx context.Context, runID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.acked = append(q.acked, runID)
	return nil
}

func (q *chanQueue) RequeueStale(ctx context.Context, olderThan time.Duration, maxPerLane int64) (int64, error) {
	return 0, nil
}

func (q *chanQueue) Depth(ctx context.Context) (map[string]int64, error) {
	return map[string]int64{"normal": int64(len(q.ids))}, nil
}

func (q *chanQueue) ackedIDs() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.acked...)
}

// runPoolUntil runs a one-worker pool until done is closed, then stops it and
// waits for the worker to drain.
func runPoolUntil(t *testing.T, q *chanQueue, p *worker.Processor, done <-chan struct{}) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		worker.NewPool(q, p, 1, nil).Run(ctx)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("run was never processed")
	}
	cancel()
	<-stopped
}

func TestPool_TransientReadFailureKeepsClaim(t *testing.T) {
	run := newRun(entity.RunForecast, entity.RunPending)
	read := make(chan struct{})
	repo := &fakeRunRepo{
		run:    run,
		getErr: errors.New("connection reset"),
		onGet:  func() { close(read) },
	}
	exec := &fakeExecutor{}
	q := newChanQueue(run.ID.String())

	runPoolUntil(t, q, worker.NewProcessor(repo, exec, nil, nil), read)

	assert.Empty(t, q.ackedIDs())
	assert.Zero(t, exec.calls)
}

func TestPool_AcksSettledRuns(t *testing.T) {
	run := newRun(entity.RunForecast, entity.RunPending)
	failed := newRun(entity.RunOptimize, entity.RunPending)
	q := newChanQueue(run.ID.String())

	// one finished run and one whose executor failed: both end with a final
	// status and must leave the processing list
	ok := &fakeRunRepo{run: run}
	exec := &fakeExecutor{result: &entity.ForecastReport{HorizonDays: 30}}
	runPoolUntil(t, q, worker.NewProcessor(ok, exec, nil, nil), ackedSignal(q, 1))

	q.ids <- failed.ID.String()
	bad := &fakeRunRepo{run: failed}
	runPoolUntil(t, q, worker.NewProcessor(bad, &fakeExecutor{err: errors.New("boom")}, nil, nil), ackedSignal(q, 2))

	require.Equal(t, []string{run.ID.String(), failed.ID.String()}, q.ackedIDs())
	assert.Equal(t, []entity.RunStatus{entity.RunProcessing, entity.RunError}, bad.statuses)
}

// ackedSignal closes the returned channel once q holds n acks.
func ackedSignal(q *chanQueue, n int) <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		defer close(ch)
		deadline := time.Now().Add(5 * time.Second)
		for len(q.ackedIDs()) < n && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}
	}()
	return ch
}
