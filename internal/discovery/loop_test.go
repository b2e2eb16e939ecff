package discovery

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"jobmatch/internal/infrastructure/cache"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDiscoverer struct {
	calls   int32
	err     error
	panicOn string
}

func (f *fakeDiscoverer) Discover(ctx context.Context, req Request) (Batch, error) {
	atomic.AddInt32(&f.calls, 1)
	if req.SearchTerm == f.panicOn {
		panic("boom")
	}
	if f.err != nil {
		return Batch{}, f.err
	}
	return Batch{Request: req, Candidates: []Candidate{{QualityScore: 100}}}, nil
}

type recordingSink struct {
	mu      sync.Mutex
	batches []Batch
	err     error
}

func (s *recordingSink) Persist(ctx context.Context, b Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, b)
	return s.err
}

type recordingNotifier struct {
	count int32
}

func (n *recordingNotifier) DiscoveryCompleted(ctx context.Context, b Batch) {
	atomic.AddInt32(&n.count, 1)
}

func newLockStore(t *testing.T) (*miniredis.Miniredis, *cache.Redis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, cache.NewRedisWithClient(client, time.Minute, nil)
}

func TestLoopRunOnce_PersistsAndNotifies(t *testing.T) {
	mr, locks := newLockStore(t)
	d := &fakeDiscoverer{}
	sink := &recordingSink{}
	notifier := &recordingNotifier{}
	reqs := []Request{{SearchTerm: "go"}, {SearchTerm: "rust"}}

	l, err := NewLoop(d, reqs, time.Hour, nil, WithSink(sink), WithNotifier(notifier), WithLocker(locks, time.Minute))
	require.NoError(t, err)

	results := l.RunOnce(context.Background())

	require.Len(t, results, 2)
	for _, r := range results {
		assert.NoError(t, r.Err)
		assert.False(t, r.Skipped)
		assert.Equal(t, 1, r.Candidates)
	}
	assert.Len(t, sink.batches, 2)
	assert.Equal(t, int32(2), notifier.count)
	assert.False(t, mr.Exists(lockKeyPrefix+reqs[0].Key()), "lock must be released")
}

func TestLoopRunOnce_SkipsLockedRequests(t *testing.T) {
	mr, locks := newLockStore(t)
	d := &fakeDiscoverer{}
	reqs := []Request{{SearchTerm: "go"}, {SearchTerm: "rust"}}
	require.NoError(t, mr.Set(lockKeyPrefix+reqs[0].Key(), "other-replica"))

	l, err := NewLoop(d, reqs, time.Hour, nil, WithLocker(locks, time.Minute))
	require.NoError(t, err)

	results := l.RunOnce(context.Background())

	require.Len(t, results, 2)
	assert.True(t, results[0].Skipped)
	assert.False(t, results[1].Skipped)
	assert.Equal(t, int32(1), d.calls)

	v, err := mr.Get(lockKeyPrefix + reqs[0].Key())
	require.NoError(t, err)
	assert.Equal(t, "other-replica", v, "a lock held by another replica is left alone")
}

func TestLoopRunOnce_RunsUnlockedWhenRedisIsDown(t *testing.T) {
	d := &fakeDiscoverer{}
	locks := cache.NewRedisWithClient(nil, time.Minute, nil)

	l, err := NewLoop(d, []Request{{SearchTerm: "go"}}, time.Hour, nil, WithLocker(locks, time.Minute))
	require.NoError(t, err)

	results := l.RunOnce(context.Background())
	require.Len(t, results, 1)
	assert.False(t, results[0].Skipped)
	assert.Equal(t, int32(1), d.calls)
}

func TestLoopRunOnce_IsolatesFailures(t *testing.T) {
	d := &fakeDiscoverer{panicOn: "go"}
	sink := &recordingSink{err: errors.New("db down")}

	l, err := NewLoop(d, []Request{{SearchTerm: "go"}, {SearchTerm: "rust"}}, time.Hour, nil, WithSink(sink))
	require.NoError(t, err)

	results := l.RunOnce(context.Background())

	require.Len(t, results, 2)
	assert.EqualError(t, results[0].Err, "panic: boom")
	assert.ErrorContains(t, results[1].Err, "persist batch: db down")
}

func TestLoopRunOnce_StopsBetweenRequestsOnCancel(t *testing.T) {
	d := &fakeDiscoverer{}
	l, err := NewLoop(d, []Request{{SearchTerm: "go"}, {SearchTerm: "rust"}}, time.Hour, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Empty(t, l.RunOnce(ctx))
	assert.Equal(t, int32(0), d.calls)
}

func TestLoopStartRunsImmediately(t *testing.T) {
	d := &fakeDiscoverer{}
	l, err := NewLoop(d, []Request{{SearchTerm: "go"}}, time.Hour, nil)
	require.NoError(t, err)

	require.NoError(t, l.Start(context.Background()))
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&d.calls) == 1 }, 2*time.Second, 10*time.Millisecond)
	l.Stop()
}

func TestLoopStopReturnsWithLiveContext(t *testing.T) {
	l, err := NewLoop(&fakeDiscoverer{}, []Request{{SearchTerm: "go"}}, time.Hour, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, l.Start(ctx))

	stopped := make(chan struct{})
	go func() {
		l.Stop()
		l.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return while ctx was still live")
	}
	assert.NoError(t, ctx.Err())
}

func TestNewLoopValidates(t *testing.T) {
	_, err := NewLoop(nil, nil, time.Hour, nil)
	assert.Error(t, err)

	_, err = NewLoop(&fakeDiscoverer{}, nil, 0, nil)
	assert.Error(t, err)

	_, err = NewLoop(&fakeDiscoverer{}, []Request{{SearchTerm: ""}}, time.Hour, nil)
	assert.Error(t, err)
}

func TestParseRequests(t *testing.T) {
	got := ParseRequests([]string{"golang developer", "data engineer | Berlin", "  ", "|Paris"}, "", 20, 7)

	assert.Equal(t, []Request{
		{SearchTerm: "golang developer", Location: "Remote", MaxResults: 20, MaxAgeDays: 7},
		{SearchTerm: "data engineer", Location: "Berlin", MaxResults: 20, MaxAgeDays: 7},
	}, got)
}
