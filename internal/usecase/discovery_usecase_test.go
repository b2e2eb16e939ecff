package usecase

import (
	"context"
	"testing"
	"time"

	"jobmatch/internal/apperr"
	"jobmatch/internal/discovery"
	"jobmatch/internal/domain/job"
	"jobmatch/internal/infrastructure/cache"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResultCache(t *testing.T) (*miniredis.Miniredis, *cache.Redis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, cache.NewRedisWithClient(client, time.Minute, nil)
}

func sampleBatch() discovery.Batch {
	posted := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	return discovery.Batch{
		Candidates: []discovery.Candidate{
			{
				Posting: job.Posting{
					Title:       "Senior Go Engineer",
					Company:     "Acme",
					Location:    "Remote",
					Description: "Build Go services on PostgreSQL.",
					URL:         "https://example.com/jobs/1",
					PostedAt:    &posted,
					Source:      "remoteok",
				},
				QualityScore: 95,
				Freshness:    "this week",
			},
		},
		Fetched:  3,
		Rejected: map[string]int{discovery.RejectSpam: 2},
	}
}

func TestDiscovery_CachesPersistsAndNotifies(t *testing.T) {
	_, rc := newResultCache(t)
	d := &fakeDiscoverer{batch: sampleBatch()}
	jobs := &fakeJobRepo{}
	n := &countingNotifier{}
	uc := NewDiscoveryUsecase(d, jobs, nil, WithResultCache(rc, time.Minute), WithDiscoveryNotifier(n))

	req := discovery.Request{SearchTerm: " Go Engineer "}
	first, err := uc.Discover(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, 1, first.Stored.Inserted)
	assert.Equal(t, "Go Engineer", first.Batch.Request.SearchTerm)
	assert.Equal(t, discovery.DefaultLocation, first.Batch.Request.Location)

	second, err := uc.Discover(context.Background(), discovery.Request{SearchTerm: "go engineer"})
	require.NoError(t, err)
	assert.True(t, second.Cached)
	require.Len(t, second.Batch.Candidates, 1)
	assert.Equal(t, 95, second.Batch.Candidates[0].QualityScore)
	assert.Equal(t, 2, second.Batch.Rejected[discovery.RejectSpam])

	assert.Equal(t, 1, d.count())
	assert.Equal(t, 1, jobs.calls())
	assert.Len(t, n.batches, 1)
}

func TestDiscovery_PersistMapsCandidates(t *testing.T) {
	jobs := &fakeJobRepo{}
	uc := NewDiscoveryUsecase(&fakeDiscoverer{}, jobs, nil)

	require.NoError(t, uc.Persist(context.Background(), sampleBatch()))

	require.Equal(t, 1, jobs.calls())
	got := jobs.upserted[0]
	require.Len(t, got, 1)
	assert.Equal(t, 95, got[0].QualityScore)
	assert.Equal(t, "Senior Go Engineer", got[0].Job.Title)
	assert.Equal(t, job.ExternalID("remoteok", "https://example.com/jobs/1"), got[0].Job.ExternalID)
	assert.Equal(t, job.LevelSenior, got[0].Job.ExperienceLevel)
	assert.Contains(t, got[0].Job.RequiredSkills, "go")

	require.NoError(t, uc.Persist(context.Background(), discovery.Batch{}))
	assert.Equal(t, 1, jobs.calls(), "empty batches are not written")
}

func TestDiscovery_RejectsBadRequest(t *testing.T) {
	d := &fakeDiscoverer{}
	uc := NewDiscoveryUsecase(d, &fakeJobRepo{}, nil)

	_, err := uc.Discover(context.Background(), discovery.Request{SearchTerm: "  "})
	assert.Equal(t, apperr.KindInput, apperr.KindOf(err))
	assert.Equal(t, 0, d.count())
}

func TestDiscovery_PersistFailureIsReturned(t *testing.T) {
	mr, rc := newResultCache(t)
	jobs := &fakeJobRepo{err: errBoom}
	uc := NewDiscoveryUsecase(&fakeDiscoverer{batch: sampleBatch()}, jobs, nil, WithResultCache(rc, time.Minute))

	req := discovery.Request{SearchTerm: "go"}
	_, err := uc.Discover(context.Background(), req)
	assert.ErrorIs(t, err, errBoom)
	assert.False(t, mr.Exists(discoveryResultPrefix+req.Key()), "failed runs are not cached")
	assert.False(t, mr.Exists(discovery.LockKey(req)), "lock must be released")
}

func TestDiscovery_WaitsForLockHolderThenFallsBack(t *testing.T) {
	mr, rc := newResultCache(t)
	d := &fakeDiscoverer{batch: sampleBatch()}
	uc := NewDiscoveryUsecase(d, &fakeJobRepo{}, nil, WithResultCache(rc, time.Minute))
	uc.lockWait = 10 * time.Millisecond

	req := discovery.Request{SearchTerm: "go"}
	require.NoError(t, mr.Set(discovery.LockKey(req), "loop"))

	res, err := uc.Discover(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.Equal(t, 1, d.count())

	v, err := mr.Get(discovery.LockKey(req))
	require.NoError(t, err)
	assert.Equal(t, "loop", v, "a lock held elsewhere is left alone")
}

func TestDiscovery_RunsWithoutRedis(t *testing.T) {
	d := &fakeDiscoverer{batch: sampleBatch()}
	uc := NewDiscoveryUsecase(d, &fakeJobRepo{}, nil, WithResultCache(cache.NewRedisWithClient(nil, 0, nil), time.Minute))

	for i := 0; i < 2; i++ {
		res, err := uc.Discover(context.Background(), discovery.Request{SearchTerm: "go"})
		require.NoError(t, err)
		assert.False(t, res.Cached)
	}
	assert.Equal(t, 2, d.count())
}
