package usecase

import (
	"context"
	"errors"
	"sync"

	"jobmatch/internal/discovery"
	"jobmatch/internal/domain/job"
	"jobmatch/internal/domain/match"
	"jobmatch/internal/domain/resume"
	"jobmatch/internal/repository"
	"jobmatch/internal/similarity"

	"github.com/google/uuid"
)

type fakeResumeRepo struct {
	items map[uuid.UUID]resume.Resume
}

func (f fakeResumeRepo) GetByID(_ context.Context, id uuid.UUID) (resume.Resume, error) {
	r, ok := f.items[id]
	if !ok {
		return resume.Resume{}, repository.ErrResumeNotFound
	}
	return r, nil
}

type fakeJobRepo struct {
	mu       sync.Mutex
	items    map[uuid.UUID]job.Job
	upserted [][]repository.DiscoveredJob
	err      error
}

func (f *fakeJobRepo) GetByID(_ context.Context, id uuid.UUID) (job.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.items[id]
	if !ok {
		return job.Job{}, repository.ErrJobNotFound
	}
	return j, nil
}

func (f *fakeJobRepo) UpsertDiscovered(_ context.Context, jobs []repository.DiscoveredJob) (repository.UpsertStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return repository.UpsertStats{}, f.err
	}
	f.upserted = append(f.upserted, jobs)
	return repository.UpsertStats{Inserted: len(jobs)}, nil
}

func (f *fakeJobRepo) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.upserted)
}

type fakeMatchRepo struct {
	stored []match.Result
	list   []match.Result
	gotMin float64
	gotLim int
}

func (f *fakeMatchRepo) Upsert(_ context.Context, m match.Result) error {
	f.stored = append(f.stored, m)
	return nil
}

func (f *fakeMatchRepo) Get(_ context.Context, resumeID, jobID uuid.UUID) (match.Result, error) {
	for _, m := range f.stored {
		if m.ResumeID == resumeID && m.JobID == jobID {
			return m, nil
		}
	}
	return match.Result{}, repository.ErrMatchNotFound
}

func (f *fakeMatchRepo) ListByResume(_ context.Context, _ uuid.UUID, minScore float64, limit int) ([]match.Result, error) {
	f.gotMin, f.gotLim = minScore, limit
	return f.list, nil
}

type fixedSimilarity struct {
	score float64
	err   error
}

func (f fixedSimilarity) Similarity(context.Context, string, string) (float64, error) {
	return f.score, f.err
}

type storedVector struct {
	id      string
	vector  []float32
	payload map[string]any
}

type fakeVectors struct {
	embedErr  error
	embedded  []string
	stored    []storedVector
	hits      []similarity.Match
	gotFilter similarity.Filter
	gotK      int
}

func (f *fakeVectors) Embed(_ context.Context, text string) ([]float32, error) {
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	f.embedded = append(f.embedded, text)
	return []float32{0.1, 0.2, 0.3}, nil
}

func (f *fakeVectors) Store(_ context.Context, id string, vector []float32, payload map[string]any) error {
	f.stored = append(f.stored, storedVector{id: id, vector: vector, payload: payload})
	return nil
}

func (f *fakeVectors) Query(_ context.Context, _ []float32, filter similarity.Filter, k int) ([]similarity.Match, error) {
	f.gotFilter, f.gotK = filter, k
	return f.hits, nil
}

type fakeDiscoverer struct {
	mu    sync.Mutex
	calls int
	batch discovery.Batch
	err   error
}

func (f *fakeDiscoverer) Discover(_ context.Context, req discovery.Request) (discovery.Batch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return discovery.Batch{}, f.err
	}
	b := f.batch
	b.Request = req
	return b, nil
}

func (f *fakeDiscoverer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type countingNotifier struct {
	mu      sync.Mutex
	batches []discovery.Batch
}

func (n *countingNotifier) DiscoveryCompleted(_ context.Context, b discovery.Batch) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.batches = append(n.batches, b)
}

var errBoom = errors.New("boom")
