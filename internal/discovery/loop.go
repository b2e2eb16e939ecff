package discovery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"jobmatch/internal/infrastructure/cache"
	"jobmatch/internal/logger"
	"jobmatch/internal/metrics"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const lockKeyPrefix = "discovery:lock:"

// LockKey is the distributed lock guarding one normalized request.
func LockKey(r Request) string { return lockKeyPrefix + r.Key() }

type Discoverer interface {
	Discover(ctx context.Context, req Request) (Batch, error)
}

// Sink stores the candidates of a finished batch.
type Sink interface {
	Persist(ctx context.Context, b Batch) error
}

type Notifier interface {
	DiscoveryCompleted(ctx context.Context, b Batch)
}

// Locker is a distributed set-if-absent lock, normally Redis.
type Locker interface {
	SetIfNotExists(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
}

// IterationResult is the outcome of one request within a loop iteration.
type IterationResult struct {
	Request    Request
	Candidates int
	Skipped    bool
	Err        error
}

// Loop runs a fixed list of discovery requests on an interval.
type Loop struct {
	discoverer Discoverer
	sink       Sink
	notifier   Notifier
	locker     Locker
	lockTTL    time.Duration
	owner      string

	requests []Request
	interval time.Duration

	cron     *cron.Cron
	job      cron.Job
	wg       sync.WaitGroup
	stop     chan struct{}
	stopOnce sync.Once
	log      *zap.Logger
}

type LoopOption func(*Loop)

func WithSink(s Sink) LoopOption { return func(l *Loop) { l.sink = s } }

func WithNotifier(n Notifier) LoopOption { return func(l *Loop) { l.notifier = n } }

// WithLocker makes iterations take a per-request lock held for at most ttl.
func WithLocker(lk Locker, ttl time.Duration) LoopOption {
	return func(l *Loop) {
		l.locker = lk
		if ttl > 0 {
			l.lockTTL = ttl
		}
	}
}

func NewLoop(d Discoverer, requests []Request, interval time.Duration, log *zap.Logger, opts ...LoopOption) (*Loop, error) {
	if d == nil {
		return nil, errors.New("discovery loop: nil discoverer")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("discovery loop: interval must be positive, got %s", interval)
	}
	for i, r := range requests {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("discovery loop: request %d: %w", i, err)
		}
	}

	log = logger.OrNop(log).Named("discovery.loop")
	l := &Loop{
		discoverer: d,
		requests:   requests,
		interval:   interval,
		lockTTL:    30 * time.Minute,
		owner:      uuid.NewString(),
		stop:       make(chan struct{}),
		log:        log,
	}
	for _, opt := range opts {
		opt(l)
	}

	l.cron = cron.New(cron.WithLogger(cronLogger{log: log.Sugar()}))
	return l, nil
}

// Start schedules the loop and runs one iteration right away. Overlapping
// iterations are skipped. The loop stops when ctx is done or Stop is called.
func (l *Loop) Start(ctx context.Context) error {
	cl := cronLogger{log: l.log.Sugar()}
	l.job = cron.NewChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)).Then(cron.FuncJob(func() {
		l.RunOnce(ctx)
	}))
	if _, err := l.cron.AddJob(fmt.Sprintf("@every %s", l.interval), l.job); err != nil {
		return fmt.Errorf("cron.AddJob: %w", err)
	}
	l.cron.Start()
	l.log.Info("discovery loop started", zap.Duration("interval", l.interval), zap.Int("requests", len(l.requests)))

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.job.Run()
	}()

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		select {
		case <-ctx.Done():
			l.cron.Stop()
		case <-l.stop:
		}
	}()
	return nil
}

// Stop halts scheduling and waits for a running iteration and the context
// watcher to finish. It is safe to call more than once.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
	<-l.cron.Stop().Done()
	l.wg.Wait()
	l.log.Info("discovery loop stopped")
}

// RunOnce runs every configured request once. Each request is isolated:
// a failure or panic in one does not affect the others.
func (l *Loop) RunOnce(ctx context.Context) []IterationResult {
	out := make([]IterationResult, 0, len(l.requests))
	for _, req := range l.requests {
		if ctx.Err() != nil {
			l.log.Info("discovery loop cancelled between requests")
			break
		}
		res := l.runRequest(ctx, req)
		switch {
		case res.Skipped:
			metrics.LoopIterations.WithLabelValues("skipped").Inc()
		case res.Err != nil:
			metrics.LoopIterations.WithLabelValues("error").Inc()
			l.log.Error("discovery loop request failed", zap.String("search_term", req.SearchTerm), zap.Error(res.Err))
		default:
			metrics.LoopIterations.WithLabelValues("ok").Inc()
		}
		out = append(out, res)
	}
	return out
}

func (l *Loop) runRequest(ctx context.Context, req Request) (res IterationResult) {
	res.Request = req
	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("panic: %v", r)
		}
	}()

	release, ok := l.acquire(ctx, req)
	if !ok {
		res.Skipped = true
		l.log.Info("discovery request locked elsewhere, skipping", zap.String("search_term", req.SearchTerm))
		return res
	}
	defer release()

	batch, err := l.discoverer.Discover(ctx, req)
	if err != nil {
		res.Err = err
		return res
	}
	res.Candidates = len(batch.Candidates)

	if l.sink != nil {
		if err := l.sink.Persist(ctx, batch); err != nil {
			res.Err = fmt.Errorf("persist batch: %w", err)
			return res
		}
	}
	if l.notifier != nil {
		l.notifier.DiscoveryCompleted(ctx, batch)
	}
	return res
}

// acquire takes the request lock. Without a usable lock store the request
// runs unlocked.
func (l *Loop) acquire(ctx context.Context, req Request) (func(), bool) {
	noop := func() {}
	if l.locker == nil {
		return noop, true
	}
	key := LockKey(req)
	ok, err := l.locker.SetIfNotExists(ctx, key, l.owner, l.lockTTL)
	if err != nil {
		if !errors.Is(err, cache.ErrUnavailable) {
			l.log.Warn("discovery lock failed, running unlocked", zap.String("key", key), zap.Error(err))
		}
		return noop, true
	}
	if !ok {
		return noop, false
	}
	return func() {
		if err := l.locker.Delete(context.WithoutCancel(ctx), key); err != nil {
			l.log.Warn("discovery lock release failed", zap.String("key", key), zap.Error(err))
		}
	}, true
}

// ParseRequests turns "search term" or "search term|location" entries into requests.
func ParseRequests(entries []string, location string, maxResults, maxAgeDays int) []Request {
	out := make([]Request, 0, len(entries))
	for _, e := range entries {
		term, loc, _ := strings.Cut(e, "|")
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		if strings.TrimSpace(loc) == "" {
			loc = location
		}
		out = append(out, Request{
			SearchTerm: term,
			Location:   strings.TrimSpace(loc),
			MaxResults: maxResults,
			MaxAgeDays: maxAgeDays,
		}.Normalize())
	}
	return out
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
