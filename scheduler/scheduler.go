package scheduler

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TaskFn is the function signature for scheduled tasks. ctx is cancelled
// when the task is removed or the scheduler stops.
type TaskFn func(ctx context.Context)

// Stats counts the runs of one task.
type Stats struct {
	Runs    int64
	Panics  int64
	Skipped int64 // ticks dropped because the previous run was still going
	LastRun time.Time
}

// Scheduler manages periodic and delayed tasks. Ticker tasks never overlap:
// a tick that fires while the previous run is still going is skipped.
type Scheduler struct {
	mu      sync.Mutex
	tickers map[string]*task
	timers  map[string]*task
	stats   map[string]*Stats
	logger  *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

type task struct {
	cancel context.CancelFunc
	timer  *time.Timer
}

// New creates a new Scheduler.
func New(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		tickers: make(map[string]*task),
		timers:  make(map[string]*task),
		stats:   make(map[string]*Stats),
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// AddTicker registers a task to run on a fixed interval.
// If a task with the same name exists, it is replaced.
func (s *Scheduler) AddTicker(name string, interval time.Duration, fn TaskFn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx.Err() != nil {
		return
	}
	if old, ok := s.tickers[name]; ok {
		old.cancel()
	}
	ctx, cancel := context.WithCancel(s.ctx)
	s.tickers[name] = &task{cancel: cancel}
	if _, ok := s.stats[name]; !ok {
		s.stats[name] = &Stats{}
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		busy := make(chan struct{}, 1)
		for {
			select {
			case <-ticker.C:
				select {
				case busy <- struct{}{}:
				default:
					s.count(name, func(st *Stats) { st.Skipped++ })
					continue
				}
				s.wg.Add(1)
				go func() {
					defer s.wg.Done()
					defer func() { <-busy }()
					s.run(ctx, name, fn)
				}()
			case <-ctx.Done():
				return
			}
		}
	}()
	s.logger.Info("scheduler task registered", zap.String("name", name), zap.Duration("interval", interval))
}

// AddDelay runs fn once after the given delay.
func (s *Scheduler) AddDelay(name string, delay time.Duration, fn TaskFn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx.Err() != nil {
		return
	}
	if old, ok := s.timers[name]; ok {
		old.timer.Stop()
		old.cancel()
	}
	if _, ok := s.stats[name]; !ok {
		s.stats[name] = &Stats{}
	}
	ctx, cancel := context.WithCancel(s.ctx)
	t := &task{cancel: cancel}
	t.timer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		if s.timers[name] == t {
			delete(s.timers, name)
		}
		s.mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		s.run(ctx, name, fn)
		cancel()
	})
	s.timers[name] = t
}

func (s *Scheduler) run(ctx context.Context, name string, fn TaskFn) {
	defer func() {
		if r := recover(); r != nil {
			s.count(name, func(st *Stats) { st.Panics++ })
			s.logger.Error("scheduler task panicked",
				zap.String("task", name),
				zap.Any("recover", r))
		}
	}()
	s.count(name, func(st *Stats) {
		st.Runs++
		st.LastRun = time.Now()
	})
	fn(ctx)
}

func (s *Scheduler) count(name string, fn func(*Stats)) {
	s.mu.Lock()
	if st, ok := s.stats[name]; ok {
		fn(st)
	}
	s.mu.Unlock()
}

// Remove stops and removes a ticker or delay task by name.
func (s *Scheduler) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tickers[name]; ok {
		t.cancel()
		delete(s.tickers, name)
	}
	if t, ok := s.timers[name]; ok {
		t.timer.Stop()
		t.cancel()
		delete(s.timers, name)
	}
}

// Stop cancels all tasks and waits for running ticker tasks to return.
// Safe to call more than once.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.cancel()
	for _, t := range s.timers {
		t.timer.Stop()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// ListTickers returns the names of all registered ticker tasks, sorted.
func (s *Scheduler) ListTickers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.tickers))
	for name := range s.tickers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Stats returns the counters of the named task.
func (s *Scheduler) Stats(name string) (Stats, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.stats[name]
	if !ok {
		return Stats{}, false
	}
	return *st, true
}
