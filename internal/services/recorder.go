package services

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Task results reported to a RecorderObserver.
const (
	TaskSucceeded = "success"
	TaskFailed    = "failure"
	TaskDropped   = "dropped"
)

// RecorderConfig bounds the background recorder.
type RecorderConfig struct {
	QueueSize   int
	Workers     int
	MaxRetries  int
	TaskTimeout time.Duration
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func DefaultRecorderConfig() RecorderConfig {
	return RecorderConfig{
		QueueSize:   1024,
		Workers:     4,
		MaxRetries:  2,
		TaskTimeout: 5 * time.Second,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    2 * time.Second,
	}
}

// RecorderObserver receives task outcomes and queue depth. Implemented by the
// metrics package.
type RecorderObserver interface {
	TaskCompleted(task, result string)
	QueueDepth(depth int)
}

type noopObserver struct{}

func (noopObserver) TaskCompleted(string, string) {}
func (noopObserver) QueueDepth(int)               {}

type task struct {
	name string
	run  func(ctx context.Context) error
}

// Recorder runs suggestion and analytics writes off the request path. Work
// that cannot be queued or keeps failing becomes a BackgroundRecordingError
// on the recorder's error channel, which is only ever logged.
type Recorder struct {
	cfg      RecorderConfig
	tasks    chan task
	errs     chan error
	observer RecorderObserver
	logger   *logrus.Logger

	mu      sync.RWMutex
	closed  bool
	pending sync.WaitGroup
	workers sync.WaitGroup
	drained chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
}

func NewRecorder(cfg RecorderConfig, observer RecorderObserver, logger *logrus.Logger) *Recorder {
	def := DefaultRecorderConfig()
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = def.TaskTimeout
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = def.BaseDelay
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = cfg.BaseDelay
	}
	if observer == nil {
		observer = noopObserver{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Recorder{
		cfg:      cfg,
		tasks:    make(chan task, cfg.QueueSize),
		errs:     make(chan error, cfg.QueueSize),
		observer: observer,
		logger:   logger,
		drained:  make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}

	for i := 0; i < cfg.Workers; i++ {
		r.workers.Add(1)
		go r.work()
	}
	go r.logErrors()

	return r
}

// Submit queues fn under name. It never blocks: a full queue or a closed
// recorder drops the task and returns false.
func (r *Recorder) Submit(name string, fn func(ctx context.Context) error) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.logger.WithField("task", name).Warn("Recorder closed, dropping background task")
		r.observer.TaskCompleted(name, TaskDropped)
		return false
	}

	r.pending.Add(1)
	select {
	case r.tasks <- task{name: name, run: fn}:
		r.observer.QueueDepth(len(r.tasks))
		return true
	default:
		r.pending.Done()
		r.observer.TaskCompleted(name, TaskDropped)
		r.report(&BackgroundRecordingError{Task: name, Err: errors.New("queue full")})
		return false
	}
}

// Wait blocks until every accepted task has finished.
func (r *Recorder) Wait() {
	r.pending.Wait()
}

// Depth is the number of queued tasks not yet picked up by a worker.
func (r *Recorder) Depth() int {
	return len(r.tasks)
}

// Close stops intake and drains the queue. If ctx ends first, in-flight tasks
// are cancelled and ctx.Err() is returned.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		<-r.drained
		return nil
	}
	r.closed = true
	close(r.tasks)
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.workers.Wait()
		close(r.errs)
		<-r.drained
		close(done)
	}()

	select {
	case <-done:
		r.cancel()
		return nil
	case <-ctx.Done():
		r.cancel()
		<-done
		return ctx.Err()
	}
}

func (r *Recorder) work() {
	defer r.workers.Done()
	for t := range r.tasks {
		r.observer.QueueDepth(len(r.tasks))
		r.execute(t)
		r.pending.Done()
	}
}

func (r *Recorder) execute(t task) {
	attempts, err := r.retry(t)
	if err == nil {
		r.observer.TaskCompleted(t.name, TaskSucceeded)
		return
	}
	r.observer.TaskCompleted(t.name, TaskFailed)
	r.report(&BackgroundRecordingError{Task: t.name, Attempts: attempts, Err: err})
}

// retry runs the task with a per-attempt timeout and capped exponential
// backoff. Invalid input is never retried.
func (r *Recorder) retry(t task) (int, error) {
	var err error
	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		if r.ctx.Err() != nil {
			return attempt, r.ctx.Err()
		}

		ctx, cancel := context.WithTimeout(r.ctx, r.cfg.TaskTimeout)
		err = t.run(ctx)
		cancel()
		if err == nil {
			return attempt + 1, nil
		}
		if errors.Is(err, ErrInvalidQuery) || attempt == r.cfg.MaxRetries {
			return attempt + 1, err
		}

		delay := time.Duration(float64(r.cfg.BaseDelay) * math.Pow(1.5, float64(attempt)))
		if delay > r.cfg.MaxDelay {
			delay = r.cfg.MaxDelay
		}

		r.logger.WithFields(logrus.Fields{
			"task":    t.name,
			"attempt": attempt + 1,
			"delay":   delay,
			"error":   err.Error(),
		}).Debug("Retrying background task")

		select {
		case <-r.ctx.Done():
			return attempt + 1, r.ctx.Err()
		case <-time.After(delay):
		}
	}
	return r.cfg.MaxRetries + 1, err
}

func (r *Recorder) report(err error) {
	select {
	case r.errs <- err:
	default:
		r.logger.WithError(err).Error("Background recording failed")
	}
}

func (r *Recorder) logErrors() {
	defer close(r.drained)
	for err := range r.errs {
		entry := r.logger.WithError(err)
		var bre *BackgroundRecordingError
		if errors.As(err, &bre) {
			entry = entry.WithFields(logrus.Fields{
				"task":     bre.Task,
				"attempts": bre.Attempts,
			})
		}
		entry.Error("Background recording failed")
	}
}
