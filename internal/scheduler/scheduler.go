package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// ErrStopped is returned for jobs submitted to a scheduler that is not running.
var ErrStopped = errors.New("scheduler stopped")

// Job is a unit of conversion work. It receives the caller's context.
type Job func(ctx context.Context) error

type task struct {
	ctx  context.Context
	job  Job
	done chan error
}

// Scheduler bounds how many conversions run at once. Jobs from all users share the same pool.
type Scheduler struct {
	workers int
	log     logrus.FieldLogger

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.RWMutex
	running   bool
	taskQueue chan task
}

type Config struct {
	Workers int
}

func NewScheduler(config Config, log logrus.FieldLogger) *Scheduler {
	if config.Workers <= 0 {
		config.Workers = 2
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		workers:   config.Workers,
		log:       log,
		ctx:       ctx,
		cancel:    cancel,
		taskQueue: make(chan task),
	}
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.log.WithField("workers", s.workers).Info("scheduler started")

	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	s.log.Info("stopping scheduler")
	s.cancel()
	s.wg.Wait()
	s.log.Info("scheduler stopped")
}

// Do runs job on a pool worker and waits for its result.
// It returns early with ctx.Err() if ctx ends while the job is still queued.
func (s *Scheduler) Do(ctx context.Context, job Job) error {
	s.mu.RLock()
	running := s.running
	s.mu.RUnlock()
	if !running {
		return ErrStopped
	}

	t := task{ctx: ctx, job: job, done: make(chan error, 1)}
	select {
	case s.taskQueue <- t:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return ErrStopped
	}

	select {
	case err := <-t.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	log := s.log.WithField("worker", id)
	log.Debug("worker started")

	for {
		select {
		case <-s.ctx.Done():
			log.Debug("worker stopped")
			return
		case t := <-s.taskQueue:
			t.done <- s.run(t)
		}
	}
}

func (s *Scheduler) run(t task) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			s.log.WithField("panic", rec).Error("conversion job panicked")
			err = fmt.Errorf("job panicked: %v", rec)
		}
	}()
	if err := t.ctx.Err(); err != nil {
		return err
	}
	return t.job(t.ctx)
}
