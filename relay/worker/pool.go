// Package worker provides an asynchronous worker pool that taps relayed
// frames: each job publishes a frame event to the configured
// eventstream.Publisher and appends it to the configured storage.Driver.
//
// The pool decouples publishing and archiving from the relay's streaming hot
// path so that a slow broker or database never stalls a client stream.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/papercomputeco/brainstream/pkg/eventstream"
	"github.com/papercomputeco/brainstream/pkg/logger"
	"github.com/papercomputeco/brainstream/pkg/storage"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
	defaultJobTimeout        = 5 * time.Second
)

// Job is a unit of work for the worker pool to execute against.
type Job struct {
	Event *eventstream.FrameRelayedEvent
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Publisher receives every frame event. Optional.
	Publisher eventstream.Publisher

	// Driver archives every frame. Optional.
	Driver storage.Driver

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// JobTimeout bounds the publish and archive calls of a single job.
	JobTimeout time.Duration

	Logger *slog.Logger
}

// Stats are running totals for the pool.
type Stats struct {
	Enqueued  uint64
	Dropped   uint64
	Published uint64
	Archived  uint64
	Failed    uint64
}

// Pool processes frame tap jobs asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *slog.Logger

	closeOnce sync.Once

	enqueued  atomic.Uint64
	dropped   atomic.Uint64
	published atomic.Uint64
	archived  atomic.Uint64
	failed    atomic.Uint64
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.JobTimeout <= 0 {
		c.JobTimeout = defaultJobTimeout
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	if c.Logger == nil {
		c.Logger = logger.Nop()
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full, resulting in the job being dropped
func (p *Pool) Enqueue(job Job) bool {
	if job.Event == nil {
		return false
	}

	select {
	case p.queue <- job:
		p.enqueued.Add(1)
		return true
	default:
		p.dropped.Add(1)
		p.logger.Warn("frame tap queue full, job dropped",
			"connection_id", job.Event.Connection.ID,
			"frame_type", job.Event.Frame.Type,
		)
		return false
	}
}

// Stats returns the running totals.
func (p *Pool) Stats() Stats {
	return Stats{
		Enqueued:  p.enqueued.Load(),
		Dropped:   p.dropped.Load(),
		Published: p.published.Load(),
		Archived:  p.archived.Load(),
		Failed:    p.failed.Load(),
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// Call this during graceful shutdown after the relay HTTP server has stopped.
// Enqueue must not be called after Close.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.queue)
		p.wg.Wait()
	})
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("frame tap worker stopped", "worker_id", id)
}

// processJob publishes and archives one frame. Failures are logged and
// counted; they never propagate back to the stream.
func (p *Pool) processJob(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.JobTimeout)
	defer cancel()

	ev := job.Event

	if p.config.Publisher != nil {
		if err := p.config.Publisher.PublishFrame(ctx, ev); err != nil {
			p.failed.Add(1)
			p.logger.Error("frame publish failed",
				"connection_id", ev.Connection.ID,
				"event_id", ev.EventID,
				"error", err,
			)
		} else {
			p.published.Add(1)
		}
	}

	if p.config.Driver != nil {
		rec := storage.NewRecord(ev)
		if err := p.config.Driver.Append(ctx, rec); err != nil {
			p.failed.Add(1)
			p.logger.Error("frame archive failed",
				"connection_id", ev.Connection.ID,
				"event_id", ev.EventID,
				"error", err,
			)
			return
		}
		p.archived.Add(1)

		p.logger.Debug("frame archived",
			"id", rec.ID,
			"connection_id", ev.Connection.ID,
			"sequence", ev.Connection.Sequence,
		)
	}
}
