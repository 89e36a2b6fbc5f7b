package service

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"mediabot/internal/domain"
	"mediabot/internal/infrastructure/logger"
	"mediabot/internal/infrastructure/metrics"
	"mediabot/internal/port"
)

// EventPublisher is the queue's notification seam.
type EventPublisher interface {
	Publish(event Event)
}

// Queue admits jobs against a bounded pending buffer and runs them on a fixed
// worker pool. The pool is the single writer of job state: every transition a
// job takes after Submit happens on the worker that claimed it.
type Queue struct {
	registry port.JobRegistry
	invoker  port.TranscodeInvoker
	bus      EventPublisher
	workers  int

	pending chan *domain.Job
	running atomic.Int64
	group   *errgroup.Group
}

func NewQueue(registry port.JobRegistry, invoker port.TranscodeInvoker, bus EventPublisher, workers, maxPending int) *Queue {
	return &Queue{
		registry: registry,
		invoker:  invoker,
		bus:      bus,
		workers:  workers,
		pending:  make(chan *domain.Job, maxPending),
	}
}

// Start fails over jobs stranded by a previous run, then launches the workers.
// Wait on the returned group after cancelling ctx to drain in-flight jobs.
func (q *Queue) Start(ctx context.Context) *errgroup.Group {
	if err := q.registry.ResetStalled(); err != nil {
		logger.Error.Printf("failed to reset stalled jobs: %v", err)
	}

	group, ctx := errgroup.WithContext(ctx)
	q.group = group
	for i := range q.workers {
		group.Go(func() error {
			q.runWorker(ctx, i)
			return nil
		})
	}
	// Jobs still buffered when the last worker exits were counted as pending
	// at Submit; settle the gauge so it does not read stale after shutdown.
	go func() {
		_ = group.Wait()
		for {
			select {
			case <-q.pending:
				metrics.JobsPending.Dec()
			default:
				return
			}
		}
	}()

	logger.Info.Printf("started %d workers (pending buffer %d)", q.workers, cap(q.pending))
	return group
}

// Submit registers a pending job and admits it to the buffer. When the buffer
// is full the job is marked rejected in the registry and a capacity failure is
// returned; the system never holds unbounded pending work.
func (q *Queue) Submit(job *domain.Job) error {
	if err := q.registry.Create(job); err != nil {
		return domain.NewFailure(domain.FailureStorage, "register job: %v", err)
	}

	select {
	case q.pending <- job:
		metrics.JobsPending.Inc()
		return nil
	default:
		q.setState(job, domain.JobStateRejected, "queue is full")
		metrics.JobsTotal.WithLabelValues(string(domain.JobStateRejected)).Inc()
		return domain.NewFailure(domain.FailureCapacity, "queue is full, try again later")
	}
}

// Stats is a point-in-time view for the health endpoint.
type QueueStats struct {
	Workers    int   `json:"workers"`
	Running    int64 `json:"running"`
	Pending    int   `json:"pending"`
	MaxPending int   `json:"maxPending"`
}

func (q *Queue) Stats() QueueStats {
	return QueueStats{
		Workers:    q.workers,
		Running:    q.running.Load(),
		Pending:    len(q.pending),
		MaxPending: cap(q.pending),
	}
}

func (q *Queue) runWorker(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			logger.Info.Printf("worker %d shutting down", id)
			return
		case job := <-q.pending:
			metrics.JobsPending.Dec()
			q.processJob(ctx, job)
		}
	}
}

func (q *Queue) processJob(ctx context.Context, job *domain.Job) {
	q.setState(job, domain.JobStateAdmitted, "")

	// Never run a job whose deadline passed while it waited.
	if job.Expired() {
		q.finish(job, domain.JobStateTimedOut, "deadline expired before a worker was free", nil)
		return
	}

	q.setState(job, domain.JobStateRunning, "")
	q.running.Add(1)
	metrics.JobsRunning.Inc()
	started := time.Now()

	runCtx, cancel := context.WithDeadline(ctx, job.Deadline)
	result, err := q.invoker.Run(runCtx, job.Input, job.Op)
	cancel()

	q.running.Add(-1)
	metrics.JobsRunning.Dec()
	metrics.TranscodeDuration.WithLabelValues(string(job.Op.Kind)).Observe(time.Since(started).Seconds())

	if err != nil {
		state := domain.JobStateFailed
		msg := err.Error()
		var failure *domain.Failure
		if errors.As(err, &failure) {
			msg = failure.Detail
			if failure.Kind == domain.FailureTimeout {
				state = domain.JobStateTimedOut
			}
		}
		// A shutdown cancel looks like a deadline kill to the invoker.
		if state == domain.JobStateTimedOut && ctx.Err() != nil && !job.Expired() {
			state = domain.JobStateFailed
			msg = "canceled by shutdown"
		}
		q.finish(job, state, msg, nil)
		return
	}

	if err := q.registry.SetOutput(job.ID, result.Output.Path); err != nil {
		logger.Error.Printf("job %s: record output: %v", job.ID, err)
	}
	job.OutputPath = result.Output.Path
	q.finish(job, domain.JobStateSucceeded, "", result)
}

// finish applies a terminal transition and publishes it. Asset release is the
// dispatcher's side of the contract, triggered by the event.
func (q *Queue) finish(job *domain.Job, state domain.JobState, msg string, result *domain.Result) {
	q.setState(job, state, msg)
	metrics.JobsTotal.WithLabelValues(string(state)).Inc()

	if state == domain.JobStateSucceeded {
		logger.Info.Printf("job %s succeeded (op=%s, output=%d bytes)", job.ID, job.Op.Kind, result.Output.Size)
	} else {
		logger.Info.Printf("job %s ended %s: %s", job.ID, state, logger.SanitizeForLog(msg))
	}

	q.bus.Publish(Event{
		JobID:   job.ID,
		UserRef: job.UserRef,
		State:   state,
		Message: msg,
		Result:  result,
	})
}

func (q *Queue) setState(job *domain.Job, to domain.JobState, msg string) {
	if !domain.ValidTransition(job.State, to) {
		logger.Error.Printf("job %s: invalid transition %s -> %s", job.ID, job.State, to)
		return
	}
	job.State = to
	job.ErrorMessage = msg
	if err := q.registry.Transition(job.ID, to, msg); err != nil {
		logger.Error.Printf("job %s: persist transition to %s: %v", job.ID, to, err)
	}
}
