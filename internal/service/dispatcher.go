package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"mediabot/internal/domain"
	"mediabot/internal/infrastructure/logger"
	"mediabot/internal/port"
	"mediabot/internal/validation"
)

// Request is one inbound transform request. Media carries already-fetched
// bytes; fetching from the chat platform is the caller's problem.
type Request struct {
	UserRef  string
	Filename string
	Media    io.ReadSeeker
	Op       domain.Operation
}

// Delivery is what goes back to the chat collaborator when a job ends.
type Delivery struct {
	JobID        string
	UserRef      string
	State        domain.JobState
	ErrorMessage string
	Result       *domain.Result
}

// DeliveryFunc relays one terminal outcome outward. It must not retain
// Result.Output past its return: the handle's assets are released as soon as
// the function comes back.
type DeliveryFunc func(Delivery)

// JobSubmitter is the queue as the dispatcher sees it.
type JobSubmitter interface {
	Submit(job *domain.Job) error
}

type Dispatcher struct {
	queue      JobSubmitter
	assets     port.AssetStore
	bus        *EventBus
	maxInput   int64
	jobTimeout time.Duration
	maxPerUser int

	mu       sync.Mutex
	inflight map[string]int

	handlerMu sync.RWMutex
	handler   DeliveryFunc
}

func NewDispatcher(queue JobSubmitter, assets port.AssetStore, bus *EventBus, maxInput int64, jobTimeout time.Duration, maxPerUser int) *Dispatcher {
	return &Dispatcher{
		queue:      queue,
		assets:     assets,
		bus:        bus,
		maxInput:   maxInput,
		jobTimeout: jobTimeout,
		maxPerUser: maxPerUser,
		inflight:   make(map[string]int),
	}
}

// OnResult registers the outbound handler invoked for every terminal job.
func (d *Dispatcher) OnResult(fn DeliveryFunc) {
	d.handlerMu.Lock()
	d.handler = fn
	d.handlerMu.Unlock()
}

// Submit validates the request, stages the media, and hands a new job to the
// queue. Rejections come back as *domain.Failure values (validation or
// capacity), never as panics; system faults are storage failures.
func (d *Dispatcher) Submit(req Request) (string, error) {
	if req.UserRef == "" {
		return "", domain.NewFailure(domain.FailureValidation, "missing user reference")
	}
	if err := req.Op.Validate(); err != nil {
		return "", domain.NewFailure(domain.FailureValidation, "invalid operation: %v", err)
	}

	size, err := mediaSize(req.Media)
	if err != nil {
		return "", domain.NewFailure(domain.FailureStorage, "measure media: %v", err)
	}
	if size == 0 {
		return "", domain.NewFailure(domain.FailureValidation, "media is empty")
	}
	if size > d.maxInput {
		return "", domain.NewFailure(domain.FailureValidation, "media is %d bytes, limit is %d", size, d.maxInput)
	}

	mime, kind, err := validation.DetectKind(req.Media)
	if err != nil {
		return "", domain.NewFailure(domain.FailureValidation, "unsupported media type %s", mime)
	}
	if !req.Op.Accepts(kind) {
		return "", domain.NewFailure(domain.FailureValidation, "operation %s does not accept %s input", req.Op.Kind, kind)
	}

	if !d.admitUser(req.UserRef) {
		return "", domain.NewFailure(domain.FailureCapacity, "too many jobs in flight for this user")
	}

	job := domain.NewJob(req.UserRef, domain.AssetHandle{}, req.Op, d.jobTimeout)

	input, err := d.assets.Stage(req.Media, job.ID, kind)
	if err != nil {
		d.releaseUser(req.UserRef)
		return "", domain.NewFailure(domain.FailureStorage, "stage media: %v", err)
	}
	job.Input = input

	logger.Info.Printf("job %s submitted (user=%s, op=%s, file=%s, %d bytes, digest=%.12s)",
		job.ID, logger.SanitizeForLog(req.UserRef), job.Op.Kind,
		logger.SanitizeForLog(req.Filename), input.Size, input.Digest)

	if err := d.queue.Submit(job); err != nil {
		if rerr := d.assets.ReleaseJob(job.ID); rerr != nil {
			logger.Error.Printf("job %s: release after rejection: %v", job.ID, rerr)
		}
		d.releaseUser(req.UserRef)
		return "", err
	}

	return job.ID, nil
}

// Start consumes terminal events: forward the delivery outward, then release
// everything the job staged. Blocks until ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	events := d.bus.SubscribeAll()
	defer d.bus.UnsubscribeAll(events)

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			if !ev.State.Terminal() {
				continue
			}
			d.deliver(ev)
		}
	}
}

func (d *Dispatcher) deliver(ev Event) {
	d.handlerMu.RLock()
	handler := d.handler
	d.handlerMu.RUnlock()

	if handler != nil {
		handler(Delivery{
			JobID:        ev.JobID,
			UserRef:      ev.UserRef,
			State:        ev.State,
			ErrorMessage: ev.Message,
			Result:       ev.Result,
		})
	}

	if err := d.assets.ReleaseJob(ev.JobID); err != nil {
		logger.Error.Printf("job %s: release assets: %v", ev.JobID, err)
	}
	d.releaseUser(ev.UserRef)
}

func (d *Dispatcher) admitUser(userRef string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.maxPerUser > 0 && d.inflight[userRef] >= d.maxPerUser {
		return false
	}
	d.inflight[userRef]++
	return true
}

func (d *Dispatcher) releaseUser(userRef string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.inflight[userRef] <= 1 {
		delete(d.inflight, userRef)
	} else {
		d.inflight[userRef]--
	}
}

func mediaSize(r io.ReadSeeker) (int64, error) {
	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return 0, fmt.Errorf("rewind media: %w", err)
	}
	return size, nil
}
