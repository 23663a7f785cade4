package judge

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Niobium-41-nb/HZAUACMOJ/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrAlreadyJudging is returned when a judge request arrives for a
	// submission that already has an active or queued pipeline run.
	ErrAlreadyJudging = errors.New("submission is already being judged")
	// ErrNotPending is returned for submissions not in PENDING; terminal
	// ones require an explicit rejudge.
	ErrNotPending = errors.New("submission is not pending")
)

// PipelineRunner is what the dispatcher drives; satisfied by *Pipeline.
type PipelineRunner interface {
	Judge(ctx context.Context, submissionID uuid.UUID) Verdict
}

// VerdictHook is invoked after every terminal verdict, outside the
// dispatcher's locks. Used to publish notifications and trigger ranking.
type VerdictHook func(submissionID uuid.UUID, verdict Verdict)

// Dispatcher accepts fire-and-forget judge requests, bounds concurrent
// pipeline runs to a fixed worker count, queues the rest in FIFO order, and
// guarantees at most one active run per submission id.
type Dispatcher struct {
	pipeline    PipelineRunner
	submissions SubmissionStore
	queue       chan uuid.UUID
	workers     int
	maxRetries  int
	hook        VerdictHook
	log         *zap.Logger

	mu     sync.Mutex
	active map[uuid.UUID]struct{}
	wg     sync.WaitGroup
}

func NewDispatcher(
	pipeline PipelineRunner,
	submissions SubmissionStore,
	workers, queueSize, maxRetries int,
	hook VerdictHook,
	log *zap.Logger,
) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1024
	}
	return &Dispatcher{
		pipeline:    pipeline,
		submissions: submissions,
		queue:       make(chan uuid.UUID, queueSize),
		workers:     workers,
		maxRetries:  maxRetries,
		hook:        hook,
		log:         log,
		active:      make(map[uuid.UUID]struct{}),
	}
}

// Start launches the worker pool. Workers drain the queue until ctx is
// cancelled; Wait blocks until they have all stopped.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}
}

func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Submit enqueues a judge request for a PENDING submission. The call returns
// as soon as the request is queued; completion is observable through status
// reads or the verdict hook.
func (d *Dispatcher) Submit(ctx context.Context, submissionID uuid.UUID) error {
	submission, err := d.submissions.GetSubmission(ctx, submissionID)
	if err != nil {
		return fmt.Errorf("failed to load submission: %w", err)
	}
	if submission == nil {
		return fmt.Errorf("submission %s not found", submissionID)
	}
	// RUNNING is rejected too: re-entering a RUNNING row would double-judge
	// a submission another pipeline run may still hold.
	if submission.Status != models.SubmissionStatusPending {
		return fmt.Errorf("%w: status is %s", ErrNotPending, submission.Status)
	}

	d.mu.Lock()
	if _, ok := d.active[submissionID]; ok {
		d.mu.Unlock()
		return ErrAlreadyJudging
	}
	d.active[submissionID] = struct{}{}
	d.mu.Unlock()

	select {
	case d.queue <- submissionID:
		return nil
	case <-ctx.Done():
		d.release(submissionID)
		return ctx.Err()
	}
}

// Rejudge resets a terminal submission to PENDING and enqueues it again.
func (d *Dispatcher) Rejudge(ctx context.Context, submissionID uuid.UUID) error {
	d.mu.Lock()
	_, busy := d.active[submissionID]
	d.mu.Unlock()
	if busy {
		return ErrAlreadyJudging
	}

	if err := d.submissions.ResetForRejudge(ctx, submissionID); err != nil {
		return fmt.Errorf("failed to reset submission for rejudge: %w", err)
	}
	return d.Submit(ctx, submissionID)
}

// QueueLength reports the current backlog.
func (d *Dispatcher) QueueLength() int {
	return len(d.queue)
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()
	log := d.log.With(zap.Int("worker", id))
	log.Info("judge worker started")

	for {
		select {
		case <-ctx.Done():
			log.Info("judge worker stopped")
			return
		case submissionID := <-d.queue:
			d.process(ctx, submissionID, log)
		}
	}
}

func (d *Dispatcher) process(ctx context.Context, submissionID uuid.UUID, log *zap.Logger) {
	defer d.release(submissionID)

	var verdict Verdict
	for attempt := 0; ; attempt++ {
		verdict = d.pipeline.Judge(ctx, submissionID)
		if verdict.Status != models.SubmissionStatusSystemError || !verdict.Retryable || attempt >= d.maxRetries {
			break
		}
		log.Warn("retrying after infrastructure failure",
			zap.String("submission_id", submissionID.String()),
			zap.Int("attempt", attempt+1),
			zap.String("message", verdict.Message))
	}

	// Retryable failures leave the submission non-terminal between attempts;
	// the terminal SYSTEM_ERROR is written here, once, after the last one.
	if verdict.Status == models.SubmissionStatusSystemError && verdict.Retryable {
		err := d.submissions.FinishVerdict(ctx, submissionID,
			models.SubmissionStatusSystemError, 0, 0, verdict.Message)
		if err != nil {
			log.Error("failed to persist system error verdict",
				zap.String("submission_id", submissionID.String()),
				zap.Error(err))
		}
	}

	log.Info("submission judged",
		zap.String("submission_id", submissionID.String()),
		zap.String("status", string(verdict.Status)),
		zap.Int32("execution_time_ms", verdict.ExecutionTimeMs),
		zap.Int32("memory_used_kb", verdict.MemoryUsedKb))

	if d.hook != nil {
		d.hook(submissionID, verdict)
	}
}

func (d *Dispatcher) release(submissionID uuid.UUID) {
	d.mu.Lock()
	delete(d.active, submissionID)
	d.mu.Unlock()
}
