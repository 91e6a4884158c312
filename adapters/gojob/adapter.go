package gojob

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-quantum-client/core"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
)

// JobIDRunCompleted identifies post-processing work queued for every run
// that reaches a terminal state.
const JobIDRunCompleted = "quantum.run.completed"

// RetryPolicy defines queue retry bounds to avoid unbounded retry loops.
type RetryPolicy struct {
	MaxAttempts     int
	MaxDelay        time.Duration
	DeadLetterOnMax bool
}

// NormalizeAttempt enforces bounded retry behavior for a nack operation.
func (p RetryPolicy) NormalizeAttempt(opts core.JobNackOptions, attempt int) core.JobNackOptions {
	out := opts
	out.Reason = strings.TrimSpace(out.Reason)
	if out.Delay < 0 {
		out.Delay = 0
	}
	if p.MaxDelay > 0 && out.Delay > p.MaxDelay {
		out.Delay = p.MaxDelay
	}
	if out.DeadLetter {
		out.Requeue = false
	}
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		out.Requeue = false
		if p.DeadLetterOnMax || out.DeadLetter {
			out.DeadLetter = true
		}
	}
	if !out.Requeue && !out.DeadLetter {
		out.Requeue = true
	}
	return out
}

// ToExecutionMessage maps a terminal run event onto the go-job queue
// contract. Run id and status travel as parameters next to whatever the
// engine attached.
func ToExecutionMessage(msg *core.RunEventMessage) *job.ExecutionMessage {
	if msg == nil {
		return nil
	}
	parameters := copyAnyMap(msg.Parameters)
	parameters["run_id"] = strings.TrimSpace(msg.RunID)
	parameters["status"] = strings.TrimSpace(msg.Status)
	return &job.ExecutionMessage{
		JobID:          JobIDRunCompleted,
		Parameters:     parameters,
		IdempotencyKey: strings.TrimSpace(msg.IdempotencyKey),
		DedupPolicy:    job.DeduplicationPolicy(strings.TrimSpace(msg.DedupPolicy)),
	}
}

// FromExecutionMessage recovers the run event from a dequeued go-job
// message.
func FromExecutionMessage(msg *job.ExecutionMessage) *core.RunEventMessage {
	if msg == nil {
		return nil
	}
	parameters := copyAnyMap(msg.Parameters)
	runID, _ := parameters["run_id"].(string)
	status, _ := parameters["status"].(string)
	delete(parameters, "run_id")
	delete(parameters, "status")
	return &core.RunEventMessage{
		RunID:          strings.TrimSpace(runID),
		Status:         strings.TrimSpace(status),
		Parameters:     parameters,
		IdempotencyKey: strings.TrimSpace(msg.IdempotencyKey),
		DedupPolicy:    strings.TrimSpace(string(msg.DedupPolicy)),
	}
}

// ToNackOptions maps client nack options onto the go-job disposition
// model. Dead letter wins over requeue, anything else is terminal.
func ToNackOptions(opts core.JobNackOptions) queue.NackOptions {
	disposition := queue.NackDispositionFailed
	switch {
	case opts.DeadLetter:
		disposition = queue.NackDispositionDeadLetter
	case opts.Requeue:
		disposition = queue.NackDispositionRetry
	}
	return queue.NackOptions{
		Disposition: disposition,
		Delay:       opts.Delay,
		Reason:      opts.Reason,
	}
}

// FromNackOptions maps go-job nack options back to the client contract.
func FromNackOptions(opts queue.NackOptions) core.JobNackOptions {
	return core.JobNackOptions{
		Delay:      opts.Delay,
		Requeue:    opts.Disposition == queue.NackDispositionRetry,
		DeadLetter: opts.Disposition == queue.NackDispositionDeadLetter,
		Reason:     opts.Reason,
	}
}

// EnqueuerAdapter exposes a go-job enqueuer as the engine's run event
// sink.
type EnqueuerAdapter struct {
	enqueuer queue.Enqueuer
}

func NewEnqueuerAdapter(enqueuer queue.Enqueuer) *EnqueuerAdapter {
	return &EnqueuerAdapter{enqueuer: enqueuer}
}

func (a *EnqueuerAdapter) Enqueue(ctx context.Context, msg *core.RunEventMessage) error {
	if a == nil || a.enqueuer == nil {
		return fmt.Errorf("gojob: enqueuer is not configured")
	}
	if msg == nil {
		return fmt.Errorf("gojob: run event message is required")
	}
	if _, err := a.enqueuer.Enqueue(ctx, ToExecutionMessage(msg)); err != nil {
		return err
	}
	return nil
}

func copyAnyMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

var _ core.RunEventEnqueuer = (*EnqueuerAdapter)(nil)
