package gojob

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-peers/core"
	"github.com/google/uuid"
)

const (
	JobIDRegisterPeer = "peers.registration.register"
	JobIDRemovePeer   = "peers.registration.remove"

	paramCallerID     = "caller_id"
	paramOwnerID      = "owner_id"
	paramTargetPeerID = "target_peer_id"
)

// MutatingService is the subset of core.Service a worker drives.
type MutatingService interface {
	RegisterPeer(ctx context.Context, call core.CallContext, targetPeerID string) error
	RemovePeer(ctx context.Context, call core.CallContext, targetPeerID string) error
}

// MutationJob is a deferred register or remove request. The caller and owner
// are captured at enqueue time and replayed as a static call context.
type MutationJob struct {
	JobID          string
	CallerID       string
	OwnerID        string
	TargetPeerID   string
	IdempotencyKey string
}

func (m MutationJob) Validate() error {
	switch strings.TrimSpace(m.JobID) {
	case JobIDRegisterPeer, JobIDRemovePeer:
	default:
		return fmt.Errorf("gojob: unsupported job id %q", m.JobID)
	}
	if strings.TrimSpace(m.TargetPeerID) == "" {
		return fmt.Errorf("gojob: target peer id is required")
	}
	return nil
}

func (m MutationJob) call() core.CallContext {
	return core.StaticCallContext{Caller: m.CallerID, Owner: m.OwnerID}
}

// RetryPolicy defines queue retry bounds to avoid unbounded retry loops.
// RetryPolicy bounds redelivery of failed mutations. Once MaxAttempts is
// reached every nack is dead-lettered.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
	}
}

// NormalizeAttempt enforces bounded retry behavior for a nack operation.
func (p RetryPolicy) NormalizeAttempt(opts queue.NackOptions, attempt int) queue.NackOptions {
	out := opts
	out.Reason = strings.TrimSpace(out.Reason)
	if out.Delay < 0 {
		out.Delay = 0
	}
	if p.MaxDelay > 0 && out.Delay > p.MaxDelay {
		out.Delay = p.MaxDelay
	}
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		out.Disposition = queue.NackDispositionDeadLetter
	}
	if out.Disposition != queue.NackDispositionDeadLetter {
		out.Disposition = queue.NackDispositionRetry
	}
	if out.Disposition == queue.NackDispositionDeadLetter {
		out.Delay = 0
	}
	return out
}

// NackFor picks the nack options for a failed mutation. Storage failures are
// retried with linear backoff; rejections and bad input go to the dead letter.
func (p RetryPolicy) NackFor(err error, attempt int) queue.NackOptions {
	code := core.ClassifyError(err)
	opts := queue.NackOptions{Reason: code.String()}
	if err != nil {
		opts.Reason = code.String() + ": " + err.Error()
	}
	if code == core.CodeStorageFailure {
		opts.Disposition = queue.NackDispositionRetry
		opts.Delay = p.BaseDelay * time.Duration(max(attempt, 1))
	} else {
		opts.Disposition = queue.NackDispositionDeadLetter
	}
	return p.NormalizeAttempt(opts, attempt)
}

// IsRetry reports whether opts send the delivery back to the queue.
func IsRetry(opts queue.NackOptions) bool {
	return opts.Disposition == queue.NackDispositionRetry
}

func ToExecutionMessage(m MutationJob) *job.ExecutionMessage {
	jobID := strings.TrimSpace(m.JobID)
	return &job.ExecutionMessage{
		JobID:      jobID,
		ScriptPath: jobID,
		Parameters: map[string]any{
			paramCallerID:     m.CallerID,
			paramOwnerID:      m.OwnerID,
			paramTargetPeerID: m.TargetPeerID,
		},
		IdempotencyKey: strings.TrimSpace(m.IdempotencyKey),
		DedupPolicy:    job.DeduplicationPolicy("drop"),
	}
}

func FromExecutionMessage(msg *job.ExecutionMessage) (MutationJob, error) {
	if msg == nil {
		return MutationJob{}, fmt.Errorf("gojob: execution message is required")
	}
	out := MutationJob{
		JobID:          strings.TrimSpace(msg.JobID),
		CallerID:       stringParam(msg.Parameters, paramCallerID),
		OwnerID:        stringParam(msg.Parameters, paramOwnerID),
		TargetPeerID:   stringParam(msg.Parameters, paramTargetPeerID),
		IdempotencyKey: strings.TrimSpace(msg.IdempotencyKey),
	}
	if err := out.Validate(); err != nil {
		return MutationJob{}, err
	}
	return out, nil
}

type MutationEnqueuer struct {
	enqueuer queue.Enqueuer
}

func NewMutationEnqueuer(enqueuer queue.Enqueuer) *MutationEnqueuer {
	return &MutationEnqueuer{enqueuer: enqueuer}
}

func (e *MutationEnqueuer) EnqueueRegister(ctx context.Context, call core.CallContext, targetPeerID string) error {
	return e.enqueue(ctx, JobIDRegisterPeer, call, targetPeerID)
}

func (e *MutationEnqueuer) EnqueueRemove(ctx context.Context, call core.CallContext, targetPeerID string) error {
	return e.enqueue(ctx, JobIDRemovePeer, call, targetPeerID)
}

func (e *MutationEnqueuer) enqueue(ctx context.Context, jobID string, call core.CallContext, targetPeerID string) error {
	if e == nil || e.enqueuer == nil {
		return fmt.Errorf("gojob: enqueuer is not configured")
	}
	access := core.AccessFromCall(call)
	m := MutationJob{
		JobID:          jobID,
		CallerID:       access.CallerID,
		OwnerID:        access.OwnerID,
		TargetPeerID:   targetPeerID,
		IdempotencyKey: jobID + ":" + uuid.NewString(),
	}
	if err := m.Validate(); err != nil {
		return err
	}
	if _, err := e.enqueuer.Enqueue(ctx, ToExecutionMessage(m)); err != nil {
		return err
	}
	return nil
}

// MutationWorker applies queued mutations to the service one delivery at a
// time. Attempts are counted per idempotency key for the worker's lifetime.
type MutationWorker struct {
	dequeuer queue.Dequeuer
	service  MutatingService
	policy   RetryPolicy
	hook     worker.Hook
	now      func() time.Time

	mu       sync.Mutex
	attempts map[string]int
}

type WorkerOption func(*MutationWorker)

func WithRetryPolicy(policy RetryPolicy) WorkerOption {
	return func(w *MutationWorker) {
		w.policy = policy
	}
}

func WithHook(hook worker.Hook) WorkerOption {
	return func(w *MutationWorker) {
		w.hook = hook
	}
}

func NewMutationWorker(dequeuer queue.Dequeuer, service MutatingService, opts ...WorkerOption) *MutationWorker {
	w := &MutationWorker{
		dequeuer: dequeuer,
		service:  service,
		policy:   DefaultRetryPolicy(),
		now:      func() time.Time { return time.Now().UTC() },
		attempts: map[string]int{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w
}

// ProcessNext dequeues and handles a single delivery.
func (w *MutationWorker) ProcessNext(ctx context.Context) error {
	if w == nil || w.dequeuer == nil || w.service == nil {
		return fmt.Errorf("gojob: worker is not configured")
	}
	delivery, err := w.dequeuer.Dequeue(ctx)
	if err != nil {
		return err
	}
	return w.Process(ctx, delivery)
}

// Process applies one delivery and acks or nacks it. The returned error is the
// mutation error, if any, after the delivery has been settled.
func (w *MutationWorker) Process(ctx context.Context, delivery queue.Delivery) error {
	if w == nil || w.service == nil {
		return fmt.Errorf("gojob: worker is not configured")
	}
	if delivery == nil {
		return fmt.Errorf("gojob: delivery is required")
	}
	msg := delivery.Message()
	m, decodeErr := FromExecutionMessage(msg)
	if decodeErr != nil {
		if err := delivery.Nack(ctx, queue.NackOptions{Disposition: queue.NackDispositionDeadLetter, Reason: decodeErr.Error()}); err != nil {
			return err
		}
		return decodeErr
	}

	attempt := w.nextAttempt(m.IdempotencyKey)
	startedAt := w.now()
	event := worker.Event{Message: msg, Delivery: delivery, Attempt: attempt, StartedAt: startedAt}
	w.onStart(ctx, event)

	var applyErr error
	switch m.JobID {
	case JobIDRemovePeer:
		applyErr = w.service.RemovePeer(ctx, m.call(), m.TargetPeerID)
	default:
		applyErr = w.service.RegisterPeer(ctx, m.call(), m.TargetPeerID)
	}
	event.Duration = w.now().Sub(startedAt)

	if applyErr == nil {
		w.forget(m.IdempotencyKey)
		if err := delivery.Ack(ctx); err != nil {
			return err
		}
		w.onSuccess(ctx, event)
		return nil
	}

	opts := w.policy.NackFor(applyErr, attempt)
	event.Err = applyErr
	event.Delay = opts.Delay
	if IsRetry(opts) {
		w.onRetry(ctx, event)
	} else {
		w.forget(m.IdempotencyKey)
		w.onFailure(ctx, event)
	}
	if err := delivery.Nack(ctx, opts); err != nil {
		return err
	}
	return applyErr
}

func (w *MutationWorker) nextAttempt(key string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.attempts[key]++
	return w.attempts[key]
}

func (w *MutationWorker) forget(key string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.attempts, key)
}

func (w *MutationWorker) onStart(ctx context.Context, event worker.Event) {
	if w.hook != nil {
		w.hook.OnStart(ctx, event)
	}
}

func (w *MutationWorker) onSuccess(ctx context.Context, event worker.Event) {
	if w.hook != nil {
		w.hook.OnSuccess(ctx, event)
	}
}

func (w *MutationWorker) onFailure(ctx context.Context, event worker.Event) {
	if w.hook != nil {
		w.hook.OnFailure(ctx, event)
	}
}

func (w *MutationWorker) onRetry(ctx context.Context, event worker.Event) {
	if w.hook != nil {
		w.hook.OnRetry(ctx, event)
	}
}

// LoggingHook reports worker events through a glog logger.
type LoggingHook struct {
	logger glog.Logger
}

func NewLoggingHook(logger glog.Logger) *LoggingHook {
	return &LoggingHook{logger: glog.Ensure(logger)}
}

func (h *LoggingHook) OnStart(_ context.Context, event worker.Event) {
	h.logger.Debug("peers job started", eventArgs(event)...)
}

func (h *LoggingHook) OnSuccess(_ context.Context, event worker.Event) {
	h.logger.Info("peers job succeeded", eventArgs(event)...)
}

func (h *LoggingHook) OnFailure(_ context.Context, event worker.Event) {
	h.logger.Error("peers job dead-lettered", eventArgs(event)...)
}

func (h *LoggingHook) OnRetry(_ context.Context, event worker.Event) {
	h.logger.Warn("peers job retrying", eventArgs(event)...)
}

func eventArgs(event worker.Event) []any {
	message := event.Message
	if message == nil && event.Delivery != nil {
		message = event.Delivery.Message()
	}
	args := []any{"attempt", event.Attempt, "duration_ms", event.Duration.Milliseconds()}
	if message != nil {
		args = append(args, "job_id", message.JobID, "idempotency_key", message.IdempotencyKey)
	}
	if event.Delay > 0 {
		args = append(args, "delay_ms", event.Delay.Milliseconds())
	}
	if event.Err != nil {
		args = append(args, "error", event.Err.Error(), "ret_code", int(core.ClassifyError(event.Err)))
	}
	return args
}

func stringParam(params map[string]any, key string) string {
	if len(params) == 0 {
		return ""
	}
	value, ok := params[key]
	if !ok || value == nil {
		return ""
	}
	if typed, ok := value.(string); ok {
		return typed
	}
	return fmt.Sprint(value)
}

var (
	_ worker.Hook     = (*LoggingHook)(nil)
	_ MutatingService = (*core.Service)(nil)
)
