// Package orchestrator drives tasks from creation through agent dispatch to
// a terminal state. It composes the state machine, the agent registry and
// the external repository/audit collaborators, and owns every concurrency
// guarantee: per-task serialization, the bounded worker pool, timeouts and
// the retry policy.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/guichet-dev/guichet/internal/logging"
	"github.com/guichet-dev/guichet/pkg/domain"
	"github.com/guichet-dev/guichet/pkg/ports"
	"github.com/guichet-dev/guichet/pkg/registry"
	"github.com/guichet-dev/guichet/pkg/statemachine"
)

// TaskSpec is the caller-facing input to CreateTask.
type TaskSpec struct {
	OwnerID           string
	Title             string
	Description       string
	AgentType         domain.AgentType
	Priority          domain.Priority // empty: derived from the deadline
	Deadline          *time.Time
	RequiredDocuments []domain.DocumentKind
	Metadata          map[string]any
}

// Orchestrator coordinates agents and manages the task workflow.
type Orchestrator struct {
	machine  statemachine.Machine
	registry *registry.Registry
	repo     ports.TaskRepository
	audit    ports.AuditSink
	cfg      Config
	logger   *slog.Logger
	metrics  *Metrics
	locks    *lockTable
	slots    chan struct{}
	now      func() time.Time
}

// Option configures the Orchestrator.
type Option func(*Orchestrator)

// WithConfig sets the tunables; zero fields fall back to defaults.
func WithConfig(cfg Config) Option {
	return func(o *Orchestrator) {
		o.cfg = cfg.withDefaults()
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithMetrics sets the Prometheus collectors.
func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithClock overrides the clock, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// New wires an Orchestrator from its collaborators. The registry is injected
// rather than global so tests can construct isolated instances.
func New(reg *registry.Registry, repo ports.TaskRepository, audit ports.AuditSink, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		registry: reg,
		repo:     repo,
		audit:    audit,
		cfg:      DefaultConfig(),
		logger:   logging.NewNop(),
		locks:    newLockTable(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.metrics == nil {
		o.metrics = NewMetrics(nil)
	}
	o.machine = statemachine.Machine{Now: o.now}
	o.slots = make(chan struct{}, o.cfg.WorkerPoolSize)
	return o
}

// CreateTask validates the spec, persists the new task in the created state
// and immediately dispatches it. If persistence fails no task is visible to
// the caller; dispatch failures after a successful create are reflected in
// the task's own state, not in the returned error.
func (o *Orchestrator) CreateTask(ctx context.Context, spec TaskSpec) (*domain.Task, error) {
	if err := validateSpec(spec); err != nil {
		return nil, err
	}

	task := &domain.Task{
		ID:                domain.NewTaskID(),
		OwnerID:           spec.OwnerID,
		Title:             spec.Title,
		Description:       spec.Description,
		AgentType:         spec.AgentType,
		Priority:          spec.Priority,
		Deadline:          spec.Deadline,
		RequiredDocuments: append([]domain.DocumentKind(nil), spec.RequiredDocuments...),
		Metadata:          spec.Metadata,
	}
	if task.Priority == "" {
		task.Priority = domain.PriorityForDeadline(o.now(), task.Deadline)
	}

	initial := o.machine.Initial(task, domain.ActorUser)

	if err := o.retryExternal(ctx, "repository create", func(ctx context.Context) error {
		return o.repo.Create(ctx, task)
	}); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	if err := o.appendAudit(ctx, initial); err != nil {
		o.logger.Error("audit append failed for initial transition", "task_id", task.ID, "error", err)
	}

	o.logger.Info("task created",
		"task_id", task.ID,
		"agent_type", task.AgentType,
		"priority", task.Priority,
	)

	if err := o.Dispatch(ctx, task.ID); err != nil {
		o.logger.Error("initial dispatch failed", "task_id", task.ID, "error", err)
	}

	return o.repo.Get(ctx, task.ID)
}

func validateSpec(spec TaskSpec) error {
	var errs []error
	if strings.TrimSpace(spec.Title) == "" {
		errs = append(errs, &domain.ValidationError{Key: "title", Reason: "must not be empty"})
	}
	if spec.OwnerID == "" {
		errs = append(errs, &domain.ValidationError{Key: "owner_id", Reason: "must not be empty"})
	}
	if _, err := domain.ParseAgentType(string(spec.AgentType)); err != nil {
		errs = append(errs, err)
	}
	seen := make(map[domain.DocumentKind]bool)
	for _, kind := range spec.RequiredDocuments {
		if strings.TrimSpace(string(kind)) == "" {
			errs = append(errs, &domain.ValidationError{Key: "required_documents", Reason: "document kind must not be empty"})
			continue
		}
		if seen[kind] {
			errs = append(errs, &domain.ValidationError{Key: "required_documents", Reason: "duplicate document kind", Value: string(kind)})
		}
		seen[kind] = true
	}
	if len(errs) > 0 {
		return &domain.AggregateError{Errors: errs}
	}
	return nil
}

// Dispatch drives one full dispatch sequence for a task. At most one
// dispatch is in flight per task id: concurrent calls are rejected with
// domain.ErrDispatchInProgress rather than queued. System-wide concurrency
// is bounded by the worker pool; callers beyond the bound wait for a slot.
func (o *Orchestrator) Dispatch(ctx context.Context, taskID string) error {
	unlock, ok := o.locks.tryLock(taskID)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrDispatchInProgress, taskID)
	}
	defer unlock()

	select {
	case o.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	o.metrics.InFlight.Inc()
	defer func() {
		<-o.slots
		o.metrics.InFlight.Dec()
	}()

	err := o.runDispatch(ctx, taskID)
	result := "ok"
	if err != nil {
		result = "error"
	}
	o.metrics.Dispatches.WithLabelValues(result).Inc()
	return err
}

// runDispatch executes the dispatch steps while the caller holds the
// per-task lock and a worker slot.
func (o *Orchestrator) runDispatch(ctx context.Context, taskID string) error {
	task, err := o.repo.Get(ctx, taskID)
	if err != nil {
		return err
	}

	logger := o.logger.With("task_id", task.ID, "agent_type", task.AgentType)

	if task.State.IsTerminal() {
		return &domain.InvalidTransitionError{From: task.State, To: domain.StatePending}
	}

	// Step 1: fresh tasks move to pending; a re-dispatch after a restart
	// resumes from wherever the previous run left the task.
	if task.State == domain.StateCreated {
		if err := o.transition(ctx, task, domain.StatePending, domain.ActorSystem, nil); err != nil {
			return err
		}
	}

	// Step 2: resolve the agent. A missing agent is a configuration error
	// and fatal for the task.
	agent, err := o.registry.Resolve(task.AgentType)
	if err != nil {
		logger.Error("agent resolution failed", "error", err)
		o.failTask(ctx, task, err)
		return err
	}

	// Step 3: document validation, unless the task already progressed past it.
	if task.State == domain.StatePending || task.State == domain.StateAwaitingDocuments {
		var valid bool
		err := o.callExternal(ctx, func(ctx context.Context) error {
			var vErr error
			valid, vErr = agent.ValidateDocuments(ctx, task)
			return vErr
		})
		if err != nil {
			logger.Error("document validation failed", "error", err)
			o.failTask(ctx, task, err)
			return err
		}
		if !valid {
			if task.State != domain.StateAwaitingDocuments {
				if err := o.transition(ctx, task, domain.StateAwaitingDocuments, domain.ActorSystem, map[string]any{
					"missing": task.MissingDocuments(),
				}); err != nil {
					return err
				}
			}
			logger.Info("task awaiting documents")
			// Not an error: a later document submission triggers a
			// fresh dispatch.
			return nil
		}

		// Step 4: begin processing.
		if err := o.transition(ctx, task, domain.StateInProgress, domain.ActorSystem, nil); err != nil {
			return err
		}
	}

	if task.State == domain.StateInProgress {
		var updated *domain.Task
		err := o.callExternal(ctx, func(ctx context.Context) error {
			var pErr error
			updated, pErr = agent.ProcessTask(ctx, task)
			return pErr
		})
		if err != nil {
			logger.Error("task processing failed", "error", err)
			o.failTask(ctx, task, err)
			return err
		}
		if updated != nil {
			task.AdvanceProgress(updated.Progress)
			if updated.Metadata != nil {
				task.Metadata = updated.Metadata
			}
		}
		if err := o.persistTask(ctx, task); err != nil {
			return err
		}
	}

	// Step 5: portal submission with a stable idempotency token, then the
	// review outcome. Resuming from under_review re-polls with the same
	// token, which the agent idempotency contract makes safe.
	return o.submitAndReview(ctx, task, agent, logger)
}

// idempotencyToken returns the stable token passed to every submission
// attempt for a task.
func idempotencyToken(taskID string) string {
	return "tok-" + taskID
}

func (o *Orchestrator) submitAndReview(ctx context.Context, task *domain.Task, agent ports.Agent, logger *slog.Logger) error {
	token := idempotencyToken(task.ID)

	var result *domain.SubmissionResult
	err := o.retryExternal(ctx, "portal submission", func(ctx context.Context) error {
		var sErr error
		result, sErr = agent.SubmitToPortal(ctx, task, token)
		return sErr
	})
	if err != nil {
		logger.Error("portal submission failed", "error", err)
		o.failTask(ctx, task, err)
		return err
	}

	if task.State == domain.StateInProgress {
		if err := o.transition(ctx, task, domain.StateUnderReview, domain.ActorSystem, map[string]any{
			"reference": result.Reference,
		}); err != nil {
			return err
		}
	}

	switch result.Outcome {
	case domain.ReviewAccepted:
		if err := o.transition(ctx, task, domain.StateCompleted, domain.ActorSystem, map[string]any{
			"reference": result.Reference,
		}); err != nil {
			return err
		}
		logger.Info("task completed", "reference", result.Reference)
		return nil
	case domain.ReviewRejected:
		rejection := domain.NewPermanentSubmissionError("portal review", errors.New(result.Message))
		o.failTask(ctx, task, rejection)
		logger.Warn("task rejected by portal", "reference", result.Reference)
		return nil
	default:
		// Still under review; a later dispatch re-polls the outcome.
		logger.Info("task under review", "reference", result.Reference)
		return nil
	}
}

// transition applies a state-machine edge and persists both the task and
// the audit record.
func (o *Orchestrator) transition(ctx context.Context, task *domain.Task, target domain.TaskState, actor domain.Actor, trCtx map[string]any) error {
	record, err := o.machine.Apply(task, target, actor, trCtx)
	if err != nil {
		// Contract violations are never swallowed.
		o.logger.Error("state transition rejected",
			"task_id", task.ID,
			"target", target,
			"error", err,
		)
		return err
	}

	if err := o.persistTask(ctx, task); err != nil {
		return err
	}
	if err := o.appendAudit(ctx, record); err != nil {
		return err
	}

	from := ""
	if record.From != nil {
		from = string(*record.From)
	}
	o.metrics.Transitions.WithLabelValues(from, string(record.To)).Inc()
	o.logger.Info("task transitioned", "task_id", task.ID, "from", from, "to", target)
	return nil
}

func (o *Orchestrator) persistTask(ctx context.Context, task *domain.Task) error {
	return o.retryExternal(ctx, "repository update", func(ctx context.Context) error {
		return o.repo.Update(ctx, task)
	})
}

func (o *Orchestrator) appendAudit(ctx context.Context, record *domain.StateTransition) error {
	return o.retryExternal(ctx, "audit append", func(ctx context.Context) error {
		return o.audit.Append(ctx, record)
	})
}

// failTask moves a task to failed with a sanitized error summary. Progress
// keeps its last good value. When the failed edge does not exist from the
// current state (e.g. awaiting_documents), the error message is persisted
// without a transition.
func (o *Orchestrator) failTask(ctx context.Context, task *domain.Task, cause error) {
	task.ErrorMessage = sanitizeError(cause)

	if !o.machine.ValidateTransition(task.State, domain.StateFailed) {
		if err := o.persistTask(ctx, task); err != nil {
			o.logger.Error("failed to persist task error", "task_id", task.ID, "error", err)
		}
		return
	}
	if err := o.transition(ctx, task, domain.StateFailed, domain.ActorSystem, map[string]any{
		"error": task.ErrorMessage,
	}); err != nil {
		o.logger.Error("failed to mark task failed", "task_id", task.ID, "error", err)
	}
}

// sanitizeError produces the human-readable summary stored on the task.
// Vault plaintext can never appear here: the orchestrator never holds
// decrypted payloads.
func sanitizeError(err error) string {
	msg := err.Error()
	const maxLen = 512
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}

// Cancel moves a task to cancelled. It is permitted from any non-terminal
// state and never invokes the agent's submission step. Cancellation waits
// for the per-task lock, so it cannot interleave mid-step with an active
// dispatch; if that dispatch drove the task to a terminal state first,
// Cancel returns the resulting InvalidTransitionError.
func (o *Orchestrator) Cancel(ctx context.Context, taskID string, actor domain.Actor) error {
	unlock := o.locks.lock(taskID)
	defer unlock()

	task, err := o.repo.Get(ctx, taskID)
	if err != nil {
		return err
	}
	return o.transition(ctx, task, domain.StateCancelled, actor, nil)
}

// SubmitDocument attaches a document reference to a task. The kind must be
// one of the task's required kinds. Submission does not itself re-dispatch:
// the collaborator observing the upload triggers a fresh Dispatch, which is
// only meaningful once any in-flight dispatch released the task lock.
func (o *Orchestrator) SubmitDocument(ctx context.Context, taskID string, ref domain.DocumentRef) error {
	unlock := o.locks.lock(taskID)
	defer unlock()

	task, err := o.repo.Get(ctx, taskID)
	if err != nil {
		return err
	}
	if task.State.IsTerminal() {
		return &domain.ValidationError{Key: "state", Reason: "cannot submit documents to a terminal task", Value: string(task.State)}
	}
	if !task.RequiresDocument(ref.Kind) {
		return &domain.ValidationError{Key: "kind", Reason: "document kind not required by task", Value: string(ref.Kind)}
	}

	if ref.SubmittedAt.IsZero() {
		ref.SubmittedAt = o.now()
	}
	task.SubmittedDocuments = append(task.SubmittedDocuments, ref)
	task.UpdatedAt = o.now()

	if err := o.persistTask(ctx, task); err != nil {
		return err
	}
	o.logger.Info("document submitted", "task_id", taskID, "kind", ref.Kind)
	return nil
}

// Task returns the current state of a task.
func (o *Orchestrator) Task(ctx context.Context, taskID string) (*domain.Task, error) {
	return o.repo.Get(ctx, taskID)
}

// OwnerTasks returns an owner's tasks, most urgent first, ties broken by
// creation time.
func (o *Orchestrator) OwnerTasks(ctx context.Context, ownerID string) ([]*domain.Task, error) {
	tasks, err := o.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].Priority.Rank() != tasks[j].Priority.Rank() {
			return tasks[i].Priority.Rank() < tasks[j].Priority.Rank()
		}
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	return tasks, nil
}
