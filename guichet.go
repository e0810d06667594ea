package guichet

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/guichet-dev/guichet/internal/logging"
	"github.com/guichet-dev/guichet/pkg/adapters/memory"
	"github.com/guichet-dev/guichet/pkg/domain"
	"github.com/guichet-dev/guichet/pkg/orchestrator"
	"github.com/guichet-dev/guichet/pkg/ports"
	"github.com/guichet-dev/guichet/pkg/registry"
	"github.com/guichet-dev/guichet/pkg/vault"
)

// Engine is the high-level entry point for the library. It wraps the
// orchestrator and the vault behind one object so thin collaborators
// (HTTP layers, schedulers, document-upload observers) have a single
// dependency to call.
type Engine struct {
	orchestrator *orchestrator.Orchestrator
	registry     *registry.Registry
	vault        *vault.Vault
	metrics      *orchestrator.Metrics

	repo       ports.TaskRepository
	audit      ports.AuditSink
	blobs      ports.BlobStore
	cfg        orchestrator.Config
	logger     *slog.Logger
	registerer prometheus.Registerer
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLogger sets a custom structured logger for all components.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithConfig sets the orchestrator tunables.
func WithConfig(cfg orchestrator.Config) Option {
	return func(e *Engine) {
		e.cfg = cfg
	}
}

// WithRepository injects a task repository, bypassing the in-memory default.
func WithRepository(repo ports.TaskRepository) Option {
	return func(e *Engine) {
		e.repo = repo
	}
}

// WithAuditSink injects an audit sink.
func WithAuditSink(audit ports.AuditSink) Option {
	return func(e *Engine) {
		e.audit = audit
	}
}

// WithBlobStore injects the vault's backing store.
func WithBlobStore(blobs ports.BlobStore) Option {
	return func(e *Engine) {
		e.blobs = blobs
	}
}

// WithRegistry injects a pre-populated agent registry.
func WithRegistry(reg *registry.Registry) Option {
	return func(e *Engine) {
		e.registry = reg
	}
}

// WithVault injects a pre-built vault (e.g. with restored key material).
func WithVault(v *vault.Vault) Option {
	return func(e *Engine) {
		e.vault = v
	}
}

// WithMetricsRegisterer registers the engine's Prometheus collectors
// against reg.
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	return func(e *Engine) {
		e.registerer = reg
	}
}

// New initializes an Engine. Defaults: in-memory repository, audit sink and
// blob store, a fresh AES-256-GCM keyring, no-op logger, default config.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		cfg:    orchestrator.DefaultConfig(),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.repo == nil {
		e.repo = memory.NewRepository()
	}
	if e.audit == nil {
		e.audit = memory.NewAuditSink()
	}
	if e.blobs == nil {
		e.blobs = memory.NewBlobStore()
	}
	if e.registry == nil {
		e.registry = registry.New()
	}

	if e.vault == nil {
		v, err := vault.New(e.blobs, vault.WithLogger(e.logger))
		if err != nil {
			return nil, err
		}
		e.vault = v
	}

	e.metrics = orchestrator.NewMetrics(e.registerer)
	e.orchestrator = orchestrator.New(e.registry, e.repo, e.audit,
		orchestrator.WithConfig(e.cfg),
		orchestrator.WithLogger(e.logger),
		orchestrator.WithMetrics(e.metrics),
	)
	return e, nil
}

// Registry returns the agent registry, for process-start wiring.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// RegisterAgent binds an agent to a type on the engine's registry.
func (e *Engine) RegisterAgent(t domain.AgentType, agent ports.Agent) error {
	return e.registry.Register(t, agent)
}

// CreateTask validates, persists and dispatches a new task.
func (e *Engine) CreateTask(ctx context.Context, spec orchestrator.TaskSpec) (*domain.Task, error) {
	return e.orchestrator.CreateTask(ctx, spec)
}

// Dispatch runs (or resumes) the dispatch sequence for a task.
func (e *Engine) Dispatch(ctx context.Context, taskID string) error {
	return e.orchestrator.Dispatch(ctx, taskID)
}

// Cancel moves a task to cancelled from any non-terminal state.
func (e *Engine) Cancel(ctx context.Context, taskID string, actor domain.Actor) error {
	return e.orchestrator.Cancel(ctx, taskID, actor)
}

// SubmitDocument attaches a document reference to a task. Callers typically
// follow up with Dispatch to resume a task parked on missing documents.
func (e *Engine) SubmitDocument(ctx context.Context, taskID string, ref domain.DocumentRef) error {
	return e.orchestrator.SubmitDocument(ctx, taskID, ref)
}

// Task returns the current state of a task.
func (e *Engine) Task(ctx context.Context, taskID string) (*domain.Task, error) {
	return e.orchestrator.Task(ctx, taskID)
}

// OwnerTasks returns an owner's tasks, most urgent first.
func (e *Engine) OwnerTasks(ctx context.Context, ownerID string) ([]*domain.Task, error) {
	return e.orchestrator.OwnerTasks(ctx, ownerID)
}

// StoreSecret encrypts and stores a sensitive payload for an owner.
// Task metadata references the returned record id, never the payload.
func (e *Engine) StoreSecret(ctx context.Context, ownerID string, payload []byte, class vault.Classification) (string, error) {
	id, err := e.vault.Store(ctx, ownerID, payload, class)
	e.countVaultOp("store", err)
	return id, err
}

// RetrieveSecret decrypts a stored payload for its owner.
func (e *Engine) RetrieveSecret(ctx context.Context, recordID, requesterID string) ([]byte, error) {
	payload, err := e.vault.Retrieve(ctx, recordID, requesterID)
	e.countVaultOp("retrieve", err)
	return payload, err
}

// EraseSecret permanently deletes a stored payload for its owner.
func (e *Engine) EraseSecret(ctx context.Context, recordID, requesterID string) error {
	err := e.vault.Erase(ctx, recordID, requesterID)
	e.countVaultOp("erase", err)
	return err
}

// RotateKeys introduces a new vault key version for future writes.
func (e *Engine) RotateKeys() (int, error) {
	version, err := e.vault.RotateKeys()
	e.countVaultOp("rotate", err)
	return version, err
}

func (e *Engine) countVaultOp(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	e.metrics.VaultOps.WithLabelValues(op, result).Inc()
}
