// Package agents provides the portal-backed agent implementation used for
// the supported administrative domains. Each agent wraps a connector that
// speaks one portal's API; the orchestration core only sees the capability
// set.
package agents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mitchellh/mapstructure"

	"github.com/guichet-dev/guichet/internal/logging"
	"github.com/guichet-dev/guichet/pkg/domain"
	"github.com/guichet-dev/guichet/pkg/ports"
)

// FormSpec is the agent-owned shape of the task metadata. Tasks carry it as
// an opaque map; the agent decodes it when preparing the portal form.
type FormSpec struct {
	FormType string         `mapstructure:"form_type"`
	Fields   map[string]any `mapstructure:"fields"`

	// RecordID optionally names a portal-side record whose fields pre-fill
	// the form (e.g. last year's declaration).
	RecordID string `mapstructure:"record_id"`
}

// PortalAgent implements ports.Agent for one administrative domain by
// preparing a form from the task metadata and filing it through a connector.
type PortalAgent struct {
	agentType domain.AgentType
	portal    string
	connector ports.Connector
	logger    *slog.Logger
}

// Option configures a PortalAgent.
type Option func(*PortalAgent)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *PortalAgent) {
		a.logger = logger
	}
}

// NewPortalAgent builds an agent for the given domain and portal.
func NewPortalAgent(agentType domain.AgentType, portal string, connector ports.Connector, opts ...Option) *PortalAgent {
	a := &PortalAgent{
		agentType: agentType,
		portal:    portal,
		connector: connector,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With("agent_type", agentType, "portal", portal)
	return a
}

// Constructors binding the supported domains to their portals.

func NewFiscalAgent(connector ports.Connector, opts ...Option) *PortalAgent {
	return NewPortalAgent(domain.AgentFiscal, "impots.gouv.fr", connector, opts...)
}

func NewHealthAgent(connector ports.Connector, opts ...Option) *PortalAgent {
	return NewPortalAgent(domain.AgentHealth, "ameli.fr", connector, opts...)
}

func NewMobilityAgent(connector ports.Connector, opts ...Option) *PortalAgent {
	return NewPortalAgent(domain.AgentMobility, "ants.gouv.fr", connector, opts...)
}

func NewHousingAgent(connector ports.Connector, opts ...Option) *PortalAgent {
	return NewPortalAgent(domain.AgentHousing, "caf.fr", connector, opts...)
}

func NewEmploymentAgent(connector ports.Connector, opts ...Option) *PortalAgent {
	return NewPortalAgent(domain.AgentEmployment, "francetravail.fr", connector, opts...)
}

// Type returns the domain this agent handles.
func (a *PortalAgent) Type() domain.AgentType {
	return a.agentType
}

// ValidateDocuments checks completeness and that every submitted reference
// actually points at a stored document.
func (a *PortalAgent) ValidateDocuments(ctx context.Context, task *domain.Task) (bool, error) {
	if missing := task.MissingDocuments(); len(missing) > 0 {
		a.logger.Warn("documents missing", "task_id", task.ID, "missing", missing)
		return false, nil
	}
	for _, ref := range task.SubmittedDocuments {
		if ref.DocumentID == "" {
			return false, &domain.ValidationError{Key: "submitted_documents", Reason: "document reference without id", Value: string(ref.Kind)}
		}
	}
	return true, nil
}

// ProcessTask prepares the portal form, advancing progress through the
// preparation phases, and stores the prepared form back into the metadata.
func (a *PortalAgent) ProcessTask(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	updated := task.Clone()
	updated.AdvanceProgress(10)

	var spec FormSpec
	if err := mapstructure.Decode(task.Metadata, &spec); err != nil {
		return nil, fmt.Errorf("failed to decode task metadata: %w", err)
	}
	updated.AdvanceProgress(30)

	fields := make(map[string]any, len(spec.Fields))
	for k, v := range spec.Fields {
		fields[k] = v
	}

	// Pre-fill from the portal-side record when the task names one.
	if spec.RecordID != "" {
		record, err := a.connector.FetchRecord(ctx, spec.RecordID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch portal record %s: %w", spec.RecordID, err)
		}
		for k, v := range record {
			if _, set := fields[k]; !set {
				fields[k] = v
			}
		}
	}
	updated.AdvanceProgress(50)

	if updated.Metadata == nil {
		updated.Metadata = make(map[string]any)
	}
	updated.Metadata["form"] = map[string]any{
		"form_type": spec.FormType,
		"fields":    fields,
		"documents": len(task.SubmittedDocuments),
	}
	updated.AdvanceProgress(70)

	a.logger.Info("task processed", "task_id", task.ID, "form_type", spec.FormType)
	return updated, nil
}

// SubmitToPortal authenticates and files the prepared form. The idempotency
// token is forwarded to the connector, which must deduplicate on it.
func (a *PortalAgent) SubmitToPortal(ctx context.Context, task *domain.Task, idempotencyToken string) (*domain.SubmissionResult, error) {
	if err := a.connector.Authenticate(ctx); err != nil {
		return nil, domain.NewTransientSubmissionError("portal authentication", err)
	}

	form, _ := task.Metadata["form"].(map[string]any)
	if form == nil {
		form = map[string]any{}
	}

	result, err := a.connector.Submit(ctx, form, idempotencyToken)
	if err != nil {
		var se *domain.SubmissionError
		if errors.As(err, &se) {
			// Already classified by the connector.
			return nil, err
		}
		// Unclassified connector failures are assumed transient
		// (network class); portals signal rejections explicitly.
		return nil, domain.NewTransientSubmissionError("portal submit", err)
	}

	a.logger.Info("task submitted", "task_id", task.ID, "reference", result.Reference, "outcome", result.Outcome)
	return result, nil
}
