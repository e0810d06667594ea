// Package registry maps agent types to their handler implementations.
package registry

import (
	"fmt"
	"sync"

	"github.com/guichet-dev/guichet/pkg/domain"
	"github.com/guichet-dev/guichet/pkg/ports"
)

// Registry holds the agents available for dispatch. Registration happens
// once at process start, before dispatching begins; lookups are safe for
// unbounded concurrent readers.
//
// Registries are constructed explicitly and injected into the orchestrator,
// so tests can build isolated instances per case.
type Registry struct {
	mu     sync.RWMutex
	agents map[domain.AgentType]ports.Agent
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		agents: make(map[domain.AgentType]ports.Agent),
	}
}

// Register adds an agent for a type. It fails with domain.ErrDuplicateAgent
// if the type is already bound; use Replace for hot-reload scenarios.
func (r *Registry) Register(t domain.AgentType, agent ports.Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.agents[t]; exists {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateAgent, t)
	}
	r.agents[t] = agent
	return nil
}

// MustRegister is Register that panics on error, for process-start wiring.
func (r *Registry) MustRegister(t domain.AgentType, agent ports.Agent) {
	if err := r.Register(t, agent); err != nil {
		panic(err)
	}
}

// Replace binds an agent to a type, overwriting any existing binding.
// This is the explicit override for hot-reload; normal wiring uses Register.
func (r *Registry) Replace(t domain.AgentType, agent ports.Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[t] = agent
}

// Resolve returns the agent for a type, or domain.ErrAgentNotFound.
func (r *Registry) Resolve(t domain.AgentType) (ports.Agent, error) {
	r.mu.RLock()
	agent, ok := r.agents[t]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrAgentNotFound, t)
	}
	return agent, nil
}

// Types returns the currently registered agent types.
func (r *Registry) Types() []domain.AgentType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]domain.AgentType, 0, len(r.agents))
	for t := range r.agents {
		types = append(types, t)
	}
	return types
}
