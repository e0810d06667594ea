/*
Package ports defines the driven ports (interfaces) for the orchestration
engine.

These interfaces decouple the core from external collaborators, allowing the
engine to work with various persistence backends, audit transports, and
portal connectors.

# Key Interfaces

  - TaskRepository: persists tasks with strong read-after-write per task id.
  - AuditSink: receives the append-only trail of state transitions.
  - BlobStore: opaque storage for encrypted vault records.
  - Agent: the capability set a domain handler exposes to the orchestrator.
  - Connector: the portal-facing surface agents call internally.
*/
package ports
