/*
Package guichet automates multi-step administrative procedures by routing
tasks to domain-specialized agents under a supervising orchestrator, while
isolating sensitive personal data in an encrypted vault.

The root Engine is a thin facade wiring the three core components:

  - statemachine: pure lifecycle transition logic for tasks
  - registry: the capability map from agent type to handler
  - vault: authenticated encryption for sensitive payloads

plus the orchestrator that composes them with the injected repository and
audit collaborators. Collaborating surfaces (HTTP, dashboards, document
ingestion) call the Engine and render their own responses.
*/
package guichet
