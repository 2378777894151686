/*
Package ports defines the driven ports (interfaces) for the loom graph
engine.

These interfaces decouple the client-side graph state from external
implementations, allowing the engine to talk to the real persistence
service, an in-memory fake, or anything else that honors the contract.

# Key Interfaces

  - Remote: the persistence collaborator owning durable graph truth.
  - ChangeFeed: the per-workflow push channel of change notifications.
*/
package ports
