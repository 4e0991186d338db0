/*
Package ports defines the driven ports (interfaces) of the flow engine.

These interfaces decouple the core logic from external implementations, allowing
the engine to work with various graph sources, storage backends, speech outputs
and lock providers.

# Key Interfaces

  - Dispatcher: Resolves an action name to its handler (the Action Registry).
  - NodeStore: Read access to validated node definitions.
  - FlowLoader: Produces a flow definition from a source (YAML, Loam, Go code).
  - Flow: One live conversation driven by the engine.
  - StateStore: Keeps snapshots of live conversations.
  - DistributedLocker: Provides distributed locking for concurrent conversation access.
  - Speaker: Text sink for speech output.
*/
package ports
