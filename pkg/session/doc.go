/*
Package session owns the live conversations of a process.

A Manager creates flows through a Factory, keeps them keyed by conversation
ID and serializes every operation on one conversation, so two HTTP requests
or MCP tool calls for the same conversation never reach the flow engine at
the same time while different conversations proceed in parallel.

With a DistributedLocker and a shared StateStore the serialization extends
across replicas: a replica that does not hold a conversation in memory
restores it from the last snapshot. Snapshots live only as long as the
conversation and are deleted when it ends.
*/
package session
