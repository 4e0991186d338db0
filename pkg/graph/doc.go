// Package graph holds the validated node definitions of a flow.
//
// A Store is built once from a set of nodes and the ID of the initial node.
// Construction rejects graphs whose edges point nowhere, whose nodes repeat
// an action name, or whose parameter schemas are not usable JSON Schema.
// Cycles are allowed. After construction the store is read-only and safe to
// share between conversations.
package graph
