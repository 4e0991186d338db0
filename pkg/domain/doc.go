/*
Package domain contains the core models of a conversation flow.

It defines the entities of the state machine: Nodes, the Actions they expose
to the LLM, the Directives executed around transitions and the Snapshot of a
running conversation. This package is kept pure and free of I/O so it can be
shared by the engine, the stores and every transport.

# Key Entities

  - Node: A state of the conversation with its own prompt and actions.
  - Action: A function the LLM may call while the node is current. Node
    actions keep the conversation in place, edge actions move it to Target.
  - Directive: A non-LLM side effect (speak, end_conversation) run before
    entering or after leaving a node.
  - Snapshot: The observable Flow State (current node, context, tools).
*/
package domain
