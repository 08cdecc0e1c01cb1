// Package core provides the foundational domain types, interfaces and execution
// contexts used by tutormesh. It defines the core abstractions for:
//
//   - Messages (append-only transcript records with tool invocations and results)
//   - Roles and Decisions (the closed set of tutor roles and tagged routing outcomes)
//   - Nodes (supervisor, dispatcher, worker and tool-call steps of the lesson graph)
//   - Sessions (transcript + staged state for one learner)
//   - RunContext / ToolContext (scoped execution & tool sandboxing)
//   - Pluggable stores for transcripts, progress records and lesson content
//
// The package keeps implementation concerns (queues, handoff transport,
// persistence backends, concrete nodes) out of scope and exposes small
// interfaces so backends can be swapped without touching the graph.
package core
