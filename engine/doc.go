// Package engine executes the lesson graph of one tutoring session.
//
// # Graph
//
//	        ┌──────────── UserTurn ────────────┐
//	        ▼                                  │
//	┌──────────────┐  CallTool  ┌───────────┐  │
//	│  supervisor  │ ─────────► │ tool_call │ ─┘ ToolReturn(owner)
//	└──────────────┘ ◄──────┐   └───────────┘
//	   │ Partitioned        │        ▲
//	   ▼                    │        │ CallTool
//	┌──────────────┐ NoMore │   ┌──────────┐
//	│  dispatcher  │ ───────┘   │  worker  │ ◄─ UserTurn
//	└──────────────┘ ─────────► └──────────┘
//	       ▲        Dispatch(r)      │
//	       └──────── LessonDone ─────┘
//
// Exactly one node is active at a time. A node runs to completion,
// including the tool calls it triggers, before the router picks the next
// node. Routers switch on the tagged decision a node returns, never on
// message text. Terminate and Abort end the run.
//
// # Results
//
// Run returns a Result whose Status is completed (NoMoreLessons led to
// Terminate), aborted (queue integrity, partition failures, no lesson),
// timed_out (a handoff wait stalled) or, together with an error, failed or
// cancelled.
//
// # Callbacks
//
// CallbackManager runs hooks before and after every node and on node
// errors. QueueGuardCallback re-checks that a dispatched worker heads the
// Work Queue.
package engine
