// Package agent contains the nodes of the lesson graph: the Supervisor that
// collects learner context and fills the Work Queue, the Dispatcher that
// wakes the worker named at the queue head, and the role-parameterized
// Worker that teaches one chunk.
//
// Execution model:
//   - a node's Run receives the Decision that routed control to it and
//     returns the Decision the routers act upon
//   - nodes keep no per-session fields; activation phase lives in session
//     state so a node value can serve any RunContext
//   - every transcript entry goes through RunContext.EmitMessage, which
//     blocks until the runner persisted it
//   - user-facing text goes through the Handoff Channel; a stalled handshake
//     turns into a TimedOut (worker) or Abort (supervisor) decision
package agent
