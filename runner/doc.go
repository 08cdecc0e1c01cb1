// Package runner drives tutoring sessions end to end.
//
// A Runner owns at most one active session. Start creates the session in
// the SessionStore, builds its Work Queue and Handoff Channel and runs the
// lesson graph on a background goroutine. Every message a node emits is
// persisted before the node resumes, then forwarded on the returned
// stream. When the graph ends the Handoff Channel is closed with the
// terminal status so a waiting client observes it through Next.
//
// Cancel and Shutdown cancel the session context; blocked handoff waits
// return and the session ends as cancelled.
package runner
