// Package api exposes the tutoring session over HTTP and WebSocket.
//
// Endpoints:
//
//	POST /startConversation   {startBool, userID, query}
//	GET  /getAIMessage        next tutor utterance (blocks; ?timeout=30s)
//	POST /acknowledgeMessage  {ack}
//	POST /userInput           {content}
//	GET  /status              runner status and handoff flags
//	GET  /ws                  push channel over the same handoff
//	GET  /sessions/{id}/transcript
//	GET  /users/{id}/progress
//	GET  /healthz
//	GET  /metrics
//
// A client reads an utterance, acknowledges it and, when the tutor waits
// for an answer, posts the learner's reply. Once the session ends
// /getAIMessage returns the terminal payload with the final status.
package api
