// Package handoff implements the two-phase turn-taking channel between the
// engine and the remote client.
//
// The engine side publishes an utterance with Send, which blocks until the
// client acknowledges it, then blocks in AwaitUserInput until the client
// supplies the learner's reply. The client side polls Next for outbound
// payloads and answers with Acknowledge and SupplyUserInput. Waits are bounded
// by a stall timeout and every waiter is released when the channel is closed
// with a terminal status.
package handoff
