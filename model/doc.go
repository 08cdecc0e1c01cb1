// Package model defines the provider-agnostic abstraction the tutor nodes use
// to talk to a language model: text plus tool definitions in, text or tool
// calls out.
//
// Providers (OpenAI, Anthropic) implement Model in sub-packages so the graph
// stays decoupled from vendor SDKs. MockModel replays a scripted sequence of
// responses and is what every graph test runs against.
package model
