// Package content contains core.ContentStore implementations serving the
// lesson material, the curriculum and learner profiles.
//
// InMemoryStore suits tests and demos, FileStore reads a data directory and
// CachedStore puts a ristretto L1 cache in front of any store.
package content
