// Package workqueue implements the paired Work Queue that assigns lesson
// chunks to tutor roles, and the partitioning step that fills it from a
// classifier's bracket-list output.
//
// The queue keeps two parallel sequences (roles and chunks) that always have
// the same length. Replace swaps both at once and TakeNext pops the head of
// both under one lock, so no caller can observe a half-applied update.
package workqueue
