// Package tasks implements the conversion orchestrator.
//
// The core abstraction is Converter, which drives a source playlist fetch,
// bounded-concurrency track resolution, checkpointed persistence and a
// source-ordered apply phase, emitting progress events on a channel for the
// transport layer (SSE or TUI) to consume.
//
// All fatal conditions surface as a single terminal error event on the
// stream rather than a returned fault: once streaming has begun the
// transport has no other way to deliver a structured failure. Nothing is
// retried automatically; re-invoking a conversion for the same reference
// resumes from the checkpoint, replaying cached resolution outcomes and
// skipping the already-created playlist.
package tasks
