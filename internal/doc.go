// Package internal documents the charity event server internals.
//
// The internal tree is organized by responsibility:
// - api: HTTP handlers, middleware, problem responses and routing
// - domain: accounts, the event catalog and enrollment coordination
// - docstore: the path-addressed document store and its backends
// - auth, audit, config, metrics, sanitize, telemetry: shared infrastructure
//
// Code in internal/ is not meant for external import.
package internal
