// Package conversation holds the in-memory session history that requests
// assemble provider calls from.
//
// A Session is created lazily with a system message at index 0. That message
// is never duplicated: later turns only append user and assistant messages,
// and a multi-part user message replaces the plain one it was built from
// rather than being appended twice.
//
// Store is the session-store abstraction. MemoryStore keeps sessions in
// process memory and is the only implementation; in a multi-instance
// deployment it must be replaced by a shared store, since each process only
// sees the sessions it created or hydrated.
package conversation
