// Package allocid mints the identifiers used to correlate a session,
// an upload, and a solve across logs, the HTTP surface, and the
// persisted session record.
package allocid

import "github.com/google/uuid"

// NewSessionID identifies one live allocation session — the single
// session this process owns at a time.
func NewSessionID() string {
	return "sess_" + uuid.New().String()
}

// NewSolveID identifies a single Allocate invocation within a session,
// distinct from the session ID so a session's solve history can be
// replayed without ambiguity.
func NewSolveID() string {
	return "solve_" + uuid.New().String()
}
