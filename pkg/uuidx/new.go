package uuidx

import "github.com/google/uuid"

// New generates a version 7 UUID. Listener, task owner and message identities are
// all minted here so that they sort by creation time.
// It panics if the UUID generation fails.
func New() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// Short returns the first eight hex characters of id, enough to tell
// subscribers apart in log lines.
func Short(id uuid.UUID) string {
	return id.String()[:8]
}
