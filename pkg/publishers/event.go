package publishers

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/samvad-hq/graph-harvester/internal/domain"
)

// Event represents a Graph response published downstream.
type Event struct {
	QueryID     string    `json:"query_id"`
	Path        string    `json:"path"`
	Method      string    `json:"method"`
	Body        string    `json:"body"`
	Fingerprint string    `json:"fingerprint"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// NewEvent constructs an Event for the given query and raw response body.
func NewEvent(q domain.Query, body string) Event {
	return Event{
		QueryID:     q.ID,
		Path:        q.Path,
		Method:      q.Method,
		Body:        body,
		Fingerprint: Fingerprint(body),
		FetchedAt:   time.Now().UTC(),
	}
}

// Fingerprint returns the hex SHA-256 of a response body.
func Fingerprint(body string) string {
	sum := sha256.Sum256([]byte(body))
	return hex.EncodeToString(sum[:])
}
