// Package events defines the message types and payloads pushed over the
// progress WebSocket. Both the hub and the report service publish with
// these names so browser clients can switch on a stable contract.
package events

// Event type names carried in the message envelope.
const (
	TypeConnection  = "connection"
	TypeProgress    = "progress"
	TypeRunComplete = "run:complete"
	TypeRunFailed   = "run:failed"
)

// ConnectionPayload greets a newly registered client.
type ConnectionPayload struct {
	ClientID string `json:"client_id"`
}

// RunFailedPayload reports a failed pipeline run.
type RunFailedPayload struct {
	Error string `json:"error"`
}
