// Package queue defines message payloads exchanged over the message broker.
package queue

// ApprovalQueueName is the durable queue carrying approval decisions.
const ApprovalQueueName = "approval.events"

// ApprovalEvent is published when an administrator decides on an account.
// It carries enough for a client parked on the awaiting-approval screen to
// re-check immediately instead of waiting out its poll interval.
type ApprovalEvent struct {
	SubjectID      string `json:"subject_id"`
	ApprovalStatus string `json:"approval_status"`
	Role           string `json:"role,omitempty"`
	DecidedBy      string `json:"decided_by,omitempty"`
	DecidedAt      string `json:"decided_at,omitempty"`
}
