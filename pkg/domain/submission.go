package domain

import "time"

// ReviewOutcome is the portal's verdict on a submitted request.
type ReviewOutcome string

const (
	ReviewAccepted ReviewOutcome = "accepted"
	ReviewRejected ReviewOutcome = "rejected"
	// ReviewPending means the portal acknowledged the submission but has not
	// ruled yet; the task stays under review until a later dispatch re-polls.
	ReviewPending ReviewOutcome = "pending"
)

// SubmissionResult reports the external effect of submitting a task to an
// administrative portal. Agents must return the same result for repeated
// submissions carrying the same idempotency token.
type SubmissionResult struct {
	Reference   string        `json:"reference"`
	SubmittedAt time.Time     `json:"submitted_at"`
	Outcome     ReviewOutcome `json:"outcome"`
	Message     string        `json:"message,omitempty"`
}
