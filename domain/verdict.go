package domain

import "fmt"

// Verdict is the structured outcome of a proof verification call.
type Verdict struct {
	Verified   bool   `json:"verified"`
	Confidence int    `json:"confidence"`
	Feedback   string `json:"feedback"`
}

// Fallback feedback strings. These are the only messages surfaced when the
// verification call cannot produce a trustworthy verdict; raw provider
// output is logged, never shown to the user.
const (
	FeedbackUnparseable = "Unable to verify - please upload a clearer image that shows proof of task completion."
	FeedbackTransient   = "Verification is temporarily unavailable. Please try submitting again in a moment."
)

// RejectedVerdict builds the fail-safe verdict used whenever a decision
// cannot be reliably made. Completion is never granted on an engine fault.
func RejectedVerdict(feedback string) Verdict {
	return Verdict{
		Verified:   false,
		Confidence: 0,
		Feedback:   feedback,
	}
}

// Notes renders the verdict as the audit string stored on the task.
func (v Verdict) Notes() string {
	return fmt.Sprintf("AI Verification (%d%% confidence): %s", v.Confidence, v.Feedback)
}
