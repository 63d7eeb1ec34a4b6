package verifier

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/dreamloop/backend/domain"
)

// codeFencePattern matches a JSON object wrapped in a markdown code fence,
// with or without a language tag.
var codeFencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

var (
	errEmptyResponse   = errors.New("empty response")
	errMissingVerified = errors.New("verified field missing or not a boolean")
)

// rawVerdict uses pointers so absent or mistyped fields are detectable
// instead of silently defaulting.
type rawVerdict struct {
	Verified   *bool  `json:"verified"`
	Confidence *int   `json:"confidence"`
	Feedback   string `json:"feedback"`
}

// ParseVerdict extracts a verdict from untrusted model output in two stages:
// strip an optional markdown fence, then strictly decode the JSON object.
// Any failure returns the fail-safe rejected verdict alongside the parse
// error; callers must never treat a parse error as a completion.
func ParseVerdict(text string) (domain.Verdict, error) {
	fallback := domain.RejectedVerdict(domain.FeedbackUnparseable)

	payload := strings.TrimSpace(text)
	if payload == "" {
		return fallback, errEmptyResponse
	}

	if match := codeFencePattern.FindStringSubmatch(payload); match != nil {
		payload = match[1]
	}

	var raw rawVerdict
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return fallback, err
	}
	if raw.Verified == nil {
		return fallback, errMissingVerified
	}

	confidence := 0
	if raw.Confidence != nil {
		confidence = clampConfidence(*raw.Confidence)
	}

	feedback := strings.TrimSpace(raw.Feedback)
	if feedback == "" {
		feedback = domain.FeedbackUnparseable
	}

	return domain.Verdict{
		Verified:   *raw.Verified,
		Confidence: confidence,
		Feedback:   feedback,
	}, nil
}

func clampConfidence(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
