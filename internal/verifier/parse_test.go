package verifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamloop/backend/domain"
)

func TestParseVerdict_FencedJSON(t *testing.T) {
	input := "```json\n{\"verified\":true,\"confidence\":92,\"feedback\":\"clear evidence\"}\n```"

	verdict, err := ParseVerdict(input)
	require.NoError(t, err)

	assert.True(t, verdict.Verified)
	assert.Equal(t, 92, verdict.Confidence)
	assert.Equal(t, "clear evidence", verdict.Feedback)
}

func TestParseVerdict_FenceWithoutLanguageTag(t *testing.T) {
	input := "```\n{\"verified\":false,\"confidence\":40,\"feedback\":\"image too blurry\"}\n```"

	verdict, err := ParseVerdict(input)
	require.NoError(t, err)

	assert.False(t, verdict.Verified)
	assert.Equal(t, 40, verdict.Confidence)
}

func TestParseVerdict_BareJSON(t *testing.T) {
	input := `{"verified":true,"confidence":85,"feedback":"looks done"}`

	verdict, err := ParseVerdict(input)
	require.NoError(t, err)

	assert.True(t, verdict.Verified)
	assert.Equal(t, 85, verdict.Confidence)
}

func TestParseVerdict_Garbage(t *testing.T) {
	verdict, err := ParseVerdict("I think this looks great, well done!")
	require.Error(t, err)

	assert.False(t, verdict.Verified)
	assert.Equal(t, 0, verdict.Confidence)
	assert.Equal(t, domain.FeedbackUnparseable, verdict.Feedback)
}

func TestParseVerdict_EmptyResponse(t *testing.T) {
	verdict, err := ParseVerdict("   ")
	require.Error(t, err)
	assert.False(t, verdict.Verified)
}

func TestParseVerdict_VerifiedNotBoolean(t *testing.T) {
	verdict, err := ParseVerdict(`{"verified":"yes","confidence":90,"feedback":"ok"}`)
	require.Error(t, err)

	assert.False(t, verdict.Verified, "mistyped verified must never approve")
	assert.Equal(t, 0, verdict.Confidence)
}

func TestParseVerdict_VerifiedMissing(t *testing.T) {
	verdict, err := ParseVerdict(`{"confidence":90,"feedback":"ok"}`)
	require.Error(t, err)
	assert.False(t, verdict.Verified)
}

func TestParseVerdict_ConfidenceClampedAndDefaulted(t *testing.T) {
	verdict, err := ParseVerdict(`{"verified":true,"confidence":180,"feedback":"ok"}`)
	require.NoError(t, err)
	assert.Equal(t, 100, verdict.Confidence)

	verdict, err = ParseVerdict(`{"verified":true,"feedback":"ok"}`)
	require.NoError(t, err)
	assert.Equal(t, 0, verdict.Confidence)
}

func TestParseVerdict_MissingFeedbackGetsFallbackText(t *testing.T) {
	verdict, err := ParseVerdict(`{"verified":false,"confidence":10}`)
	require.NoError(t, err)
	assert.Equal(t, domain.FeedbackUnparseable, verdict.Feedback)
}

func TestParseVerdict_ProseAroundFence(t *testing.T) {
	input := "Here is my assessment:\n```json\n{\"verified\":true,\"confidence\":75,\"feedback\":\"gym photo matches\"}\n```\nLet me know if you need more."

	verdict, err := ParseVerdict(input)
	require.NoError(t, err)
	assert.True(t, verdict.Verified)
	assert.Equal(t, 75, verdict.Confidence)
}
