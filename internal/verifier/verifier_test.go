package verifier

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/dreamloop/backend/domain"
)

// stubModel is a canned llms.Model for exercising the engine without a
// provider. When block is set it waits for context cancellation first.
type stubModel struct {
	response string
	err      error
	block    bool

	gotMessages []llms.MessageContent
}

func (m *stubModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	m.gotMessages = messages
	if m.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if m.err != nil {
		return nil, m.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: m.response}},
	}, nil
}

func (m *stubModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	resp, err := m.GenerateContent(ctx, []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, prompt)}, options...)
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Content, nil
}

func TestVerify_ApprovedVerdict(t *testing.T) {
	model := &stubModel{response: "```json\n{\"verified\":true,\"confidence\":92,\"feedback\":\"clear evidence\"}\n```"}
	client := NewWithModel(model, time.Second, nil)

	verdict, err := client.Verify(context.Background(), "Run 5km", "https://cdn.example.com/proof.jpg")
	require.NoError(t, err)

	assert.True(t, verdict.Verified)
	assert.Equal(t, 92, verdict.Confidence)
	assert.Equal(t, "clear evidence", verdict.Feedback)
}

func TestVerify_SendsTitleAndImage(t *testing.T) {
	model := &stubModel{response: `{"verified":false,"confidence":0,"feedback":"no"}`}
	client := NewWithModel(model, time.Second, nil)

	_, err := client.Verify(context.Background(), "Read a chapter", "https://cdn.example.com/p.jpg")
	require.NoError(t, err)

	require.Len(t, model.gotMessages, 2)
	assert.Equal(t, llms.ChatMessageTypeSystem, model.gotMessages[0].Role)

	human := model.gotMessages[1]
	assert.Equal(t, llms.ChatMessageTypeHuman, human.Role)
	require.Len(t, human.Parts, 2)
	assert.Contains(t, human.Parts[0].(llms.TextContent).Text, "Read a chapter")
	assert.Equal(t, "https://cdn.example.com/p.jpg", human.Parts[1].(llms.ImageURLContent).URL)
}

func TestVerify_CallErrorRejectsFailSafe(t *testing.T) {
	model := &stubModel{err: errors.New("upstream 502")}
	client := NewWithModel(model, time.Second, nil)

	verdict, err := client.Verify(context.Background(), "Run 5km", "https://cdn.example.com/proof.jpg")
	require.NoError(t, err)

	assert.False(t, verdict.Verified)
	assert.Equal(t, 0, verdict.Confidence)
	assert.Equal(t, domain.FeedbackTransient, verdict.Feedback)
}

func TestVerify_TimeoutRejectsFailSafe(t *testing.T) {
	model := &stubModel{block: true}
	client := NewWithModel(model, 20*time.Millisecond, nil)

	start := time.Now()
	verdict, err := client.Verify(context.Background(), "Run 5km", "https://cdn.example.com/proof.jpg")
	require.NoError(t, err)

	assert.Less(t, time.Since(start), time.Second, "call must resolve at the timeout")
	assert.False(t, verdict.Verified)
	assert.Equal(t, domain.FeedbackTransient, verdict.Feedback)
}

func TestVerify_GarbageResponseRejectsFailSafe(t *testing.T) {
	model := &stubModel{response: "Sure! The photo shows a finished workout."}
	client := NewWithModel(model, time.Second, nil)

	verdict, err := client.Verify(context.Background(), "Run 5km", "https://cdn.example.com/proof.jpg")
	require.NoError(t, err)

	assert.False(t, verdict.Verified)
	assert.Equal(t, domain.FeedbackUnparseable, verdict.Feedback)
}

func TestVerify_EmptyChoicesRejectsFailSafe(t *testing.T) {
	model := &stubModel{}
	model.response = ""
	client := NewWithModel(model, time.Second, nil)

	verdict, err := client.Verify(context.Background(), "Run 5km", "https://cdn.example.com/proof.jpg")
	require.NoError(t, err)
	assert.False(t, verdict.Verified)
}
