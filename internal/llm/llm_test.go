// File: internal/llm/llm_test.go
package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeClient struct {
	name     string
	reply    string
	requests []GenerationRequest
}

func (f *fakeClient) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	f.requests = append(f.requests, req)
	return f.reply, nil
}

func TestParseChoiceIndex(t *testing.T) {
	cases := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{"2", 2, false},
		{" 2 ", 2, false},
		{"2.", 2, false},
		{"Option 3", 3, false},
		{"The answer is 1.", 1, false},
		{"0", 0, true},
		{"-1", 0, true},
		{"none of them", 0, true},
		{"", 0, true},
	}
	for _, tc := range cases {
		got, err := ParseChoiceIndex(tc.raw)
		if tc.wantErr {
			assert.Error(t, err, "raw: %q", tc.raw)
			continue
		}
		require.NoError(t, err, "raw: %q", tc.raw)
		assert.Equal(t, tc.want, got, "raw: %q", tc.raw)
	}
}

func TestRouterDispatchesByTier(t *testing.T) {
	fast := &fakeClient{name: "fast", reply: "1"}
	powerful := &fakeClient{name: "powerful", reply: "essay"}

	router, err := NewRouter(zaptest.NewLogger(t), fast, powerful, 0)
	require.NoError(t, err)

	_, err = router.Generate(context.Background(), GenerationRequest{Tier: TierFast, UserPrompt: "q"})
	require.NoError(t, err)
	_, err = router.Generate(context.Background(), GenerationRequest{Tier: TierPowerful, UserPrompt: "p"})
	require.NoError(t, err)
	// An empty tier defaults to the powerful client.
	_, err = router.Generate(context.Background(), GenerationRequest{UserPrompt: "d"})
	require.NoError(t, err)

	assert.Len(t, fast.requests, 1)
	assert.Len(t, powerful.requests, 2)
}

func TestRouterRequiresBothClients(t *testing.T) {
	_, err := NewRouter(zaptest.NewLogger(t), nil, &fakeClient{}, 0)
	assert.Error(t, err)
}

func TestAssistantSelectChoice(t *testing.T) {
	client := &fakeClient{reply: "2"}
	assistant := NewAssistant(client, zaptest.NewLogger(t))

	idx, err := assistant.SelectChoice(context.Background(), "Pick one", []string{"alpha", "beta"}, "some context")
	require.NoError(t, err)
	assert.Equal(t, 2, idx)

	require.Len(t, client.requests, 1)
	req := client.requests[0]
	assert.Equal(t, TierFast, req.Tier)
	assert.Contains(t, req.UserPrompt, "1. alpha")
	assert.Contains(t, req.UserPrompt, "2. beta")
	assert.Contains(t, req.UserPrompt, "COURSE CONTEXT:")
	assert.Contains(t, req.UserPrompt, "(1-2)")
}

func TestAssistantSelectChoiceNoOptions(t *testing.T) {
	assistant := NewAssistant(&fakeClient{reply: "1"}, zaptest.NewLogger(t))
	_, err := assistant.SelectChoice(context.Background(), "Pick", nil, "")
	assert.Error(t, err)
}

func TestAssistantGenerateText(t *testing.T) {
	client := &fakeClient{reply: "  a thoughtful answer \n"}
	assistant := NewAssistant(client, zaptest.NewLogger(t))

	text, err := assistant.GenerateText(context.Background(), "Explain photosynthesis", "")
	require.NoError(t, err)
	assert.Equal(t, "a thoughtful answer", text)

	require.Len(t, client.requests, 1)
	assert.Equal(t, TierPowerful, client.requests[0].Tier)
}
