package generation_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teilomillet/gollm"
	"github.com/teilomillet/parley/server/generation"
	"github.com/teilomillet/parley/server/mocks"
)

func TestGollmModel(t *testing.T) {
	llm := mocks.NewMockLLM(func(ctx context.Context, prompt *gollm.Prompt) (string, error) {
		return "please see a specialist", nil
	})
	tok := mocks.NewMockTokenizer()
	a := generation.NewAdapter(tok, generation.NewGollmModel(llm, tok))

	reply, err := a.Generate(context.Background(), "my head hurts")
	require.NoError(t, err)
	assert.Equal(t, "please see a specialist", reply)
	assert.Equal(t, "my head hurts", llm.LastPrompt())
}

func TestGollmModelTruncatesReply(t *testing.T) {
	llm := mocks.NewMockLLM(func(ctx context.Context, prompt *gollm.Prompt) (string, error) {
		return strings.Repeat("blah ", 400), nil
	})
	tok := mocks.NewMockTokenizer()
	model := generation.NewGollmModel(llm, tok)

	enc, err := tok.Encode("hi", generation.EncodeOptions{MaxLength: generation.MaxLength, PadToMaxLength: true})
	require.NoError(t, err)

	beams, err := model.Generate(context.Background(), enc, generation.FixedOptions)
	require.NoError(t, err)
	require.Len(t, beams, 1)
	assert.Len(t, beams[0], generation.MaxLength)
}

func TestGollmModelError(t *testing.T) {
	llm := mocks.NewMockLLM(func(ctx context.Context, prompt *gollm.Prompt) (string, error) {
		return "", errors.New("provider unavailable")
	})
	tok := mocks.NewMockTokenizer()
	a := generation.NewAdapter(tok, generation.NewGollmModel(llm, tok))

	assert.Equal(t, generation.Apology, a.Reply(context.Background(), "hello"))
}

func TestEchoModel(t *testing.T) {
	tok := mocks.NewMockTokenizer()
	a := generation.NewAdapter(tok, generation.EchoModel{})

	reply, err := a.Generate(context.Background(), "echo this back")
	require.NoError(t, err)
	assert.Equal(t, "echo this back", reply)
}
