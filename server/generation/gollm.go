package generation

import (
	"context"
	"fmt"

	"github.com/teilomillet/gollm"
)

// GollmModel runs generation on a text LLM provider through gollm. The
// provider works on text, so the attended input ids are decoded before the
// call and the reply is encoded again, truncated to the output limit.
type GollmModel struct {
	llm       gollm.LLM
	tokenizer Tokenizer
}

// NewGollmModel wraps llm. The tokenizer must be the one used to encode
// the model input.
func NewGollmModel(llm gollm.LLM, tokenizer Tokenizer) *GollmModel {
	return &GollmModel{llm: llm, tokenizer: tokenizer}
}

// NewGollmLLM creates a gollm client for the given provider and model.
func NewGollmLLM(provider, model, apiKey string, maxTokens int) (gollm.LLM, error) {
	llm, err := gollm.NewLLM(
		gollm.SetProvider(provider),
		gollm.SetModel(model),
		gollm.SetAPIKey(apiKey),
		gollm.SetMaxTokens(maxTokens),
		gollm.SetMaxRetries(0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s provider: %w", provider, err)
	}
	return llm, nil
}

// Generate returns a single sequence; providers do not expose beams.
func (m *GollmModel) Generate(ctx context.Context, enc *Encoding, opts Options) ([][]int, error) {
	text, err := m.tokenizer.Decode(enc.Attended(), DecodeOptions{SkipSpecialTokens: true})
	if err != nil {
		return nil, fmt.Errorf("decode prompt: %w", err)
	}

	reply, err := m.llm.Generate(ctx, gollm.NewPrompt(text))
	if err != nil {
		return nil, err
	}

	out, err := m.tokenizer.Encode(reply, EncodeOptions{MaxLength: opts.MaxLength, Truncate: true})
	if err != nil {
		return nil, fmt.Errorf("encode reply: %w", err)
	}
	return [][]int{out.InputIDs}, nil
}

// Ping sends a tiny prompt to the provider. Providers have no cheaper
// liveness call.
func (m *GollmModel) Ping(ctx context.Context) error {
	_, err := m.llm.Generate(ctx, gollm.NewPrompt("health check"))
	return err
}
