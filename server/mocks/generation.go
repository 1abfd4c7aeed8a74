package mocks

import (
	"context"
	"strings"
	"sync"

	"github.com/teilomillet/parley/server/generation"
)

// MockTokenizer is a word-level tokenizer. Each distinct whitespace
// separated word gets the next free id; id 0 is the pad token.
type MockTokenizer struct {
	EncodeFunc func(string, generation.EncodeOptions) (*generation.Encoding, error)
	DecodeFunc func([]int, generation.DecodeOptions) (string, error)

	mu          sync.Mutex
	vocab       map[string]int
	words       []string
	EncodeCalls []string
	DecodeCalls [][]int
}

// PadToken is the word MockTokenizer decodes id 0 to.
const PadToken = "<pad>"

// NewMockTokenizer creates a MockTokenizer with an empty vocabulary.
func NewMockTokenizer() *MockTokenizer {
	return &MockTokenizer{
		vocab: map[string]int{PadToken: 0},
		words: []string{PadToken},
	}
}

// Encode implements generation.Tokenizer
func (m *MockTokenizer) Encode(text string, opts generation.EncodeOptions) (*generation.Encoding, error) {
	m.mu.Lock()
	m.EncodeCalls = append(m.EncodeCalls, text)
	m.mu.Unlock()
	if m.EncodeFunc != nil {
		return m.EncodeFunc(text, opts)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var ids, mask []int
	for _, w := range strings.Fields(text) {
		if opts.MaxLength > 0 && len(ids) == opts.MaxLength {
			if !opts.Truncate {
				return nil, generation.ErrInputTooLong
			}
			break
		}
		ids = append(ids, m.id(w))
		mask = append(mask, 1)
	}
	for opts.PadToMaxLength && len(ids) < opts.MaxLength {
		ids = append(ids, 0)
		mask = append(mask, 0)
	}
	return &generation.Encoding{InputIDs: ids, AttentionMask: mask}, nil
}

// Decode implements generation.Tokenizer
func (m *MockTokenizer) Decode(ids []int, opts generation.DecodeOptions) (string, error) {
	m.mu.Lock()
	m.DecodeCalls = append(m.DecodeCalls, ids)
	m.mu.Unlock()
	if m.DecodeFunc != nil {
		return m.DecodeFunc(ids, opts)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	words := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == 0 && opts.SkipSpecialTokens {
			continue
		}
		if id >= 0 && id < len(m.words) {
			words = append(words, m.words[id])
		}
	}
	return strings.Join(words, " "), nil
}

// IDs returns the ids of the given words, assigning new ones as needed.
func (m *MockTokenizer) IDs(text string) []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int
	for _, w := range strings.Fields(text) {
		ids = append(ids, m.id(w))
	}
	return ids
}

func (m *MockTokenizer) id(word string) int {
	if m.vocab == nil {
		m.vocab = map[string]int{PadToken: 0}
		m.words = []string{PadToken}
	}
	if id, ok := m.vocab[word]; ok {
		return id
	}
	id := len(m.words)
	m.vocab[word] = id
	m.words = append(m.words, word)
	return id
}

// MockModel records every call. Without GenerateFunc it echoes the attended
// input ids as a single beam.
type MockModel struct {
	GenerateFunc func(context.Context, *generation.Encoding, generation.Options) ([][]int, error)

	mu      sync.Mutex
	Calls   []*generation.Encoding
	Options []generation.Options
}

// Generate implements generation.Model
func (m *MockModel) Generate(ctx context.Context, enc *generation.Encoding, opts generation.Options) ([][]int, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, enc)
	m.Options = append(m.Options, opts)
	m.mu.Unlock()

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, enc, opts)
	}
	return [][]int{enc.Attended()}, nil
}

// CallCount returns how many times Generate was called.
func (m *MockModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// MockGenerator implements processing.Generator and records its inputs.
type MockGenerator struct {
	ReplyFunc func(context.Context, string) string

	mu     sync.Mutex
	Inputs []string
}

// NewMockGenerator creates a generator returning reply for every input.
func NewMockGenerator(reply string) *MockGenerator {
	return &MockGenerator{
		ReplyFunc: func(context.Context, string) string { return reply },
	}
}

// Reply implements processing.Generator
func (m *MockGenerator) Reply(ctx context.Context, text string) string {
	m.mu.Lock()
	m.Inputs = append(m.Inputs, text)
	m.mu.Unlock()
	if m.ReplyFunc != nil {
		return m.ReplyFunc(ctx, text)
	}
	return ""
}

// CallCount returns how many times Reply was called.
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Inputs)
}
