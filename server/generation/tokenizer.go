package generation

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

const endOfText = "<|endoftext|>"

// specialTokens lists the control tokens known across tiktoken encodings.
// Tokens an encoding does not define are ignored.
var specialTokens = []string{
	endOfText,
	"<|fim_prefix|>",
	"<|fim_middle|>",
	"<|fim_suffix|>",
	"<|endofprompt|>",
}

// bpe is the subset of *tiktoken.Tiktoken used here.
type bpe interface {
	Encode(text string, allowedSpecial, disallowedSpecial []string) []int
	Decode(tokens []int) string
}

// TiktokenTokenizer encodes text with a tiktoken BPE encoding. Padding uses
// the encoding's end-of-text id.
type TiktokenTokenizer struct {
	enc     bpe
	padID   int
	special map[int]struct{}
}

// NewTiktokenTokenizer loads an encoding by name ("cl100k_base") or, failing
// that, the encoding registered for a model name ("gpt-4").
func NewTiktokenTokenizer(name string) (*TiktokenTokenizer, error) {
	enc, err := tiktoken.GetEncoding(name)
	if err != nil {
		var modelErr error
		enc, modelErr = tiktoken.EncodingForModel(name)
		if modelErr != nil {
			return nil, fmt.Errorf("failed to load tokenizer %q: %w", name, err)
		}
	}
	return newTiktokenTokenizer(name, enc)
}

func newTiktokenTokenizer(name string, enc bpe) (*TiktokenTokenizer, error) {
	t := &TiktokenTokenizer{
		enc:     enc,
		padID:   -1,
		special: make(map[int]struct{}),
	}
	for _, tok := range specialTokens {
		ids := enc.Encode(tok, []string{"all"}, nil)
		if len(ids) != 1 {
			continue
		}
		t.special[ids[0]] = struct{}{}
		if tok == endOfText {
			t.padID = ids[0]
		}
	}
	if t.padID < 0 {
		return nil, fmt.Errorf("tokenizer %q has no %s token", name, endOfText)
	}

	return t, nil
}

// PadID returns the id used for padding.
func (t *TiktokenTokenizer) PadID() int {
	return t.padID
}

// Encode tokenizes text. Special token strings in user text are encoded as
// ordinary text.
func (t *TiktokenTokenizer) Encode(text string, opts EncodeOptions) (*Encoding, error) {
	ids := t.enc.Encode(text, nil, nil)

	if opts.MaxLength > 0 && len(ids) > opts.MaxLength {
		if !opts.Truncate {
			return nil, fmt.Errorf("%w: %d ids, limit %d", ErrInputTooLong, len(ids), opts.MaxLength)
		}
		ids = ids[:opts.MaxLength]
	}

	mask := make([]int, len(ids), max(len(ids), opts.MaxLength))
	for i := range mask {
		mask[i] = 1
	}

	if opts.PadToMaxLength {
		for len(ids) < opts.MaxLength {
			ids = append(ids, t.padID)
			mask = append(mask, 0)
		}
	}

	return &Encoding{InputIDs: ids, AttentionMask: mask}, nil
}

// Decode converts ids back to text.
func (t *TiktokenTokenizer) Decode(ids []int, opts DecodeOptions) (string, error) {
	if opts.SkipSpecialTokens {
		kept := make([]int, 0, len(ids))
		for _, id := range ids {
			if _, ok := t.special[id]; !ok {
				kept = append(kept, id)
			}
		}
		ids = kept
	}
	return t.enc.Decode(ids), nil
}
