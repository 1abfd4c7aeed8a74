// Package generation turns normalized text into a model reply. A reply is
// produced in three steps: the text is encoded into a fixed-length id
// sequence, a Model runs beam search over it, and the best beam is decoded
// back into text.
//
// Generation parameters are fixed in FixedOptions and cannot be changed by
// configuration or by a request.
package generation

import (
	"context"
	"errors"
)

// MaxLength bounds both the encoded input and the generated output.
const MaxLength = 250

// Apology is the reply returned by Adapter.Reply when generation fails.
const Apology = "Sorry, I encountered an error. Please try again."

var (
	// ErrEmptyOutput is returned when a model yields no beams.
	ErrEmptyOutput = errors.New("model returned no sequences")

	// ErrUnknownBackend is returned by Load for an unsupported backend name.
	ErrUnknownBackend = errors.New("unknown generation backend")

	// ErrInputTooLong is returned by Encode when truncation is disabled and the
	// text does not fit in MaxLength ids.
	ErrInputTooLong = errors.New("input exceeds maximum length")
)

// Options are the beam search parameters passed to a Model.
type Options struct {
	MaxLength     int  `json:"max_length"`
	NumBeams      int  `json:"num_beams"`
	EarlyStopping bool `json:"early_stopping"`
}

// FixedOptions is used for every generation call.
var FixedOptions = Options{
	MaxLength:     MaxLength,
	NumBeams:      4,
	EarlyStopping: true,
}

// Encoding is a tokenized input. InputIDs and AttentionMask always have the
// same length; mask entries are 1 for real tokens and 0 for padding.
type Encoding struct {
	InputIDs      []int `json:"input_ids"`
	AttentionMask []int `json:"attention_mask"`
}

// Attended returns the ids whose mask entry is set.
func (e *Encoding) Attended() []int {
	ids := make([]int, 0, len(e.InputIDs))
	for i, id := range e.InputIDs {
		if i < len(e.AttentionMask) && e.AttentionMask[i] == 1 {
			ids = append(ids, id)
		}
	}
	return ids
}

// EncodeOptions constrain the shape of an Encoding.
type EncodeOptions struct {
	MaxLength      int
	Truncate       bool
	PadToMaxLength bool
}

// DecodeOptions control decoding of an id sequence.
type DecodeOptions struct {
	SkipSpecialTokens bool
}

// Tokenizer converts between text and model ids.
type Tokenizer interface {
	Encode(text string, opts EncodeOptions) (*Encoding, error)
	Decode(ids []int, opts DecodeOptions) (string, error)
}

// Model runs generation over an encoded input and returns candidate
// sequences ordered best first.
type Model interface {
	Generate(ctx context.Context, enc *Encoding, opts Options) ([][]int, error)
}

// Pinger is implemented by backends that can check their availability.
type Pinger interface {
	Ping(ctx context.Context) error
}
