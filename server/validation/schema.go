// Package validation turns a raw /chat body into a ChatRequest. The body is
// parsed, a non-string message is coerced to text, non-ASCII characters are
// dropped and the result must be non-empty.
package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"unicode"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

var validate = validator.New()

// ErrNotObject is returned when the body is valid JSON but not an object.
var ErrNotObject = errors.New("request body is not a JSON object")

// Kinds of the raw message value.
const (
	KindMissing = "missing"
	KindNull    = "null"
	KindString  = "string"
	KindNumber  = "number"
	KindBool    = "bool"
	KindArray   = "array"
	KindObject  = "object"
)

// ChatRequest is the /chat payload after coercion and sanitizing.
type ChatRequest struct {
	Message string `json:"message" validate:"required"`
}

// Parsed describes how a ChatRequest was derived from the body.
type Parsed struct {
	Request ChatRequest

	// Raw is the message text before non-ASCII characters were dropped
	Raw string

	// Kind is the JSON kind of the message value
	Kind string
}

// Coerced reports whether the message was converted from a non-string value.
func (p *Parsed) Coerced() bool {
	switch p.Kind {
	case KindNumber, KindBool, KindArray, KindObject:
		return true
	}
	return false
}

// ParseChatRequest reads a JSON object from body and extracts its "message"
// field. A missing or null message yields "". Numbers, booleans, arrays and
// objects are coerced to their compact JSON text. Errors mean the body
// itself is unusable; an empty message is not an error here, see Validate.
func ParseChatRequest(body io.Reader) (*Parsed, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, ErrNotObject
		}
		return nil, fmt.Errorf("malformed JSON body: %w", err)
	}
	if fields == nil {
		return nil, ErrNotObject
	}

	raw, kind, err := coerce(fields["message"])
	if err != nil {
		return nil, err
	}

	return &Parsed{
		Request: ChatRequest{Message: Sanitize(raw)},
		Raw:     raw,
		Kind:    kind,
	}, nil
}

func coerce(value json.RawMessage) (string, string, error) {
	value = bytes.TrimSpace(value)
	if len(value) == 0 {
		return "", KindMissing, nil
	}

	switch value[0] {
	case 'n':
		return "", KindNull, nil
	case '"':
		var s string
		if err := json.Unmarshal(value, &s); err != nil {
			return "", "", fmt.Errorf("decode message: %w", err)
		}
		return s, KindString, nil
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, value); err != nil {
		return "", "", fmt.Errorf("compact message: %w", err)
	}
	kind := KindNumber
	switch value[0] {
	case 't', 'f':
		kind = KindBool
	case '[':
		kind = KindArray
	case '{':
		kind = KindObject
	}
	return compact.String(), kind, nil
}

func nonASCII(r rune) bool {
	return r > unicode.MaxASCII
}

// Sanitize drops every character outside ASCII.
func Sanitize(s string) string {
	out, _, err := transform.String(runes.Remove(runes.Predicate(nonASCII)), s)
	if err != nil {
		return ""
	}
	return out
}

// Validate checks the sanitized request.
func Validate(req *ChatRequest) error {
	return validate.Struct(req)
}
