package processing

import (
	"strings"
	"unicode"
)

// TriggerKeyword is the token that bypasses generation entirely.
const TriggerKeyword = "cure"

// TriggerResponse is returned instead of model output when the keyword is present.
const TriggerResponse = "I Recommend You To Consult A Doctor"

// Classifier decides whether a normalized message must skip the model.
type Classifier struct {
	keyword string
}

// NewClassifier returns a classifier for keyword. The keyword is compared
// against lowercase tokens, so it is lowercased here.
func NewClassifier(keyword string) *Classifier {
	return &Classifier{keyword: strings.ToLower(keyword)}
}

// IsTriggered reports whether the keyword appears as a whole token of text.
// Leading and trailing punctuation is trimmed from each token, so "cure?"
// matches while "curettage" and "cured" do not.
func (c *Classifier) IsTriggered(text string) bool {
	for _, token := range Tokens(text) {
		if token == c.keyword {
			return true
		}
	}
	return false
}

// Tokens splits text on whitespace and trims punctuation from both ends of
// every token. Tokens that are pure punctuation are dropped.
func Tokens(text string) []string {
	fields := strings.Fields(text)
	tokens := fields[:0]
	for _, f := range fields {
		if t := strings.TrimFunc(f, unicode.IsPunct); t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

var defaultClassifier = NewClassifier(TriggerKeyword)

// IsTriggered reports whether normalized contains the "cure" token.
func IsTriggered(normalized string) bool {
	return defaultClassifier.IsTriggered(normalized)
}
