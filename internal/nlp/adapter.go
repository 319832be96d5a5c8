// Package nlp defines the NLP Adapter external boundary (§2, "X"):
// tokenize/lemmatize/category-tag a Sentence. The real tagger (a spaCy
// Greek pipeline) is out of scope (§1 Non-goals); this package only
// defines the interface and a deterministic stub suitable for tests and
// for driving the ingestion pipeline end-to-end without a live model.
package nlp

import (
	"context"
	"unicode"

	"github.com/Atlogit/atlomy/internal/model"
)

// Adapter annotates a Sentence's text with tokens, lemmas, and category
// tags. Implementations suspend on an external call per §5 ("any... NLP
// annotation" is a suspension point when backed by a real model).
type Adapter interface {
	Annotate(ctx context.Context, text string) (tokens []model.NLPToken, categories []string, err error)
}

// Stub is a deterministic Adapter that splits text on whitespace and
// sentence punctuation and lowercases each token as its own lemma. It never returns categories. It
// exists so the ingestion pipeline and its tests do not require a live NLP
// service.
type Stub struct{}

func (Stub) Annotate(ctx context.Context, text string) ([]model.NLPToken, []string, error) {
	var tokens []model.NLPToken
	var current []rune
	flush := func() {
		if len(current) == 0 {
			return
		}
		t := string(current)
		tokens = append(tokens, model.NLPToken{Text: t, Lemma: toLower(t)})
		current = current[:0]
	}
	for _, r := range text {
		if isWordRune(r) {
			current = append(current, r)
			continue
		}
		flush()
	}
	flush()
	return tokens, nil, nil
}

// isWordRune reports whether r belongs inside a token rather than
// separating two tokens: whitespace, ASCII sentence punctuation, and the
// Greek question mark (U+037E) and ano teleia (U+0387) all split tokens.
func isWordRune(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '.', ',', ';', '!', ';', '·':
		return false
	}
	return true
}

func toLower(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		out = append(out, unicode.ToLower(r))
	}
	return string(out)
}
