package lexicon

import (
	"fmt"
	"strings"

	"github.com/Atlogit/atlomy/internal/model"
)

const systemPrompt = `You are a lexicographer annotating a lemma from an ancient Greek medical corpus.
You will be given a lemma, its language code, a set of citations drawn from the corpus, and
optionally a prior lexical entry. Reply with a single JSON object with exactly these fields:
{"translation": string, "short_description": string, "long_description": string,
"related_terms": [string], "citations_used": [string]}.
"citations_used" must list only the sentence_id values of citations you actually drew on,
copied verbatim from the provided set. Do not invent sentence ids. Reply with JSON only.`

// BuildPrompt assembles the system and user prompt for one create_or_update
// generation attempt (§4.5 step 3): the lemma, its language code, the
// sampled citation set (source, sentence text, and one sentence of context
// on each side when available), and any prior LexicalValue for the lemma.
func BuildPrompt(lemma, languageCode string, sampled []model.Result, prior *model.LexicalValue) (system, user string) {
	var b strings.Builder
	fmt.Fprintf(&b, "Lemma: %s\nLanguage: %s\n\n", lemma, languageCode)

	if prior != nil {
		fmt.Fprintf(&b, "Prior entry (version %s):\n", prior.Version)
		fmt.Fprintf(&b, "  translation: %s\n  short_description: %s\n\n", prior.Translation, prior.ShortDescription)
	}

	fmt.Fprintf(&b, "Citations (%d):\n", len(sampled))
	for _, r := range sampled {
		fmt.Fprintf(&b, "- sentence_id: %s\n", r.SentenceID)
		fmt.Fprintf(&b, "  citation: %s\n", r.CitationString)
		if r.PrevSentenceText != "" {
			fmt.Fprintf(&b, "  context_before: %s\n", r.PrevSentenceText)
		}
		fmt.Fprintf(&b, "  text: %s\n", r.SentenceText)
		if r.NextSentenceText != "" {
			fmt.Fprintf(&b, "  context_after: %s\n", r.NextSentenceText)
		}
	}
	return systemPrompt, b.String()
}
