package lexicon

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/Atlogit/atlomy/internal/errkind"
	"github.com/Atlogit/atlomy/internal/model"
	"github.com/Atlogit/atlomy/internal/observability"
)

// rawReply is the wire shape the LLM is instructed to reply with.
type rawReply struct {
	Translation      string   `json:"translation"`
	ShortDescription string   `json:"short_description"`
	LongDescription  string   `json:"long_description"`
	RelatedTerms     []string `json:"related_terms"`
	CitationsUsed    []string `json:"citations_used"`
}

// Draft is the parsed, validated reply, ready to commit as a LexicalValue.
type Draft struct {
	Translation      string
	ShortDescription string
	LongDescription  string
	RelatedTerms     []string
	CitationsUsed    []model.Citation
}

// ParseReply decodes the LLM's text as JSON and filters citations_used down
// to the subset of sampled that it actually references by sentence_id,
// dropping and logging any unknown reference (§4.5 step 5).
func ParseReply(ctx context.Context, text string, sampled []model.Result) (Draft, error) {
	trimmed := strings.TrimSpace(stripCodeFence(text))
	var raw rawReply
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return Draft{}, errkind.Wrap(errkind.LLMUpstream, err, "unparsable lexical-value reply")
	}

	bySentence := make(map[string]model.Result, len(sampled))
	for _, r := range sampled {
		bySentence[r.SentenceID] = r
	}

	log := observability.LoggerWithTrace(ctx)
	var used []model.Citation
	for _, sid := range raw.CitationsUsed {
		r, ok := bySentence[sid]
		if !ok {
			log.Warn().Str("sentence_id", sid).Msg("lexicon_citation_used_unknown_dropped")
			continue
		}
		used = append(used, citationFromResult(r))
	}

	return Draft{
		Translation:      raw.Translation,
		ShortDescription: raw.ShortDescription,
		LongDescription:  raw.LongDescription,
		RelatedTerms:     raw.RelatedTerms,
		CitationsUsed:    used,
	}, nil
}

// citationFromResult reconstructs a minimal Citation from a search Result
// for storage in LexicalValue.CitationsUsed; Result does not carry the full
// Citation value object, only the rendered source/location fields.
func citationFromResult(r model.Result) model.Citation {
	var levels []model.HierarchyLevel
	add := func(name, value string) {
		if value != "" {
			levels = append(levels, model.HierarchyLevel{Name: name, Value: value})
		}
	}
	add("volume", r.Location.Volume)
	add("book", r.Location.Book)
	add("chapter", r.Location.Chapter)
	add("section", r.Location.Section)
	add("page", r.Location.Page)
	add("line", r.Location.Line)
	add("epistle", r.Location.Epistle)

	return model.Citation{
		AuthorID:        r.Source.AuthorID,
		WorkID:          r.Source.WorkID,
		Fragment:        r.Location.Fragment,
		HierarchyLevels: levels,
	}
}

// stripCodeFence removes a leading/trailing ```json ... ``` fence if the
// model wrapped its JSON reply in one despite being asked not to.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return s
}
