package lexicon

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Atlogit/atlomy/internal/errkind"
	"github.com/Atlogit/atlomy/internal/model"
)

func TestParseReplyFiltersUnknownCitations(t *testing.T) {
	sampled := []model.Result{
		{SentenceID: "s1", Location: model.ResultLocation{Chapter: "1"}},
		{SentenceID: "s2", Location: model.ResultLocation{Chapter: "2"}},
	}
	raw := `{"translation":"shoulder","short_description":"joint","long_description":"the shoulder joint",` +
		`"related_terms":["ὦμος"],"citations_used":["s1","unknown-id"]}`

	draft, err := ParseReply(context.Background(), raw, sampled)
	require.NoError(t, err)
	assert.Equal(t, "shoulder", draft.Translation)
	require.Len(t, draft.CitationsUsed, 1)
	chapter, ok := draft.CitationsUsed[0].Value("chapter")
	require.True(t, ok)
	assert.Equal(t, "1", chapter)
}

func TestParseReplyStripsCodeFence(t *testing.T) {
	raw := "```json\n{\"translation\":\"x\",\"citations_used\":[]}\n```"
	draft, err := ParseReply(context.Background(), raw, nil)
	require.NoError(t, err)
	assert.Equal(t, "x", draft.Translation)
}

func TestParseReplyInvalidJSONIsLLMUpstream(t *testing.T) {
	_, err := ParseReply(context.Background(), "not json", nil)
	require.Error(t, err)
	assert.True(t, errkind.Is(err, errkind.LLMUpstream))
}
