package nlp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStubTokenizesAndLowercasesLemma(t *testing.T) {
	tokens, categories, err := Stub{}.Annotate(context.Background(), "Ὤμου δὲ ἄρθρον.")
	require.NoError(t, err)
	assert.Empty(t, categories)
	require.Len(t, tokens, 3)
	assert.Equal(t, "Ὤμου", tokens[0].Text)
	assert.NotEqual(t, tokens[0].Text, tokens[0].Lemma)
}
