package sentence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHyphenatedJoinProducesTwoSentences(t *testing.T) {
	r := New(Options{})

	sentences, linkGroups, err := r.Feed(LineIn{LineID: 1, Content: "Ὤμου δὲ ἄρθρον ἕνα τρόπον οἶδα ὀλισθάνον, τὸν ἐς τὴν μα-"})
	require.NoError(t, err)
	assert.Empty(t, sentences, "no terminator yet")
	assert.Empty(t, linkGroups)

	sentences, linkGroups, err = r.Feed(LineIn{LineID: 2, Content: "σχάλην· ἄνω δὲ οὐδέποτε εἶδον, οὐδὲ ἐς τὸ ἔξω·"})
	require.NoError(t, err)
	require.Len(t, sentences, 2)
	require.Len(t, linkGroups, 2)

	assert.Equal(t, "Ὤμου δὲ ἄρθρον ἕνα τρόπον οἶδα ὀλισθάνον, τὸν ἐς τὴν μασχάλην·", sentences[0].Content)
	assert.Equal(t, "ἄνω δὲ οὐδέποτε εἶδον, οὐδὲ ἐς τὸ ἔξω·", sentences[1].Content)

	assert.NotContains(t, sentences[0].Content, "-", "hyphenated join never appears in sentence content")

	// invariant 1: sentence 1's own links cover line 1 fully and a prefix of
	// line 2; sentence 2's links belong only to sentence 2, not sentence 1.
	var line1, line2a int
	for _, l := range linkGroups[0] {
		if l.LineID == 1 {
			line1++
			assert.Equal(t, 0, l.PositionStart)
		}
		if l.LineID == 2 {
			line2a++
		}
	}
	assert.Equal(t, 1, line1)
	assert.Equal(t, 1, line2a, "line 2 contributes its prefix to sentence 1 only")

	var line2b int
	for _, l := range linkGroups[1] {
		assert.NotEqual(t, int64(1), l.LineID, "sentence 2 never links back to line 1")
		if l.LineID == 2 {
			line2b++
		}
	}
	assert.Equal(t, 1, line2b, "line 2 contributes its remainder to sentence 2")
}

func TestFinalBufferFlushedAtEndOfInput(t *testing.T) {
	r := New(Options{})
	sentences, _, err := r.Feed(LineIn{LineID: 1, Content: "no terminator here"})
	require.NoError(t, err)
	assert.Empty(t, sentences)

	s, links, ok := r.Flush()
	require.True(t, ok)
	assert.Equal(t, "no terminator here", s.Content)
	require.Len(t, links, 1)
	assert.Equal(t, int64(1), links[0].LineID)
}

func TestAbbreviationSuppressesTerminator(t *testing.T) {
	r := New(Options{Abbreviations: []string{"dr"}})
	sentences, _, err := r.Feed(LineIn{LineID: 1, Content: "see Dr. Smith today."})
	require.NoError(t, err)
	require.Len(t, sentences, 1)
	assert.Equal(t, "see Dr. Smith today.", sentences[0].Content)
}

func TestTerminatorInsideQuoteDoesNotEndSentence(t *testing.T) {
	r := New(Options{})
	sentences, _, err := r.Feed(LineIn{LineID: 1, Content: "he said “stop.” and left."})
	require.NoError(t, err)
	require.Len(t, sentences, 1)
	assert.Equal(t, "he said “stop.” and left.", sentences[0].Content)
}

func TestInvalidUnicodeReportsEncodingError(t *testing.T) {
	r := New(Options{})
	_, _, err := r.Feed(LineIn{LineID: 1, Content: "bad\xff\xfeline"})
	require.Error(t, err)
}

func TestSingleLineSpanningTwoSentencesProducesByteAccurateLinks(t *testing.T) {
	r := New(Options{})
	const content = "Hi. Bye."
	sentences, linkGroups, err := r.Feed(LineIn{LineID: 1, Content: content})
	require.NoError(t, err)
	require.Len(t, sentences, 2)
	assert.Equal(t, "Hi.", sentences[0].Content)
	assert.Equal(t, "Bye.", sentences[1].Content)

	require.Len(t, linkGroups, 2)
	require.Len(t, linkGroups[0], 1)
	require.Len(t, linkGroups[1], 1)
	assert.Equal(t, "Hi.", content[linkGroups[0][0].PositionStart:linkGroups[0][0].PositionEnd])
	assert.Equal(t, "Bye.", content[linkGroups[1][0].PositionStart:linkGroups[1][0].PositionEnd],
		"link range must skip the space the Sentence's own TrimSpace drops (invariant 1 round-trip)")
}

func TestSpaceInsertedBetweenNonHyphenatedLines(t *testing.T) {
	r := New(Options{})
	_, _, err := r.Feed(LineIn{LineID: 1, Content: "first part"})
	require.NoError(t, err)
	sentences, _, err := r.Feed(LineIn{LineID: 2, Content: "second part."})
	require.NoError(t, err)
	require.Len(t, sentences, 1)
	assert.Equal(t, "first part second part.", sentences[0].Content)
}
