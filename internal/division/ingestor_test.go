package division

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Atlogit/atlomy/internal/model"
)

func body(content string, chapter, section string) LineIn {
	return LineIn{
		Content: content,
		Citation: model.Citation{
			AuthorID:        "0627",
			WorkNumber:      "Z",
			HierarchyLevels: []model.HierarchyLevel{{Name: "chapter", Value: chapter}, {Name: "section", Value: section}},
		},
	}
}

func title(content, number string) LineIn {
	return LineIn{
		Content: content,
		Citation: model.Citation{
			AuthorID:        "0627",
			WorkNumber:      "Z",
			IsTitle:         true,
			TitleNumber:     number,
			HierarchyLevels: []model.HierarchyLevel{{Name: "chapter", Value: "641a"}},
		},
	}
}

func TestDivisionLineNumbersAreContiguousFromOne(t *testing.T) {
	ig := New()

	closed, err := ig.Feed(body("line one", "1", "1"))
	require.NoError(t, err)
	assert.Nil(t, closed)

	closed, err = ig.Feed(body("line two", "1", "1"))
	require.NoError(t, err)
	assert.Nil(t, closed, "same division key, no close yet")

	out, err := ig.Close()
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, []int{1, 2}, lineNumbers(out[0].Lines))
}

func TestDivisionBoundaryChangeResetsLineNumbers(t *testing.T) {
	ig := New()
	_, err := ig.Feed(body("chapter 1 line 1", "1", "1"))
	require.NoError(t, err)

	closed, err := ig.Feed(body("chapter 2 line 1", "2", "1"))
	require.NoError(t, err)
	require.NotNil(t, closed, "division key change must close the previous division")
	assert.Equal(t, "1", closed.Division.Chapter)
	assert.Equal(t, []int{1}, lineNumbers(closed.Lines))

	out, err := ig.Close()
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "2", out[0].Division.Chapter)
	assert.Equal(t, []int{1}, lineNumbers(out[0].Lines))
}

func TestTitleAccumulationAndUnnumberedMapsToZero(t *testing.T) {
	ig := New()

	closed, err := ig.Feed(title("ΠΕΡΙ", "0"))
	require.NoError(t, err)
	assert.Nil(t, closed)

	closed, err = ig.Feed(title("ΑΡΘΡΩΝ", "1"))
	require.NoError(t, err)
	assert.Nil(t, closed)

	closed, err = ig.Feed(body("Τὸ μὲν οὖν", "1", "1"))
	require.NoError(t, err)
	require.NotNil(t, closed, "transition out of IN_TITLE finalizes the title division")
	assert.True(t, closed.Division.IsTitle)
	assert.Equal(t, "ΠΕΡΙ ΑΡΘΡΩΝ", closed.Division.TitleText)
	assert.Equal(t, map[string]string{"0": "ΠΕΡΙ", "1": "ΑΡΘΡΩΝ"}, closed.Division.TitleParts)

	out, err := ig.Close()
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.False(t, out[0].Division.IsTitle)
	assert.Equal(t, []int{1}, lineNumbers(out[0].Lines))
}

func TestChapterDefaultsToOneWhenAbsent(t *testing.T) {
	ig := New()
	in := LineIn{Content: "no chapter given", Citation: model.Citation{AuthorID: "0627", WorkNumber: "Z"}}
	_, err := ig.Feed(in)
	require.NoError(t, err)

	out, err := ig.Close()
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "1", out[0].Division.Chapter)
}

func lineNumbers(lines []model.Line) []int {
	out := make([]int, len(lines))
	for i, l := range lines {
		out[i] = l.LineNumber
	}
	return out
}
