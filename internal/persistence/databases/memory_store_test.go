package databases

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Atlogit/atlomy/internal/model"
)

func TestMemoryStoreAuthorIdempotence(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	a1, err := s.GetOrCreateAuthor(ctx, "0627", "Hippocrates", "grc")
	require.NoError(t, err)
	a2, err := s.GetOrCreateAuthor(ctx, "0627", "Hippocrates", "grc")
	require.NoError(t, err)
	assert.Equal(t, a1.ID, a2.ID)
}

func TestMemoryStoreDivisionUpsertMergesTitleParts(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	key := model.DivisionKey{AuthorID: "0627", WorkNumber: "Z", Chapter: "1"}
	d1, err := s.UpsertDivision(ctx, 1, key, model.Division{TitleParts: map[string]string{"0": "ΠΕΡΙ"}})
	require.NoError(t, err)
	d2, err := s.UpsertDivision(ctx, 1, key, model.Division{TitleParts: map[string]string{"1": "ΑΡΘΡΩΝ"}})
	require.NoError(t, err)

	assert.Equal(t, d1.ID, d2.ID)
	assert.Equal(t, map[string]string{"0": "ΠΕΡΙ", "1": "ΑΡΘΡΩΝ"}, d2.TitleParts)
}

func TestMemoryStoreLexicalVersioningAndDelete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	v1, err := s.PutLexicalValue(ctx, model.LexicalValue{Lemma: "αἷμα", Version: "20260101_000000"})
	require.NoError(t, err)
	v2, err := s.PutLexicalValue(ctx, model.LexicalValue{Lemma: "αἷμα", Version: "20260102_000000"})
	require.NoError(t, err)

	versions, err := s.ListVersions(ctx, "αἷμα")
	require.NoError(t, err)
	assert.Equal(t, []string{v2.Version, v1.Version}, versions)

	latest, err := s.GetLexicalValue(ctx, "αἷμα", "")
	require.NoError(t, err)
	assert.Equal(t, v2.Version, latest.Version)

	ok, err := s.DeleteLatestVersion(ctx, "αἷμα", v1.Version)
	require.NoError(t, err)
	assert.False(t, ok, "deleting a stale version must not succeed")

	ok, err = s.DeleteLatestVersion(ctx, "αἷμα", v2.Version)
	require.NoError(t, err)
	assert.True(t, ok)

	older, err := s.GetLexicalValue(ctx, "αἷμα", v1.Version)
	require.NoError(t, err)
	assert.Equal(t, v1.Version, older.Version)
}

func TestMemoryStoreTaskRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.PutTask(ctx, model.Task{ID: "task-1", Lemma: "αἷμα", Status: model.TaskInProgress}))
	task, ok, err := s.GetTask(ctx, "task-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, model.TaskInProgress, task.Status)

	_, ok, err = s.GetTask(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}
