package lexicon

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Atlogit/atlomy/internal/config"
	"github.com/Atlogit/atlomy/internal/errkind"
	"github.com/Atlogit/atlomy/internal/llm/anthropic"
	"github.com/Atlogit/atlomy/internal/model"
	"github.com/Atlogit/atlomy/internal/persistence/databases"
	"github.com/Atlogit/atlomy/internal/search"
)

type fakeSearcher struct {
	results []model.Result
}

func (f *fakeSearcher) Search(ctx context.Context, q model.SearchQuery) (search.SearchResult, error) {
	return search.SearchResult{ResultsID: "r1", FirstPage: f.results, Total: len(f.results)}, nil
}

func (f *fakeSearcher) GetPage(ctx context.Context, resultsID string, page, pageSize int) (search.PageResult, error) {
	return search.PageResult{}, nil
}

type fakeCompleter struct {
	text string
	err  error
}

func (f *fakeCompleter) Complete(ctx context.Context, req anthropic.Request) (anthropic.Response, error) {
	if f.err != nil {
		return anthropic.Response{}, f.err
	}
	return anthropic.Response{Text: f.text}, nil
}

func testLexiconConfig() config.LexiconConfig {
	return config.LexiconConfig{
		MaxContextCitations: 10,
		PageSizeForContext:  50,
		NRetries:            1,
		TotalTimeout:        0,
	}
}

func TestCreateOrUpdateCommitsNewVersion(t *testing.T) {
	store := databases.NewMemoryStore()
	searcher := &fakeSearcher{results: []model.Result{{SentenceID: "s1", SentenceText: "ὦμος ἄρθρον"}}}
	llm := &fakeCompleter{text: `{"translation":"shoulder","short_description":"joint","long_description":"long",` +
		`"related_terms":["ἄρθρον"],"citations_used":["s1"]}`}

	svc := New(store, searcher, llm, testLexiconConfig())
	taskID, err := svc.CreateOrUpdate(context.Background(), "ὦμος", Options{LanguageCode: "grc"})
	require.NoError(t, err)

	task, err := svc.TaskStatus(context.Background(), taskID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskCompleted, task.Status)
	assert.Equal(t, model.TaskActionCreate, task.Action)
	require.NotNil(t, task.Entry)
	assert.Equal(t, "shoulder", task.Entry.Translation)

	versions, err := svc.ListVersions(context.Background(), "ὦμος")
	require.NoError(t, err)
	require.Len(t, versions, 1)
}

func TestCreateOrUpdateTwiceProducesTwoVersionsNoDedup(t *testing.T) {
	store := databases.NewMemoryStore()
	searcher := &fakeSearcher{results: []model.Result{{SentenceID: "s1", SentenceText: "x"}}}
	llm := &fakeCompleter{text: `{"translation":"a","citations_used":[]}`}
	svc := New(store, searcher, llm, testLexiconConfig())

	_, err := svc.CreateOrUpdate(context.Background(), "lemma", Options{})
	require.NoError(t, err)
	_, err = svc.CreateOrUpdate(context.Background(), "lemma", Options{})
	require.NoError(t, err)

	versions, err := svc.ListVersions(context.Background(), "lemma")
	require.NoError(t, err)
	assert.Len(t, versions, 2)
}

func TestCreateOrUpdateLLMFailureMarksTaskError(t *testing.T) {
	store := databases.NewMemoryStore()
	searcher := &fakeSearcher{results: nil}
	llm := &fakeCompleter{err: errkind.New(errkind.LLMUpstream, "boom")}
	svc := New(store, searcher, llm, testLexiconConfig())

	taskID, err := svc.CreateOrUpdate(context.Background(), "lemma", Options{})
	require.NoError(t, err, "CreateOrUpdate itself never returns the pipeline error; it is recorded on the task")

	task, err := svc.TaskStatus(context.Background(), taskID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskError, task.Status)
}

func TestTwoPhaseDeleteRejectsStaleTrigger(t *testing.T) {
	store := databases.NewMemoryStore()
	searcher := &fakeSearcher{results: []model.Result{{SentenceID: "s1", SentenceText: "x"}}}
	llm := &fakeCompleter{text: `{"translation":"a","citations_used":[]}`}
	svc := New(store, searcher, llm, testLexiconConfig())

	_, err := svc.CreateOrUpdate(context.Background(), "lemma", Options{})
	require.NoError(t, err)

	triggerID, _, err := svc.TriggerDelete(context.Background(), "lemma")
	require.NoError(t, err)

	_, err = svc.CreateOrUpdate(context.Background(), "lemma", Options{})
	require.NoError(t, err)

	err = svc.Delete(context.Background(), "lemma", triggerID)
	require.Error(t, err)
	assert.True(t, errkind.Is(err, errkind.StaleTrigger))
}

func TestTriggerDeleteThenDeleteSucceeds(t *testing.T) {
	store := databases.NewMemoryStore()
	searcher := &fakeSearcher{results: []model.Result{{SentenceID: "s1", SentenceText: "x"}}}
	llm := &fakeCompleter{text: `{"translation":"a","citations_used":[]}`}
	svc := New(store, searcher, llm, testLexiconConfig())

	_, err := svc.CreateOrUpdate(context.Background(), "lemma", Options{})
	require.NoError(t, err)

	triggerID, entry, err := svc.TriggerDelete(context.Background(), "lemma")
	require.NoError(t, err)
	assert.Equal(t, entry.Version, triggerID)

	require.NoError(t, svc.Delete(context.Background(), "lemma", triggerID))

	_, err = svc.GetLexical(context.Background(), "lemma", "")
	require.Error(t, err)
	assert.True(t, errkind.Is(err, errkind.NotFound))
}
