// Package lexicon implements C5, the lexical-value generator: it samples
// citation context for a lemma via C4's search, drafts a lexical entry
// through the external LLM boundary, and commits a versioned LexicalValue
// (§4.5).
package lexicon

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Atlogit/atlomy/internal/config"
	"github.com/Atlogit/atlomy/internal/errkind"
	"github.com/Atlogit/atlomy/internal/llm/anthropic"
	"github.com/Atlogit/atlomy/internal/model"
	"github.com/Atlogit/atlomy/internal/observability"
	"github.com/Atlogit/atlomy/internal/persistence"
	"github.com/Atlogit/atlomy/internal/retry"
	"github.com/Atlogit/atlomy/internal/search"
	"github.com/Atlogit/atlomy/internal/util"
)

// Searcher is the subset of C4 this package depends on.
type Searcher interface {
	Search(ctx context.Context, q model.SearchQuery) (search.SearchResult, error)
	GetPage(ctx context.Context, resultsID string, page, pageSize int) (search.PageResult, error)
}

// Completer is the subset of the external LLM boundary this package depends
// on, satisfied by *anthropic.Client.
type Completer interface {
	Complete(ctx context.Context, req anthropic.Request) (anthropic.Response, error)
}

// Options configures create_or_update(lemma, opts) per §4.5.
type Options struct {
	SearchLemma  bool
	LanguageCode string
	Categories   map[string]struct{}
	Analyze      bool
}

// Service implements create_or_update/task_status/trigger_delete/delete/
// list_versions/get_lexical.
type Service struct {
	store    persistence.LexicalStore
	search   Searcher
	llm      Completer
	cfg      config.LexiconConfig
	locks    *keyedMutex
	versions *versionClock
}

// New builds a Service.
func New(store persistence.LexicalStore, searcher Searcher, llm Completer, cfg config.LexiconConfig) *Service {
	return &Service{store: store, search: searcher, llm: llm, cfg: cfg, locks: newKeyedMutex(), versions: newVersionClock()}
}

// CreateOrUpdate runs the §4.5 pipeline for lemma and returns its task_id
// once the pipeline has finished; the pipeline runs synchronously within
// this call in this single-process implementation (the caller is expected to have
// already dispatched it onto its own event loop / goroutine if async
// dispatch is desired — this method is what that goroutine invokes).
func (s *Service) CreateOrUpdate(ctx context.Context, lemma string, opts Options) (string, error) {
	taskID := uuid.NewString()
	task := model.Task{
		ID:        taskID,
		Lemma:     lemma,
		Status:    model.TaskInProgress,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.store.PutTask(ctx, task); err != nil {
		return "", errkind.Wrap(errkind.Storage, err, "create task")
	}

	ctx, cancel := context.WithTimeout(ctx, s.totalTimeout())
	defer cancel()

	if err := s.run(ctx, taskID, lemma, opts); err != nil {
		s.fail(ctx, taskID, lemma, err)
	}
	return taskID, nil
}

func (s *Service) totalTimeout() time.Duration {
	if s.cfg.TotalTimeout > 0 {
		return s.cfg.TotalTimeout
	}
	return 900 * time.Second
}

func (s *Service) run(ctx context.Context, taskID, lemma string, opts Options) error {
	mu := s.locks.lockFor(lemma)
	mu.Lock()
	defer mu.Unlock()

	log := observability.LoggerWithTrace(ctx)

	pageSize := s.cfg.PageSizeForContext
	if pageSize <= 0 {
		pageSize = 500
	}
	sr, err := s.search.Search(ctx, model.SearchQuery{
		Query:       lemma,
		SearchLemma: opts.SearchLemma,
		Categories:  opts.Categories,
		PageSize:    pageSize,
	})
	if err != nil {
		return err
	}

	results := sr.FirstPage
	for len(results) < sr.Total {
		p, err := s.search.GetPage(ctx, sr.ResultsID, len(results)/pageSize+1, pageSize)
		if err != nil || len(p.Results) == 0 {
			break
		}
		results = append(results, p.Results...)
	}

	maxCtx := s.cfg.MaxContextCitations
	if maxCtx <= 0 {
		maxCtx = 40
	}
	sampled := SampleContext(results, maxCtx)
	log.Debug().Str("lemma", lemma).Int("sampled", len(sampled)).Int("total", sr.Total).Msg("lexicon_context_sampled")

	var prior *model.LexicalValue
	if existing, err := s.store.GetLexicalValue(ctx, lemma, ""); err == nil {
		prior = &existing
	} else if !errkind.Is(err, errkind.NotFound) {
		return err
	}

	system, prompt := BuildPrompt(lemma, opts.LanguageCode, sampled, prior)
	// surfaced via logging only; no hard budget enforced here
	log.Debug().Str("lemma", lemma).Int("prompt_tokens", util.CountTokens(prompt)).Msg("lexicon_prompt_built")

	retries := s.cfg.NRetries
	if retries <= 0 {
		retries = 3
	}

	var reply anthropic.Response
	err = retry.Do(ctx, retry.Options{MaxAttempts: retries}, retry.IsTransient, func(ctx context.Context) error {
		var callErr error
		reply, callErr = s.llm.Complete(ctx, anthropic.Request{System: system, Prompt: prompt})
		return callErr
	})
	if err != nil {
		return err
	}

	draft, err := ParseReply(ctx, reply.Text, sampled)
	if err != nil {
		return err
	}

	action := model.TaskActionCreate
	if prior != nil {
		action = model.TaskActionUpdate
	}

	lv := model.LexicalValue{
		Lemma:            lemma,
		LanguageCode:     opts.LanguageCode,
		Translation:      draft.Translation,
		ShortDescription: draft.ShortDescription,
		LongDescription:  draft.LongDescription,
		RelatedTerms:     draft.RelatedTerms,
		CitationsUsed:    draft.CitationsUsed,
		Version:          s.versions.next(lemma, time.Now().UTC()),
		CreatedAt:        time.Now().UTC(),
		UpdatedAt:        time.Now().UTC(),
	}
	committed, err := s.store.PutLexicalValue(ctx, lv)
	if err != nil {
		return errkind.Wrap(errkind.Storage, err, "commit lexical value")
	}

	task := model.Task{
		ID:        taskID,
		Lemma:     lemma,
		Status:    model.TaskCompleted,
		Action:    action,
		Entry:     &committed,
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.store.PutTask(ctx, task); err != nil {
		return errkind.Wrap(errkind.Storage, err, "update task status")
	}
	return nil
}

func (s *Service) fail(ctx context.Context, taskID, lemma string, cause error) {
	status := model.TaskError
	message := cause.Error()
	if ctx.Err() != nil {
		message = "cancelled: " + message
	}
	task := model.Task{
		ID:        taskID,
		Lemma:     lemma,
		Status:    status,
		Message:   message,
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.store.PutTask(context.Background(), task); err != nil {
		observability.LoggerWithTrace(ctx).Error().Err(err).Str("task_id", taskID).Msg("lexicon_task_fail_write_error")
	}
}

// TaskStatus is task_status(task_id).
func (s *Service) TaskStatus(ctx context.Context, taskID string) (model.Task, error) {
	task, ok, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return model.Task{}, errkind.Wrap(errkind.Storage, err, "get task")
	}
	if !ok {
		return model.Task{}, errkind.New(errkind.NotFound, "task not found")
	}
	return task, nil
}

// TriggerDelete is trigger_delete(lemma): it returns the latest LexicalValue
// so the caller can confirm deletion against its version.
func (s *Service) TriggerDelete(ctx context.Context, lemma string) (triggerID string, entry model.LexicalValue, err error) {
	entry, err = s.store.GetLexicalValue(ctx, lemma, "")
	if err != nil {
		return "", model.LexicalValue{}, err
	}
	return entry.Version, entry, nil
}

// Delete is delete(lemma, trigger_id): the two-phase confirmation (§4.5).
func (s *Service) Delete(ctx context.Context, lemma, triggerID string) error {
	mu := s.locks.lockFor(lemma)
	mu.Lock()
	defer mu.Unlock()

	ok, err := s.store.DeleteLatestVersion(ctx, lemma, triggerID)
	if err != nil {
		return errkind.Wrap(errkind.Storage, err, "delete lexical value")
	}
	if !ok {
		return errkind.New(errkind.StaleTrigger, "lemma was updated since trigger_delete")
	}
	return nil
}

// ListVersions is list_versions(lemma).
func (s *Service) ListVersions(ctx context.Context, lemma string) ([]string, error) {
	versions, err := s.store.ListVersions(ctx, lemma)
	if err != nil {
		return nil, errkind.Wrap(errkind.Storage, err, "list versions")
	}
	return versions, nil
}

// GetLexical is get_lexical(lemma, version?).
func (s *Service) GetLexical(ctx context.Context, lemma, version string) (model.LexicalValue, error) {
	lv, err := s.store.GetLexicalValue(ctx, lemma, version)
	if err != nil {
		return model.LexicalValue{}, err
	}
	return lv, nil
}
