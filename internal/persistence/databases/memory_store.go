package databases

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Atlogit/atlomy/internal/errkind"
	"github.com/Atlogit/atlomy/internal/model"
	"github.com/Atlogit/atlomy/internal/persistence"
)

// NewMemoryStore returns an in-memory persistence.Store for tests and
// local development. It implements the same natural-key idempotence rules
// as the Postgres adapter.
func NewMemoryStore() persistence.Store {
	return &memStore{
		authorsByCode: make(map[string]*model.Author),
		textsByKey:    make(map[textKey]*model.Text),
		divisionsByKey: make(map[divisionKey]*model.Division),
		linesByKey:    make(map[lineKey]*model.Line),
		sentences:     make(map[string]model.Sentence),
		links:         make(map[string][]model.SentenceLineLink),
		lexical:          make(map[string][]model.LexicalValue),
		tasks:            make(map[string]model.Task),
		ingestionReports: make(map[string]model.IngestionReport),
	}
}

type textKey struct {
	authorID int64
	workRef  string
}

type divisionKey struct {
	textID int64
	key    model.DivisionKey
}

type lineKey struct {
	divisionID int64
	lineNumber int
}

type memStore struct {
	mu sync.RWMutex

	nextAuthorID, nextTextID, nextDivisionID, nextLineID int64

	authorsByCode  map[string]*model.Author
	textsByKey     map[textKey]*model.Text
	divisionsByKey map[divisionKey]*model.Division
	linesByKey     map[lineKey]*model.Line

	sentences map[string]model.Sentence
	links     map[string][]model.SentenceLineLink

	lexical map[string][]model.LexicalValue // newest last
	tasks   map[string]model.Task

	ingestionReports map[string]model.IngestionReport
}

func (s *memStore) Init(ctx context.Context) error { return nil }

func (s *memStore) GetOrCreateAuthor(ctx context.Context, referenceCode, name, languageCode string) (model.Author, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a, ok := s.authorsByCode[referenceCode]; ok {
		if name != "" {
			a.Name = name
		}
		return *a, nil
	}
	s.nextAuthorID++
	a := &model.Author{ID: s.nextAuthorID, ReferenceCode: referenceCode, Name: name, LanguageCode: languageCode}
	s.authorsByCode[referenceCode] = a
	return *a, nil
}

func (s *memStore) GetOrCreateText(ctx context.Context, authorID int64, workReferenceCode, title string, metadata map[string]string) (model.Text, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var authorRef string
	for code, a := range s.authorsByCode {
		if a.ID == authorID {
			authorRef = code
			break
		}
	}

	k := textKey{authorID: authorID, workRef: workReferenceCode}
	if t, ok := s.textsByKey[k]; ok {
		return *t, nil
	}
	s.nextTextID++
	t := &model.Text{
		ID:                  s.nextTextID,
		AuthorID:            authorID,
		AuthorReferenceCode: authorRef,
		WorkReferenceCode:   workReferenceCode,
		Title:               title,
		Metadata:            metadata,
	}
	s.textsByKey[k] = t
	return *t, nil
}

func (s *memStore) UpsertDivision(ctx context.Context, textID int64, key model.DivisionKey, div model.Division) (model.Division, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dk := divisionKey{textID: textID, key: key}
	if existing, ok := s.divisionsByKey[dk]; ok {
		if div.TitleText != "" {
			existing.TitleText = div.TitleText
		}
		if len(div.TitleParts) > 0 {
			if existing.TitleParts == nil {
				existing.TitleParts = map[string]string{}
			}
			for k, v := range div.TitleParts {
				existing.TitleParts[k] = v
			}
		}
		existing.IsTitle = existing.IsTitle || div.IsTitle
		return *existing, nil
	}

	s.nextDivisionID++
	div.ID = s.nextDivisionID
	div.TextID = textID
	s.divisionsByKey[dk] = &div
	return div, nil
}

func (s *memStore) UpsertLine(ctx context.Context, divisionID int64, line model.Line) (model.Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lk := lineKey{divisionID: divisionID, lineNumber: line.LineNumber}
	if existing, ok := s.linesByKey[lk]; ok {
		existing.Content = line.Content
		existing.NLPTokens = line.NLPTokens
		existing.Categories = line.Categories
		return *existing, nil
	}
	s.nextLineID++
	line.ID = s.nextLineID
	line.DivisionID = divisionID
	s.linesByKey[lk] = &line
	return line, nil
}

func (s *memStore) PutSentence(ctx context.Context, sentence model.Sentence, links []model.SentenceLineLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sentences[sentence.ID] = sentence
	s.links[sentence.ID] = links
	return nil
}

// SearchSentences orders matches by sentence id only, not by the citation
// order documented on persistence.SearchStore, and fills only SentenceID
// and SentenceText of each Result.
func (s *memStore) SearchSentences(ctx context.Context, q model.SearchQuery) ([]model.Result, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Result
	for id, sent := range s.sentences {
		if !sentenceMatches(sent, q) {
			continue
		}
		out = append(out, model.Result{
			SentenceID:   id,
			SentenceText: sent.Content,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SentenceID < out[j].SentenceID })
	return out, len(out), nil
}

func sentenceMatches(sent model.Sentence, q model.SearchQuery) bool {
	if q.Query == "" {
		return true
	}
	for _, tok := range sent.NLPData {
		target := tok.Text
		if q.SearchLemma {
			target = tok.Lemma
		}
		if target == q.Query {
			return true
		}
	}
	return false
}

func (s *memStore) PutLexicalValue(ctx context.Context, lv model.LexicalValue) (model.LexicalValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lv.CreatedAt.IsZero() {
		lv.CreatedAt = time.Now().UTC()
	}
	lv.UpdatedAt = time.Now().UTC()
	s.lexical[lv.Lemma] = append(s.lexical[lv.Lemma], lv)
	return lv, nil
}

func (s *memStore) ListVersions(ctx context.Context, lemma string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	versions := s.lexical[lemma]
	out := make([]string, 0, len(versions))
	for _, v := range versions {
		out = append(out, v.Version)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out, nil
}

func (s *memStore) GetLexicalValue(ctx context.Context, lemma, version string) (model.LexicalValue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	versions := s.lexical[lemma]
	if len(versions) == 0 {
		return model.LexicalValue{}, errkind.New(errkind.NotFound, "no lexical value for lemma "+lemma)
	}
	if version == "" {
		return versions[len(versions)-1], nil
	}
	for _, v := range versions {
		if v.Version == version {
			return v, nil
		}
	}
	return model.LexicalValue{}, errkind.New(errkind.NotFound, "no such version "+version+" for lemma "+lemma)
}

func (s *memStore) DeleteLatestVersion(ctx context.Context, lemma, expectedVersion string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	versions := s.lexical[lemma]
	if len(versions) == 0 {
		return false, nil
	}
	latest := versions[len(versions)-1]
	if latest.Version != expectedVersion {
		return false, nil
	}
	s.lexical[lemma] = versions[:len(versions)-1]
	return true, nil
}

func (s *memStore) PutTask(ctx context.Context, task model.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task.UpdatedAt = time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = task.UpdatedAt
	}
	s.tasks[task.ID] = task
	return nil
}

func (s *memStore) GetTask(ctx context.Context, taskID string) (model.Task, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[taskID]
	return t, ok, nil
}

func (s *memStore) PutIngestionReport(ctx context.Context, report model.IngestionReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}
	s.ingestionReports[report.ID] = report
	return nil
}

func (s *memStore) GetIngestionReport(ctx context.Context, id string) (model.IngestionReport, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.ingestionReports[id]
	return r, ok, nil
}
