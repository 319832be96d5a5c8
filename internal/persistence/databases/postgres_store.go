package databases

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Atlogit/atlomy/internal/errkind"
	"github.com/Atlogit/atlomy/internal/model"
	"github.com/Atlogit/atlomy/internal/persistence"
)

// NewPostgresStore returns a Postgres-backed persistence.Store. If pool is
// nil, an in-memory fallback is used instead, matching the teacher's
// nil-pool-falls-back-to-memory convention.
func NewPostgresStore(pool *pgxpool.Pool) persistence.Store {
	if pool == nil {
		return NewMemoryStore()
	}
	return &pgStore{pool: pool}
}

type pgStore struct {
	pool *pgxpool.Pool
}

// Init creates the tables and secondary indices required by §6.
func (s *pgStore) Init(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS authors (
    id BIGSERIAL PRIMARY KEY,
    reference_code TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL DEFAULT '',
    language_code TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS texts (
    id BIGSERIAL PRIMARY KEY,
    author_id BIGINT NOT NULL REFERENCES authors(id),
    work_reference_code TEXT NOT NULL,
    title TEXT NOT NULL DEFAULT '',
    metadata JSONB NOT NULL DEFAULT '{}',
    UNIQUE (author_id, work_reference_code)
);

CREATE TABLE IF NOT EXISTS divisions (
    id BIGSERIAL PRIMARY KEY,
    text_id BIGINT NOT NULL REFERENCES texts(id),
    author_id_field TEXT NOT NULL DEFAULT '',
    work_number TEXT NOT NULL DEFAULT '',
    epithet TEXT NOT NULL DEFAULT '',
    fragment TEXT NOT NULL DEFAULT '',
    volume TEXT NOT NULL DEFAULT '',
    chapter TEXT NOT NULL DEFAULT '',
    section TEXT NOT NULL DEFAULT '',
    line TEXT NOT NULL DEFAULT '',
    is_title BOOLEAN NOT NULL DEFAULT FALSE,
    title_number TEXT NOT NULL DEFAULT '',
    title_parts JSONB NOT NULL DEFAULT '{}',
    title_text TEXT NOT NULL DEFAULT '',
    UNIQUE (text_id, author_id_field, work_number, epithet, fragment, volume, chapter, section)
);
CREATE INDEX IF NOT EXISTS divisions_text_idx ON divisions(text_id);

CREATE TABLE IF NOT EXISTS lines (
    id BIGSERIAL PRIMARY KEY,
    division_id BIGINT NOT NULL REFERENCES divisions(id),
    line_number INTEGER NOT NULL,
    content TEXT NOT NULL DEFAULT '',
    nlp_tokens JSONB NOT NULL DEFAULT '[]',
    categories JSONB NOT NULL DEFAULT '[]',
    UNIQUE (division_id, line_number)
);
CREATE INDEX IF NOT EXISTS lines_division_idx ON lines(division_id);

CREATE TABLE IF NOT EXISTS sentences (
    id TEXT PRIMARY KEY,
    content TEXT NOT NULL,
    start_position INTEGER NOT NULL,
    end_position INTEGER NOT NULL,
    nlp_data JSONB NOT NULL DEFAULT '[]',
    categories JSONB NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS sentence_line_links (
    sentence_id TEXT NOT NULL REFERENCES sentences(id),
    line_id BIGINT NOT NULL REFERENCES lines(id),
    position_start INTEGER NOT NULL,
    position_end INTEGER NOT NULL,
    PRIMARY KEY (sentence_id, line_id)
);
CREATE INDEX IF NOT EXISTS sll_sentence_idx ON sentence_line_links(sentence_id);
CREATE INDEX IF NOT EXISTS sll_line_idx ON sentence_line_links(line_id);

CREATE TABLE IF NOT EXISTS lexical_values (
    id BIGSERIAL PRIMARY KEY,
    lemma TEXT NOT NULL,
    language_code TEXT NOT NULL DEFAULT '',
    translation TEXT NOT NULL DEFAULT '',
    short_description TEXT NOT NULL DEFAULT '',
    long_description TEXT NOT NULL DEFAULT '',
    related_terms JSONB NOT NULL DEFAULT '[]',
    citations_used JSONB NOT NULL DEFAULT '[]',
    "references" JSONB NOT NULL DEFAULT '[]',
    version TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (lemma, version)
);
CREATE INDEX IF NOT EXISTS lexical_lemma_version_idx ON lexical_values(lemma, version);

CREATE TABLE IF NOT EXISTS tasks (
    id TEXT PRIMARY KEY,
    lemma TEXT NOT NULL,
    status TEXT NOT NULL,
    message TEXT NOT NULL DEFAULT '',
    action TEXT NOT NULL DEFAULT '',
    entry JSONB,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS ingestion_reports (
    id TEXT PRIMARY KEY,
    source_ref TEXT NOT NULL DEFAULT '',
    lines_read INTEGER NOT NULL DEFAULT 0,
    divisions_written INTEGER NOT NULL DEFAULT 0,
    lines_written INTEGER NOT NULL DEFAULT 0,
    sentences_written INTEGER NOT NULL DEFAULT 0,
    errors JSONB NOT NULL DEFAULT '[]',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`)
	return err
}

func (s *pgStore) GetOrCreateAuthor(ctx context.Context, referenceCode, name, languageCode string) (model.Author, error) {
	var a model.Author
	err := s.pool.QueryRow(ctx, `
INSERT INTO authors (reference_code, name, language_code)
VALUES ($1, $2, $3)
ON CONFLICT (reference_code) DO UPDATE SET
    name = CASE WHEN EXCLUDED.name <> '' THEN EXCLUDED.name ELSE authors.name END
RETURNING id, reference_code, name, language_code
`, referenceCode, name, languageCode).Scan(&a.ID, &a.ReferenceCode, &a.Name, &a.LanguageCode)
	if err != nil {
		return model.Author{}, errkind.Wrap(errkind.Storage, err, "get or create author")
	}
	return a, nil
}

func (s *pgStore) GetOrCreateText(ctx context.Context, authorID int64, workReferenceCode, title string, metadata map[string]string) (model.Text, error) {
	meta, _ := json.Marshal(metadata)
	var t model.Text
	var metaRaw []byte
	err := s.pool.QueryRow(ctx, `
INSERT INTO texts (author_id, work_reference_code, title, metadata)
VALUES ($1, $2, $3, $4)
ON CONFLICT (author_id, work_reference_code) DO UPDATE SET
    title = CASE WHEN EXCLUDED.title <> '' THEN EXCLUDED.title ELSE texts.title END
RETURNING id, author_id, work_reference_code, title, metadata
`, authorID, workReferenceCode, title, meta).Scan(&t.ID, &t.AuthorID, &t.WorkReferenceCode, &t.Title, &metaRaw)
	if err != nil {
		return model.Text{}, errkind.Wrap(errkind.Storage, err, "get or create text")
	}
	_ = json.Unmarshal(metaRaw, &t.Metadata)
	return t, nil
}

func (s *pgStore) UpsertDivision(ctx context.Context, textID int64, key model.DivisionKey, div model.Division) (model.Division, error) {
	titleParts, _ := json.Marshal(div.TitleParts)
	var out model.Division
	var partsRaw []byte
	err := s.pool.QueryRow(ctx, `
INSERT INTO divisions (text_id, author_id_field, work_number, epithet, fragment, volume, chapter, section, line, is_title, title_number, title_parts, title_text)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
ON CONFLICT (text_id, author_id_field, work_number, epithet, fragment, volume, chapter, section) DO UPDATE SET
    is_title = divisions.is_title OR EXCLUDED.is_title,
    title_text = CASE WHEN EXCLUDED.title_text <> '' THEN EXCLUDED.title_text ELSE divisions.title_text END,
    title_parts = divisions.title_parts || EXCLUDED.title_parts
RETURNING id, text_id, author_id_field, work_number, epithet, fragment, volume, chapter, section, line, is_title, title_number, title_parts, title_text
`, textID, key.AuthorID, key.WorkNumber, key.Epithet, key.Fragment, key.Volume, key.Chapter, key.Section, div.Line, div.IsTitle, div.TitleNumber, titleParts, div.TitleText).
		Scan(&out.ID, &out.TextID, &out.AuthorIDField, &out.WorkNumber, &out.Epithet, &out.Fragment, &out.Volume, &out.Chapter, &out.Section, &out.Line, &out.IsTitle, &out.TitleNumber, &partsRaw, &out.TitleText)
	if err != nil {
		return model.Division{}, errkind.Wrap(errkind.Storage, err, "upsert division")
	}
	_ = json.Unmarshal(partsRaw, &out.TitleParts)
	return out, nil
}

func (s *pgStore) UpsertLine(ctx context.Context, divisionID int64, line model.Line) (model.Line, error) {
	tokens, _ := json.Marshal(line.NLPTokens)
	categories, _ := json.Marshal(line.Categories)
	var out model.Line
	var tokensRaw, catsRaw []byte
	err := s.pool.QueryRow(ctx, `
INSERT INTO lines (division_id, line_number, content, nlp_tokens, categories)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (division_id, line_number) DO UPDATE SET
    content = EXCLUDED.content,
    nlp_tokens = EXCLUDED.nlp_tokens,
    categories = EXCLUDED.categories
RETURNING id, division_id, line_number, content, nlp_tokens, categories
`, divisionID, line.LineNumber, line.Content, tokens, categories).
		Scan(&out.ID, &out.DivisionID, &out.LineNumber, &out.Content, &tokensRaw, &catsRaw)
	if err != nil {
		return model.Line{}, errkind.Wrap(errkind.Storage, err, "upsert line")
	}
	_ = json.Unmarshal(tokensRaw, &out.NLPTokens)
	_ = json.Unmarshal(catsRaw, &out.Categories)
	return out, nil
}

func (s *pgStore) PutSentence(ctx context.Context, sentence model.Sentence, links []model.SentenceLineLink) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return errkind.Wrap(errkind.Storage, err, "begin put sentence")
	}
	defer tx.Rollback(ctx)

	nlpData, _ := json.Marshal(sentence.NLPData)
	categories, _ := json.Marshal(sentence.Categories)
	if _, err := tx.Exec(ctx, `
INSERT INTO sentences (id, content, start_position, end_position, nlp_data, categories)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (id) DO UPDATE SET
    content = EXCLUDED.content, start_position = EXCLUDED.start_position,
    end_position = EXCLUDED.end_position, nlp_data = EXCLUDED.nlp_data, categories = EXCLUDED.categories
`, sentence.ID, sentence.Content, sentence.StartPosition, sentence.EndPosition, nlpData, categories); err != nil {
		return errkind.Wrap(errkind.Storage, err, "upsert sentence")
	}

	for _, l := range links {
		if _, err := tx.Exec(ctx, `
INSERT INTO sentence_line_links (sentence_id, line_id, position_start, position_end)
VALUES ($1,$2,$3,$4)
ON CONFLICT (sentence_id, line_id) DO UPDATE SET position_start = EXCLUDED.position_start, position_end = EXCLUDED.position_end
`, l.SentenceID, l.LineID, l.PositionStart, l.PositionEnd); err != nil {
			return errkind.Wrap(errkind.Storage, err, "upsert sentence line link")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errkind.Wrap(errkind.Storage, err, "commit put sentence")
	}
	return nil
}

// SearchSentences joins sentences against their NLP token data for a lemma
// or surface-form match. The query and ordering implement §4.4's determinism
// rule: (text.reference_code, division key, first source line number,
// sentence start position), ties broken by sentence id.
func (s *pgStore) SearchSentences(ctx context.Context, q model.SearchQuery) ([]model.Result, int, error) {
	field := "token->>'text'"
	if q.SearchLemma {
		field = "token->>'lemma'"
	}
	rows, err := s.pool.Query(ctx, `
SELECT DISTINCT s.id, s.content,
    t.work_reference_code, a.reference_code, a.name,
    d.volume, d.chapter, d.section, d.fragment,
    l.id, l.content, l.line_number, s.start_position
FROM sentences s
JOIN sentence_line_links sll ON sll.sentence_id = s.id
JOIN lines l ON l.id = sll.line_id
JOIN divisions d ON d.id = l.division_id
JOIN texts t ON t.id = d.text_id
JOIN authors a ON a.id = t.author_id
CROSS JOIN LATERAL jsonb_array_elements(s.nlp_data) AS token
WHERE `+field+` = $1
ORDER BY t.work_reference_code, d.volume, d.chapter, d.section, l.line_number, s.start_position, s.id
`, q.Query)
	if err != nil {
		return nil, 0, errkind.Wrap(errkind.Storage, err, "search sentences")
	}
	defer rows.Close()

	var out []model.Result
	for rows.Next() {
		var r model.Result
		var workRef, authorRef, authorName string
		var volume, chapter, section, fragment string
		var lineID int64
		var lineText string
		var lineNumber, startPosition int
		if err := rows.Scan(&r.SentenceID, &r.SentenceText, &workRef, &authorRef, &authorName,
			&volume, &chapter, &section, &fragment, &lineID, &lineText, &lineNumber, &startPosition); err != nil {
			return nil, 0, errkind.Wrap(errkind.Storage, err, "scan search result")
		}
		r.Source = model.ResultSource{Author: authorName, Work: workRef, AuthorID: authorRef, WorkID: workRef}
		r.Location = model.ResultLocation{Volume: volume, Chapter: chapter, Section: section, Fragment: fragment}
		r.Context = model.ResultContext{LineID: lineID, LineText: lineText, LineNumbers: []int{lineNumber}}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errkind.Wrap(errkind.Storage, err, "iterate search results")
	}
	return out, len(out), nil
}

func (s *pgStore) PutLexicalValue(ctx context.Context, lv model.LexicalValue) (model.LexicalValue, error) {
	relatedTerms, _ := json.Marshal(lv.RelatedTerms)
	citationsUsed, _ := json.Marshal(lv.CitationsUsed)
	references, _ := json.Marshal(lv.References)

	var out model.LexicalValue
	err := s.pool.QueryRow(ctx, `
INSERT INTO lexical_values (lemma, language_code, translation, short_description, long_description, related_terms, citations_used, "references", version)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
RETURNING id, lemma, language_code, translation, short_description, long_description, version, created_at, updated_at
`, lv.Lemma, lv.LanguageCode, lv.Translation, lv.ShortDescription, lv.LongDescription, relatedTerms, citationsUsed, references, lv.Version).
		Scan(&out.ID, &out.Lemma, &out.LanguageCode, &out.Translation, &out.ShortDescription, &out.LongDescription, &out.Version, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return model.LexicalValue{}, errkind.Wrap(errkind.Storage, err, "put lexical value")
	}
	out.RelatedTerms = lv.RelatedTerms
	out.CitationsUsed = lv.CitationsUsed
	out.References = lv.References
	return out, nil
}

func (s *pgStore) ListVersions(ctx context.Context, lemma string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT version FROM lexical_values WHERE lemma = $1 ORDER BY version DESC`, lemma)
	if err != nil {
		return nil, errkind.Wrap(errkind.Storage, err, "list lexical versions")
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, errkind.Wrap(errkind.Storage, err, "scan version")
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *pgStore) GetLexicalValue(ctx context.Context, lemma, version string) (model.LexicalValue, error) {
	query := `
SELECT id, lemma, language_code, translation, short_description, long_description, related_terms, citations_used, "references", version, created_at, updated_at
FROM lexical_values WHERE lemma = $1`
	args := []any{lemma}
	if version != "" {
		query += ` AND version = $2`
		args = append(args, version)
	} else {
		query += ` ORDER BY version DESC LIMIT 1`
	}

	var out model.LexicalValue
	var relatedRaw, citationsRaw, referencesRaw []byte
	err := s.pool.QueryRow(ctx, query, args...).Scan(&out.ID, &out.Lemma, &out.LanguageCode, &out.Translation,
		&out.ShortDescription, &out.LongDescription, &relatedRaw, &citationsRaw, &referencesRaw, &out.Version, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.LexicalValue{}, errkind.New(errkind.NotFound, "no lexical value for "+lemma)
		}
		return model.LexicalValue{}, errkind.Wrap(errkind.Storage, err, "get lexical value")
	}
	_ = json.Unmarshal(relatedRaw, &out.RelatedTerms)
	_ = json.Unmarshal(citationsRaw, &out.CitationsUsed)
	_ = json.Unmarshal(referencesRaw, &out.References)
	return out, nil
}

func (s *pgStore) DeleteLatestVersion(ctx context.Context, lemma, expectedVersion string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
DELETE FROM lexical_values
WHERE lemma = $1 AND version = $2
  AND version = (SELECT version FROM lexical_values WHERE lemma = $1 ORDER BY version DESC LIMIT 1)
`, lemma, expectedVersion)
	if err != nil {
		return false, errkind.Wrap(errkind.Storage, err, "delete latest lexical version")
	}
	return tag.RowsAffected() > 0, nil
}

func (s *pgStore) PutTask(ctx context.Context, task model.Task) error {
	var entryRaw []byte
	if task.Entry != nil {
		entryRaw, _ = json.Marshal(task.Entry)
	}
	_, err := s.pool.Exec(ctx, `
INSERT INTO tasks (id, lemma, status, message, action, entry)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (id) DO UPDATE SET
    status = EXCLUDED.status, message = EXCLUDED.message, action = EXCLUDED.action,
    entry = EXCLUDED.entry, updated_at = NOW()
`, task.ID, task.Lemma, string(task.Status), task.Message, string(task.Action), entryRaw)
	if err != nil {
		return errkind.Wrap(errkind.Storage, err, "put task")
	}
	return nil
}

func (s *pgStore) GetTask(ctx context.Context, taskID string) (model.Task, bool, error) {
	var t model.Task
	var status, action string
	var entryRaw []byte
	err := s.pool.QueryRow(ctx, `SELECT id, lemma, status, message, action, entry, created_at, updated_at FROM tasks WHERE id = $1`, taskID).
		Scan(&t.ID, &t.Lemma, &status, &t.Message, &action, &entryRaw, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Task{}, false, nil
		}
		return model.Task{}, false, errkind.Wrap(errkind.Storage, err, "get task")
	}
	t.Status = model.TaskStatus(status)
	t.Action = model.TaskAction(action)
	if len(entryRaw) > 0 {
		var lv model.LexicalValue
		if err := json.Unmarshal(entryRaw, &lv); err == nil {
			t.Entry = &lv
		}
	}
	return t, true, nil
}

func (s *pgStore) PutIngestionReport(ctx context.Context, report model.IngestionReport) error {
	errorsRaw, _ := json.Marshal(report.Errors)
	_, err := s.pool.Exec(ctx, `
INSERT INTO ingestion_reports (id, source_ref, lines_read, divisions_written, lines_written, sentences_written, errors)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (id) DO UPDATE SET
    source_ref = EXCLUDED.source_ref, lines_read = EXCLUDED.lines_read,
    divisions_written = EXCLUDED.divisions_written, lines_written = EXCLUDED.lines_written,
    sentences_written = EXCLUDED.sentences_written, errors = EXCLUDED.errors
`, report.ID, report.SourceRef, report.LinesRead, report.DivisionsWritten, report.LinesWritten, report.SentencesWritten, errorsRaw)
	if err != nil {
		return errkind.Wrap(errkind.Storage, err, "put ingestion report")
	}
	return nil
}

func (s *pgStore) GetIngestionReport(ctx context.Context, id string) (model.IngestionReport, bool, error) {
	var r model.IngestionReport
	var errorsRaw []byte
	err := s.pool.QueryRow(ctx, `
SELECT id, source_ref, lines_read, divisions_written, lines_written, sentences_written, errors, created_at
FROM ingestion_reports WHERE id = $1`, id).
		Scan(&r.ID, &r.SourceRef, &r.LinesRead, &r.DivisionsWritten, &r.LinesWritten, &r.SentencesWritten, &errorsRaw, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.IngestionReport{}, false, nil
		}
		return model.IngestionReport{}, false, errkind.Wrap(errkind.Storage, err, "get ingestion report")
	}
	if len(errorsRaw) > 0 {
		_ = json.Unmarshal(errorsRaw, &r.Errors)
	}
	return r, true, nil
}
