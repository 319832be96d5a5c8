// Package persistence defines the Storage Adapter boundary (§2, §6): the
// interface ingestion (C2/C3) and query-time components (C4/C5) use to
// persist and retrieve the §3 data model. Concrete adapters live in
// internal/persistence/databases.
package persistence

import (
	"context"

	"github.com/Atlogit/atlomy/internal/model"
)

// IngestStore persists the entities C3/C2 produce during ingestion.
// GetOrCreateAuthor/GetOrCreateText/UpsertDivision/UpsertLine are idempotent
// on their natural keys so re-ingesting a source file is a no-op for
// unchanged content (§3 lifecycle summary, invariant 6).
type IngestStore interface {
	GetOrCreateAuthor(ctx context.Context, referenceCode, name, languageCode string) (model.Author, error)
	GetOrCreateText(ctx context.Context, authorID int64, workReferenceCode, title string, metadata map[string]string) (model.Text, error)

	// UpsertDivision creates or returns the existing Division for textID+key,
	// applying any new title/structural data found on this pass.
	UpsertDivision(ctx context.Context, textID int64, key model.DivisionKey, div model.Division) (model.Division, error)

	// UpsertLine creates or replaces the Line at (divisionID, lineNumber).
	UpsertLine(ctx context.Context, divisionID int64, line model.Line) (model.Line, error)

	// PutSentence persists a Sentence and its SentenceLineLinks atomically.
	PutSentence(ctx context.Context, sentence model.Sentence, links []model.SentenceLineLink) error

	// PutIngestionReport persists one run's summary so it can be retrieved
	// asynchronously, independent of the caller that triggered the run.
	PutIngestionReport(ctx context.Context, report model.IngestionReport) error

	// GetIngestionReport retrieves a previously persisted report by id.
	GetIngestionReport(ctx context.Context, id string) (model.IngestionReport, bool, error)
}

// SearchStore executes C4's corpus search over persisted Sentences.
type SearchStore interface {
	// SearchSentences returns every matching Result in the deterministic
	// order defined by §4.4, plus the total count.
	SearchSentences(ctx context.Context, q model.SearchQuery) ([]model.Result, int, error)
}

// LexicalStore persists LexicalValue versions and C5 task status.
type LexicalStore interface {
	// PutLexicalValue appends a new version; the lemma's previous versions
	// remain retrievable.
	PutLexicalValue(ctx context.Context, lv model.LexicalValue) (model.LexicalValue, error)

	// ListVersions returns version strings for lemma, newest first.
	ListVersions(ctx context.Context, lemma string) ([]string, error)

	// GetLexicalValue returns the given version, or the newest if version is "".
	GetLexicalValue(ctx context.Context, lemma, version string) (model.LexicalValue, error)

	// DeleteLatestVersion removes the lemma's current version iff its
	// version string still equals expectedVersion (§4.5 two-phase delete).
	// Returns errkind.StaleTrigger via the caller's comparison when it does
	// not match; implementations simply report whether the delete happened.
	DeleteLatestVersion(ctx context.Context, lemma, expectedVersion string) (bool, error)

	PutTask(ctx context.Context, task model.Task) error
	GetTask(ctx context.Context, taskID string) (model.Task, bool, error)
}

// Store aggregates every Storage Adapter capability the pipeline needs.
type Store interface {
	IngestStore
	SearchStore
	LexicalStore

	// Init creates schema objects if the adapter is backed by a real
	// database; a no-op for in-memory implementations.
	Init(ctx context.Context) error
}
