package model

import "time"

// Author is unique on ReferenceCode; Name may be updated, nothing else.
type Author struct {
	ID            int64
	ReferenceCode string
	Name          string
	LanguageCode  string
}

// Text is owned by an Author and unique on (AuthorReferenceCode, WorkReferenceCode).
type Text struct {
	ID                  int64
	AuthorID            int64
	AuthorReferenceCode string
	WorkReferenceCode   string
	Title               string
	Metadata            map[string]string
}

// Division is owned by a Text. It is either content-bearing or a title
// division (IsTitle true), per §3/§4.3.
type Division struct {
	ID     int64
	TextID int64

	// Citation fields.
	AuthorIDField string
	WorkNumber    string
	Epithet       string
	Fragment      string

	// Structural fields.
	Volume  string
	Chapter string
	Section string
	Line    string

	IsTitle     bool
	TitleNumber string
	TitleParts  map[string]string
	TitleText   string
}

// Key reconstructs the DivisionKey a Division was opened under.
func (d Division) Key() DivisionKey {
	return DivisionKey{
		AuthorID:   d.AuthorIDField,
		WorkNumber: d.WorkNumber,
		Epithet:    d.Epithet,
		Fragment:   d.Fragment,
		Volume:     d.Volume,
		Chapter:  d.Chapter,
		Section:  d.Section,
	}
}

// Line is owned by a Division; immutable after ingestion except by re-ingestion.
type Line struct {
	ID         int64
	DivisionID int64
	LineNumber int
	Content    string
	NLPTokens  []NLPToken
	Categories []string
}

// NLPToken is one token emitted by the NLP Adapter boundary for a Line or Sentence.
type NLPToken struct {
	Text     string
	Lemma    string
	Category string
}

// Sentence is an independent entity referencing one or more contributing Lines.
type Sentence struct {
	ID            string
	Content       string
	StartPosition int
	EndPosition   int
	NLPData       []NLPToken
	Categories    []string
}

// SentenceLineLink associates a Sentence with one contributing Line and the
// character range of that Line which flowed into the Sentence.
type SentenceLineLink struct {
	SentenceID    string
	LineID        int64
	PositionStart int
	PositionEnd   int
}

// LexicalValue is a versioned lemma entry produced by C5.
type LexicalValue struct {
	ID               int64
	Lemma            string
	LanguageCode     string
	Translation      string
	ShortDescription string
	LongDescription  string
	RelatedTerms     []string
	CitationsUsed    []Citation
	References       []Citation
	Version          string // YYYYMMDD_HHMMSS, monotonic
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TaskStatus is the C5 task state machine's status.
type TaskStatus string

const (
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskError      TaskStatus = "error"
)

// TaskAction distinguishes a create_or_update task's outcome kind.
type TaskAction string

const (
	TaskActionCreate TaskAction = "create"
	TaskActionUpdate TaskAction = "update"
)

// Task is the persisted status record for a C5 create_or_update invocation.
type Task struct {
	ID        string
	Lemma     string
	Status    TaskStatus
	Message   string
	Action    TaskAction
	Entry     *LexicalValue
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IngestionReport is the persisted summary of one ingestion run, so a
// caller can retrieve it after the fact rather than only synchronously
// from the call that produced it.
type IngestionReport struct {
	ID               string
	SourceRef        string // author/work reference codes, e.g. "0627/010"
	LinesRead        int
	DivisionsWritten int
	LinesWritten     int
	SentencesWritten int
	Errors           []string
	CreatedAt        time.Time
}
