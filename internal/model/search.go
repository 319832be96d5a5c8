package model

import "time"

// SearchResultSet is transient and cached only; it never reaches persistent storage.
type SearchResultSet struct {
	ResultsID   string
	Results     []Result
	Total       int
	PageSizeHint int
	CreatedAt   time.Time
	TTL         time.Duration
}

// Result is one matched Sentence with its source/location/context, per §4.4.
type Result struct {
	SentenceID        string
	SentenceText      string
	PrevSentenceText  string
	NextSentenceText  string
	CitationString    string
	Source            ResultSource
	Location          ResultLocation
	Context           ResultContext
}

// ResultSource names the author/work (and ids) a Result's sentence belongs to.
type ResultSource struct {
	Author   string
	Work     string
	AuthorID string
	WorkID   string
}

// ResultLocation carries whichever hierarchy levels the Citation defined.
type ResultLocation struct {
	Volume   string
	Chapter  string
	Section  string
	Book     string
	Page     string
	Fragment string
	Line     string
	Epistle  string
}

// ResultContext identifies the first contributing Line of the matched Sentence.
type ResultContext struct {
	LineID      int64
	LineText    string
	LineNumbers []int
}

// SearchQuery is C4's search(query, opts) request.
type SearchQuery struct {
	Query       string
	SearchLemma bool
	Categories  map[string]struct{}
	PageSize    int
	TTLSeconds  int
}
