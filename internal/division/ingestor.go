// Package division implements C3, the division/line ingestion state
// machine: it consumes (Line, Citation) pairs and groups them into Division
// records, each with contiguously numbered Lines (§4.3).
package division

import (
	"sort"
	"strconv"

	"github.com/Atlogit/atlomy/internal/errkind"
	"github.com/Atlogit/atlomy/internal/model"
)

type state int

const (
	stateInit state = iota
	stateInBody
	stateInTitle
)

// LineIn is one source line paired with its parsed citation, as produced by
// the citation parser ahead of the ingestion driver.
type LineIn struct {
	Content  string
	Citation model.Citation
}

// DivisionOut is a closed Division plus the content Lines assigned to it
// (empty for a title-only Division).
type DivisionOut struct {
	Division model.Division
	Lines    []model.Line
}

// Ingestor runs the §4.3 state machine over a single Text's line stream.
type Ingestor struct {
	state state

	current       *model.Division
	currentKey    model.DivisionKey
	currentKeySet bool
	lines         []model.Line
	nextLineNum   int

	pendingTitleParts map[string]string
	titleKey          model.DivisionKey
	titleKeySet       bool

	// errs accumulates non-fatal DivisionIntegrity violations, collected
	// per §7's propagation policy rather than surfaced immediately.
	errs []error
}

// New returns a fresh Ingestor in the INIT state.
func New() *Ingestor {
	return &Ingestor{pendingTitleParts: map[string]string{}}
}

// Feed consumes one (Line, Citation) pair. It returns a closed DivisionOut
// whenever feeding this line closes a previous Division: a body Division
// interrupted by a title, a title finalized into its own Division, or a
// body Division closed by a division-key change.
func (ig *Ingestor) Feed(in LineIn) (*DivisionOut, error) {
	if in.Citation.IsTitle {
		return ig.feedTitle(in)
	}
	return ig.feedBody(in)
}

func (ig *Ingestor) feedTitle(in LineIn) (*DivisionOut, error) {
	var closed *DivisionOut
	if ig.state == stateInBody {
		var err error
		closed, err = ig.closeCurrent()
		if err != nil {
			return closed, err
		}
	}
	if !ig.titleKeySet {
		ig.titleKey = in.Citation.Key()
		ig.titleKeySet = true
	}
	if _, dup := ig.pendingTitleParts[in.Citation.TitleNumber]; dup {
		ig.errs = append(ig.errs, errkind.New(errkind.DivisionIntegrity, "duplicate title number "+in.Citation.TitleNumber))
	}
	ig.pendingTitleParts[in.Citation.TitleNumber] = in.Content
	ig.state = stateInTitle
	return closed, nil
}

func (ig *Ingestor) feedBody(in LineIn) (*DivisionOut, error) {
	key := in.Citation.Key()
	if key.Chapter == "" {
		key.Chapter = "1"
	}

	var closed *DivisionOut
	switch ig.state {
	case stateInit:
		ig.openDivision(key, in.Citation)
	case stateInTitle:
		closed = ig.finalizeTitleDivision()
		ig.openDivision(key, in.Citation)
	case stateInBody:
		if !ig.currentKeySet || key != ig.currentKey {
			var err error
			closed, err = ig.closeCurrent()
			if err != nil {
				return closed, err
			}
			ig.openDivision(key, in.Citation)
		}
	}
	ig.state = stateInBody

	ig.nextLineNum++
	ig.lines = append(ig.lines, model.Line{
		LineNumber: ig.nextLineNum,
		Content:    in.Content,
	})
	return closed, nil
}

func (ig *Ingestor) openDivision(key model.DivisionKey, cit model.Citation) {
	lineField, _ := cit.Value("line")
	ig.current = &model.Division{
		AuthorIDField: key.AuthorID,
		WorkNumber:    key.WorkNumber,
		Epithet:       key.Epithet,
		Fragment:      key.Fragment,
		Volume:        key.Volume,
		Chapter:       key.Chapter,
		Section:       key.Section,
		Line:          lineField,
	}
	ig.currentKey = key
	ig.currentKeySet = true
	ig.lines = nil
	ig.nextLineNum = 0
}

// finalizeTitleDivision emits the accumulated title parts as a standalone
// title Division (no content Lines), joining parts in ascending numeric
// order into TitleText (§4.1).
func (ig *Ingestor) finalizeTitleDivision() *DivisionOut {
	if len(ig.pendingTitleParts) == 0 {
		return nil
	}
	key := ig.titleKey
	div := model.Division{
		AuthorIDField: key.AuthorID,
		WorkNumber:    key.WorkNumber,
		Epithet:       key.Epithet,
		Fragment:      key.Fragment,
		Volume:        key.Volume,
		Chapter:       key.Chapter,
		Section:       key.Section,
		IsTitle:       true,
		TitleParts:    ig.pendingTitleParts,
		TitleText:     joinTitleParts(ig.pendingTitleParts),
	}
	ig.pendingTitleParts = map[string]string{}
	ig.titleKeySet = false
	return &DivisionOut{Division: div}
}

func joinTitleParts(parts map[string]string) string {
	keys := make([]string, 0, len(parts))
	for k := range parts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ni, _ := strconv.Atoi(keys[i])
		nj, _ := strconv.Atoi(keys[j])
		return ni < nj
	})
	out := ""
	for i, k := range keys {
		if i > 0 {
			out += " "
		}
		out += parts[k]
	}
	return out
}

// closeCurrent validates and emits the open Division, per §4.3's close-time
// checks: line-number contiguity. Duplicate title numbers are recorded
// separately by feedTitle at accumulation time; nested titles are not
// checked.
func (ig *Ingestor) closeCurrent() (*DivisionOut, error) {
	if ig.current == nil {
		return nil, nil
	}
	div := *ig.current
	lines := ig.lines

	var err error
	if verr := validateContiguity(lines); verr != nil {
		err = errkind.New(errkind.DivisionIntegrity, verr.Error())
		ig.errs = append(ig.errs, err)
	}

	ig.current = nil
	ig.currentKeySet = false
	ig.lines = nil
	ig.nextLineNum = 0
	return &DivisionOut{Division: div, Lines: lines}, err
}

func validateContiguity(lines []model.Line) error {
	for i, l := range lines {
		if l.LineNumber != i+1 {
			return errkind.New(errkind.DivisionIntegrity, "non-contiguous line numbers in division")
		}
	}
	return nil
}

// Close finalizes the ingestor at end-of-input: finalizes any pending title
// and closes any open Division (§4.3 terminal transition). At most one of
// the two is non-nil in the common case; both are flushed here since no
// further Feed calls will occur to do it incrementally.
func (ig *Ingestor) Close() ([]DivisionOut, error) {
	var out []DivisionOut
	if t := ig.finalizeTitleDivision(); t != nil {
		out = append(out, *t)
	}
	closed, err := ig.closeCurrent()
	if closed != nil {
		out = append(out, *closed)
	}
	return out, err
}

// Errors returns every DivisionIntegrity violation collected so far.
func (ig *Ingestor) Errors() []error { return ig.errs }
