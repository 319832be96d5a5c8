// Package sentence implements C2, the sentence reconstructor: it joins
// Lines into complete Sentences across line boundaries, handling
// hyphenation and terminator detection while preserving per-line
// provenance (§4.2).
package sentence

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Atlogit/atlomy/internal/errkind"
	"github.com/Atlogit/atlomy/internal/model"
)

// terminators is the fixed sentence-terminator set from §4.2: '.', '!',
// the middle dot U+00B7 (the canonical form of the ano teleia),
// the Greek question mark U+037E ';', and the Greek ano teleia U+0387 '·'.
var terminators = map[rune]bool{
	'.':    true,
	'!':    true,
	'·': true,
	';': true,
	'·': true,
}

// Options configures a Reconstructor with the configuration-provided
// abbreviation list that suppresses terminator recognition (§4.2 step 3).
type Options struct {
	Abbreviations []string
}

// LineIn is one contributing source line, identified by the caller-assigned
// LineID (the persisted Line's id) and its normalized content.
type LineIn struct {
	LineID  int64
	Content string
}

// pendingLine is a contributing Line not yet attributed to an emitted
// Sentence. startOffset is the byte offset within content where this
// fragment begins (nonzero only when a single Line spans two Sentences).
// bufStart is the buffer position corresponding to content's local offset
// 0, possibly negative after a mid-line split so that bufStart+localOffset
// always yields the correct buffer position.
type pendingLine struct {
	lineID      int64
	content     string
	startOffset int
	bufStart    int
}

// Reconstructor assembles Sentences from a stream of Lines belonging to a
// single Text. It is not safe for concurrent use by multiple goroutines.
type Reconstructor struct {
	abbreviations map[string]bool

	buf        strings.Builder
	pending    []pendingLine
	quoteDepth int
}

// New returns a Reconstructor configured with the given abbreviation list.
func New(opts Options) *Reconstructor {
	abbr := make(map[string]bool, len(opts.Abbreviations))
	for _, a := range opts.Abbreviations {
		abbr[strings.ToLower(a)] = true
	}
	return &Reconstructor{abbreviations: abbr}
}

// Feed appends one Line's content to the buffer following the §4.2 assembly
// rules and returns every Sentence that becomes complete as a result, plus
// one SentenceLineLink slice per returned Sentence (linkGroups[i] belongs to
// sentences[i] only — a Line containing two or more Sentences never shares
// its link set across them). A malformed-Unicode Line is reported as
// errkind.Encoding and skipped entirely: it never contributes to the buffer
// (§4.2 failure model).
func (r *Reconstructor) Feed(line LineIn) ([]model.Sentence, [][]model.SentenceLineLink, error) {
	if !utf8.ValidString(line.Content) {
		return nil, nil, errkind.New(errkind.Encoding, "invalid unicode in line")
	}

	content := strings.TrimRight(line.Content, " \t")
	bufBefore := r.buf.String()

	var bufStart int
	switch {
	case strings.HasSuffix(bufBefore, "-"):
		trimmed := bufBefore[:len(bufBefore)-1]
		r.buf.Reset()
		r.buf.WriteString(trimmed)
		bufStart = r.buf.Len()
		r.buf.WriteString(content)
	case bufBefore != "" && !endsInSpace(bufBefore) && !startsInSpace(content):
		r.buf.WriteString(" ")
		bufStart = r.buf.Len()
		r.buf.WriteString(content)
	default:
		bufStart = r.buf.Len()
		r.buf.WriteString(content)
	}
	r.pending = append(r.pending, pendingLine{lineID: line.LineID, content: content, bufStart: bufStart})

	var sentences []model.Sentence
	var linkGroups [][]model.SentenceLineLink
	searchFrom := 0
	for {
		pos, end, found := scanTerminator(content, searchFrom, &r.quoteDepth, r.abbreviations)
		if !found {
			break
		}
		_ = pos

		cutBuf := bufStart + end
		full := r.buf.String()
		sentenceText := strings.TrimSpace(full[:min(cutBuf, len(full))])

		sentenceLinks := make([]model.SentenceLineLink, 0, len(r.pending))
		for i, p := range r.pending {
			endOff := len(p.content)
			if i == len(r.pending)-1 {
				endOff = end
			}
			sentenceLinks = append(sentenceLinks, model.SentenceLineLink{
				LineID:        p.lineID,
				PositionStart: p.startOffset,
				PositionEnd:   endOff,
			})
		}
		linkGroups = append(linkGroups, sentenceLinks)
		sentences = append(sentences, model.Sentence{
			Content:       sentenceText,
			StartPosition: 0,
			EndPosition:   len(sentenceText),
		})

		remainder := full[min(cutBuf, len(full)):]
		r.buf.Reset()
		r.buf.WriteString(remainder)

		if end < len(content) {
			// The next Sentence's text comes from TrimSpace-ing the buffer,
			// which drops any leading whitespace right after the
			// terminator; startOffset must skip that same whitespace so the
			// recorded link range matches the trimmed Sentence content
			// byte-for-byte. bufStart still maps from end, since the buffer
			// itself (unlike the emitted Sentence) retains that leading
			// whitespace until trimmed.
			skip := end
			for skip < len(content) {
				ru, size := utf8.DecodeRuneInString(content[skip:])
				if !unicode.IsSpace(ru) {
					break
				}
				skip += size
			}
			r.pending = []pendingLine{{lineID: line.LineID, content: content, startOffset: skip, bufStart: -end}}
			bufStart = -end
			searchFrom = end
			continue
		}
		r.pending = nil
		break
	}
	return sentences, linkGroups, nil
}

// scanTerminator finds the first terminator rune in content at or after
// from that is not preceded by a recognized abbreviation and not inside a
// balanced quotation, tracking quote depth across calls via *quoteDepth.
// It returns the byte offset of the terminator rune and the offset just
// past it.
func scanTerminator(content string, from int, quoteDepth *int, abbreviations map[string]bool) (pos, end int, found bool) {
	for i := from; i < len(content); {
		ru, size := utf8.DecodeRuneInString(content[i:])
		if isQuote(ru) {
			if isOpenQuote(ru) {
				*quoteDepth++
			} else if *quoteDepth > 0 {
				*quoteDepth--
			}
			i += size
			continue
		}
		if terminators[ru] && *quoteDepth == 0 {
			if !precededByAbbreviation(content[:i], abbreviations) {
				return i, i + size, true
			}
		}
		i += size
	}
	return 0, 0, false
}

func precededByAbbreviation(s string, abbreviations map[string]bool) bool {
	if len(abbreviations) == 0 {
		return false
	}
	return abbreviations[strings.ToLower(lastWord(s))]
}

func lastWord(s string) string {
	i := strings.LastIndexFunc(s, unicode.IsSpace)
	return s[i+1:]
}

func endsInSpace(s string) bool {
	if s == "" {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(s)
	return unicode.IsSpace(r)
}

func startsInSpace(s string) bool {
	if s == "" {
		return false
	}
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsSpace(r)
}

func isQuote(r rune) bool {
	switch r {
	case '"', '«', '»', '‘', '’', '“', '”':
		return true
	}
	return false
}

func isOpenQuote(r rune) bool {
	switch r {
	case '"', '«', '‘', '“':
		return true
	}
	return false
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Flush emits the remaining buffer as a final Sentence at end-of-input
// (§4.2 step 5), or reports ok=false if nothing is pending.
func (r *Reconstructor) Flush() (model.Sentence, []model.SentenceLineLink, bool) {
	text := strings.TrimSpace(r.buf.String())
	if text == "" {
		return model.Sentence{}, nil, false
	}
	var links []model.SentenceLineLink
	for _, p := range r.pending {
		links = append(links, model.SentenceLineLink{
			LineID:        p.lineID,
			PositionStart: p.startOffset,
			PositionEnd:   len(p.content),
		})
	}
	sentence := model.Sentence{Content: text, StartPosition: 0, EndPosition: len(text)}
	r.buf.Reset()
	r.pending = nil
	return sentence, links, true
}
