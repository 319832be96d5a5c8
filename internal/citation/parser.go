// Package citation implements C1, the TLG-style citation parser: it decodes
// the markup prefix of a source line into a structured Citation and returns
// the line's content with that markup stripped.
package citation

import (
	"regexp"
	"strings"

	"github.com/Atlogit/atlomy/internal/errkind"
	"github.com/Atlogit/atlomy/internal/model"
)

// StructureProvider resolves the ordered hierarchy level names for a given
// (author_id, work_id) pair, e.g. {"chapter", "section"}. It is supplied
// externally (normally by the ingestion driver, from the work structure
// descriptor described in §6).
type StructureProvider interface {
	LevelNames(authorID, workID string) []string
}

// StaticStructure is a StructureProvider backed by a fixed lookup table,
// suitable for tests and for config-loaded descriptors.
type StaticStructure map[string][]string

func (s StaticStructure) LevelNames(authorID, workID string) []string {
	return s[authorID+"/"+workID]
}

var (
	headerPattern = regexp.MustCompile(`^\[([^\]]*)\]\[([^\]]*)\]$`)
	titleMarkRe   = regexp.MustCompile(`^t(\d*)$`)
	fragmentRe    = regexp.MustCompile(`\(fr\.\s*([^)]+)\)`)
)

// Parser decodes one file's worth of lines, tracking header-declared
// author/work and per-work hierarchy inheritance across content lines.
type Parser struct {
	structure StructureProvider

	headerAuthorID string
	headerWorkID   string

	// lastHierarchy remembers the most recently seen value for each level
	// name, per (author, work), so absent levels can be inherited (§4.1).
	lastHierarchy map[string]map[string]string
}

// New returns a Parser that consults structure for hierarchy level names.
func New(structure StructureProvider) *Parser {
	return &Parser{
		structure:     structure,
		lastHierarchy: make(map[string]map[string]string),
	}
}

// ParseLine decodes one raw source line. ok is false when the line carries
// no citation (NO_CITATION per §4.1): a header declaration, a blank line, or
// any line that is not citation-prefixed. remainder is always the line's
// content with citation markup stripped.
func (p *Parser) ParseLine(line string) (cit model.Citation, remainder string, ok bool, err error) {
	if m := headerPattern.FindStringSubmatch(line); m != nil {
		p.headerAuthorID = m[1]
		p.headerWorkID = m[2]
		return model.Citation{}, "", false, nil
	}

	if strings.TrimSpace(line) == "" {
		return model.Citation{}, "", false, nil
	}

	if !strings.HasPrefix(line, "-") {
		return model.Citation{}, line, false, nil
	}

	tab := strings.IndexByte(line, '\t')
	if tab < 0 {
		return model.Citation{}, line, false, errkind.New(errkind.CitationFormat, "missing content separator in: "+line)
	}
	prefix := line[1:tab]
	content := line[tab+1:]

	parts := strings.SplitN(prefix, "//", 2)
	if len(parts) != 2 {
		return model.Citation{}, content, false, errkind.New(errkind.CitationFormat, "missing '//' in prefix: "+prefix)
	}
	workNumber := parts[0]
	segs := strings.Split(parts[1], "/")
	if len(segs) == 0 || segs[0] == "" {
		return model.Citation{}, content, false, errkind.New(errkind.CitationFormat, "empty hierarchy in prefix: "+prefix)
	}

	cit = model.Citation{
		AuthorID:   p.headerAuthorID,
		WorkID:     p.headerWorkID,
		WorkNumber: workNumber,
	}

	last := segs[len(segs)-1]
	if tm := titleMarkRe.FindStringSubmatch(last); tm != nil {
		cit.IsTitle = true
		cit.TitleNumber = tm[1]
		if cit.TitleNumber == "" {
			cit.TitleNumber = "0"
		}
		segs = segs[:len(segs)-1]
	}

	names := p.structure.LevelNames(cit.AuthorID, cit.WorkID)
	cit.HierarchyLevels = p.resolveHierarchy(cit.AuthorID, cit.WorkID, names, segs)

	if fm := fragmentRe.FindStringSubmatch(content); fm != nil {
		cit.Fragment = fm[1]
		content = strings.TrimSpace(fragmentRe.ReplaceAllString(content, ""))
	}

	return cit, content, true, nil
}

// resolveHierarchy zips segs against names positionally, inheriting any
// name beyond len(segs) from the last citation seen for this work, and
// updates the inheritance table with the merged result.
func (p *Parser) resolveHierarchy(authorID, workID string, names, segs []string) []model.HierarchyLevel {
	key := authorID + "/" + workID
	last := p.lastHierarchy[key]
	if last == nil {
		last = make(map[string]string)
	}

	merged := make(map[string]string, len(names))
	for i, name := range names {
		if i < len(segs) {
			merged[name] = segs[i]
		} else if v, ok := last[name]; ok {
			merged[name] = v
		}
	}

	out := make([]model.HierarchyLevel, 0, len(names))
	for _, name := range names {
		if v, ok := merged[name]; ok {
			out = append(out, model.HierarchyLevel{Name: name, Value: v})
		}
	}

	p.lastHierarchy[key] = merged
	return out
}
