// Package model defines the entities of §3: Author, Text, Division, Line,
// Sentence, SentenceLineLink, LexicalValue, and the Citation value object.
package model

import "fmt"

// Citation is an immutable value object describing a TLG-style reference.
// AuthorID/WorkID identify the Text (declared once in a file header);
// WorkNumber is the per-line "-<WORK>" token that, together with AuthorID,
// forms a Division's citation-field identity (§3's author_id_field /
// work_number_field).
type Citation struct {
	AuthorID   string
	WorkID     string
	WorkNumber string
	Epithet    string
	Fragment   string
	// HierarchyLevels is an ordered map of level name (volume, book, chapter,
	// section, page, line, epistle) to value, in the order declared by the
	// work structure descriptor.
	HierarchyLevels []HierarchyLevel
	IsTitle         bool
	TitleNumber     string
	TitleParts      map[string]string
	TitleText       string
}

// HierarchyLevel is one positional entry of a Citation's hierarchy.
type HierarchyLevel struct {
	Name  string
	Value string
}

// Value looks up a named hierarchy level, returning ("", false) if absent.
func (c Citation) Value(level string) (string, bool) {
	for _, hl := range c.HierarchyLevels {
		if hl.Name == level {
			return hl.Value, true
		}
	}
	return "", false
}

// DivisionKey is the tuple C3 uses to detect division boundaries: citation
// fields plus structural fields excluding line, scoped within a single Text.
type DivisionKey struct {
	AuthorID   string
	WorkNumber string
	Epithet    string
	Fragment   string
	Volume     string
	Chapter    string
	Section    string
}

// Key derives the Division key this citation belongs to (per §4.3), reading
// volume/chapter/section out of the hierarchy levels when present.
func (c Citation) Key() DivisionKey {
	vol, _ := c.Value("volume")
	ch, _ := c.Value("chapter")
	sec, _ := c.Value("section")
	return DivisionKey{
		AuthorID:   c.AuthorID,
		WorkNumber: c.WorkNumber,
		Epithet:    c.Epithet,
		Fragment:   c.Fragment,
		Volume:     vol,
		Chapter:    ch,
		Section:    sec,
	}
}

// String renders the canonical citation string per §6: "<Author>, <Work>
// (<Level1> <V1>, <Level2> <V2>, …)". Caller supplies the display names for
// author/work since the Citation value object only stores ids.
func (c Citation) String(authorName, workName string) string {
	s := fmt.Sprintf("%s, %s", authorName, workName)
	if len(c.HierarchyLevels) == 0 {
		return s
	}
	s += " ("
	for i, hl := range c.HierarchyLevels {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%s %s", capitalize(hl.Name), hl.Value)
	}
	s += ")"
	return s
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	if r[0] >= 'a' && r[0] <= 'z' {
		r[0] = r[0] - ('a' - 'A')
	}
	return string(r)
}
