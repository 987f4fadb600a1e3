package scraper

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/coursemix/coursesync/internal/course"
	"github.com/coursemix/coursesync/internal/logger"
)

const (
	prerequisiteMarker = "Prerequisite(s):"
	noteMarker         = "Note:"
	crossListMarker    = "also offered as"
)

// Selectors holds the CSS selectors for the three kinds of course paragraphs
type Selectors struct {
	Code        string
	Name        string
	Description string
}

// DefaultSelectors returns the selectors used by the Brock University web calendar
func DefaultSelectors() Selectors {
	return Selectors{
		Code:        "p.calccode",
		Name:        "p.calcname",
		Description: "p.calnormal",
	}
}

func (s Selectors) withDefaults() Selectors {
	def := DefaultSelectors()
	if s.Code == "" {
		s.Code = def.Code
	}
	if s.Name == "" {
		s.Name = def.Name
	}
	if s.Description == "" {
		s.Description = def.Description
	}
	return s
}

type blockKind int

const (
	kindCode blockKind = iota
	kindName
	kindDescription
)

// block is one matched paragraph, kept in document order
type block struct {
	kind blockKind
	sel  *goquery.Selection
	text string
}

// ParseCourses extracts courses from a calendar page.
// Every code marker holding a link yields one course; markers without a link are skipped.
func ParseCourses(r io.Reader, sourceURL string, sel Selectors) ([]*course.Course, error) {
	return parseCourses(r, sourceURL, sel, logger.Default())
}

func parseCourses(r io.Reader, sourceURL string, sel Selectors, log *logger.Logger) ([]*course.Course, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	sel = sel.withDefaults()
	blocks := collectBlocks(doc, sel)

	courses := make([]*course.Course, 0)
	for i, b := range blocks {
		if b.kind != kindCode {
			continue
		}

		link := b.sel.Find("a").First()
		if link.Length() == 0 {
			log.Debug("Skipping course marker without link", logger.Fields{
				"url":  sourceURL,
				"text": strings.TrimSpace(b.text),
			})
			continue
		}

		following := blocks[i+1:]

		// Descriptions are searched after the title; without a title, after the marker.
		var name *string
		afterTitle := following
		if j := nextOfKind(following, kindName); j >= 0 {
			name = course.StringPtr(strings.TrimSpace(following[j].text))
			afterTitle = following[j+1:]
		}

		description := SelectDescription(textsOfKind(afterTitle, kindDescription, 2))
		prerequisite := ScanPrerequisite(textsOfKind(following, kindDescription, -1))

		courses = append(courses, course.New(strings.TrimSpace(link.Text()), name, description, prerequisite, sourceURL))
	}

	return courses, nil
}

// collectBlocks returns every code, name and description paragraph in document order
func collectBlocks(doc *goquery.Document, sel Selectors) []block {
	blocks := make([]block, 0)
	doc.Find(sel.Code + ", " + sel.Name + ", " + sel.Description).Each(func(_ int, s *goquery.Selection) {
		var kind blockKind
		switch {
		case s.Is(sel.Code):
			kind = kindCode
		case s.Is(sel.Name):
			kind = kindName
		default:
			kind = kindDescription
		}
		blocks = append(blocks, block{kind: kind, sel: s, text: s.Text()})
	})
	return blocks
}

// nextOfKind returns the index of the first block of the given kind, or -1
func nextOfKind(blocks []block, kind blockKind) int {
	for i, b := range blocks {
		if b.kind == kind {
			return i
		}
	}
	return -1
}

// textsOfKind returns the texts of up to limit blocks of the given kind. limit < 0 means all.
func textsOfKind(blocks []block, kind blockKind, limit int) []string {
	texts := make([]string, 0)
	for _, b := range blocks {
		if limit >= 0 && len(texts) == limit {
			break
		}
		if b.kind == kind {
			texts = append(texts, b.text)
		}
	}
	return texts
}

// SelectDescription picks the description from the first two body paragraphs after a title.
// A first paragraph announcing a cross-listing ("also offered as") is skipped in favour of
// the second one when there is a second one. Returns nil when texts is empty.
func SelectDescription(texts []string) *string {
	if len(texts) == 0 {
		return nil
	}
	if len(texts) > 1 && strings.Contains(strings.ToLower(texts[0]), crossListMarker) {
		return course.StringPtr(strings.TrimSpace(texts[1]))
	}
	return course.StringPtr(strings.TrimSpace(texts[0]))
}

// ScanPrerequisite walks body paragraphs in order and returns the text of the first one
// carrying the "Prerequisite(s):" marker, with the marker removed. A "Note:" paragraph
// seen first ends the scan. Returns course.NoPrerequisite when nothing is found.
func ScanPrerequisite(texts []string) string {
	for _, text := range texts {
		if strings.Contains(text, prerequisiteMarker) {
			prereq := strings.TrimSpace(strings.ReplaceAll(strings.TrimSpace(text), prerequisiteMarker, ""))
			if prereq == "" {
				return course.NoPrerequisite
			}
			return prereq
		}
		if strings.Contains(text, noteMarker) {
			break
		}
	}
	return course.NoPrerequisite
}
