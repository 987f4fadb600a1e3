package course

import (
	"strings"
	"time"
	"unicode"
)

// NoPrerequisite is stored when a course block carries no prerequisite text.
const NoPrerequisite = "N/A"

// Course represents one row of the Courses table
type Course struct {
	Code         string    `json:"course_code" db:"course_code"`
	Name         *string   `json:"course_name" db:"course_name"`
	Description  *string   `json:"course_desc" db:"course_desc"`
	Prerequisite string    `json:"course_prereq" db:"course_prereq"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`

	// SourceURL is the calendar page the course was read from. Never persisted.
	SourceURL string `json:"-" db:"-"`
}

// NormalizeCode cleans a raw course code. Leading numbering tokens such as "1A" or "2."
// (a word containing a digit, followed by more text with a letter) are dropped, then
// everything before the first ASCII letter is stripped and the rest trimmed.
// A code without any letter is returned trimmed but otherwise unchanged.
func NormalizeCode(raw string) string {
	code := strings.TrimSpace(raw)
	for {
		end := strings.IndexFunc(code, unicode.IsSpace)
		if end < 0 {
			break
		}
		rest := strings.TrimSpace(code[end:])
		if !strings.ContainsFunc(code[:end], unicode.IsDigit) || !strings.ContainsFunc(rest, isASCIILetter) {
			break
		}
		code = rest
	}

	idx := strings.IndexFunc(code, isASCIILetter)
	if idx < 0 {
		return code
	}
	return strings.TrimSpace(code[idx:])
}

func isASCIILetter(r rune) bool {
	return r < unicode.MaxASCII && unicode.IsLetter(r)
}

// New creates a Course with a normalized code and CreatedAt set to the current UTC time.
// An empty prerequisite is replaced by NoPrerequisite.
func New(rawCode string, name, description *string, prerequisite, sourceURL string) *Course {
	if prerequisite == "" {
		prerequisite = NoPrerequisite
	}
	return &Course{
		Code:         NormalizeCode(rawCode),
		Name:         name,
		Description:  description,
		Prerequisite: prerequisite,
		CreatedAt:    time.Now().UTC(),
		SourceURL:    sourceURL,
	}
}

// NameOrEmpty returns the course name, or "" when the page had no title element
func (c *Course) NameOrEmpty() string {
	if c.Name == nil {
		return ""
	}
	return *c.Name
}

// DescriptionOrEmpty returns the course description, or "" when none was found
func (c *Course) DescriptionOrEmpty() string {
	if c.Description == nil {
		return ""
	}
	return *c.Description
}

// HasPrerequisite reports whether prerequisite text was found on the page
func (c *Course) HasPrerequisite() bool {
	return c.Prerequisite != "" && c.Prerequisite != NoPrerequisite
}

// StringPtr returns a pointer to s. Handy for building nullable fields.
func StringPtr(s string) *string {
	return &s
}
