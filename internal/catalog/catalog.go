package catalog

import (
	_ "embed"
	"fmt"
	"net/url"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed subjects.yaml
var subjectsYAML []byte

// Catalog describes where subject pages live and which subjects to fetch
type Catalog struct {
	BaseURL  string   `yaml:"base_url"`
	Year     string   `yaml:"year"`
	Level    string   `yaml:"level"`
	Subjects []string `yaml:"subjects"`
}

// Default returns the embedded catalog
func Default() (*Catalog, error) {
	return Parse(subjectsYAML)
}

// Parse decodes a catalog document
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	for i, s := range c.Subjects {
		c.Subjects[i] = strings.ToLower(strings.TrimSpace(s))
	}
	return &c, nil
}

// WithOverrides returns a copy with any non-empty argument replacing the embedded value
func (c *Catalog) WithOverrides(baseURL, year, level string) *Catalog {
	out := *c
	out.Subjects = append([]string(nil), c.Subjects...)
	if baseURL != "" {
		out.BaseURL = baseURL
	}
	if year != "" {
		out.Year = year
	}
	if level != "" {
		out.Level = level
	}
	return &out
}

// URL returns the calendar page for one subject
func (c *Catalog) URL(subject string) string {
	return fmt.Sprintf("%s/%s/%s/%s.html",
		strings.TrimRight(c.BaseURL, "/"),
		url.PathEscape(c.Year),
		url.PathEscape(c.Level),
		url.PathEscape(strings.ToLower(subject)))
}

// Has reports whether subject is in the catalog
func (c *Catalog) Has(subject string) bool {
	subject = strings.ToLower(strings.TrimSpace(subject))
	for _, s := range c.Subjects {
		if s == subject {
			return true
		}
	}
	return false
}

// URLs returns page URLs in catalog order. A non-empty only narrows the list to those
// subjects; unknown subjects are an error.
func (c *Catalog) URLs(only []string) ([]string, error) {
	subjects := c.Subjects
	if len(only) > 0 {
		want := make(map[string]bool, len(only))
		for _, s := range only {
			s = strings.ToLower(strings.TrimSpace(s))
			if !c.Has(s) {
				return nil, fmt.Errorf("unknown subject %q", s)
			}
			want[s] = true
		}
		subjects = nil
		for _, s := range c.Subjects {
			if want[s] {
				subjects = append(subjects, s)
			}
		}
	}

	urls := make([]string, 0, len(subjects))
	for _, s := range subjects {
		urls = append(urls, c.URL(s))
	}
	return urls, nil
}
