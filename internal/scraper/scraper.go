package scraper

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/coursemix/coursesync/internal/course"
	"github.com/coursemix/coursesync/internal/logger"
)

const (
	// DefaultUserAgent mimics a desktop browser; the calendar site rejects unknown clients.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/102.0.5005.63 Safari/537.36"
	Timeout          = 30 * time.Second
)

// StatusError is returned when a calendar page answers with a non-2xx status
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d from %s", e.StatusCode, e.URL)
}

// Scraper handles fetching and parsing calendar pages
type Scraper struct {
	client    *http.Client
	userAgent string
	selectors Selectors
	log       *logger.Logger
}

// Option configures a Scraper
type Option func(*Scraper)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(s *Scraper) {
		s.client = client
	}
}

// WithTimeout sets the HTTP client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(s *Scraper) {
		if timeout > 0 {
			s.client.Timeout = timeout
		}
	}
}

// WithUserAgent overrides the browser-like default user agent
func WithUserAgent(userAgent string) Option {
	return func(s *Scraper) {
		if userAgent != "" {
			s.userAgent = userAgent
		}
	}
}

// WithSelectors overrides the CSS selectors used to find course blocks
func WithSelectors(sel Selectors) Option {
	return func(s *Scraper) {
		s.selectors = sel.withDefaults()
	}
}

// WithLogger sets the logger for parse diagnostics
func WithLogger(l *logger.Logger) Option {
	return func(s *Scraper) {
		if l != nil {
			s.log = l
		}
	}
}

// New creates a new Scraper instance
func New(opts ...Option) *Scraper {
	s := &Scraper{
		client: &http.Client{
			Timeout: Timeout,
		},
		userAgent: DefaultUserAgent,
		selectors: DefaultSelectors(),
		log:       logger.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Selectors returns the selectors the scraper extracts with
func (s *Scraper) Selectors() Selectors {
	return s.selectors
}

// FetchCourses fetches one calendar page and extracts every course on it
func (s *Scraper) FetchCourses(ctx context.Context, pageURL string) ([]*course.Course, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: pageURL, StatusCode: resp.StatusCode}
	}

	return parseCourses(resp.Body, pageURL, s.selectors, s.log)
}
