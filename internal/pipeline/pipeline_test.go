package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursemix/coursesync/internal/course"
	"github.com/coursemix/coursesync/internal/logger"
	"github.com/coursemix/coursesync/internal/metrics"
	"github.com/coursemix/coursesync/internal/scraper"
	"github.com/coursemix/coursesync/internal/store"
)

// fakeFetcher serves canned pages
type fakeFetcher struct {
	pages map[string][]*course.Course
	errs  map[string]error
	calls []string
}

func (f *fakeFetcher) FetchCourses(_ context.Context, pageURL string) ([]*course.Course, error) {
	f.calls = append(f.calls, pageURL)
	if err := f.errs[pageURL]; err != nil {
		return nil, err
	}
	return f.pages[pageURL], nil
}

// lookupStore only supports FindByCode and Insert, with injectable failures
type lookupStore struct {
	rows      map[string]bool
	findErr   map[string]error
	insertErr map[string]error
	inserts   int
	onInsert  func()
}

func newLookupStore() *lookupStore {
	return &lookupStore{
		rows:      make(map[string]bool),
		findErr:   make(map[string]error),
		insertErr: make(map[string]error),
	}
}

func (s *lookupStore) FindByCode(_ context.Context, code string) (bool, error) {
	if err := s.findErr[code]; err != nil {
		return false, err
	}
	return s.rows[code], nil
}

func (s *lookupStore) Insert(_ context.Context, c *course.Course) error {
	s.inserts++
	if s.onInsert != nil {
		s.onInsert()
	}
	if err := s.insertErr[c.Code]; err != nil {
		return err
	}
	if s.rows[c.Code] {
		return store.ErrUniqueViolation
	}
	s.rows[c.Code] = true
	return nil
}

func (s *lookupStore) Close() error { return nil }

func mk(code string) *course.Course {
	return course.New(code, course.StringPtr(code+" title"), course.StringPtr(code+" description"), "", "")
}

const (
	coscURL = "https://brocku.ca/webcal/2024/undergrad/cosc.html"
	mathURL = "https://brocku.ca/webcal/2024/undergrad/math.html"
	engrURL = "https://brocku.ca/webcal/2024/undergrad/engr.html"
)

func testFetcher() *fakeFetcher {
	return &fakeFetcher{
		pages: map[string][]*course.Course{
			coscURL: {mk("COSC 1P02"), mk("COSC 1P03")},
			mathURL: {mk("MATH 1P66"), mk("MATH 1P67"), mk("COSC 1P02")},
		},
		errs: map[string]error{},
	}
}

func quietLogger() *logger.Logger {
	return logger.New(logger.LevelError, logger.FormatJSON, &bytes.Buffer{})
}

func TestRun_TwiceProducesNoDuplicates(t *testing.T) {
	for _, conditional := range []bool{true, false} {
		t.Run(fmt.Sprintf("conditional=%v", conditional), func(t *testing.T) {
			ctx := context.Background()
			fetcher := testFetcher()
			s := store.NewMemoryStore()
			p := New(fetcher, s, WithLogger(quietLogger()), WithConditionalInsert(conditional))

			first := p.Run(ctx, []string{coscURL, mathURL})
			assert.Equal(t, 4, first.Stored)
			assert.Equal(t, 1, first.Skipped, "COSC 1P02 is cross-listed on the math page")
			assert.Equal(t, 0, first.Failed)
			assert.Equal(t, 4, s.Len())

			second := p.Run(ctx, []string{coscURL, mathURL})
			assert.Equal(t, 0, second.Stored)
			assert.Equal(t, 5, second.Skipped)
			assert.Equal(t, 4, s.Len())
		})
	}
}

func TestRun_FetchFailureContinues(t *testing.T) {
	fetcher := testFetcher()
	fetcher.errs[engrURL] = &scraper.StatusError{URL: engrURL, StatusCode: 404}

	s := newLookupStore()
	p := New(fetcher, s, WithLogger(quietLogger()))

	summary := p.Run(context.Background(), []string{engrURL, coscURL})

	assert.Equal(t, []string{engrURL, coscURL}, fetcher.calls)
	assert.Equal(t, 1, summary.PagesFailed)
	assert.Equal(t, 1, summary.PagesFetched)
	assert.Equal(t, 2, summary.Stored)
	require.Len(t, summary.Pages, 2)
	assert.False(t, summary.Pages[0].Fetched())
	assert.Contains(t, summary.Pages[0].Error, "404")
	assert.True(t, summary.Pages[1].Fetched())
}

func TestRun_LookupPath(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(s *lookupStore)
		wantStored  int
		wantSkipped int
		wantFailed  int
		wantInserts int
	}{
		{
			name:        "empty table",
			setup:       func(s *lookupStore) {},
			wantStored:  2,
			wantInserts: 2,
		},
		{
			name:        "existing row is skipped without insert",
			setup:       func(s *lookupStore) { s.rows["COSC 1P02"] = true },
			wantStored:  1,
			wantSkipped: 1,
			wantInserts: 1,
		},
		{
			name: "unique violation on insert is a skip",
			setup: func(s *lookupStore) {
				s.insertErr["COSC 1P02"] = fmt.Errorf("inserting: %w", store.ErrUniqueViolation)
			},
			wantStored:  1,
			wantSkipped: 1,
			wantInserts: 2,
		},
		{
			name: "generic insert error fails that course only",
			setup: func(s *lookupStore) {
				s.insertErr["COSC 1P02"] = errors.New("connection reset")
			},
			wantStored:  1,
			wantFailed:  1,
			wantInserts: 2,
		},
		{
			name: "lookup error fails that course only",
			setup: func(s *lookupStore) {
				s.findErr["COSC 1P02"] = errors.New("timeout")
			},
			wantStored:  1,
			wantFailed:  1,
			wantInserts: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newLookupStore()
			tt.setup(s)
			p := New(testFetcher(), s, WithLogger(quietLogger()))

			summary := p.Run(context.Background(), []string{coscURL})

			assert.Equal(t, tt.wantStored, summary.Stored, "stored")
			assert.Equal(t, tt.wantSkipped, summary.Skipped, "skipped")
			assert.Equal(t, tt.wantFailed, summary.Failed, "failed")
			assert.Equal(t, tt.wantInserts, s.inserts, "insert calls")
			assert.Equal(t, 2, summary.Courses)
		})
	}
}

func TestRun_DryRunLeavesStoreUntouched(t *testing.T) {
	ctx := context.Background()
	backing := store.NewMemoryStore()
	require.NoError(t, backing.Insert(ctx, mk("COSC 1P02")))

	p := New(testFetcher(), store.NewDryRun(backing), WithLogger(quietLogger()), WithDryRun(true))
	summary := p.Run(ctx, []string{coscURL, mathURL})

	assert.True(t, summary.DryRun)
	assert.Equal(t, 3, summary.Stored)
	assert.Equal(t, 2, summary.Skipped)
	assert.Equal(t, 1, backing.Len())
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := testFetcher()
	summary := New(fetcher, newLookupStore(), WithLogger(quietLogger())).Run(ctx, []string{coscURL, mathURL})

	assert.True(t, summary.Interrupted)
	assert.Empty(t, fetcher.calls)
	assert.Empty(t, summary.Pages)
}

func TestRun_Metrics(t *testing.T) {
	fetcher := testFetcher()
	fetcher.errs[engrURL] = errors.New("dial tcp: no such host")
	m := metrics.New()

	New(fetcher, store.NewMemoryStore(), WithLogger(quietLogger()), WithMetrics(m)).
		Run(context.Background(), []string{coscURL, mathURL, engrURL})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.PagesTotal.WithLabelValues(metrics.PageFetched)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PagesTotal.WithLabelValues(metrics.PageFailed)))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.CoursesTotal.WithLabelValues(string(OutcomeStored))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CoursesTotal.WithLabelValues(string(OutcomeSkipped))))
	assert.Greater(t, testutil.ToFloat64(m.LastRunTimestamp), 0.0)
}

func TestRun_EchoAndRunID(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.LevelDebug, logger.FormatJSON, &buf)

	New(testFetcher(), store.NewMemoryStore(), WithLogger(log), WithRunID("run-123")).
		Run(context.Background(), []string{coscURL})

	out := buf.String()
	assert.Contains(t, out, `"run_id":"run-123"`)
	assert.Contains(t, out, `"message":"Successfully stored course"`)
	assert.Contains(t, out, `"title":"COSC 1P03 title"`)
	assert.Contains(t, out, `"prerequisite":"N/A"`)
}

func TestRun_CancelledMidPage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fetcher := &fakeFetcher{
		pages: map[string][]*course.Course{
			coscURL: {mk("COSC 1P02"), mk("COSC 1P03"), mk("COSC 1P50"), mk("COSC 2P03")},
			mathURL: {mk("MATH 1P66")},
		},
	}
	s := newLookupStore()
	s.onInsert = cancel

	summary := New(fetcher, s, WithLogger(quietLogger())).Run(ctx, []string{coscURL, mathURL})

	assert.True(t, summary.Interrupted)
	assert.Equal(t, 1, summary.Stored)
	assert.Equal(t, 0, summary.Skipped)
	assert.Equal(t, 0, summary.Failed, "courses after the cancel must not reach the store")
	assert.Equal(t, 1, s.inserts)
	assert.Equal(t, []string{coscURL}, fetcher.calls)
	require.Len(t, summary.Pages, 1)
	assert.True(t, summary.Pages[0].Interrupted)
	assert.Equal(t, 4, summary.Pages[0].Courses)
}
