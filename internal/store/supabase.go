package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coursemix/coursesync/internal/course"
)

const (
	restPath          = "/rest/v1/"
	supabaseTimeout   = 15 * time.Second
	pgUniqueViolation = "23505"
)

// APIError is an error response from the Supabase REST API
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details"`
	Hint       string `json:"hint"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("supabase API error (status %d, code %s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("supabase API error (status %d)", e.StatusCode)
}

// Unwrap lets errors.Is match ErrUniqueViolation for duplicate-key responses
func (e *APIError) Unwrap() error {
	if e.Code == pgUniqueViolation || (e.StatusCode == http.StatusConflict && e.Code == "") {
		return ErrUniqueViolation
	}
	return nil
}

// Supabase implements Store over the PostgREST endpoint of a Supabase project
type Supabase struct {
	baseURL    string
	apiKey     string
	table      string
	httpClient *http.Client
}

// NewSupabase creates a Supabase-backed store
func NewSupabase(projectURL, apiKey, table string, timeout time.Duration) (*Supabase, error) {
	if projectURL == "" {
		return nil, fmt.Errorf("supabase URL is required")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("supabase API key is required")
	}
	if _, err := url.ParseRequestURI(projectURL); err != nil {
		return nil, fmt.Errorf("invalid supabase URL: %w", err)
	}
	if timeout <= 0 {
		timeout = supabaseTimeout
	}
	if table == "" {
		table = DefaultTable
	}

	return &Supabase{
		baseURL: strings.TrimRight(projectURL, "/"),
		apiKey:  apiKey,
		table:   table,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

func (s *Supabase) tableURL(params url.Values) string {
	u := s.baseURL + restPath + url.PathEscape(s.table)
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

func (s *Supabase) newRequest(ctx context.Context, method, reqURL string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// FindByCode looks up a course code with a single-column select
func (s *Supabase) FindByCode(ctx context.Context, code string) (bool, error) {
	params := url.Values{}
	params.Set("select", "course_code")
	params.Set("course_code", "eq."+code)
	params.Set("limit", "1")

	req, err := s.newRequest(ctx, http.MethodGet, s.tableURL(params), nil)
	if err != nil {
		return false, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("querying course: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, decodeAPIError(resp)
	}

	var rows []struct {
		Code string `json:"course_code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return false, fmt.Errorf("decoding lookup response: %w", err)
	}

	return len(rows) > 0, nil
}

// Insert posts one row. A duplicate code comes back as HTTP 409 with code 23505.
func (s *Supabase) Insert(ctx context.Context, c *course.Course) error {
	resp, err := s.post(ctx, c, nil, "return=minimal")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusNoContent {
		return decodeAPIError(resp)
	}
	return nil
}

// InsertIfAbsent posts one row with duplicates ignored on the course_code conflict target.
// The representation returned is empty when the row already existed.
func (s *Supabase) InsertIfAbsent(ctx context.Context, c *course.Course) (bool, error) {
	params := url.Values{}
	params.Set("on_conflict", "course_code")
	params.Set("select", "course_code")

	resp, err := s.post(ctx, c, params, "resolution=ignore-duplicates,return=representation")
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return false, decodeAPIError(resp)
	}

	var rows []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return false, fmt.Errorf("decoding insert response: %w", err)
	}
	return len(rows) > 0, nil
}

func (s *Supabase) post(ctx context.Context, c *course.Course, params url.Values, prefer string) (*http.Response, error) {
	payload, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshaling course: %w", err)
	}

	req, err := s.newRequest(ctx, http.MethodPost, s.tableURL(params), bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Prefer", prefer)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inserting course: %w", err)
	}
	return resp, nil
}

// Close drops idle keep-alive connections
func (s *Supabase) Close() error {
	s.httpClient.CloseIdleConnections()
	return nil
}

// decodeAPIError reads a PostgREST error body. Bodies that are not JSON leave only the status.
func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err == nil && len(body) > 0 {
		_ = json.Unmarshal(body, apiErr)
		apiErr.StatusCode = resp.StatusCode
	}
	return apiErr
}
