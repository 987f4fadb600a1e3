package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/coursemix/coursesync/internal/catalog"
	"github.com/coursemix/coursesync/internal/course"
	"github.com/coursemix/coursesync/internal/pipeline"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// courseRow is an extracted course with the page it came from
type courseRow struct {
	*course.Course
	SourceURL string `json:"source_url"`
}

// subjectRow is one catalog entry
type subjectRow struct {
	Subject string `json:"subject"`
	URL     string `json:"url"`
}

// writeJSON outputs v as indented JSON
func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

// WriteSummary writes a sync summary in the specified format
func WriteSummary(w io.Writer, s *pipeline.Summary, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, s)
	case FormatText:
		return writeSummaryText(w, s)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func writeSummaryText(w io.Writer, s *pipeline.Summary) error {
	if len(s.Pages) == 0 {
		fmt.Fprintln(w, "No pages processed.")
		return nil
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"Page", "Courses", "Stored", "Skipped", "Failed", "Error"})
	for _, p := range s.Pages {
		t.AppendRow(table.Row{p.URL, p.Courses, p.Stored, p.Skipped, p.Failed, p.Error})
	}
	t.AppendFooter(table.Row{"Total", s.Courses, s.Stored, s.Skipped, s.Failed, ""})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 6, WidthMax: 50},
	})
	t.Render()

	mode := ""
	if s.DryRun {
		mode = " (dry run, nothing inserted)"
	}
	fmt.Fprintf(w, "\nPages: %d fetched, %d failed. Courses: %d stored, %d skipped, %d failed%s\n",
		s.PagesFetched, s.PagesFailed, s.Stored, s.Skipped, s.Failed, mode)
	if s.Interrupted {
		fmt.Fprintln(w, "Run interrupted before all pages were processed.")
	}
	return nil
}

// WriteCourses writes extracted courses in the specified format
func WriteCourses(w io.Writer, rows []*courseRow, format OutputFormat) error {
	switch format {
	case FormatJSON:
		if rows == nil {
			rows = []*courseRow{}
		}
		return writeJSON(w, rows)
	case FormatText:
		if len(rows) == 0 {
			fmt.Fprintln(w, "No courses found.")
			return nil
		}
		t := newTable(w)
		t.AppendHeader(table.Row{"Code", "Title", "Description", "Prerequisite"})
		for _, r := range rows {
			t.AppendRow(table.Row{r.Code, r.NameOrEmpty(), r.DescriptionOrEmpty(), r.Prerequisite})
		}
		t.SetColumnConfigs([]table.ColumnConfig{
			{Number: 2, WidthMax: 40},
			{Number: 3, WidthMax: 60},
			{Number: 4, WidthMax: 40},
		})
		t.Render()
		fmt.Fprintf(w, "\nTotal: %d courses\n", len(rows))
		return nil
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// WriteSubjects writes the catalog subjects and their URLs
func WriteSubjects(w io.Writer, cat *catalog.Catalog, format OutputFormat) error {
	rows := make([]subjectRow, 0, len(cat.Subjects))
	for _, s := range cat.Subjects {
		rows = append(rows, subjectRow{Subject: s, URL: cat.URL(s)})
	}

	switch format {
	case FormatJSON:
		return writeJSON(w, rows)
	case FormatText:
		t := newTable(w)
		t.AppendHeader(table.Row{"Subject", "URL"})
		for _, r := range rows {
			t.AppendRow(table.Row{r.Subject, r.URL})
		}
		t.Render()
		fmt.Fprintf(w, "\nTotal: %d subjects\n", len(rows))
		return nil
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}
