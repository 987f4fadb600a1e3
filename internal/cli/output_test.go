package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursemix/coursesync/internal/course"
	"github.com/coursemix/coursesync/internal/pipeline"
)

func TestWriteSummary(t *testing.T) {
	summary := &pipeline.Summary{
		RunID:        "abc",
		PagesFetched: 1,
		PagesFailed:  1,
		Courses:      3,
		Stored:       2,
		Skipped:      1,
		Pages: []pipeline.PageResult{
			{URL: "https://brocku.ca/webcal/2024/undergrad/cosc.html", Courses: 3, Stored: 2, Skipped: 1},
			{URL: "https://brocku.ca/webcal/2024/undergrad/engr.html", Error: "unexpected status 404"},
		},
	}

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteSummary(&buf, summary, FormatText))
		out := buf.String()
		assert.Contains(t, out, "cosc.html")
		assert.Contains(t, out, "unexpected status 404")
		assert.Contains(t, out, "Pages: 1 fetched, 1 failed. Courses: 2 stored, 1 skipped, 0 failed")
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteSummary(&buf, summary, FormatJSON))
		var decoded map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, "abc", decoded["run_id"])
		assert.Len(t, decoded["pages"], 2)
	})

	t.Run("empty", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteSummary(&buf, &pipeline.Summary{}, FormatText))
		assert.Equal(t, "No pages processed.\n", buf.String())
	})

	t.Run("unknown format", func(t *testing.T) {
		assert.Error(t, WriteSummary(&bytes.Buffer{}, summary, "yaml"))
	})
}

func TestWriteCourses(t *testing.T) {
	rows := []*courseRow{
		{Course: course.New("COSC 1P02", course.StringPtr("Introduction to Computer Science"), nil, "", ""), SourceURL: "u"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCourses(&buf, rows, FormatText))
	assert.Contains(t, buf.String(), "Introduction to Computer Science")
	assert.Contains(t, buf.String(), "Total: 1 courses")

	buf.Reset()
	require.NoError(t, WriteCourses(&buf, nil, FormatJSON))
	assert.Equal(t, "[]\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteCourses(&buf, nil, FormatText))
	assert.Equal(t, "No courses found.\n", buf.String())
}
