package main

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/timetrack/internal/recap"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRecapCommandJSON(t *testing.T) {
	out, err := execute(t, "--store", "memory", "recap", "daily", "--date", "2024-03-10", "--tz-offset", "300", "--format", "json")
	require.NoError(t, err)

	var summary struct {
		Mode    string        `json:"mode"`
		Start   string        `json:"start"`
		Entries []recap.Entry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &summary), out)
	require.Equal(t, "daily", summary.Mode)
	require.Equal(t, "2024-03-10T00:00:00-05:00", summary.Start)
	require.Empty(t, summary.Entries)
}

func TestRecapCommandRejectsBadInput(t *testing.T) {
	_, err := execute(t, "--store", "memory", "recap", "yearly")
	require.ErrorContains(t, err, "Invalid mode")

	_, err = execute(t, "--store", "memory", "recap", "daily", "--format", "xml")
	require.ErrorContains(t, err, "unknown format")

	_, err = execute(t, "--store", "memory", "recap")
	require.Error(t, err)
}

func TestMigrateCommandSQLite(t *testing.T) {
	path := t.TempDir() + "/timetrack.db"
	out, err := execute(t, "--store", "sqlite", "--sqlite-path", path, "migrate")
	require.NoError(t, err)
	require.Contains(t, out, "sqlite schema is up to date")
}

func TestRenderSummary(t *testing.T) {
	start := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	summary := &recap.Summary{
		Mode:         recap.Daily,
		Label:        "2024-03-10",
		Start:        start,
		End:          start.AddDate(0, 0, 1),
		TotalMinutes: 135,
		TracksCount:  3,
		Entries: []recap.Entry{
			{ActivityID: 1, ActivityName: "Run", Minutes: 90, Percentage: 66.67},
			{ActivityID: 2, ActivityName: "Swim", Minutes: 45, Percentage: 33.33},
		},
	}

	out := renderSummary(summary)
	require.Contains(t, out, "Daily recap: 2024-03-10")
	require.Contains(t, out, "Run")
	require.Contains(t, out, "1h 30m")
	require.Contains(t, out, "66.67%")
	require.Contains(t, out, "Total: 2h 15m across 3 tracks")

	summary.Entries = nil
	require.Contains(t, renderSummary(summary), "No tracks in this period.")
}
