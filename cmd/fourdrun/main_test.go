package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/fourdrun/internal/application/pipeline"
	"github.com/sawpanic/fourdrun/internal/config"
	"github.com/sawpanic/fourdrun/internal/draw"
	"github.com/sawpanic/fourdrun/internal/persistence/memory"
)

const historyCSV = `DrawDate,1st,2nd,3rd,Starter,Consolation
2025-03-01,1234,5678,9012,1111 2222,3333
2025-03-02,4321,8765,2109,,
bad-date,1234,,,,
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append(args, "--log-level", "error", "--env-file", ""))
	err := cmd.Execute()
	return out.String(), err
}

func TestCLI_OfflineCycle(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "history.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(historyCSV), 0644))

	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`["1234","8765","0000","4321"]`))
	}))
	defer feed.Close()

	data := filepath.Join(dir, "data")
	common := []string{"--data-dir", data, "--feed-url", feed.URL, "--seed", "7"}

	out, err := execute(t, append([]string{"import", csvPath}, common...)...)
	require.NoError(t, err)
	assert.Equal(t, "Imported 9 new records from 3 rows (1 rows and 0 numbers dropped)\n", out)

	out, err = execute(t, append([]string{"predict"}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Top 5 candidates")

	out, err = execute(t, append([]string{"box"}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Box (greedy_top4)")

	out, err = execute(t, append([]string{"settle"}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing to settle")

	out, err = execute(t, append([]string{"fetch"}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Stored 4 of 4 numbers")

	out, err = execute(t, append([]string{"fetch"}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "already stored")

	out, err = execute(t, append([]string{"settle"}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "▶ iBet: ")
	assert.Contains(t, out, "▶ iBet Winning rate: ")
	assert.Contains(t, out, "▶ Total Sets hit: ")

	store, err := memory.Open(data)
	require.NoError(t, err)
	records, err := store.Repository().Draws.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 13)

	latest, err := store.Repository().Predictions.Latest(context.Background())
	require.NoError(t, err)
	assert.True(t, latest.Settled())
}

func TestCLI_RunWithoutFeedKeepsGoing(t *testing.T) {
	dir := t.TempDir()
	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer feed.Close()

	out, err := execute(t, "run", "--data-dir", dir, "--feed-url", feed.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "! fetch: ")
	assert.Contains(t, out, "No draws stored yet")
	assert.Contains(t, out, "Top 0 candidates")
	assert.Contains(t, out, "Box (greedy_top4)")

	_, err = os.Stat(filepath.Join(dir, memory.FileName))
	assert.NoError(t, err)
}

func TestCLI_InvalidFlags(t *testing.T) {
	_, err := execute(t, "box", "--data-dir", t.TempDir(), "--strategy", "spiral")
	assert.Error(t, err)

	_, err = execute(t, "import", filepath.Join(t.TempDir(), "missing.csv"), "--data-dir", t.TempDir())
	assert.Error(t, err)

	_, err = execute(t, "schedule", "--data-dir", t.TempDir(), "--interval=-1s")
	assert.Error(t, err)
}

func TestPrintFetch(t *testing.T) {
	var buf bytes.Buffer
	date := time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)
	printFetch(&buf, &pipeline.FetchResult{Date: date, Skipped: true})
	assert.Equal(t, "Results for "+draw.FormatDrawDate(date)+" already stored\n", buf.String())
}

func TestPrintFetch_Stored(t *testing.T) {
	var buf bytes.Buffer
	date := time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)
	printFetch(&buf, &pipeline.FetchResult{Date: date, Numbers: 23, Added: 23, Cached: true})
	assert.Equal(t, "Stored 23 of 23 numbers for "+draw.FormatDrawDate(date)+" (from cache)\n", buf.String())
}

func TestCLI_ExportAndConfigInit(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "data")
	csvPath := filepath.Join(dir, "history.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(historyCSV), 0644))

	_, err := execute(t, "import", csvPath, "--data-dir", data)
	require.NoError(t, err)

	out, err := execute(t, "export", "--data-dir", data)
	require.NoError(t, err)
	assert.Contains(t, out, "DrawDate,1st,2nd,3rd,Starter,Consolation\n")
	assert.Contains(t, out, "Sun (2025-03-02),4321,8765,2109,,\n")

	exported := filepath.Join(dir, "export.csv")
	_, err = execute(t, "export", exported, "--data-dir", data)
	require.NoError(t, err)
	written, err := os.ReadFile(exported)
	require.NoError(t, err)
	assert.Equal(t, out, string(written))

	cfgPath := filepath.Join(dir, "fourdrun.yaml")
	out, err = execute(t, "config", "init", cfgPath, "--seed", "42")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration written to")

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, int64(42), cfg.Model.Seed)

	_, err = execute(t, "config", "init", cfgPath)
	assert.Error(t, err)
	_, err = execute(t, "config", "init", cfgPath, "--force")
	assert.NoError(t, err)
}

type closeRecorder struct {
	bytes.Buffer
	closed bool
	err    error
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return c.err
}

func TestExportTo_ReportsCloseError(t *testing.T) {
	write := func(w io.Writer) (int, error) {
		_, err := io.WriteString(w, "DrawDate\n")
		return 1, err
	}

	ok := &closeRecorder{}
	rows, err := exportTo(ok, write)
	require.NoError(t, err)
	assert.Equal(t, 1, rows)
	assert.True(t, ok.closed)
	assert.Equal(t, "DrawDate\n", ok.String())

	diskFull := errors.New("disk full")
	failing := &closeRecorder{err: diskFull}
	_, err = exportTo(failing, write)
	assert.ErrorIs(t, err, diskFull)

	// an export error wins over the close error
	exportErr := errors.New("export failed")
	both := &closeRecorder{err: diskFull}
	_, err = exportTo(both, func(io.Writer) (int, error) { return 0, exportErr })
	assert.ErrorIs(t, err, exportErr)
	assert.True(t, both.closed)
}
