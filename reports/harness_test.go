package reports

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// stepClock advances by the next queued duration on every second call, so
// each query observes exactly one step between its start and end reads.
type stepClock struct {
	now   time.Time
	steps []time.Duration
	calls int
}

func (c *stepClock) Now() time.Time {
	c.calls++
	if c.calls%2 == 0 && len(c.steps) > 0 {
		c.now = c.now.Add(c.steps[0])
		c.steps = c.steps[1:]
	}
	return c.now
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func rowsQuery(name string, n int) Query {
	return Query{Name: name, Run: func(ctx context.Context, limit int) (Output, error) {
		out := Output{Title: name}
		for i := 0; i < n; i++ {
			out.Rows = append(out.Rows, fmt.Sprintf("row %d", i))
		}
		return out, nil
	}}
}

func TestClassify(t *testing.T) {
	d, status := Classify(1500*time.Millisecond, SLAThreshold, nil)
	assert.Equal(t, StatusPass, status)
	assert.Equal(t, 1500*time.Millisecond, d)

	_, status = Classify(SLAThreshold, SLAThreshold, nil)
	assert.Equal(t, StatusPass, status, "the threshold itself passes")

	_, status = Classify(2500*time.Millisecond, SLAThreshold, nil)
	assert.Equal(t, StatusFail, status)

	d, status = Classify(time.Second, SLAThreshold, errors.New("connection refused"))
	assert.Equal(t, "error: connection refused", status)
	assert.Zero(t, d)
}

func TestHarness_EvaluateWithFakeClock(t *testing.T) {
	clock := &stepClock{now: time.Unix(0, 0), steps: []time.Duration{
		500 * time.Millisecond, 3 * time.Second, time.Second,
	}}
	failing := Query{Name: "broken", Run: func(ctx context.Context, limit int) (Output, error) {
		return Output{}, errors.New("boom")
	}}
	h := NewHarness([]Query{rowsQuery("fast", 1), rowsQuery("slow", 1), failing}, DefaultLimit, quietLogger())
	h.now = clock.Now

	results := h.Evaluate(context.Background())
	require.Len(t, results, 3)
	assert.Equal(t, StatusPass, results[0].Status)
	assert.Equal(t, StatusFail, results[1].Status)
	assert.Equal(t, 3*time.Second, results[1].Duration)
	assert.Equal(t, "error: boom", results[2].Status)
	assert.False(t, AllPassed(results))

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, results))
	report := buf.String()
	assert.Contains(t, report, "query                                    | time (s)   | status")
	assert.Contains(t, report, "slow")
	assert.Contains(t, report, "3.0000")
	assert.Contains(t, report, "some queries failed performance or execution checks")
}

func TestHarness_BoundedModeCapsRows(t *testing.T) {
	h := NewHarness([]Query{rowsQuery("big", 120)}, DefaultLimit, quietLogger())
	results := h.Evaluate(context.Background())
	assert.Len(t, results[0].Output.Rows, DefaultLimit)

	unbounded := NewHarness([]Query{rowsQuery("big", 120)}, 0, quietLogger()).Evaluate(context.Background())
	assert.Len(t, unbounded[0].Output.Rows, 120)
}

func TestWriteReport_AllPass(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, []Result{{Name: "q", Duration: time.Millisecond, Status: StatusPass}}))
	assert.Contains(t, buf.String(), "all queries passed the 2-second performance limit")
}

func TestExportXLSX(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.xlsx")
	require.True(t, IsSpreadsheet(path))
	results := []Result{
		{Name: "query 1: fashion products", Duration: 120 * time.Millisecond, Status: StatusPass, Output: Output{Title: "fashion", Rows: []string{"product: A"}}},
		{Name: "query 2: recent views", Status: "error: timeout"},
	}
	require.NoError(t, ExportXLSX(results, path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	name, err := f.GetCellValue(reportSheet, "A2")
	require.NoError(t, err)
	assert.Equal(t, "query 1: fashion products", name)
	status, err := f.GetCellValue(reportSheet, "C3")
	require.NoError(t, err)
	assert.Equal(t, "error: timeout", status)

	details, err := os.ReadFile(filepath.Join(dir, "report.txt"))
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(details), "product: A"))
}
