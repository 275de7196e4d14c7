package reports

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	SLAThreshold = 2 * time.Second
	DefaultLimit = 50

	StatusPass = "pass"
	StatusFail = "fail"
)

// Output is what a query prints: a heading, one line per row and summary notes.
type Output struct {
	Title string
	Rows  []string
	Notes []string
}

// Query is one timed read. limit 0 means unbounded.
type Query struct {
	Name string
	Run  func(ctx context.Context, limit int) (Output, error)
}

type Result struct {
	Name     string
	Duration time.Duration
	Status   string
	Output   Output
}

func (r Result) Passed() bool {
	return r.Status == StatusPass
}

// Harness times each query against the SLA. Errors are recorded in the
// result and never stop the battery.
type Harness struct {
	Queries []Query
	Limit   int
	SLA     time.Duration
	Logger  logrus.FieldLogger
	now     func() time.Time
}

func NewHarness(queries []Query, limit int, logger logrus.FieldLogger) *Harness {
	return &Harness{
		Queries: queries,
		Limit:   limit,
		SLA:     SLAThreshold,
		Logger:  logger,
		now:     time.Now,
	}
}

// Classify maps a run to its report status. An error reports a zero duration.
func Classify(d time.Duration, sla time.Duration, err error) (time.Duration, string) {
	if err != nil {
		return 0, "error: " + err.Error()
	}
	if d <= sla {
		return d, StatusPass
	}
	return d, StatusFail
}

func (h *Harness) Evaluate(ctx context.Context) []Result {
	results := make([]Result, 0, len(h.Queries))
	for _, q := range h.Queries {
		started := h.now()
		out, err := q.Run(ctx, h.Limit)
		d, status := Classify(h.now().Sub(started), h.SLA, err)
		if err != nil && h.Logger != nil {
			h.Logger.WithField("query", q.Name).Warnf("query failed: %v", err)
		}
		if h.Limit > 0 && len(out.Rows) > h.Limit {
			out.Rows = out.Rows[:h.Limit]
		}
		results = append(results, Result{Name: q.Name, Duration: d, Status: status, Output: out})
	}
	return results
}

func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Passed() {
			return false
		}
	}
	return true
}

const reportRule = "==============================================================="

// WriteReport prints the timing table and the overall verdict.
func WriteReport(w io.Writer, results []Result) error {
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\n", reportRule)
	fmt.Fprintf(&b, "%-40s | %-10s | %-10s\n", "query", "time (s)", "status")
	fmt.Fprintln(&b, reportRule)
	for _, r := range results {
		fmt.Fprintf(&b, "%-40s | %-10.4f | %-10s\n", r.Name, r.Duration.Seconds(), r.Status)
	}
	fmt.Fprintln(&b, reportRule)
	if AllPassed(results) {
		fmt.Fprintf(&b, "\nall queries passed the %d-second performance limit\n", int(SLAThreshold.Seconds()))
	} else {
		fmt.Fprintln(&b, "\nsome queries failed performance or execution checks")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteDetails prints every query's rows and notes.
func WriteDetails(w io.Writer, results []Result) error {
	var b strings.Builder
	for _, r := range results {
		title := r.Output.Title
		if title == "" {
			title = r.Name
		}
		fmt.Fprintf(&b, "\n%s\n", title)
		for _, row := range r.Output.Rows {
			fmt.Fprintln(&b, row)
		}
		for _, note := range r.Output.Notes {
			fmt.Fprintln(&b, note)
		}
		if strings.HasPrefix(r.Status, "error") {
			fmt.Fprintln(&b, r.Status)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
