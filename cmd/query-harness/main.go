package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mmdatafocus/polystore_seed/config"
	"github.com/mmdatafocus/polystore_seed/reports"
	"github.com/mmdatafocus/polystore_seed/stores"
	"github.com/mmdatafocus/polystore_seed/workflow"
)

func main() {
	export := flag.String("export", "", "Optional: write unbounded output to this file (.xlsx writes a spreadsheet)")
	flag.Parse()

	started := time.Now()
	err := run(*export)
	if err != nil {
		fmt.Printf("\nerror evaluating queries: %v\n", err)
	}
	fmt.Printf("total execution time: %.2f seconds\n", time.Since(started).Seconds())
	if err != nil {
		os.Exit(1)
	}
}

func run(export string) error {
	settings, err := config.Load()
	if err != nil {
		return err
	}
	logger := config.NewLogger(settings)
	// the report owns stdout
	logger.SetOutput(os.Stderr)

	ctx := context.Background()
	conns, err := stores.Open(ctx, settings, logger)
	if err != nil {
		return fmt.Errorf("%w: %w", workflow.ErrConnection, err)
	}
	defer conns.Close(ctx)

	userId, err := reports.RandomUserID(ctx, conns.Relational.DB(), settings.DBDriver)
	if err != nil {
		return err
	}

	limit := reports.DefaultLimit
	if export != "" {
		limit = 0
	}
	src := reports.Sources{
		Docs:    conns.Mongo.Database(),
		DB:      conns.Relational.DB(),
		Dialect: settings.DBDriver,
		Graph:   conns.Graph,
		KV:      conns.Redis,
	}
	results := reports.NewHarness(reports.Battery(src, userId), limit, logger).Evaluate(ctx)

	switch {
	case export == "":
		return writeAll(os.Stdout, results)
	case reports.IsSpreadsheet(export):
		if err := reports.ExportXLSX(results, export); err != nil {
			return err
		}
		fmt.Printf("report written to %s (details in %s)\n", export, reports.DetailsPath(export))
		return nil
	default:
		f, err := os.Create(export)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := writeAll(f, results); err != nil {
			return err
		}
		fmt.Printf("report written to %s\n", export)
		return nil
	}
}

func writeAll(w io.Writer, results []reports.Result) error {
	if err := reports.WriteDetails(w, results); err != nil {
		return err
	}
	return reports.WriteReport(w, results)
}
