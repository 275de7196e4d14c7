package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mmdatafocus/polystore_seed/config"
	"github.com/mmdatafocus/polystore_seed/models"
	"github.com/mmdatafocus/polystore_seed/stores"
	"github.com/mmdatafocus/polystore_seed/workflow"
)

func main() {
	settings, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
	logger := config.NewLogger(settings)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conns, err := stores.Open(ctx, settings, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", fmt.Errorf("%w: %w", workflow.ErrConnection, err))
		os.Exit(1)
	}
	defer conns.Close(context.Background())

	if settings.Migrate {
		if err := models.MigrateTable(conns.Relational.DB()); err != nil {
			fmt.Fprintf(os.Stderr, "fatal: migrate: %v\n", err)
			os.Exit(1)
		}
		logger.Info("relational schema migrated")
	}

	pipeline := workflow.NewPipeline(settings, conns.Set(), logger)
	report, err := pipeline.Run(ctx)

	fmt.Printf("run %s finished in %s\n", report.RunId, report.Duration)
	fmt.Printf("users=%d products=%d events=%d inventory=%d orders=%d returns=%d graph_orders=%d sessions=%d\n",
		report.Users, report.Products, report.Events, report.Inventory,
		report.Orders.Orders, report.Orders.Returns, report.Graph.Orders, report.Sessions)
	for _, line := range pipeline.Tally().Summary() {
		fmt.Println(line)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		conns.Close(context.Background())
		os.Exit(1)
	}
}
