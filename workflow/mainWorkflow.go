package workflow

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/polystore_seed/appctx"
	"github.com/mmdatafocus/polystore_seed/config"
	"github.com/mmdatafocus/polystore_seed/models"
	"github.com/mmdatafocus/polystore_seed/stores"
	"github.com/mmdatafocus/polystore_seed/utils"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("polystore-seed")

// RunReport is what a completed pipeline run produced.
type RunReport struct {
	RunId     string
	Users     int
	Products  int
	Events    int
	Inventory int
	Orders    SynthesisResult
	Graph     GraphResult
	Sessions  int
	Tally     TallySnapshot
	Duration  time.Duration
}

// Pipeline runs every stage of a seed run in dependency order.
type Pipeline struct {
	settings *config.Settings
	stores   stores.Set
	logger   logrus.FieldLogger
	tally    *Tally
	tracer   trace.Tracer
}

func NewPipeline(s *config.Settings, set stores.Set, logger logrus.FieldLogger) *Pipeline {
	return &Pipeline{
		settings: s,
		stores:   set,
		logger:   logger,
		tally:    NewTally(),
		tracer:   tracer,
	}
}

func (p *Pipeline) Tally() *Tally {
	return p.tally
}

// stageRand derives an independent source per stage so concurrent stages never
// share one and a fixed seed reproduces every stage.
func (p *Pipeline) stageRand(offset int64) *rand.Rand {
	if p.settings.Seed == 0 {
		return utils.NewRand(0)
	}
	return utils.NewRand(p.settings.Seed + offset)
}

// Run executes Users, Catalog, Events, Inventory, Orders and Graph in order,
// with Sessions alongside. The first fatal stage error cancels the run.
func (p *Pipeline) Run(ctx context.Context) (*RunReport, error) {
	started := time.Now()
	report := &RunReport{RunId: uuid.NewString()}
	ctx = appctx.SetRunId(ctx, report.RunId)
	logger := config.WithContext(ctx, p.logger)

	ctx, span := p.tracer.Start(ctx, "Pipeline.Run")
	defer span.End()
	span.SetAttributes(attribute.String("run.id", report.RunId))

	s := p.settings
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return p.stage(gctx, logger, StageSessions, func(ctx context.Context, l logrus.FieldLogger) error {
			n, err := NewSessionMaterializer(s, p.stores.KeyValue, p.stageRand(6), l, p.tally).Materialize(ctx)
			report.Sessions = n
			return err
		})
	})

	g.Go(func() error {
		err := p.stage(gctx, logger, StageUsers, func(ctx context.Context, l logrus.FieldLogger) error {
			n, err := NewUserMaterializer(s, p.stores.Relational, p.stageRand(0), l, p.tally).Materialize(ctx)
			report.Users = n
			return err
		})
		if err != nil {
			return err
		}

		err = p.stage(gctx, logger, StageCatalog, func(ctx context.Context, l logrus.FieldLogger) error {
			n, err := NewCatalogMaterializer(s, p.stores.Documents, p.stageRand(1), l, p.tally).Materialize(ctx)
			report.Products = n
			return err
		})
		if err != nil {
			return err
		}

		err = p.stage(gctx, logger, StageEvents, func(ctx context.Context, l logrus.FieldLogger) error {
			n, err := NewEventMaterializer(s, p.stores.Documents, p.stageRand(2), l, p.tally).Materialize(ctx)
			report.Events = n
			return err
		})
		if err != nil {
			return err
		}

		var inventory []models.Inventory
		err = p.stage(gctx, logger, StageInventory, func(ctx context.Context, l logrus.FieldLogger) error {
			rows, err := NewInventoryProjector(s, p.stores.Documents, p.stores.Relational, l, p.tally).Project(ctx)
			inventory = rows
			report.Inventory = len(rows)
			return err
		})
		if err != nil {
			return err
		}

		err = p.stage(gctx, logger, StageOrders, func(ctx context.Context, l logrus.FieldLogger) error {
			userIDs, err := p.stores.Relational.UserIDs(ctx)
			if err != nil {
				return fmt.Errorf("read user ids: %w", err)
			}
			res, err := NewOrderSynthesizer(s, p.stores.Relational, p.stores.Locker, p.stageRand(3), l, p.tally).
				Synthesize(ctx, userIDs, inventory)
			report.Orders = res
			return err
		})
		if err != nil {
			return err
		}

		return p.stage(gctx, logger, StageGraph, func(ctx context.Context, l logrus.FieldLogger) error {
			res, err := NewGraphProjector(s, p.stores.Documents, p.stores.Relational, p.stores.Graph, l, p.tally).Project(ctx)
			report.Graph = res
			return err
		})
	})

	err := g.Wait()
	report.Tally = p.tally.Snapshot()
	report.Duration = time.Since(started)
	p.tally.LogSummary(logger)
	if s.MetricsTextfile != "" {
		if werr := p.tally.WriteTextfile(s.MetricsTextfile); werr != nil {
			logger.Warnf("write metrics textfile: %v", werr)
		}
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "pipeline_failed")
		return report, err
	}
	logger.Infof("pipeline finished in %s", report.Duration.Round(time.Millisecond))
	return report, nil
}

// stage runs fn in its own span and logs how long it took.
func (p *Pipeline) stage(ctx context.Context, logger logrus.FieldLogger, name string, fn func(context.Context, logrus.FieldLogger) error) error {
	ctx = appctx.SetStage(ctx, name)
	ctx, span := p.tracer.Start(ctx, "Pipeline."+name)
	defer span.End()

	l := config.WithContext(ctx, logger)
	l.Infof("--- %s ---", name)
	started := time.Now()
	err := fn(ctx, l)
	elapsed := time.Since(started)
	span.SetAttributes(attribute.Int64("stage.duration_ms", elapsed.Milliseconds()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, name+"_failed")
		config.LogError(l, "Pipeline", "Run", name, map[string]string{"elapsed": elapsed.String()}, err)
		return fmt.Errorf("%s: %w", name, err)
	}
	l.Infof("%s done in %s", name, elapsed.Round(time.Millisecond))
	return nil
}
