package workflow

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/mmdatafocus/polystore_seed/config"
	"github.com/mmdatafocus/polystore_seed/generator"
	"github.com/mmdatafocus/polystore_seed/models"
	"github.com/mmdatafocus/polystore_seed/stores"
	"github.com/sirupsen/logrus"
)

// EventMaterializer replaces the user_events collection with generated
// behavioral events, inserted in batches.
type EventMaterializer struct {
	docs        stores.DocumentStore
	r           *rand.Rand
	now         func() time.Time
	numEvents   int
	numUsers    int
	numProducts int
	batchSize   int
	logger      logrus.FieldLogger
	tally       *Tally
}

func NewEventMaterializer(s *config.Settings, docs stores.DocumentStore, r *rand.Rand, logger logrus.FieldLogger, tally *Tally) *EventMaterializer {
	return &EventMaterializer{
		docs:        docs,
		r:           r,
		now:         time.Now,
		numEvents:   s.NumEvents,
		numUsers:    s.NumUsers,
		numProducts: s.NumProducts,
		batchSize:   s.EventBatchSize,
		logger:      logger,
		tally:       tally,
	}
}

// Materialize returns the number of events written. A failed batch is
// logged and skipped.
func (m *EventMaterializer) Materialize(ctx context.Context) (int, error) {
	if err := m.docs.Drop(ctx, models.CollectionUserEvents); err != nil {
		return 0, fmt.Errorf("drop user events: %w", err)
	}
	m.logger.Infof("generating %d events", m.numEvents)

	gen := generator.NewEventGenerator(m.r, m.numUsers, m.numProducts, m.now())
	written := 0
	batch := make([]any, 0, m.batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := m.docs.InsertMany(ctx, models.CollectionUserEvents, batch); err != nil {
			config.LogError(m.logger, "EventMaterializer", "Materialize", "insert event batch", map[string]int{"events": len(batch)}, err)
			m.tally.AddBatchFailure(StageEvents)
		} else {
			written += len(batch)
			m.tally.AddWritten(StageEvents, len(batch))
		}
		batch = make([]any, 0, m.batchSize)
	}

	for i := 0; i < m.numEvents; i++ {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		event, err := gen.Next()
		if err != nil {
			return written, err
		}
		batch = append(batch, event)
		if len(batch) == m.batchSize {
			flush()
			m.logger.Debugf("inserted %d/%d events", written, m.numEvents)
		}
	}
	flush()
	m.logger.Infof("inserted %d events into %s", written, models.CollectionUserEvents)
	return written, nil
}
