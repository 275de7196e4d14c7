package workflow

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/mmdatafocus/polystore_seed/config"
	"github.com/mmdatafocus/polystore_seed/generator"
	"github.com/mmdatafocus/polystore_seed/models"
	"github.com/mmdatafocus/polystore_seed/stores"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// SessionMaterializer replaces every cart:* hash with fresh expiring sessions.
// Sessions never reference orders, so it can run alongside the other stages.
type SessionMaterializer struct {
	kv          stores.KeyValueStore
	r           *rand.Rand
	now         func() time.Time
	numSessions int
	numUsers    int
	numProducts int
	ttl         time.Duration
	workers     int
	logger      logrus.FieldLogger
	tally       *Tally
}

func NewSessionMaterializer(s *config.Settings, kv stores.KeyValueStore, r *rand.Rand, logger logrus.FieldLogger, tally *Tally) *SessionMaterializer {
	return &SessionMaterializer{
		kv:          kv,
		r:           r,
		now:         time.Now,
		numSessions: s.NumSessions,
		numUsers:    s.NumUsers,
		numProducts: s.NumProducts,
		ttl:         s.SessionTTL,
		workers:     s.SessionWorkers,
		logger:      logger,
		tally:       tally,
	}
}

func (m *SessionMaterializer) Materialize(ctx context.Context) (int, error) {
	old, err := m.kv.ScanKeysByPrefix(ctx, models.CartKeyPrefix)
	if err != nil {
		return 0, fmt.Errorf("scan cart keys: %w", err)
	}
	if err := m.kv.Delete(ctx, old...); err != nil {
		return 0, fmt.Errorf("clear cart keys: %w", err)
	}
	if len(old) > 0 {
		m.logger.Infof("cleared %d existing cart sessions", len(old))
	}

	// generation stays on one goroutine, r is not safe for concurrent use
	now := m.now()
	sessions := make([]models.CartSession, m.numSessions)
	for i := range sessions {
		sessions[i] = generator.NewCartSession(m.r, m.numUsers, m.numProducts, m.ttl, now)
	}

	var written atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)
	for _, session := range sessions {
		g.Go(func() error {
			if err := m.write(gctx, session); err != nil {
				config.LogError(m.logger, "SessionMaterializer", "Materialize", "write session", session.Key(), err)
				m.tally.AddBatchFailure(StageSessions)
				return nil
			}
			written.Add(1)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return int(written.Load()), err
	}

	n := int(written.Load())
	m.tally.AddWritten(StageSessions, n)
	m.logger.Infof("created %d active cart sessions", n)
	return n, nil
}

func (m *SessionMaterializer) write(ctx context.Context, session models.CartSession) error {
	fields, err := session.Fields()
	if err != nil {
		return err
	}
	if err := m.kv.HashSet(ctx, session.Key(), fields); err != nil {
		return err
	}
	return m.kv.Expire(ctx, session.Key(), session.TTL)
}
