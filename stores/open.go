package stores

import (
	"context"
	"fmt"

	"github.com/mmdatafocus/polystore_seed/config"
	"github.com/sirupsen/logrus"
)

// Connections holds one open handle per engine.
type Connections struct {
	Mongo      *MongoStore
	Relational *GormStore
	Graph      *Neo4jStore
	Redis      *RedisStore
}

// Open connects to all four engines, closing whatever opened if a later one fails.
func Open(ctx context.Context, s *config.Settings, logger logrus.FieldLogger) (*Connections, error) {
	c := &Connections{}

	db, err := config.ConnectDatabase(ctx, s, logger)
	if err != nil {
		return nil, fmt.Errorf("relational store: %w", err)
	}
	c.Relational = NewGormStore(db)

	mdb, err := config.ConnectMongo(ctx, s, logger)
	if err != nil {
		c.Close(ctx)
		return nil, fmt.Errorf("document store: %w", err)
	}
	c.Mongo = NewMongoStore(mdb)

	driver, err := config.ConnectNeo4j(ctx, s, logger)
	if err != nil {
		c.Close(ctx)
		return nil, fmt.Errorf("graph store: %w", err)
	}
	c.Graph = NewNeo4jStore(driver, s.Neo4jDatabase)

	rdb, err := config.ConnectRedis(ctx, s, logger)
	if err != nil {
		c.Close(ctx)
		return nil, fmt.Errorf("key-value store: %w", err)
	}
	c.Redis = NewRedisStore(rdb)
	return c, nil
}

func (c *Connections) Set() Set {
	return Set{
		Documents:  c.Mongo,
		Relational: c.Relational,
		Graph:      c.Graph,
		KeyValue:   c.Redis,
		Locker:     c.Redis,
	}
}

func (c *Connections) Close(ctx context.Context) {
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.Graph != nil {
		_ = c.Graph.Close(ctx)
	}
	if c.Mongo != nil {
		_ = c.Mongo.Close(ctx)
	}
	if c.Relational != nil {
		if sqlDB, err := c.Relational.DB().DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
