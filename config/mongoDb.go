package config

import (
	"context"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// ConnectMongo connects the document store and returns the configured database.
func ConnectMongo(ctx context.Context, s *Settings, logg logrus.FieldLogger) (*mongo.Database, error) {
	var client *mongo.Client
	err := connectWithRetry(ctx, logg, "mongodb", s.ConnectAttempts, func() error {
		c, err := mongo.Connect(ctx, options.Client().ApplyURI(s.MongoURI))
		if err != nil {
			return err
		}
		if err := c.Ping(ctx, readpref.Primary()); err != nil {
			_ = c.Disconnect(ctx)
			return err
		}
		client = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return client.Database(s.MongoDB), nil
}
