package config

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/sirupsen/logrus"
)

// ConnectNeo4j connects the graph store.
func ConnectNeo4j(ctx context.Context, s *Settings, logg logrus.FieldLogger) (neo4j.DriverWithContext, error) {
	var driver neo4j.DriverWithContext
	err := connectWithRetry(ctx, logg, "neo4j", s.ConnectAttempts, func() error {
		d, err := neo4j.NewDriverWithContext(s.Neo4jURI, neo4j.BasicAuth(s.Neo4jUser, s.Neo4jPassword, ""))
		if err != nil {
			return err
		}
		if err := d.VerifyConnectivity(ctx); err != nil {
			_ = d.Close(ctx)
			return err
		}
		driver = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return driver, nil
}
