package config

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// ConnectDatabase opens the relational store for the configured driver.
func ConnectDatabase(ctx context.Context, s *Settings, logg logrus.FieldLogger) (*gorm.DB, error) {
	var db *gorm.DB
	err := connectWithRetry(ctx, logg, s.DBDriver, s.ConnectAttempts, func() error {
		opened, err := gorm.Open(dialector(s), initConfig())
		if err != nil {
			return err
		}
		sqlDB, err := opened.DB()
		if err != nil {
			return err
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			_ = sqlDB.Close()
			return err
		}
		sqlDB.SetMaxOpenConns(s.DBMaxOpenConns)
		sqlDB.SetMaxIdleConns(s.DBMaxIdleConns)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
		db = opened
		return nil
	})
	if err != nil {
		return nil, err
	}
	if pluginErr := db.Use(otelgorm.NewPlugin()); pluginErr != nil {
		logg.Warnf("db connected but failed to install otelgorm plugin: %v", pluginErr)
	}
	return db, nil
}

func dialector(s *Settings) gorm.Dialector {
	if s.DBDriver == DriverMySQL {
		return mysql.Open(s.DSN())
	}
	return postgres.Open(s.DSN())
}

func initConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         initLog(),
		NamingStrategy: initNamingStrategy(),
		// Batches are committed explicitly by the callers.
		SkipDefaultTransaction: true,
	}
}

// initLog Connection Log Configuration
func initLog() logger.Interface {
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			Colorful:                  false,
			LogLevel:                  logger.Error,
			SlowThreshold:             time.Second,
			IgnoreRecordNotFoundError: true,
		},
	)
}

func initNamingStrategy() *schema.NamingStrategy {
	return &schema.NamingStrategy{
		SingularTable: false,
		TablePrefix:   "",
	}
}
