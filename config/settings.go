package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Settings is built once by Load and handed to every component constructor.
type Settings struct {
	DBDriver       string `validate:"oneof=postgres mysql"`
	DBHost         string `validate:"required"`
	DBPort         string `validate:"required,numeric"`
	DBUser         string `validate:"required"`
	DBPassword     string
	DBName         string `validate:"required"`
	DBMaxOpenConns int    `validate:"gte=1"`
	DBMaxIdleConns int    `validate:"gte=0"`

	MongoURI string `validate:"required"`
	MongoDB  string `validate:"required"`

	Neo4jURI      string `validate:"required"`
	Neo4jUser     string `validate:"required"`
	Neo4jPassword string
	Neo4jDatabase string `validate:"required"`

	RedisAddress string `validate:"required,hostname_port"`

	ConnectAttempts int `validate:"gte=1,lte=10"`

	LogLevel  string `validate:"oneof=panic fatal error warn warning info debug trace"`
	LogFormat string `validate:"oneof=text json"`

	Seed int64

	NumUsers   int `validate:"gte=0"`
	BcryptCost int `validate:"gte=4,lte=31"`

	NumProducts        int `validate:"gte=1"`
	NumEvents          int `validate:"gte=0"`
	EventBatchSize     int `validate:"gte=1"`
	InventoryBatchSize int `validate:"gte=1"`

	NumOrders      int `validate:"gte=0"`
	OrderBatchSize int `validate:"gte=1"`

	ProductChunkSize      int `validate:"gte=1"`
	RelationshipChunkSize int `validate:"gte=1"`
	RelationshipRowLimit  int `validate:"gte=1"`

	NumSessions     int           `validate:"gte=0"`
	SessionTTL      time.Duration `validate:"gt=0"`
	SessionWorkers  int           `validate:"gte=1"`
	RunLockTTL      time.Duration `validate:"gt=0"`
	MetricsTextfile string
	Migrate         bool
}

// DSN returns the connection string for the configured relational driver.
func (s *Settings) DSN() string {
	if s.DBDriver == DriverMySQL {
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
			s.DBUser, s.DBPassword, s.DBHost, s.DBPort, s.DBName)
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		s.DBHost, s.DBPort, s.DBUser, s.DBPassword, s.DBName)
}

// Load reads settings from the environment (and an optional .env file).
func Load() (*Settings, error) {
	// Load env from .env
	_ = godotenv.Load()
	return LoadFrom(os.Getenv)
}

// LoadFrom reads settings through getenv, so tests can supply their own lookup.
func LoadFrom(getenv func(string) string) (*Settings, error) {
	r := envReader{getenv: getenv}
	s := &Settings{
		DBDriver:       strings.ToLower(r.str("DB_DRIVER", DriverPostgres)),
		DBHost:         r.str("DB_HOST", "localhost"),
		DBUser:         r.str("DB_USER", "admin"),
		DBPassword:     r.str("DB_PASSWORD", "password"),
		DBName:         r.str("DB_NAME", "ecommerce_db"),
		DBMaxOpenConns: r.int("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns: r.int("DB_MAX_IDLE_CONNS", 10),

		MongoURI: r.str("MONGO_URI", "mongodb://localhost:27017/"),
		MongoDB:  r.str("MONGO_DB", "ecommerce_db"),

		Neo4jURI:      r.str("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:     r.str("NEO4J_USER", "neo4j"),
		Neo4jPassword: r.str("NEO4J_PASSWORD", "password"),
		Neo4jDatabase: r.str("NEO4J_DATABASE", "neo4j"),

		RedisAddress: r.str("REDIS_ADDRESS", "localhost:6379"),

		ConnectAttempts: r.int("CONNECT_ATTEMPTS", 3),
		LogLevel:        strings.ToLower(r.str("LOG_LEVEL", "info")),
		LogFormat:       strings.ToLower(r.str("LOG_FORMAT", "text")),
		Seed:            int64(r.int("SEED", 0)),

		NumUsers:   r.int("NUM_USERS", 1000),
		BcryptCost: r.int("BCRYPT_COST", 4),

		NumProducts:        r.int("NUM_PRODUCTS", 10000),
		NumEvents:          r.int("NUM_EVENTS", 500000),
		EventBatchSize:     r.int("EVENT_BATCH_SIZE", 5000),
		InventoryBatchSize: r.int("INVENTORY_BATCH_SIZE", 5000),

		NumOrders:      r.int("NUM_ORDERS", 100000),
		OrderBatchSize: r.int("ORDER_BATCH_SIZE", 10000),

		ProductChunkSize:      r.int("PRODUCT_CHUNK_SIZE", 5000),
		RelationshipChunkSize: r.int("RELATIONSHIP_CHUNK_SIZE", 1000),
		RelationshipRowLimit:  r.int("RELATIONSHIP_ROW_LIMIT", 100000),

		NumSessions:     r.int("NUM_SESSIONS", 500),
		SessionTTL:      time.Duration(r.int("SESSION_TTL_SECONDS", 3600)) * time.Second,
		SessionWorkers:  r.int("SESSION_WORKERS", 8),
		RunLockTTL:      time.Duration(r.int("RUN_LOCK_TTL_SECONDS", 3600)) * time.Second,
		MetricsTextfile: r.str("METRICS_TEXTFILE", ""),
		Migrate:         r.bool("MIGRATE", false),
	}
	defaultPort := "5432"
	if s.DBDriver == DriverMySQL {
		defaultPort = "3306"
	}
	s.DBPort = r.str("DB_PORT", defaultPort)

	if r.err != nil {
		return nil, r.err
	}
	if err := validator.New().Struct(s); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	return s, nil
}

// envReader keeps the first parse error so Load can report it once.
type envReader struct {
	getenv func(string) string
	err    error
}

func (r *envReader) str(key, def string) string {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return def
	}
	return v
}

func (r *envReader) int(key string, def int) int {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		if r.err == nil {
			r.err = fmt.Errorf("%s: expected an integer, got %q", key, v)
		}
		return def
	}
	return n
}

func (r *envReader) bool(key string, def bool) bool {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		if r.err == nil {
			r.err = fmt.Errorf("%s: expected a boolean, got %q", key, v)
		}
		return def
	}
	return b
}
