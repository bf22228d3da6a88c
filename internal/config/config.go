package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"time"

	"github.com/joho/godotenv"
)

// Store drivers.
const (
	StoreMySQL  = "mysql"
	StoreMemory = "memory"
)

// Inventory backends.
const (
	InventoryMemory = "memory"
	InventoryRedis  = "redis"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env       string // application environment (e.g. "dev", "prod")
	Port      string // HTTP port to listen on
	JWTSecret string // secret used to verify session tokens

	StoreDriver string // "mysql" or "memory"
	DBUser      string // database username
	DBPass      string // database password (optional)
	DBHost      string // database host address
	DBPort      string // database port number
	DBName      string // database name

	InventoryBackend string // "memory" or "redis"

	AMQPURL       string // RabbitMQ URL; empty disables publishing
	EventsPublish bool   // publish domain events when AMQPURL is set
	AuditConsumer bool   // run the audit log consumer in-process

	SeedFile    string // YAML seed file; empty uses the embedded seed
	SeedOnStart bool   // insert missing seed events at startup

	PersistMaxAttempts    int           // tries per lifecycle store write
	PersistBackoffInitial time.Duration // first retry delay
	PersistBackoffMax     time.Duration // retry delay cap
}

// Load reads an optional .env file and then the environment.  Required
// variables are enforced by must() and missing values cause the program to
// exit with a fatal log message.  Database variables are only required for
// the mysql store.
func Load() Config {
	_ = godotenv.Load() // a missing .env is fine

	cfg := Config{
		Env:       must("APP_ENV"),    // environment (dev/test/prod)
		Port:      must("APP_PORT"),   // port to bind the HTTP server
		JWTSecret: must("JWT_SECRET"), // secret used for verifying JWTs

		StoreDriver:      envStr("STORE_DRIVER", StoreMySQL),
		InventoryBackend: envStr("INVENTORY_BACKEND", InventoryMemory),

		AMQPURL:       envStr("RABBITMQ_URL", os.Getenv("AMQP_URL")),
		EventsPublish: envBool("EVENTS_PUBLISH", true),
		AuditConsumer: envBool("AUDIT_CONSUMER", false),

		SeedFile:    os.Getenv("SEED_FILE"),
		SeedOnStart: envBool("SEED_ON_START", true),

		PersistMaxAttempts:    envInt("PERSIST_MAX_ATTEMPTS", 4),
		PersistBackoffInitial: envDur("PERSIST_BACKOFF_INITIAL", 100*time.Millisecond),
		PersistBackoffMax:     envDur("PERSIST_BACKOFF_MAX", time.Second),
	}
	switch cfg.StoreDriver {
	case StoreMySQL:
		cfg.DBUser = must("DB_USER")
		cfg.DBPass = os.Getenv("DB_PASS") // empty allowed
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = strconv.Itoa(mustInt("DB_PORT"))
		cfg.DBName = must("DB_NAME")
	case StoreMemory:
	default:
		log.Fatalf("invalid STORE_DRIVER: %q", cfg.StoreDriver)
	}
	if cfg.InventoryBackend != InventoryMemory && cfg.InventoryBackend != InventoryRedis {
		log.Fatalf("invalid INVENTORY_BACKEND: %q", cfg.InventoryBackend)
	}
	if cfg.PersistMaxAttempts < 1 {
		cfg.PersistMaxAttempts = 1
	}
	return cfg
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
