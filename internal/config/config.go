package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strings" // strings normalises enum-like values
	"time"    // time parses durations

	"github.com/joho/godotenv" // godotenv loads an optional .env file
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreMemory = "memory"
	StoreMySQL  = "mysql"
	StoreRedis  = "redis"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env               string        // application environment (e.g. "dev", "prod")
	Port              string        // HTTP port to listen on
	StoreDriver       string        // memory | mysql | redis
	DBUser            string        // database username (mysql driver only)
	DBPass            string        // database password (optional)
	DBHost            string        // database host address
	DBPort            string        // database port number
	DBName            string        // database name
	JWTSecret         string        // secret used to sign JWTs
	AccessTTLMin      int           // access token time‑to‑live in minutes
	BcryptCost        int           // bcrypt cost for hashing the admin password
	AdminUsername     string        // administrator login name
	AdminPassword     string        // plain password or a bcrypt hash ("$2…")
	AdminRole         string        // ADMIN or SUPERADMIN
	DrawCheckInterval time.Duration // how often the scheduler re-evaluates triggers
	DrawWorkers       int           // concurrent trigger checks per tick
	EventsEnabled     bool          // publish raffle events to RabbitMQ
	RabbitMQURL       string        // AMQP broker URL
	EventLogDir       string        // directory of the raffle event log
	EventDialTimeout  time.Duration // upper bound on connecting to the broker per event
}

// Load reads an optional .env file, then the environment, and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	// A missing .env is normal in containers; real env vars always win.
	_ = godotenv.Load()

	cfg := Config{
		Env:               envStr("APP_ENV", "dev"),
		Port:              must("APP_PORT"),
		StoreDriver:       strings.ToLower(envStr("STORE_DRIVER", StoreMemory)),
		JWTSecret:         must("JWT_SECRET"),
		AccessTTLMin:      envInt("ACCESS_TOKEN_TTL_MIN", 60),
		BcryptCost:        envInt("BCRYPT_COST", 10),
		AdminUsername:     must("ADMIN_USERNAME"),
		AdminPassword:     must("ADMIN_PASSWORD"),
		AdminRole:         strings.ToUpper(envStr("ADMIN_ROLE", "ADMIN")),
		DrawCheckInterval: envDur("DRAW_CHECK_INTERVAL", time.Second),
		DrawWorkers:       envInt("DRAW_WORKERS", 4),
		EventsEnabled:     envBool("EVENTS_ENABLED", false),
		RabbitMQURL:       envStr("RABBITMQ_URL", envStr("AMQP_URL", "")),
		EventLogDir:       envStr("EVENT_LOG_DIR", "logs"),
		EventDialTimeout:  envDur("EVENT_DIAL_TIMEOUT", 3*time.Second),
	}

	switch cfg.StoreDriver {
	case StoreMySQL:
		cfg.DBUser = must("DB_USER")
		cfg.DBPass = os.Getenv("DB_PASS") // empty allowed
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = must("DB_PORT")
		cfg.DBName = must("DB_NAME")
	case StoreMemory, StoreRedis:
	default:
		log.Fatalf("invalid STORE_DRIVER %q (want memory, mysql or redis)", cfg.StoreDriver)
	}
	if cfg.AdminRole != "ADMIN" && cfg.AdminRole != "SUPERADMIN" {
		log.Fatalf("invalid ADMIN_ROLE %q (want ADMIN or SUPERADMIN)", cfg.AdminRole)
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
