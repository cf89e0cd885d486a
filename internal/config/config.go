package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for durations.
type Config struct {
	Env               string // application environment (e.g. "dev", "prod")
	Port              string // HTTP port to listen on
	GatewayURL        string // base URL of the hosted backend gateway
	GatewayKey        string // public API key sent with every gateway request
	DataDir           string // directory for the local session database
	PollIntervalSec   int    // awaiting-approval poll interval in seconds
	GatewayTimeoutSec int    // per-request gateway timeout in seconds
	AMQPURL           string // broker URL for approval events (optional)
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:               must("APP_ENV"),     // environment (dev/test/prod)
		Port:              must("APP_PORT"),    // port to bind the HTTP server
		GatewayURL:        must("GATEWAY_URL"), // e.g. https://xyz.example.co
		GatewayKey:        must("GATEWAY_ANON_KEY"),
		DataDir:           getenv("DATA_DIR", "."),
		PollIntervalSec:   envIntDefault("APPROVAL_POLL_INTERVAL_SEC", 5),
		GatewayTimeoutSec: envIntDefault("GATEWAY_TIMEOUT_SEC", 10),
		AMQPURL:           os.Getenv("RABBITMQ_URL"), // empty disables broker features
	}
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

// envIntDefault reads an integer variable, falling back to def when unset
// and exiting when set to something unparsable.
func envIntDefault(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
