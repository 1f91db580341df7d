package config // package config loads application configuration from environment variables

import (
    "log"  // log is used to report configuration errors and halt execution
    "os"   // os provides access to environment variables
    "time" // time represents the reservation timing knobs
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Reservation timing knobs are durations so the
// flow and worker layers can consume them directly.
type Config struct {
    Env              string        // application environment (e.g. "dev", "prod")
    Port             string        // HTTP port to listen on
    DBUser           string        // database username
    DBPass           string        // database password (optional)
    DBHost           string        // database host address
    DBPort           string        // database port number
    DBName           string        // database name
    JWTSecret        string        // secret used to verify access tokens
    HoldTTL          time.Duration // lifetime of a checkout hold
    LockTTL          time.Duration // lifetime of a slot lock
    PromoterInterval time.Duration // how often the waitlist promoter sweeps
    SweepInterval    time.Duration // how often the expiry sweeper runs
    WaitlistAttempts int           // default promotion attempt budget per entry
    OpenHour         int           // first bookable slot hour of the day (UTC)
    CloseHour        int           // hour after the last bookable slot (UTC)
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  Timing knobs carry
// safe defaults and only need to be set when tuning.
func Load() Config {
    return Config{
        Env:              must("APP_ENV"),             // environment (dev/test/prod)
        Port:             must("APP_PORT"),            // port to bind the HTTP server
        DBUser:           must("DB_USER"),             // database user
        DBPass:           os.Getenv("DB_PASS"),        // database password (empty allowed)
        DBHost:           must("DB_HOST"),             // database host
        DBPort:           must("DB_PORT"),             // database port
        DBName:           must("DB_NAME"),             // database name
        JWTSecret:        must("JWT_SECRET"),          // secret used to verify JWTs
        HoldTTL:          envDur("HOLD_TTL", 10*time.Minute),
        LockTTL:          envDur("LOCK_TTL", 10*time.Second),
        PromoterInterval: envDur("PROMOTER_INTERVAL", 3*time.Minute),
        SweepInterval:    envDur("SWEEP_INTERVAL", time.Minute),
        WaitlistAttempts: envInt("WAITLIST_MAX_ATTEMPTS", 10),
        OpenHour:         envInt("SLOT_OPEN_HOUR", 9),
        CloseHour:        envInt("SLOT_CLOSE_HOUR", 18),
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
