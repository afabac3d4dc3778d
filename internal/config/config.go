package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr string

	// DB
	Env    string // "dev" | "prod"
	DBPath string // e.g. "./data/qrinout.db"

	// DBWriteQueue bounds the write worker's queue. Zero keeps the
	// worker's default.
	DBWriteQueue int

	// TokenSecret signs token payloads. Every checkpoint display and the
	// scan validator must share it.
	TokenSecret string

	// Display device sessions
	SessionSecret string
	SessionTTL    time.Duration

	// CORS origins for browser-based displays. Empty means same-origin only.
	AllowedOrigins []string

	// WorldTimeBaseURL / TimeAPIBaseURL override the external time
	// providers, mainly for tests. Empty uses the public endpoints.
	WorldTimeBaseURL string
	TimeAPIBaseURL   string
}

func FromEnv() Config {
	// Optional .env for local dev; missing file is not an error.
	_ = godotenv.Load()

	addr := getenvDefault("QRINOUT_HTTP_ADDR", ":8080")

	env := strings.ToLower(getenvDefault("QRINOUT_ENV", "dev"))
	if env != "dev" && env != "prod" {
		// fail-soft: treat unknown as dev
		env = "dev"
	}

	dbPath := getenvDefault("QRINOUT_DB_PATH", "./data/qrinout.db")
	dbWriteQueue := getenvInt("QRINOUT_DB_WRITE_QUEUE", 0)

	tokenSecret := getenvDefault("QRINOUT_TOKEN_SECRET", "")
	if tokenSecret == "" && env == "dev" {
		tokenSecret = "dev-token-secret"
	}

	sessionSecret := getenvDefault("QRINOUT_SESSION_SECRET", "")
	if sessionSecret == "" && env == "dev" {
		sessionSecret = "dev-session-secret"
	}

	sessionTTL := time.Duration(getenvInt("QRINOUT_SESSION_TTL_HOURS", 12)) * time.Hour

	origins := splitCSV(os.Getenv("QRINOUT_ALLOWED_ORIGINS"))

	return Config{
		HTTPAddr:     addr,
		Env:          env,
		DBPath:       dbPath,
		DBWriteQueue: dbWriteQueue,

		TokenSecret:   tokenSecret,
		SessionSecret: sessionSecret,
		SessionTTL:    sessionTTL,

		AllowedOrigins: origins,

		WorldTimeBaseURL: os.Getenv("QRINOUT_WORLDTIME_URL"),
		TimeAPIBaseURL:   os.Getenv("QRINOUT_TIMEAPI_URL"),
	}
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func splitCSV(v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
