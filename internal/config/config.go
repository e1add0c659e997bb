package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"idle_tapper/internal/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort     string
	DatabaseURL string // empty disables the remote mirror
	DataDir     string
	BotToken    string
	JWTSecret   string
	DevMode     bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	LogLevel string
	LogJSON  bool

	AllowedOrigin string
	CatalogPath   string // optional YAML override of the built-in tables

	// Economy
	TapsPerCoupon     int64
	MaxTapsPerRequest int64
	SerialPolicy      string
	SerialProductTag  string

	// Timers
	SaveDebounce time.Duration
	SaveMaxWait  time.Duration // 0 means 5 × SaveDebounce
	TickInterval time.Duration
	SessionIdle  time.Duration

	// Limits
	APIRateLimit   int
	APIRateWindow  time.Duration
	AuthRateLimit  int
	AuthRateWindow time.Duration
	TapRateLimit   int
	TapRateWindow  time.Duration
}

// Load reads the process environment (and .env when present).
func Load() *Config {
	_ = godotenv.Load()

	devMode := os.Getenv("DEV_MODE") == "true"

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Fatal("JWT_SECRET is not set")
	}

	botToken := os.Getenv("BOT_TOKEN")
	if botToken == "" && !devMode {
		logger.Fatal("BOT_TOKEN is not set")
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "./data"
	}

	serialPolicy := strings.ToLower(strings.TrimSpace(os.Getenv("SERIAL_RESET_POLICY")))
	if serialPolicy != "with_save" {
		serialPolicy = "independent"
	}

	productTag := os.Getenv("SERIAL_PRODUCT_TAG")
	if productTag == "" {
		productTag = "TAPPER"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	return &Config{
		AppPort:     port,
		DatabaseURL: os.Getenv("DATABASE_URL"),
		DataDir:     dataDir,
		BotToken:    botToken,
		JWTSecret:   jwtSecret,
		DevMode:     devMode,

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envInt("REDIS_DB", 0),

		LogLevel: logLevel,
		LogJSON:  os.Getenv("LOG_JSON") == "true",

		AllowedOrigin: os.Getenv("ALLOWED_ORIGIN"),
		CatalogPath:   os.Getenv("CATALOG_PATH"),

		TapsPerCoupon:     envInt64("TAPS_PER_COUPON", 100),
		MaxTapsPerRequest: envInt64("MAX_TAPS_PER_REQUEST", 50),
		SerialPolicy:      serialPolicy,
		SerialProductTag:  productTag,

		SaveDebounce: envMillis("SAVE_DEBOUNCE_MS", 1200),
		SaveMaxWait:  envMillis("SAVE_MAX_WAIT_MS", 0),
		TickInterval: envMillis("TICK_INTERVAL_MS", 1000),
		SessionIdle:  time.Duration(envInt("SESSION_IDLE_MINUTES", 30)) * time.Minute,

		APIRateLimit:   envInt("API_RATE_LIMIT", 120),
		APIRateWindow:  time.Duration(envInt("API_RATE_WINDOW_SECONDS", 60)) * time.Second,
		AuthRateLimit:  envInt("AUTH_RATE_LIMIT", 10),
		AuthRateWindow: time.Duration(envInt("AUTH_RATE_WINDOW_SECONDS", 60)) * time.Second,
		TapRateLimit:   envInt("TAP_RATE_LIMIT", 600),
		TapRateWindow:  time.Duration(envInt("TAP_RATE_WINDOW_SECONDS", 60)) * time.Second,
	}
}

// envInt returns a positive integer from env or def
func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

func envInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func envMillis(key string, def int64) time.Duration {
	return time.Duration(envInt64(key, def)) * time.Millisecond
}
