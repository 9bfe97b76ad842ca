package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr    string
	DatabaseURL string
	SentryDSN   string
	LogLevel    string

	// Transcription provider
	DeepgramAPIKey string
	DeepgramModel  string

	// Audio capture
	SampleRate      int
	EnergyThreshold float64
	GapTimeout      time.Duration
	AcquireTimeout  time.Duration
	MaxSegment      time.Duration
	CalibrationDur  time.Duration
	StopWait        time.Duration

	// Event feed
	KeepaliveInterval time.Duration

	// Classifier retraining
	RetrainInterval time.Duration

	// JWT Authentication
	JWTSecret string
	JWTExpiry time.Duration

	// Admin access
	AdminPassword string

	// Notifications
	DiscordWebhookURL string
}

func LoadConfigFromEnv() Config {
	return Config{
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		DatabaseURL: getenv("DATABASE_URL", ""),
		SentryDSN:   getenv("SENTRY_DSN", ""),
		LogLevel:    getenv("LOG_LEVEL", "info"),

		DeepgramAPIKey: getenv("DEEPGRAM_API_KEY", ""),
		DeepgramModel:  getenv("DEEPGRAM_MODEL", "nova-3"),

		SampleRate:      getenvInt("SAMPLE_RATE", 16000),
		EnergyThreshold: getenvFloat("ENERGY_THRESHOLD", 150),
		GapTimeout:      getenvDuration("GAP_TIMEOUT", 1500*time.Millisecond),
		AcquireTimeout:  getenvDuration("ACQUIRE_TIMEOUT", 3*time.Second),
		MaxSegment:      getenvDuration("MAX_SEGMENT", 7*time.Second),
		CalibrationDur:  getenvDuration("CALIBRATION_WINDOW", 1500*time.Millisecond),
		StopWait:        getenvDuration("STOP_WAIT", 3*time.Second),

		KeepaliveInterval: getenvDuration("KEEPALIVE_INTERVAL", 20*time.Second),
		RetrainInterval:   getenvDuration("RETRAIN_INTERVAL", 15*time.Minute),

		JWTSecret: os.Getenv("JWT_SECRET"), // Required - no fallback for security
		JWTExpiry: getenvDuration("JWT_EXPIRY", 24*time.Hour),

		AdminPassword: os.Getenv("ADMIN_PASSWORD"),

		DiscordWebhookURL: getenv("DISCORD_WEBHOOK_URL", ""),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getenvFloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getenvDuration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
