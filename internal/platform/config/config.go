package config

import (
	"os"
	"strings"
	"time"
)

// Config captures process-level configuration for the intake service.
type Config struct {
	Addr string

	// DatabaseURL selects the postgres record store; when empty the service
	// falls back to in-memory stores (development only).
	DatabaseURL string

	// RedisURL selects the redis pending-verification store; empty means
	// the pending store follows the record store.
	RedisURL string

	// KafkaBrokers/KafkaTopic select the Kafka operator notifier; when no
	// brokers are configured completion bundles go to the structured log.
	KafkaBrokers []string
	KafkaTopic   string

	// BotCredential is the chat transport's private credential. Capture-link
	// tokens and integrity-token validation both derive keys from it.
	BotCredential string

	// CaptureBaseURL is the externally reachable base for capture links.
	CaptureBaseURL string

	// CaptureTokenTTL bounds how long an issued capture link stays valid.
	CaptureTokenTTL time.Duration

	// QuestionsFile seeds the question catalog when the store is empty.
	QuestionsFile string

	// FirstAdminUsername is promoted to admin on startup when no account
	// with that username exists.
	FirstAdminUsername string

	// MessengerWebhookURL, when set, delivers outbound respondent prompts
	// to the chat transport over HTTP instead of the log.
	MessengerWebhookURL string
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	cfg := Config{
		Addr:                getenv("INTAKE_ADDR", ":8080"),
		DatabaseURL:         os.Getenv("INTAKE_DATABASE_URL"),
		RedisURL:            os.Getenv("INTAKE_REDIS_URL"),
		KafkaTopic:          getenv("INTAKE_KAFKA_TOPIC", "intake.operator-notifications"),
		BotCredential:       getenv("INTAKE_BOT_CREDENTIAL", "dev-credential-change-in-production"),
		CaptureBaseURL:      getenv("INTAKE_CAPTURE_BASE_URL", "http://localhost:8080"),
		CaptureTokenTTL:     getduration("INTAKE_CAPTURE_TOKEN_TTL", 24*time.Hour),
		QuestionsFile:       getenv("INTAKE_QUESTIONS_FILE", "data/questions.json"),
		FirstAdminUsername:  os.Getenv("INTAKE_FIRST_ADMIN_USERNAME"),
		MessengerWebhookURL: os.Getenv("INTAKE_MESSENGER_WEBHOOK_URL"),
	}
	if brokers := os.Getenv("INTAKE_KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getduration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
