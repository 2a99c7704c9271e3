package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment   string
	DBDSN         string
	HTTPAddr      string
	MigrationsDir string
	JWTSecret     string
	CORSOrigins   []string

	SweepCron              string
	AutoScheduleCron       string
	AutoScheduleWeeksAhead int
	SweepConcurrency       int
	ExpiryAlertDays        int
	LowClassAlertThreshold int

	SendGridAPIKey string
	MailFrom       string
	MailFromName   string
	TelegramToken  string
	NotifyQueue    int
}

// Load читает конфигурацию из окружения; .env подхватывается, если есть
func Load() (*Config, error) {
	return load(".env")
}

func load(envFile string) (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(envFile); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Environment:      envOr("ENV", "development"),
		DBDSN:            os.Getenv("DB_DSN"),
		HTTPAddr:         envOr("HTTP_ADDR", ":8080"),
		MigrationsDir:    envOr("MIGRATIONS_DIR", "migrations"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		CORSOrigins:      splitList(envOr("CORS_ORIGINS", "http://localhost:3000")),
		SweepCron:        envOr("SWEEP_CRON", "0 3 * * *"),
		AutoScheduleCron: envOr("AUTO_SCHEDULE_CRON", "0 */6 * * *"),
		SendGridAPIKey:   os.Getenv("SENDGRID_API_KEY"),
		MailFrom:         os.Getenv("MAIL_FROM"),
		MailFromName:     envOr("MAIL_FROM_NAME", "Tutor Schedule"),
		TelegramToken:    os.Getenv("TELEGRAM_TOKEN"),
	}

	ints := []struct {
		key string
		def int
		dst *int
	}{
		{"AUTO_SCHEDULE_WEEKS_AHEAD", 1, &cfg.AutoScheduleWeeksAhead},
		{"SWEEP_CONCURRENCY", 8, &cfg.SweepConcurrency},
		{"EXPIRY_ALERT_DAYS", 7, &cfg.ExpiryAlertDays},
		{"LOW_CLASS_ALERT_THRESHOLD", 2, &cfg.LowClassAlertThreshold},
		{"NOTIFY_QUEUE_SIZE", 256, &cfg.NotifyQueue},
	}
	for _, item := range ints {
		v, err := intEnv(item.key, item.def)
		if err != nil {
			return nil, err
		}
		*item.dst = v
	}

	// Проверяем обязательные поля
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required but not set")
	}

	return cfg, nil
}

// ExpiryAlertWindow за сколько до окончания пакета предупреждать
func (c *Config) ExpiryAlertWindow() time.Duration {
	return time.Duration(c.ExpiryAlertDays) * 24 * time.Hour
}

// IsProduction боевое окружение
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, raw)
	}
	return v, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
