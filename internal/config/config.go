package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the runtime settings read from the environment. Load .env
// with godotenv in the command entrypoints before calling Load.
type Config struct {
	Port string

	MistralAPIKey string
	MistralOCRURL string
	OCRModel      string
	OCRTimeout    time.Duration

	ExtractAPIKey  string
	ExtractAPIURL  string
	ExtractTimeout time.Duration

	DBConnStr string
}

func Load() Config {
	return Config{
		Port: getEnv("PORT", "8080"),

		MistralAPIKey: os.Getenv("MISTRAL_API_KEY"),
		MistralOCRURL: getEnv("MISTRAL_OCR_URL", "https://api.mistral.ai/v1/ocr"),
		OCRModel:      getEnv("MISTRAL_OCR_MODEL", "mistral-ocr-latest"),
		OCRTimeout:    getDurationSeconds("OCR_TIMEOUT_SECONDS", 120),

		ExtractAPIKey:  os.Getenv("EXTRACT_API_KEY"),
		ExtractAPIURL:  getEnv("EXTRACT_API_URL", "https://api.openai.com/v1/extractions"),
		ExtractTimeout: getDurationSeconds("EXTRACT_TIMEOUT_SECONDS", 60),

		DBConnStr: dbConnStr(),
	}
}

// dbConnStr builds a postgres connection string from DATABASE_URL or the
// individual DB_* variables.
func dbConnStr() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	username := os.Getenv("DB_USERNAME")
	password := os.Getenv("DB_PASSWORD")
	host := os.Getenv("DB_HOST")
	port := os.Getenv("DB_PORT")
	name := os.Getenv("DB_NAME")
	if username == "" || host == "" || name == "" {
		return ""
	}
	if port == "" {
		port = "5432"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		username, password, host, port, name)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDurationSeconds(key string, fallback int) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return time.Duration(fallback) * time.Second
}
