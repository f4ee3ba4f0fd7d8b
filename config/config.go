package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DetectorHTTP = "http"
	DetectorGoCV = "gocv"

	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

type Config struct {
	TelegramToken string
	HTTPAddr      string

	DetectorBackend  string
	InferenceURL     string
	InferenceTimeout time.Duration
	ModelDir         string

	DataDir       string
	StorageDriver string
	SQLitePath    string
	DatabaseURL   string
	CatalogPath   string
	MaxUploadMB   int

	LogLevel string
	LogDir   string

	ClinicName    string
	ClinicTagline string
	ClinicContact string
	ClinicAddress string
	LogoPath      string
}

func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	cfg := &Config{
		TelegramToken: os.Getenv("TELEGRAM_TOKEN"),
		HTTPAddr:      getEnv("HTTP_ADDR", ":8080"),

		DetectorBackend:  strings.ToLower(getEnv("DETECTOR_BACKEND", DetectorHTTP)),
		InferenceURL:     getEnv("INFERENCE_URL", "http://localhost:5000"),
		InferenceTimeout: time.Duration(getEnvAsInt("INFERENCE_TIMEOUT_SEC", 30)) * time.Second,
		ModelDir:         getEnv("MODEL_DIR", "./models"),

		DataDir:       getEnv("DATA_DIR", "./data"),
		StorageDriver: strings.ToLower(getEnv("STORAGE_DRIVER", StorageMemory)),
		SQLitePath:    getEnv("SQLITE_PATH", "./data/sessions.db"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		CatalogPath:   os.Getenv("CATALOG_PATH"),
		MaxUploadMB:   getEnvAsInt("MAX_UPLOAD_MB", 32),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogDir:   os.Getenv("LOG_DIR"),

		ClinicName:    getEnv("CLINIC_NAME", "Orthopedic Imaging Center"),
		ClinicTagline: getEnv("CLINIC_TAGLINE", "Accurate | Caring | Instant"),
		ClinicContact: getEnv("CLINIC_CONTACT", ""),
		ClinicAddress: getEnv("CLINIC_ADDRESS", ""),
		LogoPath:      os.Getenv("LOGO_PATH"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет согласованность настроек
func (c *Config) Validate() error {
	switch c.DetectorBackend {
	case DetectorHTTP:
		if c.InferenceURL == "" {
			return fmt.Errorf("INFERENCE_URL is required for %s detector backend", DetectorHTTP)
		}
	case DetectorGoCV:
	default:
		return fmt.Errorf("unknown DETECTOR_BACKEND %q", c.DetectorBackend)
	}

	switch c.StorageDriver {
	case StorageMemory:
	case StorageSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for %s storage", StorageSQLite)
		}
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for %s storage", StoragePostgres)
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}

	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("MAX_UPLOAD_MB must be positive, got %d", c.MaxUploadMB)
	}
	return nil
}

// MaxUploadBytes лимит тела запроса с файлами
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

func getEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}
