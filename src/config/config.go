package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	DatabasePath       string
	LogLevel           string
	ImportDir          string
	ArchiveDir         string
	ArchiveProcessed   bool
	ReferenceDataPath  string
	LookupBaseURL      string
	LookupRateInterval time.Duration
	MaxImportFileBytes int64
}

var Cfg *AppConfig

func LoadConfig() {
	errEnv := godotenv.Load()
	if errEnv != nil {
		log.Println("Info: No .env file found or error loading .env file. Relying on OS environment variables and defaults. Error (if any):", errEnv)
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	// The pending-ISIN retry loop must stay near one lookup per 1.1s to
	// respect the provider's quota.
	lookupIntervalStr := getEnv("LOOKUP_RATE_INTERVAL", "1100ms")
	lookupInterval, err := time.ParseDuration(lookupIntervalStr)
	if err != nil {
		log.Printf("WARNING: Invalid LOOKUP_RATE_INTERVAL format '%s'. Using default 1100ms. Error: %v", lookupIntervalStr, err)
		lookupInterval = 1100 * time.Millisecond
	}

	maxImportBytesStr := getEnv("MAX_IMPORT_FILE_BYTES", "20971520")
	maxImportBytes, err := strconv.ParseInt(maxImportBytesStr, 10, 64)
	if err != nil {
		log.Printf("WARNING: Invalid MAX_IMPORT_FILE_BYTES format '%s'. Using default 20MB. Error: %v", maxImportBytesStr, err)
		maxImportBytes = 20 * 1024 * 1024
	}

	Cfg = &AppConfig{
		DatabasePath:       getEnv("DATABASE_PATH", "./flexfolio.db"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		ImportDir:          getEnv("IMPORT_DIR", "./imports"),
		ArchiveDir:         getEnv("ARCHIVE_DIR", "archive/flex"),
		ArchiveProcessed:   getEnvAsBool("ARCHIVE_PROCESSED", true),
		ReferenceDataPath:  getEnv("REFERENCE_DATA_PATH", ""),
		LookupBaseURL:      getEnv("LOOKUP_BASE_URL", "https://query2.finance.yahoo.com"),
		LookupRateInterval: lookupInterval,
		MaxImportFileBytes: maxImportBytes,
	}

	log.Printf("Configuration loaded: LogLevel=%s, DBPath=%s, ImportDir=%s",
		Cfg.LogLevel, Cfg.DatabasePath, Cfg.ImportDir)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable %s not set, using default: %s", key, fallback)
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid boolean value for %s ('%s'), using default: %t", key, valueStr, fallback)
	return fallback
}
