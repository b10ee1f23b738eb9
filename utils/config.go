package utils

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds all configuration for the application
type Config struct {
	App        AppConfig
	HackerNews HackerNewsConfig
	Output     OutputConfig
	Database   DatabaseConfig
	LLM        LLMConfig
	Analysis   AnalysisConfig
	Server     ServerConfig
}

// AppConfig holds application-level configuration
type AppConfig struct {
	Name    string
	Version string
}

// HackerNewsConfig holds Hacker News API configuration
type HackerNewsConfig struct {
	BaseURL           string
	Accounts          []string
	TimeoutSeconds    int
	MaxInFlight       int     // <= 0 means one goroutine per ID
	RequestsPerSecond float64 // 0 disables client-side limiting
	Classifier        string
}

// OutputConfig holds where archives are written
type OutputConfig struct {
	Dir string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string
}

// LLMConfig holds the extraction model configuration
type LLMConfig struct {
	APIKey      string
	Model       string
	Workers     int // <= 0 means one worker per file
	Temperature float64
}

// AnalysisConfig holds statistics thresholds and export paths
type AnalysisConfig struct {
	MinMonthlyPostings int
	MaxCompensation    float64 // thousands per year
	CSVPath            string
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port                 int
	MaxRequestsPerMinute int
}

// LoadConfig loads configuration from .env file
func LoadConfig(envPath string, log *logrus.Logger) (*Config, error) {
	if envPath == "" {
		envPath = ".env"
	}

	// a missing file is fine, the environment may already be set
	if err := godotenv.Load(envPath); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
		log.WithField("file", envPath).Warn("No .env file found, using environment")
	}

	outputDir := getEnv("OUTPUT_DIR", "output")

	config := &Config{
		App: AppConfig{
			Name:    getEnv("APP_NAME", "HN Who Is Hiring"),
			Version: getEnv("APP_VERSION", "1.0.0"),
		},
		HackerNews: HackerNewsConfig{
			BaseURL:           getEnv("HN_BASE_URL", "https://hacker-news.firebaseio.com/v0"),
			Accounts:          parseList(getEnv("HN_ACCOUNTS", "whoishiring")),
			TimeoutSeconds:    getEnvAsInt("HN_TIMEOUT_SECONDS", 60),
			MaxInFlight:       getEnvAsInt("HN_MAX_IN_FLIGHT", 32),
			RequestsPerSecond: getEnvAsFloat("HN_REQUESTS_PER_SECOND", 0),
			Classifier:        getEnv("HN_THREAD_CLASSIFIER", "title"),
		},
		Output: OutputConfig{
			Dir: outputDir,
		},
		Database: DatabaseConfig{
			Path: getEnv("DATABASE_PATH", "./whoishiring.db"),
		},
		LLM: LLMConfig{
			APIKey:      getEnv("GEMINI_API_KEY", ""),
			Model:       getEnv("LLM_MODEL", "gemini-2.5-flash"),
			Workers:     getEnvAsInt("LLM_WORKERS", 0),
			Temperature: getEnvAsFloat("LLM_TEMPERATURE", 0.1),
		},
		Analysis: AnalysisConfig{
			MinMonthlyPostings: getEnvAsInt("ANALYSIS_MIN_MONTHLY_POSTINGS", 10),
			MaxCompensation:    getEnvAsFloat("ANALYSIS_MAX_COMPENSATION", 1000),
			CSVPath:            getEnv("ANALYSIS_CSV_PATH", filepath.Join(outputDir, "HN_case_study_expanded.csv")),
		},
		Server: ServerConfig{
			Port:                 getEnvAsInt("SERVER_PORT", 8080),
			MaxRequestsPerMinute: getEnvAsInt("SERVER_MAX_REQUESTS_PER_MINUTE", 100),
		},
	}

	// validation
	if err := validateConfig(config); err != nil {
		return nil, err
	}

	log.WithField("file", envPath).Info("Config loaded successfully")
	return config, nil
}

// parseList parses a comma-separated list, dropping empty entries
func parseList(s string) []string {
	parts := strings.Split(s, ",")

	values := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			values = append(values, trimmed)
		}
	}

	return values
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt gets an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsFloat gets an environment variable as a float or returns a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// validateConfig validates the configuration
func validateConfig(config *Config) error {
	if config.HackerNews.BaseURL == "" {
		return fmt.Errorf("HN_BASE_URL must not be empty")
	}
	if len(config.HackerNews.Accounts) == 0 {
		return fmt.Errorf("HN_ACCOUNTS environment variable is required")
	}
	if config.HackerNews.TimeoutSeconds < 1 {
		return fmt.Errorf("HN_TIMEOUT_SECONDS must be positive")
	}
	if config.HackerNews.RequestsPerSecond < 0 {
		return fmt.Errorf("HN_REQUESTS_PER_SECOND must not be negative")
	}
	switch config.HackerNews.Classifier {
	case "", "title", "substring":
	default:
		return fmt.Errorf("HN_THREAD_CLASSIFIER must be title or substring, got %q", config.HackerNews.Classifier)
	}

	if config.Output.Dir == "" {
		return fmt.Errorf("OUTPUT_DIR must not be empty")
	}
	if config.Analysis.MaxCompensation <= 0 {
		return fmt.Errorf("ANALYSIS_MAX_COMPENSATION must be positive")
	}
	if config.LLM.Temperature < 0 || config.LLM.Temperature > 2 {
		return fmt.Errorf("LLM_TEMPERATURE must be between 0 and 2")
	}
	if config.Server.MaxRequestsPerMinute < 1 {
		return fmt.Errorf("SERVER_MAX_REQUESTS_PER_MINUTE must be positive")
	}

	// if we are storing the db in a nested directory, create the directory
	dbDir := filepath.Dir(config.Database.Path)
	if dbDir != "." && dbDir != "" {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	return nil
}
