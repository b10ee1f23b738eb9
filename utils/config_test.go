package utils

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testEnvPath = "./test.env"

func cleanup() {
	os.Remove(testEnvPath)
}

// TestMain handles test setup and cleanup for all tests in this package
func TestMain(m *testing.M) {
	exitCode := m.Run()

	cleanup()

	os.Exit(exitCode)
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func validConfig(t *testing.T) *Config {
	return &Config{
		HackerNews: HackerNewsConfig{
			BaseURL:        "https://hacker-news.firebaseio.com/v0",
			Accounts:       []string{"whoishiring"},
			TimeoutSeconds: 60,
			MaxInFlight:    32,
			Classifier:     "title",
		},
		Output:   OutputConfig{Dir: "output"},
		Database: DatabaseConfig{Path: filepath.Join(t.TempDir(), "data", "test.db")},
		LLM:      LLMConfig{Temperature: 0.1},
		Analysis: AnalysisConfig{MinMonthlyPostings: 10, MaxCompensation: 1000},
		Server:   ServerConfig{Port: 8080, MaxRequestsPerMinute: 100},
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("TEST_ENV_VAR", "test-value")

	value := getEnv("TEST_ENV_VAR", "default-value")
	assert.Equal(t, "test-value", value)

	value = getEnv("NON_EXISTENT_VAR", "default-value")
	assert.Equal(t, "default-value", value)
}

func TestGetEnvAsInt(t *testing.T) {
	t.Setenv("TEST_INT_VAR", "42")
	t.Setenv("TEST_INVALID_INT_VAR", "not-an-int")
	t.Setenv("TEST_NEGATIVE_INT_VAR", "-1")

	assert.Equal(t, 42, getEnvAsInt("TEST_INT_VAR", 10))
	assert.Equal(t, 10, getEnvAsInt("TEST_INVALID_INT_VAR", 10))
	assert.Equal(t, -1, getEnvAsInt("TEST_NEGATIVE_INT_VAR", 10))
	assert.Equal(t, 10, getEnvAsInt("NON_EXISTENT_VAR", 10))
}

func TestGetEnvAsFloat(t *testing.T) {
	t.Setenv("TEST_FLOAT_VAR", "2.5")
	t.Setenv("TEST_INVALID_FLOAT_VAR", "fast")

	assert.Equal(t, 2.5, getEnvAsFloat("TEST_FLOAT_VAR", 1))
	assert.Equal(t, 1.0, getEnvAsFloat("TEST_INVALID_FLOAT_VAR", 1))
	assert.Equal(t, 1.0, getEnvAsFloat("NON_EXISTENT_VAR", 1))
}

func TestValidateConfig(t *testing.T) {
	config := validConfig(t)
	assert.NoError(t, validateConfig(config))
	assert.DirExists(t, filepath.Dir(config.Database.Path))

	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{name: "No accounts", mutate: func(c *Config) { c.HackerNews.Accounts = nil }, field: "HN_ACCOUNTS"},
		{name: "Zero timeout", mutate: func(c *Config) { c.HackerNews.TimeoutSeconds = 0 }, field: "HN_TIMEOUT_SECONDS"},
		{name: "Negative rate", mutate: func(c *Config) { c.HackerNews.RequestsPerSecond = -1 }, field: "HN_REQUESTS_PER_SECOND"},
		{name: "Unknown classifier", mutate: func(c *Config) { c.HackerNews.Classifier = "regex" }, field: "HN_THREAD_CLASSIFIER"},
		{name: "Empty output dir", mutate: func(c *Config) { c.Output.Dir = "" }, field: "OUTPUT_DIR"},
		{name: "Zero compensation cap", mutate: func(c *Config) { c.Analysis.MaxCompensation = 0 }, field: "ANALYSIS_MAX_COMPENSATION"},
		{name: "Hot temperature", mutate: func(c *Config) { c.LLM.Temperature = 3 }, field: "LLM_TEMPERATURE"},
		{name: "No server rate", mutate: func(c *Config) { c.Server.MaxRequestsPerMinute = 0 }, field: "SERVER_MAX_REQUESTS_PER_MINUTE"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			config := validConfig(t)
			tc.mutate(config)

			err := validateConfig(config)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.field)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "hn.db")
	content := "HN_ACCOUNTS=whoishiring, someone_else\n" +
		"HN_MAX_IN_FLIGHT=0\n" +
		"HN_THREAD_CLASSIFIER=substring\n" +
		"LLM_WORKERS=4\n" +
		"ANALYSIS_MAX_COMPENSATION=500\n" +
		"DATABASE_PATH=" + dbPath + "\n"
	require.NoError(t, os.WriteFile(testEnvPath, []byte(content), 0644))

	keys := []string{"HN_ACCOUNTS", "HN_MAX_IN_FLIGHT", "HN_THREAD_CLASSIFIER", "LLM_WORKERS", "ANALYSIS_MAX_COMPENSATION", "DATABASE_PATH"}
	for _, key := range keys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	config, err := LoadConfig(testEnvPath, testLogger())
	require.NoError(t, err)

	assert.Equal(t, []string{"whoishiring", "someone_else"}, config.HackerNews.Accounts)
	assert.Equal(t, 0, config.HackerNews.MaxInFlight)
	assert.Equal(t, "substring", config.HackerNews.Classifier)
	assert.Equal(t, 60, config.HackerNews.TimeoutSeconds)
	assert.Equal(t, 4, config.LLM.Workers)
	assert.Equal(t, 500.0, config.Analysis.MaxCompensation)
	assert.Equal(t, 10, config.Analysis.MinMonthlyPostings)
	assert.Equal(t, dbPath, config.Database.Path)
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Setenv("DATABASE_PATH", filepath.Join(t.TempDir(), "hn.db"))

	config, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"), testLogger())
	require.NoError(t, err)
	assert.Equal(t, []string{"whoishiring"}, config.HackerNews.Accounts)
	assert.Equal(t, "gemini-2.5-flash", config.LLM.Model)
	assert.Equal(t, filepath.Join("output", "HN_case_study_expanded.csv"), config.Analysis.CSVPath)
}

func TestParseList(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "Single account",
			input:    "whoishiring",
			expected: []string{"whoishiring"},
		},
		{
			name:     "Multiple accounts",
			input:    "whoishiring,dang,pg",
			expected: []string{"whoishiring", "dang", "pg"},
		},
		{
			name:     "Whitespace",
			input:    "  whoishiring ,\tdang\n, pg ",
			expected: []string{"whoishiring", "dang", "pg"},
		},
		{
			name:     "Extra commas",
			input:    ",whoishiring,,dang,",
			expected: []string{"whoishiring", "dang"},
		},
		{
			name:     "Empty",
			input:    "",
			expected: []string{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, parseList(tc.input))
		})
	}
}
