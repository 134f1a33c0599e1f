package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sprjihoon/pdf01/internal/matcher"
	"github.com/sprjihoon/pdf01/internal/printer"
	"github.com/sprjihoon/pdf01/internal/scan"
	"github.com/sprjihoon/pdf01/internal/storage"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration values.
type Config struct {
	Match   MatchConfig   `yaml:"match"`
	Search  SearchConfig  `yaml:"search"`
	Print   PrintConfig   `yaml:"print"`
	Storage StorageConfig `yaml:"storage"`
	History HistoryConfig `yaml:"history"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
	Server  ServerConfig  `yaml:"server"`
}

type MatchConfig struct {
	Fuzzy     bool    `yaml:"fuzzy"`
	Threshold float64 `yaml:"threshold"`
	// IdentifierPattern is an extra regular expression for identifiers the
	// built-in patterns miss, e.g. `\b\d{13}\b`.
	IdentifierPattern string `yaml:"identifier_pattern"`
	Label             bool   `yaml:"label"`
	LabelPoints       int    `yaml:"label_points"`
	OutputDir         string `yaml:"output_dir"`
}

type SearchConfig struct {
	Folder    string `yaml:"folder"`
	Recursive bool   `yaml:"recursive"`
	Workers   int    `yaml:"workers"`
}

type PrintConfig struct {
	Printer string        `yaml:"printer"`
	Copies  int           `yaml:"copies"`
	Duplex  bool          `yaml:"duplex"`
	Command string        `yaml:"command"`
	Timeout time.Duration `yaml:"timeout"`
}

type StorageConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
	// Prefix is prepended to object keys of uploaded outputs.
	Prefix string `yaml:"prefix"`
	// LinkExpiry is the lifetime of download links handed out for uploads.
	LinkExpiry time.Duration `yaml:"link_expiry"`
}

type HistoryConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	File     string     `yaml:"file"`
	LevelStr string     `yaml:"level"`
	Level    slog.Level `yaml:"-"`
}

type MetricsConfig struct {
	// Textfile receives a prometheus text dump after each CLI run when set.
	Textfile string `yaml:"textfile"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

// Default returns the built-in configuration.
func Default() Config {
	home := homeDir()
	return Config{
		Match: MatchConfig{
			Threshold:   matcher.DefaultThreshold,
			LabelPoints: 5,
			OutputDir:   ".",
		},
		Search: SearchConfig{
			Folder:  ".",
			Workers: scan.DefaultWorkers,
		},
		Print: PrintConfig{
			Copies:  1,
			Command: printer.DefaultTemplate,
			Timeout: printer.DefaultTimeout,
		},
		Storage: StorageConfig{
			Bucket:     "pdfmatch",
			Prefix:     "runs",
			LinkExpiry: 24 * time.Hour,
		},
		History: HistoryConfig{Path: filepath.Join(home, ".pdfmatch", "history.db")},
		Log: LogConfig{
			File:     filepath.Join(os.TempDir(), "pdfmatch.log"),
			LevelStr: "INFO",
			Level:    slog.LevelInfo,
		},
		Server: ServerConfig{Port: "8080"},
	}
}

// Load reads defaults, then the YAML file, then environment variables.
// A missing config file is not an error.
func Load() (Config, error) {
	cfg := Default()

	path := getEnv("PDFMATCH_CONFIG", filepath.Join(homeDir(), ".pdfmatch", "config.yaml"))
	if err := cfg.loadFile(path); err != nil {
		return Config{}, err
	}
	cfg.applyEnv()
	cfg.Log.Level = parseLogLevel(cfg.Log.LevelStr)

	if cfg.Match.Threshold < 0 || cfg.Match.Threshold > 100 {
		return Config{}, fmt.Errorf("match threshold %v out of range 0-100", cfg.Match.Threshold)
	}
	if cfg.Search.Workers < 1 {
		cfg.Search.Workers = scan.DefaultWorkers
	}
	if cfg.Print.Copies < 1 {
		cfg.Print.Copies = 1
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Match.Fuzzy = getEnvBool("PDFMATCH_FUZZY", c.Match.Fuzzy)
	c.Match.Threshold = getEnvFloat("PDFMATCH_THRESHOLD", c.Match.Threshold)
	c.Match.IdentifierPattern = getEnv("PDFMATCH_IDENTIFIER_PATTERN", c.Match.IdentifierPattern)
	c.Match.Label = getEnvBool("PDFMATCH_LABEL", c.Match.Label)
	c.Match.OutputDir = getEnv("PDFMATCH_OUTPUT_DIR", c.Match.OutputDir)

	c.Search.Folder = getEnv("PDFMATCH_FOLDER", c.Search.Folder)
	c.Search.Recursive = getEnvBool("PDFMATCH_RECURSIVE", c.Search.Recursive)
	c.Search.Workers = getEnvInt("PDFMATCH_WORKERS", c.Search.Workers)

	c.Print.Printer = getEnv("PDFMATCH_PRINTER", c.Print.Printer)
	c.Print.Copies = getEnvInt("PDFMATCH_COPIES", c.Print.Copies)
	c.Print.Duplex = getEnvBool("PDFMATCH_DUPLEX", c.Print.Duplex)
	c.Print.Command = getEnv("PDFMATCH_PRINT_COMMAND", c.Print.Command)

	c.Storage.Endpoint = getEnv("PDFMATCH_S3_ENDPOINT", c.Storage.Endpoint)
	c.Storage.AccessKey = getEnv("PDFMATCH_S3_ACCESS_KEY", c.Storage.AccessKey)
	c.Storage.SecretKey = getEnv("PDFMATCH_S3_SECRET_KEY", c.Storage.SecretKey)
	c.Storage.Bucket = getEnv("PDFMATCH_S3_BUCKET", c.Storage.Bucket)
	c.Storage.UseSSL = getEnvBool("PDFMATCH_S3_USE_SSL", c.Storage.UseSSL)

	c.History.Path = getEnv("PDFMATCH_HISTORY_DB", c.History.Path)

	c.Log.File = getEnv("PDFMATCH_LOG_FILE", c.Log.File)
	c.Log.LevelStr = getEnv("PDFMATCH_LOG_LEVEL", c.Log.LevelStr)

	c.Metrics.Textfile = getEnv("PDFMATCH_METRICS_TEXTFILE", c.Metrics.Textfile)
	c.Server.Port = getEnv("PDFMATCH_PORT", c.Server.Port)
}

// StorageSettings converts the storage section for storage.NewMinIO.
func (c Config) StorageSettings() storage.Config {
	return storage.Config{
		Endpoint:  c.Storage.Endpoint,
		AccessKey: c.Storage.AccessKey,
		SecretKey: c.Storage.SecretKey,
		Bucket:    c.Storage.Bucket,
		UseSSL:    c.Storage.UseSSL,
	}
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
