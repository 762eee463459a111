package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

const (
	appName       = "crypto-ai"
	defaultDBName = "crypto-ai.db"
	envPrefix     = "CRYPTO_AI_"
)

// Config is the application configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Storage   StorageConfig   `toml:"storage"`
	CoinGecko CoinGeckoConfig `toml:"coingecko"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	Logging   LoggingConfig   `toml:"logging"`
}

type ServerConfig struct {
	Host        string   `toml:"host"`
	Port        int      `toml:"port"`
	WebDir      string   `toml:"web_dir"`
	CORSOrigins []string `toml:"cors_origins"`
}

type StorageConfig struct {
	DataDir string `toml:"data_dir"`
	DBName  string `toml:"db_name"`
	DBPath  string `toml:"db_path"` // overrides DataDir/DBName when set
}

type CoinGeckoConfig struct {
	BaseURL            string `toml:"base_url"`
	APIKey             string `toml:"api_key"`
	CacheTTLSeconds    int    `toml:"cache_ttl_seconds"`
	HTTPTimeoutSeconds int    `toml:"http_timeout_seconds"`
	FailThreshold      int    `toml:"fail_threshold"`
	FailWindowSeconds  int    `toml:"fail_window_seconds"`
	CooldownSeconds    int    `toml:"cooldown_seconds"`
}

// SchedulerConfig holds cron specs. An empty spec disables the job.
type SchedulerConfig struct {
	SnapshotSchedule string `toml:"snapshot_schedule"`
}

type LoggingConfig struct {
	Level         string `toml:"level"`
	Format        string `toml:"format"`
	Dir           string `toml:"dir"`
	RetentionDays int    `toml:"retention_days"`
}

// NewDefaultConfig returns the built-in defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "127.0.0.1",
			Port:        8000,
			CORSOrigins: []string{"*"},
		},
		Storage: StorageConfig{DBName: defaultDBName},
		CoinGecko: CoinGeckoConfig{
			BaseURL:            "https://api.coingecko.com/api/v3",
			CacheTTLSeconds:    30,
			HTTPTimeoutSeconds: 10,
			FailThreshold:      3,
			FailWindowSeconds:  60,
			CooldownSeconds:    120,
		},
		Scheduler: SchedulerConfig{SnapshotSchedule: "@daily"},
		Logging: LoggingConfig{
			Level:         "info",
			Format:        "text",
			RetentionDays: 7,
		},
	}
}

// Load builds the configuration with priority:
// defaults -> files (later files win) -> .env -> environment.
func Load(paths ...string) (*Config, error) {
	cfg := NewDefaultConfig()
	for i, path := range paths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}
	// .env never overrides variables already set in the environment.
	_ = godotenv.Load()
	applyEnvOverrides(cfg)
	return cfg, nil
}

// LoadDefault loads the per-user config file when it exists.
func LoadDefault() (*Config, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return Load()
	}
	if _, err := os.Stat(path); err != nil {
		return Load()
	}
	return Load(path)
}

// Save writes cfg as TOML to path.
func Save(cfg *Config, path string) error {
	if path == "" {
		return errors.New("config path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func applyEnvOverrides(cfg *Config) {
	if v := getEnv("HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := getEnv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}
	if v := getEnv("WEB_DIR"); v != "" {
		cfg.Server.WebDir = v
	}
	if v := getEnv("CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = splitList(v)
	}
	if v := getEnv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := getEnv("DB_PATH"); v != "" {
		cfg.Storage.DBPath = v
	}
	if v := getEnv("COINGECKO_URL"); v != "" {
		cfg.CoinGecko.BaseURL = v
	}
	if v := os.Getenv("COINGECKO_API_KEY"); v != "" {
		cfg.CoinGecko.APIKey = v
	}
	if v, ok := os.LookupEnv(envPrefix + "SNAPSHOT_SCHEDULE"); ok {
		cfg.Scheduler.SnapshotSchedule = strings.TrimSpace(v)
	}
	if v := getEnv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := getEnv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := getEnv("LOG_DIR"); v != "" {
		cfg.Logging.Dir = v
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config.
func ApplyFlagOverrides(cfg *Config, host string, port int, dataDir, webDir string) {
	if host != "" {
		cfg.Server.Host = host
	}
	if port > 0 {
		cfg.Server.Port = port
	}
	if dataDir != "" {
		cfg.Storage.DataDir = dataDir
	}
	if webDir != "" {
		cfg.Server.WebDir = webDir
	}
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// DataDir returns the directory holding the database and logs, creating it.
func (c *Config) DataDir() (string, error) {
	dir := c.Storage.DataDir
	if dir == "" {
		defaultDir, err := appConfigDir()
		if err != nil {
			return "", err
		}
		dir = defaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// DBPath returns the SQLite database location.
func (c *Config) DBPath() (string, error) {
	if c.Storage.DBPath != "" {
		return c.Storage.DBPath, nil
	}
	dataDir, err := c.DataDir()
	if err != nil {
		return "", err
	}
	name := strings.TrimSpace(c.Storage.DBName)
	if name == "" {
		name = defaultDBName
	}
	return filepath.Join(dataDir, name), nil
}

// LogDir returns the log directory, defaulting to <data dir>/logs.
func (c *Config) LogDir() (string, error) {
	if c.Logging.Dir != "" {
		return c.Logging.Dir, nil
	}
	dataDir, err := c.DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "logs"), nil
}

func (c CoinGeckoConfig) CacheTTL() time.Duration {
	return seconds(c.CacheTTLSeconds)
}

func (c CoinGeckoConfig) HTTPTimeout() time.Duration {
	return seconds(c.HTTPTimeoutSeconds)
}

func (c CoinGeckoConfig) FailWindow() time.Duration {
	return seconds(c.FailWindowSeconds)
}

func (c CoinGeckoConfig) Cooldown() time.Duration {
	return seconds(c.CooldownSeconds)
}

func IsMacOS() bool {
	return runtime.GOOS == "darwin"
}

func IsWindows() bool {
	return runtime.GOOS == "windows"
}

// DefaultConfigPath is the per-user config.toml location.
func DefaultConfigPath() (string, error) {
	dir, err := appConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

func appConfigDir() (string, error) {
	if IsMacOS() {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", "CryptoAI"), nil
	}
	if IsWindows() {
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = home
		}
		return filepath.Join(appData, "CryptoAI"), nil
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", appName), nil
	}
	return filepath.Join(configDir, appName), nil
}

func getEnv(name string) string {
	return strings.TrimSpace(os.Getenv(envPrefix + name))
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}
