package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// DevUser: пользователь, которого devbackend заводит при старте.
type DevUser struct {
	Username string `json:"username" toml:"username"`
	Password string `json:"password" toml:"password"`
	Type     string `json:"type" toml:"type"`
}

// Quality: внешний оценщик ai_quality_checks.
type Quality struct {
	Provider    string `json:"provider" toml:"provider"` // "none" (default) | "openai" | "gemini"
	BaseURL     string `json:"baseUrl" toml:"base_url"`  // для openai-совместимых провайдеров
	APIKey      string `json:"apiKey" toml:"api_key"`
	Model       string `json:"model" toml:"model"`
	Concurrency int    `json:"concurrency" toml:"concurrency"`
}

type Config struct {
	Port           string `json:"port" toml:"port"`
	SchemaPath     string `json:"schemaPath" toml:"schema_path"` // YAML-файл или папка
	BackendURL     string `json:"backendUrl" toml:"backend_url"`
	DevPort        string `json:"devPort" toml:"dev_port"`
	LogLevel       string `json:"logLevel" toml:"log_level"`
	LogDev         bool   `json:"logDev" toml:"log_dev"`
	RequestTimeout string `json:"requestTimeout" toml:"request_timeout"`

	Quality  Quality   `json:"quality" toml:"quality"`
	DevUsers []DevUser `json:"devUsers" toml:"dev_users"`
}

func def() Config {
	return Config{
		Port:           "8080",
		SchemaPath:     "schema",
		BackendURL:     "http://localhost:8081/",
		DevPort:        "8081",
		LogLevel:       "info",
		LogDev:         false,
		RequestTimeout: "30s",

		Quality: Quality{
			Provider:    "none",
			Concurrency: 4,
		},
		DevUsers: []DevUser{{Username: "sudo", Password: "sudo", Type: "sudo"}},
	}
}

// Default: конфигурация без файла и окружения.
func Default() Config { return def() }

func loadFile(path string, c *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(b), c); err != nil {
			return err
		}
	case ".json", "":
		if err := json.Unmarshal(b, c); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	return nil
}

func getenv(k, fallback string) string {
	if v, ok := os.LookupEnv(k); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}
func getenvBool(k string, fallback bool) bool {
	if v, ok := os.LookupEnv(k); ok {
		v = strings.TrimSpace(strings.ToLower(v))
		if v == "1" || v == "true" || v == "yes" {
			return true
		}
		if v == "0" || v == "false" || v == "no" {
			return false
		}
	}
	return fallback
}
func getenvInt(k string, fallback int) int {
	if v, ok := os.LookupEnv(k); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return fallback
}

// Load: значения по умолчанию -> файл (.json или .toml, если есть) -> ENV.
// Флаги командной строки накладываются поверх в cmd/schemapanel.
func Load(path string) (Config, error) {
	cfg := def()

	if path != "" {
		st, err := os.Stat(path)
		switch {
		case err == nil && !st.IsDir():
			if err := loadFile(path, &cfg); err != nil {
				return cfg, fmt.Errorf("config %s: %w", path, err)
			}
		case err != nil && !os.IsNotExist(err):
			return cfg, err
		}
	}

	// ENV overrides
	cfg.Port = getenv("SCHEMAPANEL_PORT", cfg.Port)
	cfg.SchemaPath = getenv("SCHEMAPANEL_SCHEMA", cfg.SchemaPath)
	cfg.BackendURL = getenv("SCHEMAPANEL_BACKEND_URL", cfg.BackendURL)
	cfg.DevPort = getenv("SCHEMAPANEL_DEV_PORT", cfg.DevPort)
	cfg.LogLevel = getenv("SCHEMAPANEL_LOG_LEVEL", cfg.LogLevel)
	cfg.LogDev = getenvBool("SCHEMAPANEL_LOG_DEV", cfg.LogDev)
	cfg.RequestTimeout = getenv("SCHEMAPANEL_REQUEST_TIMEOUT", cfg.RequestTimeout)

	cfg.Quality.Provider = getenv("SCHEMAPANEL_QUALITY_PROVIDER", cfg.Quality.Provider)
	cfg.Quality.BaseURL = getenv("SCHEMAPANEL_QUALITY_BASE_URL", cfg.Quality.BaseURL)
	cfg.Quality.APIKey = getenv("SCHEMAPANEL_QUALITY_API_KEY", cfg.Quality.APIKey)
	cfg.Quality.Model = getenv("SCHEMAPANEL_QUALITY_MODEL", cfg.Quality.Model)
	cfg.Quality.Concurrency = getenvInt("SCHEMAPANEL_QUALITY_CONCURRENCY", cfg.Quality.Concurrency)

	// ключ провайдера из его стандартной переменной, если свой не задан
	if cfg.Quality.APIKey == "" {
		switch strings.ToLower(cfg.Quality.Provider) {
		case "openai":
			cfg.Quality.APIKey = os.Getenv("OPENAI_API_KEY")
		case "gemini":
			cfg.Quality.APIKey = os.Getenv("GEMINI_API_KEY")
		}
	}

	if u := getenv("SCHEMAPANEL_SUDO_USER", ""); u != "" {
		cfg.DevUsers = []DevUser{{
			Username: u,
			Password: getenv("SCHEMAPANEL_SUDO_PASSWORD", ""),
			Type:     "sudo",
		}}
	}

	return cfg, cfg.Validate()
}

// Validate ловит очевидные ошибки до старта сервисов.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Port) == "" {
		return fmt.Errorf("port is empty")
	}
	if _, err := c.Timeout(); err != nil {
		return err
	}
	switch strings.ToLower(c.Quality.Provider) {
	case "", "none", "openai", "gemini":
	default:
		return fmt.Errorf("unknown quality provider %q", c.Quality.Provider)
	}
	for i, u := range c.DevUsers {
		if strings.TrimSpace(u.Username) == "" {
			return fmt.Errorf("devUsers[%d]: username is empty", i)
		}
	}
	return nil
}

// Timeout разбирает RequestTimeout; пусто -> без таймаута.
func (c Config) Timeout() (time.Duration, error) {
	if strings.TrimSpace(c.RequestTimeout) == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.RequestTimeout)
	if err != nil {
		return 0, fmt.Errorf("requestTimeout: %w", err)
	}
	return d, nil
}
