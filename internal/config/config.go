package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v2"
)

type Config struct {
	App      AppConfig      `yaml:"app"`
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
}

type AppConfig struct {
	Name     string `yaml:"name"`
	Env      string `yaml:"env"`
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"log_level"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type ServerConfig struct {
	RateLimitRPS   float64  `yaml:"rate_limit_rps"`
	RateLimitBurst int      `yaml:"rate_limit_burst"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

func Load(path string) (*Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(file, &cfg); err != nil {
		return nil, err
	}

	if err := cfg.loadFromEnv(); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) loadFromEnv() error {
	if env := os.Getenv("APP_ENV"); env != "" {
		c.App.Env = env
	}

	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.App.Port = p
		}
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.App.LogLevel = level
	}

	if url := os.Getenv("DATABASE_URL"); url != "" {
		dbConfig, err := parseDatabaseURL(url)
		if err != nil {
			return err
		}
		c.Database = *dbConfig
	}

	return nil
}

func (c *Config) validate() error {
	if c.App.Port <= 0 || c.App.Port > 65535 {
		return fmt.Errorf("invalid port number: %d", c.App.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Name == "" {
		return fmt.Errorf("database name is required")
	}

	if c.Server.RateLimitRPS <= 0 {
		c.Server.RateLimitRPS = 50
	}
	if c.Server.RateLimitBurst <= 0 {
		c.Server.RateLimitBurst = 100
	}

	return nil
}

func parseDatabaseURL(url string) (*DatabaseConfig, error) {
	cfg := &DatabaseConfig{
		SSLMode: "disable",
	}

	url = strings.TrimPrefix(url, "postgresql://")
	url = strings.TrimPrefix(url, "postgres://")

	parts := strings.Split(url, "@")
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid database URL format")
	}

	credentials := strings.Split(parts[0], ":")
	if len(credentials) != 2 {
		return nil, fmt.Errorf("invalid credentials format")
	}
	cfg.User = credentials[0]
	cfg.Password = credentials[1]

	hostInfo := strings.Split(parts[1], "/")
	if len(hostInfo) != 2 {
		return nil, fmt.Errorf("invalid host info format")
	}

	hostPort := strings.Split(hostInfo[0], ":")
	if len(hostPort) != 2 {
		return nil, fmt.Errorf("invalid host/port format")
	}
	cfg.Host = hostPort[0]
	port, err := strconv.Atoi(hostPort[1])
	if err != nil {
		return nil, fmt.Errorf("invalid port number: %v", err)
	}
	cfg.Port = port

	dbNameOpts := strings.Split(hostInfo[1], "?")
	cfg.Name = dbNameOpts[0]

	if len(dbNameOpts) > 1 {
		for _, opt := range strings.Split(dbNameOpts[1], "&") {
			kv := strings.Split(opt, "=")
			if len(kv) == 2 && kv[0] == "sslmode" {
				cfg.SSLMode = kv[1]
			}
		}
	}

	return cfg, nil
}

func (c *Config) GetDatabaseURL() string {
	return fmt.Sprintf("postgresql://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}
