package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Backend   BackendConfig   `yaml:"backend"`
	Auth      AuthConfig      `yaml:"auth"`
	Routine   string          `yaml:"routine"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// BackendConfig selects the snapshot backend. Driver is one of "redis"
// (REST bridge), "sqlite", or "postgres"; the other fields apply per driver.
type BackendConfig struct {
	Driver string `yaml:"driver"`
	URL    string `yaml:"url"`   // redis: REST base URL
	Token  string `yaml:"token"` // redis: bearer token
	Path   string `yaml:"path"`  // sqlite: database file
	DSN    string `yaml:"dsn"`   // postgres: connection string
}

// AuthConfig holds the two shared secrets. An empty value disables the
// corresponding check — useful behind tsnet where the network is the gate.
type AuthConfig struct {
	APIKey    string `yaml:"api_key"`    // ingest: Authorization bearer token
	MCPSecret string `yaml:"mcp_secret"` // mcp: ?key= query secret
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides. Env vars use the prefix VITALS_ and underscore-separated paths:
//
//	VITALS_SERVER_HOST, VITALS_SERVER_PORT,
//	VITALS_BACKEND_DRIVER, VITALS_BACKEND_URL, VITALS_BACKEND_TOKEN,
//	VITALS_BACKEND_PATH, VITALS_BACKEND_DSN,
//	VITALS_AUTH_API_KEY, VITALS_AUTH_MCP_SECRET, VITALS_ROUTINE
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("VITALS_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("VITALS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("VITALS_BACKEND_DRIVER"); v != "" {
		cfg.Backend.Driver = v
	}
	if v := os.Getenv("VITALS_BACKEND_URL"); v != "" {
		cfg.Backend.URL = v
	}
	if v := os.Getenv("VITALS_BACKEND_TOKEN"); v != "" {
		cfg.Backend.Token = v
	}
	if v := os.Getenv("VITALS_BACKEND_PATH"); v != "" {
		cfg.Backend.Path = v
	}
	if v := os.Getenv("VITALS_BACKEND_DSN"); v != "" {
		cfg.Backend.DSN = v
	}
	if v := os.Getenv("VITALS_AUTH_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}
	if v := os.Getenv("VITALS_AUTH_MCP_SECRET"); v != "" {
		cfg.Auth.MCPSecret = v
	}
	if v := os.Getenv("VITALS_ROUTINE"); v != "" {
		cfg.Routine = v
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 {
		return fmt.Errorf("server.port is required")
	}
	switch c.Backend.Driver {
	case "redis":
		if c.Backend.URL == "" {
			return fmt.Errorf("backend.url is required for the redis driver")
		}
	case "sqlite":
		if c.Backend.Path == "" {
			return fmt.Errorf("backend.path is required for the sqlite driver")
		}
	case "postgres":
		if c.Backend.DSN == "" {
			return fmt.Errorf("backend.dsn is required for the postgres driver")
		}
	case "":
		return fmt.Errorf("backend.driver is required (redis, sqlite, or postgres)")
	default:
		return fmt.Errorf("unknown backend.driver %q", c.Backend.Driver)
	}
	return nil
}

// ParseRoutine parses the weekly exercise routine string, e.g.
// "strength:4,yoga:7,cardio:2" (days per week). Malformed entries are
// silently skipped; an empty or fully malformed string yields an empty map.
func ParseRoutine(s string) map[string]int {
	routine := map[string]int{}
	if s == "" {
		return routine
	}
	for _, item := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(item, ":")
		if !ok {
			continue
		}
		days, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			continue
		}
		routine[strings.TrimSpace(k)] = days
	}
	return routine
}
