package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config models vyomsetu.yml.
type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
		TokenTTL  string `yaml:"token_ttl"`
	} `yaml:"auth"`
	Store struct {
		Workspace    string `yaml:"workspace"`
		ReadTimeout  string `yaml:"read_timeout"`
		WriteTimeout string `yaml:"write_timeout"`
	} `yaml:"store"`
	Domains []string `yaml:"domains"`
	Mail    struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		From     string `yaml:"from"`
	} `yaml:"mail"`
	ObjectStore struct {
		Enabled   bool   `yaml:"enabled"`
		Endpoint  string `yaml:"endpoint"`
		Region    string `yaml:"region"`
		Bucket    string `yaml:"bucket"`
		AccessKey string `yaml:"access_key"`
		SecretKey string `yaml:"secret_key"`
		UploadTTL string `yaml:"upload_ttl"`
	} `yaml:"object_store"`
	Webhooks []Webhook `yaml:"webhooks"`
}

type Webhook struct {
	ID     string   `yaml:"id"`
	URL    string   `yaml:"url"`
	Secret string   `yaml:"secret"`
	Types  []string `yaml:"types"`
}

// Load reads and validates config from the workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("config.server.addr is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("config.auth.jwt_secret is required (set VYOMSETU_JWT_SECRET or auth.jwt_secret)")
	}
	if _, err := c.TokenTTL(); err != nil {
		return fmt.Errorf("config.auth.token_ttl: %w", err)
	}
	if _, err := c.ReadTimeout(); err != nil {
		return fmt.Errorf("config.store.read_timeout: %w", err)
	}
	if _, err := c.WriteTimeout(); err != nil {
		return fmt.Errorf("config.store.write_timeout: %w", err)
	}
	if len(c.Domains) == 0 {
		return fmt.Errorf("config.domains must list at least one domain")
	}
	seen := map[string]bool{}
	for _, d := range c.Domains {
		if d == "" {
			return fmt.Errorf("config.domains contains an empty domain")
		}
		if seen[d] {
			return fmt.Errorf("config.domains lists %s twice", d)
		}
		seen[d] = true
	}
	if c.Mail.Enabled {
		if c.Mail.Host == "" || c.Mail.From == "" {
			return fmt.Errorf("config.mail requires host and from when enabled")
		}
	}
	if c.ObjectStore.Enabled {
		if c.ObjectStore.Endpoint == "" || c.ObjectStore.Bucket == "" {
			return fmt.Errorf("config.object_store requires endpoint and bucket when enabled")
		}
		if _, err := c.UploadTTL(); err != nil {
			return fmt.Errorf("config.object_store.upload_ttl: %w", err)
		}
	}
	hookIDs := map[string]bool{}
	for _, h := range c.Webhooks {
		if h.ID == "" || h.URL == "" {
			return fmt.Errorf("config.webhooks entries require id and url")
		}
		if hookIDs[h.ID] {
			return fmt.Errorf("config.webhooks lists id %s twice", h.ID)
		}
		hookIDs[h.ID] = true
	}
	return nil
}

// KnownDomain reports whether d is in the configured domain catalog.
func (c *Config) KnownDomain(d string) bool {
	for _, known := range c.Domains {
		if known == d {
			return true
		}
	}
	return false
}

func (c *Config) TokenTTL() (time.Duration, error) {
	return parseDuration(c.Auth.TokenTTL, 24*time.Hour)
}

func (c *Config) ReadTimeout() (time.Duration, error) {
	return parseDuration(c.Store.ReadTimeout, 3*time.Second)
}

func (c *Config) WriteTimeout() (time.Duration, error) {
	return parseDuration(c.Store.WriteTimeout, 5*time.Second)
}

// UploadTTL defaults to 10 minutes, matching the presigned upload window.
func (c *Config) UploadTTL() (time.Duration, error) {
	return parseDuration(c.ObjectStore.UploadTTL, 600*time.Second)
}

func parseDuration(s string, fallback time.Duration) (time.Duration, error) {
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %s", s)
	}
	return d, nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "vyomsetu.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	if secret := os.Getenv("VYOMSETU_JWT_SECRET"); secret != "" {
		cfg.Auth.JWTSecret = secret
	}
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes. Secrets may be
// supplied through the environment instead of the file.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if secret := os.Getenv("VYOMSETU_JWT_SECRET"); secret != "" {
		cfg.Auth.JWTSecret = secret
	}
	if pw := os.Getenv("VYOMSETU_MAIL_PASSWORD"); pw != "" {
		cfg.Mail.Password = pw
	}
	if sk := os.Getenv("VYOMSETU_OBJECT_STORE_SECRET_KEY"); sk != "" {
		cfg.ObjectStore.SecretKey = sk
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `server:
  addr: :8080

auth:
  jwt_secret: ""
  token_ttl: 24h

store:
  workspace: .
  read_timeout: 3s
  write_timeout: 5s

domains:
  - web-development
  - app-development
  - social-media
  - design
  - content

mail:
  enabled: false
  host: smtp.gmail.com
  port: 587
  username: ""
  password: ""
  from: vyomsetu@example.org

object_store:
  enabled: false
  endpoint: ""
  region: auto
  bucket: vyomsetu-uploads
  access_key: ""
  secret_key: ""
  upload_ttl: 10m

webhooks: []
`
