// Package config loads the server and client configuration from YAML files,
// merged over defaults, with CLOUD_* environment overrides applied last.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const defaultMaxUploadBytes = int64(1) << 30 // 1 GiB

var ErrInvalidConfig = errors.New("invalid configuration")

type Server struct {
	ListenAddr     string  `yaml:"listenAddr"`
	StorageDir     string  `yaml:"storageDir"`
	ScratchDir     string  `yaml:"scratchDir"`
	MaxUploadBytes int64   `yaml:"maxUploadBytes"`
	RateLimitRPS   float64 `yaml:"rateLimitRps"`
	RateLimitBurst int     `yaml:"rateLimitBurst"`
}

type Client struct {
	ServerURL    string `yaml:"serverUrl"`
	DownloadDir  string `yaml:"downloadDir"`
	KeystorePath string `yaml:"keystorePath"`
}

func DefaultServer() Server {
	return Server{
		ListenAddr:     "127.0.0.1:8181",
		StorageDir:     "storage",
		MaxUploadBytes: defaultMaxUploadBytes,
		RateLimitRPS:   5,
		RateLimitBurst: 10,
	}
}

func DefaultClient() Client {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return Client{
		ServerURL:    "http://127.0.0.1:8181",
		DownloadDir:  filepath.Join(home, "Downloads", "cloud"),
		KeystorePath: filepath.Join(home, ".cloud", "keystore"),
	}
}

// LoadServer reads the YAML file at path (required to exist when non-empty),
// merges it over defaults and applies environment overrides.
func LoadServer(path string) (Server, error) {
	cfg := DefaultServer()
	if path != "" {
		var parsed Server
		if err := readYAML(path, &parsed); err != nil {
			return Server{}, err
		}
		mergeServer(&cfg, parsed)
	}

	cfg.ListenAddr = envStringWithFallback("CLOUD_LISTEN_ADDR", cfg.ListenAddr)
	cfg.StorageDir = envStringWithFallback("CLOUD_STORAGE_DIR", cfg.StorageDir)
	cfg.ScratchDir = envStringWithFallback("CLOUD_SCRATCH_DIR", cfg.ScratchDir)
	cfg.MaxUploadBytes = envInt64WithFallback("CLOUD_MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)
	cfg.RateLimitRPS = envFloatWithFallback("CLOUD_RATE_LIMIT_RPS", cfg.RateLimitRPS)
	cfg.RateLimitBurst = envIntWithFallback("CLOUD_RATE_LIMIT_BURST", cfg.RateLimitBurst)

	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// LoadClient mirrors LoadServer for the client-side settings.
func LoadClient(path string) (Client, error) {
	cfg := DefaultClient()
	if path != "" {
		var parsed Client
		if err := readYAML(path, &parsed); err != nil {
			return Client{}, err
		}
		mergeClient(&cfg, parsed)
	}

	cfg.ServerURL = envStringWithFallback("CLOUD_SERVER_URL", cfg.ServerURL)
	cfg.DownloadDir = envStringWithFallback("CLOUD_DOWNLOAD_DIR", cfg.DownloadDir)
	cfg.KeystorePath = envStringWithFallback("CLOUD_KEYSTORE_PATH", cfg.KeystorePath)

	if err := cfg.Validate(); err != nil {
		return Client{}, err
	}
	return cfg, nil
}

func (c Server) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("%w: listenAddr is empty", ErrInvalidConfig)
	}
	if c.StorageDir == "" {
		return fmt.Errorf("%w: storageDir is empty", ErrInvalidConfig)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("%w: maxUploadBytes must be positive", ErrInvalidConfig)
	}
	return nil
}

// EffectiveScratchDir keeps scratch files on the same filesystem as the
// storage root by default, so the final rename stays atomic.
func (c Server) EffectiveScratchDir() string {
	if c.ScratchDir != "" {
		return c.ScratchDir
	}
	return filepath.Join(c.StorageDir, ".scratch")
}

func (c Client) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("%w: serverUrl is empty", ErrInvalidConfig)
	}
	if c.DownloadDir == "" {
		return fmt.Errorf("%w: downloadDir is empty", ErrInvalidConfig)
	}
	if c.KeystorePath == "" {
		return fmt.Errorf("%w: keystorePath is empty", ErrInvalidConfig)
	}
	return nil
}

func readYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}
	return nil
}

func mergeServer(dst *Server, src Server) {
	if src.ListenAddr != "" {
		dst.ListenAddr = src.ListenAddr
	}
	if src.StorageDir != "" {
		dst.StorageDir = src.StorageDir
	}
	if src.ScratchDir != "" {
		dst.ScratchDir = src.ScratchDir
	}
	if src.MaxUploadBytes != 0 {
		dst.MaxUploadBytes = src.MaxUploadBytes
	}
	if src.RateLimitRPS != 0 {
		dst.RateLimitRPS = src.RateLimitRPS
	}
	if src.RateLimitBurst != 0 {
		dst.RateLimitBurst = src.RateLimitBurst
	}
}

func mergeClient(dst *Client, src Client) {
	if src.ServerURL != "" {
		dst.ServerURL = src.ServerURL
	}
	if src.DownloadDir != "" {
		dst.DownloadDir = src.DownloadDir
	}
	if src.KeystorePath != "" {
		dst.KeystorePath = src.KeystorePath
	}
}

func envStringWithFallback(key, fallback string) string {
	if v := envString(key); v != "" {
		return v
	}
	return fallback
}
