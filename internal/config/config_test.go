package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config failed: %v", err)
	}
	return path
}

func TestLoadServerDefaults(t *testing.T) {
	cfg, err := LoadServer("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.ListenAddr == "" || cfg.StorageDir == "" || cfg.MaxUploadBytes <= 0 {
		t.Fatalf("defaults are incomplete: %+v", cfg)
	}
	if cfg.EffectiveScratchDir() != filepath.Join(cfg.StorageDir, ".scratch") {
		t.Fatalf("default scratch dir should live under the storage root, got %q", cfg.EffectiveScratchDir())
	}
}

func TestLoadServerMergesFileOverDefaults(t *testing.T) {
	path := writeFile(t, "listenAddr: 0.0.0.0:9000\nstorageDir: /srv/cloud\nmaxUploadBytes: 1024\n")
	cfg, err := LoadServer(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.ListenAddr != "0.0.0.0:9000" {
		t.Fatalf("listenAddr not merged: %q", cfg.ListenAddr)
	}
	if cfg.StorageDir != "/srv/cloud" {
		t.Fatalf("storageDir not merged: %q", cfg.StorageDir)
	}
	if cfg.MaxUploadBytes != 1024 {
		t.Fatalf("maxUploadBytes not merged: %d", cfg.MaxUploadBytes)
	}
	if cfg.RateLimitRPS != DefaultServer().RateLimitRPS {
		t.Fatal("unset fields must keep defaults")
	}
}

func TestLoadServerEnvOverridesWin(t *testing.T) {
	path := writeFile(t, "listenAddr: 0.0.0.0:9000\n")
	t.Setenv("CLOUD_LISTEN_ADDR", "127.0.0.1:7777")
	t.Setenv("CLOUD_MAX_UPLOAD_BYTES", "2048")
	cfg, err := LoadServer(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.ListenAddr != "127.0.0.1:7777" {
		t.Fatalf("env override lost: %q", cfg.ListenAddr)
	}
	if cfg.MaxUploadBytes != 2048 {
		t.Fatalf("env override lost: %d", cfg.MaxUploadBytes)
	}
}

func TestLoadServerErrors(t *testing.T) {
	if _, err := LoadServer(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("explicit missing config path must fail")
	}
	broken := writeFile(t, "listenAddr: [not\n")
	if _, err := LoadServer(broken); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	negative := writeFile(t, "maxUploadBytes: -5\n")
	if _, err := LoadServer(negative); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for negative size, got %v", err)
	}
}

func TestLoadClient(t *testing.T) {
	path := writeFile(t, "serverUrl: http://example.com:8181\ndownloadDir: /tmp/dl\nkeystorePath: /tmp/ks\n")
	cfg, err := LoadClient(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.ServerURL != "http://example.com:8181" || cfg.DownloadDir != "/tmp/dl" || cfg.KeystorePath != "/tmp/ks" {
		t.Fatalf("client config not merged: %+v", cfg)
	}

	t.Setenv("CLOUD_SERVER_URL", "http://other:1234")
	cfg, err = LoadClient(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.ServerURL != "http://other:1234" {
		t.Fatalf("env override lost: %q", cfg.ServerURL)
	}
}
