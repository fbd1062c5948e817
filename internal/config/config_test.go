package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Port != 2333 || cfg.Env != envDevelopment || !cfg.IsDev() {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.TemplateMaxSizeMB != 5 || cfg.TemplateMaxBytes() != 5*1024*1024 {
		t.Fatalf("template limit default should be 5MiB, got %d", cfg.TemplateMaxSizeMB)
	}
	if cfg.Storage.Driver != StorageLocal || cfg.Storage.TemplateBucket != "invoice-templates" {
		t.Fatalf("unexpected storage defaults %+v", cfg.Storage)
	}
	want := "root:password@tcp(127.0.0.1:3306)/formvoice?charset=utf8mb4&loc=Local&parseTime=true"
	if cfg.DSN != want {
		t.Fatalf("expected dsn %q, got %q", want, cfg.DSN)
	}
	if cfg.RedisURL != "redis://localhost:6379/0" {
		t.Fatalf("unexpected redis url %q", cfg.RedisURL)
	}
}

func TestParseOverrides(t *testing.T) {
	cfg, err := Parse([]byte(`
port: 8080
env: prod
redis_url: cache:6380/2
database:
  driver: sqlite
  path: ":memory:"
storage:
  driver: s3
  template_bucket: templates
  s3:
    endpoint: minio.local:9000
    access_key_id: ak
    secret_access_key: sk
allowed_origins: ["https://app.example.com/", " "]
template_max_size_mb: 2
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Port != 8080 || cfg.Env != envProduction || cfg.IsDev() {
		t.Fatalf("unexpected base config %+v", cfg)
	}
	if cfg.DSN != ":memory:" || cfg.Database.Driver != DriverSQLite {
		t.Fatalf("unexpected database %q %q", cfg.Database.Driver, cfg.DSN)
	}
	if cfg.RedisURL != "redis://cache:6380/2" {
		t.Fatalf("unexpected redis url %q", cfg.RedisURL)
	}
	if cfg.Storage.S3.Endpoint != "https://minio.local:9000" || !cfg.Storage.S3.PathStyle {
		t.Fatalf("custom endpoint should be normalized and path-style: %+v", cfg.Storage.S3)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "https://app.example.com" {
		t.Fatalf("unexpected origins %v", cfg.AllowedOrigins)
	}
	if cfg.TemplateMaxBytes() != 2*1024*1024 {
		t.Fatalf("unexpected template limit %d", cfg.TemplateMaxBytes())
	}
}

func TestParseRejectsUnknownAndInvalid(t *testing.T) {
	cases := map[string]string{
		"unknown key":     "colour: blue\n",
		"bad port":        "port: 70000\n",
		"bad driver":      "database:\n  driver: oracle\n",
		"s3 without keys": "storage:\n  driver: s3\n",
	}
	for name, doc := range cases {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoadReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(path, []byte("port: 9000\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil || cfg.Port != 9000 {
		t.Fatalf("load: %v %+v", err, cfg)
	}

	_, err = Load(filepath.Join(dir, "missing.yml"))
	if err == nil || !strings.Contains(err.Error(), "missing.yml") {
		t.Fatalf("expected read error naming the file, got %v", err)
	}
}
