package config

import (
	"strings"
)

func applyRawAppConfig(cfg *AppConfig, raw rawAppConfig) {
	if raw.Port != 0 {
		cfg.Port = raw.Port
	}
	if v := strings.TrimSpace(raw.Env); v != "" {
		cfg.Env = v
	}
	cfg.Database = applyRawDatabaseConfig(cfg.Database, raw)
	cfg.Redis = applyRawRedisConfig(cfg.Redis, raw)
	cfg.Storage = applyRawStorageConfig(cfg.Storage, raw.Storage)

	if v := strings.TrimSpace(raw.Paths.Logs); v != "" {
		cfg.Paths.Logs = v
	}
	if v := strings.TrimSpace(raw.LogDir); v != "" {
		cfg.Paths.Logs = v
	}

	switch {
	case raw.AllowedOrigins != nil:
		cfg.AllowedOrigins = normalizeOrigins(raw.AllowedOrigins)
	case raw.CORSOrigins != nil:
		cfg.AllowedOrigins = normalizeOrigins(raw.CORSOrigins)
	}
	if v := strings.TrimSpace(raw.JWTSecret); v != "" {
		cfg.JWTSecret = v
	}
	if raw.TemplateMaxSizeMB != 0 {
		cfg.TemplateMaxSizeMB = raw.TemplateMaxSizeMB
	}
	if v := strings.TrimSpace(raw.Timezone); v != "" {
		cfg.Timezone = v
	}
	if v := strings.TrimSpace(raw.TZ); v != "" {
		cfg.Timezone = v
	}

	cfg.Env = normalizeEnv(cfg.Env)
	cfg.DSN = cfg.Database.DSNValue()
	cfg.RedisURL = cfg.Redis.URLValue()
}

func applyRawDatabaseConfig(current DatabaseRuntimeConfig, raw rawAppConfig) DatabaseRuntimeConfig {
	cfg := current
	in := raw.Database

	if v := strings.ToLower(strings.TrimSpace(in.Driver)); v != "" {
		cfg.Driver = v
	}
	if v := strings.TrimSpace(in.DSN); v != "" {
		cfg.DSN = v
	}
	if v := strings.TrimSpace(raw.DSN); v != "" {
		cfg.DSN = v
	}
	if v := strings.TrimSpace(raw.DatabaseURL); v != "" {
		cfg.DSN = v
	}
	if v := strings.TrimSpace(in.Host); v != "" {
		cfg.Host = v
	}
	if in.Port != 0 {
		cfg.Port = in.Port
	}
	if v := strings.TrimSpace(in.User); v != "" {
		cfg.User = v
	}
	if v := strings.TrimSpace(in.Password); v != "" {
		cfg.Password = v
	}
	if v := strings.TrimSpace(in.Name); v != "" {
		cfg.Name = v
	}
	if v := strings.TrimSpace(in.Charset); v != "" {
		cfg.Charset = v
	}
	if v := strings.TrimSpace(in.Loc); v != "" {
		cfg.Loc = v
	}
	if v := strings.TrimSpace(in.Path); v != "" {
		cfg.Path = v
	}
	if in.Params != nil {
		cfg.Params = copyStringMap(in.Params)
	}
	return cfg
}

func applyRawRedisConfig(current RedisRuntimeConfig, raw rawAppConfig) RedisRuntimeConfig {
	cfg := current
	in := raw.Redis

	if v := strings.TrimSpace(in.URL); v != "" {
		cfg.URL = v
	}
	if v := strings.TrimSpace(raw.RedisURL); v != "" {
		cfg.URL = v
	}
	if v := strings.TrimSpace(in.Host); v != "" {
		cfg.Host = v
	}
	if in.Port != 0 {
		cfg.Port = in.Port
	}
	if v := strings.TrimSpace(in.Username); v != "" {
		cfg.Username = v
	}
	if v := strings.TrimSpace(in.Password); v != "" {
		cfg.Password = v
	}
	if in.DB != 0 {
		cfg.DB = in.DB
	}
	if in.TLS {
		cfg.TLS = true
	}
	if in.SessionTTLHours > 0 {
		cfg.SessionTTLHours = in.SessionTTLHours
	}
	cfg.URL = normalizeRedisRawURL(cfg.URL)
	return cfg
}

func applyRawStorageConfig(current StorageConfig, in StorageConfig) StorageConfig {
	cfg := current

	if v := strings.ToLower(strings.TrimSpace(in.Driver)); v != "" {
		cfg.Driver = v
	}
	if v := strings.TrimSpace(in.TemplateBucket); v != "" {
		cfg.TemplateBucket = v
	}
	if v := strings.TrimSpace(in.PublicBaseURL); v != "" {
		cfg.PublicBaseURL = strings.TrimRight(v, "/")
	}
	if v := strings.TrimSpace(in.LocalDir); v != "" {
		cfg.LocalDir = v
	}

	s3 := in.S3
	if v := strings.TrimSpace(s3.Endpoint); v != "" {
		if !strings.HasPrefix(v, "http://") && !strings.HasPrefix(v, "https://") {
			v = "https://" + v
		}
		cfg.S3.Endpoint = strings.TrimRight(v, "/")
		// Custom endpoints (MinIO, R2) are addressed path-style.
		cfg.S3.PathStyle = true
	}
	if v := strings.TrimSpace(s3.Region); v != "" {
		cfg.S3.Region = v
	}
	if v := strings.TrimSpace(s3.AccessKeyID); v != "" {
		cfg.S3.AccessKeyID = v
	}
	if v := strings.TrimSpace(s3.SecretAccessKey); v != "" {
		cfg.S3.SecretAccessKey = v
	}
	if s3.PathStyle {
		cfg.S3.PathStyle = true
	}
	if v := strings.TrimSpace(s3.CustomDomain); v != "" {
		cfg.S3.CustomDomain = strings.TrimRight(v, "/")
	}
	return cfg
}

func normalizeRedisRawURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "redis://") || strings.HasPrefix(trimmed, "rediss://") {
		return trimmed
	}
	return "redis://" + trimmed
}

func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if v := strings.TrimRight(strings.TrimSpace(o), "/"); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func normalizeEnv(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "prod", envProduction:
		return envProduction
	case envTest:
		return envTest
	default:
		return envDevelopment
	}
}

func copyStringMap(input map[string]string) map[string]string {
	if input == nil {
		return nil
	}
	out := make(map[string]string, len(input))
	for key, value := range input {
		k := strings.TrimSpace(key)
		v := strings.TrimSpace(value)
		if k != "" && v != "" {
			out[k] = v
		}
	}
	return out
}
