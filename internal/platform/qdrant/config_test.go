package qdrant

import (
	"errors"
	"testing"
)

func configCode(t *testing.T, err error) ConfigErrorCode {
	t.Helper()
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigError, got %T: %v", err, err)
	}
	return cfgErr.Code
}

func TestValidateConfig(t *testing.T) {
	valid := Config{
		URL:        "http://qdrant:6333",
		Collection: "chunks",
		VectorDim:  1536,
	}
	if err := ValidateConfig(valid, true); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(Config) Config
		hasDim bool
		code   ConfigErrorCode
	}{
		{"missing url", func(c Config) Config { c.URL = ""; return c }, true, ConfigErrorMissingURL},
		{"relative url", func(c Config) Config { c.URL = "qdrant:6333"; return c }, true, ConfigErrorInvalidURL},
		{"scheme only", func(c Config) Config { c.URL = "http://"; return c }, true, ConfigErrorInvalidURL},
		{"missing collection", func(c Config) Config { c.Collection = " "; return c }, true, ConfigErrorMissingCollection},
		{"dim unset", func(c Config) Config { c.VectorDim = 0; return c }, false, ConfigErrorMissingVectorDim},
		{"dim zero but set", func(c Config) Config { c.VectorDim = 0; return c }, true, ConfigErrorInvalidVectorDim},
		{"dim negative", func(c Config) Config { c.VectorDim = -3; return c }, true, ConfigErrorInvalidVectorDim},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateConfig(tc.mutate(valid), tc.hasDim)
			if err == nil {
				t.Fatalf("expected error")
			}
			if got := configCode(t, err); got != tc.code {
				t.Fatalf("code: want=%s got=%s", tc.code, got)
			}
		})
	}
}

func TestResolveConfigFromEnv(t *testing.T) {
	t.Setenv("QDRANT_URL", "http://qdrant:6333")
	t.Setenv("QDRANT_COLLECTION", "chunks")
	t.Setenv("QDRANT_VECTOR_DIM", "1536")
	t.Setenv("QDRANT_NAMESPACE_PREFIX", "")

	cfg, err := ResolveConfigFromEnv()
	if err != nil {
		t.Fatalf("ResolveConfigFromEnv: %v", err)
	}
	if cfg.VectorDim != 1536 {
		t.Fatalf("vector dim: want=1536 got=%d", cfg.VectorDim)
	}
	if cfg.NamespacePrefix != "scout" {
		t.Fatalf("namespace prefix must default to scout, got %q", cfg.NamespacePrefix)
	}
}

func TestResolveConfigFromEnvBadDim(t *testing.T) {
	t.Setenv("QDRANT_URL", "http://qdrant:6333")
	t.Setenv("QDRANT_COLLECTION", "chunks")
	t.Setenv("QDRANT_VECTOR_DIM", "lots")

	_, err := ResolveConfigFromEnv()
	if err == nil {
		t.Fatalf("expected error")
	}
	if got := configCode(t, err); got != ConfigErrorInvalidVectorDim {
		t.Fatalf("code: want=%s got=%s", ConfigErrorInvalidVectorDim, got)
	}
}
