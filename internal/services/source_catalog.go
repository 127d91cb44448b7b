package services

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/openscout/scout-backend/internal/platform/envutil"
	"github.com/openscout/scout-backend/internal/platform/logger"
)

// SourceSpec is one searchable source in the catalog. Disabled sources
// are never offered to the classifier or the research loop.
type SourceSpec struct {
	Name        string `yaml:"name" json:"name"`
	Enabled     bool   `yaml:"enabled" json:"enabled"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

type SourceCatalog struct {
	Sources []SourceSpec `yaml:"sources" json:"sources"`
}

// EnabledNames returns enabled source names in catalog order.
func (c SourceCatalog) EnabledNames() []string {
	names := make([]string, 0, len(c.Sources))
	for _, s := range c.Sources {
		if s.Enabled {
			names = append(names, s.Name)
		}
	}
	return names
}

func defaultSourceCatalog() SourceCatalog {
	return SourceCatalog{
		Sources: []SourceSpec{
			{Name: "web", Enabled: true, Description: "Live web search"},
			{Name: "upload", Enabled: true, Description: "User-uploaded documents"},
		},
	}
}

// LoadSourceCatalog reads SOURCES_CONFIG_PATH when set and falls back to
// the built-in catalog otherwise. A missing file is a config error; an
// unset path is not.
func LoadSourceCatalog(log *logger.Logger) (SourceCatalog, error) {
	path := envutil.String("SOURCES_CONFIG_PATH", "")
	if path == "" {
		return defaultSourceCatalog(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return SourceCatalog{}, fmt.Errorf("read source catalog %s: %w", path, err)
	}
	var catalog SourceCatalog
	if err := yaml.Unmarshal(raw, &catalog); err != nil {
		return SourceCatalog{}, fmt.Errorf("parse source catalog %s: %w", path, err)
	}
	if len(catalog.Sources) == 0 {
		return SourceCatalog{}, fmt.Errorf("source catalog %s lists no sources", path)
	}
	if log != nil {
		log.Info("source catalog loaded", "path", path, "sources", len(catalog.Sources))
	}
	return catalog, nil
}
