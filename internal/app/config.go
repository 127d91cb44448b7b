package app

import (
	"github.com/openscout/scout-backend/internal/platform/envutil"
	"github.com/openscout/scout-backend/internal/platform/logger"
	"github.com/openscout/scout-backend/internal/services"
)

type Config struct {
	Port        string
	MetricsAddr string
	Environment string
	Version     string

	Sources services.SourceCatalog
}

func LoadConfig(log *logger.Logger) (Config, error) {
	catalog, err := services.LoadSourceCatalog(log)
	if err != nil {
		return Config{}, err
	}
	return Config{
		Port:        envutil.String("PORT", "8080"),
		MetricsAddr: envutil.String("METRICS_ADDR", ""),
		Environment: envutil.String("ENVIRONMENT", "development"),
		Version:     envutil.String("SERVICE_VERSION", "dev"),
		Sources:     catalog,
	}, nil
}
