package config

import (
	"github.com/marmos91/rmshelf/pkg/metrics"
	contentS3 "github.com/marmos91/rmshelf/pkg/store/content/s3"
)

// MetricsResult contains all metrics-related components created from configuration.
type MetricsResult struct {
	// Server is the HTTP server exposing Prometheus metrics (nil if disabled)
	Server *metrics.Server

	// Store is the collector for document store activity (never nil, noop if disabled)
	Store metrics.StoreMetrics

	// Session is the collector for login activity (never nil, noop if disabled)
	Session metrics.SessionMetrics

	// S3 is the collector for the S3 content store (nil if disabled)
	S3 contentS3.S3Metrics
}

// InitializeMetrics creates and initializes all metrics components based on configuration.
//
// If metrics are enabled in the configuration:
//   - Initializes the global Prometheus registry
//   - Creates the metrics HTTP server
//   - Creates Prometheus-backed metrics instances for all components
//
// If metrics are disabled:
//   - Returns nil server
//   - Returns no-op metrics implementations (zero overhead)
//
// Call it once per process: Prometheus collectors register on the global
// registry.
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Metrics.Enabled {
		return &MetricsResult{
			Store:   metrics.NewStoreMetricsWith(nil),
			Session: metrics.NewSessionMetricsWith(nil),
		}
	}

	metrics.InitRegistry()

	return &MetricsResult{
		Server: metrics.NewServer(metrics.ServerConfig{
			Port: cfg.Metrics.Port,
		}),
		Store:   metrics.NewStoreMetrics(),
		Session: metrics.NewSessionMetrics(),
		S3:      metrics.NewS3Metrics(),
	}
}
