// Package metrics provides Prometheus metrics collection for rmshelf
// components.
//
// All metrics are optional - if not initialized, components use no-op
// implementations that have zero overhead.
//
// Usage:
//
//	// Initialize global registry (typically in main.go)
//	metrics.InitRegistry()
//
//	// Create metrics instances for components
//	storeMetrics := metrics.NewStoreMetrics()
//	s3Metrics := metrics.NewS3Metrics()
//
// Tests pass their own registry to the ...With constructors so repeated
// construction never collides on the global registry.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// registry is the global Prometheus registry for all rmshelf metrics
	// Protected by registryOnce for write-once, read-many pattern
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry initializes the global Prometheus registry with the Go
// runtime and process collectors.
//
// This must be called before creating any metrics instances. It's safe to
// call multiple times - subsequent calls are ignored.
func InitRegistry() {
	registryOnce.Do(func() {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		registry = reg
	})
}

// GetRegistry returns the global Prometheus registry, or nil when metrics
// are disabled.
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled returns true if InitRegistry() has been called.
func IsEnabled() bool {
	return GetRegistry() != nil
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
