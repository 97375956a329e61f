package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/marmos91/rmshelf/internal/logger"
	"github.com/marmos91/rmshelf/pkg/adapter/web"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultPort is the metrics port used when none is configured.
const DefaultPort = 9090

// Server exposes the Prometheus registry on its own port:
//   - GET /metrics: OpenMetrics / text exposition
//   - GET /: one-line pointer to /metrics
//
// The listener lifecycle is the API's: Server embeds a web.WebAdapter and
// only changes the protocol name, so the lifecycle manager can run both side
// by side.
type Server struct {
	*web.WebAdapter
	handler http.Handler
}

// ServerConfig configures the metrics HTTP server.
type ServerConfig struct {
	// Port to listen on (default: DefaultPort)
	Port int

	// Registry to expose. Defaults to the process registry.
	Registry *prometheus.Registry
}

// NewServer creates a stopped metrics server. Call Serve to start it.
func NewServer(config ServerConfig) *Server {
	if config.Port <= 0 {
		config.Port = DefaultPort
	}

	handler := newHandler(config.Registry)

	return &Server{
		WebAdapter: web.New(web.WebConfig{
			Name:            "Metrics server",
			Listen:          ":" + strconv.Itoa(config.Port),
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     time.Minute,
			ShutdownTimeout: 5 * time.Second,
		}, handler),
		handler: handler,
	}
}

func newHandler(registry *prometheus.Registry) http.Handler {
	if registry == nil {
		registry = GetRegistry()
	}

	mux := http.NewServeMux()
	if registry != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{
			EnableOpenMetrics: true,
		}))
	} else {
		mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "metrics collection is disabled", http.StatusServiceUnavailable)
		})
		logger.Debug("Metrics collection disabled, /metrics answers 503")
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = fmt.Fprintln(w, "rmshelf metrics: scrape /metrics")
	})

	return mux
}

// Protocol implements adapter.Adapter.
func (s *Server) Protocol() string {
	return "metrics"
}

// Handler returns the handler serving /metrics and the index.
func (s *Server) Handler() http.Handler {
	return s.handler
}
