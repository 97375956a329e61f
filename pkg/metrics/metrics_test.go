package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreMetrics_NilRegistryIsNoop(t *testing.T) {
	m := NewStoreMetricsWith(nil)
	_, ok := m.(noopStoreMetrics)
	assert.True(t, ok)

	// Must not panic.
	m.ObserveOperation("load", time.Second, nil)
	m.RecordBatchItems("delete", 1, 2, 3)
	m.SetDocuments(5)
	m.SetSelected(2)
	m.RecordRejected("upload")
}

func TestStoreMetrics_Records(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewStoreMetricsWith(reg).(*storeMetrics)

	m.ObserveOperation("create_folder", 300*time.Millisecond, nil)
	m.ObserveOperation("create_folder", 300*time.Millisecond, errors.New("boom"))
	m.RecordBatchItems("delete", 2, 1, 0)
	m.RecordRejected("delete")
	m.SetDocuments(5)
	m.SetSelected(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("create_folder", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("create_folder", "error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.batchItems.WithLabelValues("delete", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.batchItems.WithLabelValues("delete", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rejectedTotal.WithLabelValues("delete")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.documents))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.selected))
}

func TestSessionMetrics_Records(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSessionMetricsWith(reg).(*sessionMetrics)

	m.RecordLogin("success")
	m.RecordLogin("invalid")
	m.RecordLogin("invalid")
	m.RecordLogout()
	m.SetAuthenticated(true)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.logins.WithLabelValues("success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.logins.WithLabelValues("invalid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.logouts))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.authenticated))

	m.SetAuthenticated(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.authenticated))
}

func TestS3Metrics_Records(t *testing.T) {
	assert.Nil(t, NewS3MetricsWith(nil))

	reg := prometheus.NewRegistry()
	m := NewS3MetricsWith(reg).(*s3Metrics)

	m.ObserveOperation("PutObject", 20*time.Millisecond, nil)
	m.RecordBytes("write", 1024)
	m.RecordBytes("write", 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("PutObject", "success")))
	assert.Equal(t, 1024.0, testutil.ToFloat64(m.bytesTransferred.WithLabelValues("write")))
}

func TestServer_ServesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewStoreMetricsWith(reg).SetDocuments(7)

	srv := NewServer(ServerConfig{Port: 0, Registry: reg})
	assert.Equal(t, 9090, srv.Port())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "rmshelf_store_documents 7"))

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
