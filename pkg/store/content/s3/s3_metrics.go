package s3

import (
	"io"
	"time"
)

// S3Metrics provides observability for S3 operations.
//
// It is optional; without it metrics collection is skipped. pkg/metrics
// provides the Prometheus implementation.
type S3Metrics interface {
	// ObserveOperation records an S3 call with its duration and outcome
	ObserveOperation(operation string, duration time.Duration, err error)

	// RecordBytes records bytes transferred by read and write operations
	RecordBytes(operation string, bytes int64)
}

// noopMetrics is the default no-op metrics implementation
type noopMetrics struct{}

func (noopMetrics) ObserveOperation(operation string, duration time.Duration, err error) {}
func (noopMetrics) RecordBytes(operation string, bytes int64)                            {}

// metricsReadCloser wraps an io.ReadCloser to track bytes read
type metricsReadCloser struct {
	io.ReadCloser
	metrics   S3Metrics
	operation string
	bytesRead int64
}

func (m *metricsReadCloser) Read(p []byte) (n int, err error) {
	n, err = m.ReadCloser.Read(p)
	if n > 0 {
		m.bytesRead += int64(n)
	}
	return n, err
}

func (m *metricsReadCloser) Close() error {
	err := m.ReadCloser.Close()
	// Record bytes read regardless of close error
	if m.bytesRead > 0 {
		m.metrics.RecordBytes(m.operation, m.bytesRead)
	}
	return err
}
