package metrics

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/nakabonne/tstorage"
)

// Package metrics keeps process and business gauges in an embedded
// time-series store under the application workdir.

var (
	storage tstorage.Storage
	mu      sync.RWMutex
	latest  = make(map[string]int64)
)

// InitMetrics opens the embedded time-series storage.
func InitMetrics(workdir string) error {
	s, err := tstorage.NewStorage(
		tstorage.WithDataPath(filepath.Join(workdir, "data", "metrics")),
		tstorage.WithTimestampPrecision(tstorage.Seconds),
		tstorage.WithPartitionDuration(24*time.Hour),
		tstorage.WithRetention(30*24*time.Hour),
	)
	if err != nil {
		return err
	}
	storage = s
	return nil
}

// SetGauge records the current value of a named gauge.
func SetGauge(name string, value int64) {
	mu.Lock()
	latest[name] = value
	mu.Unlock()
	if storage == nil {
		return
	}
	_ = storage.InsertRows([]tstorage.Row{
		{
			Metric:    name,
			DataPoint: tstorage.DataPoint{Timestamp: time.Now().Unix(), Value: float64(value)},
		},
	})
}

// IncrCounter adds delta to a named counter and records the new value.
func IncrCounter(name string, delta int64) {
	mu.Lock()
	latest[name] += delta
	v := latest[name]
	mu.Unlock()
	if storage == nil {
		return
	}
	_ = storage.InsertRows([]tstorage.Row{
		{
			Metric:    name,
			DataPoint: tstorage.DataPoint{Timestamp: time.Now().Unix(), Value: float64(v)},
		},
	})
}

// GetLatest returns the last recorded value for the metric, 0 if never set.
func GetLatest(name string) int64 {
	mu.RLock()
	defer mu.RUnlock()
	return latest[name]
}

// QueryRange returns raw datapoints between start and end (unix seconds).
func QueryRange(name string, start, end int64) ([]*tstorage.DataPoint, error) {
	if storage == nil {
		return nil, nil
	}
	return storage.Select(name, nil, start, end)
}

// Close flushes and closes the storage.
func Close() error {
	if storage == nil {
		return nil
	}
	return storage.Close()
}
