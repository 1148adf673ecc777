package app

import (
	"context"
	"sync/atomic"
	"time"
)

// StatusTracker counts the requests and errors served by the API. It is
// written to by a middleware on every request and read by the status
// endpoint, so all counters are atomics.
type StatusTracker struct {
	requests             atomic.Int64
	errors               atomic.Int64
	lastRequestUnixMilli atomic.Int64
}

func NewStatusTracker(nowFunc func() time.Time) *StatusTracker {
	tracker := &StatusTracker{}
	// Report server start as the last request time until the first request
	tracker.lastRequestUnixMilli.Store(nowFunc().UnixMilli())
	return tracker
}

// RecordRequest counts one served request. Responses with status >= 400
// count as errors.
func (t *StatusTracker) RecordRequest(statusCode int, at time.Time) {
	t.requests.Add(1)
	if statusCode >= 400 {
		t.errors.Add(1)
	}
	t.lastRequestUnixMilli.Store(at.UnixMilli())
}

type ServiceStatus struct {
	Timestamp       int64
	Requests        int64
	Errors          int64
	ErrorRate       float64
	CacheSize       int
	LastRequestTime int64
}

type GetServiceStatus func(ctx context.Context) ServiceStatus

type cacheSizer interface {
	CacheSize() int
}

func BuildGetServiceStatus(tracker *StatusTracker, eng cacheSizer, nowFunc func() time.Time) GetServiceStatus {
	return func(ctx context.Context) ServiceStatus {
		requests := tracker.requests.Load()
		errorCount := tracker.errors.Load()

		errorRate := 0.0
		if requests > 0 {
			errorRate = float64(errorCount) / float64(requests) * 100
		}

		return ServiceStatus{
			Timestamp:       nowFunc().UnixMilli(),
			Requests:        requests,
			Errors:          errorCount,
			ErrorRate:       errorRate,
			CacheSize:       eng.CacheSize(),
			LastRequestTime: tracker.lastRequestUnixMilli.Load(),
		}
	}
}
