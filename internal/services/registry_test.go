package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRegistryReport(t *testing.T) {
	r := NewRegistry()
	r.Register("upstream", NewCheckerFunc("http", func(ctx context.Context) error { return nil }))
	r.Register("redis", NewCheckerFunc("redis", func(ctx context.Context) error { return errors.New("connection refused") }))

	assert.Equal(t, []string{"redis", "upstream"}, r.List())

	report, ok := r.Report(context.Background(), time.Second)
	assert.False(t, ok)
	assert.Equal(t, Status{Type: "http", Healthy: true}, report["upstream"])
	assert.Equal(t, Status{Type: "redis", Error: "connection refused"}, report["redis"])

	r.Unregister("redis")
	_, ok = r.Report(context.Background(), time.Second)
	assert.True(t, ok)
	assert.Nil(t, r.Get("redis"))
}

func TestReportHonoursTimeout(t *testing.T) {
	r := NewRegistry()
	r.Register("slow", NewCheckerFunc("http", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	report, ok := r.Report(context.Background(), 10*time.Millisecond)
	assert.False(t, ok)
	assert.Contains(t, report["slow"].Error, "deadline exceeded")
}
