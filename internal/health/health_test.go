package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheck_NoDependencies(t *testing.T) {
	report := NewChecker().Check(context.Background())

	assert.Equal(t, StatusOK, report.Status)
	assert.Empty(t, report.Checks)
}

func TestCheck_AllHealthy(t *testing.T) {
	c := NewChecker().
		Add("postgres", func(context.Context) error { return nil }).
		Add("redis", func(context.Context) error { return nil })

	report := c.Check(context.Background())

	assert.Equal(t, StatusOK, report.Status)
	assert.Equal(t, StatusOK, report.Checks["postgres"])
	assert.Equal(t, StatusOK, report.Checks["redis"])
}

func TestCheck_OneFailingDegrades(t *testing.T) {
	c := NewChecker().
		Add("postgres", func(context.Context) error { return nil }).
		Add("redis", func(context.Context) error { return errors.New("connection refused") })

	report := c.Check(context.Background())

	assert.Equal(t, StatusDegraded, report.Status)
	assert.Equal(t, StatusOK, report.Checks["postgres"])
	assert.Equal(t, "connection refused", report.Checks["redis"])
}

func TestCheck_ChecksGetDeadline(t *testing.T) {
	c := NewChecker().Add("slow", func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); !ok {
			return errors.New("no deadline set")
		}
		return nil
	})

	report := c.Check(context.Background())
	assert.Equal(t, StatusOK, report.Status)
}

func TestAdd_ReplacesByName(t *testing.T) {
	c := NewChecker().
		Add("dep", func(context.Context) error { return errors.New("old") }).
		Add("dep", func(context.Context) error { return nil })

	report := c.Check(context.Background())

	assert.Equal(t, StatusOK, report.Status)
	assert.Len(t, report.Checks, 1)
}
