// Package health reports process and dependency health. The same
// report is served over both transports: GET /health on the HTTP API
// and the health.check command on the bus.
package health

import (
	"context"
	"time"

	"github.com/mkamau/groundwork/internal/logging"
)

var log = logging.Component("health")

// StatusOK and StatusDegraded are the two overall report states.
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
)

const checkTimeout = 2 * time.Second

// Check probes one dependency.
type Check func(ctx context.Context) error

// Checker runs registered dependency checks.
type Checker struct {
	names  []string
	checks map[string]Check
}

// NewChecker creates an empty checker.
func NewChecker() *Checker {
	return &Checker{checks: make(map[string]Check)}
}

// Add registers a named dependency check. Registration order is the
// report order.
func (c *Checker) Add(name string, check Check) *Checker {
	if _, ok := c.checks[name]; !ok {
		c.names = append(c.names, name)
	}
	c.checks[name] = check
	return c
}

// Report is the health payload returned to callers.
type Report struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Check runs every registered check and aggregates the results. A
// single failing dependency degrades the overall status; the report
// itself never fails.
func (c *Checker) Check(ctx context.Context) Report {
	report := Report{Status: StatusOK}
	if len(c.names) > 0 {
		report.Checks = make(map[string]string, len(c.names))
	}

	for _, name := range c.names {
		checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := c.checks[name](checkCtx)
		cancel()

		if err != nil {
			log.Warn("dependency check failed", "dependency", name, "error", err)
			report.Status = StatusDegraded
			report.Checks[name] = err.Error()
			continue
		}
		report.Checks[name] = StatusOK
	}

	return report
}
