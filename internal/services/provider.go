package services

import (
	"context"
)

// Checker reports whether a dependency is available
type Checker interface {
	// Type returns the dependency kind, e.g. "postgres"
	Type() string

	// HealthCheck returns nil when the dependency is reachable
	HealthCheck(ctx context.Context) error
}

// BaseChecker provides common functionality for checkers
type BaseChecker struct {
	serviceType string
}

// Type returns the service type
func (c *BaseChecker) Type() string {
	return c.serviceType
}

// CheckerFunc adapts a ping function into a Checker
type CheckerFunc struct {
	BaseChecker
	check func(ctx context.Context) error
}

// NewCheckerFunc creates a checker of the given type around check
func NewCheckerFunc(serviceType string, check func(ctx context.Context) error) *CheckerFunc {
	return &CheckerFunc{BaseChecker: BaseChecker{serviceType: serviceType}, check: check}
}

// HealthCheck runs the wrapped function
func (c *CheckerFunc) HealthCheck(ctx context.Context) error {
	return c.check(ctx)
}
