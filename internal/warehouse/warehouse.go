// Package warehouse provides the query execution backends. Every backend
// implements domain.Executor: run one already-validated SELECT under hard
// row and wall-clock caps, return structured rows, and surface any engine or
// transport failure as a *domain.ExecutionError. The orchestrator never
// branches on backend identity; configuration selects the implementation.
package warehouse

import (
	"time"

	"lakegate/internal/domain"
)

// Default caps applied when configuration leaves them unset. An unbounded
// analytic query is itself a resource-exhaustion risk, so execution never
// runs capless.
const (
	DefaultMaxRows          = 10000
	DefaultMaxExecutionTime = 60 * time.Second
)

// NormalizeCaps fills zero-valued caps with the defaults.
func NormalizeCaps(caps domain.ExecCaps) domain.ExecCaps {
	if caps.MaxRows <= 0 {
		caps.MaxRows = DefaultMaxRows
	}
	if caps.MaxExecutionTime <= 0 {
		caps.MaxExecutionTime = DefaultMaxExecutionTime
	}
	return caps
}
