// Package simerrors defines the five error kinds of §7. Each carries the
// failing Op and (except OptimizerTimeout) the underlying Err, exposed via
// Unwrap, and prints as "kind: op: err" so chains stay descriptive; these
// types exist so callers can errors.As into the kind at the driver boundary
// without re-parsing strings.
package simerrors

import "fmt"

// ConfigurationError is fatal at startup: unknown strategy tag, inconsistent
// two_stage/hybrid fields, non-positive capacity.
type ConfigurationError struct {
	Op  string
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %v", e.Op, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func NewConfigurationError(op string, err error) error {
	return &ConfigurationError{Op: op, Err: err}
}

// InfeasibleAssignment is non-fatal: weighted demand at a tick exceeds
// aggregate available capacity. Un-fittable deliveries stay READY and are
// retried next tick.
type InfeasibleAssignment struct {
	Op  string
	Err error
}

func (e *InfeasibleAssignment) Error() string {
	return fmt.Sprintf("infeasible assignment: %s: %v", e.Op, e.Err)
}

func (e *InfeasibleAssignment) Unwrap() error { return e.Err }

func NewInfeasibleAssignment(op string, err error) error {
	return &InfeasibleAssignment{Op: op, Err: err}
}

// SolverFailure is recovered locally by falling back to greedy sequential
// assignment; it never interrupts the simulation.
type SolverFailure struct {
	Op  string
	Err error
}

func (e *SolverFailure) Error() string {
	return fmt.Sprintf("solver failure: %s: %v", e.Op, e.Err)
}

func (e *SolverFailure) Unwrap() error { return e.Err }

func NewSolverFailure(op string, err error) error {
	return &SolverFailure{Op: op, Err: err}
}

// OptimizerTimeout signals the soft per-tick deadline (§5) was exceeded;
// the optimizer still returns its best-so-far feasible solution, so this is
// never fatal — it is informational for the caller/logs.
type OptimizerTimeout struct {
	Op string
}

func (e *OptimizerTimeout) Error() string {
	return fmt.Sprintf("optimizer timeout: %s", e.Op)
}

func NewOptimizerTimeout(op string) error {
	return &OptimizerTimeout{Op: op}
}

// InvariantViolation indicates a bug: a route exceeds capacity, a delivery
// appears in two routes, or a status transition violates §3. Fatal.
type InvariantViolation struct {
	Op  string
	Err error
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violation: %s: %v", e.Op, e.Err)
}

func (e *InvariantViolation) Unwrap() error { return e.Err }

func NewInvariantViolation(op string, err error) error {
	return &InvariantViolation{Op: op, Err: err}
}
