// Package validator defines the external constitutional validator contract
// consumed by the coordinator's pre-check and result-integration steps.
// The validator's internal rules are out of scope (spec.md §1); only the
// narrow port is specified here, grounded on the teacher's
// conflicts.Validator shape (a single Validate(ctx, input) (Result, error)
// call with no exposed internals).
package validator

import "context"

// Input is everything the coordinator hands the validator for one
// compliance check.
type Input struct {
	RequestType  string
	InputData    map[string]any
	Requirements map[string]any
}

// Result is the validator's structured verdict, per spec.md §6.
type Result struct {
	Compliant           bool            `json:"compliant"`
	Violations          []string        `json:"violations,omitempty"`
	PrincipleAdherence  map[string]bool `json:"principle_adherence,omitempty"`
	Confidence          float64         `json:"confidence"`
	FrameworkAvailable  bool            `json:"framework_available"`
}

// Validator is the external constitutional validator port. Absence of a
// real implementation is equivalent to NoopValidator: always compliant,
// with FrameworkAvailable=false so callers can distinguish "no opinion"
// from "reviewed and approved".
type Validator interface {
	Validate(ctx context.Context, input Input) (Result, error)
}

// NoopValidator is the absence-safe default: it never blocks a request.
type NoopValidator struct{}

// Validate always returns a compliant, framework-unavailable result.
func (NoopValidator) Validate(ctx context.Context, input Input) (Result, error) {
	return Result{
		Compliant:          true,
		Confidence:         1.0,
		FrameworkAvailable: false,
	}, nil
}
