package model

import "time"

// RequestType names a supported governance workflow shape; each has its own
// decomposition strategy in internal/coordinator.
type RequestType string

const (
	RequestModelDeployment    RequestType = "model_deployment"
	RequestPolicyEnforcement  RequestType = "policy_enforcement"
	RequestComplianceAudit    RequestType = "compliance_audit"
)

// GovernanceRequest is a high-level request the coordinator decomposes into
// a task graph.
type GovernanceRequest struct {
	ID                         string         `json:"id"`
	RequestType                RequestType    `json:"request_type"`
	Priority                   int            `json:"priority"`
	RequesterID                string         `json:"requester_id"`
	InputData                  map[string]any `json:"input_data"`
	ConstitutionalRequirements map[string]any `json:"constitutional_requirements,omitempty"`
	Deadline                   *time.Time     `json:"deadline,omitempty"`
	ComplexityScore            float64        `json:"complexity_score,omitempty"`
}

// TaskTemplate is one task the decomposition strategy for a RequestType
// emits; Dependencies names sibling templates by TaskType, resolved to
// concrete task IDs once all templates for a request have been created.
type TaskTemplate struct {
	TaskType     string
	Priority     int
	Requirements map[string]any
	InputData    map[string]any
	Dependencies []string // TaskType names of sibling templates this depends on
}

// GovernanceResult is the fused outcome of a governance request after all its
// tasks complete and result integration runs.
type GovernanceResult struct {
	RequestID          string           `json:"request_id"`
	Success            bool             `json:"success"`
	DeploymentApproved bool             `json:"deployment_approved,omitempty"`
	ConfidenceScore    float64          `json:"confidence_score"`
	Conflicts          []ConflictItem   `json:"conflicts"`
	Recommendations    []string         `json:"recommendations,omitempty"`
	Outputs            map[string]any   `json:"outputs,omitempty"`
	ValidatorViolations []string        `json:"validator_violations,omitempty"`
	FailingComponent   string           `json:"failing_component,omitempty"`
	Reason             string           `json:"reason,omitempty"`
	ErrorKind          Kind             `json:"error_kind,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	ConstitutionalHash string           `json:"constitutional_hash"`
}
