package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/CA-git-com-co/ACGS-sub011/internal/model"
	"github.com/CA-git-com-co/ACGS-sub011/internal/validator"
)

// riskOrdinal orders risk_level strings for the >1-apart conflict check,
// mirroring the original's risk_values table.
var riskOrdinal = map[string]int{"low": 1, "medium": 2, "high": 3, "critical": 4}

// integrateResults collects every task's output_data for req, scans it for
// conflicts, re-validates against the constitutional framework, and fuses
// the whole thing into a GovernanceResult (spec.md §4.2 step 4,
// _validate_integrated_result in the original).
func (c *Coordinator) integrateResults(ctx context.Context, req model.GovernanceRequest, taskIDs []string) model.GovernanceResult {
	start := time.Now()

	taskResults := make(map[string]map[string]any, len(taskIDs))
	for _, id := range taskIDs {
		task, err := c.store.GetTask(ctx, id)
		if err != nil {
			c.logger.Warn("coordinator: fetch task for integration", "task_id", id, "error", err)
			continue
		}
		if task.OutputData != nil {
			taskResults[task.TaskType] = task.OutputData
		}
	}

	conflicts := detectResultConflicts(taskResults)
	for _, conflict := range conflicts {
		conflict.InvolvedAgents = []string{c.agentID}
		if _, err := c.store.ReportConflict(ctx, conflict); err != nil {
			c.logger.Warn("coordinator: report conflict", "request_id", req.ID, "error", err)
		}
	}

	compliance, err := c.validator.Validate(ctx, validator.Input{
		RequestType:  string(req.RequestType),
		InputData:    req.InputData,
		Requirements: req.ConstitutionalRequirements,
	})
	if err != nil {
		compliance = validator.Result{Compliant: false, Violations: []string{err.Error()}}
	}

	success := len(conflicts) == 0 && compliance.Compliant
	result := model.GovernanceResult{
		RequestID:           req.ID,
		Success:             success,
		DeploymentApproved:  success && req.RequestType == model.RequestModelDeployment,
		Conflicts:           conflicts,
		Recommendations:     buildRecommendations(req, taskResults),
		ConfidenceScore:     harmonicMeanConfidence(taskResults),
		Outputs:             flattenOutputs(taskResults),
		ValidatorViolations: compliance.Violations,
		CreatedAt:           time.Now().UTC(),
		ConstitutionalHash:  model.ComplianceTag,
	}
	if !success && len(conflicts) > 0 {
		result.FailingComponent = "result_integration"
		result.Reason = "unresolved conflicts between task results"
	} else if !compliance.Compliant {
		result.FailingComponent = "constitutional_validation"
		result.Reason = "integrated result failed constitutional validation"
		result.ErrorKind = model.KindValidatorViolation
	}

	c.persistGovernanceResult(ctx, req, taskResults, result, time.Since(start))
	return result
}

// detectResultConflicts mirrors _detect_result_conflicts: a decision_conflict
// (severity high) when task results disagree on "approved", a
// risk_assessment_conflict (severity medium) when "risk_level" values span
// more than one ordinal step.
func detectResultConflicts(taskResults map[string]map[string]any) []model.ConflictItem {
	var conflicts []model.ConflictItem

	approvals := map[string]bool{}
	var approvalTasks []string
	for taskType, result := range taskResults {
		if v, ok := result["approved"].(bool); ok {
			approvals[taskType] = v
			approvalTasks = append(approvalTasks, taskType)
		}
	}
	if distinctBools(approvals) {
		conflicts = append(conflicts, model.ConflictItem{
			ConflictType:  "decision_conflict",
			InvolvedTasks: approvalTasks,
			Description:   fmt.Sprintf("conflicting approval decisions: %v", approvals),
			Severity:      model.SeverityHigh,
		})
	}

	riskLevels := map[string]string{}
	var riskTasks []string
	for taskType, result := range taskResults {
		if v, ok := result["risk_level"].(string); ok {
			riskLevels[taskType] = v
			riskTasks = append(riskTasks, taskType)
		}
	}
	if maxRiskGap(riskLevels) > 1 {
		conflicts = append(conflicts, model.ConflictItem{
			ConflictType:  "risk_assessment_conflict",
			InvolvedTasks: riskTasks,
			Description:   fmt.Sprintf("conflicting risk assessments: %v", riskLevels),
			Severity:      model.SeverityMedium,
		})
	}
	return conflicts
}

func distinctBools(m map[string]bool) bool {
	seenTrue, seenFalse := false, false
	for _, v := range m {
		if v {
			seenTrue = true
		} else {
			seenFalse = true
		}
	}
	return seenTrue && seenFalse
}

func maxRiskGap(levels map[string]string) int {
	if len(levels) == 0 {
		return 0
	}
	min, max := 5, 0
	for _, level := range levels {
		ord, ok := riskOrdinal[level]
		if !ok {
			ord = 2
		}
		if ord < min {
			min = ord
		}
		if ord > max {
			max = ord
		}
	}
	return max - min
}

// buildRecommendations concatenates every task's own "recommendations" list
// with coordination-level pattern recommendations supplemented from the
// original's _generate_recommendations.
func buildRecommendations(req model.GovernanceRequest, taskResults map[string]map[string]any) []string {
	var recs []string
	for _, result := range taskResults {
		switch list := result["recommendations"].(type) {
		case []string:
			recs = append(recs, list...)
		case []interface{}:
			for _, v := range list {
				if s, ok := v.(string); ok {
					recs = append(recs, s)
				}
			}
		}
	}

	if req.RequestType == model.RequestModelDeployment {
		if ethical, ok := taskResults["ethical_analysis"]; ok {
			if bias, _ := ethical["bias_detected"].(bool); bias {
				recs = append(recs, "Consider bias mitigation strategies before deployment")
			}
		}
		if operational, ok := taskResults["operational_validation"]; ok {
			if concerns, _ := operational["performance_concerns"].(bool); concerns {
				recs = append(recs, "Address performance concerns before full deployment")
			}
		}
	}
	return recs
}

// harmonicMeanConfidence takes the harmonic mean of every task's
// "confidence" field as a conservative aggregate (a single low-confidence
// assessment pulls the whole score down much harder than an arithmetic
// mean would), defaulting to 0.7 when no task reports a confidence.
func harmonicMeanConfidence(taskResults map[string]map[string]any) float64 {
	var sumInverse float64
	var count int
	for _, result := range taskResults {
		v, ok := result["confidence"].(float64)
		if !ok || v <= 0 {
			continue
		}
		sumInverse += 1 / v
		count++
	}
	if count == 0 {
		return 0.7
	}
	mean := float64(count) / sumInverse
	if mean > 1.0 {
		return 1.0
	}
	return mean
}

func flattenOutputs(taskResults map[string]map[string]any) map[string]any {
	out := make(map[string]any, len(taskResults))
	for k, v := range taskResults {
		out[k] = v
	}
	return out
}

func (c *Coordinator) persistGovernanceResult(ctx context.Context, req model.GovernanceRequest, taskResults map[string]map[string]any, result model.GovernanceResult, duration time.Duration) {
	item := model.KnowledgeItem{
		Space:         model.SpaceGovernance,
		AgentID:       c.agentID,
		KnowledgeType: "governance_result",
		Priority:      1,
		Content: map[string]any{
			"request_id":          req.ID,
			"task_results":        taskResults,
			"integrated_result":   result,
			"completion_time":     time.Now().UTC(),
			"processing_duration": duration.Seconds(),
		},
		Tags: []string{"governance", "result", "completed"},
	}
	if _, err := c.store.AddKnowledge(ctx, item); err != nil {
		c.logger.Warn("coordinator: persist governance_result", "request_id", req.ID, "error", err)
	}
}
