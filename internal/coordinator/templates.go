package coordinator

import "github.com/CA-git-com-co/ACGS-sub011/internal/model"

// decomposer produces the task templates for one request type. Dependencies
// on a TaskTemplate name sibling templates by TaskType, resolved to concrete
// task ids once every template for a request has been created.
type decomposer func(req model.GovernanceRequest) []model.TaskTemplate

var decomposers = map[model.RequestType]decomposer{
	model.RequestModelDeployment:   decomposeModelDeployment,
	model.RequestPolicyEnforcement: decomposePolicyEnforcement,
	model.RequestComplianceAudit:   decomposeComplianceAudit,
}

func mapField(data map[string]any, key string) map[string]any {
	if v, ok := data[key].(map[string]any); ok {
		return v
	}
	return map[string]any{}
}

// decomposeModelDeployment mirrors TaskDecompositionStrategy.decompose_model_deployment:
// ethical analysis and legal compliance run in parallel; operational
// validation waits on the ethical analysis finding.
func decomposeModelDeployment(req model.GovernanceRequest) []model.TaskTemplate {
	return []model.TaskTemplate{
		{
			TaskType: "ethical_analysis",
			Priority: 1,
			Requirements: map[string]any{
				"analysis_types":           []string{"bias_assessment", "fairness_evaluation", "harm_potential"},
				"constitutional_principles": []string{"safety", "transparency", "consent"},
			},
			InputData: map[string]any{
				"model_info":         mapField(req.InputData, "model_info"),
				"deployment_context": mapField(req.InputData, "deployment_context"),
				"stakeholder_impact": mapField(req.InputData, "stakeholder_impact"),
			},
		},
		{
			TaskType: "legal_compliance",
			Priority: 1,
			Requirements: map[string]any{
				"jurisdictions":            []string{"US", "EU"},
				"compliance_frameworks":    []string{"GDPR", "CCPA", "AI_Act"},
				"constitutional_principles": []string{"data_privacy", "consent", "transparency"},
			},
			InputData: map[string]any{
				"model_info":        mapField(req.InputData, "model_info"),
				"data_sources":      mapField(req.InputData, "data_sources"),
				"user_interactions": mapField(req.InputData, "user_interactions"),
			},
		},
		{
			TaskType: "operational_validation",
			Priority: 2,
			Requirements: map[string]any{
				"performance_thresholds":   mapField(req.InputData, "performance_requirements"),
				"scalability_requirements": mapField(req.InputData, "scalability_requirements"),
				"constitutional_principles": []string{"resource_limits", "reversibility"},
			},
			InputData: map[string]any{
				"model_info":                  mapField(req.InputData, "model_info"),
				"infrastructure_constraints": mapField(req.InputData, "infrastructure_constraints"),
				"performance_benchmarks":     mapField(req.InputData, "performance_benchmarks"),
			},
			Dependencies: []string{"ethical_analysis"},
		},
	}
}

// decomposePolicyEnforcement mirrors decompose_policy_enforcement: a
// strictly linear chain, analysis -> planning -> monitoring.
func decomposePolicyEnforcement(req model.GovernanceRequest) []model.TaskTemplate {
	return []model.TaskTemplate{
		{
			TaskType: "policy_analysis",
			Priority: 1,
			Requirements: map[string]any{
				"policy_scope":              "organizational",
				"stakeholder_analysis":      true,
				"constitutional_principles": []string{"transparency", "consent", "least_privilege"},
			},
			InputData: map[string]any{
				"policy_document":     mapField(req.InputData, "policy_document"),
				"enforcement_context": mapField(req.InputData, "enforcement_context"),
				"affected_systems":    req.InputData["affected_systems"],
			},
		},
		{
			TaskType: "implementation_planning",
			Priority: 2,
			Requirements: map[string]any{
				"rollout_strategy":          "phased",
				"monitoring_requirements":   true,
				"constitutional_principles": []string{"reversibility", "least_privilege"},
			},
			InputData: map[string]any{
				"policy_requirements": mapField(req.InputData, "policy_requirements"),
				"system_architecture": mapField(req.InputData, "system_architecture"),
				"resource_constraints": mapField(req.InputData, "resource_constraints"),
			},
			Dependencies: []string{"policy_analysis"},
		},
		{
			TaskType: "compliance_monitoring",
			Priority: 3,
			Requirements: map[string]any{
				"monitoring_frequency":      "continuous",
				"alert_thresholds":          mapField(req.InputData, "alert_thresholds"),
				"constitutional_principles": []string{"transparency", "consent"},
			},
			InputData: map[string]any{
				"monitoring_scope":        mapField(req.InputData, "monitoring_scope"),
				"compliance_metrics":      mapField(req.InputData, "compliance_metrics"),
				"reporting_requirements":  mapField(req.InputData, "reporting_requirements"),
			},
			Dependencies: []string{"implementation_planning"},
		},
	}
}

// decomposeComplianceAudit supplements the distilled spec with the
// original's third decomposition strategy: data and system audits run in
// parallel, governance audit waits on both.
func decomposeComplianceAudit(req model.GovernanceRequest) []model.TaskTemplate {
	frameworks := []string{"GDPR", "CCPA"}
	if v, ok := req.InputData["frameworks"].([]string); ok {
		frameworks = v
	}
	return []model.TaskTemplate{
		{
			TaskType: "data_compliance_audit",
			Priority: 1,
			Requirements: map[string]any{
				"audit_scope":               "full",
				"compliance_frameworks":     frameworks,
				"constitutional_principles": []string{"data_privacy", "transparency", "consent"},
			},
			InputData: map[string]any{
				"data_sources":          mapField(req.InputData, "data_sources"),
				"processing_activities": mapField(req.InputData, "processing_activities"),
				"data_subject_rights":   mapField(req.InputData, "data_subject_rights"),
			},
		},
		{
			TaskType: "system_compliance_audit",
			Priority: 2,
			Requirements: map[string]any{
				"system_scope":              mapField(req.InputData, "system_scope"),
				"security_requirements":     mapField(req.InputData, "security_requirements"),
				"constitutional_principles": []string{"safety", "least_privilege", "reversibility"},
			},
			InputData: map[string]any{
				"system_architecture": mapField(req.InputData, "system_architecture"),
				"access_controls":     mapField(req.InputData, "access_controls"),
				"audit_logs":          mapField(req.InputData, "audit_logs"),
			},
		},
		{
			TaskType: "governance_compliance_audit",
			Priority: 3,
			Requirements: map[string]any{
				"governance_framework":      "ACGS-PGP",
				"policy_compliance":         true,
				"constitutional_principles": []string{"transparency", "consent", "safety"},
			},
			InputData: map[string]any{
				"governance_policies": mapField(req.InputData, "governance_policies"),
				"decision_logs":       mapField(req.InputData, "decision_logs"),
				"stakeholder_feedback": mapField(req.InputData, "stakeholder_feedback"),
			},
			Dependencies: []string{"data_compliance_audit", "system_compliance_audit"},
		},
	}
}
