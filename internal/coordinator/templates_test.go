package coordinator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CA-git-com-co/ACGS-sub011/internal/model"
)

func TestDecomposePolicyEnforcement_LinearChain(t *testing.T) {
	templates := decomposePolicyEnforcement(model.GovernanceRequest{InputData: map[string]any{}})
	require.Len(t, templates, 3)

	byType := make(map[string]model.TaskTemplate, len(templates))
	for _, tmpl := range templates {
		byType[tmpl.TaskType] = tmpl
	}

	assert.Empty(t, byType["policy_analysis"].Dependencies)
	assert.Equal(t, []string{"policy_analysis"}, byType["implementation_planning"].Dependencies)
	assert.Equal(t, []string{"implementation_planning"}, byType["compliance_monitoring"].Dependencies)
}

func TestDecomposeComplianceAudit_ParallelAuditsConvergeOnGovernance(t *testing.T) {
	templates := decomposeComplianceAudit(model.GovernanceRequest{InputData: map[string]any{}})
	require.Len(t, templates, 3)

	byType := make(map[string]model.TaskTemplate, len(templates))
	for _, tmpl := range templates {
		byType[tmpl.TaskType] = tmpl
	}

	assert.Empty(t, byType["data_compliance_audit"].Dependencies)
	assert.Empty(t, byType["system_compliance_audit"].Dependencies)
	assert.ElementsMatch(t, []string{"data_compliance_audit", "system_compliance_audit"},
		byType["governance_compliance_audit"].Dependencies)
}

func TestDecomposeComplianceAudit_UsesRequestedFrameworks(t *testing.T) {
	templates := decomposeComplianceAudit(model.GovernanceRequest{
		InputData: map[string]any{"frameworks": []string{"HIPAA"}},
	})
	for _, tmpl := range templates {
		if tmpl.TaskType == "data_compliance_audit" {
			assert.Equal(t, []string{"HIPAA"}, tmpl.Requirements["compliance_frameworks"])
			return
		}
	}
	t.Fatal("data_compliance_audit template not found")
}

func TestDecomposers_RegisteredForEveryRequestType(t *testing.T) {
	for _, rt := range []model.RequestType{
		model.RequestModelDeployment, model.RequestPolicyEnforcement, model.RequestComplianceAudit,
	} {
		_, ok := decomposers[rt]
		assert.True(t, ok, "missing decomposer for %s", rt)
	}
}
