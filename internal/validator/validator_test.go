package validator_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CA-git-com-co/ACGS-sub011/internal/validator"
)

func TestNoopValidator_AlwaysCompliant(t *testing.T) {
	v := validator.NoopValidator{}
	result, err := v.Validate(context.Background(), validator.Input{RequestType: "model_deployment"})
	require.NoError(t, err)
	assert.True(t, result.Compliant)
	assert.False(t, result.FrameworkAvailable)
	assert.Empty(t, result.Violations)
}
