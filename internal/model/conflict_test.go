package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/CA-git-com-co/ACGS-sub011/internal/model"
)

func TestSeverityScore_Ordering(t *testing.T) {
	assert.Less(t, model.SeverityScore(model.SeverityCritical), model.SeverityScore(model.SeverityHigh))
	assert.Less(t, model.SeverityScore(model.SeverityHigh), model.SeverityScore(model.SeverityMedium))
	assert.Less(t, model.SeverityScore(model.SeverityMedium), model.SeverityScore(model.SeverityLow))
}

func TestCanTransitionConflict(t *testing.T) {
	assert.True(t, model.CanTransitionConflict(model.ConflictOpen, model.ConflictInResolution))
	assert.True(t, model.CanTransitionConflict(model.ConflictOpen, model.ConflictEscalated))
	assert.True(t, model.CanTransitionConflict(model.ConflictInResolution, model.ConflictResolved))
	assert.False(t, model.CanTransitionConflict(model.ConflictOpen, model.ConflictResolved))
	assert.False(t, model.CanTransitionConflict(model.ConflictResolved, model.ConflictOpen))
}
