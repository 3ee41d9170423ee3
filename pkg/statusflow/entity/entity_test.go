package entity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaiban-ai/statusflow/pkg/statusflow/entity"
)

func TestParseKind(t *testing.T) {
	for _, kind := range entity.AllKinds() {
		parsed, err := entity.ParseKind(string(kind))
		require.NoError(t, err)
		assert.Equal(t, kind, parsed)
	}

	_, err := entity.ParseKind("starship")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown entity kind")
}

func TestKind_InitialStatus(t *testing.T) {
	tests := []struct {
		kind    entity.Kind
		initial entity.Status
	}{
		{entity.KindAgent, entity.AgentIdle},
		{entity.KindTask, entity.TaskPending},
		{entity.KindWorkflow, entity.WorkflowInitial},
		{entity.KindMessage, entity.MessageQueued},
		{entity.KindFeedback, entity.FeedbackPending},
		{entity.KindModelSession, entity.SessionStarting},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.initial, tt.kind.InitialStatus())
		})
	}
}

func TestKind_ErrorStatus(t *testing.T) {
	for _, kind := range entity.AllKinds() {
		errSt := kind.ErrorStatus()
		assert.NotEmpty(t, errSt, "kind %s has no error status", kind)
		assert.True(t, kind.Has(errSt), "error status %s not in %s enumeration", errSt, kind)
	}

	// Messages use FAILED rather than ERROR.
	assert.Equal(t, entity.MessageFailed, entity.KindMessage.ErrorStatus())
}

func TestKind_Has(t *testing.T) {
	assert.True(t, entity.KindTask.Has(entity.TaskDoing))
	assert.False(t, entity.KindTask.Has(entity.WorkflowRunning))
	assert.False(t, entity.KindTask.Has(entity.Status("NOPE")))

	// RUNNING belongs to workflows, not agents.
	assert.False(t, entity.KindAgent.Has(entity.WorkflowRunning))
}

func TestKind_Statuses_Copy(t *testing.T) {
	first := entity.KindTask.Statuses()
	require.NotEmpty(t, first)

	first[0] = entity.Status("MUTATED")
	second := entity.KindTask.Statuses()
	assert.NotEqual(t, first[0], second[0])
}

func TestKind_Valid(t *testing.T) {
	assert.True(t, entity.KindModelSession.Valid())
	assert.False(t, entity.Kind("model_session").Valid())
	assert.False(t, entity.Kind("").Valid())
}
