package status_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaiban-ai/statusflow/pkg/statusflow/entity"
	"github.com/kaiban-ai/statusflow/pkg/statusflow/status"
)

func TestTableValidator_PermitsListedTransitions(t *testing.T) {
	v, err := status.NewTableValidator([]status.Rule{
		{Kind: entity.KindTask, From: entity.TaskPending, To: entity.TaskDoing},
		{Kind: entity.KindTask, From: entity.TaskDoing, To: entity.TaskDone},
		{Kind: entity.KindTask, From: entity.TaskDoing, To: entity.TaskBlocked},
	})
	require.NoError(t, err)

	tests := []struct {
		name string
		from entity.Status
		to   entity.Status
		want bool
	}{
		{"listed", entity.TaskPending, entity.TaskDoing, true},
		{"listed alternative", entity.TaskDoing, entity.TaskBlocked, true},
		{"unlisted", entity.TaskPending, entity.TaskDone, false},
		{"reverse of listed", entity.TaskDoing, entity.TaskPending, false},
		{"terminal has no outgoing rules", entity.TaskDone, entity.TaskDoing, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := v.ValidateTransition(context.Background(), &status.TransitionContext{
				EntityKind:    entity.KindTask,
				EntityID:      "task-1",
				CurrentStatus: tt.from,
				TargetStatus:  tt.to,
				Operation:     "execute",
				StartTime:     time.Now(),
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Valid)
		})
	}
}

func TestTableValidator_EmptyCurrentFallsBackToInitial(t *testing.T) {
	v, err := status.NewTableValidator([]status.Rule{
		{Kind: entity.KindAgent, From: entity.AgentIdle, To: entity.AgentThinking},
	})
	require.NoError(t, err)

	result, err := v.ValidateTransition(context.Background(), &status.TransitionContext{
		EntityKind:   entity.KindAgent,
		EntityID:     "agent-1",
		TargetStatus: entity.AgentThinking,
		Operation:    "think",
		StartTime:    time.Now(),
	})
	require.NoError(t, err)
	assert.True(t, result.Valid)
}

func TestTableValidator_RejectsStatusOutsideEnumeration(t *testing.T) {
	v, err := status.NewTableValidator(nil)
	require.NoError(t, err)

	result, err := v.ValidateTransition(context.Background(), &status.TransitionContext{
		EntityKind:    entity.KindMessage,
		EntityID:      "msg-1",
		CurrentStatus: entity.MessageQueued,
		TargetStatus:  entity.Status("TELEPORTED"),
		Operation:     "deliver",
		StartTime:     time.Now(),
	})
	require.NoError(t, err)
	assert.False(t, result.Valid)
	require.NotEmpty(t, result.Errors)
}

func TestTableValidator_RejectsMalformedRules(t *testing.T) {
	_, err := status.NewTableValidator([]status.Rule{
		{Kind: entity.Kind("robot"), From: entity.TaskPending, To: entity.TaskDoing},
	})
	assert.Error(t, err)

	_, err = status.NewTableValidator([]status.Rule{
		{Kind: entity.KindTask, From: entity.Status("NOPE"), To: entity.TaskDoing},
	})
	assert.Error(t, err)

	_, err = status.NewTableValidator([]status.Rule{
		{Kind: entity.KindTask, From: entity.TaskPending, To: entity.Status("NOPE")},
	})
	assert.Error(t, err)
}

func TestAllowAll(t *testing.T) {
	result, err := status.AllowAll().ValidateTransition(context.Background(), &status.TransitionContext{
		EntityKind:    entity.KindFeedback,
		EntityID:      "fb-1",
		CurrentStatus: entity.FeedbackResolved,
		TargetStatus:  entity.FeedbackPending,
		Operation:     "reopen",
		StartTime:     time.Now(),
	})
	require.NoError(t, err)
	assert.True(t, result.Valid)
}
