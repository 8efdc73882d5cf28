package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "meldeamt/pkg/domain-errors"
)

func TestStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from Status
		to   Status
		want bool
	}{
		{StatusPendingApproval, StatusProcessing, true},
		{StatusProcessing, StatusIngested, true},
		{StatusIngested, StatusQualityOK, true},
		{StatusIngested, StatusWaitingForHuman, true},
		{StatusQualityOK, StatusRulesPassed, true},
		{StatusQualityOK, StatusWaitingForHuman, true},
		{StatusWaitingForHuman, StatusQualityOK, true},
		{StatusRulesPassed, StatusUpdated, true},
		{StatusUpdated, StatusClosed, true},
		{StatusError, StatusProcessing, true},

		// No skipping forward or moving backward.
		{StatusIngested, StatusRulesPassed, false},
		{StatusClosed, StatusIngested, false},
		{StatusRulesPassed, StatusQualityOK, false},
		{StatusWaitingForHuman, StatusRulesPassed, false},

		// ERROR reachable from any non-terminal state only.
		{StatusIngested, StatusError, true},
		{StatusWaitingForHuman, StatusError, true},
		{StatusClosed, StatusError, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestNewCase(t *testing.T) {
	now := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)

	t.Run("valid intake", func(t *testing.T) {
		c, err := NewCase("Max Mustermann", "1990-05-01", "max@example.com",
			"Alte Str. 1, 10115 Berlin", "Musterstr 12a, 67264 KL",
			"2025-03-01", "Vermieter GmbH", StatusPendingApproval, now)
		require.NoError(t, err)
		assert.Equal(t, StatusPendingApproval, c.Status)
		assert.True(t, c.ID.IsZero(), "store assigns the ID")
		assert.Equal(t, now, c.CreatedAt)
	})

	t.Run("missing email rejected", func(t *testing.T) {
		_, err := NewCase("Max", "1990-05-01", "", "a", "b", "2025-03-01", "", StatusPendingApproval, now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("missing new address rejected", func(t *testing.T) {
		_, err := NewCase("Max", "1990-05-01", "max@example.com", "a", "", "2025-03-01", "", StatusPendingApproval, now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func TestCase_IsPaused(t *testing.T) {
	c := &Case{Status: StatusWaitingForHuman}
	assert.True(t, c.IsPaused())
	c.Status = StatusQualityOK
	assert.False(t, c.IsPaused())
}
