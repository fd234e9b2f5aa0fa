package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from OrderStatus
		to   OrderStatus
		want bool
	}{
		{"pending to seated on arrival", StatusPending, StatusSeated, true},
		{"pending to no show when late", StatusPending, StatusNoShow, true},
		{"pending to cancelled", StatusPending, StatusCancelled, true},
		{"waiting to notified on promotion", StatusWaiting, StatusNotified, true},
		{"waiting to cancelled when late", StatusWaiting, StatusCancelled, true},
		{"seated to billed", StatusSeated, StatusBilled, true},
		{"seated to completed on payment", StatusSeated, StatusCompleted, true},
		{"billed to completed on payment", StatusBilled, StatusCompleted, true},
		{"completed is terminal", StatusCompleted, StatusSeated, false},
		{"cancelled is terminal", StatusCancelled, StatusPending, false},
		{"no_show is terminal", StatusNoShow, StatusPending, false},
		{"waiting cannot jump straight to seated", StatusWaiting, StatusSeated, false},
		{"billed cannot revert to seated", StatusBilled, StatusSeated, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestOrderStatus_IsActiveIsTerminal(t *testing.T) {
	for _, s := range ActiveStatuses {
		assert.True(t, s.IsActive(), "%s should be active", s)
		assert.False(t, s.IsTerminal(), "%s should not be terminal", s)
	}
	for _, s := range TerminalStatuses {
		assert.False(t, s.IsActive(), "%s should not be active", s)
		assert.True(t, s.IsTerminal(), "%s should be terminal", s)
	}
}
