package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"bistro-server/internal/domain"
)

func TestActiveAndTerminalStatusStrings(t *testing.T) {
	assert.ElementsMatch(t, []string{"PENDING", "WAITING", "NOTIFIED", "SEATED", "BILLED"}, activeStatusStrings())
	assert.ElementsMatch(t, []string{"COMPLETED", "CANCELLED", "NO_SHOW"}, terminalStatusStrings())
}

func TestScanOrder_NullableSubscriberIDMeansGuest(t *testing.T) {
	// Guards the mapping convention in scanOrder: a NULL subscriber_id must
	// surface as domain.Order.MemberID == 0 (spec.md §3's "0 for guest").
	var memberID int64
	var subscriberID *int64
	if subscriberID != nil {
		memberID = *subscriberID
	}
	assert.Equal(t, int64(0), memberID)
	assert.True(t, domain.Order{}.IsGuest())
}
