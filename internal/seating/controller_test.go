package seating

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"bistro-server/internal/domain"
)

func TestFinalPriceCents(t *testing.T) {
	stored := int64(1000)
	tests := []struct {
		name       string
		order      domain.Order
		sessionID  int64
		sessionRole domain.Role
		want       int64
	}{
		{
			name:       "non-member session pays full stored price",
			order:      domain.Order{Guests: 4, MemberID: 7, TotalPrice: &stored},
			sessionID:  7,
			sessionRole: domain.RoleGuest,
			want:       1000,
		},
		{
			name:       "member session on someone else's order pays full price",
			order:      domain.Order{Guests: 4, MemberID: 7, TotalPrice: &stored},
			sessionID:  9,
			sessionRole: domain.RoleMember,
			want:       1000,
		},
		{
			name:       "owning member gets 10% off stored price",
			order:      domain.Order{Guests: 4, MemberID: 7, TotalPrice: &stored},
			sessionID:  7,
			sessionRole: domain.RoleMember,
			want:       900,
		},
		{
			name:       "owning member on unset total price falls back to guests*100",
			order:      domain.Order{Guests: 3, MemberID: 7},
			sessionID:  7,
			sessionRole: domain.RoleMember,
			want:       270,
		},
		{
			name:       "guest order (memberID 0) never discounts",
			order:      domain.Order{Guests: 2, MemberID: 0, TotalPrice: &stored},
			sessionID:  0,
			sessionRole: domain.RoleGuest,
			want:       1000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := finalPriceCents(tt.order, tt.sessionID, tt.sessionRole)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFinalPriceCents_RoundsHalfUp(t *testing.T) {
	// 101 cents * 0.9 = 90.9 -> rounds to 91.
	price := int64(101)
	got := finalPriceCents(domain.Order{Guests: 1, MemberID: 5, TotalPrice: &price}, 5, domain.RoleMember)
	assert.Equal(t, int64(91), got)
}
