package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"bistro-server/internal/domain"
)

const defaultTestTTL = 5 * time.Minute

func TestRequireStaff(t *testing.T) {
	assert.NoError(t, RequireStaff(domain.User{Role: domain.RoleWorker}))
	assert.NoError(t, RequireStaff(domain.User{Role: domain.RoleManager}))
	assert.Error(t, RequireStaff(domain.User{Role: domain.RoleMember}))
	assert.Error(t, RequireStaff(domain.User{Role: domain.RoleGuest}))
}

func TestRequireManager(t *testing.T) {
	assert.NoError(t, RequireManager(domain.User{Role: domain.RoleManager}))
	assert.Error(t, RequireManager(domain.User{Role: domain.RoleWorker}))
}

func TestRequireOwnerOrContact(t *testing.T) {
	memberOrder := domain.Order{MemberID: 42}
	assert.NoError(t, RequireOwnerOrContact(memberOrder, 42, "", ""))
	assert.Error(t, RequireOwnerOrContact(memberOrder, 7, "", ""))

	guestOrder := domain.Order{Contact: domain.Contact{Phone: "555-1212", Email: "a@b.com"}}
	assert.NoError(t, RequireOwnerOrContact(guestOrder, 0, "555-1212", ""))
	assert.NoError(t, RequireOwnerOrContact(guestOrder, 0, "", "a@b.com"))
	assert.Error(t, RequireOwnerOrContact(guestOrder, 0, "wrong", "wrong@b.com"))
	assert.Error(t, RequireOwnerOrContact(guestOrder, 0, "", ""))
}

func TestQRSigner_RoundTrip(t *testing.T) {
	signer := NewQRSigner("test-secret", defaultTestTTL)
	token, err := signer.Sign(123456)
	assert.NoError(t, err)

	code, err := signer.Verify(token)
	assert.NoError(t, err)
	assert.Equal(t, 123456, code)
}

func TestQRSigner_RejectsWrongSecret(t *testing.T) {
	signer := NewQRSigner("test-secret", defaultTestTTL)
	token, err := signer.Sign(123456)
	assert.NoError(t, err)

	other := NewQRSigner("different-secret", defaultTestTTL)
	_, err = other.Verify(token)
	assert.Error(t, err)
}
