package dispatcher

import (
	"context"
	"errors"
	"strconv"

	"bistro-server/pkg/constants"
	"bistro-server/pkg/crypto"
	berrors "bistro-server/pkg/errors"
)

const maxMembershipCodeAttempts = 8

// freshMembershipCode assigns a fresh 6-digit membership code, retrying on
// collision with an existing MEMBER (invariant U2).
func (d *Dispatcher) freshMembershipCode(ctx context.Context) (int, error) {
	for i := 0; i < maxMembershipCodeAttempts; i++ {
		code, err := crypto.GenerateRandomInt(constants.MembershipCodeMin, constants.MembershipCodeMax+1)
		if err != nil {
			return 0, err
		}
		if _, err := d.users.GetByMembershipCode(ctx, int(code)); err != nil {
			if errors.Is(err, berrors.ErrUserNotFound) {
				return int(code), nil
			}
			return 0, err
		}
	}
	return 0, berrors.ErrInternal
}

func parseInt(s string) (int, error) {
	return strconv.Atoi(s)
}
