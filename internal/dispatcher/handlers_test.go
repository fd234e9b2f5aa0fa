package dispatcher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bistro-server/internal/protocol"
	berrors "bistro-server/pkg/errors"
)

func TestRoute_UnknownTag(t *testing.T) {
	d := &Dispatcher{}
	_, err := d.route(context.Background(), &connState{}, protocol.Envelope{Type: "NOT_A_REAL_TAG"})
	assert.ErrorIs(t, err, berrors.ErrInvalidInput)
}

func TestErrorEnvelope_DomainError(t *testing.T) {
	env := errorEnvelope(berrors.ErrForbidden)
	assert.Equal(t, "ERROR", env.Type)

	var decoded berrors.Error
	require.NoError(t, env.Into(&decoded))
	assert.Equal(t, "FORBIDDEN", decoded.Code)
}

func TestErrorEnvelope_UnknownErrorFallsBackToInternal(t *testing.T) {
	env := errorEnvelope(assert.AnError)
	var decoded berrors.Error
	require.NoError(t, env.Into(&decoded))
	assert.Equal(t, "INTERNAL_ERROR", decoded.Code)
}

func TestParseInt(t *testing.T) {
	n, err := parseInt("123456")
	require.NoError(t, err)
	assert.Equal(t, 123456, n)

	_, err = parseInt("not-a-number")
	assert.Error(t, err)
}
