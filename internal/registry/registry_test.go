package registry

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bistro-server/internal/domain"
	"bistro-server/internal/protocol"
)

func TestBroadcast_ReachesAllRegisteredConnections(t *testing.T) {
	r := New(nil, nil)

	var bufA, bufB bytes.Buffer
	r.Register(domain.ConnectionHandle("a"), &bufA)
	r.Register(domain.ConnectionHandle("b"), &bufB)

	env, err := protocol.NewEnvelope("TABLE_READY", map[string]any{"orderId": 42})
	require.NoError(t, err)
	r.Broadcast(env)

	assert.Positive(t, bufA.Len())
	assert.Positive(t, bufB.Len())
}

func TestDeregister_StopsFutureBroadcasts(t *testing.T) {
	r := New(nil, nil)

	var buf bytes.Buffer
	r.Register(domain.ConnectionHandle("a"), &buf)
	r.Deregister(domain.ConnectionHandle("a"))

	env, err := protocol.NewEnvelope("PING", nil)
	require.NoError(t, err)
	r.Broadcast(env)

	assert.Equal(t, 0, buf.Len())
}

func TestCount(t *testing.T) {
	r := New(nil, nil)
	assert.Equal(t, 0, r.Count())
	r.Register(domain.ConnectionHandle("a"), &bytes.Buffer{})
	assert.Equal(t, 1, r.Count())
}
