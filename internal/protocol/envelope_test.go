package protocol

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func TestWriteReadEnvelope_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	err := WriteValue(&buf, "LOGIN", loginRequest{Username: "alice", Password: "secret"})
	require.NoError(t, err)

	env, err := ReadEnvelope(&buf)
	require.NoError(t, err)
	assert.Equal(t, "LOGIN", env.Type)

	var got loginRequest
	require.NoError(t, env.Into(&got))
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, "secret", got.Password)
}

func TestReadEnvelope_MultipleMessagesInSequence(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteValue(&buf, "PING", nil))
	require.NoError(t, WriteValue(&buf, "PONG", nil))

	first, err := ReadEnvelope(&buf)
	require.NoError(t, err)
	assert.Equal(t, "PING", first.Type)

	second, err := ReadEnvelope(&buf)
	require.NoError(t, err)
	assert.Equal(t, "PONG", second.Type)
}

func TestReadEnvelope_RejectsOversizedLength(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0x7F, 0xFF, 0xFF, 0xFF}) // absurd length prefix, no body follows
	_, err := ReadEnvelope(&buf)
	assert.Error(t, err)
}
