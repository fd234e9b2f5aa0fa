// Package protocol implements the wire framing decided in SPEC_FULL.md
// §6.1+: a 4-byte big-endian length prefix followed by a JSON envelope
// `{"type": "...", "data": ...}`, carried over the raw TCP connections
// spec.md §6.1 describes.
package protocol

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"bistro-server/pkg/constants"
)

// Envelope is the unit framed over the wire. Data is kept raw so the
// dispatcher can pick the concrete payload type by Type before decoding.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// NewEnvelope marshals data into an Envelope of the given type.
func NewEnvelope(msgType string, data any) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("protocol: marshal payload for %s: %w", msgType, err)
	}
	return Envelope{Type: msgType, Data: raw}, nil
}

// Into unmarshals the envelope's raw payload into target.
func (e Envelope) Into(target any) error {
	if len(e.Data) == 0 {
		return nil
	}
	return json.Unmarshal(e.Data, target)
}

// WriteEnvelope frames and writes one envelope: a 4-byte big-endian length
// prefix over the JSON body.
func WriteEnvelope(w io.Writer, env Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("protocol: marshal envelope: %w", err)
	}
	if len(body) > constants.MaxEnvelopeSize {
		return fmt.Errorf("protocol: envelope of %d bytes exceeds max %d", len(body), constants.MaxEnvelopeSize)
	}

	prefix := make([]byte, constants.EnvelopeLengthSize)
	binary.BigEndian.PutUint32(prefix, uint32(len(body)))
	if _, err := w.Write(prefix); err != nil {
		return fmt.Errorf("protocol: write length prefix: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("protocol: write body: %w", err)
	}
	return nil
}

// WriteValue is a convenience wrapper combining NewEnvelope and
// WriteEnvelope for handlers replying with a typed payload.
func WriteValue(w io.Writer, msgType string, data any) error {
	env, err := NewEnvelope(msgType, data)
	if err != nil {
		return err
	}
	return WriteEnvelope(w, env)
}

// ReadEnvelope reads one length-prefixed JSON envelope from r, rejecting
// any body larger than MaxEnvelopeSize before allocating it.
func ReadEnvelope(r io.Reader) (Envelope, error) {
	prefix := make([]byte, constants.EnvelopeLengthSize)
	if _, err := io.ReadFull(r, prefix); err != nil {
		return Envelope{}, err
	}
	size := binary.BigEndian.Uint32(prefix)
	if size > constants.MaxEnvelopeSize {
		return Envelope{}, fmt.Errorf("protocol: incoming envelope of %d bytes exceeds max %d", size, constants.MaxEnvelopeSize)
	}

	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return Envelope{}, err
	}

	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Envelope{}, fmt.Errorf("protocol: unmarshal envelope: %w", err)
	}
	return env, nil
}
