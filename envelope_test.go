package warden

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelope_WriterAndDecoder(t *testing.T) {
	var buf bytes.Buffer
	w := newEnvelopeWriter(&buf)

	task, err := newTaskEnvelope("id-1", map[string]string{"cmd": "store"})
	require.NoError(t, err)
	require.NoError(t, w.write(task))
	require.NoError(t, w.write(envelope{Kind: kindShutdown}))

	dec := json.NewDecoder(&buf)

	var first envelope
	require.NoError(t, dec.Decode(&first))
	assert.Equal(t, kindTask, first.Kind)
	assert.Equal(t, "id-1", first.ID)
	assert.JSONEq(t, `{"cmd":"store"}`, string(first.Payload))

	var second envelope
	require.NoError(t, dec.Decode(&second))
	assert.Equal(t, kindShutdown, second.Kind)
}

func TestEnvelope_ErrorCarriesOnlyMessage(t *testing.T) {
	env := newErrorEnvelope("id-2", assert.AnError)
	assert.Equal(t, kindError, env.Kind)
	assert.Equal(t, assert.AnError.Error(), env.Error)
	assert.Empty(t, env.Payload)
}

func TestEnvelope_UnmarshalableTask(t *testing.T) {
	_, err := newTaskEnvelope("id-3", make(chan int))
	assert.Error(t, err)
}
