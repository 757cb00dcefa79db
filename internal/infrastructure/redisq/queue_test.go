package redisq

import (
	"encoding/json"
	"testing"

	"aggregator/internal/domain/event"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newDelivery is pure body parsing; no redis connection is exercised here.

func TestNewDeliveryWrappedEntry(t *testing.T) {
	q := New(nil, Config{})

	envRaw, err := (&event.Envelope{Topic: "t", EventID: "e-1", Payload: []byte(`{"v":1}`)}).Encode()
	require.NoError(t, err)
	body, err := json.Marshal(entry{ID: "d-1", Envelope: envRaw})
	require.NoError(t, err)

	d := q.newDelivery(string(body))
	require.NotNil(t, d.Envelope)
	assert.Equal(t, "t/e-1", d.Envelope.DedupKey().String())
	assert.JSONEq(t, string(envRaw), string(d.Raw))
}

func TestNewDeliveryBareEnvelope(t *testing.T) {
	q := New(nil, Config{})

	body := `{"topic":"t","event_id":"e-2","source":"foreign","payload":{"v":2}}`
	d := q.newDelivery(body)
	require.NotNil(t, d.Envelope, "a bare envelope without the wrapper must not be treated as poison")
	assert.Equal(t, "t/e-2", d.Envelope.DedupKey().String())
	assert.Equal(t, body, string(d.Raw))
}

func TestNewDeliveryGarbageIsPoison(t *testing.T) {
	q := New(nil, Config{})

	d := q.newDelivery(`not json at all`)
	assert.Nil(t, d.Envelope)
	assert.Equal(t, "not json at all", string(d.Raw), "raw bytes are kept for the poison log")

	d = q.newDelivery(`{"topic":"t"}`)
	assert.Nil(t, d.Envelope, "no dedup key is derivable without an event_id")
	assert.NotEmpty(t, d.Raw)
}
