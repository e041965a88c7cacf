package outbox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildMessage(t *testing.T) {
	event := Event{
		ID:           7,
		Topic:        "fitness_records",
		EventType:    "record.logged",
		PartitionKey: "owner-1",
		Payload:      []byte(`{"record_id":"abc"}`),
	}

	msg := BuildMessage(event)
	require.Equal(t, []byte("owner-1"), msg.Key)
	require.JSONEq(t, `{"record_id":"abc"}`, string(msg.Value))
	require.Len(t, msg.Headers, 1)
	require.Equal(t, "event_type", msg.Headers[0].Key)
	require.Equal(t, []byte("record.logged"), msg.Headers[0].Value)
}
