package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type productPayload struct {
	ID    string `json:"id"`
	Price int64  `json:"price"`
}

func TestNewEvent_RoundTrip(t *testing.T) {
	event, err := NewEvent("product.updated", "prod-1", "product", "catalog-service", productPayload{ID: "prod-1", Price: 4200})
	require.NoError(t, err)
	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, 1, event.Version)
	assert.False(t, event.Timestamp.IsZero())

	raw, err := event.Marshal()
	require.NoError(t, err)

	decoded, err := UnmarshalEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, event.EventID, decoded.EventID)
	assert.Equal(t, "product.updated", decoded.EventType)

	var payload productPayload
	require.NoError(t, decoded.UnmarshalData(&payload))
	assert.Equal(t, int64(4200), payload.Price)
}

func TestNewEvent_InvalidData(t *testing.T) {
	_, err := NewEvent("product.updated", "prod-1", "product", "catalog-service", make(chan int))
	assert.ErrorContains(t, err, "marshal event data")
}

func TestUnmarshalEvent_Rejects(t *testing.T) {
	tests := map[string]string{
		"invalid json":       "{not json",
		"empty":              "",
		"missing event type": `{"event_id":"e1","data":{}}`,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := UnmarshalEvent([]byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestEvent_UnmarshalData_Empty(t *testing.T) {
	event := &Event{EventID: "e1", EventType: "catalog.bulk_updated"}
	var target map[string]any
	assert.Error(t, event.UnmarshalData(&target))
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "catalog.product.events", Topic("product", "events"))
}
