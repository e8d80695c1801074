package notify

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBus(t *testing.T) {
	t.Run("FansOutToSubscribersInOrder", func(t *testing.T) {
		bus := NewBus()
		var got []string

		bus.Subscribe("ping", func(e Event) error {
			got = append(got, "first:"+string(e.Payload))
			return nil
		})
		bus.Subscribe("ping", func(e Event) error {
			got = append(got, "second:"+string(e.Payload))
			return nil
		})
		bus.Subscribe("other", func(e Event) error {
			got = append(got, "other")
			return nil
		})

		bus.Publish(Event{Type: "ping", Payload: []byte("x")})
		assert.Equal(t, []string{"first:x", "second:x"}, got)
	})

	t.Run("PublishJSONMarshalsPayload", func(t *testing.T) {
		bus := NewBus()
		var got map[string]any

		bus.Subscribe("ping", func(e Event) error {
			return json.Unmarshal(e.Payload, &got)
		})

		err := bus.PublishJSON("ping", map[string]any{"id": float64(7)})
		assert.NoError(t, err)
		assert.Equal(t, float64(7), got["id"])
	})

	t.Run("NoSubscribersIsFine", func(t *testing.T) {
		bus := NewBus()
		assert.NoError(t, bus.PublishJSON("silence", struct{}{}))
	})

	t.Run("StampsCreatedAt", func(t *testing.T) {
		bus := NewBus()
		var stamped bool
		bus.Subscribe("ping", func(e Event) error {
			stamped = !e.CreatedAt.IsZero()
			return nil
		})
		bus.Publish(Event{Type: "ping"})
		assert.True(t, stamped)
	})
}
