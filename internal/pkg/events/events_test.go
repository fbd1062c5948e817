package events

import (
	"testing"

	"github.com/goccy/go-json"
)

func TestLocalDelivery(t *testing.T) {
	h := NewHub(nil, nil)
	var got []Message
	cancel := h.Subscribe(func(m Message) { got = append(got, m) })

	h.Publish(FormCreated, map[string]string{"id": "f1"})
	cancel()
	h.Publish(FormDeleted, map[string]string{"id": "f1"})

	if len(got) != 1 || got[0].Event != FormCreated {
		t.Fatalf("unexpected deliveries %+v", got)
	}
	var payload map[string]string
	if err := json.Unmarshal(got[0].Payload, &payload); err != nil || payload["id"] != "f1" {
		t.Fatalf("payload not preserved: %s", got[0].Payload)
	}
}

func TestNilHubIsNoop(t *testing.T) {
	var h *Hub
	h.Publish(FormCreated, nil)
}
