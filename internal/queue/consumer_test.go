package queue

import (
	"context"
	"encoding/json"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestHandleOrderEvent(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	log := zap.New(core)

	body, _ := json.Marshal(OrderEvent{Type: OrderEventPaid, OrderID: "o1", Status: "processing", QRStyle: "animals_panda"})
	if err := HandleOrderEvent(body, log); err != nil {
		t.Fatalf("HandleOrderEvent failed: %v", err)
	}
	entries := logs.FilterMessage("order ready for fulfillment").All()
	if len(entries) != 1 {
		t.Fatalf("expected one log entry, got %d", len(entries))
	}
	if entries[0].ContextMap()["qr_style"] != "animals_panda" {
		t.Fatalf("unexpected fields: %v", entries[0].ContextMap())
	}
}

func TestHandleOrderEvent_Rejects(t *testing.T) {
	log := zap.NewNop()
	if err := HandleOrderEvent([]byte("{not json"), log); err == nil {
		t.Fatalf("expected unmarshal error")
	}
	if err := HandleOrderEvent([]byte(`{"type":"order.paid"}`), log); err == nil {
		t.Fatalf("expected error for missing orderId")
	}
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	if err := p.PublishOrderEvent(context.Background(), OrderEvent{OrderID: "x"}); err != nil {
		t.Fatalf("nop publisher returned %v", err)
	}
}
