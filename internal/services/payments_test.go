package services

import (
	"errors"
	"testing"

	"github.com/stripe/stripe-go/v82/webhook"
)

const testWebhookSecret = "whsec_test_secret"

func TestStripeGateway_ParseWebhook(t *testing.T) {
	g := NewStripeGateway("sk_test_dummy", testWebhookSecret)
	payload := []byte(`{
		"id": "evt_1",
		"object": "event",
		"type": "checkout.session.completed",
		"api_version": "2020-08-27",
		"data": {"object": {"id": "cs_1", "object": "checkout.session",
			"metadata": {"userId": "u1", "orderIds": "[\"a\",\"b\"]"}}}
	}`)
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: payload, Secret: testWebhookSecret})

	ev, err := g.ParseWebhook(signed.Payload, signed.Header)
	if err != nil {
		t.Fatalf("ParseWebhook failed: %v", err)
	}
	if ev.ID != "evt_1" || ev.Type != EventCheckoutCompleted || ev.SessionID != "cs_1" {
		t.Fatalf("unexpected event %+v", ev)
	}
	if ev.Metadata["orderIds"] != `["a","b"]` {
		t.Fatalf("metadata not decoded: %v", ev.Metadata)
	}
}

func TestStripeGateway_RejectsBadSignature(t *testing.T) {
	g := NewStripeGateway("sk_test_dummy", testWebhookSecret)
	payload := []byte(`{"id":"evt_2","object":"event","type":"checkout.session.completed"}`)
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: payload, Secret: "whsec_other"})
	if _, err := g.ParseWebhook(signed.Payload, signed.Header); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
	if _, err := g.ParseWebhook(payload, ""); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature for missing header, got %v", err)
	}
}
