package stripe

import (
	"context"
	"testing"

	"github.com/avalogan/silkstrands-backend/pkg/config"
)

func TestNewClientRequiresSecrets(t *testing.T) {
	_, err := NewClient(context.Background(), config.StripeConfig{}, nil)
	if err == nil {
		t.Fatalf("expected error without secret key")
	}

	_, err = NewClient(context.Background(), config.StripeConfig{SecretKey: "sk_test_abc"}, nil)
	if err == nil {
		t.Fatalf("expected error without webhook secret")
	}
}

func TestNewClientValidatesKeyEnvironment(t *testing.T) {
	cfg := config.StripeConfig{
		SecretKey:     "sk_live_abc",
		WebhookSecret: "whsec_x",
		Env:           "test",
	}
	if _, err := NewClient(context.Background(), cfg, nil); err == nil {
		t.Fatalf("live key must be rejected in test env")
	}

	cfg.SecretKey = "sk_test_abc"
	client, err := NewClient(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.Environment() != "test" {
		t.Fatalf("unexpected environment %q", client.Environment())
	}
	if client.SigningSecret() != "whsec_x" {
		t.Fatalf("unexpected signing secret")
	}
}

func TestNewClientRejectsUnknownEnvironment(t *testing.T) {
	cfg := config.StripeConfig{
		SecretKey:     "sk_test_abc",
		WebhookSecret: "whsec_x",
		Env:           "staging",
	}
	if _, err := NewClient(context.Background(), cfg, nil); err == nil {
		t.Fatalf("expected invalid environment error")
	}
}
