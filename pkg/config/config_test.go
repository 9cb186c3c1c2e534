package config

import (
	"testing"
	"time"
)

func TestLoadOrderDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/orders")

	cfg, err := LoadOrder()
	if err != nil {
		t.Fatalf("LoadOrder failed: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.RabbitURL != defaultRabbitURL {
		t.Errorf("unexpected rabbit url %s", cfg.RabbitURL)
	}
	if cfg.CacheTTL != 30*time.Second {
		t.Errorf("expected 30s cache ttl, got %v", cfg.CacheTTL)
	}
	if cfg.OnError != PolicyAck {
		t.Errorf("expected ack policy default, got %s", cfg.OnError)
	}
}

func TestLoadOrderRequiresDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	if _, err := LoadOrder(); err == nil {
		t.Error("expected an error without DATABASE_URL")
	}
}

func TestLoadPaymentOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/payments")
	t.Setenv("PORT", "9000")
	t.Setenv("CHARGE_SUCCESS_RATE", "0.5")
	t.Setenv("ON_HANDLER_ERROR", "requeue")

	cfg, err := LoadPayment()
	if err != nil {
		t.Fatalf("LoadPayment failed: %v", err)
	}
	if cfg.Port != "9000" {
		t.Errorf("expected port 9000, got %s", cfg.Port)
	}
	if cfg.ChargeSuccessRate != 0.5 {
		t.Errorf("expected success rate 0.5, got %v", cfg.ChargeSuccessRate)
	}
	if cfg.OnError != PolicyRequeue {
		t.Errorf("expected requeue policy, got %s", cfg.OnError)
	}
}

func TestGetenvHelpersFallBackOnBadValues(t *testing.T) {
	t.Setenv("CACHE_TTL", "not-a-duration")
	t.Setenv("CHARGE_SUCCESS_RATE", "not-a-float")

	if d := GetenvDuration("CACHE_TTL", time.Minute); d != time.Minute {
		t.Errorf("expected fallback duration, got %v", d)
	}
	if f := GetenvFloat("CHARGE_SUCCESS_RATE", 0.8); f != 0.8 {
		t.Errorf("expected fallback float, got %v", f)
	}
}

func TestLoadNotificationNeedsNoDatabase(t *testing.T) {
	cfg, err := LoadNotification()
	if err != nil {
		t.Fatalf("LoadNotification failed: %v", err)
	}
	if cfg.Port != "8083" {
		t.Errorf("expected default port 8083, got %s", cfg.Port)
	}
}
