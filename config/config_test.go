package config

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	if cfg.MinAlertGap != 8*time.Second {
		t.Errorf("got MinAlertGap %v, want 8s", cfg.MinAlertGap)
	}
	if cfg.QueueCapacity != 100 {
		t.Errorf("got QueueCapacity %d, want 100", cfg.QueueCapacity)
	}
	if cfg.MaxAttempts != 3 {
		t.Errorf("got MaxAttempts %d, want 3", cfg.MaxAttempts)
	}
	if !cfg.SleepEnabled {
		t.Error("sleep mode should be enabled by default")
	}
	if cfg.SleepStart != "23:00" || cfg.SleepEnd != "06:00" {
		t.Errorf("got sleep window %s-%s, want 23:00-06:00", cfg.SleepStart, cfg.SleepEnd)
	}
	if len(cfg.TierMinimums) != 5 || cfg.TierMinimums[0] != 1 || cfg.TierMinimums[4] != 100 {
		t.Errorf("got TierMinimums %v, want [1 10 25 50 100]", cfg.TierMinimums)
	}
	if len(cfg.KafkaBrokers) != 0 {
		t.Errorf("got KafkaBrokers %v, want none by default", cfg.KafkaBrokers)
	}
	if cfg.ActuatorAddr != "localhost:9600" {
		t.Errorf("got ActuatorAddr %q, want localhost:9600", cfg.ActuatorAddr)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("MIN_ALERT_GAP", "12s")
	t.Setenv("QUEUE_CAPACITY", "50")
	t.Setenv("SLEEP_MODE_ENABLED", "false")
	t.Setenv("TIER_MINIMUMS", "5, 20, 40, 80, 160")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("SUPPRESS_VISUAL_DURING_SLEEP", "true")

	cfg := LoadConfig()

	if cfg.MinAlertGap != 12*time.Second {
		t.Errorf("got MinAlertGap %v, want 12s", cfg.MinAlertGap)
	}
	if cfg.QueueCapacity != 50 {
		t.Errorf("got QueueCapacity %d, want 50", cfg.QueueCapacity)
	}
	if cfg.SleepEnabled {
		t.Error("expected sleep mode disabled")
	}
	want := []int{5, 20, 40, 80, 160}
	if len(cfg.TierMinimums) != len(want) {
		t.Fatalf("got TierMinimums %v, want %v", cfg.TierMinimums, want)
	}
	for i, v := range want {
		if cfg.TierMinimums[i] != v {
			t.Errorf("TierMinimums[%d] = %d, want %d", i, cfg.TierMinimums[i], v)
		}
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "broker2:9092" {
		t.Errorf("got KafkaBrokers %v, want two brokers", cfg.KafkaBrokers)
	}
	if !cfg.SuppressVisual {
		t.Error("expected visual suppression enabled")
	}
}

func TestLoadConfigIgnoresMalformedValues(t *testing.T) {
	t.Setenv("QUEUE_CAPACITY", "many")
	t.Setenv("MIN_ALERT_GAP", "soon")
	t.Setenv("TIER_MINIMUMS", "1,two,3")

	cfg := LoadConfig()

	if cfg.QueueCapacity != 100 {
		t.Errorf("got QueueCapacity %d, want default 100", cfg.QueueCapacity)
	}
	if cfg.MinAlertGap != 8*time.Second {
		t.Errorf("got MinAlertGap %v, want default 8s", cfg.MinAlertGap)
	}
	if len(cfg.TierMinimums) != 5 {
		t.Errorf("got TierMinimums %v, want defaults", cfg.TierMinimums)
	}
}
