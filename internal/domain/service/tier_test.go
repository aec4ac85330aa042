package service_test

import (
	"testing"

	"github.com/Miquel-TA/cat-feeder/internal/domain/model"
	"github.com/Miquel-TA/cat-feeder/internal/domain/service"
)

func TestTierTableResolve(t *testing.T) {
	table, err := service.NewTierTable(service.DefaultTiers([]int{1, 10, 25, 50, 100}))
	if err != nil {
		t.Fatalf("failed to build tier table: %v", err)
	}

	cases := []struct {
		coins     int
		wantTier  string
		wantMotor int
	}{
		{coins: 1, wantTier: "Tier 1", wantMotor: 0},
		{coins: 9, wantTier: "Tier 1", wantMotor: 0},
		{coins: 10, wantTier: "Tier 2", wantMotor: 1},
		{coins: 24, wantTier: "Tier 2", wantMotor: 1},
		{coins: 25, wantTier: "Tier 3", wantMotor: 2},
		{coins: 50, wantTier: "Tier 4", wantMotor: 3},
		{coins: 99, wantTier: "Tier 4", wantMotor: 3},
		{coins: 100, wantTier: "Tier 5", wantMotor: 4},
		{coins: 100000, wantTier: "Tier 5", wantMotor: 4},
	}
	for _, tc := range cases {
		got := table.Resolve(tc.coins)
		if got.Name != tc.wantTier {
			t.Errorf("Resolve(%d): got tier %q, want %q", tc.coins, got.Name, tc.wantTier)
		}
		if got.MotorIndex != tc.wantMotor {
			t.Errorf("Resolve(%d): got motor %d, want %d", tc.coins, got.MotorIndex, tc.wantMotor)
		}
	}
}

func TestTierTableBelowEveryMinimum(t *testing.T) {
	table, err := service.NewTierTable([]model.Tier{
		{Name: "small", Minimum: 10, MotorIndex: 0},
		{Name: "big", Minimum: 100, MotorIndex: 4},
	})
	if err != nil {
		t.Fatalf("failed to build tier table: %v", err)
	}
	if got := table.Resolve(3); got.Name != "small" {
		t.Errorf("expected fallback to lowest tier, got %q", got.Name)
	}
}

func TestTierTableSortsUnorderedInput(t *testing.T) {
	table, err := service.NewTierTable([]model.Tier{
		{Name: "big", Minimum: 100, MotorIndex: 4},
		{Name: "small", Minimum: 1, MotorIndex: 0},
		{Name: "mid", Minimum: 25, MotorIndex: 2},
	})
	if err != nil {
		t.Fatalf("failed to build tier table: %v", err)
	}
	if got := table.Resolve(30); got.Name != "mid" {
		t.Errorf("Resolve(30): got %q, want mid", got.Name)
	}
}

func TestTierTableValidation(t *testing.T) {
	if _, err := service.NewTierTable(nil); err == nil {
		t.Error("expected error for empty tier list")
	}
	if _, err := service.NewTierTable([]model.Tier{{Name: "bad", Minimum: 1, MotorIndex: 5}}); err == nil {
		t.Error("expected error for motor index out of range")
	}
	if _, err := service.NewTierTable([]model.Tier{{Name: "bad", Minimum: 1, MotorIndex: -1}}); err == nil {
		t.Error("expected error for negative motor index")
	}
}
