package service

import (
	"fmt"
	"sort"

	"github.com/Miquel-TA/cat-feeder/internal/domain/model"
)

// MotorCount is the number of physical motors on the feeder.
const MotorCount = 5

// TierTable resolves a donation coin amount to its configured tier. The
// pipeline never re-derives tiers; resolution happens once, before admission.
type TierTable struct {
	tiers []model.Tier // sorted ascending by Minimum
}

// NewTierTable validates the configured tiers and returns a resolver. At
// least one tier is required and every motor index must address a real motor.
func NewTierTable(tiers []model.Tier) (*TierTable, error) {
	if len(tiers) == 0 {
		return nil, fmt.Errorf("at least one tier is required")
	}
	sorted := make([]model.Tier, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Minimum < sorted[j].Minimum })
	for _, tier := range sorted {
		if tier.MotorIndex < 0 || tier.MotorIndex >= MotorCount {
			return nil, fmt.Errorf("tier %q: motor index %d out of range", tier.Name, tier.MotorIndex)
		}
	}
	return &TierTable{tiers: sorted}, nil
}

// Resolve picks the highest tier whose minimum is covered by the amount.
// Amounts below every minimum fall back to the lowest tier.
func (t *TierTable) Resolve(coins int) model.Tier {
	selected := t.tiers[0]
	for _, tier := range t.tiers {
		if coins >= tier.Minimum {
			selected = tier
		}
	}
	return selected
}

// DefaultTiers builds the stock five-tier table from minimum coin amounts.
func DefaultTiers(minimums []int) []model.Tier {
	messages := []string{
		"Thanks for your kindness!",
		"The cats appreciate your generosity!",
		"You unlocked gourmet treats!",
		"Feast mode activated!",
		"Legendary donor! All cats rejoice!",
	}
	tiers := make([]model.Tier, 0, len(minimums))
	for i, minimum := range minimums {
		msg := "Thank you for supporting the cats!"
		if i < len(messages) {
			msg = messages[i]
		}
		tiers = append(tiers, model.Tier{
			Name:       fmt.Sprintf("Tier %d", i+1),
			Minimum:    minimum,
			MotorIndex: i % MotorCount,
			Animation:  fmt.Sprintf("tier%d", i+1),
			Sound:      fmt.Sprintf("tone:tier%d", i+1),
			Message:    msg,
		})
	}
	return tiers
}
