package utils

import (
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/Miquel-TA/cat-feeder/internal/domain/model"
)

// DonationGenerator produces random donation events for demo mode and tests.
type DonationGenerator struct {
	rng *rand.Rand
}

func NewDonationGenerator() *DonationGenerator {
	return &DonationGenerator{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

var (
	platforms = []string{"tiktok", "twitch", "youtube", "streamlabs"}
	usernames = []string{"whiskers_fan", "tuna_lord", "meowmeow42", "cat_dad", "purrfect_viewer", "nightowl"}
	messages  = []string{
		"feed the cats!",
		"treats incoming",
		"for the fluffy ones",
		"",
		"best stream ever",
	}
	coinAmounts = []int{1, 5, 12, 30, 60, 150}
)

// GenerateRandomDonation creates a single random donation event. The tier is
// left unresolved; the admission edge assigns it.
func (g *DonationGenerator) GenerateRandomDonation() *model.DonationEvent {
	return &model.DonationEvent{
		ID:        uuid.New().String(),
		Platform:  platforms[g.rng.Intn(len(platforms))],
		Username:  usernames[g.rng.Intn(len(usernames))],
		Coins:     coinAmounts[g.rng.Intn(len(coinAmounts))],
		Message:   messages[g.rng.Intn(len(messages))],
		CreatedAt: time.Now(),
	}
}

// GenerateDonations creates a burst of random donation events.
func (g *DonationGenerator) GenerateDonations(count int) []*model.DonationEvent {
	events := make([]*model.DonationEvent, count)
	for i := range events {
		events[i] = g.GenerateRandomDonation()
	}
	return events
}
