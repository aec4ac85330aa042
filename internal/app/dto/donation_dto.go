package dto

import (
	"time"

	"github.com/Miquel-TA/cat-feeder/internal/domain/model"
)

// DonationDTO is the wire form of a donation event as produced by the
// upstream collectors onto Kafka. Tier resolution happens on our side, so
// the DTO carries only the raw coin amount.
type DonationDTO struct {
	ID        string    `json:"id"`
	Platform  string    `json:"platform"`
	Username  string    `json:"username"`
	Coins     int       `json:"coins"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// ToModel converts a DonationDTO to a domain event. The tier is left zero;
// the admission edge resolves it before the pipeline sees the event.
func (dto *DonationDTO) ToModel() *model.DonationEvent {
	return &model.DonationEvent{
		ID:        dto.ID,
		Platform:  dto.Platform,
		Username:  dto.Username,
		Coins:     dto.Coins,
		Message:   dto.Message,
		CreatedAt: dto.CreatedAt,
	}
}

// FromModel creates a DonationDTO from a domain event.
func FromModel(event *model.DonationEvent) *DonationDTO {
	return &DonationDTO{
		ID:        event.ID,
		Platform:  event.Platform,
		Username:  event.Username,
		Coins:     event.Coins,
		Message:   event.Message,
		CreatedAt: event.CreatedAt,
	}
}

func FromModels(events []*model.DonationEvent) []*DonationDTO {
	dtos := make([]*DonationDTO, len(events))
	for i, event := range events {
		dtos[i] = FromModel(event)
	}
	return dtos
}
