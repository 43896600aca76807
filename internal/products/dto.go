package products

import (
	"time"

	"github.com/google/uuid"

	"github.com/sharebridge/sharebridge-backend/pkg/db/models"
)

// AvailabilityResult reports the outcome of SetAvailability.
type AvailabilityResult struct {
	Product *models.Product
	// Changed is false when the flag already had the requested value.
	Changed              bool
	PendingApplications  int64
	Cancelled            int
	Failed               int
	NotificationFailures int
}

// ProductDTO is the transport shape of a product.
type ProductDTO struct {
	ID          uuid.UUID `json:"id"`
	ProducerID  uuid.UUID `json:"producer_id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Available   bool      `json:"available"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AvailabilityDTO is the response body of the availability endpoint.
type AvailabilityDTO struct {
	Product              *ProductDTO `json:"product"`
	Changed              bool        `json:"changed"`
	PendingApplications  int64       `json:"pending_applications"`
	Cancelled            int         `json:"cancelled_applications"`
	Failed               int         `json:"failed_applications"`
	NotificationFailures int         `json:"notification_failures"`
}

func FromModel(p *models.Product) *ProductDTO {
	if p == nil {
		return nil
	}
	return &ProductDTO{
		ID:          p.ID,
		ProducerID:  p.ProducerID,
		Name:        p.Name,
		Description: p.Description,
		Available:   p.Available,
		UpdatedAt:   p.UpdatedAt,
	}
}

func AvailabilityFromResult(res *AvailabilityResult) *AvailabilityDTO {
	if res == nil {
		return nil
	}
	return &AvailabilityDTO{
		Product:              FromModel(res.Product),
		Changed:              res.Changed,
		PendingApplications:  res.PendingApplications,
		Cancelled:            res.Cancelled,
		Failed:               res.Failed,
		NotificationFailures: res.NotificationFailures,
	}
}
