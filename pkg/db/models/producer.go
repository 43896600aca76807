package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Producer holds the pickup address shown to receivers once a donation is ready.
type Producer struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID       uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	CompanyName  string    `gorm:"column:company_name;not null"`
	Street       string    `gorm:"column:street;not null"`
	StreetNumber string    `gorm:"column:street_number;not null"`
	Zipcode      *string   `gorm:"column:zipcode"`
	City         string    `gorm:"column:city;not null"`
	Products     []Product `gorm:"foreignKey:ProducerID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Producer) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// PickupAddress renders "{street} {number}, {zipcode} {city}", dropping the zipcode when absent.
func (p Producer) PickupAddress() string {
	street := strings.TrimSpace(fmt.Sprintf("%s %s", p.Street, p.StreetNumber))
	if p.Zipcode != nil && strings.TrimSpace(*p.Zipcode) != "" {
		return fmt.Sprintf("%s, %s %s", street, strings.TrimSpace(*p.Zipcode), p.City)
	}
	return fmt.Sprintf("%s, %s", street, p.City)
}
