package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product is an item a producer offers for donation.
type Product struct {
	ID           uuid.UUID     `gorm:"column:id;type:uuid;primaryKey"`
	ProducerID   uuid.UUID     `gorm:"column:producer_id;type:uuid;not null;index"`
	Name         string        `gorm:"column:name;not null"`
	Description  *string       `gorm:"column:description"`
	Available    bool          `gorm:"column:available;not null"`
	Applications []Application `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time     `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time     `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
