package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sharebridge/sharebridge-backend/pkg/enums"
)

// Application is a receiver's request to receive one product.
type Application struct {
	ID             uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	ReceiverID     uuid.UUID               `gorm:"column:receiver_id;type:uuid;not null;index"`
	ProductID      uuid.UUID               `gorm:"column:product_id;type:uuid;not null;index"`
	Motivation     string                  `gorm:"column:motivation;type:text;not null"`
	Status         enums.ApplicationStatus `gorm:"column:status;type:text;not null"`
	DateOfDonation *time.Time              `gorm:"column:date_of_donation"`
	UnitID         *string                 `gorm:"column:unit_id;uniqueIndex:ux_applications_unit_id"`
	Version        int64                   `gorm:"column:version;not null"`
	CreatedAt      time.Time               `gorm:"column:created_at;not null"`
	LastModified   time.Time               `gorm:"column:last_modified;not null"`
}

func (Application) TableName() string {
	return "applications"
}

// BeforeCreate assigns the identifier client-side so inserts work on every driver.
func (a *Application) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
