package producers

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sharebridge/sharebridge-backend/pkg/db/models"
)

// Repository reads producer records (company and pickup address).
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a producer profile.
func (r *Repository) Create(ctx context.Context, producer *models.Producer) error {
	return r.db.WithContext(ctx).Create(producer).Error
}

// FindByProductID returns the producer that owns productID.
func (r *Repository) FindByProductID(ctx context.Context, productID uuid.UUID) (*models.Producer, error) {
	var producer models.Producer
	err := r.db.WithContext(ctx).
		Joins("JOIN products ON products.producer_id = producers.id").
		Where("products.id = ?", productID).
		First(&producer).Error
	if err != nil {
		return nil, err
	}
	return &producer, nil
}

// FindByUserID returns the producer profile of a producer account.
func (r *Repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Producer, error) {
	var producer models.Producer
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&producer).Error; err != nil {
		return nil, err
	}
	return &producer, nil
}
