package applications

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sharebridge/sharebridge-backend/pkg/db/models"
	"github.com/sharebridge/sharebridge-backend/pkg/enums"
	"github.com/sharebridge/sharebridge-backend/pkg/pagination"
)

// ErrConcurrentModification is returned when a write targets a stale version.
var ErrConcurrentModification = errors.New("application was modified concurrently")

// Repository defines persistence operations for applications.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Application, error)
	FindByUnitID(ctx context.Context, unitID string) (*models.Application, error)
	Create(ctx context.Context, app *models.Application) error
	Save(ctx context.Context, app *models.Application, expectedVersion int64) error
	Delete(ctx context.Context, id uuid.UUID, expectedVersion int64) error
	ListOpenByProduct(ctx context.Context, productID uuid.UUID) ([]models.Application, error)
	CountByProductAndStatus(ctx context.Context, productID uuid.UUID, status enums.ApplicationStatus) (int64, error)
	HasActiveForReceiver(ctx context.Context, receiverID, productID uuid.UUID) (bool, error)
	ListByReceiver(ctx context.Context, receiverID uuid.UUID, params pagination.Params) (*ApplicationList, error)
	ListByProduct(ctx context.Context, productID uuid.UUID, params pagination.Params) (*ApplicationList, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an applications repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	var app models.Application
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&app).Error; err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *repository) FindByUnitID(ctx context.Context, unitID string) (*models.Application, error) {
	var app models.Application
	if err := r.db.WithContext(ctx).Where("unit_id = ?", unitID).First(&app).Error; err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *repository) Create(ctx context.Context, app *models.Application) error {
	return r.db.WithContext(ctx).Create(app).Error
}

// Save writes the mutable fields of app if the stored row still carries
// expectedVersion, and bumps the version by one.
func (r *repository) Save(ctx context.Context, app *models.Application, expectedVersion int64) error {
	next := expectedVersion + 1
	res := r.db.WithContext(ctx).
		Model(&models.Application{}).
		Where("id = ? AND version = ?", app.ID, expectedVersion).
		Updates(map[string]any{
			"status":           app.Status,
			"last_modified":    app.LastModified,
			"date_of_donation": app.DateOfDonation,
			"unit_id":          app.UnitID,
			"version":          next,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return r.missOrConflict(ctx, app.ID)
	}
	app.Version = next
	return nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID, expectedVersion int64) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND version = ?", id, expectedVersion).
		Delete(&models.Application{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return r.missOrConflict(ctx, id)
	}
	return nil
}

func (r *repository) missOrConflict(ctx context.Context, id uuid.UUID) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Application{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return gorm.ErrRecordNotFound
	}
	return ErrConcurrentModification
}

func (r *repository) ListOpenByProduct(ctx context.Context, productID uuid.UUID) ([]models.Application, error) {
	var apps []models.Application
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND status = ?", productID, enums.ApplicationStatusOpen).
		Order("created_at ASC").
		Order("id ASC").
		Find(&apps).Error
	if err != nil {
		return nil, err
	}
	return apps, nil
}

func (r *repository) CountByProductAndStatus(ctx context.Context, productID uuid.UUID, status enums.ApplicationStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Application{}).
		Where("product_id = ? AND status = ?", productID, status).
		Count(&count).Error
	return count, err
}

// HasActiveForReceiver reports whether the receiver already holds an open or
// pending application for the product.
func (r *repository) HasActiveForReceiver(ctx context.Context, receiverID, productID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Application{}).
		Where("receiver_id = ? AND product_id = ?", receiverID, productID).
		Where("status IN ?", []enums.ApplicationStatus{enums.ApplicationStatusOpen, enums.ApplicationStatusPending}).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) ListByReceiver(ctx context.Context, receiverID uuid.UUID, params pagination.Params) (*ApplicationList, error) {
	return r.list(ctx, "receiver_id", receiverID, params)
}

func (r *repository) ListByProduct(ctx context.Context, productID uuid.UUID, params pagination.Params) (*ApplicationList, error) {
	return r.list(ctx, "product_id", productID, params)
}

func (r *repository) list(ctx context.Context, column string, id uuid.UUID, params pagination.Params) (*ApplicationList, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).Where(column+" = ?", id)
	if cursor != nil {
		query = query.Where(
			"(created_at < ? OR (created_at = ? AND id < ?))",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Application
	err = query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	items, next := pagination.Trim(rows, params.Limit, applicationCursor)
	return &ApplicationList{Applications: items, NextCursor: next}, nil
}

func applicationCursor(app models.Application) pagination.Cursor {
	return pagination.Cursor{CreatedAt: app.CreatedAt, ID: app.ID}
}
