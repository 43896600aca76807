package products

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sharebridge/sharebridge-backend/internal/applications"
	"github.com/sharebridge/sharebridge-backend/pkg/db/models"
	pkgerrors "github.com/sharebridge/sharebridge-backend/pkg/errors"
	"github.com/sharebridge/sharebridge-backend/pkg/logger"
)

// Service exposes producer-facing product operations.
type Service interface {
	SetAvailability(ctx context.Context, producerUserID, productID uuid.UUID, available bool) (*AvailabilityResult, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	UpdateAvailability(ctx context.Context, id uuid.UUID, available bool, at time.Time) error
}

type producerLookup interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Producer, error)
}

type cascader interface {
	CascadeUnavailable(ctx context.Context, productID uuid.UUID) (*applications.CascadeResult, error)
}

// ServiceParams collects the product service dependencies.
type ServiceParams struct {
	Repo      *Repository
	Tx        txRunner
	Producers producerLookup
	Cascade   cascader
	Logger    *logger.Logger
}

type service struct {
	repo      productStore
	bind      func(tx *gorm.DB) productStore
	tx        txRunner
	producers producerLookup
	cascade   cascader
	logg      *logger.Logger
	clock     func() time.Time
}

// NewService builds the product service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	repo := params.Repo
	return newService(repo, func(tx *gorm.DB) productStore { return repo.WithTx(tx) }, params)
}

func newService(repo productStore, bind func(tx *gorm.DB) productStore, params ServiceParams) (*service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Producers == nil {
		return nil, fmt.Errorf("producer lookup required")
	}
	if params.Cascade == nil {
		return nil, fmt.Errorf("application cascade required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:      repo,
		bind:      bind,
		tx:        params.Tx,
		producers: params.Producers,
		cascade:   params.Cascade,
		logg:      params.Logger,
		clock:     time.Now,
	}, nil
}

// SetAvailability flips the product's available flag for its owning producer.
// Turning a product off closes its open applications, and repeating the call
// closes any that an earlier failed cascade missed. Turning it back on reopens
// nothing.
func (s *service) SetAvailability(ctx context.Context, producerUserID, productID uuid.UUID, available bool) (*AvailabilityResult, error) {
	if producerUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	ctx = s.logg.WithProductID(ctx, productID.String())

	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	producer, err := s.producers.FindByUserID(ctx, producerUserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "producer profile required")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load producer")
	}
	if product.ProducerID != producer.ID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "product does not belong to producer")
	}

	result := &AvailabilityResult{Product: product}
	if product.Available != available {
		now := s.clock().UTC()
		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			return s.bind(tx).UpdateAvailability(ctx, productID, available, now)
		})
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product availability")
		}
		product.Available = available
		product.UpdatedAt = now
		result.Changed = true
		s.logg.Info(s.logg.WithField(ctx, "available", available), "product availability changed")
	}

	if available {
		return result, nil
	}

	// Also runs when the flag was already off; the sweep only touches open applications.
	cascade, err := s.cascade.CascadeUnavailable(ctx, productID)
	if err != nil {
		return nil, err
	}
	result.PendingApplications = cascade.PendingApplications
	result.Cancelled = len(cascade.Cancelled)
	result.Failed = len(cascade.Failed)
	result.NotificationFailures = len(cascade.NotificationFailures)
	return result, nil
}
