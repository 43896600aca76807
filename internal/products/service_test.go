package products

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sharebridge/sharebridge-backend/internal/applications"
	"github.com/sharebridge/sharebridge-backend/pkg/db/models"
	pkgerrors "github.com/sharebridge/sharebridge-backend/pkg/errors"
	"github.com/sharebridge/sharebridge-backend/pkg/logger"
)

type stubStore struct {
	product *models.Product
	updates []bool
	err     error
}

func (s *stubStore) FindByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	if s.product == nil || s.product.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *s.product
	return &clone, nil
}

func (s *stubStore) UpdateAvailability(_ context.Context, _ uuid.UUID, available bool, _ time.Time) error {
	if s.err != nil {
		return s.err
	}
	s.updates = append(s.updates, available)
	s.product.Available = available
	return nil
}

type stubTx struct{}

func (stubTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

type stubProducers map[uuid.UUID]*models.Producer

func (s stubProducers) FindByUserID(_ context.Context, userID uuid.UUID) (*models.Producer, error) {
	if p, ok := s[userID]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type stubCascade struct {
	calls  []uuid.UUID
	result *applications.CascadeResult
	err    error
}

func (s *stubCascade) CascadeUnavailable(_ context.Context, productID uuid.UUID) (*applications.CascadeResult, error) {
	s.calls = append(s.calls, productID)
	if s.err != nil {
		return nil, s.err
	}
	if s.result != nil {
		return s.result, nil
	}
	return &applications.CascadeResult{ProductID: productID}, nil
}

type serviceFixture struct {
	ownerID uuid.UUID
	store   *stubStore
	cascade *stubCascade
	svc     *service
}

func newServiceFixture(t *testing.T, available bool) *serviceFixture {
	t.Helper()
	ownerID := uuid.New()
	producer := &models.Producer{ID: uuid.New(), UserID: ownerID}
	store := &stubStore{product: &models.Product{ID: uuid.New(), ProducerID: producer.ID, Name: "Bread", Available: available}}
	cascade := &stubCascade{}
	svc, err := newService(store, func(*gorm.DB) productStore { return store }, ServiceParams{
		Tx:        stubTx{},
		Producers: stubProducers{ownerID: producer},
		Cascade:   cascade,
		Logger:    logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &serviceFixture{ownerID: ownerID, store: store, cascade: cascade, svc: svc}
}

func TestSetAvailabilityUnavailableRunsCascade(t *testing.T) {
	f := newServiceFixture(t, true)
	productID := f.store.product.ID
	f.cascade.result = &applications.CascadeResult{
		ProductID:            productID,
		Cancelled:            []uuid.UUID{uuid.New(), uuid.New()},
		Failed:               []uuid.UUID{uuid.New()},
		NotificationFailures: []uuid.UUID{uuid.New()},
		PendingApplications:  3,
	}

	res, err := f.svc.SetAvailability(context.Background(), f.ownerID, productID, false)
	if err != nil {
		t.Fatalf("set availability: %v", err)
	}
	if !res.Changed || res.Product.Available {
		t.Fatalf("expected product switched off, got %+v", res)
	}
	if len(f.cascade.calls) != 1 || f.cascade.calls[0] != productID {
		t.Fatalf("expected one cascade for product, got %v", f.cascade.calls)
	}
	if res.Cancelled != 2 || res.Failed != 1 || res.NotificationFailures != 1 || res.PendingApplications != 3 {
		t.Fatalf("unexpected cascade counts %+v", res)
	}
}

func TestSetAvailabilityAvailableSkipsCascade(t *testing.T) {
	f := newServiceFixture(t, false)

	res, err := f.svc.SetAvailability(context.Background(), f.ownerID, f.store.product.ID, true)
	if err != nil {
		t.Fatalf("set availability: %v", err)
	}
	if !res.Changed || !res.Product.Available {
		t.Fatalf("expected product switched on, got %+v", res)
	}
	if len(f.cascade.calls) != 0 {
		t.Fatalf("cascade must not run when a product becomes available")
	}
}

func TestSetAvailabilityUnchangedIsNoop(t *testing.T) {
	f := newServiceFixture(t, true)

	res, err := f.svc.SetAvailability(context.Background(), f.ownerID, f.store.product.ID, true)
	if err != nil {
		t.Fatalf("set availability: %v", err)
	}
	if res.Changed {
		t.Fatalf("expected unchanged result")
	}
	if len(f.store.updates) != 0 || len(f.cascade.calls) != 0 {
		t.Fatalf("expected no writes, got updates=%v cascades=%v", f.store.updates, f.cascade.calls)
	}
}

func TestSetAvailabilityRetryRerunsFailedCascade(t *testing.T) {
	f := newServiceFixture(t, true)
	productID := f.store.product.ID
	f.cascade.err = errors.New("list open applications: connection reset")

	if _, err := f.svc.SetAvailability(context.Background(), f.ownerID, productID, false); err == nil {
		t.Fatalf("expected cascade failure to surface")
	}
	if f.store.product.Available {
		t.Fatalf("expected flag committed before the cascade")
	}

	f.cascade.err = nil
	f.cascade.result = &applications.CascadeResult{ProductID: productID, Cancelled: []uuid.UUID{uuid.New()}}
	res, err := f.svc.SetAvailability(context.Background(), f.ownerID, productID, false)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if res.Changed {
		t.Fatalf("expected flag unchanged on retry")
	}
	if len(f.cascade.calls) != 2 {
		t.Fatalf("expected cascade to run again, calls=%d", len(f.cascade.calls))
	}
	if res.Cancelled != 1 {
		t.Fatalf("expected retry to report cancelled applications, got %+v", res)
	}
	if len(f.store.updates) != 1 {
		t.Fatalf("expected a single flag write, got %v", f.store.updates)
	}
}

func TestSetAvailabilityRejectsForeignProducer(t *testing.T) {
	f := newServiceFixture(t, true)

	_, err := f.svc.SetAvailability(context.Background(), uuid.New(), f.store.product.ID, false)
	if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	_, err = f.svc.SetAvailability(context.Background(), f.ownerID, uuid.New(), false)
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if len(f.store.updates) != 0 {
		t.Fatalf("expected no writes")
	}
}

func TestSetAvailabilityUpdateFailure(t *testing.T) {
	f := newServiceFixture(t, true)
	f.store.err = errors.New("db down")

	_, err := f.svc.SetAvailability(context.Background(), f.ownerID, f.store.product.ID, false)
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if len(f.cascade.calls) != 0 {
		t.Fatalf("cascade must not run after a failed update")
	}
}
