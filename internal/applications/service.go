package applications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sharebridge/sharebridge-backend/internal/notifications"
	"github.com/sharebridge/sharebridge-backend/pkg/db"
	"github.com/sharebridge/sharebridge-backend/pkg/db/models"
	"github.com/sharebridge/sharebridge-backend/pkg/enums"
	pkgerrors "github.com/sharebridge/sharebridge-backend/pkg/errors"
	"github.com/sharebridge/sharebridge-backend/pkg/logger"
	"github.com/sharebridge/sharebridge-backend/pkg/metrics"
	"github.com/sharebridge/sharebridge-backend/pkg/pagination"
)

const maxUnitIDLength = 128

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ProductLookup loads products by id.
type ProductLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// ProducerLookup resolves producer profiles for pickup addresses and ownership checks.
type ProducerLookup interface {
	FindByProductID(ctx context.Context, productID uuid.UUID) (*models.Producer, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Producer, error)
}

// UserLookup loads receivers for email addressing.
type UserLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Service drives the application lifecycle.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Application, error)
	Get(ctx context.Context, requesterID, applicationID uuid.UUID) (*models.Application, error)
	ListForReceiver(ctx context.Context, receiverID uuid.UUID, params pagination.Params) (*ApplicationList, error)
	ListForProduct(ctx context.Context, producerUserID, productID uuid.UUID, params pagination.Params) (*ApplicationList, error)
	AuthorizeProducer(ctx context.Context, producerUserID, applicationID uuid.UUID) error
	Transition(ctx context.Context, applicationID uuid.UUID, target enums.ApplicationStatus) (*TransitionResult, error)
	TransitionByUnitID(ctx context.Context, unitID string, target enums.ApplicationStatus) (*TransitionResult, error)
	AssignUnit(ctx context.Context, applicationID uuid.UUID, unitID string) (*models.Application, error)
	Delete(ctx context.Context, requesterID, applicationID uuid.UUID) (bool, error)
	CascadeUnavailable(ctx context.Context, productID uuid.UUID) (*CascadeResult, error)
}

// ServiceParams configure the applications service.
type ServiceParams struct {
	Repo      Repository
	Tx        txRunner
	Products  ProductLookup
	Producers ProducerLookup
	Users     UserLookup
	Mailer    notifications.Mailer
	Metrics   *metrics.LifecycleMetrics
	Logger    *logger.Logger
	Clock     func() time.Time
}

type service struct {
	repo      Repository
	tx        txRunner
	products  ProductLookup
	producers ProducerLookup
	users     UserLookup
	mailer    notifications.Mailer
	metrics   *metrics.LifecycleMetrics
	logg      *logger.Logger
	clock     func() time.Time
}

// NewService builds the lifecycle service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("applications repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product lookup required")
	}
	if params.Producers == nil {
		return nil, fmt.Errorf("producer lookup required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user lookup required")
	}
	if params.Mailer == nil {
		return nil, fmt.Errorf("mailer required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		repo:      params.Repo,
		tx:        params.Tx,
		products:  params.Products,
		producers: params.Producers,
		users:     params.Users,
		mailer:    params.Mailer,
		metrics:   params.Metrics,
		logg:      params.Logger,
		clock:     clock,
	}, nil
}

func (s *service) now() time.Time {
	return s.clock().UTC()
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Application, error) {
	if input.ReceiverID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "receiver id required")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	motivation := strings.TrimSpace(input.Motivation)
	if motivation == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "motivation required")
	}
	if utf8.RuneCountInString(motivation) > MaxMotivationLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "motivation too long").
			WithDetails(map[string]any{"max_length": MaxMotivationLength})
	}

	if _, err := s.users.FindByID(ctx, input.ReceiverID); err != nil {
		return nil, lookupError(err, "receiver")
	}
	product, err := s.products.FindByID(ctx, input.ProductID)
	if err != nil {
		return nil, lookupError(err, "product")
	}
	if !product.Available {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "product is not available")
	}

	active, err := s.repo.HasActiveForReceiver(ctx, input.ReceiverID, input.ProductID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing applications")
	}
	if active {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "an active application for this product already exists")
	}

	now := s.now()
	app := &models.Application{
		ReceiverID:   input.ReceiverID,
		ProductID:    input.ProductID,
		Motivation:   motivation,
		Status:       enums.ApplicationStatusOpen,
		CreatedAt:    now,
		LastModified: now,
		Version:      1,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).Create(ctx, app)
	})
	if err != nil {
		if db.IsUniqueViolation(err, "ux_applications_active_receiver_product") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "an active application for this product already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create application")
	}

	s.logg.Info(s.logg.WithApplicationID(ctx, app.ID.String()), "application created")
	return app, nil
}

func (s *service) Get(ctx context.Context, requesterID, applicationID uuid.UUID) (*models.Application, error) {
	app, err := s.repo.FindByID(ctx, applicationID)
	if err != nil {
		return nil, lookupError(err, "application")
	}
	if app.ReceiverID != requesterID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "application does not belong to user")
	}
	return app, nil
}

func (s *service) ListForReceiver(ctx context.Context, receiverID uuid.UUID, params pagination.Params) (*ApplicationList, error) {
	if receiverID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	return s.list(ctx, params, func(p pagination.Params) (*ApplicationList, error) {
		return s.repo.ListByReceiver(ctx, receiverID, p)
	})
}

func (s *service) ListForProduct(ctx context.Context, producerUserID, productID uuid.UUID, params pagination.Params) (*ApplicationList, error) {
	if err := s.authorizeProduct(ctx, producerUserID, productID); err != nil {
		return nil, err
	}
	return s.list(ctx, params, func(p pagination.Params) (*ApplicationList, error) {
		return s.repo.ListByProduct(ctx, productID, p)
	})
}

func (s *service) list(ctx context.Context, params pagination.Params, fetch func(pagination.Params) (*ApplicationList, error)) (*ApplicationList, error) {
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	list, err := fetch(params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list applications")
	}
	return list, nil
}

// AuthorizeProducer checks that the producer account owns the product the
// application targets.
func (s *service) AuthorizeProducer(ctx context.Context, producerUserID, applicationID uuid.UUID) error {
	app, err := s.repo.FindByID(ctx, applicationID)
	if err != nil {
		return lookupError(err, "application")
	}
	return s.authorizeProduct(ctx, producerUserID, app.ProductID)
}

func (s *service) authorizeProduct(ctx context.Context, producerUserID, productID uuid.UUID) error {
	if producerUserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return lookupError(err, "product")
	}
	producer, err := s.producers.FindByUserID(ctx, producerUserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "producer profile required")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load producer")
	}
	if product.ProducerID != producer.ID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "product does not belong to producer")
	}
	return nil
}

func (s *service) Transition(ctx context.Context, applicationID uuid.UUID, target enums.ApplicationStatus) (*TransitionResult, error) {
	if !target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown target status")
	}
	app, err := s.repo.FindByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.metrics.IncTransition("", target.String(), string(ResultNotFound))
			return &TransitionResult{Kind: ResultNotFound, To: target}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load application")
	}
	return s.apply(ctx, app, target)
}

func (s *service) TransitionByUnitID(ctx context.Context, unitID string, target enums.ApplicationStatus) (*TransitionResult, error) {
	unitID = strings.TrimSpace(unitID)
	if unitID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit id required")
	}
	if !target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown target status")
	}
	app, err := s.repo.FindByUnitID(ctx, unitID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.metrics.IncTransition("", target.String(), string(ResultNotFound))
			return &TransitionResult{Kind: ResultNotFound, To: target}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load application by unit")
	}
	return s.apply(ctx, app, target)
}

// apply persists the computed transition and then dispatches its notification.
// A failed email never undoes the saved status.
func (s *service) apply(ctx context.Context, app *models.Application, target enums.ApplicationStatus) (*TransitionResult, error) {
	ctx = s.logg.WithApplicationID(ctx, app.ID.String())
	result := &TransitionResult{From: app.Status, To: target, Application: app}

	transition, err := ComputeTransition(*app, target, s.now())
	switch {
	case errors.Is(err, ErrInvalidTransition):
		result.Kind = ResultInvalidTransition
	case err != nil:
		return nil, err
	case transition.Unchanged:
		result.Kind = ResultUnchanged
	}
	if result.Kind != "" {
		s.metrics.IncTransition(app.Status.String(), target.String(), string(result.Kind))
		return result, nil
	}

	updated := transition.Application
	if err := s.repo.Save(ctx, &updated, app.Version); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.metrics.IncTransition(app.Status.String(), target.String(), string(ResultNotFound))
			return &TransitionResult{Kind: ResultNotFound, From: app.Status, To: target}, nil
		}
		return nil, persistenceError(err, "save application")
	}

	result.Kind = ResultApplied
	result.Application = &updated
	s.metrics.IncTransition(app.Status.String(), target.String(), string(ResultApplied))
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"from": app.Status, "to": target}), "application status changed")

	result.Notification = s.notify(ctx, &updated, transition.Notification, nil)
	return result, nil
}

func (s *service) AssignUnit(ctx context.Context, applicationID uuid.UUID, unitID string) (*models.Application, error) {
	unitID = strings.TrimSpace(unitID)
	if unitID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit id required")
	}
	if len(unitID) > maxUnitIDLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit id too long")
	}

	app, err := s.repo.FindByID(ctx, applicationID)
	if err != nil {
		return nil, lookupError(err, "application")
	}
	if app.UnitID != nil {
		if *app.UnitID == unitID {
			return app, nil
		}
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "application already linked to a different unit")
	}

	existing, err := s.repo.FindByUnitID(ctx, unitID)
	switch {
	case err == nil && existing.ID != app.ID:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "unit already linked to another application")
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check unit id")
	}

	updated := *app
	updated.UnitID = &unitID
	if err := s.repo.Save(ctx, &updated, app.Version); err != nil {
		if db.IsUniqueViolation(err, "ux_applications_unit_id") {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "unit already linked to another application")
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "application not found")
		}
		return nil, persistenceError(err, "link unit")
	}
	return &updated, nil
}

// Delete removes an open application owned by requesterID. It reports false,
// without error, when the application is missing, owned by someone else or no
// longer open.
func (s *service) Delete(ctx context.Context, requesterID, applicationID uuid.UUID) (bool, error) {
	app, err := s.repo.FindByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load application")
	}
	if app.ReceiverID != requesterID || app.Status != enums.ApplicationStatusOpen {
		return false, nil
	}

	if err := s.repo.Delete(ctx, app.ID, app.Version); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, persistenceError(err, "delete application")
	}
	s.logg.Info(s.logg.WithApplicationID(ctx, app.ID.String()), "application deleted")
	return true, nil
}

// notify sends the email for kind and reports the outcome. product may be nil,
// in which case it is loaded.
func (s *service) notify(ctx context.Context, app *models.Application, kind NotificationKind, product *models.Product) NotificationOutcome {
	if kind == NotificationNone {
		return NotificationOutcome{}
	}
	outcome := NotificationOutcome{Kind: kind, Attempted: true}

	email, err := s.composeEmail(ctx, app, kind, product)
	if err == nil {
		err = s.mailer.Send(ctx, email)
	}
	if err != nil {
		outcome.Error = err.Error()
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"notification": kind, "error": err.Error()}), "lifecycle email not sent")
	} else {
		outcome.Sent = true
	}
	s.metrics.IncNotification(string(kind), outcome.Sent)
	return outcome
}

func (s *service) composeEmail(ctx context.Context, app *models.Application, kind NotificationKind, product *models.Product) (notifications.Email, error) {
	receiver, err := s.users.FindByID(ctx, app.ReceiverID)
	if err != nil {
		return notifications.Email{}, fmt.Errorf("load receiver: %w", err)
	}
	if product == nil {
		product, err = s.products.FindByID(ctx, app.ProductID)
		if err != nil {
			return notifications.Email{}, fmt.Errorf("load product: %w", err)
		}
	}

	switch kind {
	case NotificationPickup:
		producer, err := s.producers.FindByProductID(ctx, app.ProductID)
		if err != nil {
			return notifications.Email{}, fmt.Errorf("load producer address: %w", err)
		}
		return notifications.PickupEmail(*receiver, *product, *producer), nil
	case NotificationThankYou:
		return notifications.ThankYouEmail(*receiver, *product), nil
	case NotificationCancellation:
		return notifications.CancellationEmail(*receiver, *product), nil
	default:
		return notifications.Email{}, fmt.Errorf("unknown notification kind %q", kind)
	}
}

func lookupError(err error, entity string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, entity+" not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load "+entity)
}

func persistenceError(err error, msg string) error {
	if errors.Is(err, ErrConcurrentModification) {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "application was modified concurrently; retry")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}
