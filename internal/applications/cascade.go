package applications

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/sharebridge/sharebridge-backend/pkg/db/models"
	"github.com/sharebridge/sharebridge-backend/pkg/enums"
	pkgerrors "github.com/sharebridge/sharebridge-backend/pkg/errors"
)

// CascadeUnavailable closes every open application of a product that was taken
// off the market and emails each receiver. Applications are saved one by one; a
// failure on one of them is recorded in the result and does not stop the rest.
// Pending applications are counted but left untouched.
func (s *service) CascadeUnavailable(ctx context.Context, productID uuid.UUID) (*CascadeResult, error) {
	started := time.Now()
	ctx = s.logg.WithProductID(ctx, productID.String())

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, lookupError(err, "product")
	}

	pending, err := s.repo.CountByProductAndStatus(ctx, productID, enums.ApplicationStatusPending)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count pending applications")
	}
	open, err := s.repo.ListOpenByProduct(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list open applications")
	}

	result := &CascadeResult{ProductID: productID, PendingApplications: pending}
	var errs error
	for i := range open {
		app := open[i]
		if err := s.cancel(ctx, &app, product, result); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("application %s: %w", app.ID, err))
		}
	}
	result.Err = errs

	s.metrics.ObserveCascade(time.Since(started), len(result.Failed))
	fields := map[string]any{
		"cancelled":             len(result.Cancelled),
		"failed":                len(result.Failed),
		"notification_failures": len(result.NotificationFailures),
		"pending":               pending,
	}
	if errs != nil {
		s.logg.Error(s.logg.WithFields(ctx, fields), "product cascade finished with failures", errs)
	} else {
		s.logg.Info(s.logg.WithFields(ctx, fields), "product cascade finished")
	}
	return result, nil
}

func (s *service) cancel(ctx context.Context, app *models.Application, product *models.Product, result *CascadeResult) error {
	transition, err := ComputeTransition(*app, enums.ApplicationStatusUnavailable, s.now())
	if err != nil {
		result.Failed = append(result.Failed, app.ID)
		return err
	}

	updated := transition.Application
	if err := s.repo.Save(ctx, &updated, app.Version); err != nil {
		result.Failed = append(result.Failed, app.ID)
		s.metrics.IncTransition(app.Status.String(), enums.ApplicationStatusUnavailable.String(), "failed")
		return err
	}
	result.Cancelled = append(result.Cancelled, app.ID)
	s.metrics.IncTransition(app.Status.String(), enums.ApplicationStatusUnavailable.String(), string(ResultApplied))

	outcome := s.notify(s.logg.WithApplicationID(ctx, app.ID.String()), &updated, NotificationCancellation, product)
	if !outcome.Sent {
		result.NotificationFailures = append(result.NotificationFailures, app.ID)
		return fmt.Errorf("cancellation email: %s", outcome.Error)
	}
	return nil
}
