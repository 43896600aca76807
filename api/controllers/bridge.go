package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sharebridge/sharebridge-backend/api/responses"
	"github.com/sharebridge/sharebridge-backend/api/validators"
	"github.com/sharebridge/sharebridge-backend/internal/applications"
	"github.com/sharebridge/sharebridge-backend/pkg/enums"
	pkgerrors "github.com/sharebridge/sharebridge-backend/pkg/errors"
	"github.com/sharebridge/sharebridge-backend/pkg/logger"
	"github.com/sharebridge/sharebridge-backend/pkg/pricing"
	pkgredis "github.com/sharebridge/sharebridge-backend/pkg/redis"
)

const (
	maxUnitIDLength = 128
	unitLockTTL     = 30 * time.Second
)

type linkUnitRequest struct {
	UnitID string `json:"unit_id" validate:"required,max=128"`
}

type confirmUnitRequest struct {
	Bytes int64 `json:"bytes" validate:"gte=0"`
}

type confirmUnitResponse struct {
	*applications.TransitionDTO
	DonatedBytes int64  `json:"donated_bytes"`
	DonationUSD  string `json:"donation_usd"`
}

// BridgeLinkUnit attaches the bridge's unit id to an application.
func BridgeLinkUnit(svc applications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		applicationID, err := validators.ParseUUIDParam(r, "applicationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload linkUnitRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		app, err := svc.AssignUnit(r.Context(), applicationID, payload.UnitID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, applications.FromModel(app))
	}
}

// BridgeConfirmUnit records a confirmed payment: the unit's application moves to
// pending and the donated volume is priced in USD.
func BridgeConfirmUnit(svc applications.Service, locker pkgredis.Locker, rate decimal.Decimal, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		unitID, err := validators.PathParam(r, "unitId", maxUnitIDLength)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload confirmUnitRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var result *applications.TransitionResult
		err = withUnitLock(r.Context(), locker, unitID, func() error {
			var txErr error
			result, txErr = svc.TransitionByUnitID(r.Context(), unitID, enums.ApplicationStatusPending)
			return txErr
		})
		if err != nil || (!result.Applied() && result.Kind != applications.ResultUnchanged) {
			writeTransition(w, r, logg, result, err)
			return
		}

		responses.WriteSuccess(w, confirmUnitResponse{
			TransitionDTO: applications.TransitionFromResult(result),
			DonatedBytes:  payload.Bytes,
			DonationUSD:   pricing.BytesToUSD(payload.Bytes, rate).StringFixed(2),
		})
	}
}

// BridgeCompleteUnit marks the unit's donation as handed over.
func BridgeCompleteUnit(svc applications.Service, locker pkgredis.Locker, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		unitID, err := validators.PathParam(r, "unitId", maxUnitIDLength)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var result *applications.TransitionResult
		err = withUnitLock(r.Context(), locker, unitID, func() error {
			var txErr error
			result, txErr = svc.TransitionByUnitID(r.Context(), unitID, enums.ApplicationStatusCompleted)
			return txErr
		})
		writeTransition(w, r, logg, result, err)
	}
}

// withUnitLock serialises bridge callbacks for the same unit. A nil locker runs fn unguarded.
func withUnitLock(ctx context.Context, locker pkgredis.Locker, unitID string, fn func() error) error {
	if locker == nil {
		return fn()
	}
	acquired, err := locker.AcquireUnitLock(ctx, unitID, unitLockTTL)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire unit lock")
	}
	if !acquired {
		return pkgerrors.New(pkgerrors.CodeConflict, "another callback for this unit is in progress")
	}
	defer func() {
		_ = locker.ReleaseUnitLock(context.WithoutCancel(ctx), unitID)
	}()
	return fn()
}
