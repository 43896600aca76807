package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/sharebridge/sharebridge-backend/api/middleware"
	"github.com/sharebridge/sharebridge-backend/api/responses"
	"github.com/sharebridge/sharebridge-backend/api/validators"
	"github.com/sharebridge/sharebridge-backend/internal/applications"
	"github.com/sharebridge/sharebridge-backend/pkg/enums"
	pkgerrors "github.com/sharebridge/sharebridge-backend/pkg/errors"
	"github.com/sharebridge/sharebridge-backend/pkg/logger"
	"github.com/sharebridge/sharebridge-backend/pkg/pagination"
	"github.com/sharebridge/sharebridge-backend/pkg/types"
)

type createApplicationRequest struct {
	ProductID  string `json:"product_id" validate:"required,uuid"`
	Motivation string `json:"motivation" validate:"required,max=1000"`
}

type transitionRequest struct {
	Status string `json:"status" validate:"required,oneof=open pending completed unavailable"`
}

// CreateApplication opens an application for the authenticated receiver.
func CreateApplication(svc applications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}

		var payload createApplicationRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := uuid.Parse(payload.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "product_id must be a valid uuid"))
			return
		}

		app, err := svc.Create(r.Context(), applications.CreateInput{
			ReceiverID: userID,
			ProductID:  productID,
			Motivation: payload.Motivation,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, applications.FromModel(app))
	}
}

// ListMyApplications pages through the receiver's own applications.
func ListMyApplications(svc applications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListForReceiver(r.Context(), userID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toPage(list))
	}
}

// GetApplication returns one of the receiver's applications.
func GetApplication(svc applications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}
		applicationID, err := validators.ParseUUIDParam(r, "applicationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		app, err := svc.Get(r.Context(), userID, applicationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, applications.FromModel(app))
	}
}

// DeleteApplication withdraws an open application owned by the receiver.
func DeleteApplication(svc applications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}
		applicationID, err := validators.ParseUUIDParam(r, "applicationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		deleted, err := svc.Delete(r.Context(), userID, applicationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !deleted {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "no open application of yours with this id"))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// TransitionApplication moves an application to a new status on behalf of the
// owning producer. Admins skip the ownership check.
func TransitionApplication(svc applications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}
		applicationID, err := validators.ParseUUIDParam(r, "applicationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload transitionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		target, err := enums.ParseApplicationStatus(strings.TrimSpace(payload.Status))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		if middleware.RoleFromContext(r.Context()) != enums.UserRoleAdmin {
			if err := svc.AuthorizeProducer(r.Context(), userID, applicationID); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		result, err := svc.Transition(r.Context(), applicationID, target)
		writeTransition(w, r, logg, result, err)
	}
}

// ListProductApplications pages through a product's applications for its producer.
func ListProductApplications(svc applications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}
		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListForProduct(r.Context(), userID, productID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toPage(list))
	}
}

// writeTransition maps the transition result kinds onto HTTP outcomes.
func writeTransition(w http.ResponseWriter, r *http.Request, logg *logger.Logger, result *applications.TransitionResult, err error) {
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	switch result.Kind {
	case applications.ResultNotFound:
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "application not found"))
	case applications.ResultInvalidTransition:
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInvalidTransition, "status transition not allowed").
			WithDetails(map[string]any{"from": result.From, "to": result.To}))
	default:
		responses.WriteSuccess(w, applications.TransitionFromResult(result))
	}
}

func requireUser(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (uuid.UUID, bool) {
	userID := middleware.UserUUIDFromContext(r.Context())
	if userID == uuid.Nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
		return uuid.Nil, false
	}
	return userID, true
}

func pageParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}, nil
}

func toPage(list *applications.ApplicationList) types.Page[applications.ApplicationDTO] {
	return types.Page[applications.ApplicationDTO]{
		Items:      applications.FromModels(list.Applications),
		NextCursor: list.NextCursor,
	}
}
