package controllers

import (
	"net/http"

	"github.com/sharebridge/sharebridge-backend/api/responses"
	"github.com/sharebridge/sharebridge-backend/api/validators"
	"github.com/sharebridge/sharebridge-backend/internal/products"
	"github.com/sharebridge/sharebridge-backend/pkg/logger"
)

type availabilityRequest struct {
	Available *bool `json:"available" validate:"required"`
}

// SetProductAvailability toggles a product for its producer. Switching it off
// closes every open application on the product.
func SetProductAvailability(svc products.Service, logg *logger.Logger) http.HandlerFunc {
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

		var payload availabilityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.SetAvailability(r.Context(), userID, productID, *payload.Available)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, products.AvailabilityFromResult(result))
	}
}
