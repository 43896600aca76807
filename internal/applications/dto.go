package applications

import (
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/sharebridge/sharebridge-backend/pkg/db/models"
	"github.com/sharebridge/sharebridge-backend/pkg/enums"
)

// MaxMotivationLength bounds the free-text motivation a receiver submits.
const MaxMotivationLength = 1000

// CreateInput carries the data required to open an application.
type CreateInput struct {
	ReceiverID uuid.UUID
	ProductID  uuid.UUID
	Motivation string
}

// ApplicationList is one page of applications.
type ApplicationList struct {
	Applications []models.Application
	NextCursor   string
}

// ResultKind distinguishes the outcomes of a status transition.
type ResultKind string

const (
	ResultApplied           ResultKind = "applied"
	ResultUnchanged         ResultKind = "unchanged"
	ResultNotFound          ResultKind = "not_found"
	ResultInvalidTransition ResultKind = "invalid_transition"
)

// NotificationOutcome reports what happened to the email tied to a transition.
type NotificationOutcome struct {
	Kind      NotificationKind `json:"kind,omitempty"`
	Attempted bool             `json:"attempted"`
	Sent      bool             `json:"sent"`
	Error     string           `json:"error,omitempty"`
}

// TransitionResult is returned by Transition. Only ResultApplied persisted anything.
type TransitionResult struct {
	Kind         ResultKind
	From         enums.ApplicationStatus
	To           enums.ApplicationStatus
	Application  *models.Application
	Notification NotificationOutcome
}

// Applied reports whether the status change was persisted.
func (r *TransitionResult) Applied() bool {
	return r != nil && r.Kind == ResultApplied
}

// CascadeResult summarizes a product availability cascade.
type CascadeResult struct {
	ProductID            uuid.UUID
	Cancelled            []uuid.UUID
	Failed               []uuid.UUID
	NotificationFailures []uuid.UUID
	PendingApplications  int64
	// Err aggregates the per-application failures; nil when every application succeeded.
	Err error
}

// ApplicationDTO is the transport shape of an application.
type ApplicationDTO struct {
	ID             uuid.UUID               `json:"id"`
	ReceiverID     uuid.UUID               `json:"receiver_id"`
	ProductID      uuid.UUID               `json:"product_id"`
	Motivation     string                  `json:"motivation"`
	Status         enums.ApplicationStatus `json:"status"`
	DateOfDonation *time.Time              `json:"date_of_donation,omitempty"`
	UnitID         *string                 `json:"unit_id,omitempty"`
	Version        int64                   `json:"version"`
	CreatedAt      time.Time               `json:"created_at"`
	LastModified   time.Time               `json:"last_modified"`
}

func FromModel(app *models.Application) *ApplicationDTO {
	if app == nil {
		return nil
	}
	return &ApplicationDTO{
		ID:             app.ID,
		ReceiverID:     app.ReceiverID,
		ProductID:      app.ProductID,
		Motivation:     app.Motivation,
		Status:         app.Status,
		DateOfDonation: app.DateOfDonation,
		UnitID:         app.UnitID,
		Version:        app.Version,
		CreatedAt:      app.CreatedAt,
		LastModified:   app.LastModified,
	}
}

// FromModels maps a page of applications.
func FromModels(apps []models.Application) []ApplicationDTO {
	return lo.Map(apps, func(app models.Application, _ int) ApplicationDTO {
		return *FromModel(&app)
	})
}

// TransitionDTO is the transport shape of a TransitionResult.
type TransitionDTO struct {
	Result       ResultKind              `json:"result"`
	From         enums.ApplicationStatus `json:"from,omitempty"`
	To           enums.ApplicationStatus `json:"to"`
	Application  *ApplicationDTO         `json:"application,omitempty"`
	Notification NotificationOutcome     `json:"notification"`
}

func TransitionFromResult(res *TransitionResult) *TransitionDTO {
	if res == nil {
		return nil
	}
	return &TransitionDTO{
		Result:       res.Kind,
		From:         res.From,
		To:           res.To,
		Application:  FromModel(res.Application),
		Notification: res.Notification,
	}
}
