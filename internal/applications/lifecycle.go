package applications

import (
	"time"

	"github.com/sharebridge/sharebridge-backend/pkg/db/models"
	"github.com/sharebridge/sharebridge-backend/pkg/enums"
	pkgerrors "github.com/sharebridge/sharebridge-backend/pkg/errors"
)

// NotificationKind names the email a transition asks the caller to send.
type NotificationKind string

const (
	NotificationNone         NotificationKind = ""
	NotificationPickup       NotificationKind = "pickup"
	NotificationThankYou     NotificationKind = "thank_you"
	NotificationCancellation NotificationKind = "cancellation"
)

// ErrInvalidTransition is returned by ComputeTransition for pairs outside the table.
var ErrInvalidTransition = pkgerrors.New(pkgerrors.CodeInvalidTransition, "status transition not allowed")

// allowedTransitions lists the reachable targets per source status. Completed and
// Unavailable are terminal.
var allowedTransitions = map[enums.ApplicationStatus][]enums.ApplicationStatus{
	enums.ApplicationStatusOpen:        {enums.ApplicationStatusPending, enums.ApplicationStatusUnavailable},
	enums.ApplicationStatusPending:     {enums.ApplicationStatusOpen, enums.ApplicationStatusCompleted},
	enums.ApplicationStatusCompleted:   {},
	enums.ApplicationStatusUnavailable: {},
}

// Transition is the computed outcome of moving an application to a new status.
// Application is a copy carrying the new field values; nothing has been persisted.
type Transition struct {
	From         enums.ApplicationStatus
	To           enums.ApplicationStatus
	Unchanged    bool
	Application  models.Application
	Notification NotificationKind
}

// CanTransition reports whether from -> to is in the transition table.
func CanTransition(from, to enums.ApplicationStatus) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// ComputeTransition applies the field effects of moving current to target at now.
// A self transition is reported as Unchanged with no effects.
func ComputeTransition(current models.Application, target enums.ApplicationStatus, now time.Time) (Transition, error) {
	if !target.IsValid() {
		return Transition{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown target status").
			WithDetails(map[string]any{"status": target})
	}

	out := Transition{From: current.Status, To: target, Application: current}
	if current.Status == target {
		out.Unchanged = true
		return out, nil
	}
	if !CanTransition(current.Status, target) {
		return out, ErrInvalidTransition
	}

	next := current
	next.Status = target
	next.LastModified = now

	switch target {
	case enums.ApplicationStatusPending:
		donated := now
		next.DateOfDonation = &donated
		out.Notification = NotificationPickup
	case enums.ApplicationStatusCompleted:
		out.Notification = NotificationThankYou
	case enums.ApplicationStatusOpen:
		next.DateOfDonation = nil
	case enums.ApplicationStatusUnavailable:
		// the cascade attaches the cancellation email itself
	}

	out.Application = next
	return out, nil
}
