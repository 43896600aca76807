package applications

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sharebridge/sharebridge-backend/pkg/db/models"
	"github.com/sharebridge/sharebridge-backend/pkg/enums"
	pkgerrors "github.com/sharebridge/sharebridge-backend/pkg/errors"
)

func appInStatus(status enums.ApplicationStatus, created time.Time) models.Application {
	return models.Application{
		ID:           uuid.New(),
		ReceiverID:   uuid.New(),
		ProductID:    uuid.New(),
		Motivation:   "I would love this",
		Status:       status,
		CreatedAt:    created,
		LastModified: created,
		Version:      1,
	}
}

func TestComputeTransitionTable(t *testing.T) {
	statuses := []enums.ApplicationStatus{
		enums.ApplicationStatusOpen,
		enums.ApplicationStatusPending,
		enums.ApplicationStatusCompleted,
		enums.ApplicationStatusUnavailable,
	}
	allowed := map[[2]enums.ApplicationStatus]bool{
		{enums.ApplicationStatusOpen, enums.ApplicationStatusPending}:      true,
		{enums.ApplicationStatusOpen, enums.ApplicationStatusUnavailable}:  true,
		{enums.ApplicationStatusPending, enums.ApplicationStatusOpen}:      true,
		{enums.ApplicationStatusPending, enums.ApplicationStatusCompleted}: true,
	}

	now := time.Now().UTC()
	for _, from := range statuses {
		for _, to := range statuses {
			current := appInStatus(from, now.Add(-time.Hour))
			got, err := ComputeTransition(current, to, now)

			switch {
			case from == to:
				if err != nil || !got.Unchanged {
					t.Fatalf("%s -> %s: expected unchanged, got %+v %v", from, to, got, err)
				}
				if got.Application.LastModified != current.LastModified {
					t.Fatalf("%s -> %s: unchanged must not touch fields", from, to)
				}
			case allowed[[2]enums.ApplicationStatus{from, to}]:
				if err != nil {
					t.Fatalf("%s -> %s: unexpected error %v", from, to, err)
				}
				if got.Application.Status != to || !got.Application.LastModified.Equal(now) {
					t.Fatalf("%s -> %s: fields not applied: %+v", from, to, got.Application)
				}
			default:
				if !errors.Is(err, ErrInvalidTransition) {
					t.Fatalf("%s -> %s: expected invalid transition, got %v", from, to, err)
				}
				if pkgerrors.CodeOf(err) != pkgerrors.CodeInvalidTransition {
					t.Fatalf("%s -> %s: unexpected code %s", from, to, pkgerrors.CodeOf(err))
				}
				if got.Application.Status != from {
					t.Fatalf("%s -> %s: invalid transition must not change status", from, to)
				}
			}
		}
	}
}

func TestComputeTransitionToPendingSetsDonationDate(t *testing.T) {
	created := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	now := created.Add(48 * time.Hour)
	current := appInStatus(enums.ApplicationStatusOpen, created)

	got, err := ComputeTransition(current, enums.ApplicationStatusPending, now)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if got.Application.DateOfDonation == nil || !got.Application.DateOfDonation.Equal(now) {
		t.Fatalf("expected date of donation %v, got %v", now, got.Application.DateOfDonation)
	}
	if got.Application.LastModified.Before(current.LastModified) {
		t.Fatal("last modified must not move backwards")
	}
	if got.Notification != NotificationPickup {
		t.Fatalf("expected pickup notification, got %q", got.Notification)
	}
	if current.DateOfDonation != nil || current.Status != enums.ApplicationStatusOpen {
		t.Fatal("input application must not be mutated")
	}
}

func TestComputeTransitionToOpenClearsDonationDate(t *testing.T) {
	now := time.Now().UTC()
	donated := now.Add(-time.Hour)
	current := appInStatus(enums.ApplicationStatusPending, now.Add(-2*time.Hour))
	current.DateOfDonation = &donated

	got, err := ComputeTransition(current, enums.ApplicationStatusOpen, now)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if got.Application.DateOfDonation != nil {
		t.Fatal("expected date of donation to be cleared")
	}
	if got.Notification != NotificationNone {
		t.Fatalf("reopening sends no email, got %q", got.Notification)
	}

	again, err := ComputeTransition(got.Application, enums.ApplicationStatusOpen, now.Add(time.Minute))
	if err != nil || !again.Unchanged || again.Application.DateOfDonation != nil {
		t.Fatalf("second reopen should be a no-op, got %+v %v", again, err)
	}
}

func TestComputeTransitionNotifications(t *testing.T) {
	now := time.Now().UTC()

	completed, err := ComputeTransition(appInStatus(enums.ApplicationStatusPending, now), enums.ApplicationStatusCompleted, now)
	if err != nil || completed.Notification != NotificationThankYou {
		t.Fatalf("expected thank-you notification, got %+v %v", completed, err)
	}

	unavailable, err := ComputeTransition(appInStatus(enums.ApplicationStatusOpen, now), enums.ApplicationStatusUnavailable, now)
	if err != nil || unavailable.Notification != NotificationNone {
		t.Fatalf("direct unavailable sends no email, got %+v %v", unavailable, err)
	}
}

func TestComputeTransitionUnknownTarget(t *testing.T) {
	_, err := ComputeTransition(appInStatus(enums.ApplicationStatusOpen, time.Now()), "archived", time.Now())
	if pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
