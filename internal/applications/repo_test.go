package applications

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sharebridge/sharebridge-backend/pkg/db"
	"github.com/sharebridge/sharebridge-backend/pkg/db/models"
	"github.com/sharebridge/sharebridge-backend/pkg/enums"
	"github.com/sharebridge/sharebridge-backend/pkg/pagination"
)

func setupApplicationsTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:applications_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(conn))
	return conn
}

type repoFixture struct {
	receiver *models.User
	product  *models.Product
}

func seedRepoFixture(t *testing.T, conn *gorm.DB) repoFixture {
	t.Helper()
	owner := &models.User{Email: fmt.Sprintf("owner_%s@example.com", uuid.NewString()), FirstName: "Bo", Role: enums.UserRoleProducer}
	require.NoError(t, conn.Create(owner).Error)
	receiver := &models.User{Email: fmt.Sprintf("receiver_%s@example.com", uuid.NewString()), FirstName: "Ada", Role: enums.UserRoleReceiver}
	require.NoError(t, conn.Create(receiver).Error)
	producer := &models.Producer{UserID: owner.ID, CompanyName: "Bakery", Street: "Main", StreetNumber: "5", City: "Utrecht"}
	require.NoError(t, conn.Create(producer).Error)
	product := &models.Product{ProducerID: producer.ID, Name: "Bread", Available: true}
	require.NoError(t, conn.Create(product).Error)
	return repoFixture{receiver: receiver, product: product}
}

func seedReceiver(t *testing.T, conn *gorm.DB) *models.User {
	t.Helper()
	receiver := &models.User{Email: fmt.Sprintf("receiver_%s@example.com", uuid.NewString()), FirstName: "Cy", Role: enums.UserRoleReceiver}
	require.NoError(t, conn.Create(receiver).Error)
	return receiver
}

func newApplication(fx repoFixture, status enums.ApplicationStatus, created time.Time) *models.Application {
	return newApplicationFor(fx.receiver.ID, fx, status, created)
}

func newApplicationFor(receiverID uuid.UUID, fx repoFixture, status enums.ApplicationStatus, created time.Time) *models.Application {
	return &models.Application{
		ReceiverID:   receiverID,
		ProductID:    fx.product.ID,
		Motivation:   "please",
		Status:       status,
		CreatedAt:    created,
		LastModified: created,
		Version:      1,
	}
}

func TestRepositoryCreateAndFind(t *testing.T) {
	conn := setupApplicationsTestDB(t)
	fx := seedRepoFixture(t, conn)
	repo := NewRepository(conn)
	ctx := context.Background()

	app := newApplication(fx, enums.ApplicationStatusOpen, time.Now().UTC().Truncate(time.Second))
	require.NoError(t, repo.Create(ctx, app))
	require.NotEqual(t, uuid.Nil, app.ID)

	found, err := repo.FindByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ApplicationStatusOpen, found.Status)
	assert.Equal(t, int64(1), found.Version)
	assert.Nil(t, found.DateOfDonation)
	assert.True(t, found.CreatedAt.Equal(app.CreatedAt))

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositorySaveVersionGuard(t *testing.T) {
	conn := setupApplicationsTestDB(t)
	fx := seedRepoFixture(t, conn)
	repo := NewRepository(conn)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	app := newApplication(fx, enums.ApplicationStatusOpen, now)
	require.NoError(t, repo.Create(ctx, app))

	first := *app
	first.Status = enums.ApplicationStatusPending
	donated := now.Add(time.Minute)
	first.DateOfDonation = &donated
	first.LastModified = donated
	require.NoError(t, repo.Save(ctx, &first, 1))
	assert.Equal(t, int64(2), first.Version)

	stale := *app
	stale.Status = enums.ApplicationStatusUnavailable
	err := repo.Save(ctx, &stale, 1)
	assert.ErrorIs(t, err, ErrConcurrentModification)

	stored, err := repo.FindByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ApplicationStatusPending, stored.Status)
	require.NotNil(t, stored.DateOfDonation)
	assert.True(t, stored.DateOfDonation.Equal(donated))

	reopened := *stored
	reopened.Status = enums.ApplicationStatusOpen
	reopened.DateOfDonation = nil
	require.NoError(t, repo.Save(ctx, &reopened, stored.Version))

	stored, err = repo.FindByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.DateOfDonation, "date of donation must be cleared to NULL")
	assert.Equal(t, int64(3), stored.Version)

	missing := *app
	missing.ID = uuid.New()
	assert.ErrorIs(t, repo.Save(ctx, &missing, 1), gorm.ErrRecordNotFound)
}

func TestRepositoryDeleteVersionGuard(t *testing.T) {
	conn := setupApplicationsTestDB(t)
	fx := seedRepoFixture(t, conn)
	repo := NewRepository(conn)
	ctx := context.Background()

	app := newApplication(fx, enums.ApplicationStatusOpen, time.Now().UTC())
	require.NoError(t, repo.Create(ctx, app))

	assert.ErrorIs(t, repo.Delete(ctx, app.ID, 7), ErrConcurrentModification)
	require.NoError(t, repo.Delete(ctx, app.ID, 1))
	assert.ErrorIs(t, repo.Delete(ctx, app.ID, 1), gorm.ErrRecordNotFound)
}

func TestRepositoryUnitIDIsUnique(t *testing.T) {
	conn := setupApplicationsTestDB(t)
	fx := seedRepoFixture(t, conn)
	repo := NewRepository(conn)
	ctx := context.Background()

	now := time.Now().UTC()
	a := newApplication(fx, enums.ApplicationStatusOpen, now)
	b := newApplicationFor(seedReceiver(t, conn).ID, fx, enums.ApplicationStatusOpen, now.Add(time.Second))
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))

	unit := "unit-7"
	a.UnitID = &unit
	require.NoError(t, repo.Save(ctx, a, 1))

	found, err := repo.FindByUnitID(ctx, unit)
	require.NoError(t, err)
	assert.Equal(t, a.ID, found.ID)

	b.UnitID = &unit
	err = repo.Save(ctx, b, 1)
	require.Error(t, err)
	assert.True(t, db.IsUniqueViolation(err, "ux_applications_unit_id"))
}

func TestRepositoryProductQueries(t *testing.T) {
	conn := setupApplicationsTestDB(t)
	fx := seedRepoFixture(t, conn)
	repo := NewRepository(conn)
	ctx := context.Background()

	now := time.Now().UTC()
	for i, status := range []enums.ApplicationStatus{
		enums.ApplicationStatusOpen,
		enums.ApplicationStatusOpen,
		enums.ApplicationStatusOpen,
		enums.ApplicationStatusPending,
		enums.ApplicationStatusCompleted,
	} {
		receiverID := fx.receiver.ID
		if i > 0 {
			receiverID = seedReceiver(t, conn).ID
		}
		require.NoError(t, repo.Create(ctx, newApplicationFor(receiverID, fx, status, now.Add(time.Duration(i)*time.Second))))
	}

	open, err := repo.ListOpenByProduct(ctx, fx.product.ID)
	require.NoError(t, err)
	assert.Len(t, open, 3)

	pending, err := repo.CountByProductAndStatus(ctx, fx.product.ID, enums.ApplicationStatusPending)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending)

	active, err := repo.HasActiveForReceiver(ctx, fx.receiver.ID, fx.product.ID)
	require.NoError(t, err)
	assert.True(t, active)

	active, err = repo.HasActiveForReceiver(ctx, uuid.New(), fx.product.ID)
	require.NoError(t, err)
	assert.False(t, active)
}

func TestRepositoryListByReceiverPagination(t *testing.T) {
	conn := setupApplicationsTestDB(t)
	fx := seedRepoFixture(t, conn)
	repo := NewRepository(conn)
	ctx := context.Background()

	base := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	var ids []uuid.UUID
	statuses := []enums.ApplicationStatus{enums.ApplicationStatusCompleted, enums.ApplicationStatusUnavailable, enums.ApplicationStatusOpen}
	for i, status := range statuses {
		app := newApplication(fx, status, base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, repo.Create(ctx, app))
		ids = append(ids, app.ID)
	}

	first, err := repo.ListByReceiver(ctx, fx.receiver.ID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Applications, 2)
	assert.Equal(t, ids[2], first.Applications[0].ID)
	assert.Equal(t, ids[1], first.Applications[1].ID)
	assert.NotEmpty(t, first.NextCursor)

	second, err := repo.ListByReceiver(ctx, fx.receiver.ID, pagination.Params{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Applications, 1)
	assert.Equal(t, ids[0], second.Applications[0].ID)
	assert.Empty(t, second.NextCursor)

	byProduct, err := repo.ListByProduct(ctx, fx.product.ID, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, byProduct.Applications, 3)
}

func TestRepositoryWithTxRollback(t *testing.T) {
	conn := setupApplicationsTestDB(t)
	fx := seedRepoFixture(t, conn)
	client := db.NewFromGorm(conn)
	repo := NewRepository(conn)
	ctx := context.Background()

	app := newApplication(fx, enums.ApplicationStatusOpen, time.Now().UTC())
	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := repo.WithTx(tx).Create(ctx, app); err != nil {
			return err
		}
		return fmt.Errorf("abort")
	})
	require.Error(t, err)

	_, err = repo.FindByID(ctx, app.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryRejectsSecondActiveApplication(t *testing.T) {
	conn := setupApplicationsTestDB(t)
	fx := seedRepoFixture(t, conn)
	repo := NewRepository(conn)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, repo.Create(ctx, newApplication(fx, enums.ApplicationStatusPending, now)))

	err := repo.Create(ctx, newApplication(fx, enums.ApplicationStatusOpen, now.Add(time.Second)))
	require.Error(t, err)
	assert.True(t, db.IsUniqueViolation(err, "ux_applications_active_receiver_product"))

	require.NoError(t, repo.Create(ctx, newApplication(fx, enums.ApplicationStatusCompleted, now.Add(2*time.Second))))
	require.NoError(t, repo.Create(ctx, newApplicationFor(seedReceiver(t, conn).ID, fx, enums.ApplicationStatusOpen, now.Add(3*time.Second))))
}
