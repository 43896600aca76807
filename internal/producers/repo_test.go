package producers

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sharebridge/sharebridge-backend/pkg/db"
	"github.com/sharebridge/sharebridge-backend/pkg/db/models"
	"github.com/sharebridge/sharebridge-backend/pkg/enums"
)

func setupProducersTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:producers_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(conn))
	return conn
}

func TestRepositoryFindByProductID(t *testing.T) {
	conn := setupProducersTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	owner := &models.User{Email: "bakery@example.com", FirstName: "Bo", LastName: "Baker", Role: enums.UserRoleProducer}
	require.NoError(t, conn.Create(owner).Error)

	producer := &models.Producer{UserID: owner.ID, CompanyName: "Bakery", Street: "Main", StreetNumber: "5", City: "Utrecht"}
	require.NoError(t, repo.Create(ctx, producer))

	product := &models.Product{ProducerID: producer.ID, Name: "Bread", Available: true}
	require.NoError(t, conn.Create(product).Error)

	found, err := repo.FindByProductID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, producer.ID, found.ID)
	assert.Equal(t, "Main 5, Utrecht", found.PickupAddress())

	byUser, err := repo.FindByUserID(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, producer.ID, byUser.ID)

	_, err = repo.FindByProductID(ctx, uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
