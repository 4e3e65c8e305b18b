package articles

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/stockflow-backend/pkg/db/dbtest"
	"github.com/angelmondragon/stockflow-backend/pkg/db/models"
	"github.com/angelmondragon/stockflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/stockflow-backend/pkg/errors"
	"github.com/angelmondragon/stockflow-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	client, conn := dbtest.Client(t)
	svc, err := NewService(NewRepository(conn), client, func() time.Time {
		return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	})
	require.NoError(t, err)
	return svc, conn
}

func reload(t *testing.T, db *gorm.DB, id uuid.UUID) models.Article {
	t.Helper()
	var a models.Article
	require.NoError(t, db.First(&a, "id = ?", id).Error)
	return a
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(nil, nil, nil)
	require.Error(t, err)
}

func TestCreateAndGet(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateInput{
		Name:           "  Widget ",
		OnHandQuantity: 12,
		AnnualDemand:   1000,
		HoldingCost:    decimal.NewFromInt(2),
	})
	require.NoError(t, err)
	assert.Equal(t, "Widget", created.Name)
	assert.Equal(t, 12, created.OnHandQuantity)
	assert.Nil(t, created.Policy)

	_, err = svc.Create(ctx, CreateInput{Name: " "})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Get(ctx, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestDeleteRequiresEmptyStock(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	article := dbtest.SeedArticle(t, db, func(a *models.Article) { a.OnHandQuantity = 5 })

	err := svc.Delete(ctx, article.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStockConstraint))
	assert.True(t, reload(t, db, article.ID).IsActive())

	_, err = svc.SetStock(ctx, article.ID, 0)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, article.ID))

	deleted := reload(t, db, article.ID)
	require.NotNil(t, deleted.DeletedAt)
	assert.True(t, deleted.DeletedAt.Equal(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)))

	_, err = svc.Get(ctx, article.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	page, err := svc.List(ctx, ListFilters{}, pagination.Params{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestDeleteBlockedByOpenOrders(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	supplier := dbtest.SeedSupplier(t, db, "acme")
	article := dbtest.SeedArticle(t, db, nil)
	order := dbtest.SeedOrder(t, db, supplier.ID, enums.PurchaseOrderStatusSent, 4, map[uuid.UUID]int{article.ID: 10})

	err := svc.Delete(ctx, article.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStockConstraint))

	require.NoError(t, db.Model(&models.PurchaseOrder{}).Where("id = ?", order.ID).
		Update("status", enums.PurchaseOrderStatusCancelled).Error)
	require.NoError(t, svc.Delete(ctx, article.ID))
}

func TestAdjustStockNeverGoesNegative(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	article := dbtest.SeedArticle(t, db, func(a *models.Article) { a.OnHandQuantity = 3 })

	updated, err := svc.AdjustStock(ctx, article.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 7, updated.OnHandQuantity)

	_, err = svc.AdjustStock(ctx, article.ID, -8)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStockConstraint))
	assert.Equal(t, 7, reload(t, db, article.ID).OnHandQuantity)

	_, err = svc.SetStock(ctx, article.ID, -1)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestSetDefaultSupplierRequiresRelation(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	supplier := dbtest.SeedSupplier(t, db, "acme")
	article := dbtest.SeedArticle(t, db, nil)

	_, err := svc.SetDefaultSupplier(ctx, article.ID, supplier.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeMissingRelation))

	dbtest.SeedRelation(t, db, article.ID, supplier.ID, 5, 50, 5, false)
	updated, err := svc.SetDefaultSupplier(ctx, article.ID, supplier.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.DefaultSupplierID)
	assert.Equal(t, supplier.ID, *updated.DefaultSupplierID)
	require.NotNil(t, updated.DefaultSupplier)
	assert.Equal(t, "acme", updated.DefaultSupplier.Name)
}

func TestComputeCGIStoresSnapshot(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	supplier := dbtest.SeedSupplier(t, db, "acme")
	article := dbtest.SeedArticle(t, db, nil)

	_, err := svc.ComputeCGI(ctx, article.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeMissingRelation))

	dbtest.SeedRelation(t, db, article.ID, supplier.ID, 5, 50, 5, true)
	_, err = svc.ComputeCGI(ctx, article.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientData))

	dbtest.SeedPolicy(t, db, models.NewFixedLotPolicy(article.ID, models.FixedLotModel{LotSize: 224, ReorderPoint: 25, SafetyStock: 11}, time.Now()))
	cgi, err := svc.ComputeCGI(ctx, article.ID)
	require.NoError(t, err)
	assert.Equal(t, "5447.21", cgi.StringFixed(2))

	stored := reload(t, db, article.ID)
	require.NotNil(t, stored.CGI)
	assert.Equal(t, "5447.21", stored.CGI.StringFixed(2))
}

func TestDetachPolicyClearsSnapshot(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	reviewed := time.Now().UTC()
	cgi := decimal.NewFromInt(10)
	article := dbtest.SeedArticle(t, db, func(a *models.Article) {
		a.CGI = &cgi
		a.LastReviewedAt = &reviewed
	})
	dbtest.SeedPolicy(t, db, models.NewFixedIntervalPolicy(article.ID, models.FixedIntervalModel{ReviewIntervalDays: 7}, time.Now()))

	require.NoError(t, svc.DetachPolicy(ctx, article.ID))

	got, err := svc.Get(ctx, article.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Policy)
	assert.Nil(t, got.CGI)
	assert.Nil(t, got.LastReviewedAt)
}

func TestUpdateRejectsEmptyPatch(t *testing.T) {
	svc, db := newTestService(t)
	article := dbtest.SeedArticle(t, db, nil)

	_, err := svc.Update(context.Background(), article.ID, UpdateInput{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	demand := 2000.0
	updated, err := svc.Update(context.Background(), article.ID, UpdateInput{AnnualDemand: &demand})
	require.NoError(t, err)
	assert.Equal(t, 2000.0, updated.AnnualDemand)
}

func TestServiceLevelOfOneRejected(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Name: "Widget", ServiceLevel: 1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	article := dbtest.SeedArticle(t, db, nil)
	level := 1.0
	_, err = svc.Update(ctx, article.ID, UpdateInput{ServiceLevel: &level})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	level = 0.95
	updated, err := svc.Update(ctx, article.ID, UpdateInput{ServiceLevel: &level})
	require.NoError(t, err)
	assert.Equal(t, 0.95, updated.ServiceLevel)
}
