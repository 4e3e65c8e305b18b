package purchaseorders

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/stockflow-backend/internal/articles"
	"github.com/angelmondragon/stockflow-backend/pkg/db/dbtest"
	"github.com/angelmondragon/stockflow-backend/pkg/db/models"
	"github.com/angelmondragon/stockflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/stockflow-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2026, 4, 2, 8, 30, 0, 0, time.UTC)

type fixture struct {
	svc      Service
	db       *gorm.DB
	supplier models.Supplier
	widget   models.Article
	gadget   models.Article
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	client, conn := dbtest.Client(t)
	svc, err := NewService(NewRepository(conn), articles.NewRepository(conn), client, func() time.Time { return fixedNow })
	require.NoError(t, err)

	supplier := dbtest.SeedSupplier(t, conn, "acme")
	widget := dbtest.SeedArticle(t, conn, func(a *models.Article) { a.OnHandQuantity = 10 })
	gadget := dbtest.SeedArticle(t, conn, func(a *models.Article) { a.OnHandQuantity = 0 })
	dbtest.SeedRelation(t, conn, widget.ID, supplier.ID, 5, 50, 5, true)
	dbtest.SeedRelation(t, conn, gadget.ID, supplier.ID, 12, 20, 3, true)

	return fixture{svc: svc, db: conn, supplier: supplier, widget: widget, gadget: gadget}
}

func (f fixture) onHand(t *testing.T, id uuid.UUID) int {
	t.Helper()
	var a models.Article
	require.NoError(t, f.db.First(&a, "id = ?", id).Error)
	return a.OnHandQuantity
}

func (f fixture) create(t *testing.T) *models.PurchaseOrder {
	t.Helper()
	order, err := f.svc.Create(context.Background(), CreateInput{
		SupplierID: f.supplier.ID,
		Lines: []LineInput{
			{ArticleID: f.widget.ID, Quantity: 4},
			{ArticleID: f.gadget.ID, Quantity: 2},
		},
	})
	require.NoError(t, err)
	return order
}

func TestNewServiceValidatesDependencies(t *testing.T) {
	_, err := NewService(nil, nil, nil, nil)
	require.Error(t, err)
}

func TestCreatePricesFromRelation(t *testing.T) {
	f := newFixture(t)
	order := f.create(t)

	assert.Equal(t, enums.PurchaseOrderStatusPending, order.Status)
	assert.False(t, order.Automatic)
	require.Len(t, order.Lines, 2)
	assert.Equal(t, "44.00", order.TotalAmount.StringFixed(2))
	require.NoError(t, VerifyTotal(*order))
	require.NotNil(t, order.Supplier)
	assert.Equal(t, "acme", order.Supplier.Name)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, CreateInput{SupplierID: f.supplier.ID})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.Create(ctx, CreateInput{SupplierID: f.supplier.ID, Lines: []LineInput{{ArticleID: f.widget.ID, Quantity: 0}}})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	other := dbtest.SeedSupplier(t, f.db, "globex")
	_, err = f.svc.Create(ctx, CreateInput{SupplierID: other.ID, Lines: []LineInput{{ArticleID: f.widget.ID, Quantity: 3}}})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeMissingRelation))

	var count int64
	require.NoError(t, f.db.Model(&models.PurchaseOrder{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateDuplicateNeedsConfirmation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.create(t)

	input := CreateInput{SupplierID: f.supplier.ID, Lines: []LineInput{{ArticleID: f.widget.ID, Quantity: 3}}}
	_, err := f.svc.Create(ctx, input)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDuplicateOrder))
	details, ok := pkgerrors.As(err).Details().(map[string]any)
	require.True(t, ok)
	conflicts := details["open_orders"].([]DuplicateOrderDetail)
	require.Len(t, conflicts, 1)
	assert.Equal(t, first.ID, conflicts[0].OrderID)

	auto := input
	auto.Automatic = true
	auto.Confirm = true
	_, err = f.svc.Create(ctx, auto)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDuplicateOrder), "automatic creation is always blocked")

	input.Confirm = true
	second, err := f.svc.Create(ctx, input)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestManualDuplicateSpansSuppliers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.create(t)

	beta := dbtest.SeedSupplier(t, f.db, "beta")
	dbtest.SeedRelation(t, f.db, f.gadget.ID, beta.ID, 11, 15, 4, false)

	input := CreateInput{SupplierID: beta.ID, Lines: []LineInput{{ArticleID: f.gadget.ID, Quantity: 3}}}
	_, err := f.svc.Create(ctx, input)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDuplicateOrder))
	conflicts := pkgerrors.As(err).Details().(map[string]any)["open_orders"].([]DuplicateOrderDetail)
	require.Len(t, conflicts, 1)
	assert.Equal(t, first.ID, conflicts[0].OrderID)
	assert.Equal(t, f.supplier.ID, conflicts[0].SupplierID)

	auto := input
	auto.Automatic = true
	_, err = f.svc.Create(ctx, auto)
	require.NoError(t, err, "automatic orders only conflict with the same supplier")

	draft, err := f.svc.Create(ctx, CreateInput{SupplierID: beta.ID, Lines: []LineInput{{ArticleID: f.gadget.ID, Quantity: 1}}, Confirm: true})
	require.NoError(t, err)
	_, err = f.svc.ReplaceLines(ctx, draft.ID, ReplaceInput{SupplierID: beta.ID, Lines: []LineInput{{ArticleID: f.gadget.ID, Quantity: 2}}})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDuplicateOrder))
}

func TestCreateManualRespectsReorderPoint(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dbtest.SeedPolicy(t, f.db, models.NewFixedLotPolicy(f.widget.ID, models.FixedLotModel{LotSize: 30, ReorderPoint: 20}, fixedNow))

	_, err := f.svc.Create(ctx, CreateInput{SupplierID: f.supplier.ID, Lines: []LineInput{{ArticleID: f.widget.ID, Quantity: 10}}})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	order, err := f.svc.Create(ctx, CreateInput{SupplierID: f.supplier.ID, Lines: []LineInput{{ArticleID: f.widget.ID, Quantity: 11}}})
	require.NoError(t, err)
	assert.Equal(t, 11, order.Lines[0].Quantity)
}

func TestOrderTotalInvariantAcrossEdits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.create(t)

	widgetLine := order.Lines[0]
	if widgetLine.ArticleID != f.widget.ID {
		widgetLine = order.Lines[1]
	}

	// the supplier raised the widget price after the order was placed
	require.NoError(t, f.db.Model(&models.ArticleSupplier{}).
		Where("article_id = ? AND supplier_id = ?", f.widget.ID, f.supplier.ID).
		Update("unit_cost", decimal.RequireFromString("6.25")).Error)

	updated, err := f.svc.UpdateLineQuantity(ctx, order.ID, widgetLine.ID, 8)
	require.NoError(t, err)
	require.NoError(t, VerifyTotal(*updated))
	assert.Equal(t, "74.00", updated.TotalAmount.StringFixed(2))

	_, err = f.svc.UpdateLineQuantity(ctx, order.ID, widgetLine.ID, 0)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.UpdateLineQuantity(ctx, order.ID, uuid.New(), 2)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	afterDelete, err := f.svc.DeleteLine(ctx, order.ID, widgetLine.ID)
	require.NoError(t, err)
	require.NoError(t, VerifyTotal(*afterDelete))
	require.Len(t, afterDelete.Lines, 1)
	assert.Equal(t, "24.00", afterDelete.TotalAmount.StringFixed(2))

	_, err = f.svc.DeleteLine(ctx, order.ID, afterDelete.Lines[0].ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "the last line cannot be removed")
}

func TestReplaceLinesReprices(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.create(t)

	other := dbtest.SeedSupplier(t, f.db, "globex")
	dbtest.SeedRelation(t, f.db, f.widget.ID, other.ID, 7, 10, 2, false)

	replaced, err := f.svc.ReplaceLines(ctx, order.ID, ReplaceInput{
		SupplierID: other.ID,
		Lines:      []LineInput{{ArticleID: f.widget.ID, Quantity: 3}},
	})
	require.NoError(t, err)
	assert.Equal(t, other.ID, replaced.SupplierID)
	require.Len(t, replaced.Lines, 1)
	assert.Equal(t, "21.00", replaced.TotalAmount.StringFixed(2))
	require.NoError(t, VerifyTotal(*replaced))

	_, err = f.svc.ReplaceLines(ctx, order.ID, ReplaceInput{
		SupplierID: other.ID,
		Lines:      []LineInput{{ArticleID: f.gadget.ID, Quantity: 3}},
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeMissingRelation))
}

func TestFinalizeIncrementsStockOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.create(t)

	sent, err := f.svc.Send(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PurchaseOrderStatusSent, sent.Status)
	require.NotNil(t, sent.SentAt)

	_, err = f.svc.UpdateLineQuantity(ctx, order.ID, sent.Lines[0].ID, 9)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition), "sent orders are not editable")

	_, err = f.svc.Cancel(ctx, order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition), "sent orders cannot be cancelled")

	finalized, err := f.svc.Finalize(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PurchaseOrderStatusFinalized, finalized.Status)
	require.NotNil(t, finalized.FinalizedAt)
	assert.True(t, finalized.FinalizedAt.Equal(fixedNow))
	assert.Equal(t, 14, f.onHand(t, f.widget.ID))
	assert.Equal(t, 2, f.onHand(t, f.gadget.ID))

	_, err = f.svc.Finalize(ctx, order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))
	assert.Equal(t, 14, f.onHand(t, f.widget.ID))
	assert.Equal(t, 2, f.onHand(t, f.gadget.ID))
}

func TestCancelPendingOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.create(t)

	cancelled, err := f.svc.Cancel(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PurchaseOrderStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)

	_, err = f.svc.Finalize(ctx, order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))
	assert.Equal(t, 10, f.onHand(t, f.widget.ID))

	open, err := f.svc.FindOpenOrders(ctx, f.widget.ID, &f.supplier.ID)
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestEnsureStatusesAndCounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.EnsureStatuses(ctx))
	require.NoError(t, f.svc.EnsureStatuses(ctx))

	var records []models.PurchaseOrderStatusRecord
	require.NoError(t, f.db.Order("code").Find(&records).Error)
	require.Len(t, records, 4)
	for _, r := range records {
		assert.Equal(t, r.Code.IsTerminal(), r.Terminal)
		assert.Equal(t, r.Code.Label(), r.Label)
	}

	order := f.create(t)
	_, err := f.svc.Send(ctx, order.ID)
	require.NoError(t, err)

	counts, err := f.svc.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[enums.PurchaseOrderStatusSent])
	assert.Equal(t, int64(0), counts[enums.PurchaseOrderStatusPending])

	sorted := SortedStatusCounts(counts)
	require.Len(t, sorted, 4)
	assert.Equal(t, enums.PurchaseOrderStatusPending, sorted[0].Status)
}

func TestGetMissingOrder(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Get(context.Background(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
