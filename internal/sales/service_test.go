package sales

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/angelmondragon/stockflow-backend/internal/articles"
	"github.com/angelmondragon/stockflow-backend/internal/replenishment"
	"github.com/angelmondragon/stockflow-backend/pkg/db/dbtest"
	"github.com/angelmondragon/stockflow-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/stockflow-backend/pkg/errors"
	"github.com/angelmondragon/stockflow-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type stubEvaluator struct {
	mu    sync.Mutex
	calls []uuid.UUID
	err   error
}

func (s *stubEvaluator) Evaluate(_ context.Context, articleID uuid.UUID, trigger replenishment.Trigger) (replenishment.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, articleID)
	return replenishment.Outcome{ArticleID: articleID, Trigger: trigger, Action: replenishment.ActionNone}, s.err
}

type fixture struct {
	svc    Service
	db     *gorm.DB
	eval   *stubEvaluator
	widget models.Article
	gadget models.Article
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	client, conn := dbtest.Client(t)
	eval := &stubEvaluator{}
	svc, err := NewService(NewRepository(conn), articles.NewRepository(conn), client, eval, nil)
	require.NoError(t, err)

	widget := dbtest.SeedArticle(t, conn, func(a *models.Article) {
		a.OnHandQuantity = 10
		a.PurchaseCost = decimal.NewFromInt(3)
	})
	gadget := dbtest.SeedArticle(t, conn, func(a *models.Article) {
		a.OnHandQuantity = 2
		a.PurchaseCost = decimal.RequireFromString("7.50")
	})
	return fixture{svc: svc, db: conn, eval: eval, widget: widget, gadget: gadget}
}

func (f fixture) onHand(t *testing.T, id uuid.UUID) int {
	t.Helper()
	var a models.Article
	require.NoError(t, f.db.First(&a, "id = ?", id).Error)
	return a.OnHandQuantity
}

func TestNewServiceValidatesDependencies(t *testing.T) {
	_, err := NewService(nil, nil, nil, nil, nil)
	require.Error(t, err)
}

func TestCreateDepletesStockAndTriggersReplenishment(t *testing.T) {
	f := newFixture(t)

	sale, err := f.svc.Create(context.Background(), []LineInput{
		{ArticleID: f.widget.ID, Quantity: 4},
		{ArticleID: f.gadget.ID, Quantity: 2},
	})
	require.NoError(t, err)

	require.Len(t, sale.Lines, 2)
	assert.Equal(t, "27.00", sale.TotalAmount.StringFixed(2))
	assert.Equal(t, 6, f.onHand(t, f.widget.ID))
	assert.Equal(t, 0, f.onHand(t, f.gadget.ID))
	assert.ElementsMatch(t, []uuid.UUID{f.widget.ID, f.gadget.ID}, f.eval.calls)
}

func TestCreateRejectsOversellAtomically(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), []LineInput{
		{ArticleID: f.widget.ID, Quantity: 4},
		{ArticleID: f.gadget.ID, Quantity: 3},
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStockConstraint))

	assert.Equal(t, 10, f.onHand(t, f.widget.ID), "earlier lines roll back")
	assert.Equal(t, 2, f.onHand(t, f.gadget.ID))
	assert.Empty(t, f.eval.calls)

	var count int64
	require.NoError(t, f.db.Model(&models.Sale{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateValidatesLines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := map[string][]LineInput{
		"empty":         nil,
		"zero quantity": {{ArticleID: f.widget.ID, Quantity: 0}},
		"missing id":    {{Quantity: 1}},
		"duplicate":     {{ArticleID: f.widget.ID, Quantity: 1}, {ArticleID: f.widget.ID, Quantity: 2}},
	}
	for name, lines := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, lines)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
		})
	}

	_, err := f.svc.Create(ctx, []LineInput{{ArticleID: uuid.New(), Quantity: 1}})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestEvaluatorFailureDoesNotFailSale(t *testing.T) {
	f := newFixture(t)
	f.eval.err = errors.New("engine down")

	sale, err := f.svc.Create(context.Background(), []LineInput{{ArticleID: f.widget.ID, Quantity: 1}})
	require.NoError(t, err)
	assert.Equal(t, "3.00", sale.TotalAmount.StringFixed(2))
	assert.Equal(t, 9, f.onHand(t, f.widget.ID))
}

func TestUpdateLineQuantityMovesStockByDifference(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sale, err := f.svc.Create(ctx, []LineInput{{ArticleID: f.widget.ID, Quantity: 4}})
	require.NoError(t, err)
	line := sale.Lines[0]
	f.eval.calls = nil

	sale, err = f.svc.UpdateLineQuantity(ctx, sale.ID, line.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, 3, f.onHand(t, f.widget.ID))
	assert.Equal(t, "21.00", sale.TotalAmount.StringFixed(2))
	assert.Len(t, f.eval.calls, 1)

	sale, err = f.svc.UpdateLineQuantity(ctx, sale.ID, line.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 8, f.onHand(t, f.widget.ID))
	assert.Equal(t, "6.00", sale.TotalAmount.StringFixed(2))
	assert.Len(t, f.eval.calls, 1, "returning stock does not trigger replenishment")

	_, err = f.svc.UpdateLineQuantity(ctx, sale.ID, line.ID, 20)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStockConstraint))
	assert.Equal(t, 8, f.onHand(t, f.widget.ID))

	_, err = f.svc.UpdateLineQuantity(ctx, sale.ID, line.ID, 0)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.UpdateLineQuantity(ctx, sale.ID, uuid.New(), 1)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestDeleteLineCompensatesStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sale, err := f.svc.Create(ctx, []LineInput{
		{ArticleID: f.widget.ID, Quantity: 4},
		{ArticleID: f.gadget.ID, Quantity: 1},
	})
	require.NoError(t, err)

	var gadgetLine models.SaleLine
	for _, line := range sale.Lines {
		if line.ArticleID == f.gadget.ID {
			gadgetLine = line
		}
	}

	sale, err = f.svc.DeleteLine(ctx, sale.ID, gadgetLine.ID)
	require.NoError(t, err)
	require.Len(t, sale.Lines, 1)
	assert.Equal(t, "12.00", sale.TotalAmount.StringFixed(2))
	assert.Equal(t, 2, f.onHand(t, f.gadget.ID))

	_, err = f.svc.DeleteLine(ctx, sale.ID, sale.Lines[0].ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Equal(t, 6, f.onHand(t, f.widget.ID))
}

func TestListPagesNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.svc.Create(ctx, []LineInput{{ArticleID: f.widget.ID, Quantity: 1}})
		require.NoError(t, err)
	}

	page, err := f.svc.List(ctx, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.NotEmpty(t, page.NextCursor)

	next, err := f.svc.List(ctx, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	assert.Len(t, next.Items, 1)
	assert.Empty(t, next.NextCursor)

	_, err = f.svc.List(ctx, pagination.Params{Cursor: "not-a-cursor"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
