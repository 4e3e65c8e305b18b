package articles

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/stockflow-backend/pkg/db/dbtest"
	"github.com/angelmondragon/stockflow-backend/pkg/db/models"
	"github.com/angelmondragon/stockflow-backend/pkg/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListPaginatesNewestFirst(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		created := base.Add(time.Duration(i) * time.Hour)
		a := dbtest.SeedArticle(t, db, func(a *models.Article) { a.CreatedAt = created })
		ids = append(ids, a.ID.String())
	}

	first, err := repo.List(ctx, ListFilters{}, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	assert.Equal(t, ids[2], first.Items[0].ID.String())
	assert.Equal(t, ids[1], first.Items[1].ID.String())
	require.NotEmpty(t, first.NextCursor)

	second, err := repo.List(ctx, ListFilters{}, pagination.Params{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.Equal(t, ids[0], second.Items[0].ID.String())
	assert.Empty(t, second.NextCursor)
}

func TestListBelowReorderPoint(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()

	low := dbtest.SeedArticle(t, db, func(a *models.Article) { a.OnHandQuantity = 20 })
	high := dbtest.SeedArticle(t, db, func(a *models.Article) { a.OnHandQuantity = 80 })
	dbtest.SeedArticle(t, db, nil)
	for _, id := range []models.Article{low, high} {
		dbtest.SeedPolicy(t, db, models.NewFixedLotPolicy(id.ID, models.FixedLotModel{LotSize: 100, ReorderPoint: 25}, time.Now()))
	}

	page, err := repo.List(ctx, ListFilters{BelowReorderPoint: true}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, low.ID, page.Items[0].ID)

	withPolicy := true
	page, err = repo.List(ctx, ListFilters{HasPolicy: &withPolicy}, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
}

func TestListReviewCandidates(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()
	supplier := dbtest.SeedSupplier(t, db, "acme")

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var candidates []models.Article
	for i := 0; i < 3; i++ {
		created := base.Add(time.Duration(i) * time.Minute)
		a := dbtest.SeedArticle(t, db, func(a *models.Article) { a.CreatedAt = created })
		dbtest.SeedRelation(t, db, a.ID, supplier.ID, 5, 50, 5, true)
		dbtest.SeedPolicy(t, db, models.NewFixedLotPolicy(a.ID, models.FixedLotModel{LotSize: 10, ReorderPoint: 5}, time.Now()))
		candidates = append(candidates, a)
	}
	// no default supplier
	orphan := dbtest.SeedArticle(t, db, nil)
	dbtest.SeedPolicy(t, db, models.NewFixedLotPolicy(orphan.ID, models.FixedLotModel{LotSize: 10, ReorderPoint: 5}, time.Now()))
	// no policy
	bare := dbtest.SeedArticle(t, db, nil)
	dbtest.SeedRelation(t, db, bare.ID, supplier.ID, 5, 50, 5, true)
	// soft deleted
	gone := time.Now()
	deleted := dbtest.SeedArticle(t, db, func(a *models.Article) { a.DeletedAt = &gone })
	dbtest.SeedRelation(t, db, deleted.ID, supplier.ID, 5, 50, 5, true)
	dbtest.SeedPolicy(t, db, models.NewFixedLotPolicy(deleted.ID, models.FixedLotModel{LotSize: 10, ReorderPoint: 5}, time.Now()))

	first, err := repo.ListReviewCandidates(ctx, nil, 2)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, candidates[0].ID, first[0].ID)
	require.NotNil(t, first[0].Policy)
	_, ok := first[0].DefaultRelation()
	assert.True(t, ok)

	last := first[len(first)-1]
	rest, err := repo.ListReviewCandidates(ctx, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, candidates[2].ID, rest[0].ID)
}

func TestSavePolicyReplacesVariant(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()
	article := dbtest.SeedArticle(t, db, nil)

	lot := models.NewFixedLotPolicy(article.ID, models.FixedLotModel{LotSize: 100, ReorderPoint: 20, SafetyStock: 4}, time.Now())
	require.NoError(t, repo.SavePolicy(ctx, &lot))

	interval := models.NewFixedIntervalPolicy(article.ID, models.FixedIntervalModel{ReviewIntervalDays: 7, SafetyStock: 10, MaxInventory: 110, OrderQuantity: 15}, time.Now())
	require.NoError(t, repo.SavePolicy(ctx, &interval))

	var count int64
	require.NoError(t, db.Model(&models.InventoryPolicy{}).Where("article_id = ?", article.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	got, err := repo.FindByID(ctx, article.ID)
	require.NoError(t, err)
	_, isLot := got.Policy.FixedLot()
	assert.False(t, isLot)
	m, ok := got.Policy.FixedInterval()
	require.True(t, ok)
	assert.Equal(t, 110, m.MaxInventory)
	assert.Nil(t, got.Policy.LotSize)
}
