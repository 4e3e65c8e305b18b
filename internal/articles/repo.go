package articles

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/angelmondragon/stockflow-backend/internal/repo"
	"github.com/angelmondragon/stockflow-backend/pkg/db/models"
	"github.com/angelmondragon/stockflow-backend/pkg/enums"
	"github.com/angelmondragon/stockflow-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrStockUnavailable reports that a stock decrement would take on-hand below zero.
var ErrStockUnavailable = errors.New("insufficient stock on hand")

// ListFilters narrows article listings.
type ListFilters struct {
	IncludeDeleted    bool
	HasPolicy         *bool
	BelowReorderPoint bool
	SupplierID        *uuid.UUID
	Query             string
}

// Repository persists articles, their policies and stock levels.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, article *models.Article) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Article, error)
	List(ctx context.Context, filters ListFilters, params pagination.Params) (pagination.Page[models.Article], error)
	ListReviewCandidates(ctx context.Context, after *pagination.Cursor, limit int) ([]models.Article, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	AdjustStock(ctx context.Context, id uuid.UUID, delta int) error
	SetStock(ctx context.Context, id uuid.UUID, quantity int) error
	SavePolicy(ctx context.Context, policy *models.InventoryPolicy) error
	DeletePolicy(ctx context.Context, articleID uuid.UUID) error
	MarkReviewed(ctx context.Context, id uuid.UUID, at time.Time) error
	SetCGI(ctx context.Context, id uuid.UUID, cgi *decimal.Decimal) error
	CountOpenOrders(ctx context.Context, articleID uuid.UUID) (int64, error)
}

type repository struct {
	repo.Base
}

// NewRepository builds a gorm backed article repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Base.WithTx(tx)}
}

func (r *repository) Create(ctx context.Context, article *models.Article) error {
	return r.DB(ctx).Omit(clause.Associations).Create(article).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Article, error) {
	var article models.Article
	err := r.preload(r.DB(ctx)).
		Where("articles.id = ?", id).
		First(&article).Error
	if err != nil {
		return nil, err
	}
	return &article, nil
}

func (r *repository) preload(q *gorm.DB) *gorm.DB {
	return q.Preload("Policy").
		Preload("DefaultSupplier").
		Preload("Suppliers", func(db *gorm.DB) *gorm.DB {
			return db.Order("article_suppliers.created_at ASC")
		}).
		Preload("Suppliers.Supplier")
}

func (r *repository) List(ctx context.Context, filters ListFilters, params pagination.Params) (pagination.Page[models.Article], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[models.Article]{}, err
	}

	q := r.DB(ctx).Model(&models.Article{}).Select("articles.*")
	if !filters.IncludeDeleted {
		q = q.Where("articles.deleted_at IS NULL")
	}
	if filters.HasPolicy != nil {
		if *filters.HasPolicy {
			q = q.Where("EXISTS (SELECT 1 FROM inventory_policies p WHERE p.article_id = articles.id)")
		} else {
			q = q.Where("NOT EXISTS (SELECT 1 FROM inventory_policies p WHERE p.article_id = articles.id)")
		}
	}
	if filters.BelowReorderPoint {
		q = q.Joins("JOIN inventory_policies ON inventory_policies.article_id = articles.id").
			Where("inventory_policies.kind = ? AND articles.on_hand_quantity <= inventory_policies.reorder_point", enums.InventoryPolicyFixedLot)
	}
	if filters.SupplierID != nil {
		q = q.Where("EXISTS (SELECT 1 FROM article_suppliers s WHERE s.article_id = articles.id AND s.supplier_id = ?)", *filters.SupplierID)
	}
	if term := strings.TrimSpace(filters.Query); term != "" {
		q = q.Where("LOWER(articles.name) LIKE ?", "%"+strings.ToLower(term)+"%")
	}
	if cursor != nil {
		q = q.Where("(articles.created_at < ?) OR (articles.created_at = ? AND articles.id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Article
	err = r.preload(q).
		Order("articles.created_at DESC").
		Order("articles.id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	if err != nil {
		return pagination.Page[models.Article]{}, err
	}
	return pagination.Build(rows, params.Limit, articleCursor), nil
}

// ListReviewCandidates pages, oldest first, through active articles that have
// both a policy and a default supplier.
func (r *repository) ListReviewCandidates(ctx context.Context, after *pagination.Cursor, limit int) ([]models.Article, error) {
	q := r.DB(ctx).Model(&models.Article{}).
		Select("articles.*").
		Joins("JOIN inventory_policies ON inventory_policies.article_id = articles.id").
		Where("articles.deleted_at IS NULL AND articles.default_supplier_id IS NOT NULL")
	if after != nil {
		q = q.Where("(articles.created_at > ?) OR (articles.created_at = ? AND articles.id > ?)",
			after.CreatedAt, after.CreatedAt, after.ID)
	}

	var rows []models.Article
	err := r.preload(q).
		Order("articles.created_at ASC").
		Order("articles.id ASC").
		Limit(pagination.NormalizeLimit(limit)).
		Find(&rows).Error
	return rows, err
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	res := r.DB(ctx).Model(&models.Article{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// AdjustStock applies delta atomically and refuses to go below zero.
func (r *repository) AdjustStock(ctx context.Context, id uuid.UUID, delta int) error {
	res := r.DB(ctx).Model(&models.Article{}).
		Where("id = ? AND on_hand_quantity + ? >= 0", id, delta).
		Update("on_hand_quantity", gorm.Expr("on_hand_quantity + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := r.DB(ctx).Model(&models.Article{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return gorm.ErrRecordNotFound
	}
	return ErrStockUnavailable
}

func (r *repository) SetStock(ctx context.Context, id uuid.UUID, quantity int) error {
	if quantity < 0 {
		return ErrStockUnavailable
	}
	return r.Update(ctx, id, map[string]any{"on_hand_quantity": quantity})
}

// SavePolicy replaces whatever policy the article had with the given one.
func (r *repository) SavePolicy(ctx context.Context, policy *models.InventoryPolicy) error {
	return r.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "article_id"}},
		UpdateAll: true,
	}).Create(policy).Error
}

func (r *repository) DeletePolicy(ctx context.Context, articleID uuid.UUID) error {
	return r.DB(ctx).Where("article_id = ?", articleID).Delete(&models.InventoryPolicy{}).Error
}

func (r *repository) MarkReviewed(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.Update(ctx, id, map[string]any{"last_reviewed_at": at})
}

func (r *repository) SetCGI(ctx context.Context, id uuid.UUID, cgi *decimal.Decimal) error {
	return r.DB(ctx).Model(&models.Article{}).Where("id = ?", id).Update("cgi", cgi).Error
}

func (r *repository) CountOpenOrders(ctx context.Context, articleID uuid.UUID) (int64, error) {
	var count int64
	err := r.DB(ctx).Model(&models.PurchaseOrder{}).
		Joins("JOIN purchase_order_lines ON purchase_order_lines.order_id = purchase_orders.id").
		Where("purchase_order_lines.article_id = ? AND purchase_orders.status IN ?", articleID, enums.OpenPurchaseOrderStatuses()).
		Distinct("purchase_orders.id").
		Count(&count).Error
	return count, err
}

func articleCursor(a models.Article) pagination.Cursor {
	return pagination.Cursor{CreatedAt: a.CreatedAt, ID: a.ID}
}
