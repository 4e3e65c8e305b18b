package suppliers

import (
	"context"
	"strings"

	"github.com/angelmondragon/stockflow-backend/internal/repo"
	"github.com/angelmondragon/stockflow-backend/pkg/db/models"
	"github.com/angelmondragon/stockflow-backend/pkg/enums"
	"github.com/angelmondragon/stockflow-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists suppliers and article–supplier relations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, supplier *models.Supplier) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Supplier, error)
	List(ctx context.Context, query string, params pagination.Params) (pagination.Page[models.Supplier], error)
	SoftDelete(ctx context.Context, id uuid.UUID, updates map[string]any) error
	CountOpenOrders(ctx context.Context, supplierID uuid.UUID) (int64, error)
	CountDefaultFor(ctx context.Context, supplierID uuid.UUID) (int64, error)
	FindArticle(ctx context.Context, articleID uuid.UUID) (*models.Article, error)
	UpsertRelation(ctx context.Context, rel *models.ArticleSupplier) error
	FindRelation(ctx context.Context, articleID, supplierID uuid.UUID) (*models.ArticleSupplier, error)
	ListRelationsBySupplier(ctx context.Context, supplierID uuid.UUID) ([]models.ArticleSupplier, error)
	ListRelationsByArticle(ctx context.Context, articleID uuid.UUID) ([]models.ArticleSupplier, error)
	DeleteRelation(ctx context.Context, articleID, supplierID uuid.UUID) error
}

type repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Base.WithTx(tx)}
}

func (r *repository) Create(ctx context.Context, supplier *models.Supplier) error {
	return r.DB(ctx).Create(supplier).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	var supplier models.Supplier
	if err := r.DB(ctx).Where("id = ?", id).First(&supplier).Error; err != nil {
		return nil, err
	}
	return &supplier, nil
}

func (r *repository) List(ctx context.Context, query string, params pagination.Params) (pagination.Page[models.Supplier], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[models.Supplier]{}, err
	}

	q := r.DB(ctx).Model(&models.Supplier{}).Where("deleted_at IS NULL")
	if term := strings.TrimSpace(query); term != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(term)+"%")
	}
	if cursor != nil {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Supplier
	if err := q.Order("created_at DESC").Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error; err != nil {
		return pagination.Page[models.Supplier]{}, err
	}
	return pagination.Build(rows, params.Limit, func(s models.Supplier) pagination.Cursor {
		return pagination.Cursor{CreatedAt: s.CreatedAt, ID: s.ID}
	}), nil
}

func (r *repository) SoftDelete(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	res := r.DB(ctx).Model(&models.Supplier{}).Where("id = ? AND deleted_at IS NULL", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) CountOpenOrders(ctx context.Context, supplierID uuid.UUID) (int64, error) {
	var count int64
	err := r.DB(ctx).Model(&models.PurchaseOrder{}).
		Where("supplier_id = ? AND status IN ?", supplierID, enums.OpenPurchaseOrderStatuses()).
		Count(&count).Error
	return count, err
}

// CountDefaultFor counts active articles that reorder from supplierID by default.
func (r *repository) CountDefaultFor(ctx context.Context, supplierID uuid.UUID) (int64, error) {
	var count int64
	err := r.DB(ctx).Model(&models.Article{}).
		Where("default_supplier_id = ? AND deleted_at IS NULL", supplierID).
		Count(&count).Error
	return count, err
}

func (r *repository) FindArticle(ctx context.Context, articleID uuid.UUID) (*models.Article, error) {
	var article models.Article
	if err := r.DB(ctx).Where("id = ?", articleID).First(&article).Error; err != nil {
		return nil, err
	}
	return &article, nil
}

func (r *repository) UpsertRelation(ctx context.Context, rel *models.ArticleSupplier) error {
	return r.DB(ctx).Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "article_id"}, {Name: "supplier_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"unit_cost", "order_charge", "lead_time_days", "updated_at"}),
	}).Create(rel).Error
}

func (r *repository) FindRelation(ctx context.Context, articleID, supplierID uuid.UUID) (*models.ArticleSupplier, error) {
	var rel models.ArticleSupplier
	err := r.DB(ctx).Preload("Supplier").
		Where("article_id = ? AND supplier_id = ?", articleID, supplierID).
		First(&rel).Error
	if err != nil {
		return nil, err
	}
	return &rel, nil
}

func (r *repository) ListRelationsBySupplier(ctx context.Context, supplierID uuid.UUID) ([]models.ArticleSupplier, error) {
	var rows []models.ArticleSupplier
	err := r.DB(ctx).Model(&models.ArticleSupplier{}).
		Joins("JOIN articles ON articles.id = article_suppliers.article_id AND articles.deleted_at IS NULL").
		Where("article_suppliers.supplier_id = ?", supplierID).
		Order("article_suppliers.created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListRelationsByArticle(ctx context.Context, articleID uuid.UUID) ([]models.ArticleSupplier, error) {
	var rows []models.ArticleSupplier
	err := r.DB(ctx).Preload("Supplier").
		Where("article_id = ?", articleID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) DeleteRelation(ctx context.Context, articleID, supplierID uuid.UUID) error {
	res := r.DB(ctx).Where("article_id = ? AND supplier_id = ?", articleID, supplierID).Delete(&models.ArticleSupplier{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
