package suppliers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/stockflow-backend/internal/repo"
	"github.com/angelmondragon/stockflow-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/stockflow-backend/pkg/errors"
	"github.com/angelmondragon/stockflow-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// RelationInput carries the per pair pricing and lead time.
type RelationInput struct {
	UnitCost     decimal.Decimal
	OrderCharge  decimal.Decimal
	LeadTimeDays int
}

type Service interface {
	Create(ctx context.Context, name string) (*models.Supplier, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Supplier, error)
	List(ctx context.Context, query string, params pagination.Params) (pagination.Page[models.Supplier], error)
	Delete(ctx context.Context, id uuid.UUID) error
	UpsertRelation(ctx context.Context, supplierID, articleID uuid.UUID, input RelationInput) (*models.ArticleSupplier, error)
	ListArticles(ctx context.Context, supplierID uuid.UUID) ([]models.ArticleSupplier, error)
	ListSuppliersFor(ctx context.Context, articleID uuid.UUID) ([]models.ArticleSupplier, error)
	DeleteRelation(ctx context.Context, supplierID, articleID uuid.UUID) error
}

type service struct {
	repo Repository
	tx   txRunner
	now  func() time.Time
}

func NewService(repo Repository, tx txRunner, now func() time.Time) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("suppliers repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if now == nil {
		now = time.Now
	}
	return &service{repo: repo, tx: tx, now: now}, nil
}

func (s *service) Create(ctx context.Context, name string) (*models.Supplier, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	supplier := &models.Supplier{Name: name}
	if err := s.repo.Create(ctx, supplier); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create supplier")
	}
	return supplier, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	supplier, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, repo.Translate(err, "supplier", "load supplier")
	}
	if !supplier.IsActive() {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
	}
	return supplier, nil
}

func (s *service) List(ctx context.Context, query string, params pagination.Params) (pagination.Page[models.Supplier], error) {
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return pagination.Page[models.Supplier]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	page, err := s.repo.List(ctx, query, params)
	if err != nil {
		return page, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list suppliers")
	}
	return page, nil
}

// Delete soft-deletes a supplier that has no open orders and is nobody's default.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		r := s.repo.WithTx(tx)
		open, err := r.CountOpenOrders(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count open orders")
		}
		if open > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "supplier has open purchase orders").
				WithDetails(map[string]any{"open_orders": open})
		}
		defaults, err := r.CountDefaultFor(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count default articles")
		}
		if defaults > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "supplier is the default supplier of active articles").
				WithDetails(map[string]any{"articles": defaults})
		}
		if err := r.SoftDelete(ctx, id, map[string]any{"deleted_at": s.now().UTC()}); err != nil {
			return repo.Translate(err, "supplier", "delete supplier")
		}
		return nil
	})
}

func (s *service) UpsertRelation(ctx context.Context, supplierID, articleID uuid.UUID, input RelationInput) (*models.ArticleSupplier, error) {
	if input.LeadTimeDays <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "lead time days must be greater than zero")
	}
	if input.UnitCost.IsNegative() || input.OrderCharge.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "costs cannot be negative")
	}
	if _, err := s.Get(ctx, supplierID); err != nil {
		return nil, err
	}
	article, err := s.repo.FindArticle(ctx, articleID)
	if err != nil {
		return nil, repo.Translate(err, "article", "load article")
	}
	if !article.IsActive() {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "article not found")
	}

	rel := &models.ArticleSupplier{
		ArticleID:    articleID,
		SupplierID:   supplierID,
		UnitCost:     input.UnitCost,
		OrderCharge:  input.OrderCharge,
		LeadTimeDays: input.LeadTimeDays,
	}
	if err := s.repo.UpsertRelation(ctx, rel); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save relation")
	}
	saved, err := s.repo.FindRelation(ctx, articleID, supplierID)
	if err != nil {
		return nil, repo.Translate(err, "relation", "load relation")
	}
	return saved, nil
}

func (s *service) ListArticles(ctx context.Context, supplierID uuid.UUID) ([]models.ArticleSupplier, error) {
	if _, err := s.Get(ctx, supplierID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListRelationsBySupplier(ctx, supplierID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list supplier articles")
	}
	return rows, nil
}

func (s *service) ListSuppliersFor(ctx context.Context, articleID uuid.UUID) ([]models.ArticleSupplier, error) {
	rows, err := s.repo.ListRelationsByArticle(ctx, articleID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list article suppliers")
	}
	return rows, nil
}

// DeleteRelation refuses to unlink the article's default supplier.
func (s *service) DeleteRelation(ctx context.Context, supplierID, articleID uuid.UUID) error {
	article, err := s.repo.FindArticle(ctx, articleID)
	if err != nil {
		return repo.Translate(err, "article", "load article")
	}
	if article.DefaultSupplierID != nil && *article.DefaultSupplierID == supplierID {
		return pkgerrors.New(pkgerrors.CodeConflict, "relation is the article's default supplier")
	}
	if err := s.repo.DeleteRelation(ctx, articleID, supplierID); err != nil {
		return repo.Translate(err, "relation", "delete relation")
	}
	return nil
}
