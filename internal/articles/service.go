package articles

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/stockflow-backend/internal/inventory"
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

// CreateInput describes a new catalog article.
type CreateInput struct {
	Name                 string
	Description          string
	OnHandQuantity       int
	MaxStock             int
	AnnualDemand         float64
	LeadTimeDemandStdDev float64
	ReviewDemandStdDev   float64
	ServiceLevel         float64
	HoldingCost          decimal.Decimal
	StorageCost          decimal.Decimal
	OrderingCost         decimal.Decimal
	PurchaseCost         decimal.Decimal
}

// UpdateInput patches article attributes; nil fields are left untouched.
type UpdateInput struct {
	Name                 *string
	Description          *string
	MaxStock             *int
	AnnualDemand         *float64
	LeadTimeDemandStdDev *float64
	ReviewDemandStdDev   *float64
	ServiceLevel         *float64
	HoldingCost          *decimal.Decimal
	StorageCost          *decimal.Decimal
	OrderingCost         *decimal.Decimal
	PurchaseCost         *decimal.Decimal
}

// Service exposes the article catalog operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Article, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Article, error)
	List(ctx context.Context, filters ListFilters, params pagination.Params) (pagination.Page[models.Article], error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Article, error)
	SetDefaultSupplier(ctx context.Context, id, supplierID uuid.UUID) (*models.Article, error)
	Delete(ctx context.Context, id uuid.UUID) error
	AdjustStock(ctx context.Context, id uuid.UUID, delta int) (*models.Article, error)
	SetStock(ctx context.Context, id uuid.UUID, quantity int) (*models.Article, error)
	ComputeCGI(ctx context.Context, id uuid.UUID) (decimal.Decimal, error)
	DetachPolicy(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo Repository
	tx   txRunner
	now  func() time.Time
}

// NewService wires the catalog service.
func NewService(repo Repository, tx txRunner, now func() time.Time) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("articles repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if now == nil {
		now = time.Now
	}
	return &service{repo: repo, tx: tx, now: now}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Article, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}
	article := &models.Article{
		Name:                 strings.TrimSpace(input.Name),
		Description:          input.Description,
		OnHandQuantity:       input.OnHandQuantity,
		MaxStock:             input.MaxStock,
		AnnualDemand:         input.AnnualDemand,
		LeadTimeDemandStdDev: input.LeadTimeDemandStdDev,
		ReviewDemandStdDev:   input.ReviewDemandStdDev,
		ServiceLevel:         input.ServiceLevel,
		HoldingCost:          input.HoldingCost,
		StorageCost:          input.StorageCost,
		OrderingCost:         input.OrderingCost,
		PurchaseCost:         input.PurchaseCost,
	}
	if err := s.repo.Create(ctx, article); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create article")
	}
	return s.Get(ctx, article.ID)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Article, error) {
	article, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, repo.Translate(err, "article", "load article")
	}
	if !article.IsActive() {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "article not found")
	}
	return article, nil
}

func (s *service) List(ctx context.Context, filters ListFilters, params pagination.Params) (pagination.Page[models.Article], error) {
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return pagination.Page[models.Article]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	page, err := s.repo.List(ctx, filters, params)
	if err != nil {
		return page, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list articles")
	}
	return page, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Article, error) {
	updates, err := buildUpdates(input)
	if err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, id, updates); err != nil {
		return nil, repo.Translate(err, "article", "update article")
	}
	return s.Get(ctx, id)
}

// SetDefaultSupplier requires an existing relation with an active supplier.
func (s *service) SetDefaultSupplier(ctx context.Context, id, supplierID uuid.UUID) (*models.Article, error) {
	article, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	rel, ok := article.RelationFor(supplierID)
	if !ok {
		return nil, pkgerrors.MissingRelation("supplier does not provide this article").
			WithDetails(map[string]any{"article_id": id, "supplier_id": supplierID})
	}
	if rel.Supplier != nil && !rel.Supplier.IsActive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier is no longer active")
	}
	if err := s.repo.Update(ctx, id, map[string]any{"default_supplier_id": supplierID}); err != nil {
		return nil, repo.Translate(err, "article", "set default supplier")
	}
	return s.Get(ctx, id)
}

// Delete soft-deletes an article with no stock and no open purchase orders.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		r := s.repo.WithTx(tx)
		article, err := r.FindByID(ctx, id)
		if err != nil {
			return repo.Translate(err, "article", "load article")
		}
		if !article.IsActive() {
			return pkgerrors.New(pkgerrors.CodeNotFound, "article not found")
		}
		if article.OnHandQuantity > 0 {
			return pkgerrors.StockConstraint("article still has stock on hand").
				WithDetails(map[string]any{"on_hand_quantity": article.OnHandQuantity})
		}
		open, err := r.CountOpenOrders(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count open orders")
		}
		if open > 0 {
			return pkgerrors.StockConstraint("article has open purchase orders").
				WithDetails(map[string]any{"open_orders": open})
		}
		if err := r.Update(ctx, id, map[string]any{"deleted_at": s.now().UTC()}); err != nil {
			return repo.Translate(err, "article", "delete article")
		}
		return nil
	})
}

func (s *service) AdjustStock(ctx context.Context, id uuid.UUID, delta int) (*models.Article, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if err := s.repo.AdjustStock(ctx, id, delta); err != nil {
		return nil, StockError(err)
	}
	return s.Get(ctx, id)
}

func (s *service) SetStock(ctx context.Context, id uuid.UUID, quantity int) (*models.Article, error) {
	if quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be zero or greater")
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if err := s.repo.SetStock(ctx, id, quantity); err != nil {
		return nil, StockError(err)
	}
	return s.Get(ctx, id)
}

// ComputeCGI recomputes and stores the article's annual inventory cost.
func (s *service) ComputeCGI(ctx context.Context, id uuid.UUID) (decimal.Decimal, error) {
	article, err := s.Get(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	cgi, err := CGIFor(*article)
	if err != nil {
		return decimal.Zero, err
	}
	if err := s.repo.SetCGI(ctx, id, &cgi); err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store cgi")
	}
	return cgi, nil
}

// DetachPolicy removes the article's policy; the CGI snapshot and review
// timestamp go with it.
func (s *service) DetachPolicy(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		r := s.repo.WithTx(tx)
		if err := r.DeletePolicy(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete policy")
		}
		if err := r.Update(ctx, id, map[string]any{"cgi": nil, "last_reviewed_at": nil}); err != nil {
			return repo.Translate(err, "article", "clear policy snapshot")
		}
		return nil
	})
}

// StockError maps repository stock failures onto the public error taxonomy.
func StockError(err error) error {
	if errors.Is(err, ErrStockUnavailable) {
		return pkgerrors.StockConstraint("insufficient stock on hand")
	}
	return repo.Translate(err, "article", "update stock")
}

func validateCreate(input CreateInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if input.OnHandQuantity < 0 || input.MaxStock < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "stock quantities cannot be negative")
	}
	if input.AnnualDemand < 0 || input.LeadTimeDemandStdDev < 0 || input.ReviewDemandStdDev < 0 || input.ServiceLevel < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "demand parameters cannot be negative")
	}
	if err := inventory.ValidateServiceLevel(input.ServiceLevel); err != nil {
		return err
	}
	for _, cost := range []decimal.Decimal{input.HoldingCost, input.StorageCost, input.OrderingCost, input.PurchaseCost} {
		if cost.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "costs cannot be negative")
		}
	}
	return nil
}

func buildUpdates(input UpdateInput) (map[string]any, error) {
	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		updates["name"] = name
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.MaxStock != nil {
		if *input.MaxStock < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "max stock cannot be negative")
		}
		updates["max_stock"] = *input.MaxStock
	}
	floats := []struct {
		column string
		value  *float64
	}{
		{"annual_demand", input.AnnualDemand},
		{"lead_time_demand_std_dev", input.LeadTimeDemandStdDev},
		{"review_demand_std_dev", input.ReviewDemandStdDev},
		{"service_level", input.ServiceLevel},
	}
	for _, f := range floats {
		if f.value == nil {
			continue
		}
		if *f.value < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, f.column+" cannot be negative")
		}
		updates[f.column] = *f.value
	}
	if input.ServiceLevel != nil {
		if err := inventory.ValidateServiceLevel(*input.ServiceLevel); err != nil {
			return nil, err
		}
	}
	costs := []struct {
		column string
		value  *decimal.Decimal
	}{
		{"holding_cost", input.HoldingCost},
		{"storage_cost", input.StorageCost},
		{"ordering_cost", input.OrderingCost},
		{"purchase_cost", input.PurchaseCost},
	}
	for _, c := range costs {
		if c.value == nil {
			continue
		}
		if c.value.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, c.column+" cannot be negative")
		}
		updates[c.column] = *c.value
	}
	if len(updates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}
	return updates, nil
}
