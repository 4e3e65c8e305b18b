package purchaseorders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/angelmondragon/stockflow-backend/internal/articles"
	"github.com/angelmondragon/stockflow-backend/internal/repo"
	"github.com/angelmondragon/stockflow-backend/pkg/db/models"
	"github.com/angelmondragon/stockflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/stockflow-backend/pkg/errors"
	"github.com/angelmondragon/stockflow-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var errStaleStatus = errors.New("order status changed concurrently")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// LineInput requests quantity units of an article.
type LineInput struct {
	ArticleID uuid.UUID
	Quantity  int
}

// CreateInput describes a new purchase order. Confirm acknowledges a
// duplicate open order and is ignored for automatic orders.
type CreateInput struct {
	SupplierID uuid.UUID
	Lines      []LineInput
	Confirm    bool
	Automatic  bool
}

// ReplaceInput swaps the supplier and every line of a pending order.
type ReplaceInput struct {
	SupplierID uuid.UUID
	Lines      []LineInput
	Confirm    bool
}

// Service manages the purchase order lifecycle.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.PurchaseOrder, error)
	Get(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error)
	List(ctx context.Context, filters ListFilters, params pagination.Params) (pagination.Page[models.PurchaseOrder], error)
	CountByStatus(ctx context.Context) (map[enums.PurchaseOrderStatus]int64, error)
	FindOpenOrders(ctx context.Context, articleID uuid.UUID, supplierID *uuid.UUID) ([]models.PurchaseOrder, error)
	ReplaceLines(ctx context.Context, orderID uuid.UUID, input ReplaceInput) (*models.PurchaseOrder, error)
	UpdateLineQuantity(ctx context.Context, orderID, lineID uuid.UUID, quantity int) (*models.PurchaseOrder, error)
	DeleteLine(ctx context.Context, orderID, lineID uuid.UUID) (*models.PurchaseOrder, error)
	Send(ctx context.Context, orderID uuid.UUID) (*models.PurchaseOrder, error)
	Finalize(ctx context.Context, orderID uuid.UUID) (*models.PurchaseOrder, error)
	Cancel(ctx context.Context, orderID uuid.UUID) (*models.PurchaseOrder, error)
	EnsureStatuses(ctx context.Context) error
}

type service struct {
	repo     Repository
	articles articles.Repository
	tx       txRunner
	now      func() time.Time
}

// NewService wires the lifecycle manager.
func NewService(repo Repository, articleRepo articles.Repository, tx txRunner, now func() time.Time) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("purchase order repository required")
	}
	if articleRepo == nil {
		return nil, fmt.Errorf("articles repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if now == nil {
		now = time.Now
	}
	return &service{repo: repo, articles: articleRepo, tx: tx, now: now}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.PurchaseOrder, error) {
	if err := validateLines(input.SupplierID, input.Lines); err != nil {
		return nil, err
	}

	var orderID uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		orders := s.repo.WithTx(tx)
		catalog := s.articles.WithTx(tx)

		lines, err := s.priceLines(ctx, orders, catalog, input.SupplierID, input.Lines, !input.Automatic)
		if err != nil {
			return err
		}
		if input.Automatic || !input.Confirm {
			if err := checkDuplicates(ctx, orders, duplicateScope(input.Automatic, input.SupplierID), input.Lines, nil); err != nil {
				return err
			}
		}

		order := &models.PurchaseOrder{
			SupplierID:  input.SupplierID,
			Status:      enums.PurchaseOrderStatusPending,
			Automatic:   input.Automatic,
			Lines:       lines,
			TotalAmount: RecomputeTotal(lines),
		}
		if err := orders.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create purchase order")
		}
		orderID = order.ID
		return verifyStored(ctx, orders, order.ID)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, orderID)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, repo.Translate(err, "purchase order", "load purchase order")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, filters ListFilters, params pagination.Params) (pagination.Page[models.PurchaseOrder], error) {
	if filters.Status != nil && !filters.Status.IsValid() {
		return pagination.Page[models.PurchaseOrder]{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return pagination.Page[models.PurchaseOrder]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	page, err := s.repo.List(ctx, filters, params)
	if err != nil {
		return page, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list purchase orders")
	}
	return page, nil
}

func (s *service) CountByStatus(ctx context.Context) (map[enums.PurchaseOrderStatus]int64, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count purchase orders")
	}
	return counts, nil
}

func (s *service) FindOpenOrders(ctx context.Context, articleID uuid.UUID, supplierID *uuid.UUID) ([]models.PurchaseOrder, error) {
	rows, err := s.repo.FindOpenOrders(ctx, OpenOrderQuery{ArticleID: articleID, SupplierID: supplierID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find open orders")
	}
	return rows, nil
}

// ReplaceLines rewrites a pending order with a new supplier and line set,
// pricing every line from the current relations.
func (s *service) ReplaceLines(ctx context.Context, orderID uuid.UUID, input ReplaceInput) (*models.PurchaseOrder, error) {
	if err := validateLines(input.SupplierID, input.Lines); err != nil {
		return nil, err
	}
	err := s.editPending(ctx, orderID, func(orders Repository, catalog articles.Repository, order *models.PurchaseOrder) error {
		lines, err := s.priceLines(ctx, orders, catalog, input.SupplierID, input.Lines, !order.Automatic)
		if err != nil {
			return err
		}
		if !input.Confirm {
			if err := checkDuplicates(ctx, orders, duplicateScope(order.Automatic, input.SupplierID), input.Lines, &order.ID); err != nil {
				return err
			}
		}
		if err := orders.ReplaceLines(ctx, order.ID, lines); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace order lines")
		}
		return orders.UpdateHeader(ctx, order.ID, map[string]any{
			"supplier_id":  input.SupplierID,
			"total_amount": RecomputeTotal(lines),
		})
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, orderID)
}

// UpdateLineQuantity reprices the line from the current relation cost.
func (s *service) UpdateLineQuantity(ctx context.Context, orderID, lineID uuid.UUID, quantity int) (*models.PurchaseOrder, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero")
	}
	err := s.editPending(ctx, orderID, func(orders Repository, catalog articles.Repository, order *models.PurchaseOrder) error {
		idx := lineIndex(order.Lines, lineID)
		if idx < 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order line not found")
		}
		line := &order.Lines[idx]

		article, err := catalog.FindByID(ctx, line.ArticleID)
		if err != nil {
			return repo.Translate(err, "article", "load article")
		}
		rel, ok := article.RelationFor(order.SupplierID)
		if !ok {
			return missingRelation(line.ArticleID, order.SupplierID)
		}

		line.Quantity = quantity
		line.UnitCost = rel.UnitCost
		line.Amount = LineAmount(rel.UnitCost, quantity)
		if err := orders.UpdateLine(ctx, line); err != nil {
			return repo.Translate(err, "order line", "update order line")
		}
		return orders.UpdateHeader(ctx, order.ID, map[string]any{"total_amount": RecomputeTotal(order.Lines)})
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, orderID)
}

// DeleteLine removes a line from a pending order. The last line cannot be
// removed; cancel the order instead.
func (s *service) DeleteLine(ctx context.Context, orderID, lineID uuid.UUID) (*models.PurchaseOrder, error) {
	err := s.editPending(ctx, orderID, func(orders Repository, _ articles.Repository, order *models.PurchaseOrder) error {
		idx := lineIndex(order.Lines, lineID)
		if idx < 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order line not found")
		}
		if len(order.Lines) == 1 {
			return pkgerrors.New(pkgerrors.CodeValidation, "an order needs at least one line; cancel it instead")
		}
		if err := orders.DeleteLine(ctx, order.ID, lineID); err != nil {
			return repo.Translate(err, "order line", "delete order line")
		}
		remaining := append(order.Lines[:idx:idx], order.Lines[idx+1:]...)
		return orders.UpdateHeader(ctx, order.ID, map[string]any{"total_amount": RecomputeTotal(remaining)})
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, orderID)
}

func (s *service) Send(ctx context.Context, orderID uuid.UUID) (*models.PurchaseOrder, error) {
	return s.transition(ctx, orderID, ActionSend, func(_ Repository, _ articles.Repository, _ *models.PurchaseOrder, now time.Time) (map[string]any, error) {
		return map[string]any{"sent_at": now}, nil
	})
}

// Finalize receives the order: each line's quantity is added to its
// article's on-hand stock in the same transaction as the status change.
func (s *service) Finalize(ctx context.Context, orderID uuid.UUID) (*models.PurchaseOrder, error) {
	return s.transition(ctx, orderID, ActionFinalize, func(_ Repository, catalog articles.Repository, order *models.PurchaseOrder, now time.Time) (map[string]any, error) {
		for _, line := range order.Lines {
			if err := catalog.AdjustStock(ctx, line.ArticleID, line.Quantity); err != nil {
				return nil, articles.StockError(err)
			}
		}
		return map[string]any{"finalized_at": now}, nil
	})
}

func (s *service) Cancel(ctx context.Context, orderID uuid.UUID) (*models.PurchaseOrder, error) {
	return s.transition(ctx, orderID, ActionCancel, func(_ Repository, _ articles.Repository, _ *models.PurchaseOrder, now time.Time) (map[string]any, error) {
		return map[string]any{"cancelled_at": now}, nil
	})
}

// EnsureStatuses upserts the named status catalog.
func (s *service) EnsureStatuses(ctx context.Context) error {
	statuses := enums.PurchaseOrderStatuses()
	records := make([]models.PurchaseOrderStatusRecord, 0, len(statuses))
	for _, status := range statuses {
		records = append(records, models.PurchaseOrderStatusRecord{
			Code:     status,
			Label:    status.Label(),
			Terminal: status.IsTerminal(),
		})
	}
	if err := s.repo.UpsertStatuses(ctx, records); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert order statuses")
	}
	return nil
}

type editFunc func(orders Repository, catalog articles.Repository, order *models.PurchaseOrder) error

// editPending loads the order inside a transaction, requires it to be
// editable, applies fn and verifies the stored total before committing.
func (s *service) editPending(ctx context.Context, orderID uuid.UUID, fn editFunc) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		orders := s.repo.WithTx(tx)
		order, err := orders.FindByID(ctx, orderID)
		if err != nil {
			return repo.Translate(err, "purchase order", "load purchase order")
		}
		if _, err := Transition(order.Status, ActionEdit); err != nil {
			return err
		}
		if err := fn(orders, s.articles.WithTx(tx), order); err != nil {
			return err
		}
		return verifyStored(ctx, orders, order.ID)
	})
}

type transitionFunc func(orders Repository, catalog articles.Repository, order *models.PurchaseOrder, now time.Time) (map[string]any, error)

func (s *service) transition(ctx context.Context, orderID uuid.UUID, action Action, fn transitionFunc) (*models.PurchaseOrder, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		orders := s.repo.WithTx(tx)
		order, err := orders.FindByID(ctx, orderID)
		if err != nil {
			return repo.Translate(err, "purchase order", "load purchase order")
		}
		next, err := Transition(order.Status, action)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		updates, err := fn(orders, s.articles.WithTx(tx), order, now)
		if err != nil {
			return err
		}
		if err := orders.TransitionStatus(ctx, order.ID, order.Status, next, updates); err != nil {
			if errors.Is(err, errStaleStatus) {
				return pkgerrors.InvalidTransition(fmt.Sprintf("order is no longer %s", order.Status))
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, orderID)
}

// priceLines locks and loads every article, resolves the supplier relation
// and builds priced lines. Manual orders for fixed-lot articles must lift
// stock above the reorder point.
func (s *service) priceLines(ctx context.Context, orders Repository, catalog articles.Repository, supplierID uuid.UUID, inputs []LineInput, manual bool) ([]models.PurchaseOrderLine, error) {
	ids := make([]uuid.UUID, 0, len(inputs))
	for _, in := range inputs {
		ids = append(ids, in.ArticleID)
	}
	if err := orders.LockArticles(ctx, ids); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock articles")
	}

	lines := make([]models.PurchaseOrderLine, 0, len(inputs))
	for _, in := range inputs {
		article, err := catalog.FindByID(ctx, in.ArticleID)
		if err != nil {
			return nil, repo.Translate(err, "article", "load article")
		}
		if !article.IsActive() {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "article not found")
		}
		rel, ok := article.RelationFor(supplierID)
		if !ok {
			return nil, missingRelation(in.ArticleID, supplierID)
		}
		if rel.Supplier != nil && !rel.Supplier.IsActive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier is no longer active")
		}
		if manual {
			if m, ok := article.Policy.FixedLot(); ok && article.OnHandQuantity+in.Quantity <= m.ReorderPoint {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "order quantity leaves stock at or below the reorder point").
					WithDetails(map[string]any{
						"article_id":    in.ArticleID,
						"on_hand":       article.OnHandQuantity,
						"reorder_point": m.ReorderPoint,
					})
			}
		}
		lines = append(lines, models.PurchaseOrderLine{
			ArticleID: in.ArticleID,
			Quantity:  in.Quantity,
			UnitCost:  rel.UnitCost,
			Amount:    LineAmount(rel.UnitCost, in.Quantity),
		})
	}
	return lines, nil
}

// DuplicateOrderDetail names an open order that already covers an article.
type DuplicateOrderDetail struct {
	ArticleID  uuid.UUID                 `json:"article_id"`
	OrderID    uuid.UUID                 `json:"order_id"`
	SupplierID uuid.UUID                 `json:"supplier_id"`
	Status     enums.PurchaseOrderStatus `json:"status"`
}

// duplicateScope limits the open-order lookup to one supplier for automatic
// orders. Manual orders conflict with any open order for the article.
func duplicateScope(automatic bool, supplierID uuid.UUID) *uuid.UUID {
	if automatic {
		return &supplierID
	}
	return nil
}

func checkDuplicates(ctx context.Context, orders Repository, supplierID *uuid.UUID, inputs []LineInput, exclude *uuid.UUID) error {
	var conflicts []DuplicateOrderDetail
	for _, in := range inputs {
		open, err := orders.FindOpenOrders(ctx, OpenOrderQuery{
			ArticleID:      in.ArticleID,
			SupplierID:     supplierID,
			ExcludeOrderID: exclude,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find open orders")
		}
		for _, o := range open {
			conflicts = append(conflicts, DuplicateOrderDetail{
				ArticleID:  in.ArticleID,
				OrderID:    o.ID,
				SupplierID: o.SupplierID,
				Status:     o.Status,
			})
		}
	}
	if len(conflicts) == 0 {
		return nil
	}
	return pkgerrors.DuplicateOrder("an open purchase order already exists for this article").
		WithDetails(map[string]any{"open_orders": conflicts})
}

func verifyStored(ctx context.Context, orders Repository, id uuid.UUID) error {
	stored, err := orders.FindByID(ctx, id)
	if err != nil {
		return repo.Translate(err, "purchase order", "reload purchase order")
	}
	return VerifyTotal(*stored)
}

func validateLines(supplierID uuid.UUID, lines []LineInput) error {
	if supplierID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "supplier_id is required")
	}
	if len(lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one line is required")
	}
	seen := make(map[uuid.UUID]struct{}, len(lines))
	for _, line := range lines {
		if line.ArticleID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "article_id is required on every line")
		}
		if line.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be greater than zero")
		}
		if _, dup := seen[line.ArticleID]; dup {
			return pkgerrors.New(pkgerrors.CodeValidation, "an article may appear on only one line")
		}
		seen[line.ArticleID] = struct{}{}
	}
	return nil
}

func missingRelation(articleID, supplierID uuid.UUID) error {
	return pkgerrors.MissingRelation("supplier does not provide this article").
		WithDetails(map[string]any{"article_id": articleID, "supplier_id": supplierID})
}

func lineIndex(lines []models.PurchaseOrderLine, id uuid.UUID) int {
	for i := range lines {
		if lines[i].ID == id {
			return i
		}
	}
	return -1
}

// SortedStatusCounts orders a status count map in lifecycle order.
func SortedStatusCounts(counts map[enums.PurchaseOrderStatus]int64) []StatusCount {
	out := make([]StatusCount, 0, len(counts))
	for status, n := range counts {
		out = append(out, StatusCount{Status: status, Count: n})
	}
	order := map[enums.PurchaseOrderStatus]int{}
	for i, st := range enums.PurchaseOrderStatuses() {
		order[st] = i
	}
	sort.Slice(out, func(i, j int) bool { return order[out[i].Status] < order[out[j].Status] })
	return out
}

// StatusCount is one row of the status breakdown.
type StatusCount struct {
	Status enums.PurchaseOrderStatus `json:"status"`
	Count  int64                     `json:"count"`
}
