package purchaseorders

import (
	"context"

	"github.com/angelmondragon/stockflow-backend/internal/repo"
	"github.com/angelmondragon/stockflow-backend/pkg/db/models"
	"github.com/angelmondragon/stockflow-backend/pkg/enums"
	"github.com/angelmondragon/stockflow-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OpenOrderQuery selects Pending or Sent orders that contain an article.
type OpenOrderQuery struct {
	ArticleID      uuid.UUID
	SupplierID     *uuid.UUID
	ExcludeOrderID *uuid.UUID
}

// ListFilters narrows purchase order listings.
type ListFilters struct {
	Status     *enums.PurchaseOrderStatus
	SupplierID *uuid.UUID
	ArticleID  *uuid.UUID
	Automatic  *bool
}

// Repository persists purchase orders and their lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.PurchaseOrder) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error)
	List(ctx context.Context, filters ListFilters, params pagination.Params) (pagination.Page[models.PurchaseOrder], error)
	CountByStatus(ctx context.Context) (map[enums.PurchaseOrderStatus]int64, error)
	FindOpenOrders(ctx context.Context, query OpenOrderQuery) ([]models.PurchaseOrder, error)
	LockArticles(ctx context.Context, ids []uuid.UUID) error
	UpdateLine(ctx context.Context, line *models.PurchaseOrderLine) error
	DeleteLine(ctx context.Context, orderID, lineID uuid.UUID) error
	ReplaceLines(ctx context.Context, orderID uuid.UUID, lines []models.PurchaseOrderLine) error
	UpdateHeader(ctx context.Context, id uuid.UUID, updates map[string]any) error
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.PurchaseOrderStatus, updates map[string]any) error
	UpsertStatuses(ctx context.Context, records []models.PurchaseOrderStatusRecord) error
}

type repository struct {
	repo.Base
}

// NewRepository returns a purchase order repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Base.WithTx(tx)}
}

func (r *repository) Create(ctx context.Context, order *models.PurchaseOrder) error {
	return r.DB(ctx).Omit("Supplier").Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error) {
	var order models.PurchaseOrder
	err := r.DB(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("purchase_order_lines.created_at ASC").Order("purchase_order_lines.id ASC")
		}).
		Preload("Supplier").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) List(ctx context.Context, filters ListFilters, params pagination.Params) (pagination.Page[models.PurchaseOrder], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[models.PurchaseOrder]{}, err
	}

	q := r.DB(ctx).Model(&models.PurchaseOrder{})
	if filters.Status != nil {
		q = q.Where("status = ?", *filters.Status)
	}
	if filters.SupplierID != nil {
		q = q.Where("supplier_id = ?", *filters.SupplierID)
	}
	if filters.ArticleID != nil {
		q = q.Where("EXISTS (SELECT 1 FROM purchase_order_lines l WHERE l.order_id = purchase_orders.id AND l.article_id = ?)", *filters.ArticleID)
	}
	if filters.Automatic != nil {
		q = q.Where("automatic = ?", *filters.Automatic)
	}
	if cursor != nil {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.PurchaseOrder
	err = q.Preload("Lines").
		Preload("Supplier").
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	if err != nil {
		return pagination.Page[models.PurchaseOrder]{}, err
	}
	return pagination.Build(rows, params.Limit, func(o models.PurchaseOrder) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	}), nil
}

func (r *repository) CountByStatus(ctx context.Context) (map[enums.PurchaseOrderStatus]int64, error) {
	var rows []struct {
		Status enums.PurchaseOrderStatus
		Count  int64
	}
	err := r.DB(ctx).Model(&models.PurchaseOrder{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[enums.PurchaseOrderStatus]int64, len(enums.PurchaseOrderStatuses()))
	for _, status := range enums.PurchaseOrderStatuses() {
		counts[status] = 0
	}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *repository) FindOpenOrders(ctx context.Context, query OpenOrderQuery) ([]models.PurchaseOrder, error) {
	q := r.DB(ctx).Model(&models.PurchaseOrder{}).
		Where("status IN ?", enums.OpenPurchaseOrderStatuses()).
		Where("EXISTS (SELECT 1 FROM purchase_order_lines l WHERE l.order_id = purchase_orders.id AND l.article_id = ?)", query.ArticleID)
	if query.SupplierID != nil {
		q = q.Where("supplier_id = ?", *query.SupplierID)
	}
	if query.ExcludeOrderID != nil {
		q = q.Where("id <> ?", *query.ExcludeOrderID)
	}

	var rows []models.PurchaseOrder
	err := q.Order("created_at ASC").Find(&rows).Error
	return rows, err
}

// LockArticles takes row locks on the articles so concurrent order creation
// for the same article serializes on Postgres. SQLite ignores the clause.
func (r *repository) LockArticles(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	var locked []models.Article
	return r.DB(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Where("id IN ?", ids).
		Order("id").
		Find(&locked).Error
}

func (r *repository) UpdateLine(ctx context.Context, line *models.PurchaseOrderLine) error {
	res := r.DB(ctx).Model(&models.PurchaseOrderLine{}).
		Where("id = ? AND order_id = ?", line.ID, line.OrderID).
		Updates(map[string]any{
			"quantity":  line.Quantity,
			"unit_cost": line.UnitCost,
			"amount":    line.Amount,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) DeleteLine(ctx context.Context, orderID, lineID uuid.UUID) error {
	res := r.DB(ctx).Where("id = ? AND order_id = ?", lineID, orderID).Delete(&models.PurchaseOrderLine{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) ReplaceLines(ctx context.Context, orderID uuid.UUID, lines []models.PurchaseOrderLine) error {
	if err := r.DB(ctx).Where("order_id = ?", orderID).Delete(&models.PurchaseOrderLine{}).Error; err != nil {
		return err
	}
	for i := range lines {
		lines[i].OrderID = orderID
	}
	return r.DB(ctx).Create(&lines).Error
}

func (r *repository) UpdateHeader(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	res := r.DB(ctx).Model(&models.PurchaseOrder{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// TransitionStatus moves the order from one status to another only if it is
// still in from, so two racing transitions cannot both apply.
func (r *repository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.PurchaseOrderStatus, updates map[string]any) error {
	values := map[string]any{"status": to}
	for k, v := range updates {
		values[k] = v
	}
	res := r.DB(ctx).Model(&models.PurchaseOrder{}).
		Where("id = ? AND status = ?", id, from).
		Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errStaleStatus
	}
	return nil
}

func (r *repository) UpsertStatuses(ctx context.Context, records []models.PurchaseOrderStatusRecord) error {
	if len(records) == 0 {
		return nil
	}
	return r.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"label", "terminal", "updated_at"}),
	}).Create(&records).Error
}
