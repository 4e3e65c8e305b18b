package sales

import (
	"context"

	"github.com/angelmondragon/stockflow-backend/internal/repo"
	"github.com/angelmondragon/stockflow-backend/pkg/db/models"
	"github.com/angelmondragon/stockflow-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, sale *models.Sale) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Sale, error)
	List(ctx context.Context, params pagination.Params) (pagination.Page[models.Sale], error)
	UpdateLine(ctx context.Context, line *models.SaleLine) error
	DeleteLine(ctx context.Context, saleID, lineID uuid.UUID) error
	UpdateTotal(ctx context.Context, id uuid.UUID, lines []models.SaleLine) error
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

func (r *repository) Create(ctx context.Context, sale *models.Sale) error {
	return r.DB(ctx).Create(sale).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	var sale models.Sale
	err := r.DB(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("sale_lines.created_at ASC").Order("sale_lines.id ASC")
		}).
		Where("id = ?", id).
		First(&sale).Error
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *repository) List(ctx context.Context, params pagination.Params) (pagination.Page[models.Sale], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[models.Sale]{}, err
	}
	q := r.DB(ctx).Model(&models.Sale{})
	if cursor != nil {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Sale
	if err := q.Preload("Lines").
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error; err != nil {
		return pagination.Page[models.Sale]{}, err
	}
	return pagination.Build(rows, params.Limit, func(s models.Sale) pagination.Cursor {
		return pagination.Cursor{CreatedAt: s.CreatedAt, ID: s.ID}
	}), nil
}

func (r *repository) UpdateLine(ctx context.Context, line *models.SaleLine) error {
	res := r.DB(ctx).Model(&models.SaleLine{}).
		Where("id = ? AND sale_id = ?", line.ID, line.SaleID).
		Updates(map[string]any{
			"quantity":   line.Quantity,
			"unit_price": line.UnitPrice,
			"amount":     line.Amount,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) DeleteLine(ctx context.Context, saleID, lineID uuid.UUID) error {
	res := r.DB(ctx).Where("id = ? AND sale_id = ?", lineID, saleID).Delete(&models.SaleLine{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateTotal stores the sum of lines as the sale total.
func (r *repository) UpdateTotal(ctx context.Context, id uuid.UUID, lines []models.SaleLine) error {
	return r.DB(ctx).Model(&models.Sale{}).Where("id = ?", id).
		Update("total_amount", Total(lines)).Error
}
