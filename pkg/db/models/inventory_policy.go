package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/stockflow-backend/pkg/enums"
)

// InventoryPolicy stores exactly one policy variant per article. The article id
// is the primary key so a second policy row for the same article cannot exist;
// Kind selects which column group is populated.
type InventoryPolicy struct {
	ArticleID          uuid.UUID                 `gorm:"column:article_id;type:uuid;primaryKey"`
	Kind               enums.InventoryPolicyKind `gorm:"column:kind;type:text;not null"`
	SafetyStock        int                       `gorm:"column:safety_stock;not null;default:0"`
	LotSize            *int                      `gorm:"column:lot_size"`
	ReorderPoint       *int                      `gorm:"column:reorder_point"`
	ReviewIntervalDays *int                      `gorm:"column:review_interval_days"`
	MaxInventory       *int                      `gorm:"column:max_inventory"`
	OrderQuantity      *int                      `gorm:"column:order_quantity"`
	ComputedAt         time.Time                 `gorm:"column:computed_at;not null"`
	CreatedAt          time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}

// FixedLotModel is the reorder-point payload of an InventoryPolicy.
type FixedLotModel struct {
	LotSize      int `json:"lot_size"`
	ReorderPoint int `json:"reorder_point"`
	SafetyStock  int `json:"safety_stock"`
}

// FixedIntervalModel is the periodic-review payload of an InventoryPolicy.
type FixedIntervalModel struct {
	ReviewIntervalDays int `json:"review_interval_days"`
	SafetyStock        int `json:"safety_stock"`
	MaxInventory       int `json:"max_inventory"`
	OrderQuantity      int `json:"order_quantity"`
}

func NewFixedLotPolicy(articleID uuid.UUID, m FixedLotModel, computedAt time.Time) InventoryPolicy {
	lot, reorder := m.LotSize, m.ReorderPoint
	return InventoryPolicy{
		ArticleID:    articleID,
		Kind:         enums.InventoryPolicyFixedLot,
		SafetyStock:  m.SafetyStock,
		LotSize:      &lot,
		ReorderPoint: &reorder,
		ComputedAt:   computedAt,
	}
}

func NewFixedIntervalPolicy(articleID uuid.UUID, m FixedIntervalModel, computedAt time.Time) InventoryPolicy {
	interval, maxInv, qty := m.ReviewIntervalDays, m.MaxInventory, m.OrderQuantity
	return InventoryPolicy{
		ArticleID:          articleID,
		Kind:               enums.InventoryPolicyFixedInterval,
		SafetyStock:        m.SafetyStock,
		ReviewIntervalDays: &interval,
		MaxInventory:       &maxInv,
		OrderQuantity:      &qty,
		ComputedAt:         computedAt,
	}
}

// FixedLot returns the fixed-lot payload when the policy is of that kind.
func (p *InventoryPolicy) FixedLot() (FixedLotModel, bool) {
	if p == nil || p.Kind != enums.InventoryPolicyFixedLot || p.LotSize == nil || p.ReorderPoint == nil {
		return FixedLotModel{}, false
	}
	return FixedLotModel{
		LotSize:      *p.LotSize,
		ReorderPoint: *p.ReorderPoint,
		SafetyStock:  p.SafetyStock,
	}, true
}

// FixedInterval returns the fixed-interval payload when the policy is of that kind.
func (p *InventoryPolicy) FixedInterval() (FixedIntervalModel, bool) {
	if p == nil || p.Kind != enums.InventoryPolicyFixedInterval || p.ReviewIntervalDays == nil {
		return FixedIntervalModel{}, false
	}
	m := FixedIntervalModel{
		ReviewIntervalDays: *p.ReviewIntervalDays,
		SafetyStock:        p.SafetyStock,
	}
	if p.MaxInventory != nil {
		m.MaxInventory = *p.MaxInventory
	}
	if p.OrderQuantity != nil {
		m.OrderQuantity = *p.OrderQuantity
	}
	return m, true
}
