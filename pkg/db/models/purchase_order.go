package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/stockflow-backend/pkg/enums"
)

// PurchaseOrder is a replenishment order placed with a single supplier.
type PurchaseOrder struct {
	ID          uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	SupplierID  uuid.UUID                 `gorm:"column:supplier_id;type:uuid;not null"`
	Status      enums.PurchaseOrderStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	TotalAmount decimal.Decimal           `gorm:"column:total_amount;type:numeric(14,2);not null;default:0"`
	Automatic   bool                      `gorm:"column:automatic;not null;default:false"`
	SentAt      *time.Time                `gorm:"column:sent_at"`
	FinalizedAt *time.Time                `gorm:"column:finalized_at"`
	CancelledAt *time.Time                `gorm:"column:cancelled_at"`
	Lines       []PurchaseOrderLine       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Supplier    *Supplier                 `gorm:"foreignKey:SupplierID;references:ID"`
	CreatedAt   time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *PurchaseOrder) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// PurchaseOrderLine is a single article entry of a purchase order.
type PurchaseOrderLine struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ArticleID uuid.UUID       `gorm:"column:article_id;type:uuid;not null;index"`
	Quantity  int             `gorm:"column:quantity;not null"`
	UnitCost  decimal.Decimal `gorm:"column:unit_cost;type:numeric(12,2);not null"`
	Amount    decimal.Decimal `gorm:"column:amount;type:numeric(14,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (l *PurchaseOrderLine) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// PurchaseOrderStatusRecord is the named status catalog row.
type PurchaseOrderStatusRecord struct {
	Code      enums.PurchaseOrderStatus `gorm:"column:code;type:text;primaryKey"`
	Label     string                    `gorm:"column:label;not null"`
	Terminal  bool                      `gorm:"column:terminal;not null;default:false"`
	CreatedAt time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}

func (PurchaseOrderStatusRecord) TableName() string {
	return "purchase_order_statuses"
}
