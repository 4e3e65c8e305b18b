package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Supplier struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Name      string     `gorm:"column:name;not null"`
	DeletedAt *time.Time `gorm:"column:deleted_at"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *Supplier) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (s Supplier) IsActive() bool {
	return s.DeletedAt == nil
}

// ArticleSupplier carries the per pair cost and lead time inputs.
type ArticleSupplier struct {
	ArticleID    uuid.UUID       `gorm:"column:article_id;type:uuid;primaryKey"`
	SupplierID   uuid.UUID       `gorm:"column:supplier_id;type:uuid;primaryKey"`
	UnitCost     decimal.Decimal `gorm:"column:unit_cost;type:numeric(12,2);not null"`
	OrderCharge  decimal.Decimal `gorm:"column:order_charge;type:numeric(12,2);not null"`
	LeadTimeDays int             `gorm:"column:lead_time_days;not null"`
	Supplier     *Supplier       `gorm:"foreignKey:SupplierID;references:ID"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (ArticleSupplier) TableName() string {
	return "article_suppliers"
}
