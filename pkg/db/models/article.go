package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Article is a stock-keeping unit tracked by the replenishment engine.
// ServiceLevel is a probability in (0,1) or a z-score above 1; 0 disables
// safety stock.
type Article struct {
	ID                   uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	Name                 string            `gorm:"column:name;not null"`
	Description          string            `gorm:"column:description;not null;default:''"`
	OnHandQuantity       int               `gorm:"column:on_hand_quantity;not null;default:0"`
	MaxStock             int               `gorm:"column:max_stock;not null;default:0"`
	AnnualDemand         float64           `gorm:"column:annual_demand;not null;default:0"`
	LeadTimeDemandStdDev float64           `gorm:"column:lead_time_demand_std_dev;not null;default:0"`
	ReviewDemandStdDev   float64           `gorm:"column:review_demand_std_dev;not null;default:0"`
	ServiceLevel         float64           `gorm:"column:service_level;not null;default:0"`
	HoldingCost          decimal.Decimal   `gorm:"column:holding_cost;type:numeric(12,2);not null;default:0"`
	StorageCost          decimal.Decimal   `gorm:"column:storage_cost;type:numeric(12,2);not null;default:0"`
	OrderingCost         decimal.Decimal   `gorm:"column:ordering_cost;type:numeric(12,2);not null;default:0"`
	PurchaseCost         decimal.Decimal   `gorm:"column:purchase_cost;type:numeric(12,2);not null;default:0"`
	DefaultSupplierID    *uuid.UUID        `gorm:"column:default_supplier_id;type:uuid"`
	CGI                  *decimal.Decimal  `gorm:"column:cgi;type:numeric(14,2)"`
	LastReviewedAt       *time.Time        `gorm:"column:last_reviewed_at"`
	DeletedAt            *time.Time        `gorm:"column:deleted_at"`
	Policy               *InventoryPolicy  `gorm:"foreignKey:ArticleID;references:ID"`
	DefaultSupplier      *Supplier         `gorm:"foreignKey:DefaultSupplierID;references:ID"`
	Suppliers            []ArticleSupplier `gorm:"foreignKey:ArticleID;references:ID"`
	CreatedAt            time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (a *Article) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// IsActive reports whether the article has not been soft deleted.
func (a Article) IsActive() bool {
	return a.DeletedAt == nil
}

// RelationFor returns the loaded relation for supplierID, if any.
func (a Article) RelationFor(supplierID uuid.UUID) (ArticleSupplier, bool) {
	for _, rel := range a.Suppliers {
		if rel.SupplierID == supplierID {
			return rel, true
		}
	}
	return ArticleSupplier{}, false
}

// DefaultRelation returns the relation with the article's default supplier.
func (a Article) DefaultRelation() (ArticleSupplier, bool) {
	if a.DefaultSupplierID == nil {
		return ArticleSupplier{}, false
	}
	return a.RelationFor(*a.DefaultSupplierID)
}
