// Package dto maps persistence models onto the JSON shapes served by the API.
package dto

import (
	"time"

	"github.com/angelmondragon/stockflow-backend/pkg/db/models"
	"github.com/angelmondragon/stockflow-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Policy struct {
	Kind          enums.InventoryPolicyKind  `json:"kind"`
	SafetyStock   int                        `json:"safety_stock"`
	FixedLot      *models.FixedLotModel      `json:"fixed_lot,omitempty"`
	FixedInterval *models.FixedIntervalModel `json:"fixed_interval,omitempty"`
	ComputedAt    time.Time                  `json:"computed_at"`
}

type Relation struct {
	ArticleID    uuid.UUID       `json:"article_id"`
	SupplierID   uuid.UUID       `json:"supplier_id"`
	SupplierName string          `json:"supplier_name,omitempty"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	OrderCharge  decimal.Decimal `json:"order_charge"`
	LeadTimeDays int             `json:"lead_time_days"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type Article struct {
	ID                   uuid.UUID        `json:"id"`
	Name                 string           `json:"name"`
	Description          string           `json:"description"`
	OnHandQuantity       int              `json:"on_hand_quantity"`
	MaxStock             int              `json:"max_stock"`
	AnnualDemand         float64          `json:"annual_demand"`
	LeadTimeDemandStdDev float64          `json:"lead_time_demand_std_dev"`
	ReviewDemandStdDev   float64          `json:"review_demand_std_dev"`
	ServiceLevel         float64          `json:"service_level"`
	HoldingCost          decimal.Decimal  `json:"holding_cost"`
	StorageCost          decimal.Decimal  `json:"storage_cost"`
	OrderingCost         decimal.Decimal  `json:"ordering_cost"`
	PurchaseCost         decimal.Decimal  `json:"purchase_cost"`
	DefaultSupplierID    *uuid.UUID       `json:"default_supplier_id,omitempty"`
	CGI                  *decimal.Decimal `json:"cgi,omitempty"`
	LastReviewedAt       *time.Time       `json:"last_reviewed_at,omitempty"`
	DeletedAt            *time.Time       `json:"deleted_at,omitempty"`
	Policy               *Policy          `json:"policy,omitempty"`
	Suppliers            []Relation       `json:"suppliers,omitempty"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
}

type Supplier struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type PurchaseOrderLine struct {
	ID        uuid.UUID       `json:"id"`
	ArticleID uuid.UUID       `json:"article_id"`
	Quantity  int             `json:"quantity"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
	Amount    decimal.Decimal `json:"amount"`
}

type PurchaseOrder struct {
	ID           uuid.UUID                 `json:"id"`
	SupplierID   uuid.UUID                 `json:"supplier_id"`
	SupplierName string                    `json:"supplier_name,omitempty"`
	Status       enums.PurchaseOrderStatus `json:"status"`
	StatusLabel  string                    `json:"status_label"`
	Automatic    bool                      `json:"automatic"`
	TotalAmount  decimal.Decimal           `json:"total_amount"`
	Lines        []PurchaseOrderLine       `json:"lines"`
	SentAt       *time.Time                `json:"sent_at,omitempty"`
	FinalizedAt  *time.Time                `json:"finalized_at,omitempty"`
	CancelledAt  *time.Time                `json:"cancelled_at,omitempty"`
	CreatedAt    time.Time                 `json:"created_at"`
	UpdatedAt    time.Time                 `json:"updated_at"`
}

type SaleLine struct {
	ID        uuid.UUID       `json:"id"`
	ArticleID uuid.UUID       `json:"article_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Amount    decimal.Decimal `json:"amount"`
}

type Sale struct {
	ID          uuid.UUID       `json:"id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Lines       []SaleLine      `json:"lines"`
	CreatedAt   time.Time       `json:"created_at"`
}

func FromPolicy(p *models.InventoryPolicy) *Policy {
	if p == nil {
		return nil
	}
	out := &Policy{Kind: p.Kind, SafetyStock: p.SafetyStock, ComputedAt: p.ComputedAt}
	if m, ok := p.FixedLot(); ok {
		out.FixedLot = &m
	}
	if m, ok := p.FixedInterval(); ok {
		out.FixedInterval = &m
	}
	return out
}

func FromRelation(rel models.ArticleSupplier) Relation {
	out := Relation{
		ArticleID:    rel.ArticleID,
		SupplierID:   rel.SupplierID,
		UnitCost:     rel.UnitCost,
		OrderCharge:  rel.OrderCharge,
		LeadTimeDays: rel.LeadTimeDays,
		UpdatedAt:    rel.UpdatedAt,
	}
	if rel.Supplier != nil {
		out.SupplierName = rel.Supplier.Name
	}
	return out
}

func FromRelations(rels []models.ArticleSupplier) []Relation {
	out := make([]Relation, 0, len(rels))
	for _, rel := range rels {
		out = append(out, FromRelation(rel))
	}
	return out
}

func FromArticle(a *models.Article) Article {
	out := Article{
		ID:                   a.ID,
		Name:                 a.Name,
		Description:          a.Description,
		OnHandQuantity:       a.OnHandQuantity,
		MaxStock:             a.MaxStock,
		AnnualDemand:         a.AnnualDemand,
		LeadTimeDemandStdDev: a.LeadTimeDemandStdDev,
		ReviewDemandStdDev:   a.ReviewDemandStdDev,
		ServiceLevel:         a.ServiceLevel,
		HoldingCost:          a.HoldingCost,
		StorageCost:          a.StorageCost,
		OrderingCost:         a.OrderingCost,
		PurchaseCost:         a.PurchaseCost,
		DefaultSupplierID:    a.DefaultSupplierID,
		CGI:                  a.CGI,
		LastReviewedAt:       a.LastReviewedAt,
		DeletedAt:            a.DeletedAt,
		Policy:               FromPolicy(a.Policy),
		CreatedAt:            a.CreatedAt,
		UpdatedAt:            a.UpdatedAt,
	}
	if len(a.Suppliers) > 0 {
		out.Suppliers = FromRelations(a.Suppliers)
	}
	return out
}

func FromArticles(rows []models.Article) []Article {
	out := make([]Article, 0, len(rows))
	for i := range rows {
		out = append(out, FromArticle(&rows[i]))
	}
	return out
}

func FromSupplier(s *models.Supplier) Supplier {
	return Supplier{ID: s.ID, Name: s.Name, DeletedAt: s.DeletedAt, CreatedAt: s.CreatedAt}
}

func FromSuppliers(rows []models.Supplier) []Supplier {
	out := make([]Supplier, 0, len(rows))
	for i := range rows {
		out = append(out, FromSupplier(&rows[i]))
	}
	return out
}

func FromPurchaseOrder(o *models.PurchaseOrder) PurchaseOrder {
	out := PurchaseOrder{
		ID:          o.ID,
		SupplierID:  o.SupplierID,
		Status:      o.Status,
		StatusLabel: o.Status.Label(),
		Automatic:   o.Automatic,
		TotalAmount: o.TotalAmount,
		Lines:       make([]PurchaseOrderLine, 0, len(o.Lines)),
		SentAt:      o.SentAt,
		FinalizedAt: o.FinalizedAt,
		CancelledAt: o.CancelledAt,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
	if o.Supplier != nil {
		out.SupplierName = o.Supplier.Name
	}
	for _, line := range o.Lines {
		out.Lines = append(out.Lines, PurchaseOrderLine{
			ID:        line.ID,
			ArticleID: line.ArticleID,
			Quantity:  line.Quantity,
			UnitCost:  line.UnitCost,
			Amount:    line.Amount,
		})
	}
	return out
}

func FromPurchaseOrders(rows []models.PurchaseOrder) []PurchaseOrder {
	out := make([]PurchaseOrder, 0, len(rows))
	for i := range rows {
		out = append(out, FromPurchaseOrder(&rows[i]))
	}
	return out
}

func FromSale(s *models.Sale) Sale {
	out := Sale{ID: s.ID, TotalAmount: s.TotalAmount, Lines: make([]SaleLine, 0, len(s.Lines)), CreatedAt: s.CreatedAt}
	for _, line := range s.Lines {
		out.Lines = append(out.Lines, SaleLine{
			ID:        line.ID,
			ArticleID: line.ArticleID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			Amount:    line.Amount,
		})
	}
	return out
}

func FromSales(rows []models.Sale) []Sale {
	out := make([]Sale, 0, len(rows))
	for i := range rows {
		out = append(out, FromSale(&rows[i]))
	}
	return out
}
