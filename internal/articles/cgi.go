package articles

import (
	"github.com/angelmondragon/stockflow-backend/internal/inventory"
	"github.com/angelmondragon/stockflow-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/stockflow-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

// LotSizeFor returns the quantity an article is ordered in under its current
// policy: Q for fixed lot, the last computed order quantity for fixed interval.
func LotSizeFor(policy *models.InventoryPolicy) (int, bool) {
	if m, ok := policy.FixedLot(); ok && m.LotSize > 0 {
		return m.LotSize, true
	}
	if m, ok := policy.FixedInterval(); ok && m.OrderQuantity > 0 {
		return m.OrderQuantity, true
	}
	return 0, false
}

// CGIFor computes the annual inventory cost of an article ordered from its
// default supplier. The article must be loaded with Policy and Suppliers.
func CGIFor(article models.Article) (decimal.Decimal, error) {
	rel, ok := article.DefaultRelation()
	if !ok {
		return decimal.Zero, pkgerrors.MissingRelation("article has no default supplier relation")
	}
	lot, ok := LotSizeFor(article.Policy)
	if !ok {
		return decimal.Zero, pkgerrors.InsufficientData("article has no positive lot size").
			WithDetails(map[string]any{"non_positive": []string{"lot_size"}})
	}
	return inventory.ComputeCGI(inventory.CGIInput{
		AnnualDemand: article.AnnualDemand,
		UnitCost:     rel.UnitCost.InexactFloat64(),
		LotSize:      float64(lot),
		OrderingCost: rel.OrderCharge.InexactFloat64(),
		HoldingCost:  article.HoldingCost.InexactFloat64(),
	})
}
