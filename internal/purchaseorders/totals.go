package purchaseorders

import (
	"fmt"

	"github.com/angelmondragon/stockflow-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/stockflow-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

// LineAmount prices quantity units at unitCost, rounded to cents.
func LineAmount(unitCost decimal.Decimal, quantity int) decimal.Decimal {
	return unitCost.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
}

// RecomputeTotal sums the line amounts.
func RecomputeTotal(lines []models.PurchaseOrderLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Amount)
	}
	return total
}

// VerifyTotal checks that every line amount matches its quantity and unit cost
// and that the stored order total equals the sum of its lines.
func VerifyTotal(order models.PurchaseOrder) error {
	for _, line := range order.Lines {
		if want := LineAmount(line.UnitCost, line.Quantity); !line.Amount.Equal(want) {
			return pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("line %s amount %s does not match %s", line.ID, line.Amount, want))
		}
	}
	if want := RecomputeTotal(order.Lines); !order.TotalAmount.Equal(want) {
		return pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("order %s total %s does not match lines %s", order.ID, order.TotalAmount, want))
	}
	return nil
}
