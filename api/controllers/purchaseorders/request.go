package purchaseorders

import (
	"net/http"

	"github.com/angelmondragon/stockflow-backend/api/validators"
	internalpo "github.com/angelmondragon/stockflow-backend/internal/purchaseorders"
	"github.com/angelmondragon/stockflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/stockflow-backend/pkg/errors"
	"github.com/google/uuid"
)

type lineRequest struct {
	ArticleID string `json:"article_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
}

// orderRequest creates an order or replaces a pending one. Confirm
// acknowledges an existing open order for the same article and supplier.
type orderRequest struct {
	SupplierID string        `json:"supplier_id" validate:"required,uuid"`
	Lines      []lineRequest `json:"lines" validate:"required,min=1,dive"`
	Confirm    bool          `json:"confirm"`
}

type lineQuantityRequest struct {
	Quantity int `json:"quantity" validate:"gt=0"`
}

func (o orderRequest) lines() []internalpo.LineInput {
	out := make([]internalpo.LineInput, 0, len(o.Lines))
	for _, line := range o.Lines {
		out = append(out, internalpo.LineInput{ArticleID: uuid.MustParse(line.ArticleID), Quantity: line.Quantity})
	}
	return out
}

func listFilters(r *http.Request) (internalpo.ListFilters, error) {
	var filters internalpo.ListFilters
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := enums.ParsePurchaseOrderStatus(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status").
				WithDetails(map[string]any{"field": "status"})
		}
		filters.Status = &status
	}
	supplierID, err := validators.ParseQueryUUID(r, "supplier_id")
	if err != nil {
		return filters, err
	}
	filters.SupplierID = supplierID
	articleID, err := validators.ParseQueryUUID(r, "article_id")
	if err != nil {
		return filters, err
	}
	filters.ArticleID = articleID
	automatic, err := validators.ParseQueryBool(r, "automatic")
	if err != nil {
		return filters, err
	}
	filters.Automatic = automatic
	return filters, nil
}
