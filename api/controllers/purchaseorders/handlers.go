package purchaseorders

import (
	"context"
	"net/http"

	"github.com/angelmondragon/stockflow-backend/api/controllers/dto"
	"github.com/angelmondragon/stockflow-backend/api/responses"
	"github.com/angelmondragon/stockflow-backend/api/validators"
	internalpo "github.com/angelmondragon/stockflow-backend/internal/purchaseorders"
	"github.com/angelmondragon/stockflow-backend/pkg/db/models"
	"github.com/angelmondragon/stockflow-backend/pkg/logger"
	"github.com/google/uuid"
)

// Create places a manual order. A DUPLICATE_ORDER_CONFLICT response lists
// the open orders; resubmitting with confirm=true proceeds.
func Create(svc internalpo.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body orderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Create(r.Context(), internalpo.CreateInput{
			SupplierID: uuid.MustParse(body.SupplierID),
			Lines:      body.lines(),
			Confirm:    body.Confirm,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := logg.WithOrderID(r.Context(), order.ID.String())
		logg.Info(ctx, "purchase order created")
		responses.WriteCreated(w, dto.FromPurchaseOrder(order))
	}
}

func List(svc internalpo.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters, err := listFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.List(r.Context(), filters, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WritePage(w, dto.FromPurchaseOrders(page.Items), page.NextCursor)
	}
}

func Detail(svc internalpo.Service, logg *logger.Logger) http.HandlerFunc {
	return withOrder(svc.Get, logg)
}

// Counts reports how many orders sit in each status.
func Counts(svc internalpo.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counts, err := svc.CountByStatus(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalpo.SortedStatusCounts(counts))
	}
}

// Replace swaps supplier and lines of a pending order.
func Replace(svc internalpo.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body orderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.ReplaceLines(r.Context(), orderID, internalpo.ReplaceInput{
			SupplierID: uuid.MustParse(body.SupplierID),
			Lines:      body.lines(),
			Confirm:    body.Confirm,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto.FromPurchaseOrder(order))
	}
}

func Send(svc internalpo.Service, logg *logger.Logger) http.HandlerFunc {
	return withOrder(svc.Send, logg)
}

func Finalize(svc internalpo.Service, logg *logger.Logger) http.HandlerFunc {
	return withOrder(svc.Finalize, logg)
}

func Cancel(svc internalpo.Service, logg *logger.Logger) http.HandlerFunc {
	return withOrder(svc.Cancel, logg)
}

func UpdateLine(svc internalpo.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, lineID, err := orderAndLine(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body lineQuantityRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.UpdateLineQuantity(r.Context(), orderID, lineID, body.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto.FromPurchaseOrder(order))
	}
}

func DeleteLine(svc internalpo.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, lineID, err := orderAndLine(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.DeleteLine(r.Context(), orderID, lineID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto.FromPurchaseOrder(order))
	}
}

func withOrder(action func(context.Context, uuid.UUID) (*models.PurchaseOrder, error), logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := action(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto.FromPurchaseOrder(order))
	}
}

func orderAndLine(r *http.Request) (uuid.UUID, uuid.UUID, error) {
	orderID, err := validators.ParseUUIDParam(r, "orderId")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	lineID, err := validators.ParseUUIDParam(r, "lineId")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return orderID, lineID, nil
}
