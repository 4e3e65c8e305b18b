package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/stockflow-backend/api/controllers/dto"
	"github.com/angelmondragon/stockflow-backend/api/responses"
	"github.com/angelmondragon/stockflow-backend/api/validators"
	"github.com/angelmondragon/stockflow-backend/internal/articles"
	"github.com/angelmondragon/stockflow-backend/internal/replenishment"
	pkgerrors "github.com/angelmondragon/stockflow-backend/pkg/errors"
	"github.com/angelmondragon/stockflow-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	maxNameLength        = 120
	maxDescriptionLength = 2000
)

// ReplenishmentEngine is the part of the engine exposed over HTTP.
type ReplenishmentEngine interface {
	Evaluate(ctx context.Context, articleID uuid.UUID, trigger replenishment.Trigger) (replenishment.Outcome, error)
	RecomputeFixedLot(ctx context.Context, articleID uuid.UUID) (replenishment.PolicyResult, error)
	EstimateFixedInterval(ctx context.Context, articleID uuid.UUID, intervalDays int) (replenishment.PolicyResult, error)
}

type createArticleRequest struct {
	Name                 string          `json:"name" validate:"required,max=120"`
	Description          string          `json:"description" validate:"max=2000"`
	OnHandQuantity       int             `json:"on_hand_quantity" validate:"gte=0"`
	MaxStock             int             `json:"max_stock" validate:"gte=0"`
	AnnualDemand         float64         `json:"annual_demand" validate:"gte=0"`
	LeadTimeDemandStdDev float64         `json:"lead_time_demand_std_dev" validate:"gte=0"`
	ReviewDemandStdDev   float64         `json:"review_demand_std_dev" validate:"gte=0"`
	ServiceLevel         float64         `json:"service_level" validate:"gte=0"`
	HoldingCost          decimal.Decimal `json:"holding_cost"`
	StorageCost          decimal.Decimal `json:"storage_cost"`
	OrderingCost         decimal.Decimal `json:"ordering_cost"`
	PurchaseCost         decimal.Decimal `json:"purchase_cost"`
}

type updateArticleRequest struct {
	Name                 *string          `json:"name" validate:"omitempty,max=120"`
	Description          *string          `json:"description" validate:"omitempty,max=2000"`
	MaxStock             *int             `json:"max_stock" validate:"omitempty,gte=0"`
	AnnualDemand         *float64         `json:"annual_demand" validate:"omitempty,gte=0"`
	LeadTimeDemandStdDev *float64         `json:"lead_time_demand_std_dev" validate:"omitempty,gte=0"`
	ReviewDemandStdDev   *float64         `json:"review_demand_std_dev" validate:"omitempty,gte=0"`
	ServiceLevel         *float64         `json:"service_level" validate:"omitempty,gte=0"`
	HoldingCost          *decimal.Decimal `json:"holding_cost"`
	StorageCost          *decimal.Decimal `json:"storage_cost"`
	OrderingCost         *decimal.Decimal `json:"ordering_cost"`
	PurchaseCost         *decimal.Decimal `json:"purchase_cost"`
}

type defaultSupplierRequest struct {
	SupplierID string `json:"supplier_id" validate:"required,uuid"`
}

// stockRequest either moves stock by Delta or sets it to Quantity.
type stockRequest struct {
	Delta    *int `json:"delta"`
	Quantity *int `json:"quantity" validate:"omitempty,gte=0"`
}

type fixedIntervalPolicyRequest struct {
	ReviewIntervalDays int `json:"review_interval_days" validate:"gt=0"`
}

func ArticleCreate(svc articles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body createArticleRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		article, err := svc.Create(r.Context(), articles.CreateInput{
			Name:                 validators.SanitizeString(body.Name, maxNameLength),
			Description:          validators.SanitizeString(body.Description, maxDescriptionLength),
			OnHandQuantity:       body.OnHandQuantity,
			MaxStock:             body.MaxStock,
			AnnualDemand:         body.AnnualDemand,
			LeadTimeDemandStdDev: body.LeadTimeDemandStdDev,
			ReviewDemandStdDev:   body.ReviewDemandStdDev,
			ServiceLevel:         body.ServiceLevel,
			HoldingCost:          body.HoldingCost,
			StorageCost:          body.StorageCost,
			OrderingCost:         body.OrderingCost,
			PurchaseCost:         body.PurchaseCost,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, dto.FromArticle(article))
	}
}

// ArticleList supports has_policy, below_reorder_point, supplier_id, q and
// include_deleted filters.
func ArticleList(svc articles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters, err := articleFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.List(r.Context(), filters, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WritePage(w, dto.FromArticles(page.Items), page.NextCursor)
	}
}

func ArticleGet(svc articles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "articleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		article, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto.FromArticle(article))
	}
}

func ArticleUpdate(svc articles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "articleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body updateArticleRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		article, err := svc.Update(r.Context(), id, articles.UpdateInput{
			Name:                 validators.SanitizeOptional(body.Name, maxNameLength),
			Description:          validators.SanitizeOptional(body.Description, maxDescriptionLength),
			MaxStock:             body.MaxStock,
			AnnualDemand:         body.AnnualDemand,
			LeadTimeDemandStdDev: body.LeadTimeDemandStdDev,
			ReviewDemandStdDev:   body.ReviewDemandStdDev,
			ServiceLevel:         body.ServiceLevel,
			HoldingCost:          body.HoldingCost,
			StorageCost:          body.StorageCost,
			OrderingCost:         body.OrderingCost,
			PurchaseCost:         body.PurchaseCost,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto.FromArticle(article))
	}
}

func ArticleDelete(svc articles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "articleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

func ArticleSetDefaultSupplier(svc articles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "articleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body defaultSupplierRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		article, err := svc.SetDefaultSupplier(r.Context(), id, uuid.MustParse(body.SupplierID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto.FromArticle(article))
	}
}

// ArticleStock applies a manual stock correction. Exactly one of delta or
// quantity must be set.
func ArticleStock(svc articles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "articleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body stockRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if (body.Delta == nil) == (body.Quantity == nil) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "provide exactly one of delta or quantity"))
			return
		}

		var updated any
		if body.Delta != nil {
			article, err := svc.AdjustStock(r.Context(), id, *body.Delta)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			updated = dto.FromArticle(article)
		} else {
			article, err := svc.SetStock(r.Context(), id, *body.Quantity)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			updated = dto.FromArticle(article)
		}
		responses.WriteSuccess(w, updated)
	}
}

func ArticleRecomputeFixedLot(engine ReplenishmentEngine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "articleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := engine.RecomputeFixedLot(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func ArticleEstimateFixedInterval(engine ReplenishmentEngine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "articleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body fixedIntervalPolicyRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := engine.EstimateFixedInterval(r.Context(), id, body.ReviewIntervalDays)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func ArticleDetachPolicy(svc articles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "articleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DetachPolicy(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

func ArticleCGI(svc articles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "articleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cgi, err := svc.ComputeCGI(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"article_id": id, "cgi": cgi})
	}
}

// ArticleReplenish runs the engine for one article on demand.
func ArticleReplenish(engine ReplenishmentEngine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "articleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		outcome, err := engine.Evaluate(r.Context(), id, replenishment.TriggerManual)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if outcome.Action == replenishment.ActionCreateOrder {
			responses.WriteCreated(w, outcome)
			return
		}
		responses.WriteSuccess(w, outcome)
	}
}

func articleFilters(r *http.Request) (articles.ListFilters, error) {
	var filters articles.ListFilters
	hasPolicy, err := validators.ParseQueryBool(r, "has_policy")
	if err != nil {
		return filters, err
	}
	filters.HasPolicy = hasPolicy

	below, err := validators.ParseQueryBool(r, "below_reorder_point")
	if err != nil {
		return filters, err
	}
	filters.BelowReorderPoint = below != nil && *below

	deleted, err := validators.ParseQueryBool(r, "include_deleted")
	if err != nil {
		return filters, err
	}
	filters.IncludeDeleted = deleted != nil && *deleted

	supplierID, err := validators.ParseQueryUUID(r, "supplier_id")
	if err != nil {
		return filters, err
	}
	filters.SupplierID = supplierID
	filters.Query = strings.TrimSpace(r.URL.Query().Get("q"))
	return filters, nil
}
