package controllers

import (
	"net/http"

	"github.com/angelmondragon/stockflow-backend/api/responses"
	"github.com/angelmondragon/stockflow-backend/api/validators"
	"github.com/angelmondragon/stockflow-backend/internal/inventory"
	pkgerrors "github.com/angelmondragon/stockflow-backend/pkg/errors"
	"github.com/angelmondragon/stockflow-backend/pkg/logger"
)

// ServiceLevel below one is a probability; above one it is a z-score.
type fixedLotRequest struct {
	AnnualDemand float64 `json:"annual_demand"`
	OrderingCost float64 `json:"ordering_cost"`
	HoldingCost  float64 `json:"holding_cost"`
	LeadTimeDays float64 `json:"lead_time_days"`
	DemandStdDev float64 `json:"demand_std_dev" validate:"gte=0"`
	ServiceLevel float64 `json:"service_level" validate:"gte=0"`
}

type fixedIntervalRequest struct {
	DailyDemand        *float64 `json:"daily_demand" validate:"omitempty,gte=0"`
	AnnualDemand       float64  `json:"annual_demand" validate:"gte=0"`
	DemandStdDev       float64  `json:"demand_std_dev" validate:"gte=0"`
	ServiceLevel       float64  `json:"service_level" validate:"gte=0"`
	ReviewIntervalDays float64  `json:"review_interval_days" validate:"gt=0"`
	LeadTimeDays       float64  `json:"lead_time_days" validate:"gte=0"`
	CurrentInventory   float64  `json:"current_inventory" validate:"gte=0"`
}

type cgiRequest struct {
	AnnualDemand float64 `json:"annual_demand"`
	UnitCost     float64 `json:"unit_cost"`
	LotSize      float64 `json:"lot_size"`
	OrderingCost float64 `json:"ordering_cost"`
	HoldingCost  float64 `json:"holding_cost"`
}

func InventoryFixedLot(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body fixedLotRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := inventory.ValidateServiceLevel(body.ServiceLevel); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := inventory.ComputeFixedLot(inventory.FixedLotInput{
			AnnualDemand:  body.AnnualDemand,
			OrderingCost:  body.OrderingCost,
			HoldingCost:   body.HoldingCost,
			LeadTimeDays:  body.LeadTimeDays,
			DemandStdDev:  body.DemandStdDev,
			ServiceZScore: inventory.ServiceLevelZ(body.ServiceLevel),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// InventoryFixedInterval accepts either daily_demand or annual_demand.
func InventoryFixedInterval(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body fixedIntervalRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := inventory.ValidateServiceLevel(body.ServiceLevel); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		daily := inventory.DailyDemand(body.AnnualDemand)
		if body.DailyDemand != nil {
			daily = *body.DailyDemand
		}
		if !(daily > 0) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.InsufficientData("fixed interval model requires positive demand").
				WithDetails(map[string]any{"non_positive": []string{"daily_demand"}}))
			return
		}
		result := inventory.ComputeFixedInterval(inventory.FixedIntervalInput{
			DailyDemand:        daily,
			DemandStdDev:       body.DemandStdDev,
			ServiceZScore:      inventory.ServiceLevelZ(body.ServiceLevel),
			ReviewIntervalDays: body.ReviewIntervalDays,
			LeadTimeDays:       body.LeadTimeDays,
			CurrentInventory:   body.CurrentInventory,
		})
		responses.WriteSuccess(w, result)
	}
}

func InventoryCGI(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body cgiRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cgi, err := inventory.ComputeCGI(inventory.CGIInput{
			AnnualDemand: body.AnnualDemand,
			UnitCost:     body.UnitCost,
			LotSize:      body.LotSize,
			OrderingCost: body.OrderingCost,
			HoldingCost:  body.HoldingCost,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"cgi": cgi})
	}
}
