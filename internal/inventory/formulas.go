// Package inventory implements the classical inventory-control formulas used to
// size replenishment orders: economic order quantity with a reorder point for
// continuous review, the periodic-review target level, and the annual
// inventory-management cost (CGI). Every function is pure.
package inventory

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/stockflow-backend/pkg/errors"
)

// DaysPerYear converts annual demand into daily demand.
const DaysPerYear = 365

// FixedLotInput carries the continuous-review parameters.
type FixedLotInput struct {
	AnnualDemand  float64 // D, units per year
	OrderingCost  float64 // S, cost per order placed
	HoldingCost   float64 // H, cost per unit per year
	LeadTimeDays  float64 // L
	DemandStdDev  float64 // σ of daily demand over the lead time
	ServiceZScore float64 // z
}

// FixedLotResult is the reorder-point policy derived from FixedLotInput.
type FixedLotResult struct {
	LotSize      int `json:"lot_size"`
	ReorderPoint int `json:"reorder_point"`
	SafetyStock  int `json:"safety_stock"`
}

// FixedIntervalInput carries the periodic-review parameters.
type FixedIntervalInput struct {
	DailyDemand        float64 // d
	DemandStdDev       float64 // σ over the review plus lead time window
	ServiceZScore      float64 // z
	ReviewIntervalDays float64 // T
	LeadTimeDays       float64 // L
	CurrentInventory   float64 // I, zero when unknown
}

// FixedIntervalResult is the periodic-review policy for the current cycle.
type FixedIntervalResult struct {
	SafetyStock   int `json:"safety_stock"`
	MaxInventory  int `json:"max_inventory"`
	OrderQuantity int `json:"order_quantity"`
}

// CGIInput carries the total-cost parameters.
type CGIInput struct {
	AnnualDemand float64 // D
	UnitCost     float64 // C
	LotSize      float64 // Q
	OrderingCost float64 // S
	HoldingCost  float64 // H
}

// ComputeFixedLot returns Q=√(2DS/H), R=dL+zσ√L and SS=zσ√L, each rounded to
// the nearest unit. Negative outputs are returned as is.
func ComputeFixedLot(in FixedLotInput) (FixedLotResult, error) {
	if err := requirePositive("fixed lot",
		param{"annual_demand", in.AnnualDemand},
		param{"ordering_cost", in.OrderingCost},
		param{"holding_cost", in.HoldingCost},
		param{"lead_time_days", in.LeadTimeDays},
	); err != nil {
		return FixedLotResult{}, err
	}

	lot := math.Sqrt((2 * in.AnnualDemand * in.OrderingCost) / in.HoldingCost)
	daily := DailyDemand(in.AnnualDemand)
	sigmaL := in.DemandStdDev * math.Sqrt(in.LeadTimeDays)
	safety := in.ServiceZScore * sigmaL

	return FixedLotResult{
		LotSize:      roundUnits(lot),
		ReorderPoint: roundUnits(daily*in.LeadTimeDays + safety),
		SafetyStock:  roundUnits(safety),
	}, nil
}

// ComputeFixedInterval returns SS=zσ√(T+L), M=E+SS and Q=M−I where E=d(T+L).
// Q is taken against the rounded ceiling so that I=M always yields zero. An
// order quantity at or below zero means no order is needed.
func ComputeFixedInterval(in FixedIntervalInput) FixedIntervalResult {
	window := in.ReviewIntervalDays + in.LeadTimeDays
	sigmaTL := in.DemandStdDev * math.Sqrt(math.Max(window, 0))
	safety := roundUnits(in.ServiceZScore * sigmaTL)
	expected := in.DailyDemand * window
	ceiling := roundUnits(expected + float64(safety))

	return FixedIntervalResult{
		SafetyStock:   safety,
		MaxInventory:  ceiling,
		OrderQuantity: ceiling - roundUnits(in.CurrentInventory),
	}
}

// ComputeCGI returns DC + (D/Q)S + (Q/2)H rounded to cents.
func ComputeCGI(in CGIInput) (decimal.Decimal, error) {
	if err := requirePositive("CGI",
		param{"annual_demand", in.AnnualDemand},
		param{"unit_cost", in.UnitCost},
		param{"lot_size", in.LotSize},
		param{"ordering_cost", in.OrderingCost},
		param{"holding_cost", in.HoldingCost},
	); err != nil {
		return decimal.Zero, err
	}

	purchase := in.AnnualDemand * in.UnitCost
	ordering := (in.AnnualDemand / in.LotSize) * in.OrderingCost
	holding := (in.LotSize / 2) * in.HoldingCost

	return decimal.NewFromFloat(purchase + ordering + holding).Round(2), nil
}

// DailyDemand converts an annual demand rate into units per day.
func DailyDemand(annual float64) float64 {
	return annual / DaysPerYear
}

// ServiceLevelZ converts a service probability in (0,1) into the matching
// standard normal z-score. Any other value is taken to be a z-score already,
// so 0 means no safety stock. Inputs are expected to pass ValidateServiceLevel.
func ServiceLevelZ(level float64) float64 {
	if level > 0 && level < 1 {
		return math.Sqrt2 * math.Erfinv(2*level-1)
	}
	return level
}

// ValidateServiceLevel rejects levels ServiceLevelZ cannot read unambiguously.
// Exactly 1 could mean a 100% probability or a z-score of one.
func ValidateServiceLevel(level float64) error {
	switch {
	case math.IsNaN(level) || math.IsInf(level, 0) || level < 0:
		return pkgerrors.New(pkgerrors.CodeValidation, "service_level must be a finite non-negative number")
	case level == 1:
		return pkgerrors.New(pkgerrors.CodeValidation, "service_level 1 is ambiguous; use a probability below 1 or a z-score above 1").
			WithDetails(map[string]any{"service_level": level})
	}
	return nil
}

func roundUnits(v float64) int {
	return int(math.Round(v))
}

type param struct {
	name  string
	value float64
}

// requirePositive fails with an insufficient data error naming every
// non-positive input. NaN counts as non-positive.
func requirePositive(model string, params ...param) error {
	var invalid []string
	for _, p := range params {
		if !(p.value > 0) {
			invalid = append(invalid, p.name)
		}
	}
	if len(invalid) == 0 {
		return nil
	}
	return pkgerrors.InsufficientData(fmt.Sprintf("%s model requires positive inputs", model)).
		WithDetails(map[string]any{"non_positive": invalid})
}
