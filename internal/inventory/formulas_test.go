package inventory

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/stockflow-backend/pkg/errors"
)

func TestComputeFixedLotEOQExample(t *testing.T) {
	res, err := ComputeFixedLot(FixedLotInput{
		AnnualDemand:  1000,
		OrderingCost:  50,
		HoldingCost:   2,
		LeadTimeDays:  5,
		DemandStdDev:  3,
		ServiceZScore: 1.65,
	})
	require.NoError(t, err)

	assert.Equal(t, 224, res.LotSize)
	// d = 1000/365 ≈ 2.74; dL ≈ 13.70; zσ√L ≈ 11.07
	assert.Equal(t, 11, res.SafetyStock)
	assert.Equal(t, 25, res.ReorderPoint)
}

func TestComputeFixedLotWithoutVariability(t *testing.T) {
	res, err := ComputeFixedLot(FixedLotInput{
		AnnualDemand: 3650,
		OrderingCost: 10,
		HoldingCost:  1,
		LeadTimeDays: 4,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.SafetyStock)
	assert.Equal(t, 40, res.ReorderPoint)
	assert.Equal(t, int(math.Round(math.Sqrt(73000))), res.LotSize)
}

func TestComputeFixedLotRejectsNonPositiveInputs(t *testing.T) {
	valid := FixedLotInput{AnnualDemand: 1000, OrderingCost: 50, HoldingCost: 2, LeadTimeDays: 5}

	cases := map[string]func(in *FixedLotInput){
		"zero demand":        func(in *FixedLotInput) { in.AnnualDemand = 0 },
		"negative ordering":  func(in *FixedLotInput) { in.OrderingCost = -1 },
		"zero holding":       func(in *FixedLotInput) { in.HoldingCost = 0 },
		"zero lead time":     func(in *FixedLotInput) { in.LeadTimeDays = 0 },
		"nan demand":         func(in *FixedLotInput) { in.AnnualDemand = math.NaN() },
		"negative lead time": func(in *FixedLotInput) { in.LeadTimeDays = -3 },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := valid
			mutate(&in)
			res, err := ComputeFixedLot(in)
			require.Error(t, err)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientData))
			assert.Equal(t, FixedLotResult{}, res, "no partial computation expected")
		})
	}
}

func TestComputeFixedLotReportsEveryInvalidInput(t *testing.T) {
	_, err := ComputeFixedLot(FixedLotInput{AnnualDemand: 0, OrderingCost: 0, HoldingCost: 2, LeadTimeDays: 1})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []string{"annual_demand", "ordering_cost"}, details["non_positive"])
}

func TestComputeFixedIntervalExample(t *testing.T) {
	res := ComputeFixedInterval(FixedIntervalInput{
		DailyDemand:        10,
		DemandStdDev:       2,
		ServiceZScore:      1.65,
		ReviewIntervalDays: 7,
		LeadTimeDays:       3,
		CurrentInventory:   95,
	})

	assert.Equal(t, 10, res.SafetyStock)
	assert.Equal(t, 110, res.MaxInventory)
	assert.Equal(t, 15, res.OrderQuantity)
}

func TestComputeFixedIntervalAtCeilingOrdersNothing(t *testing.T) {
	inputs := []FixedIntervalInput{
		{DailyDemand: 10, DemandStdDev: 2, ServiceZScore: 1.65, ReviewIntervalDays: 7, LeadTimeDays: 3},
		{DailyDemand: 3.05, DemandStdDev: 1.2, ServiceZScore: 2.33, ReviewIntervalDays: 14, LeadTimeDays: 6},
		{DailyDemand: 0.525, DemandStdDev: 0, ServiceZScore: 0, ReviewIntervalDays: 10, LeadTimeDays: 10},
	}
	for _, in := range inputs {
		first := ComputeFixedInterval(in)
		in.CurrentInventory = float64(first.MaxInventory)
		again := ComputeFixedInterval(in)
		assert.Equal(t, 0, again.OrderQuantity, "input %+v", in)
	}
}

func TestComputeFixedIntervalDefaultsInventoryToZero(t *testing.T) {
	res := ComputeFixedInterval(FixedIntervalInput{DailyDemand: 10, DemandStdDev: 2, ServiceZScore: 1.65, ReviewIntervalDays: 7, LeadTimeDays: 3})
	assert.Equal(t, res.MaxInventory, res.OrderQuantity)
}

func TestComputeFixedIntervalSurplusGivesNonPositiveQuantity(t *testing.T) {
	res := ComputeFixedInterval(FixedIntervalInput{DailyDemand: 10, DemandStdDev: 2, ServiceZScore: 1.65, ReviewIntervalDays: 7, LeadTimeDays: 3, CurrentInventory: 150})
	assert.Equal(t, -40, res.OrderQuantity)
}

func TestComputeCGI(t *testing.T) {
	total, err := ComputeCGI(CGIInput{AnnualDemand: 1000, UnitCost: 5, LotSize: 224, OrderingCost: 50, HoldingCost: 2})
	require.NoError(t, err)
	// 5000 + 223.214... + 224
	assert.Equal(t, "5447.21", total.StringFixed(2))
}

func TestComputeCGIRejectsNonPositiveInputs(t *testing.T) {
	valid := CGIInput{AnnualDemand: 1000, UnitCost: 5, LotSize: 224, OrderingCost: 50, HoldingCost: 2}
	mutations := []func(in *CGIInput){
		func(in *CGIInput) { in.AnnualDemand = 0 },
		func(in *CGIInput) { in.UnitCost = 0 },
		func(in *CGIInput) { in.LotSize = 0 },
		func(in *CGIInput) { in.OrderingCost = -5 },
		func(in *CGIInput) { in.HoldingCost = 0 },
	}
	for i, mutate := range mutations {
		in := valid
		mutate(&in)
		total, err := ComputeCGI(in)
		require.Error(t, err, "mutation %d", i)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientData))
		assert.True(t, total.IsZero())
	}
}

func TestServiceLevelZ(t *testing.T) {
	assert.InDelta(t, 1.6449, ServiceLevelZ(0.95), 1e-3)
	assert.InDelta(t, 0, ServiceLevelZ(0.5), 1e-9)
	assert.InDelta(t, 2.3263, ServiceLevelZ(0.99), 1e-3)
	assert.Equal(t, 1.65, ServiceLevelZ(1.65))
	assert.Equal(t, 0.0, ServiceLevelZ(0))
}

func TestValidateServiceLevel(t *testing.T) {
	for _, ok := range []float64{0, 0.5, 0.95, 0.999, 1.65, 3} {
		assert.NoError(t, ValidateServiceLevel(ok), "level %v", ok)
	}
	for _, bad := range []float64{1, -0.1, math.NaN(), math.Inf(1)} {
		err := ValidateServiceLevel(bad)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "level %v", bad)
	}
}

func TestDailyDemand(t *testing.T) {
	assert.InDelta(t, 1.0, DailyDemand(365), 1e-12)
}
