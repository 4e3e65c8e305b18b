// Package replenishment decides when and how much to reorder for each article
// and turns those decisions into purchase orders.
package replenishment

import (
	"time"

	"github.com/angelmondragon/stockflow-backend/internal/inventory"
	"github.com/angelmondragon/stockflow-backend/pkg/db/models"
)

// Action is the outcome class of one evaluation.
type Action string

const (
	ActionNone        Action = "none"
	ActionCreateOrder Action = "create_order"
	ActionSkip        Action = "skip"
)

// Reason explains an Action.
type Reason string

const (
	ReasonBelowReorderPoint  Reason = "below_reorder_point"
	ReasonAboveReorderPoint  Reason = "above_reorder_point"
	ReasonReviewDue          Reason = "review_due"
	ReasonNotDue             Reason = "not_due"
	ReasonNoQuantity         Reason = "no_quantity"
	ReasonOpenOrderExists    Reason = "open_order_exists"
	ReasonNoPolicy           Reason = "no_policy"
	ReasonNoDefaultSupplier  Reason = "no_default_supplier"
	ReasonMissingRelation    Reason = "missing_relation"
	ReasonInsufficientData   Reason = "insufficient_data"
	ReasonInactive           Reason = "inactive"
	ReasonPeriodicReviewOnly Reason = "periodic_review_only"
)

// Decision is either "no action" or "create an order for Quantity units".
type Decision struct {
	Action   Action `json:"action"`
	Quantity int    `json:"quantity,omitempty"`
	Reason   Reason `json:"reason"`
}

// FixedLotState is everything the reorder-point rule looks at.
type FixedLotState struct {
	OnHand       int
	Model        models.FixedLotModel
	HasOpenOrder bool
}

// DecideFixedLot orders one lot when stock is at or below the reorder point
// and nothing is already in flight for the article.
func DecideFixedLot(state FixedLotState) Decision {
	if state.OnHand > state.Model.ReorderPoint {
		return Decision{Action: ActionNone, Reason: ReasonAboveReorderPoint}
	}
	if state.HasOpenOrder {
		return Decision{Action: ActionSkip, Reason: ReasonOpenOrderExists}
	}
	if state.Model.LotSize <= 0 {
		return Decision{Action: ActionSkip, Reason: ReasonNoQuantity}
	}
	return Decision{Action: ActionCreateOrder, Quantity: state.Model.LotSize, Reason: ReasonBelowReorderPoint}
}

// FixedIntervalState is everything the periodic-review rule looks at. Demand
// carries the formula inputs; its CurrentInventory and ReviewIntervalDays are
// overwritten from OnHand and Model.
type FixedIntervalState struct {
	OnHand         int
	Model          models.FixedIntervalModel
	Demand         inventory.FixedIntervalInput
	LastReviewedAt *time.Time
	HasOpenOrder   bool
}

// IntervalDecision reports whether the review was due, the recomputed model
// and what to order.
type IntervalDecision struct {
	Due      bool
	Model    models.FixedIntervalModel
	Decision Decision
}

// IsReviewDue reports whether at least intervalDays have elapsed since the
// last review. Articles never reviewed are due.
func IsReviewDue(lastReviewedAt *time.Time, intervalDays int, now time.Time) bool {
	if lastReviewedAt == nil {
		return true
	}
	return now.Sub(*lastReviewedAt) >= time.Duration(intervalDays)*24*time.Hour
}

// DecideFixedInterval recomputes the order quantity against current stock
// when the review is due.
func DecideFixedInterval(state FixedIntervalState, now time.Time) IntervalDecision {
	if !IsReviewDue(state.LastReviewedAt, state.Model.ReviewIntervalDays, now) {
		return IntervalDecision{
			Model:    state.Model,
			Decision: Decision{Action: ActionNone, Reason: ReasonNotDue},
		}
	}

	in := state.Demand
	in.ReviewIntervalDays = float64(state.Model.ReviewIntervalDays)
	in.CurrentInventory = float64(state.OnHand)
	res := inventory.ComputeFixedInterval(in)

	out := IntervalDecision{
		Due: true,
		Model: models.FixedIntervalModel{
			ReviewIntervalDays: state.Model.ReviewIntervalDays,
			SafetyStock:        res.SafetyStock,
			MaxInventory:       res.MaxInventory,
			OrderQuantity:      res.OrderQuantity,
		},
	}
	switch {
	case res.OrderQuantity <= 0:
		out.Decision = Decision{Action: ActionNone, Reason: ReasonNoQuantity}
	case state.HasOpenOrder:
		out.Decision = Decision{Action: ActionSkip, Reason: ReasonOpenOrderExists}
	default:
		out.Decision = Decision{Action: ActionCreateOrder, Quantity: res.OrderQuantity, Reason: ReasonReviewDue}
	}
	return out
}
