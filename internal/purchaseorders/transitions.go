package purchaseorders

import (
	"fmt"

	"github.com/angelmondragon/stockflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/stockflow-backend/pkg/errors"
)

// Action is a lifecycle operation requested on a purchase order.
type Action string

const (
	ActionSend     Action = "send"
	ActionFinalize Action = "finalize"
	ActionCancel   Action = "cancel"
	ActionEdit     Action = "edit"
)

var transitions = map[Action]map[enums.PurchaseOrderStatus]enums.PurchaseOrderStatus{
	ActionSend: {
		enums.PurchaseOrderStatusPending: enums.PurchaseOrderStatusSent,
	},
	ActionFinalize: {
		enums.PurchaseOrderStatusPending: enums.PurchaseOrderStatusFinalized,
		enums.PurchaseOrderStatusSent:    enums.PurchaseOrderStatusFinalized,
	},
	ActionCancel: {
		enums.PurchaseOrderStatusPending: enums.PurchaseOrderStatusCancelled,
	},
	ActionEdit: {
		enums.PurchaseOrderStatusPending: enums.PurchaseOrderStatusPending,
	},
}

// Transition returns the status an order moves to when action is applied in
// current. Disallowed combinations fail with an invalid state transition.
func Transition(current enums.PurchaseOrderStatus, action Action) (enums.PurchaseOrderStatus, error) {
	allowed, ok := transitions[action]
	if !ok {
		return current, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown order action %q", action))
	}
	next, ok := allowed[current]
	if !ok {
		return current, pkgerrors.InvalidTransition(fmt.Sprintf("cannot %s an order in status %s", action, current)).
			WithDetails(map[string]any{"status": current, "action": action})
	}
	return next, nil
}
